// Command nuzipd serves the account and authentication HTTP API.
//
// All configuration comes from AUTHKIT_* environment variables; see
// authkit.Config. With AUTHKIT_DATABASE_URL set the accounts live in
// Postgres, otherwise in an in-memory store suitable for local runs.
package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"gorm.io/driver/postgres"
	gormdb "gorm.io/gorm"

	"github.com/nuzip/authkit"
	"github.com/nuzip/authkit/stores"
	gormstore "github.com/nuzip/authkit/stores/gorm"
)

func main() {
	cfg, err := authkit.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	accounts, err := openAccountStore(cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}

	issuer := &authkit.TokenIssuer{
		SecretKey:  cfg.JWTSecret,
		Issuer:     cfg.JWTIssuer,
		SessionTTL: cfg.SessionTTL,
	}
	service := &authkit.AuthService{
		Accounts:    accounts,
		Tokens:      issuer,
		Verifier:    authkit.NewGoogleVerifier(cfg.GoogleClientID),
		ReverifyTTL: cfg.ReverifyTTL,
	}
	server := authkit.NewServer(service)

	mux := http.NewServeMux()
	mux.Handle("/", server.Handler())

	if cfg.GoogleClientSecret != "" && cfg.OAuthCallbackURL != "" {
		flow := authkit.NewGoogleRedirectFlow(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthCallbackURL, service)
		flow.Register(mux.HandleFunc)
		slog.Info("google redirect flow enabled", "callback", cfg.OAuthCallbackURL)
	}

	slog.Info("listening", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func openAccountStore(cfg *authkit.Config) (authkit.AccountStore, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("no database configured, using in-memory account store")
		return stores.NewMemoryAccountStore(), nil
	}
	db, err := gormdb.Open(postgres.Open(cfg.DatabaseURL), &gormdb.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := gormstore.AutoMigrate(db); err != nil {
		return nil, err
	}
	return gormstore.NewAccountStore(db), nil
}
