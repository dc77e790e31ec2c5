package authkit

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// minSecretLen is the shortest signing secret accepted for HS256.
const minSecretLen = 32

// Config is the environment surface the auth core consumes. The signing
// secret and the Google client ID are required; the process must refuse to
// start without them rather than fail at the first request.
type Config struct {
	// JWTSecret signs all session and reverify tokens. Never logged.
	JWTSecret string `env:"AUTHKIT_JWT_SECRET,required,unset"`

	// GoogleClientID is the expected audience for Google ID tokens.
	GoogleClientID string `env:"AUTHKIT_GOOGLE_CLIENT_ID,required"`

	// GoogleClientSecret and OAuthCallbackURL configure the browser
	// redirect flow; both empty disables it.
	GoogleClientSecret string `env:"AUTHKIT_GOOGLE_CLIENT_SECRET"`
	OAuthCallbackURL   string `env:"AUTHKIT_OAUTH_CALLBACK_URL"`

	// DatabaseURL selects the postgres account store; empty falls back to
	// the in-memory store (development only).
	DatabaseURL string `env:"AUTHKIT_DATABASE_URL"`

	ListenAddr  string        `env:"AUTHKIT_LISTEN_ADDR" envDefault:":8080"`
	JWTIssuer   string        `env:"AUTHKIT_JWT_ISSUER" envDefault:"authkit"`
	SessionTTL  time.Duration `env:"AUTHKIT_SESSION_TTL" envDefault:"24h"`
	ReverifyTTL time.Duration `env:"AUTHKIT_REVERIFY_TTL" envDefault:"5m"`
}

// LoadConfig parses the environment and validates startup-fatal invariants.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if len(cfg.JWTSecret) < minSecretLen {
		return nil, fmt.Errorf("AUTHKIT_JWT_SECRET must be at least %d bytes", minSecretLen)
	}
	return &cfg, nil
}
