package authkit_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nuzip/authkit"
	"github.com/nuzip/authkit/stores"
)

func newTestMiddleware(t *testing.T) (*authkit.Middleware, *authkit.TokenIssuer, *stores.MemoryAccountStore) {
	t.Helper()
	issuer := newTestIssuer()
	store := stores.NewMemoryAccountStore()
	mw := &authkit.Middleware{
		VerifyToken: issuer.VerifySessionToken,
		Accounts:    store,
	}
	return mw, issuer, store
}

func seedAccount(t *testing.T, store *stores.MemoryAccountStore, accountID string) *authkit.Account {
	t.Helper()
	account := newLocalAccount(t, accountID, "password123")
	if err := store.Save(context.Background(), account); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return account
}

func TestExtractPrincipalAttachesAccount(t *testing.T) {
	mw, issuer, store := newTestMiddleware(t)
	seedAccount(t, store, "alice")

	token, err := issuer.IssueSessionToken("alice")
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	var got *authkit.Account
	handler := mw.ExtractPrincipal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = authkit.PrincipalFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.AccountID != "alice" {
		t.Errorf("expected principal alice, got %+v", got)
	}
}

func TestExtractPrincipalProceedsWithoutToken(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)

	called := false
	handler := mw.ExtractPrincipal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if authkit.PrincipalFromContext(r.Context()) != nil {
			t.Error("expected no principal without a token")
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Error("expected handler to run for anonymous request")
	}
}

func TestRequirePrincipalUniform401(t *testing.T) {
	mw, issuer, store := newTestMiddleware(t)
	seedAccount(t, store, "alice")

	expired := newTestIssuer()
	expired.SessionTTL = -1
	expiredToken, err := expired.IssueSessionToken("alice")
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	orphanToken, err := issuer.IssueSessionToken("no-such-account")
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	handler := mw.RequirePrincipal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a principal")
	}))

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"garbage token", "Bearer garbage"},
		{"expired token", "Bearer " + expiredToken},
		{"token for deleted account", "Bearer " + orphanToken},
	}

	var bodies []map[string]any
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.token != "" {
				req.Header.Set("Authorization", tc.token)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
			if cc := rec.Header().Get("Cache-Control"); cc == "" {
				t.Error("expected no-store cache headers on 401")
			}

			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decoding 401 body: %v", err)
			}
			bodies = append(bodies, body)
		})
	}

	// Every failure mode must produce the identical response body.
	for i := 1; i < len(bodies); i++ {
		if bodies[i]["code"] != bodies[0]["code"] || bodies[i]["message"] != bodies[0]["message"] {
			t.Errorf("401 bodies differ between failure modes: %v vs %v", bodies[0], bodies[i])
		}
	}
}

func TestRequirePrincipalPassesAuthenticated(t *testing.T) {
	mw, issuer, store := newTestMiddleware(t)
	seedAccount(t, store, "alice")

	token, err := issuer.IssueSessionToken("alice")
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	called := false
	handler := mw.RequirePrincipal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Error("expected handler to run for authenticated request")
	}
}

// downStore simulates a store outage on every read.
type downStore struct {
	authkit.AccountStore
}

func (s *downStore) FindByAccountID(ctx context.Context, accountID string) (*authkit.Account, error) {
	return nil, errors.New("connection refused")
}

func TestStoreOutageIsNotUnauthenticated(t *testing.T) {
	// A client holding a valid token during a store outage must get the
	// retryable unavailable signal, never "sign in again".
	issuer := newTestIssuer()
	mw := &authkit.Middleware{
		VerifyToken: issuer.VerifySessionToken,
		Accounts:    &downStore{},
	}

	token, err := issuer.IssueSessionToken("alice")
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	handler := mw.RequirePrincipal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run during a store outage")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["code"] != authkit.ErrCodeUnavailable {
		t.Errorf("expected code %s, got %v", authkit.ErrCodeUnavailable, body["code"])
	}
}

func TestPrincipalFromCookie(t *testing.T) {
	mw, issuer, store := newTestMiddleware(t)
	mw.AuthTokenCookieName = "session"
	seedAccount(t, store, "alice")

	token, err := issuer.IssueSessionToken("alice")
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	var got *authkit.Account
	handler := mw.ExtractPrincipal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = authkit.PrincipalFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil || got.AccountID != "alice" {
		t.Errorf("expected principal alice from cookie, got %+v", got)
	}
}
