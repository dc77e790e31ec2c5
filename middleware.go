package authkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

type principalKey struct{}

// Middleware gates requests requiring identity. It extracts a bearer token,
// verifies it, loads the account and attaches it to the request context.
// A missing or invalid token is not an error at this layer: the request
// simply proceeds unauthenticated, and RequirePrincipal decides whether that
// is acceptable for the route.
type Middleware struct {
	AuthTokenHeaderName string
	AuthTokenCookieName string

	// VerifyToken validates a session token and returns its accountID.
	VerifyToken func(tokenString string) (accountID string, err error)

	// Accounts loads the principal once the token checks out.
	Accounts AccountStore
}

// EnsureReasonableDefaults fills in unset config values.
func (m *Middleware) EnsureReasonableDefaults() {
	if m.AuthTokenHeaderName == "" {
		m.AuthTokenHeaderName = "Authorization"
	}
}

// ExtractPrincipal resolves the requester's identity, if any, and makes it
// available to downstream handlers. The attachment is request-scoped; every
// request gets its own derived context.
func (m *Middleware) ExtractPrincipal(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, err := m.resolvePrincipal(r)
		if err != nil {
			// A store failure with a valid token is not "sign in again";
			// the caller gets the retryable unavailable signal instead.
			writeError(w, err)
			return
		}
		if account != nil {
			r = r.WithContext(context.WithValue(r.Context(), principalKey{}, account))
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePrincipal is the single unauthenticated-access entry point: any
// route behind it that has no principal attached gets the uniform
// unauthenticated response. "No token" and "bad token" are indistinguishable
// to the client.
func (m *Middleware) RequirePrincipal(next http.Handler) http.Handler {
	return m.ExtractPrincipal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFromContext(r.Context()) == nil {
			WriteUnauthenticated(w)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// resolvePrincipal tries every presented token. A token that fails
// verification, or whose subject has no account, leaves the request
// unauthenticated; a store error while loading a verified subject is a
// distinct outcome the caller reports as unavailable.
func (m *Middleware) resolvePrincipal(r *http.Request) (*Account, error) {
	if m.VerifyToken == nil {
		slog.Warn("no session token verifier configured")
		return nil, nil
	}

	tokens := r.Header.Values(m.AuthTokenHeaderName)
	if m.AuthTokenCookieName != "" {
		for _, cookie := range r.CookiesNamed(m.AuthTokenCookieName) {
			if cookie.Value != "" {
				tokens = append(tokens, cookie.Value)
			}
		}
	}

	for _, raw := range tokens {
		accountID, err := m.VerifyToken(stripBearerPrefix(raw))
		if err != nil || accountID == "" {
			continue
		}
		account, err := m.Accounts.FindByAccountID(r.Context(), accountID)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				slog.Warn("token subject has no account", "accountId", accountID)
				continue
			}
			return nil, fmt.Errorf("loading principal %q: %w", accountID, err)
		}
		return account, nil
	}
	return nil, nil
}

func stripBearerPrefix(v string) string {
	if len(v) > 7 && strings.EqualFold(v[:7], "Bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return strings.TrimSpace(v)
}

// PrincipalFromContext returns the authenticated account attached to the
// request context, or nil when the request is unauthenticated.
func PrincipalFromContext(ctx context.Context) *Account {
	if account, ok := ctx.Value(principalKey{}).(*Account); ok {
		return account
	}
	return nil
}

// WriteUnauthenticated writes the uniform "not authenticated" response. The
// shape is identical whether a token was absent, malformed or expired, and
// the no-store headers keep proxies from caching the 401.
func WriteUnauthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"code":    "unauthenticated",
		"message": "Your session is missing or no longer valid. Please sign in again.",
	})
}
