package authkit

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token expiry durations
const (
	TokenExpirySession  = 24 * time.Hour
	TokenExpiryReverify = 5 * time.Minute
)

// Claim values that separate the reverify token namespace from session
// tokens. A token carrying this audience is never accepted as a session
// token, and vice versa.
const (
	AudienceReverify = "reverify"
	ScopeProfileEdit = "profile:edit"
)

// reverifyClaims adds the scope claim to the registered set.
type reverifyClaims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer is the sole authority for signed tokens. It holds the HMAC
// signing key for the process lifetime; the key is read-only after
// construction and safe for concurrent use.
type TokenIssuer struct {
	// SecretKey signs and verifies all tokens. Required.
	SecretKey string

	// Issuer claim stamped on every token. Optional.
	Issuer string

	// SessionTTL defaults to TokenExpirySession.
	SessionTTL time.Duration

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

func (t *TokenIssuer) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *TokenIssuer) sessionTTL() time.Duration {
	if t.SessionTTL != 0 {
		return t.SessionTTL
	}
	return TokenExpirySession
}

// IssueSessionToken creates a signed session token with subject accountID.
func (t *TokenIssuer) IssueSessionToken(accountID string) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		Issuer:    t.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.sessionTTL())),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.SecretKey))
}

// IssueReverifyToken creates a short-lived step-up token for accountID. The
// reverify audience and profile:edit scope keep it out of the session token
// namespace.
func (t *TokenIssuer) IssueReverifyToken(accountID string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := reverifyClaims{
		Scope: ScopeProfileEdit,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    t.Issuer,
			Audience:  jwt.ClaimStrings{AudienceReverify},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.SecretKey))
}

// VerifySessionToken returns the subject accountID of a valid session token.
// Bad signature, wrong signing method, expiry, a missing subject, and any
// audience claim (a reverify token in particular) all collapse to
// ErrTokenInvalid; callers never learn which check failed.
func (t *TokenIssuer) VerifySessionToken(tokenString string) (string, error) {
	claims, err := t.parse(tokenString)
	if err != nil {
		return "", ErrTokenInvalid
	}
	if len(claims.Audience) != 0 {
		return "", ErrTokenInvalid
	}
	if claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}

// VerifyReverifyToken reports whether tokenString is a valid, unexpired
// reverify token for expectedAccountID. Any failed check returns false.
func (t *TokenIssuer) VerifyReverifyToken(tokenString, expectedAccountID string) bool {
	claims, err := t.parse(tokenString)
	if err != nil {
		return false
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != AudienceReverify {
		return false
	}
	return expectedAccountID != "" && claims.Subject == expectedAccountID
}

func (t *TokenIssuer) parse(tokenString string) (*jwt.RegisteredClaims, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(token *jwt.Token) (any, error) {
			return []byte(t.SecretKey), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}
