package authkit_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nuzip/authkit"
)

func newTestIssuer() *authkit.TokenIssuer {
	return &authkit.TokenIssuer{
		SecretKey: "test-secret-key-0123456789abcdef",
		Issuer:    "authkit-test",
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	issuer := newTestIssuer()

	token, err := issuer.IssueSessionToken("alice")
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	accountID, err := issuer.VerifySessionToken(token)
	if err != nil {
		t.Fatalf("VerifySessionToken: %v", err)
	}
	if accountID != "alice" {
		t.Errorf("expected subject alice, got %q", accountID)
	}
}

func TestExpiredSessionTokenRejected(t *testing.T) {
	issuer := newTestIssuer()
	issuer.SessionTTL = -time.Minute

	token, err := issuer.IssueSessionToken("alice")
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	if _, err := issuer.VerifySessionToken(token); !errors.Is(err, authkit.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for expired token, got %v", err)
	}
}

func TestSessionTokenValidAtBoundary(t *testing.T) {
	// A token is valid up to its expiry instant and invalid after it.
	issued := time.Now()
	issuer := newTestIssuer()
	issuer.SessionTTL = time.Hour
	issuer.Now = func() time.Time { return issued }

	token, err := issuer.IssueSessionToken("alice")
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	issuer.Now = func() time.Time { return issued.Add(time.Hour - time.Second) }
	if _, err := issuer.VerifySessionToken(token); err != nil {
		t.Errorf("token should still be valid just before expiry: %v", err)
	}

	issuer.Now = func() time.Time { return issued.Add(time.Hour + time.Second) }
	if _, err := issuer.VerifySessionToken(token); !errors.Is(err, authkit.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid just after expiry, got %v", err)
	}
}

func TestReverifyTokenNotASessionToken(t *testing.T) {
	issuer := newTestIssuer()

	token, err := issuer.IssueReverifyToken("alice", 5*time.Minute)
	if err != nil {
		t.Fatalf("IssueReverifyToken: %v", err)
	}

	if _, err := issuer.VerifySessionToken(token); !errors.Is(err, authkit.ErrTokenInvalid) {
		t.Errorf("reverify token must not pass session verification, got %v", err)
	}
}

func TestSessionTokenNotAReverifyToken(t *testing.T) {
	issuer := newTestIssuer()

	token, err := issuer.IssueSessionToken("alice")
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	if issuer.VerifyReverifyToken(token, "alice") {
		t.Error("session token must not pass reverify verification")
	}
}

func TestReverifyTokenRoundTrip(t *testing.T) {
	issuer := newTestIssuer()

	token, err := issuer.IssueReverifyToken("alice", 5*time.Minute)
	if err != nil {
		t.Fatalf("IssueReverifyToken: %v", err)
	}

	if !issuer.VerifyReverifyToken(token, "alice") {
		t.Error("expected reverify token to verify for its own subject")
	}
	if issuer.VerifyReverifyToken(token, "mallory") {
		t.Error("reverify token must not verify for a different subject")
	}
	if issuer.VerifyReverifyToken(token, "") {
		t.Error("reverify token must not verify for an empty subject")
	}
}

func TestExpiredReverifyTokenRejected(t *testing.T) {
	issuer := newTestIssuer()

	token, err := issuer.IssueReverifyToken("alice", -time.Minute)
	if err != nil {
		t.Fatalf("IssueReverifyToken: %v", err)
	}

	if issuer.VerifyReverifyToken(token, "alice") {
		t.Error("expired reverify token must not verify")
	}
}

func TestTamperedAndMalformedTokensRejected(t *testing.T) {
	issuer := newTestIssuer()

	good, err := issuer.IssueSessionToken("alice")
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	otherIssuer := newTestIssuer()
	otherIssuer.SecretKey = "a-completely-different-secret-key"
	wrongKey, err := otherIssuer.IssueSessionToken("alice")
	if err != nil {
		t.Fatalf("IssueSessionToken: %v", err)
	}

	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"wrong key", wrongKey},
		{"tampered payload", tampered},
		{"alg none", "eyJhbGciOiJub25lIn0.eyJzdWIiOiJhbGljZSJ9."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := issuer.VerifySessionToken(tc.token); !errors.Is(err, authkit.ErrTokenInvalid) {
				t.Errorf("expected ErrTokenInvalid, got %v", err)
			}
			if issuer.VerifyReverifyToken(tc.token, "alice") {
				t.Error("invalid token must not pass reverify verification")
			}
		})
	}
}
