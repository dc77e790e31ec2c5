package authkit

import (
	"context"

	"google.golang.org/api/idtoken"
)

// GoogleVerifier validates Google-issued ID tokens against the configured
// OAuth client ID (the expected audience).
type GoogleVerifier struct {
	// Audience is the OAuth2 client ID tokens must be issued for. Required.
	Audience string

	// validate is swapped in tests. Defaults to idtoken.Validate.
	validate func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

// NewGoogleVerifier creates a verifier for the given client ID.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{Audience: clientID, validate: idtoken.Validate}
}

// Verify validates the ID token's signature, expiry and audience and returns
// the claims this core cares about. A failed validation is reported as an
// invalid token without detail.
func (g *GoogleVerifier) Verify(ctx context.Context, tokenString string) (*IdentityClaims, error) {
	validate := g.validate
	if validate == nil {
		validate = idtoken.Validate
	}

	payload, err := validate(ctx, tokenString, g.Audience)
	if err != nil {
		return nil, NewAuthError(ErrCodeInvalidToken, "invalid identity token", "idToken")
	}

	email, _ := payload.Claims["email"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)
	name, _ := payload.Claims["name"].(string)

	return &IdentityClaims{
		Subject:       payload.Subject,
		Email:         email,
		EmailVerified: verified,
		Name:          name,
	}, nil
}
