package authkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// IdentityClaims is the verified claim set asserted by an external identity
// provider for one login.
type IdentityClaims struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// IdentityVerifier validates a provider-issued identity token against an
// expected audience and returns the verified claims, or fails.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*IdentityClaims, error)
}

// Provisioner guarantees exactly one account per verified federated email.
type Provisioner struct {
	Store AccountStore
}

// EnsureAccount finds or creates the account for a verified federated
// identity. Repeated logins return the existing account unchanged. Two
// concurrent first-logins race on the store's uniqueness constraint: the
// loser's Save comes back ErrAccountExists and is resolved by re-reading the
// winner's row, so neither caller observes a duplicate-key fault.
func (p *Provisioner) EnsureAccount(ctx context.Context, claims *IdentityClaims) (*Account, error) {
	if claims == nil || claims.Email == "" || !claims.EmailVerified {
		return nil, NewAuthError(ErrCodeUnverified,
			"federated identity does not carry a verified email", "email")
	}

	account, err := p.Store.FindByAccountID(ctx, claims.Email)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, fmt.Errorf("looking up federated account: %w", err)
	}

	account, err = newFederatedAccount(claims)
	if err != nil {
		return nil, err
	}

	if err := p.Store.Save(ctx, account); err != nil {
		if errors.Is(err, ErrAccountExists) {
			// Lost the first-login race; the winner's row is authoritative.
			slog.Warn("concurrent federated signup, using existing account", "accountId", claims.Email)
			return p.Store.FindByAccountID(ctx, claims.Email)
		}
		return nil, fmt.Errorf("creating federated account: %w", err)
	}

	slog.Info("provisioned federated account", "accountId", account.AccountID)
	return account, nil
}

// newFederatedAccount builds a fresh FEDERATED account. The credential hash
// is derived from a random secret that no login flow can ever reproduce; it
// exists only because the store schema requires a hash.
func newFederatedAccount(claims *IdentityClaims) (*Account, error) {
	placeholder, err := HashPassword("GOOGLE-" + uuid.NewString())
	if err != nil {
		return nil, err
	}

	displayName := claims.Name
	if displayName == "" {
		displayName = claims.Email
	}

	return &Account{
		AccountID:      claims.Email,
		CredentialHash: placeholder,
		DisplayName:    displayName,
		Provider:       ProviderFederated,
		Categories:     []Category{},
	}, nil
}
