package authkit

import "context"

// AccountStore is the contract over the external account record store.
// Implementations must enforce a uniqueness constraint on AccountID: Save of
// a taken ID returns ErrAccountExists, and that constraint is the
// serialization point for concurrent federated first-logins.
//
// All operations honor the caller's context; a store timeout surfaces as an
// error the caller maps to the unavailable code, never as a credential
// failure.
type AccountStore interface {
	// FindByAccountID returns the account or ErrAccountNotFound.
	FindByAccountID(ctx context.Context, accountID string) (*Account, error)

	// ExistsByAccountID reports whether an account with the ID exists.
	ExistsByAccountID(ctx context.Context, accountID string) (bool, error)

	// Save inserts a new account. Returns ErrAccountExists when the
	// AccountID is already taken.
	Save(ctx context.Context, account *Account) error

	// UpdateProfile persists the mutable profile fields (display name,
	// phone, birth date, categories). It never touches the credential hash.
	UpdateProfile(ctx context.Context, account *Account) error

	// UpdateCredential replaces the stored credential hash for the account.
	UpdateCredential(ctx context.Context, accountID, credentialHash string) error
}
