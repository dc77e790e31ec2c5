package authkit

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword produces a one-way hash of a raw secret.
func HashPassword(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword checks a raw secret against the account's stored hash.
// Federated accounts have no usable local password, so the comparison is
// skipped entirely and the answer is false.
func VerifyPassword(account *Account, raw string) bool {
	switch account.Provider {
	case ProviderLocal:
		if account.CredentialHash == "" {
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(account.CredentialHash), []byte(raw)) == nil
	case ProviderFederated:
		return false
	default:
		return false
	}
}

// ChangePassword validates a password change and, on success, replaces the
// account's credential hash in place. Federated accounts are refused
// outright: allowing them to set a local password would turn a provisioned
// placeholder credential into a login path. The operation is all-or-nothing;
// on any error the account is untouched.
func ChangePassword(account *Account, newPassword, confirmPassword string) error {
	switch account.Provider {
	case ProviderFederated:
		return NewAuthError(ErrCodeForbidden,
			"federated accounts cannot change a local password", "newPassword")
	case ProviderLocal:
		// validated below
	default:
		return NewAuthError(ErrCodeForbidden,
			fmt.Sprintf("unknown provider %q", account.Provider), "")
	}

	if newPassword == "" || confirmPassword == "" {
		return NewAuthError(ErrCodeInvalidArgument,
			"new password and confirmation are both required", "newPassword")
	}
	if newPassword != confirmPassword {
		return NewAuthError(ErrCodeInvalidArgument,
			"new password and confirmation do not match", "confirmNewPassword")
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	account.CredentialHash = hash
	return nil
}
