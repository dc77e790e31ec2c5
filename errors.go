package authkit

import (
	"errors"
	"fmt"
)

// Error codes returned to API clients. Every expected failure carries one of
// these so clients can branch on the code rather than parse messages.
const (
	ErrCodeInvalidToken      = "invalid_token"      // malformed, unsigned, wrong-audience or expired token
	ErrCodeInvalidCredential = "invalid_credential" // unknown account or wrong password (indistinguishable)
	ErrCodeForbidden         = "forbidden"          // operation disallowed by account state
	ErrCodeInvalidArgument   = "invalid_argument"   // input violating a domain invariant
	ErrCodeUnverified        = "unverified"         // federated identity without a verified email
	ErrCodeUnavailable       = "unavailable"        // downstream store or verifier failure; retryable
)

// Sentinel errors for the token and store layers. Callers compare with
// errors.Is; the token service never reports which sub-check failed.
var (
	ErrTokenInvalid    = errors.New("invalid token")
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")
)

// AuthError is an expected, client-visible failure. Code is machine-readable,
// Message is safe to show to the end user, Field optionally names the
// offending input field.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *AuthError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAuthError creates a new AuthError.
func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

// CodeOf extracts the error code from err, walking wrapped errors. Sentinels
// map onto their taxonomy code; anything unrecognized is reported as
// unavailable so callers treat it as retryable rather than a client fault.
func CodeOf(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	switch {
	case errors.Is(err, ErrTokenInvalid):
		return ErrCodeInvalidToken
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrAccountExists):
		return ErrCodeInvalidArgument
	}
	return ErrCodeUnavailable
}
