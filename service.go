package authkit

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// RegisterRequest carries the self-registration input.
type RegisterRequest struct {
	AccountID   string   `json:"accountId"`
	Password    string   `json:"password"`
	DisplayName string   `json:"displayName"`
	Categories  []string `json:"categories,omitempty"`
	BirthDate   string   `json:"birthDate,omitempty"`
	Phone       string   `json:"phone,omitempty"`
}

// UpdateMyInfoRequest is a partial profile update. Nil fields are left
// untouched. NewPassword/ConfirmNewPassword request a credential change,
// which is legal for LOCAL accounts only.
type UpdateMyInfoRequest struct {
	DisplayName        *string   `json:"displayName,omitempty"`
	Phone              *string   `json:"phone,omitempty"`
	BirthDate          *string   `json:"birthDate,omitempty"`
	Categories         *[]string `json:"categories,omitempty"`
	NewPassword        string    `json:"newPassword,omitempty"`
	ConfirmNewPassword string    `json:"confirmNewPassword,omitempty"`
}

func (r *UpdateMyInfoRequest) wantsPasswordChange() bool {
	return r.NewPassword != "" || r.ConfirmNewPassword != ""
}

// ReverifyGrant is the result of a successful step-up password check.
type ReverifyGrant struct {
	Token     string
	ExpiresAt time.Time
}

// AuthService implements the account operations over an AccountStore, a
// TokenIssuer and an IdentityVerifier.
type AuthService struct {
	Accounts AccountStore
	Tokens   *TokenIssuer
	Verifier IdentityVerifier

	// ReverifyTTL defaults to TokenExpiryReverify.
	ReverifyTTL time.Duration
}

func (s *AuthService) reverifyTTL() time.Duration {
	if s.ReverifyTTL != 0 {
		return s.ReverifyTTL
	}
	return TokenExpiryReverify
}

// Register creates a LOCAL account and issues its first session token.
// Categories are optional at this stage (at most 3); the dedicated
// onboarding step enforces the exactly-3 rule.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*Account, string, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, "", NewAuthError(ErrCodeInvalidArgument, "account ID is required", "accountId")
	}
	if req.Password == "" {
		return nil, "", NewAuthError(ErrCodeInvalidArgument, "password is required", "password")
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		return nil, "", NewAuthError(ErrCodeInvalidArgument, "display name is required", "displayName")
	}
	if err := ValidatePhone(req.Phone); err != nil {
		return nil, "", err
	}
	if err := ValidateBirthDate(req.BirthDate); err != nil {
		return nil, "", err
	}

	categories := []Category{}
	if len(req.Categories) > 0 {
		if len(req.Categories) > CategorySetSize {
			return nil, "", NewAuthError(ErrCodeInvalidArgument, "at most 3 categories may be selected", "categories")
		}
		for _, name := range req.Categories {
			c, err := ParseCategory(name)
			if err != nil {
				return nil, "", err
			}
			if slices.Contains(categories, c) {
				return nil, "", NewAuthError(ErrCodeInvalidArgument, "categories must be distinct", "categories")
			}
			categories = append(categories, c)
		}
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}

	account := &Account{
		AccountID:      accountID,
		CredentialHash: hash,
		DisplayName:    req.DisplayName,
		Phone:          req.Phone,
		BirthDate:      req.BirthDate,
		Provider:       ProviderLocal,
		Categories:     categories,
	}

	if err := s.Accounts.Save(ctx, account); err != nil {
		if errors.Is(err, ErrAccountExists) {
			return nil, "", NewAuthError(ErrCodeInvalidArgument, "this account ID is already registered", "accountId")
		}
		return nil, "", fmt.Errorf("saving new account: %w", err)
	}

	token, err := s.Tokens.IssueSessionToken(account.AccountID)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// Login authenticates a LOCAL credential pair and issues a session token.
// Unknown account and wrong password produce the identical error so clients
// cannot enumerate registered IDs.
func (s *AuthService) Login(ctx context.Context, accountID, password string) (*Account, string, error) {
	badCreds := NewAuthError(ErrCodeInvalidCredential,
		"account ID or password is incorrect", "")

	account, err := s.Accounts.FindByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, "", badCreds
		}
		return nil, "", fmt.Errorf("loading account for login: %w", err)
	}

	if !VerifyPassword(account, password) {
		return nil, "", badCreds
	}

	token, err := s.Tokens.IssueSessionToken(account.AccountID)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// CheckAccountIDAvailable reports whether an account ID is free to register.
func (s *AuthService) CheckAccountIDAvailable(ctx context.Context, accountID string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return NewAuthError(ErrCodeInvalidArgument, "account ID is required", "accountId")
	}
	exists, err := s.Accounts.ExistsByAccountID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("checking account ID availability: %w", err)
	}
	if exists {
		return NewAuthError(ErrCodeInvalidArgument, "this account ID is already registered", "accountId")
	}
	return nil
}

// FederatedLogin verifies a provider-issued identity token, provisions the
// account on first login, and issues a session token.
func (s *AuthService) FederatedLogin(ctx context.Context, idToken string) (*Account, string, error) {
	claims, err := s.Verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, "", err
	}

	provisioner := &Provisioner{Store: s.Accounts}
	account, err := provisioner.EnsureAccount(ctx, claims)
	if err != nil {
		return nil, "", err
	}

	token, err := s.Tokens.IssueSessionToken(account.AccountID)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// StartReverify checks the account's current password and, on success,
// issues a short-lived reverify token for the profile-edit flow. Federated
// accounts are sent back to their provider instead.
func (s *AuthService) StartReverify(ctx context.Context, accountID, password string) (*ReverifyGrant, error) {
	account, err := s.Accounts.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("loading account for reverify: %w", err)
	}

	if account.Provider != ProviderLocal {
		return nil, NewAuthError(ErrCodeForbidden,
			fmt.Sprintf("this account was registered through %s; re-authenticate with the provider instead", account.Provider), "")
	}

	if !VerifyPassword(account, password) {
		return nil, NewAuthError(ErrCodeInvalidCredential, "password is incorrect", "password")
	}

	ttl := s.reverifyTTL()
	token, err := s.Tokens.IssueReverifyToken(accountID, ttl)
	if err != nil {
		return nil, err
	}
	return &ReverifyGrant{Token: token, ExpiresAt: s.Tokens.now().Add(ttl)}, nil
}

// UpdateMyInfo applies a partial profile update, optionally bundled with a
// password change. Every validation runs against a scratch copy before
// anything is persisted, so a rejected update leaves the account untouched
// in full, credential included.
func (s *AuthService) UpdateMyInfo(ctx context.Context, accountID string, req *UpdateMyInfoRequest) error {
	account, err := s.Accounts.FindByAccountID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("loading account for update: %w", err)
	}

	updated := account.Clone()

	if req.DisplayName != nil {
		if strings.TrimSpace(*req.DisplayName) == "" {
			return NewAuthError(ErrCodeInvalidArgument, "display name must not be empty", "displayName")
		}
		updated.DisplayName = *req.DisplayName
	}
	if req.Phone != nil {
		if err := ValidatePhone(*req.Phone); err != nil {
			return err
		}
		updated.Phone = *req.Phone
	}
	if req.BirthDate != nil {
		if err := ValidateBirthDate(*req.BirthDate); err != nil {
			return err
		}
		updated.BirthDate = *req.BirthDate
	}
	if req.Categories != nil {
		categories, err := ParseCategorySet(*req.Categories)
		if err != nil {
			return err
		}
		updated.Categories = categories
	}

	credentialChanged := false
	if req.wantsPasswordChange() {
		if err := ChangePassword(updated, req.NewPassword, req.ConfirmNewPassword); err != nil {
			return err
		}
		credentialChanged = true
	}

	// The credential write lands first: a failure between the two store
	// calls must never leave an updated profile paired with a password the
	// caller asked to replace.
	if credentialChanged {
		if err := s.Accounts.UpdateCredential(ctx, accountID, updated.CredentialHash); err != nil {
			return fmt.Errorf("updating credential: %w", err)
		}
	}
	if err := s.Accounts.UpdateProfile(ctx, updated); err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	return nil
}

// UpdateCategories stores the onboarding category selection: exactly 3
// distinct categories, replacing whatever was stored before.
func (s *AuthService) UpdateCategories(ctx context.Context, accountID string, names []string) error {
	categories, err := ParseCategorySet(names)
	if err != nil {
		return err
	}

	account, err := s.Accounts.FindByAccountID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("loading account for category update: %w", err)
	}

	account.Categories = categories
	if err := s.Accounts.UpdateProfile(ctx, account); err != nil {
		return fmt.Errorf("updating categories: %w", err)
	}
	return nil
}

// GetCategories returns the stored category set.
func (s *AuthService) GetCategories(ctx context.Context, accountID string) ([]Category, error) {
	account, err := s.Accounts.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("loading account categories: %w", err)
	}
	return account.Categories, nil
}
