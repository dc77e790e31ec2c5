// Package stores provides AccountStore implementations.
package stores

import (
	"context"
	"sync"
	"time"

	"github.com/nuzip/authkit"
)

// MemoryAccountStore is an in-memory AccountStore for development and tests.
// The map is the uniqueness constraint: Save under the lock either inserts
// or reports authkit.ErrAccountExists, which is exactly the serialization
// behavior the provisioning protocol expects from a real database.
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*authkit.Account
}

// NewMemoryAccountStore creates an empty store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[string]*authkit.Account)}
}

func (s *MemoryAccountStore) FindByAccountID(ctx context.Context, accountID string) (*authkit.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return nil, authkit.ErrAccountNotFound
	}
	return account.Clone(), nil
}

func (s *MemoryAccountStore) ExistsByAccountID(ctx context.Context, accountID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[accountID]
	return ok, nil
}

func (s *MemoryAccountStore) Save(ctx context.Context, account *authkit.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.AccountID]; ok {
		return authkit.ErrAccountExists
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	s.accounts[account.AccountID] = account.Clone()
	return nil
}

func (s *MemoryAccountStore) UpdateProfile(ctx context.Context, account *authkit.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.accounts[account.AccountID]
	if !ok {
		return authkit.ErrAccountNotFound
	}
	stored.DisplayName = account.DisplayName
	stored.Phone = account.Phone
	stored.BirthDate = account.BirthDate
	stored.Categories = account.Clone().Categories
	stored.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryAccountStore) UpdateCredential(ctx context.Context, accountID, credentialHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.accounts[accountID]
	if !ok {
		return authkit.ErrAccountNotFound
	}
	stored.CredentialHash = credentialHash
	stored.UpdatedAt = time.Now()
	return nil
}
