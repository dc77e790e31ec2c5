// Package gae implements the AccountStore contract on Google Cloud
// Datastore. The named key on AccountID gives the same uniqueness guarantee
// the relational store enforces with its primary key.
package gae

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/datastore"

	"github.com/nuzip/authkit"
)

const accountKind = "Account"

type accountEntity struct {
	CredentialHash string    `datastore:"credentialHash,noindex"`
	DisplayName    string    `datastore:"displayName,noindex"`
	Phone          string    `datastore:"phone,noindex"`
	BirthDate      string    `datastore:"birthDate,noindex"`
	Provider       string    `datastore:"provider"`
	Categories     []string  `datastore:"categories,noindex"`
	CreatedAt      time.Time `datastore:"createdAt,noindex"`
	UpdatedAt      time.Time `datastore:"updatedAt,noindex"`
}

func (e *accountEntity) toAccount(accountID string) *authkit.Account {
	categories := make([]authkit.Category, 0, len(e.Categories))
	for _, c := range e.Categories {
		categories = append(categories, authkit.Category(c))
	}
	return &authkit.Account{
		AccountID:      accountID,
		CredentialHash: e.CredentialHash,
		DisplayName:    e.DisplayName,
		Phone:          e.Phone,
		BirthDate:      e.BirthDate,
		Provider:       authkit.AuthProvider(e.Provider),
		Categories:     categories,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func toEntity(a *authkit.Account) *accountEntity {
	categories := make([]string, 0, len(a.Categories))
	for _, c := range a.Categories {
		categories = append(categories, string(c))
	}
	return &accountEntity{
		CredentialHash: a.CredentialHash,
		DisplayName:    a.DisplayName,
		Phone:          a.Phone,
		BirthDate:      a.BirthDate,
		Provider:       string(a.Provider),
		Categories:     categories,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// AccountStore implements authkit.AccountStore on Cloud Datastore.
type AccountStore struct {
	client *datastore.Client
}

// NewAccountStore wraps an open datastore client.
func NewAccountStore(client *datastore.Client) *AccountStore {
	return &AccountStore{client: client}
}

func (s *AccountStore) key(accountID string) *datastore.Key {
	return datastore.NameKey(accountKind, accountID, nil)
}

func (s *AccountStore) FindByAccountID(ctx context.Context, accountID string) (*authkit.Account, error) {
	var entity accountEntity
	if err := s.client.Get(ctx, s.key(accountID), &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, authkit.ErrAccountNotFound
		}
		return nil, err
	}
	return entity.toAccount(accountID), nil
}

func (s *AccountStore) ExistsByAccountID(ctx context.Context, accountID string) (bool, error) {
	_, err := s.FindByAccountID(ctx, accountID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, authkit.ErrAccountNotFound) {
		return false, nil
	}
	return false, err
}

// Save inserts the account in a transaction: a concurrent insert of the same
// key makes the get-then-put observe the winner and return ErrAccountExists.
func (s *AccountStore) Save(ctx context.Context, account *authkit.Account) error {
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing accountEntity
		err := tx.Get(s.key(account.AccountID), &existing)
		if err == nil {
			return authkit.ErrAccountExists
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		_, err = tx.Put(s.key(account.AccountID), toEntity(account))
		return err
	})
	return err
}

func (s *AccountStore) UpdateProfile(ctx context.Context, account *authkit.Account) error {
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity accountEntity
		if err := tx.Get(s.key(account.AccountID), &entity); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return authkit.ErrAccountNotFound
			}
			return err
		}
		updated := toEntity(account)
		updated.CredentialHash = entity.CredentialHash
		updated.Provider = entity.Provider
		updated.CreatedAt = entity.CreatedAt
		updated.UpdatedAt = time.Now()
		_, err := tx.Put(s.key(account.AccountID), updated)
		return err
	})
	return err
}

func (s *AccountStore) UpdateCredential(ctx context.Context, accountID, credentialHash string) error {
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var entity accountEntity
		if err := tx.Get(s.key(accountID), &entity); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return authkit.ErrAccountNotFound
			}
			return err
		}
		entity.CredentialHash = credentialHash
		entity.UpdatedAt = time.Now()
		_, err := tx.Put(s.key(accountID), &entity)
		return err
	})
	return err
}
