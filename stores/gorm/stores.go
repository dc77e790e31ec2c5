// Package gorm implements the AccountStore contract on a relational
// database through GORM.
package gorm

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/nuzip/authkit"
)

// AutoMigrate runs database migrations for the account table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&AccountModel{})
}

// AccountStore implements authkit.AccountStore using GORM. The caller owns
// the *gorm.DB and its driver choice.
type AccountStore struct {
	db *gorm.DB
}

// NewAccountStore wraps an open GORM handle.
func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) FindByAccountID(ctx context.Context, accountID string) (*authkit.Account, error) {
	var model AccountModel
	err := s.db.WithContext(ctx).First(&model, "account_id = ?", accountID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authkit.ErrAccountNotFound
		}
		return nil, err
	}
	return model.ToAccount(), nil
}

func (s *AccountStore) ExistsByAccountID(ctx context.Context, accountID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&AccountModel{}).
		Where("account_id = ?", accountID).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save inserts a new row. A duplicate-key error from the database is the
// expected loser's outcome of a concurrent first-login and is reported as
// authkit.ErrAccountExists so callers can re-read the winner.
func (s *AccountStore) Save(ctx context.Context, account *authkit.Account) error {
	err := s.db.WithContext(ctx).Create(AccountToModel(account)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return authkit.ErrAccountExists
		}
		return err
	}
	return nil
}

func (s *AccountStore) UpdateProfile(ctx context.Context, account *authkit.Account) error {
	result := s.db.WithContext(ctx).Model(&AccountModel{}).
		Where("account_id = ?", account.AccountID).
		Updates(map[string]any{
			"display_name": account.DisplayName,
			"phone":        account.Phone,
			"birth_date":   account.BirthDate,
			"categories":   CategorySlice(account.Categories),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return authkit.ErrAccountNotFound
	}
	return nil
}

func (s *AccountStore) UpdateCredential(ctx context.Context, accountID, credentialHash string) error {
	result := s.db.WithContext(ctx).Model(&AccountModel{}).
		Where("account_id = ?", accountID).
		Update("credential_hash", credentialHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return authkit.ErrAccountNotFound
	}
	return nil
}
