package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/nuzip/authkit"
)

// CategorySlice stores the category set as a JSON column.
type CategorySlice []authkit.Category

func (s CategorySlice) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal([]authkit.Category{})
	}
	return json.Marshal(s)
}

func (s *CategorySlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// AccountModel is the GORM model for accounts. The primary key on AccountID
// is the uniqueness constraint the provisioning protocol serializes on.
type AccountModel struct {
	AccountID      string               `gorm:"primaryKey;size:50"`
	CredentialHash string               `gorm:"size:128;not null"`
	DisplayName    string               `gorm:"size:50;not null"`
	Phone          string               `gorm:"size:11"`
	BirthDate      string               `gorm:"size:10"`
	Provider       authkit.AuthProvider `gorm:"size:16;not null"`
	Categories     CategorySlice        `gorm:"type:jsonb"`
	CreatedAt      time.Time            `gorm:"autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"autoUpdateTime"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

func (m *AccountModel) ToAccount() *authkit.Account {
	categories := []authkit.Category(m.Categories)
	if categories == nil {
		categories = []authkit.Category{}
	}
	return &authkit.Account{
		AccountID:      m.AccountID,
		CredentialHash: m.CredentialHash,
		DisplayName:    m.DisplayName,
		Phone:          m.Phone,
		BirthDate:      m.BirthDate,
		Provider:       m.Provider,
		Categories:     categories,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func AccountToModel(a *authkit.Account) *AccountModel {
	return &AccountModel{
		AccountID:      a.AccountID,
		CredentialHash: a.CredentialHash,
		DisplayName:    a.DisplayName,
		Phone:          a.Phone,
		BirthDate:      a.BirthDate,
		Provider:       a.Provider,
		Categories:     CategorySlice(a.Categories),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}
