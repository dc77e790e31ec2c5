package authkit

import (
	"regexp"
	"slices"
	"strings"
	"time"
)

// AuthProvider is the origin of an account. It is a closed set: every
// credential decision must state its behavior for both members.
type AuthProvider string

const (
	// ProviderLocal accounts self-registered with a password.
	ProviderLocal AuthProvider = "LOCAL"

	// ProviderFederated accounts were provisioned from an external identity
	// provider and never hold a usable local password.
	ProviderFederated AuthProvider = "FEDERATED"
)

// Category is a news interest category an account can subscribe to.
type Category string

const (
	CategoryPolitics      Category = "POLITICS"
	CategoryEconomy       Category = "ECONOMY"
	CategorySociety       Category = "SOCIETY"
	CategoryLifeCulture   Category = "LIFE_CULTURE"
	CategoryITScience     Category = "IT_SCIENCE"
	CategoryWorld         Category = "WORLD"
	CategoryEntertainment Category = "ENTERTAINMENT"
	CategorySports        Category = "SPORTS"
)

// AllCategories returns the full category vocabulary.
func AllCategories() []Category {
	return []Category{
		CategoryPolitics, CategoryEconomy, CategorySociety, CategoryLifeCulture,
		CategoryITScience, CategoryWorld, CategoryEntertainment, CategorySports,
	}
}

// CategorySetSize is the number of categories an account must pick once it
// completes onboarding.
const CategorySetSize = 3

// Account is a registered identity. AccountID is immutable and unique: a
// chosen handle for LOCAL accounts, a verified email address for FEDERATED
// ones. CredentialHash is always set; federated accounts carry a hash of an
// unusable random placeholder.
type Account struct {
	AccountID      string       `json:"accountId"`
	CredentialHash string       `json:"-"`
	DisplayName    string       `json:"displayName"`
	Phone          string       `json:"phone,omitempty"`
	BirthDate      string       `json:"birthDate,omitempty"` // YYYY-MM-DD
	Provider       AuthProvider `json:"provider"`
	Categories     []Category   `json:"categories"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Clone returns a deep copy. Stores hand out clones so no caller shares
// mutable state with another request.
func (a *Account) Clone() *Account {
	out := *a
	out.Categories = slices.Clone(a.Categories)
	return &out
}

// CategoriesSelected reports whether onboarding category selection is done.
func (a *Account) CategoriesSelected() bool {
	return len(a.Categories) == CategorySetSize
}

// CategoryNames returns the category set as plain strings for responses.
func (a *Account) CategoryNames() []string {
	names := make([]string, 0, len(a.Categories))
	for _, c := range a.Categories {
		names = append(names, string(c))
	}
	return names
}

var phoneRegex = regexp.MustCompile(`^\d{11}$`)

// ValidatePhone enforces the phone rule: empty, or exactly 11 digits.
func ValidatePhone(phone string) error {
	if phone == "" || phoneRegex.MatchString(phone) {
		return nil
	}
	return NewAuthError(ErrCodeInvalidArgument, "phone must be exactly 11 digits", "phone")
}

// ValidateBirthDate accepts an empty value or a YYYY-MM-DD calendar date.
func ValidateBirthDate(birthDate string) error {
	if birthDate == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", birthDate); err != nil {
		return NewAuthError(ErrCodeInvalidArgument, "birth date must be formatted YYYY-MM-DD", "birthDate")
	}
	return nil
}

// ParseCategory normalizes and validates a single category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if slices.Contains(AllCategories(), c) {
		return c, nil
	}
	return "", NewAuthError(ErrCodeInvalidArgument, "unknown category: "+s, "categories")
}

// ParseCategorySet validates a full onboarding selection: exactly
// CategorySetSize distinct known categories. Duplicates after normalization
// are rejected.
func ParseCategorySet(names []string) ([]Category, error) {
	if len(names) != CategorySetSize {
		return nil, NewAuthError(ErrCodeInvalidArgument, "exactly 3 categories must be selected", "categories")
	}
	out := make([]Category, 0, CategorySetSize)
	for _, name := range names {
		c, err := ParseCategory(name)
		if err != nil {
			return nil, err
		}
		if slices.Contains(out, c) {
			return nil, NewAuthError(ErrCodeInvalidArgument, "categories must be distinct", "categories")
		}
		out = append(out, c)
	}
	return out, nil
}
