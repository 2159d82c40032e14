package accounts

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category enumerates CoA categories.
type Category string

const (
	CategoryAsset     Category = "asset"
	CategoryLiability Category = "liability"
	CategoryEquity    Category = "equity"
	CategoryRevenue   Category = "revenue"
	CategoryExpense   Category = "expense"
)

// Valid reports whether c is one of the five account categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryAsset, CategoryLiability, CategoryEquity, CategoryRevenue, CategoryExpense:
		return true
	}
	return false
}

// DefaultNature returns the normal balance side of the category.
func (c Category) DefaultNature() Nature {
	switch c {
	case CategoryAsset, CategoryExpense:
		return NatureDebit
	default:
		return NatureCredit
	}
}

// Nature is the side on which an account's balance grows.
type Nature string

const (
	NatureDebit  Nature = "debit"
	NatureCredit Nature = "credit"
)

// Valid reports whether n is debit or credit.
func (n Nature) Valid() bool {
	return n == NatureDebit || n == NatureCredit
}

// Signed folds debit and credit movements into a balance of this nature.
func (n Nature) Signed(debit, credit decimal.Decimal) decimal.Decimal {
	if n == NatureCredit {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}

// AccountType groups accounts by category and nature.
type AccountType struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Category  Category  `json:"category"`
	Nature    Nature    `json:"nature"`
	ParentID  *int64    `json:"parent_id"`
	Level     int       `json:"level"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Account models a chart of accounts node.
type Account struct {
	ID                 int64           `json:"id"`
	Code               string          `json:"code"`
	Name               string          `json:"name"`
	TypeID             int64           `json:"type_id"`
	ParentID           *int64          `json:"parent_id"`
	IsLeaf             bool            `json:"is_leaf"`
	IsCash             bool            `json:"is_cash"`
	IsBank             bool            `json:"is_bank"`
	IsControl          bool            `json:"is_control"`
	IsActive           bool            `json:"is_active"`
	OpeningBalance     decimal.Decimal `json:"opening_balance"`
	OpeningBalanceDate *time.Time      `json:"opening_balance_date"`
	Description        string          `json:"description"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	// Category and Nature are read from the account type.
	Category Category `json:"category"`
	Nature   Nature   `json:"nature"`
}

// OpeningApplies reports whether the opening balance counts at asOf.
func (a Account) OpeningApplies(asOf time.Time) bool {
	if a.OpeningBalance.IsZero() {
		return false
	}
	return a.OpeningBalanceDate == nil || !asOf.Before(*a.OpeningBalanceDate)
}

// CreateTypeInput carries fields for a new account type.
type CreateTypeInput struct {
	Code     string
	Name     string
	Category Category
	Nature   Nature
	ParentID *int64
}

// CreateAccountInput carries fields for a new account. IsLeaf defaults to
// the inverse of IsControl when nil.
type CreateAccountInput struct {
	Code               string
	Name               string
	TypeID             int64
	ParentID           *int64
	IsCash             bool
	IsBank             bool
	IsControl          bool
	IsLeaf             *bool
	OpeningBalance     decimal.Decimal
	OpeningBalanceDate *time.Time
	Description        string
}

// ListFilter narrows account listings.
type ListFilter struct {
	ActiveOnly bool
	LeafOnly   bool
	TypeID     int64
	ParentID   *int64
}
