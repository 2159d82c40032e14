package ledgertest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/periods"
)

// Codes is the well-known account map of the seeded chart.
func Codes() accounts.WellKnownCodes {
	return accounts.WellKnownCodes{
		accounts.KeyCash:         "1001",
		accounts.KeyReceivables:  "11030",
		accounts.KeyPayables:     "21010",
		accounts.KeyInventory:    "1301",
		accounts.KeySalesRevenue: "4001",
		accounts.KeyCOGS:         "5001",
	}
}

// Chart is the seeded chart of accounts and its single open period.
type Chart struct {
	Types    map[accounts.Category]accounts.AccountType
	Accounts map[string]accounts.Account
	Period   periods.Period
}

// Account returns the seeded account with code.
func (c Chart) Account(code string) accounts.Account {
	return c.Accounts[code]
}

// SeedChart writes the standard chart of accounts and an open period
// covering 2024.
func SeedChart(t testing.TB, s *Store) Chart {
	t.Helper()
	ctx := context.Background()
	out := Chart{
		Types:    make(map[accounts.Category]accounts.AccountType),
		Accounts: make(map[string]accounts.Account),
	}
	repo := s.Accounts()
	for i, category := range []accounts.Category{
		accounts.CategoryAsset, accounts.CategoryLiability, accounts.CategoryEquity,
		accounts.CategoryRevenue, accounts.CategoryExpense,
	} {
		typ, err := repo.InsertType(ctx, accounts.AccountType{
			Code:     string(rune('1' + i)),
			Name:     string(category),
			Category: category,
			Nature:   category.DefaultNature(),
			Level:    1,
			IsActive: true,
		})
		require.NoError(t, err)
		out.Types[category] = typ
	}
	for _, sa := range accounts.DefaultChart {
		acc := accounts.Account{
			Code:      sa.Code,
			Name:      sa.Name,
			TypeID:    out.Types[sa.Category].ID,
			IsLeaf:    !sa.Control,
			IsControl: sa.Control,
			IsCash:    sa.Cash,
			IsBank:    sa.Bank,
			IsActive:  true,
		}
		if sa.Parent != "" {
			parentID := out.Accounts[sa.Parent].ID
			acc.ParentID = &parentID
		}
		created, err := repo.InsertAccount(ctx, acc)
		require.NoError(t, err)
		out.Accounts[sa.Code] = created
	}
	period, err := s.Periods().Insert(ctx, periods.Period{
		Name:      "FY2024",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		Status:    periods.StatusOpen,
	})
	require.NoError(t, err)
	out.Period = period
	return out
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
