package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting/shared"
)

// ChartAccount describes one account of a starter chart. Parent refers to an
// earlier entry by code.
type ChartAccount struct {
	Code     string
	Name     string
	Category Category
	Parent   string
	Control  bool
	Cash     bool
	Bank     bool
}

// DefaultChart holds the default well-known accounts and their control parents.
var DefaultChart = []ChartAccount{
	{Code: "1", Name: "الأصول", Category: CategoryAsset, Control: true},
	{Code: "1001", Name: "الصندوق", Category: CategoryAsset, Parent: "1", Cash: true},
	{Code: "1002", Name: "البنك", Category: CategoryAsset, Parent: "1", Bank: true},
	{Code: "11030", Name: "العملاء", Category: CategoryAsset, Parent: "1", Control: true},
	{Code: "1301", Name: "المخزون", Category: CategoryAsset, Parent: "1"},
	{Code: "1401", Name: "مصروفات مقدمة", Category: CategoryAsset, Parent: "1"},
	{Code: "2", Name: "الخصوم", Category: CategoryLiability, Control: true},
	{Code: "21010", Name: "الموردون", Category: CategoryLiability, Parent: "2", Control: true},
	{Code: "3001", Name: "رأس المال", Category: CategoryEquity},
	{Code: "4001", Name: "المبيعات", Category: CategoryRevenue},
	{Code: "5001", Name: "تكلفة البضاعة المباعة", Category: CategoryExpense},
	{Code: "5101", Name: "مصروفات عمومية", Category: CategoryExpense},
}

// SeedChart creates one top level type per category and every account of
// chart whose code is not registered yet. Existing accounts are left alone.
// It returns the number of accounts created.
func (s *Service) SeedChart(ctx context.Context, chart []ChartAccount) (int, error) {
	created := 0
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		types, err := s.rootTypes(ctx)
		if err != nil {
			return err
		}
		for _, ca := range chart {
			if _, err := s.repo.GetAccountByCode(ctx, ca.Code); err == nil {
				continue
			} else if !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			typ, ok := types[ca.Category]
			if !ok {
				return fmt.Errorf("%w: %q", shared.ErrInvalidCategory, ca.Category)
			}
			in := CreateAccountInput{
				Code:      ca.Code,
				Name:      ca.Name,
				TypeID:    typ.ID,
				IsCash:    ca.Cash,
				IsBank:    ca.Bank,
				IsControl: ca.Control,
			}
			if ca.Parent != "" {
				parent, err := s.repo.GetAccountByCode(ctx, ca.Parent)
				if err != nil {
					return fmt.Errorf("seed %s: parent %s: %w", ca.Code, ca.Parent, err)
				}
				in.ParentID = &parent.ID
			}
			if _, err := s.CreateAccount(ctx, in); err != nil {
				return fmt.Errorf("seed %s: %w", ca.Code, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

var rootTypeCodes = map[Category]string{
	CategoryAsset:     "1",
	CategoryLiability: "2",
	CategoryEquity:    "3",
	CategoryRevenue:   "4",
	CategoryExpense:   "5",
}

func (s *Service) rootTypes(ctx context.Context) (map[Category]AccountType, error) {
	existing, err := s.repo.ListTypes(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[Category]AccountType, len(rootTypeCodes))
	for _, t := range existing {
		if _, ok := out[t.Category]; !ok && t.ParentID == nil {
			out[t.Category] = t
		}
	}
	for _, category := range []Category{CategoryAsset, CategoryLiability, CategoryEquity, CategoryRevenue, CategoryExpense} {
		if _, ok := out[category]; ok {
			continue
		}
		typ, err := s.CreateType(ctx, CreateTypeInput{Code: rootTypeCodes[category], Name: string(category), Category: category})
		if err != nil {
			return nil, err
		}
		out[category] = typ
	}
	return out, nil
}
