package shared

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	_ "github.com/odyssey-erp/odyssey-ledger/testing"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBalancedTolerance(t *testing.T) {
	require.True(t, Balanced(d("100.00"), d("100.00")))
	require.True(t, Balanced(d("100.004"), d("100.00")))
	require.True(t, Balanced(d("100.005"), d("100.00")))
	require.False(t, Balanced(d("100.006"), d("100.00")))
	require.False(t, Balanced(d("99"), d("100")))
}

func TestSide(t *testing.T) {
	cases := []struct {
		name          string
		debit, credit string
		ok            bool
	}{
		{"debit only", "10", "0", true},
		{"credit only", "0", "10", true},
		{"both zero", "0", "0", false},
		{"both positive", "5", "5", false},
		{"negative debit", "-5", "0", false},
		{"negative credit", "0", "-1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.ok, Side(d(tc.debit), d(tc.credit)))
		})
	}
}

func TestMoneyRounding(t *testing.T) {
	require.Equal(t, "10.13", Money(d("10.125")).StringFixed(2))
	require.Equal(t, "3.3333", Work(d("3.33333")).String())
}

func TestConflictErrorUnwraps(t *testing.T) {
	err := error(&ConflictError{Op: "unpost SALE-1", Blockers: []string{"PAY-1", "PAY-2"}})
	require.True(t, errors.Is(err, ErrConflict))
	require.Contains(t, err.Error(), "PAY-1, PAY-2")

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	require.Len(t, conflict.Blockers, 2)
}

func TestConfigurationErrorUnwraps(t *testing.T) {
	err := error(&ConfigurationError{Key: "cash", Code: "1001", Reason: "account not found"})
	require.ErrorIs(t, err, ErrConfigurationMissing)
	require.Equal(t, `accounting: well-known account "cash" (code 1001): account not found`, err.Error())
}
