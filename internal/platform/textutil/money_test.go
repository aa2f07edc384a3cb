package textutil

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMoneyFormatterAmount(t *testing.T) {
	f := NewMoneyFormatter("ngn", "en-NG")

	require.Equal(t, "NGN", f.Currency())
	require.Equal(t, "12500.50", f.Amount(decimal.RequireFromString("12500.5")))
	require.Equal(t, "0.01", f.Amount(decimal.RequireFromString("0.005")))
	require.Equal(t, "0.00", f.Amount(decimal.Zero))
}

func TestMoneyFormatterDisplay(t *testing.T) {
	require.Equal(t, "NGN 1,234.50", NewMoneyFormatter("NGN", "en").Display(decimal.RequireFromString("1234.5")))
	require.Equal(t, "EUR 1.234,50", NewMoneyFormatter("EUR", "de").Display(decimal.RequireFromString("1234.5")))
	require.Equal(t, "1,000.00", NewMoneyFormatter("", "not a locale!").Display(decimal.NewFromInt(1000)))
}
