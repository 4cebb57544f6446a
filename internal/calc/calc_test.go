package calc

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"quotewatch/internal/quote"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestChange_RoundingLaw(t *testing.T) {
	t.Parallel()

	require.Equal(t, "0.123", Change(d("10.1234"), d("10.0000")))
	require.Equal(t, "1.23", ChangePercent(d("10.1234"), d("10.0000")))
}

func TestChange_HalfUpAwayFromZero(t *testing.T) {
	t.Parallel()

	require.Equal(t, "0.001", Change(d("10.0005"), d("10")))
	require.Equal(t, "-0.001", Change(d("9.9995"), d("10")))
	require.Equal(t, "-2.000", Change(d("8"), d("10")))
}

func TestChangePercent_ZeroPreviousClose(t *testing.T) {
	t.Parallel()

	require.Equal(t, "0", ChangePercent(d("12.5"), decimal.Zero))
}

func TestChangePercent_IntermediatePrecision(t *testing.T) {
	t.Parallel()

	// 1/3 = 0.3333 at 4 places -> 33.33
	require.Equal(t, "33.33", ChangePercent(d("4"), d("3")))
	// -1/3 -> -0.3333 -> -33.33
	require.Equal(t, "-33.33", ChangePercent(d("2"), d("3")))
}

func TestIncome(t *testing.T) {
	t.Parallel()

	pct, amt := Income(d("150.00"), "100.00", "10")
	require.Equal(t, "50.000", pct)
	require.Equal(t, "500.00", amt)

	pct, amt = Income(d("90"), "100", "3")
	require.Equal(t, "-10.000", pct)
	require.Equal(t, "-30.00", amt)
}

func TestIncome_Omissions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		cost, size string
		wantPct    string
		wantAmount string
	}{
		{name: "no cost basis", cost: "", size: "10"},
		{name: "placeholder cost", cost: "--", size: "10"},
		{name: "malformed cost", cost: "abc", size: "10"},
		{name: "zero cost", cost: "0", size: "10"},
		{name: "negative cost", cost: "-1", size: "10"},
		{name: "no position", cost: "100", size: "", wantPct: "50.000"},
		{name: "placeholder position", cost: "100", size: "--", wantPct: "50.000"},
		{name: "malformed position", cost: "100", size: "ten", wantPct: "50.000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pct, amt := Income(d("150"), tt.cost, tt.size)
			require.Equal(t, tt.wantPct, pct)
			require.Equal(t, tt.wantAmount, amt)
		})
	}
}

func TestDerive(t *testing.T) {
	t.Parallel()

	f := Derive("150.00", "140", quote.WatchEntry{Identifier: "usaapl", CostBasis: "100.00", PositionSize: "10"})
	require.Equal(t, Figures{Change: "10.000", ChangePercent: "7.14", IncomePercent: "50.000", IncomeAmount: "500.00"}, f)

	// malformed previous close keeps income figures
	f = Derive("150", "n/a", quote.WatchEntry{CostBasis: "100", PositionSize: "1"})
	require.Equal(t, Figures{IncomePercent: "50.000", IncomeAmount: "50.00"}, f)

	// malformed last price omits everything
	require.Equal(t, Figures{}, Derive("", "140", quote.WatchEntry{CostBasis: "100"}))

	var q quote.Quote
	Derive("11", "10", quote.WatchEntry{}).Apply(&q)
	require.Equal(t, "1.000", q.Change)
	require.Equal(t, "10.00", q.ChangePercent)
	require.Empty(t, q.IncomePercent)
	require.Empty(t, q.IncomeAmount)
}
