// Package calc derives change and position income figures from raw quote
// fields using exact decimal arithmetic.
//
// Rounding is half away from zero, which matches the half-up behaviour
// brokers display. Results are rendered at a fixed scale.
package calc

import (
	"strings"

	"github.com/shopspring/decimal"

	"quotewatch/internal/quote"
)

const (
	changeScale        = 3
	percentDivScale    = 4
	percentScale       = 2
	incomeDivScale     = 5
	incomePercentScale = 3
	incomeAmountScale  = 2
)

var hundred = decimal.NewFromInt(100)

// Figures holds derived values. Empty strings mean "omitted".
type Figures struct {
	Change        string
	ChangePercent string
	IncomePercent string
	IncomeAmount  string
}

// Parse reads a decimal, rejecting blanks and the placeholder.
func Parse(s string) (decimal.Decimal, bool) {
	if quote.IsPlaceholder(s) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Change returns last - previousClose rounded to 3 places.
func Change(last, previousClose decimal.Decimal) string {
	return last.Sub(previousClose).StringFixed(changeScale)
}

// ChangePercent returns (last - previousClose) / previousClose * 100.
// The quotient is rounded to 4 places before scaling; the result to 2.
// A zero previous close yields "0".
func ChangePercent(last, previousClose decimal.Decimal) string {
	if previousClose.IsZero() {
		return "0"
	}
	return last.Sub(previousClose).
		DivRound(previousClose, percentDivScale).
		Mul(hundred).
		StringFixed(percentScale)
}

// Income computes the position return for a watch entry. It returns empty
// strings for whatever cannot be computed: a missing, malformed or
// non-positive cost basis omits both values, a missing or malformed
// position size omits only the amount.
func Income(last decimal.Decimal, costBasis, positionSize string) (percent, amount string) {
	cost, ok := Parse(costBasis)
	if !ok || !cost.IsPositive() {
		return "", ""
	}
	diff := last.Sub(cost)
	percent = diff.DivRound(cost, incomeDivScale).Mul(hundred).StringFixed(incomePercentScale)

	size, ok := Parse(positionSize)
	if !ok {
		return percent, ""
	}
	return percent, diff.Mul(size).StringFixed(incomeAmountScale)
}

// Derive computes all figures from raw price text. An unparsable last price
// omits everything; an unparsable previous close omits change fields only.
func Derive(last, previousClose string, entry quote.WatchEntry) Figures {
	var f Figures
	l, ok := Parse(last)
	if !ok {
		return f
	}
	if p, ok := Parse(previousClose); ok {
		f.Change = Change(l, p)
		f.ChangePercent = ChangePercent(l, p)
	}
	f.IncomePercent, f.IncomeAmount = Income(l, entry.CostBasis, entry.PositionSize)
	return f
}

// Apply copies f into q.
func (f Figures) Apply(q *quote.Quote) {
	q.Change = f.Change
	q.ChangePercent = f.ChangePercent
	q.IncomePercent = f.IncomePercent
	q.IncomeAmount = f.IncomeAmount
}
