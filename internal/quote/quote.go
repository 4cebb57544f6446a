// Package quote holds the watch-list entries and canonical quote records
// shared by every provider and display.
package quote

import (
	"strings"
	"time"
)

// Kind identifies one of the supported upstream providers.
type Kind int

const (
	Tencent Kind = iota
	Sina
	Longport
)

func (k Kind) String() string {
	switch k {
	case Tencent:
		return "tencent"
	case Sina:
		return "sina"
	case Longport:
		return "longport"
	default:
		return "unknown"
	}
}

// Placeholder marks an intentionally empty cost basis or position size.
const Placeholder = "--"

// NoData is shown for extended-session prices that are not available.
const NoData = "--"

// TimestampLayout is the fixed format of Quote.Timestamp.
const TimestampLayout = "20060102150405"

// Session labels an extended trading window.
type Session string

const (
	SessionNone      Session = ""
	SessionPreMarket Session = "pre-market"
	SessionPost      Session = "post-market"
	SessionOvernight Session = "overnight"
)

// ExtendedPrice is the resolved extended-session price of a quote.
type ExtendedPrice struct {
	Session Session `json:"session,omitempty"`
	Price   string  `json:"price"`
}

// SessionPrices keeps the individual extended-session prices.
// Each field holds NoData when the upstream did not report a price.
type SessionPrices struct {
	PreMarket  string `json:"pre_market"`
	PostMarket string `json:"post_market"`
	Overnight  string `json:"overnight"`
}

// Quote is the canonical record every provider produces.
// Prices are kept as strings to avoid float rounding.
type Quote struct {
	Identifier    string         `json:"identifier"`
	Name          string         `json:"name"`
	Last          string         `json:"last"`
	PreviousClose string         `json:"previous_close"`
	High          string         `json:"high"`
	Low           string         `json:"low"`
	Change        string         `json:"change"`
	ChangePercent string         `json:"change_percent"`
	Extended      ExtendedPrice  `json:"extended"`
	Sessions      *SessionPrices `json:"sessions,omitempty"`
	IncomePercent string         `json:"income_percent,omitempty"`
	IncomeAmount  string         `json:"income_amount,omitempty"`
	Timestamp     string         `json:"timestamp"`
	Source        string         `json:"source"`
}

// Stamp formats t with TimestampLayout.
func Stamp(t time.Time) string { return t.Format(TimestampLayout) }

// Clock returns the HH:MM:SS part of the timestamp, or "" when it is malformed.
func (q Quote) Clock() string {
	if len(q.Timestamp) != len(TimestampLayout) {
		return ""
	}
	t := q.Timestamp[8:]
	return t[0:2] + ":" + t[2:4] + ":" + t[4:6]
}

// WatchEntry is one configured line: identifier[,costBasis[,positionSize]].
type WatchEntry struct {
	Identifier   string `json:"identifier"`
	CostBasis    string `json:"cost_basis,omitempty"`
	PositionSize string `json:"position_size,omitempty"`
}

// IsPlaceholder reports whether s carries no value.
func IsPlaceholder(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == Placeholder
}

// Identifiers returns the identifiers of entries in order.
func Identifiers(entries []WatchEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Identifier)
	}
	return out
}
