// Package symbol translates between watch-list identifiers (hk00700, usaapl,
// sh600519, sz000001) and the symbol formats individual providers expect.
package symbol

import (
	"errors"
	"fmt"
	"strings"

	"quotewatch/internal/quote"
)

// ErrUnsupportedFormat is returned for identifiers a provider cannot address.
var ErrUnsupportedFormat = errors.New("unsupported code format")

const hkCodeWidth = 5

// ToProvider converts identifier into the symbol the provider of kind expects.
func ToProvider(identifier string, kind quote.Kind) (string, error) {
	switch kind {
	case quote.Longport:
		return toLongport(identifier)
	case quote.Sina:
		return toSina(identifier), nil
	default:
		return identifier, nil
	}
}

// FromProvider converts a provider symbol back into an identifier.
// Symbols it does not recognize are returned unchanged.
func FromProvider(symbol string, kind quote.Kind) string {
	switch kind {
	case quote.Longport:
		return fromLongport(symbol)
	case quote.Sina:
		return fromSina(symbol)
	default:
		return symbol
	}
}

// Normalize lower-cases the market prefix and, for US codes, the ticker.
func Normalize(identifier string) string {
	id := strings.TrimSpace(identifier)
	if len(id) < 2 {
		return id
	}
	prefix := strings.ToLower(id[:2])
	code := id[2:]
	if prefix == "us" {
		code = strings.ToLower(code)
	}
	return prefix + code
}

func toLongport(identifier string) (string, error) {
	if len(identifier) < 3 {
		return "", fmt.Errorf("%q: %w", identifier, ErrUnsupportedFormat)
	}
	code := identifier[2:]
	switch strings.ToLower(identifier[:2]) {
	case "hk":
		return trimLeadingZeros(code) + ".HK", nil
	case "us":
		return strings.ToUpper(code) + ".US", nil
	case "sh":
		return code + ".SH", nil
	case "sz":
		return code + ".SZ", nil
	}
	return "", fmt.Errorf("%q: %w", identifier, ErrUnsupportedFormat)
}

func fromLongport(symbol string) string {
	// the market is after the last dot: BRK.B.US
	i := strings.LastIndexByte(symbol, '.')
	if i <= 0 {
		return symbol
	}
	code, market := symbol[:i], symbol[i+1:]
	switch strings.ToUpper(market) {
	case "HK":
		return "hk" + padZeros(code, hkCodeWidth)
	case "US":
		return "us" + strings.ToLower(code)
	case "SH":
		return "sh" + code
	case "SZ":
		return "sz" + code
	}
	return symbol
}

func toSina(identifier string) string {
	if len(identifier) < 3 {
		return identifier
	}
	code := identifier[2:]
	switch strings.ToLower(identifier[:2]) {
	case "hk":
		return "rt_hk" + code
	case "us":
		return "gb_" + strings.ReplaceAll(strings.ToLower(code), ".", "$")
	}
	return identifier
}

func fromSina(symbol string) string {
	switch {
	case strings.HasPrefix(symbol, "rt_hk"):
		return "hk" + strings.TrimPrefix(symbol, "rt_hk")
	case strings.HasPrefix(symbol, "gb_"):
		return "us" + strings.ReplaceAll(strings.TrimPrefix(symbol, "gb_"), "$", ".")
	}
	return symbol
}

func trimLeadingZeros(code string) string {
	for len(code) > 1 && code[0] == '0' {
		code = code[1:]
	}
	return code
}

func padZeros(code string, width int) string {
	if len(code) >= width {
		return code
	}
	return strings.Repeat("0", width-len(code)) + code
}
