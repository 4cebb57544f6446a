// Package tencent fetches quotes from the Tencent (qt.gtimg.cn) text API.
package tencent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/simplifiedchinese"

	"quotewatch/internal/httpx"
	"quotewatch/internal/provider"
	"quotewatch/internal/quote"
)

const DefaultURL = "https://qt.gtimg.cn/q="

// Field positions in a "~" separated payload.
const (
	fieldName      = 1
	fieldLast      = 3
	fieldPrevClose = 4
	fieldHigh      = 33
	fieldLow       = 34
	minFields      = 35
)

type Config struct {
	URL string
	// MaxItemsPerRequest splits long watch lists into several requests.
	// 0 means a single request.
	MaxItemsPerRequest int
	MaxConcurrency     int
	Now                func() time.Time
}

type Fetcher struct {
	cfg    Config
	client httpx.Fetcher
	log    zerolog.Logger
}

func New(cfg Config, client httpx.Fetcher, log zerolog.Logger) *Fetcher {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Fetcher{cfg: cfg, client: client, log: log.With().Str("component", "tencent").Logger()}
}

func (f *Fetcher) Fetch(ctx context.Context, entries []quote.WatchEntry) ([]quote.Quote, error) {
	symbols, ix := provider.Resolve(entries, quote.Tencent, f.log)
	if len(symbols) == 0 {
		return nil, nil
	}
	now := f.cfg.Now()
	out, err := provider.Batch(ctx, symbols, f.cfg.MaxItemsPerRequest, f.cfg.MaxConcurrency,
		func(ctx context.Context, chunk []string) ([]quote.Quote, error) {
			body, err := f.client.Get(ctx, f.cfg.URL+strings.Join(chunk, ","), nil)
			if err != nil {
				return nil, fmt.Errorf("tencent: fetch: %w", err)
			}
			return f.parse(body, ix, now)
		})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *Fetcher) parse(body []byte, ix provider.Index, now time.Time) ([]quote.Quote, error) {
	text, err := simplifiedchinese.GBK.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("tencent: decode: %w", err)
	}
	var out []quote.Quote
	for _, line := range strings.Split(string(text), "\n") {
		sym, payload, ok := splitLine(line)
		if !ok {
			continue
		}
		fields := strings.Split(payload, "~")
		if len(fields) < minFields {
			f.log.Debug().Str("symbol", sym).Int("fields", len(fields)).Msg("short payload")
			continue
		}
		entry, ok := ix.Entry(sym)
		if !ok {
			f.log.Debug().Str("symbol", sym).Msg("unrequested symbol")
			continue
		}
		out = append(out, provider.NewQuote(entry, quote.Tencent, provider.Raw{
			Name:          fields[fieldName],
			Last:          fields[fieldLast],
			PreviousClose: fields[fieldPrevClose],
			High:          fields[fieldHigh],
			Low:           fields[fieldLow],
		}, now))
	}
	return out, nil
}

// splitLine parses `v_<symbol>="<payload>";`.
func splitLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	line = strings.TrimSuffix(line, ";")
	if !strings.HasPrefix(line, "v_") {
		return "", "", false
	}
	key, val, ok := strings.Cut(line[2:], "=")
	if !ok {
		return "", "", false
	}
	return key, strings.Trim(val, `"`), true
}
