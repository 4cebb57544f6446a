// Package sina fetches quotes from the Sina (hq.sinajs.cn) text API.
package sina

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

const (
	DefaultURL     = "https://hq.sinajs.cn/list="
	DefaultReferer = "https://finance.sina.com.cn"
)

// layout gives field positions for one market's payload.
type layout struct {
	name, last, prev, high, low int
}

func (l layout) minFields() int {
	return max(l.name, l.last, l.prev, l.high, l.low) + 1
}

var (
	layoutA  = layout{name: 0, prev: 2, last: 3, high: 4, low: 5}
	layoutHK = layout{name: 1, prev: 3, high: 4, low: 5, last: 6}
	layoutUS = layout{name: 0, last: 1, high: 6, low: 7, prev: 26}
)

func layoutFor(sym string) layout {
	switch {
	case strings.HasPrefix(sym, "rt_hk"):
		return layoutHK
	case strings.HasPrefix(sym, "gb_"):
		return layoutUS
	default:
		return layoutA
	}
}

type Config struct {
	URL                string
	Referer            string
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
	if cfg.Referer == "" {
		cfg.Referer = DefaultReferer
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Fetcher{cfg: cfg, client: client, log: log.With().Str("component", "sina").Logger()}
}

func (f *Fetcher) Fetch(ctx context.Context, entries []quote.WatchEntry) ([]quote.Quote, error) {
	symbols, ix := provider.Resolve(entries, quote.Sina, f.log)
	if len(symbols) == 0 {
		return nil, nil
	}
	headers := map[string]string{"Referer": f.cfg.Referer}
	now := f.cfg.Now()
	return provider.Batch(ctx, symbols, f.cfg.MaxItemsPerRequest, f.cfg.MaxConcurrency,
		func(ctx context.Context, chunk []string) ([]quote.Quote, error) {
			body, err := f.client.Get(ctx, f.cfg.URL+strings.Join(chunk, ","), headers)
			if err != nil {
				return nil, fmt.Errorf("sina: fetch: %w", err)
			}
			return f.parse(body, ix, now)
		})
}

func (f *Fetcher) parse(body []byte, ix provider.Index, now time.Time) ([]quote.Quote, error) {
	text, err := simplifiedchinese.GBK.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("sina: decode: %w", err)
	}
	var out []quote.Quote
	for _, line := range strings.Split(string(text), "\n") {
		sym, payload, ok := splitLine(line)
		if !ok {
			continue
		}
		if payload == "" {
			f.log.Debug().Str("symbol", sym).Msg("empty payload")
			continue
		}
		l := layoutFor(sym)
		fields := strings.Split(payload, ",")
		if len(fields) < l.minFields() {
			f.log.Debug().Str("symbol", sym).Int("fields", len(fields)).Msg("short payload")
			continue
		}
		entry, ok := ix.Entry(sym)
		if !ok {
			continue
		}
		out = append(out, provider.NewQuote(entry, quote.Sina, provider.Raw{
			Name:          fields[l.name],
			Last:          fields[l.last],
			PreviousClose: fields[l.prev],
			High:          fields[l.high],
			Low:           fields[l.low],
		}, now))
	}
	return out, nil
}

// splitLine parses `var hq_str_<symbol>="<payload>";`.
func splitLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	line = strings.TrimSuffix(line, ";")
	rest, ok := strings.CutPrefix(line, "var hq_str_")
	if !ok {
		return "", "", false
	}
	key, val, ok := strings.Cut(rest, "=")
	if !ok {
		return "", "", false
	}
	return key, strings.Trim(val, `"`), true
}
