// Package longport fetches quotes through a Longport OpenAPI session.
//
// The session is created lazily on the first cycle that has complete
// credentials and is then shared by every cycle until Close. Live quotes and
// static security info are requested concurrently; names are cached for a
// TTL and identical in-flight name requests are coalesced.
package longport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"quotewatch/internal/config"
	"quotewatch/internal/provider"
	"quotewatch/internal/provider/cache"
	"quotewatch/internal/quote"
)

const DefaultHTTPURL = "https://openapi.longportapp.cn"

// Credentials are the three secrets a session needs.
type Credentials struct {
	AppKey      string
	AppSecret   string
	AccessToken string
}

// Complete reports whether every secret is set.
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.AppKey) != "" &&
		strings.TrimSpace(c.AppSecret) != "" &&
		strings.TrimSpace(c.AccessToken) != ""
}

// PrePost is an extended-session quote.
type PrePost struct {
	LastDone decimal.Decimal
}

// SecurityQuote is the subset of a live quote the fetcher reads.
// Absent prices are nil.
type SecurityQuote struct {
	Symbol     string
	LastDone   *decimal.Decimal
	PrevClose  *decimal.Decimal
	High       *decimal.Decimal
	Low        *decimal.Decimal
	PreMarket  *PrePost
	PostMarket *PrePost
	Overnight  *PrePost
}

// StaticInfo is the subset of static security info the fetcher reads.
type StaticInfo struct {
	Symbol string
	NameCn string
	NameEn string
}

// Session is an open quote context.
type Session interface {
	Quote(ctx context.Context, symbols []string) ([]SecurityQuote, error)
	StaticInfo(ctx context.Context, symbols []string) ([]StaticInfo, error)
	Close() error
}

// SessionFactory opens a session.
type SessionFactory func(ctx context.Context, creds Credentials, httpURL string) (Session, error)

type Config struct {
	// Credentials is read on every cycle until a session exists, so secrets
	// saved after start-up are picked up without a restart.
	Credentials func() Credentials
	HTTPURL     string
	// OvernightFallback substitutes the post-market price for a missing
	// overnight price.
	OvernightFallback bool
	// Names caches display names by provider symbol. Nil disables caching.
	Names              *cache.Store[string]
	MaxItemsPerRequest int
	MaxConcurrency     int
	Now                func() time.Time
}

type Fetcher struct {
	cfg     Config
	factory SessionFactory
	log     zerolog.Logger

	mu   sync.Mutex
	sess Session

	sf singleflight.Group
}

func New(cfg Config, factory SessionFactory, log zerolog.Logger) *Fetcher {
	if cfg.HTTPURL == "" {
		cfg.HTTPURL = DefaultHTTPURL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Credentials == nil {
		cfg.Credentials = func() Credentials { return Credentials{} }
	}
	if cfg.Names == nil {
		cfg.Names = cache.New[string](0, 0)
	}
	return &Fetcher{cfg: cfg, factory: factory, log: log.With().Str("component", "longport").Logger()}
}

func (f *Fetcher) Fetch(ctx context.Context, entries []quote.WatchEntry) ([]quote.Quote, error) {
	symbols, ix := provider.Resolve(entries, quote.Longport, f.log)
	if len(symbols) == 0 {
		return nil, nil
	}
	sess, err := f.session(ctx)
	if errors.Is(err, config.ErrIncomplete) {
		f.log.Debug().Msg("credentials incomplete, skipping cycle")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var (
		quotes []SecurityQuote
		names  map[string]string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		quotes, err = provider.Batch(gctx, symbols, f.cfg.MaxItemsPerRequest, f.cfg.MaxConcurrency,
			func(ctx context.Context, chunk []string) ([]SecurityQuote, error) {
				return sess.Quote(ctx, chunk)
			})
		if err != nil {
			return fmt.Errorf("longport: quote: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		names, err = f.names(gctx, sess, symbols)
		if err != nil {
			// names are cosmetic; fall back to symbols
			f.log.Warn().Err(err).Msg("static info failed")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := f.cfg.Now()
	out := make([]quote.Quote, 0, len(quotes))
	for _, sq := range quotes {
		entry, ok := ix.Entry(sq.Symbol)
		if !ok {
			f.log.Debug().Str("symbol", sq.Symbol).Msg("unrequested symbol")
			continue
		}
		out = append(out, f.build(entry, sq, names, now))
	}
	return out, nil
}

// Close releases the session.
func (f *Fetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sess == nil {
		return nil
	}
	err := f.sess.Close()
	f.sess = nil
	return err
}

func (f *Fetcher) session(ctx context.Context) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sess != nil {
		return f.sess, nil
	}
	creds := f.cfg.Credentials()
	if !creds.Complete() {
		return nil, config.ErrIncomplete
	}
	sess, err := f.factory(ctx, creds, f.cfg.HTTPURL)
	if err != nil {
		return nil, fmt.Errorf("longport: open session: %w", err)
	}
	f.sess = sess
	f.log.Info().Str("http_url", f.cfg.HTTPURL).Msg("session opened")
	return sess, nil
}

func (f *Fetcher) names(ctx context.Context, sess Session, symbols []string) (map[string]string, error) {
	return f.cfg.Names.Fetch(ctx, symbols, func(ctx context.Context, missing []string) (map[string]string, error) {
		v, err, _ := f.sf.Do(strings.Join(missing, ","), func() (any, error) {
			infos, err := sess.StaticInfo(ctx, missing)
			if err != nil {
				return nil, err
			}
			out := make(map[string]string, len(infos))
			for _, in := range infos {
				switch {
				case in.NameCn != "":
					out[in.Symbol] = in.NameCn
				case in.NameEn != "":
					out[in.Symbol] = in.NameEn
				}
			}
			return out, nil
		})
		if err != nil {
			return nil, err
		}
		return v.(map[string]string), nil
	})
}

func (f *Fetcher) build(entry quote.WatchEntry, sq SecurityQuote, names map[string]string, now time.Time) quote.Quote {
	last := orZero(sq.LastDone)
	high, low := last, last
	if sq.High != nil {
		high = text(*sq.High)
	}
	if sq.Low != nil {
		low = text(*sq.Low)
	}
	name := names[sq.Symbol]
	if name == "" {
		name = sq.Symbol
	}
	q := provider.NewQuote(entry, quote.Longport, provider.Raw{
		Name:          name,
		Last:          last,
		PreviousClose: orZero(sq.PrevClose),
		High:          high,
		Low:           low,
	}, now)
	q.Extended, q.Sessions = Extended(sq, f.cfg.OvernightFallback)
	return q
}

// Extended resolves the labeled extended-session price and the individual
// session prices. Pre-market wins over post-market, which wins over
// overnight; the first nonzero price is used.
func Extended(sq SecurityQuote, overnightFallback bool) (quote.ExtendedPrice, *quote.SessionPrices) {
	pre := sessionPrice(sq.PreMarket)
	post := sessionPrice(sq.PostMarket)
	overnight := sessionPrice(sq.Overnight)

	sessions := &quote.SessionPrices{PreMarket: pre, PostMarket: post, Overnight: overnight}
	if overnight == quote.NoData && overnightFallback {
		sessions.Overnight = post
	}

	switch {
	case pre != quote.NoData:
		return quote.ExtendedPrice{Session: quote.SessionPreMarket, Price: pre}, sessions
	case post != quote.NoData:
		return quote.ExtendedPrice{Session: quote.SessionPost, Price: post}, sessions
	case overnight != quote.NoData:
		return quote.ExtendedPrice{Session: quote.SessionOvernight, Price: overnight}, sessions
	}
	return quote.ExtendedPrice{Price: quote.NoData}, sessions
}

func sessionPrice(p *PrePost) string {
	if p == nil || p.LastDone.IsZero() {
		return quote.NoData
	}
	return text(p.LastDone)
}

func orZero(d *decimal.Decimal) string {
	if d == nil {
		return "0"
	}
	return text(*d)
}

// text formats d at the scale it was reported with, so "150.00" stays
// "150.00" like the HTTP providers' raw fields.
func text(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}
