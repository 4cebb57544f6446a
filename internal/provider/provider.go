// Package provider defines the adapter contract shared by every quote
// provider and the helpers variants use to translate, batch and build quotes.
package provider

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"quotewatch/internal/calc"
	"quotewatch/internal/quote"
	"quotewatch/internal/symbol"
)

// Sink receives quotes for display.
type Sink interface {
	Setup(identifiers []string)
	Update(q quote.Quote)
	Clear()
	SetColorModeEnabled(enabled bool)
	SetStripedRowsEnabled(enabled bool)
}

// Fetcher retrieves one batch of quotes from an upstream.
type Fetcher interface {
	Fetch(ctx context.Context, entries []quote.WatchEntry) ([]quote.Quote, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, entries []quote.WatchEntry) ([]quote.Quote, error)

func (f FetcherFunc) Fetch(ctx context.Context, entries []quote.WatchEntry) ([]quote.Quote, error) {
	return f(ctx, entries)
}

// Adapter is what the refresh loop drives.
type Adapter interface {
	Kind() quote.Kind
	// Handle runs one fetch cycle and pushes results to the sink.
	// It never panics and never returns an error; failures are logged.
	// Results of a cycle whose ctx is already done are dropped.
	Handle(ctx context.Context, entries []quote.WatchEntry)
	// StopHandle releases per-cycle resources. Safe to call repeatedly.
	StopHandle()
	// Close releases everything the adapter owns.
	Close() error
}

// Option configures a Handler.
type Option func(*Handler)

// WithStopper sets the StopHandle hook.
func WithStopper(fn func()) Option {
	return func(h *Handler) { h.stop = fn }
}

// WithCloser sets the Close hook.
func WithCloser(fn func() error) Option {
	return func(h *Handler) { h.close = fn }
}

// Handler is the Adapter implementation shared by all variants.
type Handler struct {
	kind    quote.Kind
	fetcher Fetcher
	sink    Sink
	log     zerolog.Logger

	stop  func()
	close func() error

	closeOnce sync.Once
	closeErr  error
}

var _ Adapter = (*Handler)(nil)

func NewHandler(kind quote.Kind, f Fetcher, sink Sink, log zerolog.Logger, opts ...Option) *Handler {
	h := &Handler{
		kind:    kind,
		fetcher: f,
		sink:    sink,
		log:     log.With().Str("provider", kind.String()).Logger(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handler) Kind() quote.Kind { return h.kind }

func (h *Handler) Handle(ctx context.Context, entries []quote.WatchEntry) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Interface("panic", r).Msg("fetch cycle panicked")
		}
	}()
	if len(entries) == 0 {
		return
	}
	start := time.Now()
	qs, err := h.fetcher.Fetch(ctx, entries)
	if err != nil {
		ev := h.log.Warn()
		if errors.Is(err, context.Canceled) {
			ev = h.log.Debug()
		}
		ev.Err(err).Int("entries", len(entries)).Msg("fetch failed")
		return
	}
	if ctx.Err() != nil {
		h.log.Debug().Err(ctx.Err()).Int("quotes", len(qs)).Msg("cycle superseded, dropping quotes")
		return
	}
	for _, q := range qs {
		h.sink.Update(q)
	}
	h.log.Debug().Int("entries", len(entries)).Int("quotes", len(qs)).Dur("took", time.Since(start)).Msg("fetch cycle done")
}

func (h *Handler) StopHandle() {
	if h.stop != nil {
		h.stop()
	}
}

func (h *Handler) Close() error {
	h.closeOnce.Do(func() {
		h.StopHandle()
		if h.close != nil {
			h.closeErr = h.close()
		}
	})
	return h.closeErr
}

// Index re-attaches upstream symbols to the watch entries of one cycle.
type Index struct {
	kind     quote.Kind
	bySymbol map[string]quote.WatchEntry
	byID     map[string]quote.WatchEntry
}

// Resolve translates entries into unique provider symbols, in order.
// Entries the provider cannot address are logged and skipped.
func Resolve(entries []quote.WatchEntry, kind quote.Kind, log zerolog.Logger) ([]string, Index) {
	ix := Index{
		kind:     kind,
		bySymbol: make(map[string]quote.WatchEntry, len(entries)),
		byID:     make(map[string]quote.WatchEntry, len(entries)),
	}
	symbols := make([]string, 0, len(entries))
	for _, e := range entries {
		sym, err := symbol.ToProvider(e.Identifier, kind)
		if err != nil {
			log.Debug().Err(err).Str("identifier", e.Identifier).Msg("skipping entry")
			continue
		}
		if _, dup := ix.bySymbol[sym]; dup {
			continue
		}
		ix.bySymbol[sym] = e
		ix.byID[symbol.Normalize(e.Identifier)] = e
		symbols = append(symbols, sym)
	}
	return symbols, ix
}

// Entry finds the watch entry an upstream symbol belongs to.
func (ix Index) Entry(sym string) (quote.WatchEntry, bool) {
	if e, ok := ix.bySymbol[sym]; ok {
		return e, true
	}
	e, ok := ix.byID[symbol.Normalize(symbol.FromProvider(sym, ix.kind))]
	return e, ok
}

// Len is the number of addressable symbols.
func (ix Index) Len() int { return len(ix.bySymbol) }

// Raw holds the upstream text fields of one security.
type Raw struct {
	Name          string
	Last          string
	PreviousClose string
	High          string
	Low           string
}

// NewQuote builds a canonical quote and derives its figures.
func NewQuote(entry quote.WatchEntry, kind quote.Kind, raw Raw, at time.Time) quote.Quote {
	q := quote.Quote{
		Identifier:    entry.Identifier,
		Name:          strings.TrimSpace(raw.Name),
		Last:          raw.Last,
		PreviousClose: raw.PreviousClose,
		High:          raw.High,
		Low:           raw.Low,
		Extended:      quote.ExtendedPrice{Price: quote.NoData},
		Timestamp:     quote.Stamp(at),
		Source:        kind.String(),
	}
	calc.Derive(raw.Last, raw.PreviousClose, entry).Apply(&q)
	return q
}

// Batch splits symbols into chunks of at most size and calls fn for each
// with at most concurrency calls in flight. Results keep chunk order. Any
// failure cancels the remaining chunks and fails the whole call.
func Batch[T any](ctx context.Context, symbols []string, size, concurrency int, fn func(ctx context.Context, chunk []string) ([]T, error)) ([]T, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	chunks := Chunk(symbols, size)
	if len(chunks) == 1 {
		return fn(ctx, chunks[0])
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([][]T, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			out, err := fn(gctx, c)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []T
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// Chunk splits in into slices of at most size. size <= 0 means one chunk.
func Chunk(in []string, size int) [][]string {
	if size <= 0 || len(in) <= size {
		return [][]string{in}
	}
	out := make([][]string, 0, (len(in)+size-1)/size)
	for i := 0; i < len(in); i += size {
		j := min(i+size, len(in))
		out = append(out, in[i:j])
	}
	return out
}
