// Package refresh keeps one provider adapter polling the configured watch
// list on a cron schedule.
//
// A Coordinator owns the active adapter. Apply selects the provider, resets
// the sink and (re)registers the recurring job. Refresh runs one cycle in
// the background and keeps the job registered; Stop cancels the job.
// Replacing the adapter retires the old one: it receives no new cycles and
// is closed once its in-flight cycles finish.
package refresh

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"quotewatch/internal/config"
	"quotewatch/internal/provider"
	"quotewatch/internal/quote"
	"quotewatch/internal/schedule"
)

// DefaultJobName is the schedule name used when none is given.
const DefaultJobName = "quotewatch.refresh"

const defaultCycleTimeout = 8 * time.Second

// ErrClosed is returned by Apply after Close.
var ErrClosed = errors.New("coordinator closed")

// Builder creates adapters. settings returns the latest applied config and
// may be called at any time after Build returns.
type Builder interface {
	Build(kind quote.Kind, settings func() config.Config, sink provider.Sink) (provider.Adapter, error)
}

// SelectKind picks the provider: Longport when enabled, then Sina, then
// Tencent.
func SelectKind(cfg config.Config) quote.Kind {
	switch {
	case cfg.Longport.Enabled:
		return quote.Longport
	case cfg.Sina.Enabled:
		return quote.Sina
	default:
		return quote.Tencent
	}
}

// slot is one adapter generation.
type slot struct {
	adapter provider.Adapter
	wg      sync.WaitGroup
	retired bool
}

type Coordinator struct {
	name     string
	sink     provider.Sink
	builder  Builder
	registry *schedule.Registry
	log      zerolog.Logger

	settingsMu sync.RWMutex
	settings   config.Config

	mu      sync.Mutex
	current *slot
	entries []quote.WatchEntry
	closed  bool

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// gen is cancelled whenever Configure installs a new watch list so
	// cycles started for the previous one stop early.
	gen       context.Context
	genCancel context.CancelFunc
}

type Option func(*Coordinator)

// WithJobName sets the schedule name.
func WithJobName(name string) Option {
	return func(c *Coordinator) { c.name = name }
}

// WithRegistry sets the schedule registry. Defaults to schedule.Default.
func WithRegistry(r *schedule.Registry) Option {
	return func(c *Coordinator) { c.registry = r }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

func New(sink provider.Sink, builder Builder, opts ...Option) *Coordinator {
	c := &Coordinator{
		name:     DefaultJobName,
		sink:     sink,
		builder:  builder,
		registry: schedule.Default,
		log:      zerolog.Nop(),
		settings: config.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With().Str("component", "refresh").Str("job", c.name).Logger()
	c.base, c.cancel = context.WithCancel(context.Background())
	c.gen, c.genCancel = context.WithCancel(c.base)
	return c
}

// Settings returns the last applied config.
func (c *Coordinator) Settings() config.Config {
	c.settingsMu.RLock()
	defer c.settingsMu.RUnlock()
	return c.settings
}

// Kind reports the active provider and whether an adapter exists.
func (c *Coordinator) Kind() (quote.Kind, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return 0, false
	}
	return c.current.adapter.Kind(), true
}

// Apply installs cfg: it picks the adapter, resets the sink to the new watch
// list and refreshes. A build failure keeps the previous adapter.
func (c *Coordinator) Apply(cfg config.Config) error {
	if err := c.Configure(cfg); err != nil {
		return err
	}
	c.Refresh()
	return nil
}

// Configure is Apply without the refresh: no cycle runs and the job is
// left as it is.
func (c *Coordinator) Configure(cfg config.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	c.settingsMu.Lock()
	c.settings = cfg
	c.settingsMu.Unlock()

	kind := SelectKind(cfg)
	if c.current == nil || c.current.adapter.Kind() != kind {
		a, err := c.builder.Build(kind, c.Settings, c.sink)
		if err != nil {
			return err
		}
		c.retireLocked(c.current)
		c.current = &slot{adapter: a}
		c.log.Info().Stringer("provider", kind).Msg("adapter selected")
	}

	c.genCancel()
	c.gen, c.genCancel = context.WithCancel(c.base)

	c.sink.SetStripedRowsEnabled(cfg.Striped)
	c.sink.Clear()
	c.entries = cfg.Entries()
	c.sink.Setup(quote.Identifiers(c.entries))
	return nil
}

// Refresh runs one cycle in the background and (re)registers the recurring
// job. An empty watch list stops the job instead.
func (c *Coordinator) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.current == nil {
		return
	}
	cfg := c.Settings()
	c.sink.SetColorModeEnabled(cfg.Colorful)

	if len(c.entries) == 0 {
		c.stopLocked()
		return
	}

	s, entries := c.current, c.entries
	c.dispatchLocked(s, entries)

	job := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.dispatchLocked(s, entries)
	}
	expr := strings.TrimSpace(cfg.CronExpression)
	if expr == "" {
		expr = schedule.DefaultExpression
	}
	if err := c.registry.RunJob(c.name, expr, job); err != nil {
		c.log.Error().Err(err).Str("cron", expr).Msg("invalid cron expression, using default")
		if err := c.registry.RunJob(c.name, schedule.DefaultExpression, job); err != nil {
			c.log.Error().Err(err).Msg("schedule failed")
		}
	}
}

// Stop cancels the recurring job. In-flight cycles finish.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Once runs a single cycle on the caller's goroutine.
func (c *Coordinator) Once(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.current == nil || c.current.retired || len(c.entries) == 0 {
		c.mu.Unlock()
		return
	}
	s, entries := c.current, c.entries
	s.wg.Add(1)
	c.wg.Add(1)
	c.mu.Unlock()

	defer c.wg.Done()
	defer s.wg.Done()
	ctx, cancel := context.WithTimeout(ctx, c.cycleTimeout())
	defer cancel()
	s.adapter.Handle(ctx, entries)
}

// Close stops the job, cancels in-flight cycles, waits for them and closes
// the adapter.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stopLocked()
	s := c.current
	if s != nil {
		s.retired = true
	}
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
	if s != nil {
		return s.adapter.Close()
	}
	return nil
}

func (c *Coordinator) stopLocked() {
	c.registry.StopJob(c.name)
	if c.current != nil {
		c.current.adapter.StopHandle()
	}
}

func (c *Coordinator) dispatchLocked(s *slot, entries []quote.WatchEntry) {
	if c.closed || s.retired {
		return
	}
	s.wg.Add(1)
	c.wg.Add(1)
	timeout := c.cycleTimeout()
	gen := c.gen
	go func() {
		defer c.wg.Done()
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(gen, timeout)
		defer cancel()
		s.adapter.Handle(ctx, entries)
	}()
}

// retireLocked stops feeding s and closes it after its cycles drain.
func (c *Coordinator) retireLocked(s *slot) {
	if s == nil {
		return
	}
	s.retired = true
	s.adapter.StopHandle()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		s.wg.Wait()
		if err := s.adapter.Close(); err != nil {
			c.log.Warn().Err(err).Stringer("provider", s.adapter.Kind()).Msg("closing replaced adapter")
		}
	}()
}

func (c *Coordinator) cycleTimeout() time.Duration {
	if sec := c.Settings().CycleTimeoutSec; sec > 0 {
		return time.Duration(sec) * time.Second
	}
	return defaultCycleTimeout
}
