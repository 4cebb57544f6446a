// Package display holds the latest quote per identifier and renders it.
package display

import (
	"sync"
	"time"

	"quotewatch/internal/quote"
)

// Snapshot is a consistent copy of the board.
type Snapshot struct {
	Rows      []Row     `json:"rows"`
	Colorful  bool      `json:"colorful"`
	Striped   bool      `json:"striped"`
	Version   uint64    `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Row is one watched identifier; Quote is nil until the first update.
type Row struct {
	Identifier string       `json:"identifier"`
	Quote      *quote.Quote `json:"quote,omitempty"`
}

// Board is an in-memory Sink. The last write per identifier wins.
type Board struct {
	mu        sync.RWMutex
	order     []string
	rows      map[string]quote.Quote
	colorful  bool
	striped   bool
	version   uint64
	updatedAt time.Time

	changed chan struct{}
}

func NewBoard() *Board {
	return &Board{rows: make(map[string]quote.Quote), changed: make(chan struct{}, 1)}
}

// Setup declares the row order.
func (b *Board) Setup(identifiers []string) {
	b.mu.Lock()
	b.order = append(b.order[:0:0], identifiers...)
	b.touchLocked()
	b.mu.Unlock()
}

// Update stores q. Quotes for identifiers the current Setup did not declare
// are dropped, so a late cycle from a previous watch list cannot bring back
// a removed row.
func (b *Board) Update(q quote.Quote) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.declaredLocked(q.Identifier) {
		return
	}
	b.rows[q.Identifier] = q
	b.touchLocked()
}

// Clear drops every row.
func (b *Board) Clear() {
	b.mu.Lock()
	b.order = nil
	clear(b.rows)
	b.touchLocked()
	b.mu.Unlock()
}

func (b *Board) SetColorModeEnabled(enabled bool) {
	b.mu.Lock()
	b.colorful = enabled
	b.mu.Unlock()
}

func (b *Board) SetStripedRowsEnabled(enabled bool) {
	b.mu.Lock()
	b.striped = enabled
	b.mu.Unlock()
}

// Changed is signalled after each mutation. Signals coalesce.
func (b *Board) Changed() <-chan struct{} { return b.changed }

func (b *Board) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Quote returns the latest quote for identifier.
func (b *Board) Quote(identifier string) (quote.Quote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.rows[identifier]
	return q, ok
}

func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := Snapshot{
		Rows:      make([]Row, 0, len(b.order)),
		Colorful:  b.colorful,
		Striped:   b.striped,
		Version:   b.version,
		UpdatedAt: b.updatedAt,
	}
	for _, id := range b.order {
		r := Row{Identifier: id}
		if q, ok := b.rows[id]; ok {
			r.Quote = &q
		}
		s.Rows = append(s.Rows, r)
	}
	return s
}

func (b *Board) declaredLocked(id string) bool {
	for _, o := range b.order {
		if o == id {
			return true
		}
	}
	return false
}

func (b *Board) touchLocked() {
	b.version++
	b.updatedAt = time.Now()
	select {
	case b.changed <- struct{}{}:
	default:
	}
}
