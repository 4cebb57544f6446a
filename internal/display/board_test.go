package display

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"quotewatch/internal/quote"
)

func TestBoard_OrderAndLastWriteWins(t *testing.T) {
	b := NewBoard()
	b.Setup([]string{"sh600519", "hk00700"})

	b.Update(quote.Quote{Identifier: "hk00700", Last: "380"})
	b.Update(quote.Quote{Identifier: "hk00700", Last: "381"})
	b.Update(quote.Quote{Identifier: "usaapl", Last: "150"})

	s := b.Snapshot()
	require.Len(t, s.Rows, 2)
	require.Equal(t, "sh600519", s.Rows[0].Identifier)
	require.Nil(t, s.Rows[0].Quote)
	require.Equal(t, "381", s.Rows[1].Quote.Last)

	q, ok := b.Quote("hk00700")
	require.True(t, ok)
	require.Equal(t, "381", q.Last)
}

func TestBoard_ClearAndFlags(t *testing.T) {
	b := NewBoard()
	b.Setup([]string{"sh600519"})
	b.Update(quote.Quote{Identifier: "sh600519"})
	v := b.Version()

	b.Clear()
	b.SetColorModeEnabled(true)
	b.SetStripedRowsEnabled(true)

	s := b.Snapshot()
	require.Empty(t, s.Rows)
	require.True(t, s.Colorful)
	require.True(t, s.Striped)
	require.Greater(t, s.Version, v)
}

func TestBoard_UndeclaredUpdatesDropped(t *testing.T) {
	b := NewBoard()
	b.Setup([]string{"sh600519", "hk00700"})
	b.Clear()
	b.Setup([]string{"sh600519"})
	v := b.Version()

	// a late quote for a row the new watch list no longer has
	b.Update(quote.Quote{Identifier: "hk00700", Last: "380"})

	s := b.Snapshot()
	require.Len(t, s.Rows, 1)
	require.Equal(t, "sh600519", s.Rows[0].Identifier)
	require.Equal(t, v, s.Version)
	_, ok := b.Quote("hk00700")
	require.False(t, ok)
}

func TestBoard_ChangedCoalesces(t *testing.T) {
	b := NewBoard()
	b.Setup([]string{"a", "b"})
	<-b.Changed()
	b.Update(quote.Quote{Identifier: "a"})
	b.Update(quote.Quote{Identifier: "b"})

	select {
	case <-b.Changed():
	default:
		t.Fatal("expected a change signal")
	}
	select {
	case <-b.Changed():
		t.Fatal("signals should coalesce")
	default:
	}
}

func TestBoard_ConcurrentWriters(t *testing.T) {
	b := NewBoard()
	b.Setup([]string{"a"})
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Update(quote.Quote{Identifier: "a", Last: strings.Repeat("1", i+1)})
			_ = b.Snapshot()
		}()
	}
	wg.Wait()
	require.Len(t, b.Snapshot().Rows, 1)
}

func TestTable_Render(t *testing.T) {
	b := NewBoard()
	b.Setup([]string{"sh600519", "hk00700"})
	b.Update(quote.Quote{
		Identifier: "sh600519", Name: "贵州茅台", Last: "1500.00", Change: "20.000", ChangePercent: "1.35",
		High: "1510", Low: "1470", Extended: quote.ExtendedPrice{Price: quote.NoData},
		IncomePercent: "50.000", IncomeAmount: "50000.00", Timestamp: "20250603140509",
	})

	var buf bytes.Buffer
	require.NoError(t, NewTable(&buf).Render(&buf, b.Snapshot()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "Code"))
	require.Contains(t, lines[1], "贵州茅台")
	require.Contains(t, lines[1], "1.35%")
	require.Contains(t, lines[1], "14:05:09")
	require.True(t, strings.HasPrefix(lines[2], "hk00700"))
}

func TestCells_ExtendedSession(t *testing.T) {
	cells := Cells(Row{Identifier: "usaapl", Quote: &quote.Quote{
		Identifier: "usaapl",
		Extended:   quote.ExtendedPrice{Session: quote.SessionPost, Price: "151.2"},
	}})
	require.Equal(t, "151.2 (post-market)", cells[7])
}

func TestSign(t *testing.T) {
	require.Equal(t, 1, sign("0.123"))
	require.Equal(t, -1, sign("-2.000"))
	require.Equal(t, 0, sign("0.000"))
	require.Equal(t, 0, sign(""))
}
