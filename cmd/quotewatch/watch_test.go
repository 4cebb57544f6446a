package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"quotewatch/internal/display"
	"quotewatch/internal/quote"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDraw_RendersOnChange(t *testing.T) {
	board := display.NewBoard()
	board.Setup([]string{"hk00700"})
	out := &lockedBuffer{}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- draw(ctx, out, board, zerolog.Nop()) }()

	board.Update(quote.Quote{Identifier: "hk00700", Name: "Tencent", Last: "512.5"})
	require.Eventually(t, func() bool {
		s := out.String()
		return strings.Contains(s, "512.5") && strings.Contains(s, "Tencent")
	}, 2*time.Second, 10*time.Millisecond)

	// not a terminal, so no escape codes
	require.NotContains(t, out.String(), clearScreen)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("draw did not return after cancel")
	}
}

func TestRunOptions_ConfigFile(t *testing.T) {
	o := runOptions{globals: &globalOptions{configPath: "/etc/quotewatch.yaml"}}
	require.Equal(t, "/etc/quotewatch.yaml", o.configFile())

	t.Chdir(t.TempDir())
	o.globals.configPath = ""
	require.Empty(t, o.configFile())
}
