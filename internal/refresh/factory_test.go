package refresh

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"quotewatch/internal/config"
	"quotewatch/internal/display"
	"quotewatch/internal/provider/longport"
	"quotewatch/internal/quote"
)

func TestFactory_BuildsEachKind(t *testing.T) {
	f := &Factory{
		Log: zerolog.Nop(),
		Sessions: func(context.Context, longport.Credentials, string) (longport.Session, error) {
			return nil, context.Canceled
		},
	}
	cfg := config.Default()
	cfg.Limits.MaxRequestsPerMinute = 30
	settings := func() config.Config { return cfg }

	for _, kind := range []quote.Kind{quote.Tencent, quote.Sina, quote.Longport} {
		a, err := f.Build(kind, settings, display.NewBoard())
		require.NoError(t, err)
		require.Equal(t, kind, a.Kind())
		a.StopHandle()
		require.NoError(t, a.Close())
	}
}

func TestFactory_BadProxy(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.Proxy = "no-port"
	_, err := (&Factory{}).Build(quote.Tencent, func() config.Config { return cfg }, display.NewBoard())
	require.Error(t, err)
}

func TestFactory_LongportNeedsSessions(t *testing.T) {
	_, err := (&Factory{}).Build(quote.Longport, config.Default, display.NewBoard())
	require.Error(t, err)
}

func TestFactory_LongportWithoutCredentialsIsQuiet(t *testing.T) {
	opened := 0
	f := &Factory{Sessions: func(context.Context, longport.Credentials, string) (longport.Session, error) {
		opened++
		return nil, nil
	}}
	board := display.NewBoard()
	a, err := f.Build(quote.Longport, config.Default, board)
	require.NoError(t, err)

	a.Handle(t.Context(), []quote.WatchEntry{{Identifier: "hk00700"}})

	require.Zero(t, opened)
	require.Empty(t, board.Snapshot().Rows)
}
