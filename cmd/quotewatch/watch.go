package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"quotewatch/internal/config"
	"quotewatch/internal/display"
	"quotewatch/internal/refresh"
	"quotewatch/internal/server"
)

const clearScreen = "\033[H\033[2J"

func newWatchCmd(opts runOptions) *cobra.Command {
	var (
		listen   string
		headless bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh the watch list on a schedule",
		Long: `Poll the watch list on the configured cron schedule and redraw the
table after every update. Edits to the config file are applied live.

Example:
  quotewatch watch
  quotewatch watch --listen :8080 --headless`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts, listen, headless)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Serve the board as JSON on this address")
	cmd.Flags().BoolVar(&headless, "headless", false, "Do not draw the table")
	cmd.SilenceUsage = true
	return cmd
}

func runWatch(cmd *cobra.Command, opts runOptions, listen string, headless bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := opts.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	opts.registry.SetLogger(log)

	board := display.NewBoard()
	coord := refresh.New(board, opts.newBuilder(log), refresh.WithRegistry(opts.registry), refresh.WithLogger(log))
	defer func() {
		if err := coord.Close(); err != nil {
			log.Warn().Err(err).Msg("closing provider")
		}
	}()
	if err := coord.Apply(cfg); err != nil {
		return fmt.Errorf("provider: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if path := opts.configFile(); path != "" {
		g.Go(func() error {
			return config.Watch(gctx, path, log, func(next config.Config) {
				if err := coord.Apply(opts.resolve(next, log)); err != nil {
					log.Error().Err(err).Msg("applying reloaded config")
				}
			})
		})
	}
	if listen != "" {
		g.Go(func() error {
			return server.Serve(gctx, listen, server.Handler(board, coord, log), log)
		})
	}
	if !headless {
		g.Go(func() error {
			return draw(gctx, cmd.OutOrStdout(), board, log)
		})
	}
	return g.Wait()
}

// draw re-renders the table whenever the board changes.
func draw(ctx context.Context, w io.Writer, board *display.Board, log zerolog.Logger) error {
	t := display.NewTable(w)
	wipe := isTerminal(w)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-board.Changed():
			if wipe {
				_, _ = io.WriteString(w, clearScreen)
			}
			if err := t.Render(w, board.Snapshot()); err != nil {
				log.Debug().Err(err).Msg("render")
				return err
			}
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
