package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"quotewatch/internal/display"
	"quotewatch/internal/refresh"
)

func newOnceCmd(opts runOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "once",
		Short: "Fetch the watch list once and print it",
		Long: `Fetch every watched security once from the configured provider and
print the result, then exit.

Example:
  quotewatch once
  QUOTEWATCH_STOCKS="sh600519,1500,100;usAAPL" quotewatch once --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, opts, asJSON)
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output in JSON format")
	cmd.SilenceUsage = true
	return cmd
}

func runOnce(cmd *cobra.Command, opts runOptions, asJSON bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := opts.load(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if len(cfg.Entries()) == 0 {
		return errors.New("watch list is empty: set stocks in the config or QUOTEWATCH_STOCKS")
	}

	board := display.NewBoard()
	coord := refresh.New(board, opts.newBuilder(log), refresh.WithRegistry(opts.registry), refresh.WithLogger(log))
	defer func() {
		if err := coord.Close(); err != nil {
			log.Warn().Err(err).Msg("closing provider")
		}
	}()
	if err := coord.Configure(cfg); err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	coord.Once(ctx)

	snap := board.Snapshot()
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(snap)
	}
	return display.NewTable(out).Render(out, snap)
}
