package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"quotewatch/internal/config"
	"quotewatch/internal/keyring"
	"quotewatch/internal/provider/longport/openapi"
	"quotewatch/internal/refresh"
	"quotewatch/internal/schedule"
)

var Version = "dev"

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath string
	logLevel   string
}

var globals globalOptions

var rootCmd = &cobra.Command{
	Use:   "quotewatch",
	Short: "Stock watch-list quotes in the terminal",
	Long: `quotewatch polls the quotes of a watch list on a cron schedule.

Tencent is the default source. Enable sina or longport in the config to
switch; Longport wins when both are enabled.`,
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globals.configPath, "config", "c", "", "Path to the YAML config (default ./"+config.DefaultPath+" when present)")
	rootCmd.PersistentFlags().StringVar(&globals.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	store := keyring.NewEnvStore(keyring.NewSystemStore())
	run := runOptions{
		globals:  &globals,
		store:    store,
		registry: schedule.Default,
		newBuilder: func(log zerolog.Logger) refresh.Builder {
			return &refresh.Factory{Log: log, Sessions: openapi.Open}
		},
	}
	rootCmd.AddCommand(
		newWatchCmd(run),
		newOnceCmd(run),
		newCredentialsCmd(credentialsOptions{
			store:          store,
			passwordReader: newTerminalReader(int(os.Stdin.Fd())),
		}),
	)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runOptions carries the dependencies of the commands that fetch quotes.
type runOptions struct {
	globals    *globalOptions
	store      keyring.Store
	registry   *schedule.Registry
	newBuilder func(log zerolog.Logger) refresh.Builder
}

// load reads the config, applies the --log-level override and builds the
// logger. Keyring failures only warn: Longport then runs without secrets.
func (o runOptions) load(stderr io.Writer) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(o.globals.configPath)
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	log := newLogger(stderr, o.level(cfg))
	return o.resolve(cfg, log), log, nil
}

func (o runOptions) resolve(cfg config.Config, log zerolog.Logger) config.Config {
	if !cfg.Longport.Enabled {
		return cfg
	}
	cfg, err := config.ResolveCredentials(cfg, o.store)
	if err != nil {
		log.Warn().Err(err).Msg("reading longport credentials from keyring")
	}
	return cfg
}

func (o runOptions) level(cfg config.Config) string {
	if o.globals.logLevel != "" {
		return o.globals.logLevel
	}
	return cfg.LogLevel
}

// configFile is the path worth watching for changes, or "".
func (o runOptions) configFile() string {
	if o.globals.configPath != "" {
		return o.globals.configPath
	}
	if _, err := os.Stat(config.DefaultPath); err == nil {
		return config.DefaultPath
	}
	return ""
}

// newLogger writes human-readable logs to w. Unknown levels fall back to
// info.
func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().Timestamp().Logger()
}
