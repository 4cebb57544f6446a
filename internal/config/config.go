package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"quotewatch/internal/quote"
)

// DefaultPath is used when no path is given and the file exists.
const DefaultPath = "quotewatch.yaml"

// ErrIncomplete reports missing provider credentials.
var ErrIncomplete = errors.New("configuration incomplete")

type HTTP struct {
	TimeoutSec int    `yaml:"timeout_sec"`
	Proxy      string `yaml:"proxy"`
	UserAgent  string `yaml:"user_agent"`
}

type Sina struct {
	Enabled bool `yaml:"enabled"`
}

type Longport struct {
	Enabled     bool   `yaml:"enabled"`
	AppKey      string `yaml:"app_key"`
	AppSecret   string `yaml:"app_secret"`
	AccessToken string `yaml:"access_token"`
	HTTPURL     string `yaml:"http_url"`
	// OvernightFallback shows the post-market price when no overnight
	// price is reported.
	OvernightFallback   bool `yaml:"overnight_fallback"`
	StaticCacheTTLSec   int  `yaml:"static_cache_ttl_sec"`
	StaticCacheMaxItems int  `yaml:"static_cache_max_items"`
}

type Limits struct {
	MinRequestIntervalMs int `yaml:"min_request_interval_ms"`
	MaxRequestsPerMinute int `yaml:"max_requests_per_minute"`
	Burst                int `yaml:"burst"`
	MaxItemsPerRequest   int `yaml:"max_items_per_request"`
	MaxConcurrency       int `yaml:"max_concurrency"`
}

type Config struct {
	// Stocks is the watch list: identifier[,costBasis[,positionSize]]
	// entries separated by ";" or newlines.
	Stocks          string   `yaml:"stocks"`
	CronExpression  string   `yaml:"cron_expression"`
	Colorful        bool     `yaml:"colorful"`
	Striped         bool     `yaml:"striped"`
	LogLevel        string   `yaml:"log_level"`
	CycleTimeoutSec int      `yaml:"cycle_timeout_sec"`
	HTTP            HTTP     `yaml:"http"`
	Sina            Sina     `yaml:"sina"`
	Longport        Longport `yaml:"longport"`
	Limits          Limits   `yaml:"limits"`
}

func Default() Config {
	return Config{
		CronExpression:  "*/10 * * * * ?",
		Colorful:        true,
		Striped:         true,
		LogLevel:        "info",
		CycleTimeoutSec: 8,
		HTTP:            HTTP{TimeoutSec: 10},
		Longport: Longport{
			HTTPURL:             "https://openapi.longportapp.cn",
			OvernightFallback:   true,
			StaticCacheTTLSec:   3600,
			StaticCacheMaxItems: 5000,
		},
		Limits: Limits{
			MaxItemsPerRequest: 60,
			MaxConcurrency:     2,
		},
	}
}

// Entries parses the watch list.
func (c Config) Entries() []quote.WatchEntry {
	return quote.ParseWatchList(c.Stocks)
}

// Load reads YAML config from path. If path is empty or the file does not
// exist, it returns defaults. Environment variables override select fields.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("QUOTEWATCH_STOCKS"); v != "" {
		cfg.Stocks = v
	}
	if v := os.Getenv("QUOTEWATCH_CRON"); v != "" {
		cfg.CronExpression = v
	}
	if b, ok := envBool("QUOTEWATCH_SINA"); ok {
		cfg.Sina.Enabled = b
	}
	if b, ok := envBool("QUOTEWATCH_LONGPORT"); ok {
		cfg.Longport.Enabled = b
	}
	if v := os.Getenv("QUOTEWATCH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LONGPORT_APP_KEY"); v != "" {
		cfg.Longport.AppKey = v
	}
	if v := os.Getenv("LONGPORT_APP_SECRET"); v != "" {
		cfg.Longport.AppSecret = v
	}
	if v := os.Getenv("LONGPORT_ACCESS_TOKEN"); v != "" {
		cfg.Longport.AccessToken = v
	}
	if v := os.Getenv("LONGPORT_HTTP_URL"); v != "" {
		cfg.Longport.HTTPURL = v
	}
	if v := os.Getenv("HTTP_PROXY_ADDR"); v != "" {
		cfg.HTTP.Proxy = v
	}
	if x, ok := envInt("REQUEST_TIMEOUT_SEC"); ok && x > 0 {
		cfg.HTTP.TimeoutSec = x
	}
	if x, ok := envInt("QUOTEWATCH_MIN_INTERVAL_MS"); ok && x >= 0 {
		cfg.Limits.MinRequestIntervalMs = x
	}
	if x, ok := envInt("QUOTEWATCH_MAX_RPM"); ok && x >= 0 {
		cfg.Limits.MaxRequestsPerMinute = x
	}
	if x, ok := envInt("QUOTEWATCH_BURST"); ok && x > 0 {
		cfg.Limits.Burst = x
	}
	if x, ok := envInt("QUOTEWATCH_MAX_ITEMS_PER_REQUEST"); ok && x > 0 {
		cfg.Limits.MaxItemsPerRequest = x
	}
	if x, ok := envInt("QUOTEWATCH_MAX_CONCURRENCY"); ok && x > 0 {
		cfg.Limits.MaxConcurrency = x
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	x, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return x, true
}

func envBool(name string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y":
		return true, true
	case "0", "false", "no", "n":
		return false, true
	}
	return false, false
}
