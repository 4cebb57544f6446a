package refresh

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"quotewatch/internal/config"
	"quotewatch/internal/httpx"
	"quotewatch/internal/provider"
	"quotewatch/internal/provider/cache"
	"quotewatch/internal/provider/longport"
	"quotewatch/internal/provider/ratelimit"
	"quotewatch/internal/provider/sina"
	"quotewatch/internal/provider/tencent"
	"quotewatch/internal/quote"
)

// Factory builds the production adapters.
type Factory struct {
	Log zerolog.Logger
	// Sessions opens Longport sessions. Required for the Longport provider.
	Sessions longport.SessionFactory
}

var _ Builder = (*Factory)(nil)

func (f *Factory) Build(kind quote.Kind, settings func() config.Config, sink provider.Sink) (provider.Adapter, error) {
	cfg := settings()
	lim := cfg.Limits
	interval := time.Duration(lim.MinRequestIntervalMs) * time.Millisecond

	if kind == quote.Longport {
		if f.Sessions == nil {
			return nil, errors.New("longport: no session factory")
		}
		names := cache.New[string](time.Duration(cfg.Longport.StaticCacheTTLSec)*time.Second, cfg.Longport.StaticCacheMaxItems)
		lp := longport.New(longport.Config{
			Credentials:        func() longport.Credentials { return Credentials(settings()) },
			HTTPURL:            cfg.Longport.HTTPURL,
			OvernightFallback:  cfg.Longport.OvernightFallback,
			Names:              names,
			MaxItemsPerRequest: lim.MaxItemsPerRequest,
			MaxConcurrency:     lim.MaxConcurrency,
		}, f.Sessions, f.Log)
		fetcher := ratelimit.Wrap(lp, lim.MaxRequestsPerMinute, lim.Burst, interval)
		return provider.NewHandler(kind, fetcher, sink, f.Log, provider.WithCloser(lp.Close)), nil
	}

	hc, err := httpx.New(httpx.Options{
		Timeout: time.Duration(cfg.HTTP.TimeoutSec) * time.Second,
		Proxy:   cfg.HTTP.Proxy,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: http client: %w", kind, err)
	}
	if cfg.HTTP.UserAgent != "" {
		hc.UserAgent = cfg.HTTP.UserAgent
	}

	var fetcher provider.Fetcher
	switch kind {
	case quote.Sina:
		fetcher = sina.New(sina.Config{MaxItemsPerRequest: lim.MaxItemsPerRequest, MaxConcurrency: lim.MaxConcurrency}, hc, f.Log)
	default:
		fetcher = tencent.New(tencent.Config{MaxItemsPerRequest: lim.MaxItemsPerRequest, MaxConcurrency: lim.MaxConcurrency}, hc, f.Log)
	}
	fetcher = ratelimit.Wrap(fetcher, lim.MaxRequestsPerMinute, lim.Burst, interval)
	return provider.NewHandler(kind, fetcher, sink, f.Log, provider.WithStopper(hc.CloseIdleConnections)), nil
}

// Credentials extracts the Longport secrets from cfg.
func Credentials(cfg config.Config) longport.Credentials {
	return longport.Credentials{
		AppKey:      cfg.Longport.AppKey,
		AppSecret:   cfg.Longport.AppSecret,
		AccessToken: cfg.Longport.AccessToken,
	}
}
