package config

import (
	"errors"
	"fmt"

	"quotewatch/internal/keyring"
)

// ResolveCredentials fills missing Longport secrets from store. Secrets
// already set in cfg win. Missing secrets are not an error.
func ResolveCredentials(cfg Config, store keyring.Store) (Config, error) {
	if store == nil {
		return cfg, nil
	}
	var errs []error
	fill := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		v, err := store.Get(keyring.ServiceName, key)
		switch {
		case err == nil:
			*dst = v
		case errors.Is(err, keyring.ErrNotFound):
		default:
			errs = append(errs, fmt.Errorf("keyring %s: %w", key, err))
		}
	}
	fill(&cfg.Longport.AppKey, keyring.KeyAppKey)
	fill(&cfg.Longport.AppSecret, keyring.KeyAppSecret)
	fill(&cfg.Longport.AccessToken, keyring.KeyAccessToken)
	return cfg, errors.Join(errs...)
}
