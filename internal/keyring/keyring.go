// Package keyring stores Longport secrets in the OS keyring.
package keyring

import (
	"errors"
	"os"

	gokeyring "github.com/zalando/go-keyring"
)

// ServiceName is the keyring service all secrets are stored under.
const ServiceName = "quotewatch"

// Secret keys.
const (
	KeyAppKey      = "longport_app_key"
	KeyAppSecret   = "longport_app_secret"
	KeyAccessToken = "longport_access_token"
)

// Keys lists every secret key in prompt order.
var Keys = []string{KeyAppKey, KeyAppSecret, KeyAccessToken}

// envByKey maps secret keys to the environment variables overriding them.
var envByKey = map[string]string{
	KeyAppKey:      "LONGPORT_APP_KEY",
	KeyAppSecret:   "LONGPORT_APP_SECRET",
	KeyAccessToken: "LONGPORT_ACCESS_TOKEN",
}

// ErrNotFound is returned when a secret is not stored.
var ErrNotFound = errors.New("secret not found")

// Store provides secure secret storage.
type Store interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// SystemStore implements Store using the system keyring.
type SystemStore struct{}

func NewSystemStore() *SystemStore {
	return &SystemStore{}
}

func (s *SystemStore) Get(service, key string) (string, error) {
	secret, err := gokeyring.Get(service, key)
	if err != nil {
		if errors.Is(err, gokeyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return secret, nil
}

func (s *SystemStore) Set(service, key, value string) error {
	return gokeyring.Set(service, key, value)
}

func (s *SystemStore) Delete(service, key string) error {
	err := gokeyring.Delete(service, key)
	if err != nil && errors.Is(err, gokeyring.ErrNotFound) {
		return nil
	}
	return err
}

// EnvStore wraps another Store and checks LONGPORT_* variables first, so
// headless runs need no keyring.
type EnvStore struct {
	underlying Store
}

func NewEnvStore(underlying Store) *EnvStore {
	return &EnvStore{underlying: underlying}
}

func (e *EnvStore) Get(service, key string) (string, error) {
	if name, ok := envByKey[key]; ok {
		if v := os.Getenv(name); v != "" {
			return v, nil
		}
	}
	return e.underlying.Get(service, key)
}

func (e *EnvStore) Set(service, key, value string) error {
	return e.underlying.Set(service, key, value)
}

func (e *EnvStore) Delete(service, key string) error {
	return e.underlying.Delete(service, key)
}
