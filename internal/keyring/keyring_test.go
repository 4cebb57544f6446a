package keyring_test

import (
	"errors"
	"testing"

	"quotewatch/internal/keyring"
	"quotewatch/internal/keyring/keyringtest"
)

func TestEnvStore_EnvOverridesUnderlying(t *testing.T) {
	t.Setenv("LONGPORT_APP_SECRET", "from-env")
	under := keyringtest.New().
		Seed(keyring.KeyAppSecret, "from-keyring").
		Seed(keyring.KeyAppKey, "key-from-keyring")
	store := keyring.NewEnvStore(under)

	got, err := store.Get(keyring.ServiceName, keyring.KeyAppSecret)
	if err != nil || got != "from-env" {
		t.Errorf("Get(app secret) = %q, %v; want from-env", got, err)
	}
	got, err = store.Get(keyring.ServiceName, keyring.KeyAppKey)
	if err != nil || got != "key-from-keyring" {
		t.Errorf("Get(app key) = %q, %v; want key-from-keyring", got, err)
	}
	if _, err := store.Get(keyring.ServiceName, keyring.KeyAccessToken); !errors.Is(err, keyring.ErrNotFound) {
		t.Errorf("Get(access token) error = %v, want keyring.ErrNotFound", err)
	}

	if err := store.Set(keyring.ServiceName, keyring.KeyAccessToken, "tok"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, _ := under.Get(keyring.ServiceName, keyring.KeyAccessToken); v != "tok" {
		t.Errorf("underlying not written: %q", v)
	}
	if err := store.Delete(keyring.ServiceName, keyring.KeyAccessToken); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}
