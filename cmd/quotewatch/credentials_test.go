package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotewatch/internal/keyring"
	"quotewatch/internal/keyring/keyringtest"
)

// mockPasswordReader returns queued answers in order.
type mockPasswordReader struct {
	answers    []string
	err        error
	isTerminal bool
	reads      int
}

func (m *mockPasswordReader) ReadPassword() (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.reads >= len(m.answers) {
		return "", nil
	}
	v := m.answers[m.reads]
	m.reads++
	return v, nil
}

func (m *mockPasswordReader) IsTerminal() bool { return m.isTerminal }

func execCredentials(t *testing.T, opts credentialsOptions, args ...string) (string, error) {
	t.Helper()
	cmd := newCredentialsCmd(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCredentialsSet_StoresAllKeys(t *testing.T) {
	store := keyringtest.New()
	pw := &mockPasswordReader{answers: []string{"key", "secret", "token"}, isTerminal: true}

	out, err := execCredentials(t, credentialsOptions{store: store, passwordReader: pw}, "set")
	require.NoError(t, err)
	assert.Contains(t, out, "Credentials saved.")

	for key, want := range map[string]string{
		keyring.KeyAppKey:      "key",
		keyring.KeyAppSecret:   "secret",
		keyring.KeyAccessToken: "token",
	} {
		got, err := store.Get(keyring.ServiceName, key)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestCredentialsSet_RequiresTerminal(t *testing.T) {
	pw := &mockPasswordReader{isTerminal: false}
	_, err := execCredentials(t, credentialsOptions{store: keyringtest.New(), passwordReader: pw}, "set")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interactive terminal")
	assert.Zero(t, pw.reads)
}

func TestCredentialsSet_EmptyValueStoresNothing(t *testing.T) {
	store := keyringtest.New()
	pw := &mockPasswordReader{answers: []string{"key", ""}, isTerminal: true}

	_, err := execCredentials(t, credentialsOptions{store: store, passwordReader: pw}, "set")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "App secret cannot be empty")

	_, err = store.Get(keyring.ServiceName, keyring.KeyAppKey)
	assert.ErrorIs(t, err, keyring.ErrNotFound)
}

func TestCredentialsSet_StoreFailure(t *testing.T) {
	store := keyringtest.New().Fail(keyringtest.Set, errors.New("locked"))
	pw := &mockPasswordReader{answers: []string{"a", "b", "c"}, isTerminal: true}

	_, err := execCredentials(t, credentialsOptions{store: store, passwordReader: pw}, "set")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
}

func TestCredentialsStatus(t *testing.T) {
	store := keyringtest.New().Seed(keyring.KeyAppKey, "k")

	out, err := execCredentials(t, credentialsOptions{store: store, passwordReader: &mockPasswordReader{}}, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "App key:      set")
	assert.Contains(t, out, "App secret:   not set")
	assert.Contains(t, out, "Access token: not set")
}

func TestCredentialsDelete(t *testing.T) {
	store := keyringtest.New().
		Seed(keyring.KeyAppKey, "k").
		Seed(keyring.KeyAccessToken, "t")

	out, err := execCredentials(t, credentialsOptions{store: store, passwordReader: &mockPasswordReader{}}, "delete")
	require.NoError(t, err)
	assert.Contains(t, out, "Credentials removed.")
	for _, key := range keyring.Keys {
		_, err := store.Get(keyring.ServiceName, key)
		assert.ErrorIs(t, err, keyring.ErrNotFound)
	}

	_, err = execCredentials(t, credentialsOptions{store: keyringtest.New().Fail(keyringtest.Delete, errors.New("denied")), passwordReader: &mockPasswordReader{}}, "delete")
	require.Error(t, err)
}
