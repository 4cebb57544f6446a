// Package keyringtest provides an in-memory keyring.Store for tests.
package keyringtest

import (
	"sync"

	"quotewatch/internal/keyring"
)

// Op names a Store method for failure injection.
type Op int

const (
	Get Op = iota
	Set
	Delete
)

type entry struct{ service, key string }

// Store keeps secrets in a map. Failures injected with Fail are returned
// by every later call of that method.
type Store struct {
	mu      sync.Mutex
	secrets map[entry]string
	fail    map[Op]error
}

var _ keyring.Store = (*Store)(nil)

func New() *Store {
	return &Store{secrets: make(map[entry]string), fail: make(map[Op]error)}
}

// Seed stores a Longport secret under keyring.ServiceName.
func (s *Store) Seed(key, value string) *Store {
	s.mu.Lock()
	s.secrets[entry{keyring.ServiceName, key}] = value
	s.mu.Unlock()
	return s
}

// Fail makes op return err.
func (s *Store) Fail(op Op, err error) *Store {
	s.mu.Lock()
	s.fail[op] = err
	s.mu.Unlock()
	return s
}

// Len is the number of stored secrets.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.secrets)
}

func (s *Store) Get(service, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[Get]; err != nil {
		return "", err
	}
	v, ok := s.secrets[entry{service, key}]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(service, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[Set]; err != nil {
		return err
	}
	s.secrets[entry{service, key}] = value
	return nil
}

func (s *Store) Delete(service, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[Delete]; err != nil {
		return err
	}
	delete(s.secrets, entry{service, key})
	return nil
}
