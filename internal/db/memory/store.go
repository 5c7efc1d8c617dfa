// Package memory is an in-process db.Store for local runs and tests without Redis.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"sync"
	"time"

	"github.com/kailas-cloud/citeflow/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type item struct {
	data    []byte
	expires time.Time
}

func (it item) expired(now time.Time) bool {
	return !it.expires.IsZero() && !now.Before(it.expires)
}

// Store keeps values in a map guarded by a RWMutex. Expired keys are dropped lazily.
type Store struct {
	mu    sync.RWMutex
	items map[string]item
	now   func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{items: make(map[string]item), now: time.Now}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close drops all keys.
func (s *Store) Close() {
	s.mu.Lock()
	s.items = make(map[string]item)
	s.mu.Unlock()
}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

func (s *Store) load(key string) ([]byte, bool) {
	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()
	if !ok || it.expired(s.now()) {
		return nil, false
	}
	return it.data, true
}

func (s *Store) store(key string, value []byte, ttl time.Duration) {
	it := item{data: slices.Clone(value)}
	if ttl > 0 {
		it.expires = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.items[key] = it
	s.mu.Unlock()
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := s.load(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return slices.Clone(data), nil
}

// Set stores a value at the given key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.store(key, value, 0)
	return nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.store(key, value, ttl)
	return nil
}

// JSONSet stores a whole JSON document. Only the root path is supported.
func (s *Store) JSONSet(_ context.Context, key, p string, data []byte) error {
	if p != "$" && p != "." {
		return &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("unsupported path %q", p)}
	}
	if !json.Valid(data) {
		return &db.Error{Op: db.OpJSONSet, Err: fmt.Errorf("invalid JSON")}
	}
	s.store(key, data, 0)
	return nil
}

// JSONGet returns the document. Without a path or with "." it is returned as stored;
// "$" wraps it in an array the way JSONPath results are returned by Redis.
func (s *Store) JSONGet(_ context.Context, key string, paths ...string) ([]byte, error) {
	data, ok := s.load(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	switch {
	case len(paths) == 0 || (len(paths) == 1 && paths[0] == "."):
		return slices.Clone(data), nil
	case len(paths) == 1 && paths[0] == "$":
		out := make([]byte, 0, len(data)+2)
		out = append(out, '[')
		out = append(out, data...)
		return append(out, ']'), nil
	default:
		return nil, &db.Error{Op: db.OpJSONGet, Err: fmt.Errorf("unsupported paths %v", paths)}
	}
}

// Del deletes a key.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Exists checks if a key exists.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.load(key)
	return ok, nil
}

// Expire sets TTL on a key. When nx=true, sets TTL only if the key has no expiry yet.
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	if !ok || it.expired(s.now()) {
		return nil
	}
	if nx && !it.expires.IsZero() {
		return nil
	}
	it.expires = s.now().Add(ttl)
	s.items[key] = it
	return nil
}

// Scan returns live keys matching a glob pattern, sorted.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k, it := range s.items {
		if it.expired(now) {
			continue
		}
		ok, err := path.Match(pattern, k)
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		if ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}
