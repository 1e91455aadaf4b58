package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Store is a process-wide, in-memory TTL cache that degrades to serving
// stale values when a refresh fails. Entries are created on first
// successful load, overwritten on every later success, and never deleted.
//
// Concurrent callers of the same key share a single in-flight refresh
// through singleflight, so at most one upstream round trip per key runs at
// a time.
type Store[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	sf      singleflight.Group

	// now is replaceable in tests.
	now func() time.Time
}

type entry[T any] struct {
	value     T
	fetchedAt time.Time
}

// NewStore creates an empty store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{
		entries: make(map[string]entry[T]),
		now:     time.Now,
	}
}

// Get returns the value for key, refreshing through load when the cached
// entry is missing or older than ttl.
//
// The boolean reports staleness: true means load failed and the previous
// value is being served past its freshness window. When load fails and no
// prior value exists, the zero value is returned along with the error.
func (s *Store[T]) Get(ctx context.Context, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, bool, error) {
	if v, ok := s.fresh(key, ttl); ok {
		return v, false, nil
	}

	res, err, _ := s.sf.Do(key, func() (interface{}, error) {
		// A concurrent flight may have refreshed the key while this
		// caller was waiting on the group.
		if v, ok := s.fresh(key, ttl); ok {
			return v, nil
		}

		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		s.put(key, v)
		return v, nil
	})

	if err != nil {
		if prev, ok := s.Peek(key); ok {
			return prev, true, err
		}
		var zero T
		return zero, false, err
	}

	return res.(T), false, nil
}

// Peek returns the cached value for key regardless of age.
func (s *Store[T]) Peek(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ent, ok := s.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	return ent.value, true
}

// Age returns how long ago the key was last successfully refreshed.
func (s *Store[T]) Age(key string) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ent, ok := s.entries[key]
	if !ok {
		return 0, false
	}
	return s.now().Sub(ent.fetchedAt), true
}

// Len returns the number of cached keys.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store[T]) fresh(key string, ttl time.Duration) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ent, ok := s.entries[key]
	if !ok || s.now().Sub(ent.fetchedAt) > ttl {
		var zero T
		return zero, false
	}
	return ent.value, true
}

func (s *Store[T]) put(key string, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry[T]{value: value, fetchedAt: s.now()}
}

// SetClock overrides the store's time source. Tests only.
func (s *Store[T]) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
