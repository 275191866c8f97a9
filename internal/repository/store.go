package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNoChange tells Update to keep the stored value as is.
var ErrNoChange = errors.New("no change")

// Load outcomes reported to a StoreObserver.
const (
	LoadResultHit     = "hit"
	LoadResultMiss    = "miss"
	LoadResultCorrupt = "corrupt"
	LoadResultError   = "error"
)

// StoreObserver receives timing for store operations.
type StoreObserver interface {
	ObserveStoreLoad(collection, result string, duration time.Duration)
	ObserveStoreSave(collection string, err error, duration time.Duration)
}

// Store serializes collections as JSON on top of a Backend.
//
// Load never fails: absent, unreadable or corrupt values resolve to the
// caller's default. Update only falls back for absent or corrupt values and
// refuses to write when the backend read fails. Read-modify-write cycles on
// the same key are serialized within the process by Update and Lock.
type Store struct {
	backend  Backend
	prefix   string
	logger   *zap.Logger
	observer StoreObserver

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewStore constructs a store. observer may be nil.
func NewStore(backend Backend, prefix string, logger *zap.Logger, observer StoreObserver) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend:  backend,
		prefix:   prefix,
		logger:   logger,
		observer: observer,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Save marshals value and overwrites key.
func (s *Store) Save(ctx context.Context, key string, value interface{}) error {
	start := time.Now()
	payload, err := json.Marshal(value)
	if err == nil {
		err = s.backend.Set(ctx, s.prefix+key, payload)
	}
	if s.observer != nil {
		s.observer.ObserveStoreSave(key, err, time.Since(start))
	}
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Remove clears key. Removing an absent key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.backend.Delete(ctx, s.prefix+key); err != nil && !errors.Is(err, ErrKeyNotFound) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// Lock acquires the write locks of keys in a fixed order and returns the release func.
func (s *Store) Lock(keys ...string) func() {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	held := make([]*sync.Mutex, 0, len(sorted))
	for i, key := range sorted {
		if i > 0 && sorted[i-1] == key {
			continue
		}
		m := s.keyLock(key)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

// Ping reports whether the backend answers reads. A missing probe key counts as healthy.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.backend.Get(ctx, s.prefix+"__ping"); err != nil && !errors.Is(err, ErrKeyNotFound) {
		return fmt.Errorf("ping store: %w", err)
	}
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	return m
}

// read returns the raw value of key. A nil slice with a nil error means absent.
func (s *Store) read(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	raw, err := s.backend.Get(ctx, s.prefix+key)
	switch {
	case errors.Is(err, ErrKeyNotFound):
		s.observeLoad(key, LoadResultMiss, start)
		return nil, nil
	case err != nil:
		s.observeLoad(key, LoadResultError, start)
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		s.observeLoad(key, LoadResultMiss, start)
		return nil, nil
	}
	s.observeLoad(key, LoadResultHit, start)
	return raw, nil
}

func (s *Store) corrupt(key string, err error) {
	s.logger.Warn("stored collection is corrupt, using default", zap.String("collection", key), zap.Error(err))
	if s.observer != nil {
		s.observer.ObserveStoreLoad(key, LoadResultCorrupt, 0)
	}
}

func (s *Store) observeLoad(key, result string, start time.Time) {
	if s.observer != nil {
		s.observer.ObserveStoreLoad(key, result, time.Since(start))
	}
}

// Load returns the value stored under key, or def when it is absent or cannot be decoded.
func Load[T any](ctx context.Context, s *Store, key string, def T) T {
	value, err := decode(ctx, s, key, def)
	if err != nil {
		s.logger.Warn("store read failed, using default", zap.String("collection", key), zap.Error(err))
		return def
	}
	return value
}

// decode is Load without the fallback for backend failures.
func decode[T any](ctx context.Context, s *Store, key string, def T) (T, error) {
	raw, err := s.read(ctx, key)
	if err != nil || raw == nil {
		return def, err
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		s.corrupt(key, err)
		return def, nil
	}
	return value, nil
}

// Update runs one read-modify-write cycle on key while holding its lock.
// fn receives the current value (or def) and returns the replacement.
// Returning ErrNoChange skips the write. A failed backend read aborts the
// cycle before fn runs.
func Update[T any](ctx context.Context, s *Store, key string, def T, fn func(T) (T, error)) (T, error) {
	unlock := s.Lock(key)
	defer unlock()

	current, err := decode(ctx, s, key, def)
	if err != nil {
		s.logger.Error("store read failed, update aborted", zap.String("collection", key), zap.Error(err))
		return def, err
	}
	next, err := fn(current)
	if errors.Is(err, ErrNoChange) {
		return current, nil
	}
	if err != nil {
		return current, err
	}
	if err := s.Save(ctx, key, next); err != nil {
		return current, err
	}
	return next, nil
}
