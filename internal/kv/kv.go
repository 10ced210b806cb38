// Package kv provides the small key/value store used for preferences,
// feature flags and vote counters.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// ErrNotCounter is returned by Incr when the value at key is not an integer.
var ErrNotCounter = errors.New("not a counter")

// Store reads and writes string values by key.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Incrementer is implemented by stores that can add to a counter atomically.
type Incrementer interface {
	Incr(ctx context.Context, key string, delta int64) (int64, error)
}

// Incr adds delta to the integer counter at key and returns the new value.
// Stores without native support fall back to read-modify-write.
func Incr(ctx context.Context, s Store, key string, delta int64) (int64, error) {
	if inc, ok := s.(Incrementer); ok {
		return inc.Incr(ctx, key, delta)
	}

	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	var n int64
	if ok && raw != "" {
		n, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value at %q: %w", key, ErrNotCounter)
		}
	}
	n += delta
	if err := s.Set(ctx, key, strconv.FormatInt(n, 10)); err != nil {
		return 0, err
	}
	return n, nil
}

// Memory is an in-process Store.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Incr(_ context.Context, key string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	if raw, ok := m.values[key]; ok && raw != "" {
		var err error
		n, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value at %q: %w", key, ErrNotCounter)
		}
	}
	n += delta
	m.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}
