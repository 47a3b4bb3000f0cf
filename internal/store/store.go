// Package store provides the key-value persistence primitive: JSON blobs
// addressed by string key, with no transactional guarantees across keys.
// The server backs it with Postgres; the CLIs use a local SQLite file.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Well-known keys. Everything the application persists lives under one of
// these.
const (
	KeyCurrentWeek   = "current_week"
	KeyActiveSession = "active_session"
	KeyHistory       = "workout_history"
	KeyActiveTab     = "active_tab"
)

// Store is the raw key-value primitive. Get returns found=false for a
// missing key; all other failures are I/O errors from the backing store.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// GetJSON reads and decodes a value. A missing key or a value that fails to
// parse both yield found=false; parse failures are logged and never surfaced
// as errors, so corrupt state degrades to "no data" instead of wedging the
// caller.
func GetJSON(ctx context.Context, s Store, log *slog.Logger, key string, v any) (bool, error) {
	data, found, err := s.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Warn("discarding corrupt stored value", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

// SetJSON encodes and writes a value.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := s.Set(ctx, key, data); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Memory is an in-memory Store used by tests and as a scratch backend.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Close() error { return nil }
