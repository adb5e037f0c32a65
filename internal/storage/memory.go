package storage

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// MemoryBackend keeps records in process memory. Records do not survive a
// restart, which makes it the backend of choice for tests and demos.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[string][]byte
}

var _ Backend = &MemoryBackend{}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: map[string][]byte{}}
}

func (b *MemoryBackend) Load(_ context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, errors.New("memory backend: key is empty")
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	value, ok := b.records[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (b *MemoryBackend) Save(_ context.Context, key string, value []byte) error {
	if key == "" {
		return errors.New("memory backend: key is empty")
	}
	b.mu.Lock()
	b.records[key] = append([]byte(nil), value...)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Close() error { return nil }
