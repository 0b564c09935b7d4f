package storage

import (
	"context"
	"sync"
)

// MemoryBackend is an in-process backend with an optional byte quota. It
// serves development runs without Redis and lets tests exercise the
// quota-eviction path deterministically.
type MemoryBackend struct {
	mu       sync.RWMutex
	data     map[string]string
	maxBytes int
}

// NewMemoryBackend creates a memory backend. maxBytes <= 0 means unlimited.
func NewMemoryBackend(maxBytes int) *MemoryBackend {
	return &MemoryBackend{
		data:     make(map[string]string),
		maxBytes: maxBytes,
	}
}

func (b *MemoryBackend) Get(ctx context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	val, ok := b.data[key]
	return val, ok, nil
}

func (b *MemoryBackend) Set(ctx context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxBytes > 0 {
		total := len(key) + len(value)
		for k, v := range b.data {
			if k == key {
				continue
			}
			total += len(k) + len(v)
		}
		if total > b.maxBytes {
			return ErrQuotaExceeded
		}
	}

	b.data[key] = value
	return nil
}

func (b *MemoryBackend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}
