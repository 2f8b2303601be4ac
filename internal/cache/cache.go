// Package cache stores completed workflow states keyed by image
// fingerprint: write-once per key, read many, so re-submitting an
// identical image is idempotent and never re-invokes a provider.
package cache

import (
	"context"
	"sync"
	"time"

	"labelscan/internal/workflow"
)

// Memory is an in-process TTL cache. Zero TTL means entries never expire.
type Memory struct {
	TTL time.Duration

	mu sync.RWMutex
	m  map[string]memoryEntry
}

type memoryEntry struct {
	st      *workflow.State
	expires time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{TTL: ttl, m: make(map[string]memoryEntry)}
}

func (c *Memory) Get(_ context.Context, key string) (*workflow.State, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, nil
	}
	return e.st.Clone(), nil
}

func (c *Memory) Put(_ context.Context, key string, st *workflow.State) error {
	var expires time.Time
	if c.TTL > 0 {
		expires = time.Now().Add(c.TTL)
	}
	c.mu.Lock()
	if _, exists := c.m[key]; !exists {
		c.m[key] = memoryEntry{st: st.Clone(), expires: expires}
	}
	c.mu.Unlock()
	return nil
}
