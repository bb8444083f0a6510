package di

import (
	"context"
	"sync"
	"time"

	"cnlgraph/application/ports"
	"cnlgraph/domain/schema"
)

// CachedSchemaStore caches the schema snapshot for a short TTL.
// Compilations pin the snapshot they start with either way, so a
// slightly stale cache only delays when new definitions become
// visible, it never mixes two schema versions in one compile.
type CachedSchemaStore struct {
	inner ports.SchemaStore
	ttl   time.Duration

	mu        sync.Mutex
	snap      *schema.Snapshot
	fetchedAt time.Time
}

// NewCachedSchemaStore wraps a schema store with a TTL cache.
func NewCachedSchemaStore(inner ports.SchemaStore, ttl time.Duration) *CachedSchemaStore {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedSchemaStore{inner: inner, ttl: ttl}
}

// LoadSnapshot returns the cached snapshot, refreshing it when stale.
func (c *CachedSchemaStore) LoadSnapshot(ctx context.Context) (*schema.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap != nil && time.Since(c.fetchedAt) < c.ttl {
		return c.snap, nil
	}

	snap, err := c.inner.LoadSnapshot(ctx)
	if err != nil {
		// A cyclic hierarchy or store failure must surface; serving the
		// stale snapshot would hide it.
		return nil, err
	}

	c.snap = snap
	c.fetchedAt = time.Now()
	return snap, nil
}

// Invalidate drops the cached snapshot.
func (c *CachedSchemaStore) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = nil
}
