// Package schema reads table metadata from the database catalog and
// caches the rendered descriptions in memory with a fixed TTL.
package schema

import (
	"sync"
	"time"
)

// CacheTTL bounds how stale a cached table list or schema may be.
const CacheTTL = time.Hour

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache holds the table list and per-table schema text for one process.
// Entries are idempotently recomputable from the catalog, so last-write-wins
// under concurrency is acceptable; the mutex only keeps the maps coherent.
type Cache struct {
	mu      sync.Mutex
	now     func() time.Time
	tables  *entry[[]string]
	schemas map[string]entry[string]
}

func NewCache() *Cache {
	return &Cache{
		now:     time.Now,
		schemas: make(map[string]entry[string]),
	}
}

func (c *Cache) Tables() ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tables == nil || !c.now().Before(c.tables.expiresAt) {
		return nil, false
	}
	return c.tables.value, true
}

func (c *Cache) SetTables(tables []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = &entry[[]string]{value: tables, expiresAt: c.now().Add(CacheTTL)}
}

func (c *Cache) Schema(table string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cached, ok := c.schemas[table]
	if !ok || !c.now().Before(cached.expiresAt) {
		return "", false
	}
	return cached.value, true
}

func (c *Cache) SetSchema(table, schemaText string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas[table] = entry[string]{value: schemaText, expiresAt: c.now().Add(CacheTTL)}
}

// Clear drops the table list and every cached schema in one step.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables = nil
	c.schemas = make(map[string]entry[string])
}
