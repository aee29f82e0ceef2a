// Package cache keeps the compiled loader statements of a persister.
package cache

import (
	"fmt"
	"sync"

	"github.com/satishbabariya/ormcore/internal/core/loader/domain"
	"github.com/satishbabariya/ormcore/internal/debug"
)

// Key identifies a statement: entity, strategy and, for the inline strategy,
// the number of placeholders.
type Key struct {
	Entity string
	Kind   domain.StrategyKind
	Size   int
}

// String implements fmt.Stringer.
func (k Key) String() string {
	if k.Kind == domain.SingleArrayParameter {
		return fmt.Sprintf("%s:%s", k.Entity, k.Kind)
	}
	return fmt.Sprintf("%s:%s:%d", k.Entity, k.Kind, k.Size)
}

// Stats represents cache statistics.
type Stats struct {
	Hits   int64
	Misses int64
	Builds int64
	Size   int
}

// HitRate returns hits / (hits + misses), or 0 before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// BuildFunc compiles a statement on a cache miss.
type BuildFunc func() (domain.LoaderStatement, error)

// StatementCache stores statements for the lifetime of a persister. Entries
// are never evicted: there is at most one per distinct batch size.
type StatementCache struct {
	mu         sync.RWMutex
	statements map[Key]domain.LoaderStatement
	stats      Stats
}

// NewStatementCache creates an empty cache.
func NewStatementCache() *StatementCache {
	return &StatementCache{
		statements: make(map[Key]domain.LoaderStatement),
	}
}

// Get retrieves a statement from the cache.
func (c *StatementCache) Get(key Key) (domain.LoaderStatement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stmt, ok := c.statements[key]
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	return stmt, ok
}

// GetOrBuild returns the cached statement for key, building it at most once.
// Failed builds are not cached.
func (c *StatementCache) GetOrBuild(key Key, build BuildFunc) (domain.LoaderStatement, error) {
	c.mu.RLock()
	stmt, ok := c.statements[key]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.stats.Hits++
		c.mu.Unlock()
		return stmt, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if stmt, ok := c.statements[key]; ok {
		c.stats.Hits++
		return stmt, nil
	}
	c.stats.Misses++

	stmt, err := build()
	if err != nil {
		return domain.LoaderStatement{}, err
	}
	c.statements[key] = stmt
	c.stats.Builds++
	debug.Debug("Built loader statement", "key", key.String(), "sql", stmt.SQL)
	return stmt, nil
}

// Len returns the number of cached statements.
func (c *StatementCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.statements)
}

// Clear removes all statements. Counters are kept.
func (c *StatementCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statements = make(map[Key]domain.LoaderStatement)
}

// GetStats returns cache statistics.
func (c *StatementCache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.Size = len(c.statements)
	return stats
}
