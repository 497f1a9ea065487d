package history

import (
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/qtc-mcp-server/internal/domain"
)

// RecentCache keeps the most recent evaluation records in memory.
type RecentCache struct {
	cache *lru.Cache[string, *domain.EvaluationRecord]
}

// NewRecentCache creates a cache holding up to size records.
func NewRecentCache(size int) (*RecentCache, error) {
	cache, err := lru.New[string, *domain.EvaluationRecord](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create recent cache: %w", err)
	}
	return &RecentCache{cache: cache}, nil
}

// Add stores record, evicting the least recently used record when full.
func (c *RecentCache) Add(record *domain.EvaluationRecord) {
	c.cache.Add(record.ID, record)
}

// Get returns the record with id.
func (c *RecentCache) Get(id string) (*domain.EvaluationRecord, bool) {
	return c.cache.Get(id)
}

// Recent returns up to limit records, newest CreatedAt first. Records created at the same
// instant keep most recently used first.
func (c *RecentCache) Recent(limit int) []*domain.EvaluationRecord {
	keys := c.cache.Keys()
	result := make([]*domain.EvaluationRecord, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if record, ok := c.cache.Peek(keys[i]); ok {
			result = append(result, record)
		}
	}
	slices.SortStableFunc(result, func(a, b *domain.EvaluationRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}

// Remove drops id from the cache.
func (c *RecentCache) Remove(id string) {
	c.cache.Remove(id)
}

// Len returns the number of cached records.
func (c *RecentCache) Len() int {
	return c.cache.Len()
}
