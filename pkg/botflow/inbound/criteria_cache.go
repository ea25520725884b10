package inbound

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// CriteriaSource supplies the filter criteria for a delivery.
type CriteriaSource interface {
	Criteria(ctx context.Context) (FilterCriteria, error)
}

// CriteriaCache memoizes parsed filter criteria keyed by their raw
// comma-separated configuration. Entries are immutable.
type CriteriaCache struct {
	c *ristretto.Cache[string, FilterCriteria]
}

// NewCriteriaCache creates a cache holding up to maxEntries parsed criteria.
func NewCriteriaCache(maxEntries int64) (*CriteriaCache, error) {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, FilterCriteria]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create criteria cache: %w", err)
	}
	return &CriteriaCache{c: c}, nil
}

// Get returns the criteria for the raw lists, parsing them on a miss.
func (c *CriteriaCache) Get(chatIDs, userIDs string) FilterCriteria {
	key := chatIDs + "\x00" + userIDs
	if fc, ok := c.c.Get(key); ok {
		return fc
	}
	fc := ParseFilterCriteria(chatIDs, userIDs)
	c.c.Set(key, fc, 1)
	return fc
}

// Cached reports whether criteria for the raw lists are already cached.
func (c *CriteriaCache) Cached(chatIDs, userIDs string) bool {
	_, ok := c.c.Get(chatIDs + "\x00" + userIDs)
	return ok
}

// Wait blocks until pending writes are applied.
func (c *CriteriaCache) Wait() {
	c.c.Wait()
}

// Close releases the cache.
func (c *CriteriaCache) Close() {
	c.c.Close()
}

// StaticCriteria is a CriteriaSource over fixed raw id lists.
// When Cache is set, parsing goes through it.
type StaticCriteria struct {
	ChatIDs string
	UserIDs string
	Cache   *CriteriaCache
}

// Criteria implements CriteriaSource.
func (s StaticCriteria) Criteria(_ context.Context) (FilterCriteria, error) {
	if s.Cache != nil {
		return s.Cache.Get(s.ChatIDs, s.UserIDs), nil
	}
	return ParseFilterCriteria(s.ChatIDs, s.UserIDs), nil
}
