// Package ristretto provides an in-process read cache over the dedup store
// using dgraph-io/ristretto as L1.
package ristretto

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/birdwork/roost/internal/domain"
	"github.com/birdwork/roost/internal/domain/phase"
	"github.com/birdwork/roost/internal/port/dedup"
)

const entryCost = 64 // approximate bytes per cached key

// DedupCache layers an L1 cache over a durable dedup.Store. Only positive
// lookups are cached: an acted-upon key never becomes un-acted, so a hit can
// live for the full TTL without invalidation. Misses always fall through.
type DedupCache struct {
	next  dedup.Store
	cache *ristretto.Cache[string, bool]
	ttl   time.Duration
}

// NewDedupCache wraps the given store. maxCostBytes bounds the total cache
// size; ttl bounds entry lifetime (0 means no expiry).
func NewDedupCache(next dedup.Store, maxCostBytes int64, ttl time.Duration) (*DedupCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, bool]{
		NumCounters: maxCostBytes / entryCost * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create dedup cache: %w", err)
	}
	return &DedupCache{next: next, cache: c, ttl: ttl}, nil
}

func cacheKey(accountID, contentID string, kind phase.ActionKind) string {
	return accountID + "\x00" + contentID + "\x00" + string(kind)
}

// HasActed implements dedup.Store.
func (d *DedupCache) HasActed(ctx context.Context, accountID, contentID string, kind phase.ActionKind) (bool, error) {
	key := cacheKey(accountID, contentID, kind)
	if acted, found := d.cache.Get(key); found && acted {
		return true, nil
	}

	acted, err := d.next.HasActed(ctx, accountID, contentID, kind)
	if err != nil {
		return false, err
	}
	if acted {
		d.cache.SetWithTTL(key, true, entryCost, d.ttl)
	}
	return acted, nil
}

// RecordAction implements dedup.Store. The key is cached after the durable
// write succeeds, and also on a lost race, since either way the key is acted.
func (d *DedupCache) RecordAction(ctx context.Context, rec dedup.Record) error {
	err := d.next.RecordAction(ctx, rec)
	if err == nil || errors.Is(err, domain.ErrDuplicateAction) {
		d.cache.SetWithTTL(cacheKey(rec.AccountID, rec.ContentID, rec.Kind), true, entryCost, d.ttl)
	}
	return err
}

// Close releases the cache's resources.
func (d *DedupCache) Close() {
	d.cache.Close()
}
