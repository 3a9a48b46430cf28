package provider

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"review-game-service/internal/app"
	"review-game-service/internal/domain"
)

// Cached wraps a provider with an expiring LRU, collapsing concurrent
// fetches for the same date into one upstream call. Snapshots are
// immutable once a session closes, so a short TTL only matters for
// same-day refreshes.
type Cached struct {
	inner app.MarketDataProvider
	cache *expirable.LRU[string, domain.MarketSnapshot]
	sf    singleflight.Group
}

func NewCached(inner app.MarketDataProvider, size int, ttl time.Duration) *Cached {
	if size <= 0 {
		size = 32
	}
	return &Cached{
		inner: inner,
		cache: expirable.NewLRU[string, domain.MarketSnapshot](size, nil, ttl),
	}
}

func (c *Cached) Snapshot(ctx context.Context, date string) (domain.MarketSnapshot, error) {
	if snapshot, ok := c.cache.Get(date); ok {
		return snapshot, nil
	}

	result, err, _ := c.sf.Do(date, func() (interface{}, error) {
		if snapshot, ok := c.cache.Get(date); ok {
			return snapshot, nil
		}
		snapshot, err := c.inner.Snapshot(ctx, date)
		if err != nil {
			return domain.MarketSnapshot{}, err
		}
		c.cache.Add(date, snapshot)
		return snapshot, nil
	})
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	return result.(domain.MarketSnapshot), nil
}
