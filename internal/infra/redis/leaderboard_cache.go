// Package redis caches per-date leaderboards as JSON blobs. The cache
// is write-through from the verification pipeline, so a populated key
// is always a complete board for its date.
package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"review-game-service/internal/domain"
)

type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
	rnd    *rand.Rand
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Put replaces the cached board for a date. An empty board is cached
// too, so a date with no verified predictions does not hammer the
// database.
func (c *LeaderboardCache) Put(ctx context.Context, date string, entries []domain.LeaderboardEntry) error {
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(date), payload, c.ttlWithJitter()).Err()
}

// Get returns the cached board and whether the key was present. A
// decode failure is surfaced as an error so callers fall back to the
// store.
func (c *LeaderboardCache) Get(ctx context.Context, date string) ([]domain.LeaderboardEntry, bool, error) {
	payload, err := c.client.Get(ctx, c.key(date)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

func (c *LeaderboardCache) key(date string) string {
	return "leaderboard:" + date
}

func (c *LeaderboardCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
