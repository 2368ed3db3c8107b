package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/govairn/govairn-backend/internal/platform/logger"
	"github.com/govairn/govairn-backend/internal/platform/redis"
)

// CachedClient is a read-through cache in front of a Client. Cache failures
// degrade to direct reads.
type CachedClient struct {
	log   *logger.Logger
	inner Client
	cache redis.Cache
	ttl   time.Duration
}

func NewCachedClient(log *logger.Logger, inner Client, cache redis.Cache, ttl time.Duration) *CachedClient {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedClient{
		log:   log.With("service", "SnapshotCache"),
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}
}

func (c *CachedClient) Proposals(ctx context.Context, space, state string, first, skip int) ([]Proposal, error) {
	key := fmt.Sprintf("snapshot:proposals:%s:%s:%d:%d", space, state, first, skip)
	var out []Proposal
	if c.load(ctx, key, &out) {
		return out, nil
	}
	out, err := c.inner.Proposals(ctx, space, state, first, skip)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, out)
	return out, nil
}

func (c *CachedClient) Space(ctx context.Context, space string) (Space, error) {
	key := "snapshot:space:" + space
	var out Space
	if c.load(ctx, key, &out) {
		return out, nil
	}
	out, err := c.inner.Space(ctx, space)
	if err != nil {
		return Space{}, err
	}
	c.store(ctx, key, out)
	return out, nil
}

func (c *CachedClient) load(ctx context.Context, key string, dst any) bool {
	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warn("Snapshot cache read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.Warn("Snapshot cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func (c *CachedClient) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
		c.log.Warn("Snapshot cache write failed", "key", key, "error", err)
	}
}
