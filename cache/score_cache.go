// Package cache provides a Redis-backed cache for listing results,
// invalidated whenever the catalog changes.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"scorelib/logger"
	"scorelib/model"
	"scorelib/repository"

	"github.com/redis/go-redis/v9"
)

const (
	listingPrefix = "scores:listing:"
	listingTTL    = 5 * time.Minute
)

// ScoreCache caches search results keyed by the normalized query. A nil
// *ScoreCache is valid and disables caching entirely, so the server runs
// identically without Redis.
type ScoreCache struct {
	client *redis.Client
}

// NewScoreCache wraps a connected Redis client.
func NewScoreCache(client *redis.Client) *ScoreCache {
	return &ScoreCache{client: client}
}

// listingKey normalizes a query into a cache key.
func listingKey(q repository.SearchQuery) string {
	filter := "any"
	if q.ACappella != nil {
		filter = fmt.Sprintf("%t", *q.ACappella)
	}
	return fmt.Sprintf("%sq=%s&a_cappella=%s", listingPrefix, q.Term, filter)
}

// GetListing returns the cached result for a query, or (nil, false) on miss.
func (c *ScoreCache) GetListing(ctx context.Context, q repository.SearchQuery) ([]*model.Score, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, listingKey(q)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("listing cache read failed", logger.ErrorField(err))
		}
		return nil, false
	}

	var scores []*model.Score
	if err := json.Unmarshal(data, &scores); err != nil {
		logger.Warn("listing cache entry corrupt, dropping", logger.ErrorField(err))
		c.client.Del(ctx, listingKey(q))
		return nil, false
	}
	return scores, true
}

// SetListing stores a search result with a short TTL.
func (c *ScoreCache) SetListing(ctx context.Context, q repository.SearchQuery, scores []*model.Score) {
	if c == nil || c.client == nil {
		return
	}

	data, err := json.Marshal(scores)
	if err != nil {
		logger.Warn("failed to marshal listing for cache", logger.ErrorField(err))
		return
	}
	if err := c.client.Set(ctx, listingKey(q), data, listingTTL).Err(); err != nil {
		logger.Warn("listing cache write failed", logger.ErrorField(err))
	}
}

// Invalidate drops every cached listing. Called after create and delete.
func (c *ScoreCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}

	iter := c.client.Scan(ctx, 0, listingPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("listing cache invalidation failed", logger.String("key", iter.Val()), logger.ErrorField(err))
		}
	}
	if err := iter.Err(); err != nil {
		logger.Warn("listing cache scan failed", logger.ErrorField(err))
	}
}
