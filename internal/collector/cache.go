package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"ForexLens/internal/model"
)

// CachingFetcher decorates a Fetcher with a Redis cache for daily series.
// Quotes always go to the inner fetcher.
type CachingFetcher struct {
	inner     Fetcher
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

// NewCachingFetcher wraps inner. If ttl is 0 it defaults to 1 hour; if
// namespace is empty it uses "forexlens".
func NewCachingFetcher(rdb *redis.Client, ttl time.Duration, inner Fetcher, namespace string) *CachingFetcher {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if namespace == "" {
		namespace = "forexlens"
	}
	return &CachingFetcher{inner: inner, rdb: rdb, ttl: ttl, namespace: namespace}
}

func (c *CachingFetcher) Name() string { return c.inner.Name() + "+redis" }

// FetchDailySeries checks the cache first and falls back to the inner fetcher.
func (c *CachingFetcher) FetchDailySeries(ctx context.Context, pair model.Pair) (*model.PriceSeries, error) {
	if c.rdb == nil {
		return c.inner.FetchDailySeries(ctx, pair)
	}
	key := c.cacheKey(pair)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var bars []model.Bar
		if err := json.Unmarshal(b, &bars); err == nil {
			if s, err := model.NewPriceSeries(pair, bars); err == nil {
				return s, nil
			}
		}
		// Corrupted entry.
		_ = c.rdb.Del(ctx, key).Err()
	}

	s, err := c.inner.FetchDailySeries(ctx, pair)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(s.Bars()); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}
	return s, nil
}

func (c *CachingFetcher) FetchQuote(ctx context.Context, pair model.Pair) (model.Quote, error) {
	return c.inner.FetchQuote(ctx, pair)
}

// Invalidate drops the cached series for a pair.
func (c *CachingFetcher) Invalidate(ctx context.Context, pair model.Pair) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, c.cacheKey(pair)).Err()
}

func (c *CachingFetcher) cacheKey(pair model.Pair) string {
	return fmt.Sprintf("%s:%s:daily:%s", c.namespace, safe(c.inner.Name()), safe(pair.FileKey()))
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
