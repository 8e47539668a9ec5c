package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"golang.org/x/net/html"

	"github.com/turtacn/fishlwr/internal/infrastructure/database/redis"
	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/fishlwr/internal/infrastructure/monitoring/prometheus"
)

// CachedFetcher serves raw bodies from a cache and falls through to next on
// a miss.  Concurrent misses for one URL share a single upstream fetch.
type CachedFetcher struct {
	next    RawFetcher
	cache   redis.Cache
	ttl     time.Duration
	logger  logging.Logger
	metrics *prometheus.PipelineMetrics
}

// NewCachedFetcher decorates next with cache.
func NewCachedFetcher(next RawFetcher, cache redis.Cache, ttl time.Duration, logger logging.Logger, metrics *prometheus.PipelineMetrics) *CachedFetcher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNopMetrics()
	}
	return &CachedFetcher{next: next, cache: cache, ttl: ttl, logger: logger, metrics: metrics}
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// FetchRaw returns the cached body for url, loading it on a miss.
func (c *CachedFetcher) FetchRaw(ctx context.Context, url string) ([]byte, error) {
	hit := true
	body, err := c.cache.GetOrLoad(ctx, cacheKey(url), c.ttl, func(ctx context.Context) ([]byte, error) {
		hit = false
		return c.next.FetchRaw(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	c.metrics.RecordCacheAccess("fetch", hit)
	if hit {
		c.logger.Debug("fetch served from cache", logging.String("url", url))
	}
	return body, nil
}

// Fetch is FetchRaw followed by Parse.
func (c *CachedFetcher) Fetch(ctx context.Context, url string) (*html.Node, error) {
	body, err := c.FetchRaw(ctx, url)
	if err != nil {
		return nil, err
	}
	return Parse(url, body)
}

//Personal.AI order the ending
