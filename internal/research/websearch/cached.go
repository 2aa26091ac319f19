package websearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/akolanti/ResearchAPI/internal/data/cache"
	"github.com/akolanti/ResearchAPI/internal/metrics"
	"github.com/akolanti/ResearchAPI/pkg/logger_i"
)

type cached struct {
	next   Searcher
	cache  cache.Cache
	ttl    time.Duration
	logger *logger_i.Logger
}

// WithCache serves repeated queries from c for ttl. Cache errors fall through to next.
func WithCache(next Searcher, c cache.Cache, ttl time.Duration) Searcher {
	return &cached{next: next, cache: c, ttl: ttl, logger: logger_i.NewLogger("WebSearchCache")}
}

func cacheKey(query string, k int) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return strconv.Itoa(k) + ":" + hex.EncodeToString(sum[:])
}

func (c *cached) Search(ctx context.Context, query string, k int) ([]Result, error) {
	log := c.logger.Ctx(ctx)
	key := cacheKey(query, k)

	var hit []Result
	found, err := c.cache.Get(ctx, key, &hit)
	if err != nil {
		log.Warn("Search cache read failed", "error", err)
	} else {
		metrics.CaptureCacheLookup("web_search", found)
		if found {
			log.Debug("Search cache hit", "query", query)
			return hit, nil
		}
	}

	results, err := c.next.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	if err = c.cache.Set(ctx, key, results, c.ttl); err != nil {
		log.Warn("Search cache write failed", "error", err)
	}
	return results, nil
}
