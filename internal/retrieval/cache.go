// internal/retrieval/cache.go
package retrieval

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"rag-engine/internal/common/database"
	"rag-engine/internal/common/logger"
	"rag-engine/internal/common/metrics"
	"rag-engine/internal/models"
)

const cacheKeyPrefix = "retrieval:"

// CachedGateway adds a Redis cache-aside layer in front of another gateway.
// Cache trouble never fails a search; the inner gateway is the fallback.
type CachedGateway struct {
	inner  Gateway
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedGateway(inner Gateway, redisClient *database.RedisClient, ttl time.Duration, log logger.Logger) *CachedGateway {
	return &CachedGateway{
		inner:  inner,
		redis:  redisClient,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "retrieval-cache"}),
	}
}

func (g *CachedGateway) Search(ctx context.Context, query string, filters map[string]string, maxResults int) ([]models.Passage, error) {
	key := CacheKey(query, filters, maxResults)

	cached, err := g.redis.Get(ctx, key)
	switch {
	case err == nil:
		var passages []models.Passage
		if jsonErr := json.Unmarshal([]byte(cached), &passages); jsonErr == nil {
			metrics.RetrievalCacheEvents.WithLabelValues("hit").Inc()
			return passages, nil
		}
		g.logger.Warn("discarding corrupt cache entry", map[string]interface{}{"key": key})
		metrics.RetrievalCacheEvents.WithLabelValues("miss").Inc()
	case stderrors.Is(err, redis.Nil):
		metrics.RetrievalCacheEvents.WithLabelValues("miss").Inc()
	default:
		g.logger.Warn("cache read failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		metrics.RetrievalCacheEvents.WithLabelValues("error").Inc()
	}

	passages, err := g.inner.Search(ctx, query, filters, maxResults)
	if err != nil {
		return nil, err
	}

	if data, marshalErr := json.Marshal(passages); marshalErr == nil {
		if setErr := g.redis.Set(ctx, key, data, g.ttl); setErr != nil {
			g.logger.Warn("cache write failed", map[string]interface{}{
				"key":   key,
				"error": setErr.Error(),
			})
			metrics.RetrievalCacheEvents.WithLabelValues("write_error").Inc()
		}
	}

	return passages, nil
}

// CacheKey builds a deterministic key from the query, the filters in sorted
// key order, and the result bound.
func CacheKey(query string, filters map[string]string, maxResults int) string {
	parts := make([]string, 0, len(filters)+2)
	parts = append(parts, query)
	for _, k := range sortedKeys(filters) {
		parts = append(parts, k+"="+filters[k])
	}
	parts = append(parts, fmt.Sprintf("n=%d", maxResults))
	return cacheKeyPrefix + strings.Join(parts, "|")
}
