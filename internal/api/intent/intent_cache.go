package intent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/go-coffee-finder/app/observability/metrics"
	"github.com/FACorreiaa/go-coffee-finder/internal/types"
)

var _ Classifier = (*CachedClassifier)(nil)

const DefaultCacheTTL = 24 * time.Hour

// Clock returns the current time. Tests swap it to move time forward.
type Clock func() time.Time

type cacheEntry struct {
	intent   types.Intent
	storedAt time.Time
}

// CachedClassifier remembers classifications per normalized query for a TTL
// that is checked on read. Entries live for the process lifetime; there is
// no eviction besides being overwritten once stale.
type CachedClassifier struct {
	inner   Classifier
	entries *cache.Cache
	ttl     time.Duration
	now     Clock
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.AppMetrics
}

func NewCachedClassifier(inner Classifier, ttl time.Duration, now Clock, logger *slog.Logger, m *metrics.AppMetrics) *CachedClassifier {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now == nil {
		now = time.Now
	}
	return &CachedClassifier{
		inner:   inner,
		entries: cache.New(cache.NoExpiration, 0),
		ttl:     ttl,
		now:     now,
		logger:  logger,
		metrics: m,
	}
}

// NormalizeQuery is the cache key for a query.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

func (c *CachedClassifier) Classify(ctx context.Context, query string) types.Intent {
	key := NormalizeQuery(query)
	if intent, ok := c.lookup(key); ok {
		c.metrics.RecordIntentCache(ctx, true)
		c.logger.DebugContext(ctx, "Intent cache hit", slog.String("query", key), slog.String("intent", string(intent)))
		return intent
	}
	c.metrics.RecordIntentCache(ctx, false)

	// waiters share this result, so it outlives the first caller
	shared := context.WithoutCancel(ctx)
	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		if intent, ok := c.lookup(key); ok {
			return intent, nil
		}
		intent := c.inner.Classify(shared, query)
		c.entries.Set(key, cacheEntry{intent: intent, storedAt: c.now()}, cache.NoExpiration)
		return intent, nil
	})
	return v.(types.Intent)
}

func (c *CachedClassifier) lookup(key string) (types.Intent, bool) {
	v, ok := c.entries.Get(key)
	if !ok {
		return "", false
	}
	entry := v.(cacheEntry)
	if c.now().Sub(entry.storedAt) >= c.ttl {
		return "", false
	}
	return entry.intent, true
}
