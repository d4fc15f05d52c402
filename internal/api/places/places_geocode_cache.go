package places

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/valkey-io/valkey-go"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/go-coffee-finder/app/observability/metrics"
	"github.com/FACorreiaa/go-coffee-finder/internal/types"
)

// GeocodeCache stores resolved coordinates by normalized location text.
type GeocodeCache interface {
	Get(ctx context.Context, key string) (*types.Coordinate, bool, error)
	Set(ctx context.Context, key string, coord types.Coordinate, ttl time.Duration) error
}

var (
	_ GeocodeCache = (*MemoryGeocodeCache)(nil)
	_ GeocodeCache = (*ValkeyGeocodeCache)(nil)
	_ Client       = (*CachingClient)(nil)
)

// MemoryGeocodeCache keeps geocodes in process.
type MemoryGeocodeCache struct {
	cache *cache.Cache
}

func NewMemoryGeocodeCache(ttl time.Duration) *MemoryGeocodeCache {
	return &MemoryGeocodeCache{cache: cache.New(ttl, 10*time.Minute)}
}

func (m *MemoryGeocodeCache) Get(_ context.Context, key string) (*types.Coordinate, bool, error) {
	v, ok := m.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	coord := v.(types.Coordinate)
	return &coord, true, nil
}

func (m *MemoryGeocodeCache) Set(_ context.Context, key string, coord types.Coordinate, ttl time.Duration) error {
	m.cache.Set(key, coord, ttl)
	return nil
}

// ValkeyGeocodeCache shares geocodes between instances through Valkey.
type ValkeyGeocodeCache struct {
	client valkey.Client
	prefix string
}

func NewValkeyGeocodeCache(client valkey.Client, prefix string) *ValkeyGeocodeCache {
	if prefix == "" {
		prefix = "geocode"
	}
	return &ValkeyGeocodeCache{client: client, prefix: prefix}
}

func (v *ValkeyGeocodeCache) Get(ctx context.Context, key string) (*types.Coordinate, bool, error) {
	cmd := v.client.B().Get().Key(v.key(key)).Build()
	payload, err := v.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var coord types.Coordinate
	if err := json.Unmarshal([]byte(payload), &coord); err != nil {
		return nil, false, err
	}
	return &coord, true, nil
}

func (v *ValkeyGeocodeCache) Set(ctx context.Context, key string, coord types.Coordinate, ttl time.Duration) error {
	payload, err := json.Marshal(coord)
	if err != nil {
		return err
	}
	builder := v.client.B().Set().Key(v.key(key)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return v.client.Do(ctx, cmd).Error()
}

func (v *ValkeyGeocodeCache) key(k string) string {
	return fmt.Sprintf("%s:%s", v.prefix, k)
}

// CachingClient memoizes successful geocodes of the wrapped Client and
// collapses concurrent lookups of the same text. Misses and failures are
// not cached. Search and details pass straight through.
type CachingClient struct {
	Client
	cache   GeocodeCache
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.AppMetrics
}

func NewCachingClient(inner Client, c GeocodeCache, ttl time.Duration, logger *slog.Logger, m *metrics.AppMetrics) *CachingClient {
	return &CachingClient{
		Client:  inner,
		cache:   c,
		ttl:     ttl,
		logger:  logger,
		metrics: m,
	}
}

func geocodeKey(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func (c *CachingClient) Geocode(ctx context.Context, text string) (*types.Coordinate, error) {
	key := geocodeKey(text)
	coord, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "Geocode cache read failed", slog.String("location", text), slog.Any("error", err))
	}
	c.metrics.RecordGeocodeCache(ctx, ok)
	if ok {
		return coord, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		resolved, err := c.Client.Geocode(ctx, text)
		if err != nil || resolved == nil {
			return resolved, err
		}
		if err := c.cache.Set(ctx, key, *resolved, c.ttl); err != nil {
			c.logger.WarnContext(ctx, "Geocode cache write failed", slog.String("location", text), slog.Any("error", err))
		}
		return resolved, nil
	})
	if err != nil {
		return nil, err
	}
	resolved, _ := v.(*types.Coordinate)
	if resolved == nil {
		return nil, nil
	}
	out := *resolved
	return &out, nil
}
