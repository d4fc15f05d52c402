package container

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	database "github.com/FACorreiaa/go-coffee-finder/app/db"
	"github.com/FACorreiaa/go-coffee-finder/app/observability/metrics"
	"github.com/FACorreiaa/go-coffee-finder/config"
	"github.com/FACorreiaa/go-coffee-finder/internal/api/discovery"
	"github.com/FACorreiaa/go-coffee-finder/internal/api/intent"
	"github.com/FACorreiaa/go-coffee-finder/internal/api/places"
	"github.com/FACorreiaa/go-coffee-finder/internal/api/search"
	"github.com/FACorreiaa/go-coffee-finder/internal/api/shop"
)

const geocodeKeyPrefix = "coffee-finder:geocode"

// Container holds all application dependencies
type Container struct {
	Config   *config.Config
	Logger   *slog.Logger
	DBConfig *database.DatabaseConfig
	Pool     *pgxpool.Pool
	Valkey   valkey.Client
	Metrics  *metrics.AppMetrics

	ShopRepository   shop.Repository
	DiscoveryService discovery.Service
	SearchService    search.Service

	ShopHandler      *shop.HandlerImpl
	DiscoveryHandler *discovery.HandlerImpl
	SearchHandler    *search.HandlerImpl
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(ctx, dbConfig, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	c := &Container{
		Config:   cfg,
		Logger:   logger,
		DBConfig: dbConfig,
		Pool:     pool,
		Metrics:  metrics.InitAppMetrics(cfg.Observability.ServiceName),
	}

	geocodeCache, err := c.geocodeCache()
	if err != nil {
		c.Close()
		return nil, err
	}

	// places provider, geocodes memoized
	serpClient := places.NewSerpAPIClient(cfg.Places.BaseURL, cfg.Places.APIKey, cfg.Places.Timeout, logger, c.Metrics)
	placesClient := places.NewCachingClient(serpClient, geocodeCache, cfg.Places.GeocodeCacheTTL, logger, c.Metrics)

	c.ShopRepository = shop.NewRepository(pool, logger)
	shopService := shop.NewServiceImpl(c.ShopRepository, logger)
	c.ShopHandler = shop.NewHandlerImpl(shopService, logger)

	c.DiscoveryService = discovery.NewServiceImpl(placesClient, c.ShopRepository, time.Now, logger, c.Metrics)
	c.DiscoveryHandler = discovery.NewHandlerImpl(c.DiscoveryService, cfg.Search.DiscoverRadius, logger)

	classifier := c.classifier(ctx)
	c.SearchService = search.NewServiceImpl(c.ShopRepository, classifier, c.DiscoveryService, placesClient, search.Config{
		CoverageThreshold:   cfg.Search.CoverageThreshold,
		DefaultRadiusMeters: cfg.Search.DefaultRadiusMeters,
		OverFetch:           cfg.Search.OverFetch,
		DefaultLimit:        cfg.Search.DefaultLimit,
		MaxLimit:            cfg.Search.MaxLimit,
	}, logger, c.Metrics)
	c.SearchHandler = search.NewHandlerImpl(c.SearchService, logger)

	return c, nil
}

func (c *Container) geocodeCache() (places.GeocodeCache, error) {
	vcfg := c.Config.Cache.Valkey
	if !vcfg.Enabled {
		return places.NewMemoryGeocodeCache(c.Config.Places.GeocodeCacheTTL), nil
	}
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{vcfg.Addr}})
	if err != nil {
		c.Logger.Error("Failed to connect to valkey", slog.String("addr", vcfg.Addr), slog.Any("error", err))
		return nil, err
	}
	c.Valkey = client
	c.Logger.Info("Geocode cache backed by valkey", slog.String("addr", vcfg.Addr))
	return places.NewValkeyGeocodeCache(client, geocodeKeyPrefix), nil
}

// classifier falls back to treating every query as general when no model
// is configured.
func (c *Container) classifier(ctx context.Context) intent.Classifier {
	generator, err := intent.NewGeminiGenerator(ctx, c.Config.LLM.APIKey, c.Config.LLM.Model)
	if err != nil {
		c.Logger.Warn("Intent classification disabled", slog.Any("error", err))
		return intent.GeneralClassifier{}
	}
	llm := intent.NewLLMClassifier(generator, c.Config.LLM.Timeout, c.Logger, c.Metrics)
	return intent.NewCachedClassifier(llm, c.Config.LLM.CacheTTL, time.Now, c.Logger, c.Metrics)
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Valkey != nil {
		c.Valkey.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}

// RunMigrations runs database migrations
func (c *Container) RunMigrations() error {
	return database.RunMigrations(c.DBConfig.ConnectionURL, c.Logger)
}
