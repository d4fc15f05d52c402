package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-coffee-finder/app/observability/metrics"
	"github.com/FACorreiaa/go-coffee-finder/internal/api/discovery"
	"github.com/FACorreiaa/go-coffee-finder/internal/api/intent"
	"github.com/FACorreiaa/go-coffee-finder/internal/api/shop"
	"github.com/FACorreiaa/go-coffee-finder/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	// Search runs the store-side radius search, backfilling from the places
	// provider when the store has too little around the center.
	Search(ctx context.Context, filters types.SearchFilters) (*types.SearchResult, error)
	// SearchLocal ranks stored shops by haversine distance computed in process.
	SearchLocal(ctx context.Context, filters types.SearchFilters) (*types.SearchResult, error)
	Autocomplete(ctx context.Context, query string, limit int, center *types.Coordinate) ([]types.AutocompleteSuggestion, error)
	// ResolveLocation returns nil when neither coordinates nor usable text is given.
	ResolveLocation(ctx context.Context, coords *types.Coordinate, locationText string) (*types.Coordinate, error)
}

type Config struct {
	CoverageThreshold   int
	DefaultRadiusMeters float64
	OverFetch           int
	DefaultLimit        int
	MaxLimit            int
}

func DefaultConfig() Config {
	return Config{
		CoverageThreshold:   10,
		DefaultRadiusMeters: types.DefaultRadiusMeters,
		OverFetch:           2,
		DefaultLimit:        types.DefaultLimit,
		MaxLimit:            types.MaxLimit,
	}
}

const (
	minAutocompleteQuery = 2
	maxAutocomplete      = 5
	defaultAutocomplete  = 10
	// localScanLimit caps how many boxed shops the in-process ranking reads.
	localScanLimit = 1000
)

const errMissingLocation = "Location-based search requires query and either location_string or GPS coordinates (lat/lng)"

type ServiceImpl struct {
	logger     *slog.Logger
	repo       shop.Repository
	classifier intent.Classifier
	discovery  discovery.Service
	geocoder   Geocoder
	cfg        Config
	metrics    *metrics.AppMetrics
}

func NewServiceImpl(repo shop.Repository, classifier intent.Classifier, discoverySvc discovery.Service, geocoder Geocoder, cfg Config, logger *slog.Logger, m *metrics.AppMetrics) *ServiceImpl {
	def := DefaultConfig()
	if cfg.CoverageThreshold <= 0 {
		cfg.CoverageThreshold = def.CoverageThreshold
	}
	if cfg.DefaultRadiusMeters <= 0 {
		cfg.DefaultRadiusMeters = def.DefaultRadiusMeters
	}
	if cfg.OverFetch <= 0 {
		cfg.OverFetch = def.OverFetch
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = max(def.MaxLimit, cfg.DefaultLimit)
	}
	return &ServiceImpl{
		logger:     logger,
		repo:       repo,
		classifier: classifier,
		discovery:  discoverySvc,
		geocoder:   geocoder,
		cfg:        cfg,
		metrics:    m,
	}
}

func (s *ServiceImpl) ResolveLocation(ctx context.Context, coords *types.Coordinate, locationText string) (*types.Coordinate, error) {
	resolver := ResolverFor(coords, locationText, s.geocoder)
	if resolver == nil {
		return nil, nil
	}
	return resolver.Resolve(ctx)
}

// prepare validates the filters and resolves the search center.
func (s *ServiceImpl) prepare(ctx context.Context, filters types.SearchFilters) (types.SearchFilters, types.Coordinate, error) {
	filters = filters.Normalize(s.cfg.DefaultLimit, s.cfg.MaxLimit)
	filters.Query = strings.TrimSpace(filters.Query)
	filters.LocationText = strings.TrimSpace(filters.LocationText)

	if filters.Query == "" || (filters.Coordinates == nil && filters.LocationText == "") {
		return filters, types.Coordinate{}, types.NewInputError(errMissingLocation)
	}
	if filters.RadiusMeters != nil && *filters.RadiusMeters < 0 {
		return filters, types.Coordinate{}, types.NewInputError("radius must not be negative")
	}

	center, err := s.ResolveLocation(ctx, filters.Coordinates, filters.LocationText)
	if err != nil {
		s.logger.WarnContext(ctx, "Location could not be resolved", slog.String("location", filters.LocationText), slog.Any("error", err))
		return filters, types.Coordinate{}, &types.InputError{Message: "Could not determine location", Err: err}
	}
	if center == nil {
		return filters, types.Coordinate{}, types.NewInputError("Could not determine location")
	}
	return filters, *center, nil
}

func (s *ServiceImpl) Search(ctx context.Context, filters types.SearchFilters) (*types.SearchResult, error) {
	ctx, span := otel.Tracer("SearchService").Start(ctx, "Search", trace.WithAttributes(
		attribute.String("query", filters.Query),
		attribute.String("location", filters.LocationText),
	))
	defer span.End()
	start := time.Now()

	filters, center, err := s.prepare(ctx, filters)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid search input")
		return nil, err
	}
	radius := filters.RadiusOr(s.cfg.DefaultRadiusMeters)
	span.SetAttributes(
		attribute.Float64("center.latitude", center.Latitude),
		attribute.Float64("center.longitude", center.Longitude),
		attribute.Float64("radius.meters", radius),
	)

	detected := s.classifier.Classify(ctx, filters.Query)
	span.SetAttributes(attribute.String("intent", string(detected)))

	var result *types.SearchResult
	if detected == types.IntentSpecific {
		result, err = s.searchSpecific(ctx, filters, center, radius)
	} else {
		result, err = s.searchArea(ctx, filters, center, radius)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, err
	}
	result.DetectedIntent = detected

	s.metrics.RecordSearch(ctx, string(result.SearchType), string(detected), time.Since(start))
	span.SetAttributes(attribute.Int("results.total", result.TotalCount))
	span.SetStatus(codes.Ok, "search completed")
	return result, nil
}

// backfill runs one discovery for the search area. Text locations go
// through DiscoverByLocation so the provider sees the user's wording.
func (s *ServiceImpl) backfill(ctx context.Context, filters types.SearchFilters, center types.Coordinate, radius float64) *types.DiscoveryResult {
	var res types.DiscoveryResult
	if filters.Coordinates == nil && filters.LocationText != "" {
		res = s.discovery.DiscoverByLocation(ctx, filters.Query, filters.LocationText, radius)
	} else {
		res = s.discovery.Discover(ctx, filters.Query, &center, radius)
	}
	if len(res.Errors) > 0 {
		s.logger.WarnContext(ctx, "Discovery reported errors", slog.Any("errors", res.Errors))
	}
	return &res
}

func (s *ServiceImpl) searchSpecific(ctx context.Context, filters types.SearchFilters, center types.Coordinate, radius float64) (*types.SearchResult, error) {
	l := s.logger.With(slog.String("method", "searchSpecific"), slog.String("query", filters.Query))

	shops, err := s.repo.FindNamedWithinRadius(ctx, filters.Query, center, radius)
	if err != nil {
		return nil, fmt.Errorf("failed to find named shops: %w", err)
	}

	var discovered *types.DiscoveryResult
	if len(shops) == 0 {
		l.InfoContext(ctx, "No stored match, running discovery")
		discovered = s.backfill(ctx, filters, center, radius)
		if shops, err = s.repo.FindNamedWithinRadius(ctx, filters.Query, center, radius); err != nil {
			return nil, fmt.Errorf("failed to find named shops after discovery: %w", err)
		}
	}

	page, hasMore := paginate(shops, filters.Offset, filters.Limit)
	return &types.SearchResult{
		Shops:      page,
		TotalCount: len(shops),
		HasMore:    hasMore,
		SearchType: types.SearchTypeSpecificShop,
		Discovery:  discovered,
	}, nil
}

func (s *ServiceImpl) searchArea(ctx context.Context, filters types.SearchFilters, center types.Coordinate, radius float64) (*types.SearchResult, error) {
	l := s.logger.With(slog.String("method", "searchArea"), slog.String("query", filters.Query))

	count, err := s.repo.CountWithinRadius(ctx, center, radius)
	if err != nil {
		return nil, fmt.Errorf("failed to count shops in area: %w", err)
	}

	var discovered *types.DiscoveryResult
	if count < s.cfg.CoverageThreshold {
		l.InfoContext(ctx, "Area coverage below threshold, running discovery",
			slog.Int("stored", count), slog.Int("threshold", s.cfg.CoverageThreshold))
		discovered = s.backfill(ctx, filters, center, radius)
	}

	// over-fetch from the start of the list so every page past the first stays reachable
	candidates, err := s.repo.FindWithinRadius(ctx, center, radius, (filters.Offset+filters.Limit)*s.cfg.OverFetch)
	if err != nil {
		return nil, fmt.Errorf("failed to find shops in area: %w", err)
	}

	filtered := applyFilters(candidates, filtersFor(filters))
	page, hasMore := paginate(filtered, filters.Offset, filters.Limit)
	return &types.SearchResult{
		Shops:      page,
		TotalCount: len(filtered),
		HasMore:    hasMore,
		SearchType: types.SearchTypeGeneralArea,
		Discovery:  discovered,
	}, nil
}

func (s *ServiceImpl) SearchLocal(ctx context.Context, filters types.SearchFilters) (*types.SearchResult, error) {
	ctx, span := otel.Tracer("SearchService").Start(ctx, "SearchLocal", trace.WithAttributes(
		attribute.String("query", filters.Query),
	))
	defer span.End()
	start := time.Now()

	filters, center, err := s.prepare(ctx, filters)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid search input")
		return nil, err
	}
	radius := filters.RadiusOr(s.cfg.DefaultRadiusMeters)
	detected := s.classifier.Classify(ctx, filters.Query)

	stored, err := s.repo.ListWithCoordinates(ctx, center, radius, localScanLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing shops failed")
		return nil, fmt.Errorf("failed to load shops: %w", err)
	}

	nearby := make([]types.ShopWithDistance, 0, len(stored))
	for _, st := range stored {
		c := st.Coordinate()
		if c == nil {
			continue
		}
		meters := shop.HaversineMeters(center, *c)
		if meters > radius {
			continue
		}
		nearby = append(nearby, types.ShopWithDistance{Shop: st, DistanceMeters: meters, DistanceKm: meters / 1000})
	}
	sort.SliceStable(nearby, func(i, j int) bool { return nearby[i].DistanceMeters < nearby[j].DistanceMeters })

	filtered := applyFilters(nearby, filtersFor(filters))
	page, hasMore := paginate(filtered, filters.Offset, filters.Limit)

	s.metrics.RecordSearch(ctx, string(types.SearchTypeLocalRadius), string(detected), time.Since(start))
	span.SetStatus(codes.Ok, "local search completed")
	return &types.SearchResult{
		Shops:          page,
		TotalCount:     len(filtered),
		HasMore:        hasMore,
		SearchType:     types.SearchTypeLocalRadius,
		DetectedIntent: detected,
	}, nil
}

func (s *ServiceImpl) Autocomplete(ctx context.Context, query string, limit int, center *types.Coordinate) ([]types.AutocompleteSuggestion, error) {
	ctx, span := otel.Tracer("SearchService").Start(ctx, "Autocomplete", trace.WithAttributes(
		attribute.String("query", query),
	))
	defer span.End()

	query = strings.TrimSpace(query)
	if len([]rune(query)) < minAutocompleteQuery {
		span.SetStatus(codes.Error, "query too short")
		return nil, types.NewInputError("Query must be at least 2 characters")
	}
	if center == nil {
		span.SetStatus(codes.Ok, "no center")
		return []types.AutocompleteSuggestion{}, nil
	}
	if limit <= 0 {
		limit = defaultAutocomplete
	}

	suggestions, err := s.repo.Autocomplete(ctx, query, *center, min(limit, maxAutocomplete))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "autocomplete failed")
		return nil, fmt.Errorf("failed to autocomplete: %w", err)
	}
	span.SetStatus(codes.Ok, "autocomplete completed")
	return suggestions, nil
}
