package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-coffee-finder/app/observability/metrics"
	"github.com/FACorreiaa/go-coffee-finder/internal/api/places"
	"github.com/FACorreiaa/go-coffee-finder/internal/api/shop"
	"github.com/FACorreiaa/go-coffee-finder/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service backfills the shop store from the places provider. Discover and
// DiscoverByLocation never fail: provider and per-shop problems are reported
// in DiscoveryResult.Errors.
type Service interface {
	Discover(ctx context.Context, query string, center *types.Coordinate, radiusMeters float64) types.DiscoveryResult
	DiscoverByLocation(ctx context.Context, query, locationText string, radiusMeters float64) types.DiscoveryResult
	// Refresh returns nil, nil when the shop id is unknown.
	Refresh(ctx context.Context, id uuid.UUID) (*types.Shop, error)
}

type ServiceImpl struct {
	logger  *slog.Logger
	places  places.Client
	repo    shop.Repository
	now     func() time.Time
	metrics *metrics.AppMetrics
}

func NewServiceImpl(placesClient places.Client, repo shop.Repository, now func() time.Time, logger *slog.Logger, m *metrics.AppMetrics) *ServiceImpl {
	if now == nil {
		now = time.Now
	}
	return &ServiceImpl{
		logger:  logger,
		places:  placesClient,
		repo:    repo,
		now:     now,
		metrics: m,
	}
}

func newResult() types.DiscoveryResult {
	return types.DiscoveryResult{Errors: []string{}}
}

func (s *ServiceImpl) Discover(ctx context.Context, query string, center *types.Coordinate, radiusMeters float64) types.DiscoveryResult {
	ctx, span := otel.Tracer("DiscoveryService").Start(ctx, "Discover", trace.WithAttributes(
		attribute.String("query", query),
		attribute.Float64("radius.meters", radiusMeters),
		attribute.Bool("center.set", center != nil),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Discover"), slog.String("query", query))
	result := newResult()

	candidates, err := s.places.SearchPlaces(ctx, query, center, radiusMeters)
	if err != nil {
		l.ErrorContext(ctx, "Places search failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "places search failed")
		result.Errors = append(result.Errors, fmt.Sprintf("discovery service error: %v", err))
		s.metrics.RecordDiscovery(ctx, 0, 0, 1)
		return result
	}

	for _, candidate := range candidates {
		updated, err := s.store(ctx, candidate)
		if err != nil {
			l.WarnContext(ctx, "Failed to store discovered shop", slog.String("name", candidate.Name), slog.Any("error", err))
			result.Errors = append(result.Errors, fmt.Sprintf("error processing %s: %v", candidate.Name, err))
			continue
		}
		if updated {
			result.Updated++
		} else {
			result.Added++
		}
	}

	l.InfoContext(ctx, "Discovery completed",
		slog.Int("candidates", len(candidates)),
		slog.Int("added", result.Added),
		slog.Int("updated", result.Updated),
		slog.Int("errors", len(result.Errors)))
	span.SetAttributes(
		attribute.Int("shops.added", result.Added),
		attribute.Int("shops.updated", result.Updated),
		attribute.Int("shops.errors", len(result.Errors)),
	)
	span.SetStatus(codes.Ok, "discovery completed")
	s.metrics.RecordDiscovery(ctx, result.Added, result.Updated, len(result.Errors))
	return result
}

// store merges the candidate into its stored record when one exists and
// inserts it otherwise. It reports whether an existing record was updated.
func (s *ServiceImpl) store(ctx context.Context, candidate types.Shop) (bool, error) {
	now := s.now()

	var existing *types.Shop
	if externalID := candidate.ExternalID(); externalID != "" {
		var err error
		if existing, err = s.repo.GetByExternalID(ctx, externalID); err != nil {
			return false, err
		}
	}

	if existing != nil {
		merged := Merge(*existing, candidate)
		merged.LastSyncedAt = &now
		if _, err := s.repo.Upsert(ctx, merged); err != nil {
			return false, err
		}
		return true, nil
	}

	candidate.ID = uuid.Nil
	candidate.LastSyncedAt = &now
	if _, err := s.repo.Upsert(ctx, candidate); err != nil {
		return false, err
	}
	return false, nil
}

func (s *ServiceImpl) DiscoverByLocation(ctx context.Context, query, locationText string, radiusMeters float64) types.DiscoveryResult {
	ctx, span := otel.Tracer("DiscoveryService").Start(ctx, "DiscoverByLocation", trace.WithAttributes(
		attribute.String("query", query),
		attribute.String("location", locationText),
	))
	defer span.End()

	locationText = strings.TrimSpace(locationText)
	if locationText == "" {
		return s.Discover(ctx, query, nil, radiusMeters)
	}

	result := newResult()
	center, err := s.places.Geocode(ctx, locationText)
	if err != nil {
		s.logger.ErrorContext(ctx, "Geocoding failed", slog.String("location", locationText), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "geocode failed")
		result.Errors = append(result.Errors, fmt.Sprintf("discovery error: %v", err))
		s.metrics.RecordDiscovery(ctx, 0, 0, 1)
		return result
	}
	if center == nil {
		span.SetStatus(codes.Error, "location not found")
		result.Errors = append(result.Errors, fmt.Sprintf("no coordinates for location: %s", locationText))
		s.metrics.RecordDiscovery(ctx, 0, 0, 1)
		return result
	}

	result = s.Discover(ctx, query, center, radiusMeters)
	result.Location = center
	return result
}

func (s *ServiceImpl) Refresh(ctx context.Context, id uuid.UUID) (*types.Shop, error) {
	ctx, span := otel.Tracer("DiscoveryService").Start(ctx, "Refresh", trace.WithAttributes(
		attribute.String("shop.id", id.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Refresh"), slog.String("id", id.String()))

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load shop failed")
		return nil, fmt.Errorf("failed to load shop %s: %w", id, err)
	}
	if existing == nil {
		span.SetStatus(codes.Ok, "shop not found")
		return nil, nil
	}
	externalID := existing.ExternalID()
	if externalID == "" {
		l.DebugContext(ctx, "Shop has no external id, nothing to refresh")
		span.SetStatus(codes.Ok, "no external id")
		return existing, nil
	}

	details, err := s.places.PlaceDetails(ctx, externalID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "place details failed")
		return nil, fmt.Errorf("failed to fetch details for %s: %w", externalID, err)
	}
	if details == nil {
		l.InfoContext(ctx, "Provider has no match for shop", slog.String("place_id", externalID))
		span.SetStatus(codes.Ok, "provider has no match")
		return existing, nil
	}

	now := s.now()
	merged := Merge(*existing, *details)
	merged.LastSyncedAt = &now
	saved, err := s.repo.Upsert(ctx, merged)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return nil, fmt.Errorf("failed to save refreshed shop %s: %w", id, err)
	}

	l.InfoContext(ctx, "Shop refreshed")
	span.SetStatus(codes.Ok, "shop refreshed")
	return saved, nil
}
