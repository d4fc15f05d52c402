package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-coffee-finder/app/observability/metrics"
	"github.com/FACorreiaa/go-coffee-finder/internal/types"
)

var _ Client = (*SerpAPIClient)(nil)

// Client is the places provider used by discovery and location resolution.
type Client interface {
	SearchPlaces(ctx context.Context, query string, center *types.Coordinate, radiusMeters float64) ([]types.Shop, error)
	// PlaceDetails returns nil, nil when the provider has no such place.
	PlaceDetails(ctx context.Context, externalID string) (*types.Shop, error)
	// Geocode returns nil, nil when the text does not resolve to a point.
	Geocode(ctx context.Context, text string) (*types.Coordinate, error)
}

const (
	DefaultBaseURL = "https://serpapi.com"
	providerName   = "serpapi"
	searchPath     = "/search"
	engine         = "google_maps"

	minZoom = 3
	maxZoom = 21
)

type SerpAPIClient struct {
	client  *resty.Client
	apiKey  string
	logger  *slog.Logger
	metrics *metrics.AppMetrics
}

func NewSerpAPIClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger, m *metrics.AppMetrics) *SerpAPIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout).
		SetRetryCount(0)

	return &SerpAPIClient{
		client:  c,
		apiKey:  apiKey,
		logger:  logger,
		metrics: m,
	}
}

type gpsCoordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type localResult struct {
	PlaceID        string          `json:"place_id"`
	Title          string          `json:"title"`
	Address        string          `json:"address"`
	Latitude       *float64        `json:"latitude"`
	Longitude      *float64        `json:"longitude"`
	GPSCoordinates *gpsCoordinates `json:"gps_coordinates"`
	Rating         *float64        `json:"rating"`
	Reviews        int             `json:"reviews"`
	Price          string          `json:"price"`
	Type           string          `json:"type"`
	Types          []string        `json:"types"`
	Phone          string          `json:"phone"`
	Website        string          `json:"website"`
	Thumbnail      string          `json:"thumbnail"`
	Hours          json.RawMessage `json:"hours"`
}

type placePhoto struct {
	Image     string `json:"image"`
	Thumbnail string `json:"thumbnail"`
}

type placeResult struct {
	localResult
	Photos []placePhoto `json:"photos"`
}

type apiResponse struct {
	Error        string        `json:"error"`
	LocalResults []localResult `json:"local_results"`
	PlaceResults *placeResult  `json:"place_results"`
}

func (r localResult) placeTypes() []string {
	if len(r.Types) > 0 {
		return r.Types
	}
	if r.Type != "" {
		return []string{r.Type}
	}
	return nil
}

func (r localResult) coordinate() *types.Coordinate {
	if r.Latitude != nil && r.Longitude != nil {
		return &types.Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude}
	}
	if r.GPSCoordinates != nil {
		return &types.Coordinate{Latitude: r.GPSCoordinates.Latitude, Longitude: r.GPSCoordinates.Longitude}
	}
	return nil
}

// toShop translates a provider result into an unsaved shop.
func (r localResult) toShop(categories, photos []string) types.Shop {
	addr := ParseAddress(r.Address)
	shop := types.Shop{
		Name:        r.Title,
		Address:     addr.Street,
		City:        addr.City,
		State:       addr.State,
		ZipCode:     addr.Zip,
		Country:     "US",
		Phone:       optional(r.Phone),
		Website:     optional(r.Website),
		Rating:      r.Rating,
		ReviewCount: max(r.Reviews, 0),
		PriceLevel:  ParsePriceLevel(r.Price),
		Hours:       ParseHours(r.Hours),
		Categories:  categories,
		Photos:      photos,
	}
	if r.PlaceID != "" {
		id := r.PlaceID
		shop.GooglePlaceID = &id
	}
	if c := r.coordinate(); c != nil {
		shop.Latitude = &c.Latitude
		shop.Longitude = &c.Longitude
	}
	return shop
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func uniqueNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// zoomFor derives the google_maps zoom level from a radius in meters.
func zoomFor(radiusMeters float64) int {
	zoom := int(math.Floor(radiusMeters / 1000))
	return min(max(zoom, minZoom), maxZoom)
}

// noResults reports whether the provider error only means an empty result set.
func noResults(providerErr string) bool {
	return strings.Contains(strings.ToLower(providerErr), "hasn't returned any results")
}

func (c *SerpAPIClient) SearchPlaces(ctx context.Context, query string, center *types.Coordinate, radiusMeters float64) ([]types.Shop, error) {
	ctx, span := otel.Tracer("PlacesClient").Start(ctx, "SearchPlaces", trace.WithAttributes(
		attribute.String("query", query),
		attribute.Float64("radius.meters", radiusMeters),
	))
	defer span.End()

	params := map[string]string{
		"q":    strings.TrimSpace(query + " coffee shop"),
		"type": "search",
	}
	if center != nil {
		params["ll"] = fmt.Sprintf("@%f,%f,%dz", center.Latitude, center.Longitude, zoomFor(radiusMeters))
	}

	var out apiResponse
	if err := c.get(ctx, "search", params, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "places search failed")
		return nil, err
	}
	if out.Error != "" && !noResults(out.Error) {
		err := &types.ProviderError{Provider: providerName, Op: "search", Err: errors.New(out.Error)}
		span.RecordError(err)
		span.SetStatus(codes.Error, "places search rejected")
		return nil, err
	}

	shops := make([]types.Shop, 0, len(out.LocalResults))
	for _, r := range out.LocalResults {
		placeTypes := r.placeTypes()
		if !IsCoffeeRelated(placeTypes) {
			continue
		}
		shops = append(shops, r.toShop(ExtractCategories(placeTypes), uniqueNonEmpty([]string{r.Thumbnail})))
	}

	c.logger.DebugContext(ctx, "Places search completed",
		slog.String("query", query),
		slog.Int("results", len(out.LocalResults)),
		slog.Int("coffee_related", len(shops)))
	span.SetAttributes(attribute.Int("results.count", len(shops)))
	span.SetStatus(codes.Ok, "places search completed")
	return shops, nil
}

func (c *SerpAPIClient) PlaceDetails(ctx context.Context, externalID string) (*types.Shop, error) {
	ctx, span := otel.Tracer("PlacesClient").Start(ctx, "PlaceDetails", trace.WithAttributes(
		attribute.String("place.id", externalID),
	))
	defer span.End()

	var out apiResponse
	if err := c.get(ctx, "details", map[string]string{"place_id": externalID, "type": "place"}, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "place details failed")
		return nil, err
	}
	if out.Error != "" && !noResults(out.Error) {
		err := &types.ProviderError{Provider: providerName, Op: "details", Err: errors.New(out.Error)}
		span.RecordError(err)
		span.SetStatus(codes.Error, "place details rejected")
		return nil, err
	}
	if out.PlaceResults == nil {
		span.SetStatus(codes.Ok, "place not found")
		return nil, nil
	}

	p := out.PlaceResults
	photos := make([]string, 0, len(p.Photos))
	for _, ph := range p.Photos {
		photos = append(photos, ph.Image)
	}
	if p.PlaceID == "" {
		p.PlaceID = externalID
	}
	shop := p.toShop([]string{"Coffee Shop"}, uniqueNonEmpty(photos))

	span.SetStatus(codes.Ok, "place details found")
	return &shop, nil
}

func (c *SerpAPIClient) Geocode(ctx context.Context, text string) (*types.Coordinate, error) {
	ctx, span := otel.Tracer("PlacesClient").Start(ctx, "Geocode", trace.WithAttributes(
		attribute.String("location", text),
	))
	defer span.End()

	var out apiResponse
	if err := c.get(ctx, "geocode", map[string]string{"q": text, "type": "search"}, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "geocode failed")
		return nil, err
	}
	if out.Error != "" && !noResults(out.Error) {
		err := &types.ProviderError{Provider: providerName, Op: "geocode", Err: errors.New(out.Error)}
		span.RecordError(err)
		span.SetStatus(codes.Error, "geocode rejected")
		return nil, err
	}

	var coord *types.Coordinate
	switch {
	case out.PlaceResults != nil && out.PlaceResults.GPSCoordinates != nil:
		coord = &types.Coordinate{
			Latitude:  out.PlaceResults.GPSCoordinates.Latitude,
			Longitude: out.PlaceResults.GPSCoordinates.Longitude,
		}
	case len(out.LocalResults) > 0:
		coord = out.LocalResults[0].coordinate()
	}
	if coord == nil {
		c.logger.InfoContext(ctx, "Location did not geocode", slog.String("location", text))
		span.SetStatus(codes.Ok, "no coordinates")
		return nil, nil
	}

	span.SetAttributes(attribute.Float64("latitude", coord.Latitude), attribute.Float64("longitude", coord.Longitude))
	span.SetStatus(codes.Ok, "geocoded")
	return coord, nil
}

// get performs one bounded call against the search endpoint. Transport
// errors, non-2xx statuses and undecodable bodies come back as
// *types.ProviderError. No retries.
func (c *SerpAPIClient) get(ctx context.Context, op string, params map[string]string, out *apiResponse) error {
	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("engine", engine).
		SetQueryParam("api_key", c.apiKey).
		Get(searchPath)
	if err != nil {
		c.metrics.RecordExternalCall(ctx, providerName, op, time.Since(start), err)
		c.logger.WarnContext(ctx, "Places request failed", slog.String("op", op), slog.Any("error", err))
		return &types.ProviderError{Provider: providerName, Op: op, Err: err}
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		msg := strings.TrimSpace(resp.String())
		var body apiResponse
		if json.Unmarshal(resp.Body(), &body) == nil && body.Error != "" {
			msg = body.Error
		}
		err = &types.ProviderError{Provider: providerName, Op: op, StatusCode: resp.StatusCode(), Err: errors.New(msg)}
		c.metrics.RecordExternalCall(ctx, providerName, op, time.Since(start), err)
		c.logger.WarnContext(ctx, "Places provider returned an error status",
			slog.String("op", op), slog.Int("status", resp.StatusCode()))
		return err
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		err = &types.ProviderError{Provider: providerName, Op: op, Err: fmt.Errorf("decode response: %w", err)}
		c.metrics.RecordExternalCall(ctx, providerName, op, time.Since(start), err)
		return err
	}
	c.metrics.RecordExternalCall(ctx, providerName, op, time.Since(start), nil)
	return nil
}
