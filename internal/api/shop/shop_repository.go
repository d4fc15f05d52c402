package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-coffee-finder/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// Repository is the coffee shop store. Radius queries rely on PostGIS and
// return rows sorted by ascending distance.
type Repository interface {
	// GetByID returns nil, nil when the shop does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*types.Shop, error)
	// GetByExternalID returns nil, nil when no shop carries the place id.
	GetByExternalID(ctx context.Context, googlePlaceID string) (*types.Shop, error)
	Upsert(ctx context.Context, shop types.Shop) (*types.Shop, error)
	TextSearch(ctx context.Context, filters types.SearchFilters) ([]types.Shop, int, error)
	CountWithinRadius(ctx context.Context, center types.Coordinate, radiusMeters float64) (int, error)
	FindWithinRadius(ctx context.Context, center types.Coordinate, radiusMeters float64, limit int) ([]types.ShopWithDistance, error)
	FindNamedWithinRadius(ctx context.Context, name string, center types.Coordinate, radiusMeters float64) ([]types.ShopWithDistance, error)
	// ListWithCoordinates returns geocoded shops inside the bounding box of the
	// circle, nearest first by planar degrees. Callers refine by exact distance.
	ListWithCoordinates(ctx context.Context, center types.Coordinate, radiusMeters float64, limit int) ([]types.Shop, error)
	Autocomplete(ctx context.Context, query string, center types.Coordinate, limit int) ([]types.AutocompleteSuggestion, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	db     DB
}

func NewRepository(db DB, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		db:     db,
	}
}

const shopColumns = `id, google_place_id, name, address, city, state, zip_code, country,
	latitude, longitude, phone, website, email, rating, review_count, price_level,
	hours, categories, photos, created_at, updated_at, last_synced_at`

// centerPoint expects $1 = longitude and $2 = latitude.
const centerPoint = `ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography`

type scanner interface {
	Scan(dest ...any) error
}

func scanShop(row scanner, extra ...any) (types.Shop, error) {
	var s types.Shop
	var hours []byte
	dest := []any{
		&s.ID, &s.GooglePlaceID, &s.Name, &s.Address, &s.City, &s.State, &s.ZipCode, &s.Country,
		&s.Latitude, &s.Longitude, &s.Phone, &s.Website, &s.Email, &s.Rating, &s.ReviewCount, &s.PriceLevel,
		&hours, &s.Categories, &s.Photos, &s.CreatedAt, &s.UpdatedAt, &s.LastSyncedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return types.Shop{}, err
	}
	if len(hours) > 0 {
		if err := json.Unmarshal(hours, &s.Hours); err != nil {
			return types.Shop{}, fmt.Errorf("failed to decode hours: %w", err)
		}
	}
	return s, nil
}

func hoursJSON(h types.Hours) ([]byte, error) {
	if h == nil {
		return nil, nil
	}
	return json.Marshal(h)
}

// arrayUnion merges a text[] column on conflict, stored elements first, keeping
// first-seen order and dropping duplicates.
func arrayUnion(column string) string {
	return fmt.Sprintf(`ARRAY(
					SELECT e FROM unnest(coffee_shops.%[1]s || EXCLUDED.%[1]s) WITH ORDINALITY AS u(e, n)
					GROUP BY e ORDER BY MIN(n))`, column)
}

// likePattern builds a case-insensitive contains pattern with LIKE
// metacharacters escaped.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "failed to "+op)
	return &types.PersistenceError{Op: op, Err: err}
}

func (r *RepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*types.Shop, error) {
	ctx, span := otel.Tracer("ShopRepository").Start(ctx, "GetByID", trace.WithAttributes(
		attribute.String("shop.id", id.String()),
	))
	defer span.End()

	query := `SELECT ` + shopColumns + ` FROM coffee_shops WHERE id = $1`
	s, err := scanShop(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "shop not found")
			return nil, nil
		}
		return nil, fail(span, "get shop by id", err)
	}
	span.SetStatus(codes.Ok, "shop found")
	return &s, nil
}

func (r *RepositoryImpl) GetByExternalID(ctx context.Context, googlePlaceID string) (*types.Shop, error) {
	ctx, span := otel.Tracer("ShopRepository").Start(ctx, "GetByExternalID", trace.WithAttributes(
		attribute.String("place.id", googlePlaceID),
	))
	defer span.End()

	query := `SELECT ` + shopColumns + ` FROM coffee_shops WHERE google_place_id = $1`
	s, err := scanShop(r.db.QueryRow(ctx, query, googlePlaceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "shop not found")
			return nil, nil
		}
		return nil, fail(span, "get shop by google place id", err)
	}
	span.SetStatus(codes.Ok, "shop found")
	return &s, nil
}

// Upsert inserts a shop without an id and updates one that has it. An insert
// that collides on google_place_id turns into an update of the existing row,
// so two concurrent discoveries of the same place cannot create duplicates.
func (r *RepositoryImpl) Upsert(ctx context.Context, shop types.Shop) (*types.Shop, error) {
	ctx, span := otel.Tracer("ShopRepository").Start(ctx, "Upsert", trace.WithAttributes(
		attribute.String("shop.name", shop.Name),
		attribute.Bool("shop.new", shop.ID == uuid.Nil),
	))
	defer span.End()

	if err := shop.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid shop")
		return nil, err
	}
	if shop.Country == "" {
		shop.Country = "US"
	}
	if shop.Categories == nil {
		shop.Categories = []string{}
	}
	if shop.Photos == nil {
		shop.Photos = []string{}
	}
	hours, err := hoursJSON(shop.Hours)
	if err != nil {
		return nil, fail(span, "encode hours", err)
	}

	args := []any{
		shop.GooglePlaceID, shop.Name, shop.Address, shop.City, shop.State, shop.ZipCode, shop.Country,
		shop.Latitude, shop.Longitude, shop.Phone, shop.Website, shop.Email, shop.Rating, shop.ReviewCount,
		shop.PriceLevel, hours, shop.Categories, shop.Photos, shop.LastSyncedAt,
	}

	var query string
	if shop.ID == uuid.Nil {
		query = `
			INSERT INTO coffee_shops (
				google_place_id, name, address, city, state, zip_code, country,
				latitude, longitude, phone, website, email, rating, review_count,
				price_level, hours, categories, photos, last_synced_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
			ON CONFLICT (google_place_id) DO UPDATE SET
				name           = EXCLUDED.name,
				address        = COALESCE(NULLIF(EXCLUDED.address, ''), coffee_shops.address),
				city           = COALESCE(NULLIF(EXCLUDED.city, ''), coffee_shops.city),
				state          = COALESCE(NULLIF(EXCLUDED.state, ''), coffee_shops.state),
				zip_code       = COALESCE(NULLIF(EXCLUDED.zip_code, ''), coffee_shops.zip_code),
				latitude       = COALESCE(EXCLUDED.latitude, coffee_shops.latitude),
				longitude      = COALESCE(EXCLUDED.longitude, coffee_shops.longitude),
				phone          = COALESCE(EXCLUDED.phone, coffee_shops.phone),
				website        = COALESCE(EXCLUDED.website, coffee_shops.website),
				email          = COALESCE(EXCLUDED.email, coffee_shops.email),
				rating         = COALESCE(EXCLUDED.rating, coffee_shops.rating),
				review_count   = GREATEST(EXCLUDED.review_count, coffee_shops.review_count),
				price_level    = COALESCE(EXCLUDED.price_level, coffee_shops.price_level),
				hours          = COALESCE(EXCLUDED.hours, coffee_shops.hours),
				categories     = ` + arrayUnion("categories") + `,
				photos         = ` + arrayUnion("photos") + `,
				last_synced_at = EXCLUDED.last_synced_at,
				updated_at     = NOW()
			RETURNING ` + shopColumns
	} else {
		query = `
			UPDATE coffee_shops SET
				google_place_id = $1, name = $2, address = $3, city = $4, state = $5, zip_code = $6,
				country = $7, latitude = $8, longitude = $9, phone = $10, website = $11, email = $12,
				rating = $13, review_count = $14, price_level = $15, hours = $16, categories = $17,
				photos = $18, last_synced_at = $19, updated_at = NOW()
			WHERE id = $20
			RETURNING ` + shopColumns
		args = append(args, shop.ID)
	}

	saved, err := scanShop(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = fmt.Errorf("shop %s: %w", shop.ID, types.ErrNotFound)
		}
		return nil, fail(span, "upsert shop", err)
	}

	r.logger.DebugContext(ctx, "Shop saved", slog.String("id", saved.ID.String()), slog.String("name", saved.Name))
	span.SetAttributes(attribute.String("shop.id", saved.ID.String()))
	span.SetStatus(codes.Ok, "shop saved")
	return &saved, nil
}

// TextSearch filters the whole store without any location constraint,
// ordered by rating. Rating and price bounds let shops without the field through.
func (r *RepositoryImpl) TextSearch(ctx context.Context, filters types.SearchFilters) ([]types.Shop, int, error) {
	ctx, span := otel.Tracer("ShopRepository").Start(ctx, "TextSearch", trace.WithAttributes(
		attribute.String("query", filters.Query),
		attribute.Int("limit", filters.Limit),
		attribute.Int("offset", filters.Offset),
	))
	defer span.End()

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		p := arg(likePattern(q))
		where = append(where, fmt.Sprintf("(name ILIKE %[1]s OR address ILIKE %[1]s OR city ILIKE %[1]s)", p))
	}
	if filters.MinRating != nil {
		where = append(where, "(rating IS NULL OR rating >= "+arg(*filters.MinRating)+")")
	}
	if filters.MaxRating != nil {
		where = append(where, "(rating IS NULL OR rating <= "+arg(*filters.MaxRating)+")")
	}
	if len(filters.PriceLevels) > 0 {
		where = append(where, "(price_level IS NULL OR price_level = ANY("+arg(filters.PriceLevels)+"))")
	}
	if len(filters.Categories) > 0 {
		where = append(where, "categories && "+arg(filters.Categories))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM coffee_shops`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fail(span, "count text search results", err)
	}

	query := `SELECT ` + shopColumns + ` FROM coffee_shops` + clause +
		` ORDER BY rating DESC NULLS LAST, name ASC LIMIT ` + arg(filters.Limit) + ` OFFSET ` + arg(filters.Offset)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fail(span, "text search shops", err)
	}
	defer rows.Close()

	shops := []types.Shop{}
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, 0, fail(span, "scan shop row", err)
		}
		shops = append(shops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fail(span, "iterate shop rows", err)
	}

	span.SetAttributes(attribute.Int("results.total", total))
	span.SetStatus(codes.Ok, "text search completed")
	return shops, total, nil
}

func (r *RepositoryImpl) CountWithinRadius(ctx context.Context, center types.Coordinate, radiusMeters float64) (int, error) {
	ctx, span := otel.Tracer("ShopRepository").Start(ctx, "CountWithinRadius", trace.WithAttributes(
		attribute.Float64("latitude", center.Latitude),
		attribute.Float64("longitude", center.Longitude),
		attribute.Float64("radius.meters", radiusMeters),
	))
	defer span.End()

	query := `
		SELECT COUNT(*)
		FROM coffee_shops
		WHERE location IS NOT NULL
		AND ST_DWithin(location, ` + centerPoint + `, $3)`

	var count int
	if err := r.db.QueryRow(ctx, query, center.Longitude, center.Latitude, radiusMeters).Scan(&count); err != nil {
		return 0, fail(span, "count shops within radius", err)
	}
	span.SetAttributes(attribute.Int("shops.count", count))
	span.SetStatus(codes.Ok, "counted")
	return count, nil
}

func (r *RepositoryImpl) FindWithinRadius(ctx context.Context, center types.Coordinate, radiusMeters float64, limit int) ([]types.ShopWithDistance, error) {
	ctx, span := otel.Tracer("ShopRepository").Start(ctx, "FindWithinRadius", trace.WithAttributes(
		attribute.Float64("latitude", center.Latitude),
		attribute.Float64("longitude", center.Longitude),
		attribute.Float64("radius.meters", radiusMeters),
		attribute.Int("limit", limit),
	))
	defer span.End()

	query := `
		SELECT ` + shopColumns + `, ST_Distance(location, ` + centerPoint + `) AS distance_meters
		FROM coffee_shops
		WHERE location IS NOT NULL
		AND ST_DWithin(location, ` + centerPoint + `, $3)
		ORDER BY distance_meters ASC
		LIMIT $4`

	shops, err := r.queryWithDistance(ctx, query, center.Longitude, center.Latitude, radiusMeters, limit)
	if err != nil {
		return nil, fail(span, "find shops within radius", err)
	}
	span.SetAttributes(attribute.Int("results.count", len(shops)))
	span.SetStatus(codes.Ok, "found")
	return shops, nil
}

func (r *RepositoryImpl) FindNamedWithinRadius(ctx context.Context, name string, center types.Coordinate, radiusMeters float64) ([]types.ShopWithDistance, error) {
	ctx, span := otel.Tracer("ShopRepository").Start(ctx, "FindNamedWithinRadius", trace.WithAttributes(
		attribute.String("shop.name", name),
		attribute.Float64("radius.meters", radiusMeters),
	))
	defer span.End()

	query := `
		SELECT ` + shopColumns + `, ST_Distance(location, ` + centerPoint + `) AS distance_meters
		FROM coffee_shops
		WHERE location IS NOT NULL
		AND ST_DWithin(location, ` + centerPoint + `, $3)
		AND name ILIKE $4
		ORDER BY distance_meters ASC`

	shops, err := r.queryWithDistance(ctx, query, center.Longitude, center.Latitude, radiusMeters, likePattern(strings.TrimSpace(name)))
	if err != nil {
		return nil, fail(span, "find named shops within radius", err)
	}
	span.SetAttributes(attribute.Int("results.count", len(shops)))
	span.SetStatus(codes.Ok, "found")
	return shops, nil
}

func (r *RepositoryImpl) ListWithCoordinates(ctx context.Context, center types.Coordinate, radiusMeters float64, limit int) ([]types.Shop, error) {
	ctx, span := otel.Tracer("ShopRepository").Start(ctx, "ListWithCoordinates", trace.WithAttributes(
		attribute.Float64("latitude", center.Latitude),
		attribute.Float64("longitude", center.Longitude),
		attribute.Float64("radius.meters", radiusMeters),
		attribute.Int("limit", limit),
	))
	defer span.End()

	box := BoundingBoxFor(center, radiusMeters)
	query := `
		SELECT ` + shopColumns + `
		FROM coffee_shops
		WHERE location IS NOT NULL
		AND latitude BETWEEN $1 AND $2
		AND longitude BETWEEN $3 AND $4
		ORDER BY power(latitude - $5, 2) + power((longitude - $6) * $7, 2) ASC
		LIMIT $8`

	rows, err := r.db.Query(ctx, query,
		box.MinLatitude, box.MaxLatitude, box.MinLongitude, box.MaxLongitude,
		center.Latitude, center.Longitude, math.Cos(center.Latitude*math.Pi/180), limit)
	if err != nil {
		return nil, fail(span, "list shops with coordinates", err)
	}
	defer rows.Close()

	shops := []types.Shop{}
	for rows.Next() {
		s, err := scanShop(rows)
		if err != nil {
			return nil, fail(span, "scan shop row", err)
		}
		shops = append(shops, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, "iterate shop rows", err)
	}

	span.SetAttributes(attribute.Int("results.count", len(shops)))
	span.SetStatus(codes.Ok, "listed")
	return shops, nil
}

func (r *RepositoryImpl) queryWithDistance(ctx context.Context, query string, args ...any) ([]types.ShopWithDistance, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shops := []types.ShopWithDistance{}
	for rows.Next() {
		var meters float64
		s, err := scanShop(rows, &meters)
		if err != nil {
			return nil, err
		}
		shops = append(shops, types.ShopWithDistance{Shop: s, DistanceMeters: meters, DistanceKm: meters / 1000})
	}
	return shops, rows.Err()
}

// Autocomplete returns the nearest shops whose name, address or city
// contains query.
func (r *RepositoryImpl) Autocomplete(ctx context.Context, query string, center types.Coordinate, limit int) ([]types.AutocompleteSuggestion, error) {
	ctx, span := otel.Tracer("ShopRepository").Start(ctx, "Autocomplete", trace.WithAttributes(
		attribute.String("query", query),
		attribute.Int("limit", limit),
	))
	defer span.End()

	stmt := `
		SELECT id, name, address, city
		FROM coffee_shops
		WHERE location IS NOT NULL
		AND (name ILIKE $3 OR address ILIKE $3 OR city ILIKE $3)
		ORDER BY ST_Distance(location, ` + centerPoint + `) ASC
		LIMIT $4`

	rows, err := r.db.Query(ctx, stmt, center.Longitude, center.Latitude, likePattern(strings.TrimSpace(query)), limit)
	if err != nil {
		return nil, fail(span, "autocomplete shops", err)
	}
	defer rows.Close()

	suggestions := []types.AutocompleteSuggestion{}
	for rows.Next() {
		var (
			s             types.AutocompleteSuggestion
			address, city string
		)
		if err := rows.Scan(&s.ID, &s.Name, &address, &city); err != nil {
			return nil, fail(span, "scan autocomplete row", err)
		}
		s.Address = fmt.Sprintf("%s, %s", address, city)
		suggestions = append(suggestions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, "iterate autocomplete rows", err)
	}

	span.SetStatus(codes.Ok, "autocomplete completed")
	return suggestions, nil
}
