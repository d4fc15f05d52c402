package shop

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-coffee-finder/internal/types"
)

var shopColumnNames = []string{
	"id", "google_place_id", "name", "address", "city", "state", "zip_code", "country",
	"latitude", "longitude", "phone", "website", "email", "rating", "review_count", "price_level",
	"hours", "categories", "photos", "created_at", "updated_at", "last_synced_at",
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func timePtr(t time.Time) *time.Time { return &t }

func setupRepositoryTest(t *testing.T) (pgxmock.PgxPoolIface, *RepositoryImpl) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return mock, NewRepository(mock, logger)
}

// shopRow returns values in shopColumns order.
func shopRow(id uuid.UUID, placeID *string, name string, lat, lng, rating *float64, hours []byte) []any {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []any{
		id, placeID, name, "1 Main St", "Austin", "TX", "78701", "US",
		lat, lng, (*string)(nil), (*string)(nil), (*string)(nil), rating, 12, (*int)(nil),
		hours, []string{"Coffee Shop"}, []string{}, now, now, (*time.Time)(nil),
	}
}

func TestRepositoryGetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found with hours", func(t *testing.T) {
		mock, repo := setupRepositoryTest(t)
		id := uuid.New()
		hours := []byte(`{"monday":{"open":"7:00 AM","close":"6:00 PM","is_closed":false}}`)
		mock.ExpectQuery(regexp.QuoteMeta("FROM coffee_shops WHERE id = $1")).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(shopColumnNames).
				AddRow(shopRow(id, strPtr("place-1"), "Epoch Coffee", floatPtr(30.3), floatPtr(-97.7), floatPtr(4.6), hours)...))

		shop, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, shop)
		assert.Equal(t, "Epoch Coffee", shop.Name)
		assert.Equal(t, "place-1", shop.ExternalID())
		assert.Equal(t, "7:00 AM", shop.Hours["monday"].Open)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock, repo := setupRepositoryTest(t)
		id := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta("FROM coffee_shops WHERE id = $1")).
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		shop, err := repo.GetByID(ctx, id)
		assert.NoError(t, err)
		assert.Nil(t, shop)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		mock, repo := setupRepositoryTest(t)
		id := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta("FROM coffee_shops WHERE id = $1")).
			WithArgs(id).
			WillReturnError(errors.New("connection reset"))

		shop, err := repo.GetByID(ctx, id)
		assert.Nil(t, shop)
		assert.ErrorIs(t, err, types.ErrPersistence)
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestRepositoryGetByExternalID(t *testing.T) {
	ctx := context.Background()
	mock, repo := setupRepositoryTest(t)
	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("FROM coffee_shops WHERE google_place_id = $1")).
		WithArgs("place-9").
		WillReturnRows(pgxmock.NewRows(shopColumnNames).
			AddRow(shopRow(id, strPtr("place-9"), "Figure 8", nil, nil, nil, nil)...))

	shop, err := repo.GetByExternalID(ctx, "place-9")
	require.NoError(t, err)
	require.NotNil(t, shop)
	assert.Equal(t, id, shop.ID)
	assert.Nil(t, shop.Rating)
	assert.Nil(t, shop.Coordinate())
	assert.Nil(t, shop.Hours)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	anyArgs := func(n int) []any {
		out := make([]any, n)
		for i := range out {
			out[i] = pgxmock.AnyArg()
		}
		return out
	}

	t.Run("insert merges on place id conflict", func(t *testing.T) {
		mock, repo := setupRepositoryTest(t)
		newID := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (google_place_id) DO UPDATE")).
			WithArgs(anyArgs(19)...).
			WillReturnRows(pgxmock.NewRows(shopColumnNames).
				AddRow(shopRow(newID, strPtr("place-1"), "Houndstooth", floatPtr(30.2), floatPtr(-97.7), floatPtr(4.4), nil)...))

		saved, err := repo.Upsert(ctx, types.Shop{
			GooglePlaceID: strPtr("place-1"),
			Name:          "Houndstooth",
			Address:       "401 Congress Ave",
			City:          "Austin",
			State:         "TX",
			ZipCode:       "78701",
			Latitude:      floatPtr(30.2),
			Longitude:     floatPtr(-97.7),
			Rating:        floatPtr(4.4),
			LastSyncedAt:  timePtr(time.Now()),
		})
		require.NoError(t, err)
		assert.Equal(t, newID, saved.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict keeps stored categories and photos", func(t *testing.T) {
		mock, repo := setupRepositoryTest(t)
		mock.ExpectQuery(regexp.QuoteMeta(
			"SELECT e FROM unnest(coffee_shops.categories || EXCLUDED.categories) WITH ORDINALITY AS u(e, n)",
		)).
			WithArgs(anyArgs(19)...).
			WillReturnRows(pgxmock.NewRows(shopColumnNames).
				AddRow(shopRow(uuid.New(), strPtr("place-1"), "Houndstooth", nil, nil, nil, nil)...))

		_, err := repo.Upsert(ctx, types.Shop{GooglePlaceID: strPtr("place-1"), Name: "Houndstooth"})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update by id", func(t *testing.T) {
		mock, repo := setupRepositoryTest(t)
		id := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE coffee_shops SET")).
			WithArgs(append(anyArgs(19), id)...).
			WillReturnRows(pgxmock.NewRows(shopColumnNames).
				AddRow(shopRow(id, strPtr("place-2"), "Cosmic", nil, nil, nil, nil)...))

		saved, err := repo.Upsert(ctx, types.Shop{ID: id, GooglePlaceID: strPtr("place-2"), Name: "Cosmic", Address: "a", City: "Austin", State: "TX", ZipCode: "78704"})
		require.NoError(t, err)
		assert.Equal(t, "Cosmic", saved.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update of missing row", func(t *testing.T) {
		mock, repo := setupRepositoryTest(t)
		id := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE coffee_shops SET")).
			WithArgs(append(anyArgs(19), id)...).
			WillReturnError(pgx.ErrNoRows)

		saved, err := repo.Upsert(ctx, types.Shop{ID: id, Name: "Gone", Address: "a", City: "Austin", State: "TX", ZipCode: "78704"})
		assert.Nil(t, saved)
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.ErrorIs(t, err, types.ErrPersistence)
	})

	t.Run("invalid shop never reaches the database", func(t *testing.T) {
		mock, repo := setupRepositoryTest(t)
		saved, err := repo.Upsert(ctx, types.Shop{Name: ""})
		assert.Nil(t, saved)
		assert.ErrorIs(t, err, types.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepositoryTextSearch(t *testing.T) {
	ctx := context.Background()
	mock, repo := setupRepositoryTest(t)

	filters := types.SearchFilters{
		Query:     "bottle",
		MinRating: floatPtr(4),
		Limit:     10,
		Offset:    0,
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM coffee_shops WHERE (name ILIKE $1")).
		WithArgs("%bottle%", 4.0).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY rating DESC NULLS LAST, name ASC LIMIT $3 OFFSET $4")).
		WithArgs("%bottle%", 4.0, 10, 0).
		WillReturnRows(pgxmock.NewRows(shopColumnNames).
			AddRow(shopRow(uuid.New(), strPtr("a"), "Blue Bottle Hayes", floatPtr(37.7), floatPtr(-122.4), floatPtr(4.7), nil)...).
			AddRow(shopRow(uuid.New(), strPtr("b"), "Blue Bottle Mint", floatPtr(37.8), floatPtr(-122.4), floatPtr(4.2), nil)...))

	shops, total, err := repo.TextSearch(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, shops, 2)
	assert.Equal(t, "Blue Bottle Hayes", shops[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryRadiusQueries(t *testing.T) {
	ctx := context.Background()
	center := types.Coordinate{Latitude: 30.2672, Longitude: -97.7431}

	t.Run("count passes longitude first", func(t *testing.T) {
		mock, repo := setupRepositoryTest(t)
		mock.ExpectQuery(regexp.QuoteMeta("ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)")).
			WithArgs(center.Longitude, center.Latitude, 5000.0).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

		count, err := repo.CountWithinRadius(ctx, center, 5000)
		require.NoError(t, err)
		assert.Equal(t, 7, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("find converts meters to kilometers", func(t *testing.T) {
		mock, repo := setupRepositoryTest(t)
		cols := append(append([]string{}, shopColumnNames...), "distance_meters")
		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY distance_meters ASC")).
			WithArgs(center.Longitude, center.Latitude, 5000.0, 40).
			WillReturnRows(pgxmock.NewRows(cols).
				AddRow(append(shopRow(uuid.New(), strPtr("near"), "Near", floatPtr(30.27), floatPtr(-97.74), nil, nil), 250.0)...).
				AddRow(append(shopRow(uuid.New(), strPtr("far"), "Far", floatPtr(30.29), floatPtr(-97.74), nil, nil), 2500.0)...))

		shops, err := repo.FindWithinRadius(ctx, center, 5000, 40)
		require.NoError(t, err)
		require.Len(t, shops, 2)
		assert.InDelta(t, 0.25, shops[0].DistanceKm, 1e-9)
		assert.InDelta(t, 2.5, shops[1].DistanceKm, 1e-9)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("list with coordinates keeps low rated shops in the box", func(t *testing.T) {
		mock, repo := setupRepositoryTest(t)
		box := BoundingBoxFor(center, 5000)
		mock.ExpectQuery(regexp.QuoteMeta("AND latitude BETWEEN $1 AND $2")).
			WithArgs(box.MinLatitude, box.MaxLatitude, box.MinLongitude, box.MaxLongitude,
				center.Latitude, center.Longitude, pgxmock.AnyArg(), 1000).
			WillReturnRows(pgxmock.NewRows(shopColumnNames).
				AddRow(shopRow(uuid.New(), strPtr("corner"), "Corner Cup", floatPtr(30.268), floatPtr(-97.743), floatPtr(2.1), nil)...).
				AddRow(shopRow(uuid.New(), strPtr("unrated"), "Unrated Roasters", floatPtr(30.27), floatPtr(-97.745), nil, nil)...))

		shops, err := repo.ListWithCoordinates(ctx, center, 5000, 1000)
		require.NoError(t, err)
		require.Len(t, shops, 2)
		assert.Equal(t, "Corner Cup", shops[0].Name)
		assert.Equal(t, 2.1, *shops[0].Rating)
		assert.Nil(t, shops[1].Rating)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("list with coordinates wraps errors", func(t *testing.T) {
		mock, repo := setupRepositoryTest(t)
		mock.ExpectQuery(regexp.QuoteMeta("AND latitude BETWEEN $1 AND $2")).
			WillReturnError(errors.New("connection reset"))

		shops, err := repo.ListWithCoordinates(ctx, center, 5000, 1000)
		require.Error(t, err)
		assert.Nil(t, shops)
		assert.Contains(t, err.Error(), "list shops with coordinates")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("named search escapes wildcards", func(t *testing.T) {
		mock, repo := setupRepositoryTest(t)
		cols := append(append([]string{}, shopColumnNames...), "distance_meters")
		mock.ExpectQuery(regexp.QuoteMeta("AND name ILIKE $4")).
			WithArgs(center.Longitude, center.Latitude, 50000.0, `%100\% Beans%`).
			WillReturnRows(pgxmock.NewRows(cols))

		shops, err := repo.FindNamedWithinRadius(ctx, " 100% Beans ", center, 50000)
		require.NoError(t, err)
		assert.Empty(t, shops)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepositoryAutocomplete(t *testing.T) {
	ctx := context.Background()
	mock, repo := setupRepositoryTest(t)
	center := types.Coordinate{Latitude: 40.7, Longitude: -74}
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, address, city")).
		WithArgs(center.Longitude, center.Latitude, "%jo%", 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "address", "city"}).
			AddRow(id, "Joe Coffee", "131 W 21st St", "New York"))

	suggestions, err := repo.Autocomplete(ctx, "jo", center, 10)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, types.AutocompleteSuggestion{ID: id, Name: "Joe Coffee", Address: "131 W 21st St, New York"}, suggestions[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%blue%", likePattern("blue"))
	assert.Equal(t, `%a\_b\\c\%%`, likePattern(`a_b\c%`))
}

func TestHaversine(t *testing.T) {
	sf := types.Coordinate{Latitude: 37.7749, Longitude: -122.4194}
	la := types.Coordinate{Latitude: 34.0522, Longitude: -118.2437}

	assert.InDelta(t, 559, HaversineKm(sf, la), 1)
	assert.InDelta(t, HaversineKm(sf, la)*1000, HaversineMeters(sf, la), 1e-6)
	assert.Zero(t, HaversineKm(sf, sf))
}

func TestBoundingBoxFor(t *testing.T) {
	t.Run("encloses the circle", func(t *testing.T) {
		center := types.Coordinate{Latitude: 30.2672, Longitude: -97.7431}
		box := BoundingBoxFor(center, 50000)

		north := types.Coordinate{Latitude: box.MaxLatitude, Longitude: center.Longitude}
		assert.InDelta(t, 50000, HaversineMeters(center, north), 1)
		south := types.Coordinate{Latitude: box.MinLatitude, Longitude: center.Longitude}
		assert.InDelta(t, 50000, HaversineMeters(center, south), 1)
		east := types.Coordinate{Latitude: center.Latitude, Longitude: box.MaxLongitude}
		assert.GreaterOrEqual(t, HaversineMeters(center, east), 50000.0)
		west := types.Coordinate{Latitude: center.Latitude, Longitude: box.MinLongitude}
		assert.GreaterOrEqual(t, HaversineMeters(center, west), 50000.0)
		assert.Less(t, box.MaxLongitude-box.MinLongitude, 2.0)
	})

	t.Run("near a pole spans every longitude", func(t *testing.T) {
		box := BoundingBoxFor(types.Coordinate{Latitude: 89.9, Longitude: 10}, 50000)
		assert.Equal(t, 90.0, box.MaxLatitude)
		assert.Equal(t, -180.0, box.MinLongitude)
		assert.Equal(t, 180.0, box.MaxLongitude)
	})

	t.Run("across the antimeridian spans every longitude", func(t *testing.T) {
		box := BoundingBoxFor(types.Coordinate{Latitude: -17.7, Longitude: 179.9}, 50000)
		assert.Less(t, box.MaxLatitude-box.MinLatitude, 1.0)
		assert.Equal(t, -180.0, box.MinLongitude)
		assert.Equal(t, 180.0, box.MaxLongitude)
	})
}
