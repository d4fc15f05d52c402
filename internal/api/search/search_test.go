package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-coffee-finder/internal/types"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*types.Shop, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Shop), args.Error(1)
}

func (m *MockRepository) GetByExternalID(ctx context.Context, googlePlaceID string) (*types.Shop, error) {
	args := m.Called(ctx, googlePlaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Shop), args.Error(1)
}

func (m *MockRepository) Upsert(ctx context.Context, shop types.Shop) (*types.Shop, error) {
	args := m.Called(ctx, shop)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Shop), args.Error(1)
}

func (m *MockRepository) TextSearch(ctx context.Context, filters types.SearchFilters) ([]types.Shop, int, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]types.Shop), args.Int(1), args.Error(2)
}

func (m *MockRepository) CountWithinRadius(ctx context.Context, center types.Coordinate, radiusMeters float64) (int, error) {
	args := m.Called(ctx, center, radiusMeters)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) FindWithinRadius(ctx context.Context, center types.Coordinate, radiusMeters float64, limit int) ([]types.ShopWithDistance, error) {
	args := m.Called(ctx, center, radiusMeters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ShopWithDistance), args.Error(1)
}

func (m *MockRepository) FindNamedWithinRadius(ctx context.Context, name string, center types.Coordinate, radiusMeters float64) ([]types.ShopWithDistance, error) {
	args := m.Called(ctx, name, center, radiusMeters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ShopWithDistance), args.Error(1)
}

func (m *MockRepository) Autocomplete(ctx context.Context, query string, center types.Coordinate, limit int) ([]types.AutocompleteSuggestion, error) {
	args := m.Called(ctx, query, center, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.AutocompleteSuggestion), args.Error(1)
}

func (m *MockRepository) ListWithCoordinates(ctx context.Context, center types.Coordinate, radiusMeters float64, limit int) ([]types.Shop, error) {
	args := m.Called(ctx, center, radiusMeters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Shop), args.Error(1)
}

type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, query string) types.Intent {
	args := m.Called(ctx, query)
	return args.Get(0).(types.Intent)
}

type MockDiscovery struct {
	mock.Mock
}

func (m *MockDiscovery) Discover(ctx context.Context, query string, center *types.Coordinate, radiusMeters float64) types.DiscoveryResult {
	args := m.Called(ctx, query, center, radiusMeters)
	return args.Get(0).(types.DiscoveryResult)
}

func (m *MockDiscovery) DiscoverByLocation(ctx context.Context, query, locationText string, radiusMeters float64) types.DiscoveryResult {
	args := m.Called(ctx, query, locationText, radiusMeters)
	return args.Get(0).(types.DiscoveryResult)
}

func (m *MockDiscovery) Refresh(ctx context.Context, id uuid.UUID) (*types.Shop, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Shop), args.Error(1)
}

type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Geocode(ctx context.Context, text string) (*types.Coordinate, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Coordinate), args.Error(1)
}

type searchDeps struct {
	repo       *MockRepository
	classifier *MockClassifier
	discovery  *MockDiscovery
	geocoder   *MockGeocoder
	svc        *ServiceImpl
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func setupSearchTest() searchDeps {
	d := searchDeps{
		repo:       new(MockRepository),
		classifier: new(MockClassifier),
		discovery:  new(MockDiscovery),
		geocoder:   new(MockGeocoder),
	}
	d.svc = NewServiceImpl(d.repo, d.classifier, d.discovery, d.geocoder, DefaultConfig(), testLogger(), nil)
	return d
}

func floatPtr(f float64) *float64 { return &f }

func intPtr(i int) *int { return &i }

func nearbyShops(n int, name string) []types.ShopWithDistance {
	out := make([]types.ShopWithDistance, n)
	for i := range out {
		out[i] = types.ShopWithDistance{
			Shop:           types.Shop{ID: uuid.New(), Name: fmt.Sprintf("%s %d", name, i), City: "Austin"},
			DistanceMeters: float64(i * 100),
			DistanceKm:     float64(i) / 10,
		}
	}
	return out
}

var sf = types.Coordinate{Latitude: 37.77, Longitude: -122.41}

func TestSearchCoverageThreshold(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		stored        int
		wantDiscovery int
	}{
		{stored: 9, wantDiscovery: 1},
		{stored: 10, wantDiscovery: 0},
	} {
		t.Run(fmt.Sprintf("%d stored", tc.stored), func(t *testing.T) {
			d := setupSearchTest()
			d.classifier.On("Classify", mock.Anything, "coffee").Return(types.IntentGeneral).Once()
			d.repo.On("CountWithinRadius", mock.Anything, sf, 50000.0).Return(tc.stored, nil).Once()
			if tc.wantDiscovery > 0 {
				d.discovery.On("Discover", mock.Anything, "coffee", &sf, 50000.0).
					Return(types.DiscoveryResult{Added: 4, Errors: []string{}}).Once()
			}
			d.repo.On("FindWithinRadius", mock.Anything, sf, 50000.0, 40).Return(nearbyShops(tc.stored, "Coffee"), nil).Once()

			result, err := d.svc.Search(ctx, types.SearchFilters{Query: "coffee", Coordinates: &sf})
			require.NoError(t, err)

			d.discovery.AssertNumberOfCalls(t, "Discover", tc.wantDiscovery)
			d.discovery.AssertNotCalled(t, "DiscoverByLocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			assert.Equal(t, types.SearchTypeGeneralArea, result.SearchType)
			assert.Equal(t, tc.wantDiscovery == 1, result.Discovery != nil)
		})
	}
}

func TestSearchPagination(t *testing.T) {
	ctx := context.Background()
	stored := nearbyShops(37, "Coffee")

	for _, tc := range []struct {
		offset, limit int
		fetch         int
		wantLen       int
		wantMore      bool
	}{
		{offset: 30, limit: 10, fetch: 80, wantLen: 7, wantMore: false},
		{offset: 20, limit: 10, fetch: 60, wantLen: 10, wantMore: true},
		{offset: 40, limit: 10, fetch: 100, wantLen: 0, wantMore: false},
	} {
		t.Run(fmt.Sprintf("offset %d", tc.offset), func(t *testing.T) {
			d := setupSearchTest()
			d.classifier.On("Classify", mock.Anything, "coffee").Return(types.IntentGeneral)
			d.repo.On("CountWithinRadius", mock.Anything, sf, 50000.0).Return(37, nil)
			d.repo.On("FindWithinRadius", mock.Anything, sf, 50000.0, tc.fetch).
				Return(stored[:min(tc.fetch, len(stored))], nil).Once()

			result, err := d.svc.Search(ctx, types.SearchFilters{Query: "coffee", Coordinates: &sf, Limit: tc.limit, Offset: tc.offset})
			require.NoError(t, err)
			assert.Equal(t, 37, result.TotalCount)
			assert.Len(t, result.Shops, tc.wantLen)
			assert.Equal(t, tc.wantMore, result.HasMore)
			assert.NotNil(t, result.Shops)
			d.repo.AssertExpectations(t)
		})
	}

	t.Run("store honours the limit on the first page", func(t *testing.T) {
		d := setupSearchTest()
		d.classifier.On("Classify", mock.Anything, "coffee").Return(types.IntentGeneral)
		d.repo.On("CountWithinRadius", mock.Anything, sf, 50000.0).Return(37, nil)
		d.repo.On("FindWithinRadius", mock.Anything, sf, 50000.0, 20).Return(stored[:20], nil).Once()

		result, err := d.svc.Search(ctx, types.SearchFilters{Query: "coffee", Coordinates: &sf, Limit: 10})
		require.NoError(t, err)
		assert.Len(t, result.Shops, 10)
		assert.True(t, result.HasMore)
	})
}

func TestSearchSpecificShopEndToEnd(t *testing.T) {
	ctx := context.Background()
	d := setupSearchTest()

	found := types.ShopWithDistance{
		Shop:           types.Shop{ID: uuid.New(), Name: "Blue Bottle Coffee"},
		DistanceMeters: 1250,
		DistanceKm:     1.25,
	}
	d.classifier.On("Classify", mock.Anything, "Blue Bottle").Return(types.IntentSpecific).Once()
	d.repo.On("FindNamedWithinRadius", mock.Anything, "Blue Bottle", sf, 50000.0).Return([]types.ShopWithDistance{}, nil).Once()
	d.discovery.On("Discover", mock.Anything, "Blue Bottle", &sf, 50000.0).
		Return(types.DiscoveryResult{Added: 1, Errors: []string{}}).Once()
	d.repo.On("FindNamedWithinRadius", mock.Anything, "Blue Bottle", sf, 50000.0).Return([]types.ShopWithDistance{found}, nil).Once()

	result, err := d.svc.Search(ctx, types.SearchFilters{Query: "Blue Bottle", Coordinates: &sf, RadiusMeters: floatPtr(50000)})
	require.NoError(t, err)

	assert.Equal(t, types.SearchTypeSpecificShop, result.SearchType)
	assert.Equal(t, types.IntentSpecific, result.DetectedIntent)
	require.Len(t, result.Shops, 1)
	assert.Equal(t, 1.25, result.Shops[0].DistanceKm)
	assert.Equal(t, 1, result.Discovery.Added)
	d.discovery.AssertNumberOfCalls(t, "Discover", 1)
	d.repo.AssertNumberOfCalls(t, "FindNamedWithinRadius", 2)
	d.repo.AssertNotCalled(t, "CountWithinRadius", mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchSpecificShopEmptyAfterDiscovery(t *testing.T) {
	ctx := context.Background()
	d := setupSearchTest()

	d.classifier.On("Classify", mock.Anything, "Nowhere Roasters").Return(types.IntentSpecific).Once()
	d.repo.On("FindNamedWithinRadius", mock.Anything, "Nowhere Roasters", sf, 50000.0).Return([]types.ShopWithDistance{}, nil).Twice()
	d.discovery.On("Discover", mock.Anything, "Nowhere Roasters", &sf, 50000.0).
		Return(types.DiscoveryResult{Errors: []string{"discovery service error: boom"}}).Once()

	result, err := d.svc.Search(ctx, types.SearchFilters{Query: "Nowhere Roasters", Coordinates: &sf})
	require.NoError(t, err)
	assert.Empty(t, result.Shops)
	assert.False(t, result.HasMore)
	assert.Equal(t, []string{"discovery service error: boom"}, result.Discovery.Errors)
	d.discovery.AssertNumberOfCalls(t, "Discover", 1)
}

func TestSearchGeneralAreaEndToEnd(t *testing.T) {
	ctx := context.Background()
	d := setupSearchTest()
	austin := &types.Coordinate{Latitude: 30.2672, Longitude: -97.7431}

	stored := nearbyShops(15, "Coffee")
	stored[3].Name, stored[3].City = "Tea House", "Round Rock"
	stored[7].Name, stored[7].City = "Juice Bar", "Cedar Park"

	d.geocoder.On("Geocode", mock.Anything, "Austin, TX").Return(austin, nil).Once()
	d.classifier.On("Classify", mock.Anything, "coffee").Return(types.IntentGeneral).Once()
	d.repo.On("CountWithinRadius", mock.Anything, *austin, 50000.0).Return(15, nil).Once()
	d.repo.On("FindWithinRadius", mock.Anything, *austin, 50000.0, 40).Return(stored, nil).Once()

	result, err := d.svc.Search(ctx, types.SearchFilters{Query: "coffee", LocationText: "Austin, TX"})
	require.NoError(t, err)

	assert.Equal(t, types.SearchTypeGeneralArea, result.SearchType)
	assert.Equal(t, types.IntentGeneral, result.DetectedIntent)
	assert.Equal(t, 13, result.TotalCount)
	assert.Nil(t, result.Discovery)
	for _, s := range result.Shops {
		assert.Contains(t, s.Name, "Coffee")
	}
	d.discovery.AssertNotCalled(t, "Discover", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	d.discovery.AssertNotCalled(t, "DiscoverByLocation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSearchBackfillWithLocationText(t *testing.T) {
	ctx := context.Background()
	d := setupSearchTest()
	austin := &types.Coordinate{Latitude: 30.2672, Longitude: -97.7431}

	d.geocoder.On("Geocode", mock.Anything, "Austin, TX").Return(austin, nil).Once()
	d.classifier.On("Classify", mock.Anything, "coffee").Return(types.IntentGeneral).Once()
	d.repo.On("CountWithinRadius", mock.Anything, *austin, 50000.0).Return(2, nil).Once()
	d.discovery.On("DiscoverByLocation", mock.Anything, "coffee", "Austin, TX", 50000.0).
		Return(types.DiscoveryResult{Added: 8, Errors: []string{}, Location: austin}).Once()
	d.repo.On("FindWithinRadius", mock.Anything, *austin, 50000.0, 40).Return(nearbyShops(10, "Coffee"), nil).Once()

	result, err := d.svc.Search(ctx, types.SearchFilters{Query: "coffee", LocationText: "Austin, TX"})
	require.NoError(t, err)
	assert.Equal(t, 8, result.Discovery.Added)
	assert.Equal(t, 10, result.TotalCount)
}

func TestSearchZeroRadiusIsLiteral(t *testing.T) {
	ctx := context.Background()
	d := setupSearchTest()

	d.classifier.On("Classify", mock.Anything, "coffee").Return(types.IntentGeneral).Once()
	d.repo.On("CountWithinRadius", mock.Anything, sf, 0.0).Return(0, nil).Once()
	d.discovery.On("Discover", mock.Anything, "coffee", &sf, 0.0).Return(types.DiscoveryResult{Errors: []string{}}).Once()
	d.repo.On("FindWithinRadius", mock.Anything, sf, 0.0, 40).Return([]types.ShopWithDistance{}, nil).Once()

	result, err := d.svc.Search(ctx, types.SearchFilters{Query: "coffee", Coordinates: &sf, RadiusMeters: floatPtr(0)})
	require.NoError(t, err)
	assert.Empty(t, result.Shops)
	assert.Equal(t, 0, result.TotalCount)
	assert.False(t, result.HasMore)
	d.repo.AssertExpectations(t)
}

func TestSearchInputErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("no location", func(t *testing.T) {
		d := setupSearchTest()
		_, err := d.svc.Search(ctx, types.SearchFilters{Query: "coffee"})
		var inputErr *types.InputError
		require.ErrorAs(t, err, &inputErr)
		assert.Equal(t, errMissingLocation, inputErr.Message)
		d.classifier.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything)
	})

	t.Run("no query", func(t *testing.T) {
		d := setupSearchTest()
		_, err := d.svc.Search(ctx, types.SearchFilters{Coordinates: &sf})
		assert.ErrorIs(t, err, types.ErrInvalidInput)
	})

	t.Run("geocode miss", func(t *testing.T) {
		d := setupSearchTest()
		d.geocoder.On("Geocode", mock.Anything, "Atlantis").Return(nil, nil).Once()
		_, err := d.svc.Search(ctx, types.SearchFilters{Query: "coffee", LocationText: "Atlantis"})
		assert.ErrorIs(t, err, types.ErrInvalidInput)
		assert.EqualError(t, err, "Could not determine location")
	})

	t.Run("geocode provider failure makes the location unusable", func(t *testing.T) {
		d := setupSearchTest()
		providerErr := &types.ProviderError{Provider: "serpapi", Op: "geocode", Err: errors.New("timeout")}
		d.geocoder.On("Geocode", mock.Anything, "Austin").Return(nil, providerErr).Once()
		_, err := d.svc.Search(ctx, types.SearchFilters{Query: "coffee", LocationText: "Austin"})
		assert.ErrorIs(t, err, types.ErrInvalidInput)
		assert.ErrorIs(t, err, types.ErrProvider)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		d := setupSearchTest()
		d.classifier.On("Classify", mock.Anything, "coffee").Return(types.IntentGeneral).Once()
		d.repo.On("CountWithinRadius", mock.Anything, sf, 50000.0).
			Return(0, &types.PersistenceError{Op: "count shops within radius", Err: errors.New("down")}).Once()
		_, err := d.svc.Search(ctx, types.SearchFilters{Query: "coffee", Coordinates: &sf})
		assert.ErrorIs(t, err, types.ErrPersistence)
	})
}

func TestFiltersKeepShopsMissingTheField(t *testing.T) {
	shops := []types.ShopWithDistance{
		{Shop: types.Shop{Name: "Rated Cheap", Rating: floatPtr(4.5), PriceLevel: intPtr(1), Categories: []string{"Cafe"}}},
		{Shop: types.Shop{Name: "Unrated", Categories: []string{"Cafe"}}},
		{Shop: types.Shop{Name: "Low Rated", Rating: floatPtr(3.0), PriceLevel: intPtr(1), Categories: []string{"Cafe"}}},
		{Shop: types.Shop{Name: "Pricey", Rating: floatPtr(4.8), PriceLevel: intPtr(4), Categories: []string{"Cafe"}}},
		{Shop: types.Shop{Name: "Bakery Only", Rating: floatPtr(4.9), Categories: []string{"Bakery"}}},
	}
	f := types.SearchFilters{
		MinRating:   floatPtr(4),
		PriceLevels: []int{1, 2},
		Categories:  []string{"Cafe", "Coffee Shop"},
	}

	got := applyFilters(shops, filtersFor(f))

	names := make([]string, 0, len(got))
	for _, s := range got {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Rated Cheap", "Unrated"}, names)
}

func TestQueryFilterMatchesAddressAndCity(t *testing.T) {
	shops := []types.ShopWithDistance{
		{Shop: types.Shop{Name: "A", Address: "12 Congress Ave", City: "Austin"}},
		{Shop: types.Shop{Name: "B", Address: "1 Elm", City: "Congress Heights"}},
		{Shop: types.Shop{Name: "C", Address: "9 Oak", City: "Dallas"}},
	}
	got := applyFilters(shops, filtersFor(types.SearchFilters{Query: "CONGRESS"}))
	assert.Len(t, got, 2)
}

func TestSearchLocal(t *testing.T) {
	ctx := context.Background()
	center := types.Coordinate{Latitude: 30.2672, Longitude: -97.7431}

	t.Run("ranks by distance inside the radius", func(t *testing.T) {
		d := setupSearchTest()
		stored := []types.Shop{
			{Name: "Far Coffee", Latitude: floatPtr(30.35), Longitude: floatPtr(-97.7431)},
			{Name: "Near Coffee", Latitude: floatPtr(30.268), Longitude: floatPtr(-97.7431)},
			{Name: "Corner Coffee", Latitude: floatPtr(30.45), Longitude: floatPtr(-97.55)},
		}
		d.classifier.On("Classify", mock.Anything, "coffee").Return(types.IntentGeneral).Once()
		d.repo.On("ListWithCoordinates", mock.Anything, center, 20000.0, localScanLimit).Return(stored, nil).Once()

		result, err := d.svc.SearchLocal(ctx, types.SearchFilters{Query: "coffee", Coordinates: &center, RadiusMeters: floatPtr(20000)})
		require.NoError(t, err)

		assert.Equal(t, types.SearchTypeLocalRadius, result.SearchType)
		assert.Equal(t, types.IntentGeneral, result.DetectedIntent)
		require.Len(t, result.Shops, 2)
		assert.Equal(t, "Near Coffee", result.Shops[0].Name)
		assert.Equal(t, "Far Coffee", result.Shops[1].Name)
		assert.Less(t, result.Shops[0].DistanceKm, result.Shops[1].DistanceKm)
		assert.InDelta(t, 9.2, result.Shops[1].DistanceKm, 0.1)
		d.repo.AssertNotCalled(t, "TextSearch", mock.Anything, mock.Anything)
		d.discovery.AssertNotCalled(t, "Discover", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("nearby low rated shop is not crowded out by distant top rated ones", func(t *testing.T) {
		d := setupSearchTest()
		stored := []types.Shop{{Name: "Corner Cup", Latitude: floatPtr(30.2675), Longitude: floatPtr(-97.7431), Rating: floatPtr(2.0)}}
		d.classifier.On("Classify", mock.Anything, "cup").Return(types.IntentGeneral).Once()
		d.repo.On("ListWithCoordinates", mock.Anything, center, 5000.0, localScanLimit).Return(stored, nil).Once()

		result, err := d.svc.SearchLocal(ctx, types.SearchFilters{Query: "cup", Coordinates: &center, RadiusMeters: floatPtr(5000)})
		require.NoError(t, err)
		require.Len(t, result.Shops, 1)
		assert.Equal(t, "Corner Cup", result.Shops[0].Name)
		assert.Equal(t, 1, result.TotalCount)
	})

	t.Run("filters apply in process", func(t *testing.T) {
		d := setupSearchTest()
		stored := []types.Shop{
			{Name: "Corner Cup", Latitude: floatPtr(30.2675), Longitude: floatPtr(-97.7431), Rating: floatPtr(2.0)},
			{Name: "Good Cup", Latitude: floatPtr(30.268), Longitude: floatPtr(-97.7431), Rating: floatPtr(4.6)},
			{Name: "Tea House", Latitude: floatPtr(30.2673), Longitude: floatPtr(-97.7431), Rating: floatPtr(4.9)},
		}
		d.classifier.On("Classify", mock.Anything, "cup").Return(types.IntentGeneral).Once()
		d.repo.On("ListWithCoordinates", mock.Anything, center, 5000.0, localScanLimit).Return(stored, nil).Once()

		result, err := d.svc.SearchLocal(ctx, types.SearchFilters{Query: "cup", Coordinates: &center, RadiusMeters: floatPtr(5000), MinRating: floatPtr(4)})
		require.NoError(t, err)
		require.Len(t, result.Shops, 1)
		assert.Equal(t, "Good Cup", result.Shops[0].Name)
	})

	t.Run("repository error", func(t *testing.T) {
		d := setupSearchTest()
		d.classifier.On("Classify", mock.Anything, "coffee").Return(types.IntentGeneral).Once()
		d.repo.On("ListWithCoordinates", mock.Anything, center, 20000.0, localScanLimit).Return(nil, errors.New("db down")).Once()

		result, err := d.svc.SearchLocal(ctx, types.SearchFilters{Query: "coffee", Coordinates: &center, RadiusMeters: floatPtr(20000)})
		require.Error(t, err)
		assert.Nil(t, result)
		assert.Contains(t, err.Error(), "failed to load shops")
	})
}

func TestAutocomplete(t *testing.T) {
	ctx := context.Background()

	t.Run("query too short", func(t *testing.T) {
		d := setupSearchTest()
		_, err := d.svc.Autocomplete(ctx, " b ", 10, &sf)
		assert.ErrorIs(t, err, types.ErrInvalidInput)
	})

	t.Run("no center yields nothing", func(t *testing.T) {
		d := setupSearchTest()
		got, err := d.svc.Autocomplete(ctx, "blue", 10, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
		d.repo.AssertNotCalled(t, "Autocomplete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("limit is capped at five", func(t *testing.T) {
		d := setupSearchTest()
		want := []types.AutocompleteSuggestion{{ID: uuid.New(), Name: "Blue Bottle", Address: "66 Mint St, San Francisco"}}
		d.repo.On("Autocomplete", mock.Anything, "blue", sf, 5).Return(want, nil).Once()

		got, err := d.svc.Autocomplete(ctx, "blue", 10, &sf)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}

func TestResolverFor(t *testing.T) {
	geocoder := new(MockGeocoder)

	assert.Nil(t, ResolverFor(nil, "   ", geocoder))
	assert.IsType(t, DirectCoordinates{}, ResolverFor(&sf, "Austin, TX", geocoder))
	assert.IsType(t, GeocodeText{}, ResolverFor(nil, "Austin, TX", geocoder))

	c, err := ResolverFor(&sf, "", nil).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sf, *c)
	geocoder.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
}

type MockService struct {
	mock.Mock
}

func (m *MockService) Search(ctx context.Context, filters types.SearchFilters) (*types.SearchResult, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SearchResult), args.Error(1)
}

func (m *MockService) SearchLocal(ctx context.Context, filters types.SearchFilters) (*types.SearchResult, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SearchResult), args.Error(1)
}

func (m *MockService) Autocomplete(ctx context.Context, query string, limit int, center *types.Coordinate) ([]types.AutocompleteSuggestion, error) {
	args := m.Called(ctx, query, limit, center)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.AutocompleteSuggestion), args.Error(1)
}

func (m *MockService) ResolveLocation(ctx context.Context, coords *types.Coordinate, locationText string) (*types.Coordinate, error) {
	args := m.Called(ctx, coords, locationText)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Coordinate), args.Error(1)
}

func TestSearchHandler(t *testing.T) {
	t.Run("parses filters and wraps the result", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandlerImpl(svc, testLogger())
		svc.On("Search", mock.Anything, mock.MatchedBy(func(f types.SearchFilters) bool {
			return f.Query == "latte" && f.Coordinates != nil && f.Coordinates.Latitude == 37.77 &&
				*f.RadiusMeters == 1500 && *f.MinRating == 4 && assert.ObjectsAreEqual([]int{1, 2}, f.PriceLevels) &&
				assert.ObjectsAreEqual([]string{"Cafe", "Bakery"}, f.Categories) && f.Limit == 5 && f.Offset == 10
		})).Return(&types.SearchResult{Shops: []types.ShopWithDistance{}, SearchType: types.SearchTypeGeneralArea, DetectedIntent: types.IntentGeneral}, nil).Once()

		w := httptest.NewRecorder()
		h.Search(w, httptest.NewRequest(http.MethodGet,
			"/coffee-shops?query=latte&lat=37.77&lng=-122.41&radius=1500&min_rating=4&price_level=1,2&categories=Cafe,Bakery&limit=5&offset=10", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		data := body["data"].(map[string]any)
		assert.Equal(t, "general_area", data["search_type"])
		assert.Contains(t, data, "coffee_shops")
		svc.AssertExpectations(t)
	})

	t.Run("mode=local uses in-process ranking", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandlerImpl(svc, testLogger())
		svc.On("SearchLocal", mock.Anything, mock.Anything).Return(&types.SearchResult{SearchType: types.SearchTypeLocalRadius}, nil).Once()

		w := httptest.NewRecorder()
		h.Search(w, httptest.NewRequest(http.MethodGet, "/coffee-shops?query=latte&lat=1&lng=2&mode=local", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	})

	t.Run("input error is a 400 with its message", func(t *testing.T) {
		svc := new(MockService)
		h := NewHandlerImpl(svc, testLogger())
		svc.On("Search", mock.Anything, mock.Anything).Return(nil, types.NewInputError(errMissingLocation)).Once()

		w := httptest.NewRecorder()
		h.Search(w, httptest.NewRequest(http.MethodGet, "/coffee-shops?query=latte", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Location-based search requires query")
	})

	t.Run("bad number", func(t *testing.T) {
		svc := new(MockService)
		w := httptest.NewRecorder()
		NewHandlerImpl(svc, testLogger()).Search(w, httptest.NewRequest(http.MethodGet, "/coffee-shops?query=x&radius=far", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("store failure is a generic 500", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Search", mock.Anything, mock.Anything).
			Return(nil, &types.PersistenceError{Op: "count", Err: errors.New("password authentication failed")}).Once()
		w := httptest.NewRecorder()
		NewHandlerImpl(svc, testLogger()).Search(w, httptest.NewRequest(http.MethodGet, "/coffee-shops?query=x&lat=1&lng=1", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "password")
	})
}

func TestAutocompleteHandler(t *testing.T) {
	t.Run("short query", func(t *testing.T) {
		svc := new(MockService)
		w := httptest.NewRecorder()
		NewHandlerImpl(svc, testLogger()).Autocomplete(w, httptest.NewRequest(http.MethodGet, "/coffee-shops/autocomplete/search?query=b", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Query must be at least 2 characters")
	})

	t.Run("geocodes the location", func(t *testing.T) {
		svc := new(MockService)
		point := &types.Coordinate{Latitude: 40.7, Longitude: -74}
		svc.On("ResolveLocation", mock.Anything, (*types.Coordinate)(nil), "New York").Return(point, nil).Once()
		svc.On("Autocomplete", mock.Anything, "joe", 3, point).
			Return([]types.AutocompleteSuggestion{{Name: "Joe Coffee", Address: "131 W 21st St, New York"}}, nil).Once()

		w := httptest.NewRecorder()
		NewHandlerImpl(svc, testLogger()).Autocomplete(w, httptest.NewRequest(http.MethodGet, "/coffee-shops/autocomplete/search?query=joe&limit=3&location=New+York", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Joe Coffee")
		svc.AssertExpectations(t)
	})
}
