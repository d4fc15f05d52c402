package search

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/FACorreiaa/go-coffee-finder/internal/api"
	"github.com/FACorreiaa/go-coffee-finder/internal/types"
)

type HandlerImpl struct {
	logger  *slog.Logger
	service Service
}

func NewHandlerImpl(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		logger:  logger,
		service: service,
	}
}

func parseFilters(r *http.Request) (types.SearchFilters, error) {
	q := r.URL.Query()
	f := types.SearchFilters{
		Query:        q.Get("query"),
		LocationText: q.Get("location_string"),
		Categories:   api.QueryList(r, "categories"),
	}

	var err error
	if f.Coordinates, err = api.QueryCoordinate(r); err != nil {
		return f, err
	}
	if f.RadiusMeters, err = api.QueryFloat(r, "radius"); err != nil {
		return f, err
	}
	if f.MinRating, err = api.QueryFloat(r, "min_rating"); err != nil {
		return f, err
	}
	if f.MaxRating, err = api.QueryFloat(r, "max_rating"); err != nil {
		return f, err
	}
	if f.Limit, err = api.QueryInt(r, "limit", 0); err != nil {
		return f, err
	}
	if f.Offset, err = api.QueryInt(r, "offset", 0); err != nil {
		return f, err
	}
	for _, p := range api.QueryList(r, "price_level") {
		level, err := strconv.Atoi(p)
		if err != nil {
			return f, types.NewInputError("price_level must be a comma separated list of integers")
		}
		f.PriceLevels = append(f.PriceLevels, level)
	}
	return f, nil
}

// Search godoc
// @Summary      Search Coffee Shops
// @Description  Finds coffee shops around coordinates or a location string. Sparse areas are backfilled from the places provider first.
// @Tags         CoffeeShops
// @Produce      json
// @Param        query           query string  true  "Search text"
// @Param        lat             query number  false "Latitude"
// @Param        lng             query number  false "Longitude"
// @Param        location_string query string  false "Free text location, geocoded when lat/lng are absent"
// @Param        radius          query number  false "Radius in meters (default 50000)"
// @Param        min_rating      query number  false "Minimum rating"
// @Param        max_rating      query number  false "Maximum rating"
// @Param        price_level     query string  false "Comma separated price levels (1-4)"
// @Param        categories      query string  false "Comma separated categories"
// @Param        limit           query int     false "Page size (default 20, max 100)"
// @Param        offset          query int     false "Page offset"
// @Param        mode            query string  false "Set to local to rank by in-process distance"
// @Success      200 {object} api.Response{data=types.SearchResult}
// @Failure      400 {object} api.Response "Invalid request"
// @Failure      500 {object} api.Response "Internal Server Error"
// @Router       /coffee-shops [get]
func (h *HandlerImpl) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "Search"))

	filters, err := parseFilters(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var result *types.SearchResult
	if strings.EqualFold(r.URL.Query().Get("mode"), "local") {
		result, err = h.service.SearchLocal(ctx, filters)
	} else {
		result, err = h.service.Search(ctx, filters)
	}
	if err != nil {
		l.ErrorContext(ctx, "Search failed", slog.Any("error", err))
		api.ServiceErrorResponse(w, r, err, "Failed to search coffee shops")
		return
	}

	api.SuccessResponse(w, r, http.StatusOK, result)
}

// Autocomplete godoc
// @Summary      Autocomplete Coffee Shops
// @Description  Suggests stored shops nearest to the given point whose name, address or city contains the query.
// @Tags         CoffeeShops
// @Produce      json
// @Param        query    query string true  "At least 2 characters"
// @Param        limit    query int    false "Maximum suggestions (capped at 5)"
// @Param        lat      query number false "Latitude"
// @Param        lng      query number false "Longitude"
// @Param        location query string false "Free text location, geocoded when lat/lng are absent"
// @Success      200 {object} api.Response{data=[]types.AutocompleteSuggestion}
// @Failure      400 {object} api.Response "Query too short"
// @Failure      500 {object} api.Response "Internal Server Error"
// @Router       /coffee-shops/autocomplete/search [get]
func (h *HandlerImpl) Autocomplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "Autocomplete"))

	query := r.URL.Query().Get("query")
	if len([]rune(strings.TrimSpace(query))) < minAutocompleteQuery {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Query must be at least 2 characters")
		return
	}
	limit, err := api.QueryInt(r, "limit", defaultAutocomplete)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	coords, err := api.QueryCoordinate(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	center, err := h.service.ResolveLocation(ctx, coords, r.URL.Query().Get("location"))
	if err != nil {
		// suggestions without a center are empty, not an error
		l.WarnContext(ctx, "Could not resolve autocomplete location", slog.Any("error", err))
		center = nil
	}

	suggestions, err := h.service.Autocomplete(ctx, query, limit, center)
	if err != nil {
		l.ErrorContext(ctx, "Autocomplete failed", slog.Any("error", err))
		api.ServiceErrorResponse(w, r, err, "Failed to get autocomplete suggestions")
		return
	}
	api.SuccessResponse(w, r, http.StatusOK, suggestions)
}
