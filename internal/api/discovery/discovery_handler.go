package discovery

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	appMiddleware "github.com/FACorreiaa/go-coffee-finder/app/middleware"
	"github.com/FACorreiaa/go-coffee-finder/internal/api"
	"github.com/FACorreiaa/go-coffee-finder/internal/types"
)

// DefaultRadiusMeters is used by the discover endpoints when the body has no radius.
const DefaultRadiusMeters = 5000.0

type HandlerImpl struct {
	logger        *slog.Logger
	service       Service
	defaultRadius float64
}

func NewHandlerImpl(service Service, defaultRadius float64, logger *slog.Logger) *HandlerImpl {
	if defaultRadius <= 0 {
		defaultRadius = DefaultRadiusMeters
	}
	return &HandlerImpl{
		logger:        logger,
		service:       service,
		defaultRadius: defaultRadius,
	}
}

// handlerLogger tags log lines with the operator who called a write route.
func (h *HandlerImpl) handlerLogger(r *http.Request, handler string) *slog.Logger {
	l := h.logger.With(slog.String("HandlerImpl", handler))
	if subject, ok := appMiddleware.SubjectFromContext(r.Context()); ok && subject != "" {
		l = l.With(slog.String("operator", subject))
	}
	return l
}

func (h *HandlerImpl) radius(requested *float64) (float64, error) {
	if requested == nil {
		return h.defaultRadius, nil
	}
	if *requested < 0 {
		return 0, fmt.Errorf("radius must not be negative")
	}
	return *requested, nil
}

func discoverResponse(result types.DiscoveryResult) api.DiscoverResponse {
	return api.DiscoverResponse{
		Message:          fmt.Sprintf("Discovery completed: %d added, %d updated", result.Added, result.Updated),
		Added:            result.Added,
		Updated:          result.Updated,
		Errors:           result.Errors,
		GeocodedLocation: result.Location,
	}
}

// Discover godoc
// @Summary      Discover Coffee Shops
// @Description  Searches the places provider around an optional point and stores what it finds.
// @Tags         Discovery
// @Accept       json
// @Produce      json
// @Param        request body api.DiscoverRequest true "Discovery query"
// @Success      200 {object} api.Response{data=api.DiscoverResponse}
// @Failure      400 {object} api.Response "Invalid request"
// @Failure      401 {object} api.Response "Unauthorized"
// @Security     BearerAuth
// @Router       /coffee-shops/discover [post]
func (h *HandlerImpl) Discover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.handlerLogger(r, "Discover")

	var req api.DiscoverRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid discover body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Query parameter is required")
		return
	}
	if req.Location != nil && !req.Location.Valid() {
		api.ErrorResponse(w, r, http.StatusBadRequest, "location lat/lng out of range")
		return
	}
	radius, err := h.radius(req.Radius)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result := h.service.Discover(ctx, req.Query, req.Location, radius)
	l.InfoContext(ctx, "Discovery completed", slog.Int("added", result.Added), slog.Int("updated", result.Updated))
	api.SuccessResponse(w, r, http.StatusOK, discoverResponse(result))
}

// DiscoverByLocation godoc
// @Summary      Discover Coffee Shops By Location
// @Description  Geocodes a free-text location, then discovers and stores shops around it.
// @Tags         Discovery
// @Accept       json
// @Produce      json
// @Param        request body api.DiscoverByLocationRequest true "Discovery query"
// @Success      200 {object} api.Response{data=api.DiscoverResponse}
// @Failure      400 {object} api.Response "Invalid request"
// @Failure      401 {object} api.Response "Unauthorized"
// @Security     BearerAuth
// @Router       /coffee-shops/discover-by-location [post]
func (h *HandlerImpl) DiscoverByLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.handlerLogger(r, "DiscoverByLocation")

	var req api.DiscoverByLocationRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid discover-by-location body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Query parameter is required")
		return
	}
	radius, err := h.radius(req.Radius)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result := h.service.DiscoverByLocation(ctx, req.Query, req.Location, radius)
	l.InfoContext(ctx, "Discovery by location completed", slog.String("location", req.Location),
		slog.Int("added", result.Added), slog.Int("updated", result.Updated))
	api.SuccessResponse(w, r, http.StatusOK, discoverResponse(result))
}

// Refresh godoc
// @Summary      Refresh Coffee Shop
// @Description  Re-fetches provider details for a stored shop and merges them in.
// @Tags         Discovery
// @Produce      json
// @Param        id path string true "Coffee shop ID"
// @Success      200 {object} api.Response{data=types.Shop}
// @Failure      400 {object} api.Response "Invalid id"
// @Failure      404 {object} api.Response "Coffee shop not found"
// @Failure      500 {object} api.Response "Refresh failed"
// @Security     BearerAuth
// @Router       /coffee-shops/{id}/refresh [post]
func (h *HandlerImpl) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.handlerLogger(r, "Refresh")

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid coffee shop id")
		return
	}

	refreshed, err := h.service.Refresh(ctx, id)
	if err != nil {
		l.ErrorContext(ctx, "Refresh failed", slog.String("id", id.String()), slog.Any("error", err))
		api.ServiceErrorResponse(w, r, err, "Failed to refresh coffee shop data")
		return
	}
	if refreshed == nil {
		api.ErrorResponse(w, r, http.StatusNotFound, "Coffee shop not found or refresh failed")
		return
	}

	l.InfoContext(ctx, "Coffee shop refreshed", slog.String("id", id.String()))
	api.SuccessResponse(w, r, http.StatusOK, refreshed)
}
