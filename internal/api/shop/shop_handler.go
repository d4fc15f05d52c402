package shop

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

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

// GetShop godoc
// @Summary      Get Coffee Shop
// @Description  Returns a single coffee shop by id.
// @Tags         CoffeeShops
// @Produce      json
// @Param        id path string true "Coffee shop ID"
// @Success      200 {object} api.Response{data=types.Shop}
// @Failure      400 {object} api.Response "Invalid id"
// @Failure      404 {object} api.Response "Coffee shop not found"
// @Failure      500 {object} api.Response "Internal Server Error"
// @Router       /coffee-shops/{id} [get]
func (h *HandlerImpl) GetShop(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	ctx, span := otel.Tracer("ShopHandler").Start(r.Context(), "GetShop", trace.WithAttributes(
		attribute.String("shop.id", idStr),
	))
	defer span.End()

	l := h.logger.With(slog.String("HandlerImpl", "GetShop"))

	id, err := uuid.Parse(idStr)
	if err != nil {
		l.WarnContext(ctx, "Invalid shop id", slog.String("id", idStr))
		span.SetStatus(codes.Error, "invalid id")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid coffee shop id")
		return
	}

	shop, err := h.service.GetShop(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get shop failed")
		if errors.Is(err, types.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Coffee shop not found")
			return
		}
		l.ErrorContext(ctx, "Failed to get shop", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to get coffee shop")
		return
	}

	span.SetStatus(codes.Ok, "shop returned")
	api.SuccessResponse(w, r, http.StatusOK, shop)
}
