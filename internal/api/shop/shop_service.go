package shop

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-coffee-finder/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	GetShop(ctx context.Context, id uuid.UUID) (*types.Shop, error)
}

type ServiceImpl struct {
	logger     *slog.Logger
	repository Repository
}

func NewServiceImpl(repository Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		repository: repository,
	}
}

// GetShop returns types.ErrNotFound when no shop has the id.
func (s *ServiceImpl) GetShop(ctx context.Context, id uuid.UUID) (*types.Shop, error) {
	shop, err := s.repository.GetByID(ctx, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to get shop", slog.String("id", id.String()), slog.Any("error", err))
		return nil, err
	}
	if shop == nil {
		return nil, fmt.Errorf("shop %s: %w", id, types.ErrNotFound)
	}
	return shop, nil
}
