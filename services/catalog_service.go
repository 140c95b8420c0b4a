package services

import (
	"context"
	"time"

	"github.com/Badr070118/lupeti-project-sub000/models"
	"github.com/Badr070118/lupeti-project-sub000/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogService prices products for display.
type CatalogService interface {
	Quote(ctx context.Context, productID uuid.UUID) (*models.ProductQuote, error)
}

type catalogServiceImpl struct {
	store  repository.Store
	logger *zap.Logger
	now    Clock
}

func NewCatalogService(store repository.Store, logger *zap.Logger, now Clock) CatalogService {
	if now == nil {
		now = time.Now
	}
	return &catalogServiceImpl{store: store, logger: logger, now: now}
}

func (s *catalogServiceImpl) Quote(ctx context.Context, productID uuid.UUID) (quote *models.ProductQuote, err error) {
	ctx, span := startSpan(ctx, "CatalogService.Quote")
	defer func() { endSpan(span, err) }()

	product, err := s.store.Repos().Products.FindByID(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "Product not found")
	}

	return &models.ProductQuote{
		ProductID: product.ID,
		Title:     product.Title,
		Currency:  product.Currency,
		InStock:   product.IsActive && product.Stock > 0,
		Quote:     product.Quote(s.now()),
	}, nil
}
