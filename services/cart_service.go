package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Badr070118/lupeti-project-sub000/common/errors"
	"github.com/Badr070118/lupeti-project-sub000/models"
	"github.com/Badr070118/lupeti-project-sub000/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartService defines the interface for cart business logic.
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*models.CartView, error)
	AddItem(ctx context.Context, userID uuid.UUID, req models.AddCartItemRequest) (*models.CartView, error)
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.CartView, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*models.CartView, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartServiceImpl struct {
	store    repository.Store
	currency string
	logger   *zap.Logger
	now      Clock
}

func NewCartService(store repository.Store, currency string, logger *zap.Logger, now Clock) CartService {
	if now == nil {
		now = time.Now
	}
	return &cartServiceImpl{store: store, currency: currency, logger: logger, now: now}
}

func (s *cartServiceImpl) GetCart(ctx context.Context, userID uuid.UUID) (view *models.CartView, err error) {
	ctx, span := startSpan(ctx, "CartService.GetCart")
	defer func() { endSpan(span, err) }()

	cart, err := s.store.Repos().Carts.FindByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.CartView{Items: []models.CartLineView{}, Currency: s.currency}, nil
	}
	if err != nil {
		return nil, internal(err)
	}
	return s.buildView(cart), nil
}

// buildView prices every line at the current time. Lines whose product has
// vanished are skipped; checkout reports them.
func (s *cartServiceImpl) buildView(cart *models.Cart) *models.CartView {
	now := s.now()
	view := &models.CartView{Items: make([]models.CartLineView, 0, len(cart.Items)), Currency: s.currency}
	for _, item := range cart.Items {
		if item.Product == nil {
			continue
		}
		quote := item.Product.Quote(now)
		line := models.CartLineView{
			ProductID: item.ProductID,
			Title:     item.Product.Title,
			Quantity:  item.Quantity,
			Stock:     item.Product.Stock,
			IsActive:  item.Product.IsActive,
			Price:     quote,
			LineTotal: quote.FinalPrice * int64(item.Quantity),
		}
		view.Items = append(view.Items, line)
		view.Subtotal += line.LineTotal
	}
	return view
}

func (s *cartServiceImpl) AddItem(ctx context.Context, userID uuid.UUID, req models.AddCartItemRequest) (view *models.CartView, err error) {
	ctx, span := startSpan(ctx, "CartService.AddItem")
	defer func() { endSpan(span, err) }()

	if !models.ValidQuantity(req.Quantity) {
		return nil, apperrors.ErrInvalidQuantity
	}

	err = s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		product, err := s.loadAvailableProduct(ctx, repos, req.ProductID)
		if err != nil {
			return err
		}

		cart, err := repos.Carts.GetOrCreate(ctx, userID)
		if err != nil {
			return internal(err)
		}

		item, err := repos.Carts.FindItem(ctx, cart.ID, req.ProductID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			item = &models.CartItem{CartID: cart.ID, ProductID: req.ProductID}
		case err != nil:
			return internal(err)
		}

		quantity := item.Quantity + req.Quantity
		if !models.ValidQuantity(quantity) {
			return apperrors.ErrInvalidQuantity
		}
		if quantity > product.Stock {
			return insufficientStock(product.Title)
		}

		item.Quantity = quantity
		return internal(repos.Carts.SaveItem(ctx, item))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("cart item added",
		zap.String("user_id", userID.String()),
		zap.String("product_id", req.ProductID.String()),
		zap.Int("quantity", req.Quantity),
	)
	return s.GetCart(ctx, userID)
}

func (s *cartServiceImpl) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (view *models.CartView, err error) {
	ctx, span := startSpan(ctx, "CartService.UpdateItem")
	defer func() { endSpan(span, err) }()

	if !models.ValidQuantity(quantity) {
		return nil, apperrors.ErrInvalidQuantity
	}

	err = s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		cart, err := repos.Carts.FindByUserID(ctx, userID)
		if err != nil {
			return notFoundOr(err, "Cart item not found")
		}
		item, err := repos.Carts.FindItem(ctx, cart.ID, productID)
		if err != nil {
			return notFoundOr(err, "Cart item not found")
		}

		product, err := s.loadAvailableProduct(ctx, repos, productID)
		if err != nil {
			return err
		}
		if quantity > product.Stock {
			return insufficientStock(product.Title)
		}

		item.Quantity = quantity
		return internal(repos.Carts.SaveItem(ctx, item))
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *cartServiceImpl) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (view *models.CartView, err error) {
	ctx, span := startSpan(ctx, "CartService.RemoveItem")
	defer func() { endSpan(span, err) }()

	repos := s.store.Repos()
	cart, err := repos.Carts.FindByUserID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "Cart item not found")
	}
	if err := repos.Carts.DeleteItem(ctx, cart.ID, productID); err != nil {
		return nil, notFoundOr(err, "Cart item not found")
	}
	return s.GetCart(ctx, userID)
}

func (s *cartServiceImpl) Clear(ctx context.Context, userID uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "CartService.Clear")
	defer func() { endSpan(span, err) }()

	repos := s.store.Repos()
	cart, err := repos.Carts.FindByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return internal(err)
	}
	return internal(repos.Carts.Clear(ctx, cart.ID))
}

func (s *cartServiceImpl) loadAvailableProduct(ctx context.Context, repos repository.Repositories, productID uuid.UUID) (*models.Product, error) {
	product, err := repos.Products.FindByID(ctx, productID)
	if err != nil {
		return nil, notFoundOr(err, "Product not found")
	}
	if !product.IsActive {
		return nil, productUnavailable(product.Title)
	}
	return product, nil
}

func insufficientStock(title string) error {
	return apperrors.Conflict(apperrors.CodeInsufficientStock, fmt.Sprintf("Insufficient stock for %q", title))
}

func productUnavailable(title string) error {
	if title == "" {
		return apperrors.Conflict(apperrors.CodeProductUnavailable, "A product in your cart is no longer available")
	}
	return apperrors.Conflict(apperrors.CodeProductUnavailable, fmt.Sprintf("Product %q is no longer available", title))
}
