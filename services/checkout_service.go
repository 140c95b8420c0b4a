package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Badr070118/lupeti-project-sub000/common/errors"
	"github.com/Badr070118/lupeti-project-sub000/models"
	"github.com/Badr070118/lupeti-project-sub000/pkg/money"
	"github.com/Badr070118/lupeti-project-sub000/repository"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const DefaultIdempotencyTTL = 24 * time.Hour

const (
	// idempotencyClaimTTL bounds how long a crashed checkout can hold a key.
	idempotencyClaimTTL = time.Minute

	defaultIdempotencyPoll     = 100 * time.Millisecond
	defaultIdempotencyAttempts = 30
)

// CheckoutService turns a cart into an order.
type CheckoutService interface {
	// Checkout returns the created order. replayed is true when
	// idempotencyKey matched an earlier checkout and that order is returned.
	Checkout(ctx context.Context, userID uuid.UUID, req models.CheckoutRequest, idempotencyKey string) (order *models.Order, replayed bool, err error)
}

type checkoutServiceImpl struct {
	store    repository.Store
	idem     repository.IdempotencyStore
	idemTTL  time.Duration
	idemPoll time.Duration
	idemWait int
	events   EventPublisher
	currency string
	logger   *zap.Logger
	now      Clock
}

type CheckoutOption func(*checkoutServiceImpl)

// WithIdempotencyTTL sets how long a checkout key is remembered.
func WithIdempotencyTTL(ttl time.Duration) CheckoutOption {
	return func(s *checkoutServiceImpl) {
		if ttl > 0 {
			s.idemTTL = ttl
		}
	}
}

// WithIdempotencyWait sets how often and how many times a request polls a
// key that another request is still checking out with.
func WithIdempotencyWait(interval time.Duration, attempts int) CheckoutOption {
	return func(s *checkoutServiceImpl) {
		if interval > 0 && attempts > 0 {
			s.idemPoll, s.idemWait = interval, attempts
		}
	}
}

// NewCheckoutService creates a CheckoutService. idem may be nil, in which
// case idempotency keys are ignored.
func NewCheckoutService(
	store repository.Store,
	idem repository.IdempotencyStore,
	events EventPublisher,
	currency string,
	logger *zap.Logger,
	now Clock,
	opts ...CheckoutOption,
) CheckoutService {
	if now == nil {
		now = time.Now
	}
	s := &checkoutServiceImpl{
		store:    store,
		idem:     idem,
		idemTTL:  DefaultIdempotencyTTL,
		idemPoll: defaultIdempotencyPoll,
		idemWait: defaultIdempotencyAttempts,
		events:   events,
		currency: currency,
		logger:   logger,
		now:      now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *checkoutServiceImpl) Checkout(ctx context.Context, userID uuid.UUID, req models.CheckoutRequest, idempotencyKey string) (order *models.Order, replayed bool, err error) {
	ctx, span := startSpan(ctx, "CheckoutService.Checkout")
	defer func() { endSpan(span, err) }()

	idemKey := ""
	if idempotencyKey != "" && s.idem != nil {
		key := userID.String() + ":" + idempotencyKey
		existing, claimed, err := s.claim(ctx, userID, key)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, true, nil
		}
		if claimed {
			idemKey = key
		}
	}

	method, shippingCost := models.ResolveShipping(req.ShippingMethod)
	now := s.now()

	err = s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		created, err := s.assemble(ctx, repos, userID, req.ShippingAddress, method, shippingCost, now)
		if err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		if idemKey != "" {
			if relErr := s.idem.Release(ctx, idemKey); relErr != nil {
				s.logger.Warn("failed to release idempotency key", zap.Error(relErr))
			}
		}
		return nil, false, err
	}

	if idemKey != "" {
		if err := s.idem.Complete(ctx, idemKey, order.ID.String(), s.idemTTL); err != nil {
			s.logger.Warn("failed to store idempotency key", zap.String("order_id", order.ID.String()), zap.Error(err))
		}
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int64("total_cents", order.TotalCents),
		zap.Int("items", len(order.Items)),
	)
	s.events.Publish(ctx, orderEvent(EventOrderCreated, order, now))

	return order, false, nil
}

// claim reserves key for this request. When another request holds the key,
// claim waits for it and returns the order it produced, or fails with
// CHECKOUT_IN_PROGRESS once the wait runs out. Store failures degrade to a
// checkout without idempotency.
func (s *checkoutServiceImpl) claim(ctx context.Context, userID uuid.UUID, key string) (*models.Order, bool, error) {
	for attempt := 0; attempt < s.idemWait; attempt++ {
		claimed, err := s.idem.Claim(ctx, key, idempotencyClaimTTL)
		if err != nil {
			s.logger.Warn("idempotency claim failed", zap.Error(err))
			return nil, false, nil
		}
		if claimed {
			return nil, true, nil
		}

		value, err := s.idem.Get(ctx, key)
		if err != nil {
			s.logger.Warn("idempotency lookup failed", zap.Error(err))
			return nil, false, nil
		}
		switch value {
		case "":
			// Released or expired between Claim and Get; claim again.
			continue
		case repository.IdempotencyPending:
		default:
			return s.replay(ctx, userID, value), false, nil
		}

		select {
		case <-ctx.Done():
			return nil, false, internal(ctx.Err())
		case <-time.After(s.idemPoll):
		}
	}
	return nil, false, apperrors.ErrCheckoutInProgress
}

// replay loads the order a completed key points at. A value that does not
// resolve to one of the user's orders yields nil and a normal checkout.
func (s *checkoutServiceImpl) replay(ctx context.Context, userID uuid.UUID, orderID string) *models.Order {
	id, err := uuid.Parse(orderID)
	if err != nil {
		s.logger.Warn("idempotency key holds an invalid order id", zap.String("value", orderID))
		return nil
	}
	order, err := s.store.Repos().Orders.FindByIDAndUserID(ctx, id, userID)
	if err != nil {
		return nil
	}
	return order
}

// assemble runs inside the checkout transaction. Any error rolls back the
// order insert, the stock decrements and the cart clear together.
func (s *checkoutServiceImpl) assemble(
	ctx context.Context,
	repos repository.Repositories,
	userID uuid.UUID,
	address models.Address,
	method models.ShippingMethod,
	shippingCost int64,
	now time.Time,
) (*models.Order, error) {
	cart, err := repos.Carts.FindByUserID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrEmptyCart
	}
	if err != nil {
		return nil, internal(err)
	}
	if len(cart.Items) == 0 {
		return nil, apperrors.ErrEmptyCart
	}

	ids := lo.Map(cart.Items, func(item models.CartItem, _ int) uuid.UUID { return item.ProductID })
	locked, err := repos.Products.FindByIDsForUpdate(ctx, ids)
	if err != nil {
		return nil, internal(err)
	}
	products := lo.KeyBy(locked, func(p models.Product) uuid.UUID { return p.ID })

	subtotal, err := money.New(0, s.currency)
	if err != nil {
		return nil, apperrors.Internal("invalid store currency", err)
	}

	orderID := uuid.New()
	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		product, ok := products[line.ProductID]
		if !ok || !product.IsActive {
			title := ""
			if ok {
				title = product.Title
			} else if line.Product != nil {
				title = line.Product.Title
			}
			return nil, productUnavailable(title)
		}
		if !models.ValidQuantity(line.Quantity) {
			return nil, apperrors.ErrInvalidQuantity
		}
		if product.Stock < line.Quantity {
			return nil, insufficientStock(product.Title)
		}

		unit, err := money.New(product.Quote(now).FinalPrice, product.Currency)
		if err != nil {
			return nil, internal(err)
		}
		lineTotal := unit.Times(line.Quantity)
		if subtotal, err = subtotal.Add(lineTotal); err != nil {
			return nil, apperrors.Conflict(apperrors.CodeCurrencyMismatch,
				fmt.Sprintf("Product %q is priced in %s, expected %s", product.Title, product.Currency, s.currency))
		}

		items = append(items, models.OrderItem{
			ID:             uuid.New(),
			OrderID:        orderID,
			ProductID:      product.ID,
			Title:          product.Title,
			UnitPriceCents: unit.Amount,
			Quantity:       line.Quantity,
			LineTotalCents: lineTotal.Amount,
		})
	}

	order := &models.Order{
		ID:              orderID,
		UserID:          userID,
		Status:          models.OrderStatusPendingPayment,
		Currency:        subtotal.Currency,
		SubtotalCents:   subtotal.Amount,
		ShippingCents:   shippingCost,
		TotalCents:      subtotal.Amount + shippingCost,
		ShippingMethod:  method,
		ShippingAddress: address,
		Items:           items,
	}
	if err := repos.Orders.Create(ctx, order); err != nil {
		return nil, internal(fmt.Errorf("create order: %w", err))
	}

	for _, item := range items {
		if err := repos.Products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				return nil, insufficientStock(item.Title)
			}
			return nil, internal(err)
		}
	}

	if err := repos.Carts.Clear(ctx, cart.ID); err != nil {
		return nil, internal(fmt.Errorf("clear cart: %w", err))
	}
	return order, nil
}
