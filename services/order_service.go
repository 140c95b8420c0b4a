package services

import (
	"context"
	"errors"
	"sort"
	"time"

	apperrors "github.com/Badr070118/lupeti-project-sub000/common/errors"
	"github.com/Badr070118/lupeti-project-sub000/models"
	"github.com/Badr070118/lupeti-project-sub000/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService covers order reads, customer cancellation and admin status changes.
type OrderService interface {
	GetUserOrders(ctx context.Context, userID uuid.UUID, page, limit int) (*models.OrderResponse, error)
	GetOrderByID(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	GetAllOrders(ctx context.Context, filter models.OrderFilter, page, limit int) (*models.OrderResponse, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) (*models.Order, error)
}

type orderServiceImpl struct {
	store  repository.Store
	events EventPublisher
	logger *zap.Logger
	now    Clock
}

func NewOrderService(store repository.Store, events EventPublisher, logger *zap.Logger, now Clock) OrderService {
	if now == nil {
		now = time.Now
	}
	return &orderServiceImpl{store: store, events: events, logger: logger, now: now}
}

func (s *orderServiceImpl) GetUserOrders(ctx context.Context, userID uuid.UUID, page, limit int) (resp *models.OrderResponse, err error) {
	ctx, span := startSpan(ctx, "OrderService.GetUserOrders")
	defer func() { endSpan(span, err) }()

	orders, total, err := s.store.Repos().Orders.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		return nil, internal(err)
	}
	return orderPage(orders, total, page, limit), nil
}

func (s *orderServiceImpl) GetAllOrders(ctx context.Context, filter models.OrderFilter, page, limit int) (resp *models.OrderResponse, err error) {
	ctx, span := startSpan(ctx, "OrderService.GetAllOrders")
	defer func() { endSpan(span, err) }()

	orders, total, err := s.store.Repos().Orders.FindAll(ctx, filter, page, limit)
	if err != nil {
		return nil, internal(err)
	}
	return orderPage(orders, total, page, limit), nil
}

func orderPage(orders []models.Order, total int64, page, limit int) *models.OrderResponse {
	if orders == nil {
		orders = []models.Order{}
	}
	return &models.OrderResponse{
		Orders: orders,
		Meta: models.MetaData{
			Page:        page,
			Limit:       limit,
			TotalOrders: total,
			TotalPages:  calculateTotalPages(total, limit),
			HasMore:     total > int64(page*limit),
		},
	}
}

func (s *orderServiceImpl) GetOrderByID(ctx context.Context, userID, orderID uuid.UUID) (order *models.Order, err error) {
	ctx, span := startSpan(ctx, "OrderService.GetOrderByID")
	defer func() { endSpan(span, err) }()

	order, err = s.store.Repos().Orders.FindByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		return nil, notFoundOr(err, "Order not found")
	}
	return order, nil
}

// CancelOrder lets a customer abandon an unpaid order. Reserved stock is
// returned in the same transaction.
func (s *orderServiceImpl) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (order *models.Order, err error) {
	ctx, span := startSpan(ctx, "OrderService.CancelOrder")
	defer func() { endSpan(span, err) }()

	err = s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		o, err := repos.Orders.FindByIDAndUserID(ctx, orderID, userID)
		if err != nil {
			return notFoundOr(err, "Order not found")
		}
		if o.Status != models.OrderStatusPendingPayment {
			return apperrors.Conflict(apperrors.CodeInvalidTransition, "Only orders awaiting payment can be cancelled")
		}
		if err := s.cancelInTx(ctx, repos, o); err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order cancelled", zap.String("order_id", order.ID.String()), zap.String("user_id", userID.String()))
	s.events.Publish(ctx, orderEvent(EventOrderCancelled, order, s.now()))
	return order, nil
}

// UpdateOrderStatus is the admin override. It goes through the same
// transition table as everything else; PAID and FAILED are only ever set by
// payment reconciliation.
func (s *orderServiceImpl) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) (order *models.Order, err error) {
	ctx, span := startSpan(ctx, "OrderService.UpdateOrderStatus")
	defer func() { endSpan(span, err) }()

	target, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, apperrors.Validation(apperrors.CodeValidationFailed, "Unknown order status")
	}
	if target == models.OrderStatusPaid || target == models.OrderStatusFailed {
		return nil, apperrors.Conflict(apperrors.CodeInvalidTransition, "PAID and FAILED are set by payment reconciliation only")
	}

	var from models.OrderStatus
	err = s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		o, err := repos.Orders.FindByID(ctx, orderID)
		if err != nil {
			return notFoundOr(err, "Order not found")
		}
		from = o.Status
		if !o.Status.CanTransitionTo(target) {
			return invalidTransition(string(o.Status), string(target))
		}

		if target == models.OrderStatusCancelled {
			if err := s.cancelInTx(ctx, repos, o); err != nil {
				return err
			}
		} else {
			if err := repos.Orders.UpdateStatus(ctx, o.ID, o.Status, target); err != nil {
				return statusUpdateErr(err, o.Status, target)
			}
			o.Status = target
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order status changed by admin",
		zap.String("order_id", order.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
	)
	s.events.Publish(ctx, orderEvent(EventOrderStatusChanged, order, s.now()))
	return order, nil
}

// cancelInTx moves o to CANCELLED and restores its stock. It refuses while a
// gateway payment page is open for the order.
func (s *orderServiceImpl) cancelInTx(ctx context.Context, repos repository.Repositories, o *models.Order) error {
	payment, err := repos.Payments.FindByOrderIDForUpdate(ctx, o.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return internal(err)
	case payment.Status == models.PaymentStatusPending:
		return apperrors.Conflict(apperrors.CodePaymentInProgress, "A payment for this order is in progress")
	}

	if err := repos.Orders.UpdateStatus(ctx, o.ID, o.Status, models.OrderStatusCancelled); err != nil {
		return statusUpdateErr(err, o.Status, models.OrderStatusCancelled)
	}
	o.Status = models.OrderStatusCancelled

	// Same lock order as checkout.
	items := append([]models.OrderItem(nil), o.Items...)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID.String() < items[j].ProductID.String() })
	for _, item := range items {
		if err := repos.Products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn("cannot restore stock for missing product",
					zap.String("order_id", o.ID.String()),
					zap.String("product_id", item.ProductID.String()),
				)
				continue
			}
			return internal(err)
		}
	}
	return nil
}

func statusUpdateErr(err error, from, to models.OrderStatus) error {
	if errors.Is(err, repository.ErrStatusConflict) {
		return invalidTransition(string(from), string(to))
	}
	return internal(err)
}
