package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/Badr070118/lupeti-project-sub000/common/errors"
	"github.com/Badr070118/lupeti-project-sub000/models"
	"github.com/Badr070118/lupeti-project-sub000/providers"
	"github.com/Badr070118/lupeti-project-sub000/repository"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const merchantOIDPrefix = "LP"

// PaymentService starts hosted payments for orders and exposes their audit trail.
type PaymentService interface {
	Initiate(ctx context.Context, userID, orderID uuid.UUID, clientIP string) (*models.InitiatePaymentResult, error)
	GetPayment(ctx context.Context, userID, orderID uuid.UUID) (*models.PaymentDetails, error)
	ListEvents(ctx context.Context, paymentID uuid.UUID) (*models.PaymentDetails, error)
}

type paymentServiceImpl struct {
	store    repository.Store
	provider providers.PaymentProvider
	logger   *zap.Logger
	now      Clock
}

func NewPaymentService(store repository.Store, provider providers.PaymentProvider, logger *zap.Logger, now Clock) PaymentService {
	if now == nil {
		now = time.Now
	}
	return &paymentServiceImpl{store: store, provider: provider, logger: logger, now: now}
}

// newMerchantOID returns "LP" followed by 32 hex characters. The result is
// strictly alphanumeric.
func newMerchantOID() string {
	return merchantOIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *paymentServiceImpl) Initiate(ctx context.Context, userID, orderID uuid.UUID, clientIP string) (result *models.InitiatePaymentResult, err error) {
	ctx, span := startSpan(ctx, "PaymentService.Initiate")
	defer func() { endSpan(span, err) }()

	repos := s.store.Repos()
	order, err := repos.Orders.FindByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		return nil, notFoundOr(err, "Order not found")
	}
	if order.Status != models.OrderStatusPendingPayment {
		return nil, apperrors.ErrNotPayable
	}

	payment, err := s.preparePayment(ctx, order)
	if errors.Is(err, repository.ErrDuplicate) {
		// Lost the insert race for this order; the winner's row is there now.
		payment, err = s.preparePayment(ctx, order)
	}
	if err != nil {
		return nil, internal(err)
	}

	signed, err := s.provider.BuildTokenRequest(tokenRequestFor(order, payment, clientIP))
	if err != nil {
		return nil, apperrors.Internal("failed to build payment request", err)
	}
	appendAuditEvent(ctx, repos, s.logger, payment.ID, models.EventRequest, signed.Sanitized())

	token, err := s.provider.SubmitTokenRequest(ctx, signed)
	if err != nil {
		return nil, s.recordRejection(ctx, repos, payment, err)
	}

	if err := s.confirmPending(ctx, payment); err != nil {
		return nil, err
	}
	appendAuditEvent(ctx, repos, s.logger, payment.ID, models.EventSuccess, map[string]any{
		"merchant_oid": payment.MerchantReference(),
		"status":       "success",
	})

	s.logger.Info("payment initiated",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("merchant_oid", payment.MerchantReference()),
	)

	return &models.InitiatePaymentResult{
		RedirectURL:       token.IframeURL,
		Token:             token.Token,
		MerchantReference: payment.MerchantReference(),
		Amount:            payment.AmountCents,
		Currency:          payment.Currency,
	}, nil
}

// preparePayment finds or creates the order's payment, resyncs its amount to
// the order total and assigns the merchant reference if it has none yet.
func (s *paymentServiceImpl) preparePayment(ctx context.Context, order *models.Order) (*models.Payment, error) {
	var payment *models.Payment
	err := s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		existing, err := repos.Payments.FindByOrderIDForUpdate(ctx, order.ID)
		if errors.Is(err, repository.ErrNotFound) {
			oid := newMerchantOID()
			payment = &models.Payment{
				ID:          uuid.New(),
				OrderID:     order.ID,
				UserID:      order.UserID,
				Provider:    s.provider.Name(),
				Status:      models.PaymentStatusInitiated,
				AmountCents: order.TotalCents,
				Currency:    order.Currency,
				MerchantOID: &oid,
			}
			return repos.Payments.Create(ctx, payment)
		}
		if err != nil {
			return err
		}

		if existing.Status.IsTerminal() {
			return apperrors.ErrNotPayable
		}

		changed := false
		if existing.AmountCents != order.TotalCents || existing.Currency != order.Currency {
			existing.AmountCents = order.TotalCents
			existing.Currency = order.Currency
			changed = true
		}
		if existing.MerchantOID == nil {
			oid := newMerchantOID()
			existing.MerchantOID = &oid
			changed = true
		}
		payment = existing
		if !changed {
			return nil
		}
		return repos.Payments.Update(ctx, existing)
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// confirmPending runs once the gateway has issued a token. Under the payment
// row lock it re-reads the order and the payment: a cancel or a settling
// callback that committed while the token request was in flight wins and the
// token is discarded. Otherwise an INITIATED payment moves to PENDING.
func (s *paymentServiceImpl) confirmPending(ctx context.Context, payment *models.Payment) error {
	return s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		current, err := repos.Payments.FindByOrderIDForUpdate(ctx, payment.OrderID)
		if err != nil {
			return internal(err)
		}
		order, err := repos.Orders.FindByID(ctx, payment.OrderID)
		if err != nil {
			return internal(err)
		}
		if current.Status.IsTerminal() || order.Status != models.OrderStatusPendingPayment {
			s.logger.Warn("order left PENDING_PAYMENT during token request",
				zap.String("order_id", order.ID.String()),
				zap.String("order_status", string(order.Status)),
				zap.String("payment_status", string(current.Status)),
			)
			return apperrors.ErrNotPayable
		}
		if current.Status == models.PaymentStatusInitiated {
			err := repos.Payments.UpdateStatus(ctx, current.ID, models.PaymentStatusInitiated, models.PaymentStatusPending, s.now())
			if err != nil {
				return internal(err)
			}
		}
		payment.Status = models.PaymentStatusPending
		return nil
	})
}

func tokenRequestFor(order *models.Order, payment *models.Payment, clientIP string) providers.TokenRequest {
	basket := lo.Map(order.Items, func(item models.OrderItem, _ int) providers.BasketItem {
		return providers.BasketItem{Title: item.Title, UnitPrice: item.UnitPriceCents, Quantity: item.Quantity}
	})
	if order.ShippingCents > 0 {
		basket = append(basket, providers.BasketItem{
			Title:     fmt.Sprintf("Shipping (%s)", order.ShippingMethod),
			UnitPrice: order.ShippingCents,
			Quantity:  1,
		})
	}

	addr := order.ShippingAddress
	return providers.TokenRequest{
		MerchantOID: payment.MerchantReference(),
		UserIP:      clientIP,
		Email:       addr.Email,
		UserName:    addr.FullName,
		UserAddress: addr.OneLine(),
		UserPhone:   addr.Phone,
		Amount:      payment.AmountCents,
		Currency:    payment.Currency,
		Basket:      basket,
	}
}

// recordRejection writes the FAILED audit event and last_error, then maps the
// gateway failure to GATEWAY_REJECTED. last_error is written with a targeted
// update; a callback may have settled the payment while the request was out.
func (s *paymentServiceImpl) recordRejection(ctx context.Context, repos repository.Repositories, payment *models.Payment, cause error) error {
	reason := "payment gateway unavailable"
	payload := map[string]any{"merchant_oid": payment.MerchantReference()}

	var rejected *providers.RejectedError
	if errors.As(cause, &rejected) {
		reason = rejected.Reason
		payload["status_code"] = rejected.StatusCode
		s.logger.Warn("payment gateway rejected token request",
			zap.String("payment_id", payment.ID.String()),
			zap.Int("status_code", rejected.StatusCode),
			zap.String("raw_body", rejected.RawBody),
		)
	} else {
		s.logger.Error("payment gateway request failed",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(cause),
		)
	}
	payload["reason"] = reason

	appendAuditEvent(ctx, repos, s.logger, payment.ID, models.EventFailed, payload)

	if err := repos.Payments.SetLastError(ctx, payment.ID, reason); err != nil {
		s.logger.Error("failed to record payment error", zap.String("payment_id", payment.ID.String()), zap.Error(err))
	}

	return apperrors.Gateway(apperrors.CodeGatewayRejected, "Payment gateway rejected the request: "+reason, cause)
}

func (s *paymentServiceImpl) GetPayment(ctx context.Context, userID, orderID uuid.UUID) (details *models.PaymentDetails, err error) {
	ctx, span := startSpan(ctx, "PaymentService.GetPayment")
	defer func() { endSpan(span, err) }()

	repos := s.store.Repos()
	if _, err := repos.Orders.FindByIDAndUserID(ctx, orderID, userID); err != nil {
		return nil, notFoundOr(err, "Order not found")
	}
	payment, err := repos.Payments.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "Payment not found")
	}
	return s.withEvents(ctx, repos, payment)
}

func (s *paymentServiceImpl) ListEvents(ctx context.Context, paymentID uuid.UUID) (details *models.PaymentDetails, err error) {
	ctx, span := startSpan(ctx, "PaymentService.ListEvents")
	defer func() { endSpan(span, err) }()

	repos := s.store.Repos()
	payment, err := repos.Payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, notFoundOr(err, "Payment not found")
	}
	return s.withEvents(ctx, repos, payment)
}

func (s *paymentServiceImpl) withEvents(ctx context.Context, repos repository.Repositories, payment *models.Payment) (*models.PaymentDetails, error) {
	events, err := repos.Payments.ListEvents(ctx, payment.ID)
	if err != nil {
		return nil, internal(err)
	}
	if events == nil {
		events = []models.PaymentEvent{}
	}
	return &models.PaymentDetails{Payment: *payment, Events: events}, nil
}
