package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
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

// CallbackAck is the literal body the gateway expects; anything else makes
// it retry the notification.
const CallbackAck = "OK"

const callbackSuccessStatus = "success"

// CallbackService reconciles asynchronous gateway notifications.
type CallbackService interface {
	HandleCallback(ctx context.Context, n *models.CallbackNotification) (string, error)
}

type callbackServiceImpl struct {
	store    repository.Store
	provider providers.PaymentProvider
	events   EventPublisher
	logger   *zap.Logger
	now      Clock
}

func NewCallbackService(
	store repository.Store,
	provider providers.PaymentProvider,
	events EventPublisher,
	logger *zap.Logger,
	now Clock,
) CallbackService {
	if now == nil {
		now = time.Now
	}
	return &callbackServiceImpl{store: store, provider: provider, events: events, logger: logger, now: now}
}

func (s *callbackServiceImpl) HandleCallback(ctx context.Context, n *models.CallbackNotification) (ack string, err error) {
	ctx, span := startSpan(ctx, "CallbackService.HandleCallback")
	defer func() { endSpan(span, err) }()

	repos := s.store.Repos()
	payment, err := repos.Payments.FindByMerchantOID(ctx, n.MerchantOID)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("callback for unknown merchant_oid", zap.String("merchant_oid", n.MerchantOID))
		return "", apperrors.NotFound("Payment not found")
	}
	if err != nil {
		return "", internal(err)
	}

	verification := s.provider.VerifyCallback(n)
	if !verification.Valid {
		s.logger.Warn("callback signature mismatch",
			zap.String("merchant_oid", n.MerchantOID),
			zap.String("expected_hash", verification.Expected),
			zap.String("received_hash", n.Hash),
		)
		appendAuditEvent(ctx, repos, s.logger, payment.ID, models.EventInvalidSignature, map[string]any{
			"merchant_oid": n.MerchantOID,
			"status":       n.Status,
			"total_amount": n.TotalAmount,
		})
		return "", apperrors.ErrInvalidSignature
	}

	if payment.Status.IsTerminal() {
		s.logger.Info("callback replay ignored",
			zap.String("merchant_oid", n.MerchantOID),
			zap.String("status", string(payment.Status)),
		)
		return CallbackAck, nil
	}

	amount, err := strconv.ParseInt(strings.TrimSpace(n.TotalAmount), 10, 64)
	if err != nil {
		return "", apperrors.Validation(apperrors.CodeValidationFailed, "total_amount must be an integer amount in minor units")
	}
	if amount != payment.AmountCents {
		s.logger.Warn("callback amount mismatch",
			zap.String("merchant_oid", n.MerchantOID),
			zap.Int64("expected", payment.AmountCents),
			zap.Int64("received", amount),
		)
		appendAuditEvent(ctx, repos, s.logger, payment.ID, models.EventAmountMismatch, map[string]any{
			"merchant_oid": n.MerchantOID,
			"expected":     payment.AmountCents,
			"received":     amount,
		})
		return "", apperrors.ErrAmountMismatch
	}

	succeeded := strings.EqualFold(n.Status, callbackSuccessStatus)
	now := s.now()

	var settled *models.Payment
	err = s.store.WithinTransaction(ctx, func(repos repository.Repositories) error {
		p, err := s.settle(ctx, repos, n, succeeded, now)
		settled = p
		return err
	})
	if err != nil {
		return "", err
	}

	if settled != nil {
		eventType := EventPaymentFailed
		if succeeded {
			eventType = EventPaymentSucceeded
		}
		s.logger.Info("payment reconciled",
			zap.String("merchant_oid", n.MerchantOID),
			zap.String("payment_id", settled.ID.String()),
			zap.String("status", string(settled.Status)),
		)
		s.events.Publish(ctx, paymentEvent(eventType, settled, now))
	}
	return CallbackAck, nil
}

// settle applies the outcome inside one transaction. It returns nil when a
// concurrent delivery already settled the payment.
func (s *callbackServiceImpl) settle(
	ctx context.Context,
	repos repository.Repositories,
	n *models.CallbackNotification,
	succeeded bool,
	now time.Time,
) (*models.Payment, error) {
	payment, err := repos.Payments.FindByMerchantOIDForUpdate(ctx, n.MerchantOID)
	if err != nil {
		return nil, notFoundOr(err, "Payment not found")
	}
	if payment.Status.IsTerminal() {
		return nil, nil
	}

	paymentTarget, orderTarget := models.PaymentStatusFailed, models.OrderStatusFailed
	eventType := models.EventCallbackFailure
	if succeeded {
		paymentTarget, orderTarget = models.PaymentStatusPaid, models.OrderStatusPaid
		eventType = models.EventCallbackSuccess
	}

	path := payment.Status.PathTo(paymentTarget)
	if path == nil {
		return nil, invalidTransition(string(payment.Status), string(paymentTarget))
	}
	for _, next := range path {
		if err := repos.Payments.UpdateStatus(ctx, payment.ID, payment.Status, next, now); err != nil {
			return nil, internal(err)
		}
		payment.Status = next
	}

	order, err := repos.Orders.FindByID(ctx, payment.OrderID)
	if err != nil {
		return nil, notFoundOr(err, "Order not found")
	}
	payload := rawPayload(n)
	switch {
	case order.Status.CanTransitionTo(orderTarget):
		if err := repos.Orders.UpdateStatus(ctx, order.ID, order.Status, orderTarget); err != nil {
			if errors.Is(err, repository.ErrStatusConflict) {
				return nil, invalidTransition(string(order.Status), string(orderTarget))
			}
			return nil, internal(err)
		}
	case succeeded:
		// The capture happened and the gateway will keep retrying until it
		// gets an ack, so the payment settles PAID while the order keeps its
		// status. The event carries the refund flag for the back office.
		s.logger.Error("payment captured for order that cannot be marked paid, refund required",
			zap.String("order_id", order.ID.String()),
			zap.String("order_status", string(order.Status)),
			zap.String("merchant_oid", n.MerchantOID),
		)
		payload = lo.Assign(payload, map[string]any{"refund_required": true})
	default:
		// A failed payment for an order that already left PENDING_PAYMENT
		// (for example cancelled by the customer) only settles the payment.
	}

	if err := repos.Payments.AppendEvent(ctx, &models.PaymentEvent{
		ID:        uuid.New(),
		PaymentID: payment.ID,
		Type:      eventType,
		Payload:   payload,
	}); err != nil {
		return nil, internal(err)
	}
	return payment, nil
}

func rawPayload(n *models.CallbackNotification) map[string]any {
	if len(n.Raw) > 0 {
		return n.Raw
	}
	return map[string]any{
		"merchant_oid":       n.MerchantOID,
		"status":             n.Status,
		"total_amount":       n.TotalAmount,
		"hash":               n.Hash,
		"failed_reason_code": n.FailedReasonCode,
		"failed_reason_msg":  n.FailedReasonMsg,
		"payment_type":       n.PaymentType,
		"test_mode":          n.TestMode,
		"currency":           n.Currency,
	}
}

func invalidTransition(from, to string) error {
	return apperrors.Conflict(apperrors.CodeInvalidTransition, fmt.Sprintf("Cannot move from %s to %s", from, to))
}
