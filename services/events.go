package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Badr070118/lupeti-project-sub000/models"
	aws_pkg "github.com/Badr070118/lupeti-project-sub000/pkg/aws"
	"go.uber.org/zap"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusChanged = "order.status_changed"
	EventPaymentSucceeded   = "payment.succeeded"
	EventPaymentFailed      = "payment.failed"
)

// EventPublisher emits domain events after a transaction commits. Delivery
// is best-effort: failures are logged and never reach the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event models.DomainEvent)
}

type typedPublisher interface {
	PublishWithType(ctx context.Context, topicArn, eventType string, message []byte) error
}

type snsEventPublisher struct {
	client   aws_pkg.SNSPublisher
	topicArn string
	logger   *zap.Logger
}

// NewSNSEventPublisher returns a publisher that drops events when client or
// topicArn is unset.
func NewSNSEventPublisher(client aws_pkg.SNSPublisher, topicArn string, logger *zap.Logger) EventPublisher {
	return &snsEventPublisher{client: client, topicArn: topicArn, logger: logger}
}

func (p *snsEventPublisher) Publish(ctx context.Context, event models.DomainEvent) {
	if p.client == nil || p.topicArn == "" {
		p.logger.Debug("event publishing disabled", zap.String("event_type", event.Type))
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal domain event", zap.String("event_type", event.Type), zap.Error(err))
		return
	}

	if typed, ok := p.client.(typedPublisher); ok {
		err = typed.PublishWithType(ctx, p.topicArn, event.Type, body)
	} else {
		err = p.client.Publish(ctx, p.topicArn, body)
	}
	if err != nil {
		p.logger.Warn("failed to publish domain event",
			zap.String("event_type", event.Type),
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}

func orderEvent(eventType string, order *models.Order, at time.Time) models.DomainEvent {
	return models.DomainEvent{
		Type:      eventType,
		OrderID:   order.ID.String(),
		UserID:    order.UserID.String(),
		Status:    string(order.Status),
		Amount:    order.TotalCents,
		Currency:  order.Currency,
		Timestamp: at,
	}
}

func paymentEvent(eventType string, payment *models.Payment, at time.Time) models.DomainEvent {
	return models.DomainEvent{
		Type:      eventType,
		OrderID:   payment.OrderID.String(),
		UserID:    payment.UserID.String(),
		PaymentID: payment.ID.String(),
		Status:    string(payment.Status),
		Amount:    payment.AmountCents,
		Currency:  payment.Currency,
		Timestamp: at,
	}
}
