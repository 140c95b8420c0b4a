package services

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/Badr070118/lupeti-project-sub000/common/errors"
	"github.com/Badr070118/lupeti-project-sub000/models"
	"github.com/Badr070118/lupeti-project-sub000/repository"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("checkout-service/services")

// Clock returns the current time. Tests replace it to pin promotion windows.
type Clock func() time.Time

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperrors.KindOf(err)))
	}
	span.End()
}

// notFoundOr converts repository.ErrNotFound into a NOT_FOUND error with msg
// and wraps anything else as internal.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(msg)
	}
	return internal(err)
}

// internal passes application errors through and wraps everything else.
func internal(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	return apperrors.Internal("Internal server error", err)
}

func calculateTotalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

// appendAuditEvent writes a payment event outside any business transaction
// so the record survives a rollback of the operation it describes.
func appendAuditEvent(
	ctx context.Context,
	repos repository.Repositories,
	logger *zap.Logger,
	paymentID uuid.UUID,
	eventType models.PaymentEventType,
	payload map[string]any,
) {
	event := &models.PaymentEvent{ID: uuid.New(), PaymentID: paymentID, Type: eventType, Payload: payload}
	if err := repos.Payments.AppendEvent(ctx, event); err != nil {
		logger.Error("failed to append payment event",
			zap.String("payment_id", paymentID.String()),
			zap.String("type", string(eventType)),
			zap.Error(err),
		)
	}
}
