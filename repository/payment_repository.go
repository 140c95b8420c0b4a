package repository

import (
	"context"
	"time"

	"github.com/Badr070118/lupeti-project-sub000/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository covers payments and their append-only event log.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	FindByOrderIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	FindByMerchantOID(ctx context.Context, merchantOID string) (*models.Payment, error)
	FindByMerchantOIDForUpdate(ctx context.Context, merchantOID string) (*models.Payment, error)
	Update(ctx context.Context, payment *models.Payment) error
	// UpdateStatus is a compare-and-set on status. at is stamped into
	// paid_at or failed_at when moving to a terminal status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.PaymentStatus, at time.Time) error
	// SetLastError records a gateway error on a payment that is not yet
	// settled. It never touches any other column.
	SetLastError(ctx context.Context, id uuid.UUID, message string) error
	AppendEvent(ctx context.Context, event *models.PaymentEvent) error
	ListEvents(ctx context.Context, paymentID uuid.UUID) ([]models.PaymentEvent, error)
}

type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) PaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return translate(r.db.WithContext(ctx).Create(payment).Error)
}

func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *GormPaymentRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	return r.findOne(r.db.WithContext(ctx).Where("order_id = ?", orderID))
}

func (r *GormPaymentRepository) FindByOrderIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	return r.findOne(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", orderID))
}

func (r *GormPaymentRepository) FindByMerchantOID(ctx context.Context, merchantOID string) (*models.Payment, error) {
	return r.findOne(r.db.WithContext(ctx).Where("merchant_oid = ?", merchantOID))
}

func (r *GormPaymentRepository) FindByMerchantOIDForUpdate(ctx context.Context, merchantOID string) (*models.Payment, error) {
	return r.findOne(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("merchant_oid = ?", merchantOID))
}

func (r *GormPaymentRepository) findOne(query *gorm.DB) (*models.Payment, error) {
	var payment models.Payment
	if err := query.First(&payment).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

func (r *GormPaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	return translate(r.db.WithContext(ctx).Save(payment).Error)
}

func (r *GormPaymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.PaymentStatus, at time.Time) error {
	updates := map[string]any{"status": to}
	switch to {
	case models.PaymentStatusPaid:
		updates["paid_at"] = at
	case models.PaymentStatusFailed:
		updates["failed_at"] = at
	}

	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *GormPaymentRepository) SetLastError(ctx context.Context, id uuid.UUID, message string) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status NOT IN ?", id, []models.PaymentStatus{models.PaymentStatusPaid, models.PaymentStatusFailed}).
		Update("last_error", message).Error
}

func (r *GormPaymentRepository) AppendEvent(ctx context.Context, event *models.PaymentEvent) error {
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}
	return translate(r.db.WithContext(ctx).Create(event).Error)
}

func (r *GormPaymentRepository) ListEvents(ctx context.Context, paymentID uuid.UUID) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
