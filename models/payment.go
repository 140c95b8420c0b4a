package models

import (
	"time"

	"github.com/google/uuid"
)

const ProviderPayTR = "PAYTR"

type Payment struct {
	ID          uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID     uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`
	UserID      uuid.UUID     `gorm:"type:uuid;not null;index" json:"user_id"`
	Provider    string        `gorm:"type:varchar(20);not null" json:"provider"`
	Status      PaymentStatus `gorm:"type:varchar(20);not null" json:"status"`
	AmountCents int64         `gorm:"not null" json:"amount_cents"`
	Currency    string        `gorm:"type:varchar(3);not null" json:"currency"`
	MerchantOID *string       `gorm:"type:varchar(64);uniqueIndex" json:"merchant_oid,omitempty"`
	LastError   *string       `gorm:"type:varchar(512)" json:"last_error,omitempty"`
	PaidAt      *time.Time    `json:"paid_at,omitempty"`
	FailedAt    *time.Time    `json:"failed_at,omitempty"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// MerchantReference returns the gateway reference, or "" before one is assigned.
func (p *Payment) MerchantReference() string {
	if p.MerchantOID == nil {
		return ""
	}
	return *p.MerchantOID
}

type PaymentEventType string

const (
	EventRequest          PaymentEventType = "REQUEST"
	EventSuccess          PaymentEventType = "SUCCESS"
	EventFailed           PaymentEventType = "FAILED"
	EventInvalidSignature PaymentEventType = "INVALID_SIGNATURE"
	EventAmountMismatch   PaymentEventType = "AMOUNT_MISMATCH"
	EventCallbackSuccess  PaymentEventType = "CALLBACK_SUCCESS"
	EventCallbackFailure  PaymentEventType = "CALLBACK_FAILURE"
)

// PaymentEvent is an append-only audit record of one gateway interaction or
// state transition.
type PaymentEvent struct {
	ID        uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PaymentID uuid.UUID        `gorm:"type:uuid;not null;index" json:"payment_id"`
	Type      PaymentEventType `gorm:"type:varchar(32);not null" json:"type"`
	Payload   map[string]any   `gorm:"type:jsonb;serializer:json;not null" json:"payload"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

// CallbackNotification is the asynchronous result posted by the gateway.
type CallbackNotification struct {
	MerchantOID      string `form:"merchant_oid"`
	Status           string `form:"status"`
	TotalAmount      string `form:"total_amount"`
	Hash             string `form:"hash"`
	FailedReasonCode string `form:"failed_reason_code"`
	FailedReasonMsg  string `form:"failed_reason_msg"`
	PaymentType      string `form:"payment_type"`
	TestMode         string `form:"test_mode"`
	Currency         string `form:"currency"`
	// Raw holds every posted field for the audit trail.
	Raw map[string]any `form:"-"`
}

type InitiatePaymentResult struct {
	RedirectURL       string `json:"redirect_url"`
	Token             string `json:"token"`
	MerchantReference string `json:"merchant_reference"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
}

type PaymentDetails struct {
	Payment Payment        `json:"payment"`
	Events  []PaymentEvent `json:"events"`
}

// DomainEvent is published to SNS after a state change commits.
type DomainEvent struct {
	Type      string    `json:"type"`
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	PaymentID string    `json:"payment_id,omitempty"`
	Status    string    `json:"status"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Timestamp time.Time `json:"timestamp"`
}
