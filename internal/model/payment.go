package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the state of a processor transaction
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment records a processor transaction against an invoice
type Payment struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	InvoiceID      uuid.UUID     `json:"invoice_id" db:"invoice_id"`
	OrganizationID uuid.UUID     `json:"organization_id" db:"organization_id"`
	AmountCents    int64         `json:"amount_cents" db:"amount_cents"`
	Currency       string        `json:"currency" db:"currency"`
	Status         PaymentStatus `json:"status" db:"status"`
	Method         string        `json:"method" db:"method"`

	StripePaymentIntentID *string `json:"stripe_payment_intent_id,omitempty" db:"stripe_payment_intent_id"`
	PlatformFeeCents      int64   `json:"platform_fee_cents" db:"platform_fee_cents"`
	FailureMessage        *string `json:"failure_message,omitempty" db:"failure_message"`

	PaidAt    *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// PaymentIntentResult is returned to the public payment page
type PaymentIntentResult struct {
	ClientSecret     string `json:"client_secret"`
	AmountCents      int64  `json:"amount_cents"`
	PlatformFeeCents int64  `json:"platform_fee_cents"`
	Currency         string `json:"currency"`
}
