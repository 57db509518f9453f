package model

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceStatus is the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusViewed    InvoiceStatus = "viewed"
	InvoiceStatusPartial   InvoiceStatus = "partial"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusVoid      InvoiceStatus = "void"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Valid reports whether s is a known status
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusViewed,
		InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusOverdue,
		InvoiceStatusVoid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no payment may be accepted in this state
func (s InvoiceStatus) Terminal() bool {
	switch s {
	case InvoiceStatusPaid, InvoiceStatusVoid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// Overdueable reports whether the overdue sweep may pick this status up
func (s InvoiceStatus) Overdueable() bool {
	switch s {
	case InvoiceStatusSent, InvoiceStatusViewed, InvoiceStatusPartial:
		return true
	}
	return false
}

// Invoice belongs to an organization and optionally a client.
//
// amount_due is expected to equal total - amount_paid, but it is written
// field-by-field at each transition rather than derived centrally. Known
// consistency risk.
type Invoice struct {
	Base
	OrganizationID uuid.UUID  `json:"organization_id" db:"organization_id"`
	ClientID       *uuid.UUID `json:"client_id,omitempty" db:"client_id"`

	// Assigned by reading current max and incrementing; not an atomic
	// sequence, so concurrent creates can collide (accepted source race).
	Number string        `json:"number" db:"number"`
	Status InvoiceStatus `json:"status" db:"status"`

	IssueDate time.Time  `json:"issue_date" db:"issue_date"`
	DueDate   *time.Time `json:"due_date,omitempty" db:"due_date"`
	Currency  string     `json:"currency" db:"currency"`

	SubtotalCents      int64 `json:"subtotal_cents" db:"subtotal_cents"`
	TaxTotalCents      int64 `json:"tax_total_cents" db:"tax_total_cents"`
	DiscountTotalCents int64 `json:"discount_total_cents" db:"discount_total_cents"`
	TotalCents         int64 `json:"total_cents" db:"total_cents"`
	AmountPaidCents    int64 `json:"amount_paid_cents" db:"amount_paid_cents"`
	AmountDueCents     int64 `json:"amount_due_cents" db:"amount_due_cents"`

	// Minimum partial-payment amount. Zero means no deposit rule.
	DepositRequiredCents int64 `json:"deposit_required_cents" db:"deposit_required_cents"`

	// Random bearer capability for the public payment page.
	PaymentLinkToken *string `json:"payment_link_token,omitempty" db:"payment_link_token"`

	Notes *string `json:"notes,omitempty" db:"notes"`
	Terms *string `json:"terms,omitempty" db:"terms"`

	SentAt   *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	ViewedAt *time.Time `json:"viewed_at,omitempty" db:"viewed_at"`
	PaidAt   *time.Time `json:"paid_at,omitempty" db:"paid_at"`

	Items []*InvoiceItem `json:"items,omitempty" db:"-"`

	// Joined for listings and CSV export, not a column on invoices.
	ClientName  *string `json:"client_name,omitempty" db:"client_name"`
	ClientEmail *string `json:"client_email,omitempty" db:"client_email"`
}

// InvoiceItem is owned 1:1 by an invoice and replaced wholesale on edit.
type InvoiceItem struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	InvoiceID      uuid.UUID  `json:"invoice_id" db:"invoice_id"`
	ItemID         *uuid.UUID `json:"item_id,omitempty" db:"item_id"`
	Description    string     `json:"description" db:"description"`
	Quantity       int64      `json:"quantity" db:"quantity"`
	UnitPriceCents int64      `json:"unit_price_cents" db:"unit_price_cents"`
	TaxRateBPS     int64      `json:"tax_rate_bps" db:"tax_rate_bps"`
	AmountCents    int64      `json:"amount_cents" db:"amount_cents"`
	Position       int        `json:"position" db:"position"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// InvoiceStatusHistory is the append-only audit trail of status transitions
type InvoiceStatusHistory struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	InvoiceID  uuid.UUID     `json:"invoice_id" db:"invoice_id"`
	FromStatus InvoiceStatus `json:"from_status" db:"from_status"`
	ToStatus   InvoiceStatus `json:"to_status" db:"to_status"`
	ActorID    *uuid.UUID    `json:"actor_id,omitempty" db:"actor_id"`
	Notes      *string       `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}

// InvoiceFilter narrows invoice listings
type InvoiceFilter struct {
	Status   InvoiceStatus `form:"status"`
	ClientID *uuid.UUID    `form:"client_id"`
	From     *time.Time    `form:"from" time_format:"2006-01-02"`
	To       *time.Time    `form:"to" time_format:"2006-01-02"`
	Pagination
}
