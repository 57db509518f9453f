package model

import (
	"time"

	"github.com/google/uuid"
)

// Organization is the tenant root: the unit of billing and data isolation.
type Organization struct {
	Base
	Name          string  `json:"name" db:"name"`
	Email         string  `json:"email" db:"email"`
	Phone         *string `json:"phone,omitempty" db:"phone"`
	AddressLine1  *string `json:"address_line1,omitempty" db:"address_line1"`
	AddressLine2  *string `json:"address_line2,omitempty" db:"address_line2"`
	City          *string `json:"city,omitempty" db:"city"`
	PostalCode    *string `json:"postal_code,omitempty" db:"postal_code"`
	Country       *string `json:"country,omitempty" db:"country"`
	LogoURL       *string `json:"logo_url,omitempty" db:"logo_url"`
	BrandColor    *string `json:"brand_color,omitempty" db:"brand_color"`
	InvoicePrefix string  `json:"invoice_prefix" db:"invoice_prefix"`
	// Default tax rate in basis points (e.g. 2000 = 20%).
	DefaultTaxRateBPS int64  `json:"default_tax_rate_bps" db:"default_tax_rate_bps"`
	Currency          string `json:"currency" db:"currency"`

	StripeCustomerID   *string `json:"stripe_customer_id,omitempty" db:"stripe_customer_id"`
	SubscriptionPlan   *Plan   `json:"subscription_plan,omitempty" db:"subscription_plan"`
	SubscriptionStatus *string `json:"subscription_status,omitempty" db:"subscription_status"`

	// Admin-granted plan override. A nil expiry means the override is permanent.
	OverridePlan      *Plan      `json:"subscription_override_plan,omitempty" db:"subscription_override_plan"`
	OverrideExpiresAt *time.Time `json:"subscription_override_expires_at,omitempty" db:"subscription_override_expires_at"`
	OverrideReason    *string    `json:"subscription_override_reason,omitempty" db:"subscription_override_reason"`
	OverrideGrantedBy *uuid.UUID `json:"subscription_override_granted_by,omitempty" db:"subscription_override_granted_by"`
	OverrideGrantedAt *time.Time `json:"subscription_override_granted_at,omitempty" db:"subscription_override_granted_at"`

	SuspendedAt *time.Time `json:"suspended_at,omitempty" db:"suspended_at"`
}

// Suspended reports whether the tenant is blocked from the API surface
func (o *Organization) Suspended() bool {
	return o.SuspendedAt != nil
}
