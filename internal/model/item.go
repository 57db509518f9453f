package model

import (
	"github.com/google/uuid"
)

// Item is a reusable line-item template. Soft-deleted.
type Item struct {
	Base
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Description    *string   `json:"description,omitempty" db:"description"`
	UnitPriceCents int64     `json:"unit_price_cents" db:"unit_price_cents"`
	TaxRateBPS     int64     `json:"tax_rate_bps" db:"tax_rate_bps"`
}
