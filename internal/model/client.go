package model

import (
	"github.com/google/uuid"
)

// Client is a billable customer of an organization. Soft-deleted.
type Client struct {
	Base
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Email          *string   `json:"email,omitempty" db:"email"`
	Phone          *string   `json:"phone,omitempty" db:"phone"`
	Company        *string   `json:"company,omitempty" db:"company"`
	AddressLine1   *string   `json:"address_line1,omitempty" db:"address_line1"`
	AddressLine2   *string   `json:"address_line2,omitempty" db:"address_line2"`
	City           *string   `json:"city,omitempty" db:"city"`
	PostalCode     *string   `json:"postal_code,omitempty" db:"postal_code"`
	Country        *string   `json:"country,omitempty" db:"country"`
	Notes          *string   `json:"notes,omitempty" db:"notes"`
}

// ClientFilter narrows client listings
type ClientFilter struct {
	Search string `form:"search"`
	Pagination
}
