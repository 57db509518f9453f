package model

import (
	"time"

	"github.com/google/uuid"
)

// User is one auth identity belonging to exactly one organization.
type User struct {
	Base
	OrganizationID uuid.UUID `json:"organization_id" db:"organization_id"`
	Email          string    `json:"email" db:"email"`
	PasswordHash   string    `json:"-" db:"password_hash"`
	Name           string    `json:"name" db:"name"`
	IsAdmin        bool      `json:"is_admin" db:"is_admin"`

	// Stripe Connect onboarding state, synced from the vendor.
	StripeAccountID  *string    `json:"stripe_account_id,omitempty" db:"stripe_account_id"`
	ChargesEnabled   bool       `json:"charges_enabled" db:"charges_enabled"`
	PayoutsEnabled   bool       `json:"payouts_enabled" db:"payouts_enabled"`
	DetailsSubmitted bool       `json:"details_submitted" db:"details_submitted"`
	OnboardedAt      *time.Time `json:"onboarded_at,omitempty" db:"onboarded_at"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
}

// TokenClaims is the decoded content of an access or refresh token
type TokenClaims struct {
	UserID         uuid.UUID `json:"user_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Email          string    `json:"email"`
	IsAdmin        bool      `json:"is_admin"`
}
