package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/bildout/bildout-api/pkg/errors"

	"github.com/bildout/bildout-api/internal/model"
	"github.com/bildout/bildout-api/internal/repository"
)

type organizationRepository struct {
	BaseRepository
}

func NewOrganizationRepository(base BaseRepository) repository.OrganizationRepository {
	return &organizationRepository{base}
}

func (r *organizationRepository) Create(ctx context.Context, org *model.Organization) error {
	query := `
		INSERT INTO organizations (
			id, name, email, phone, invoice_prefix, default_tax_rate_bps,
			currency, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	org.ID = uuid.New()
	org.CreatedAt = time.Now()
	org.UpdatedAt = time.Now()
	if org.InvoicePrefix == "" {
		org.InvoicePrefix = "INV"
	}
	if org.Currency == "" {
		org.Currency = "usd"
	}

	_, err := r.db.ExecContext(ctx, query,
		org.ID,
		org.Name,
		org.Email,
		org.Phone,
		org.InvoicePrefix,
		org.DefaultTaxRateBPS,
		org.Currency,
		org.CreatedAt,
		org.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

func (r *organizationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	query := `SELECT * FROM organizations WHERE id = $1 AND deleted_at IS NULL`

	var org model.Organization
	if err := r.db.GetContext(ctx, &org, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("organization", err)
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

func (r *organizationRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*model.Organization, error) {
	query := `SELECT * FROM organizations WHERE stripe_customer_id = $1 AND deleted_at IS NULL`

	var org model.Organization
	if err := r.db.GetContext(ctx, &org, query, customerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("organization", err)
		}
		return nil, fmt.Errorf("failed to get organization by customer: %w", err)
	}
	return &org, nil
}

func (r *organizationRepository) Update(ctx context.Context, org *model.Organization) error {
	query := `
		UPDATE organizations
		SET name = $1, email = $2, phone = $3, address_line1 = $4,
		    address_line2 = $5, city = $6, postal_code = $7, country = $8,
		    default_tax_rate_bps = $9, currency = $10, updated_at = $11
		WHERE id = $12 AND deleted_at IS NULL
	`
	org.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		org.Name, org.Email, org.Phone, org.AddressLine1,
		org.AddressLine2, org.City, org.PostalCode, org.Country,
		org.DefaultTaxRateBPS, org.Currency, org.UpdatedAt, org.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	return requireRow(result, "organization")
}

func (r *organizationRepository) UpdateBranding(ctx context.Context, org *model.Organization) error {
	query := `
		UPDATE organizations
		SET logo_url = $1, brand_color = $2, invoice_prefix = $3, updated_at = $4
		WHERE id = $5 AND deleted_at IS NULL
	`
	org.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		org.LogoURL, org.BrandColor, org.InvoicePrefix, org.UpdatedAt, org.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update branding: %w", err)
	}
	return requireRow(result, "organization")
}

func (r *organizationRepository) UpdateSubscription(ctx context.Context, id uuid.UUID, plan *model.Plan, status *string, stripeCustomerID *string) error {
	query := `
		UPDATE organizations
		SET subscription_plan = COALESCE($1, subscription_plan),
		    subscription_status = COALESCE($2, subscription_status),
		    stripe_customer_id = COALESCE($3, stripe_customer_id),
		    updated_at = $4
		WHERE id = $5
	`
	result, err := r.db.ExecContext(ctx, query, plan, status, stripeCustomerID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return requireRow(result, "organization")
}

func (r *organizationRepository) SetOverride(ctx context.Context, id uuid.UUID, plan model.Plan, expiresAt *time.Time, reason string, grantedBy uuid.UUID) error {
	query := `
		UPDATE organizations
		SET subscription_override_plan = $1,
		    subscription_override_expires_at = $2,
		    subscription_override_reason = $3,
		    subscription_override_granted_by = $4,
		    subscription_override_granted_at = $5,
		    updated_at = $5
		WHERE id = $6
	`
	result, err := r.db.ExecContext(ctx, query, plan, expiresAt, reason, grantedBy, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set subscription override: %w", err)
	}
	return requireRow(result, "organization")
}

func (r *organizationRepository) ClearOverride(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE organizations
		SET subscription_override_plan = NULL,
		    subscription_override_expires_at = NULL,
		    subscription_override_reason = NULL,
		    subscription_override_granted_by = NULL,
		    subscription_override_granted_at = NULL,
		    updated_at = $1
		WHERE id = $2
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to clear subscription override: %w", err)
	}
	return requireRow(result, "organization")
}

func (r *organizationRepository) ListExpiredOverrides(ctx context.Context, now time.Time) ([]*model.Organization, error) {
	query := `
		SELECT * FROM organizations
		WHERE subscription_override_plan IS NOT NULL
		  AND subscription_override_expires_at IS NOT NULL
		  AND subscription_override_expires_at < $1
	`
	var orgs []*model.Organization
	if err := r.db.SelectContext(ctx, &orgs, query, now); err != nil {
		return nil, fmt.Errorf("failed to list expired overrides: %w", err)
	}
	return orgs, nil
}

func (r *organizationRepository) SetSuspended(ctx context.Context, id uuid.UUID, suspendedAt *time.Time) error {
	query := `UPDATE organizations SET suspended_at = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, suspendedAt, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set suspension: %w", err)
	}
	return requireRow(result, "organization")
}

func (r *organizationRepository) List(ctx context.Context, search string, p model.Pagination) ([]*model.Organization, error) {
	query := `
		SELECT * FROM organizations
		WHERE deleted_at IS NULL
		  AND ($1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	var orgs []*model.Organization
	if err := r.db.SelectContext(ctx, &orgs, query, search, p.Limit(), p.Offset()); err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

func (r *organizationRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM organizations WHERE deleted_at IS NULL`); err != nil {
		return 0, fmt.Errorf("failed to count organizations: %w", err)
	}
	return count, nil
}
