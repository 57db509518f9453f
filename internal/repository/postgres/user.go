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

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (
			id, organization_id, email, password_hash, name, is_admin,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.OrganizationID, user.Email, user.PasswordHash,
		user.Name, user.IsAdmin, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT * FROM users WHERE id = $1 AND deleted_at IS NULL`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT * FROM users WHERE lower(email) = lower($1) AND deleted_at IS NULL`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// GetOwner returns the earliest-created user of an organization.
func (r *userRepository) GetOwner(ctx context.Context, organizationID uuid.UUID) (*model.User, error) {
	query := `
		SELECT * FROM users
		WHERE organization_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC
		LIMIT 1
	`
	var user model.User
	if err := r.db.GetContext(ctx, &user, query, organizationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, fmt.Errorf("failed to get organization owner: %w", err)
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET email = $1, name = $2, updated_at = $3
		WHERE id = $4 AND deleted_at IS NULL
	`
	user.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query, user.Email, user.Name, user.UpdatedAt, user.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRow(result, "user")
}

func (r *userRepository) UpdateConnectStatus(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET stripe_account_id = $1, charges_enabled = $2, payouts_enabled = $3,
		    details_submitted = $4, onboarded_at = $5, updated_at = $6
		WHERE id = $7
	`
	user.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		user.StripeAccountID, user.ChargesEnabled, user.PayoutsEnabled,
		user.DetailsSubmitted, user.OnboardedAt, user.UpdatedAt, user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update connect status: %w", err)
	}
	return requireRow(result, "user")
}

func (r *userRepository) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}
