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

type clientRepository struct {
	BaseRepository
}

func NewClientRepository(base BaseRepository) repository.ClientRepository {
	return &clientRepository{base}
}

func (r *clientRepository) Create(ctx context.Context, client *model.Client) error {
	query := `
		INSERT INTO clients (
			id, organization_id, name, email, phone, company,
			address_line1, address_line2, city, postal_code, country, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	client.ID = uuid.New()
	client.CreatedAt = time.Now()
	client.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		client.ID, client.OrganizationID, client.Name, client.Email,
		client.Phone, client.Company, client.AddressLine1, client.AddressLine2,
		client.City, client.PostalCode, client.Country, client.Notes,
		client.CreatedAt, client.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

func (r *clientRepository) Get(ctx context.Context, organizationID, id uuid.UUID) (*model.Client, error) {
	query := `
		SELECT * FROM clients
		WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
	`
	var client model.Client
	if err := r.db.GetContext(ctx, &client, query, id, organizationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("client", err)
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &client, nil
}

func (r *clientRepository) Update(ctx context.Context, client *model.Client) error {
	query := `
		UPDATE clients
		SET name = $1, email = $2, phone = $3, company = $4,
		    address_line1 = $5, address_line2 = $6, city = $7,
		    postal_code = $8, country = $9, notes = $10, updated_at = $11
		WHERE id = $12 AND organization_id = $13 AND deleted_at IS NULL
	`
	client.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		client.Name, client.Email, client.Phone, client.Company,
		client.AddressLine1, client.AddressLine2, client.City,
		client.PostalCode, client.Country, client.Notes, client.UpdatedAt,
		client.ID, client.OrganizationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	return requireRow(result, "client")
}

func (r *clientRepository) SoftDelete(ctx context.Context, organizationID, id uuid.UUID) error {
	query := `
		UPDATE clients SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND organization_id = $3 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id, organizationID)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return requireRow(result, "client")
}

func (r *clientRepository) List(ctx context.Context, organizationID uuid.UUID, filter *model.ClientFilter) ([]*model.Client, error) {
	if filter == nil {
		filter = &model.ClientFilter{}
	}
	query := `
		SELECT * FROM clients
		WHERE organization_id = $1 AND deleted_at IS NULL
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR company ILIKE '%' || $2 || '%')
		ORDER BY name ASC
		LIMIT $3 OFFSET $4
	`
	var clients []*model.Client
	if err := r.db.SelectContext(ctx, &clients, query, organizationID, filter.Search, filter.Limit(), filter.Offset()); err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

func (r *clientRepository) CountActive(ctx context.Context, organizationID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM clients WHERE organization_id = $1 AND deleted_at IS NULL`

	var count int
	if err := r.db.GetContext(ctx, &count, query, organizationID); err != nil {
		return 0, fmt.Errorf("failed to count clients: %w", err)
	}
	return count, nil
}
