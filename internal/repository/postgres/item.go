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

type itemRepository struct {
	BaseRepository
}

func NewItemRepository(base BaseRepository) repository.ItemRepository {
	return &itemRepository{base}
}

func (r *itemRepository) Create(ctx context.Context, item *model.Item) error {
	query := `
		INSERT INTO items (
			id, organization_id, name, description, unit_price_cents,
			tax_rate_bps, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	item.ID = uuid.New()
	item.CreatedAt = time.Now()
	item.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.OrganizationID, item.Name, item.Description,
		item.UnitPriceCents, item.TaxRateBPS, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

func (r *itemRepository) Get(ctx context.Context, organizationID, id uuid.UUID) (*model.Item, error) {
	query := `
		SELECT * FROM items
		WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
	`
	var item model.Item
	if err := r.db.GetContext(ctx, &item, query, id, organizationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("item", err)
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

func (r *itemRepository) Update(ctx context.Context, item *model.Item) error {
	query := `
		UPDATE items
		SET name = $1, description = $2, unit_price_cents = $3,
		    tax_rate_bps = $4, updated_at = $5
		WHERE id = $6 AND organization_id = $7 AND deleted_at IS NULL
	`
	item.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		item.Name, item.Description, item.UnitPriceCents,
		item.TaxRateBPS, item.UpdatedAt, item.ID, item.OrganizationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return requireRow(result, "item")
}

func (r *itemRepository) SoftDelete(ctx context.Context, organizationID, id uuid.UUID) error {
	query := `
		UPDATE items SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND organization_id = $3 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id, organizationID)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return requireRow(result, "item")
}

func (r *itemRepository) List(ctx context.Context, organizationID uuid.UUID, p model.Pagination) ([]*model.Item, error) {
	query := `
		SELECT * FROM items
		WHERE organization_id = $1 AND deleted_at IS NULL
		ORDER BY name ASC
		LIMIT $2 OFFSET $3
	`
	var items []*model.Item
	if err := r.db.SelectContext(ctx, &items, query, organizationID, p.Limit(), p.Offset()); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}
