package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bildout/bildout-api/internal/model"
	"github.com/bildout/bildout-api/internal/repository"
)

type adminAuditRepository struct {
	BaseRepository
}

func NewAdminAuditRepository(base BaseRepository) repository.AdminAuditRepository {
	return &adminAuditRepository{base}
}

func (r *adminAuditRepository) Create(ctx context.Context, entry *model.AdminAuditLog) error {
	query := `
		INSERT INTO admin_audit_logs (
			id, actor_id, action, target_type, target_id, metadata,
			ip_address, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.ActorID, entry.Action, entry.TargetType,
		entry.TargetID, entry.Metadata, entry.IPAddress, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create admin audit log: %w", err)
	}
	return nil
}

func (r *adminAuditRepository) List(ctx context.Context, filter *model.AuditFilter) ([]*model.AdminAuditLog, error) {
	if filter == nil {
		filter = &model.AuditFilter{}
	}

	query := `
		SELECT * FROM admin_audit_logs
		WHERE ($1::uuid IS NULL OR actor_id = $1)
		  AND ($2::uuid IS NULL OR target_id = $2)
		  AND ($3 = '' OR action = $3)
		  AND ($4 = '' OR target_type = $4)
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6
	`
	var logs []*model.AdminAuditLog
	err := r.db.SelectContext(ctx, &logs, query,
		filter.ActorID, filter.TargetID, filter.Action, filter.TargetType,
		filter.Limit(), filter.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin audit logs: %w", err)
	}
	return logs, nil
}
