package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/bildout/bildout-api/pkg/errors"

	"github.com/bildout/bildout-api/internal/model"
	"github.com/bildout/bildout-api/internal/repository"
)

type invoiceRepository struct {
	BaseRepository
}

func NewInvoiceRepository(base BaseRepository) repository.InvoiceRepository {
	return &invoiceRepository{base}
}

const invoiceColumns = `
	i.id, i.organization_id, i.client_id, i.number, i.status,
	i.issue_date, i.due_date, i.currency,
	i.subtotal_cents, i.tax_total_cents, i.discount_total_cents, i.total_cents,
	i.amount_paid_cents, i.amount_due_cents, i.deposit_required_cents,
	i.payment_link_token, i.notes, i.terms,
	i.sent_at, i.viewed_at, i.paid_at,
	i.created_at, i.updated_at, i.deleted_at,
	c.name AS client_name, c.email AS client_email
`

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	query := `
		INSERT INTO invoices (
			id, organization_id, client_id, number, status,
			issue_date, due_date, currency,
			subtotal_cents, tax_total_cents, discount_total_cents, total_cents,
			amount_paid_cents, amount_due_cents, deposit_required_cents,
			payment_link_token, notes, terms, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)
	`

	invoice.ID = uuid.New()
	invoice.CreatedAt = time.Now()
	invoice.UpdatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			invoice.ID, invoice.OrganizationID, invoice.ClientID,
			invoice.Number, invoice.Status, invoice.IssueDate, invoice.DueDate,
			invoice.Currency, invoice.SubtotalCents, invoice.TaxTotalCents,
			invoice.DiscountTotalCents, invoice.TotalCents,
			invoice.AmountPaidCents, invoice.AmountDueCents,
			invoice.DepositRequiredCents, invoice.PaymentLinkToken,
			invoice.Notes, invoice.Terms, invoice.CreatedAt, invoice.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		return insertItems(ctx, tx, invoice.ID, invoice.Items)
	})
}

func (r *invoiceRepository) Get(ctx context.Context, organizationID, id uuid.UUID) (*model.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices i
		LEFT JOIN clients c ON c.id = i.client_id
		WHERE i.id = $1 AND i.organization_id = $2 AND i.deleted_at IS NULL
	`
	var invoice model.Invoice
	if err := r.db.GetContext(ctx, &invoice, query, id, organizationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("invoice", err)
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return &invoice, nil
}

func (r *invoiceRepository) GetByToken(ctx context.Context, token string) (*model.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices i
		LEFT JOIN clients c ON c.id = i.client_id
		WHERE i.payment_link_token = $1 AND i.deleted_at IS NULL
	`
	var invoice model.Invoice
	if err := r.db.GetContext(ctx, &invoice, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("invoice", err)
		}
		return nil, fmt.Errorf("failed to get invoice by token: %w", err)
	}
	return &invoice, nil
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *model.Invoice) error {
	query := `
		UPDATE invoices
		SET client_id = $1, issue_date = $2, due_date = $3,
		    subtotal_cents = $4, tax_total_cents = $5, discount_total_cents = $6,
		    total_cents = $7, amount_due_cents = $8, deposit_required_cents = $9,
		    notes = $10, terms = $11, updated_at = $12
		WHERE id = $13 AND organization_id = $14 AND deleted_at IS NULL
	`
	invoice.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		invoice.ClientID, invoice.IssueDate, invoice.DueDate,
		invoice.SubtotalCents, invoice.TaxTotalCents, invoice.DiscountTotalCents,
		invoice.TotalCents, invoice.AmountDueCents, invoice.DepositRequiredCents,
		invoice.Notes, invoice.Terms, invoice.UpdatedAt,
		invoice.ID, invoice.OrganizationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	return requireRow(result, "invoice")
}

func (r *invoiceRepository) SoftDelete(ctx context.Context, organizationID, id uuid.UUID) error {
	query := `
		UPDATE invoices SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND organization_id = $3 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id, organizationID)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	return requireRow(result, "invoice")
}

func (r *invoiceRepository) List(ctx context.Context, organizationID uuid.UUID, filter *model.InvoiceFilter) ([]*model.Invoice, error) {
	if filter == nil {
		filter = &model.InvoiceFilter{}
	}

	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices i
		LEFT JOIN clients c ON c.id = i.client_id
		WHERE i.organization_id = $1 AND i.deleted_at IS NULL
		  AND ($2 = '' OR i.status = $2)
		  AND ($3::uuid IS NULL OR i.client_id = $3)
		  AND ($4::timestamptz IS NULL OR i.issue_date >= $4)
		  AND ($5::timestamptz IS NULL OR i.issue_date <= $5)
		ORDER BY i.created_at DESC
		LIMIT $6 OFFSET $7
	`
	var invoices []*model.Invoice
	err := r.db.SelectContext(ctx, &invoices, query,
		organizationID, string(filter.Status), filter.ClientID,
		filter.From, filter.To, filter.Limit(), filter.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}

// ListAll returns every matching invoice without pagination, for exports.
func (r *invoiceRepository) ListAll(ctx context.Context, organizationID uuid.UUID, filter *model.InvoiceFilter) ([]*model.Invoice, error) {
	if filter == nil {
		filter = &model.InvoiceFilter{}
	}

	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices i
		LEFT JOIN clients c ON c.id = i.client_id
		WHERE i.organization_id = $1 AND i.deleted_at IS NULL
		  AND ($2 = '' OR i.status = $2)
		  AND ($3::uuid IS NULL OR i.client_id = $3)
		  AND ($4::timestamptz IS NULL OR i.issue_date >= $4)
		  AND ($5::timestamptz IS NULL OR i.issue_date <= $5)
		ORDER BY i.created_at DESC
	`
	var invoices []*model.Invoice
	err := r.db.SelectContext(ctx, &invoices, query,
		organizationID, string(filter.Status), filter.ClientID, filter.From, filter.To,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices for export: %w", err)
	}
	return invoices, nil
}

func (r *invoiceRepository) CountCreatedSince(ctx context.Context, organizationID uuid.UUID, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM invoices
		WHERE organization_id = $1 AND created_at >= $2 AND deleted_at IS NULL
	`
	var count int
	if err := r.db.GetContext(ctx, &count, query, organizationID, since); err != nil {
		return 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	return count, nil
}

func (r *invoiceRepository) CountByOrganization(ctx context.Context, organizationID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM invoices WHERE organization_id = $1 AND deleted_at IS NULL`

	var count int
	if err := r.db.GetContext(ctx, &count, query, organizationID); err != nil {
		return 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	return count, nil
}

// NextNumber derives the next invoice number by reading the current maximum
// suffix and incrementing. Two concurrent creates can read the same maximum
// and produce duplicate numbers; this race is accepted.
func (r *invoiceRepository) NextNumber(ctx context.Context, organizationID uuid.UUID, prefix string) (string, error) {
	query := `
		SELECT COALESCE(MAX(number), '') FROM invoices
		WHERE organization_id = $1
	`
	var current string
	if err := r.db.GetContext(ctx, &current, query, organizationID); err != nil {
		return "", fmt.Errorf("failed to read current invoice number: %w", err)
	}

	next := 1
	if idx := strings.LastIndex(current, "-"); idx >= 0 {
		if n, err := strconv.Atoi(current[idx+1:]); err == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s-%06d", prefix, next), nil
}

func (r *invoiceRepository) ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []*model.InvoiceItem) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID); err != nil {
			return fmt.Errorf("failed to delete invoice items: %w", err)
		}
		return insertItems(ctx, tx, invoiceID, items)
	})
}

func insertItems(ctx context.Context, tx *sqlx.Tx, invoiceID uuid.UUID, items []*model.InvoiceItem) error {
	query := `
		INSERT INTO invoice_items (
			id, invoice_id, item_id, description, quantity,
			unit_price_cents, tax_rate_bps, amount_cents, position, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for pos, item := range items {
		item.ID = uuid.New()
		item.InvoiceID = invoiceID
		item.Position = pos
		item.CreatedAt = time.Now()

		_, err := tx.ExecContext(ctx, query,
			item.ID, item.InvoiceID, item.ItemID, item.Description,
			item.Quantity, item.UnitPriceCents, item.TaxRateBPS,
			item.AmountCents, item.Position, item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert invoice item: %w", err)
		}
	}
	return nil
}

func (r *invoiceRepository) GetItems(ctx context.Context, invoiceID uuid.UUID) ([]*model.InvoiceItem, error) {
	query := `
		SELECT * FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY position ASC
	`
	var items []*model.InvoiceItem
	if err := r.db.SelectContext(ctx, &items, query, invoiceID); err != nil {
		return nil, fmt.Errorf("failed to get invoice items: %w", err)
	}
	return items, nil
}

// UpdateStatus writes the status and derived money fields and appends the
// history row in one transaction.
func (r *invoiceRepository) UpdateStatus(ctx context.Context, invoice *model.Invoice, history *model.InvoiceStatusHistory) error {
	query := `
		UPDATE invoices
		SET status = $1, amount_paid_cents = $2, amount_due_cents = $3,
		    payment_link_token = $4, sent_at = $5, viewed_at = $6,
		    paid_at = $7, updated_at = $8
		WHERE id = $9 AND organization_id = $10 AND deleted_at IS NULL
	`
	invoice.UpdatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, query,
			invoice.Status, invoice.AmountPaidCents, invoice.AmountDueCents,
			invoice.PaymentLinkToken, invoice.SentAt, invoice.ViewedAt,
			invoice.PaidAt, invoice.UpdatedAt,
			invoice.ID, invoice.OrganizationID,
		)
		if err != nil {
			return fmt.Errorf("failed to update invoice status: %w", err)
		}
		if err := requireRow(result, "invoice"); err != nil {
			return err
		}

		if history == nil {
			return nil
		}
		history.ID = uuid.New()
		history.InvoiceID = invoice.ID
		history.CreatedAt = time.Now()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO invoice_status_history (
				id, invoice_id, from_status, to_status, actor_id, notes, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			history.ID, history.InvoiceID, history.FromStatus,
			history.ToStatus, history.ActorID, history.Notes, history.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert status history: %w", err)
		}
		return nil
	})
}

func (r *invoiceRepository) ListDueBefore(ctx context.Context, cutoff time.Time) ([]*model.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices i
		LEFT JOIN clients c ON c.id = i.client_id
		WHERE i.status IN ('sent', 'viewed', 'partial')
		  AND i.due_date IS NOT NULL AND i.due_date < $1
		  AND i.deleted_at IS NULL
		ORDER BY i.due_date ASC
	`
	var invoices []*model.Invoice
	if err := r.db.SelectContext(ctx, &invoices, query, cutoff); err != nil {
		return nil, fmt.Errorf("failed to list overdue candidates: %w", err)
	}
	return invoices, nil
}

func (r *invoiceRepository) ListHistory(ctx context.Context, invoiceID uuid.UUID) ([]*model.InvoiceStatusHistory, error) {
	query := `
		SELECT * FROM invoice_status_history
		WHERE invoice_id = $1
		ORDER BY created_at ASC
	`
	var history []*model.InvoiceStatusHistory
	if err := r.db.SelectContext(ctx, &history, query, invoiceID); err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	return history, nil
}
