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

type paymentRepository struct {
	BaseRepository
}

func NewPaymentRepository(base BaseRepository) repository.PaymentRepository {
	return &paymentRepository{base}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	query := `
		INSERT INTO payments (
			id, invoice_id, organization_id, amount_cents, currency, status,
			method, stripe_payment_intent_id, platform_fee_cents,
			failure_message, paid_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	payment.ID = uuid.New()
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		payment.ID, payment.InvoiceID, payment.OrganizationID,
		payment.AmountCents, payment.Currency, payment.Status,
		payment.Method, payment.StripePaymentIntentID, payment.PlatformFeeCents,
		payment.FailureMessage, payment.PaidAt, payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) GetByIntentID(ctx context.Context, intentID string) (*model.Payment, error) {
	query := `SELECT * FROM payments WHERE stripe_payment_intent_id = $1`

	var payment model.Payment
	if err := r.db.GetContext(ctx, &payment, query, intentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("payment", err)
		}
		return nil, fmt.Errorf("failed to get payment by intent: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus, failureMessage *string, paidAt *time.Time) error {
	query := `
		UPDATE payments
		SET status = $1, failure_message = $2, paid_at = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := r.db.ExecContext(ctx, query, status, failureMessage, paidAt, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return requireRow(result, "payment")
}

func (r *paymentRepository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*model.Payment, error) {
	query := `
		SELECT * FROM payments
		WHERE invoice_id = $1
		ORDER BY created_at DESC
	`
	var payments []*model.Payment
	if err := r.db.SelectContext(ctx, &payments, query, invoiceID); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (r *paymentRepository) SumSucceededByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount_cents), 0) FROM payments
		WHERE invoice_id = $1 AND status = 'succeeded'
	`
	var sum int64
	if err := r.db.GetContext(ctx, &sum, query, invoiceID); err != nil {
		return 0, fmt.Errorf("failed to sum payments: %w", err)
	}
	return sum, nil
}
