package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bildout/bildout-api/internal/model"
)

// All repository interfaces in one file
type (
	OrganizationRepository interface {
		Create(ctx context.Context, org *model.Organization) error
		Get(ctx context.Context, id uuid.UUID) (*model.Organization, error)
		GetByStripeCustomerID(ctx context.Context, customerID string) (*model.Organization, error)
		Update(ctx context.Context, org *model.Organization) error
		UpdateBranding(ctx context.Context, org *model.Organization) error
		UpdateSubscription(ctx context.Context, id uuid.UUID, plan *model.Plan, status *string, stripeCustomerID *string) error
		SetOverride(ctx context.Context, id uuid.UUID, plan model.Plan, expiresAt *time.Time, reason string, grantedBy uuid.UUID) error
		ClearOverride(ctx context.Context, id uuid.UUID) error
		ListExpiredOverrides(ctx context.Context, now time.Time) ([]*model.Organization, error)
		SetSuspended(ctx context.Context, id uuid.UUID, suspendedAt *time.Time) error
		List(ctx context.Context, search string, p model.Pagination) ([]*model.Organization, error)
		Count(ctx context.Context) (int, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		GetOwner(ctx context.Context, organizationID uuid.UUID) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		UpdateConnectStatus(ctx context.Context, user *model.User) error
		RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	}

	ClientRepository interface {
		Create(ctx context.Context, client *model.Client) error
		Get(ctx context.Context, organizationID, id uuid.UUID) (*model.Client, error)
		Update(ctx context.Context, client *model.Client) error
		SoftDelete(ctx context.Context, organizationID, id uuid.UUID) error
		List(ctx context.Context, organizationID uuid.UUID, filter *model.ClientFilter) ([]*model.Client, error)
		CountActive(ctx context.Context, organizationID uuid.UUID) (int, error)
	}

	ItemRepository interface {
		Create(ctx context.Context, item *model.Item) error
		Get(ctx context.Context, organizationID, id uuid.UUID) (*model.Item, error)
		Update(ctx context.Context, item *model.Item) error
		SoftDelete(ctx context.Context, organizationID, id uuid.UUID) error
		List(ctx context.Context, organizationID uuid.UUID, p model.Pagination) ([]*model.Item, error)
	}

	InvoiceRepository interface {
		Create(ctx context.Context, invoice *model.Invoice) error
		Get(ctx context.Context, organizationID, id uuid.UUID) (*model.Invoice, error)
		GetByToken(ctx context.Context, token string) (*model.Invoice, error)
		Update(ctx context.Context, invoice *model.Invoice) error
		SoftDelete(ctx context.Context, organizationID, id uuid.UUID) error
		List(ctx context.Context, organizationID uuid.UUID, filter *model.InvoiceFilter) ([]*model.Invoice, error)
		ListAll(ctx context.Context, organizationID uuid.UUID, filter *model.InvoiceFilter) ([]*model.Invoice, error)
		CountCreatedSince(ctx context.Context, organizationID uuid.UUID, since time.Time) (int, error)
		NextNumber(ctx context.Context, organizationID uuid.UUID, prefix string) (string, error)
		ReplaceItems(ctx context.Context, invoiceID uuid.UUID, items []*model.InvoiceItem) error
		GetItems(ctx context.Context, invoiceID uuid.UUID) ([]*model.InvoiceItem, error)
		UpdateStatus(ctx context.Context, invoice *model.Invoice, history *model.InvoiceStatusHistory) error
		ListDueBefore(ctx context.Context, cutoff time.Time) ([]*model.Invoice, error)
		ListHistory(ctx context.Context, invoiceID uuid.UUID) ([]*model.InvoiceStatusHistory, error)
		CountByOrganization(ctx context.Context, organizationID uuid.UUID) (int, error)
	}

	PaymentRepository interface {
		Create(ctx context.Context, payment *model.Payment) error
		GetByIntentID(ctx context.Context, intentID string) (*model.Payment, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus, failureMessage *string, paidAt *time.Time) error
		ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*model.Payment, error)
		SumSucceededByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error)
	}

	AdminAuditRepository interface {
		Create(ctx context.Context, entry *model.AdminAuditLog) error
		List(ctx context.Context, filter *model.AuditFilter) ([]*model.AdminAuditLog, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	}
)
