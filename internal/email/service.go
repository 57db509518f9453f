package email

import (
	"context"

	"github.com/bildout/bildout-api/internal/model"
)

// Service delivers transactional mail for invoice lifecycle events
type Service interface {
	SendInvoice(ctx context.Context, to string, org *model.Organization, invoice *model.Invoice, payURL string) error
	SendReminder(ctx context.Context, to string, org *model.Organization, invoice *model.Invoice, payURL string) error
	SendReceipt(ctx context.Context, to string, org *model.Organization, invoice *model.Invoice, payment *model.Payment) error
}
