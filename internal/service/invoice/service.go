package invoice

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bildout/bildout-api/internal/email"
	"github.com/bildout/bildout-api/internal/model"
	"github.com/bildout/bildout-api/internal/repository"
	"github.com/bildout/bildout-api/internal/service/billing"
	apperrors "github.com/bildout/bildout-api/pkg/errors"
	"github.com/bildout/bildout-api/pkg/logger"
	"github.com/bildout/bildout-api/pkg/metrics"
)

// LineInput is one requested invoice line
type LineInput struct {
	ItemID         *uuid.UUID `json:"item_id"`
	Description    string     `json:"description" binding:"required"`
	Quantity       int64      `json:"quantity" binding:"required,gt=0"`
	UnitPriceCents int64      `json:"unit_price_cents" binding:"gte=0"`
	TaxRateBPS     int64      `json:"tax_rate_bps" binding:"gte=0"`
}

// CreateInput is the payload for creating or updating an invoice
type CreateInput struct {
	ClientID             *uuid.UUID  `json:"client_id"`
	IssueDate            time.Time   `json:"issue_date"`
	DueDate              *time.Time  `json:"due_date"`
	DiscountTotalCents   int64       `json:"discount_total_cents" binding:"gte=0"`
	DepositRequiredCents int64       `json:"deposit_required_cents" binding:"gte=0"`
	Notes                *string     `json:"notes"`
	Terms                *string     `json:"terms"`
	Lines                []LineInput `json:"lines" binding:"required,min=1,dive"`
}

// InvoiceServicer is the invoice lifecycle surface
type InvoiceServicer interface {
	Create(ctx context.Context, orgID uuid.UUID, input *CreateInput) (*model.Invoice, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, orgID uuid.UUID, filter *model.InvoiceFilter) ([]*model.Invoice, error)
	Update(ctx context.Context, orgID, id uuid.UUID, input *CreateInput) (*model.Invoice, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error

	Send(ctx context.Context, orgID, id uuid.UUID, actorID *uuid.UUID) (*model.Invoice, error)
	MarkViewed(ctx context.Context, token string) (*model.Invoice, error)
	MarkPaid(ctx context.Context, orgID, id uuid.UUID, actorID *uuid.UUID) (*model.Invoice, error)
	Void(ctx context.Context, orgID, id uuid.UUID, actorID *uuid.UUID, notes *string) (*model.Invoice, error)
	Cancel(ctx context.Context, orgID, id uuid.UUID, actorID *uuid.UUID, notes *string) (*model.Invoice, error)
	Duplicate(ctx context.Context, orgID, id uuid.UUID) (*model.Invoice, error)
	History(ctx context.Context, orgID, id uuid.UUID) ([]*model.InvoiceStatusHistory, error)

	SweepOverdue(ctx context.Context) (*SweepResult, error)
	SendReminder(ctx context.Context, orgID, id uuid.UUID, actorID *uuid.UUID) error
	ExportCSV(ctx context.Context, orgID uuid.UUID, filter *model.InvoiceFilter) ([]byte, error)
}

type Service struct {
	repo       repository.InvoiceRepository
	clientRepo repository.ClientRepository
	orgRepo    repository.OrganizationRepository
	outboxRepo repository.OutboxRepository
	billing    billing.BillingServicer
	email      email.Service
	metrics    *metrics.Metrics
	baseURL    string
	log        *logger.Logger
}

func NewService(
	repo repository.InvoiceRepository,
	clientRepo repository.ClientRepository,
	orgRepo repository.OrganizationRepository,
	outboxRepo repository.OutboxRepository,
	billingSvc billing.BillingServicer,
	emailSvc email.Service,
	m *metrics.Metrics,
	baseURL string,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:       repo,
		clientRepo: clientRepo,
		orgRepo:    orgRepo,
		outboxRepo: outboxRepo,
		billing:    billingSvc,
		email:      emailSvc,
		metrics:    m,
		baseURL:    baseURL,
		log:        log,
	}
}

func (s *Service) Create(ctx context.Context, orgID uuid.UUID, input *CreateInput) (*model.Invoice, error) {
	limit, err := s.billing.CheckInvoiceLimit(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !limit.Allowed {
		return nil, apperrors.LimitExceeded(fmt.Sprintf(
			"monthly invoice limit reached (%d of %d on the %s plan); upgrade to create more invoices",
			limit.Current, *limit.Limit, limit.Plan,
		))
	}

	org, err := s.orgRepo.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}

	if input.ClientID != nil {
		if _, err := s.clientRepo.Get(ctx, orgID, *input.ClientID); err != nil {
			return nil, err
		}
	}

	number, err := s.repo.NextNumber(ctx, orgID, org.InvoicePrefix)
	if err != nil {
		return nil, err
	}

	invoice := &model.Invoice{
		OrganizationID: orgID,
		ClientID:       input.ClientID,
		Number:         number,
		Status:         model.InvoiceStatusDraft,
		IssueDate:      input.IssueDate,
		DueDate:        input.DueDate,
		Currency:       org.Currency,
		Notes:          input.Notes,
		Terms:          input.Terms,

		DiscountTotalCents:   input.DiscountTotalCents,
		DepositRequiredCents: input.DepositRequiredCents,
	}
	if invoice.IssueDate.IsZero() {
		invoice.IssueDate = time.Now()
	}

	invoice.Items = buildItems(input.Lines)
	applyTotals(invoice)
	invoice.AmountDueCents = invoice.TotalCents

	if err := s.repo.Create(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*model.Invoice, error) {
	invoice, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetItems(ctx, invoice.ID)
	if err != nil {
		return nil, err
	}
	invoice.Items = items
	return invoice, nil
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID, filter *model.InvoiceFilter) ([]*model.Invoice, error) {
	return s.repo.List(ctx, orgID, filter)
}

// Update replaces the invoice's editable fields and its line items wholesale.
// Only drafts are editable.
func (s *Service) Update(ctx context.Context, orgID, id uuid.UUID, input *CreateInput) (*model.Invoice, error) {
	invoice, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status != model.InvoiceStatusDraft {
		return nil, apperrors.BadRequest("only draft invoices can be edited", nil)
	}

	if input.ClientID != nil {
		if _, err := s.clientRepo.Get(ctx, orgID, *input.ClientID); err != nil {
			return nil, err
		}
	}

	invoice.ClientID = input.ClientID
	if !input.IssueDate.IsZero() {
		invoice.IssueDate = input.IssueDate
	}
	invoice.DueDate = input.DueDate
	invoice.DiscountTotalCents = input.DiscountTotalCents
	invoice.DepositRequiredCents = input.DepositRequiredCents
	invoice.Notes = input.Notes
	invoice.Terms = input.Terms

	invoice.Items = buildItems(input.Lines)
	applyTotals(invoice)
	invoice.AmountDueCents = invoice.TotalCents - invoice.AmountPaidCents

	// Two statements, not atomic: a failure between them leaves the totals
	// updated with stale lines.
	if err := s.repo.Update(ctx, invoice); err != nil {
		return nil, err
	}
	if err := s.repo.ReplaceItems(ctx, invoice.ID, invoice.Items); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *Service) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, orgID, id)
}

// Send moves draft (or re-sends a sent) invoice to the client: generates the
// payment link token if absent, records history, and dispatches the email.
func (s *Service) Send(ctx context.Context, orgID, id uuid.UUID, actorID *uuid.UUID) (*model.Invoice, error) {
	invoice, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status.Terminal() {
		return nil, apperrors.BadRequest(fmt.Sprintf("cannot send a %s invoice", invoice.Status), nil)
	}
	if invoice.ClientEmail == nil || *invoice.ClientEmail == "" {
		return nil, apperrors.BadRequest("invoice client has no email address", nil)
	}

	from := invoice.Status
	now := time.Now()

	if invoice.PaymentLinkToken == nil {
		token := uuid.NewString()
		invoice.PaymentLinkToken = &token
	}
	invoice.Status = model.InvoiceStatusSent
	invoice.SentAt = &now

	history := &model.InvoiceStatusHistory{
		FromStatus: from,
		ToStatus:   model.InvoiceStatusSent,
		ActorID:    actorID,
	}
	if err := s.repo.UpdateStatus(ctx, invoice, history); err != nil {
		return nil, err
	}
	s.metrics.InvoiceTransitions.WithLabelValues(string(from), string(model.InvoiceStatusSent)).Inc()

	org, err := s.orgRepo.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	payURL := s.payURL(invoice)
	if err := s.email.SendInvoice(ctx, *invoice.ClientEmail, org, invoice, payURL); err != nil {
		// The transition already happened; a failed email is logged, not
		// rolled back (matches the original behavior).
		s.log.Error(err, "failed to send invoice email", "invoice_id", invoice.ID)
	}

	s.publishEvent(ctx, model.EventInvoiceSent, invoice)
	return invoice, nil
}

// MarkViewed records the first public payment-page visit. Only a sent
// invoice flips to viewed; later visits are no-ops.
func (s *Service) MarkViewed(ctx context.Context, token string) (*model.Invoice, error) {
	invoice, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if invoice.Status != model.InvoiceStatusSent {
		return invoice, nil
	}

	now := time.Now()
	invoice.Status = model.InvoiceStatusViewed
	invoice.ViewedAt = &now

	history := &model.InvoiceStatusHistory{
		FromStatus: model.InvoiceStatusSent,
		ToStatus:   model.InvoiceStatusViewed,
	}
	if err := s.repo.UpdateStatus(ctx, invoice, history); err != nil {
		return nil, err
	}
	s.metrics.InvoiceTransitions.WithLabelValues("sent", "viewed").Inc()
	return invoice, nil
}

// MarkPaid manually settles an invoice. Rejected if already paid.
func (s *Service) MarkPaid(ctx context.Context, orgID, id uuid.UUID, actorID *uuid.UUID) (*model.Invoice, error) {
	invoice, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == model.InvoiceStatusPaid {
		return nil, apperrors.Conflict("invoice is already paid", nil)
	}

	from := invoice.Status
	now := time.Now()
	invoice.Status = model.InvoiceStatusPaid
	invoice.AmountPaidCents = invoice.TotalCents
	invoice.AmountDueCents = 0
	invoice.PaidAt = &now

	history := &model.InvoiceStatusHistory{
		FromStatus: from,
		ToStatus:   model.InvoiceStatusPaid,
		ActorID:    actorID,
	}
	if err := s.repo.UpdateStatus(ctx, invoice, history); err != nil {
		return nil, err
	}
	s.metrics.InvoiceTransitions.WithLabelValues(string(from), "paid").Inc()
	s.publishEvent(ctx, model.EventInvoicePaid, invoice)
	return invoice, nil
}

func (s *Service) Void(ctx context.Context, orgID, id uuid.UUID, actorID *uuid.UUID, notes *string) (*model.Invoice, error) {
	return s.terminate(ctx, orgID, id, actorID, notes, model.InvoiceStatusVoid)
}

func (s *Service) Cancel(ctx context.Context, orgID, id uuid.UUID, actorID *uuid.UUID, notes *string) (*model.Invoice, error) {
	return s.terminate(ctx, orgID, id, actorID, notes, model.InvoiceStatusCancelled)
}

func (s *Service) terminate(ctx context.Context, orgID, id uuid.UUID, actorID *uuid.UUID, notes *string, to model.InvoiceStatus) (*model.Invoice, error) {
	invoice, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status.Terminal() {
		return nil, apperrors.BadRequest(fmt.Sprintf("invoice is already %s", invoice.Status), nil)
	}

	from := invoice.Status
	invoice.Status = to

	history := &model.InvoiceStatusHistory{
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		Notes:      notes,
	}
	if err := s.repo.UpdateStatus(ctx, invoice, history); err != nil {
		return nil, err
	}
	s.metrics.InvoiceTransitions.WithLabelValues(string(from), string(to)).Inc()
	return invoice, nil
}

// Duplicate clones an invoice into a fresh draft: new number, new payment
// link token, nothing paid, line items copied with new ids.
func (s *Service) Duplicate(ctx context.Context, orgID, id uuid.UUID) (*model.Invoice, error) {
	src, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	org, err := s.orgRepo.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	number, err := s.repo.NextNumber(ctx, orgID, org.InvoicePrefix)
	if err != nil {
		return nil, err
	}

	dup := &model.Invoice{
		OrganizationID: orgID,
		ClientID:       src.ClientID,
		Number:         number,
		Status:         model.InvoiceStatusDraft,
		IssueDate:      time.Now(),
		DueDate:        src.DueDate,
		Currency:       src.Currency,

		SubtotalCents:      src.SubtotalCents,
		TaxTotalCents:      src.TaxTotalCents,
		DiscountTotalCents: src.DiscountTotalCents,
		TotalCents:         src.TotalCents,
		AmountPaidCents:    0,
		AmountDueCents:     src.TotalCents,

		DepositRequiredCents: src.DepositRequiredCents,
		Notes:                src.Notes,
		Terms:                src.Terms,
	}

	token := uuid.NewString()
	dup.PaymentLinkToken = &token

	dup.Items = make([]*model.InvoiceItem, 0, len(src.Items))
	for _, item := range src.Items {
		dup.Items = append(dup.Items, &model.InvoiceItem{
			ItemID:         item.ItemID,
			Description:    item.Description,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TaxRateBPS:     item.TaxRateBPS,
			AmountCents:    item.AmountCents,
		})
	}

	if err := s.repo.Create(ctx, dup); err != nil {
		return nil, err
	}
	return dup, nil
}

func (s *Service) History(ctx context.Context, orgID, id uuid.UUID) ([]*model.InvoiceStatusHistory, error) {
	if _, err := s.repo.Get(ctx, orgID, id); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, id)
}

// SendReminder re-sends the overdue email for one invoice (admin tool).
func (s *Service) SendReminder(ctx context.Context, orgID, id uuid.UUID, actorID *uuid.UUID) error {
	invoice, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	if invoice.ClientEmail == nil || *invoice.ClientEmail == "" {
		return apperrors.BadRequest("invoice client has no email address", nil)
	}

	org, err := s.orgRepo.Get(ctx, orgID)
	if err != nil {
		return err
	}
	return s.email.SendReminder(ctx, *invoice.ClientEmail, org, invoice, s.payURL(invoice))
}

func (s *Service) payURL(invoice *model.Invoice) string {
	if invoice.PaymentLinkToken == nil {
		return ""
	}
	return fmt.Sprintf("%s/pay/%s", s.baseURL, *invoice.PaymentLinkToken)
}

func (s *Service) publishEvent(ctx context.Context, eventType string, invoice *model.Invoice) {
	payload, err := json.Marshal(invoice)
	if err != nil {
		s.log.Error(err, "failed to marshal event payload", "event_type", eventType)
		return
	}
	if err := s.outboxRepo.Create(ctx, &model.OutboxEvent{
		EventType: eventType,
		Payload:   payload,
	}); err != nil {
		s.log.Error(err, "failed to write outbox event", "event_type", eventType)
	}
}

func buildItems(lines []LineInput) []*model.InvoiceItem {
	items := make([]*model.InvoiceItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, &model.InvoiceItem{
			ItemID:         line.ItemID,
			Description:    line.Description,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			TaxRateBPS:     line.TaxRateBPS,
			AmountCents:    line.Quantity * line.UnitPriceCents,
		})
	}
	return items
}

// applyTotals recomputes subtotal, tax and total from the line items.
// Tax rounds down per line, in basis points.
func applyTotals(invoice *model.Invoice) {
	var subtotal, tax int64
	for _, item := range invoice.Items {
		subtotal += item.AmountCents
		tax += item.AmountCents * item.TaxRateBPS / 10000
	}
	invoice.SubtotalCents = subtotal
	invoice.TaxTotalCents = tax
	invoice.TotalCents = subtotal + tax - invoice.DiscountTotalCents
	if invoice.TotalCents < 0 {
		invoice.TotalCents = 0
	}
}
