package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	stripesdk "github.com/stripe/stripe-go/v78"

	"github.com/bildout/bildout-api/internal/email"
	"github.com/bildout/bildout-api/internal/model"
	"github.com/bildout/bildout-api/internal/payments/stripe"
	"github.com/bildout/bildout-api/internal/repository"
	"github.com/bildout/bildout-api/internal/service/billing"
	apperrors "github.com/bildout/bildout-api/pkg/errors"
	"github.com/bildout/bildout-api/pkg/logger"
	"github.com/bildout/bildout-api/pkg/metrics"
)

// PaymentServicer creates payment intents for the public pay page and
// consumes processor webhooks.
type PaymentServicer interface {
	CreateIntent(ctx context.Context, token string, amountCents int64) (*model.PaymentIntentResult, error)
	HandleWebhookEvent(ctx context.Context, event stripesdk.Event) error
	ListByInvoice(ctx context.Context, orgID, invoiceID uuid.UUID) ([]*model.Payment, error)
}

type Service struct {
	repo        repository.PaymentRepository
	invoiceRepo repository.InvoiceRepository
	orgRepo     repository.OrganizationRepository
	userRepo    repository.UserRepository
	outboxRepo  repository.OutboxRepository
	stripe      stripe.Client
	billing     billing.BillingServicer
	email       email.Service
	metrics     *metrics.Metrics
	feeBPS      int64
	log         *logger.Logger
}

func NewService(
	repo repository.PaymentRepository,
	invoiceRepo repository.InvoiceRepository,
	orgRepo repository.OrganizationRepository,
	userRepo repository.UserRepository,
	outboxRepo repository.OutboxRepository,
	stripeClient stripe.Client,
	billingSvc billing.BillingServicer,
	emailSvc email.Service,
	m *metrics.Metrics,
	feeBPS int64,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:        repo,
		invoiceRepo: invoiceRepo,
		orgRepo:     orgRepo,
		userRepo:    userRepo,
		outboxRepo:  outboxRepo,
		stripe:      stripeClient,
		billing:     billingSvc,
		email:       emailSvc,
		metrics:     m,
		feeBPS:      feeBPS,
		log:         log,
	}
}

// CreateIntent validates the requested amount against the invoice and opens
// a destination-charge payment intent on the organization's Connect account.
// A zero amountCents means the payer did not pick one; it defaults to the
// full outstanding balance.
func (s *Service) CreateIntent(ctx context.Context, token string, amountCents int64) (*model.PaymentIntentResult, error) {
	invoice, err := s.invoiceRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if amountCents == 0 {
		amountCents = invoice.AmountDueCents
	}
	if err := validateAmount(invoice, amountCents); err != nil {
		return nil, err
	}

	owner, err := s.userRepo.GetOwner(ctx, invoice.OrganizationID)
	if err != nil {
		return nil, err
	}
	if owner.StripeAccountID == nil || !owner.ChargesEnabled {
		return nil, apperrors.BadRequest("this organization is not set up to accept payments yet", nil)
	}

	fee := amountCents * s.feeBPS / 10000

	intentID, clientSecret, err := s.stripe.CreatePaymentIntent(ctx, stripe.IntentParams{
		AmountCents:        amountCents,
		Currency:           invoice.Currency,
		PlatformFeeCents:   fee,
		ConnectedAccountID: *owner.StripeAccountID,
		InvoiceID:          invoice.ID.String(),
		OrganizationID:     invoice.OrganizationID.String(),
		Description:        fmt.Sprintf("Invoice %s", invoice.Number),
	})
	if err != nil {
		s.metrics.PaymentIntentsCreated.WithLabelValues("error").Inc()
		return nil, apperrors.Internal(fmt.Errorf("stripe payment intent: %w", err))
	}

	payment := &model.Payment{
		InvoiceID:             invoice.ID,
		OrganizationID:        invoice.OrganizationID,
		AmountCents:           amountCents,
		Currency:              invoice.Currency,
		Status:                model.PaymentStatusPending,
		Method:                "card",
		StripePaymentIntentID: &intentID,
		PlatformFeeCents:      fee,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.metrics.PaymentIntentsCreated.WithLabelValues("created").Inc()
	return &model.PaymentIntentResult{
		ClientSecret:     clientSecret,
		AmountCents:      amountCents,
		PlatformFeeCents: fee,
		Currency:         invoice.Currency,
	}, nil
}

// validateAmount enforces the payment window: positive, within the balance,
// and at least the required deposit unless the balance is paid in full.
func validateAmount(invoice *model.Invoice, amountCents int64) error {
	if invoice.Status.Terminal() {
		return apperrors.Conflict(fmt.Sprintf("invoice is %s and cannot accept payments", invoice.Status), nil)
	}
	if amountCents <= 0 {
		return apperrors.BadRequest("payment amount must be positive", nil)
	}
	if amountCents > invoice.AmountDueCents {
		return apperrors.BadRequest("payment amount exceeds the amount due", nil)
	}
	if invoice.DepositRequiredCents > 0 &&
		amountCents < invoice.DepositRequiredCents &&
		amountCents < invoice.AmountDueCents {
		return apperrors.BadRequest(
			fmt.Sprintf("payment must be at least the required deposit of %d cents", invoice.DepositRequiredCents), nil)
	}
	return nil
}

// HandleWebhookEvent routes a verified Stripe event. Unknown event types are
// acknowledged and ignored.
func (s *Service) HandleWebhookEvent(ctx context.Context, event stripesdk.Event) error {
	switch event.Type {
	case "payment_intent.succeeded":
		var intent stripesdk.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return apperrors.BadRequest("malformed payment_intent payload", err)
		}
		return s.recordSuccess(ctx, &intent)
	case "payment_intent.payment_failed":
		var intent stripesdk.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return apperrors.BadRequest("malformed payment_intent payload", err)
		}
		return s.recordFailure(ctx, &intent)
	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripesdk.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return apperrors.BadRequest("malformed subscription payload", err)
		}
		return s.syncSubscription(ctx, event.Type, &sub)
	default:
		s.log.Debug("ignoring webhook event", "type", string(event.Type))
		return nil
	}
}

// syncSubscription mirrors the vendor subscription state onto the
// organization's plan. A deleted or inactive subscription drops it to free.
func (s *Service) syncSubscription(ctx context.Context, eventType stripesdk.EventType, sub *stripesdk.Subscription) error {
	if sub.Customer == nil {
		return apperrors.BadRequest("subscription event without a customer", nil)
	}

	org, err := s.orgRepo.GetByStripeCustomerID(ctx, sub.Customer.ID)
	if err != nil {
		return err
	}

	status := string(sub.Status)
	plan := model.PlanFree
	if eventType == "customer.subscription.updated" &&
		(sub.Status == stripesdk.SubscriptionStatusActive || sub.Status == stripesdk.SubscriptionStatusTrialing) {
		if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
			if p := s.stripe.PlanForPriceID(sub.Items.Data[0].Price.ID); p != "" {
				plan = model.Plan(p)
			}
		}
	}

	return s.billing.SyncSubscription(ctx, org.ID, plan, status)
}

// recordSuccess settles the pending payment row and rolls the invoice
// forward to partial or paid. Replayed events are no-ops.
func (s *Service) recordSuccess(ctx context.Context, intent *stripesdk.PaymentIntent) error {
	payment, err := s.repo.GetByIntentID(ctx, intent.ID)
	if err != nil {
		return err
	}
	if payment.Status == model.PaymentStatusSucceeded {
		return nil
	}

	now := time.Now()
	if err := s.repo.UpdateStatus(ctx, payment.ID, model.PaymentStatusSucceeded, nil, &now); err != nil {
		return err
	}
	s.metrics.PaymentsRecorded.WithLabelValues("succeeded").Inc()
	s.metrics.PlatformFeesCents.Add(float64(payment.PlatformFeeCents))

	invoice, err := s.invoiceRepo.Get(ctx, payment.OrganizationID, payment.InvoiceID)
	if err != nil {
		return err
	}

	paid, err := s.repo.SumSucceededByInvoice(ctx, invoice.ID)
	if err != nil {
		return err
	}

	from := invoice.Status
	invoice.AmountPaidCents = paid
	invoice.AmountDueCents = invoice.TotalCents - paid
	if invoice.AmountDueCents <= 0 {
		invoice.AmountDueCents = 0
		invoice.Status = model.InvoiceStatusPaid
		invoice.PaidAt = &now
	} else {
		invoice.Status = model.InvoiceStatusPartial
	}

	if from != invoice.Status {
		history := &model.InvoiceStatusHistory{FromStatus: from, ToStatus: invoice.Status}
		if err := s.invoiceRepo.UpdateStatus(ctx, invoice, history); err != nil {
			return err
		}
		s.metrics.InvoiceTransitions.WithLabelValues(string(from), string(invoice.Status)).Inc()
	} else {
		if err := s.invoiceRepo.UpdateStatus(ctx, invoice, nil); err != nil {
			return err
		}
	}

	s.publishEvent(ctx, model.EventPaymentRecorded, payment)
	if invoice.Status == model.InvoiceStatusPaid {
		s.publishEvent(ctx, model.EventInvoicePaid, invoice)
	}

	if invoice.ClientEmail != nil && *invoice.ClientEmail != "" {
		org, err := s.orgRepo.Get(ctx, invoice.OrganizationID)
		if err != nil {
			s.log.Error(err, "could not load organization for receipt", "organization_id", invoice.OrganizationID)
			return nil
		}
		payment.Status = model.PaymentStatusSucceeded
		payment.PaidAt = &now
		if err := s.email.SendReceipt(ctx, *invoice.ClientEmail, org, invoice, payment); err != nil {
			s.log.Error(err, "failed to send receipt", "payment_id", payment.ID)
		}
	}
	return nil
}

func (s *Service) recordFailure(ctx context.Context, intent *stripesdk.PaymentIntent) error {
	payment, err := s.repo.GetByIntentID(ctx, intent.ID)
	if err != nil {
		return err
	}
	if payment.Status != model.PaymentStatusPending {
		return nil
	}

	var failureMessage *string
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		failureMessage = &intent.LastPaymentError.Msg
	}
	if err := s.repo.UpdateStatus(ctx, payment.ID, model.PaymentStatusFailed, failureMessage, nil); err != nil {
		return err
	}
	s.metrics.PaymentsRecorded.WithLabelValues("failed").Inc()
	return nil
}

func (s *Service) ListByInvoice(ctx context.Context, orgID, invoiceID uuid.UUID) ([]*model.Payment, error) {
	if _, err := s.invoiceRepo.Get(ctx, orgID, invoiceID); err != nil {
		return nil, err
	}
	return s.repo.ListByInvoice(ctx, invoiceID)
}

func (s *Service) publishEvent(ctx context.Context, eventType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.log.Error(err, "failed to marshal event payload", "event_type", eventType)
		return
	}
	if err := s.outboxRepo.Create(ctx, &model.OutboxEvent{
		EventType: eventType,
		Payload:   raw,
	}); err != nil {
		s.log.Error(err, "failed to write outbox event", "event_type", eventType)
	}
}
