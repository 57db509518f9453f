package payment

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripesdk "github.com/stripe/stripe-go/v78"

	"github.com/bildout/bildout-api/internal/model"
	"github.com/bildout/bildout-api/internal/payments/stripe"
	"github.com/bildout/bildout-api/internal/repository"
	"github.com/bildout/bildout-api/internal/service/billing"
	apperrors "github.com/bildout/bildout-api/pkg/errors"
	"github.com/bildout/bildout-api/pkg/logger"
	"github.com/bildout/bildout-api/pkg/metrics"
)

func strPtr(s string) *string { return &s }

type fakePaymentRepo struct {
	repository.PaymentRepository
	payments map[string]*model.Payment
	sum      int64
	updates  []model.PaymentStatus
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[string]*model.Payment)}
}

func (f *fakePaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.payments[*p.StripePaymentIntentID] = p
	return nil
}

func (f *fakePaymentRepo) GetByIntentID(ctx context.Context, intentID string) (*model.Payment, error) {
	p, ok := f.payments[intentID]
	if !ok {
		return nil, apperrors.NotFound("payment", nil)
	}
	return p, nil
}

func (f *fakePaymentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus, failureMessage *string, paidAt *time.Time) error {
	f.updates = append(f.updates, status)
	for _, p := range f.payments {
		if p.ID == id {
			p.Status = status
			p.FailureMessage = failureMessage
			p.PaidAt = paidAt
		}
	}
	return nil
}

func (f *fakePaymentRepo) SumSucceededByInvoice(ctx context.Context, invoiceID uuid.UUID) (int64, error) {
	return f.sum, nil
}

type fakeInvoiceRepo struct {
	repository.InvoiceRepository
	invoice *model.Invoice
	history []*model.InvoiceStatusHistory
}

func (f *fakeInvoiceRepo) GetByToken(ctx context.Context, token string) (*model.Invoice, error) {
	if f.invoice == nil || f.invoice.PaymentLinkToken == nil || *f.invoice.PaymentLinkToken != token {
		return nil, apperrors.NotFound("invoice", nil)
	}
	return f.invoice, nil
}

func (f *fakeInvoiceRepo) Get(ctx context.Context, orgID, id uuid.UUID) (*model.Invoice, error) {
	if f.invoice == nil {
		return nil, apperrors.NotFound("invoice", nil)
	}
	return f.invoice, nil
}

func (f *fakeInvoiceRepo) UpdateStatus(ctx context.Context, inv *model.Invoice, history *model.InvoiceStatusHistory) error {
	f.invoice = inv
	if history != nil {
		f.history = append(f.history, history)
	}
	return nil
}

type fakeOrgRepo struct {
	repository.OrganizationRepository
	org *model.Organization
}

func (f *fakeOrgRepo) Get(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	return f.org, nil
}

func (f *fakeOrgRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*model.Organization, error) {
	if f.org == nil || f.org.StripeCustomerID == nil || *f.org.StripeCustomerID != customerID {
		return nil, apperrors.NotFound("organization", nil)
	}
	return f.org, nil
}

type fakeUserRepo struct {
	repository.UserRepository
	owner *model.User
}

func (f *fakeUserRepo) GetOwner(ctx context.Context, orgID uuid.UUID) (*model.User, error) {
	return f.owner, nil
}

type fakeOutboxRepo struct {
	repository.OutboxRepository
	events []*model.OutboxEvent
}

func (f *fakeOutboxRepo) Create(ctx context.Context, event *model.OutboxEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeStripe struct {
	stripe.Client
	lastParams stripe.IntentParams
}

func (f *fakeStripe) CreatePaymentIntent(ctx context.Context, p stripe.IntentParams) (string, string, error) {
	f.lastParams = p
	return "pi_test_123", "pi_test_123_secret", nil
}

func (f *fakeStripe) PlanForPriceID(priceID string) string {
	switch priceID {
	case "price_pro":
		return "pro"
	case "price_agency":
		return "agency"
	}
	return ""
}

type fakeBilling struct {
	billing.BillingServicer
	syncedPlan   *model.Plan
	syncedStatus string
}

func (f *fakeBilling) SyncSubscription(ctx context.Context, orgID uuid.UUID, plan model.Plan, status string) error {
	f.syncedPlan = &plan
	f.syncedStatus = status
	return nil
}

type fakeEmail struct {
	receipts int
}

func (f *fakeEmail) SendInvoice(ctx context.Context, to string, org *model.Organization, inv *model.Invoice, payURL string) error {
	return nil
}

func (f *fakeEmail) SendReminder(ctx context.Context, to string, org *model.Organization, inv *model.Invoice, payURL string) error {
	return nil
}

func (f *fakeEmail) SendReceipt(ctx context.Context, to string, org *model.Organization, inv *model.Invoice, payment *model.Payment) error {
	f.receipts++
	return nil
}

type fixture struct {
	svc      *Service
	payments *fakePaymentRepo
	invoices *fakeInvoiceRepo
	outbox   *fakeOutboxRepo
	stripe   *fakeStripe
	billing  *fakeBilling
	orgs     *fakeOrgRepo
	email    *fakeEmail
	token    string
}

var testMetrics = metrics.NewMetrics("payment_test")

func newFixture(t *testing.T, invoice *model.Invoice) *fixture {
	t.Helper()
	token := uuid.NewString()
	if invoice != nil && invoice.PaymentLinkToken == nil {
		invoice.PaymentLinkToken = &token
	}

	org := &model.Organization{Name: "Acme", Currency: "usd"}
	org.ID = uuid.New()
	accountID := "acct_test"
	owner := &model.User{
		StripeAccountID: &accountID,
		ChargesEnabled:  true,
	}

	payments := newFakePaymentRepo()
	invoices := &fakeInvoiceRepo{invoice: invoice}
	outbox := &fakeOutboxRepo{}
	orgs := &fakeOrgRepo{org: org}
	sc := &fakeStripe{}
	bill := &fakeBilling{}
	mail := &fakeEmail{}

	svc := NewService(
		payments,
		invoices,
		orgs,
		&fakeUserRepo{owner: owner},
		outbox,
		sc,
		bill,
		mail,
		testMetrics,
		150, // 1.5%
		logger.NewLogger(nil),
	)
	return &fixture{
		svc:      svc,
		payments: payments,
		invoices: invoices,
		outbox:   outbox,
		stripe:   sc,
		billing:  bill,
		orgs:     orgs,
		email:    mail,
		token:    token,
	}
}

func payableInvoice() *model.Invoice {
	inv := &model.Invoice{
		OrganizationID: uuid.New(),
		Number:         "INV-000007",
		Status:         model.InvoiceStatusSent,
		Currency:       "usd",
		TotalCents:     20000,
		AmountDueCents: 20000,
		ClientEmail:    strPtr("client@example.com"),
	}
	inv.ID = uuid.New()
	return inv
}

func TestCreateIntentComputesPlatformFee(t *testing.T) {
	f := newFixture(t, payableInvoice())

	result, err := f.svc.CreateIntent(context.Background(), f.token, 20000)
	require.NoError(t, err)

	assert.Equal(t, "pi_test_123_secret", result.ClientSecret)
	assert.Equal(t, int64(20000), result.AmountCents)
	// 1.5% of 20000 = 300.
	assert.Equal(t, int64(300), result.PlatformFeeCents)
	assert.Equal(t, int64(300), f.stripe.lastParams.PlatformFeeCents)
	assert.Equal(t, "acct_test", f.stripe.lastParams.ConnectedAccountID)

	p := f.payments.payments["pi_test_123"]
	require.NotNil(t, p)
	assert.Equal(t, model.PaymentStatusPending, p.Status)
}

func TestCreateIntentFeeRoundsDown(t *testing.T) {
	inv := payableInvoice()
	f := newFixture(t, inv)

	// 1.5% of 999 = 14.985, truncated to 14.
	result, err := f.svc.CreateIntent(context.Background(), f.token, 999)
	require.NoError(t, err)
	assert.Equal(t, int64(14), result.PlatformFeeCents)
}

func TestCreateIntentValidation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*model.Invoice)
		amount   int64
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "negative amount",
			mutate:   func(*model.Invoice) {},
			amount:   -500,
			wantCode: apperrors.ErrBadRequest,
		},
		{
			name:     "amount above balance",
			mutate:   func(*model.Invoice) {},
			amount:   20001,
			wantCode: apperrors.ErrBadRequest,
		},
		{
			name: "paid invoice",
			mutate: func(inv *model.Invoice) {
				inv.Status = model.InvoiceStatusPaid
			},
			amount:   100,
			wantCode: apperrors.ErrConflict,
		},
		{
			name: "void invoice",
			mutate: func(inv *model.Invoice) {
				inv.Status = model.InvoiceStatusVoid
			},
			amount:   100,
			wantCode: apperrors.ErrConflict,
		},
		{
			name: "below required deposit",
			mutate: func(inv *model.Invoice) {
				inv.DepositRequiredCents = 5000
			},
			amount:   4000,
			wantCode: apperrors.ErrBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := payableInvoice()
			tt.mutate(inv)
			f := newFixture(t, inv)

			_, err := f.svc.CreateIntent(context.Background(), f.token, tt.amount)
			require.Error(t, err)
			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestCreateIntentDepositEdgeCases(t *testing.T) {
	t.Run("full balance allowed below deposit threshold", func(t *testing.T) {
		inv := payableInvoice()
		inv.AmountDueCents = 3000
		inv.DepositRequiredCents = 5000
		f := newFixture(t, inv)

		_, err := f.svc.CreateIntent(context.Background(), f.token, 3000)
		require.NoError(t, err)
	})

	t.Run("deposit floor still applies after a partial payment", func(t *testing.T) {
		inv := payableInvoice()
		inv.Status = model.InvoiceStatusPartial
		inv.AmountPaidCents = 5000
		inv.AmountDueCents = 15000
		inv.DepositRequiredCents = 5000
		f := newFixture(t, inv)

		_, err := f.svc.CreateIntent(context.Background(), f.token, 1000)
		require.Error(t, err)
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)

		_, err = f.svc.CreateIntent(context.Background(), f.token, 5000)
		require.NoError(t, err)
	})
}

func TestCreateIntentDefaultsToFullBalance(t *testing.T) {
	inv := payableInvoice()
	f := newFixture(t, inv)

	result, err := f.svc.CreateIntent(context.Background(), f.token, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), result.AmountCents)
	assert.Equal(t, int64(20000), f.stripe.lastParams.AmountCents)
}

func TestValidateAmountRejectsZero(t *testing.T) {
	inv := payableInvoice()

	err := validateAmount(inv, 0)
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}

func succeededEvent(t *testing.T, intentID string) stripesdk.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{"id": intentID})
	require.NoError(t, err)
	return stripesdk.Event{
		Type: "payment_intent.succeeded",
		Data: &stripesdk.EventData{Raw: raw},
	}
}

func TestWebhookPartialPayment(t *testing.T) {
	inv := payableInvoice()
	f := newFixture(t, inv)

	_, err := f.svc.CreateIntent(context.Background(), f.token, 8000)
	require.NoError(t, err)
	f.payments.sum = 8000

	err = f.svc.HandleWebhookEvent(context.Background(), succeededEvent(t, "pi_test_123"))
	require.NoError(t, err)

	assert.Equal(t, model.InvoiceStatusPartial, f.invoices.invoice.Status)
	assert.Equal(t, int64(8000), f.invoices.invoice.AmountPaidCents)
	assert.Equal(t, int64(12000), f.invoices.invoice.AmountDueCents)
	assert.Equal(t, 1, f.email.receipts)

	require.Len(t, f.invoices.history, 1)
	assert.Equal(t, model.InvoiceStatusSent, f.invoices.history[0].FromStatus)
	assert.Equal(t, model.InvoiceStatusPartial, f.invoices.history[0].ToStatus)
}

func TestWebhookFullPayment(t *testing.T) {
	inv := payableInvoice()
	f := newFixture(t, inv)

	_, err := f.svc.CreateIntent(context.Background(), f.token, 20000)
	require.NoError(t, err)
	f.payments.sum = 20000

	err = f.svc.HandleWebhookEvent(context.Background(), succeededEvent(t, "pi_test_123"))
	require.NoError(t, err)

	assert.Equal(t, model.InvoiceStatusPaid, f.invoices.invoice.Status)
	assert.Zero(t, f.invoices.invoice.AmountDueCents)
	assert.NotNil(t, f.invoices.invoice.PaidAt)

	var types []string
	for _, e := range f.outbox.events {
		types = append(types, e.EventType)
	}
	assert.Contains(t, types, model.EventPaymentRecorded)
	assert.Contains(t, types, model.EventInvoicePaid)
}

func TestWebhookReplayIsNoOp(t *testing.T) {
	inv := payableInvoice()
	f := newFixture(t, inv)

	_, err := f.svc.CreateIntent(context.Background(), f.token, 20000)
	require.NoError(t, err)
	f.payments.sum = 20000

	event := succeededEvent(t, "pi_test_123")
	require.NoError(t, f.svc.HandleWebhookEvent(context.Background(), event))
	updatesAfterFirst := len(f.payments.updates)
	receiptsAfterFirst := f.email.receipts

	require.NoError(t, f.svc.HandleWebhookEvent(context.Background(), event))
	assert.Equal(t, updatesAfterFirst, len(f.payments.updates), "replay must not touch the payment row")
	assert.Equal(t, receiptsAfterFirst, f.email.receipts, "replay must not re-send the receipt")
}

func TestWebhookPaymentFailed(t *testing.T) {
	inv := payableInvoice()
	f := newFixture(t, inv)

	_, err := f.svc.CreateIntent(context.Background(), f.token, 20000)
	require.NoError(t, err)

	raw, err := json.Marshal(map[string]interface{}{
		"id":                 "pi_test_123",
		"last_payment_error": map[string]interface{}{"message": "card declined"},
	})
	require.NoError(t, err)

	err = f.svc.HandleWebhookEvent(context.Background(), stripesdk.Event{
		Type: "payment_intent.payment_failed",
		Data: &stripesdk.EventData{Raw: raw},
	})
	require.NoError(t, err)

	p := f.payments.payments["pi_test_123"]
	assert.Equal(t, model.PaymentStatusFailed, p.Status)
	require.NotNil(t, p.FailureMessage)
	assert.Equal(t, "card declined", *p.FailureMessage)
	// The invoice keeps its status on a failed attempt.
	assert.Equal(t, model.InvoiceStatusSent, f.invoices.invoice.Status)
}

func TestWebhookUnknownEventIgnored(t *testing.T) {
	f := newFixture(t, payableInvoice())

	err := f.svc.HandleWebhookEvent(context.Background(), stripesdk.Event{
		Type: "customer.created",
		Data: &stripesdk.EventData{Raw: []byte(`{}`)},
	})
	require.NoError(t, err)
	assert.Empty(t, f.payments.updates)
}

func subscriptionEvent(t *testing.T, eventType, customerID, status, priceID string) stripesdk.Event {
	t.Helper()
	sub := map[string]interface{}{
		"customer": map[string]interface{}{"id": customerID},
		"status":   status,
	}
	if priceID != "" {
		sub["items"] = map[string]interface{}{
			"data": []map[string]interface{}{
				{"price": map[string]interface{}{"id": priceID}},
			},
		}
	}
	raw, err := json.Marshal(sub)
	require.NoError(t, err)
	return stripesdk.Event{
		Type: stripesdk.EventType(eventType),
		Data: &stripesdk.EventData{Raw: raw},
	}
}

func TestWebhookSubscriptionUpdated(t *testing.T) {
	f := newFixture(t, payableInvoice())
	customerID := "cus_test"
	f.orgs.org.StripeCustomerID = &customerID

	err := f.svc.HandleWebhookEvent(context.Background(),
		subscriptionEvent(t, "customer.subscription.updated", customerID, "active", "price_pro"))
	require.NoError(t, err)

	require.NotNil(t, f.billing.syncedPlan)
	assert.Equal(t, model.PlanPro, *f.billing.syncedPlan)
	assert.Equal(t, "active", f.billing.syncedStatus)
}

func TestWebhookSubscriptionDeletedDropsToFree(t *testing.T) {
	f := newFixture(t, payableInvoice())
	customerID := "cus_test"
	f.orgs.org.StripeCustomerID = &customerID

	err := f.svc.HandleWebhookEvent(context.Background(),
		subscriptionEvent(t, "customer.subscription.deleted", customerID, "canceled", "price_pro"))
	require.NoError(t, err)

	require.NotNil(t, f.billing.syncedPlan)
	assert.Equal(t, model.PlanFree, *f.billing.syncedPlan)
	assert.Equal(t, "canceled", f.billing.syncedStatus)
}

func TestWebhookSubscriptionUnknownCustomer(t *testing.T) {
	f := newFixture(t, payableInvoice())

	err := f.svc.HandleWebhookEvent(context.Background(),
		subscriptionEvent(t, "customer.subscription.updated", "cus_missing", "active", "price_pro"))
	require.Error(t, err)
	assert.Nil(t, f.billing.syncedPlan)
}

func TestCreateIntentRequiresChargesEnabled(t *testing.T) {
	inv := payableInvoice()
	f := newFixture(t, inv)
	// Simulate Connect onboarding not finished.
	f.svc.userRepo = &fakeUserRepo{owner: &model.User{}}

	_, err := f.svc.CreateIntent(context.Background(), f.token, 1000)
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}
