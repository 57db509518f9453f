package admin

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bildout/bildout-api/internal/model"
	"github.com/bildout/bildout-api/internal/repository"
	"github.com/bildout/bildout-api/internal/service/billing"
	"github.com/bildout/bildout-api/internal/service/invoice"
	apperrors "github.com/bildout/bildout-api/pkg/errors"
	"github.com/bildout/bildout-api/pkg/logger"
)

func planPtr(p model.Plan) *model.Plan { return &p }

type fakeOrgRepo struct {
	repository.OrganizationRepository
	orgs    map[uuid.UUID]*model.Organization
	expired []*model.Organization
	cleared []uuid.UUID
}

func newFakeOrgRepo() *fakeOrgRepo {
	return &fakeOrgRepo{orgs: make(map[uuid.UUID]*model.Organization)}
}

func (f *fakeOrgRepo) add(org *model.Organization) {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	f.orgs[org.ID] = org
}

func (f *fakeOrgRepo) Get(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	org, ok := f.orgs[id]
	if !ok {
		return nil, apperrors.NotFound("organization", nil)
	}
	return org, nil
}

func (f *fakeOrgRepo) SetSuspended(ctx context.Context, id uuid.UUID, suspendedAt *time.Time) error {
	f.orgs[id].SuspendedAt = suspendedAt
	return nil
}

func (f *fakeOrgRepo) SetOverride(ctx context.Context, id uuid.UUID, plan model.Plan, expiresAt *time.Time, reason string, grantedBy uuid.UUID) error {
	org := f.orgs[id]
	org.OverridePlan = &plan
	org.OverrideExpiresAt = expiresAt
	org.OverrideReason = &reason
	org.OverrideGrantedBy = &grantedBy
	return nil
}

func (f *fakeOrgRepo) ClearOverride(ctx context.Context, id uuid.UUID) error {
	f.cleared = append(f.cleared, id)
	org := f.orgs[id]
	org.OverridePlan = nil
	org.OverrideExpiresAt = nil
	return nil
}

func (f *fakeOrgRepo) ListExpiredOverrides(ctx context.Context, now time.Time) ([]*model.Organization, error) {
	return f.expired, nil
}

type fakeAuditRepo struct {
	repository.AdminAuditRepository
	entries []*model.AdminAuditLog
}

func (f *fakeAuditRepo) Create(ctx context.Context, entry *model.AdminAuditLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeOutboxRepo struct {
	repository.OutboxRepository
	events []*model.OutboxEvent
}

func (f *fakeOutboxRepo) Create(ctx context.Context, event *model.OutboxEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeBilling struct {
	billing.BillingServicer
	invalidated []uuid.UUID
}

func (f *fakeBilling) InvalidatePlan(orgID uuid.UUID) {
	f.invalidated = append(f.invalidated, orgID)
}

type fakeInvoiceService struct {
	invoice.InvoiceServicer
	remindedOrg     uuid.UUID
	remindedInvoice uuid.UUID
	remindedBy      *uuid.UUID
	reminderErr     error
}

func (f *fakeInvoiceService) SendReminder(ctx context.Context, orgID, id uuid.UUID, actorID *uuid.UUID) error {
	if f.reminderErr != nil {
		return f.reminderErr
	}
	f.remindedOrg = orgID
	f.remindedInvoice = id
	f.remindedBy = actorID
	return nil
}

type fixture struct {
	svc      *Service
	orgs     *fakeOrgRepo
	audit    *fakeAuditRepo
	outbox   *fakeOutboxRepo
	billing  *fakeBilling
	invoices *fakeInvoiceService
	actor    *model.TokenClaims
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orgs := newFakeOrgRepo()
	audit := &fakeAuditRepo{}
	outbox := &fakeOutboxRepo{}
	bill := &fakeBilling{}
	invoices := &fakeInvoiceService{}
	svc := NewService(orgs, nil, nil, nil, audit, outbox, bill, invoices, nil, logger.NewLogger(nil))
	return &fixture{
		svc:      svc,
		orgs:     orgs,
		audit:    audit,
		outbox:   outbox,
		billing:  bill,
		invoices: invoices,
		actor:    &model.TokenClaims{UserID: uuid.New(), IsAdmin: true},
	}
}

func TestSuspendAndResume(t *testing.T) {
	f := newFixture(t)
	org := &model.Organization{Name: "Acme"}
	f.orgs.add(org)

	require.NoError(t, f.svc.Suspend(context.Background(), org.ID, f.actor, "10.0.0.1"))
	assert.NotNil(t, f.orgs.orgs[org.ID].SuspendedAt)

	err := f.svc.Suspend(context.Background(), org.ID, f.actor, "10.0.0.1")
	require.Error(t, err, "double suspend is a conflict")

	require.NoError(t, f.svc.Resume(context.Background(), org.ID, f.actor, "10.0.0.1"))
	assert.Nil(t, f.orgs.orgs[org.ID].SuspendedAt)

	err = f.svc.Resume(context.Background(), org.ID, f.actor, "10.0.0.1")
	require.Error(t, err, "resuming a non-suspended org is a conflict")

	require.Len(t, f.audit.entries, 2)
	assert.Equal(t, model.AdminActionSuspend, f.audit.entries[0].Action)
	assert.Equal(t, model.AdminActionResume, f.audit.entries[1].Action)
	assert.Equal(t, "10.0.0.1", f.audit.entries[0].IPAddress)
	require.NotNil(t, f.audit.entries[0].ActorID)
	assert.Equal(t, f.actor.UserID, *f.audit.entries[0].ActorID)
}

func TestSetOverrideInvalidatesPlanCache(t *testing.T) {
	f := newFixture(t)
	org := &model.Organization{Name: "Acme"}
	f.orgs.add(org)

	expires := time.Now().Add(30 * 24 * time.Hour)
	err := f.svc.SetOverride(context.Background(), org.ID, &OverrideInput{
		Plan:      model.PlanAgency,
		ExpiresAt: &expires,
		Reason:    "beta partner",
	}, f.actor, "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, model.PlanAgency, *f.orgs.orgs[org.ID].OverridePlan)
	assert.Equal(t, []uuid.UUID{org.ID}, f.billing.invalidated)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, model.AdminActionOverrideSet, f.audit.entries[0].Action)
	assert.NotEmpty(t, f.audit.entries[0].Metadata)
}

func TestSetOverrideValidation(t *testing.T) {
	f := newFixture(t)
	org := &model.Organization{Name: "Acme"}
	f.orgs.add(org)

	err := f.svc.SetOverride(context.Background(), org.ID, &OverrideInput{
		Plan:   "platinum",
		Reason: "x",
	}, f.actor, "")
	require.Error(t, err, "unknown plan rejected")

	past := time.Now().Add(-time.Hour)
	err = f.svc.SetOverride(context.Background(), org.ID, &OverrideInput{
		Plan:      model.PlanPro,
		ExpiresAt: &past,
		Reason:    "x",
	}, f.actor, "")
	require.Error(t, err, "past expiry rejected")

	assert.Empty(t, f.audit.entries)
}

func TestClearOverrideRequiresOne(t *testing.T) {
	f := newFixture(t)
	org := &model.Organization{Name: "Acme"}
	f.orgs.add(org)

	err := f.svc.ClearOverride(context.Background(), org.ID, f.actor, "")
	require.Error(t, err)
	appErr, _ := apperrors.As(err)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)

	org.OverridePlan = planPtr(model.PlanPro)
	require.NoError(t, f.svc.ClearOverride(context.Background(), org.ID, f.actor, ""))
	assert.Nil(t, org.OverridePlan)
	assert.Equal(t, []uuid.UUID{org.ID}, f.billing.invalidated)
}

func TestExpireOverridesAuditsSystemActor(t *testing.T) {
	f := newFixture(t)
	a := &model.Organization{Name: "A", OverridePlan: planPtr(model.PlanPro)}
	b := &model.Organization{Name: "B", OverridePlan: planPtr(model.PlanAgency)}
	f.orgs.add(a)
	f.orgs.add(b)
	f.orgs.expired = []*model.Organization{a, b}

	cleared, err := f.svc.ExpireOverrides(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, f.orgs.cleared)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, f.billing.invalidated)

	require.Len(t, f.audit.entries, 2)
	for _, entry := range f.audit.entries {
		assert.Equal(t, model.AdminActionOverrideExpired, entry.Action)
		assert.Nil(t, entry.ActorID, "sweep runs as the system actor")
	}
}

func TestAdminActionsMirrorToOutbox(t *testing.T) {
	f := newFixture(t)
	org := &model.Organization{Name: "Acme"}
	f.orgs.add(org)

	require.NoError(t, f.svc.Suspend(context.Background(), org.ID, f.actor, ""))
	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, model.EventAdminAction, f.outbox.events[0].EventType)
}

func TestSendReminderAudits(t *testing.T) {
	f := newFixture(t)
	orgID := uuid.New()
	invoiceID := uuid.New()

	require.NoError(t, f.svc.SendReminder(context.Background(), orgID, invoiceID, f.actor, "10.0.0.1"))

	assert.Equal(t, orgID, f.invoices.remindedOrg)
	assert.Equal(t, invoiceID, f.invoices.remindedInvoice)
	require.NotNil(t, f.invoices.remindedBy)
	assert.Equal(t, f.actor.UserID, *f.invoices.remindedBy)

	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	assert.Equal(t, model.AdminActionSendReminder, entry.Action)
	assert.Equal(t, model.AdminTargetInvoice, entry.TargetType)
	assert.Equal(t, invoiceID, entry.TargetID)
	assert.Equal(t, "10.0.0.1", entry.IPAddress)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, f.actor.UserID, *entry.ActorID)
}

func TestSendReminderSkipsAuditOnFailure(t *testing.T) {
	f := newFixture(t)
	f.invoices.reminderErr = apperrors.NotFound("invoice", nil)

	err := f.svc.SendReminder(context.Background(), uuid.New(), uuid.New(), f.actor, "")
	require.Error(t, err)
	assert.Empty(t, f.audit.entries)
}
