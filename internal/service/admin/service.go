package admin

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/bildout/bildout-api/internal/model"
	"github.com/bildout/bildout-api/internal/payments/stripe"
	"github.com/bildout/bildout-api/internal/repository"
	"github.com/bildout/bildout-api/internal/service/billing"
	"github.com/bildout/bildout-api/internal/service/invoice"
	apperrors "github.com/bildout/bildout-api/pkg/errors"
	"github.com/bildout/bildout-api/pkg/logger"
)

// OverrideInput grants a plan override to a merchant. A nil ExpiresAt makes
// the override permanent.
type OverrideInput struct {
	Plan      model.Plan `json:"plan" binding:"required"`
	ExpiresAt *time.Time `json:"expires_at"`
	Reason    string     `json:"reason" binding:"required"`
}

// MerchantDetail is the back-office view of one organization
type MerchantDetail struct {
	Organization  *model.Organization `json:"organization"`
	Owner         *model.User         `json:"owner"`
	EffectivePlan model.Plan          `json:"effective_plan"`
	InvoiceCount  int                 `json:"invoice_count"`
	ClientCount   int                 `json:"client_count"`
}

type AdminServicer interface {
	ListMerchants(ctx context.Context, search string, p model.Pagination) ([]*model.Organization, int, error)
	GetMerchant(ctx context.Context, orgID uuid.UUID) (*MerchantDetail, error)
	Suspend(ctx context.Context, orgID uuid.UUID, actor *model.TokenClaims, ip string) error
	Resume(ctx context.Context, orgID uuid.UUID, actor *model.TokenClaims, ip string) error
	SetOverride(ctx context.Context, orgID uuid.UUID, input *OverrideInput, actor *model.TokenClaims, ip string) error
	ClearOverride(ctx context.Context, orgID uuid.UUID, actor *model.TokenClaims, ip string) error
	ExpireOverrides(ctx context.Context) (int, error)
	SyncSubscription(ctx context.Context, orgID uuid.UUID, actor *model.TokenClaims, ip string) error
	ConnectLoginLink(ctx context.Context, orgID uuid.UUID, actor *model.TokenClaims, ip string) (string, error)
	SendReminder(ctx context.Context, orgID, invoiceID uuid.UUID, actor *model.TokenClaims, ip string) error
	ListAudit(ctx context.Context, filter *model.AuditFilter) ([]*model.AdminAuditLog, error)
}

type Service struct {
	orgRepo     repository.OrganizationRepository
	userRepo    repository.UserRepository
	clientRepo  repository.ClientRepository
	invoiceRepo repository.InvoiceRepository
	auditRepo   repository.AdminAuditRepository
	outboxRepo  repository.OutboxRepository
	billing     billing.BillingServicer
	invoices    invoice.InvoiceServicer
	stripe      stripe.Client
	log         *logger.Logger
}

func NewService(
	orgRepo repository.OrganizationRepository,
	userRepo repository.UserRepository,
	clientRepo repository.ClientRepository,
	invoiceRepo repository.InvoiceRepository,
	auditRepo repository.AdminAuditRepository,
	outboxRepo repository.OutboxRepository,
	billingSvc billing.BillingServicer,
	invoiceSvc invoice.InvoiceServicer,
	stripeClient stripe.Client,
	log *logger.Logger,
) *Service {
	return &Service{
		orgRepo:     orgRepo,
		userRepo:    userRepo,
		clientRepo:  clientRepo,
		invoiceRepo: invoiceRepo,
		auditRepo:   auditRepo,
		outboxRepo:  outboxRepo,
		billing:     billingSvc,
		invoices:    invoiceSvc,
		stripe:      stripeClient,
		log:         log,
	}
}

func (s *Service) ListMerchants(ctx context.Context, search string, p model.Pagination) ([]*model.Organization, int, error) {
	orgs, err := s.orgRepo.List(ctx, search, p)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.orgRepo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return orgs, total, nil
}

func (s *Service) GetMerchant(ctx context.Context, orgID uuid.UUID) (*MerchantDetail, error) {
	org, err := s.orgRepo.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	owner, err := s.userRepo.GetOwner(ctx, orgID)
	if err != nil {
		return nil, err
	}
	invoiceCount, err := s.invoiceRepo.CountByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	clientCount, err := s.clientRepo.CountActive(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return &MerchantDetail{
		Organization:  org,
		Owner:         owner,
		EffectivePlan: billing.EffectivePlan(org),
		InvoiceCount:  invoiceCount,
		ClientCount:   clientCount,
	}, nil
}

func (s *Service) Suspend(ctx context.Context, orgID uuid.UUID, actor *model.TokenClaims, ip string) error {
	org, err := s.orgRepo.Get(ctx, orgID)
	if err != nil {
		return err
	}
	if org.Suspended() {
		return apperrors.Conflict("organization is already suspended", nil)
	}

	now := time.Now()
	if err := s.orgRepo.SetSuspended(ctx, orgID, &now); err != nil {
		return err
	}
	s.audit(ctx, actor, model.AdminActionSuspend, model.AdminTargetOrganization, orgID, nil, ip)
	return nil
}

func (s *Service) Resume(ctx context.Context, orgID uuid.UUID, actor *model.TokenClaims, ip string) error {
	org, err := s.orgRepo.Get(ctx, orgID)
	if err != nil {
		return err
	}
	if !org.Suspended() {
		return apperrors.Conflict("organization is not suspended", nil)
	}

	if err := s.orgRepo.SetSuspended(ctx, orgID, nil); err != nil {
		return err
	}
	s.audit(ctx, actor, model.AdminActionResume, model.AdminTargetOrganization, orgID, nil, ip)
	return nil
}

// SetOverride grants a plan override and invalidates the cached effective
// plan so the new limits apply immediately.
func (s *Service) SetOverride(ctx context.Context, orgID uuid.UUID, input *OverrideInput, actor *model.TokenClaims, ip string) error {
	if !input.Plan.Valid() {
		return apperrors.BadRequest("unknown plan", nil)
	}
	if input.ExpiresAt != nil && input.ExpiresAt.Before(time.Now()) {
		return apperrors.BadRequest("override expiry must be in the future", nil)
	}
	if _, err := s.orgRepo.Get(ctx, orgID); err != nil {
		return err
	}

	if err := s.orgRepo.SetOverride(ctx, orgID, input.Plan, input.ExpiresAt, input.Reason, actor.UserID); err != nil {
		return err
	}
	s.billing.InvalidatePlan(orgID)

	meta, _ := json.Marshal(input)
	s.audit(ctx, actor, model.AdminActionOverrideSet, model.AdminTargetOrganization, orgID, meta, ip)
	return nil
}

func (s *Service) ClearOverride(ctx context.Context, orgID uuid.UUID, actor *model.TokenClaims, ip string) error {
	org, err := s.orgRepo.Get(ctx, orgID)
	if err != nil {
		return err
	}
	if org.OverridePlan == nil {
		return apperrors.Conflict("organization has no plan override", nil)
	}

	if err := s.orgRepo.ClearOverride(ctx, orgID); err != nil {
		return err
	}
	s.billing.InvalidatePlan(orgID)
	s.audit(ctx, actor, model.AdminActionOverrideClear, model.AdminTargetOrganization, orgID, nil, ip)
	return nil
}

// ExpireOverrides clears every override past its expiry, auditing each with
// a system (nil) actor. Run from cron.
func (s *Service) ExpireOverrides(ctx context.Context) (int, error) {
	expired, err := s.orgRepo.ListExpiredOverrides(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, org := range expired {
		if err := s.orgRepo.ClearOverride(ctx, org.ID); err != nil {
			s.log.Error(err, "failed to clear expired override", "organization_id", org.ID)
			continue
		}
		s.billing.InvalidatePlan(org.ID)
		s.audit(ctx, nil, model.AdminActionOverrideExpired, model.AdminTargetOrganization, org.ID, nil, "")
		cleared++
	}

	if cleared > 0 {
		s.log.Info("expired plan overrides cleared", "count", cleared)
	}
	return cleared, nil
}

// SyncSubscription re-reads the merchant's Connect account state from
// Stripe and persists it.
func (s *Service) SyncSubscription(ctx context.Context, orgID uuid.UUID, actor *model.TokenClaims, ip string) error {
	owner, err := s.userRepo.GetOwner(ctx, orgID)
	if err != nil {
		return err
	}
	if _, err := s.billing.SyncConnectStatus(ctx, owner.ID); err != nil {
		return err
	}
	s.billing.InvalidatePlan(orgID)
	s.audit(ctx, actor, model.AdminActionSubscriptionSync, model.AdminTargetOrganization, orgID, nil, ip)
	return nil
}

// ConnectLoginLink mints a one-time Stripe Express dashboard link for the
// merchant's account.
func (s *Service) ConnectLoginLink(ctx context.Context, orgID uuid.UUID, actor *model.TokenClaims, ip string) (string, error) {
	owner, err := s.userRepo.GetOwner(ctx, orgID)
	if err != nil {
		return "", err
	}
	if owner.StripeAccountID == nil {
		return "", apperrors.BadRequest("merchant has no connected account", nil)
	}

	url, err := s.stripe.CreateLoginLink(ctx, *owner.StripeAccountID)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	s.audit(ctx, actor, model.AdminActionLoginLink, model.AdminTargetUser, owner.ID, nil, ip)
	return url, nil
}

// SendReminder re-sends the reminder email for a merchant's invoice on their
// behalf and records the action in the audit log.
func (s *Service) SendReminder(ctx context.Context, orgID, invoiceID uuid.UUID, actor *model.TokenClaims, ip string) error {
	var actorID *uuid.UUID
	if actor != nil {
		actorID = &actor.UserID
	}
	if err := s.invoices.SendReminder(ctx, orgID, invoiceID, actorID); err != nil {
		return err
	}
	s.audit(ctx, actor, model.AdminActionSendReminder, model.AdminTargetInvoice, invoiceID, nil, ip)
	return nil
}

func (s *Service) ListAudit(ctx context.Context, filter *model.AuditFilter) ([]*model.AdminAuditLog, error) {
	return s.auditRepo.List(ctx, filter)
}

// audit writes the log row and mirrors it to the outbox. Audit failures are
// logged, never surfaced: the admin action itself already committed.
func (s *Service) audit(ctx context.Context, actor *model.TokenClaims, action, targetType string, targetID uuid.UUID, metadata json.RawMessage, ip string) {
	entry := &model.AdminAuditLog{
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   metadata,
		IPAddress:  ip,
	}
	if actor != nil {
		entry.ActorID = &actor.UserID
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.log.Error(err, "failed to write admin audit log", "action", action, "target_id", targetID)
		return
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := s.outboxRepo.Create(ctx, &model.OutboxEvent{
		EventType: model.EventAdminAction,
		Payload:   payload,
	}); err != nil {
		s.log.Error(err, "failed to write outbox event", "event_type", model.EventAdminAction)
	}
}
