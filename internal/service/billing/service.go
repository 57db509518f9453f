package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/bildout/bildout-api/internal/model"
	"github.com/bildout/bildout-api/internal/payments/stripe"
	"github.com/bildout/bildout-api/internal/repository"
	apperrors "github.com/bildout/bildout-api/pkg/errors"
	"github.com/bildout/bildout-api/pkg/logger"
)

// BillingServicer resolves effective plans, enforces plan limits, and fronts
// the vendor billing surface (checkout, portal, Connect onboarding).
type BillingServicer interface {
	EffectivePlanByID(ctx context.Context, orgID uuid.UUID) (model.Plan, error)
	InvalidatePlan(orgID uuid.UUID)
	CheckInvoiceLimit(ctx context.Context, orgID uuid.UUID) (*model.LimitResult, error)
	CheckClientLimit(ctx context.Context, orgID uuid.UUID) (*model.LimitResult, error)

	CreateCheckoutSession(ctx context.Context, orgID uuid.UUID, plan model.Plan) (string, error)
	CreatePortalSession(ctx context.Context, orgID uuid.UUID) (string, error)
	SyncSubscription(ctx context.Context, orgID uuid.UUID, plan model.Plan, status string) error

	StartConnectOnboarding(ctx context.Context, userID uuid.UUID) (string, error)
	SyncConnectStatus(ctx context.Context, userID uuid.UUID) (*model.User, error)
}

type Service struct {
	orgRepo     repository.OrganizationRepository
	userRepo    repository.UserRepository
	clientRepo  repository.ClientRepository
	invoiceRepo repository.InvoiceRepository
	stripe      stripe.Client
	cache       *gocache.Cache
	baseURL     string
	log         *logger.Logger
}

func NewService(
	orgRepo repository.OrganizationRepository,
	userRepo repository.UserRepository,
	clientRepo repository.ClientRepository,
	invoiceRepo repository.InvoiceRepository,
	stripeClient stripe.Client,
	baseURL string,
	log *logger.Logger,
) *Service {
	return &Service{
		orgRepo:     orgRepo,
		userRepo:    userRepo,
		clientRepo:  clientRepo,
		invoiceRepo: invoiceRepo,
		stripe:      stripeClient,
		cache:       gocache.New(time.Minute, 5*time.Minute),
		baseURL:     baseURL,
		log:         log,
	}
}

// EffectivePlan merges the vendor-derived plan with any admin override.
//
// An override with an expiry in the past is ignored (the scheduled sweep
// clears the stale row later); an override with no expiry is permanent.
func EffectivePlan(org *model.Organization) model.Plan {
	return effectivePlanAt(org, time.Now())
}

func effectivePlanAt(org *model.Organization, now time.Time) model.Plan {
	if org.OverridePlan != nil {
		if org.OverrideExpiresAt == nil || org.OverrideExpiresAt.After(now) {
			return *org.OverridePlan
		}
	}
	if org.SubscriptionPlan != nil {
		return *org.SubscriptionPlan
	}
	return model.PlanFree
}

func (s *Service) EffectivePlanByID(ctx context.Context, orgID uuid.UUID) (model.Plan, error) {
	if cached, ok := s.cache.Get(orgID.String()); ok {
		return cached.(model.Plan), nil
	}

	org, err := s.orgRepo.Get(ctx, orgID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve plan: %w", err)
	}

	plan := EffectivePlan(org)
	s.cache.SetDefault(orgID.String(), plan)
	return plan, nil
}

// InvalidatePlan drops the cached plan after an override or subscription write
func (s *Service) InvalidatePlan(orgID uuid.UUID) {
	s.cache.Delete(orgID.String())
}

// CheckInvoiceLimit counts invoices created since the first calendar day of
// the current month, server-local time. Two concurrent creates can both pass
// this check; that race is accepted.
func (s *Service) CheckInvoiceLimit(ctx context.Context, orgID uuid.UUID) (*model.LimitResult, error) {
	plan, err := s.EffectivePlanByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	limit := model.LimitsFor(plan).InvoicesPerMonth
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)

	current, err := s.invoiceRepo.CountCreatedSince(ctx, orgID, monthStart)
	if err != nil {
		return nil, fmt.Errorf("failed to count invoices this month: %w", err)
	}

	return &model.LimitResult{
		Allowed: limit == nil || current < *limit,
		Limit:   limit,
		Current: current,
		Plan:    plan,
	}, nil
}

func (s *Service) CheckClientLimit(ctx context.Context, orgID uuid.UUID) (*model.LimitResult, error) {
	plan, err := s.EffectivePlanByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	limit := model.LimitsFor(plan).ActiveClients

	current, err := s.clientRepo.CountActive(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to count active clients: %w", err)
	}

	return &model.LimitResult{
		Allowed: limit == nil || current < *limit,
		Limit:   limit,
		Current: current,
		Plan:    plan,
	}, nil
}

func (s *Service) CreateCheckoutSession(ctx context.Context, orgID uuid.UUID, plan model.Plan) (string, error) {
	priceID := s.stripe.PriceIDForPlan(string(plan))
	if priceID == "" {
		return "", apperrors.BadRequest(fmt.Sprintf("plan %q is not purchasable", plan), nil)
	}

	org, err := s.orgRepo.Get(ctx, orgID)
	if err != nil {
		return "", err
	}

	customerID, err := s.ensureStripeCustomer(ctx, org)
	if err != nil {
		return "", err
	}

	successURL := s.baseURL + "/settings/billing?checkout=success"
	cancelURL := s.baseURL + "/settings/billing?checkout=cancelled"
	return s.stripe.CreateCheckoutSession(ctx, customerID, priceID, successURL, cancelURL)
}

func (s *Service) CreatePortalSession(ctx context.Context, orgID uuid.UUID) (string, error) {
	org, err := s.orgRepo.Get(ctx, orgID)
	if err != nil {
		return "", err
	}
	if org.StripeCustomerID == nil {
		return "", apperrors.BadRequest("no billing account; subscribe first", nil)
	}
	return s.stripe.CreatePortalSession(ctx, *org.StripeCustomerID, s.baseURL+"/settings/billing")
}

// SyncSubscription persists the vendor-derived plan, from the subscription
// webhook or from the admin sync endpoint.
func (s *Service) SyncSubscription(ctx context.Context, orgID uuid.UUID, plan model.Plan, status string) error {
	if err := s.orgRepo.UpdateSubscription(ctx, orgID, &plan, &status, nil); err != nil {
		return fmt.Errorf("failed to sync subscription: %w", err)
	}
	s.InvalidatePlan(orgID)
	s.log.Info("subscription synced", "organization_id", orgID, "plan", plan, "status", status)
	return nil
}

func (s *Service) ensureStripeCustomer(ctx context.Context, org *model.Organization) (string, error) {
	if org.StripeCustomerID != nil && *org.StripeCustomerID != "" {
		return *org.StripeCustomerID, nil
	}

	customerID, err := s.stripe.CreateCustomer(ctx, org.Name, org.Email, org.ID.String())
	if err != nil {
		return "", err
	}
	if err := s.orgRepo.UpdateSubscription(ctx, org.ID, nil, nil, &customerID); err != nil {
		return "", err
	}
	return customerID, nil
}

// StartConnectOnboarding provisions an Express account if the merchant has
// none and returns the onboarding link.
func (s *Service) StartConnectOnboarding(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	if user.StripeAccountID == nil || *user.StripeAccountID == "" {
		accountID, err := s.stripe.CreateExpressAccount(ctx, user.Email)
		if err != nil {
			return "", err
		}
		user.StripeAccountID = &accountID
		if err := s.userRepo.UpdateConnectStatus(ctx, user); err != nil {
			return "", err
		}
	}

	refreshURL := s.baseURL + "/settings/payments?onboarding=refresh"
	returnURL := s.baseURL + "/settings/payments?onboarding=complete"
	return s.stripe.CreateAccountLink(ctx, *user.StripeAccountID, refreshURL, returnURL)
}

// SyncConnectStatus mirrors the vendor's account flags onto the local user.
func (s *Service) SyncConnectStatus(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.StripeAccountID == nil || *user.StripeAccountID == "" {
		return nil, apperrors.BadRequest("merchant has no connected account", nil)
	}

	status, err := s.stripe.GetAccountStatus(ctx, *user.StripeAccountID)
	if err != nil {
		// The account can be deleted on the Stripe side; drop the stale
		// reference so onboarding can start over.
		if stripe.IsAccountMissing(err) {
			user.StripeAccountID = nil
			user.ChargesEnabled = false
			user.PayoutsEnabled = false
			user.DetailsSubmitted = false
			if updateErr := s.userRepo.UpdateConnectStatus(ctx, user); updateErr != nil {
				return nil, updateErr
			}
			return user, nil
		}
		return nil, err
	}

	user.ChargesEnabled = status.ChargesEnabled
	user.PayoutsEnabled = status.PayoutsEnabled
	user.DetailsSubmitted = status.DetailsSubmitted
	if status.DetailsSubmitted && user.OnboardedAt == nil {
		now := time.Now()
		user.OnboardedAt = &now
	}

	if err := s.userRepo.UpdateConnectStatus(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
