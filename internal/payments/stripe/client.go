// Package stripe wraps the Stripe SDK behind the narrow surface the rest of
// the service needs: destination-charge payment intents, Connect onboarding,
// subscription checkout/portal sessions, and webhook verification.
package stripe

import (
	"context"
	"errors"

	stripesdk "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/bildout/bildout-api/config"
	"github.com/bildout/bildout-api/pkg/logger"
)

// IntentParams carries everything needed to create one payment intent
type IntentParams struct {
	AmountCents        int64
	Currency           string
	PlatformFeeCents   int64
	ConnectedAccountID string
	InvoiceID          string
	OrganizationID     string
	Description        string
}

// AccountStatus is the subset of Connect account state we persist locally
type AccountStatus struct {
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
}

// Client defines the Stripe operations used by the service layer
type Client interface {
	CreatePaymentIntent(ctx context.Context, params IntentParams) (id, clientSecret string, err error)

	CreateCustomer(ctx context.Context, name, email, organizationID string) (string, error)
	CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)

	CreateExpressAccount(ctx context.Context, email string) (string, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	GetAccountStatus(ctx context.Context, accountID string) (*AccountStatus, error)
	CreateLoginLink(ctx context.Context, accountID string) (string, error)

	PriceIDForPlan(plan string) string
	PlanForPriceID(priceID string) string
}

type stripeClient struct {
	client *client.API
	cfg    config.StripeConfig
	log    *logger.Logger
}

// NewClient creates a Stripe SDK client keyed by the platform secret key.
func NewClient(cfg config.StripeConfig, log *logger.Logger) Client {
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)
	return &stripeClient{
		client: sc,
		cfg:    cfg,
		log:    log,
	}
}

func (sc *stripeClient) PriceIDForPlan(plan string) string {
	switch plan {
	case "pro":
		return sc.cfg.ProPriceID
	case "agency":
		return sc.cfg.AgencyPriceID
	}
	return ""
}

// PlanForPriceID is the inverse of PriceIDForPlan, used when a subscription
// webhook only tells us the price the customer pays.
func (sc *stripeClient) PlanForPriceID(priceID string) string {
	switch priceID {
	case sc.cfg.ProPriceID:
		return "pro"
	case sc.cfg.AgencyPriceID:
		return "agency"
	}
	return ""
}

// IsAccountMissing reports whether err means the connected account no longer
// exists on the Stripe side, so callers can clear the stale local reference.
func IsAccountMissing(err error) bool {
	var stripeErr *stripesdk.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return stripeErr.Code == stripesdk.ErrorCodeAccountInvalid ||
		stripeErr.Code == stripesdk.ErrorCodeResourceMissing
}

func logStripeError(log *logger.Logger, op string, err error) {
	if stripeErr, ok := err.(*stripesdk.Error); ok {
		log.Error(err, "stripe call failed",
			"op", op,
			"stripe_code", string(stripeErr.Code),
			"stripe_type", string(stripeErr.Type),
		)
		return
	}
	log.Error(err, "stripe call failed", "op", op)
}
