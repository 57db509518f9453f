package stripe

import (
	"context"
	"fmt"

	stripesdk "github.com/stripe/stripe-go/v78"
)

const metadataOrganizationIDKey = "organization_id"

// CreateCustomer creates the Stripe customer that carries the merchant's
// platform subscription.
func (sc *stripeClient) CreateCustomer(ctx context.Context, name, email, organizationID string) (string, error) {
	params := &stripesdk.CustomerParams{
		Name:  stripesdk.String(name),
		Email: stripesdk.String(email),
		Metadata: map[string]string{
			metadataOrganizationIDKey: organizationID,
		},
	}
	params.Context = ctx

	cus, err := sc.client.Customers.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateCustomer", err)
		return "", fmt.Errorf("stripe: failed to create customer: %w", err)
	}

	sc.log.Info("stripe customer created", "customer_id", cus.ID, "organization_id", organizationID)
	return cus.ID, nil
}

// CreateCheckoutSession starts a subscription checkout for a plan upgrade.
func (sc *stripeClient) CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (string, error) {
	params := &stripesdk.CheckoutSessionParams{
		Customer: stripesdk.String(customerID),
		Mode:     stripesdk.String(string(stripesdk.CheckoutSessionModeSubscription)),
		LineItems: []*stripesdk.CheckoutSessionLineItemParams{
			{
				Price:    stripesdk.String(priceID),
				Quantity: stripesdk.Int64(1),
			},
		},
		SuccessURL: stripesdk.String(successURL),
		CancelURL:  stripesdk.String(cancelURL),
	}
	params.Context = ctx

	session, err := sc.client.CheckoutSessions.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateCheckoutSession", err)
		return "", fmt.Errorf("stripe: failed to create checkout session: %w", err)
	}
	return session.URL, nil
}

// CreatePortalSession opens the Stripe billing portal for self-serve
// subscription management.
func (sc *stripeClient) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripesdk.BillingPortalSessionParams{
		Customer:  stripesdk.String(customerID),
		ReturnURL: stripesdk.String(returnURL),
	}
	params.Context = ctx

	session, err := sc.client.BillingPortalSessions.New(params)
	if err != nil {
		logStripeError(sc.log, "CreatePortalSession", err)
		return "", fmt.Errorf("stripe: failed to create portal session: %w", err)
	}
	return session.URL, nil
}
