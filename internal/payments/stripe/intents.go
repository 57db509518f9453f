package stripe

import (
	"context"
	"fmt"

	stripesdk "github.com/stripe/stripe-go/v78"
)

// CreatePaymentIntent creates a destination charge: funds settle to the
// merchant's connected account, the platform fee stays with us.
func (sc *stripeClient) CreatePaymentIntent(ctx context.Context, p IntentParams) (string, string, error) {
	params := &stripesdk.PaymentIntentParams{
		Amount:   stripesdk.Int64(p.AmountCents),
		Currency: stripesdk.String(p.Currency),
		AutomaticPaymentMethods: &stripesdk.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripesdk.Bool(true),
		},
	}
	params.Context = ctx

	if p.PlatformFeeCents > 0 {
		params.ApplicationFeeAmount = stripesdk.Int64(p.PlatformFeeCents)
	}
	if p.ConnectedAccountID != "" {
		params.TransferData = &stripesdk.PaymentIntentTransferDataParams{
			Destination: stripesdk.String(p.ConnectedAccountID),
		}
	}
	if p.Description != "" {
		params.Description = stripesdk.String(p.Description)
	}
	params.AddMetadata("invoice_id", p.InvoiceID)
	params.AddMetadata("organization_id", p.OrganizationID)

	intent, err := sc.client.PaymentIntents.New(params)
	if err != nil {
		logStripeError(sc.log, "CreatePaymentIntent", err)
		return "", "", fmt.Errorf("stripe: failed to create payment intent: %w", err)
	}

	sc.log.Info("stripe payment intent created",
		"intent_id", intent.ID,
		"invoice_id", p.InvoiceID,
		"amount_cents", p.AmountCents,
	)
	return intent.ID, intent.ClientSecret, nil
}
