package stripe

import (
	"fmt"

	stripesdk "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

// VerifyWebhook checks the Stripe-Signature header against the endpoint
// secret and returns the parsed event.
func VerifyWebhook(payload []byte, sigHeader, secret string) (stripesdk.Event, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, secret)
	if err != nil {
		return stripesdk.Event{}, fmt.Errorf("stripe: webhook verification failed: %w", err)
	}
	return event, nil
}
