package stripe

import (
	"context"
	"fmt"

	stripesdk "github.com/stripe/stripe-go/v78"
)

// CreateExpressAccount provisions a Connect Express account for a merchant.
func (sc *stripeClient) CreateExpressAccount(ctx context.Context, email string) (string, error) {
	params := &stripesdk.AccountParams{
		Type:  stripesdk.String(string(stripesdk.AccountTypeExpress)),
		Email: stripesdk.String(email),
		Capabilities: &stripesdk.AccountCapabilitiesParams{
			CardPayments: &stripesdk.AccountCapabilitiesCardPaymentsParams{
				Requested: stripesdk.Bool(true),
			},
			Transfers: &stripesdk.AccountCapabilitiesTransfersParams{
				Requested: stripesdk.Bool(true),
			},
		},
	}
	params.Context = ctx

	account, err := sc.client.Accounts.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateExpressAccount", err)
		return "", fmt.Errorf("stripe: failed to create express account: %w", err)
	}
	return account.ID, nil
}

// CreateAccountLink returns a one-time onboarding URL for a Connect account.
func (sc *stripeClient) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	params := &stripesdk.AccountLinkParams{
		Account:    stripesdk.String(accountID),
		RefreshURL: stripesdk.String(refreshURL),
		ReturnURL:  stripesdk.String(returnURL),
		Type:       stripesdk.String("account_onboarding"),
	}
	params.Context = ctx

	link, err := sc.client.AccountLinks.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateAccountLink", err)
		return "", fmt.Errorf("stripe: failed to create account link: %w", err)
	}
	return link.URL, nil
}

// GetAccountStatus fetches the Connect flags we mirror locally.
func (sc *stripeClient) GetAccountStatus(ctx context.Context, accountID string) (*AccountStatus, error) {
	params := &stripesdk.AccountParams{}
	params.Context = ctx

	account, err := sc.client.Accounts.GetByID(accountID, params)
	if err != nil {
		logStripeError(sc.log, "GetAccountStatus", err)
		return nil, fmt.Errorf("stripe: failed to get account: %w", err)
	}

	return &AccountStatus{
		ChargesEnabled:   account.ChargesEnabled,
		PayoutsEnabled:   account.PayoutsEnabled,
		DetailsSubmitted: account.DetailsSubmitted,
	}, nil
}

// CreateLoginLink returns an Express dashboard login URL (admin support tool).
func (sc *stripeClient) CreateLoginLink(ctx context.Context, accountID string) (string, error) {
	params := &stripesdk.LoginLinkParams{
		Account: stripesdk.String(accountID),
	}
	params.Context = ctx

	link, err := sc.client.LoginLinks.New(params)
	if err != nil {
		logStripeError(sc.log, "CreateLoginLink", err)
		return "", fmt.Errorf("stripe: failed to create login link: %w", err)
	}
	return link.URL, nil
}
