package stripe

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	portalsession "github.com/stripe/stripe-go/v84/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v84/checkout/session"
)

// CheckoutSessionInput captures the fields required to start a hosted
// checkout for a subscription price.
type CheckoutSessionInput struct {
	CustomerID string
	UserID     string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// NewCheckoutSession creates a provider-hosted checkout session and returns
// its redirect URL. The user id rides along as client reference and
// subscription metadata so webhook events can be tied back to the identity.
func (c *Client) NewCheckoutSession(ctx context.Context, input CheckoutSessionInput) (string, error) {
	if c == nil {
		return "", errAPIKeyRequired
	}
	if strings.TrimSpace(input.PriceID) == "" {
		return "", fmt.Errorf("price id is required")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(input.SuccessURL),
		CancelURL:  stripe.String(input.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(strings.TrimSpace(input.PriceID)),
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	if trimmed := strings.TrimSpace(input.CustomerID); trimmed != "" {
		params.Customer = stripe.String(trimmed)
	}
	if trimmed := strings.TrimSpace(input.UserID); trimmed != "" {
		params.ClientReferenceID = stripe.String(trimmed)
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{MetadataUserIDKey: trimmed},
		}
	}

	created, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return created.URL, nil
}

// NewPortalSession creates a billing-portal session for the customer and
// returns its redirect URL.
func (c *Client) NewPortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	if c == nil {
		return "", errAPIKeyRequired
	}
	if strings.TrimSpace(customerID) == "" {
		return "", fmt.Errorf("customer id is required")
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(strings.TrimSpace(customerID)),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	created, err := portalsession.New(params)
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	return created.URL, nil
}
