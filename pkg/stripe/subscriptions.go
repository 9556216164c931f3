package stripe

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/subscription"
)

// ListSubscriptions returns every subscription for the customer regardless of
// status. Status filtering and tie-breaking happen in the caller: a customer
// can hold a stale canceled subscription next to a live one, and the
// provider's default ordering is not guaranteed.
func (c *Client) ListSubscriptions(ctx context.Context, customerID string) ([]*stripe.Subscription, error) {
	if c == nil {
		return nil, errAPIKeyRequired
	}
	trimmed := strings.TrimSpace(customerID)
	if trimmed == "" {
		return nil, fmt.Errorf("customer id is required")
	}

	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(trimmed),
		Status:   stripe.String("all"),
	}
	params.Context = ctx
	params.AddExpand("data.default_payment_method")

	var subs []*stripe.Subscription
	iter := subscription.List(params)
	for iter.Next() {
		subs = append(subs, iter.Subscription())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

// GetSubscription fetches a single subscription by provider id.
func (c *Client) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	if c == nil {
		return nil, errAPIKeyRequired
	}
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	params.AddExpand("default_payment_method")

	sub, err := subscription.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}
