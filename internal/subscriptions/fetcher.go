package subscriptions

import (
	"context"

	stripe "github.com/stripe/stripe-go/v84"
)

// SubscriptionProvider lists a customer's subscriptions across every status.
type SubscriptionProvider interface {
	ListSubscriptions(ctx context.Context, customerID string) ([]*stripe.Subscription, error)
}

// SelectCurrent picks the subscription that represents the customer's billing
// state. Active and trialing subscriptions are preferred, with the latest
// current period start winning among them; when none qualify, the most
// recently created subscription of any status is reported so a lapsed state
// stays visible. Returns nil when the customer has no subscriptions.
func SelectCurrent(subs []*stripe.Subscription) *stripe.Subscription {
	var best *stripe.Subscription
	for _, sub := range subs {
		if sub == nil || !isEntitledStatus(sub.Status) {
			continue
		}
		if best == nil || periodStart(sub) > periodStart(best) {
			best = sub
		}
	}
	if best != nil {
		return best
	}

	for _, sub := range subs {
		if sub == nil {
			continue
		}
		if best == nil || sub.Created > best.Created {
			best = sub
		}
	}
	return best
}

// isEntitledStatus reports whether the status grants access right now. Paused
// subscriptions keep their plan mapping but lose the preference here, so a
// parallel active subscription always wins.
func isEntitledStatus(status stripe.SubscriptionStatus) bool {
	return status == stripe.SubscriptionStatusActive || status == stripe.SubscriptionStatusTrialing
}

// periodStart reads the billing period start, which lives on the items in
// current API versions.
func periodStart(sub *stripe.Subscription) int64 {
	if sub == nil || sub.Items == nil {
		return 0
	}
	var latest int64
	for _, item := range sub.Items.Data {
		if item != nil && item.CurrentPeriodStart > latest {
			latest = item.CurrentPeriodStart
		}
	}
	return latest
}

func periodEnd(sub *stripe.Subscription) int64 {
	if sub == nil || sub.Items == nil {
		return 0
	}
	var latest int64
	for _, item := range sub.Items.Data {
		if item != nil && item.CurrentPeriodEnd > latest {
			latest = item.CurrentPeriodEnd
		}
	}
	return latest
}
