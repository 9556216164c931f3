package subscriptions

import (
	"time"

	"github.com/otdoges/zapdev-sub005/pkg/enums"
)

// SubscriptionSnapshot is the canonical billing state for one customer. It is
// always rebuilt whole from the provider and written whole to the cache;
// nothing ever patches an individual field.
type SubscriptionSnapshot struct {
	CustomerID         string                   `json:"customer_id"`
	SubscriptionID     string                   `json:"subscription_id,omitempty"`
	PriceID            string                   `json:"price_id,omitempty"`
	Plan               enums.PlanTier           `json:"plan"`
	Status             enums.SubscriptionStatus `json:"status"`
	CancelAtPeriodEnd  bool                     `json:"cancel_at_period_end"`
	CurrentPeriodStart time.Time                `json:"current_period_start"`
	CurrentPeriodEnd   time.Time                `json:"current_period_end"`
	PaymentMethod      *PaymentMethod           `json:"payment_method,omitempty"`
	SyncedAt           time.Time                `json:"synced_at"`
}

// PaymentMethod is the display-only card summary attached to a snapshot.
type PaymentMethod struct {
	Brand string `json:"brand"`
	Last4 string `json:"last4"`
}

// FreeSnapshot is the state for a customer with no subscription at all. The
// period collapses to the observation instant.
func FreeSnapshot(customerID string, now time.Time) SubscriptionSnapshot {
	now = now.UTC()
	return SubscriptionSnapshot{
		CustomerID:         customerID,
		Plan:               enums.PlanTierFree,
		Status:             enums.SubscriptionStatusNone,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now,
		SyncedAt:           now,
	}
}

// HasSubscription reports whether the snapshot reflects a real provider
// subscription rather than the no-subscription default.
func (s SubscriptionSnapshot) HasSubscription() bool {
	return s.SubscriptionID != ""
}
