package billing

import (
	"context"
	"net/http"
	"time"

	"github.com/otdoges/zapdev-sub005/api/middleware"
	"github.com/otdoges/zapdev-sub005/api/responses"
	"github.com/otdoges/zapdev-sub005/api/validators"
	"github.com/otdoges/zapdev-sub005/internal/subscriptions"
	"github.com/otdoges/zapdev-sub005/pkg/enums"
	pkgerrors "github.com/otdoges/zapdev-sub005/pkg/errors"
	"github.com/otdoges/zapdev-sub005/pkg/logger"
)

// SnapshotService reads the customer's current billing state.
type SnapshotService interface {
	GetSnapshot(ctx context.Context, customerID string) (subscriptions.SubscriptionSnapshot, error)
}

// CustomerResolver maps the authenticated user to a billing customer.
type CustomerResolver interface {
	ResolveCustomer(ctx context.Context, userID, email string) (string, error)
}

// SessionService starts hosted checkout and portal sessions.
type SessionService interface {
	StartCheckout(ctx context.Context, userID, email, priceID string) (string, error)
	StartPortal(ctx context.Context, userID, email string) (string, error)
}

type subscriptionResponse struct {
	Plan               string                       `json:"plan"`
	Status             string                       `json:"status"`
	CancelAtPeriodEnd  bool                         `json:"cancel_at_period_end"`
	CurrentPeriodStart time.Time                    `json:"current_period_start"`
	CurrentPeriodEnd   time.Time                    `json:"current_period_end"`
	PaymentMethod      *subscriptions.PaymentMethod `json:"payment_method,omitempty"`
	SyncedAt           time.Time                    `json:"synced_at"`
}

type checkoutRequest struct {
	PriceID string `json:"price_id" validate:"required"`
}

type sessionResponse struct {
	URL string `json:"url"`
}

// SubscriptionFetch returns the caller's current plan and subscription state.
// Provider trouble on this path degrades to the free default instead of
// failing the request.
func SubscriptionFetch(resolver CustomerResolver, snapshots SnapshotService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := middleware.UserIDFromContext(ctx)
		if userID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		customerID, err := resolver.ResolveCustomer(ctx, userID, middleware.EmailFromContext(ctx))
		if err != nil {
			logg.Warn(ctx, "customer resolution failed, serving free default: "+err.Error())
			responses.WriteSuccess(w, toSubscriptionResponse(subscriptions.FreeSnapshot("", time.Now())))
			return
		}

		snapshot, err := snapshots.GetSnapshot(ctx, customerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSubscriptionResponse(snapshot))
	}
}

// CheckoutCreate starts a hosted checkout session for a configured paid price.
func CheckoutCreate(sessions SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := middleware.UserIDFromContext(ctx)
		if userID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		var body checkoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		url, err := sessions.StartCheckout(ctx, userID, middleware.EmailFromContext(ctx), body.PriceID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionResponse{URL: url})
	}
}

// PortalCreate starts a hosted billing portal session.
func PortalCreate(sessions SessionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := middleware.UserIDFromContext(ctx)
		if userID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		url, err := sessions.StartPortal(ctx, userID, middleware.EmailFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, sessionResponse{URL: url})
	}
}

func toSubscriptionResponse(snapshot subscriptions.SubscriptionSnapshot) subscriptionResponse {
	plan := snapshot.Plan
	if plan == "" {
		plan = enums.PlanTierFree
	}
	status := snapshot.Status
	if status == "" {
		status = enums.SubscriptionStatusNone
	}
	return subscriptionResponse{
		Plan:               plan.String(),
		Status:             status.String(),
		CancelAtPeriodEnd:  snapshot.CancelAtPeriodEnd,
		CurrentPeriodStart: snapshot.CurrentPeriodStart,
		CurrentPeriodEnd:   snapshot.CurrentPeriodEnd,
		PaymentMethod:      snapshot.PaymentMethod,
		SyncedAt:           snapshot.SyncedAt,
	}
}
