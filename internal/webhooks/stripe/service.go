package stripewebhook

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/otdoges/zapdev-sub005/internal/subscriptions"
	"github.com/otdoges/zapdev-sub005/pkg/db/models"
	pkgerrors "github.com/otdoges/zapdev-sub005/pkg/errors"
	"github.com/otdoges/zapdev-sub005/pkg/logger"
	"github.com/otdoges/zapdev-sub005/pkg/metrics"
	"github.com/stripe/stripe-go/v84"
)

// Scope used for the idempotency keys of this webhook surface.
const IdempotencyScope = "stripe-webhook"

// allowedEventTypes is the set of provider events that can change a
// customer's billing state. Everything else is discarded before any work
// happens.
var allowedEventTypes = map[stripe.EventType]struct{}{
	stripe.EventTypeCustomerSubscriptionCreated: {},
	stripe.EventTypeCustomerSubscriptionUpdated: {},
	stripe.EventTypeCustomerSubscriptionDeleted: {},
	stripe.EventTypeCustomerSubscriptionPaused:  {},
	stripe.EventTypeCustomerSubscriptionResumed: {},
	stripe.EventTypeInvoicePaid:                 {},
	stripe.EventTypeInvoicePaymentFailed:        {},
	stripe.EventTypePaymentIntentSucceeded:      {},
	stripe.EventTypePaymentIntentPaymentFailed:  {},
}

// Resyncer rebuilds a customer's snapshot from the provider.
type Resyncer interface {
	Resync(ctx context.Context, customerID string) (subscriptions.SubscriptionSnapshot, error)
}

// SubscriptionGetter fetches one subscription by provider id. Used to recover
// the customer when the event payload omits it.
type SubscriptionGetter interface {
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
}

type ServiceParams struct {
	Guard    *IdempotencyGuard
	Syncer   Resyncer
	Provider SubscriptionGetter
	EventLog EventLog
	Metrics  *metrics.WebhookMetrics
	Logger   *logger.Logger
}

// Service processes verified webhook events. The event payload is only
// trusted for routing; the actual billing state always comes from a fresh
// provider fetch, so replays and out-of-order deliveries converge on the
// same snapshot.
type Service struct {
	guard    *IdempotencyGuard
	syncer   Resyncer
	provider SubscriptionGetter
	eventLog EventLog
	metrics  *metrics.WebhookMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Guard == nil {
		return nil, errors.New("idempotency guard is required")
	}
	if params.Syncer == nil {
		return nil, errors.New("syncer is required")
	}
	if params.EventLog == nil {
		return nil, errors.New("event log is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		guard:    params.Guard,
		syncer:   params.Syncer,
		provider: params.Provider,
		eventLog: params.EventLog,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// HandleEvent routes one verified event. A returned error means the sync did
// not happen and the delivery must be retried by the provider; the
// idempotency mark is cleared first so the retry is not swallowed.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) (models.WebhookEventOutcome, error) {
	if event == nil || event.ID == "" {
		return models.WebhookEventOutcomeIgnored, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	eventType := string(event.Type)
	ctx = s.logg.WithEventID(ctx, event.ID)

	if _, ok := allowedEventTypes[event.Type]; !ok {
		s.metrics.IncIgnored(eventType)
		return models.WebhookEventOutcomeIgnored, nil
	}
	s.metrics.IncReceived(eventType)

	duplicate, err := s.guard.CheckAndMark(ctx, event.ID)
	if err != nil {
		return models.WebhookEventOutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking event idempotency")
	}
	if duplicate {
		s.metrics.IncIgnored(eventType)
		s.logg.Info(ctx, "duplicate webhook delivery skipped")
		return models.WebhookEventOutcomeIgnored, nil
	}

	customerID := ""
	if event.Data != nil {
		customerID = event.GetObjectValue("customer")
		if customerID == "" {
			customerID = s.customerFromProvider(ctx, event)
		}
	}
	if customerID == "" {
		s.metrics.IncIgnored(eventType)
		s.record(ctx, event, "", models.WebhookEventOutcomeIgnored, "event carries no customer id")
		return models.WebhookEventOutcomeIgnored, nil
	}
	ctx = s.logg.WithCustomerID(ctx, customerID)

	started := time.Now()
	if _, err := s.syncer.Resync(ctx, customerID); err != nil {
		// clear the mark so the provider's redelivery gets another attempt
		if delErr := s.guard.Delete(ctx, event.ID); delErr != nil {
			s.logg.Warn(ctx, "clearing idempotency mark failed: "+delErr.Error())
		}
		s.metrics.IncFailed(eventType)
		s.record(ctx, event, customerID, models.WebhookEventOutcomeFailed, err.Error())
		return models.WebhookEventOutcomeFailed, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resyncing subscription state")
	}

	s.metrics.IncSynced(eventType)
	s.metrics.ObserveSyncDuration(eventType, time.Since(started))
	s.record(ctx, event, customerID, models.WebhookEventOutcomeSynced, "")
	return models.WebhookEventOutcomeSynced, nil
}

// customerFromProvider recovers the customer id for events whose payload
// names a subscription but omits the customer field.
func (s *Service) customerFromProvider(ctx context.Context, event *stripe.Event) string {
	if s.provider == nil {
		return ""
	}
	subID := event.GetObjectValue("subscription")
	if subID == "" {
		if id := event.GetObjectValue("id"); strings.HasPrefix(id, "sub_") {
			subID = id
		}
	}
	if subID == "" {
		return ""
	}
	sub, err := s.provider.GetSubscription(ctx, subID)
	if err != nil {
		s.logg.Warn(ctx, "recovering customer from subscription failed: "+err.Error())
		return ""
	}
	if sub == nil || sub.Customer == nil {
		return ""
	}
	return sub.Customer.ID
}

// record writes the audit row; the sync result never depends on it.
func (s *Service) record(ctx context.Context, event *stripe.Event, customerID string, outcome models.WebhookEventOutcome, detail string) {
	row := &models.WebhookEvent{
		EventID: event.ID,
		Type:    string(event.Type),
		Outcome: outcome,
	}
	if customerID != "" {
		row.CustomerID = &customerID
	}
	if detail != "" {
		row.Detail = &detail
	}
	if err := s.eventLog.Record(ctx, row); err != nil {
		s.logg.Warn(ctx, "recording webhook event failed: "+err.Error())
	}
}
