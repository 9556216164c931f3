package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/otdoges/zapdev-sub005/pkg/enums"
	pkgerrors "github.com/otdoges/zapdev-sub005/pkg/errors"
	"github.com/otdoges/zapdev-sub005/pkg/logger"
	stripe "github.com/stripe/stripe-go/v84"
)

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Provider SubscriptionProvider
	Mapper   *PlanMapper
	Cache    *SnapshotCache
	Logger   *logger.Logger
	Now      func() time.Time
}

// Service keeps the cached subscription snapshot in line with the provider.
// The provider is the source of truth; every sync rebuilds the snapshot from a
// fresh listing rather than trusting whatever event or cache state triggered
// it.
type Service struct {
	provider SubscriptionProvider
	mapper   *PlanMapper
	cache    *SnapshotCache
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds a subscription service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Provider == nil {
		return nil, errors.New("provider is required")
	}
	if params.Mapper == nil {
		return nil, errors.New("mapper is required")
	}
	if params.Cache == nil {
		return nil, errors.New("cache is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		provider: params.Provider,
		mapper:   params.Mapper,
		cache:    params.Cache,
		logg:     params.Logger,
		now:      now,
	}, nil
}

// Resync rebuilds the customer's snapshot from the provider and overwrites the
// cached copy. Both the provider listing and the cache write must succeed;
// callers on the webhook path surface the failure so the provider redelivers.
func (s *Service) Resync(ctx context.Context, customerID string) (SubscriptionSnapshot, error) {
	if customerID == "" {
		return SubscriptionSnapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	ctx = s.logg.WithCustomerID(ctx, customerID)

	subs, err := s.provider.ListSubscriptions(ctx, customerID)
	if err != nil {
		return SubscriptionSnapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing subscriptions")
	}

	snapshot := s.buildSnapshot(customerID, SelectCurrent(subs))
	if err := s.cache.Put(ctx, snapshot); err != nil {
		return SubscriptionSnapshot{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "caching snapshot")
	}
	return snapshot, nil
}

// GetSnapshot returns the cached snapshot, resyncing on a miss. When the
// provider is unreachable the caller gets the free default so reads keep
// working; the degraded value is never cached.
func (s *Service) GetSnapshot(ctx context.Context, customerID string) (SubscriptionSnapshot, error) {
	if customerID == "" {
		return SubscriptionSnapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	ctx = s.logg.WithCustomerID(ctx, customerID)

	snapshot, ok, err := s.cache.Get(ctx, customerID)
	if err != nil {
		s.logg.Warn(ctx, "snapshot cache read failed: "+err.Error())
	} else if ok {
		return snapshot, nil
	}

	snapshot, err = s.Resync(ctx, customerID)
	if err != nil {
		s.logg.Error(ctx, "snapshot resync failed, serving free default", err)
		return FreeSnapshot(customerID, s.now()), nil
	}
	return snapshot, nil
}

func (s *Service) buildSnapshot(customerID string, sub *stripe.Subscription) SubscriptionSnapshot {
	now := s.now().UTC()
	if sub == nil {
		return FreeSnapshot(customerID, now)
	}

	plan, priceID := s.mapper.MapSubscription(sub)
	return SubscriptionSnapshot{
		CustomerID:         customerID,
		SubscriptionID:     sub.ID,
		PriceID:            priceID,
		Plan:               plan,
		Status:             enums.SubscriptionStatus(sub.Status),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CurrentPeriodStart: time.Unix(periodStart(sub), 0).UTC(),
		CurrentPeriodEnd:   time.Unix(periodEnd(sub), 0).UTC(),
		PaymentMethod:      paymentMethod(sub),
		SyncedAt:           now,
	}
}

// paymentMethod extracts the card summary from an expanded
// default_payment_method; non-card methods carry no display summary.
func paymentMethod(sub *stripe.Subscription) *PaymentMethod {
	pm := sub.DefaultPaymentMethod
	if pm == nil || pm.Card == nil {
		return nil
	}
	return &PaymentMethod{
		Brand: string(pm.Card.Brand),
		Last4: pm.Card.Last4,
	}
}
