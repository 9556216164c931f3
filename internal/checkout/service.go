package checkout

import (
	"context"
	"errors"

	"github.com/otdoges/zapdev-sub005/internal/subscriptions"
	"github.com/otdoges/zapdev-sub005/pkg/config"
	"github.com/otdoges/zapdev-sub005/pkg/enums"
	pkgerrors "github.com/otdoges/zapdev-sub005/pkg/errors"
	"github.com/otdoges/zapdev-sub005/pkg/logger"
	pkgstripe "github.com/otdoges/zapdev-sub005/pkg/stripe"
)

// SessionProvider creates hosted billing sessions with the provider.
type SessionProvider interface {
	NewCheckoutSession(ctx context.Context, input pkgstripe.CheckoutSessionInput) (string, error)
	NewPortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// CustomerResolver maps an application user to a billing customer.
type CustomerResolver interface {
	ResolveCustomer(ctx context.Context, userID, email string) (string, error)
}

type ServiceParams struct {
	Provider SessionProvider
	Resolver CustomerResolver
	Mapper   *subscriptions.PlanMapper
	Stripe   config.StripeConfig
	Logger   *logger.Logger
}

// Service starts hosted checkout and billing portal sessions. Both flows
// resolve the customer first so every session lands on the same provider
// customer the webhook and read paths use.
type Service struct {
	provider SessionProvider
	resolver CustomerResolver
	mapper   *subscriptions.PlanMapper
	cfg      config.StripeConfig
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Provider == nil {
		return nil, errors.New("provider is required")
	}
	if params.Resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if params.Mapper == nil {
		return nil, errors.New("mapper is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		provider: params.Provider,
		resolver: params.Resolver,
		mapper:   params.Mapper,
		cfg:      params.Stripe,
		logg:     params.Logger,
	}, nil
}

// StartCheckout returns a hosted checkout URL for one of the configured paid
// prices. Unknown price ids are rejected before any provider call.
func (s *Service) StartCheckout(ctx context.Context, userID, email, priceID string) (string, error) {
	if priceID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "price id is required")
	}
	if s.mapper.MapPrice(priceID) == enums.PlanTierFree {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "price id is not a purchasable plan")
	}

	customerID, err := s.resolver.ResolveCustomer(ctx, userID, email)
	if err != nil {
		return "", err
	}
	ctx = s.logg.WithCustomerID(ctx, customerID)

	url, err := s.provider.NewCheckoutSession(ctx, pkgstripe.CheckoutSessionInput{
		CustomerID: customerID,
		UserID:     userID,
		PriceID:    priceID,
		SuccessURL: s.cfg.CheckoutSuccessURL,
		CancelURL:  s.cfg.CheckoutCancelURL,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating checkout session")
	}
	s.logg.Info(ctx, "checkout session created")
	return url, nil
}

// StartPortal returns a hosted billing portal URL for the user's customer.
func (s *Service) StartPortal(ctx context.Context, userID, email string) (string, error) {
	customerID, err := s.resolver.ResolveCustomer(ctx, userID, email)
	if err != nil {
		return "", err
	}
	ctx = s.logg.WithCustomerID(ctx, customerID)

	url, err := s.provider.NewPortalSession(ctx, customerID, s.cfg.PortalReturnURL)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating portal session")
	}
	s.logg.Info(ctx, "portal session created")
	return url, nil
}
