package identity

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/otdoges/zapdev-sub005/pkg/db/models"
	pkgerrors "github.com/otdoges/zapdev-sub005/pkg/errors"
	"github.com/otdoges/zapdev-sub005/pkg/logger"
	stripe "github.com/stripe/stripe-go/v84"
)

const maxUserIDLength = 128

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:@|-]*$`)

// CustomerProvider is the billing-provider surface the resolver needs.
type CustomerProvider interface {
	SearchCustomerByUserID(ctx context.Context, userID string) (*stripe.Customer, error)
	ListCustomersByEmail(ctx context.Context, email string) (*stripe.Customer, error)
	CreateCustomer(ctx context.Context, userID, email string) (*stripe.Customer, error)
	AttachUserID(ctx context.Context, customerID, userID string) error
}

// ServiceParams groups dependencies for the identity service.
type ServiceParams struct {
	Provider CustomerProvider
	Repo     Repository
	Logger   *logger.Logger
}

// Service resolves application users to billing-provider customers. Provider
// metadata is the source of truth for the user-to-customer association; the
// local link table is a cache on top of it.
type Service struct {
	provider CustomerProvider
	repo     Repository
	logg     *logger.Logger
	validate *validator.Validate
}

// NewService builds an identity service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Provider == nil {
		return nil, errors.New("provider is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		provider: params.Provider,
		repo:     params.Repo,
		logg:     params.Logger,
		validate: validator.New(),
	}, nil
}

// ResolveCustomer returns the billing customer id for the given user, creating
// the customer when none exists. Resolution order: local link, provider
// metadata search, provider email match, idempotent create. Two concurrent
// calls for the same user converge on one customer because creation carries a
// deterministic idempotency key.
func (s *Service) ResolveCustomer(ctx context.Context, userID, email string) (string, error) {
	userID = strings.TrimSpace(userID)
	if err := s.validateUserID(userID); err != nil {
		return "", err
	}
	ctx = s.logg.WithUserID(ctx, userID)
	email = s.sanitizeEmail(ctx, email)

	if link, err := s.repo.FindLinkByUserID(ctx, userID); err != nil {
		// link lookup trouble never blocks resolution
		s.logg.Warn(ctx, "customer link lookup failed: "+err.Error())
	} else if link != nil {
		return link.CustomerID, nil
	}

	if cus := s.searchByMetadata(ctx, userID); cus != nil {
		s.saveLink(ctx, userID, cus)
		return cus.ID, nil
	}

	if email != "" {
		if cus := s.matchByEmail(ctx, userID, email); cus != nil {
			s.saveLink(ctx, userID, cus)
			return cus.ID, nil
		}
	}

	cus, err := s.provider.CreateCustomer(ctx, userID, email)
	if err != nil {
		// a concurrent resolve may have created the customer in between;
		// one more metadata search settles it
		if retry := s.searchByMetadata(ctx, userID); retry != nil {
			s.saveLink(ctx, userID, retry)
			return retry.ID, nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating billing customer")
	}

	s.saveLink(ctx, userID, cus)
	return cus.ID, nil
}

func (s *Service) validateUserID(userID string) error {
	if userID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if len(userID) > maxUserIDLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id exceeds maximum length")
	}
	if !userIDPattern.MatchString(userID) {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id contains unsupported characters")
	}
	return nil
}

// sanitizeEmail drops an email that fails RFC-shaped validation. The claim is
// an optional hint, so a malformed value is treated as absent rather than
// failing resolution.
func (s *Service) sanitizeEmail(ctx context.Context, email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}
	if err := s.validate.Var(email, "email"); err != nil {
		s.logg.Warn(ctx, "email claim is malformed, resolving without it")
		return ""
	}
	return email
}

func (s *Service) searchByMetadata(ctx context.Context, userID string) *stripe.Customer {
	cus, err := s.provider.SearchCustomerByUserID(ctx, userID)
	if err != nil {
		s.logg.Warn(ctx, "customer metadata search failed: "+err.Error())
		return nil
	}
	return cus
}

func (s *Service) matchByEmail(ctx context.Context, userID, email string) *stripe.Customer {
	cus, err := s.provider.ListCustomersByEmail(ctx, email)
	if err != nil {
		s.logg.Warn(ctx, "customer email lookup failed: "+err.Error())
		return nil
	}
	if cus == nil {
		return nil
	}
	// tag the customer so the next resolve hits the metadata search directly
	if err := s.provider.AttachUserID(ctx, cus.ID, userID); err != nil {
		s.logg.Warn(s.logg.WithCustomerID(ctx, cus.ID), "attaching user id to customer failed: "+err.Error())
	}
	return cus
}

func (s *Service) saveLink(ctx context.Context, userID string, cus *stripe.Customer) {
	link := &models.CustomerLink{
		UserID:     userID,
		CustomerID: cus.ID,
	}
	if cus.Email != "" {
		email := cus.Email
		link.Email = &email
	}
	if err := s.repo.UpsertLink(ctx, link); err != nil {
		s.logg.Warn(s.logg.WithCustomerID(ctx, cus.ID), "persisting customer link failed: "+err.Error())
	}
}
