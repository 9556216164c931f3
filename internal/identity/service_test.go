package identity

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/otdoges/zapdev-sub005/pkg/db/models"
	pkgerrors "github.com/otdoges/zapdev-sub005/pkg/errors"
	"github.com/otdoges/zapdev-sub005/pkg/logger"
	stripe "github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"
)

type stubProvider struct {
	searchFn func(ctx context.Context, userID string) (*stripe.Customer, error)
	listFn   func(ctx context.Context, email string) (*stripe.Customer, error)
	createFn func(ctx context.Context, userID, email string) (*stripe.Customer, error)
	attachFn func(ctx context.Context, customerID, userID string) error

	searchCalls int
	createCalls int
	attachCalls int
}

func (s *stubProvider) SearchCustomerByUserID(ctx context.Context, userID string) (*stripe.Customer, error) {
	s.searchCalls++
	if s.searchFn != nil {
		return s.searchFn(ctx, userID)
	}
	return nil, nil
}

func (s *stubProvider) ListCustomersByEmail(ctx context.Context, email string) (*stripe.Customer, error) {
	if s.listFn != nil {
		return s.listFn(ctx, email)
	}
	return nil, nil
}

func (s *stubProvider) CreateCustomer(ctx context.Context, userID, email string) (*stripe.Customer, error) {
	s.createCalls++
	if s.createFn != nil {
		return s.createFn(ctx, userID, email)
	}
	return nil, errors.New("create not configured")
}

func (s *stubProvider) AttachUserID(ctx context.Context, customerID, userID string) error {
	s.attachCalls++
	if s.attachFn != nil {
		return s.attachFn(ctx, customerID, userID)
	}
	return nil
}

type stubLinkRepo struct {
	links map[string]*models.CustomerLink
}

func newStubLinkRepo() *stubLinkRepo {
	return &stubLinkRepo{links: map[string]*models.CustomerLink{}}
}

func (s *stubLinkRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubLinkRepo) FindLinkByUserID(ctx context.Context, userID string) (*models.CustomerLink, error) {
	return s.links[userID], nil
}

func (s *stubLinkRepo) FindLinkByCustomerID(ctx context.Context, customerID string) (*models.CustomerLink, error) {
	for _, link := range s.links {
		if link.CustomerID == customerID {
			return link, nil
		}
	}
	return nil, nil
}

func (s *stubLinkRepo) UpsertLink(ctx context.Context, link *models.CustomerLink) error {
	s.links[link.UserID] = link
	return nil
}

func (s *stubLinkRepo) ListLinks(ctx context.Context, offset, limit int) ([]models.CustomerLink, error) {
	return nil, nil
}

func (s *stubLinkRepo) CountLinks(ctx context.Context) (int64, error) {
	return int64(len(s.links)), nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T, provider CustomerProvider, repo Repository) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Provider: provider, Repo: repo, Logger: testLogger()})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestResolveCustomerRejectsInvalidInput(t *testing.T) {
	svc := newTestService(t, &stubProvider{}, newStubLinkRepo())

	cases := []struct {
		name   string
		userID string
		email  string
	}{
		{name: "empty user id", userID: "", email: ""},
		{name: "overlong user id", userID: string(make([]byte, 200)), email: ""},
		{name: "shell metacharacters", userID: "user;drop", email: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ResolveCustomer(context.Background(), tc.userID, tc.email)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code, got %v", err)
			}
		})
	}
}

func TestResolveCustomerMalformedEmailTreatedAsAbsent(t *testing.T) {
	var listCalls int
	var createdWith string
	provider := &stubProvider{
		listFn: func(ctx context.Context, email string) (*stripe.Customer, error) {
			listCalls++
			return nil, nil
		},
		createFn: func(ctx context.Context, userID, email string) (*stripe.Customer, error) {
			createdWith = email
			return &stripe.Customer{ID: "cus_new"}, nil
		},
	}
	svc := newTestService(t, provider, newStubLinkRepo())

	got, err := svc.ResolveCustomer(context.Background(), "user-1", "not-an-email")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "cus_new" {
		t.Fatalf("expected cus_new, got %q", got)
	}
	if listCalls != 0 {
		t.Fatalf("expected no email lookup for malformed email, got %d", listCalls)
	}
	if createdWith != "" {
		t.Fatalf("expected customer created without email, got %q", createdWith)
	}
}

func TestResolveCustomerUsesLocalLinkFirst(t *testing.T) {
	repo := newStubLinkRepo()
	repo.links["user-1"] = &models.CustomerLink{UserID: "user-1", CustomerID: "cus_local"}
	provider := &stubProvider{}
	svc := newTestService(t, provider, repo)

	got, err := svc.ResolveCustomer(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "cus_local" {
		t.Fatalf("expected cus_local, got %q", got)
	}
	if provider.searchCalls != 0 {
		t.Fatalf("expected no provider calls, got %d searches", provider.searchCalls)
	}
}

func TestResolveCustomerFindsByMetadata(t *testing.T) {
	repo := newStubLinkRepo()
	provider := &stubProvider{
		searchFn: func(ctx context.Context, userID string) (*stripe.Customer, error) {
			return &stripe.Customer{ID: "cus_meta"}, nil
		},
	}
	svc := newTestService(t, provider, repo)

	got, err := svc.ResolveCustomer(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "cus_meta" {
		t.Fatalf("expected cus_meta, got %q", got)
	}
	if repo.links["user-1"] == nil || repo.links["user-1"].CustomerID != "cus_meta" {
		t.Fatal("expected link persisted for metadata match")
	}
}

func TestResolveCustomerEmailMatchAttachesUserID(t *testing.T) {
	provider := &stubProvider{
		listFn: func(ctx context.Context, email string) (*stripe.Customer, error) {
			return &stripe.Customer{ID: "cus_email", Email: email}, nil
		},
	}
	svc := newTestService(t, provider, newStubLinkRepo())

	got, err := svc.ResolveCustomer(context.Background(), "user-1", "user@example.com")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "cus_email" {
		t.Fatalf("expected cus_email, got %q", got)
	}
	if provider.attachCalls != 1 {
		t.Fatalf("expected one attach call, got %d", provider.attachCalls)
	}
}

func TestResolveCustomerEmailAttachFailureIsNonFatal(t *testing.T) {
	provider := &stubProvider{
		listFn: func(ctx context.Context, email string) (*stripe.Customer, error) {
			return &stripe.Customer{ID: "cus_email"}, nil
		},
		attachFn: func(ctx context.Context, customerID, userID string) error {
			return errors.New("metadata write rejected")
		},
	}
	svc := newTestService(t, provider, newStubLinkRepo())

	got, err := svc.ResolveCustomer(context.Background(), "user-1", "user@example.com")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "cus_email" {
		t.Fatalf("expected cus_email despite attach failure, got %q", got)
	}
}

func TestResolveCustomerCreatesWhenMissing(t *testing.T) {
	provider := &stubProvider{
		createFn: func(ctx context.Context, userID, email string) (*stripe.Customer, error) {
			return &stripe.Customer{ID: "cus_new", Email: email}, nil
		},
	}
	repo := newStubLinkRepo()
	svc := newTestService(t, provider, repo)

	got, err := svc.ResolveCustomer(context.Background(), "user-1", "user@example.com")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "cus_new" {
		t.Fatalf("expected cus_new, got %q", got)
	}
	if provider.createCalls != 1 {
		t.Fatalf("expected one create call, got %d", provider.createCalls)
	}
	if repo.links["user-1"] == nil {
		t.Fatal("expected link persisted after create")
	}
}

func TestResolveCustomerCreateFailureRetriesSearch(t *testing.T) {
	provider := &stubProvider{
		createFn: func(ctx context.Context, userID, email string) (*stripe.Customer, error) {
			return nil, errors.New("conflict")
		},
	}
	searches := 0
	provider.searchFn = func(ctx context.Context, userID string) (*stripe.Customer, error) {
		searches++
		if searches > 1 {
			return &stripe.Customer{ID: "cus_race"}, nil
		}
		return nil, nil
	}
	svc := newTestService(t, provider, newStubLinkRepo())

	got, err := svc.ResolveCustomer(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "cus_race" {
		t.Fatalf("expected cus_race from retry search, got %q", got)
	}
}

func TestResolveCustomerCreateFailurePropagates(t *testing.T) {
	provider := &stubProvider{
		createFn: func(ctx context.Context, userID, email string) (*stripe.Customer, error) {
			return nil, errors.New("provider down")
		},
	}
	svc := newTestService(t, provider, newStubLinkRepo())

	_, err := svc.ResolveCustomer(context.Background(), "user-1", "")
	if err == nil {
		t.Fatal("expected error when create fails and retry finds nothing")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %v", err)
	}
}

func TestResolveCustomerSearchErrorFallsThroughToCreate(t *testing.T) {
	provider := &stubProvider{
		searchFn: func(ctx context.Context, userID string) (*stripe.Customer, error) {
			return nil, errors.New("search unavailable")
		},
		createFn: func(ctx context.Context, userID, email string) (*stripe.Customer, error) {
			return &stripe.Customer{ID: "cus_new"}, nil
		},
	}
	svc := newTestService(t, provider, newStubLinkRepo())

	got, err := svc.ResolveCustomer(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "cus_new" {
		t.Fatalf("expected cus_new, got %q", got)
	}
}
