package reconciler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/otdoges/zapdev-sub005/internal/identity"
	"github.com/otdoges/zapdev-sub005/internal/subscriptions"
	"github.com/otdoges/zapdev-sub005/pkg/db/models"
	"github.com/otdoges/zapdev-sub005/pkg/logger"
	"gorm.io/gorm"
)

type sliceLinkRepo struct {
	links []models.CustomerLink
}

func (s *sliceLinkRepo) WithTx(tx *gorm.DB) identity.Repository { return s }

func (s *sliceLinkRepo) FindLinkByUserID(ctx context.Context, userID string) (*models.CustomerLink, error) {
	return nil, nil
}

func (s *sliceLinkRepo) FindLinkByCustomerID(ctx context.Context, customerID string) (*models.CustomerLink, error) {
	return nil, nil
}

func (s *sliceLinkRepo) UpsertLink(ctx context.Context, link *models.CustomerLink) error {
	return nil
}

func (s *sliceLinkRepo) ListLinks(ctx context.Context, offset, limit int) ([]models.CustomerLink, error) {
	if offset >= len(s.links) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.links) {
		end = len(s.links)
	}
	return s.links[offset:end], nil
}

func (s *sliceLinkRepo) CountLinks(ctx context.Context) (int64, error) {
	return int64(len(s.links)), nil
}

type countingSyncer struct {
	failFor    map[string]error
	subscribed map[string]bool
	calls      []string
}

func (c *countingSyncer) Resync(ctx context.Context, customerID string) (subscriptions.SubscriptionSnapshot, error) {
	c.calls = append(c.calls, customerID)
	if err := c.failFor[customerID]; err != nil {
		return subscriptions.SubscriptionSnapshot{}, err
	}
	snapshot := subscriptions.SubscriptionSnapshot{CustomerID: customerID}
	if c.subscribed[customerID] {
		snapshot.SubscriptionID = "sub_" + customerID
	}
	return snapshot, nil
}

func testJobLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestSnapshotResyncJobWalksAllLinks(t *testing.T) {
	links := make([]models.CustomerLink, 0, 5)
	for _, id := range []string{"cus_a", "cus_b", "cus_c", "cus_d", "cus_e"} {
		links = append(links, models.CustomerLink{UserID: "u_" + id, CustomerID: id})
	}
	syncer := &countingSyncer{}
	job, err := NewSnapshotResyncJob(SnapshotResyncJobParams{
		Logger:    testJobLogger(),
		Links:     &sliceLinkRepo{links: links},
		Syncer:    syncer,
		BatchSize: 2,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(syncer.calls) != 5 {
		t.Fatalf("expected 5 resyncs, got %d: %v", len(syncer.calls), syncer.calls)
	}
}

func TestSnapshotResyncJobReportsSubscribedCount(t *testing.T) {
	var buf bytes.Buffer
	links := []models.CustomerLink{
		{UserID: "u1", CustomerID: "cus_paid"},
		{UserID: "u2", CustomerID: "cus_free"},
	}
	syncer := &countingSyncer{subscribed: map[string]bool{"cus_paid": true}}
	job, err := NewSnapshotResyncJob(SnapshotResyncJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: &buf}),
		Links:  &sliceLinkRepo{links: links},
		Syncer: syncer,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(buf.String(), `"subscribed":1`) {
		t.Fatalf("expected subscribed count in report, got %s", buf.String())
	}
}

func TestSnapshotResyncJobContinuesPastFailures(t *testing.T) {
	links := []models.CustomerLink{
		{UserID: "u1", CustomerID: "cus_ok"},
		{UserID: "u2", CustomerID: "cus_bad"},
		{UserID: "u3", CustomerID: "cus_also_ok"},
	}
	syncer := &countingSyncer{failFor: map[string]error{"cus_bad": errors.New("provider down")}}
	job, err := NewSnapshotResyncJob(SnapshotResyncJobParams{
		Logger: testJobLogger(),
		Links:  &sliceLinkRepo{links: links},
		Syncer: syncer,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	runErr := job.Run(context.Background())
	if runErr == nil {
		t.Fatal("expected aggregated error for failed customer")
	}
	if len(syncer.calls) != 3 {
		t.Fatalf("failure must not stop the walk, got %d calls", len(syncer.calls))
	}
}

func TestSnapshotResyncJobStopsOnCanceledContext(t *testing.T) {
	links := []models.CustomerLink{
		{UserID: "u1", CustomerID: "cus_a"},
		{UserID: "u2", CustomerID: "cus_b"},
	}
	syncer := &countingSyncer{}
	job, err := NewSnapshotResyncJob(SnapshotResyncJobParams{
		Logger: testJobLogger(),
		Links:  &sliceLinkRepo{links: links},
		Syncer: syncer,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := job.Run(ctx); err == nil {
		t.Fatal("expected context error")
	}
	if len(syncer.calls) != 0 {
		t.Fatalf("expected no resyncs after cancel, got %d", len(syncer.calls))
	}
}
