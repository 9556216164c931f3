package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/otdoges/zapdev-sub005/internal/identity"
	"github.com/otdoges/zapdev-sub005/internal/subscriptions"
	"github.com/otdoges/zapdev-sub005/pkg/logger"
	"go.uber.org/multierr"
)

const defaultBatchSize = 200

// Job represents a task that runs inside the reconciler worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Resyncer rebuilds a customer's snapshot from the provider.
type Resyncer interface {
	Resync(ctx context.Context, customerID string) (subscriptions.SubscriptionSnapshot, error)
}

// SnapshotResyncJobParams configures the snapshot resync job.
type SnapshotResyncJobParams struct {
	Logger    *logger.Logger
	Links     identity.Repository
	Syncer    Resyncer
	BatchSize int
}

// NewSnapshotResyncJob builds a job that walks every known customer link and
// rebuilds its snapshot, repairing drift that webhooks missed.
func NewSnapshotResyncJob(params SnapshotResyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Links == nil {
		return nil, fmt.Errorf("links repository required")
	}
	if params.Syncer == nil {
		return nil, fmt.Errorf("syncer required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &snapshotResyncJob{
		logg:      params.Logger,
		links:     params.Links,
		syncer:    params.Syncer,
		batchSize: batchSize,
	}, nil
}

type snapshotResyncJob struct {
	logg      *logger.Logger
	links     identity.Repository
	syncer    Resyncer
	batchSize int
}

func (j *snapshotResyncJob) Name() string { return "snapshot-resync" }

func (j *snapshotResyncJob) Run(ctx context.Context) error {
	started := time.Now()
	var errs error
	scanned := 0
	synced := 0
	subscribed := 0

	for offset := 0; ; offset += j.batchSize {
		links, err := j.links.ListLinks(ctx, offset, j.batchSize)
		if err != nil {
			return fmt.Errorf("list customer links: %w", err)
		}
		if len(links) == 0 {
			break
		}
		for i := range links {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			scanned++
			snapshot, err := j.syncer.Resync(ctx, links[i].CustomerID)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("resync %s: %w", links[i].CustomerID, err))
				continue
			}
			synced++
			if snapshot.HasSubscription() {
				subscribed++
			}
		}
		if len(links) < j.batchSize {
			break
		}
	}

	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned":     scanned,
		"synced":      synced,
		"subscribed":  subscribed,
		"failed":      scanned - synced,
		"duration_ms": time.Since(started).Milliseconds(),
	})
	if errs != nil {
		j.logg.Error(reportCtx, "snapshot resync finished with failures", errs)
		return errs
	}
	j.logg.Info(reportCtx, "snapshot resync finished")
	return nil
}
