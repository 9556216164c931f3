package stripewebhook

import (
	"context"

	"github.com/otdoges/zapdev-sub005/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventLog persists the outcome of every verified webhook delivery.
type EventLog interface {
	Record(ctx context.Context, record *models.WebhookEvent) error
	FindByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error)
}

type eventLog struct {
	db *gorm.DB
}

// NewEventLog returns an event log bound to the provided database.
func NewEventLog(db *gorm.DB) EventLog {
	return &eventLog{db: db}
}

func (r *eventLog) Record(ctx context.Context, record *models.WebhookEvent) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"outcome", "detail", "customer_id", "updated_at"}),
		}).
		Create(record).Error
}

func (r *eventLog) FindByEventID(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	var record models.WebhookEvent
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}
