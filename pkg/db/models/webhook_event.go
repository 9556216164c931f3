package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEventOutcome classifies what happened to a verified webhook event.
type WebhookEventOutcome string

const (
	WebhookEventOutcomeSynced  WebhookEventOutcome = "synced"
	WebhookEventOutcomeIgnored WebhookEventOutcome = "ignored"
	WebhookEventOutcomeFailed  WebhookEventOutcome = "failed"
)

// WebhookEvent is the audit log of verified provider events. Redelivery of an
// already-recorded event id is expected under at-least-once delivery and is
// recorded again only when the prior attempt failed.
type WebhookEvent struct {
	ID         uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EventID    string              `gorm:"column:event_id;not null;uniqueIndex"`
	Type       string              `gorm:"column:type;not null;index"`
	CustomerID *string             `gorm:"column:customer_id;index"`
	Outcome    WebhookEventOutcome `gorm:"column:outcome;not null"`
	Detail     *string             `gorm:"column:detail"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
