package models

import (
	"time"

	"github.com/google/uuid"
)

// CustomerLink records the resolved association between an identity-provider
// user and a billing-provider customer. Provider metadata stays authoritative;
// this row is a locally cached linkage that spares a provider round-trip on
// the read path and gives the reconciler a worklist.
type CustomerLink struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     string    `gorm:"column:user_id;not null;uniqueIndex"`
	CustomerID string    `gorm:"column:customer_id;not null;index"`
	Email      *string   `gorm:"column:email"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
