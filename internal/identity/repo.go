package identity

import (
	"context"

	"github.com/otdoges/zapdev-sub005/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository handles customer link persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindLinkByUserID(ctx context.Context, userID string) (*models.CustomerLink, error)
	FindLinkByCustomerID(ctx context.Context, customerID string) (*models.CustomerLink, error)
	UpsertLink(ctx context.Context, link *models.CustomerLink) error
	ListLinks(ctx context.Context, offset, limit int) ([]models.CustomerLink, error)
	CountLinks(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a customer link repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindLinkByUserID(ctx context.Context, userID string) (*models.CustomerLink, error) {
	var link models.CustomerLink
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&link).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (r *repository) FindLinkByCustomerID(ctx context.Context, customerID string) (*models.CustomerLink, error) {
	var link models.CustomerLink
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		First(&link).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (r *repository) UpsertLink(ctx context.Context, link *models.CustomerLink) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"customer_id", "email", "updated_at"}),
		}).
		Create(link).Error
}

func (r *repository) ListLinks(ctx context.Context, offset, limit int) ([]models.CustomerLink, error) {
	if limit <= 0 {
		limit = 100
	}
	var links []models.CustomerLink
	if err := r.db.WithContext(ctx).
		Order("created_at ASC, user_id ASC").
		Offset(offset).
		Limit(limit).
		Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (r *repository) CountLinks(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CustomerLink{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
