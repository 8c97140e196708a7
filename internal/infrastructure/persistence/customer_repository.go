package persistence

import (
	"context"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/integration"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCustomerRepository implements integration.CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// ExternalIDIndex maps external customer ids to local ids for one connection item
func (r *GormCustomerRepository) ExternalIDIndex(ctx context.Context, connectionItemID uuid.UUID) (map[string]uuid.UUID, error) {
	return externalIDIndex(ctx, r.db, (&integration.Customer{}).TableName(), connectionItemID)
}

// CountForItem counts the customers mirrored through one connection item
func (r *GormCustomerRepository) CountForItem(ctx context.Context, connectionItemID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&integration.Customer{}).
		Where("connection_item_id = ?", connectionItemID).
		Count(&count).Error
	return count, err
}

var _ integration.CustomerRepository = (*GormCustomerRepository)(nil)
