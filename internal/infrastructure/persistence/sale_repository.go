package persistence

import (
	"context"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/trade"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSaleRepository implements trade.SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// Create inserts a new sale
func (r *GormSaleRepository) Create(ctx context.Context, sale *trade.Sale) error {
	sale.PrepareInsert()
	return r.db.WithContext(ctx).Create(sale).Error
}

// FindByIDForTenant finds a sale by ID within a tenant
func (r *GormSaleRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*trade.Sale, error) {
	var sale trade.Sale
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("id = ?", id).
		First(&sale).Error; err != nil {
		return nil, notFound(err, "sale", id)
	}
	return &sale, nil
}

var _ trade.SaleRepository = (*GormSaleRepository)(nil)
