package persistence

import (
	"context"
	"time"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/catalog"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// Create inserts a new product
func (r *GormProductRepository) Create(ctx context.Context, product *catalog.Product) error {
	product.PrepareInsert()
	return r.db.WithContext(ctx).Create(product).Error
}

// FindByIDForTenant finds a product by ID within a tenant
func (r *GormProductRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("id = ?", id).
		First(&product).Error; err != nil {
		return nil, notFound(err, "product", id)
	}
	return &product, nil
}

// FindByIDForUpdate loads the product with a row lock
func (r *GormProductRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID), forUpdate).
		Where("id = ?", id).
		First(&product).Error; err != nil {
		return nil, notFound(err, "product", id)
	}
	return &product, nil
}

// DecrementStock removes quantity units. The stock check is part of the UPDATE
// so a concurrent sale cannot drive the quantity negative.
func (r *GormProductRepository) DecrementStock(ctx context.Context, tenantID, id uuid.UUID, quantity int64) error {
	result := r.db.WithContext(ctx).
		Model(&catalog.Product{}).
		Scopes(tenantScope(tenantID)).
		Where("id = ? AND quantity >= ?", id, quantity).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", quantity),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		current, err := r.FindByIDForTenant(ctx, tenantID, id)
		if err != nil {
			return err
		}
		return catalog.InsufficientStockError(current, quantity)
	}
	return nil
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
