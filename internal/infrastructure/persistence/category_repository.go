package persistence

import (
	"context"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/finance"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCategoryRepository implements finance.CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// Create inserts a new category
func (r *GormCategoryRepository) Create(ctx context.Context, category *finance.Category) error {
	category.PrepareInsert()
	return r.db.WithContext(ctx).Create(category).Error
}

// FindAllForTenant lists a tenant's categories ordered by id
func (r *GormCategoryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]finance.Category, error) {
	var categories []finance.Category
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Order("id ASC").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

var _ finance.CategoryRepository = (*GormCategoryRepository)(nil)
