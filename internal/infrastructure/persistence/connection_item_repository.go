package persistence

import (
	"context"
	"time"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/finance"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/integration"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormConnectionItemRepository implements integration.ConnectionItemRepository using GORM
type GormConnectionItemRepository struct {
	db *gorm.DB
}

// NewGormConnectionItemRepository creates a new GormConnectionItemRepository
func NewGormConnectionItemRepository(db *gorm.DB) *GormConnectionItemRepository {
	return &GormConnectionItemRepository{db: db}
}

// Create inserts a new connection item
func (r *GormConnectionItemRepository) Create(ctx context.Context, item *integration.ConnectionItem) error {
	item.PrepareInsert()
	return r.db.WithContext(ctx).Create(item).Error
}

// FindByID finds a connection item by ID in any tenant
func (r *GormConnectionItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.ConnectionItem, error) {
	var item integration.ConnectionItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "connection item", id)
	}
	return &item, nil
}

// FindByIDForTenant finds a connection item by ID within a tenant
func (r *GormConnectionItemRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*integration.ConnectionItem, error) {
	var item integration.ConnectionItem
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("id = ?", id).
		First(&item).Error; err != nil {
		return nil, notFound(err, "connection item", id)
	}
	return &item, nil
}

// FindByExternalItemID finds the item the provider knows by externalItemID
func (r *GormConnectionItemRepository) FindByExternalItemID(ctx context.Context, kind integration.ProviderKind, externalItemID string) (*integration.ConnectionItem, error) {
	var item integration.ConnectionItem
	if err := r.db.WithContext(ctx).
		Where("kind = ? AND external_item_id = ?", kind, externalItemID).
		First(&item).Error; err != nil {
		return nil, notFound(err, "connection item", externalItemID)
	}
	return &item, nil
}

// FindAllForTenant lists a tenant's items, newest first
func (r *GormConnectionItemRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]integration.ConnectionItem, error) {
	var items []integration.ConnectionItem
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindAllByKind lists items of one kind across every tenant, oldest first
func (r *GormConnectionItemRepository) FindAllByKind(ctx context.Context, kind integration.ProviderKind) ([]integration.ConnectionItem, error) {
	var items []integration.ConnectionItem
	if err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// MarkSynced stamps the last successful sync time
func (r *GormConnectionItemRepository) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	at = at.UTC()
	result := r.db.WithContext(ctx).
		Model(&integration.ConnectionItem{}).
		Where("id = ?", id).
		Updates(map[string]any{"last_synced_at": at, "updated_at": at})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("connection item", id)
	}
	return nil
}

// DeleteCascade removes the item and every record mirrored through it in one transaction
func (r *GormConnectionItemRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dependents := []any{
			&finance.Transaction{},
			&finance.Account{},
			&integration.Payment{},
			&integration.Invoice{},
			&integration.Subscription{},
			&integration.Customer{},
		}
		for _, model := range dependents {
			if err := tx.Where("connection_item_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		result := tx.Delete(&integration.ConnectionItem{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewNotFoundError("connection item", id)
		}
		return nil
	})
}

var _ integration.ConnectionItemRepository = (*GormConnectionItemRepository)(nil)
