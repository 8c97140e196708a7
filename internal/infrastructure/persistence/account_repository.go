package persistence

import (
	"context"
	"time"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/finance"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormAccountRepository implements finance.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// Create inserts a new account
func (r *GormAccountRepository) Create(ctx context.Context, account *finance.Account) error {
	account.PrepareInsert()
	return r.db.WithContext(ctx).Create(account).Error
}

// FindByIDForTenant finds an account by ID within a tenant
func (r *GormAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Account, error) {
	var account finance.Account
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("id = ?", id).
		First(&account).Error; err != nil {
		return nil, notFound(err, "account", id)
	}
	return &account, nil
}

// FindByIDForUpdate loads the account with a row lock
func (r *GormAccountRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*finance.Account, error) {
	var account finance.Account
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID), forUpdate).
		Where("id = ?", id).
		First(&account).Error; err != nil {
		return nil, notFound(err, "account", id)
	}
	return &account, nil
}

// FindByConnectionItem lists the accounts mirrored through one connection item
func (r *GormAccountRepository) FindByConnectionItem(ctx context.Context, connectionItemID uuid.UUID) ([]finance.Account, error) {
	var accounts []finance.Account
	if err := r.db.WithContext(ctx).
		Where("connection_item_id = ?", connectionItemID).
		Order("name ASC").
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// ExternalIDIndex maps external account ids to local ids for one connection item
func (r *GormAccountRepository) ExternalIDIndex(ctx context.Context, connectionItemID uuid.UUID) (map[string]uuid.UUID, error) {
	return externalIDIndex(ctx, r.db, (&finance.Account{}).TableName(), connectionItemID)
}

// AdjustBalance adds delta to the stored balance in a single UPDATE
func (r *GormAccountRepository) AdjustBalance(ctx context.Context, tenantID, id uuid.UUID, delta decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&finance.Account{}).
		Scopes(tenantScope(tenantID)).
		Where("id = ?", id).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewNotFoundError("account", id)
	}
	return nil
}

// externalIDIndex reads (external_id, id) pairs of one connection item from table
func externalIDIndex(ctx context.Context, db *gorm.DB, table string, connectionItemID uuid.UUID) (map[string]uuid.UUID, error) {
	var rows []struct {
		ID         uuid.UUID
		ExternalID string
	}
	if err := db.WithContext(ctx).
		Table(table).
		Select("id, external_id").
		Where("connection_item_id = ? AND external_id IS NOT NULL", connectionItemID).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	index := make(map[string]uuid.UUID, len(rows))
	for _, row := range rows {
		index[row.ExternalID] = row.ID
	}
	return index, nil
}

var _ finance.AccountRepository = (*GormAccountRepository)(nil)
