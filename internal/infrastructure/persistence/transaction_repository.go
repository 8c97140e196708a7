package persistence

import (
	"context"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/finance"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// transactionSortColumns are the columns FindByAccount may order by
var transactionSortColumns = map[string]string{
	"date":       "date",
	"amount":     "amount",
	"created_at": "created_at",
}

// GormTransactionRepository implements finance.TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// Create inserts a new transaction
func (r *GormTransactionRepository) Create(ctx context.Context, tx *finance.Transaction) error {
	tx.PrepareInsert()
	return r.db.WithContext(ctx).Create(tx).Error
}

// FindByIDForTenant finds a transaction by ID within a tenant
func (r *GormTransactionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*finance.Transaction, error) {
	var tx finance.Transaction
	if err := r.db.WithContext(ctx).
		Scopes(tenantScope(tenantID)).
		Where("id = ?", id).
		First(&tx).Error; err != nil {
		return nil, notFound(err, "transaction", id)
	}
	return &tx, nil
}

// FindByAccount pages through an account's transactions, newest first by default
func (r *GormTransactionRepository) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter shared.Filter) ([]finance.Transaction, int64, error) {
	filter = filter.Normalize()
	byAccount := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&finance.Transaction{}).
			Scopes(tenantScope(tenantID)).
			Where("account_id = ?", accountID)
	}

	var total int64
	if err := byAccount().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := transactionSortColumns[filter.OrderBy]
	if !ok {
		column = "date"
	}

	var txs []finance.Transaction
	if err := byAccount().
		Order(column + " " + filter.OrderDir).
		Order("id ASC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&txs).Error; err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// CountForItem counts the transactions mirrored through one connection item
func (r *GormTransactionRepository) CountForItem(ctx context.Context, connectionItemID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&finance.Transaction{}).
		Where("connection_item_id = ?", connectionItemID).
		Count(&count).Error
	return count, err
}

var _ finance.TransactionRepository = (*GormTransactionRepository)(nil)
