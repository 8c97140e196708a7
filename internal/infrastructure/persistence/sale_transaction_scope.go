package persistence

import (
	"context"

	apptrade "github.com/g-aniketh/coxistai-startup-acc-sub003/internal/application/trade"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/catalog"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/finance"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/trade"
	"gorm.io/gorm"
)

// GormSaleTransactionScope implements apptrade.TransactionScope using GORM transactions.
type GormSaleTransactionScope struct {
	db *gorm.DB
}

// NewGormSaleTransactionScope creates a new GormSaleTransactionScope.
func NewGormSaleTransactionScope(db *gorm.DB) *GormSaleTransactionScope {
	return &GormSaleTransactionScope{db: db}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (s *GormSaleTransactionScope) Execute(ctx context.Context, fn func(repos apptrade.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormSaleRepositories{tx: tx})
	})
}

// gormSaleRepositories hands out repositories bound to one transaction.
type gormSaleRepositories struct {
	tx *gorm.DB
}

func (r *gormSaleRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

func (r *gormSaleRepositories) Accounts() finance.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

func (r *gormSaleRepositories) Transactions() finance.TransactionRepository {
	return NewGormTransactionRepository(r.tx)
}

func (r *gormSaleRepositories) Sales() trade.SaleRepository {
	return NewGormSaleRepository(r.tx)
}

var (
	_ apptrade.TransactionScope          = (*GormSaleTransactionScope)(nil)
	_ apptrade.TransactionalRepositories = (*gormSaleRepositories)(nil)
)
