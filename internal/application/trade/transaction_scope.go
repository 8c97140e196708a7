package trade

import (
	"context"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/catalog"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/finance"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/trade"
)

// TransactionScope runs a unit of work atomically.
// If fn returns an error every write made through repos is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories are the repositories a sale touches.
// All of them share the same underlying database transaction.
type TransactionalRepositories interface {
	Products() catalog.ProductRepository
	Accounts() finance.AccountRepository
	Transactions() finance.TransactionRepository
	Sales() trade.SaleRepository
}
