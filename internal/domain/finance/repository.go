package finance

import (
	"context"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository defines the interface for account persistence
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)
	// FindByIDForUpdate loads the account and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)
	FindByConnectionItem(ctx context.Context, connectionItemID uuid.UUID) ([]Account, error)
	// ExternalIDIndex maps external account ids to local ids for one connection item
	ExternalIDIndex(ctx context.Context, connectionItemID uuid.UUID) (map[string]uuid.UUID, error)
	// AdjustBalance adds delta to the stored balance without a read-modify-write
	AdjustBalance(ctx context.Context, tenantID, id uuid.UUID, delta decimal.Decimal) error
}

// TransactionRepository defines the interface for transaction persistence
type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction) error
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Transaction, error)
	FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter shared.Filter) ([]Transaction, int64, error)
	CountForItem(ctx context.Context, connectionItemID uuid.UUID) (int64, error)
}

// CategoryRepository defines the interface for category persistence
type CategoryRepository interface {
	Create(ctx context.Context, category *Category) error
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]Category, error)
}
