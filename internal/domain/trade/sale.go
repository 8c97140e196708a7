package trade

import (
	"context"
	"time"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale records units of a product sold into an account
type Sale struct {
	shared.TenantEntity
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	AccountID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"account_id"`
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"transaction_id"`
	QuantitySold  int64           `gorm:"not null" json:"quantity_sold"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	TotalPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_price"`
	SoldAt        time.Time       `gorm:"not null" json:"sold_at"`
}

// TableName returns the table name for GORM
func (Sale) TableName() string {
	return "sales"
}

// NewSale creates a sale. The ID is assigned up front so the ledger
// transaction can reference it before either row is written.
func NewSale(tenantID, productID, accountID, transactionID uuid.UUID, quantity int64, unitPrice decimal.Decimal, at time.Time) (*Sale, error) {
	if quantity <= 0 {
		return nil, shared.NewValidationError("quantity sold must be positive")
	}
	return &Sale{
		TenantEntity:  shared.NewTenantEntity(tenantID),
		ProductID:     productID,
		AccountID:     accountID,
		TransactionID: transactionID,
		QuantitySold:  quantity,
		UnitPrice:     unitPrice,
		TotalPrice:    unitPrice.Mul(decimal.NewFromInt(quantity)),
		SoldAt:        at.UTC(),
	}, nil
}

// SaleRepository defines the interface for sale persistence
type SaleRepository interface {
	Create(ctx context.Context, sale *Sale) error
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Sale, error)
}
