package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable item with on-hand stock
type Product struct {
	shared.TenantEntity
	SKU      string          `gorm:"type:varchar(50);index" json:"sku,omitempty"`
	Name     string          `gorm:"type:varchar(200);not null" json:"name"`
	Price    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"price"`
	Currency string          `gorm:"type:varchar(8);not null;default:'USD'" json:"currency"`
	Quantity int64           `gorm:"not null;default:0" json:"quantity"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a product with initial stock
func NewProduct(tenantID uuid.UUID, sku, name string, price decimal.Decimal, quantity int64) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("product name is required")
	}
	if price.IsNegative() {
		return nil, shared.NewValidationError("product price cannot be negative")
	}
	if quantity < 0 {
		return nil, shared.NewValidationError("product quantity cannot be negative")
	}
	return &Product{
		TenantEntity: shared.NewTenantEntity(tenantID),
		SKU:          strings.ToUpper(strings.TrimSpace(sku)),
		Name:         name,
		Price:        price,
		Currency:     "USD",
		Quantity:     quantity,
	}, nil
}

// CheckSellable validates that quantity units can be sold from current stock
func (p *Product) CheckSellable(quantity int64) error {
	if quantity <= 0 {
		return shared.NewValidationError("quantity sold must be positive")
	}
	if p.Quantity < quantity {
		return InsufficientStockError(p, quantity)
	}
	return nil
}

// SaleTotal returns price * quantity
func (p *Product) SaleTotal(quantity int64) decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(quantity))
}

// InsufficientStockError describes a sale that exceeds stock
func InsufficientStockError(p *Product, requested int64) *shared.DomainError {
	return shared.NewDomainError(
		shared.CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for %s: requested %d, available %d", p.Name, requested, p.Quantity),
	)
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Product, error)
	// FindByIDForUpdate loads the product and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Product, error)
	// DecrementStock removes quantity units, failing with INSUFFICIENT_STOCK
	// if fewer are on hand when the update runs
	DecrementStock(ctx context.Context, tenantID, id uuid.UUID, quantity int64) error
}
