package finance

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/integration"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money relative to the account
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "CREDIT"
	TransactionTypeDebit  TransactionType = "DEBIT"
)

// IsValid returns true if the type is known
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeCredit || t == TransactionTypeDebit
}

// Transaction is a ledger entry on an Account. Amount is always non-negative;
// Type carries the direction.
type Transaction struct {
	shared.TenantEntity
	AccountID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"account_id"`
	ConnectionItemID *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_transactions_item_external,priority:1" json:"connection_item_id,omitempty"`
	ExternalID       *string         `gorm:"type:varchar(128);uniqueIndex:idx_transactions_item_external,priority:2" json:"external_id,omitempty"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	Type             TransactionType `gorm:"type:varchar(8);not null" json:"type"`
	Currency         string          `gorm:"type:varchar(8);not null;default:'USD'" json:"currency"`
	Date             string          `gorm:"type:varchar(10);not null;index" json:"date"`
	Description      string          `gorm:"type:varchar(500);not null" json:"description"`
	MerchantName     string          `gorm:"type:varchar(200)" json:"merchant_name,omitempty"`
	Pending          bool            `gorm:"not null;default:false" json:"pending"`
	ProviderCategory string          `gorm:"type:varchar(500)" json:"provider_category,omitempty"`
	CategoryID       *uuid.UUID      `gorm:"type:uuid;index" json:"category_id,omitempty"`
	SaleID           *uuid.UUID      `gorm:"type:uuid;index" json:"sale_id,omitempty"`
}

// TableName returns the table name for GORM
func (Transaction) TableName() string {
	return "transactions"
}

// NewAggregatedTransaction maps an aggregator transaction onto a local record.
// The aggregator reports outflows as positive amounts.
func NewAggregatedTransaction(
	item *integration.ConnectionItem,
	accountID uuid.UUID,
	categoryID *uuid.UUID,
	src integration.AggregatedTransaction,
) *Transaction {
	externalID := src.ExternalID
	itemID := item.ID
	txType := TransactionTypeCredit
	if src.Amount.IsPositive() {
		txType = TransactionTypeDebit
	}
	currency := strings.ToUpper(src.Currency)
	if currency == "" {
		currency = "USD"
	}
	return &Transaction{
		TenantEntity:     shared.TenantEntity{TenantID: item.TenantID},
		AccountID:        accountID,
		ConnectionItemID: &itemID,
		ExternalID:       &externalID,
		Amount:           src.Amount.Abs(),
		Type:             txType,
		Currency:         currency,
		Date:             src.Date,
		Description:      truncate(src.Name, 500),
		MerchantName:     truncate(src.MerchantName, 200),
		Pending:          src.Pending,
		ProviderCategory: truncate(strings.Join(src.Categories, " > "), 500),
		CategoryID:       categoryID,
	}
}

// NewSaleTransaction creates the credit entry recorded for a product sale
func NewSaleTransaction(
	tenantID, accountID, saleID uuid.UUID,
	amount decimal.Decimal,
	currency string,
	quantity int64,
	productName string,
	at time.Time,
) *Transaction {
	sale := saleID
	return &Transaction{
		TenantEntity: shared.NewTenantEntity(tenantID),
		AccountID:    accountID,
		Amount:       amount,
		Type:         TransactionTypeCredit,
		Currency:     currency,
		Date:         at.UTC().Format(integration.DateLayout),
		Description:  SaleDescription(quantity, productName),
		SaleID:       &sale,
	}
}

// SaleDescription renders the ledger description for a sale
func SaleDescription(quantity int64, productName string) string {
	return fmt.Sprintf("Sale of %dx %s", quantity, productName)
}

func (t *Transaction) NaturalKey() map[string]any {
	return map[string]any{"connection_item_id": t.ConnectionItemID, "external_id": t.ExternalID}
}

func (t *Transaction) MutableColumns() map[string]any {
	return map[string]any{
		"account_id":        t.AccountID,
		"amount":            t.Amount,
		"type":              t.Type,
		"currency":          t.Currency,
		"date":              t.Date,
		"description":       t.Description,
		"merchant_name":     t.MerchantName,
		"pending":           t.Pending,
		"provider_category": t.ProviderCategory,
		"category_id":       t.CategoryID,
		"updated_at":        time.Now().UTC(),
	}
}

// truncate keeps at most n characters; column limits count characters, not bytes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
