package finance

import (
	"strings"
	"time"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/integration"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is a money account. Aggregator accounts carry an external id and are
// overwritten on every sync; local accounts have neither external id nor item.
type Account struct {
	shared.TenantEntity
	ConnectionItemID *uuid.UUID          `gorm:"type:uuid;index" json:"connection_item_id,omitempty"`
	ExternalID       *string             `gorm:"type:varchar(128);uniqueIndex" json:"external_id,omitempty"`
	Name             string              `gorm:"type:varchar(200);not null" json:"name"`
	OfficialName     string              `gorm:"type:varchar(200)" json:"official_name,omitempty"`
	Mask             string              `gorm:"type:varchar(8)" json:"mask,omitempty"`
	Type             string              `gorm:"type:varchar(32)" json:"type,omitempty"`
	Subtype          string              `gorm:"type:varchar(32)" json:"subtype,omitempty"`
	Balance          decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0" json:"balance"`
	AvailableBalance decimal.NullDecimal `gorm:"type:decimal(18,4)" json:"available_balance"`
	Currency         string              `gorm:"type:varchar(8);not null;default:'USD'" json:"currency"`
}

// TableName returns the table name for GORM
func (Account) TableName() string {
	return "accounts"
}

// NewLocalAccount creates an account that is not mirrored from any provider
func NewLocalAccount(tenantID uuid.UUID, name, currency string) (*Account, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("account name is required")
	}
	if currency == "" {
		currency = "USD"
	}
	return &Account{
		TenantEntity: shared.NewTenantEntity(tenantID),
		Name:         name,
		Balance:      decimal.Zero,
		Currency:     strings.ToUpper(currency),
	}, nil
}

// NewAggregatedAccount maps an aggregator account onto a local record
func NewAggregatedAccount(item *integration.ConnectionItem, src integration.AggregatedAccount) *Account {
	externalID := src.ExternalID
	itemID := item.ID
	currency := strings.ToUpper(src.Currency)
	if currency == "" {
		currency = "USD"
	}
	balance := decimal.Zero
	if src.CurrentBalance.Valid {
		balance = src.CurrentBalance.Decimal
	}
	return &Account{
		TenantEntity:     shared.TenantEntity{TenantID: item.TenantID},
		ConnectionItemID: &itemID,
		ExternalID:       &externalID,
		Name:             src.Name,
		OfficialName:     src.OfficialName,
		Mask:             src.Mask,
		Type:             src.Type,
		Subtype:          src.Subtype,
		Balance:          balance,
		AvailableBalance: src.AvailableBalance,
		Currency:         currency,
	}
}

// IsMirrored reports whether the account is owned by a provider connection
func (a *Account) IsMirrored() bool {
	return a.ExternalID != nil
}

func (a *Account) NaturalKey() map[string]any {
	return map[string]any{"external_id": a.ExternalID}
}

// MutableColumns lists the fields a sync overwrites. The provider is the
// source of truth for balances of mirrored accounts.
func (a *Account) MutableColumns() map[string]any {
	return map[string]any{
		"connection_item_id": a.ConnectionItemID,
		"name":               a.Name,
		"official_name":      a.OfficialName,
		"mask":               a.Mask,
		"type":               a.Type,
		"subtype":            a.Subtype,
		"balance":            a.Balance,
		"available_balance":  a.AvailableBalance,
		"currency":           a.Currency,
		"updated_at":         time.Now().UTC(),
	}
}
