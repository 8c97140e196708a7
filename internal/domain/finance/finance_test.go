package finance

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/integration"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func category(id, name string) Category {
	return Category{
		TenantEntity: shared.TenantEntity{BaseEntity: shared.BaseEntity{ID: uuid.MustParse(id)}},
		Name:         name,
	}
}

func TestResolveCategory(t *testing.T) {
	food := category("33333333-3333-3333-3333-333333333333", "Food and Drink")
	fastFood := category("11111111-1111-1111-1111-111111111111", "Fast Food")
	travel := category("22222222-2222-2222-2222-222222222222", "Travel")
	categories := []Category{food, fastFood, travel}

	t.Run("case-insensitive substring match", func(t *testing.T) {
		got := ResolveCategory(categories, []string{"TRAVEL", "Airlines"})
		require.NotNil(t, got)
		assert.Equal(t, travel.ID, *got)
	})

	t.Run("ties resolve to lowest id regardless of order", func(t *testing.T) {
		got := ResolveCategory(categories, []string{"food"})
		require.NotNil(t, got)
		assert.Equal(t, fastFood.ID, *got)

		reversed := []Category{travel, fastFood, food}
		got = ResolveCategory(reversed, []string{"food"})
		require.NotNil(t, got)
		assert.Equal(t, fastFood.ID, *got)
	})

	t.Run("only the first label is used", func(t *testing.T) {
		assert.Nil(t, ResolveCategory(categories, []string{"Shops", "Travel"}))
	})

	t.Run("no labels", func(t *testing.T) {
		assert.Nil(t, ResolveCategory(categories, nil))
		assert.Nil(t, ResolveCategory(categories, []string{"  "}))
	})
}

func TestNewAggregatedTransaction(t *testing.T) {
	item := &integration.ConnectionItem{TenantEntity: shared.NewTenantEntity(uuid.New())}
	accountID := uuid.New()

	debit := NewAggregatedTransaction(item, accountID, nil, integration.AggregatedTransaction{
		ExternalID: "tx-1",
		Amount:     decimal.RequireFromString("12.50"),
		Date:       "2024-03-01",
		Name:       "Coffee",
		Categories: []string{"Food and Drink", "Coffee Shop"},
	})
	assert.Equal(t, TransactionTypeDebit, debit.Type)
	assert.True(t, debit.Amount.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, "Food and Drink > Coffee Shop", debit.ProviderCategory)
	assert.Equal(t, item.ID, *debit.ConnectionItemID)
	assert.Equal(t, "USD", debit.Currency)

	credit := NewAggregatedTransaction(item, accountID, nil, integration.AggregatedTransaction{
		ExternalID: "tx-2",
		Amount:     decimal.RequireFromString("-1000"),
		Currency:   "eur",
		Date:       "2024-03-02",
		Name:       "Payroll",
	})
	assert.Equal(t, TransactionTypeCredit, credit.Type)
	assert.True(t, credit.Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "EUR", credit.Currency)
}

func TestNewAggregatedTransaction_TruncatesByCharacter(t *testing.T) {
	item := &integration.ConnectionItem{TenantEntity: shared.NewTenantEntity(uuid.New())}
	merchant := strings.Repeat("ü", 250)

	tx := NewAggregatedTransaction(item, uuid.New(), nil, integration.AggregatedTransaction{
		ExternalID:   "tx-long",
		Amount:       decimal.NewFromInt(5),
		Date:         "2024-03-03",
		Name:         strings.Repeat("a", 499) + "é café",
		MerchantName: merchant,
	})

	assert.True(t, utf8.ValidString(tx.Description))
	assert.Equal(t, 500, utf8.RuneCountInString(tx.Description))
	assert.Equal(t, strings.Repeat("a", 499)+"é", tx.Description)
	assert.True(t, utf8.ValidString(tx.MerchantName))
	assert.Equal(t, strings.Repeat("ü", 200), tx.MerchantName)

	short := NewAggregatedTransaction(item, uuid.New(), nil, integration.AggregatedTransaction{
		ExternalID:   "tx-short",
		Amount:       decimal.NewFromInt(5),
		Date:         "2024-03-03",
		Name:         "Café Noir",
		MerchantName: strings.Repeat("ü", 150),
	})
	assert.Equal(t, "Café Noir", short.Description)
	assert.Equal(t, strings.Repeat("ü", 150), short.MerchantName)
}

func TestSaleDescription(t *testing.T) {
	assert.Equal(t, "Sale of 3x Widget", SaleDescription(3, "Widget"))
}

func TestNewAggregatedAccount_NullBalances(t *testing.T) {
	item := &integration.ConnectionItem{TenantEntity: shared.NewTenantEntity(uuid.New())}
	acc := NewAggregatedAccount(item, integration.AggregatedAccount{ExternalID: "acc-1", Name: "Checking"})

	assert.True(t, acc.Balance.IsZero())
	assert.False(t, acc.AvailableBalance.Valid)
	assert.True(t, acc.IsMirrored())
	assert.Equal(t, map[string]any{"external_id": acc.ExternalID}, acc.NaturalKey())
}
