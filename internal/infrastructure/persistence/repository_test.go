package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/finance"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/integration"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedItem(t *testing.T, db *gorm.DB, tenantID uuid.UUID, kind integration.ProviderKind, externalID string) *integration.ConnectionItem {
	t.Helper()
	item, err := integration.NewConnectionItem(tenantID, uuid.New(), kind, externalID, "First Platypus Bank",
		integration.Credential{Ciphertext: "sealed", Algorithm: "aes-256-gcm"})
	require.NoError(t, err)
	require.NoError(t, NewGormConnectionItemRepository(db).Create(context.Background(), item))
	return item
}

func seedAggregatedAccount(t *testing.T, db *gorm.DB, item *integration.ConnectionItem, externalID, name string) *finance.Account {
	t.Helper()
	account := finance.NewAggregatedAccount(item, integration.AggregatedAccount{
		ExternalID:     externalID,
		Name:           name,
		CurrentBalance: decimal.NewNullDecimal(decimal.NewFromInt(100)),
		Currency:       "usd",
	})
	_, err := NewGormReconciler(db).Upsert(context.Background(), account)
	require.NoError(t, err)
	return account
}

func seedAggregatedTransaction(t *testing.T, db *gorm.DB, item *integration.ConnectionItem, accountID uuid.UUID, externalID, date string, amount int64) *finance.Transaction {
	t.Helper()
	tx := finance.NewAggregatedTransaction(item, accountID, nil, integration.AggregatedTransaction{
		ExternalID: externalID,
		Amount:     decimal.NewFromInt(amount),
		Date:       date,
		Name:       "Coffee",
	})
	_, err := NewGormReconciler(db).Upsert(context.Background(), tx)
	require.NoError(t, err)
	return tx
}

func TestConnectionItemRepository_Lookups(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewGormConnectionItemRepository(db)
	tenantID := uuid.New()

	bank := seedItem(t, db, tenantID, integration.ProviderKindAggregator, "item-1")
	seedItem(t, db, tenantID, integration.ProviderKindPaymentProcessor, "acct_1")
	seedItem(t, db, uuid.New(), integration.ProviderKindAggregator, "item-2")

	found, err := repo.FindByIDForTenant(ctx, tenantID, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, "sealed", found.Credential.Ciphertext)

	_, err = repo.FindByIDForTenant(ctx, uuid.New(), bank.ID)
	assert.True(t, shared.IsNotFound(err), "other tenants cannot see the item")

	byExternal, err := repo.FindByExternalItemID(ctx, integration.ProviderKindAggregator, "item-1")
	require.NoError(t, err)
	assert.Equal(t, bank.ID, byExternal.ID)

	_, err = repo.FindByExternalItemID(ctx, integration.ProviderKindPaymentProcessor, "item-1")
	assert.True(t, shared.IsNotFound(err))

	forTenant, err := repo.FindAllForTenant(ctx, tenantID)
	require.NoError(t, err)
	assert.Len(t, forTenant, 2)

	aggregators, err := repo.FindAllByKind(ctx, integration.ProviderKindAggregator)
	require.NoError(t, err)
	assert.Len(t, aggregators, 2)
}

func TestConnectionItemRepository_DuplicateExternalItemRejected(t *testing.T) {
	db := newTestDB(t)
	seedItem(t, db, uuid.New(), integration.ProviderKindAggregator, "item-1")

	dup, err := integration.NewConnectionItem(uuid.New(), uuid.New(), integration.ProviderKindAggregator, "item-1", "",
		integration.Credential{Ciphertext: "x", Algorithm: "aes-256-gcm"})
	require.NoError(t, err)
	assert.Error(t, NewGormConnectionItemRepository(db).Create(context.Background(), dup))
}

func TestConnectionItemRepository_MarkSynced(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewGormConnectionItemRepository(db)
	item := seedItem(t, db, uuid.New(), integration.ProviderKindAggregator, "item-1")

	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, repo.MarkSynced(ctx, item.ID, at))

	found, err := repo.FindByID(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastSyncedAt)
	assert.True(t, at.Equal(*found.LastSyncedAt))

	assert.True(t, shared.IsNotFound(repo.MarkSynced(ctx, uuid.New(), at)))
}

func TestConnectionItemRepository_DeleteCascade(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tenantID := uuid.New()

	item := seedItem(t, db, tenantID, integration.ProviderKindAggregator, "item-1")
	other := seedItem(t, db, tenantID, integration.ProviderKindAggregator, "item-2")
	account := seedAggregatedAccount(t, db, item, "acc-1", "Checking")
	seedAggregatedTransaction(t, db, item, account.ID, "tx-1", "2026-01-02", 5)
	otherAccount := seedAggregatedAccount(t, db, other, "acc-2", "Savings")
	seedAggregatedTransaction(t, db, other, otherAccount.ID, "tx-2", "2026-01-02", 5)

	repo := NewGormConnectionItemRepository(db)
	require.NoError(t, repo.DeleteCascade(ctx, item.ID))

	_, err := repo.FindByID(ctx, item.ID)
	assert.True(t, shared.IsNotFound(err))

	var accounts, txs int64
	require.NoError(t, db.Model(&finance.Account{}).Count(&accounts).Error)
	require.NoError(t, db.Model(&finance.Transaction{}).Count(&txs).Error)
	assert.Equal(t, int64(1), accounts, "other item's account survives")
	assert.Equal(t, int64(1), txs)

	assert.True(t, shared.IsNotFound(repo.DeleteCascade(ctx, item.ID)))
}

func TestAccountRepository_BalanceAndIndex(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewGormAccountRepository(db)
	tenantID := uuid.New()

	local, err := finance.NewLocalAccount(tenantID, "Till", "usd")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, local))

	require.NoError(t, repo.AdjustBalance(ctx, tenantID, local.ID, decimal.RequireFromString("12.50")))
	require.NoError(t, repo.AdjustBalance(ctx, tenantID, local.ID, decimal.RequireFromString("7.25")))

	found, err := repo.FindByIDForTenant(ctx, tenantID, local.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("19.75").Equal(found.Balance), found.Balance.String())
	assert.False(t, found.IsMirrored())

	assert.True(t, shared.IsNotFound(repo.AdjustBalance(ctx, uuid.New(), local.ID, decimal.NewFromInt(1))))

	item := seedItem(t, db, tenantID, integration.ProviderKindAggregator, "item-1")
	a := seedAggregatedAccount(t, db, item, "acc-b", "B")
	b := seedAggregatedAccount(t, db, item, "acc-a", "A")

	index, err := repo.ExternalIDIndex(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]uuid.UUID{"acc-b": a.ID, "acc-a": b.ID}, index)

	listed, err := repo.FindByConnectionItem(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "A", listed[0].Name)
}

func TestTransactionRepository_FindByAccount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tenantID := uuid.New()
	item := seedItem(t, db, tenantID, integration.ProviderKindAggregator, "item-1")
	account := seedAggregatedAccount(t, db, item, "acc-1", "Checking")

	seedAggregatedTransaction(t, db, item, account.ID, "tx-1", "2026-01-01", 10)
	seedAggregatedTransaction(t, db, item, account.ID, "tx-2", "2026-01-03", 30)
	seedAggregatedTransaction(t, db, item, account.ID, "tx-3", "2026-01-02", 20)

	repo := NewGormTransactionRepository(db)

	page, total, err := repo.FindByAccount(ctx, tenantID, account.ID, shared.Filter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, "2026-01-03", page[0].Date)
	assert.Equal(t, "2026-01-02", page[1].Date)

	page, _, err = repo.FindByAccount(ctx, tenantID, account.ID, shared.Filter{Page: 1, PageSize: 5, OrderBy: "amount", OrderDir: "asc"})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, "tx-1", *page[0].ExternalID)

	page, total, err = repo.FindByAccount(ctx, uuid.New(), account.ID, shared.Filter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, page)

	count, err := repo.CountForItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestCategoryRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewGormCategoryRepository(db)
	tenantID := uuid.New()

	for _, name := range []string{"Food and Drink", "Travel"} {
		c, err := finance.NewCategory(tenantID, name)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, c))
	}
	other, err := finance.NewCategory(uuid.New(), "Payroll")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, other))

	categories, err := repo.FindAllForTenant(ctx, tenantID)
	require.NoError(t, err)
	assert.Len(t, categories, 2)
}

func TestSyncStatsReader(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	tenantID := uuid.New()

	item := seedItem(t, db, tenantID, integration.ProviderKindAggregator, "item-1")
	empty := seedItem(t, db, tenantID, integration.ProviderKindAggregator, "item-2")
	seedItem(t, db, tenantID, integration.ProviderKindPaymentProcessor, "acct_1")

	a := seedAggregatedAccount(t, db, item, "acc-1", "Checking")
	seedAggregatedAccount(t, db, item, "acc-2", "Savings")
	seedAggregatedTransaction(t, db, item, a.ID, "tx-1", "2026-02-01", 5)
	seedAggregatedTransaction(t, db, item, a.ID, "tx-2", "2026-02-14", 5)

	stats, err := NewGormSyncStatsReader(db).SyncStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.TotalItems)
	assert.Equal(t, int64(2), stats.TotalAccounts)
	assert.Equal(t, int64(2), stats.TotalTransactions)
	require.Len(t, stats.Items, 2)

	byID := map[uuid.UUID]integration.ItemSyncStatus{}
	for _, s := range stats.Items {
		byID[s.ConnectionItemID] = s
	}
	assert.Equal(t, int64(2), byID[item.ID].AccountCount)
	assert.Equal(t, "2026-02-14", byID[item.ID].LastTransactionDate)
	assert.Zero(t, byID[empty.ID].TransactionCount)
	assert.Empty(t, byID[empty.ID].LastTransactionDate)
}
