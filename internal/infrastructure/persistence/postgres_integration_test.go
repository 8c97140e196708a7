//go:build integration

package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/finance"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/integration"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/trade"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/migration"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newPostgresDB starts a throwaway PostgreSQL container and applies the
// embedded migrations to it.
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("cfo_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(16)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	return db
}

func TestPostgres_ReconcilerUpsertAgainstMigratedSchema(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()
	reconciler := NewGormReconciler(db)

	item := seedItem(t, db, uuid.New(), integration.ProviderKindAggregator, "item-pg")
	account := seedAggregatedAccount(t, db, item, "acc-pg", "Checking")

	src := integration.AggregatedTransaction{
		ExternalID: "tx-pg",
		Amount:     decimal.RequireFromString("-40.00"),
		Date:       "2026-02-01",
		Name:       "Refund",
	}
	outcome, err := reconciler.Upsert(ctx, finance.NewAggregatedTransaction(item, account.ID, nil, src))
	require.NoError(t, err)
	assert.Equal(t, shared.UpsertCreated, outcome)

	src.Name = "Refund processed"
	outcome, err = reconciler.Upsert(ctx, finance.NewAggregatedTransaction(item, account.ID, nil, src))
	require.NoError(t, err)
	assert.Equal(t, shared.UpsertUpdated, outcome)

	var rows []finance.Transaction
	require.NoError(t, db.Where("connection_item_id = ?", item.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "Refund processed", rows[0].Description)
	assert.Equal(t, finance.TransactionTypeCredit, rows[0].Type)
}

func TestPostgres_ConcurrentSalesNeverOversell(t *testing.T) {
	db := newPostgresDB(t)
	f := newSaleFixtureOn(t, db, 5)

	const attempts = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		short     int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.record(1)
			mu.Lock()
			defer mu.Unlock()
			var domainErr *shared.DomainError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &domainErr) && domainErr.Code == shared.CodeInsufficientStock:
				short++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, attempts-5, short)

	ctx := context.Background()
	product, err := NewGormProductRepository(db).FindByIDForTenant(ctx, f.tenantID, f.product.ID)
	require.NoError(t, err)
	assert.Zero(t, product.Quantity)

	account, err := NewGormAccountRepository(db).FindByIDForTenant(ctx, f.tenantID, f.account.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1250).Equal(account.Balance), account.Balance.String())

	var sales int64
	require.NoError(t, db.Model(&trade.Sale{}).Where("tenant_id = ?", f.tenantID).Count(&sales).Error)
	assert.Equal(t, int64(5), sales)
}
