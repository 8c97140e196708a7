package integration_test

import (
	"context"
	"errors"
	"testing"
	"time"

	appintegration "github.com/g-aniketh/coxistai-startup-acc-sub003/internal/application/integration"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/finance"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/integration"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/cache"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/crypto"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MockAggregationClient is a mock implementation of integration.AccountAggregationClient
type MockAggregationClient struct {
	mock.Mock
}

func (m *MockAggregationClient) CreateLinkSession(ctx context.Context, userID string) (*integration.LinkSession, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.LinkSession), args.Error(1)
}

func (m *MockAggregationClient) ExchangePublicToken(ctx context.Context, publicToken string) (*integration.TokenExchange, error) {
	args := m.Called(ctx, publicToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.TokenExchange), args.Error(1)
}

func (m *MockAggregationClient) FetchItem(ctx context.Context, accessToken string) (*integration.ItemInfo, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.ItemInfo), args.Error(1)
}

func (m *MockAggregationClient) FetchInstitutionName(ctx context.Context, institutionID string) (string, error) {
	args := m.Called(ctx, institutionID)
	return args.String(0), args.Error(1)
}

func (m *MockAggregationClient) FetchAccounts(ctx context.Context, accessToken string) ([]integration.AggregatedAccount, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.AggregatedAccount), args.Error(1)
}

func (m *MockAggregationClient) FetchTransactions(ctx context.Context, accessToken string, query integration.TransactionQuery) (*integration.TransactionPage, error) {
	args := m.Called(ctx, accessToken, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.TransactionPage), args.Error(1)
}

func (m *MockAggregationClient) RevokeItem(ctx context.Context, accessToken string) error {
	args := m.Called(ctx, accessToken)
	return args.Error(0)
}

const testAccessToken = "access-sandbox-0001"

type bankingFixture struct {
	db       *gorm.DB
	client   *MockAggregationClient
	vault    *crypto.Vault
	items    *persistence.GormConnectionItemRepository
	svc      *appintegration.BankingSyncService
	tenantID uuid.UUID
	userID   uuid.UUID
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	d, err := persistence.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d.DB
}

func newTestVault(t *testing.T) *crypto.Vault {
	t.Helper()
	vault, err := crypto.NewVault("correct horse battery staple")
	require.NoError(t, err)
	return vault
}

func newBankingFixture(t *testing.T) *bankingFixture {
	t.Helper()
	db := newTestDB(t)
	dedup := cache.NewInMemoryDeliveryStore(time.Minute)
	t.Cleanup(func() { _ = dedup.Close() })

	f := &bankingFixture{
		db:       db,
		client:   new(MockAggregationClient),
		vault:    newTestVault(t),
		items:    persistence.NewGormConnectionItemRepository(db),
		tenantID: uuid.New(),
		userID:   uuid.New(),
	}
	f.svc = appintegration.NewBankingSyncService(appintegration.BankingSyncDeps{
		Items:      f.items,
		Accounts:   persistence.NewGormAccountRepository(db),
		Categories: persistence.NewGormCategoryRepository(db),
		Reconciler: persistence.NewGormReconciler(db),
		Client:     f.client,
		Vault:      f.vault,
		Dedup:      dedup,
	}, appintegration.BankingSyncConfig{PageSize: 2}, zap.NewNop())
	return f
}

func remoteAccounts() []integration.AggregatedAccount {
	return []integration.AggregatedAccount{
		{ExternalID: "acc-checking", Name: "Checking", CurrentBalance: decimal.NewNullDecimal(decimal.RequireFromString("1200.50")), Currency: "usd"},
		{ExternalID: "acc-savings", Name: "Savings", CurrentBalance: decimal.NewNullDecimal(decimal.NewFromInt(5000)), Currency: "usd"},
	}
}

// link runs a successful exchange for externalItemID and returns the new item id
func (f *bankingFixture) link(t *testing.T, externalItemID string) uuid.UUID {
	t.Helper()
	f.client.On("ExchangePublicToken", mock.Anything, "public-"+externalItemID).
		Return(&integration.TokenExchange{AccessToken: testAccessToken, ExternalItemID: externalItemID}, nil).Once()
	f.client.On("FetchItem", mock.Anything, testAccessToken).
		Return(&integration.ItemInfo{ExternalItemID: externalItemID, InstitutionID: "ins_1"}, nil).Once()
	f.client.On("FetchInstitutionName", mock.Anything, "ins_1").Return("First Platypus Bank", nil).Once()
	f.client.On("FetchAccounts", mock.Anything, testAccessToken).Return(remoteAccounts(), nil).Once()

	result, err := f.svc.ExchangePublicToken(context.Background(), f.tenantID, appintegration.ExchangePublicTokenRequest{
		PublicToken: "public-" + externalItemID,
		UserID:      f.userID,
	})
	require.NoError(t, err)
	return result.ConnectionItemID
}

func atOffset(offset int) any {
	return mock.MatchedBy(func(q integration.TransactionQuery) bool { return q.Offset == offset })
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestBankingSyncService_CreateLinkToken(t *testing.T) {
	f := newBankingFixture(t)
	session := &integration.LinkSession{Token: "link-sandbox-1", Expiration: time.Now().Add(4 * time.Hour)}
	f.client.On("CreateLinkSession", mock.Anything, f.userID.String()).Return(session, nil)

	got, err := f.svc.CreateLinkToken(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, "link-sandbox-1", got.Token)

	_, err = f.svc.CreateLinkToken(context.Background(), uuid.Nil)
	assert.True(t, shared.IsValidation(err))
}

func TestBankingSyncService_ExchangePublicToken(t *testing.T) {
	f := newBankingFixture(t)
	ctx := context.Background()

	itemID := f.link(t, "item-1")

	item, err := f.items.FindByIDForTenant(ctx, f.tenantID, itemID)
	require.NoError(t, err)
	assert.Equal(t, integration.ProviderKindAggregator, item.Kind)
	assert.Equal(t, "First Platypus Bank", item.InstitutionName)
	assert.Equal(t, "ins_1", item.InstitutionID)
	assert.NotContains(t, item.Credential.Ciphertext, testAccessToken)

	plaintext, err := f.vault.Decrypt(item.Credential)
	require.NoError(t, err)
	assert.Equal(t, testAccessToken, plaintext)

	accounts, err := persistence.NewGormAccountRepository(f.db).FindByConnectionItem(ctx, itemID)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	f.client.AssertExpectations(t)
}

func TestBankingSyncService_ExchangePublicToken_AlreadyLinked(t *testing.T) {
	f := newBankingFixture(t)
	f.link(t, "item-1")

	f.client.On("ExchangePublicToken", mock.Anything, "public-again").
		Return(&integration.TokenExchange{AccessToken: "access-2", ExternalItemID: "item-1"}, nil).Once()

	_, err := f.svc.ExchangePublicToken(context.Background(), f.tenantID, appintegration.ExchangePublicTokenRequest{
		PublicToken: "public-again",
		UserID:      f.userID,
	})
	assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
	assert.EqualValues(t, 1, countRows(t, f.db, &integration.ConnectionItem{}))
}

func TestBankingSyncService_ExchangePublicToken_AccountSyncFailureKeepsItem(t *testing.T) {
	f := newBankingFixture(t)
	f.client.On("ExchangePublicToken", mock.Anything, "public-1").
		Return(&integration.TokenExchange{AccessToken: testAccessToken, ExternalItemID: "item-1"}, nil)
	f.client.On("FetchItem", mock.Anything, testAccessToken).Return(nil, errors.New("timeout"))
	f.client.On("FetchAccounts", mock.Anything, testAccessToken).
		Return(nil, shared.NewProviderError("plaid", "accounts_get", errors.New("ITEM_LOGIN_REQUIRED")))

	result, err := f.svc.ExchangePublicToken(context.Background(), f.tenantID, appintegration.ExchangePublicTokenRequest{
		PublicToken: "public-1",
		UserID:      f.userID,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.AccountsSynced)
	assert.Equal(t, "Unknown Institution", result.InstitutionName)
	assert.EqualValues(t, 1, countRows(t, f.db, &integration.ConnectionItem{}))
	f.client.AssertNotCalled(t, "FetchInstitutionName", mock.Anything, mock.Anything)
}

type failingVault struct{}

func (failingVault) Encrypt(string) (integration.Credential, error) {
	return integration.Credential{}, &shared.EncryptionError{Op: "encrypt", Err: errors.New("key unavailable")}
}

func (failingVault) Decrypt(integration.Credential) (string, error) {
	return "", &shared.EncryptionError{Op: "decrypt", Err: errors.New("key unavailable")}
}

func TestBankingSyncService_ExchangePublicToken_RevokesUnstoredToken(t *testing.T) {
	exchangeOnly := func(f *bankingFixture) {
		f.client.On("ExchangePublicToken", mock.Anything, "public-1").
			Return(&integration.TokenExchange{AccessToken: testAccessToken, ExternalItemID: "item-1"}, nil).Once()
		f.client.On("FetchItem", mock.Anything, testAccessToken).Return(nil, errors.New("timeout")).Once()
	}

	t.Run("encryption failure", func(t *testing.T) {
		f := newBankingFixture(t)
		exchangeOnly(f)
		f.client.On("RevokeItem", mock.Anything, testAccessToken).Return(nil).Once()
		dedup := cache.NewInMemoryDeliveryStore(time.Minute)
		t.Cleanup(func() { _ = dedup.Close() })
		svc := appintegration.NewBankingSyncService(appintegration.BankingSyncDeps{
			Items:      f.items,
			Accounts:   persistence.NewGormAccountRepository(f.db),
			Categories: persistence.NewGormCategoryRepository(f.db),
			Reconciler: persistence.NewGormReconciler(f.db),
			Client:     f.client,
			Vault:      failingVault{},
			Dedup:      dedup,
		}, appintegration.BankingSyncConfig{PageSize: 2}, zap.NewNop())

		_, err := svc.ExchangePublicToken(context.Background(), f.tenantID, appintegration.ExchangePublicTokenRequest{
			PublicToken: "public-1",
			UserID:      f.userID,
		})
		assert.True(t, shared.IsEncryptionError(err))
		assert.EqualValues(t, 0, countRows(t, f.db, &integration.ConnectionItem{}))
		f.client.AssertExpectations(t)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newBankingFixture(t)
		exchangeOnly(f)
		f.client.On("RevokeItem", mock.Anything, testAccessToken).Return(errors.New("provider down")).Once()
		require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_items",
			func(tx *gorm.DB) {
				if tx.Statement.Table == "connection_items" {
					_ = tx.AddError(errors.New("disk full"))
				}
			}))

		_, err := f.svc.ExchangePublicToken(context.Background(), f.tenantID, appintegration.ExchangePublicTokenRequest{
			PublicToken: "public-1",
			UserID:      f.userID,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		f.client.AssertExpectations(t)
	})
}

func TestBankingSyncService_SyncAccounts_OverwritesBalances(t *testing.T) {
	f := newBankingFixture(t)
	itemID := f.link(t, "item-1")

	updated := remoteAccounts()
	updated[0].CurrentBalance = decimal.NewNullDecimal(decimal.NewFromInt(10))
	f.client.On("FetchAccounts", mock.Anything, testAccessToken).Return(updated, nil).Once()

	result, err := f.svc.SyncAccounts(context.Background(), f.tenantID, itemID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Counts.Created)
	assert.Equal(t, 2, result.Counts.Updated)
	require.Len(t, result.Accounts, 2)
	for _, a := range result.Accounts {
		if *a.ExternalID == "acc-checking" {
			assert.True(t, a.Balance.Equal(decimal.NewFromInt(10)))
		}
	}
	assert.EqualValues(t, 2, countRows(t, f.db, &finance.Account{}))
}

func TestBankingSyncService_SyncTransactions_PaginatesAndSkipsUnknownAccounts(t *testing.T) {
	f := newBankingFixture(t)
	ctx := context.Background()
	itemID := f.link(t, "item-1")

	firstPage := &integration.TransactionPage{
		TotalTransactions: 3,
		Transactions: []integration.AggregatedTransaction{
			{ExternalID: "tx-1", ExternalAccountID: "acc-checking", Amount: decimal.RequireFromString("12.50"), Date: "2026-04-02", Name: "Coffee"},
			{ExternalID: "tx-2", ExternalAccountID: "acc-savings", Amount: decimal.NewFromInt(-300), Date: "2026-04-03", Name: "Payroll"},
		},
	}
	secondPage := &integration.TransactionPage{
		TotalTransactions: 3,
		Transactions: []integration.AggregatedTransaction{
			{ExternalID: "tx-3", ExternalAccountID: "acc-closed", Amount: decimal.NewFromInt(5), Date: "2026-04-04"},
		},
	}
	f.client.On("FetchTransactions", mock.Anything, testAccessToken, atOffset(0)).Return(firstPage, nil)
	f.client.On("FetchTransactions", mock.Anything, testAccessToken, atOffset(2)).Return(secondPage, nil)

	req := appintegration.SyncTransactionsRequest{StartDate: "2026-04-01", EndDate: "2026-04-30"}
	result, err := f.svc.SyncTransactions(ctx, f.tenantID, itemID, req)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SyncedCount)
	assert.Equal(t, 3, result.TotalTransactions)
	assert.Equal(t, 1, result.Counts.Skipped)
	assert.Equal(t, 2, result.Counts.Created)
	assert.Equal(t, "2026-04-01", result.StartDate)
	assert.Equal(t, "2026-04-30", result.EndDate)

	// replaying the same payload converges
	again, err := f.svc.SyncTransactions(ctx, f.tenantID, itemID, req)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Counts.Created)
	assert.Equal(t, 2, again.Counts.Updated)
	assert.EqualValues(t, 2, countRows(t, f.db, &finance.Transaction{}))

	var payroll finance.Transaction
	require.NoError(t, f.db.Where("external_id = ?", "tx-2").First(&payroll).Error)
	assert.Equal(t, finance.TransactionTypeCredit, payroll.Type)
	assert.True(t, payroll.Amount.Equal(decimal.NewFromInt(300)))

	item, err := f.items.FindByID(ctx, itemID)
	require.NoError(t, err)
	assert.NotNil(t, item.LastSyncedAt)
}

func TestBankingSyncService_SyncTransactions_DefaultWindow(t *testing.T) {
	f := newBankingFixture(t)
	itemID := f.link(t, "item-1")

	thirtyDays := mock.MatchedBy(func(q integration.TransactionQuery) bool {
		return q.Window.End.Sub(q.Window.Start) == 30*24*time.Hour && q.Count == 2
	})
	f.client.On("FetchTransactions", mock.Anything, testAccessToken, thirtyDays).
		Return(&integration.TransactionPage{}, nil).Once()

	result, err := f.svc.SyncTransactions(context.Background(), f.tenantID, itemID, appintegration.SyncTransactionsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.SyncedCount)
	f.client.AssertExpectations(t)
}

func TestBankingSyncService_SyncTransactions_ResolvesCategory(t *testing.T) {
	f := newBankingFixture(t)
	ctx := context.Background()
	itemID := f.link(t, "item-1")

	food, err := finance.NewCategory(f.tenantID, "Food and Drink")
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormCategoryRepository(f.db).Create(ctx, food))

	f.client.On("FetchTransactions", mock.Anything, testAccessToken, atOffset(0)).Return(&integration.TransactionPage{
		TotalTransactions: 1,
		Transactions: []integration.AggregatedTransaction{
			{ExternalID: "tx-1", ExternalAccountID: "acc-checking", Amount: decimal.NewFromInt(9), Date: "2026-04-02", Categories: []string{"food", "Coffee Shop"}},
		},
	}, nil)

	_, err = f.svc.SyncTransactions(ctx, f.tenantID, itemID, appintegration.SyncTransactionsRequest{})
	require.NoError(t, err)

	var tx finance.Transaction
	require.NoError(t, f.db.Where("external_id = ?", "tx-1").First(&tx).Error)
	require.NotNil(t, tx.CategoryID)
	assert.Equal(t, food.ID, *tx.CategoryID)
}

func TestBankingSyncService_SyncTransactions_SyncsAccountsFirstWhenNoneKnown(t *testing.T) {
	f := newBankingFixture(t)
	ctx := context.Background()
	f.client.On("ExchangePublicToken", mock.Anything, "public-1").
		Return(&integration.TokenExchange{AccessToken: testAccessToken, ExternalItemID: "item-1"}, nil)
	f.client.On("FetchItem", mock.Anything, testAccessToken).Return(&integration.ItemInfo{ExternalItemID: "item-1"}, nil)
	f.client.On("FetchAccounts", mock.Anything, testAccessToken).Return(nil, errors.New("not ready")).Once()

	linked, err := f.svc.ExchangePublicToken(ctx, f.tenantID, appintegration.ExchangePublicTokenRequest{PublicToken: "public-1", UserID: f.userID})
	require.NoError(t, err)

	f.client.On("FetchAccounts", mock.Anything, testAccessToken).Return(remoteAccounts(), nil).Once()
	f.client.On("FetchTransactions", mock.Anything, testAccessToken, atOffset(0)).Return(&integration.TransactionPage{
		TotalTransactions: 1,
		Transactions: []integration.AggregatedTransaction{
			{ExternalID: "tx-1", ExternalAccountID: "acc-savings", Amount: decimal.NewFromInt(1), Date: "2026-04-02"},
		},
	}, nil)

	result, err := f.svc.SyncTransactions(ctx, f.tenantID, linked.ConnectionItemID, appintegration.SyncTransactionsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SyncedCount)
	assert.Equal(t, 0, result.Counts.Skipped)
}

func TestBankingSyncService_SyncTransactions_Errors(t *testing.T) {
	f := newBankingFixture(t)
	ctx := context.Background()
	itemID := f.link(t, "item-1")

	tests := []struct {
		name  string
		req   appintegration.SyncTransactionsRequest
		check func(error) bool
	}{
		{"start without end", appintegration.SyncTransactionsRequest{StartDate: "2026-04-01"}, shared.IsValidation},
		{"start after end", appintegration.SyncTransactionsRequest{StartDate: "2026-05-01", EndDate: "2026-04-01"}, shared.IsValidation},
		{"malformed date", appintegration.SyncTransactionsRequest{StartDate: "04/01/2026", EndDate: "2026-04-30"}, shared.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SyncTransactions(ctx, f.tenantID, itemID, tt.req)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}

	t.Run("other tenant", func(t *testing.T) {
		_, err := f.svc.SyncTransactions(ctx, uuid.New(), itemID, appintegration.SyncTransactionsRequest{})
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("provider failure propagates", func(t *testing.T) {
		f.client.On("FetchTransactions", mock.Anything, testAccessToken, mock.Anything).
			Return(nil, &shared.ProviderError{Provider: "plaid", Operation: "transactions_get", Retryable: true}).Once()
		_, err := f.svc.SyncTransactions(ctx, f.tenantID, itemID, appintegration.SyncTransactionsRequest{})
		assert.True(t, shared.IsProviderError(err))

		item, findErr := f.items.FindByID(ctx, itemID)
		require.NoError(t, findErr)
		assert.Nil(t, item.LastSyncedAt)
	})
}

func TestBankingSyncService_ListConnectionItems(t *testing.T) {
	f := newBankingFixture(t)
	itemID := f.link(t, "item-1")

	items, err := f.svc.ListConnectionItems(context.Background(), f.tenantID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, itemID, items[0].ID)

	others, err := f.svc.ListConnectionItems(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestBankingSyncService_DeleteConnectionItem(t *testing.T) {
	t.Run("revoke failure does not block local delete", func(t *testing.T) {
		f := newBankingFixture(t)
		itemID := f.link(t, "item-1")
		f.client.On("RevokeItem", mock.Anything, testAccessToken).Return(errors.New("provider down")).Once()

		require.NoError(t, f.svc.DeleteConnectionItem(context.Background(), f.tenantID, f.userID, itemID))
		assert.EqualValues(t, 0, countRows(t, f.db, &integration.ConnectionItem{}))
		assert.EqualValues(t, 0, countRows(t, f.db, &finance.Account{}))
		f.client.AssertExpectations(t)
	})

	t.Run("another user cannot delete", func(t *testing.T) {
		f := newBankingFixture(t)
		itemID := f.link(t, "item-1")

		err := f.svc.DeleteConnectionItem(context.Background(), f.tenantID, uuid.New(), itemID)
		assert.True(t, shared.IsNotFound(err))
		assert.EqualValues(t, 1, countRows(t, f.db, &integration.ConnectionItem{}))
		f.client.AssertNotCalled(t, "RevokeItem", mock.Anything, mock.Anything)
	})

	t.Run("processor items are not revoked remotely", func(t *testing.T) {
		f := newBankingFixture(t)
		credential, err := f.vault.Encrypt("sk_test_123")
		require.NoError(t, err)
		item, err := integration.NewConnectionItem(f.tenantID, f.userID, integration.ProviderKindPaymentProcessor, "acct_1", "Acme", credential)
		require.NoError(t, err)
		require.NoError(t, f.items.Create(context.Background(), item))

		require.NoError(t, f.svc.DeleteConnectionItem(context.Background(), f.tenantID, f.userID, item.ID))
		f.client.AssertNotCalled(t, "RevokeItem", mock.Anything, mock.Anything)
	})
}

func TestBankingSyncService_HandleWebhook(t *testing.T) {
	f := newBankingFixture(t)
	ctx := context.Background()
	f.link(t, "item-1")

	update := appintegration.PlaidWebhook{
		WebhookType:     "TRANSACTIONS",
		WebhookCode:     "DEFAULT_UPDATE",
		ItemID:          "item-1",
		NewTransactions: 1,
	}

	t.Run("failed sync is not remembered", func(t *testing.T) {
		f.client.On("FetchTransactions", mock.Anything, testAccessToken, mock.Anything).
			Return(nil, errors.New("rate limited")).Once()
		_, err := f.svc.HandleWebhook(ctx, update)
		assert.Error(t, err)
	})

	t.Run("update triggers a resync", func(t *testing.T) {
		f.client.On("FetchTransactions", mock.Anything, testAccessToken, atOffset(0)).Return(&integration.TransactionPage{
			TotalTransactions: 1,
			Transactions: []integration.AggregatedTransaction{
				{ExternalID: "tx-9", ExternalAccountID: "acc-checking", Amount: decimal.NewFromInt(4), Date: "2026-04-05"},
			},
		}, nil).Once()

		outcome, err := f.svc.HandleWebhook(ctx, update)
		require.NoError(t, err)
		assert.Equal(t, appintegration.WebhookActionSynced, outcome.Action)
		require.NotNil(t, outcome.Result)
		assert.Equal(t, 1, outcome.Result.SyncedCount)
	})

	t.Run("redelivery is dropped", func(t *testing.T) {
		outcome, err := f.svc.HandleWebhook(ctx, update)
		require.NoError(t, err)
		assert.Equal(t, appintegration.WebhookActionDuplicate, outcome.Action)
	})

	tests := []struct {
		name   string
		hook   appintegration.PlaidWebhook
		action appintegration.WebhookAction
	}{
		{"unknown item", appintegration.PlaidWebhook{WebhookType: "TRANSACTIONS", WebhookCode: "DEFAULT_UPDATE", ItemID: "item-x"}, appintegration.WebhookActionIgnored},
		{"removal code", appintegration.PlaidWebhook{WebhookType: "TRANSACTIONS", WebhookCode: "TRANSACTIONS_REMOVED", ItemID: "item-1"}, appintegration.WebhookActionIgnored},
		{"item error", appintegration.PlaidWebhook{WebhookType: "ITEM", WebhookCode: "ERROR", ItemID: "item-1", Error: &appintegration.WebhookError{ErrorCode: "ITEM_LOGIN_REQUIRED"}}, appintegration.WebhookActionLogged},
		{"other type", appintegration.PlaidWebhook{WebhookType: "AUTH", WebhookCode: "AUTOMATICALLY_VERIFIED"}, appintegration.WebhookActionIgnored},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := f.svc.HandleWebhook(ctx, tt.hook)
			require.NoError(t, err)
			assert.Equal(t, tt.action, outcome.Action)
		})
	}
	f.client.AssertExpectations(t)
}
