package integration_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	appintegration "github.com/g-aniketh/coxistai-startup-acc-sub003/internal/application/integration"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/integration"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/crypto"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

// fakeProcessor serves fixed pages per resource. Cursors are "page_<n>".
type fakeProcessor struct {
	identity      *integration.ProcessorAccountIdentity
	customers     [][]integration.ProcessorCustomer
	subscriptions [][]integration.ProcessorSubscription
	invoices      [][]integration.ProcessorInvoice
	charges       [][]integration.ProcessorCharge
	failing       integration.ProcessorResource
	keys          []string
	requests      []integration.PageRequest
}

func servePage[T any](f *fakeProcessor, resource integration.ProcessorResource, pages [][]T, key string, req integration.PageRequest) (*integration.Page[T], error) {
	f.keys = append(f.keys, key)
	f.requests = append(f.requests, req)
	if f.failing == resource {
		return nil, &shared.ProviderError{Provider: "stripe", Operation: "list_" + string(resource), StatusCode: 500}
	}
	idx := 0
	if req.Cursor != "" {
		idx, _ = strconv.Atoi(strings.TrimPrefix(req.Cursor, "page_"))
	}
	if idx >= len(pages) {
		return &integration.Page[T]{}, nil
	}
	page := &integration.Page[T]{Items: pages[idx]}
	if idx+1 < len(pages) {
		page.HasMore = true
		page.NextCursor = fmt.Sprintf("page_%d", idx+1)
	}
	return page, nil
}

func (f *fakeProcessor) FetchAccountIdentity(_ context.Context, secretKey string) (*integration.ProcessorAccountIdentity, error) {
	f.keys = append(f.keys, secretKey)
	if f.identity == nil {
		return nil, &shared.ProviderError{Provider: "stripe", Operation: "account_get", ProviderCode: "api_key_expired", StatusCode: 401}
	}
	return f.identity, nil
}

func (f *fakeProcessor) ListCustomers(_ context.Context, key string, req integration.PageRequest) (*integration.Page[integration.ProcessorCustomer], error) {
	return servePage(f, integration.ProcessorResourceCustomers, f.customers, key, req)
}

func (f *fakeProcessor) ListSubscriptions(_ context.Context, key string, req integration.PageRequest) (*integration.Page[integration.ProcessorSubscription], error) {
	return servePage(f, integration.ProcessorResourceSubscriptions, f.subscriptions, key, req)
}

func (f *fakeProcessor) ListInvoices(_ context.Context, key string, req integration.PageRequest) (*integration.Page[integration.ProcessorInvoice], error) {
	return servePage(f, integration.ProcessorResourceInvoices, f.invoices, key, req)
}

func (f *fakeProcessor) ListCharges(_ context.Context, key string, req integration.PageRequest) (*integration.Page[integration.ProcessorCharge], error) {
	return servePage(f, integration.ProcessorResourcePayments, f.charges, key, req)
}

const testSecretKey = "sk_test_4eC39HqLyjWDarjtT1zdp7dc"

type processorFixture struct {
	db       *gorm.DB
	client   *fakeProcessor
	vault    *crypto.Vault
	items    *persistence.GormConnectionItemRepository
	svc      *appintegration.ProcessorSyncService
	tenantID uuid.UUID
	userID   uuid.UUID
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	db := newTestDB(t)
	f := &processorFixture{
		db:       db,
		client:   newFakeProcessor(),
		vault:    newTestVault(t),
		items:    persistence.NewGormConnectionItemRepository(db),
		tenantID: uuid.New(),
		userID:   uuid.New(),
	}
	f.svc = appintegration.NewProcessorSyncService(appintegration.ProcessorSyncDeps{
		Items:      f.items,
		Customers:  persistence.NewGormCustomerRepository(db),
		Reconciler: persistence.NewGormReconciler(db),
		Client:     f.client,
		Vault:      f.vault,
	}, 0, zap.NewNop())
	return f
}

func newFakeProcessor() *fakeProcessor {
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return &fakeProcessor{
		identity: &integration.ProcessorAccountIdentity{ExternalID: "acct_1", DisplayName: "Acme Robotics", DefaultCurrency: "usd"},
		customers: [][]integration.ProcessorCustomer{
			{
				{ExternalID: "cus_1", Email: "ada@example.com", Name: "Ada", CreatedAt: created},
				{ExternalID: "cus_2", Email: "grace@example.com", Name: "Grace", CreatedAt: created},
			},
			{
				{ExternalID: "cus_3", Email: "alan@example.com", Name: "Alan", CreatedAt: created},
			},
		},
		subscriptions: [][]integration.ProcessorSubscription{{
			{ExternalID: "sub_1", CustomerExternalID: "cus_1", Status: "active", Amount: decimal.NewFromInt(49), Currency: "usd", Interval: "month", CreatedAt: created},
			{ExternalID: "sub_orphan", CustomerExternalID: "cus_deleted", Status: "active", Amount: decimal.NewFromInt(9), Currency: "usd", Interval: "month", CreatedAt: created},
		}},
		invoices: [][]integration.ProcessorInvoice{{
			{ExternalID: "in_1", CustomerExternalID: "cus_1", SubscriptionExternalID: "sub_1", Status: "paid", AmountDue: decimal.NewFromInt(49), AmountPaid: decimal.NewFromInt(49), Currency: "usd", CreatedAt: created},
		}},
		charges: [][]integration.ProcessorCharge{
			{{ExternalID: "ch_1", CustomerExternalID: "cus_1", InvoiceExternalID: "in_1", Status: "succeeded", Amount: decimal.NewFromInt(49), Currency: "usd", Paid: true, CreatedAt: created}},
			{{ExternalID: "ch_2", CustomerExternalID: "cus_2", Status: "succeeded", Amount: decimal.NewFromInt(15), Currency: "usd", Paid: true, CreatedAt: created}},
		},
	}
}

func (f *processorFixture) connect(t *testing.T) uuid.UUID {
	t.Helper()
	item, err := f.svc.ConnectPaymentProcessor(context.Background(), f.tenantID, appintegration.ConnectPaymentProcessorRequest{
		APIKey: testSecretKey,
		UserID: f.userID,
	})
	require.NoError(t, err)
	return item.ID
}

func TestProcessorSyncService_ConnectPaymentProcessor(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	itemID := f.connect(t)

	item, err := f.items.FindByIDForTenant(ctx, f.tenantID, itemID)
	require.NoError(t, err)
	assert.Equal(t, integration.ProviderKindPaymentProcessor, item.Kind)
	assert.Equal(t, "acct_1", item.ExternalItemID)
	assert.Equal(t, "Acme Robotics", item.InstitutionName)
	assert.NotContains(t, item.Credential.Ciphertext, testSecretKey)

	key, err := f.vault.Decrypt(item.Credential)
	require.NoError(t, err)
	assert.Equal(t, testSecretKey, key)

	_, err = f.svc.ConnectPaymentProcessor(ctx, f.tenantID, appintegration.ConnectPaymentProcessorRequest{APIKey: testSecretKey, UserID: f.userID})
	assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
}

func TestProcessorSyncService_ConnectPaymentProcessor_Rejected(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	_, err := f.svc.ConnectPaymentProcessor(ctx, f.tenantID, appintegration.ConnectPaymentProcessorRequest{UserID: f.userID})
	assert.True(t, shared.IsValidation(err))

	f.client.identity = nil
	_, err = f.svc.ConnectPaymentProcessor(ctx, f.tenantID, appintegration.ConnectPaymentProcessorRequest{APIKey: "sk_test_revoked", UserID: f.userID})
	assert.True(t, shared.IsProviderError(err))
	assert.EqualValues(t, 0, countRows(t, f.db, &integration.ConnectionItem{}))
}

func TestProcessorSyncService_FullSync(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()
	itemID := f.connect(t)

	report, err := f.svc.FullPaymentProcessorSync(ctx, f.tenantID, itemID)
	require.NoError(t, err)
	require.True(t, report.Succeeded())
	require.Len(t, report.Resources, 4)
	for i, resource := range integration.ProcessorSyncOrder {
		assert.Equal(t, resource, report.Resources[i].Resource)
	}

	customers, _ := report.Resource(integration.ProcessorResourceCustomers)
	assert.Equal(t, 3, customers.Counts.Created)
	subscriptions, _ := report.Resource(integration.ProcessorResourceSubscriptions)
	assert.Equal(t, 1, subscriptions.Counts.Created)
	assert.Equal(t, 1, subscriptions.Counts.Skipped)
	payments, _ := report.Resource(integration.ProcessorResourcePayments)
	assert.Equal(t, 2, payments.Counts.Created)

	assert.EqualValues(t, 3, countRows(t, f.db, &integration.Customer{}))
	assert.EqualValues(t, 1, countRows(t, f.db, &integration.Subscription{}))
	assert.EqualValues(t, 1, countRows(t, f.db, &integration.Invoice{}))
	assert.EqualValues(t, 2, countRows(t, f.db, &integration.Payment{}))

	for _, key := range f.client.keys {
		assert.Equal(t, testSecretKey, key)
	}
	for _, req := range f.client.requests {
		assert.EqualValues(t, integration.DefaultPageSize, req.Limit)
	}

	item, err := f.items.FindByID(ctx, itemID)
	require.NoError(t, err)
	assert.NotNil(t, item.LastSyncedAt)
}

func TestProcessorSyncService_FullSync_Idempotent(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()
	itemID := f.connect(t)

	_, err := f.svc.FullPaymentProcessorSync(ctx, f.tenantID, itemID)
	require.NoError(t, err)

	f.client.subscriptions[0][0].Status = "past_due"
	report, err := f.svc.FullPaymentProcessorSync(ctx, f.tenantID, itemID)
	require.NoError(t, err)

	customers, _ := report.Resource(integration.ProcessorResourceCustomers)
	assert.Equal(t, 0, customers.Counts.Created)
	assert.Equal(t, 3, customers.Counts.Updated)
	assert.EqualValues(t, 3, countRows(t, f.db, &integration.Customer{}))
	assert.EqualValues(t, 2, countRows(t, f.db, &integration.Payment{}))

	var sub integration.Subscription
	require.NoError(t, f.db.Where("external_id = ?", "sub_1").First(&sub).Error)
	assert.Equal(t, "past_due", sub.Status)
}

func TestProcessorSyncService_FullSync_IsolatesFailingResource(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()
	itemID := f.connect(t)
	f.client.failing = integration.ProcessorResourceInvoices

	report, err := f.svc.FullPaymentProcessorSync(ctx, f.tenantID, itemID)
	require.Error(t, err)
	require.NotNil(t, report)
	assert.True(t, shared.IsProviderError(err))
	assert.False(t, report.Succeeded())

	invoices, _ := report.Resource(integration.ProcessorResourceInvoices)
	assert.NotEmpty(t, invoices.Error)
	payments, _ := report.Resource(integration.ProcessorResourcePayments)
	assert.Empty(t, payments.Error)
	assert.Equal(t, 2, payments.Counts.Created)

	item, err := f.items.FindByID(ctx, itemID)
	require.NoError(t, err)
	assert.Nil(t, item.LastSyncedAt)
}

func TestProcessorSyncService_FullSync_CustomerFailureSkipsDependents(t *testing.T) {
	f := newProcessorFixture(t)
	itemID := f.connect(t)
	f.client.failing = integration.ProcessorResourceCustomers

	report, err := f.svc.FullPaymentProcessorSync(context.Background(), f.tenantID, itemID)
	require.Error(t, err)

	subscriptions, _ := report.Resource(integration.ProcessorResourceSubscriptions)
	assert.Empty(t, subscriptions.Error)
	assert.Equal(t, 2, subscriptions.Counts.Skipped)
	assert.EqualValues(t, 0, countRows(t, f.db, &integration.Subscription{}))
}

func TestProcessorSyncService_FullSync_RejectsWrongItem(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	credential, err := f.vault.Encrypt("access-sandbox")
	require.NoError(t, err)
	bank, err := integration.NewConnectionItem(f.tenantID, f.userID, integration.ProviderKindAggregator, "item-1", "Bank", credential)
	require.NoError(t, err)
	require.NoError(t, f.items.Create(ctx, bank))

	_, err = f.svc.FullPaymentProcessorSync(ctx, f.tenantID, bank.ID)
	assert.True(t, shared.IsValidation(err))

	_, err = f.svc.FullPaymentProcessorSync(ctx, f.tenantID, uuid.New())
	assert.True(t, shared.IsNotFound(err))
}

func TestProcessorSyncService_FullSync_UndecryptableCredential(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	otherVault, err := crypto.NewVault("a different passphrase entirely")
	require.NoError(t, err)
	credential, err := otherVault.Encrypt(testSecretKey)
	require.NoError(t, err)
	item, err := integration.NewConnectionItem(f.tenantID, f.userID, integration.ProviderKindPaymentProcessor, "acct_1", "Acme", credential)
	require.NoError(t, err)
	require.NoError(t, f.items.Create(ctx, item))

	core, logs := observer.New(zapcore.ErrorLevel)
	svc := appintegration.NewProcessorSyncService(appintegration.ProcessorSyncDeps{
		Items:      f.items,
		Customers:  persistence.NewGormCustomerRepository(f.db),
		Reconciler: persistence.NewGormReconciler(f.db),
		Client:     f.client,
		Vault:      f.vault,
	}, 0, zap.New(core))

	report, err := svc.FullPaymentProcessorSync(ctx, f.tenantID, item.ID)
	assert.Nil(t, report)
	assert.True(t, shared.IsEncryptionError(err))

	entries := logs.FilterMessage("Stored credential cannot be decrypted").All()
	require.Len(t, entries, 1)
	assert.Equal(t, item.ID.String(), entries[0].ContextMap()["connection_item_id"])
	assert.NotContains(t, fmt.Sprint(entries[0].ContextMap()), testSecretKey)
}
