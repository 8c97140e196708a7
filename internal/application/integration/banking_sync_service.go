package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/finance"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/integration"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Defaults for BankingSyncConfig
const (
	DefaultWindowDays     = 30
	DefaultTransactionCap = 100
)

// BankingSyncConfig tunes the aggregator sync
type BankingSyncConfig struct {
	// DefaultWindowDays is the trailing window used when no dates are given
	DefaultWindowDays int
	// PageSize is the number of transactions requested per provider call
	PageSize int
	// WebhookDedupTTL is how long a webhook delivery is remembered
	WebhookDedupTTL time.Duration
}

func (c BankingSyncConfig) withDefaults() BankingSyncConfig {
	if c.DefaultWindowDays <= 0 {
		c.DefaultWindowDays = DefaultWindowDays
	}
	if c.PageSize <= 0 || c.PageSize > 500 {
		c.PageSize = DefaultTransactionCap
	}
	if c.WebhookDedupTTL <= 0 {
		c.WebhookDedupTTL = shared.DefaultDeduplicationConfig().TTL
	}
	return c
}

// BankingSyncService mirrors aggregator items, accounts and transactions locally
type BankingSyncService struct {
	items      integration.ConnectionItemRepository
	accounts   finance.AccountRepository
	categories finance.CategoryRepository
	reconciler shared.Reconciler
	client     integration.AccountAggregationClient
	vault      integration.CredentialVault
	dedup      shared.DeliveryDeduplicator
	config     BankingSyncConfig
	logger     *zap.Logger
	now        func() time.Time
}

// BankingSyncDeps groups the collaborators of BankingSyncService
type BankingSyncDeps struct {
	Items      integration.ConnectionItemRepository
	Accounts   finance.AccountRepository
	Categories finance.CategoryRepository
	Reconciler shared.Reconciler
	Client     integration.AccountAggregationClient
	Vault      integration.CredentialVault
	Dedup      shared.DeliveryDeduplicator
}

// NewBankingSyncService creates a new BankingSyncService
func NewBankingSyncService(deps BankingSyncDeps, cfg BankingSyncConfig, logger *zap.Logger) *BankingSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BankingSyncService{
		items:      deps.Items,
		accounts:   deps.Accounts,
		categories: deps.Categories,
		reconciler: deps.Reconciler,
		client:     deps.Client,
		vault:      deps.Vault,
		dedup:      deps.Dedup,
		config:     cfg.withDefaults(),
		logger:     logger.Named("banking_sync"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateLinkToken starts the aggregator link flow for userID
func (s *BankingSyncService) CreateLinkToken(ctx context.Context, userID uuid.UUID) (*integration.LinkSession, error) {
	if userID == uuid.Nil {
		return nil, shared.NewValidationError("user id is required")
	}
	return s.client.CreateLinkSession(ctx, userID.String())
}

// ExchangePublicToken trades the link flow's public token for a stored, encrypted
// access credential and syncs the new item's accounts.
func (s *BankingSyncService) ExchangePublicToken(ctx context.Context, tenantID uuid.UUID, req ExchangePublicTokenRequest) (*ExchangePublicTokenResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "banking_sync", "exchange_public_token",
		telemetry.SpanAttrTenantID, tenantID,
	)
	defer span.End()

	if req.PublicToken == "" {
		return nil, shared.NewValidationError("public token is required")
	}

	exchange, err := s.client.ExchangePublicToken(ctx, req.PublicToken)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if existing, err := s.items.FindByExternalItemID(ctx, integration.ProviderKindAggregator, exchange.ExternalItemID); err == nil {
		return nil, shared.NewDomainError(shared.CodeAlreadyExists,
			fmt.Sprintf("aggregator item is already linked as connection %s", existing.ID))
	} else if !shared.IsNotFound(err) {
		return nil, err
	}

	institutionID, institutionName := "", ""
	if info, err := s.client.FetchItem(ctx, exchange.AccessToken); err != nil {
		s.logger.Warn("Item lookup failed, continuing without institution", zap.Error(err))
	} else if info.InstitutionID != "" {
		institutionID = info.InstitutionID
		if name, err := s.client.FetchInstitutionName(ctx, info.InstitutionID); err != nil {
			s.logger.Warn("Institution lookup failed", zap.String("institution_id", info.InstitutionID), zap.Error(err))
		} else {
			institutionName = name
		}
	}

	credential, err := s.vault.Encrypt(exchange.AccessToken)
	if err != nil {
		telemetry.RecordError(span, err)
		s.revokeUnstored(ctx, exchange)
		return nil, err
	}

	item, err := integration.NewConnectionItem(tenantID, req.UserID, integration.ProviderKindAggregator,
		exchange.ExternalItemID, institutionName, credential)
	if err != nil {
		s.revokeUnstored(ctx, exchange)
		return nil, err
	}
	item.InstitutionID = institutionID
	if err := s.items.Create(ctx, item); err != nil {
		telemetry.RecordError(span, err)
		s.revokeUnstored(ctx, exchange)
		return nil, fmt.Errorf("store connection item: %w", err)
	}

	result := &ExchangePublicTokenResult{
		ConnectionItemID: item.ID,
		ExternalItemID:   item.ExternalItemID,
		InstitutionName:  item.InstitutionName,
	}

	// the item is usable even if the first account pull fails; it is retried on the next sync
	accounts, err := s.syncAccounts(ctx, item, exchange.AccessToken)
	if err != nil {
		s.logger.Warn("Initial account sync failed",
			zap.String("connection_item_id", item.ID.String()),
			zap.Error(err),
		)
	} else {
		result.AccountsSynced = accounts.Counts.Synced()
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrConnectionItemID, item.ID)
	telemetry.SetOK(span)
	s.logger.Info("Aggregator item linked",
		zap.String("tenant_id", tenantID.String()),
		zap.String("connection_item_id", item.ID.String()),
		zap.String("institution", item.InstitutionName),
		zap.Int("accounts", result.AccountsSynced),
	)
	return result, nil
}

// SyncAccounts refreshes the accounts of one of the tenant's aggregator items
func (s *BankingSyncService) SyncAccounts(ctx context.Context, tenantID, itemID uuid.UUID) (*AccountSyncResult, error) {
	item, err := s.items.FindByIDForTenant(ctx, tenantID, itemID)
	if err != nil {
		return nil, err
	}
	accessToken, err := s.openAggregatorCredential(item)
	if err != nil {
		return nil, err
	}
	return s.syncAccounts(ctx, item, accessToken)
}

func (s *BankingSyncService) syncAccounts(ctx context.Context, item *integration.ConnectionItem, accessToken string) (*AccountSyncResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "banking_sync", "sync_accounts",
		telemetry.SpanAttrConnectionItemID, item.ID,
	)
	defer span.End()

	remote, err := s.client.FetchAccounts(ctx, accessToken)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &AccountSyncResult{ConnectionItemID: item.ID}
	for _, src := range remote {
		result.Counts.Fetched++
		account := finance.NewAggregatedAccount(item, src)
		outcome, err := s.reconciler.Upsert(ctx, account)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("reconcile account %s: %w", src.ExternalID, err)
		}
		countOutcome(&result.Counts, outcome)
	}

	accounts, err := s.accounts.FindByConnectionItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	result.Accounts = accounts

	telemetry.SetAttributes(span, telemetry.SpanAttrSyncedCount, result.Counts.Synced())
	telemetry.SetOK(span)
	return result, nil
}

// SyncTransactions pulls one of the tenant's aggregator items' transactions over
// [start, end], or the default trailing window when req has no dates.
func (s *BankingSyncService) SyncTransactions(ctx context.Context, tenantID, itemID uuid.UUID, req SyncTransactionsRequest) (*integration.TransactionSyncResult, error) {
	window, err := s.resolveWindow(req)
	if err != nil {
		return nil, err
	}
	item, err := s.items.FindByIDForTenant(ctx, tenantID, itemID)
	if err != nil {
		return nil, err
	}
	return s.syncTransactions(ctx, item, window)
}

// SyncItemTransactions syncs any tenant's item over window. Used by the scheduler and webhooks.
func (s *BankingSyncService) SyncItemTransactions(ctx context.Context, itemID uuid.UUID, window integration.DateRange) (*integration.TransactionSyncResult, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return s.syncTransactions(ctx, item, window)
}

// ListAggregatorItems lists every aggregator item across tenants
func (s *BankingSyncService) ListAggregatorItems(ctx context.Context) ([]integration.ConnectionItem, error) {
	return s.items.FindAllByKind(ctx, integration.ProviderKindAggregator)
}

func (s *BankingSyncService) resolveWindow(req SyncTransactionsRequest) (integration.DateRange, error) {
	if req.StartDate == "" && req.EndDate == "" {
		return integration.TrailingDays(s.now(), s.config.DefaultWindowDays), nil
	}
	if req.StartDate == "" || req.EndDate == "" {
		return integration.DateRange{}, shared.NewValidationError("start_date and end_date must be given together")
	}
	start, err := time.Parse(integration.DateLayout, req.StartDate)
	if err != nil {
		return integration.DateRange{}, shared.NewValidationError("start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse(integration.DateLayout, req.EndDate)
	if err != nil {
		return integration.DateRange{}, shared.NewValidationError("end_date must be YYYY-MM-DD")
	}
	window := integration.NewDateRange(start, end)
	if !window.IsValid() {
		return integration.DateRange{}, shared.NewValidationError("start_date is after end_date")
	}
	return window, nil
}

func (s *BankingSyncService) syncTransactions(ctx context.Context, item *integration.ConnectionItem, window integration.DateRange) (*integration.TransactionSyncResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "banking_sync", "sync_transactions",
		telemetry.SpanAttrTenantID, item.TenantID,
		telemetry.SpanAttrConnectionItemID, item.ID,
		"window_start", window.StartDate(),
		"window_end", window.EndDate(),
	)
	defer span.End()

	accessToken, err := s.openAggregatorCredential(item)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	accountIndex, err := s.accounts.ExternalIDIndex(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if len(accountIndex) == 0 {
		// an item whose accounts were never pulled would skip every transaction
		if _, err := s.syncAccounts(ctx, item, accessToken); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if accountIndex, err = s.accounts.ExternalIDIndex(ctx, item.ID); err != nil {
			return nil, err
		}
	}

	categories, err := s.categories.FindAllForTenant(ctx, item.TenantID)
	if err != nil {
		return nil, err
	}

	result := &integration.TransactionSyncResult{
		ConnectionItemID: item.ID,
		StartDate:        window.StartDate(),
		EndDate:          window.EndDate(),
	}

	offset := 0
	for {
		page, err := s.client.FetchTransactions(ctx, accessToken, integration.TransactionQuery{
			Window: window,
			Offset: offset,
			Count:  s.config.PageSize,
		})
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		result.TotalTransactions = page.TotalTransactions

		for _, src := range page.Transactions {
			result.Counts.Fetched++
			accountID, ok := accountIndex[src.ExternalAccountID]
			if !ok {
				result.Counts.Skipped++
				continue
			}
			categoryID := finance.ResolveCategory(categories, src.Categories)
			tx := finance.NewAggregatedTransaction(item, accountID, categoryID, src)
			outcome, err := s.reconciler.Upsert(ctx, tx)
			if err != nil {
				telemetry.RecordError(span, err)
				return nil, fmt.Errorf("reconcile transaction %s: %w", src.ExternalID, err)
			}
			countOutcome(&result.Counts, outcome)
		}

		offset += len(page.Transactions)
		if len(page.Transactions) == 0 || offset >= page.TotalTransactions {
			break
		}
	}
	result.SyncedCount = result.Counts.Synced()

	if err := s.items.MarkSynced(ctx, item.ID, s.now()); err != nil {
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSyncedCount, result.SyncedCount,
		telemetry.SpanAttrSkippedCount, result.Counts.Skipped,
	)
	telemetry.SetOK(span)
	s.logger.Info("Transactions synced",
		zap.String("connection_item_id", item.ID.String()),
		zap.String("start", result.StartDate),
		zap.String("end", result.EndDate),
		zap.Int("synced", result.SyncedCount),
		zap.Int("skipped", result.Counts.Skipped),
		zap.Int("total", result.TotalTransactions),
	)
	return result, nil
}

// ListConnectionItems lists the tenant's connections, newest first
func (s *BankingSyncService) ListConnectionItems(ctx context.Context, tenantID uuid.UUID) ([]ConnectionItemResponse, error) {
	items, err := s.items.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]ConnectionItemResponse, 0, len(items))
	for i := range items {
		out = append(out, ToConnectionItemResponse(&items[i]))
	}
	return out, nil
}

// DeleteConnectionItem revokes the remote item when possible and always removes
// the local item together with everything mirrored through it.
func (s *BankingSyncService) DeleteConnectionItem(ctx context.Context, tenantID, userID, itemID uuid.UUID) error {
	item, err := s.items.FindByIDForTenant(ctx, tenantID, itemID)
	if err != nil {
		return err
	}
	if item.UserID != userID {
		return shared.NewNotFoundError("connection item", itemID)
	}

	if item.Kind == integration.ProviderKindAggregator {
		s.revokeBestEffort(ctx, item)
	}

	if err := s.items.DeleteCascade(ctx, item.ID); err != nil {
		return err
	}
	s.logger.Info("Connection item deleted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("connection_item_id", item.ID.String()),
		zap.String("kind", item.Kind.String()),
	)
	return nil
}

func (s *BankingSyncService) revokeBestEffort(ctx context.Context, item *integration.ConnectionItem) {
	accessToken, err := s.vault.Decrypt(item.Credential)
	if err != nil {
		s.logger.Warn("Skipping remote revoke, credential unreadable",
			zap.String("connection_item_id", item.ID.String()),
			zap.Error(err),
		)
		return
	}
	if err := s.client.RevokeItem(ctx, accessToken); err != nil {
		s.logger.Warn("Remote revoke failed, deleting locally anyway",
			zap.String("connection_item_id", item.ID.String()),
			zap.Error(err),
		)
	}
}

// HandleWebhook reacts to an aggregator webhook. Transaction updates trigger a
// resync of the matching item; redeliveries within the dedup TTL are dropped.
func (s *BankingSyncService) HandleWebhook(ctx context.Context, hook PlaidWebhook) (*WebhookOutcome, error) {
	log := s.logger.With(
		zap.String("webhook_type", hook.WebhookType),
		zap.String("webhook_code", hook.WebhookCode),
		zap.String("item_id", hook.ItemID),
	)

	switch hook.WebhookType {
	case "TRANSACTIONS":
		if !isTransactionUpdate(hook.WebhookCode) {
			log.Debug("Transactions webhook ignored")
			return &WebhookOutcome{Action: WebhookActionIgnored}, nil
		}
	case "ITEM":
		if hook.Error != nil {
			log.Warn("Aggregator reported item error",
				zap.String("error_code", hook.Error.ErrorCode),
				zap.String("error_message", hook.Error.ErrorMessage),
			)
		} else {
			log.Info("Item webhook received")
		}
		return &WebhookOutcome{Action: WebhookActionLogged}, nil
	default:
		log.Debug("Webhook type ignored")
		return &WebhookOutcome{Action: WebhookActionIgnored}, nil
	}

	item, err := s.items.FindByExternalItemID(ctx, integration.ProviderKindAggregator, hook.ItemID)
	if shared.IsNotFound(err) {
		log.Info("Webhook for unknown item acknowledged")
		return &WebhookOutcome{Action: WebhookActionIgnored}, nil
	}
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("plaid:%s:%s:%s:%d", hook.ItemID, hook.WebhookType, hook.WebhookCode, hook.NewTransactions)
	if s.dedup != nil {
		seen, err := s.dedup.IsProcessed(ctx, key)
		if err != nil {
			log.Warn("Delivery lookup failed, processing anyway", zap.Error(err))
		} else if seen {
			log.Info("Duplicate webhook delivery dropped")
			return &WebhookOutcome{Action: WebhookActionDuplicate}, nil
		}
	}

	window := integration.TrailingDays(s.now(), s.config.DefaultWindowDays)
	result, err := s.syncTransactions(ctx, item, window)
	if err != nil {
		return nil, err
	}

	// only a successful sync is remembered so a failed one can be redelivered
	if s.dedup != nil {
		if _, err := s.dedup.MarkProcessed(ctx, key, s.config.WebhookDedupTTL); err != nil {
			log.Warn("Failed to record webhook delivery", zap.Error(err))
		}
	}
	return &WebhookOutcome{Action: WebhookActionSynced, Result: result}, nil
}

func isTransactionUpdate(code string) bool {
	switch code {
	case "DEFAULT_UPDATE", "INITIAL_UPDATE", "HISTORICAL_UPDATE", "SYNC_UPDATES_AVAILABLE":
		return true
	}
	return false
}

// revokeUnstored invalidates an access token that was exchanged but never
// persisted. Failures are only logged.
func (s *BankingSyncService) revokeUnstored(ctx context.Context, exchange *integration.TokenExchange) {
	if err := s.client.RevokeItem(ctx, exchange.AccessToken); err != nil {
		s.logger.Warn("Revoking unstored aggregator item failed",
			zap.String("external_item_id", exchange.ExternalItemID),
			zap.Error(err),
		)
	}
}

func (s *BankingSyncService) openAggregatorCredential(item *integration.ConnectionItem) (string, error) {
	if item.Kind != integration.ProviderKindAggregator {
		return "", shared.NewValidationError("connection item is not an aggregator connection")
	}
	accessToken, err := s.vault.Decrypt(item.Credential)
	if err != nil {
		var encErr *shared.EncryptionError
		if errors.As(err, &encErr) {
			s.logger.Error("Stored credential cannot be decrypted",
				zap.String("connection_item_id", item.ID.String()),
				zap.Error(err),
			)
		}
		return "", err
	}
	return accessToken, nil
}

func countOutcome(c *integration.SyncCounts, outcome shared.UpsertOutcome) {
	switch outcome {
	case shared.UpsertCreated:
		c.Created++
	case shared.UpsertUpdated:
		c.Updated++
	}
}
