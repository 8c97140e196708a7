package integration

import (
	"time"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/finance"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/integration"
	"github.com/google/uuid"
)

// CreateLinkTokenRequest asks for an aggregator link session
type CreateLinkTokenRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// ExchangePublicTokenRequest completes the aggregator link flow
type ExchangePublicTokenRequest struct {
	PublicToken string    `json:"public_token" binding:"required"`
	UserID      uuid.UUID `json:"user_id" binding:"required"`
}

// ExchangePublicTokenResult describes the connection created by an exchange
type ExchangePublicTokenResult struct {
	ConnectionItemID uuid.UUID `json:"connection_item_id"`
	ExternalItemID   string    `json:"external_item_id"`
	InstitutionName  string    `json:"institution_name"`
	AccountsSynced   int       `json:"accounts_synced"`
}

// SyncTransactionsRequest optionally bounds a transaction sync.
// Dates are inclusive YYYY-MM-DD strings; both empty means the default trailing window.
type SyncTransactionsRequest struct {
	StartDate string `json:"start_date" form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" form:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

// ConnectPaymentProcessorRequest links a processor account by API key
type ConnectPaymentProcessorRequest struct {
	APIKey string    `json:"api_key" binding:"required"`
	UserID uuid.UUID `json:"user_id" binding:"required"`
}

// ConnectionItemResponse is a connection item without its credential
type ConnectionItemResponse struct {
	ID              uuid.UUID                `json:"id"`
	TenantID        uuid.UUID                `json:"tenant_id"`
	UserID          uuid.UUID                `json:"user_id"`
	Kind            integration.ProviderKind `json:"kind"`
	ExternalItemID  string                   `json:"external_item_id"`
	InstitutionID   string                   `json:"institution_id,omitempty"`
	InstitutionName string                   `json:"institution_name"`
	LastSyncedAt    *time.Time               `json:"last_synced_at,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
}

// ToConnectionItemResponse converts a domain item to its response
func ToConnectionItemResponse(item *integration.ConnectionItem) ConnectionItemResponse {
	return ConnectionItemResponse{
		ID:              item.ID,
		TenantID:        item.TenantID,
		UserID:          item.UserID,
		Kind:            item.Kind,
		ExternalItemID:  item.ExternalItemID,
		InstitutionID:   item.InstitutionID,
		InstitutionName: item.InstitutionName,
		LastSyncedAt:    item.LastSyncedAt,
		CreatedAt:       item.CreatedAt,
	}
}

// AccountSyncResult is the outcome of an account sync
type AccountSyncResult struct {
	ConnectionItemID uuid.UUID              `json:"connection_item_id"`
	Counts           integration.SyncCounts `json:"counts"`
	Accounts         []finance.Account      `json:"accounts"`
}

// PlaidWebhook is the subset of an aggregator webhook payload acted upon
type PlaidWebhook struct {
	WebhookType     string        `json:"webhook_type" binding:"required"`
	WebhookCode     string        `json:"webhook_code" binding:"required"`
	ItemID          string        `json:"item_id"`
	NewTransactions int           `json:"new_transactions"`
	Error           *WebhookError `json:"error,omitempty"`
}

// WebhookError is the provider error attached to ITEM webhooks
type WebhookError struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// WebhookAction is what HandleWebhook did with a delivery
type WebhookAction string

const (
	WebhookActionSynced    WebhookAction = "synced"
	WebhookActionDuplicate WebhookAction = "duplicate"
	WebhookActionIgnored   WebhookAction = "ignored"
	WebhookActionLogged    WebhookAction = "logged"
)

// WebhookOutcome reports the handling of one webhook delivery
type WebhookOutcome struct {
	Action WebhookAction                      `json:"action"`
	Result *integration.TransactionSyncResult `json:"result,omitempty"`
}
