package integration

import (
	"time"

	"github.com/google/uuid"
)

// SyncCounts tallies what happened to each record seen during a sync pass
type SyncCounts struct {
	Fetched int `json:"fetched"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Synced returns the number of records created or updated
func (c SyncCounts) Synced() int {
	return c.Created + c.Updated
}

// Add merges other into c
func (c *SyncCounts) Add(other SyncCounts) {
	c.Fetched += other.Fetched
	c.Created += other.Created
	c.Updated += other.Updated
	c.Skipped += other.Skipped
	c.Failed += other.Failed
}

// TransactionSyncResult is the outcome of syncing one item's transactions
type TransactionSyncResult struct {
	ConnectionItemID  uuid.UUID  `json:"connection_item_id"`
	SyncedCount       int        `json:"synced_count"`
	TotalTransactions int        `json:"total_transactions"`
	Counts            SyncCounts `json:"counts"`
	StartDate         string     `json:"start_date"`
	EndDate           string     `json:"end_date"`
}

// ProcessorResource names a resource family pulled from the payment processor
type ProcessorResource string

const (
	ProcessorResourceCustomers     ProcessorResource = "customers"
	ProcessorResourceSubscriptions ProcessorResource = "subscriptions"
	ProcessorResourceInvoices      ProcessorResource = "invoices"
	ProcessorResourcePayments      ProcessorResource = "payments"
)

// ProcessorSyncOrder is the order resources must be synced in.
// Customers come first because every other resource references one.
var ProcessorSyncOrder = []ProcessorResource{
	ProcessorResourceCustomers,
	ProcessorResourceSubscriptions,
	ProcessorResourceInvoices,
	ProcessorResourcePayments,
}

// ResourceSyncResult is the outcome of syncing one resource family
type ResourceSyncResult struct {
	Resource ProcessorResource `json:"resource"`
	Counts   SyncCounts        `json:"counts"`
	Error    string            `json:"error,omitempty"`
}

// ProcessorSyncReport is the outcome of a full processor sync
type ProcessorSyncReport struct {
	ConnectionItemID uuid.UUID            `json:"connection_item_id"`
	StartedAt        time.Time            `json:"started_at"`
	CompletedAt      time.Time            `json:"completed_at"`
	Resources        []ResourceSyncResult `json:"resources"`
}

// Succeeded reports whether every resource synced without error
func (r *ProcessorSyncReport) Succeeded() bool {
	for _, res := range r.Resources {
		if res.Error != "" {
			return false
		}
	}
	return true
}

// Resource returns the result for a given resource, if present
func (r *ProcessorSyncReport) Resource(name ProcessorResource) (ResourceSyncResult, bool) {
	for _, res := range r.Resources {
		if res.Resource == name {
			return res, true
		}
	}
	return ResourceSyncResult{}, false
}

// ItemSyncStatus summarises the local mirror of one aggregator item
type ItemSyncStatus struct {
	ConnectionItemID    uuid.UUID  `json:"item_id"`
	TenantID            uuid.UUID  `json:"tenant_id"`
	InstitutionName     string     `json:"institution_name"`
	AccountCount        int64      `json:"account_count"`
	TransactionCount    int64      `json:"transaction_count"`
	LastTransactionDate string     `json:"last_transaction_date,omitempty"`
	LastSyncedAt        *time.Time `json:"last_synced_at,omitempty"`
}

// SyncStats aggregates mirror totals across all items
type SyncStats struct {
	TotalItems        int64            `json:"total_items"`
	TotalAccounts     int64            `json:"total_accounts"`
	TotalTransactions int64            `json:"total_transactions"`
	Items             []ItemSyncStatus `json:"items"`
}
