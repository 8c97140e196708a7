package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConnectionItemRepository defines the interface for connection item persistence
type ConnectionItemRepository interface {
	Create(ctx context.Context, item *ConnectionItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*ConnectionItem, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ConnectionItem, error)
	FindByExternalItemID(ctx context.Context, kind ProviderKind, externalItemID string) (*ConnectionItem, error)
	// FindAllForTenant lists a tenant's items, newest first
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]ConnectionItem, error)
	// FindAllByKind lists items of one kind across every tenant
	FindAllByKind(ctx context.Context, kind ProviderKind) ([]ConnectionItem, error)
	MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error
	// DeleteCascade removes the item and every record mirrored through it
	DeleteCascade(ctx context.Context, id uuid.UUID) error
}

// CustomerRepository resolves mirrored processor customers
type CustomerRepository interface {
	// ExternalIDIndex maps external customer ids to local ids for one connection item
	ExternalIDIndex(ctx context.Context, connectionItemID uuid.UUID) (map[string]uuid.UUID, error)
	CountForItem(ctx context.Context, connectionItemID uuid.UUID) (int64, error)
}

// SyncStatsReader reports mirror totals for the sync status view
type SyncStatsReader interface {
	SyncStats(ctx context.Context) (*SyncStats, error)
}
