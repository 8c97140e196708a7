package persistence

import (
	"context"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/finance"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/integration"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSyncStatsReader implements integration.SyncStatsReader with grouped counts
type GormSyncStatsReader struct {
	db *gorm.DB
}

// NewGormSyncStatsReader creates a new GormSyncStatsReader
func NewGormSyncStatsReader(db *gorm.DB) *GormSyncStatsReader {
	return &GormSyncStatsReader{db: db}
}

type itemCountRow struct {
	ConnectionItemID uuid.UUID
	Count            int64
	LastDate         *string
}

// SyncStats reports mirror totals for every aggregator item
func (r *GormSyncStatsReader) SyncStats(ctx context.Context) (*integration.SyncStats, error) {
	db := r.db.WithContext(ctx)

	var items []integration.ConnectionItem
	if err := db.Where("kind = ?", integration.ProviderKindAggregator).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}

	var accountRows []itemCountRow
	if err := db.Model(&finance.Account{}).
		Select("connection_item_id, COUNT(*) AS count").
		Where("connection_item_id IS NOT NULL").
		Group("connection_item_id").
		Scan(&accountRows).Error; err != nil {
		return nil, err
	}

	var txRows []itemCountRow
	if err := db.Model(&finance.Transaction{}).
		Select("connection_item_id, COUNT(*) AS count, MAX(date) AS last_date").
		Where("connection_item_id IS NOT NULL").
		Group("connection_item_id").
		Scan(&txRows).Error; err != nil {
		return nil, err
	}

	accounts := make(map[uuid.UUID]itemCountRow, len(accountRows))
	for _, row := range accountRows {
		accounts[row.ConnectionItemID] = row
	}
	txs := make(map[uuid.UUID]itemCountRow, len(txRows))
	for _, row := range txRows {
		txs[row.ConnectionItemID] = row
	}

	stats := &integration.SyncStats{
		TotalItems: int64(len(items)),
		Items:      make([]integration.ItemSyncStatus, 0, len(items)),
	}
	for _, item := range items {
		status := integration.ItemSyncStatus{
			ConnectionItemID: item.ID,
			TenantID:         item.TenantID,
			InstitutionName:  item.InstitutionName,
			AccountCount:     accounts[item.ID].Count,
			TransactionCount: txs[item.ID].Count,
			LastSyncedAt:     item.LastSyncedAt,
		}
		if last := txs[item.ID].LastDate; last != nil {
			status.LastTransactionDate = *last
		}
		stats.TotalAccounts += status.AccountCount
		stats.TotalTransactions += status.TransactionCount
		stats.Items = append(stats.Items, status)
	}
	return stats, nil
}

var _ integration.SyncStatsReader = (*GormSyncStatsReader)(nil)
