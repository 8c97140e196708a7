package persistence

import (
	"context"
	"fmt"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormReconciler implements shared.Reconciler with a locked lookup by natural key
// followed by an insert or an update of the mutable columns.
type GormReconciler struct {
	db *gorm.DB
}

// NewGormReconciler creates a new GormReconciler
func NewGormReconciler(db *gorm.DB) *GormReconciler {
	return &GormReconciler{db: db}
}

// Upsert inserts rec, or overwrites the mutable columns of the row with the same natural key
func (r *GormReconciler) Upsert(ctx context.Context, rec shared.Reconcilable) (shared.UpsertOutcome, error) {
	var outcome shared.UpsertOutcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		outcome, err = upsertTx(tx, rec)
		return err
	})
	if err != nil {
		return 0, err
	}
	return outcome, nil
}

func upsertTx(tx *gorm.DB, rec shared.Reconcilable) (shared.UpsertOutcome, error) {
	table := rec.TableName()
	key := rec.NaturalKey()

	id, found, err := lookupID(tx, table, key)
	if err != nil {
		return 0, err
	}

	if !found {
		rec.PrepareInsert()
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
		if res.Error != nil {
			return 0, fmt.Errorf("insert into %s: %w", table, res.Error)
		}
		if res.RowsAffected == 1 {
			return shared.UpsertCreated, nil
		}
		// a concurrent writer inserted the same key first
		id, found, err = lookupID(tx, table, key)
		if err != nil {
			return 0, err
		}
		if !found {
			return 0, fmt.Errorf("insert into %s: conflicting row not found", table)
		}
	}

	if err := tx.Table(table).Where("id = ?", id).Updates(rec.MutableColumns()).Error; err != nil {
		return 0, fmt.Errorf("update %s: %w", table, err)
	}
	rec.SetID(id)
	return shared.UpsertUpdated, nil
}

func lookupID(tx *gorm.DB, table string, key map[string]any) (uuid.UUID, bool, error) {
	var row struct {
		ID uuid.UUID
	}
	res := forUpdate(tx.Table(table)).Select("id").Where(key).Limit(1).Scan(&row)
	if res.Error != nil {
		return uuid.Nil, false, fmt.Errorf("lookup %s: %w", table, res.Error)
	}
	return row.ID, res.RowsAffected > 0, nil
}

var _ shared.Reconciler = (*GormReconciler)(nil)
