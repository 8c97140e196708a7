package shared

import (
	"context"

	"github.com/google/uuid"
)

// Reconcilable is a record mirrored from an external provider. It is identified
// by a natural key (usually the provider's external id) rather than its local ID.
type Reconcilable interface {
	TableName() string
	// NaturalKey returns column/value pairs that identify at most one row.
	NaturalKey() map[string]any
	// MutableColumns returns the columns overwritten when the row already exists.
	MutableColumns() map[string]any
	PrepareInsert()
	GetID() uuid.UUID
	SetID(id uuid.UUID)
}

// UpsertOutcome tells whether Upsert inserted a row or updated one
type UpsertOutcome int

const (
	UpsertCreated UpsertOutcome = iota + 1
	UpsertUpdated
)

func (o UpsertOutcome) String() string {
	switch o {
	case UpsertCreated:
		return "created"
	case UpsertUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Reconciler performs idempotent create-or-update by natural key.
// After Upsert returns, rec.GetID() is the ID of the persisted row.
type Reconciler interface {
	Upsert(ctx context.Context, rec Reconcilable) (UpsertOutcome, error)
}
