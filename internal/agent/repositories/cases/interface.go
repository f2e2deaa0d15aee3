package cases

import (
	"context"

	"github.com/verifield/fieldsync/internal/agent/models"
)

// ListFilter narrows List results. Zero values mean "no filter".
// Soft-deleted rows are always excluded.
type ListFilter struct {
	Status     models.CaseStatus
	AssignedTo string
	SyncStatus models.SyncStatus
}

// Repository describes CRUD and sync-bookkeeping operations for Case rows.
// Implementations are backed by the local SQLite database.
type Repository interface {
	// Upsert inserts a new case or updates an existing one by ID.
	Upsert(ctx context.Context, c *models.Case) error

	// GetByID returns a case by its identifier, tombstones included: a
	// deleted case is still addressable so that its pending delete action
	// can be reconciled.
	GetByID(ctx context.Context, id string) (*models.Case, error)

	// List returns non-deleted cases matching the filter, most recently
	// modified first.
	List(ctx context.Context, f ListFilter) ([]models.Case, error)

	// MarkSynced records the server's canonical version after a successful
	// replay and clears any conflict diff.
	MarkSynced(ctx context.Context, id string, version int64) error

	// MarkConflict flags the row and stores the serialized divergence.
	MarkConflict(ctx context.Context, id string, conflictData []byte) error

	// MarkPending returns a conflicted row to the pending state after a
	// resolution requeues its action.
	MarkPending(ctx context.Context, id string) error

	// SoftDelete tombstones a case. Physical removal is reserved for an
	// explicit administrative purge.
	SoftDelete(ctx context.Context, id string, lastModified int64) error

	// CountBySyncStatus powers the UI sync indicator.
	CountBySyncStatus(ctx context.Context) (map[models.SyncStatus]int, error)
}
