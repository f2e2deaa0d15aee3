package syncqueue

import (
	"context"

	"github.com/verifield/fieldsync/internal/agent/models"
)

// Stats is the retry-queue breakdown surfaced to the UI layer.
type Stats struct {
	Pending   int
	Retrying  int
	Completed int
	Failed    int
	Conflict  int
}

// Repository is the outbound sync queue. Drain order is priority descending,
// then enqueue order (FIFO within a priority band); same-entity actions are
// never reordered.
type Repository interface {
	// Enqueue appends a new action. Called by the Mutation Recorder inside
	// the same transaction as the entity write.
	Enqueue(ctx context.Context, a *models.SyncAction) error

	GetByID(ctx context.Context, id string) (*models.SyncAction, error)

	// DueBatch returns drainable actions (pending or retrying) whose
	// scheduled_at has passed, up to limit.
	DueBatch(ctx context.Context, now int64, limit int) ([]*models.SyncAction, error)

	// HasEarlierPending reports whether a non-terminal action enqueued
	// before the given one still targets the same entity. Used to preserve
	// per-entity replay order and to defer the entity's synced flag.
	HasEarlierPending(ctx context.Context, a *models.SyncAction) (bool, error)

	// HasPendingForEntity reports whether any non-terminal action still
	// targets the entity. Checked after a completion before flipping the
	// entity's synced flag.
	HasPendingForEntity(ctx context.Context, entityType models.EntityType, entityID string) (bool, error)

	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, lastErr string) error

	// MarkConflict parks the action in the non-terminal conflict state; it
	// is excluded from DueBatch until resolution requeues or fails it.
	MarkConflict(ctx context.Context, id string, lastErr string) error

	// Reschedule pushes a retryable failure forward: increments
	// retry_count, records the error and the new scheduled_at.
	Reschedule(ctx context.Context, id string, scheduledAt int64, lastErr string) error

	// Requeue returns a conflict-parked action to the drainable queue with
	// a fresh payload/base version and a reset retry budget.
	Requeue(ctx context.Context, id string, payload []byte, baseVersion int64, scheduledAt int64) error

	Stats(ctx context.Context) (*Stats, error)
}
