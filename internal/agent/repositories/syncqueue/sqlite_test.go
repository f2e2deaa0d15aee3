package syncqueue_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifield/fieldsync/internal/agent/models"
	"github.com/verifield/fieldsync/internal/agent/repositories/syncqueue"
	"github.com/verifield/fieldsync/internal/agent/store"
	"github.com/verifield/fieldsync/internal/common"
)

func setupRepo(t *testing.T) syncqueue.Repository {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st.Queue
}

func action(id, entityID string, priority int, createdAt int64) *models.SyncAction {
	return &models.SyncAction{
		ID:         id,
		ActionType: models.ActionUpdate,
		EntityType: models.EntityCase,
		EntityID:   entityID,
		Payload:    []byte(`{}`),
		Priority:   priority,
		CreatedAt:  createdAt,
	}
}

func TestEnqueue_AppliesDefaults(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Enqueue(ctx, action("a1", "c1", 0, 100)))

	got, err := r.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, models.ActionStatusPending, got.Status)
	assert.Equal(t, models.DefaultMaxRetries, got.MaxRetries)
	assert.Equal(t, int64(100), got.ScheduledAt)
	assert.Equal(t, 0, got.RetryCount)
}

func TestDueBatch_PriorityThenEnqueueOrder(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	// Same millisecond on purpose: insertion order must still win inside a
	// priority band.
	require.NoError(t, r.Enqueue(ctx, action("low1", "x", models.PriorityAttachment, 100)))
	require.NoError(t, r.Enqueue(ctx, action("high1", "y", models.PriorityCase, 100)))
	require.NoError(t, r.Enqueue(ctx, action("high2", "y", models.PriorityCase, 100)))

	batch, err := r.DueBatch(ctx, 200, 10)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, "high1", batch[0].ID)
	assert.Equal(t, "high2", batch[1].ID)
	assert.Equal(t, "low1", batch[2].ID)
}

func TestDueBatch_ExcludesFutureParkedAndTerminal(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	due := action("due", "c1", 0, 100)
	require.NoError(t, r.Enqueue(ctx, due))

	future := action("future", "c2", 0, 100)
	future.ScheduledAt = 10_000
	require.NoError(t, r.Enqueue(ctx, future))

	parked := action("parked", "c3", 0, 100)
	require.NoError(t, r.Enqueue(ctx, parked))
	require.NoError(t, r.MarkConflict(ctx, "parked", "diverged"))

	done := action("done", "c4", 0, 100)
	require.NoError(t, r.Enqueue(ctx, done))
	require.NoError(t, r.MarkCompleted(ctx, "done"))

	batch, err := r.DueBatch(ctx, 1_000, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "due", batch[0].ID)
}

func TestHasEarlierPending(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	first := action("first", "c1", 0, 100)
	second := action("second", "c1", 0, 100)
	other := action("other", "c2", 0, 100)
	require.NoError(t, r.Enqueue(ctx, first))
	require.NoError(t, r.Enqueue(ctx, second))
	require.NoError(t, r.Enqueue(ctx, other))

	earlier, err := r.HasEarlierPending(ctx, second)
	require.NoError(t, err)
	assert.True(t, earlier)

	earlier, err = r.HasEarlierPending(ctx, first)
	require.NoError(t, err)
	assert.False(t, earlier)

	// Other entities never block.
	earlier, err = r.HasEarlierPending(ctx, other)
	require.NoError(t, err)
	assert.False(t, earlier)

	// A conflict-parked predecessor still blocks; a completed one does not.
	require.NoError(t, r.MarkConflict(ctx, "first", "diverged"))
	earlier, err = r.HasEarlierPending(ctx, second)
	require.NoError(t, err)
	assert.True(t, earlier)

	require.NoError(t, r.MarkFailed(ctx, "first", "gave up"))
	earlier, err = r.HasEarlierPending(ctx, second)
	require.NoError(t, err)
	assert.False(t, earlier)
}

func TestHasPendingForEntity(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	a := action("a", "c1", 0, 100)
	require.NoError(t, r.Enqueue(ctx, a))

	pending, err := r.HasPendingForEntity(ctx, models.EntityCase, "c1")
	require.NoError(t, err)
	assert.True(t, pending)

	require.NoError(t, r.MarkCompleted(ctx, "a"))

	pending, err = r.HasPendingForEntity(ctx, models.EntityCase, "c1")
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestReschedule_BoundsRetries(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	a := action("a", "c1", 0, 100)
	a.MaxRetries = 2
	require.NoError(t, r.Enqueue(ctx, a))

	require.NoError(t, r.Reschedule(ctx, "a", 200, "timeout"))
	require.NoError(t, r.Reschedule(ctx, "a", 300, "timeout"))

	got, err := r.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, models.ActionStatusRetrying, got.Status)
	assert.Equal(t, int64(300), got.ScheduledAt)
	assert.Equal(t, "timeout", got.LastError)

	// Budget spent: the third attempt must not go through.
	err = r.Reschedule(ctx, "a", 400, "timeout")
	assert.ErrorIs(t, err, common.ErrRetryExhausted)

	got, err = r.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, got.RetryCount)
}

func TestRequeue_OnlyFromConflict(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	a := action("a", "c1", 0, 100)
	a.RetryCount = 3
	require.NoError(t, r.Enqueue(ctx, a))

	// Not parked yet: requeue must refuse.
	err := r.Requeue(ctx, "a", []byte(`{"v":2}`), 5, 500)
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, r.MarkConflict(ctx, "a", "diverged"))
	require.NoError(t, r.Requeue(ctx, "a", []byte(`{"v":2}`), 5, 500))

	got, err := r.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.ActionStatusPending, got.Status)
	assert.Equal(t, []byte(`{"v":2}`), got.Payload)
	assert.Equal(t, int64(5), got.BaseVersion)
	assert.Equal(t, 0, got.RetryCount)
	assert.Empty(t, got.LastError)
}

func TestStats(t *testing.T) {
	r := setupRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, r.Enqueue(ctx, action(fmt.Sprintf("p%d", i), "c1", 0, 100)))
	}
	require.NoError(t, r.Enqueue(ctx, action("f", "c2", 0, 100)))
	require.NoError(t, r.MarkFailed(ctx, "f", "boom"))
	require.NoError(t, r.Enqueue(ctx, action("k", "c3", 0, 100)))
	require.NoError(t, r.MarkConflict(ctx, "k", "diverged"))

	s, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Pending)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Conflict)
	assert.Equal(t, 0, s.Retrying)
	assert.Equal(t, 0, s.Completed)
}
