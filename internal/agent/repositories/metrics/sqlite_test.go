package metrics_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifield/fieldsync/internal/agent/models"
	"github.com/verifield/fieldsync/internal/agent/store"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func metric(id, op string, recordedAt int64) *models.PerformanceMetric {
	return &models.PerformanceMetric{
		ID: id, Operation: op, DurationMs: 120, ItemCount: 3,
		Success: true, RecordedAt: recordedAt,
	}
}

func TestInsertAndListRecent(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.Metrics.Insert(ctx, metric("m1", models.MetricSyncRun, 100)))
	require.NoError(t, st.Metrics.Insert(ctx, metric("m2", models.MetricSyncRun, 300)))
	require.NoError(t, st.Metrics.Insert(ctx, metric("m3", models.MetricCacheSweep, 200)))

	runs, err := st.Metrics.ListRecent(ctx, models.MetricSyncRun, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "m2", runs[0].ID)
	assert.Equal(t, "m1", runs[1].ID)
	assert.Equal(t, int64(120), runs[0].DurationMs)
	assert.True(t, runs[0].Success)
}

func TestListRecent_Limit(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	for i, at := range []int64{100, 200, 300} {
		require.NoError(t, st.Metrics.Insert(ctx, metric(string(rune('a'+i)), models.MetricSyncRun, at)))
	}

	runs, err := st.Metrics.ListRecent(ctx, models.MetricSyncRun, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, int64(300), runs[0].RecordedAt)
}

func TestPruneBefore(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.Metrics.Insert(ctx, metric("m1", models.MetricSyncRun, 100)))
	require.NoError(t, st.Metrics.Insert(ctx, metric("m2", models.MetricSyncRun, 200)))
	require.NoError(t, st.Metrics.Insert(ctx, metric("m3", models.MetricSyncRun, 300)))

	removed, err := st.Metrics.PruneBefore(ctx, 250)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	runs, err := st.Metrics.ListRecent(ctx, models.MetricSyncRun, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "m3", runs[0].ID)
}
