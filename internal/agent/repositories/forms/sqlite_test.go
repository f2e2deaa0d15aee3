package forms_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifield/fieldsync/internal/agent/models"
	"github.com/verifield/fieldsync/internal/agent/store"
	"github.com/verifield/fieldsync/internal/common"
)

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testForm(id, caseID string, capturedAt int64) *models.FormSubmission {
	return &models.FormSubmission{
		ID: id, CaseID: caseID, FormType: "address_check",
		Payload: []byte(`{"address_matches":true}`), CapturedAt: capturedAt,
		DeviceModel: "Pixel 7", AppVersion: "2.4.1",
		SyncStatus: models.SyncStatusPending, Version: 0,
	}
}

func TestInsertAndGetByID(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	lat, lon, acc := 56.946, 24.105, 12.5
	f := testForm("f1", "c1", 100)
	f.Latitude, f.Longitude, f.Accuracy = &lat, &lon, &acc
	f.GeoAddress = "Riga, Brivibas iela 1"
	require.NoError(t, st.Forms.Insert(ctx, f))

	got, err := st.Forms.GetByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, f.Payload, got.Payload)
	assert.Equal(t, "address_check", got.FormType)
	require.NotNil(t, got.Latitude)
	assert.Equal(t, lat, *got.Latitude)
	assert.Equal(t, "Riga, Brivibas iela 1", got.GeoAddress)
	assert.Equal(t, models.SyncStatusPending, got.SyncStatus)

	_, err = st.Forms.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestInsert_DuplicateIDFails(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.Forms.Insert(ctx, testForm("f1", "c1", 100)))
	assert.Error(t, st.Forms.Insert(ctx, testForm("f1", "c1", 200)))
}

func TestListByCase_OrderedByCaptureTime(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.Forms.Insert(ctx, testForm("f2", "c1", 200)))
	require.NoError(t, st.Forms.Insert(ctx, testForm("f1", "c1", 100)))
	require.NoError(t, st.Forms.Insert(ctx, testForm("f3", "c2", 50)))

	forms, err := st.Forms.ListByCase(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, forms, 2)
	assert.Equal(t, "f1", forms[0].ID)
	assert.Equal(t, "f2", forms[1].ID)
}

func TestMarkSynced(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.Forms.Insert(ctx, testForm("f1", "c1", 100)))
	require.NoError(t, st.Forms.MarkSynced(ctx, "f1", 3))

	got, err := st.Forms.GetByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSynced, got.SyncStatus)
	assert.Equal(t, int64(3), got.Version)

	assert.ErrorIs(t, st.Forms.MarkSynced(ctx, "missing", 1), common.ErrNotFound)
}

func TestMarkConflictAndPending(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	require.NoError(t, st.Forms.Insert(ctx, testForm("f1", "c1", 100)))

	require.NoError(t, st.Forms.MarkConflict(ctx, "f1"))
	got, err := st.Forms.GetByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusConflict, got.SyncStatus)

	require.NoError(t, st.Forms.MarkPending(ctx, "f1"))
	got, err = st.Forms.GetByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusPending, got.SyncStatus)
}
