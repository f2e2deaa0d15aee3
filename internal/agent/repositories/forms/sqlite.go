package forms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/verifield/fieldsync/internal/agent/models"
	"github.com/verifield/fieldsync/internal/common"
	"github.com/verifield/fieldsync/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const formColumns = `id, case_id, form_type, payload, captured_at, latitude, longitude,
	accuracy, geo_address, device_model, app_version, sync_status, version`

func scanForm(row interface{ Scan(dest ...any) error }) (*models.FormSubmission, error) {
	f := &models.FormSubmission{}
	err := row.Scan(
		&f.ID, &f.CaseID, &f.FormType, &f.Payload, &f.CapturedAt, &f.Latitude, &f.Longitude,
		&f.Accuracy, &f.GeoAddress, &f.DeviceModel, &f.AppVersion, &f.SyncStatus, &f.Version,
	)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, f *models.FormSubmission) error {
	query := ` INSERT INTO form_submissions (` + formColumns + `)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		f.ID, f.CaseID, f.FormType, f.Payload, f.CapturedAt, f.Latitude, f.Longitude,
		f.Accuracy, f.GeoAddress, f.DeviceModel, f.AppVersion, f.SyncStatus, f.Version)
	if err != nil {
		return fmt.Errorf("failed to insert form submission: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.FormSubmission, error) {
	query := `select ` + formColumns + ` from form_submissions where id=?`
	f, err := scanForm(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return f, nil
}

func (r *SQLiteRepository) ListByCase(ctx context.Context, caseID string) ([]models.FormSubmission, error) {
	query := `select ` + formColumns + ` from form_submissions where case_id=? order by captured_at`
	rows, err := r.db.QueryContext(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to select form submissions: %w", err)
	}
	defer rows.Close()

	var result []models.FormSubmission
	for rows.Next() {
		f, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, version int64) error {
	return r.setSyncStatus(ctx, id, models.SyncStatusSynced, version)
}

func (r *SQLiteRepository) MarkConflict(ctx context.Context, id string) error {
	query := `update form_submissions set sync_status=? where id=?`
	res, err := r.db.ExecContext(ctx, query, models.SyncStatusConflict, id)
	if err != nil {
		return fmt.Errorf("failed to mark form conflicted: %w", err)
	}
	return checkOneRow(res, id)
}

func (r *SQLiteRepository) MarkPending(ctx context.Context, id string) error {
	query := `update form_submissions set sync_status=? where id=?`
	res, err := r.db.ExecContext(ctx, query, models.SyncStatusPending, id)
	if err != nil {
		return fmt.Errorf("failed to mark form pending: %w", err)
	}
	return checkOneRow(res, id)
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id string, s models.SyncStatus, version int64) error {
	query := `update form_submissions set sync_status=?, version=? where id=?`
	res, err := r.db.ExecContext(ctx, query, s, version, id)
	if err != nil {
		return fmt.Errorf("failed to update form sync status: %w", err)
	}
	return checkOneRow(res, id)
}

func checkOneRow(res sql.Result, id string) error {
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("%w: form submission %s", common.ErrNotFound, id)
	}
	return nil
}
