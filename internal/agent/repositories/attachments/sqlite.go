package attachments

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

const attachmentColumns = `id, case_id, form_id, file_name, mime_type, size_bytes, local_path,
	thumbnail_path, compressed_path, upload_status, upload_progress, metadata,
	sync_status, version, created_at`

func scanAttachment(row interface{ Scan(dest ...any) error }) (*models.Attachment, error) {
	a := &models.Attachment{}
	err := row.Scan(
		&a.ID, &a.CaseID, &a.FormID, &a.FileName, &a.MimeType, &a.SizeBytes, &a.LocalPath,
		&a.ThumbnailPath, &a.CompressedPath, &a.UploadStatus, &a.UploadProgress, &a.Metadata,
		&a.SyncStatus, &a.Version, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, a *models.Attachment) error {
	query := ` INSERT INTO attachments (` + attachmentColumns + `)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.CaseID, a.FormID, a.FileName, a.MimeType, a.SizeBytes, a.LocalPath,
		a.ThumbnailPath, a.CompressedPath, a.UploadStatus, a.UploadProgress, a.Metadata,
		a.SyncStatus, a.Version, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert attachment: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Attachment, error) {
	query := `select ` + attachmentColumns + ` from attachments where id=?`
	a, err := scanAttachment(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListByCase(ctx context.Context, caseID string) ([]models.Attachment, error) {
	return r.list(ctx, `select `+attachmentColumns+` from attachments where case_id=? order by created_at`, caseID)
}

func (r *SQLiteRepository) ListPendingUpload(ctx context.Context) ([]models.Attachment, error) {
	return r.list(ctx, `select `+attachmentColumns+` from attachments where upload_status in (?, ?) order by created_at`,
		models.UploadStatusPending, models.UploadStatusFailed)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.Attachment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select attachments: %w", err)
	}
	defer rows.Close()

	var result []models.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) UpdateUploadState(ctx context.Context, id string, status models.UploadStatus, progress int) error {
	query := `update attachments set upload_status=?, upload_progress=? where id=?`
	res, err := r.db.ExecContext(ctx, query, status, progress, id)
	if err != nil {
		return fmt.Errorf("failed to update upload state: %w", err)
	}
	return checkOneRow(res, id)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, version int64) error {
	query := `update attachments set sync_status=?, version=? where id=?`
	res, err := r.db.ExecContext(ctx, query, models.SyncStatusSynced, version, id)
	if err != nil {
		return fmt.Errorf("failed to mark attachment synced: %w", err)
	}
	return checkOneRow(res, id)
}

func (r *SQLiteRepository) MarkConflict(ctx context.Context, id string) error {
	return r.setSyncStatus(ctx, id, models.SyncStatusConflict)
}

func (r *SQLiteRepository) MarkPending(ctx context.Context, id string) error {
	return r.setSyncStatus(ctx, id, models.SyncStatusPending)
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id string, s models.SyncStatus) error {
	res, err := r.db.ExecContext(ctx, `update attachments set sync_status=? where id=?`, s, id)
	if err != nil {
		return fmt.Errorf("failed to update attachment sync status: %w", err)
	}
	return checkOneRow(res, id)
}

func checkOneRow(res sql.Result, id string) error {
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("%w: attachment %s", common.ErrNotFound, id)
	}
	return nil
}
