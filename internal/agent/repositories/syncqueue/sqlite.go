package syncqueue

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

const actionColumns = `id, action_type, entity_type, entity_id, payload, base_version,
	priority, retry_count, max_retries, status, last_error, created_at, scheduled_at`

func scanAction(row interface{ Scan(dest ...any) error }) (*models.SyncAction, error) {
	a := &models.SyncAction{}
	err := row.Scan(
		&a.ID, &a.ActionType, &a.EntityType, &a.EntityID, &a.Payload, &a.BaseVersion,
		&a.Priority, &a.RetryCount, &a.MaxRetries, &a.Status, &a.LastError, &a.CreatedAt, &a.ScheduledAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *SQLiteRepository) Enqueue(ctx context.Context, a *models.SyncAction) error {
	if a.MaxRetries <= 0 {
		a.MaxRetries = models.DefaultMaxRetries
	}
	if a.Status == "" {
		a.Status = models.ActionStatusPending
	}
	if a.ScheduledAt == 0 {
		a.ScheduledAt = a.CreatedAt
	}
	query := ` INSERT INTO sync_actions (` + actionColumns + `)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.ActionType, a.EntityType, a.EntityID, a.Payload, a.BaseVersion,
		a.Priority, a.RetryCount, a.MaxRetries, a.Status, a.LastError, a.CreatedAt, a.ScheduledAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue sync action: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.SyncAction, error) {
	query := `select ` + actionColumns + ` from sync_actions where id=?`
	a, err := scanAction(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return a, nil
}

// DueBatch orders by priority descending, then strict enqueue order. The
// rowid tiebreak keeps same-millisecond enqueues in insertion order.
func (r *SQLiteRepository) DueBatch(ctx context.Context, now int64, limit int) ([]*models.SyncAction, error) {
	query := `select ` + actionColumns + ` from sync_actions
			where status in (?, ?) and scheduled_at <= ?
			order by priority desc, created_at asc, rowid asc
			limit ?`
	rows, err := r.db.QueryContext(ctx, query,
		models.ActionStatusPending, models.ActionStatusRetrying, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select due actions: %w", err)
	}
	defer rows.Close()

	var result []*models.SyncAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) HasEarlierPending(ctx context.Context, a *models.SyncAction) (bool, error) {
	query := `select 1 from sync_actions
			where entity_type=? and entity_id=? and status in (?, ?, ?)
			and rowid < (select rowid from sync_actions where id=?)
			limit 1`
	return dbx.Exists(ctx, r.db, query,
		a.EntityType, a.EntityID,
		models.ActionStatusPending, models.ActionStatusRetrying, models.ActionStatusConflict,
		a.ID)
}

func (r *SQLiteRepository) HasPendingForEntity(ctx context.Context, entityType models.EntityType, entityID string) (bool, error) {
	query := `select 1 from sync_actions
			where entity_type=? and entity_id=? and status in (?, ?, ?)
			limit 1`
	return dbx.Exists(ctx, r.db, query, entityType, entityID,
		models.ActionStatusPending, models.ActionStatusRetrying, models.ActionStatusConflict)
}

func (r *SQLiteRepository) MarkCompleted(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, models.ActionStatusCompleted, "")
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, id string, lastErr string) error {
	return r.setStatus(ctx, id, models.ActionStatusFailed, lastErr)
}

func (r *SQLiteRepository) MarkConflict(ctx context.Context, id string, lastErr string) error {
	return r.setStatus(ctx, id, models.ActionStatusConflict, lastErr)
}

func (r *SQLiteRepository) setStatus(ctx context.Context, id string, s models.ActionStatus, lastErr string) error {
	query := `update sync_actions set status=?, last_error=? where id=?`
	res, err := r.db.ExecContext(ctx, query, s, lastErr, id)
	if err != nil {
		return fmt.Errorf("failed to update action status: %w", err)
	}
	return checkOneRow(res, id)
}

func (r *SQLiteRepository) Reschedule(ctx context.Context, id string, scheduledAt int64, lastErr string) error {
	query := `update sync_actions
			set retry_count=retry_count+1, status=?, scheduled_at=?, last_error=?
			where id=? and retry_count < max_retries`
	res, err := r.db.ExecContext(ctx, query, models.ActionStatusRetrying, scheduledAt, lastErr, id)
	if err != nil {
		return fmt.Errorf("failed to reschedule action: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("%w: action %s", common.ErrRetryExhausted, id)
	}
	return nil
}

func (r *SQLiteRepository) Requeue(ctx context.Context, id string, payload []byte, baseVersion int64, scheduledAt int64) error {
	query := `update sync_actions
			set status=?, payload=?, base_version=?, retry_count=0, scheduled_at=?, last_error=''
			where id=? and status=?`
	res, err := r.db.ExecContext(ctx, query,
		models.ActionStatusPending, payload, baseVersion, scheduledAt, id, models.ActionStatusConflict)
	if err != nil {
		return fmt.Errorf("failed to requeue action: %w", err)
	}
	return checkOneRow(res, id)
}

func (r *SQLiteRepository) Stats(ctx context.Context) (*Stats, error) {
	rows, err := r.db.QueryContext(ctx, `select status, count(*) from sync_actions group by status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count actions: %w", err)
	}
	defer rows.Close()

	s := &Stats{}
	for rows.Next() {
		var st models.ActionStatus
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		switch st {
		case models.ActionStatusPending:
			s.Pending = n
		case models.ActionStatusRetrying:
			s.Retrying = n
		case models.ActionStatusCompleted:
			s.Completed = n
		case models.ActionStatusFailed:
			s.Failed = n
		case models.ActionStatusConflict:
			s.Conflict = n
		}
	}
	return s, rows.Err()
}

func checkOneRow(res sql.Result, id string) error {
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("%w: sync action %s", common.ErrNotFound, id)
	}
	return nil
}
