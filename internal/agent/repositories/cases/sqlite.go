package cases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/verifield/fieldsync/internal/agent/models"
	"github.com/verifield/fieldsync/internal/common"
	"github.com/verifield/fieldsync/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const caseColumns = `id, customer_name, customer_phone, address, verification_type, product,
	client_name, priority, status, assigned_to, notes, created_at, updated_at,
	sync_status, last_modified, version, deleted, conflict_data, offline_changes`

func scanCase(row interface{ Scan(dest ...any) error }) (*models.Case, error) {
	c := &models.Case{}
	err := row.Scan(
		&c.ID, &c.CustomerName, &c.CustomerPhone, &c.Address, &c.VerificationType, &c.Product,
		&c.ClientName, &c.Priority, &c.Status, &c.AssignedTo, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
		&c.SyncStatus, &c.LastModified, &c.Version, &c.Deleted, &c.ConflictData, &c.OfflineChanges,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Upsert inserts a case or updates an existing one by id. On conflict all
// mutable columns are replaced.
func (r *SQLiteRepository) Upsert(ctx context.Context, c *models.Case) error {
	query := ` INSERT INTO cases (` + caseColumns + `)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				customer_name = excluded.customer_name,
				customer_phone = excluded.customer_phone,
				address = excluded.address,
				verification_type = excluded.verification_type,
				product = excluded.product,
				client_name = excluded.client_name,
				priority = excluded.priority,
				status = excluded.status,
				assigned_to = excluded.assigned_to,
				notes = excluded.notes,
				updated_at = excluded.updated_at,
				sync_status = excluded.sync_status,
				last_modified = excluded.last_modified,
				version = excluded.version,
				deleted = excluded.deleted,
				conflict_data = excluded.conflict_data,
				offline_changes = excluded.offline_changes
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.CustomerName, c.CustomerPhone, c.Address, c.VerificationType, c.Product,
		c.ClientName, c.Priority, c.Status, c.AssignedTo, c.Notes, c.CreatedAt, c.UpdatedAt,
		c.SyncStatus, c.LastModified, c.Version, c.Deleted, c.ConflictData, c.OfflineChanges)
	if err != nil {
		return fmt.Errorf("failed to upsert case: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Case, error) {
	query := `select ` + caseColumns + ` from cases where id=?`
	c, err := scanCase(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) List(ctx context.Context, f ListFilter) ([]models.Case, error) {
	query := `select ` + caseColumns + ` from cases where deleted=0`
	args := []any{}
	if f.Status != "" {
		query += ` and status=?`
		args = append(args, f.Status)
	}
	if f.AssignedTo != "" {
		query += ` and assigned_to=?`
		args = append(args, f.AssignedTo)
	}
	if f.SyncStatus != "" {
		query += ` and sync_status=?`
		args = append(args, f.SyncStatus)
	}
	query += ` order by last_modified desc`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select cases: %w", err)
	}
	defer rows.Close()

	var result []models.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, version int64) error {
	query := `update cases set sync_status=?, version=?, conflict_data=NULL where id=?`
	res, err := r.db.ExecContext(ctx, query, models.SyncStatusSynced, version, id)
	if err != nil {
		return fmt.Errorf("failed to mark case synced: %w", err)
	}
	return requireOneRow(res, id)
}

func (r *SQLiteRepository) MarkConflict(ctx context.Context, id string, conflictData []byte) error {
	query := `update cases set sync_status=?, conflict_data=? where id=?`
	res, err := r.db.ExecContext(ctx, query, models.SyncStatusConflict, conflictData, id)
	if err != nil {
		return fmt.Errorf("failed to mark case conflicted: %w", err)
	}
	return requireOneRow(res, id)
}

func (r *SQLiteRepository) MarkPending(ctx context.Context, id string) error {
	query := `update cases set sync_status=? where id=?`
	res, err := r.db.ExecContext(ctx, query, models.SyncStatusPending, id)
	if err != nil {
		return fmt.Errorf("failed to mark case pending: %w", err)
	}
	return requireOneRow(res, id)
}

// SoftDelete tombstones the row. It expects exactly one row to be affected.
func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string, lastModified int64) error {
	query := `update cases set deleted=1, sync_status=?, last_modified=? where id=? and deleted=0`
	res, err := r.db.ExecContext(ctx, query, models.SyncStatusPending, lastModified, id)
	if err != nil {
		return fmt.Errorf("failed to delete case: %w", err)
	}
	return requireOneRow(res, id)
}

func (r *SQLiteRepository) CountBySyncStatus(ctx context.Context) (map[models.SyncStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `select sync_status, count(*) from cases where deleted=0 group by sync_status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count cases: %w", err)
	}
	defer rows.Close()

	result := map[models.SyncStatus]int{}
	for rows.Next() {
		var s models.SyncStatus
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		result[s] = n
	}
	return result, rows.Err()
}

func requireOneRow(res sql.Result, id string) error {
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("%w: case %s", common.ErrNotFound, id)
	}
	return nil
}
