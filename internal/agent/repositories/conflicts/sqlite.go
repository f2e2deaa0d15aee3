package conflicts

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

const conflictColumns = `id, sync_action_id, entity_type, entity_id, conflict_type,
	local_data, server_data, local_version, server_version,
	resolution_strategy, status, created_at, resolved_at`

func scanConflict(row interface{ Scan(dest ...any) error }) (*models.Conflict, error) {
	c := &models.Conflict{}
	err := row.Scan(
		&c.ID, &c.SyncActionID, &c.EntityType, &c.EntityID, &c.ConflictType,
		&c.LocalData, &c.ServerData, &c.LocalVersion, &c.ServerVersion,
		&c.ResolutionStrategy, &c.Status, &c.CreatedAt, &c.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, c *models.Conflict) error {
	query := ` INSERT INTO conflicts (` + conflictColumns + `)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.SyncActionID, c.EntityType, c.EntityID, c.ConflictType,
		c.LocalData, c.ServerData, c.LocalVersion, c.ServerVersion,
		c.ResolutionStrategy, c.Status, c.CreatedAt, c.ResolvedAt)
	if err != nil {
		return fmt.Errorf("failed to insert conflict: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Conflict, error) {
	query := `select ` + conflictColumns + ` from conflicts where id=?`
	c, err := scanConflict(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]models.Conflict, error) {
	query := `select ` + conflictColumns + ` from conflicts where status=? order by created_at`
	rows, err := r.db.QueryContext(ctx, query, models.ConflictStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to select conflicts: %w", err)
	}
	defer rows.Close()

	var result []models.Conflict
	for rows.Next() {
		c, err := scanConflict(rows)
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

func (r *SQLiteRepository) MarkResolved(ctx context.Context, id string, strategy models.ResolutionStrategy, resolvedAt int64) error {
	query := `update conflicts set status=?, resolution_strategy=?, resolved_at=? where id=? and status=?`
	res, err := r.db.ExecContext(ctx, query,
		models.ConflictStatusResolved, strategy, resolvedAt, id, models.ConflictStatusPending)
	if err != nil {
		return fmt.Errorf("failed to resolve conflict: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("%w: pending conflict %s", common.ErrNotFound, id)
	}
	return nil
}
