package metrics

import (
	"context"
	"fmt"

	"github.com/verifield/fieldsync/internal/agent/models"
	"github.com/verifield/fieldsync/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const metricColumns = `id, operation, duration_ms, item_count, success, details, recorded_at`

func (r *SQLiteRepository) Insert(ctx context.Context, m *models.PerformanceMetric) error {
	query := ` INSERT INTO performance_metrics (` + metricColumns + `)
			values (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.Operation, m.DurationMs, m.ItemCount, m.Success, m.Details, m.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to insert performance metric: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListRecent(ctx context.Context, operation string, limit int) ([]models.PerformanceMetric, error) {
	query := `select ` + metricColumns + ` from performance_metrics
		where operation=? order by recorded_at desc, rowid desc limit ?`
	rows, err := r.db.QueryContext(ctx, query, operation, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select performance metrics: %w", err)
	}
	defer rows.Close()

	var result []models.PerformanceMetric
	for rows.Next() {
		var m models.PerformanceMetric
		if err := rows.Scan(&m.ID, &m.Operation, &m.DurationMs, &m.ItemCount,
			&m.Success, &m.Details, &m.RecordedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) PruneBefore(ctx context.Context, cutoff int64) (int, error) {
	res, err := r.db.ExecContext(ctx, `delete from performance_metrics where recorded_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune performance metrics: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(ra), nil
}
