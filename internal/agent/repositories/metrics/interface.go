package metrics

import (
	"context"

	"github.com/verifield/fieldsync/internal/agent/models"
)

// Repository persists PerformanceMetric rows. Metrics are advisory
// diagnostics; losing them never affects sync correctness.
type Repository interface {
	Insert(ctx context.Context, m *models.PerformanceMetric) error

	// ListRecent returns the newest measurements for one operation,
	// most recent first.
	ListRecent(ctx context.Context, operation string, limit int) ([]models.PerformanceMetric, error)

	// PruneBefore drops measurements recorded before the cutoff and
	// returns how many were removed.
	PruneBefore(ctx context.Context, cutoff int64) (int, error)
}
