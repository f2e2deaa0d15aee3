package conflicts

import (
	"context"

	"github.com/verifield/fieldsync/internal/agent/models"
)

// Repository persists Conflict rows. A conflict is never deleted; it stays
// until a resolution strategy is recorded against it.
type Repository interface {
	Insert(ctx context.Context, c *models.Conflict) error
	GetByID(ctx context.Context, id string) (*models.Conflict, error)
	ListPending(ctx context.Context) ([]models.Conflict, error)
	MarkResolved(ctx context.Context, id string, strategy models.ResolutionStrategy, resolvedAt int64) error
}
