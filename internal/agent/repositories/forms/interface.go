package forms

import (
	"context"

	"github.com/verifield/fieldsync/internal/agent/models"
)

// Repository persists FormSubmission rows. Submissions are written once and
// never updated apart from their sync status.
type Repository interface {
	Insert(ctx context.Context, f *models.FormSubmission) error
	GetByID(ctx context.Context, id string) (*models.FormSubmission, error)
	ListByCase(ctx context.Context, caseID string) ([]models.FormSubmission, error)
	MarkSynced(ctx context.Context, id string, version int64) error
	MarkConflict(ctx context.Context, id string) error
	MarkPending(ctx context.Context, id string) error
}
