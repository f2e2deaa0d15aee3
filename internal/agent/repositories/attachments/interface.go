package attachments

import (
	"context"

	"github.com/verifield/fieldsync/internal/agent/models"
)

// Repository persists Attachment rows. Upload state transitions
// independently of the owning case's sync status.
type Repository interface {
	Insert(ctx context.Context, a *models.Attachment) error
	GetByID(ctx context.Context, id string) (*models.Attachment, error)
	ListByCase(ctx context.Context, caseID string) ([]models.Attachment, error)
	ListPendingUpload(ctx context.Context) ([]models.Attachment, error)
	UpdateUploadState(ctx context.Context, id string, status models.UploadStatus, progress int) error
	MarkSynced(ctx context.Context, id string, version int64) error
	MarkConflict(ctx context.Context, id string) error
	MarkPending(ctx context.Context, id string) error
}
