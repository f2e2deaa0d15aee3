package notifications

import (
	"context"

	"github.com/verifield/fieldsync/internal/agent/models"
)

// Repository persists Notification rows for the UI layer to poll.
type Repository interface {
	Insert(ctx context.Context, n *models.Notification) error
	ListUnread(ctx context.Context) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
}
