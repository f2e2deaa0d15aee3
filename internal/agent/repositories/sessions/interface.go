package sessions

import (
	"context"

	"github.com/verifield/fieldsync/internal/agent/models"
)

// Repository persists the single active agent session.
type Repository interface {
	// Save replaces any existing session.
	Save(ctx context.Context, s *models.Session) error

	// Current returns the stored session, or common.ErrNotFound.
	Current(ctx context.Context) (*models.Session, error)

	// Delete removes the stored session (logout).
	Delete(ctx context.Context) error
}
