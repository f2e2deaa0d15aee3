// Package conflict implements the Conflict Resolver. When a replay is
// rejected because the server's copy has diverged, Record preserves both
// sides verbatim as a Conflict row; resolution is a separate, explicit
// decision applied by Resolve with a pluggable strategy. A conflict is
// never auto-discarded and its action is never retried blindly.
package conflict

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/verifield/fieldsync/internal/agent/api"
	"github.com/verifield/fieldsync/internal/agent/models"
	"github.com/verifield/fieldsync/internal/agent/repositories/attachments"
	"github.com/verifield/fieldsync/internal/agent/repositories/cases"
	"github.com/verifield/fieldsync/internal/agent/repositories/conflicts"
	"github.com/verifield/fieldsync/internal/agent/repositories/forms"
	"github.com/verifield/fieldsync/internal/agent/repositories/notifications"
	"github.com/verifield/fieldsync/internal/agent/repositories/syncqueue"
	"github.com/verifield/fieldsync/internal/common"
	"github.com/verifield/fieldsync/internal/dbx"
	"github.com/verifield/fieldsync/internal/logging"
	"github.com/verifield/fieldsync/internal/timex"
)

type Resolver struct {
	db  *sql.DB
	log logging.Logger

	// test seams
	now   func() int64
	newID func() string
}

func New(db *sql.DB, log logging.Logger) *Resolver {
	return &Resolver{
		db:    db,
		log:   log,
		now:   timex.NowMillis,
		newID: uuid.NewString,
	}
}

// Record captures a server-rejected replay as a pending Conflict. In one
// transaction it stores both payloads byte-for-byte, parks the action in
// the non-terminal conflict state, flags the entity, and emits a
// notification for the UI.
func (r *Resolver) Record(ctx context.Context, a *models.SyncAction, rejection *api.ConflictError) (*models.Conflict, error) {
	now := r.now()

	conflictType := models.ConflictVersionMismatch
	if rejection.Deleted || a.ActionType == models.ActionDelete {
		conflictType = models.ConflictDeleteVsUpdate
	}

	c := &models.Conflict{
		ID:            r.newID(),
		SyncActionID:  a.ID,
		EntityType:    a.EntityType,
		EntityID:      a.EntityID,
		ConflictType:  conflictType,
		LocalData:     a.Payload,
		ServerData:    rejection.ServerData,
		LocalVersion:  a.BaseVersion,
		ServerVersion: rejection.ServerVersion,
		Status:        models.ConflictStatusPending,
		CreatedAt:     now,
	}

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := conflicts.NewSQLiteRepository(tx).Insert(ctx, c); err != nil {
			return err
		}
		if err := syncqueue.NewSQLiteRepository(tx).MarkConflict(ctx, a.ID, rejection.Error()); err != nil {
			return err
		}
		if err := r.flagEntity(ctx, tx, a, rejection.ServerData); err != nil {
			return err
		}
		return notifications.NewSQLiteRepository(tx).Insert(ctx, &models.Notification{
			ID:        r.newID(),
			Title:     "Sync conflict",
			Message:   fmt.Sprintf("Server copy of %s %s has diverged", a.EntityType, a.EntityID),
			Type:      models.NotificationConflictDetected,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record conflict: %w", err)
	}

	r.log.Warn(ctx, "conflict recorded",
		"entity", a.EntityType, "entity_id", a.EntityID,
		"local_version", a.BaseVersion, "server_version", rejection.ServerVersion)
	return c, nil
}

func (r *Resolver) flagEntity(ctx context.Context, tx dbx.DBTX, a *models.SyncAction, serverData []byte) error {
	switch a.EntityType {
	case models.EntityCase:
		return cases.NewSQLiteRepository(tx).MarkConflict(ctx, a.EntityID, serverData)
	case models.EntityForm:
		return forms.NewSQLiteRepository(tx).MarkConflict(ctx, a.EntityID)
	case models.EntityAttachment:
		return attachments.NewSQLiteRepository(tx).MarkConflict(ctx, a.EntityID)
	default:
		return fmt.Errorf("unknown entity type %q", a.EntityType)
	}
}

// Resolve applies an explicit resolution decision to a pending conflict.
//
//   - local_wins: the original action is requeued with the server's version
//     as its new base, so the forced replay goes through.
//   - server_wins: the local row is overwritten from the preserved server
//     payload and the superseded action is terminally failed.
//   - merge: the caller supplies a merged payload, which is requeued in
//     place of the original.
func (r *Resolver) Resolve(ctx context.Context, conflictID string, strategy models.ResolutionStrategy, merged []byte) error {
	now := r.now()
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		conflictRepo := conflicts.NewSQLiteRepository(tx)
		queueRepo := syncqueue.NewSQLiteRepository(tx)

		c, err := conflictRepo.GetByID(ctx, conflictID)
		if err != nil {
			return err
		}
		if c.Status != models.ConflictStatusPending {
			return fmt.Errorf("%w: conflict %s already resolved", common.ErrValidation, conflictID)
		}

		switch strategy {
		case models.ResolveLocalWins:
			if err := queueRepo.Requeue(ctx, c.SyncActionID, c.LocalData, c.ServerVersion, now); err != nil {
				return err
			}
			if err := r.unflagEntity(ctx, tx, c); err != nil {
				return err
			}

		case models.ResolveServerWins:
			if err := r.applyServerCopy(ctx, tx, c); err != nil {
				return err
			}
			if err := queueRepo.MarkFailed(ctx, c.SyncActionID, "superseded by server copy"); err != nil {
				return err
			}

		case models.ResolveMerge:
			if len(merged) == 0 {
				return fmt.Errorf("%w: merge resolution requires a merged payload", common.ErrValidation)
			}
			if err := queueRepo.Requeue(ctx, c.SyncActionID, merged, c.ServerVersion, now); err != nil {
				return err
			}
			if err := r.unflagEntity(ctx, tx, c); err != nil {
				return err
			}

		default:
			return fmt.Errorf("%w: unknown resolution strategy %q", common.ErrValidation, strategy)
		}

		return conflictRepo.MarkResolved(ctx, conflictID, strategy, now)
	})
}

func (r *Resolver) unflagEntity(ctx context.Context, tx dbx.DBTX, c *models.Conflict) error {
	switch c.EntityType {
	case models.EntityCase:
		return cases.NewSQLiteRepository(tx).MarkPending(ctx, c.EntityID)
	case models.EntityForm:
		return forms.NewSQLiteRepository(tx).MarkPending(ctx, c.EntityID)
	case models.EntityAttachment:
		return attachments.NewSQLiteRepository(tx).MarkPending(ctx, c.EntityID)
	default:
		return fmt.Errorf("unknown entity type %q", c.EntityType)
	}
}

// applyServerCopy overwrites the local row from the preserved server
// payload. Server-wins is the one place this layer decodes entity JSON:
// materializing the server's copy requires it.
func (r *Resolver) applyServerCopy(ctx context.Context, tx dbx.DBTX, c *models.Conflict) error {
	switch c.EntityType {
	case models.EntityCase:
		var sc models.Case
		if err := json.Unmarshal(c.ServerData, &sc); err != nil {
			return fmt.Errorf("failed to decode server case: %w", err)
		}
		sc.ID = c.EntityID
		sc.Version = c.ServerVersion
		sc.SyncStatus = models.SyncStatusSynced
		sc.LastModified = r.now()
		return cases.NewSQLiteRepository(tx).Upsert(ctx, &sc)

	case models.EntityForm:
		// Submissions are immutable; accepting the server side only means
		// recording its version.
		return forms.NewSQLiteRepository(tx).MarkSynced(ctx, c.EntityID, c.ServerVersion)

	case models.EntityAttachment:
		return attachments.NewSQLiteRepository(tx).MarkSynced(ctx, c.EntityID, c.ServerVersion)

	default:
		return fmt.Errorf("unknown entity type %q", c.EntityType)
	}
}
