// Package recorder is the Mutation Recorder: the single public write API
// for mirrored entities. Every save/update/delete upserts the entity row
// and enqueues the matching SyncAction inside one transaction, so an entity
// is never marked pending without a queued action and an action never
// references an entity that does not exist locally.
//
// Validation failures (missing foreign key, malformed input) are rejected
// here and nothing is enqueued: the queue only ever contains structurally
// valid actions.
package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/verifield/fieldsync/internal/agent/models"
	"github.com/verifield/fieldsync/internal/agent/repositories/attachments"
	"github.com/verifield/fieldsync/internal/agent/repositories/cases"
	"github.com/verifield/fieldsync/internal/agent/repositories/forms"
	"github.com/verifield/fieldsync/internal/agent/repositories/syncqueue"
	"github.com/verifield/fieldsync/internal/common"
	"github.com/verifield/fieldsync/internal/dbx"
	"github.com/verifield/fieldsync/internal/logging"
	"github.com/verifield/fieldsync/internal/timex"
)

type Recorder struct {
	db  *sql.DB
	log logging.Logger

	// test seams
	now   func() int64
	newID func() string
}

func New(db *sql.DB, log logging.Logger) *Recorder {
	return &Recorder{
		db:    db,
		log:   log,
		now:   timex.NowMillis,
		newID: uuid.NewString,
	}
}

// SaveCase creates or updates a case. The action type is derived from
// whether the row already exists; the queued payload is the case's wire
// JSON at the moment of the write.
func (r *Recorder) SaveCase(ctx context.Context, c *models.Case) error {
	if c.ID == "" {
		c.ID = r.newID()
	}

	now := r.now()
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		caseRepo := cases.NewSQLiteRepository(tx)

		actionType := models.ActionCreate
		var baseVersion int64
		existing, err := caseRepo.GetByID(ctx, c.ID)
		switch {
		case err == nil:
			if existing.Deleted {
				// The queued delete action still references this row; a
				// save would resurrect the tombstone and diverge from the
				// server's history.
				return fmt.Errorf("%w: case %s is deleted", common.ErrValidation, c.ID)
			}
			actionType = models.ActionUpdate
			baseVersion = existing.Version
			c.Version = existing.Version
			if c.CreatedAt == 0 {
				c.CreatedAt = existing.CreatedAt
			}
		case errors.Is(err, common.ErrNotFound):
			if c.CreatedAt == 0 {
				c.CreatedAt = now
			}
		default:
			return err
		}

		c.UpdatedAt = now
		c.LastModified = now
		c.SyncStatus = models.SyncStatusPending
		if c.Status == "" {
			c.Status = models.CaseStatusPending
		}

		if err := caseRepo.Upsert(ctx, c); err != nil {
			return err
		}

		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to serialize case: %w", err)
		}

		return r.enqueue(ctx, tx, &models.SyncAction{
			ActionType:  actionType,
			EntityType:  models.EntityCase,
			EntityID:    c.ID,
			Payload:     payload,
			BaseVersion: baseVersion,
			Priority:    models.PriorityCase,
		})
	})
}

// UpdateCaseStatus is the common field-agent mutation: flip the business
// status of a case, recording it like any other update.
func (r *Recorder) UpdateCaseStatus(ctx context.Context, id string, status models.CaseStatus) error {
	c, err := cases.NewSQLiteRepository(r.db).GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c.Deleted {
		return fmt.Errorf("%w: case %s is deleted", common.ErrValidation, id)
	}
	c.Status = status
	return r.SaveCase(ctx, c)
}

// DeleteCase tombstones a case and queues the delete for replay. Direct row
// removal would silently diverge device and server state, so deletion flows
// through the queue like any other mutation.
func (r *Recorder) DeleteCase(ctx context.Context, id string) error {
	now := r.now()
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		caseRepo := cases.NewSQLiteRepository(tx)

		existing, err := caseRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing.Deleted {
			return fmt.Errorf("%w: case %s already deleted", common.ErrValidation, id)
		}

		if err := caseRepo.SoftDelete(ctx, id, now); err != nil {
			return err
		}

		payload, err := json.Marshal(map[string]any{"id": id, "version": existing.Version})
		if err != nil {
			return err
		}

		return r.enqueue(ctx, tx, &models.SyncAction{
			ActionType:  models.ActionDelete,
			EntityType:  models.EntityCase,
			EntityID:    id,
			Payload:     payload,
			BaseVersion: existing.Version,
			Priority:    models.PriorityCase,
		})
	})
}

// SaveFormSubmission persists a completed form exactly once. The owning
// case must exist locally (application-level foreign key); re-submitting an
// existing ID is rejected because submissions are immutable.
func (r *Recorder) SaveFormSubmission(ctx context.Context, f *models.FormSubmission) error {
	if f.ID == "" {
		f.ID = r.newID()
	}
	if f.CaseID == "" {
		return fmt.Errorf("%w: form submission has no case id", common.ErrValidation)
	}
	if len(f.Payload) == 0 {
		return fmt.Errorf("%w: form submission has no payload", common.ErrValidation)
	}

	now := r.now()
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ok, err := dbx.Exists(ctx, tx, `select 1 from cases where id=? and deleted=0`, f.CaseID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", common.ErrMissingCase, f.CaseID)
		}

		ok, err = dbx.Exists(ctx, tx, `select 1 from form_submissions where id=?`, f.ID)
		if err != nil {
			return err
		}
		if ok {
			return fmt.Errorf("%w: %s", common.ErrImmutable, f.ID)
		}

		if f.CapturedAt == 0 {
			f.CapturedAt = now
		}
		f.SyncStatus = models.SyncStatusPending

		if err := forms.NewSQLiteRepository(tx).Insert(ctx, f); err != nil {
			return err
		}

		payload, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("failed to serialize form submission: %w", err)
		}

		return r.enqueue(ctx, tx, &models.SyncAction{
			ActionType: models.ActionCreate,
			EntityType: models.EntityForm,
			EntityID:   f.ID,
			Payload:    payload,
			Priority:   models.PriorityForm,
		})
	})
}

// SaveAttachment registers a captured file and queues its upload at low
// priority. The byte transfer itself happens during replay, against the
// presigned URL the backend hands back.
func (r *Recorder) SaveAttachment(ctx context.Context, a *models.Attachment) error {
	if a.ID == "" {
		a.ID = r.newID()
	}
	if a.CaseID == "" {
		return fmt.Errorf("%w: attachment has no case id", common.ErrValidation)
	}
	if a.LocalPath == "" {
		return fmt.Errorf("%w: attachment has no local path", common.ErrValidation)
	}

	now := r.now()
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ok, err := dbx.Exists(ctx, tx, `select 1 from cases where id=? and deleted=0`, a.CaseID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", common.ErrMissingCase, a.CaseID)
		}

		if a.FormID != "" {
			ok, err := dbx.Exists(ctx, tx, `select 1 from form_submissions where id=?`, a.FormID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: form submission %s does not exist", common.ErrValidation, a.FormID)
			}
		}

		if a.CreatedAt == 0 {
			a.CreatedAt = now
		}
		a.UploadStatus = models.UploadStatusPending
		a.SyncStatus = models.SyncStatusPending

		if err := attachments.NewSQLiteRepository(tx).Insert(ctx, a); err != nil {
			return err
		}

		payload, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to serialize attachment: %w", err)
		}

		return r.enqueue(ctx, tx, &models.SyncAction{
			ActionType: models.ActionCreate,
			EntityType: models.EntityAttachment,
			EntityID:   a.ID,
			Payload:    payload,
			Priority:   models.PriorityAttachment,
		})
	})
}

func (r *Recorder) enqueue(ctx context.Context, tx dbx.DBTX, a *models.SyncAction) error {
	a.ID = r.newID()
	a.Status = models.ActionStatusPending
	a.MaxRetries = models.DefaultMaxRetries
	a.CreatedAt = r.now()
	a.ScheduledAt = a.CreatedAt

	if err := syncqueue.NewSQLiteRepository(tx).Enqueue(ctx, a); err != nil {
		return err
	}
	r.log.Debug(ctx, "queued sync action",
		"action", a.ActionType, "entity", a.EntityType, "entity_id", a.EntityID)
	return nil
}
