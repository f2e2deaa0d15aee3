// Package syncer drains the outbound sync queue. Each run pulls the due
// batch, replays actions against the backend in priority order, and settles
// every outcome in the local store: completion, bounded-backoff retry,
// terminal failure with a notification, or a recorded conflict. Actions for
// the same entity replay strictly in enqueue order; distinct entities are
// independent and replay concurrently.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/verifield/fieldsync/internal/agent/api"
	"github.com/verifield/fieldsync/internal/agent/conflict"
	"github.com/verifield/fieldsync/internal/agent/models"
	"github.com/verifield/fieldsync/internal/agent/store"
	"github.com/verifield/fieldsync/internal/common"
	"github.com/verifield/fieldsync/internal/logging"
	"github.com/verifield/fieldsync/internal/netx"
	"github.com/verifield/fieldsync/internal/timex"
)

// ErrSyncInProgress is returned when ProcessQueue is invoked while an
// earlier run has not finished. Runs never overlap.
var ErrSyncInProgress = errors.New("sync run already in progress")

const (
	DefaultBatchSize = 50
	DefaultWorkers   = 4
)

// Result summarizes one queue drain.
type Result struct {
	Processed   int
	Completed   int
	Rescheduled int
	Failed      int
	Conflicts   int

	// Deferred counts actions left queued for a later run: an older action
	// for the same entity is parked outside the batch (conflict or later
	// schedule), or the session lapsed mid-run.
	Deferred int
}

type Processor struct {
	store    *store.Store
	client   api.Client
	resolver *conflict.Resolver
	log      logging.Logger

	batchSize int
	workers   int
	running   atomic.Bool

	// test seams
	now      func() int64
	newID    func() string
	upload   func(ctx context.Context, url, contentType string, data []byte) error
	readFile func(name string) ([]byte, error)
}

type Option func(*Processor)

func WithBatchSize(n int) Option {
	return func(p *Processor) { p.batchSize = n }
}

func WithWorkers(n int) Option {
	return func(p *Processor) { p.workers = n }
}

func New(st *store.Store, client api.Client, resolver *conflict.Resolver, log logging.Logger, opts ...Option) *Processor {
	p := &Processor{
		store:     st,
		client:    client,
		resolver:  resolver,
		log:       log,
		batchSize: DefaultBatchSize,
		workers:   DefaultWorkers,
		now:       timex.NowMillis,
		newID:     uuid.NewString,
		upload: func(ctx context.Context, url, contentType string, data []byte) error {
			return netx.UploadToPresignedURL(ctx, nil, url, contentType, data)
		},
		readFile: os.ReadFile,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// ProcessQueue performs one drain of the due batch. Concurrent invocations
// are rejected with ErrSyncInProgress rather than queued; the scheduler
// simply tries again on the next tick.
func (p *Processor) ProcessQueue(ctx context.Context) (*Result, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer p.running.Store(false)

	batch, err := p.store.Queue.DueBatch(ctx, p.now(), p.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to load due batch: %w", err)
	}
	if len(batch) == 0 {
		return &Result{}, nil
	}

	started := p.now()
	res := &Result{Processed: len(batch)}
	p.drain(ctx, groupByEntity(batch), res)
	p.recordMetric(ctx, started, res)

	p.log.Info(ctx, "sync run finished",
		"processed", res.Processed, "completed", res.Completed,
		"rescheduled", res.Rescheduled, "failed", res.Failed,
		"conflicts", res.Conflicts, "deferred", res.Deferred)
	return res, nil
}

// recordMetric keeps a timing row per drain so slow runs in the field are
// diagnosable later. Best effort, never fails the run.
func (p *Processor) recordMetric(ctx context.Context, started int64, res *Result) {
	m := &models.PerformanceMetric{
		ID:         p.newID(),
		Operation:  models.MetricSyncRun,
		DurationMs: p.now() - started,
		ItemCount:  res.Processed,
		Success:    res.Failed == 0,
		RecordedAt: p.now(),
	}
	if err := p.store.Metrics.Insert(ctx, m); err != nil {
		p.log.Error(ctx, "failed to record sync metric", "error", err)
	}
}

// groupByEntity splits the batch into per-entity groups while preserving
// the batch's drain order both across groups and inside each group.
func groupByEntity(batch []*models.SyncAction) [][]*models.SyncAction {
	index := make(map[string]int)
	var groups [][]*models.SyncAction
	for _, a := range batch {
		key := string(a.EntityType) + "/" + a.EntityID
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], a)
	}
	return groups
}

// drain replays the groups on a bounded worker pool. Groups are independent
// entities, so parallel replay cannot violate per-entity ordering.
func (p *Processor) drain(ctx context.Context, groups [][]*models.SyncAction, res *Result) {
	jobs := make(chan []*models.SyncAction)
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := p.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(groups) {
		workers = len(groups)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for group := range jobs {
				p.processGroup(ctx, group, res, &mu)
			}
		}()
	}

	for _, g := range groups {
		jobs <- g
	}
	close(jobs)
	wg.Wait()
}

type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeRescheduled
	outcomeFailed
	outcomeConflict
	outcomeDeferred
)

// processGroup replays one entity's actions in order. The first outcome
// that is not a completion stops the group: replaying a later action past a
// stalled earlier one would reorder the entity's history.
func (p *Processor) processGroup(ctx context.Context, group []*models.SyncAction, res *Result, mu *sync.Mutex) {
	stopped := false
	for _, a := range group {
		if stopped || ctx.Err() != nil {
			return
		}

		o := p.processAction(ctx, a)

		mu.Lock()
		switch o {
		case outcomeCompleted:
			res.Completed++
		case outcomeRescheduled:
			res.Rescheduled++
			stopped = true
		case outcomeFailed:
			res.Failed++
			stopped = true
		case outcomeConflict:
			res.Conflicts++
			stopped = true
		case outcomeDeferred:
			res.Deferred++
			stopped = true
		}
		mu.Unlock()
	}
}

func (p *Processor) processAction(ctx context.Context, a *models.SyncAction) outcome {
	// An older action for this entity can sit outside the batch (parked in
	// conflict, or scheduled further out). It must replay first.
	earlier, err := p.store.Queue.HasEarlierPending(ctx, a)
	if err != nil {
		p.log.Error(ctx, "failed to check replay order", "action", a.ID, "error", err)
		return outcomeDeferred
	}
	if earlier {
		p.log.Debug(ctx, "deferring action behind an earlier one",
			"action", a.ID, "entity", a.EntityType, "entity_id", a.EntityID)
		return outcomeDeferred
	}

	result, err := p.client.Replay(ctx, a)

	var conflictErr *api.ConflictError
	switch {
	case err == nil:
		return p.settleSuccess(ctx, a, result)

	case errors.As(err, &conflictErr):
		if _, err := p.resolver.Record(ctx, a, conflictErr); err != nil {
			p.log.Error(ctx, "failed to record conflict", "action", a.ID, "error", err)
		}
		return outcomeConflict

	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrTokenExpired):
		// Auth lapse is recoverable: the user logs in again and the next
		// run picks the action up untouched. Terminal failure here would
		// strand every queued offline mutation.
		p.log.Warn(ctx, "replay blocked, session missing or expired",
			"action", a.ID, "entity", a.EntityType, "entity_id", a.EntityID)
		return outcomeDeferred

	case errors.Is(err, common.ErrUnavailable):
		return p.reschedule(ctx, a, err)

	default:
		// Permanent rejection (validation, unknown route). Retrying
		// cannot help.
		return p.fail(ctx, a, err)
	}
}

// settleSuccess finishes a replay the server accepted: uploads attachment
// bytes when a presigned URL came back, marks the action completed, and
// flips the entity to synced once no other action still targets it.
func (p *Processor) settleSuccess(ctx context.Context, a *models.SyncAction, result *api.ReplayResult) outcome {
	if a.EntityType == models.EntityAttachment && result.UploadURL != "" {
		if o, ok := p.uploadAttachment(ctx, a, result.UploadURL); !ok {
			return o
		}
	}

	if err := p.store.Queue.MarkCompleted(ctx, a.ID); err != nil {
		p.log.Error(ctx, "failed to mark action completed", "action", a.ID, "error", err)
		return outcomeDeferred
	}

	pending, err := p.store.Queue.HasPendingForEntity(ctx, a.EntityType, a.EntityID)
	if err != nil {
		p.log.Error(ctx, "failed to check remaining actions", "action", a.ID, "error", err)
		return outcomeCompleted
	}
	if !pending {
		if err := p.markEntitySynced(ctx, a, result.Version); err != nil &&
			!(a.ActionType == models.ActionDelete && errors.Is(err, common.ErrNotFound)) {
			p.log.Error(ctx, "failed to mark entity synced",
				"entity", a.EntityType, "entity_id", a.EntityID, "error", err)
		}
	}
	return outcomeCompleted
}

// uploadAttachment PUTs the file bytes to the presigned URL the create
// replay returned. Upload failures are retryable: the whole action is
// rescheduled and the next attempt gets a fresh URL.
func (p *Processor) uploadAttachment(ctx context.Context, a *models.SyncAction, url string) (outcome, bool) {
	att, err := p.store.Attachments.GetByID(ctx, a.EntityID)
	if err != nil {
		p.log.Error(ctx, "failed to load attachment for upload", "attachment", a.EntityID, "error", err)
		return p.fail(ctx, a, err), false
	}

	data, err := p.readFile(att.LocalPath)
	if err != nil {
		// The file vanished from local storage; no retry can recover it.
		return p.fail(ctx, a, fmt.Errorf("failed to read attachment file: %w", err)), false
	}

	if err := p.store.Attachments.UpdateUploadState(ctx, a.EntityID, models.UploadStatusUploading, 0); err != nil {
		p.log.Error(ctx, "failed to update upload state", "attachment", a.EntityID, "error", err)
	}

	if err := p.upload(ctx, url, att.MimeType, data); err != nil {
		if stateErr := p.store.Attachments.UpdateUploadState(ctx, a.EntityID, models.UploadStatusFailed, 0); stateErr != nil {
			p.log.Error(ctx, "failed to update upload state", "attachment", a.EntityID, "error", stateErr)
		}
		return p.reschedule(ctx, a, fmt.Errorf("%w: upload: %v", common.ErrUnavailable, err)), false
	}

	if err := p.store.Attachments.UpdateUploadState(ctx, a.EntityID, models.UploadStatusUploaded, 100); err != nil {
		p.log.Error(ctx, "failed to update upload state", "attachment", a.EntityID, "error", err)
	}
	return outcomeCompleted, true
}

func (p *Processor) markEntitySynced(ctx context.Context, a *models.SyncAction, version int64) error {
	switch a.EntityType {
	case models.EntityCase:
		return p.store.Cases.MarkSynced(ctx, a.EntityID, version)
	case models.EntityForm:
		return p.store.Forms.MarkSynced(ctx, a.EntityID, version)
	case models.EntityAttachment:
		return p.store.Attachments.MarkSynced(ctx, a.EntityID, version)
	default:
		return fmt.Errorf("unknown entity type %q", a.EntityType)
	}
}

// reschedule pushes a retryable failure forward with exponential backoff.
// When the retry budget is spent the action fails terminally instead.
func (p *Processor) reschedule(ctx context.Context, a *models.SyncAction, cause error) outcome {
	delay := Backoff(a.RetryCount)
	err := p.store.Queue.Reschedule(ctx, a.ID, p.now()+delay.Milliseconds(), cause.Error())
	if errors.Is(err, common.ErrRetryExhausted) {
		return p.fail(ctx, a, fmt.Errorf("%w: %v", common.ErrRetryExhausted, cause))
	}
	if err != nil {
		p.log.Error(ctx, "failed to reschedule action", "action", a.ID, "error", err)
		return outcomeDeferred
	}

	p.log.Warn(ctx, "replay failed, rescheduled",
		"action", a.ID, "entity", a.EntityType, "entity_id", a.EntityID,
		"attempt", a.RetryCount+1, "max", a.MaxRetries, "delay", delay, "error", cause)
	return outcomeRescheduled
}

// fail marks the action terminally failed and leaves a notification so the
// user learns the change never reached the backend.
func (p *Processor) fail(ctx context.Context, a *models.SyncAction, cause error) outcome {
	if err := p.store.Queue.MarkFailed(ctx, a.ID, cause.Error()); err != nil {
		p.log.Error(ctx, "failed to mark action failed", "action", a.ID, "error", err)
		return outcomeDeferred
	}

	n := &models.Notification{
		ID:        p.newID(),
		Title:     "Sync failed",
		Message:   fmt.Sprintf("Could not sync %s %s: %v", a.EntityType, a.EntityID, cause),
		Type:      models.NotificationSyncFailed,
		CreatedAt: p.now(),
	}
	if err := p.store.Notifications.Insert(ctx, n); err != nil {
		p.log.Error(ctx, "failed to insert notification", "action", a.ID, "error", err)
	}

	p.log.Error(ctx, "replay failed permanently",
		"action", a.ID, "entity", a.EntityType, "entity_id", a.EntityID, "error", cause)
	return outcomeFailed
}
