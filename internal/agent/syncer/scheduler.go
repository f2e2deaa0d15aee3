package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/verifield/fieldsync/internal/agent/cache"
	"github.com/verifield/fieldsync/internal/agent/models"
	"github.com/verifield/fieldsync/internal/logging"
)

// Diagnostic timing rows older than this are dropped by the sweep.
const metricRetentionMs = int64(7 * 24 * time.Hour / time.Millisecond)

// Scheduler drives the background loops: periodic queue drains and the
// cache sweep. Ticks that land while a drain is still running are dropped,
// not queued, so a slow run never piles up behind itself.
type Scheduler struct {
	cron  *cron.Cron
	proc  *Processor
	cache *cache.Cache
	log   logging.Logger

	syncSpec  string
	sweepSpec string
}

func NewScheduler(proc *Processor, c *cache.Cache, log logging.Logger, syncSpec, sweepSpec string) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		proc:      proc,
		cache:     c,
		log:       log,
		syncSpec:  syncSpec,
		sweepSpec: sweepSpec,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.syncSpec, func() { s.runSync(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}
	if _, err := s.cron.AddFunc(s.sweepSpec, func() { s.runSweep(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule cache sweep: %w", err)
	}
	s.cron.Start()
	s.log.Info(ctx, "scheduler started", "sync", s.syncSpec, "sweep", s.sweepSpec)
	return nil
}

// Stop halts the cron loop and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runSync(ctx context.Context) {
	res, err := s.proc.ProcessQueue(ctx)
	if errors.Is(err, ErrSyncInProgress) {
		s.log.Debug(ctx, "skipping sync tick, previous run still active")
		return
	}
	if err != nil {
		s.log.Error(ctx, "scheduled sync run failed", "error", err)
		return
	}
	if res.Processed > 0 {
		s.log.Debug(ctx, "scheduled sync run done", "processed", res.Processed)
	}
}

func (s *Scheduler) runSweep(ctx context.Context) {
	started := s.proc.now()
	n, err := s.cache.ClearExpired(ctx)
	if err != nil {
		s.log.Error(ctx, "cache sweep failed", "error", err)
		return
	}

	// The sweep also bounds the metrics table itself.
	pruned, err := s.proc.store.Metrics.PruneBefore(ctx, started-metricRetentionMs)
	if err != nil {
		s.log.Error(ctx, "metric prune failed", "error", err)
	}

	m := &models.PerformanceMetric{
		ID:         s.proc.newID(),
		Operation:  models.MetricCacheSweep,
		DurationMs: s.proc.now() - started,
		ItemCount:  int(n) + pruned,
		Success:    true,
		RecordedAt: s.proc.now(),
	}
	if err := s.proc.store.Metrics.Insert(ctx, m); err != nil {
		s.log.Error(ctx, "failed to record sweep metric", "error", err)
	}

	if n > 0 {
		s.log.Debug(ctx, "cache sweep done", "removed", n, "metrics_pruned", pruned)
	}
}
