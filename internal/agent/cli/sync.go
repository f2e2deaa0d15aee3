package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/verifield/fieldsync/internal/agent/models"
	"github.com/verifield/fieldsync/internal/agent/syncer"
	"github.com/verifield/fieldsync/internal/timex"
)

func (a *App) sync(ctx context.Context) {
	if !a.isLoggedIn(ctx) {
		fmt.Println("Not logged in; use 'login' first")
		return
	}

	res, err := a.syncer.ProcessQueue(ctx)
	if errors.Is(err, syncer.ErrSyncInProgress) {
		fmt.Println("A sync run is already in progress")
		return
	}
	if err != nil {
		log.Println(err.Error())
		return
	}

	fmt.Printf("Processed %d: %d completed, %d rescheduled, %d failed, %d conflicts\n",
		res.Processed, res.Completed, res.Rescheduled, res.Failed, res.Conflicts)
}

func (a *App) queue(ctx context.Context) {
	s, err := a.store.Queue.Stats(ctx)
	if err != nil {
		log.Println(err.Error())
		return
	}

	fmt.Printf("pending: %d, retrying: %d, conflict: %d, completed: %d, failed: %d\n",
		s.Pending, s.Retrying, s.Conflict, s.Completed, s.Failed)
}

func (a *App) metrics(ctx context.Context) {
	runs, err := a.store.Metrics.ListRecent(ctx, models.MetricSyncRun, 10)
	if err != nil {
		log.Println(err.Error())
		return
	}
	if len(runs) == 0 {
		fmt.Println("No sync runs recorded yet")
		return
	}

	for _, m := range runs {
		status := "ok"
		if !m.Success {
			status = "failed"
		}
		fmt.Printf("%s  %4d ms  %3d actions  %s\n",
			timex.FromMillis(m.RecordedAt).Format("2006-01-02 15:04:05"),
			m.DurationMs, m.ItemCount, status)
	}
}
