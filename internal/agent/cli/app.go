package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/verifield/fieldsync/internal/agent/api"
	"github.com/verifield/fieldsync/internal/agent/cache"
	"github.com/verifield/fieldsync/internal/agent/config"
	"github.com/verifield/fieldsync/internal/agent/conflict"
	"github.com/verifield/fieldsync/internal/agent/recorder"
	"github.com/verifield/fieldsync/internal/agent/session"
	"github.com/verifield/fieldsync/internal/agent/store"
	"github.com/verifield/fieldsync/internal/agent/syncer"
	"github.com/verifield/fieldsync/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config   *config.Config
	store    *store.Store
	client   api.Client
	session  *session.Manager
	recorder *recorder.Recorder
	resolver *conflict.Resolver
	syncer   *syncer.Processor
	cache    *cache.Cache
	log      logging.Logger

	userName string
	Mode     Mode
	reader   *bufio.Reader
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {

	st, err := store.Open(ctx, c.DatabasePath)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	sm := session.NewManager(st.Sessions, logger)
	apiClient := api.NewHTTPClient(c.ServerEndpointAddr, sm)

	rec := recorder.New(st.DB(), logger)
	res := conflict.New(st.DB(), logger)
	proc := syncer.New(st, apiClient, res, logger, syncer.WithBatchSize(c.SyncBatchSize))

	return &App{
		config:   c,
		store:    st,
		client:   apiClient,
		session:  sm,
		recorder: rec,
		resolver: res,
		syncer:   proc,
		cache:    cache.New(st.DB()),
		log:      logger,
		reader:   bufio.NewReader(os.Stdin),
	}, nil
}

// Scheduler builds the background loop driving periodic sync runs and cache
// sweeps, sized from the app's config.
func (a *App) Scheduler() *syncer.Scheduler {
	return syncer.NewScheduler(a.syncer, a.cache, a.log,
		everySpec(a.config.SyncInterval), everySpec(a.config.CacheSweepInterval))
}

func everySpec(d time.Duration) string {
	return fmt.Sprintf("@every %s", d)
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) Run(ctx context.Context) {
	defer a.store.Close()
	defer a.client.Close()
	a.Root(ctx)
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	return a.session.Valid(ctx)
}

// StartOnlineStatusWatcher probes the backend on a fixed interval and flips
// the mode banner. Queued work keeps accumulating regardless of mode; the
// watcher only informs the user.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := a.client.Ping(probeCtx)
			cancel()

			if err != nil {
				if a.Mode == ModeOnline {
					a.setMode(ModeOffline)
				}
			} else {
				if a.Mode != ModeOnline {
					a.setMode(ModeOnline)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}
