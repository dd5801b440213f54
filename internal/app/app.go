// Package app wires the scheduler together: config, logging, persistence,
// the domain state, and the dispatcher, plus the background jobs (autosave,
// config watch) that keep them current.
package app

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"github.com/sprites20/barangay-proceedings/internal/config"
	"github.com/sprites20/barangay-proceedings/internal/dispatch"
	"github.com/sprites20/barangay-proceedings/internal/eventbus"
	"github.com/sprites20/barangay-proceedings/internal/placement"
	"github.com/sprites20/barangay-proceedings/internal/recur"
	"github.com/sprites20/barangay-proceedings/internal/storage"
	"github.com/sprites20/barangay-proceedings/internal/template"
	"github.com/sprites20/barangay-proceedings/internal/timeline"
	"github.com/sprites20/barangay-proceedings/pkg/logx"
)

type App struct {
	cfgPath string
	cfgm    *config.Manager

	log  logx.Logger
	logs *logx.Service
	bus  *eventbus.Bus

	store storage.Store

	tracks    *timeline.Registry
	events    *timeline.Store
	templates *template.Catalog
	engine    *placement.Engine
	expander  *recur.Expander
	disp      *dispatch.Dispatcher

	cron  *cron.Cron
	dirty atomic.Bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogging(cfg.Logging))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(logSvc.Logger().With(logx.String("comp", "config")))

	// Persistence (optional)
	var store storage.Store
	if cfg.Storage != nil {
		busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
		if err != nil {
			return nil, err
		}
		st, err := storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busy,
		}, logSvc.Logger().With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		if st != nil {
			store = st
			log.Info("storage enabled", logx.String("driver", cfg.Storage.Driver))
		}
	}

	cat, err := template.NewCatalog(mapTemplates(cfg.Templates))
	if err != nil {
		return nil, err
	}

	bus := eventbus.New()
	tracks := timeline.NewRegistry()
	events := timeline.NewStore()
	engine := placement.New(tracks, events, cat, logSvc.Logger().With(logx.String("comp", "placement")))
	expander := recur.NewExpander(logSvc.Logger().With(logx.String("comp", "recur")))

	disp := dispatch.New(engine, expander, cat, bus, logSvc.Logger().With(logx.String("comp", "dispatch")))
	disp.SetRateLimit(cfg.Dispatch.RatePerSec)

	a := &App{
		cfgPath:   cfgPath,
		cfgm:      cfgm,
		log:       log,
		logs:      logSvc,
		bus:       bus,
		store:     store,
		tracks:    tracks,
		events:    events,
		templates: cat,
		engine:    engine,
		expander:  expander,
		disp:      disp,
	}

	if store != nil {
		snap, ok, err := store.LoadSnapshot(context.Background())
		if err != nil {
			return nil, err
		}
		if ok {
			dropped := restoreSnapshot(tracks, events, snap, log)
			log.Info("schedule restored",
				logx.Int("tracks", tracks.Len()),
				logx.Int("events", events.Len()),
				logx.Int("dropped", dropped),
				logx.Time("saved_at", snap.SavedAt),
			)
			bus.Publish(eventbus.Mutation{Kind: eventbus.KindStateRestored})
		}
	}
	return a, nil
}

// Dispatcher is the request entry point for the transport layer.
func (a *App) Dispatcher() *dispatch.Dispatcher { return a.disp }

func (a *App) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	// Any mutation marks the schedule dirty so autosave has something to do.
	mutCh, mutCancel := a.bus.Subscribe(64)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer mutCancel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-mutCh:
				if !ok {
					return
				}
				a.dirty.Store(true)
			}
		}
	}()

	cfg := a.cfgm.Get()
	if a.store != nil && cfg.Autosave.Enabled {
		schedule := strings.TrimSpace(cfg.Autosave.Schedule)
		if schedule == "" {
			schedule = config.DefaultAutosaveSchedule
		}
		a.cron = cron.New()
		if _, err := a.cron.AddFunc(schedule, a.autosave); err != nil {
			cancel()
			return err
		}
		a.cron.Start()
		a.log.Info("autosave scheduled", logx.String("schedule", schedule))
	}

	// Hot reload: watch the file, apply the cheap-to-swap parts live.
	reloads := a.cfgm.Subscribe(4)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case next, ok := <-reloads:
				if !ok {
					return
				}
				a.applyReload(next)
			}
		}
	}()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		_ = a.cfgm.Watch(ctx)
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("scheduler started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.cron != nil {
		cronCtx := a.cron.Stop()
		select {
		case <-cronCtx.Done():
		case <-ctx.Done():
		}
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	var err error
	if a.store != nil {
		if saveErr := a.save(ctx); saveErr != nil {
			a.log.Error("final save failed", logx.Err(saveErr))
			err = saveErr
		}
		if closeErr := a.store.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	a.log.Info("scheduler stopped")
	_ = a.logs.Close()
	return err
}

// applyReload swaps the runtime-adjustable parts of the config: log sinks,
// the template catalog, and the dispatch rate limit. Storage and autosave
// changes need a restart.
func (a *App) applyReload(cfg *config.Config) {
	if cfg == nil {
		return
	}
	a.logs.Apply(mapLogging(cfg.Logging))
	if err := a.templates.Replace(orDefaults(mapTemplates(cfg.Templates))); err != nil {
		a.log.Warn("template reload rejected; keeping previous catalog", logx.Err(err))
	}
	a.disp.SetRateLimit(cfg.Dispatch.RatePerSec)
}

func (a *App) autosave() {
	if !a.dirty.Swap(false) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.save(ctx); err != nil {
		a.log.Error("autosave failed", logx.Err(err))
		a.dirty.Store(true)
	}
}

// save snapshots under the dispatcher's lock so a concurrent mutation can't
// produce a half-updated snapshot.
func (a *App) save(ctx context.Context) error {
	var snap storage.Snapshot
	a.disp.WithLock(func() {
		snap = storage.Snapshot{
			Tracks: a.tracks.Tracks(),
			Events: a.events.All(),
		}
	})
	return a.store.SaveSnapshot(ctx, snap)
}

func mapLogging(lc config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
	}
}

func mapTemplates(in []config.TemplateConfig) []template.Template {
	out := make([]template.Template, 0, len(in))
	for _, t := range in {
		out = append(out, template.Template{
			ID:              t.ID,
			Title:           t.Title,
			DurationMinutes: t.DurationMinutes,
		})
	}
	return out
}

func orDefaults(items []template.Template) []template.Template {
	if len(items) == 0 {
		return template.Defaults()
	}
	return items
}

// restoreSnapshot loads persisted state into the registry and store. Events
// referencing a track that is not in the snapshot are dropped with a
// warning; a snapshot edited or truncated by hand must not wedge startup.
func restoreSnapshot(tracks *timeline.Registry, events *timeline.Store, snap storage.Snapshot, log logx.Logger) int {
	for _, t := range snap.Tracks {
		tracks.Restore(t)
	}
	dropped := 0
	for _, ev := range snap.Events {
		if _, err := tracks.Get(ev.TrackID); err != nil {
			log.Warn("dropping event with unknown track",
				logx.String("event", ev.ID),
				logx.String("title", ev.Title),
				logx.String("track", ev.TrackID),
			)
			dropped++
			continue
		}
		if err := events.Insert(ev); err != nil {
			log.Warn("dropping invalid event",
				logx.String("event", ev.ID),
				logx.Err(err),
			)
			dropped++
		}
	}
	return dropped
}
