// Package daemon assembles the long-running service: it wires the archive
// client, the sequencer, the scheduler, and the output watchers together,
// enforces single-instance execution, and exposes the surface the IPC layer
// serves to the CLI.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"bingpaper/internal/bing"
	"bingpaper/internal/config"
	"bingpaper/internal/history"
	"bingpaper/internal/hyprland"
	"bingpaper/internal/hyprpaper"
	"bingpaper/internal/logging"
	"bingpaper/internal/notifier"
	"bingpaper/internal/scheduler"
	"bingpaper/internal/sequencer"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	runID  string

	store     *history.Store
	publisher *notifier.Notifier
	seq       *sequencer.Sequencer
	sched     *scheduler.Scheduler
	events    *hyprland.EventListener
	outputs   *hyprland.Client
	drm       *drmMonitor

	fallback string
	lockPath string
	lock     *flock.Flock

	startedAt time.Time
	running   atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Status is the daemon's runtime snapshot served over IPC.
type Status struct {
	Running        bool
	PID            int
	RunID          string
	StartedAt      time.Time
	LockPath       string
	SocketPath     string
	HistoryDBPath  string
	PicturesDir    string
	FallbackAsset  string
	CurrentPicture string
	NextPoll       time.Time
	LastError      string
	UpdatedAt      time.Time
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		runID:    uuid.NewString(),
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			// The journal is inspection-only; a broken database must not keep
			// wallpapers from updating.
			logger.Warn("history journal unavailable", logging.Error(err))
		} else {
			d.store = store
		}
	}

	fallback := locateFallback(cfg.Pictures.FallbackPicture)
	d.fallback = fallback
	if fallback == "" {
		logger.Warn("no fallback asset found, new outputs stay blank until the first picture")
	} else {
		logger.Debug("fallback asset resolved", logging.String("path", fallback))
	}

	presenter := hyprpaper.New(cfg.Daemon.HyprpaperSocket, logger)
	d.outputs = hyprland.New("")
	d.seq = sequencer.New(presenter, d.outputs, fallback, logger)
	d.events = hyprland.NewEventListener("", logger)
	d.drm = newDRMMonitor(logger, d.reapplyAll)

	resolver := bing.New(cfg.Pictures.Market, logger)

	var publisher scheduler.Publisher
	if cfg.Daemon.DBus {
		d.publisher = notifier.New(logger)
		publisher = d.publisher
	}
	var journal scheduler.Journal
	if d.store != nil {
		journal = d.store
	}

	d.sched = scheduler.New(resolver, d.seq, publisher, journal, scheduler.NewState(), scheduler.Options{
		PicturesDir:   cfg.PicturesDirectory(),
		Market:        cfg.Pictures.Market,
		RetryInterval: time.Duration(cfg.Daemon.PollRetryMinutes) * time.Minute,
	}, logger)

	return d, nil
}

// Start acquires the single-instance lock and launches the scheduler and the
// output watchers.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another bingpaper daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.startedAt = time.Now().UTC()

	if err := d.seq.PreloadFallback(); err != nil {
		// The presentation daemon may come up later; reapply will retry.
		d.logger.Warn("fallback preload failed", logging.Error(err))
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_ = d.sched.Run(d.ctx)
	}()

	if d.events.Available() {
		added := make(chan string, 8)
		d.wg.Add(2)
		go func() {
			defer d.wg.Done()
			d.events.Listen(d.ctx, added)
		}()
		go func() {
			defer d.wg.Done()
			for {
				select {
				case <-d.ctx.Done():
					return
				case name := <-added:
					d.sched.NotifyOutputAdded(name)
				}
			}
		}()
	} else {
		d.logger.Info("compositor event socket unavailable, falling back to drm hotplug events")
		d.drm.Start(d.ctx)
	}

	d.running.Store(true)
	d.logger.Info("bingpaper daemon started",
		logging.String("run_id", d.runID),
		logging.String("lock", d.lockPath),
		logging.String("pictures_dir", d.cfg.PicturesDirectory()))
	return nil
}

// Stop halts background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.drm.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("bingpaper daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	if d.publisher != nil {
		_ = d.publisher.Close()
	}
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Refresh asks the scheduler for an immediate poll cycle.
func (d *Daemon) Refresh() {
	d.sched.Refresh()
}

// CurrentPicture returns the picture currently on screen, falling back to the
// permanent asset before the first adoption.
func (d *Daemon) CurrentPicture() string {
	if current := d.sched.State().CurrentPicture(); current != "" {
		return current
	}
	return d.seq.Current()
}

// History lists journaled pictures, newest first.
func (d *Daemon) History(ctx context.Context, limit int) ([]history.Entry, error) {
	if d.store == nil {
		return nil, errors.New("history journal disabled")
	}
	return d.store.List(ctx, limit)
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	snapshot := d.sched.State().Snapshot()
	historyPath := ""
	if d.store != nil {
		historyPath = d.store.Path()
	}
	return Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		RunID:          d.runID,
		StartedAt:      d.startedAt,
		LockPath:       d.lockPath,
		SocketPath:     d.cfg.SocketPath(),
		HistoryDBPath:  historyPath,
		PicturesDir:    d.cfg.PicturesDirectory(),
		FallbackAsset:  d.fallback,
		CurrentPicture: snapshot.CurrentPicture,
		NextPoll:       snapshot.NextPoll,
		LastError:      snapshot.LastError,
		UpdatedAt:      snapshot.UpdatedAt,
	}
}

// reapplyAll pushes the current picture to every output the compositor
// reports. Used by the drm fallback watcher, which cannot name the changed
// connector.
func (d *Daemon) reapplyAll(context.Context) {
	monitors, err := d.outputs.Monitors()
	if err != nil {
		d.logger.Warn("query outputs for reapply", logging.Error(err))
		return
	}
	for _, monitor := range monitors {
		d.sched.NotifyOutputAdded(monitor.Name)
	}
}
