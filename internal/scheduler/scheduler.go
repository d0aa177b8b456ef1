// Package scheduler owns the daemon's poll loop: it decides when to ask the
// archive for a new picture, drives the sequencer when one arrives, and
// handles output hotplug while waiting. All shared state mutation happens on
// the scheduler goroutine; external readers go through State.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"bingpaper/internal/bing"
	"bingpaper/internal/bingdate"
	"bingpaper/internal/cache"
	"bingpaper/internal/history"
	"bingpaper/internal/logging"
	"bingpaper/internal/walltime"
)

const (
	// defaultRetryInterval paces re-polls after a failed cycle. Fixed, not
	// exponential: the archive publishes on a daily cadence and an hourly
	// retry bounds staleness without hammering anything.
	defaultRetryInterval = time.Hour

	// defaultGraceInterval is the head start given when bootstrap finds only
	// yesterday's picture: show it, then fetch today's almost immediately.
	defaultGraceInterval = time.Minute
)

// Resolver fetches picture metadata and payloads. *bing.Client satisfies it.
type Resolver interface {
	ImageOfTheDay(ctx context.Context) (bing.Image, error)
	Download(ctx context.Context, img bing.Image, dest string) error
}

// Applier broadcasts pictures to outputs. *sequencer.Sequencer satisfies it.
type Applier interface {
	Apply(ctx context.Context, path string) error
	ReapplyTo(ctx context.Context, output string) error
}

// Publisher announces the current picture to interested parties. Failures are
// the publisher's problem; the scheduler never hears about them.
type Publisher interface {
	Publish(path string)
}

// Journal records adopted pictures. *history.Store satisfies it.
type Journal interface {
	Record(ctx context.Context, entry history.Entry) error
}

// Sleeper suspends until a wall-clock instant. *walltime.Sleeper satisfies
// it.
type Sleeper interface {
	SleepUntil(ctx context.Context, deadline time.Time) error
}

// Options configure a Scheduler.
type Options struct {
	PicturesDir   string
	Market        string
	RetryInterval time.Duration
	GraceInterval time.Duration

	// Now and Sleeper default to the real clock; overridable for tests.
	Now     func() time.Time
	Sleeper Sleeper
}

// Scheduler runs the Bootstrapping → (Cycling ⇄ Sleeping) state machine.
type Scheduler struct {
	resolver  Resolver
	applier   Applier
	publisher Publisher
	journal   Journal
	state     *State
	logger    *slog.Logger

	dir   string
	mkt   string
	retry time.Duration
	grace time.Duration

	now   func() time.Time
	sleep Sleeper

	outputAdded chan string
	refresh     chan struct{}
}

// New builds a scheduler. journal and publisher may be nil.
func New(resolver Resolver, applier Applier, publisher Publisher, journal Journal, state *State, opts Options, logger *slog.Logger) *Scheduler {
	retry := opts.RetryInterval
	if retry <= 0 {
		retry = defaultRetryInterval
	}
	grace := opts.GraceInterval
	if grace <= 0 {
		grace = defaultGraceInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sleep := opts.Sleeper
	if sleep == nil {
		sleep = &walltime.Sleeper{}
	}
	return &Scheduler{
		resolver:    resolver,
		applier:     applier,
		publisher:   publisher,
		journal:     journal,
		state:       state,
		logger:      logging.NewComponentLogger(logger, "scheduler"),
		dir:         opts.PicturesDir,
		mkt:         opts.Market,
		retry:       retry,
		grace:       grace,
		now:         now,
		sleep:       sleep,
		outputAdded: make(chan string, 8),
		refresh:     make(chan struct{}, 1),
	}
}

// State exposes the shared state container for IPC readers.
func (s *Scheduler) State() *State {
	return s.state
}

// NotifyOutputAdded feeds an output hotplug event into the scheduler loop.
// Never blocks; a full channel drops the event, which the next full broadcast
// repairs anyway.
func (s *Scheduler) NotifyOutputAdded(name string) {
	select {
	case s.outputAdded <- name:
	default:
		s.logger.Warn("output event dropped", logging.String("output", name))
	}
}

// Refresh requests an immediate poll cycle, collapsing concurrent requests
// into one.
func (s *Scheduler) Refresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Run executes the scheduler until ctx is canceled. The returned error is
// always the context's.
func (s *Scheduler) Run(ctx context.Context) error {
	next := s.bootstrap(ctx)
	for {
		s.state.SetNextPoll(next)
		if !s.wait(ctx, next) {
			return ctx.Err()
		}
		next = s.cycle(ctx)
	}
}

// bootstrap decides the first poll instant from what is already on disk.
// Today's picture defers the network until the next boundary; yesterday's is
// shown immediately with a short grace before fetching; an empty cache polls
// right away.
func (s *Scheduler) bootstrap(ctx context.Context) time.Time {
	now := s.now()
	probe := cache.Probe(s.dir, now)

	switch probe.State {
	case cache.StateToday:
		s.logger.Info("cache has today's picture", logging.String("path", probe.Path))
		s.adopt(ctx, probe.Path, nil)
		return bingdate.NextBoundary(now)
	case cache.StateYesterday:
		s.logger.Info("cache has yesterday's picture", logging.String("path", probe.Path))
		s.adopt(ctx, probe.Path, nil)
		return now.Add(s.grace)
	default:
		s.logger.Info("no cached picture, polling immediately")
		return now
	}
}

// wait sleeps until deadline while servicing hotplug and refresh events.
// Returns false only when ctx is done. A backward wall-clock step or a
// refresh request ends the wait early so the caller cycles immediately.
func (s *Scheduler) wait(ctx context.Context, deadline time.Time) bool {
	sleepCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.sleep.SleepUntil(sleepCtx, deadline)
	}()

	for {
		select {
		case <-ctx.Done():
			return false
		case err := <-done:
			if errors.Is(err, walltime.ErrClockSkew) {
				s.logger.Warn("wall clock stepped backward, re-polling now")
			}
			return ctx.Err() == nil
		case output := <-s.outputAdded:
			s.reapply(ctx, output)
		case <-s.refresh:
			s.logger.Info("refresh requested, re-polling now")
			cancel()
			<-done
			return ctx.Err() == nil
		}
	}
}

// cycle performs one poll: resolve, download if absent, broadcast, publish,
// journal. Returns the next poll instant. Any failure leaves the adopted
// picture untouched and retries on the fixed interval.
func (s *Scheduler) cycle(ctx context.Context) time.Time {
	now := s.now()

	img, err := s.resolver.ImageOfTheDay(ctx)
	if err != nil {
		s.logger.Warn("resolve image of the day", logging.Error(err))
		s.state.SetLastError(err)
		return now.Add(s.retry)
	}

	path := filepath.Join(s.dir, img.FileName())
	if _, statErr := os.Stat(path); statErr != nil {
		if err := s.resolver.Download(ctx, img, path); err != nil {
			s.logger.Warn("download image", logging.String("path", path), logging.Error(err))
			s.state.SetLastError(err)
			return now.Add(s.retry)
		}
		s.logger.Info("downloaded picture",
			logging.String("path", path), logging.String("title", img.Title))
	} else {
		s.logger.Debug("picture already on disk", logging.String("path", path))
	}

	if err := s.applier.Apply(ctx, path); err != nil {
		s.logger.Warn("apply picture", logging.String("path", path), logging.Error(err))
		s.state.SetLastError(err)
		return now.Add(s.retry)
	}

	s.adopt(ctx, path, &img)
	return s.nextPollAfter(now, img)
}

// adopt records a picture as current and fans it out to the publisher and the
// journal. Bootstrap adoption passes a nil image (metadata lives only in the
// file name); journal entries are cycle-only.
func (s *Scheduler) adopt(ctx context.Context, path string, img *bing.Image) {
	if img == nil {
		// Cached picture from a previous run: show it, but the sequencer does
		// the work during bootstrap.
		if err := s.applier.Apply(ctx, path); err != nil {
			s.logger.Warn("apply cached picture", logging.String("path", path), logging.Error(err))
			return
		}
	}

	s.state.SetApplied(path)
	s.state.SetLastError(nil)
	if s.publisher != nil {
		s.publisher.Publish(path)
	}
	if img != nil && s.journal != nil {
		entry := history.Entry{
			StartDate:    img.StartDate,
			Title:        img.Title,
			Path:         path,
			Market:       s.mkt,
			DownloadedAt: s.now().UTC(),
		}
		if err := s.journal.Record(ctx, entry); err != nil {
			s.logger.Warn("journal picture", logging.String("startdate", img.StartDate), logging.Error(err))
		}
	}
}

// nextPollAfter derives the next poll instant from the archive's declared
// validity end. A plausible future enddate is trusted verbatim; anything in
// the past or undecodable falls back to the predicted boundary.
func (s *Scheduler) nextPollAfter(now time.Time, img bing.Image) time.Time {
	expires, err := img.ExpiresAt()
	if err != nil {
		s.logger.Warn("undecodable enddate, using predicted boundary",
			logging.String("enddate", img.EndDate), logging.Error(err))
		return bingdate.NextBoundary(now)
	}
	if expires.After(now) {
		return expires
	}
	s.logger.Warn("enddate not in the future, using predicted boundary",
		logging.Time("enddate", expires))
	return bingdate.NextBoundary(now)
}

// reapply catches a hotplugged output up to the current picture.
func (s *Scheduler) reapply(ctx context.Context, output string) {
	if err := s.applier.ReapplyTo(ctx, output); err != nil {
		s.logger.Warn("reapply to output", logging.String("output", output), logging.Error(err))
	}
}
