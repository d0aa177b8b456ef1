// Package sequencer drives flicker-free wallpaper transitions. A new picture
// is made daemon-resident before any output switches to it, and the previous
// picture is released only after every output has been given the chance to
// switch.
package sequencer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"bingpaper/internal/hyprland"
	"bingpaper/internal/logging"
)

// Presenter is the surface of the wallpaper presentation daemon the sequencer
// needs. *hyprpaper.Client satisfies it.
type Presenter interface {
	Preload(path string) error
	Wallpaper(output, path string) error
	Unload(path string) error
}

// OutputLister reports the live output set. *hyprland.Client satisfies it.
type OutputLister interface {
	Monitors() ([]hyprland.Monitor, error)
}

// Sequencer owns the ordering of presentation-daemon commands and remembers
// the picture currently on screen so newly attached outputs can catch up.
type Sequencer struct {
	presenter Presenter
	outputs   OutputLister
	logger    *slog.Logger

	// fallbackPath is shown on outputs that attach before any real picture
	// has been adopted. Empty when no fallback asset was found.
	fallbackPath string

	mu          sync.Mutex
	lastApplied string
}

// New builds a sequencer. fallbackPath may be empty.
func New(presenter Presenter, outputs OutputLister, fallbackPath string, logger *slog.Logger) *Sequencer {
	return &Sequencer{
		presenter:    presenter,
		outputs:      outputs,
		logger:       logging.NewComponentLogger(logger, "sequencer"),
		fallbackPath: fallbackPath,
	}
}

// PreloadFallback makes the fallback asset daemon-resident. It stays loaded
// for the life of the daemon so ReapplyTo can bind it without a preload.
func (s *Sequencer) PreloadFallback() error {
	if s.fallbackPath == "" {
		return nil
	}
	if err := s.presenter.Preload(s.fallbackPath); err != nil {
		return fmt.Errorf("preload fallback %s: %w", s.fallbackPath, err)
	}
	return nil
}

// Current returns the path of the picture most recently applied, or the
// fallback asset when nothing real has been applied yet.
func (s *Sequencer) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastApplied == "" {
		return s.fallbackPath
	}
	return s.lastApplied
}

// Apply transitions every output to newPath. The sequence is preload, then
// one wallpaper command per output from a fresh topology query, then unload
// of the previous picture. A preload or topology failure aborts the
// transition and leaves the old picture in place; per-output failures are
// logged and never prevent the final unload.
func (s *Sequencer) Apply(ctx context.Context, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	oldPath := s.lastApplied
	s.mu.Unlock()

	if newPath == oldPath {
		s.logger.Debug("picture already applied", logging.String("path", newPath))
		return nil
	}

	if err := s.presenter.Preload(newPath); err != nil {
		return fmt.Errorf("preload %s: %w", newPath, err)
	}

	monitors, err := s.outputs.Monitors()
	if err != nil {
		// The new picture never reached an output; release it again.
		if unloadErr := s.presenter.Unload(newPath); unloadErr != nil {
			s.logger.Warn("unload after failed topology query",
				logging.String("path", newPath), logging.Error(unloadErr))
		}
		return fmt.Errorf("query outputs: %w", err)
	}

	applied := 0
	for _, monitor := range monitors {
		if err := s.presenter.Wallpaper(monitor.Name, newPath); err != nil {
			s.logger.Warn("apply failed on output",
				logging.String("output", monitor.Name),
				logging.String("path", newPath),
				logging.Error(err))
			continue
		}
		applied++
	}
	s.logger.Info("wallpaper applied",
		logging.String("path", newPath),
		logging.Int("outputs", applied),
		logging.Int("total", len(monitors)))

	if oldPath != "" {
		if err := s.presenter.Unload(oldPath); err != nil {
			s.logger.Warn("unload previous picture",
				logging.String("path", oldPath), logging.Error(err))
		}
	}

	s.mu.Lock()
	s.lastApplied = newPath
	s.mu.Unlock()
	return nil
}

// ReapplyTo catches a single output up to the current picture. No preload or
// unload is issued: the picture is either already daemon-resident or it is
// the permanent fallback asset.
func (s *Sequencer) ReapplyTo(ctx context.Context, output string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := s.Current()
	if path == "" {
		s.logger.Debug("no picture to reapply", logging.String("output", output))
		return nil
	}
	if err := s.presenter.Wallpaper(output, path); err != nil {
		return fmt.Errorf("reapply to %s: %w", output, err)
	}
	s.logger.Info("wallpaper reapplied",
		logging.String("output", output), logging.String("path", path))
	return nil
}
