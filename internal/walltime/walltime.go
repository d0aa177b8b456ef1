// Package walltime suspends until a wall-clock instant. Monotonic timers
// drift away from the wall clock across suspend/resume and manual clock
// steps, so the sleeper re-reads the wall clock on a short interval and
// reports backward steps instead of stalling past them.
package walltime

import (
	"context"
	"errors"
	"time"
)

// ErrClockSkew reports that the wall clock moved backward while sleeping.
var ErrClockSkew = errors.New("wall clock moved backward")

// skewTolerance absorbs ordinary NTP slews; only real steps are anomalies.
const skewTolerance = 2 * time.Second

const defaultInterval = time.Minute

// Sleeper suspends until wall-clock deadlines.
type Sleeper struct {
	// Now reports the current wall-clock time. Defaults to time.Now.
	Now func() time.Time
	// Interval bounds how long a single timer wait may last. Defaults to one
	// minute.
	Interval time.Duration
}

// SleepUntil blocks until the wall clock reaches deadline or ctx is done.
// A backward clock step returns ErrClockSkew so the caller can re-evaluate
// its schedule immediately rather than oversleep.
func (s *Sleeper) SleepUntil(ctx context.Context, deadline time.Time) error {
	now := s.now()
	interval := s.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	last := now()
	for {
		if !last.Before(deadline) {
			return nil
		}

		wait := deadline.Sub(last)
		if wait > interval {
			wait = interval
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		current := now()
		if current.Before(last.Add(-skewTolerance)) {
			return ErrClockSkew
		}
		last = current
	}
}

func (s *Sleeper) now() func() time.Time {
	if s.Now != nil {
		return s.Now
	}
	return time.Now
}
