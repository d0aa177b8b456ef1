// Package cache inspects the pictures directory for already-downloaded daily
// pictures so the daemon can start without touching the network.
package cache

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"bingpaper/internal/bingdate"
)

// State classifies what the probe found.
type State int

const (
	// StateNone means no usable local picture exists; the caller must resolve
	// one over the network.
	StateNone State = iota
	// StateToday means a picture with today's date prefix is present.
	StateToday
	// StateYesterday means only yesterday's picture is present.
	StateYesterday
)

// Result is the outcome of one directory scan. Never persisted; recomputed on
// every probe.
type Result struct {
	State State
	Path  string
}

// pictureSuffix is the extension of completed downloads. Anything else under
// a matching date prefix (in-flight temp files in particular) is not a usable
// picture.
const pictureSuffix = ".jpg"

// Probe scans dir (non-recursive) for today's or yesterday's picture.
// Yesterday is now minus 24 hours rather than calendar-yesterday, matching how
// the archive buckets images across time zones. An unlistable directory is not
// an error; it simply forces a network resolution.
func Probe(dir string, now time.Time) Result {
	today := bingdate.Prefix(now)
	yesterday := bingdate.Prefix(now.Add(-24 * time.Hour))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Result{State: StateNone}
	}

	var yesterdayPath string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, pictureSuffix) {
			continue
		}
		if strings.HasPrefix(name, today) {
			// Exactly one file per day is expected; first match wins.
			return Result{State: StateToday, Path: filepath.Join(dir, name)}
		}
		if strings.HasPrefix(name, yesterday) && yesterdayPath == "" {
			yesterdayPath = filepath.Join(dir, name)
		}
	}

	if yesterdayPath != "" {
		return Result{State: StateYesterday, Path: yesterdayPath}
	}
	return Result{State: StateNone}
}
