package cache_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"bingpaper/internal/cache"
)

var probeNow = time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestProbeFindsYesterday(t *testing.T) {
	dir := t.TempDir()
	want := touch(t, dir, "20240114-Foo.jpg")

	result := cache.Probe(dir, probeNow)
	if result.State != cache.StateYesterday {
		t.Fatalf("expected yesterday, got %v", result.State)
	}
	if result.Path != want {
		t.Fatalf("unexpected path: %q", result.Path)
	}
}

func TestProbeTodayTakesPriority(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "20240114-Foo.jpg")
	want := touch(t, dir, "20240115-Bar.jpg")

	result := cache.Probe(dir, probeNow)
	if result.State != cache.StateToday {
		t.Fatalf("expected today, got %v", result.State)
	}
	if result.Path != want {
		t.Fatalf("unexpected path: %q", result.Path)
	}
}

func TestProbeIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "20231201-Old.jpg")
	touch(t, dir, "notes.txt")

	if result := cache.Probe(dir, probeNow); result.State != cache.StateNone {
		t.Fatalf("expected none, got %v", result.State)
	}
}

func TestProbeIgnoresInterruptedDownloads(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "20240115-Sunrise.jpg.part")

	// A crash mid-download leaves the temp file behind; it must never be
	// adopted as today's picture.
	if result := cache.Probe(dir, probeNow); result.State != cache.StateNone {
		t.Fatalf("expected none with only a partial download, got %+v", result)
	}

	want := touch(t, dir, "20240115-Sunrise.jpg")
	result := cache.Probe(dir, probeNow)
	if result.State != cache.StateToday || result.Path != want {
		t.Fatalf("expected the completed file, got %+v", result)
	}
}

func TestProbeMissingDirectoryIsNone(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist")
	if result := cache.Probe(dir, probeNow); result.State != cache.StateNone {
		t.Fatalf("expected none for missing directory, got %v", result.State)
	}
}

func TestProbeYesterdayUsesTwentyFourHours(t *testing.T) {
	// 00:30 UTC: calendar-yesterday and now-24h agree, but the prefix must be
	// computed from the subtraction, not the calendar.
	now := time.Date(2024, time.March, 1, 0, 30, 0, 0, time.UTC)
	dir := t.TempDir()
	want := touch(t, dir, "20240229-Leap.jpg")

	result := cache.Probe(dir, now)
	if result.State != cache.StateYesterday || result.Path != want {
		t.Fatalf("unexpected result: %+v", result)
	}
}
