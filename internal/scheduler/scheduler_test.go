package scheduler_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bingpaper/internal/bing"
	"bingpaper/internal/history"
	"bingpaper/internal/logging"
	"bingpaper/internal/scheduler"
)

var testNow = time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)

type fakeSleeper struct {
	deadlines chan time.Time
	release   chan error
}

func newFakeSleeper() *fakeSleeper {
	return &fakeSleeper{
		deadlines: make(chan time.Time, 4),
		release:   make(chan error, 4),
	}
}

func (f *fakeSleeper) SleepUntil(ctx context.Context, deadline time.Time) error {
	f.deadlines <- deadline
	select {
	case err := <-f.release:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type fakeResolver struct {
	img       bing.Image
	imgErr    error
	dlErr     error
	downloads chan string
}

func (f *fakeResolver) ImageOfTheDay(ctx context.Context) (bing.Image, error) {
	if f.imgErr != nil {
		return bing.Image{}, f.imgErr
	}
	return f.img, nil
}

func (f *fakeResolver) Download(ctx context.Context, img bing.Image, dest string) error {
	if f.downloads != nil {
		f.downloads <- dest
	}
	if f.dlErr != nil {
		return f.dlErr
	}
	return os.WriteFile(dest, []byte("jpeg"), 0o644)
}

type fakeApplier struct {
	applies   chan string
	reapplies chan string
	applyErr  error
}

func newFakeApplier() *fakeApplier {
	return &fakeApplier{
		applies:   make(chan string, 4),
		reapplies: make(chan string, 4),
	}
}

func (f *fakeApplier) Apply(ctx context.Context, path string) error {
	f.applies <- path
	return f.applyErr
}

func (f *fakeApplier) ReapplyTo(ctx context.Context, output string) error {
	f.reapplies <- output
	return nil
}

type fakeJournal struct {
	entries chan history.Entry
}

func (f *fakeJournal) Record(ctx context.Context, entry history.Entry) error {
	f.entries <- entry
	return nil
}

func testImage() bing.Image {
	return bing.Image{
		StartDate: "20240115",
		EndDate:   "20240116",
		URLBase:   "/th?id=OHR.Sunrise",
		Title:     "Sunrise",
	}
}

func startScheduler(t *testing.T, resolver scheduler.Resolver, applier scheduler.Applier, journal scheduler.Journal, dir string, sleep *fakeSleeper) (*scheduler.Scheduler, context.CancelFunc) {
	t.Helper()
	sched := scheduler.New(resolver, applier, nil, journal, scheduler.NewState(), scheduler.Options{
		PicturesDir: dir,
		Market:      "en-US",
		Now:         func() time.Time { return testNow },
		Sleeper:     sleep,
	}, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = sched.Run(ctx) }()
	t.Cleanup(cancel)
	return sched, cancel
}

func recvDeadline(t *testing.T, sleep *fakeSleeper) time.Time {
	t.Helper()
	select {
	case deadline := <-sleep.deadlines:
		return deadline
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the scheduler to sleep")
		return time.Time{}
	}
}

func recvString(t *testing.T, ch chan string, what string) string {
	t.Helper()
	select {
	case value := <-ch:
		return value
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return ""
	}
}

func TestEmptyCachePollsImmediatelyAndTrustsFutureEnddate(t *testing.T) {
	dir := t.TempDir()
	resolver := &fakeResolver{img: testImage(), downloads: make(chan string, 1)}
	applier := newFakeApplier()
	journal := &fakeJournal{entries: make(chan history.Entry, 1)}
	sleep := newFakeSleeper()

	sched, _ := startScheduler(t, resolver, applier, journal, dir, sleep)

	// Bootstrap found nothing: the first sleep deadline is "now".
	if deadline := recvDeadline(t, sleep); !deadline.Equal(testNow) {
		t.Fatalf("first deadline = %v, want %v", deadline, testNow)
	}
	sleep.release <- nil

	wantPath := filepath.Join(dir, "20240115-Sunrise.jpg")
	if got := recvString(t, resolver.downloads, "download"); got != wantPath {
		t.Fatalf("downloaded to %q, want %q", got, wantPath)
	}
	if got := recvString(t, applier.applies, "apply"); got != wantPath {
		t.Fatalf("applied %q, want %q", got, wantPath)
	}

	select {
	case entry := <-journal.entries:
		if entry.StartDate != "20240115" || entry.Market != "en-US" {
			t.Fatalf("unexpected journal entry: %+v", entry)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for journal entry")
	}

	// enddate 20240116 decodes to 07:00 UTC the next day, which is in the
	// future and trusted verbatim.
	want := time.Date(2024, time.January, 16, 7, 0, 0, 0, time.UTC)
	if deadline := recvDeadline(t, sleep); !deadline.Equal(want) {
		t.Fatalf("next poll = %v, want %v", deadline, want)
	}
	if current := sched.State().CurrentPicture(); current != wantPath {
		t.Fatalf("state current = %q, want %q", current, wantPath)
	}
}

func TestResolverFailureRetriesInOneHourWithStateUnchanged(t *testing.T) {
	dir := t.TempDir()
	resolver := &fakeResolver{imgErr: errors.New("archive unreachable")}
	applier := newFakeApplier()
	sleep := newFakeSleeper()

	sched, _ := startScheduler(t, resolver, applier, nil, dir, sleep)

	recvDeadline(t, sleep)
	sleep.release <- nil

	want := testNow.Add(time.Hour)
	if deadline := recvDeadline(t, sleep); !deadline.Equal(want) {
		t.Fatalf("retry deadline = %v, want %v", deadline, want)
	}
	if current := sched.State().CurrentPicture(); current != "" {
		t.Fatalf("state changed on failed cycle: %q", current)
	}
	if snapshot := sched.State().Snapshot(); snapshot.LastError == "" {
		t.Fatal("expected last error to be recorded")
	}
}

func TestDownloadFailureRetriesInOneHour(t *testing.T) {
	dir := t.TempDir()
	resolver := &fakeResolver{img: testImage(), dlErr: errors.New("disk full"), downloads: make(chan string, 1)}
	applier := newFakeApplier()
	sleep := newFakeSleeper()

	sched, _ := startScheduler(t, resolver, applier, nil, dir, sleep)

	recvDeadline(t, sleep)
	sleep.release <- nil
	recvString(t, resolver.downloads, "download")

	want := testNow.Add(time.Hour)
	if deadline := recvDeadline(t, sleep); !deadline.Equal(want) {
		t.Fatalf("retry deadline = %v, want %v", deadline, want)
	}
	if current := sched.State().CurrentPicture(); current != "" {
		t.Fatalf("state changed on failed download: %q", current)
	}
}

func TestExistingFileSkipsDownload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "20240115-Sunrise.jpg")
	resolver := &fakeResolver{img: testImage(), downloads: make(chan string, 1)}
	applier := newFakeApplier()
	sleep := newFakeSleeper()

	// Today's file already on disk: bootstrap adopts it and defers to the
	// boundary.
	if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write cache file: %v", err)
	}

	startScheduler(t, resolver, applier, nil, dir, sleep)

	// Bootstrap applies the cached picture without touching the network.
	if got := recvString(t, applier.applies, "bootstrap apply"); got != path {
		t.Fatalf("bootstrap applied %q, want %q", got, path)
	}
	want := time.Date(2024, time.January, 16, 7, 0, 0, 0, time.UTC)
	if deadline := recvDeadline(t, sleep); !deadline.Equal(want) {
		t.Fatalf("bootstrap deadline = %v, want %v", deadline, want)
	}

	// The first cycle resolves the same picture and skips the download.
	sleep.release <- nil
	if got := recvString(t, applier.applies, "cycle apply"); got != path {
		t.Fatalf("cycle applied %q, want %q", got, path)
	}
	select {
	case dest := <-resolver.downloads:
		t.Fatalf("unexpected download to %q", dest)
	case <-sleep.deadlines:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the next sleep")
	}
}

func TestYesterdayCacheAdoptsWithGrace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "20240114-Old picture.jpg")
	if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write cache file: %v", err)
	}
	resolver := &fakeResolver{img: testImage(), downloads: make(chan string, 1)}
	applier := newFakeApplier()
	sleep := newFakeSleeper()

	sched, _ := startScheduler(t, resolver, applier, nil, dir, sleep)

	if got := recvString(t, applier.applies, "bootstrap apply"); got != path {
		t.Fatalf("bootstrap applied %q, want %q", got, path)
	}
	want := testNow.Add(time.Minute)
	if deadline := recvDeadline(t, sleep); !deadline.Equal(want) {
		t.Fatalf("grace deadline = %v, want %v", deadline, want)
	}
	if current := sched.State().CurrentPicture(); current != path {
		t.Fatalf("state current = %q, want %q", current, path)
	}
}

func TestPastEnddateFallsBackToPredictedBoundary(t *testing.T) {
	dir := t.TempDir()
	img := testImage()
	img.EndDate = "20240114" // decodes to 07:00 UTC, before testNow
	resolver := &fakeResolver{img: img, downloads: make(chan string, 1)}
	applier := newFakeApplier()
	sleep := newFakeSleeper()

	startScheduler(t, resolver, applier, nil, dir, sleep)

	recvDeadline(t, sleep)
	sleep.release <- nil
	recvString(t, applier.applies, "apply")

	want := time.Date(2024, time.January, 16, 7, 0, 0, 0, time.UTC)
	if deadline := recvDeadline(t, sleep); !deadline.Equal(want) {
		t.Fatalf("next poll = %v, want predicted boundary %v", deadline, want)
	}
}

func TestUnparsableEnddateFallsBackToPredictedBoundary(t *testing.T) {
	dir := t.TempDir()
	img := testImage()
	img.EndDate = "not-a-date"
	resolver := &fakeResolver{img: img, downloads: make(chan string, 1)}
	applier := newFakeApplier()
	sleep := newFakeSleeper()

	startScheduler(t, resolver, applier, nil, dir, sleep)

	recvDeadline(t, sleep)
	sleep.release <- nil
	recvString(t, applier.applies, "apply")

	want := time.Date(2024, time.January, 16, 7, 0, 0, 0, time.UTC)
	if deadline := recvDeadline(t, sleep); !deadline.Equal(want) {
		t.Fatalf("next poll = %v, want predicted boundary %v", deadline, want)
	}
}

func TestOutputAddedDuringSleepTriggersReapply(t *testing.T) {
	dir := t.TempDir()
	resolver := &fakeResolver{imgErr: errors.New("offline")}
	applier := newFakeApplier()
	sleep := newFakeSleeper()

	sched, _ := startScheduler(t, resolver, applier, nil, dir, sleep)
	recvDeadline(t, sleep)

	sched.NotifyOutputAdded("DP-3")
	if got := recvString(t, applier.reapplies, "reapply"); got != "DP-3" {
		t.Fatalf("reapplied to %q, want DP-3", got)
	}
}

func TestRefreshCutsSleepShort(t *testing.T) {
	dir := t.TempDir()
	resolver := &fakeResolver{img: testImage(), downloads: make(chan string, 2)}
	applier := newFakeApplier()
	sleep := newFakeSleeper()

	sched, _ := startScheduler(t, resolver, applier, nil, dir, sleep)

	recvDeadline(t, sleep)
	sleep.release <- nil
	recvString(t, applier.applies, "first apply")
	recvDeadline(t, sleep)

	// The scheduler is now asleep until tomorrow; a refresh wakes it.
	sched.Refresh()
	recvString(t, applier.applies, "refresh apply")
}
