package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"bingpaper/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	entries := []history.Entry{
		{StartDate: "20240114", Title: "Older picture", Path: "/pics/20240114-Older picture.jpg", Market: "en-US"},
		{StartDate: "20240115", Title: "Newer picture", Path: "/pics/20240115-Newer picture.jpg", Market: "en-US"},
	}
	for _, entry := range entries {
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record(%s): %v", entry.StartDate, err)
		}
	}

	listed, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(listed))
	}
	if listed[0].StartDate != "20240115" || listed[1].StartDate != "20240114" {
		t.Fatalf("expected newest first, got %s then %s", listed[0].StartDate, listed[1].StartDate)
	}
	if listed[0].DownloadedAt.IsZero() {
		t.Fatal("expected a recorded timestamp")
	}
}

func TestRecordSameDateUpdatesRow(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first := history.Entry{StartDate: "20240115", Title: "First", Path: "/pics/a.jpg", DownloadedAt: time.Date(2024, 1, 15, 7, 0, 0, 0, time.UTC)}
	second := history.Entry{StartDate: "20240115", Title: "Second", Path: "/pics/b.jpg", DownloadedAt: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)}
	if err := store.Record(ctx, first); err != nil {
		t.Fatalf("Record first: %v", err)
	}
	if err := store.Record(ctx, second); err != nil {
		t.Fatalf("Record second: %v", err)
	}

	listed, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected a single row, got %d", len(listed))
	}
	if listed[0].Title != "Second" || listed[0].Path != "/pics/b.jpg" {
		t.Fatalf("row not updated: %+v", listed[0])
	}
}

func TestListHonorsLimit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, date := range []string{"20240113", "20240114", "20240115"} {
		if err := store.Record(ctx, history.Entry{StartDate: date, Title: "t", Path: "/p"}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	listed, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 2 || listed[0].StartDate != "20240115" {
		t.Fatalf("unexpected rows: %+v", listed)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	first, err := history.Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := first.Record(context.Background(), history.Entry{StartDate: "20240115", Title: "t", Path: "/p"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := history.Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer second.Close()
	listed, err := second.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected persisted row, got %d", len(listed))
	}
}
