package ipc_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"bingpaper/internal/config"
	"bingpaper/internal/daemon"
	"bingpaper/internal/ipc"
	"bingpaper/internal/logging"
)

func testConfig(t *testing.T, historyEnabled bool) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Daemon.StateDir = filepath.Join(dir, "state")
	cfg.Daemon.DBus = false
	cfg.Pictures.Directory = filepath.Join(dir, "pictures")
	cfg.History.Enabled = historyEnabled
	return &cfg
}

func startServer(t *testing.T, cfg *config.Config, shutdown func()) (*ipc.Client, *daemon.Daemon) {
	t.Helper()
	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), d, shutdown, logging.NewNop())
	if err != nil {
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(cfg.SocketPath())
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, d
}

func TestStatusRoundTrip(t *testing.T) {
	cfg := testConfig(t, true)
	client, _ := startServer(t, cfg, nil)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Running {
		t.Fatal("daemon reported running before Start")
	}
	if status.RunID == "" {
		t.Fatal("expected a run id")
	}
	if status.PicturesDir != cfg.PicturesDirectory() {
		t.Fatalf("pictures dir = %q, want %q", status.PicturesDir, cfg.PicturesDirectory())
	}
	if status.HistoryDBPath != cfg.HistoryPath() {
		t.Fatalf("history path = %q, want %q", status.HistoryDBPath, cfg.HistoryPath())
	}
	if status.SocketPath != cfg.SocketPath() {
		t.Fatalf("socket path = %q, want %q", status.SocketPath, cfg.SocketPath())
	}
}

func TestCurrentAndRefresh(t *testing.T) {
	cfg := testConfig(t, false)
	client, _ := startServer(t, cfg, nil)

	current, err := client.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current.Path != "" {
		t.Fatalf("expected no picture before start, got %q", current.Path)
	}

	refresh, err := client.Refresh()
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !refresh.Accepted {
		t.Fatal("refresh not accepted")
	}
}

func TestHistoryDisabledReturnsError(t *testing.T) {
	cfg := testConfig(t, false)
	client, _ := startServer(t, cfg, nil)

	if _, err := client.History(10); err == nil {
		t.Fatal("expected error with history disabled")
	}
}

func TestHistoryEnabledReturnsEmptyJournal(t *testing.T) {
	cfg := testConfig(t, true)
	client, _ := startServer(t, cfg, nil)

	resp, err := client.History(10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(resp.Entries) != 0 {
		t.Fatalf("expected empty journal, got %d entries", len(resp.Entries))
	}
}

func TestStopInvokesShutdown(t *testing.T) {
	cfg := testConfig(t, false)
	called := make(chan struct{}, 1)
	client, _ := startServer(t, cfg, func() { called <- struct{}{} })

	resp, err := client.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !resp.Stopping {
		t.Fatal("expected stopping acknowledgement")
	}
	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown callback not invoked")
	}
}
