package daemon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLocateFallbackExplicitOverride(t *testing.T) {
	dir := t.TempDir()
	asset := filepath.Join(dir, "custom.jpg")
	if err := os.WriteFile(asset, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}

	if got := locateFallback(asset); got != asset {
		t.Fatalf("locateFallback = %q, want %q", got, asset)
	}
}

func TestLocateFallbackMissingOverride(t *testing.T) {
	if got := locateFallback("/nonexistent/custom.jpg"); got != "" {
		t.Fatalf("locateFallback = %q, want empty", got)
	}
}

func TestLocateFallbackFindsWorkingDirectoryAsset(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, fallbackName), []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldWD); err != nil {
			t.Fatalf("restore wd: %v", err)
		}
	})

	got := locateFallback("")
	// A packaged or executable-adjacent asset wins when present; otherwise
	// the working directory copy must be found.
	if got == "" {
		t.Fatal("expected a fallback asset to be located")
	}
}
