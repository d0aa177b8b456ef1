package logging_test

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"bingpaper/internal/logging"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewCreatesLogDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "bingpaper.log")
	logger, err := logging.New(logging.Options{Format: "console", FilePath: path})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hello")
}

func TestComponentLoggerTagsRecords(t *testing.T) {
	captured := &recordSink{}
	logger := logging.NewComponentLogger(slog.New(captured), "scheduler")
	logger.Info("cycle complete")

	found := false
	for _, attr := range captured.attrs {
		if attr.Key == logging.FieldComponent && attr.Value.String() == "scheduler" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected component attr, got %v", captured.attrs)
	}
}

func TestComponentLoggerWithNilBaseDiscards(t *testing.T) {
	logger := logging.NewComponentLogger(nil, "notifier")
	// Must not panic; noop logger swallows everything.
	logger.Error("ignored", logging.Error(errors.New("boom")))
}

func TestErrorAttrHandlesNil(t *testing.T) {
	attr := logging.Error(nil)
	if !strings.Contains(attr.Value.String(), "<nil>") {
		t.Fatalf("unexpected nil error rendering: %s", attr.Value.String())
	}
}

type recordSink struct {
	attrs []slog.Attr
}

func (s *recordSink) Enabled(context.Context, slog.Level) bool { return true }

func (s *recordSink) Handle(_ context.Context, record slog.Record) error {
	record.Attrs(func(attr slog.Attr) bool {
		s.attrs = append(s.attrs, attr)
		return true
	})
	return nil
}

func (s *recordSink) WithAttrs(attrs []slog.Attr) slog.Handler {
	s.attrs = append(s.attrs, attrs...)
	return s
}

func (s *recordSink) WithGroup(string) slog.Handler { return s }
