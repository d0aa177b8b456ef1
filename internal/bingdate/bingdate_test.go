package bingdate_test

import (
	"errors"
	"testing"
	"time"

	"bingpaper/internal/bingdate"
)

func TestParseDateOnlyDefaultsToSevenUTC(t *testing.T) {
	got, err := bingdate.Parse("20240115")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	want := time.Date(2024, time.January, 15, 7, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseFullTimestamp(t *testing.T) {
	got, err := bingdate.Parse("202401150930")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	want := time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseUnparsableTimeFallsBack(t *testing.T) {
	got, err := bingdate.Parse("202401159x30")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if got.Hour() != bingdate.DefaultHour || got.Minute() != 0 {
		t.Fatalf("expected %02d:00 fallback, got %v", bingdate.DefaultHour, got)
	}
}

func TestParseShortInputFails(t *testing.T) {
	if _, err := bingdate.Parse("2024011"); !errors.Is(err, bingdate.ErrMalformedDate) {
		t.Fatalf("expected ErrMalformedDate, got %v", err)
	}
}

func TestParseInvalidCalendarDateFails(t *testing.T) {
	if _, err := bingdate.Parse("20240230"); !errors.Is(err, bingdate.ErrMalformedDate) {
		t.Fatalf("expected ErrMalformedDate, got %v", err)
	}
}

func TestParseNonNumericDateFails(t *testing.T) {
	if _, err := bingdate.Parse("2024ab15"); !errors.Is(err, bingdate.ErrMalformedDate) {
		t.Fatalf("expected ErrMalformedDate, got %v", err)
	}
}

func TestNextBoundaryBeforeSeven(t *testing.T) {
	now := time.Date(2024, time.January, 15, 6, 59, 0, 0, time.UTC)
	want := time.Date(2024, time.January, 15, 7, 0, 0, 0, time.UTC)
	if got := bingdate.NextBoundary(now); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestNextBoundaryAfterSeven(t *testing.T) {
	now := time.Date(2024, time.January, 15, 7, 0, 0, 0, time.UTC)
	want := time.Date(2024, time.January, 16, 7, 0, 0, 0, time.UTC)
	if got := bingdate.NextBoundary(now); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPrefixUsesUTC(t *testing.T) {
	zone := time.FixedZone("UTC+13", 13*60*60)
	local := time.Date(2024, time.January, 16, 1, 0, 0, 0, zone)
	if got := bingdate.Prefix(local); got != "20240115" {
		t.Fatalf("got %q, want 20240115", got)
	}
}
