// Package bingdate decodes the compact date-time strings used by the Bing
// image archive (YYYYMMDD with an optional HHMM suffix) and owns the 7 AM
// scheduling convention derived from them.
package bingdate

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar-date portion of an archive timestamp. It is also
// the file-name prefix format for cached pictures.
const DateLayout = "20060102"

const timeLayout = "1504"

// DefaultHour is the hour (UTC) at which a new daily picture becomes valid
// when the source omits or mangles the time portion. The archive publishes new
// pictures around 7 AM, so scheduling fallbacks predict the next 7 AM boundary.
const DefaultHour = 7

// ErrMalformedDate reports an undecodable date portion. The time portion never
// produces this error; it silently falls back to DefaultHour.
var ErrMalformedDate = errors.New("malformed archive date")

// Parse decodes an 8-digit date with an optional 4-digit time into a UTC
// instant. A missing or unparsable time portion yields 07:00.
func Parse(value string) (time.Time, error) {
	if len(value) < len(DateLayout) {
		return time.Time{}, fmt.Errorf("%w: %q is shorter than YYYYMMDD", ErrMalformedDate, value)
	}
	date, err := time.ParseInLocation(DateLayout, value[:len(DateLayout)], time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrMalformedDate, value, err)
	}

	rest := value[len(DateLayout):]
	clock, err := time.ParseInLocation(timeLayout, rest, time.UTC)
	if err != nil {
		return date.Add(DefaultHour * time.Hour), nil
	}
	return date.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute), nil
}

// NextBoundary predicts the next 7 AM UTC instant after now: today when the
// boundary has not passed yet, tomorrow otherwise.
func NextBoundary(now time.Time) time.Time {
	now = now.UTC()
	boundary := time.Date(now.Year(), now.Month(), now.Day(), DefaultHour, 0, 0, 0, time.UTC)
	if now.Hour() >= DefaultHour {
		boundary = boundary.AddDate(0, 0, 1)
	}
	return boundary
}

// Prefix formats an instant as the calendar-date prefix used for cache file
// names and lookups.
func Prefix(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
