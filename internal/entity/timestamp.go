package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar-day format used for activity buckets.
	DateLayout = "2006-01-02"
	// ISOLayout matches the millisecond ISO-8601 strings written by the mobile client.
	ISOLayout = "2006-01-02T15:04:05.000Z07:00"
)

// FormatISO renders t in UTC using ISOLayout.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DateLayout,
}

// Timestamp is a leniently decoded point in time read from a stored document.
// Present reports whether the field existed at all; Valid whether it could be
// interpreted. Raw keeps the original value for diagnostics.
type Timestamp struct {
	Time    time.Time
	Raw     any
	Present bool
	Valid   bool
}

// NewTimestamp wraps a known-good time.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, Raw: t, Present: true, Valid: !t.IsZero()}
}

// ParseTimestamp interprets the value shapes a document store hands back for dates:
// Firestore timestamp maps, native times, ISO strings and epoch milliseconds.
func ParseTimestamp(v any) Timestamp {
	ts := Timestamp{Raw: v, Present: v != nil}
	switch val := v.(type) {
	case nil:
		return ts
	case time.Time:
		ts.Time, ts.Valid = val, !val.IsZero()
	case *time.Time:
		if val != nil {
			ts.Time, ts.Valid = *val, !val.IsZero()
		}
	case string:
		ts.Time, ts.Valid = parseTimeString(val)
	case float64:
		ts.Time, ts.Valid = fromMillis(val)
	case int64:
		ts.Time, ts.Valid = fromMillis(float64(val))
	case int:
		ts.Time, ts.Valid = fromMillis(float64(val))
	case json.Number:
		if f, err := val.Float64(); err == nil {
			ts.Time, ts.Valid = fromMillis(f)
		}
	case map[string]any:
		ts.Time, ts.Valid = fromFirestoreMap(val)
	}
	if ts.Valid {
		ts.Time = ts.Time.UTC()
	}
	return ts
}

// DateString returns the UTC calendar date, or false when the timestamp is unusable.
func (t Timestamp) DateString() (string, bool) {
	if !t.Valid {
		return "", false
	}
	return t.Time.UTC().Format(DateLayout), true
}

// String renders the raw value for log lines.
func (t Timestamp) String() string {
	if t.Valid {
		return t.Time.Format(time.RFC3339)
	}
	if !t.Present {
		return "<absent>"
	}
	return fmt.Sprintf("%v", t.Raw)
}

func parseTimeString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func fromMillis(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)), true
}

func fromFirestoreMap(m map[string]any) (time.Time, bool) {
	seconds, ok := numberField(m, "seconds", "_seconds")
	if !ok {
		return time.Time{}, false
	}
	nanos, _ := numberField(m, "nanoseconds", "_nanoseconds")
	return time.Unix(int64(seconds), int64(nanos)), true
}

func numberField(m map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch v := m[key].(type) {
		case float64:
			return v, true
		case int64:
			return float64(v), true
		case int:
			return float64(v), true
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}
