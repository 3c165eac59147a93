package entity

import (
	"math"
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		in      any
		present bool
		valid   bool
		date    string
	}{
		{name: "nil", in: nil},
		{name: "native time", in: want, present: true, valid: true, date: "2024-03-05"},
		{name: "rfc3339", in: "2024-03-05T10:30:00Z", present: true, valid: true, date: "2024-03-05"},
		{name: "rfc3339 offset", in: "2024-03-05T23:30:00-05:00", present: true, valid: true, date: "2024-03-06"},
		{name: "millis iso", in: "2024-03-05T10:30:00.000Z", present: true, valid: true, date: "2024-03-05"},
		{name: "plain date", in: "2024-03-05", present: true, valid: true, date: "2024-03-05"},
		{name: "epoch millis", in: float64(want.UnixMilli()), present: true, valid: true, date: "2024-03-05"},
		{name: "epoch millis int64", in: want.UnixMilli(), present: true, valid: true, date: "2024-03-05"},
		{name: "firestore map", in: map[string]any{"seconds": float64(want.Unix()), "nanoseconds": float64(0)}, present: true, valid: true, date: "2024-03-05"},
		{name: "serialized firestore map", in: map[string]any{"_seconds": float64(want.Unix())}, present: true, valid: true, date: "2024-03-05"},
		{name: "garbage string", in: "not a date", present: true},
		{name: "numeric string", in: "1700000000000", present: true},
		{name: "empty string", in: "", present: true},
		{name: "negative millis", in: float64(-1), present: true},
		{name: "nan", in: math.NaN(), present: true},
		{name: "map without seconds", in: map[string]any{"foo": "bar"}, present: true},
		{name: "bool", in: true, present: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := ParseTimestamp(tt.in)
			if ts.Present != tt.present {
				t.Fatalf("Present = %v, want %v", ts.Present, tt.present)
			}
			if ts.Valid != tt.valid {
				t.Fatalf("Valid = %v, want %v", ts.Valid, tt.valid)
			}
			date, ok := ts.DateString()
			if ok != tt.valid {
				t.Fatalf("DateString ok = %v, want %v", ok, tt.valid)
			}
			if date != tt.date {
				t.Fatalf("DateString = %q, want %q", date, tt.date)
			}
		})
	}
}

func TestTimestampString(t *testing.T) {
	if got := ParseTimestamp(nil).String(); got != "<absent>" {
		t.Fatalf("absent String() = %q", got)
	}
	if got := ParseTimestamp("bogus").String(); got != "bogus" {
		t.Fatalf("invalid String() = %q", got)
	}
	if got := NewTimestamp(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)).String(); got != "2024-01-02T03:04:05Z" {
		t.Fatalf("valid String() = %q", got)
	}
}

func TestFormatISO(t *testing.T) {
	ts := time.Date(2024, 3, 5, 10, 30, 1, 123456789, time.FixedZone("CET", 3600))
	got := FormatISO(ts)
	if got != "2024-03-05T09:30:01.123Z" {
		t.Fatalf("FormatISO = %q", got)
	}
	if back := ParseTimestamp(got); !back.Valid {
		t.Fatalf("FormatISO output does not parse back")
	}
}
