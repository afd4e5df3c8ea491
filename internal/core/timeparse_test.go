package core

import (
	"testing"
	"time"
)

func TestParseFlexibleTimeClock(t *testing.T) {
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

	got, ok := ParseFlexibleTime("08:30", now)
	if !ok {
		t.Fatalf("expected HH:MM to parse")
	}
	want := time.Date(2024, 5, 15, 8, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if _, ok := ParseFlexibleTime("24:00", now); ok {
		t.Fatalf("expected out-of-range hour to fail")
	}
	if _, ok := ParseFlexibleTime("10:75", now); ok {
		t.Fatalf("expected out-of-range minute to fail")
	}
}

func TestParseFlexibleTimeDayMonth(t *testing.T) {
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		raw  string
		want time.Time
	}{
		{"15-5-24 9:30", time.Date(2024, 5, 15, 9, 30, 0, 0, time.UTC)},
		{"15/05/24 09:30", time.Date(2024, 5, 15, 9, 30, 0, 0, time.UTC)},
		{"1/1/2025 00:05", time.Date(2025, 1, 1, 0, 5, 0, 0, time.UTC)},
		{"15-5-24T9:30", time.Date(2024, 5, 15, 9, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := ParseFlexibleTime(tc.raw, now)
		if !ok {
			t.Fatalf("expected %q to parse", tc.raw)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("%q: expected %v, got %v", tc.raw, tc.want, got)
		}
	}

	if _, ok := ParseFlexibleTime("32/1/24 10:00", now); ok {
		t.Fatalf("expected out-of-range day to fail")
	}
}

func TestParseFlexibleTimeISO(t *testing.T) {
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	got, ok := ParseFlexibleTime("2024-05-15T09:30", now)
	if !ok {
		t.Fatalf("expected ISO form to parse")
	}
	if got.Hour() != 9 || got.Minute() != 30 {
		t.Fatalf("unexpected parse result %v", got)
	}

	for _, raw := range []string{"", "garbage", "mañana"} {
		if _, ok := ParseFlexibleTime(raw, now); ok {
			t.Fatalf("expected %q to fail", raw)
		}
	}
}

func TestMinutesBetween(t *testing.T) {
	a := time.Date(2024, 5, 15, 10, 30, 0, 0, time.UTC)
	b := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	if got := MinutesBetween(a, b); got != 30 {
		t.Fatalf("expected 30, got %d", got)
	}
	if got := MinutesBetween(b, a); got != -30 {
		t.Fatalf("expected -30, got %d", got)
	}
	if got := MinutesBetween(a.Add(29*time.Second), a); got != 0 {
		t.Fatalf("expected sub-half-minute to round to 0, got %d", got)
	}
}
