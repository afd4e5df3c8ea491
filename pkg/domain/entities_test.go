package domain

import (
	"testing"
	"time"
)

func TestRecordOccupancy(t *testing.T) {
	cases := []struct {
		name      string
		arrival   string
		departure string
		want      Occupancy
	}{
		{"no timestamps", "", "", DockReserved},
		{"arrived", "08:15", "", DockBusy},
		{"departed", "08:15", "09:40", DockFree},
		{"departure without arrival", "", "09:40", DockFree},
		{"whitespace only", "  ", "\t", DockReserved},
	}
	for _, tc := range cases {
		r := Record{ActualArrival: tc.arrival, ActualDeparture: tc.departure}
		if got := r.Occupancy(); got != tc.want {
			t.Fatalf("%s: occupancy = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestOccupancyRank(t *testing.T) {
	if DockFree.Rank() >= DockReserved.Rank() || DockReserved.Rank() >= DockBusy.Rank() {
		t.Fatalf("rank order broken: %d %d %d", DockFree.Rank(), DockReserved.Rank(), DockBusy.Rank())
	}
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]Status{
		"":         StatusUnset,
		"*":        StatusUnset,
		"-":        StatusUnset,
		"n/a":      StatusUnset,
		"OK":       StatusOK,
		"ok":       StatusOK,
		"cargando": StatusLoading,
		"ANULADO":  StatusCancelled,
		"PENDIENTE": StatusUnset,
	}
	for raw, want := range cases {
		if got := NormalizeStatus(raw); got != want {
			t.Fatalf("NormalizeStatus(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestDefaultDocks(t *testing.T) {
	docks := DefaultDocks()
	if docks.Len() != 58 {
		t.Fatalf("expected 58 docks, got %d", docks.Len())
	}
	if docks.Contains(358) {
		t.Fatalf("dock 358 must not exist")
	}
	if !docks.Contains(312) || !docks.Contains(357) || !docks.Contains(359) || !docks.Contains(370) {
		t.Fatalf("range boundaries missing from universe")
	}
	nums := docks.Numbers()
	if nums[0] != 312 || nums[len(nums)-1] != 370 {
		t.Fatalf("unexpected ordering boundaries: %d..%d", nums[0], nums[len(nums)-1])
	}
}

func TestDockSetParseValue(t *testing.T) {
	docks := DefaultDocks()

	for _, raw := range []string{"", "  "} {
		n, err := docks.ParseValue(raw)
		if err != nil || n != nil {
			t.Fatalf("ParseValue(%q) = %v, %v; want nil, nil", raw, n, err)
		}
	}

	n, err := docks.ParseValue(" 320 ")
	if err != nil || n == nil || *n != 320 {
		t.Fatalf("ParseValue(320) = %v, %v", n, err)
	}

	// Only the empty string clears; placeholder markers are invalid input.
	for _, raw := range []string{"abc", "*", "-", "358", "311", "371"} {
		if _, err := docks.ParseValue(raw); err == nil {
			t.Fatalf("ParseValue(%q) should fail", raw)
		}
	}
}

func TestSideNames(t *testing.T) {
	names := SideNames()
	if len(names) != SideCount {
		t.Fatalf("expected %d sides, got %d", SideCount, len(names))
	}
	if names[0] != "Lado 0" || names[9] != "Lado 9" {
		t.Fatalf("unexpected side names: %v", names)
	}
	if !KnownSide("Lado 3") || KnownSide("Lado 10") || KnownSide(SideAll) {
		t.Fatalf("KnownSide misclassifies")
	}
}

func TestTodayLetter(t *testing.T) {
	// 2024-01-01 was a Monday.
	monday := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	letters := []string{"L", "M", "X", "J", "V", "S", "D"}
	for i, want := range letters {
		got := TodayLetter(monday.AddDate(0, 0, i))
		if got != want {
			t.Fatalf("day %d letter = %s, want %s", i, got, want)
		}
	}
}

func TestTemplateRuleScoping(t *testing.T) {
	r := TemplateRule{Side: SideAll, Weekdays: []string{"L", "V"}}
	if !r.AppliesTo("Lado 2") {
		t.Fatalf("wildcard rule must apply to every side")
	}
	if !r.AllowedToday("V") || r.AllowedToday("D") {
		t.Fatalf("weekday filter broken")
	}
	r.Weekdays = nil
	if !r.AllowedToday("D") {
		t.Fatalf("empty weekday set must mean every day")
	}
	r.Side = "Lado 1"
	if r.AppliesTo("Lado 2") {
		t.Fatalf("side-scoped rule leaked to another side")
	}
}

func TestRecordClone(t *testing.T) {
	dock := 320
	ts := time.Now()
	r := Record{ID: "a", Dock: &dock, AssignedAt: &ts, AirItems: []AirItem{{ID: "x", Destination: "MAD"}}}
	cp := r.Clone()
	*cp.Dock = 321
	cp.AirItems[0].Destination = "BCN"
	if *r.Dock != 320 || r.AirItems[0].Destination != "MAD" {
		t.Fatalf("clone shares memory with original")
	}
}
