package core

import (
	"testing"
	"time"

	"dockcore/pkg/domain"
)

func TestBuildSummaryBuckets(t *testing.T) {
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	assigned := now.Add(-40 * time.Minute)
	sides := []Side{
		{Name: "Lado 0", Records: []Record{
			{ID: "ok", Status: domain.StatusOK},
			{ID: "loading", Status: domain.StatusLoading},
			{ID: "cancelled", Status: domain.StatusCancelled},
			{ID: "incident", Incident: "FALTA DOCUMENTACION"},
		}},
		{Name: "Lado 1", Records: []Record{
			{ID: "waiting", Dock: dockPtr(320), AssignedAt: &assigned},
			{ID: "late", DepartureCutoff: "09:50"},
			{ID: "close", DepartureCutoff: "10:10"},
		}},
	}

	sum := BuildSummary(sides, now, DefaultThresholds())

	if sum.Total != 7 {
		t.Fatalf("expected 7 records, got %d", sum.Total)
	}
	if len(sum.OK) != 1 || sum.OK[0].Record.ID != "ok" {
		t.Fatalf("unexpected OK bucket %v", sum.OK)
	}
	if len(sum.Loading) != 1 || len(sum.Cancelled) != 1 {
		t.Fatalf("expected one loading and one cancelled record")
	}
	if len(sum.Incidents) != 1 || sum.Incidents[0].Record.ID != "incident" {
		t.Fatalf("unexpected incidents bucket")
	}
	if len(sum.WaitRows) != 1 || sum.WaitCrit != 1 || sum.WaitWarn != 0 {
		t.Fatalf("expected one critical wait row, got %d/%d", sum.WaitWarn, sum.WaitCrit)
	}
	if len(sum.CutoffRows) != 2 || sum.CutoffCrit != 1 || sum.CutoffWarn != 1 {
		t.Fatalf("expected one crit and one warn cutoff row, got %d/%d", sum.CutoffWarn, sum.CutoffCrit)
	}
	if sum.WaitRows[0].Side != "Lado 1" {
		t.Fatalf("expected side name carried on summary rows")
	}
	if sum.WaitRows[0].SLA.Message == "" {
		t.Fatalf("expected SLA message on wait row")
	}
}

func TestBuildSummaryPure(t *testing.T) {
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	sides := []Side{{Name: "Lado 0", Records: []Record{{ID: "ok", Status: domain.StatusOK}}}}
	sum := BuildSummary(sides, now, DefaultThresholds())
	sum.OK[0].Record.Carrier = "mutated"
	if sides[0].Records[0].Carrier == "mutated" {
		t.Fatalf("summary rows alias the snapshot")
	}
}

func TestAirTotals(t *testing.T) {
	items := []AirItem{
		{ID: "1", Destination: "MAD", M3: "1,5", Boxes: "10"},
		{ID: "2", Destination: "BCN", M3: "2.25", Boxes: "4"},
		{ID: "3", Destination: "VLC", M3: "n/a", Boxes: "muchas"},
	}
	m3, boxes := AirTotals(items)
	if m3 != 3.75 {
		t.Fatalf("expected 3.75 m3, got %v", m3)
	}
	if boxes != 14 {
		t.Fatalf("expected 14 boxes, got %d", boxes)
	}

	if m3, boxes := AirTotals(nil); m3 != 0 || boxes != 0 {
		t.Fatalf("expected zero totals for no items")
	}
}
