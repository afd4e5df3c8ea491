package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"dockcore/internal/infra/persistence/memory"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	ctx := context.Background()

	rec.Observe(ctx, "add_record", true, 20*time.Millisecond)
	rec.Observe(ctx, "add_record", true, 30*time.Millisecond)
	rec.Observe(ctx, "add_record", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond)

	snap := rec.Snapshot()
	if snap.DurationsMS["add_record"] != 55 {
		t.Fatalf("durations %v", snap.DurationsMS)
	}
	if snap.Results["add_record"]["success"] != 2 || snap.Results["add_record"]["error"] != 1 {
		t.Fatalf("results %v", snap.Results)
	}
	if _, ok := snap.Results[""]; ok {
		t.Fatalf("empty operation must be dropped")
	}
	if !strings.HasPrefix(rec.Name(), "dock_service_metrics_") {
		t.Fatalf("generated name %q", rec.Name())
	}
}

func TestServiceObservesOperations(t *testing.T) {
	store := memory.NewStore(NewDefaultRulesEngine())
	rec := NewExpvarMetricsRecorder("")
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	svc := NewService(store, WithMetrics(rec), WithTracer(tracer))
	ctx := context.Background()

	if _, _, err := svc.AddRecord(ctx, "Lado 0", Record{Carrier: "ACME"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, _, err := svc.AddRecord(ctx, "Muelle Viejo", Record{}); err == nil {
		t.Fatalf("expected unknown side error")
	}

	snap := rec.Snapshot()
	if snap.Results["add_record"]["success"] != 1 || snap.Results["add_record"]["error"] != 1 {
		t.Fatalf("results %v", snap.Results)
	}

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(entries))
	}
	if entries[0].Operation != "add_record" || entries[0].Status != "success" {
		t.Fatalf("first span %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error == "" {
		t.Fatalf("second span %+v", entries[1])
	}

	dec := json.NewDecoder(&buf)
	var line JSONTraceEntry
	if err := dec.Decode(&line); err != nil {
		t.Fatalf("decode trace line: %v", err)
	}
	if line.Operation != "add_record" {
		t.Fatalf("trace line %+v", line)
	}
}

func TestJSONTracerNilWriter(t *testing.T) {
	tracer := NewJSONTracer(nil)
	_, span := tracer.Start(context.Background(), "commit_dock")
	span.End(errors.New("boom"))
	entries := tracer.Entries()
	if len(entries) != 1 || entries[0].Error != "boom" {
		t.Fatalf("entries %+v", entries)
	}
}
