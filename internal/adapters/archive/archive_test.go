package archive

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"testing"
	"time"

	"dockcore/internal/blob"
	"dockcore/pkg/domain"
)

var archiveNow = time.Date(2024, time.May, 15, 10, 0, 0, 0, time.UTC)

func newTestArchiver(t *testing.T) (*Archiver, blob.Store) {
	t.Helper()
	store := blob.NewMemory()
	return New(store, WithNowFunc(func() time.Time { return archiveNow })), store
}

func testSide() domain.Side {
	dock := 320
	return domain.Side{
		Name: "Lado 0",
		Records: []domain.Record{
			{ID: "r1", Carrier: "Trans Norte", Destination: "CORUÑA", Dock: &dock},
			{ID: "r2", Carrier: "Sur Exprés", Destination: "SEVILLA"},
		},
	}
}

func TestArchiveYard(t *testing.T) {
	a, store := newTestArchiver(t)
	ctx := context.Background()

	info, err := a.ArchiveYard(ctx, []domain.Side{testSide()}, []domain.TemplateRule{
		{ID: "tpl-1", Side: "Lado 0", Pattern: "ZARA*", DockNumbers: []int{320}, Active: true},
	})
	if err != nil {
		t.Fatalf("archive yard: %v", err)
	}
	if info.Key != "archive/yard/20240515T100000Z.json" {
		t.Fatalf("unexpected key %q", info.Key)
	}

	got, err := store.Head(ctx, info.Key)
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if got.ContentType != "application/json" {
		t.Fatalf("content type %q", got.ContentType)
	}
}

func TestArchiveSideWritesBothFormats(t *testing.T) {
	a, store := newTestArchiver(t)
	ctx := context.Background()

	jsonInfo, tableInfo, err := a.ArchiveSide(ctx, testSide())
	if err != nil {
		t.Fatalf("archive side: %v", err)
	}
	if jsonInfo.Key != "archive/sides/lado-0/20240515T100000Z.json" {
		t.Fatalf("json key %q", jsonInfo.Key)
	}
	if tableInfo.Key != "archive/sides/lado-0/20240515T100000Z.csv" {
		t.Fatalf("table key %q", tableInfo.Key)
	}
	if jsonInfo.Metadata["side"] != "Lado 0" || tableInfo.Metadata["side"] != "Lado 0" {
		t.Fatalf("side metadata missing: %+v %+v", jsonInfo.Metadata, tableInfo.Metadata)
	}

	_, rc, err := store.Get(ctx, tableInfo.Key)
	if err != nil {
		t.Fatalf("get csv: %v", err)
	}
	raw, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	_ = rc.Close()
	rows, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "carrier" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "Trans Norte" || rows[2][0] != "Sur Exprés" {
		t.Fatalf("unexpected data rows %v", rows[1:])
	}
}

func TestListScopes(t *testing.T) {
	a, _ := newTestArchiver(t)
	ctx := context.Background()

	if _, err := a.ArchiveYard(ctx, []domain.Side{testSide()}, nil); err != nil {
		t.Fatalf("archive yard: %v", err)
	}
	if _, _, err := a.ArchiveSide(ctx, testSide()); err != nil {
		t.Fatalf("archive side: %v", err)
	}

	all, err := a.List(ctx, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 blobs, got %d", len(all))
	}
	yard, err := a.List(ctx, "yard")
	if err != nil {
		t.Fatalf("list yard: %v", err)
	}
	if len(yard) != 1 || yard[0].Key != "archive/yard/20240515T100000Z.json" {
		t.Fatalf("unexpected yard listing %v", yard)
	}
	side, err := a.List(ctx, "Lado 0")
	if err != nil {
		t.Fatalf("list side: %v", err)
	}
	if len(side) != 2 {
		t.Fatalf("expected 2 side blobs, got %d", len(side))
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	a, _ := newTestArchiver(t)
	ctx := context.Background()

	templates := []domain.TemplateRule{{ID: "tpl-1", Side: "Lado 0", Pattern: "ZARA*", DockNumbers: []int{320}, Active: true}}
	info, err := a.ArchiveYard(ctx, []domain.Side{testSide()}, templates)
	if err != nil {
		t.Fatalf("archive yard: %v", err)
	}

	snap, err := a.Restore(ctx, info.Key)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !snap.TakenAt.Equal(archiveNow) {
		t.Fatalf("taken at %v", snap.TakenAt)
	}
	if len(snap.Sides) != 1 || len(snap.Sides[0].Records) != 2 || snap.Sides[0].Records[0].ID != "r1" {
		t.Fatalf("unexpected sides %+v", snap.Sides)
	}
	if len(snap.Templates) != 1 || snap.Templates[0].ID != "tpl-1" {
		t.Fatalf("unexpected templates %+v", snap.Templates)
	}

	if _, err := a.Restore(ctx, "archive/yard/missing.json"); err == nil {
		t.Fatalf("expected error for missing key")
	}
}
