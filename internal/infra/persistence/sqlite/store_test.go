package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"dockcore/pkg/domain"
)

func dockPtr(n int) *int { return &n }

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.db")
	ctx := context.Background()

	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	var created domain.Record
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateRecord(ctx, "Lado 0", domain.Record{
			Carrier: "ACME", Destination: "ZARA LOGISTICS", Dock: dockPtr(320),
		})
		if err != nil {
			return err
		}
		_, err = tx.PutTemplate(ctx, domain.TemplateRule{
			Side: "Lado 0", Pattern: "ZARA*", DockNumbers: []int{320}, Priority: 5, Active: true,
		})
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close(ctx) }()

	snapshot := reopened.ExportState()
	if len(snapshot.Sides) != domain.SideCount {
		t.Fatalf("expected %d sides, got %d", domain.SideCount, len(snapshot.Sides))
	}
	var found bool
	for _, side := range snapshot.Sides {
		if side.Name != "Lado 0" {
			continue
		}
		if len(side.Records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(side.Records))
		}
		rec := side.Records[0]
		if rec.ID != created.ID || rec.Carrier != "ACME" || rec.Dock == nil || *rec.Dock != 320 {
			t.Fatalf("record not restored faithfully: %+v", rec)
		}
		if rec.AssignedAt == nil {
			t.Fatalf("assignment stamp lost across restart")
		}
		found = true
	}
	if !found {
		t.Fatalf("side Lado 0 missing after reload")
	}
	if len(snapshot.Templates) != 1 || snapshot.Templates[0].Pattern != "ZARA*" {
		t.Fatalf("templates not restored: %v", snapshot.Templates)
	}
}

func TestNewStoreDefaultsAndPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "board.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("expected nested directories created, got %v", err)
	}
	defer func() { _ = store.Close(context.Background()) }()
	if store.Path() != path {
		t.Fatalf("expected path %q, got %q", path, store.Path())
	}
	if store.DB() == nil {
		t.Fatalf("expected db handle")
	}
}

func TestFailedTransactionNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.db")
	ctx := context.Background()
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateRecord(ctx, "Lado 0", domain.Record{Dock: dockPtr(999)})
		return err
	}); err == nil {
		t.Fatalf("expected invalid dock to fail")
	}
	if err := store.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close(ctx) }()
	for _, side := range reopened.ExportState().Sides {
		if len(side.Records) != 0 {
			t.Fatalf("failed transaction leaked into storage")
		}
	}
}
