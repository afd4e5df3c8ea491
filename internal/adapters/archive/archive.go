// Package archive writes yard snapshots to a blob store, as JSON and as a
// flat table in field-catalog column order. Keys are timestamped so archives
// accumulate; the blob layer's create-only Put guards against overwrites.
package archive

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"dockcore/internal/adapters/tabular"
	"dockcore/internal/blob"
	"dockcore/pkg/domain"
)

const keyTimeLayout = "20060102T150405Z"

// Snapshot is the archived shape of the whole yard.
type Snapshot struct {
	Sides     []domain.Side         `json:"sides"`
	Templates []domain.TemplateRule `json:"templates"`
	TakenAt   time.Time             `json:"taken_at"`
}

// Archiver writes snapshots into a blob store under the "archive/" prefix.
type Archiver struct {
	store blob.Store
	nowFn func() time.Time
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithNowFunc overrides the archive timestamp source.
func WithNowFunc(fn func() time.Time) Option {
	return func(a *Archiver) { a.nowFn = fn }
}

// New returns an Archiver backed by store.
func New(store blob.Store, opts ...Option) *Archiver {
	a := &Archiver{store: store, nowFn: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Archiver) stamp() string {
	return a.nowFn().UTC().Format(keyTimeLayout)
}

// sideSlug flattens a side name into a key segment ("Lado 0" -> "lado-0").
func sideSlug(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
}

// ArchiveYard stores the full snapshot as one JSON blob and returns its info.
func (a *Archiver) ArchiveYard(ctx context.Context, sides []domain.Side, templates []domain.TemplateRule) (blob.Info, error) {
	snap := Snapshot{Sides: sides, Templates: templates, TakenAt: a.nowFn().UTC()}
	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return blob.Info{}, err
	}
	key := fmt.Sprintf("archive/yard/%s.json", a.stamp())
	return a.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{ContentType: "application/json"})
}

// ArchiveSide stores one side twice: a JSON blob with the typed records and a
// CSV table in catalog column order. Returns the info of both blobs.
func (a *Archiver) ArchiveSide(ctx context.Context, side domain.Side) (jsonInfo, tableInfo blob.Info, err error) {
	stamp := a.stamp()
	slug := sideSlug(side.Name)

	payload, err := json.MarshalIndent(side, "", "  ")
	if err != nil {
		return blob.Info{}, blob.Info{}, err
	}
	jsonKey := fmt.Sprintf("archive/sides/%s/%s.json", slug, stamp)
	jsonInfo, err = a.store.Put(ctx, jsonKey, bytes.NewReader(payload), blob.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"side": side.Name},
	})
	if err != nil {
		return blob.Info{}, blob.Info{}, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(tabular.Table(side.Records)); err != nil {
		return blob.Info{}, blob.Info{}, err
	}
	tableKey := fmt.Sprintf("archive/sides/%s/%s.csv", slug, stamp)
	tableInfo, err = a.store.Put(ctx, tableKey, bytes.NewReader(buf.Bytes()), blob.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"side": side.Name},
	})
	if err != nil {
		return blob.Info{}, blob.Info{}, err
	}
	return jsonInfo, tableInfo, nil
}

// List returns archived blobs under the given scope ("yard", a side name, or
// empty for everything).
func (a *Archiver) List(ctx context.Context, scope string) ([]blob.Info, error) {
	prefix := "archive/"
	switch {
	case scope == "":
	case scope == "yard":
		prefix = "archive/yard/"
	default:
		prefix = "archive/sides/" + sideSlug(scope) + "/"
	}
	return a.store.List(ctx, prefix)
}

// Restore reads a yard snapshot blob back.
func (a *Archiver) Restore(ctx context.Context, key string) (Snapshot, error) {
	_, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return Snapshot{}, err
	}
	defer func() { _ = rc.Close() }()
	var snap Snapshot
	if err := json.NewDecoder(rc).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode archive %s: %w", key, err)
	}
	return snap, nil
}
