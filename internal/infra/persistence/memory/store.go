// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"dockcore/pkg/domain"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Record aliases domain.Record for in-memory persistence operations.
	Record = domain.Record
	// Side aliases domain.Side.
	Side = domain.Side
	// TemplateRule aliases domain.TemplateRule.
	TemplateRule = domain.TemplateRule
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	sideOrder []string
	sides     map[string]Side
	templates map[string]TemplateRule
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Sides     []Side         `json:"sides"`
	Templates []TemplateRule `json:"templates"`
}

func newMemoryState() memoryState {
	state := memoryState{
		sideOrder: domain.SideNames(),
		sides:     make(map[string]Side, domain.SideCount),
		templates: make(map[string]TemplateRule),
	}
	for _, name := range state.sideOrder {
		state.sides[name] = Side{Name: name}
	}
	return state
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Sides:     make([]Side, 0, len(state.sideOrder)),
		Templates: make([]TemplateRule, 0, len(state.templates)),
	}
	for _, name := range state.sideOrder {
		s.Sides = append(s.Sides, state.sides[name].Clone())
	}
	for _, id := range sortedTemplateIDs(state.templates) {
		s.Templates = append(s.Templates, state.templates[id].Clone())
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for _, side := range s.Sides {
		if _, ok := state.sides[side.Name]; !ok {
			continue
		}
		state.sides[side.Name] = side.Clone()
	}
	for _, rule := range s.Templates {
		if rule.ID == "" {
			continue
		}
		state.templates[rule.ID] = rule.Clone()
	}
	return state
}

// migrateSnapshot repairs snapshots written by earlier revisions or edited
// by hand: missing sides reappear empty, statuses are re-normalized, and
// dock numbers outside the yard universe are cleared.
func migrateSnapshot(snapshot Snapshot, docks domain.DockSet) Snapshot {
	byName := make(map[string]Side, len(snapshot.Sides))
	for _, side := range snapshot.Sides {
		byName[side.Name] = side
	}
	migrated := Snapshot{Sides: make([]Side, 0, domain.SideCount)}
	for _, name := range domain.SideNames() {
		side, ok := byName[name]
		if !ok {
			side = Side{Name: name}
		}
		for i, rec := range side.Records {
			rec.Status = domain.NormalizeStatus(string(rec.Status))
			if rec.Dock != nil && !docks.Contains(*rec.Dock) {
				rec.Dock = nil
				rec.AssignedAt = nil
			}
			side.Records[i] = rec
		}
		migrated.Sides = append(migrated.Sides, side)
	}
	for _, rule := range snapshot.Templates {
		if rule.ID == "" {
			continue
		}
		kept := rule.DockNumbers[:0]
		for _, n := range rule.DockNumbers {
			if docks.Contains(n) {
				kept = append(kept, n)
			}
		}
		rule.DockNumbers = kept
		migrated.Templates = append(migrated.Templates, rule)
	}
	return migrated
}

func (s memoryState) clone() memoryState {
	cloned := memoryState{
		sideOrder: append([]string(nil), s.sideOrder...),
		sides:     make(map[string]Side, len(s.sides)),
		templates: make(map[string]TemplateRule, len(s.templates)),
	}
	for name, side := range s.sides {
		cloned.sides[name] = side.Clone()
	}
	for id, rule := range s.templates {
		cloned.templates[id] = rule.Clone()
	}
	return cloned
}

func sortedTemplateIDs(templates map[string]TemplateRule) []string {
	ids := make([]string, 0, len(templates))
	for id := range templates {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	return ids
}

// Store provides an in-memory transactional store for the dock domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	docks  domain.DockSet
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		docks:  domain.DefaultDocks(),
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot, s.docks))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// SetNowFunc overrides the time provider. Intended for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

// Docks returns the dock universe the store validates against.
func (s *Store) Docks() domain.DockSet { return s.docks }

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
	docks domain.DockSet
}

func newTransactionView(state *memoryState, docks domain.DockSet) TransactionView {
	return transactionView{state: state, docks: docks}
}

// ListSides returns all sides in canonical order.
func (v transactionView) ListSides(context.Context) ([]Side, error) {
	out := make([]Side, 0, len(v.state.sideOrder))
	for _, name := range v.state.sideOrder {
		out = append(out, v.state.sides[name].Clone())
	}
	return out, nil
}

// Side retrieves one side by name.
func (v transactionView) Side(_ context.Context, name string) (Side, bool, error) {
	side, ok := v.state.sides[name]
	if !ok {
		return Side{}, false, nil
	}
	return side.Clone(), true, nil
}

// ListTemplates returns all template rules ordered by id.
func (v transactionView) ListTemplates(context.Context) ([]TemplateRule, error) {
	out := make([]TemplateRule, 0, len(v.state.templates))
	for _, id := range sortedTemplateIDs(v.state.templates) {
		out = append(out, v.state.templates[id].Clone())
	}
	return out, nil
}

// Docks returns the dock universe.
func (v transactionView) Docks() domain.DockSet { return v.docks }

func (t *transaction) ListSides(ctx context.Context) ([]Side, error) {
	return newTransactionView(&t.state, t.store.docks).ListSides(ctx)
}

func (t *transaction) Side(ctx context.Context, name string) (Side, bool, error) {
	return newTransactionView(&t.state, t.store.docks).Side(ctx, name)
}

func (t *transaction) ListTemplates(ctx context.Context) ([]TemplateRule, error) {
	return newTransactionView(&t.state, t.store.docks).ListTemplates(ctx)
}

func (t *transaction) Docks() domain.DockSet { return t.store.docks }

func (t *transaction) recordChange(change Change) {
	t.changes = append(t.changes, change)
}

func (t *transaction) validateDock(rec Record) error {
	if rec.Dock != nil && !t.store.docks.Contains(*rec.Dock) {
		return fmt.Errorf("%w: %d", domain.ErrInvalidDock, *rec.Dock)
	}
	return nil
}

// CreateRecord prepends a record to the side. A missing id is generated; a
// non-empty dock stamps the assignment timestamp.
func (t *transaction) CreateRecord(_ context.Context, side string, record Record) (Record, error) {
	s, ok := t.state.sides[side]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", domain.ErrUnknownSide, side)
	}
	if err := t.validateDock(record); err != nil {
		return Record{}, err
	}
	if record.ID == "" {
		record.ID = t.store.newID()
	}
	record.Status = domain.NormalizeStatus(string(record.Status))
	if record.Dock != nil && record.AssignedAt == nil {
		now := t.now
		record.AssignedAt = &now
	}
	s.Records = append([]Record{record.Clone()}, s.Records...)
	t.state.sides[side] = s
	t.recordChange(Change{Entity: domain.EntityRecord, Action: domain.ActionCreate, Side: side, After: record.Clone()})
	return record, nil
}

// UpdateRecord applies mutate to the record and stamps the assignment
// timestamp whenever the dock transitions to a different non-empty value.
func (t *transaction) UpdateRecord(_ context.Context, side, id string, mutate func(*Record) error) (Record, error) {
	s, ok := t.state.sides[side]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", domain.ErrUnknownSide, side)
	}
	for i, rec := range s.Records {
		if rec.ID != id {
			continue
		}
		before := rec.Clone()
		updated := rec.Clone()
		if err := mutate(&updated); err != nil {
			return Record{}, err
		}
		updated.ID = before.ID
		if err := t.validateDock(updated); err != nil {
			return Record{}, err
		}
		updated.Status = domain.NormalizeStatus(string(updated.Status))
		if dockChanged(before.Dock, updated.Dock) {
			if updated.Dock == nil {
				updated.AssignedAt = nil
			} else {
				now := t.now
				updated.AssignedAt = &now
			}
		}
		s.Records[i] = updated.Clone()
		t.state.sides[side] = s
		t.recordChange(Change{Entity: domain.EntityRecord, Action: domain.ActionUpdate, Side: side, Before: before, After: updated.Clone()})
		return updated, nil
	}
	return Record{}, fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
}

// DeleteRecord removes the record from the side.
func (t *transaction) DeleteRecord(_ context.Context, side, id string) error {
	s, ok := t.state.sides[side]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownSide, side)
	}
	for i, rec := range s.Records {
		if rec.ID != id {
			continue
		}
		s.Records = append(s.Records[:i], s.Records[i+1:]...)
		t.state.sides[side] = s
		t.recordChange(Change{Entity: domain.EntityRecord, Action: domain.ActionDelete, Side: side, Before: rec.Clone()})
		return nil
	}
	return fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
}

// ReplaceSide swaps the full record list of a side, generating ids and
// assignment timestamps for incoming records that lack them.
func (t *transaction) ReplaceSide(_ context.Context, side string, records []Record) error {
	s, ok := t.state.sides[side]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownSide, side)
	}
	before := s.Clone()
	next := make([]Record, 0, len(records))
	for _, rec := range records {
		if err := t.validateDock(rec); err != nil {
			return err
		}
		if rec.ID == "" {
			rec.ID = t.store.newID()
		}
		rec.Status = domain.NormalizeStatus(string(rec.Status))
		if rec.Dock != nil && rec.AssignedAt == nil {
			now := t.now
			rec.AssignedAt = &now
		}
		next = append(next, rec.Clone())
	}
	s.Records = next
	t.state.sides[side] = s
	t.recordChange(Change{Entity: domain.EntitySide, Action: domain.ActionReplace, Side: side, Before: before, After: s.Clone()})
	return nil
}

// PutTemplate inserts or updates a template rule.
func (t *transaction) PutTemplate(_ context.Context, rule TemplateRule) (TemplateRule, error) {
	if rule.Side != domain.SideAll && !domain.KnownSide(rule.Side) {
		return TemplateRule{}, fmt.Errorf("%w: %s", domain.ErrUnknownSide, rule.Side)
	}
	for _, n := range rule.DockNumbers {
		if !t.store.docks.Contains(n) {
			return TemplateRule{}, fmt.Errorf("%w: %d", domain.ErrInvalidDock, n)
		}
	}
	action := domain.ActionUpdate
	var before any
	if rule.ID == "" {
		rule.ID = t.store.newID()
		action = domain.ActionCreate
	} else if prev, ok := t.state.templates[rule.ID]; ok {
		before = prev.Clone()
	} else {
		action = domain.ActionCreate
	}
	t.state.templates[rule.ID] = rule.Clone()
	t.recordChange(Change{Entity: domain.EntityTemplate, Action: action, Before: before, After: rule.Clone()})
	return rule, nil
}

// DeleteTemplate removes a template rule by id.
func (t *transaction) DeleteTemplate(_ context.Context, id string) error {
	rule, ok := t.state.templates[id]
	if !ok {
		return fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
	}
	delete(t.state.templates, id)
	t.recordChange(Change{Entity: domain.EntityTemplate, Action: domain.ActionDelete, Before: rule.Clone()})
	return nil
}

func dockChanged(before, after *int) bool {
	switch {
	case before == nil && after == nil:
		return false
	case before == nil || after == nil:
		return true
	default:
		return *before != *after
	}
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state, s.docks)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	state := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&state, s.docks))
}

// Close is a no-op for the in-memory store.
func (s *Store) Close(context.Context) error { return nil }
