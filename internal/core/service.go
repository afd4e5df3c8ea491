package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dockcore/pkg/domain"
)

// ErrMilestoneSet is returned when an arrival or departure stamp would
// overwrite an existing value without the overwrite flag.
var ErrMilestoneSet = errors.New("milestone already set")

// ErrConflictDeclined is returned when a dock commit hits a conflict and
// the caller did not authorize an override.
var ErrConflictDeclined = errors.New("dock conflict not overridden")

// ErrUnknownField is returned by SetField for keys outside the catalog.
var ErrUnknownField = errors.New("unknown field")

// Clock supplies the current instant. Swapped in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Logger is the minimal structured logging surface used by the service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SavedPreferencePriority is the priority given to rules created from an
// existing record via SavePreference.
const SavedPreferencePriority = 10

// boardTimeZone is the wall clock used for arrival/departure stamps.
const boardTimeZone = "Europe/Madrid"

// Service exposes the transactional operations of the dock engine.
type Service struct {
	store      PersistentStore
	thresholds Thresholds
	clock      Clock
	logger     Logger
	metrics    MetricsRecorder
	tracer     Tracer
	location   *time.Location
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(clk Clock) Option {
	return func(s *Service) {
		if clk != nil {
			s.clock = clk
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(log Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithThresholds overrides the SLA thresholds.
func WithThresholds(th Thresholds) Option {
	return func(s *Service) { s.thresholds = th }
}

// WithMetrics attaches a metrics recorder observing every operation.
func WithMetrics(rec MetricsRecorder) Option {
	return func(s *Service) { s.metrics = rec }
}

// WithTracer attaches a tracer spanning every operation.
func WithTracer(tr Tracer) Option {
	return func(s *Service) { s.tracer = tr }
}

// WithLocation overrides the wall clock location used for milestone stamps.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	loc, err := time.LoadLocation(boardTimeZone)
	if err != nil {
		loc = time.UTC
	}
	s := &Service{
		store:      store,
		thresholds: DefaultThresholds(),
		clock:      systemClock{},
		logger:     noopLogger{},
		location:   loc,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

// Thresholds returns the configured SLA thresholds.
func (s *Service) Thresholds() Thresholds { return s.thresholds }

func (s *Service) now() time.Time { return s.clock.Now().In(s.location) }

// run wraps an operation with tracing, metrics, and failure logging.
func (s *Service) run(ctx context.Context, operation string, fn func(context.Context) error) error {
	started := time.Now()
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operation)
	}
	err := fn(ctx)
	if span != nil {
		span.End(err)
	}
	if s.metrics != nil {
		s.metrics.Observe(ctx, operation, err == nil, time.Since(started))
	}
	if err != nil {
		s.logger.Error("operation failed", "operation", operation, "error", err)
	} else {
		s.logger.Debug("operation completed", "operation", operation)
	}
	return err
}

// AddRecord inserts a record at the head of a side.
func (s *Service) AddRecord(ctx context.Context, side string, record Record) (Record, Result, error) {
	var created Record
	var res Result
	err := s.run(ctx, "add_record", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			created, err = tx.CreateRecord(ctx, side, record)
			return err
		})
		return err
	})
	return created, res, err
}

// UpdateRecord mutates a record using the provided mutator.
func (s *Service) UpdateRecord(ctx context.Context, side, id string, mutate func(*Record) error) (Record, Result, error) {
	var updated Record
	var res Result
	err := s.run(ctx, "update_record", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			updated, err = tx.UpdateRecord(ctx, side, id, mutate)
			return err
		})
		return err
	})
	return updated, res, err
}

// RemoveRecord deletes a record from a side.
func (s *Service) RemoveRecord(ctx context.Context, side, id string) (Result, error) {
	var res Result
	err := s.run(ctx, "remove_record", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteRecord(ctx, side, id)
		})
		return err
	})
	return res, err
}

// SetField writes one catalog field on a record. The dock field must go
// through CommitDock so validation and conflict handling apply; SetField
// rejects it.
func (s *Service) SetField(ctx context.Context, side, id, key, value string) (Record, Result, error) {
	apply, err := fieldSetter(key)
	if err != nil {
		return Record{}, Result{}, err
	}
	return s.UpdateRecord(ctx, side, id, func(r *Record) error {
		apply(r, value)
		return nil
	})
}

func fieldSetter(key string) (func(*Record, string), error) {
	switch key {
	case "carrier":
		return func(r *Record, v string) { r.Carrier = v }, nil
	case "plate":
		return func(r *Record, v string) { r.Plate = v }, nil
	case "destination":
		return func(r *Record, v string) { r.Destination = v }, nil
	case "planned-arrival":
		return func(r *Record, v string) { r.PlannedArrival = v }, nil
	case "planned-departure":
		return func(r *Record, v string) { r.PlannedDeparture = v }, nil
	case "planned-departure-cutoff":
		return func(r *Record, v string) { r.DepartureCutoff = v }, nil
	case "notes":
		return func(r *Record, v string) { r.Notes = v }, nil
	case "seal":
		return func(r *Record, v string) { r.Seal = v }, nil
	case "actual-arrival":
		return func(r *Record, v string) { r.ActualArrival = v }, nil
	case "actual-departure":
		return func(r *Record, v string) { r.ActualDeparture = v }, nil
	case "incident":
		return func(r *Record, v string) { r.Incident = v }, nil
	case "status":
		return func(r *Record, v string) { r.Status = domain.NormalizeStatus(v) }, nil
	case "dock":
		return nil, fmt.Errorf("%w: dock edits go through CommitDock", ErrUnknownField)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, key)
	}
}

// CommitDock runs the full dock edit protocol: format validation, conflict
// check, and the final write. On conflict without override the returned
// ConflictInfo identifies the holder and the record is left untouched; the
// caller asks the operator and retries with override set.
func (s *Service) CommitDock(ctx context.Context, side, id, rawValue string, override bool) (Record, *ConflictInfo, Result, error) {
	var committed Record
	var conflict *ConflictInfo
	var res Result
	err := s.run(ctx, "commit_dock", func(ctx context.Context) error {
		var dock *int
		if err := s.store.View(ctx, func(view TransactionView) error {
			var err error
			dock, err = view.Docks().ParseValue(rawValue)
			if err != nil {
				return err
			}
			if dock == nil {
				return nil
			}
			sides, err := view.ListSides(ctx)
			if err != nil {
				return err
			}
			conflict = CheckConflict(sides, *dock, side, id)
			return nil
		}); err != nil {
			return err
		}
		if conflict != nil && !override {
			return ErrConflictDeclined
		}
		if conflict != nil {
			s.logger.Warn("dock conflict overridden", "side", side, "record", id, "dock", *dock, "holder_side", conflict.Side)
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			committed, err = tx.UpdateRecord(ctx, side, id, func(r *Record) error {
				r.Dock = dock
				return nil
			})
			return err
		})
		return err
	})
	if errors.Is(err, ErrConflictDeclined) {
		return Record{}, conflict, Result{}, err
	}
	return committed, conflict, res, err
}

// MarkArrival stamps the actual-arrival field with the current wall clock
// time (HH:MM). An existing stamp requires the overwrite flag.
func (s *Service) MarkArrival(ctx context.Context, side, id string, overwrite bool) (Record, Result, error) {
	return s.markMilestone(ctx, "mark_arrival", side, id, overwrite, func(r *Record) *string { return &r.ActualArrival })
}

// MarkDeparture stamps the actual-departure field with the current wall
// clock time (HH:MM). An existing stamp requires the overwrite flag.
func (s *Service) MarkDeparture(ctx context.Context, side, id string, overwrite bool) (Record, Result, error) {
	return s.markMilestone(ctx, "mark_departure", side, id, overwrite, func(r *Record) *string { return &r.ActualDeparture })
}

func (s *Service) markMilestone(ctx context.Context, operation, side, id string, overwrite bool, field func(*Record) *string) (Record, Result, error) {
	var updated Record
	var res Result
	err := s.run(ctx, operation, func(ctx context.Context) error {
		stamp := s.now().Format("15:04")
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			updated, err = tx.UpdateRecord(ctx, side, id, func(r *Record) error {
				slot := field(r)
				if strings.TrimSpace(*slot) != "" && !overwrite {
					return ErrMilestoneSet
				}
				*slot = stamp
				return nil
			})
			return err
		})
		return err
	})
	return updated, res, err
}

// SetAirItems replaces the air-cargo breakdown of a record.
func (s *Service) SetAirItems(ctx context.Context, side, id string, items []AirItem) (Record, Result, error) {
	return s.UpdateRecord(ctx, side, id, func(r *Record) error {
		r.AirItems = append([]AirItem(nil), items...)
		return nil
	})
}

// ClearSide removes every record from a side.
func (s *Service) ClearSide(ctx context.Context, side string) (Result, error) {
	var res Result
	err := s.run(ctx, "clear_side", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.ReplaceSide(ctx, side, nil)
		})
		return err
	})
	return res, err
}

// ReplaceSide swaps a side's records wholesale, as an import does. When
// autoAssign is set, template rules fill in empty docks before the write.
func (s *Service) ReplaceSide(ctx context.Context, side string, records []Record, autoAssign bool) (map[string]int, Result, error) {
	assigned := map[string]int{}
	var res Result
	err := s.run(ctx, "replace_side", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if err := tx.ReplaceSide(ctx, side, records); err != nil {
				return err
			}
			if !autoAssign {
				return nil
			}
			return s.assignTemplates(ctx, tx, side, assigned)
		})
		return err
	})
	return assigned, res, err
}

// ApplyTemplatesToSide runs template auto-assignment over the side's
// records that currently lack a dock.
func (s *Service) ApplyTemplatesToSide(ctx context.Context, side string) (map[string]int, Result, error) {
	assigned := map[string]int{}
	var res Result
	err := s.run(ctx, "apply_templates", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return s.assignTemplates(ctx, tx, side, assigned)
		})
		return err
	})
	return assigned, res, err
}

func (s *Service) assignTemplates(ctx context.Context, tx Transaction, side string, assigned map[string]int) error {
	sides, err := tx.ListSides(ctx)
	if err != nil {
		return err
	}
	rules, err := tx.ListTemplates(ctx)
	if err != nil {
		return err
	}
	_, picks := ApplyTemplates(sides, side, rules, tx.Docks(), s.now())
	for id, dock := range picks {
		dock := dock
		if _, err := tx.UpdateRecord(ctx, side, id, func(r *Record) error {
			r.Dock = &dock
			return nil
		}); err != nil {
			return err
		}
		assigned[id] = dock
	}
	return nil
}

// PutTemplate inserts or updates a template rule.
func (s *Service) PutTemplate(ctx context.Context, rule TemplateRule) (TemplateRule, Result, error) {
	var saved TemplateRule
	var res Result
	err := s.run(ctx, "put_template", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			saved, err = tx.PutTemplate(ctx, rule)
			return err
		})
		return err
	})
	return saved, res, err
}

// DeleteTemplate removes a template rule.
func (s *Service) DeleteTemplate(ctx context.Context, id string) (Result, error) {
	var res Result
	err := s.run(ctx, "delete_template", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteTemplate(ctx, id)
		})
		return err
	})
	return res, err
}

// ListTemplates returns the persisted template rules.
func (s *Service) ListTemplates(ctx context.Context) ([]TemplateRule, error) {
	var rules []TemplateRule
	err := s.store.View(ctx, func(view TransactionView) error {
		var err error
		rules, err = view.ListTemplates(ctx)
		return err
	})
	return rules, err
}

// SavePreference creates a template rule from a record's current
// destination and dock, so the same destination lands on the same dock
// next time. The record must have both a dock and a destination.
func (s *Service) SavePreference(ctx context.Context, side, id string) (TemplateRule, Result, error) {
	var rec Record
	if err := s.store.View(ctx, func(view TransactionView) error {
		sd, ok, err := view.Side(ctx, side)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrUnknownSide, side)
		}
		for _, r := range sd.Records {
			if r.ID == id {
				rec = r
				return nil
			}
		}
		return fmt.Errorf("record %s: %w", id, domain.ErrNotFound)
	}); err != nil {
		return TemplateRule{}, Result{}, err
	}
	if rec.Dock == nil {
		return TemplateRule{}, Result{}, fmt.Errorf("record %s has no dock to save", id)
	}
	dest := strings.TrimSpace(rec.Destination)
	if dest == "" {
		return TemplateRule{}, Result{}, fmt.Errorf("record %s has no destination to save", id)
	}
	rule := TemplateRule{
		Side:        side,
		Pattern:     dest,
		DockNumbers: []int{*rec.Dock},
		Priority:    SavedPreferencePriority,
		Active:      true,
	}
	return s.PutTemplate(ctx, rule)
}

// ExportTemplates serializes the template rules as JSON.
func (s *Service) ExportTemplates(ctx context.Context) ([]byte, error) {
	rules, err := s.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(rules, "", "  ")
}

// ImportTemplates loads template rules from a JSON array, replacing rules
// whose id already exists. Returns the number imported.
func (s *Service) ImportTemplates(ctx context.Context, data []byte) (int, Result, error) {
	var rules []TemplateRule
	if err := json.Unmarshal(data, &rules); err != nil {
		return 0, Result{}, fmt.Errorf("decode templates: %w", err)
	}
	count := 0
	var res Result
	err := s.run(ctx, "import_templates", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			for _, rule := range rules {
				if _, err := tx.PutTemplate(ctx, rule); err != nil {
					return err
				}
				count++
			}
			return nil
		})
		return err
	})
	if err != nil {
		return 0, res, err
	}
	return count, res, nil
}

// Sides returns a cloned snapshot of all sides.
func (s *Service) Sides(ctx context.Context) ([]Side, error) {
	var sides []Side
	err := s.store.View(ctx, func(view TransactionView) error {
		var err error
		sides, err = view.ListSides(ctx)
		return err
	})
	return sides, err
}

// Snapshot returns the full board state for replication or archiving.
func (s *Service) Snapshot(ctx context.Context) ([]Side, []TemplateRule, error) {
	var sides []Side
	var rules []TemplateRule
	err := s.store.View(ctx, func(view TransactionView) error {
		var err error
		if sides, err = view.ListSides(ctx); err != nil {
			return err
		}
		rules, err = view.ListTemplates(ctx)
		return err
	})
	return sides, rules, err
}

// ApplySnapshot replaces the whole board with a received snapshot. Last
// snapshot applied wins; no per-record merge is attempted. Sides the
// snapshot omits are left alone, templates are replaced wholesale.
func (s *Service) ApplySnapshot(ctx context.Context, sides []Side, templates []TemplateRule) (Result, error) {
	var res Result
	err := s.run(ctx, "apply_snapshot", func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			for _, side := range sides {
				if err := tx.ReplaceSide(ctx, side.Name, side.Records); err != nil {
					return err
				}
			}
			existing, err := tx.ListTemplates(ctx)
			if err != nil {
				return err
			}
			incoming := make(map[string]bool, len(templates))
			for _, rule := range templates {
				incoming[rule.ID] = true
			}
			for _, rule := range existing {
				if !incoming[rule.ID] {
					if err := tx.DeleteTemplate(ctx, rule.ID); err != nil {
						return err
					}
				}
			}
			for _, rule := range templates {
				if _, err := tx.PutTemplate(ctx, rule); err != nil {
					return err
				}
			}
			return nil
		})
		return err
	})
	return res, err
}

// DockBoard derives the live board: occupancy per dock plus the cutoff
// alert icon and air-cargo totals of the owning record.
func (s *Service) DockBoard(ctx context.Context) (map[int]BoardTile, error) {
	var board map[int]BoardTile
	err := s.store.View(ctx, func(view TransactionView) error {
		sides, err := view.ListSides(ctx)
		if err != nil {
			return err
		}
		board = BuildBoard(sides, view.Docks(), s.now(), s.thresholds)
		return nil
	})
	return board, err
}

// Summary aggregates the board buckets at the current instant.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var sum Summary
	err := s.store.View(ctx, func(view TransactionView) error {
		sides, err := view.ListSides(ctx)
		if err != nil {
			return err
		}
		sum = BuildSummary(sides, s.now(), s.thresholds)
		return nil
	})
	return sum, err
}

// EvaluateRecord computes the SLA timers for one record now.
func (s *Service) EvaluateRecord(rec Record) SLAInfo {
	return EvaluateSLA(rec, s.now(), s.thresholds)
}
