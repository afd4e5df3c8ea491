// Package domain defines the core entities, value types, and rule
// evaluation primitives used by dockcore.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityRecord identifies an individual truck operation record.
	EntityRecord EntityType = "record"
	// EntitySide identifies a yard side (a named partition of records).
	EntitySide EntityType = "side"
	// EntityTemplate identifies an auto-assignment template rule.
	EntityTemplate EntityType = "template"
)

// Status enumerates the truck workflow states shown on the board.
type Status string

// Canonical truck statuses. The empty string means "not set".
const (
	StatusUnset     Status = ""
	StatusOK        Status = "OK"
	StatusLoading   Status = "CARGANDO"
	StatusCancelled Status = "ANULADO"
)

// NormalizeStatus maps free-form imported text onto the status enum.
// Placeholder markers ("*", "-", "N/A") and unrecognised values collapse
// to StatusUnset so the engine never carries a malformed status.
func NormalizeStatus(raw string) Status {
	v := strings.TrimSpace(raw)
	if v == "" || v == "*" || v == "-" {
		return StatusUnset
	}
	up := strings.ToUpper(v)
	if up == "N/A" || up == "NA" {
		return StatusUnset
	}
	switch Status(up) {
	case StatusOK, StatusLoading, StatusCancelled:
		return Status(up)
	}
	return StatusUnset
}

// Incidents offered as a convenience catalog. The incident field itself
// stays free text.
var Incidents = []string{
	"RETRASO TRANSPORTISTA",
	"RETRASO CD",
	"RETRASO DOCUMENTACION",
	"CAMION ANULADO",
	"CAMION NO APTO",
}

// Occupancy captures the derived state of a dock.
type Occupancy string

// Derived dock states, ordered by severity: a free claim never outranks a
// reservation, and a reservation never outranks physical presence.
const (
	// DockFree means no active record holds the dock.
	DockFree Occupancy = "LIBRE"
	// DockReserved means a record has the dock assigned but the truck has
	// not arrived yet.
	DockReserved Occupancy = "ESPERA"
	// DockBusy means the truck is physically present.
	DockBusy Occupancy = "OCUPADO"
)

// Rank returns the merge severity of the occupancy state.
func (o Occupancy) Rank() int {
	switch o {
	case DockReserved:
		return 1
	case DockBusy:
		return 2
	default:
		return 0
	}
}

// DockState is the consolidated view of one dock. Record and Side are only
// populated when the dock is not free.
type DockState struct {
	State  Occupancy `json:"state"`
	Record *Record   `json:"record,omitempty"`
	Side   string    `json:"side,omitempty"`
}

// AirItem is one air-cargo destination loaded on a truck. Quantities stay
// editable text; totals coerce them when summing.
type AirItem struct {
	ID          string `json:"id"`
	Destination string `json:"dest"`
	M3          string `json:"m3"`
	Boxes       string `json:"bx"`
}

// Record is one truck operation ("operativa"). Descriptive fields are opaque
// text exchanged verbatim with the import/export collaborator; only the dock
// and status fields are validated at the boundary. Time-of-day fields keep
// their original display text and are parsed lazily by the SLA evaluator.
type Record struct {
	ID               string `json:"id"`
	Carrier          string `json:"carrier"`
	Plate            string `json:"plate"`
	Destination      string `json:"destination"`
	PlannedArrival   string `json:"planned-arrival"`
	PlannedDeparture string `json:"planned-departure"`
	DepartureCutoff  string `json:"planned-departure-cutoff"`
	Notes            string `json:"notes"`

	Dock            *int   `json:"dock"`
	Seal            string `json:"seal"`
	ActualArrival   string `json:"actual-arrival"`
	ActualDeparture string `json:"actual-departure"`
	Incident        string `json:"incident"`
	Status          Status `json:"status"`

	// AssignedAt is stamped by the store whenever the dock field transitions
	// to a new non-empty value. It anchors the wait timer when no planned
	// arrival time is usable.
	AssignedAt *time.Time `json:"assigned_at,omitempty"`

	AirItems []AirItem `json:"air_items,omitempty"`
}

// HasDock reports whether a dock number is assigned.
func (r Record) HasDock() bool { return r.Dock != nil }

// Occupancy classifies the record's own claim on its dock. A logged
// departure always wins: such a record cannot hold a dock even if an
// arrival timestamp is still present.
func (r Record) Occupancy() Occupancy {
	if strings.TrimSpace(r.ActualDeparture) != "" {
		return DockFree
	}
	if strings.TrimSpace(r.ActualArrival) != "" {
		return DockBusy
	}
	return DockReserved
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	cp := r
	if r.Dock != nil {
		d := *r.Dock
		cp.Dock = &d
	}
	if r.AssignedAt != nil {
		ts := *r.AssignedAt
		cp.AssignedAt = &ts
	}
	if r.AirItems != nil {
		cp.AirItems = make([]AirItem, len(r.AirItems))
		copy(cp.AirItems, r.AirItems)
	}
	return cp
}

// Side is a named partition of records. Order is insertion order; newly
// added records are prepended.
type Side struct {
	Name    string   `json:"name"`
	Records []Record `json:"records"`
}

// Clone returns a deep copy of the side.
func (s Side) Clone() Side {
	cp := Side{Name: s.Name}
	if s.Records != nil {
		cp.Records = make([]Record, len(s.Records))
		for i, r := range s.Records {
			cp.Records[i] = r.Clone()
		}
	}
	return cp
}

// SideCount is the fixed number of yard sides.
const SideCount = 10

// SideAll is the side-agnostic wildcard accepted by template rules.
const SideAll = "Todos"

// SideNames returns the canonical ordered side names ("Lado 0" … "Lado 9").
func SideNames() []string {
	names := make([]string, SideCount)
	for i := range names {
		names[i] = fmt.Sprintf("Lado %d", i)
	}
	return names
}

// KnownSide reports whether name is one of the canonical sides.
func KnownSide(name string) bool {
	for _, n := range SideNames() {
		if n == name {
			return true
		}
	}
	return false
}

// TemplateRule is a persisted auto-assignment preference. The engine only
// consumes rules; authoring lives outside.
type TemplateRule struct {
	ID          string   `json:"id"`
	Side        string   `json:"side"`
	Pattern     string   `json:"pattern"`
	DockNumbers []int    `json:"dockNumbers"`
	Priority    int      `json:"priority"`
	Weekdays    []string `json:"weekdays"`
	Active      bool     `json:"active"`
}

// Clone returns a deep copy of the rule.
func (t TemplateRule) Clone() TemplateRule {
	cp := t
	if t.DockNumbers != nil {
		cp.DockNumbers = append([]int(nil), t.DockNumbers...)
	}
	if t.Weekdays != nil {
		cp.Weekdays = append([]string(nil), t.Weekdays...)
	}
	return cp
}

// AppliesTo reports whether the rule targets the given side.
func (t TemplateRule) AppliesTo(side string) bool {
	return t.Side == side || t.Side == SideAll
}

// WeekdayLetters are the recognised weekday markers, Monday first.
var WeekdayLetters = []string{"L", "M", "X", "J", "V", "S", "D"}

// TodayLetter maps a time to its weekday letter (Sunday = "D").
func TodayLetter(t time.Time) string {
	return [...]string{"D", "L", "M", "X", "J", "V", "S"}[int(t.Weekday())]
}

// AllowedToday reports whether the rule is in effect on the given weekday
// letter. An empty weekday set means "every day".
func (t TemplateRule) AllowedToday(letter string) bool {
	if len(t.Weekdays) == 0 {
		return true
	}
	for _, d := range t.Weekdays {
		if d == letter {
			return true
		}
	}
	return false
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Side   string
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported operations captured in the audit trail.
const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionReplace Action = "replace"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
