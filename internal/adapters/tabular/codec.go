// Package tabular converts between flat row maps, as exchanged with
// spreadsheet-style import/export collaborators, and typed records.
// Header detection and cell coercion happen upstream; this codec only
// sees already-parsed string rows keyed by the field catalog.
package tabular

import (
	"fmt"
	"strconv"
	"strings"

	"dockcore/pkg/domain"
)

// Field catalog keys. Case-sensitive; the column order of FieldKeys is the
// canonical export order.
const (
	FieldCarrier          = "carrier"
	FieldPlate            = "plate"
	FieldDestination      = "destination"
	FieldPlannedArrival   = "planned-arrival"
	FieldPlannedDeparture = "planned-departure"
	FieldDepartureCutoff  = "planned-departure-cutoff"
	FieldNotes            = "notes"
	FieldDock             = "dock"
	FieldSeal             = "seal"
	FieldActualArrival    = "actual-arrival"
	FieldActualDeparture  = "actual-departure"
	FieldIncident         = "incident"
	FieldStatus           = "status"
)

// FieldKeys lists every catalog key in canonical column order.
func FieldKeys() []string {
	return []string{
		FieldCarrier, FieldPlate, FieldDestination,
		FieldPlannedArrival, FieldPlannedDeparture, FieldDepartureCutoff,
		FieldNotes, FieldDock, FieldSeal,
		FieldActualArrival, FieldActualDeparture, FieldIncident, FieldStatus,
	}
}

// descriptiveKeys is the minimum a row must populate to count as data.
// Rows where all of these are blank are layout artifacts and get skipped.
var descriptiveKeys = []string{
	FieldCarrier, FieldPlate, FieldDestination,
	FieldPlannedArrival, FieldPlannedDeparture, FieldNotes,
}

// collapse trims and collapses internal whitespace runs to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DecodeRow converts one row map into a record. The record id is left empty;
// storage assigns ids on insert. Returns (zero, false, nil) for rows whose
// descriptive fields are all blank.
func DecodeRow(row map[string]string, docks domain.DockSet) (domain.Record, bool, error) {
	get := func(key string) string { return collapse(row[key]) }

	empty := true
	for _, key := range descriptiveKeys {
		if get(key) != "" {
			empty = false
			break
		}
	}
	if empty {
		return domain.Record{}, false, nil
	}

	// Imported sheets use "*" and "-" as "no dock" markers; only the codec
	// tolerates them, the commit protocol does not.
	rawDock := strings.TrimSpace(row[FieldDock])
	if rawDock == "*" || rawDock == "-" {
		rawDock = ""
	}
	dock, err := docks.ParseValue(rawDock)
	if err != nil {
		return domain.Record{}, false, err
	}
	rec := domain.Record{
		Carrier:          get(FieldCarrier),
		Plate:            get(FieldPlate),
		Destination:      get(FieldDestination),
		PlannedArrival:   get(FieldPlannedArrival),
		PlannedDeparture: get(FieldPlannedDeparture),
		DepartureCutoff:  get(FieldDepartureCutoff),
		Notes:            get(FieldNotes),
		Dock:             dock,
		Seal:             get(FieldSeal),
		ActualArrival:    get(FieldActualArrival),
		ActualDeparture:  get(FieldActualDeparture),
		Incident:         get(FieldIncident),
		Status:           domain.NormalizeStatus(row[FieldStatus]),
	}
	return rec, true, nil
}

// DecodeRows converts parsed rows into records, skipping blank rows.
// The first invalid dock aborts the decode with a row-indexed error.
func DecodeRows(rows []map[string]string, docks domain.DockSet) ([]domain.Record, error) {
	var records []domain.Record
	for i, row := range rows {
		rec, ok, err := DecodeRow(row, docks)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// EncodeRecord flattens a record into a row map keyed by the field catalog.
func EncodeRecord(rec domain.Record) map[string]string {
	dock := ""
	if rec.Dock != nil {
		dock = strconv.Itoa(*rec.Dock)
	}
	return map[string]string{
		FieldCarrier:          rec.Carrier,
		FieldPlate:            rec.Plate,
		FieldDestination:      rec.Destination,
		FieldPlannedArrival:   rec.PlannedArrival,
		FieldPlannedDeparture: rec.PlannedDeparture,
		FieldDepartureCutoff:  rec.DepartureCutoff,
		FieldNotes:            rec.Notes,
		FieldDock:             dock,
		FieldSeal:             rec.Seal,
		FieldActualArrival:    rec.ActualArrival,
		FieldActualDeparture:  rec.ActualDeparture,
		FieldIncident:         rec.Incident,
		FieldStatus:           string(rec.Status),
	}
}

// EncodeRecords flattens records preserving order.
func EncodeRecords(records []domain.Record) []map[string]string {
	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, EncodeRecord(rec))
	}
	return rows
}

// Table renders records as a header row plus one row per record, columns in
// canonical catalog order.
func Table(records []domain.Record) [][]string {
	keys := FieldKeys()
	out := make([][]string, 0, len(records)+1)
	out = append(out, keys)
	for _, rec := range records {
		row := EncodeRecord(rec)
		cells := make([]string, len(keys))
		for i, key := range keys {
			cells[i] = row[key]
		}
		out = append(out, cells)
	}
	return out
}
