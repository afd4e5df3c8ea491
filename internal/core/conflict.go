package core

import "dockcore/pkg/domain"

// ConflictInfo identifies the record currently holding a contested dock.
type ConflictInfo struct {
	Side   string    `json:"side"`
	Record Record    `json:"record"`
	State  Occupancy `json:"state"`
}

// CheckConflict scans every record outside the one being edited for a
// non-free claim on the given dock. The edited record is matched by id and
// side so it is never compared against itself. The first conflicting record
// found is reported; nil means the dock is takeable. The checker only
// informs: overriding a conflict is the caller's decision.
func CheckConflict(sides []Side, dock int, editingSide, editingRecordID string) *ConflictInfo {
	for _, side := range sides {
		for _, rec := range side.Records {
			if rec.ID == editingRecordID && side.Name == editingSide {
				continue
			}
			if rec.Dock == nil || *rec.Dock != dock {
				continue
			}
			if state := rec.Occupancy(); state != domain.DockFree {
				return &ConflictInfo{Side: side.Name, Record: rec.Clone(), State: state}
			}
		}
	}
	return nil
}
