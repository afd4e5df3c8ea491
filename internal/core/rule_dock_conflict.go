package core

import (
	"context"
	"fmt"

	"dockcore/pkg/domain"
)

// NewDockConflictRule returns the rule warning when two non-free records
// claim the same dock. The severity is warn, not block: operators may
// knowingly override a conflict, and the occupancy deriver already keeps
// the board honest about double claims.
func NewDockConflictRule() domain.Rule {
	return dockConflictRule{}
}

type dockConflictRule struct{}

func (dockConflictRule) Name() string { return "dock_conflict" }

func (dockConflictRule) Evaluate(ctx context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	sides, err := view.ListSides(ctx)
	if err != nil {
		return domain.Result{}, err
	}
	type claim struct {
		side string
		id   string
	}
	first := make(map[int]claim)
	res := domain.Result{}
	for _, side := range sides {
		for _, rec := range side.Records {
			if rec.Dock == nil || rec.Occupancy() == domain.DockFree {
				continue
			}
			dock := *rec.Dock
			if prev, ok := first[dock]; ok {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "dock_conflict",
					Severity: domain.SeverityWarn,
					Message:  fmt.Sprintf("dock %d claimed by record %s on %s and record %s on %s", dock, prev.id, prev.side, rec.ID, side.Name),
					Entity:   domain.EntityRecord,
					EntityID: rec.ID,
				})
				continue
			}
			first[dock] = claim{side: side.Name, id: rec.ID}
		}
	}
	return res, nil
}
