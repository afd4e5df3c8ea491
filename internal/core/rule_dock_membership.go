package core

import (
	"context"
	"fmt"

	"dockcore/pkg/domain"
)

// NewDockMembershipRule returns the rule blocking commits that would leave
// any record pointing at a dock outside the yard universe. Transaction
// helpers validate on write; the rule keeps the invariant under snapshot
// imports and bulk replacements too.
func NewDockMembershipRule() domain.Rule {
	return dockMembershipRule{}
}

type dockMembershipRule struct{}

func (dockMembershipRule) Name() string { return "dock_membership" }

func (dockMembershipRule) Evaluate(ctx context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	sides, err := view.ListSides(ctx)
	if err != nil {
		return domain.Result{}, err
	}
	docks := view.Docks()
	res := domain.Result{}
	for _, side := range sides {
		for _, rec := range side.Records {
			if rec.Dock == nil || docks.Contains(*rec.Dock) {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "dock_membership",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("record %s on %s references unknown dock %d", rec.ID, side.Name, *rec.Dock),
				Entity:   domain.EntityRecord,
				EntityID: rec.ID,
			})
		}
	}
	return res, nil
}
