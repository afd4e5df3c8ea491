package core

import (
	"context"
	"testing"

	"dockcore/pkg/domain"
)

type fakeRuleView struct {
	sides     []domain.Side
	templates []domain.TemplateRule
}

func (v fakeRuleView) ListSides(context.Context) ([]domain.Side, error) { return v.sides, nil }

func (v fakeRuleView) Side(_ context.Context, name string) (domain.Side, bool, error) {
	for _, s := range v.sides {
		if s.Name == name {
			return s, true, nil
		}
	}
	return domain.Side{}, false, nil
}

func (v fakeRuleView) ListTemplates(context.Context) ([]domain.TemplateRule, error) {
	return v.templates, nil
}

func (fakeRuleView) Docks() domain.DockSet { return domain.DefaultDocks() }

func TestDockMembershipRuleBlocksUnknownDocks(t *testing.T) {
	good, bad := 320, 999
	view := fakeRuleView{sides: []domain.Side{
		{Name: "Lado 0", Records: []domain.Record{
			{ID: "a", Dock: &good},
			{ID: "b", Dock: &bad},
			{ID: "c"},
		}},
	}}

	res, err := NewDockMembershipRule().Evaluate(context.Background(), view, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(res.Violations))
	}
	v := res.Violations[0]
	if v.Severity != domain.SeverityBlock || v.EntityID != "b" || v.Rule != "dock_membership" {
		t.Fatalf("unexpected violation %+v", v)
	}
	if !res.HasBlocking() {
		t.Fatalf("membership violations must block")
	}
}

func TestDockConflictRuleWarnsOnDoubleClaims(t *testing.T) {
	dock := 330
	view := fakeRuleView{sides: []domain.Side{
		{Name: "Lado 0", Records: []domain.Record{
			{ID: "a", Dock: &dock, ActualArrival: "09:00"},
		}},
		{Name: "Lado 3", Records: []domain.Record{
			{ID: "b", Dock: &dock},
		}},
	}}

	res, err := NewDockConflictRule().Evaluate(context.Background(), view, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(res.Violations))
	}
	v := res.Violations[0]
	if v.Severity != domain.SeverityWarn || v.EntityID != "b" {
		t.Fatalf("unexpected violation %+v", v)
	}
	if res.HasBlocking() {
		t.Fatalf("conflicts warn, never block")
	}
}

func TestDockConflictRuleIgnoresFreeClaims(t *testing.T) {
	dock := 330
	view := fakeRuleView{sides: []domain.Side{
		{Name: "Lado 0", Records: []domain.Record{
			{ID: "a", Dock: &dock, ActualArrival: "08:00", ActualDeparture: "09:00"},
			{ID: "b", Dock: &dock},
		}},
	}}

	res, err := NewDockConflictRule().Evaluate(context.Background(), view, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("departed claim must not conflict: %+v", res.Violations)
	}
}
