package core

import (
	"testing"
	"time"

	"dockcore/pkg/domain"
)

func TestMatchPatternGrammar(t *testing.T) {
	cases := []struct {
		pattern string
		text    string
		want    bool
	}{
		{"*", "anything", true},
		{"*", "", true},
		{"ZARA*", "ZARA LOGISTICS", true},
		{"zara*", "ZARA LOGISTICS", true},
		{"ZARA*", "AMAZON", false},
		{"*MADRID", "CENTRO MADRID", true},
		{"*MADRID", "MADRID SUR", false},
		{"*LOG*", "ZARA LOGISTICS", true},
		{"*LOG*", "AMAZON", false},
		{"SEVILLA", "sevilla", true},
		{"SEVILLA", "SEVILLA NORTE", false},
		{"CORUÑA", "coruna", true},
		{"MALAGA", "MÁLAGA", true},
		{"", "anything", false},
		{"/^ZARA/", "ZARA LOGISTICS", true},
		{"/^zara/", "ZARA LOGISTICS", false},
		{"/^zara/i", "ZARA LOGISTICS", true},
		{"/^zara/I", "ZARA LOGISTICS", true},
		{"/(unclosed/", "whatever", false},
	}
	for _, tc := range cases {
		if got := MatchPattern(tc.text, tc.pattern); got != tc.want {
			t.Fatalf("pattern %q vs %q: expected %v, got %v", tc.pattern, tc.text, tc.want, got)
		}
	}
}

func TestNormalizeText(t *testing.T) {
	cases := map[string]string{
		"  málaga  ": "MALAGA",
		"Coruña":     "CORUNA",
		"SEVILLA":    "SEVILLA",
		"":           "",
	}
	for in, want := range cases {
		if got := NormalizeText(in); got != want {
			t.Fatalf("NormalizeText(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestSuggestDockFallsBackWhenOccupied(t *testing.T) {
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	rules := []TemplateRule{{
		ID: "r1", Side: "Lado 0", Pattern: "ZARA*",
		DockNumbers: []int{320, 321}, Priority: 10, Active: true,
	}}
	sides := []Side{
		{Name: "Lado 0", Records: []Record{{ID: "new", Destination: "ZARA LOGISTICS"}}},
		{Name: "Lado 1", Records: []Record{{ID: "other", Dock: dockPtr(320), ActualArrival: "08:00"}}},
	}
	got := SuggestDock(rules, "Lado 0", sides[0].Records[0], sides, domain.DefaultDocks(), now)
	if got == nil || *got != 321 {
		t.Fatalf("expected fallback to 321, got %v", got)
	}
}

func TestSuggestDockFilters(t *testing.T) {
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC) // Wednesday, letter X
	rec := Record{ID: "new", Destination: "ZARA LOGISTICS"}
	sides := []Side{{Name: "Lado 0", Records: []Record{rec}}}
	docks := domain.DefaultDocks()

	base := TemplateRule{ID: "r", Side: "Lado 0", Pattern: "ZARA*", DockNumbers: []int{320}, Priority: 1, Active: true}

	inactive := base
	inactive.Active = false
	if SuggestDock([]TemplateRule{inactive}, "Lado 0", rec, sides, docks, now) != nil {
		t.Fatalf("inactive rule must not fire")
	}

	otherSide := base
	otherSide.Side = "Lado 5"
	if SuggestDock([]TemplateRule{otherSide}, "Lado 0", rec, sides, docks, now) != nil {
		t.Fatalf("rule scoped to another side must not fire")
	}

	allSides := base
	allSides.Side = domain.SideAll
	if SuggestDock([]TemplateRule{allSides}, "Lado 0", rec, sides, docks, now) == nil {
		t.Fatalf("rule scoped to every side must fire")
	}

	wrongDay := base
	wrongDay.Weekdays = []string{"L", "V"}
	if SuggestDock([]TemplateRule{wrongDay}, "Lado 0", rec, sides, docks, now) != nil {
		t.Fatalf("rule limited to other weekdays must not fire")
	}

	rightDay := base
	rightDay.Weekdays = []string{"X"}
	if SuggestDock([]TemplateRule{rightDay}, "Lado 0", rec, sides, docks, now) == nil {
		t.Fatalf("rule allowing today must fire")
	}

	badDock := base
	badDock.DockNumbers = []int{999}
	if SuggestDock([]TemplateRule{badDock}, "Lado 0", rec, sides, docks, now) != nil {
		t.Fatalf("out-of-universe dock must be skipped")
	}
}

func TestSuggestDockPriorityOrder(t *testing.T) {
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	rec := Record{ID: "new", Destination: "ZARA LOGISTICS"}
	sides := []Side{{Name: "Lado 0", Records: []Record{rec}}}
	rules := []TemplateRule{
		{ID: "low", Side: "Lado 0", Pattern: "*", DockNumbers: []int{330}, Priority: 1, Active: true},
		{ID: "high", Side: "Lado 0", Pattern: "ZARA*", DockNumbers: []int{340}, Priority: 9, Active: true},
	}
	got := SuggestDock(rules, "Lado 0", rec, sides, domain.DefaultDocks(), now)
	if got == nil || *got != 340 {
		t.Fatalf("expected the higher priority rule's dock, got %v", got)
	}
}

func TestApplyTemplatesBatch(t *testing.T) {
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	rules := []TemplateRule{{
		ID: "r1", Side: "Lado 0", Pattern: "ZARA*",
		DockNumbers: []int{320, 321}, Priority: 10, Active: true,
	}}
	sides := []Side{{Name: "Lado 0", Records: []Record{
		{ID: "a", Destination: "ZARA NORTE"},
		{ID: "b", Destination: "ZARA SUR"},
		{ID: "c", Destination: "ZARA ESTE", Dock: dockPtr(350)},
	}}}

	updated, assigned := ApplyTemplates(sides, "Lado 0", rules, domain.DefaultDocks(), now)

	// first record takes 320, the second must respect that in-batch claim
	if assigned["a"] != 320 || assigned["b"] != 321 {
		t.Fatalf("unexpected assignments %v", assigned)
	}
	if _, ok := assigned["c"]; ok {
		t.Fatalf("already docked record must not be reassigned")
	}
	if *updated[0].Records[2].Dock != 350 {
		t.Fatalf("existing dock must survive")
	}
	// input snapshot untouched
	if sides[0].Records[0].Dock != nil {
		t.Fatalf("apply must not mutate its input")
	}
}
