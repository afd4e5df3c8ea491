package domain

import "context"

// RuleView exposes read access to the candidate post-commit state during
// rule evaluation.
type RuleView interface {
	ListSides(ctx context.Context) ([]Side, error)
	Side(ctx context.Context, name string) (Side, bool, error)
	ListTemplates(ctx context.Context) ([]TemplateRule, error)
	Docks() DockSet
}

// Rule validates domain invariants before commit.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine aggregates rules.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine creates an engine with the provided rules.
func NewRulesEngine(rules ...Rule) *RulesEngine {
	return &RulesEngine{rules: rules}
}

// Register appends a rule.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate runs all rules and merges their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
