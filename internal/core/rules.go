package core

import "dockcore/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *RulesEngine {
	return domain.NewRulesEngine(
		NewDockMembershipRule(),
		NewDockConflictRule(),
	)
}
