// Package core implements the dock allocation and SLA engine: occupancy
// derivation, conflict checking, SLA timers, template auto-assignment, and
// the transactional service tying them to persistence.
package core

import "dockcore/pkg/domain"

// Aliases keeping method signatures concise while exposing domain types.
type (
	// Record aliases domain.Record.
	Record = domain.Record
	// Side aliases domain.Side.
	Side = domain.Side
	// AirItem aliases domain.AirItem.
	AirItem = domain.AirItem
	// TemplateRule aliases domain.TemplateRule.
	TemplateRule = domain.TemplateRule
	// DockState aliases domain.DockState.
	DockState = domain.DockState
	// DockSet aliases domain.DockSet.
	DockSet = domain.DockSet
	// Occupancy aliases domain.Occupancy.
	Occupancy = domain.Occupancy
	// Status aliases domain.Status.
	Status = domain.Status
	// Change aliases domain.Change.
	Change = domain.Change
	// Result aliases domain.Result.
	Result = domain.Result
	// Rule aliases domain.Rule.
	Rule = domain.Rule
	// RulesEngine aliases domain.RulesEngine.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore.
	PersistentStore = domain.PersistentStore
)
