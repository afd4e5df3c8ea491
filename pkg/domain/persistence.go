package domain

import "context"

// TransactionView provides read access to the in-flight state of a
// transaction, including uncommitted changes.
type TransactionView interface {
	RuleView
}

// Transaction captures mutations applied within a transactional scope.
type Transaction interface {
	TransactionView

	CreateRecord(ctx context.Context, side string, record Record) (Record, error)
	UpdateRecord(ctx context.Context, side, id string, mutate func(*Record) error) (Record, error)
	DeleteRecord(ctx context.Context, side, id string) error
	ReplaceSide(ctx context.Context, side string, records []Record) error

	PutTemplate(ctx context.Context, rule TemplateRule) (TemplateRule, error)
	DeleteTemplate(ctx context.Context, id string) error
}

// PersistentStore is the storage contract for the dock engine.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	Close(ctx context.Context) error
}
