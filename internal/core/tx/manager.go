// Package tx defines the unit-of-work contract used by the domain services.
// The PostgreSQL implementation lives in infrastructure/storage/postgres.
package tx

import (
	"context"
)

// Manager runs a function inside one database transaction.
//
// If fn returns an error the transaction is rolled back, otherwise committed.
// Nested calls join the transaction already carried by ctx, so a posting
// started by a service and continued by the stock ledger commits once.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager adds read-only units of work used by projections.
type ReadOnlyManager interface {
	Manager

	// ReadOnly executes fn in a read-only transaction.
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
