// Package stock provides the stock register: immutable movements and the
// on-hand balances they maintain.
package stock

import (
	"context"

	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
)

// Repository defines the storage operations of the stock register.
type Repository interface {
	// LockBalances returns every balance row of the items in the warehouse,
	// locked until the transaction ends. Rows are locked in a stable order.
	LockBalances(ctx context.Context, companyID, warehouseID id.ID, itemIDs []id.ID) ([]entity.StockBalance, error)

	// ApplyMovements inserts movements and folds them into the balances.
	ApplyMovements(ctx context.Context, movements []entity.StockMovement) error

	// Balances returns current balances matching the filter.
	Balances(ctx context.Context, companyID id.ID, filter BalanceFilter) ([]entity.StockBalance, error)

	// Movements returns the movements posted by one document.
	Movements(ctx context.Context, companyID, recorderID id.ID) ([]entity.StockMovement, error)
}

// BalanceFilter narrows a balance query.
type BalanceFilter struct {
	WarehouseID id.ID
	ItemID      *id.ID
	// IncludeZero also returns rows whose quantity dropped to zero.
	IncludeZero bool
}
