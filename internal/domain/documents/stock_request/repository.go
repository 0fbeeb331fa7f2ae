package stock_request

import (
	"context"

	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/core/types"
	"stockflow/internal/domain"
	"stockflow/internal/domain/fulfillment"
)

// Repository defines storage operations for stock requests. Every read and
// write is confined to the scope's company and business unit; rows of other
// tenants are reported as not found.
type Repository interface {
	Create(ctx context.Context, sr *StockRequest) error
	SaveItems(ctx context.Context, srID id.ID, items []StockRequestItem) error

	Get(ctx context.Context, scope tenant.Scope, srID id.ID) (*StockRequest, error)
	// GetForUpdate locks the header row until the transaction ends.
	GetForUpdate(ctx context.Context, scope tenant.Scope, srID id.ID) (*StockRequest, error)
	GetItems(ctx context.Context, srID id.ID) ([]StockRequestItem, error)

	// UpdateStatus persists Status, Notes and the audit fields only if the
	// stored row still has status from and the loaded version. It returns
	// domain.ErrStale when the condition does not hold.
	UpdateStatus(ctx context.Context, sr *StockRequest, from fulfillment.RequestStatus) error

	List(ctx context.Context, scope tenant.Scope, filter domain.ListFilter) (domain.ListResult[*StockRequest], error)

	// FulfilledQuantities sums received quantity of non-voided delivery
	// note lines per stock request item.
	FulfilledQuantities(ctx context.Context, scope tenant.Scope, srID id.ID) (map[id.ID]types.Quantity, error)
}
