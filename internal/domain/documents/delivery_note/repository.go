package delivery_note

import (
	"context"

	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/core/types"
	"stockflow/internal/domain"
	"stockflow/internal/domain/documents/stock_request"
	"stockflow/internal/domain/fulfillment"
)

// Repository defines storage operations for delivery notes. Reads and
// writes are confined to the scope's company and business unit.
type Repository interface {
	Create(ctx context.Context, dn *DeliveryNote) error
	SaveSources(ctx context.Context, dnID id.ID, sources []Source) error
	SaveItems(ctx context.Context, dnID id.ID, items []Item) error

	Get(ctx context.Context, scope tenant.Scope, dnID id.ID) (*DeliveryNote, error)
	// GetForUpdate locks the header row until the transaction ends.
	GetForUpdate(ctx context.Context, scope tenant.Scope, dnID id.ID) (*DeliveryNote, error)
	GetSources(ctx context.Context, dnID id.ID) ([]Source, error)
	GetItems(ctx context.Context, dnID id.ID) ([]Item, error)

	// Update persists the mutable header fields if the stored row still has
	// status from and the loaded version; otherwise domain.ErrStale.
	Update(ctx context.Context, dn *DeliveryNote, from fulfillment.NoteStatus) error
	// UpdateItemQuantities persists the quantity fields of the given lines.
	UpdateItemQuantities(ctx context.Context, dnID id.ID, items []Item) error

	List(ctx context.Context, scope tenant.Scope, filter domain.ListFilter) (domain.ListResult[*DeliveryNote], error)
	// ListByRequest returns the notes sourced from a stock request, with
	// their sources loaded.
	ListByRequest(ctx context.Context, scope tenant.Scope, srID id.ID) ([]*DeliveryNote, error)

	// AllocatedQuantities sums allocated_qty of non-voided note lines per
	// stock request item.
	AllocatedQuantities(ctx context.Context, scope tenant.Scope, srItemIDs []id.ID) (map[id.ID]types.Quantity, error)
}

// RequestReader is the part of the stock request store the assembler reads.
type RequestReader interface {
	GetForUpdate(ctx context.Context, scope tenant.Scope, srID id.ID) (*stock_request.StockRequest, error)
	GetItems(ctx context.Context, srID id.ID) ([]stock_request.StockRequestItem, error)
}

// PickListReader reports the pick lists of a note. Soft-deleted pick lists
// are not returned.
type PickListReader interface {
	StatusesByNote(ctx context.Context, scope tenant.Scope, dnID id.ID) ([]fulfillment.PickStatus, error)
}
