// Package stock_request provides the stock request document: an internal
// request for one warehouse to receive stock from another.
package stock_request

import (
	"time"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/audit"
	"stockflow/internal/domain/fulfillment"
)

// EntityName is used in errors and the audit journal.
const EntityName = "stock request"

// Priority of a stock request.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// StockRequest is the originating document of the pipeline.
type StockRequest struct {
	entity.BaseDocument

	RequestingWarehouseID id.ID `db:"requesting_warehouse_id" json:"requestingWarehouseId"`
	FulfillingWarehouseID id.ID `db:"fulfilling_warehouse_id" json:"fulfillingWarehouseId"`

	Priority   Priority   `db:"priority" json:"priority"`
	RequiredBy *time.Time `db:"required_by" json:"requiredBy,omitempty"`

	Status fulfillment.RequestStatus `db:"status" json:"status"`

	// Notes is append-only; see fulfillment.AppendNote.
	Notes string `db:"notes" json:"notes"`

	Items []StockRequestItem `db:"-" json:"items"`
}

// StockRequestItem is one requested line.
type StockRequestItem struct {
	ID             id.ID          `db:"id" json:"id"`
	StockRequestID id.ID          `db:"stock_request_id" json:"stockRequestId"`
	LineNo         int            `db:"line_no" json:"lineNo"`
	ItemID         id.ID          `db:"item_id" json:"itemId"`
	UomID          id.ID          `db:"uom_id" json:"uomId"`
	RequestedQty   types.Quantity `db:"requested_qty" json:"requestedQty"`
	UnitPrice      types.Money    `db:"unit_price" json:"unitPrice"`

	// FulfilledQty is rolled up on read from received delivery note lines.
	FulfilledQty types.Quantity `db:"-" json:"fulfilledQty"`
}

// Outstanding is the requested quantity not yet received.
func (i StockRequestItem) Outstanding() types.Quantity {
	return (i.RequestedQty - i.FulfilledQty).MaxZero()
}

// NewItem is the caller's input for one line.
type NewItem struct {
	ItemID       id.ID
	UomID        id.ID
	RequestedQty types.Quantity
	UnitPrice    types.Money
}

// NewStockRequest builds a draft request owned by scope.
func NewStockRequest(scope tenant.Scope, requestingWh, fulfillingWh id.ID, items []NewItem) *StockRequest {
	sr := &StockRequest{
		BaseDocument:          entity.NewBaseDocument(scope),
		RequestingWarehouseID: requestingWh,
		FulfillingWarehouseID: fulfillingWh,
		Priority:              PriorityNormal,
		Status:                fulfillment.RequestDraft,
		Items:                 make([]StockRequestItem, 0, len(items)),
	}
	for i, it := range items {
		sr.Items = append(sr.Items, StockRequestItem{
			ID:             id.New(),
			StockRequestID: sr.ID,
			LineNo:         i + 1,
			ItemID:         it.ItemID,
			UomID:          it.UomID,
			RequestedQty:   it.RequestedQty,
			UnitPrice:      it.UnitPrice,
		})
	}
	return sr
}

// Validate checks warehouses and lines before the request is stored.
func (sr *StockRequest) Validate() error {
	if id.IsNil(sr.RequestingWarehouseID) {
		return apperror.NewValidation("requesting warehouse is required").
			WithDetail("field", "requestingWarehouseId")
	}
	if id.IsNil(sr.FulfillingWarehouseID) {
		return apperror.NewValidation("fulfilling warehouse is required").
			WithDetail("field", "fulfillingWarehouseId")
	}
	if sr.RequestingWarehouseID == sr.FulfillingWarehouseID {
		return apperror.NewValidation("requesting and fulfilling warehouse must differ").
			WithDetail("field", "fulfillingWarehouseId")
	}
	if !sr.Priority.Valid() {
		return apperror.NewValidation("unknown priority").
			WithDetail("field", "priority").
			WithDetail("value", sr.Priority)
	}
	if len(sr.Items) == 0 {
		return apperror.NewValidation("at least one item is required").
			WithDetail("field", "items")
	}

	for _, it := range sr.Items {
		if id.IsNil(it.ItemID) {
			return apperror.NewValidation("item is required").
				WithDetail("field", "items").
				WithDetail("lineNo", it.LineNo)
		}
		if id.IsNil(it.UomID) {
			return apperror.NewValidation("unit of measure is required").
				WithDetail("field", "items").
				WithDetail("lineNo", it.LineNo)
		}
		if !it.RequestedQty.IsPositive() {
			return apperror.NewValidation("requested quantity must be positive").
				WithDetail("field", "items").
				WithDetail("lineNo", it.LineNo)
		}
		if it.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price must not be negative").
				WithDetail("field", "items").
				WithDetail("lineNo", it.LineNo)
		}
	}
	return nil
}

// ApplyFulfilled sets FulfilledQty per item from a rollup keyed by item id.
func (sr *StockRequest) ApplyFulfilled(rollup map[id.ID]types.Quantity) {
	for i := range sr.Items {
		sr.Items[i].FulfilledQty = rollup[sr.Items[i].ID]
	}
}

// Unfulfilled returns the items with an outstanding quantity.
func (sr *StockRequest) Unfulfilled() []StockRequestItem {
	var out []StockRequestItem
	for _, it := range sr.Items {
		if it.Outstanding().IsPositive() {
			out = append(out, it)
		}
	}
	return out
}

// Item finds a line by id.
func (sr *StockRequest) Item(itemID id.ID) (StockRequestItem, bool) {
	for _, it := range sr.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return StockRequestItem{}, false
}

// JournalEntry implements audit.Subject.
func (sr *StockRequest) JournalEntry() audit.Entry {
	return audit.Entry{
		EntityType: "stock_request",
		EntityID:   sr.ID,
		CompanyID:  sr.CompanyID,
		Number:     sr.Number,
		Action:     string(sr.Status),
		UserID:     sr.UpdatedBy,
		Snapshot:   sr,
	}
}

var _ audit.Subject = (*StockRequest)(nil)
