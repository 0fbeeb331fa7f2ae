// Package delivery_note provides the delivery note: the shipment document
// consolidating one or more approved stock requests, and the dispatch and
// receipt operations that move stock.
package delivery_note

import (
	"time"

	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/domain/audit"
	"stockflow/internal/domain/fulfillment"
)

// EntityName is used in errors and the audit journal.
const EntityName = "delivery note"

// DeliveryNote is the consolidated shipment document.
type DeliveryNote struct {
	entity.BaseDocument

	Status fulfillment.NoteStatus `db:"status" json:"status"`

	RequestingWarehouseID id.ID `db:"requesting_warehouse_id" json:"requestingWarehouseId"`
	FulfillingWarehouseID id.ID `db:"fulfilling_warehouse_id" json:"fulfillingWarehouseId"`

	ConfirmedAt        *time.Time `db:"confirmed_at" json:"confirmedAt,omitempty"`
	ConfirmedBy        string     `db:"confirmed_by" json:"confirmedBy,omitempty"`
	PickingStartedAt   *time.Time `db:"picking_started_at" json:"pickingStartedAt,omitempty"`
	PickingStartedBy   string     `db:"picking_started_by" json:"pickingStartedBy,omitempty"`
	PickingCompletedAt *time.Time `db:"picking_completed_at" json:"pickingCompletedAt,omitempty"`
	PickingCompletedBy string     `db:"picking_completed_by" json:"pickingCompletedBy,omitempty"`
	DispatchedAt       *time.Time `db:"dispatched_at" json:"dispatchedAt,omitempty"`
	DispatchedBy       string     `db:"dispatched_by" json:"dispatchedBy,omitempty"`
	ReceivedAt         *time.Time `db:"received_at" json:"receivedAt,omitempty"`
	ReceivedBy         string     `db:"received_by" json:"receivedBy,omitempty"`
	VoidedAt           *time.Time `db:"voided_at" json:"voidedAt,omitempty"`
	VoidedBy           string     `db:"voided_by" json:"voidedBy,omitempty"`
	VoidReason         string     `db:"void_reason" json:"voidReason,omitempty"`

	DriverName      string `db:"driver_name" json:"driverName,omitempty"`
	DriverSignature string `db:"driver_signature" json:"driverSignature,omitempty"`

	// Notes is append-only; see fulfillment.AppendNote.
	Notes string `db:"notes" json:"notes"`

	Sources []Source `db:"-" json:"sources"`
	Items   []Item   `db:"-" json:"items"`
}

// Source records one stock request that contributed to the note.
type Source struct {
	DeliveryNoteID id.ID     `db:"delivery_note_id" json:"deliveryNoteId"`
	StockRequestID id.ID     `db:"stock_request_id" json:"stockRequestId"`
	CompanyID      id.ID     `db:"company_id" json:"companyId"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// Item is one delivery note line, traced to the stock request line it
// fulfils. Only the quantity fields change after creation.
type Item struct {
	ID                 id.ID `db:"id" json:"id"`
	DeliveryNoteID     id.ID `db:"delivery_note_id" json:"deliveryNoteId"`
	LineNo             int   `db:"line_no" json:"lineNo"`
	StockRequestID     id.ID `db:"stock_request_id" json:"stockRequestId"`
	StockRequestItemID id.ID `db:"stock_request_item_id" json:"stockRequestItemId"`
	ItemID             id.ID `db:"item_id" json:"itemId"`
	UomID              id.ID `db:"uom_id" json:"uomId"`

	fulfillment.LineQty
}

// newDeliveryNote builds a draft note owned by scope.
func newDeliveryNote(scope tenant.Scope, requestingWh, fulfillingWh id.ID) *DeliveryNote {
	return &DeliveryNote{
		BaseDocument:          entity.NewBaseDocument(scope),
		Status:                fulfillment.NoteDraft,
		RequestingWarehouseID: requestingWh,
		FulfillingWarehouseID: fulfillingWh,
	}
}

// ItemIndex maps line ids to their position in Items.
func (dn *DeliveryNote) ItemIndex() map[id.ID]int {
	idx := make(map[id.ID]int, len(dn.Items))
	for i, it := range dn.Items {
		idx[it.ID] = i
	}
	return idx
}

// SourceIDs lists the contributing stock requests.
func (dn *DeliveryNote) SourceIDs() []id.ID {
	out := make([]id.ID, 0, len(dn.Sources))
	for _, s := range dn.Sources {
		out = append(out, s.StockRequestID)
	}
	return out
}

// JournalEntry implements audit.Subject.
func (dn *DeliveryNote) JournalEntry() audit.Entry {
	return audit.Entry{
		EntityType: "delivery_note",
		EntityID:   dn.ID,
		CompanyID:  dn.CompanyID,
		Number:     dn.Number,
		Action:     string(dn.Status),
		UserID:     dn.UpdatedBy,
		Snapshot:   dn,
	}
}

var _ audit.Subject = (*DeliveryNote)(nil)
