package delivery_note

import (
	"context"
	"time"

	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
)

// Poster is the inventory posting boundary. Both calls run inside the
// caller's transaction and either apply every line or none: a balance that
// would go negative rejects the whole posting with a PostingFailure.
type Poster interface {
	PostDispatch(ctx context.Context, p DispatchPosting) error
	PostReceipt(ctx context.Context, p ReceiptPosting) error
}

// DriverInfo identifies who carried the shipment.
type DriverInfo struct {
	Name      string
	Signature string
}

// PostingLine is one resolved line quantity.
type PostingLine struct {
	DeliveryNoteItemID id.ID
	ItemID             id.ID
	Qty                types.Quantity
	// LocationID is the bin on the receiving side; nil id means unassigned.
	LocationID id.ID
}

// DispatchPosting decrements the fulfilling warehouse.
type DispatchPosting struct {
	CompanyID      id.ID
	BusinessUnitID id.ID
	UserID         string
	DeliveryNoteID id.ID
	WarehouseID    id.ID
	DispatchDate   time.Time
	Notes          string
	Driver         DriverInfo
	Lines          []PostingLine
}

// ReceiptPosting increments the requesting warehouse.
type ReceiptPosting struct {
	CompanyID      id.ID
	BusinessUnitID id.ID
	UserID         string
	DeliveryNoteID id.ID
	WarehouseID    id.ID
	ReceivedDate   time.Time
	Notes          string
	Lines          []PostingLine
}
