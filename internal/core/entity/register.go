package entity

import (
	"time"

	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
)

// RecordType defines movement direction in the stock register.
type RecordType string

const (
	// RecordTypeReceipt increases balance
	RecordTypeReceipt RecordType = "receipt"
	// RecordTypeExpense decreases balance
	RecordTypeExpense RecordType = "expense"
)

// UnassignedLocation is the location of stock not put away to a bin.
var UnassignedLocation = id.ID{}

// StockMovement is one immutable line of the stock register. Movements are
// written only by dispatch (expense) and receipt (receipt) postings.
type StockMovement struct {
	LineID id.ID `db:"line_id" json:"lineId"`

	// RecorderID is the delivery note whose posting produced the movement
	RecorderID   id.ID  `db:"recorder_id" json:"recorderId"`
	RecorderType string `db:"recorder_type" json:"recorderType"`

	// Period is the business date (dispatch or receipt date)
	Period     time.Time  `db:"period" json:"period"`
	RecordType RecordType `db:"record_type" json:"recordType"`

	// Dimensions
	CompanyID   id.ID `db:"company_id" json:"companyId"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`
	LocationID  id.ID `db:"location_id" json:"locationId"`
	ItemID      id.ID `db:"item_id" json:"itemId"`

	// Resources
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	CreatedBy string    `db:"created_by" json:"createdBy"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// SignedQuantity returns quantity with sign based on record type.
// Receipt = positive, Expense = negative.
func (m *StockMovement) SignedQuantity() types.Quantity {
	if m.RecordType == RecordTypeExpense {
		return -m.Quantity
	}
	return m.Quantity
}

// BalanceKey identifies one balance row.
type BalanceKey struct {
	WarehouseID id.ID
	LocationID  id.ID
	ItemID      id.ID
}

// Key returns the balance row the movement applies to.
func (m *StockMovement) Key() BalanceKey {
	return BalanceKey{WarehouseID: m.WarehouseID, LocationID: m.LocationID, ItemID: m.ItemID}
}

// StockBalance is the on-hand quantity per company, warehouse, location and item.
type StockBalance struct {
	CompanyID   id.ID          `db:"company_id" json:"companyId"`
	WarehouseID id.ID          `db:"warehouse_id" json:"warehouseId"`
	LocationID  id.ID          `db:"location_id" json:"locationId"`
	ItemID      id.ID          `db:"item_id" json:"itemId"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`

	LastMovementAt time.Time `db:"last_movement_at" json:"lastMovementAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// Key returns the balance row identity.
func (b *StockBalance) Key() BalanceKey {
	return BalanceKey{WarehouseID: b.WarehouseID, LocationID: b.LocationID, ItemID: b.ItemID}
}
