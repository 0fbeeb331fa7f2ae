package dto

import (
	"time"

	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/registers/stock"
)

// BalanceQuery is the query string of GET /stock/balances.
type BalanceQuery struct {
	WarehouseID string `form:"warehouseId" binding:"required"`
	ItemID      string `form:"itemId"`
	IncludeZero bool   `form:"includeZero"`
}

// ToFilter converts the query into a register filter.
func (q BalanceQuery) ToFilter() (stock.BalanceFilter, error) {
	wh, err := ParseID("warehouseId", q.WarehouseID)
	if err != nil {
		return stock.BalanceFilter{}, err
	}
	f := stock.BalanceFilter{WarehouseID: wh, IncludeZero: q.IncludeZero}
	if q.ItemID != "" {
		item, err := ParseID("itemId", q.ItemID)
		if err != nil {
			return f, err
		}
		f.ItemID = &item
	}
	return f, nil
}

// StockBalanceResponse represents stock balance in API responses.
type StockBalanceResponse struct {
	WarehouseID    string         `json:"warehouseId"`
	LocationID     *string        `json:"locationId"`
	ItemID         string         `json:"itemId"`
	Quantity       types.Quantity `json:"quantity"`
	LastMovementAt *time.Time     `json:"lastMovementAt,omitempty"`
}

// FromStockBalance converts entity to response DTO. Stock not put away to a
// bin has a null location.
func FromStockBalance(b entity.StockBalance) StockBalanceResponse {
	resp := StockBalanceResponse{
		WarehouseID: b.WarehouseID.String(),
		ItemID:      b.ItemID.String(),
		Quantity:    b.Quantity,
	}
	if !id.IsNil(b.LocationID) {
		loc := b.LocationID.String()
		resp.LocationID = &loc
	}
	if !b.LastMovementAt.IsZero() {
		val := b.LastMovementAt
		resp.LastMovementAt = &val
	}
	return resp
}
