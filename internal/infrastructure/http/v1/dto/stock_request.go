package dto

import (
	"fmt"
	"time"

	"stockflow/internal/core/types"
	"stockflow/internal/domain/documents/stock_request"
)

// --- Request DTOs ---

// CreateStockRequestRequest represents a request to create a stock request.
type CreateStockRequestRequest struct {
	RequestingWarehouseID string                    `json:"requestingWarehouseId" binding:"required"`
	FulfillingWarehouseID string                    `json:"fulfillingWarehouseId" binding:"required"`
	Priority              string                    `json:"priority,omitempty"`
	RequiredBy            *time.Time                `json:"requiredBy,omitempty"`
	Notes                 string                    `json:"notes,omitempty"`
	Items                 []StockRequestItemRequest `json:"items" binding:"required,min=1,dive"`
}

// StockRequestItemRequest represents a line in the create request.
type StockRequestItemRequest struct {
	ItemID       string         `json:"itemId" binding:"required"`
	UomID        string         `json:"uomId" binding:"required"`
	RequestedQty types.Quantity `json:"requestedQty"`
	UnitPrice    *types.Money   `json:"unitPrice,omitempty"`
}

// ToInput converts the request into the service payload.
func (r *CreateStockRequestRequest) ToInput() (stock_request.CreateInput, error) {
	in := stock_request.CreateInput{
		Priority:   stock_request.Priority(r.Priority),
		RequiredBy: r.RequiredBy,
		Notes:      r.Notes,
		Items:      make([]stock_request.NewItem, 0, len(r.Items)),
	}

	var err error
	if in.RequestingWarehouseID, err = ParseID("requestingWarehouseId", r.RequestingWarehouseID); err != nil {
		return in, err
	}
	if in.FulfillingWarehouseID, err = ParseID("fulfillingWarehouseId", r.FulfillingWarehouseID); err != nil {
		return in, err
	}

	for i, line := range r.Items {
		item := stock_request.NewItem{RequestedQty: line.RequestedQty}
		if item.ItemID, err = ParseID(fmt.Sprintf("items[%d].itemId", i), line.ItemID); err != nil {
			return in, err
		}
		if item.UomID, err = ParseID(fmt.Sprintf("items[%d].uomId", i), line.UomID); err != nil {
			return in, err
		}
		if line.UnitPrice != nil {
			item.UnitPrice = *line.UnitPrice
		}
		in.Items = append(in.Items, item)
	}
	return in, nil
}

// --- Response DTOs ---

// StockRequestResponse represents a stock request in API responses.
type StockRequestResponse struct {
	DocumentResponse
	RequestingWarehouseID string                     `json:"requestingWarehouseId"`
	FulfillingWarehouseID string                     `json:"fulfillingWarehouseId"`
	Priority              string                     `json:"priority"`
	RequiredBy            *time.Time                 `json:"requiredBy,omitempty"`
	Status                string                     `json:"status"`
	Notes                 string                     `json:"notes"`
	TotalAmount           types.Money                `json:"totalAmount"`
	Items                 []StockRequestItemResponse `json:"items,omitempty"`
	Warnings              []string                   `json:"warnings,omitempty"`
}

// StockRequestItemResponse represents one requested line.
type StockRequestItemResponse struct {
	ID             string         `json:"id"`
	LineNo         int            `json:"lineNo"`
	ItemID         string         `json:"itemId"`
	UomID          string         `json:"uomId"`
	RequestedQty   types.Quantity `json:"requestedQty"`
	FulfilledQty   types.Quantity `json:"fulfilledQty"`
	OutstandingQty types.Quantity `json:"outstandingQty"`
	UnitPrice      types.Money    `json:"unitPrice"`
	Amount         types.Money    `json:"amount"`
}

// FromStockRequest converts the document to its response.
func FromStockRequest(sr *stock_request.StockRequest) StockRequestResponse {
	resp := StockRequestResponse{
		DocumentResponse:      FromBaseDocument(sr.BaseDocument),
		RequestingWarehouseID: sr.RequestingWarehouseID.String(),
		FulfillingWarehouseID: sr.FulfillingWarehouseID.String(),
		Priority:              string(sr.Priority),
		RequiredBy:            sr.RequiredBy,
		Status:                string(sr.Status),
		Notes:                 sr.Notes,
	}

	for _, it := range sr.Items {
		amount := types.LineAmount(it.UnitPrice, it.RequestedQty)
		resp.TotalAmount = resp.TotalAmount.Add(amount)
		resp.Items = append(resp.Items, StockRequestItemResponse{
			ID:             it.ID.String(),
			LineNo:         it.LineNo,
			ItemID:         it.ItemID.String(),
			UomID:          it.UomID.String(),
			RequestedQty:   it.RequestedQty,
			FulfilledQty:   it.FulfilledQty,
			OutstandingQty: it.Outstanding(),
			UnitPrice:      it.UnitPrice,
			Amount:         amount,
		})
	}
	return resp
}

// FromCancelResult renders a cancellation with its cleanup warnings.
func FromCancelResult(res *stock_request.CancelResult) StockRequestResponse {
	resp := FromStockRequest(res.Request)
	resp.Warnings = res.Warnings
	return resp
}
