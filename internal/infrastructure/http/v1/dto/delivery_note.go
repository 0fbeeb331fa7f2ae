package dto

import (
	"fmt"
	"time"

	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/documents/delivery_note"
	"stockflow/internal/domain/fulfillment"
)

// --- Request DTOs ---

// CreateDeliveryNoteRequest consolidates approved stock requests into a note.
type CreateDeliveryNoteRequest struct {
	StockRequestIDs []string            `json:"stockRequestIds" binding:"required,min=1"`
	Items           []AllocationRequest `json:"items" binding:"required,min=1,dive"`
	Notes           string              `json:"notes,omitempty"`
}

// AllocationRequest allocates part of one stock request line.
type AllocationRequest struct {
	StockRequestItemID string         `json:"srItemId" binding:"required"`
	AllocatedQty       types.Quantity `json:"allocatedQty"`
}

// ToInput converts the request into the service payload.
func (r *CreateDeliveryNoteRequest) ToInput() (delivery_note.CreateInput, error) {
	in := delivery_note.CreateInput{Notes: r.Notes}
	for i, s := range r.StockRequestIDs {
		srID, err := ParseID(fmt.Sprintf("stockRequestIds[%d]", i), s)
		if err != nil {
			return in, err
		}
		in.StockRequestIDs = append(in.StockRequestIDs, srID)
	}
	for i, a := range r.Items {
		itemID, err := ParseID(fmt.Sprintf("items[%d].srItemId", i), a.StockRequestItemID)
		if err != nil {
			return in, err
		}
		in.Items = append(in.Items, delivery_note.Allocation{StockRequestItemID: itemID, AllocatedQty: a.AllocatedQty})
	}
	return in, nil
}

// MarkDispatchReadyRequest carries final picked counts. Omitted lines keep
// what was recorded during picking.
type MarkDispatchReadyRequest struct {
	Items []PickedLineRequest `json:"items" binding:"dive"`
}

// PickedLineRequest is the picked count of one note line.
type PickedLineRequest struct {
	DeliveryNoteItemID string         `json:"deliveryNoteItemId" binding:"required"`
	PickedQty          types.Quantity `json:"pickedQty"`
}

// ToLines converts the request into service lines.
func (r *MarkDispatchReadyRequest) ToLines() ([]delivery_note.PickedLine, error) {
	lines := make([]delivery_note.PickedLine, 0, len(r.Items))
	for i, l := range r.Items {
		lineID, err := ParseID(fmt.Sprintf("items[%d].deliveryNoteItemId", i), l.DeliveryNoteItemID)
		if err != nil {
			return nil, err
		}
		lines = append(lines, delivery_note.PickedLine{DeliveryNoteItemID: lineID, PickedQty: l.PickedQty})
	}
	return lines, nil
}

// DispatchRequest ships picked goods. A line without dispatchQty ships its
// undispatched remainder; dispatchQty 0 skips the line.
type DispatchRequest struct {
	DriverName      string                `json:"driverName,omitempty"`
	DriverSignature string                `json:"driverSignature,omitempty"`
	DispatchDate    *time.Time            `json:"dispatchDate,omitempty"`
	Notes           string                `json:"notes,omitempty"`
	Items           []DispatchLineRequest `json:"items" binding:"dive"`
}

// DispatchLineRequest overrides the quantity of one line.
type DispatchLineRequest struct {
	DeliveryNoteItemID string          `json:"deliveryNoteItemId" binding:"required"`
	DispatchQty        *types.Quantity `json:"dispatchQty,omitempty"`
}

// ToInput converts the request into the service payload.
func (r *DispatchRequest) ToInput() (delivery_note.DispatchInput, error) {
	in := delivery_note.DispatchInput{
		Driver:       delivery_note.DriverInfo{Name: r.DriverName, Signature: r.DriverSignature},
		DispatchDate: timeOrZero(r.DispatchDate),
		Notes:        r.Notes,
		Lines:        make(map[id.ID]fulfillment.QtySpec, len(r.Items)),
	}
	for i, l := range r.Items {
		lineID, err := ParseID(fmt.Sprintf("items[%d].deliveryNoteItemId", i), l.DeliveryNoteItemID)
		if err != nil {
			return in, err
		}
		in.Lines[lineID] = fulfillment.SpecFrom(l.DispatchQty)
	}
	return in, nil
}

// ReceiveRequest books goods into the requesting warehouse. A line without
// receivedQty receives everything in transit.
type ReceiveRequest struct {
	ReceivedDate *time.Time           `json:"receivedDate,omitempty"`
	Notes        string               `json:"notes,omitempty"`
	Items        []ReceiveLineRequest `json:"items" binding:"dive"`
}

// ReceiveLineRequest is the receiving instruction of one line.
type ReceiveLineRequest struct {
	DeliveryNoteItemID string          `json:"deliveryNoteItemId" binding:"required"`
	ReceivedQty        *types.Quantity `json:"receivedQty,omitempty"`
	LocationID         string          `json:"locationId,omitempty"`
}

// ToInput converts the request into the service payload.
func (r *ReceiveRequest) ToInput() (delivery_note.ReceiveInput, error) {
	in := delivery_note.ReceiveInput{
		ReceivedDate: timeOrZero(r.ReceivedDate),
		Notes:        r.Notes,
		Lines:        make(map[id.ID]delivery_note.ReceiveLine, len(r.Items)),
	}
	for i, l := range r.Items {
		lineID, err := ParseID(fmt.Sprintf("items[%d].deliveryNoteItemId", i), l.DeliveryNoteItemID)
		if err != nil {
			return in, err
		}
		locationID, err := optionalID(fmt.Sprintf("items[%d].locationId", i), l.LocationID)
		if err != nil {
			return in, err
		}
		in.Lines[lineID] = delivery_note.ReceiveLine{Qty: fulfillment.SpecFrom(l.ReceivedQty), LocationID: locationID}
	}
	return in, nil
}

// --- Response DTOs ---

// DeliveryNoteResponse represents a delivery note in API responses.
type DeliveryNoteResponse struct {
	DocumentResponse
	Status                string                     `json:"status"`
	RequestingWarehouseID string                     `json:"requestingWarehouseId"`
	FulfillingWarehouseID string                     `json:"fulfillingWarehouseId"`
	StockRequestIDs       []string                   `json:"stockRequestIds"`
	ConfirmedAt           *time.Time                 `json:"confirmedAt,omitempty"`
	PickingStartedAt      *time.Time                 `json:"pickingStartedAt,omitempty"`
	PickingCompletedAt    *time.Time                 `json:"pickingCompletedAt,omitempty"`
	DispatchedAt          *time.Time                 `json:"dispatchedAt,omitempty"`
	ReceivedAt            *time.Time                 `json:"receivedAt,omitempty"`
	VoidedAt              *time.Time                 `json:"voidedAt,omitempty"`
	VoidReason            string                     `json:"voidReason,omitempty"`
	DriverName            string                     `json:"driverName,omitempty"`
	DriverSignature       string                     `json:"driverSignature,omitempty"`
	Notes                 string                     `json:"notes"`
	Items                 []DeliveryNoteItemResponse `json:"items,omitempty"`
	Warnings              []string                   `json:"warnings,omitempty"`
}

// DeliveryNoteItemResponse represents one note line with its quantity stages.
type DeliveryNoteItemResponse struct {
	ID                 string         `json:"id"`
	LineNo             int            `json:"lineNo"`
	StockRequestID     string         `json:"stockRequestId"`
	StockRequestItemID string         `json:"stockRequestItemId"`
	ItemID             string         `json:"itemId"`
	UomID              string         `json:"uomId"`
	AllocatedQty       types.Quantity `json:"allocatedQty"`
	PickedQty          types.Quantity `json:"pickedQty"`
	ShortQty           types.Quantity `json:"shortQty"`
	DispatchedQty      types.Quantity `json:"dispatchedQty"`
	ReceivedQty        types.Quantity `json:"receivedQty"`
	InTransitQty       types.Quantity `json:"inTransitQty"`
}

// FromDeliveryNote converts the document to its response.
func FromDeliveryNote(dn *delivery_note.DeliveryNote) DeliveryNoteResponse {
	resp := DeliveryNoteResponse{
		DocumentResponse:      FromBaseDocument(dn.BaseDocument),
		Status:                string(dn.Status),
		RequestingWarehouseID: dn.RequestingWarehouseID.String(),
		FulfillingWarehouseID: dn.FulfillingWarehouseID.String(),
		StockRequestIDs:       make([]string, 0, len(dn.Sources)),
		ConfirmedAt:           dn.ConfirmedAt,
		PickingStartedAt:      dn.PickingStartedAt,
		PickingCompletedAt:    dn.PickingCompletedAt,
		DispatchedAt:          dn.DispatchedAt,
		ReceivedAt:            dn.ReceivedAt,
		VoidedAt:              dn.VoidedAt,
		VoidReason:            dn.VoidReason,
		DriverName:            dn.DriverName,
		DriverSignature:       dn.DriverSignature,
		Notes:                 dn.Notes,
	}
	for _, srID := range dn.SourceIDs() {
		resp.StockRequestIDs = append(resp.StockRequestIDs, srID.String())
	}
	for _, it := range dn.Items {
		resp.Items = append(resp.Items, DeliveryNoteItemResponse{
			ID:                 it.ID.String(),
			LineNo:             it.LineNo,
			StockRequestID:     it.StockRequestID.String(),
			StockRequestItemID: it.StockRequestItemID.String(),
			ItemID:             it.ItemID.String(),
			UomID:              it.UomID.String(),
			AllocatedQty:       it.Allocated,
			PickedQty:          it.Picked,
			ShortQty:           it.Short,
			DispatchedQty:      it.Dispatched,
			ReceivedQty:        it.Received,
			InTransitQty:       it.Unreceived(),
		})
	}
	return resp
}

// FromReadyResult renders a dispatch-ready note with its clamp warnings.
func FromReadyResult(res *delivery_note.ReadyResult) DeliveryNoteResponse {
	resp := FromDeliveryNote(res.Note)
	resp.Warnings = res.Warnings
	return resp
}
