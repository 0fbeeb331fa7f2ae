package dto

import (
	"fmt"
	"time"

	"stockflow/internal/core/types"
	"stockflow/internal/domain/documents/pick_list"
	"stockflow/internal/domain/fulfillment"
)

// CreatePickListRequest opens a pick list for a confirmed delivery note.
type CreatePickListRequest struct {
	DeliveryNoteID string   `json:"deliveryNoteId" binding:"required"`
	PickerUserIDs  []string `json:"pickerUserIds,omitempty"`
}

// UpdatePickListStatusRequest moves a pick list to status.
type UpdatePickListStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Target parses the requested status.
func (r *UpdatePickListStatusRequest) Target() (fulfillment.PickStatus, error) {
	return fulfillment.ParsePickStatus(r.Status)
}

// UpdatePickListItemsRequest records cumulative picked counts.
type UpdatePickListItemsRequest struct {
	Items []PickListItemProgress `json:"items" binding:"required,min=1,dive"`
}

// PickListItemProgress is the running count of one pick list line.
type PickListItemProgress struct {
	PickListItemID string         `json:"pickListItemId" binding:"required"`
	PickedQty      types.Quantity `json:"pickedQty"`
}

// ToProgress converts the request into service input.
func (r *UpdatePickListItemsRequest) ToProgress() ([]pick_list.ItemProgress, error) {
	out := make([]pick_list.ItemProgress, 0, len(r.Items))
	for i, it := range r.Items {
		itemID, err := ParseID(fmt.Sprintf("items[%d].pickListItemId", i), it.PickListItemID)
		if err != nil {
			return nil, err
		}
		out = append(out, pick_list.ItemProgress{PickListItemID: itemID, PickedQty: it.PickedQty})
	}
	return out, nil
}

// PickListResponse represents a pick list in API responses.
type PickListResponse struct {
	DocumentResponse
	DeliveryNoteID string                 `json:"deliveryNoteId"`
	Status         string                 `json:"status"`
	PickerUserIDs  []string               `json:"pickerUserIds"`
	StartedAt      *time.Time             `json:"startedAt,omitempty"`
	CompletedAt    *time.Time             `json:"completedAt,omitempty"`
	Items          []PickListItemResponse `json:"items,omitempty"`
}

// PickListItemResponse represents one pick list line.
type PickListItemResponse struct {
	ID                 string         `json:"id"`
	LineNo             int            `json:"lineNo"`
	DeliveryNoteItemID string         `json:"deliveryNoteItemId"`
	ItemID             string         `json:"itemId"`
	UomID              string         `json:"uomId"`
	AllocatedQty       types.Quantity `json:"allocatedQty"`
	PickedQty          types.Quantity `json:"pickedQty"`
}

// FromPickList converts the pick list to its response.
func FromPickList(pl *pick_list.PickList) PickListResponse {
	resp := PickListResponse{
		DocumentResponse: FromBaseDocument(pl.BaseDocument),
		DeliveryNoteID:   pl.DeliveryNoteID.String(),
		Status:           string(pl.Status),
		PickerUserIDs:    pl.PickerUserIDs,
		StartedAt:        pl.StartedAt,
		CompletedAt:      pl.CompletedAt,
	}
	if resp.PickerUserIDs == nil {
		resp.PickerUserIDs = []string{}
	}
	for _, it := range pl.Items {
		resp.Items = append(resp.Items, PickListItemResponse{
			ID:                 it.ID.String(),
			LineNo:             it.LineNo,
			DeliveryNoteItemID: it.DeliveryNoteItemID.String(),
			ItemID:             it.ItemID.String(),
			UomID:              it.UomID.String(),
			AllocatedQty:       it.AllocatedQty,
			PickedQty:          it.PickedQty,
		})
	}
	return resp
}
