// Package pick_list provides pick lists: picking tasks raised against a
// delivery note. A note may have several over its life; their status is
// independent of the note's.
package pick_list

import (
	"time"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/audit"
	"stockflow/internal/domain/documents/delivery_note"
	"stockflow/internal/domain/fulfillment"
)

// EntityName is used in errors and the audit journal.
const EntityName = "pick list"

// PickList is one picking task.
type PickList struct {
	entity.BaseDocument

	DeliveryNoteID id.ID                  `db:"delivery_note_id" json:"deliveryNoteId"`
	Status         fulfillment.PickStatus `db:"status" json:"status"`
	PickerUserIDs  []string               `db:"picker_user_ids" json:"pickerUserIds"`

	StartedAt   *time.Time `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	DeletedAt   *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`

	Items []Item `db:"-" json:"items"`
}

// Item mirrors one delivery note line with the picker's progress.
type Item struct {
	ID                 id.ID          `db:"id" json:"id"`
	PickListID         id.ID          `db:"pick_list_id" json:"pickListId"`
	LineNo             int            `db:"line_no" json:"lineNo"`
	DeliveryNoteItemID id.ID          `db:"delivery_note_item_id" json:"deliveryNoteItemId"`
	ItemID             id.ID          `db:"item_id" json:"itemId"`
	UomID              id.ID          `db:"uom_id" json:"uomId"`
	AllocatedQty       types.Quantity `db:"allocated_qty" json:"allocatedQty"`
	PickedQty          types.Quantity `db:"picked_qty" json:"pickedQty"`
}

// SetPicked records the picker's running total for the line.
func (it *Item) SetPicked(v types.Quantity) error {
	if v.IsNegative() {
		return apperror.NewValidation("picked quantity must not be negative").
			WithDetail("pickListItemId", it.ID).
			WithDetail("pickedQty", v)
	}
	if v > it.AllocatedQty {
		return apperror.NewValidation("picked quantity exceeds the allocated quantity").
			WithDetail("pickListItemId", it.ID).
			WithDetail("pickedQty", v).
			WithDetail("allocatedQty", it.AllocatedQty)
	}
	it.PickedQty = v
	return nil
}

// newPickList snapshots the note lines into a pending pick list.
func newPickList(scope tenant.Scope, dn *delivery_note.DeliveryNote, pickers []string) *PickList {
	pl := &PickList{
		BaseDocument:   entity.NewBaseDocument(scope),
		DeliveryNoteID: dn.ID,
		Status:         fulfillment.PickPending,
		PickerUserIDs:  pickers,
	}
	for i, it := range dn.Items {
		pl.Items = append(pl.Items, Item{
			ID:                 id.New(),
			PickListID:         pl.ID,
			LineNo:             i + 1,
			DeliveryNoteItemID: it.ID,
			ItemID:             it.ItemID,
			UomID:              it.UomID,
			AllocatedQty:       it.Allocated,
		})
	}
	return pl
}

// JournalEntry implements audit.Subject.
func (pl *PickList) JournalEntry() audit.Entry {
	action := string(pl.Status)
	if pl.DeletedAt != nil {
		action = "deleted"
	}
	return audit.Entry{
		EntityType: "pick_list",
		EntityID:   pl.ID,
		CompanyID:  pl.CompanyID,
		Number:     pl.Number,
		Action:     action,
		UserID:     pl.UpdatedBy,
		Snapshot:   pl,
	}
}

var _ audit.Subject = (*PickList)(nil)
