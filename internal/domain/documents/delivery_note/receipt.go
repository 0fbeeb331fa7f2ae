package delivery_note

import (
	"context"
	"strings"
	"time"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/fulfillment"
)

// ReceiveLine is the receiving instruction for one note line.
type ReceiveLine struct {
	Qty fulfillment.QtySpec
	// LocationID is the bin to put away into; nil id means unassigned.
	LocationID id.ID
}

// ReceiveInput is the payload of Receive. Omitted lines receive whatever
// is in transit.
type ReceiveInput struct {
	ReceivedDate time.Time
	Notes        string
	Lines        map[id.ID]ReceiveLine
}

// Receive books goods into the requesting warehouse. The note becomes
// received once every line has received all it dispatched; until then it
// stays dispatched and further receipts are accepted.
func (s *Service) Receive(ctx context.Context, scope tenant.Scope, dnID id.ID, in ReceiveInput) (*DeliveryNote, error) {
	return s.transition(ctx, scope, dnID, fulfillment.NoteReceive, func(ctx context.Context, dn *DeliveryNote) (bool, error) {
		specs := make(map[id.ID]fulfillment.QtySpec, len(in.Lines))
		for lineID, l := range in.Lines {
			specs[lineID] = l.Qty
		}
		qty, err := resolveLines(dn, specs, func(it Item) types.Quantity { return it.Unreceived() })
		if err != nil {
			return false, err
		}

		posting := ReceiptPosting{
			CompanyID:      dn.CompanyID,
			BusinessUnitID: dn.BusinessUnitID,
			UserID:         scope.UserID,
			DeliveryNoteID: dn.ID,
			WarehouseID:    dn.RequestingWarehouseID,
			ReceivedDate:   in.ReceivedDate,
			Notes:          strings.TrimSpace(in.Notes),
		}
		if posting.ReceivedDate.IsZero() {
			posting.ReceivedDate = dn.UpdatedAt
		}
		for i := range dn.Items {
			it := &dn.Items[i]
			q := qty[it.ID]
			if q.IsZero() {
				continue
			}
			if err := it.AddReceived(q); err != nil {
				return false, err
			}
			posting.Lines = append(posting.Lines, PostingLine{
				DeliveryNoteItemID: it.ID,
				ItemID:             it.ItemID,
				Qty:                q,
				LocationID:         in.Lines[it.ID].LocationID,
			})
		}
		if len(posting.Lines) == 0 {
			return false, apperror.NewNothingToReceive(dn.ID)
		}

		if err := s.poster.PostReceipt(ctx, posting); err != nil {
			return false, err
		}

		dn.Status = fulfillment.NoteDispatched
		if allReceived(dn.Items) {
			dn.Status = fulfillment.NoteReceived
			now := dn.UpdatedAt
			dn.ReceivedAt = &now
			dn.ReceivedBy = scope.UserID
		}
		if posting.Notes != "" {
			dn.Notes = fulfillment.AppendNote(dn.Notes, dn.UpdatedAt, scope.UserID, "receipt: "+posting.Notes)
		}
		return true, nil
	})
}

func allReceived(items []Item) bool {
	for _, it := range items {
		if !it.FullyReceived() {
			return false
		}
	}
	return true
}
