package delivery_note

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/fulfillment"
)

// DispatchInput is the payload of Dispatch. Lines maps note line ids to
// the quantity to ship; omitted lines ship their undispatched remainder.
type DispatchInput struct {
	Driver       DriverInfo
	DispatchDate time.Time
	Notes        string
	Lines        map[id.ID]fulfillment.QtySpec
}

// Dispatch ships picked goods. The stock posting and the note update
// commit together: a posting failure leaves the note and every balance as
// they were. Repeated calls ship what is still undispatched.
func (s *Service) Dispatch(ctx context.Context, scope tenant.Scope, dnID id.ID, in DispatchInput) (*DeliveryNote, error) {
	return s.transition(ctx, scope, dnID, fulfillment.NoteDispatch, func(ctx context.Context, dn *DeliveryNote) (bool, error) {
		qty, err := resolveLines(dn, in.Lines, func(it Item) types.Quantity { return it.Undispatched() })
		if err != nil {
			return false, err
		}

		posting := DispatchPosting{
			CompanyID:      dn.CompanyID,
			BusinessUnitID: dn.BusinessUnitID,
			UserID:         scope.UserID,
			DeliveryNoteID: dn.ID,
			WarehouseID:    dn.FulfillingWarehouseID,
			DispatchDate:   in.DispatchDate,
			Notes:          strings.TrimSpace(in.Notes),
			Driver:         in.Driver,
		}
		if posting.DispatchDate.IsZero() {
			posting.DispatchDate = dn.UpdatedAt
		}
		for i := range dn.Items {
			it := &dn.Items[i]
			q := qty[it.ID]
			if q.IsZero() {
				continue
			}
			if err := it.AddDispatched(q); err != nil {
				return false, err
			}
			posting.Lines = append(posting.Lines, PostingLine{
				DeliveryNoteItemID: it.ID,
				ItemID:             it.ItemID,
				Qty:                q,
			})
		}
		if len(posting.Lines) == 0 {
			return false, apperror.NewNothingToDispatch(dn.ID)
		}

		if err := s.poster.PostDispatch(ctx, posting); err != nil {
			return false, err
		}

		now := dn.UpdatedAt
		dn.DispatchedAt = &now
		dn.DispatchedBy = scope.UserID
		if in.Driver.Name != "" {
			dn.DriverName = in.Driver.Name
		}
		if in.Driver.Signature != "" {
			dn.DriverSignature = in.Driver.Signature
		}
		if posting.Notes != "" {
			dn.Notes = fulfillment.AppendNote(dn.Notes, now, scope.UserID, "dispatch: "+posting.Notes)
		}
		return true, nil
	})
}

// resolveLines turns per-line specs into quantities. Unknown line ids are
// rejected; lines without a spec take outstanding(item).
func resolveLines(dn *DeliveryNote, specs map[id.ID]fulfillment.QtySpec, outstanding func(Item) types.Quantity) (map[id.ID]types.Quantity, error) {
	idx := dn.ItemIndex()
	for lineID := range specs {
		if _, ok := idx[lineID]; !ok {
			return nil, apperror.NewValidation("line does not belong to this delivery note").
				WithDetail("deliveryNoteItemId", lineID)
		}
	}

	out := make(map[id.ID]types.Quantity, len(dn.Items))
	for _, it := range dn.Items {
		spec, ok := specs[it.ID]
		if !ok {
			spec = fulfillment.Remaining()
		}
		q, err := spec.Resolve(outstanding(it))
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				appErr.WithDetail("deliveryNoteItemId", it.ID).
					WithDetail("lineNo", it.LineNo)
			}
			return nil, fmt.Errorf("line %d: %w", it.LineNo, err)
		}
		out[it.ID] = q
	}
	return out, nil
}
