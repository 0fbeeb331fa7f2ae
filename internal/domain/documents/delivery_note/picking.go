package delivery_note

import (
	"context"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/domain/fulfillment"
	"stockflow/pkg/logger"
)

// The methods below are the delivery note side of pick-list coordination.
// They are called from inside the pick list's transaction and join it.

// LockForPickList returns the locked note with its lines for a new pick
// list, moving it from confirmed to queued_for_picking when needed.
func (s *Service) LockForPickList(ctx context.Context, scope tenant.Scope, dnID id.ID) (*DeliveryNote, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var dn *DeliveryNote
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		dn, err = s.lock(ctx, scope, dnID)
		if err != nil {
			return err
		}
		switch dn.Status {
		case fulfillment.NoteQueuedForPicking:
			return nil
		case fulfillment.NoteConfirmed:
			from := dn.Status
			dn.Status = fulfillment.NoteQueuePicking.To
			dn.Touch(scope.UserID, s.now())
			if err := s.save(ctx, scope, dn, from, fulfillment.NoteQueuePicking.Action, false); err != nil {
				return err
			}
			logger.Info(ctx, "delivery note queued for picking by pick list",
				"id", dn.ID,
				"number", dn.Number)
			return nil
		default:
			return apperror.NewInvalidTransition(EntityName, string(dn.Status), "create pick list for")
		}
	})
	if err != nil {
		return nil, err
	}
	return dn, nil
}

// StartPicking moves a queued note to picking_in_progress when one of its
// pick lists starts. A note already being picked is left as is.
func (s *Service) StartPicking(ctx context.Context, scope tenant.Scope, dnID id.ID) (*DeliveryNote, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var dn *DeliveryNote
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		dn, err = s.lock(ctx, scope, dnID)
		if err != nil {
			return err
		}
		if dn.Status == fulfillment.NotePickingInProgress {
			return nil
		}
		if err := fulfillment.NoteStartPicking.Check(EntityName, dn.Status); err != nil {
			return err
		}
		from := dn.Status
		dn.Status = fulfillment.NoteStartPicking.To
		dn.Touch(scope.UserID, s.now())
		now := dn.UpdatedAt
		dn.PickingStartedAt = &now
		dn.PickingStartedBy = scope.UserID
		return s.save(ctx, scope, dn, from, fulfillment.NoteStartPicking.Action, false)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "delivery note picking started",
		"id", dn.ID,
		"number", dn.Number)

	return dn, nil
}

// RecordPicked writes running picked counts onto the note lines. Values are
// cumulative totals, not increments; the last write wins.
func (s *Service) RecordPicked(ctx context.Context, scope tenant.Scope, dnID id.ID, lines []PickedLine) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		dn, err := s.lock(ctx, scope, dnID)
		if err != nil {
			return err
		}
		if dn.Status != fulfillment.NotePickingInProgress {
			return apperror.NewInvalidTransition(EntityName, string(dn.Status), "record picked quantities on")
		}

		idx := dn.ItemIndex()
		changed := make([]Item, 0, len(lines))
		for _, l := range lines {
			i, ok := idx[l.DeliveryNoteItemID]
			if !ok {
				return apperror.NewValidation("line does not belong to this delivery note").
					WithDetail("deliveryNoteItemId", l.DeliveryNoteItemID)
			}
			if err := dn.Items[i].RecordPicked(l.PickedQty); err != nil {
				if appErr, ok := apperror.AsAppError(err); ok {
					appErr.WithDetail("deliveryNoteItemId", l.DeliveryNoteItemID)
				}
				return err
			}
			changed = append(changed, dn.Items[i])
		}
		if len(changed) == 0 {
			return nil
		}
		return s.repo.UpdateItemQuantities(ctx, dn.ID, changed)
	})
}
