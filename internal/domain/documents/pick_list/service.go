package pick_list

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/numerator"
	"stockflow/internal/core/tenant"
	"stockflow/internal/core/tx"
	"stockflow/internal/core/types"
	"stockflow/internal/domain"
	"stockflow/internal/domain/documents/delivery_note"
	"stockflow/internal/domain/fulfillment"
	"stockflow/pkg/logger"
)

// NoteGateway is the delivery note side of picking. The delivery note
// service implements it; its calls join the pick list's transaction.
type NoteGateway interface {
	Get(ctx context.Context, scope tenant.Scope, dnID id.ID) (*delivery_note.DeliveryNote, error)
	LockForPickList(ctx context.Context, scope tenant.Scope, dnID id.ID) (*delivery_note.DeliveryNote, error)
	StartPicking(ctx context.Context, scope tenant.Scope, dnID id.ID) (*delivery_note.DeliveryNote, error)
	RecordPicked(ctx context.Context, scope tenant.Scope, dnID id.ID, lines []delivery_note.PickedLine) error
}

var _ NoteGateway = (*delivery_note.Service)(nil)

// Service is the PickListCoordinator.
type Service struct {
	repo      Repository
	notes     NoteGateway
	numerator numerator.Generator
	txManager tx.Manager
	hooks     *domain.HookRegistry[*PickList]
	now       func() time.Time
}

// NewService creates a new pick list service.
func NewService(repo Repository, notes NoteGateway, numerator numerator.Generator, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		notes:     notes,
		numerator: numerator,
		txManager: txManager,
		hooks:     domain.NewHookRegistry[*PickList](),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*PickList] {
	return s.hooks
}

// Create raises a pending pick list for a confirmed or queued note. A
// confirmed note is queued for picking in the same transaction.
func (s *Service) Create(ctx context.Context, scope tenant.Scope, dnID id.ID, pickerUserIDs []string) (*PickList, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	pickers := make([]string, 0, len(pickerUserIDs))
	for _, p := range pickerUserIDs {
		if p = strings.TrimSpace(p); p != "" && !slices.Contains(pickers, p) {
			pickers = append(pickers, p)
		}
	}

	var pl *PickList
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		dn, err := s.notes.LockForPickList(ctx, scope, dnID)
		if err != nil {
			return err
		}

		pl = newPickList(scope, dn, pickers)
		number, err := s.numerator.Next(ctx, scope.CompanyID, numerator.PrefixPickList, pl.CreatedAt)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		pl.Number = number

		if err := s.repo.Create(ctx, pl); err != nil {
			return fmt.Errorf("create pick list: %w", err)
		}
		if err := s.repo.SaveItems(ctx, pl.ID, pl.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}
		return s.hooks.RunAfterCreate(ctx, pl)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "pick list created",
		"id", pl.ID,
		"number", pl.Number,
		"delivery_note_id", pl.DeliveryNoteID,
		"pickers", len(pl.PickerUserIDs))

	return pl, nil
}

// Get returns a pick list with its items.
func (s *Service) Get(ctx context.Context, scope tenant.Scope, plID id.ID) (*PickList, error) {
	pl, err := s.repo.Get(ctx, scope, plID)
	if err != nil {
		return nil, err
	}
	if pl.Items, err = s.repo.GetItems(ctx, pl.ID); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	return pl, nil
}

// ListByNote returns the live pick lists of a note.
func (s *Service) ListByNote(ctx context.Context, scope tenant.Scope, dnID id.ID) ([]*PickList, error) {
	if _, err := s.notes.Get(ctx, scope, dnID); err != nil {
		return nil, err
	}
	return s.repo.ListByNote(ctx, scope, dnID)
}

// UpdateStatus moves a pick list to target. Entering in_progress starts
// picking on the note; entering done leaves the note where it is.
func (s *Service) UpdateStatus(ctx context.Context, scope tenant.Scope, plID id.ID, target fulfillment.PickStatus) (*PickList, error) {
	tr, err := fulfillment.PickTransitionTo(target)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, scope, plID, tr.Action, func(ctx context.Context, pl *PickList) error {
		if err := tr.Check(EntityName, pl.Status); err != nil {
			return err
		}
		now := s.now()
		switch tr.To {
		case fulfillment.PickInProgress:
			if _, err := s.notes.StartPicking(ctx, scope, pl.DeliveryNoteID); err != nil {
				return err
			}
			if pl.StartedAt == nil {
				pl.StartedAt = &now
			}
		case fulfillment.PickDone:
			pl.CompletedAt = &now
		}
		pl.Status = tr.To
		return nil
	})
}

// ItemProgress is a picker's running count for one pick list line.
type ItemProgress struct {
	PickListItemID id.ID
	PickedQty      types.Quantity
}

// UpdateItems records cumulative picked counts while the pick list is in
// progress and mirrors them onto the note lines.
func (s *Service) UpdateItems(ctx context.Context, scope tenant.Scope, plID id.ID, progress []ItemProgress) (*PickList, error) {
	if len(progress) == 0 {
		return nil, apperror.NewValidation("at least one item is required").WithDetail("field", "items")
	}
	return s.mutate(ctx, scope, plID, "update items of", func(ctx context.Context, pl *PickList) error {
		if pl.Status != fulfillment.PickInProgress {
			return apperror.NewInvalidTransition(EntityName, string(pl.Status), "update items of")
		}

		idx := make(map[id.ID]int, len(pl.Items))
		for i, it := range pl.Items {
			idx[it.ID] = i
		}
		changed := make([]Item, 0, len(progress))
		lines := make([]delivery_note.PickedLine, 0, len(progress))
		for _, p := range progress {
			i, ok := idx[p.PickListItemID]
			if !ok {
				return apperror.NewValidation("line does not belong to this pick list").
					WithDetail("pickListItemId", p.PickListItemID)
			}
			if err := pl.Items[i].SetPicked(p.PickedQty); err != nil {
				return err
			}
			changed = append(changed, pl.Items[i])
			lines = append(lines, delivery_note.PickedLine{
				DeliveryNoteItemID: pl.Items[i].DeliveryNoteItemID,
				PickedQty:          p.PickedQty,
			})
		}

		if err := s.repo.UpdateItemQuantities(ctx, pl.ID, changed); err != nil {
			return fmt.Errorf("update items: %w", err)
		}
		return s.notes.RecordPicked(ctx, scope, pl.DeliveryNoteID, lines)
	})
}

// Delete soft-deletes a pick list that is pending or cancelled.
func (s *Service) Delete(ctx context.Context, scope tenant.Scope, plID id.ID) error {
	_, err := s.mutate(ctx, scope, plID, "delete", func(_ context.Context, pl *PickList) error {
		if pl.Status != fulfillment.PickPending && pl.Status != fulfillment.PickCancelled {
			return apperror.NewInvalidTransition(EntityName, string(pl.Status), "delete")
		}
		now := s.now()
		pl.DeletedAt = &now
		return nil
	})
	return err
}

// mutate locks a pick list, applies fn and writes the header back
// conditionally on the status it was loaded with.
func (s *Service) mutate(
	ctx context.Context,
	scope tenant.Scope,
	plID id.ID,
	action string,
	fn func(ctx context.Context, pl *PickList) error,
) (*PickList, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var pl *PickList
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		pl, err = s.repo.GetForUpdate(ctx, scope, plID)
		if err != nil {
			return err
		}
		if pl.Items, err = s.repo.GetItems(ctx, pl.ID); err != nil {
			return fmt.Errorf("get items: %w", err)
		}

		from := pl.Status
		if err := fn(ctx, pl); err != nil {
			return err
		}
		pl.Touch(scope.UserID, s.now())

		if err := s.repo.Update(ctx, pl, from); err != nil {
			if errors.Is(err, domain.ErrStale) {
				current, getErr := s.repo.Get(ctx, scope, plID)
				if getErr != nil {
					return getErr
				}
				return domain.StaleError(EntityName, plID, action, string(from), string(current.Status))
			}
			return fmt.Errorf("update pick list: %w", err)
		}
		return s.hooks.RunAfterTransition(ctx, pl)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "pick list updated",
		"action", action,
		"id", pl.ID,
		"number", pl.Number,
		"status", pl.Status)

	return pl, nil
}
