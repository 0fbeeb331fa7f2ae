package delivery_note

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
	"stockflow/internal/domain/documents/stock_request"
	"stockflow/internal/domain/fulfillment"
	"stockflow/pkg/logger"
)

// Service is the DeliveryNoteAssembler plus the dispatch and receipt
// postings. Every state change runs in one transaction with a conditional
// write on the status the change was validated against.
type Service struct {
	repo      Repository
	requests  RequestReader
	pickLists PickListReader
	poster    Poster
	numerator numerator.Generator
	txManager tx.Manager
	hooks     *domain.HookRegistry[*DeliveryNote]
	now       func() time.Time
}

// NewService creates a new delivery note service.
func NewService(
	repo Repository,
	requests RequestReader,
	pickLists PickListReader,
	poster Poster,
	numerator numerator.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		requests:  requests,
		pickLists: pickLists,
		poster:    poster,
		numerator: numerator,
		txManager: txManager,
		hooks:     domain.NewHookRegistry[*DeliveryNote](),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*DeliveryNote] {
	return s.hooks
}

// SetPickLists wires the pick list reader after construction; the pick
// list coordinator depends on this service, so it is built second.
func (s *Service) SetPickLists(r PickListReader) {
	s.pickLists = r
}

// Allocation is one requested line of a new delivery note.
type Allocation struct {
	StockRequestItemID id.ID
	AllocatedQty       types.Quantity
}

// CreateInput is the payload of Create.
type CreateInput struct {
	StockRequestIDs []id.ID
	Items           []Allocation
	Notes           string
}

func (in CreateInput) validate() error {
	if len(in.StockRequestIDs) == 0 {
		return apperror.NewValidation("at least one stock request is required").
			WithDetail("field", "stockRequestIds")
	}
	if len(in.Items) == 0 {
		return apperror.NewValidation("at least one item is required").
			WithDetail("field", "items")
	}
	seen := make(map[id.ID]bool, len(in.StockRequestIDs))
	for _, srID := range in.StockRequestIDs {
		if seen[srID] {
			return apperror.NewValidation("stock request listed twice").
				WithDetail("stockRequestId", srID)
		}
		seen[srID] = true
	}
	lines := make(map[id.ID]bool, len(in.Items))
	for i, a := range in.Items {
		if lines[a.StockRequestItemID] {
			return apperror.NewValidation("stock request item listed twice").
				WithDetail("stockRequestItemId", a.StockRequestItemID)
		}
		lines[a.StockRequestItemID] = true
		if !a.AllocatedQty.IsPositive() {
			return apperror.NewValidation("allocated quantity must be positive").
				WithDetail("field", fmt.Sprintf("items[%d].allocatedQty", i))
		}
	}
	return nil
}

type sourceLine struct {
	request *stock_request.StockRequest
	item    stock_request.StockRequestItem
}

// Create assembles a draft delivery note from approved stock requests that
// share the same warehouse pair. Source rows are locked for the duration so
// concurrent allocations against the same request serialize.
func (s *Service) Create(ctx context.Context, scope tenant.Scope, in CreateInput) (*DeliveryNote, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var dn *DeliveryNote
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		srIDs := slices.Clone(in.StockRequestIDs)
		slices.SortFunc(srIDs, func(a, b id.ID) int { return strings.Compare(a.String(), b.String()) })

		lines := make(map[id.ID]sourceLine)
		var first *stock_request.StockRequest
		for _, srID := range srIDs {
			sr, err := s.requests.GetForUpdate(ctx, scope, srID)
			if err != nil {
				return err
			}
			if sr.Status != fulfillment.RequestApproved {
				return apperror.NewInvalidTransition(stock_request.EntityName, string(sr.Status), "create delivery note from").
					WithDetail("stockRequestId", sr.ID)
			}
			if first == nil {
				first = sr
			} else if sr.RequestingWarehouseID != first.RequestingWarehouseID ||
				sr.FulfillingWarehouseID != first.FulfillingWarehouseID {
				return apperror.NewValidation("stock requests must share requesting and fulfilling warehouses").
					WithDetail("stockRequestId", sr.ID)
			}

			items, err := s.requests.GetItems(ctx, sr.ID)
			if err != nil {
				return fmt.Errorf("get stock request items: %w", err)
			}
			for _, it := range items {
				lines[it.ID] = sourceLine{request: sr, item: it}
			}
		}

		srItemIDs := make([]id.ID, 0, len(in.Items))
		for _, a := range in.Items {
			srItemIDs = append(srItemIDs, a.StockRequestItemID)
		}
		allocated, err := s.repo.AllocatedQuantities(ctx, scope, srItemIDs)
		if err != nil {
			return fmt.Errorf("allocated quantities: %w", err)
		}

		dn = newDeliveryNote(scope, first.RequestingWarehouseID, first.FulfillingWarehouseID)
		contributed := make(map[id.ID]bool, len(srIDs))
		for i, a := range in.Items {
			src, ok := lines[a.StockRequestItemID]
			if !ok {
				return apperror.NewValidation("item does not belong to any of the stock requests").
					WithDetail("stockRequestItemId", a.StockRequestItemID)
			}
			remaining := src.item.RequestedQty - allocated[a.StockRequestItemID]
			if a.AllocatedQty > remaining {
				return apperror.NewValidation("allocated quantity exceeds the unallocated remainder").
					WithDetail("stockRequestItemId", a.StockRequestItemID).
					WithDetail("requestedQty", src.item.RequestedQty).
					WithDetail("alreadyAllocatedQty", allocated[a.StockRequestItemID]).
					WithDetail("allocatedQty", a.AllocatedQty)
			}
			contributed[src.request.ID] = true
			dn.Items = append(dn.Items, Item{
				ID:                 id.New(),
				DeliveryNoteID:     dn.ID,
				LineNo:             i + 1,
				StockRequestID:     src.request.ID,
				StockRequestItemID: src.item.ID,
				ItemID:             src.item.ItemID,
				UomID:              src.item.UomID,
				LineQty:            fulfillment.LineQty{Allocated: a.AllocatedQty},
			})
		}
		for _, srID := range srIDs {
			if !contributed[srID] {
				return apperror.NewValidation("every stock request must contribute at least one item").
					WithDetail("stockRequestId", srID)
			}
			dn.Sources = append(dn.Sources, Source{
				DeliveryNoteID: dn.ID,
				StockRequestID: srID,
				CompanyID:      dn.CompanyID,
				CreatedAt:      dn.CreatedAt,
			})
		}
		if note := strings.TrimSpace(in.Notes); note != "" {
			dn.Notes = fulfillment.AppendNote("", dn.CreatedAt, scope.UserID, note)
		}

		number, err := s.numerator.Next(ctx, scope.CompanyID, numerator.PrefixDeliveryNote, dn.CreatedAt)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		dn.Number = number

		if err := s.repo.Create(ctx, dn); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveSources(ctx, dn.ID, dn.Sources); err != nil {
			return fmt.Errorf("save sources: %w", err)
		}
		if err := s.repo.SaveItems(ctx, dn.ID, dn.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}
		return s.hooks.RunAfterCreate(ctx, dn)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "delivery note created",
		"id", dn.ID,
		"number", dn.Number,
		"sources", len(dn.Sources),
		"items", len(dn.Items))

	return dn, nil
}

// Get returns the note with sources and items.
func (s *Service) Get(ctx context.Context, scope tenant.Scope, dnID id.ID) (*DeliveryNote, error) {
	dn, err := s.repo.Get(ctx, scope, dnID)
	if err != nil {
		return nil, err
	}
	if err := s.loadLines(ctx, dn); err != nil {
		return nil, err
	}
	return dn, nil
}

// List returns note headers for the scope.
func (s *Service) List(ctx context.Context, scope tenant.Scope, filter domain.ListFilter) (domain.ListResult[*DeliveryNote], error) {
	return s.repo.List(ctx, scope, filter.Normalize())
}

// Confirm moves a draft note to confirmed.
func (s *Service) Confirm(ctx context.Context, scope tenant.Scope, dnID id.ID) (*DeliveryNote, error) {
	return s.transition(ctx, scope, dnID, fulfillment.NoteConfirm, func(_ context.Context, dn *DeliveryNote) (bool, error) {
		now := dn.UpdatedAt
		dn.ConfirmedAt = &now
		dn.ConfirmedBy = scope.UserID
		return false, nil
	})
}

// QueuePicking moves a confirmed note to queued_for_picking without a pick
// list. Notes that have a live pick list are driven by it instead.
func (s *Service) QueuePicking(ctx context.Context, scope tenant.Scope, dnID id.ID) (*DeliveryNote, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var dn *DeliveryNote
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if s.pickLists != nil {
			statuses, err := s.pickLists.StatusesByNote(ctx, scope, dnID)
			if err != nil {
				return fmt.Errorf("pick lists of note: %w", err)
			}
			if slices.ContainsFunc(statuses, fulfillment.PickListBlocksQueue) {
				return apperror.NewManagedByPickList(dnID)
			}
		}

		var err error
		dn, err = s.transition(ctx, scope, dnID, fulfillment.NoteQueuePicking, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dn, nil
}

// PickedLine is a final picked count for one note line.
type PickedLine struct {
	DeliveryNoteItemID id.ID
	PickedQty          types.Quantity
}

// ReadyResult is the note plus the lines whose picked quantity was clamped.
type ReadyResult struct {
	Note     *DeliveryNote
	Warnings []string
}

// MarkDispatchReady closes picking. Listed lines take the given picked
// quantity clamped to [0, allocated]; omitted lines keep the current one.
// Short quantities are fixed at this point.
func (s *Service) MarkDispatchReady(ctx context.Context, scope tenant.Scope, dnID id.ID, lines []PickedLine) (*ReadyResult, error) {
	var warnings []string
	dn, err := s.transition(ctx, scope, dnID, fulfillment.NoteMarkReady, func(_ context.Context, dn *DeliveryNote) (bool, error) {
		warnings = warnings[:0]
		idx := dn.ItemIndex()
		given := make(map[id.ID]types.Quantity, len(lines))
		for _, l := range lines {
			if _, ok := idx[l.DeliveryNoteItemID]; !ok {
				return false, apperror.NewValidation("line does not belong to this delivery note").
					WithDetail("deliveryNoteItemId", l.DeliveryNoteItemID)
			}
			given[l.DeliveryNoteItemID] = l.PickedQty
		}
		for i := range dn.Items {
			it := &dn.Items[i]
			v, ok := given[it.ID]
			if !ok {
				v = it.Picked
			}
			if it.FinalizePick(v) {
				warnings = append(warnings, fmt.Sprintf(
					"line %d: picked quantity %s adjusted to %s (allocated %s)",
					it.LineNo, v, it.Picked, it.Allocated))
			}
		}
		now := dn.UpdatedAt
		dn.PickingCompletedAt = &now
		dn.PickingCompletedBy = scope.UserID
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &ReadyResult{Note: dn, Warnings: warnings}, nil
}

// Void voids a note before its goods leave the source warehouse. No stock
// is reversed since nothing was posted yet.
func (s *Service) Void(ctx context.Context, scope tenant.Scope, dnID id.ID, reason string) (*DeliveryNote, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.NewValidation("reason is required").WithDetail("field", "reason")
	}
	return s.transition(ctx, scope, dnID, fulfillment.NoteVoid, func(_ context.Context, dn *DeliveryNote) (bool, error) {
		now := dn.UpdatedAt
		dn.VoidedAt = &now
		dn.VoidedBy = scope.UserID
		dn.VoidReason = reason
		dn.Notes = fulfillment.AppendNote(dn.Notes, now, scope.UserID, "voided: "+reason)
		return false, nil
	})
}

// VoidForRequest implements stock_request.NoteVoider.
func (s *Service) VoidForRequest(ctx context.Context, scope tenant.Scope, dnID id.ID, reason string) error {
	_, err := s.Void(ctx, scope, dnID, reason)
	return err
}

// LinkedNotes implements stock_request.NoteVoider.
func (s *Service) LinkedNotes(ctx context.Context, scope tenant.Scope, srID id.ID) ([]stock_request.LinkedNote, error) {
	notes, err := s.repo.ListByRequest(ctx, scope, srID)
	if err != nil {
		return nil, err
	}
	out := make([]stock_request.LinkedNote, 0, len(notes))
	for _, dn := range notes {
		out = append(out, stock_request.LinkedNote{
			ID:      dn.ID,
			Number:  dn.Number,
			Status:  dn.Status,
			Sources: len(dn.Sources),
		})
	}
	return out, nil
}

var _ stock_request.NoteVoider = (*Service)(nil)

// mutation changes a locked note. It reports whether item quantities
// changed and must be written back.
type mutation func(ctx context.Context, dn *DeliveryNote) (itemsChanged bool, err error)

// transition runs one guarded status change: lock, check the source
// status, mutate, conditional write, journal.
func (s *Service) transition(
	ctx context.Context,
	scope tenant.Scope,
	dnID id.ID,
	tr fulfillment.Transition[fulfillment.NoteStatus],
	mutate mutation,
) (*DeliveryNote, error) {
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
		if err := tr.Check(EntityName, dn.Status); err != nil {
			if tr.Action == fulfillment.NoteVoid.Action {
				if appErr, ok := apperror.AsAppError(err); ok {
					appErr.WithDetail("reason", fulfillment.DecideVoid(dn.Status).Reason)
				}
			}
			return err
		}

		from := dn.Status
		dn.Status = tr.To
		dn.Touch(scope.UserID, s.now())

		itemsChanged := false
		if mutate != nil {
			if itemsChanged, err = mutate(ctx, dn); err != nil {
				return err
			}
		}
		return s.save(ctx, scope, dn, from, tr.Action, itemsChanged)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "delivery note "+tr.Action,
		"id", dn.ID,
		"number", dn.Number,
		"status", dn.Status)

	return dn, nil
}

// lock loads the note FOR UPDATE with its lines.
func (s *Service) lock(ctx context.Context, scope tenant.Scope, dnID id.ID) (*DeliveryNote, error) {
	dn, err := s.repo.GetForUpdate(ctx, scope, dnID)
	if err != nil {
		return nil, err
	}
	if err := s.loadLines(ctx, dn); err != nil {
		return nil, err
	}
	return dn, nil
}

// save writes the header conditionally on from, then the lines, then runs
// the transition hooks.
func (s *Service) save(ctx context.Context, scope tenant.Scope, dn *DeliveryNote, from fulfillment.NoteStatus, action string, itemsChanged bool) error {
	if err := s.repo.Update(ctx, dn, from); err != nil {
		if errors.Is(err, domain.ErrStale) {
			return s.staleError(ctx, scope, dn.ID, action, from)
		}
		return fmt.Errorf("update delivery note: %w", err)
	}
	if itemsChanged {
		if err := s.repo.UpdateItemQuantities(ctx, dn.ID, dn.Items); err != nil {
			return fmt.Errorf("update items: %w", err)
		}
	}
	return s.hooks.RunAfterTransition(ctx, dn)
}

func (s *Service) staleError(ctx context.Context, scope tenant.Scope, dnID id.ID, action string, expected fulfillment.NoteStatus) error {
	current, err := s.repo.Get(ctx, scope, dnID)
	if err != nil {
		return err
	}
	return domain.StaleError(EntityName, dnID, action, string(expected), string(current.Status))
}

func (s *Service) loadLines(ctx context.Context, dn *DeliveryNote) error {
	sources, err := s.repo.GetSources(ctx, dn.ID)
	if err != nil {
		return fmt.Errorf("get sources: %w", err)
	}
	items, err := s.repo.GetItems(ctx, dn.ID)
	if err != nil {
		return fmt.Errorf("get items: %w", err)
	}
	dn.Sources = sources
	dn.Items = items
	return nil
}
