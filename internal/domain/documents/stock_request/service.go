package stock_request

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/numerator"
	"stockflow/internal/core/tenant"
	"stockflow/internal/core/tx"
	"stockflow/internal/domain"
	"stockflow/internal/domain/fulfillment"
	"stockflow/pkg/logger"
)

// LinkedNote is a delivery note sourced from a stock request.
type LinkedNote struct {
	ID     id.ID
	Number string
	Status fulfillment.NoteStatus
	// Sources is the number of stock requests the note consolidates.
	Sources int
}

// NoteVoider lets a cancelled stock request void the delivery notes that
// exist only on its behalf.
type NoteVoider interface {
	LinkedNotes(ctx context.Context, scope tenant.Scope, srID id.ID) ([]LinkedNote, error)
	VoidForRequest(ctx context.Context, scope tenant.Scope, noteID id.ID, reason string) error
}

// CreateInput is the payload of Create.
type CreateInput struct {
	RequestingWarehouseID id.ID
	FulfillingWarehouseID id.ID
	Priority              Priority
	RequiredBy            *time.Time
	Notes                 string
	Items                 []NewItem
}

// Service is the StockRequestManager: it owns the request and its
// draft → submitted → approved → completed lifecycle.
type Service struct {
	repo      Repository
	notes     NoteVoider
	numerator numerator.Generator
	txManager tx.Manager
	hooks     *domain.HookRegistry[*StockRequest]
	now       func() time.Time
}

// NewService creates a new stock request service. notes may be nil, in
// which case cancelling never touches delivery notes.
func NewService(repo Repository, notes NoteVoider, numerator numerator.Generator, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		notes:     notes,
		numerator: numerator,
		txManager: txManager,
		hooks:     domain.NewHookRegistry[*StockRequest](),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*StockRequest] {
	return s.hooks
}

// Create stores a new request in draft.
func (s *Service) Create(ctx context.Context, scope tenant.Scope, in CreateInput) (*StockRequest, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	sr := NewStockRequest(scope, in.RequestingWarehouseID, in.FulfillingWarehouseID, in.Items)
	if in.Priority != "" {
		sr.Priority = in.Priority
	}
	sr.RequiredBy = in.RequiredBy
	if note := strings.TrimSpace(in.Notes); note != "" {
		sr.Notes = fulfillment.AppendNote("", sr.CreatedAt, scope.UserID, note)
	}

	if err := sr.Validate(); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numerator.Next(ctx, scope.CompanyID, numerator.PrefixStockRequest, sr.CreatedAt)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		sr.Number = number

		if err := s.repo.Create(ctx, sr); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveItems(ctx, sr.ID, sr.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}
		return s.hooks.RunAfterCreate(ctx, sr)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock request created",
		"id", sr.ID,
		"number", sr.Number,
		"items", len(sr.Items))

	return sr, nil
}

// Get returns the request with its items and the fulfilled rollup.
func (s *Service) Get(ctx context.Context, scope tenant.Scope, srID id.ID) (*StockRequest, error) {
	sr, err := s.repo.Get(ctx, scope, srID)
	if err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, scope, sr); err != nil {
		return nil, err
	}
	return sr, nil
}

// List returns request headers for the scope.
func (s *Service) List(ctx context.Context, scope tenant.Scope, filter domain.ListFilter) (domain.ListResult[*StockRequest], error) {
	return s.repo.List(ctx, scope, filter.Normalize())
}

// Submit moves a draft request to submitted.
func (s *Service) Submit(ctx context.Context, scope tenant.Scope, srID id.ID) (*StockRequest, error) {
	return s.transition(ctx, scope, srID, fulfillment.RequestSubmit, nil)
}

// Approve moves a submitted request to approved.
func (s *Service) Approve(ctx context.Context, scope tenant.Scope, srID id.ID) (*StockRequest, error) {
	return s.transition(ctx, scope, srID, fulfillment.RequestApprove, nil)
}

// Reject cancels a submitted request, recording the reason.
func (s *Service) Reject(ctx context.Context, scope tenant.Scope, srID id.ID, reason string) (*StockRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.NewValidation("reason is required").WithDetail("field", "reason")
	}
	return s.transition(ctx, scope, srID, fulfillment.RequestReject, func(sr *StockRequest) error {
		sr.Notes = fulfillment.AppendNote(sr.Notes, sr.UpdatedAt, scope.UserID, "rejected: "+reason)
		return nil
	})
}

// CancelResult is a cancelled request plus what could not be cleaned up.
type CancelResult struct {
	Request  *StockRequest
	Warnings []string
}

// Cancel cancels a request that is not yet completed. Delivery notes that
// exist only for this request and are still voidable are voided afterwards;
// anything that cannot be voided is reported in Warnings while the
// cancellation itself stands.
func (s *Service) Cancel(ctx context.Context, scope tenant.Scope, srID id.ID, reason string) (*CancelResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.NewValidation("reason is required").WithDetail("field", "reason")
	}

	sr, err := s.transition(ctx, scope, srID, fulfillment.RequestCancel, func(sr *StockRequest) error {
		sr.Notes = fulfillment.AppendNote(sr.Notes, sr.UpdatedAt, scope.UserID, "cancelled: "+reason)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CancelResult{Request: sr, Warnings: s.voidLinkedNotes(ctx, scope, sr, reason)}, nil
}

func (s *Service) voidLinkedNotes(ctx context.Context, scope tenant.Scope, sr *StockRequest, reason string) []string {
	if s.notes == nil {
		return nil
	}

	linked, err := s.notes.LinkedNotes(ctx, scope, sr.ID)
	if err != nil {
		logger.Warn(ctx, "list delivery notes of cancelled stock request", "id", sr.ID, "error", err)
		return []string{"delivery notes of this request could not be checked: " + err.Error()}
	}

	var warnings []string
	for _, n := range linked {
		switch {
		case n.Status == fulfillment.NoteVoided:
			continue
		case n.Sources > 1:
			warnings = append(warnings, fmt.Sprintf(
				"delivery note %s also fulfils other stock requests and was left unchanged", n.Number))
		case !fulfillment.CanVoid(n.Status):
			warnings = append(warnings, fmt.Sprintf(
				"delivery note %s is %s and can no longer be voided", n.Number, n.Status))
		default:
			voidReason := fmt.Sprintf("stock request %s cancelled: %s", sr.Number, reason)
			if err := s.notes.VoidForRequest(ctx, scope, n.ID, voidReason); err != nil {
				logger.Warn(ctx, "void delivery note of cancelled stock request",
					"stock_request_id", sr.ID, "delivery_note_id", n.ID, "error", err)
				warnings = append(warnings, fmt.Sprintf(
					"delivery note %s could not be voided: %v", n.Number, err))
			}
		}
	}
	return warnings
}

// Complete closes an approved request once every item is fully received.
func (s *Service) Complete(ctx context.Context, scope tenant.Scope, srID id.ID) (*StockRequest, error) {
	return s.transition(ctx, scope, srID, fulfillment.RequestComplete, func(sr *StockRequest) error {
		open := sr.Unfulfilled()
		if len(open) == 0 {
			return nil
		}
		lines := make([]map[string]any, 0, len(open))
		for _, it := range open {
			lines = append(lines, map[string]any{
				"stockRequestItemId": it.ID,
				"requestedQty":       it.RequestedQty,
				"fulfilledQty":       it.FulfilledQty,
			})
		}
		return apperror.NewValidation("stock request has unfulfilled items").
			WithDetail("items", lines)
	})
}

// transition runs one guarded status change: lock, check the source
// status, mutate, conditional write, journal.
func (s *Service) transition(
	ctx context.Context,
	scope tenant.Scope,
	srID id.ID,
	tr fulfillment.Transition[fulfillment.RequestStatus],
	mutate func(sr *StockRequest) error,
) (*StockRequest, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var sr *StockRequest
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		sr, err = s.repo.GetForUpdate(ctx, scope, srID)
		if err != nil {
			return err
		}
		if err := tr.Check(EntityName, sr.Status); err != nil {
			return err
		}
		if err := s.loadItems(ctx, scope, sr); err != nil {
			return err
		}

		from := sr.Status
		sr.Status = tr.To
		sr.Touch(scope.UserID, s.now())
		if mutate != nil {
			if err := mutate(sr); err != nil {
				return err
			}
		}

		if err := s.repo.UpdateStatus(ctx, sr, from); err != nil {
			if errors.Is(err, domain.ErrStale) {
				return s.staleError(ctx, scope, srID, tr.Action, from)
			}
			return fmt.Errorf("update status: %w", err)
		}
		return s.hooks.RunAfterTransition(ctx, sr)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock request "+tr.Action,
		"id", sr.ID,
		"number", sr.Number,
		"status", sr.Status)

	return sr, nil
}

func (s *Service) staleError(ctx context.Context, scope tenant.Scope, srID id.ID, action string, expected fulfillment.RequestStatus) error {
	current, err := s.repo.Get(ctx, scope, srID)
	if err != nil {
		return err
	}
	return domain.StaleError(EntityName, srID, action, string(expected), string(current.Status))
}

func (s *Service) loadItems(ctx context.Context, scope tenant.Scope, sr *StockRequest) error {
	items, err := s.repo.GetItems(ctx, sr.ID)
	if err != nil {
		return fmt.Errorf("get items: %w", err)
	}
	sr.Items = items

	rollup, err := s.repo.FulfilledQuantities(ctx, scope, sr.ID)
	if err != nil {
		return fmt.Errorf("fulfilled rollup: %w", err)
	}
	sr.ApplyFulfilled(rollup)
	return nil
}
