// Package tracking answers "where is my stock request" by projecting the
// current states of its delivery notes and pick lists. It never writes.
package tracking

import (
	"context"
	"fmt"

	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/core/tx"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/documents/delivery_note"
	"stockflow/internal/domain/documents/stock_request"
	"stockflow/internal/domain/fulfillment"
)

// RequestSource reads stock request headers.
type RequestSource interface {
	Get(ctx context.Context, scope tenant.Scope, srID id.ID) (*stock_request.StockRequest, error)
}

// NoteSource reads delivery notes.
type NoteSource interface {
	Get(ctx context.Context, scope tenant.Scope, dnID id.ID) (*delivery_note.DeliveryNote, error)
	GetItems(ctx context.Context, dnID id.ID) ([]delivery_note.Item, error)
	ListByRequest(ctx context.Context, scope tenant.Scope, srID id.ID) ([]*delivery_note.DeliveryNote, error)
}

// PickListSource reads pick list statuses.
type PickListSource interface {
	StatusesByNote(ctx context.Context, scope tenant.Scope, dnID id.ID) ([]fulfillment.PickStatus, error)
}

// NoteView is the fulfillment state of one delivery note.
type NoteView struct {
	DeliveryNoteID id.ID                     `json:"deliveryNoteId"`
	Number         string                    `json:"number"`
	Status         fulfillment.NoteStatus    `json:"status"`
	DerivedStatus  fulfillment.DerivedStatus `json:"derivedStatus"`
	PickLists      []fulfillment.PickStatus  `json:"pickLists"`
	Totals         *LineTotals               `json:"totals,omitempty"`
}

// LineTotals sums the quantity stages over a note's lines.
type LineTotals struct {
	Allocated  types.Quantity `json:"allocatedQty"`
	Picked     types.Quantity `json:"pickedQty"`
	Short      types.Quantity `json:"shortQty"`
	Dispatched types.Quantity `json:"dispatchedQty"`
	Received   types.Quantity `json:"receivedQty"`
}

// RequestView pairs the stored approval status of a stock request with its
// derived fulfillment status. The two legitimately diverge.
type RequestView struct {
	StockRequestID id.ID                     `json:"stockRequestId"`
	Number         string                    `json:"number"`
	Status         fulfillment.RequestStatus `json:"status"`
	DerivedStatus  fulfillment.DerivedStatus `json:"derivedStatus"`
	DeliveryNotes  []NoteView                `json:"deliveryNotes"`
}

// Service is the FulfillmentStatusProjector's read side.
type Service struct {
	requests  RequestSource
	notes     NoteSource
	pickLists PickListSource
	txManager tx.ReadOnlyManager
}

// NewService creates a new tracking service.
func NewService(requests RequestSource, notes NoteSource, pickLists PickListSource, txManager tx.ReadOnlyManager) *Service {
	return &Service{
		requests:  requests,
		notes:     notes,
		pickLists: pickLists,
		txManager: txManager,
	}
}

// StockRequestStatus projects the fulfillment status of a stock request
// from one consistent read of its notes and pick lists.
func (s *Service) StockRequestStatus(ctx context.Context, scope tenant.Scope, srID id.ID) (*RequestView, error) {
	var view *RequestView
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		sr, err := s.requests.Get(ctx, scope, srID)
		if err != nil {
			return err
		}
		notes, err := s.notes.ListByRequest(ctx, scope, srID)
		if err != nil {
			return fmt.Errorf("list delivery notes: %w", err)
		}

		snapshots := make([]fulfillment.NoteSnapshot, 0, len(notes))
		views := make([]NoteView, 0, len(notes))
		for _, dn := range notes {
			snap, err := s.snapshot(ctx, scope, dn)
			if err != nil {
				return err
			}
			snapshots = append(snapshots, snap)
			views = append(views, NoteView{
				DeliveryNoteID: dn.ID,
				Number:         dn.Number,
				Status:         dn.Status,
				DerivedStatus:  fulfillment.ProjectNote(snap),
				PickLists:      snap.PickLists,
			})
		}

		view = &RequestView{
			StockRequestID: sr.ID,
			Number:         sr.Number,
			Status:         sr.Status,
			DerivedStatus:  fulfillment.ComputeDerivedStatus(snapshots),
			DeliveryNotes:  views,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// DeliveryNoteStatus is the status view of one note with its line totals.
func (s *Service) DeliveryNoteStatus(ctx context.Context, scope tenant.Scope, dnID id.ID) (*NoteView, error) {
	var view *NoteView
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		dn, err := s.notes.Get(ctx, scope, dnID)
		if err != nil {
			return err
		}
		snap, err := s.snapshot(ctx, scope, dn)
		if err != nil {
			return err
		}
		items, err := s.notes.GetItems(ctx, dn.ID)
		if err != nil {
			return fmt.Errorf("get items: %w", err)
		}

		var totals LineTotals
		for _, it := range items {
			totals.Allocated += it.Allocated
			totals.Picked += it.Picked
			totals.Short += it.Short
			totals.Dispatched += it.Dispatched
			totals.Received += it.Received
		}
		view = &NoteView{
			DeliveryNoteID: dn.ID,
			Number:         dn.Number,
			Status:         dn.Status,
			DerivedStatus:  fulfillment.ProjectNote(snap),
			PickLists:      snap.PickLists,
			Totals:         &totals,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *Service) snapshot(ctx context.Context, scope tenant.Scope, dn *delivery_note.DeliveryNote) (fulfillment.NoteSnapshot, error) {
	statuses, err := s.pickLists.StatusesByNote(ctx, scope, dn.ID)
	if err != nil {
		return fulfillment.NoteSnapshot{}, fmt.Errorf("pick lists of %s: %w", dn.Number, err)
	}
	return fulfillment.NoteSnapshot{
		ID:        dn.ID,
		Number:    dn.Number,
		Status:    dn.Status,
		PickLists: statuses,
	}, nil
}
