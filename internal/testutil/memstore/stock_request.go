package memstore

import (
	"context"

	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/core/types"
	"stockflow/internal/domain"
	"stockflow/internal/domain/documents/stock_request"
	"stockflow/internal/domain/fulfillment"
)

// StockRequestRepo implements stock_request.Repository.
type StockRequestRepo struct{ s *Store }

var _ stock_request.Repository = (*StockRequestRepo)(nil)

func (r *StockRequestRepo) Create(_ context.Context, sr *stock_request.StockRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("sr.create"); err != nil {
		return err
	}
	row := *sr
	row.Items = nil
	r.s.st.requests[sr.ID] = row
	return nil
}

func (r *StockRequestRepo) SaveItems(_ context.Context, srID id.ID, items []stock_request.StockRequestItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.st.requestItems[srID] = append([]stock_request.StockRequestItem(nil), items...)
	return nil
}

func (r *StockRequestRepo) Get(_ context.Context, scope tenant.Scope, srID id.ID) (*stock_request.StockRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.st.requests[srID]
	if !ok || !visible(row.BaseDocument, scope) {
		return nil, notFound(stock_request.EntityName, srID)
	}
	return &row, nil
}

func (r *StockRequestRepo) GetForUpdate(ctx context.Context, scope tenant.Scope, srID id.ID) (*stock_request.StockRequest, error) {
	return r.Get(ctx, scope, srID)
}

func (r *StockRequestRepo) GetItems(_ context.Context, srID id.ID) ([]stock_request.StockRequestItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]stock_request.StockRequestItem(nil), r.s.st.requestItems[srID]...), nil
}

func (r *StockRequestRepo) UpdateStatus(_ context.Context, sr *stock_request.StockRequest, from fulfillment.RequestStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("sr.update"); err != nil {
		return err
	}
	row, ok := r.s.st.requests[sr.ID]
	if !ok || row.Status != from || row.Version != sr.Version {
		return domain.ErrStale
	}
	sr.Version++
	row.Status = sr.Status
	row.Notes = sr.Notes
	row.UpdatedAt = sr.UpdatedAt
	row.UpdatedBy = sr.UpdatedBy
	row.Version = sr.Version
	r.s.st.requests[sr.ID] = row
	return nil
}

func (r *StockRequestRepo) List(_ context.Context, scope tenant.Scope, filter domain.ListFilter) (domain.ListResult[*stock_request.StockRequest], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*stock_request.StockRequest
	for _, row := range r.s.st.requests {
		if !visible(row.BaseDocument, scope) ||
			!matchesFilter(string(row.Status), row.Number, row.RequestingWarehouseID, row.FulfillingWarehouseID, filter) {
			continue
		}
		row := row
		out = append(out, &row)
	}
	sortByCreated(out, func(sr *stock_request.StockRequest) string { return sr.ID.String() })
	return page(out, filter), nil
}

func (r *StockRequestRepo) FulfilledQuantities(_ context.Context, scope tenant.Scope, srID id.ID) (map[id.ID]types.Quantity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[id.ID]types.Quantity)
	for dnID, items := range r.s.st.noteItems {
		dn := r.s.st.notes[dnID]
		if !visible(dn.BaseDocument, scope) || dn.Status == fulfillment.NoteVoided {
			continue
		}
		for _, it := range items {
			if it.StockRequestID == srID {
				out[it.StockRequestItemID] += it.Received
			}
		}
	}
	return out, nil
}
