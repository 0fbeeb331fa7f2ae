package memstore

import (
	"context"

	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/core/types"
	"stockflow/internal/domain"
	"stockflow/internal/domain/documents/delivery_note"
	"stockflow/internal/domain/fulfillment"
)

// DeliveryNoteRepo implements delivery_note.Repository.
type DeliveryNoteRepo struct{ s *Store }

var _ delivery_note.Repository = (*DeliveryNoteRepo)(nil)

func (r *DeliveryNoteRepo) Create(_ context.Context, dn *delivery_note.DeliveryNote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("dn.create"); err != nil {
		return err
	}
	row := *dn
	row.Sources, row.Items = nil, nil
	r.s.st.notes[dn.ID] = row
	return nil
}

func (r *DeliveryNoteRepo) SaveSources(_ context.Context, dnID id.ID, sources []delivery_note.Source) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.st.noteSources[dnID] = append([]delivery_note.Source(nil), sources...)
	return nil
}

func (r *DeliveryNoteRepo) SaveItems(_ context.Context, dnID id.ID, items []delivery_note.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.st.noteItems[dnID] = append([]delivery_note.Item(nil), items...)
	return nil
}

func (r *DeliveryNoteRepo) Get(_ context.Context, scope tenant.Scope, dnID id.ID) (*delivery_note.DeliveryNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.st.notes[dnID]
	if !ok || !visible(row.BaseDocument, scope) {
		return nil, notFound(delivery_note.EntityName, dnID)
	}
	return &row, nil
}

func (r *DeliveryNoteRepo) GetForUpdate(ctx context.Context, scope tenant.Scope, dnID id.ID) (*delivery_note.DeliveryNote, error) {
	return r.Get(ctx, scope, dnID)
}

func (r *DeliveryNoteRepo) GetSources(_ context.Context, dnID id.ID) ([]delivery_note.Source, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]delivery_note.Source(nil), r.s.st.noteSources[dnID]...), nil
}

func (r *DeliveryNoteRepo) GetItems(_ context.Context, dnID id.ID) ([]delivery_note.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]delivery_note.Item(nil), r.s.st.noteItems[dnID]...), nil
}

func (r *DeliveryNoteRepo) Update(_ context.Context, dn *delivery_note.DeliveryNote, from fulfillment.NoteStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("dn.update"); err != nil {
		return err
	}
	row, ok := r.s.st.notes[dn.ID]
	if !ok || row.Status != from || row.Version != dn.Version {
		return domain.ErrStale
	}
	dn.Version++
	row = *dn
	row.Sources, row.Items = nil, nil
	r.s.st.notes[dn.ID] = row
	return nil
}

func (r *DeliveryNoteRepo) UpdateItemQuantities(_ context.Context, dnID id.ID, items []delivery_note.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("dn.items"); err != nil {
		return err
	}
	stored := r.s.st.noteItems[dnID]
	for _, it := range items {
		for i := range stored {
			if stored[i].ID == it.ID {
				stored[i].LineQty = it.LineQty
			}
		}
	}
	return nil
}

func (r *DeliveryNoteRepo) List(_ context.Context, scope tenant.Scope, filter domain.ListFilter) (domain.ListResult[*delivery_note.DeliveryNote], error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*delivery_note.DeliveryNote
	for _, row := range r.s.st.notes {
		if !visible(row.BaseDocument, scope) ||
			!matchesFilter(string(row.Status), row.Number, row.RequestingWarehouseID, row.FulfillingWarehouseID, filter) {
			continue
		}
		row := row
		out = append(out, &row)
	}
	sortByCreated(out, func(dn *delivery_note.DeliveryNote) string { return dn.ID.String() })
	return page(out, filter), nil
}

func (r *DeliveryNoteRepo) ListByRequest(_ context.Context, scope tenant.Scope, srID id.ID) ([]*delivery_note.DeliveryNote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*delivery_note.DeliveryNote
	for dnID, sources := range r.s.st.noteSources {
		row := r.s.st.notes[dnID]
		if !visible(row.BaseDocument, scope) {
			continue
		}
		for _, src := range sources {
			if src.StockRequestID == srID {
				row.Sources = append([]delivery_note.Source(nil), sources...)
				out = append(out, &row)
				break
			}
		}
	}
	sortByCreated(out, func(dn *delivery_note.DeliveryNote) string { return dn.ID.String() })
	return out, nil
}

func (r *DeliveryNoteRepo) AllocatedQuantities(_ context.Context, scope tenant.Scope, srItemIDs []id.ID) (map[id.ID]types.Quantity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[id.ID]bool, len(srItemIDs))
	for _, v := range srItemIDs {
		want[v] = true
	}
	out := make(map[id.ID]types.Quantity)
	for dnID, items := range r.s.st.noteItems {
		dn := r.s.st.notes[dnID]
		if dn.CompanyID != scope.CompanyID || dn.Status == fulfillment.NoteVoided {
			continue
		}
		for _, it := range items {
			if want[it.StockRequestItemID] {
				out[it.StockRequestItemID] += it.Allocated
			}
		}
	}
	return out, nil
}
