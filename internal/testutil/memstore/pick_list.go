package memstore

import (
	"context"

	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/domain"
	"stockflow/internal/domain/documents/pick_list"
	"stockflow/internal/domain/fulfillment"
)

// PickListRepo implements pick_list.Repository.
type PickListRepo struct{ s *Store }

var _ pick_list.Repository = (*PickListRepo)(nil)

func (r *PickListRepo) Create(_ context.Context, pl *pick_list.PickList) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row := *pl
	row.Items = nil
	row.PickerUserIDs = append([]string(nil), pl.PickerUserIDs...)
	r.s.st.pickLists[pl.ID] = row
	return nil
}

func (r *PickListRepo) SaveItems(_ context.Context, plID id.ID, items []pick_list.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.st.pickItems[plID] = append([]pick_list.Item(nil), items...)
	return nil
}

func (r *PickListRepo) Get(_ context.Context, scope tenant.Scope, plID id.ID) (*pick_list.PickList, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.st.pickLists[plID]
	if !ok || row.DeletedAt != nil || !visible(row.BaseDocument, scope) {
		return nil, notFound(pick_list.EntityName, plID)
	}
	return &row, nil
}

func (r *PickListRepo) GetForUpdate(ctx context.Context, scope tenant.Scope, plID id.ID) (*pick_list.PickList, error) {
	return r.Get(ctx, scope, plID)
}

func (r *PickListRepo) GetItems(_ context.Context, plID id.ID) ([]pick_list.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]pick_list.Item(nil), r.s.st.pickItems[plID]...), nil
}

func (r *PickListRepo) Update(_ context.Context, pl *pick_list.PickList, from fulfillment.PickStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.st.pickLists[pl.ID]
	if !ok || row.DeletedAt != nil || row.Status != from || row.Version != pl.Version {
		return domain.ErrStale
	}
	pl.Version++
	row = *pl
	row.Items = nil
	r.s.st.pickLists[pl.ID] = row
	return nil
}

func (r *PickListRepo) UpdateItemQuantities(_ context.Context, plID id.ID, items []pick_list.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := r.s.st.pickItems[plID]
	for _, it := range items {
		for i := range stored {
			if stored[i].ID == it.ID {
				stored[i].PickedQty = it.PickedQty
			}
		}
	}
	return nil
}

func (r *PickListRepo) ListByNote(_ context.Context, scope tenant.Scope, dnID id.ID) ([]*pick_list.PickList, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*pick_list.PickList
	for _, row := range r.s.st.pickLists {
		if row.DeliveryNoteID != dnID || row.DeletedAt != nil || !visible(row.BaseDocument, scope) {
			continue
		}
		row := row
		row.Items = append([]pick_list.Item(nil), r.s.st.pickItems[row.ID]...)
		out = append(out, &row)
	}
	sortByCreated(out, func(pl *pick_list.PickList) string { return pl.ID.String() })
	return out, nil
}

func (r *PickListRepo) StatusesByNote(ctx context.Context, scope tenant.Scope, dnID id.ID) ([]fulfillment.PickStatus, error) {
	lists, err := r.ListByNote(ctx, scope, dnID)
	if err != nil {
		return nil, err
	}
	out := make([]fulfillment.PickStatus, 0, len(lists))
	for _, pl := range lists {
		out = append(out, pl.Status)
	}
	return out, nil
}
