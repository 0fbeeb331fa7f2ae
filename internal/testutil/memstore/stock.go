package memstore

import (
	"context"
	"slices"
	"strings"

	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/registers/stock"
)

// StockRepo implements stock.Repository.
type StockRepo struct{ s *Store }

var _ stock.Repository = (*StockRepo)(nil)

func (r *StockRepo) LockBalances(_ context.Context, companyID, warehouseID id.ID, itemIDs []id.ID) ([]entity.StockBalance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.StockBalance
	for k, b := range r.s.st.balances {
		if k.CompanyID == companyID && k.WarehouseID == warehouseID && slices.Contains(itemIDs, k.ItemID) {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b entity.StockBalance) int {
		if c := strings.Compare(a.ItemID.String(), b.ItemID.String()); c != 0 {
			return c
		}
		return strings.Compare(a.LocationID.String(), b.LocationID.String())
	})
	return out, nil
}

func (r *StockRepo) ApplyMovements(_ context.Context, movements []entity.StockMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fail("stock.apply"); err != nil {
		return err
	}
	for _, m := range movements {
		k := balanceKey{CompanyID: m.CompanyID, BalanceKey: m.Key()}
		b, ok := r.s.st.balances[k]
		if !ok {
			b = entity.StockBalance{
				CompanyID:   m.CompanyID,
				WarehouseID: m.WarehouseID,
				LocationID:  m.LocationID,
				ItemID:      m.ItemID,
			}
		}
		b.Quantity += m.SignedQuantity()
		b.LastMovementAt = m.CreatedAt
		b.UpdatedAt = m.CreatedAt
		r.s.st.balances[k] = b
		r.s.st.movements = append(r.s.st.movements, m)
	}
	return nil
}

func (r *StockRepo) Balances(_ context.Context, companyID id.ID, filter stock.BalanceFilter) ([]entity.StockBalance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.StockBalance
	for k, b := range r.s.st.balances {
		if k.CompanyID != companyID || k.WarehouseID != filter.WarehouseID {
			continue
		}
		if filter.ItemID != nil && k.ItemID != *filter.ItemID {
			continue
		}
		if !filter.IncludeZero && b.Quantity.IsZero() {
			continue
		}
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b entity.StockBalance) int {
		return strings.Compare(a.ItemID.String()+a.LocationID.String(), b.ItemID.String()+b.LocationID.String())
	})
	return out, nil
}

func (r *StockRepo) Movements(_ context.Context, companyID, recorderID id.ID) ([]entity.StockMovement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []entity.StockMovement
	for _, m := range r.s.st.movements {
		if m.CompanyID == companyID && m.RecorderID == recorderID {
			out = append(out, m)
		}
	}
	return out, nil
}
