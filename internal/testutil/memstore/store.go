// Package memstore implements the document and register repositories in
// memory for service tests. One Store backs all repositories so cross-table
// rollups and rollback behave as they do against one database.
package memstore

import (
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/core/types"
	"stockflow/internal/domain"
	"stockflow/internal/domain/documents/delivery_note"
	"stockflow/internal/domain/documents/pick_list"
	"stockflow/internal/domain/documents/stock_request"
)

type balanceKey struct {
	CompanyID id.ID
	entity.BalanceKey
}

type state struct {
	requests     map[id.ID]stock_request.StockRequest
	requestItems map[id.ID][]stock_request.StockRequestItem
	notes        map[id.ID]delivery_note.DeliveryNote
	noteSources  map[id.ID][]delivery_note.Source
	noteItems    map[id.ID][]delivery_note.Item
	pickLists    map[id.ID]pick_list.PickList
	pickItems    map[id.ID][]pick_list.Item
	balances     map[balanceKey]entity.StockBalance
	movements    []entity.StockMovement
}

func (s state) clone() state {
	return state{
		requests:     maps.Clone(s.requests),
		requestItems: cloneLines(s.requestItems),
		notes:        maps.Clone(s.notes),
		noteSources:  cloneLines(s.noteSources),
		noteItems:    cloneLines(s.noteItems),
		pickLists:    maps.Clone(s.pickLists),
		pickItems:    cloneLines(s.pickItems),
		balances:     maps.Clone(s.balances),
		movements:    slices.Clone(s.movements),
	}
}

func cloneLines[T any](m map[id.ID][]T) map[id.ID][]T {
	out := make(map[id.ID][]T, len(m))
	for k, v := range m {
		out[k] = slices.Clone(v)
	}
	return out
}

// Store is the in-memory database.
type Store struct {
	mu sync.Mutex
	st state

	// FailOn makes the named operation fail, e.g. "dn.update".
	FailOn map[string]error
}

// New creates an empty store.
func New() *Store {
	return &Store{
		st: state{
			requests:     make(map[id.ID]stock_request.StockRequest),
			requestItems: make(map[id.ID][]stock_request.StockRequestItem),
			notes:        make(map[id.ID]delivery_note.DeliveryNote),
			noteSources:  make(map[id.ID][]delivery_note.Source),
			noteItems:    make(map[id.ID][]delivery_note.Item),
			pickLists:    make(map[id.ID]pick_list.PickList),
			pickItems:    make(map[id.ID][]pick_list.Item),
			balances:     make(map[balanceKey]entity.StockBalance),
		},
		FailOn: make(map[string]error),
	}
}

// Snapshot implements testutil.Snapshotter.
func (s *Store) Snapshot() func() {
	s.mu.Lock()
	saved := s.st.clone()
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.st = saved
		s.mu.Unlock()
	}
}

func (s *Store) fail(op string) error {
	return s.FailOn[op]
}

// SetBalance seeds on-hand stock.
func (s *Store) SetBalance(companyID, warehouseID, locationID, itemID id.ID, qty types.Quantity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := balanceKey{CompanyID: companyID, BalanceKey: entity.BalanceKey{WarehouseID: warehouseID, LocationID: locationID, ItemID: itemID}}
	s.st.balances[k] = entity.StockBalance{
		CompanyID:   companyID,
		WarehouseID: warehouseID,
		LocationID:  locationID,
		ItemID:      itemID,
		Quantity:    qty,
	}
}

// OnHand sums an item's balance over all locations of a warehouse.
func (s *Store) OnHand(companyID, warehouseID, itemID id.ID) types.Quantity {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total types.Quantity
	for k, b := range s.st.balances {
		if k.CompanyID == companyID && k.WarehouseID == warehouseID && k.ItemID == itemID {
			total += b.Quantity
		}
	}
	return total
}

// MovementCount returns how many movements were posted.
func (s *Store) MovementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.movements)
}

// StockRequests returns the stock request repository.
func (s *Store) StockRequests() *StockRequestRepo { return &StockRequestRepo{s: s} }

// DeliveryNotes returns the delivery note repository.
func (s *Store) DeliveryNotes() *DeliveryNoteRepo { return &DeliveryNoteRepo{s: s} }

// PickLists returns the pick list repository.
func (s *Store) PickLists() *PickListRepo { return &PickListRepo{s: s} }

// Stock returns the stock register repository.
func (s *Store) Stock() *StockRepo { return &StockRepo{s: s} }

func visible(doc entity.BaseDocument, scope tenant.Scope) bool {
	return doc.VisibleTo(scope)
}

func notFound(entityName string, v id.ID) error {
	return apperror.NewNotFound(entityName, v)
}

func page[T any](items []T, filter domain.ListFilter) domain.ListResult[T] {
	total := len(items)
	start := min(filter.Offset, total)
	end := min(start+filter.Limit, total)
	return domain.ListResult[T]{
		Items:      items[start:end],
		TotalCount: int64(total),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
}

func matchesFilter(status string, number string, reqWh, fulWh id.ID, f domain.ListFilter) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, status) {
		return false
	}
	if f.WarehouseID != nil && *f.WarehouseID != reqWh && *f.WarehouseID != fulWh {
		return false
	}
	if f.Search != "" && !strings.HasPrefix(number, f.Search) {
		return false
	}
	return true
}

func sortByCreated[T any](items []T, key func(T) string) {
	sort.SliceStable(items, func(i, j int) bool { return key(items[i]) > key(items[j]) })
}
