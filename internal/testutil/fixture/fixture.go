// Package fixture wires the fulfillment services over one in-memory store
// the way cmd/server wires them over PostgreSQL.
package fixture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/audit"
	"stockflow/internal/domain/documents/delivery_note"
	"stockflow/internal/domain/documents/pick_list"
	"stockflow/internal/domain/documents/stock_request"
	"stockflow/internal/domain/fulfillment"
	"stockflow/internal/domain/registers/stock"
	"stockflow/internal/domain/tracking"
	"stockflow/internal/testutil"
	"stockflow/internal/testutil/memstore"
)

// Warehouses and items used by the scenarios.
var (
	RequestingWarehouse = id.MustParse("01900000-0000-7000-8000-0000000000a1")
	FulfillingWarehouse = id.MustParse("01900000-0000-7000-8000-0000000000a2")
	ItemA               = id.MustParse("01900000-0000-7000-8000-0000000000b1")
	ItemB               = id.MustParse("01900000-0000-7000-8000-0000000000b2")
	Each                = id.MustParse("01900000-0000-7000-8000-0000000000c1")
)

// Journal records audit entries in memory.
type Journal struct {
	Entries []audit.Entry
}

// Record implements audit.Recorder.
func (j *Journal) Record(_ context.Context, e audit.Entry) error {
	j.Entries = append(j.Entries, e)
	return nil
}

// Events returns the event types recorded so far.
func (j *Journal) Events() []string {
	out := make([]string, 0, len(j.Entries))
	for _, e := range j.Entries {
		out = append(out, e.EventType())
	}
	return out
}

// Pipeline holds the wired services.
type Pipeline struct {
	Store     *memstore.Store
	Tx        *testutil.TxManager
	Journal   *Journal
	Scope     tenant.Scope
	Requests  *stock_request.Service
	Notes     *delivery_note.Service
	PickLists *pick_list.Service
	Ledger    *stock.Ledger
	Tracking  *tracking.Service
}

// New wires a pipeline over an empty store.
func New(t *testing.T) *Pipeline {
	t.Helper()

	store := memstore.New()
	txm := testutil.NewTxManager(store)
	num := testutil.NewNumerator()
	journal := &Journal{}

	ledger := stock.NewLedger(store.Stock(), txm)
	notes := delivery_note.NewService(store.DeliveryNotes(), store.StockRequests(), store.PickLists(), ledger, num, txm)
	requests := stock_request.NewService(store.StockRequests(), notes, num, txm)
	pickLists := pick_list.NewService(store.PickLists(), notes, num, txm)

	audit.Register(requests.Hooks(), journal)
	audit.Register(notes.Hooks(), journal)
	audit.Register(pickLists.Hooks(), journal)

	return &Pipeline{
		Store:     store,
		Tx:        txm,
		Journal:   journal,
		Scope:     testutil.Scope(),
		Requests:  requests,
		Notes:     notes,
		PickLists: pickLists,
		Ledger:    ledger,
		Tracking:  tracking.NewService(store.StockRequests(), store.DeliveryNotes(), store.PickLists(), txm),
	}
}

// Units converts whole units to a quantity.
func Units(n int64) types.Quantity {
	return types.NewQuantity(n)
}

// RequestInput builds a create payload with one line per qty (ItemA, then
// ItemB).
func (p *Pipeline) RequestInput(qty ...int64) stock_request.CreateInput {
	items := []id.ID{ItemA, ItemB}
	in := stock_request.CreateInput{
		RequestingWarehouseID: RequestingWarehouse,
		FulfillingWarehouseID: FulfillingWarehouse,
	}
	for i, q := range qty {
		in.Items = append(in.Items, stock_request.NewItem{ItemID: items[i], UomID: Each, RequestedQty: Units(q)})
	}
	return in
}

// ApprovedRequest creates and approves a request built by RequestInput.
func (p *Pipeline) ApprovedRequest(t *testing.T, qty ...int64) *stock_request.StockRequest {
	t.Helper()
	ctx := context.Background()

	in := p.RequestInput(qty...)
	sr, err := p.Requests.Create(ctx, p.Scope, in)
	require.NoError(t, err)
	_, err = p.Requests.Submit(ctx, p.Scope, sr.ID)
	require.NoError(t, err)
	sr, err = p.Requests.Approve(ctx, p.Scope, sr.ID)
	require.NoError(t, err)
	return sr
}

// Note allocates every line of sr in full into a new draft note.
func (p *Pipeline) Note(t *testing.T, sr *stock_request.StockRequest) *delivery_note.DeliveryNote {
	t.Helper()
	in := delivery_note.CreateInput{StockRequestIDs: []id.ID{sr.ID}}
	for _, it := range sr.Items {
		in.Items = append(in.Items, delivery_note.Allocation{StockRequestItemID: it.ID, AllocatedQty: it.RequestedQty})
	}
	dn, err := p.Notes.Create(context.Background(), p.Scope, in)
	require.NoError(t, err)
	return dn
}

// ReadyNote drives a full allocation of sr to dispatch_ready with the given
// picked quantities per line, via a pick list.
func (p *Pipeline) ReadyNote(t *testing.T, sr *stock_request.StockRequest, picked ...int64) *delivery_note.DeliveryNote {
	t.Helper()
	ctx := context.Background()

	dn := p.Note(t, sr)
	_, err := p.Notes.Confirm(ctx, p.Scope, dn.ID)
	require.NoError(t, err)

	pl, err := p.PickLists.Create(ctx, p.Scope, dn.ID, []string{"picker-1"})
	require.NoError(t, err)
	_, err = p.PickLists.UpdateStatus(ctx, p.Scope, pl.ID, fulfillment.PickInProgress)
	require.NoError(t, err)

	lines := make([]delivery_note.PickedLine, 0, len(picked))
	for i, q := range picked {
		lines = append(lines, delivery_note.PickedLine{DeliveryNoteItemID: dn.Items[i].ID, PickedQty: Units(q)})
	}
	res, err := p.Notes.MarkDispatchReady(ctx, p.Scope, dn.ID, lines)
	require.NoError(t, err)
	return res.Note
}

// Stock seeds the fulfilling warehouse's unassigned location.
func (p *Pipeline) Stock(item id.ID, qty int64) {
	p.Store.SetBalance(p.Scope.CompanyID, FulfillingWarehouse, id.ID{}, item, Units(qty))
}
