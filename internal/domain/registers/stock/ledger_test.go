package stock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/documents/delivery_note"
	"stockflow/internal/domain/registers/stock"
	"stockflow/internal/testutil"
	"stockflow/internal/testutil/memstore"
)

var (
	warehouse = id.MustParse("01900000-0000-7000-8000-0000000000e1")
	itemA     = id.MustParse("01900000-0000-7000-8000-0000000000e2")
	itemB     = id.MustParse("01900000-0000-7000-8000-0000000000e3")
)

func newLedger() (*stock.Ledger, *memstore.Store) {
	store := memstore.New()
	return stock.NewLedger(store.Stock(), testutil.NewTxManager(store)), store
}

func dispatch(lines ...delivery_note.PostingLine) delivery_note.DispatchPosting {
	return delivery_note.DispatchPosting{
		CompanyID:      testutil.CompanyID,
		UserID:         testutil.UserID,
		DeliveryNoteID: id.New(),
		WarehouseID:    warehouse,
		DispatchDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Lines:          lines,
	}
}

func line(item id.ID, qty int64) delivery_note.PostingLine {
	return delivery_note.PostingLine{DeliveryNoteItemID: id.New(), ItemID: item, Qty: types.NewQuantity(qty)}
}

func TestPostDispatch_AggregatesLinesPerItem(t *testing.T) {
	ledger, store := newLedger()
	store.SetBalance(testutil.CompanyID, warehouse, entity.UnassignedLocation, itemA, types.NewQuantity(10))

	err := ledger.PostDispatch(context.Background(), dispatch(line(itemA, 6), line(itemA, 5)))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodePostingFailure, appErr.Code)

	shortages, ok := appErr.Details["lines"].([]stock.Shortage)
	require.True(t, ok)
	require.Len(t, shortages, 1)
	assert.Equal(t, stock.Shortage{ItemID: itemA, Requested: types.NewQuantity(11), Available: types.NewQuantity(10)}, shortages[0])
	assert.Equal(t, types.NewQuantity(10), store.OnHand(testutil.CompanyID, warehouse, itemA))
}

func TestPostDispatch_AllOrNothing(t *testing.T) {
	ledger, store := newLedger()
	store.SetBalance(testutil.CompanyID, warehouse, entity.UnassignedLocation, itemA, types.NewQuantity(10))

	err := ledger.PostDispatch(context.Background(), dispatch(line(itemA, 5), line(itemB, 1)))
	require.True(t, apperror.HasCode(err, apperror.CodePostingFailure))

	assert.Equal(t, types.NewQuantity(10), store.OnHand(testutil.CompanyID, warehouse, itemA))
	assert.Zero(t, store.MovementCount())
}

func TestPostDispatch_IgnoresOtherCompanies(t *testing.T) {
	ledger, store := newLedger()
	store.SetBalance(testutil.OtherCompanyID, warehouse, entity.UnassignedLocation, itemA, types.NewQuantity(100))

	err := ledger.PostDispatch(context.Background(), dispatch(line(itemA, 1)))
	assert.True(t, apperror.HasCode(err, apperror.CodePostingFailure))
}

func TestPostReceipt_BooksToLocation(t *testing.T) {
	ledger, store := newLedger()
	bin := id.MustParse("01900000-0000-7000-8000-0000000000e4")
	ctx := context.Background()

	err := ledger.PostReceipt(ctx, delivery_note.ReceiptPosting{
		CompanyID:      testutil.CompanyID,
		UserID:         testutil.UserID,
		DeliveryNoteID: id.New(),
		WarehouseID:    warehouse,
		Lines: []delivery_note.PostingLine{
			{ItemID: itemA, Qty: types.NewQuantity(3), LocationID: bin},
			{ItemID: itemA, Qty: types.NewQuantity(2)},
		},
	})
	require.NoError(t, err)

	balances, err := ledger.Balances(ctx, testutil.CompanyID, stock.BalanceFilter{WarehouseID: warehouse})
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, types.NewQuantity(5), store.OnHand(testutil.CompanyID, warehouse, itemA))
}

func TestPost_ValidatesLines(t *testing.T) {
	ledger, _ := newLedger()

	tests := []struct {
		name  string
		lines []delivery_note.PostingLine
	}{
		{"empty", nil},
		{"zero quantity", []delivery_note.PostingLine{line(itemA, 0)}},
		{"missing item", []delivery_note.PostingLine{line(id.ID{}, 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ledger.PostDispatch(context.Background(), dispatch(tt.lines...))
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
		})
	}
}

func TestBalances_RequiresWarehouse(t *testing.T) {
	ledger, _ := newLedger()
	_, err := ledger.Balances(context.Background(), testutil.CompanyID, stock.BalanceFilter{})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
