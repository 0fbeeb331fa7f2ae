package tracking_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/documents/delivery_note"
	"stockflow/internal/domain/fulfillment"
	"stockflow/internal/testutil"
	"stockflow/internal/testutil/fixture"
)

func TestStockRequestStatus_Progression(t *testing.T) {
	p := fixture.New(t)
	ctx := context.Background()
	p.Stock(fixture.ItemA, 100)

	sr := p.ApprovedRequest(t, 100)
	status := func() fulfillment.DerivedStatus {
		t.Helper()
		view, err := p.Tracking.StockRequestStatus(ctx, p.Scope, sr.ID)
		require.NoError(t, err)
		return view.DerivedStatus
	}
	split := func(q int64) *delivery_note.DeliveryNote {
		dn, err := p.Notes.Create(ctx, p.Scope, delivery_note.CreateInput{
			StockRequestIDs: []id.ID{sr.ID},
			Items:           []delivery_note.Allocation{{StockRequestItemID: sr.Items[0].ID, AllocatedQty: fixture.Units(q)}},
		})
		require.NoError(t, err)
		return dn
	}

	assert.Equal(t, fulfillment.DerivedPendingDeliveryNote, status())

	first := split(50)
	assert.Equal(t, fulfillment.DerivedAwaitingConfirmation, status())

	_, err := p.Notes.Confirm(ctx, p.Scope, first.ID)
	require.NoError(t, err)
	pl, err := p.PickLists.Create(ctx, p.Scope, first.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.DerivedQueuedForPicking, status())

	_, err = p.PickLists.UpdateStatus(ctx, p.Scope, pl.ID, fulfillment.PickInProgress)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.DerivedPickingInProgress, status())

	_, err = p.Notes.MarkDispatchReady(ctx, p.Scope, first.ID, []delivery_note.PickedLine{
		{DeliveryNoteItemID: first.Items[0].ID, PickedQty: fixture.Units(50)},
	})
	require.NoError(t, err)
	_, err = p.Notes.Dispatch(ctx, p.Scope, first.ID, delivery_note.DispatchInput{})
	require.NoError(t, err)
	assert.Equal(t, fulfillment.DerivedInTransit, status())

	second := split(50)
	assert.Equal(t, fulfillment.DerivedInTransit, status(), "most advanced note wins")

	_, err = p.Notes.Receive(ctx, p.Scope, first.ID, delivery_note.ReceiveInput{})
	require.NoError(t, err)
	assert.Equal(t, fulfillment.DerivedPartiallyReceived, status())

	_, err = p.Notes.Void(ctx, p.Scope, second.ID, "not needed")
	require.NoError(t, err)
	assert.Equal(t, fulfillment.DerivedReceived, status())

	view, err := p.Tracking.StockRequestStatus(ctx, p.Scope, sr.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.RequestApproved, view.Status, "stored status is untouched")
	assert.Len(t, view.DeliveryNotes, 2)
}

func TestDeliveryNoteStatus_Totals(t *testing.T) {
	p := fixture.New(t)
	ctx := context.Background()
	p.Stock(fixture.ItemA, 100)
	p.Stock(fixture.ItemB, 100)

	dn := p.ReadyNote(t, p.ApprovedRequest(t, 10, 20), 8, 20)
	_, err := p.Notes.Dispatch(ctx, p.Scope, dn.ID, delivery_note.DispatchInput{})
	require.NoError(t, err)

	view, err := p.Tracking.DeliveryNoteStatus(ctx, p.Scope, dn.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.DerivedInTransit, view.DerivedStatus)
	require.NotNil(t, view.Totals)
	assert.Equal(t, fixture.Units(30), view.Totals.Allocated)
	assert.Equal(t, fixture.Units(28), view.Totals.Picked)
	assert.Equal(t, fixture.Units(2), view.Totals.Short)
	assert.Equal(t, fixture.Units(28), view.Totals.Dispatched)
	assert.True(t, view.Totals.Received.IsZero())
	assert.Equal(t, []fulfillment.PickStatus{fulfillment.PickInProgress}, view.PickLists)
}

func TestStatus_NeverWrites(t *testing.T) {
	p := fixture.New(t)
	sr := p.ApprovedRequest(t, 10)
	before := p.Tx.Commits

	_, err := p.Tracking.StockRequestStatus(context.Background(), p.Scope, sr.ID)
	require.NoError(t, err)
	assert.Equal(t, before, p.Tx.Commits)

	_, err = p.Tracking.StockRequestStatus(context.Background(), testutil.OtherScope(), sr.ID)
	assert.True(t, apperror.IsNotFound(err))
}
