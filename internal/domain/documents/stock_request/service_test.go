package stock_request_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain"
	"stockflow/internal/domain/documents/delivery_note"
	"stockflow/internal/domain/documents/stock_request"
	"stockflow/internal/domain/fulfillment"
	"stockflow/internal/testutil"
	"stockflow/internal/testutil/fixture"
)

func TestCreate_Validation(t *testing.T) {
	p := fixture.New(t)

	tests := []struct {
		name   string
		mutate func(in *stock_request.CreateInput)
	}{
		{"no items", func(in *stock_request.CreateInput) { in.Items = nil }},
		{"same warehouse", func(in *stock_request.CreateInput) { in.FulfillingWarehouseID = in.RequestingWarehouseID }},
		{"missing warehouse", func(in *stock_request.CreateInput) { in.RequestingWarehouseID = id.ID{} }},
		{"zero quantity", func(in *stock_request.CreateInput) { in.Items[0].RequestedQty = 0 }},
		{"missing uom", func(in *stock_request.CreateInput) { in.Items[0].UomID = id.ID{} }},
		{"unknown priority", func(in *stock_request.CreateInput) { in.Priority = "asap" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := p.RequestInput(10)
			tt.mutate(&in)
			_, err := p.Requests.Create(context.Background(), p.Scope, in)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
		})
	}
}

func TestCreate_AssignsNumberAndDraft(t *testing.T) {
	p := fixture.New(t)
	in := p.RequestInput(10, 5)
	in.Notes = "urgent for the weekend"
	in.Priority = stock_request.PriorityHigh

	sr, err := p.Requests.Create(context.Background(), p.Scope, in)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.RequestDraft, sr.Status)
	assert.True(t, strings.HasPrefix(sr.Number, "SR-"))
	assert.Len(t, sr.Items, 2)
	assert.Contains(t, sr.Notes, "urgent for the weekend")
	assert.Equal(t, []string{"stock_request.created"}, p.Journal.Events())
}

func TestLifecycle_Transitions(t *testing.T) {
	p := fixture.New(t)
	ctx := context.Background()

	sr, err := p.Requests.Create(ctx, p.Scope, p.RequestInput(10))
	require.NoError(t, err)

	_, err = p.Requests.Approve(ctx, p.Scope, sr.ID)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)
	assert.Contains(t, appErr.Message, `"draft"`)

	sr, err = p.Requests.Submit(ctx, p.Scope, sr.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.RequestSubmitted, sr.Status)

	sr, err = p.Requests.Approve(ctx, p.Scope, sr.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.RequestApproved, sr.Status)

	_, err = p.Requests.Submit(ctx, p.Scope, sr.ID)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestReject(t *testing.T) {
	p := fixture.New(t)
	ctx := context.Background()

	sr, err := p.Requests.Create(ctx, p.Scope, p.RequestInput(10))
	require.NoError(t, err)

	_, err = p.Requests.Reject(ctx, p.Scope, sr.ID, "no reason")
	assert.True(t, apperror.IsInvalidTransition(err), "draft cannot be rejected")

	_, err = p.Requests.Submit(ctx, p.Scope, sr.ID)
	require.NoError(t, err)

	_, err = p.Requests.Reject(ctx, p.Scope, sr.ID, "")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	sr, err = p.Requests.Reject(ctx, p.Scope, sr.ID, "budget frozen")
	require.NoError(t, err)
	assert.Equal(t, fulfillment.RequestCancelled, sr.Status)
	assert.Contains(t, sr.Notes, "rejected: budget frozen")
}

func TestCancel_VoidsOwnNotesAndWarnsAboutOthers(t *testing.T) {
	p := fixture.New(t)
	ctx := context.Background()
	p.Stock(fixture.ItemA, 100)

	sr := p.ApprovedRequest(t, 100)
	other := p.ApprovedRequest(t, 10)
	line := sr.Items[0].ID

	own, err := p.Notes.Create(ctx, p.Scope, delivery_note.CreateInput{
		StockRequestIDs: []id.ID{sr.ID},
		Items:           []delivery_note.Allocation{{StockRequestItemID: line, AllocatedQty: fixture.Units(30)}},
	})
	require.NoError(t, err)

	shared, err := p.Notes.Create(ctx, p.Scope, delivery_note.CreateInput{
		StockRequestIDs: []id.ID{sr.ID, other.ID},
		Items: []delivery_note.Allocation{
			{StockRequestItemID: line, AllocatedQty: fixture.Units(30)},
			{StockRequestItemID: other.Items[0].ID, AllocatedQty: fixture.Units(10)},
		},
	})
	require.NoError(t, err)

	shippedIn := delivery_note.CreateInput{
		StockRequestIDs: []id.ID{sr.ID},
		Items:           []delivery_note.Allocation{{StockRequestItemID: line, AllocatedQty: fixture.Units(40)}},
	}
	shipped, err := p.Notes.Create(ctx, p.Scope, shippedIn)
	require.NoError(t, err)
	_, err = p.Notes.Confirm(ctx, p.Scope, shipped.ID)
	require.NoError(t, err)
	pl, err := p.PickLists.Create(ctx, p.Scope, shipped.ID, nil)
	require.NoError(t, err)
	_, err = p.PickLists.UpdateStatus(ctx, p.Scope, pl.ID, fulfillment.PickInProgress)
	require.NoError(t, err)
	_, err = p.Notes.MarkDispatchReady(ctx, p.Scope, shipped.ID, []delivery_note.PickedLine{
		{DeliveryNoteItemID: shipped.Items[0].ID, PickedQty: fixture.Units(40)},
	})
	require.NoError(t, err)
	_, err = p.Notes.Dispatch(ctx, p.Scope, shipped.ID, delivery_note.DispatchInput{})
	require.NoError(t, err)

	res, err := p.Requests.Cancel(ctx, p.Scope, sr.ID, "site closed")
	require.NoError(t, err)
	assert.Equal(t, fulfillment.RequestCancelled, res.Request.Status)
	assert.Len(t, res.Warnings, 2)

	got, err := p.Notes.Get(ctx, p.Scope, own.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.NoteVoided, got.Status)
	assert.Contains(t, got.VoidReason, "site closed")

	got, err = p.Notes.Get(ctx, p.Scope, shared.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.NoteDraft, got.Status)

	got, err = p.Notes.Get(ctx, p.Scope, shipped.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.NoteDispatched, got.Status)
}

func TestCancel_NotAfterCompletion(t *testing.T) {
	p := fixture.New(t)
	ctx := context.Background()
	p.Stock(fixture.ItemA, 100)

	sr := p.ApprovedRequest(t, 10)
	dn := p.ReadyNote(t, sr, 10)
	_, err := p.Notes.Dispatch(ctx, p.Scope, dn.ID, delivery_note.DispatchInput{})
	require.NoError(t, err)

	_, err = p.Requests.Complete(ctx, p.Scope, sr.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "nothing received yet: %v", err)

	_, err = p.Notes.Receive(ctx, p.Scope, dn.ID, delivery_note.ReceiveInput{})
	require.NoError(t, err)

	done, err := p.Requests.Complete(ctx, p.Scope, sr.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.RequestCompleted, done.Status)

	_, err = p.Requests.Cancel(ctx, p.Scope, sr.ID, "late")
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestGet_ScopedToTenant(t *testing.T) {
	p := fixture.New(t)
	sr := p.ApprovedRequest(t, 10)

	_, err := p.Requests.Get(context.Background(), testutil.OtherScope(), sr.ID)
	assert.True(t, apperror.IsNotFound(err))

	res, err := p.Requests.List(context.Background(), testutil.OtherScope(), domain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
}
