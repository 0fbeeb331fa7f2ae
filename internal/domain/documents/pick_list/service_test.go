package pick_list_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
	"stockflow/internal/domain/documents/delivery_note"
	"stockflow/internal/domain/documents/pick_list"
	"stockflow/internal/domain/fulfillment"
	"stockflow/internal/testutil/fixture"
)

func confirmedNote(t *testing.T, p *fixture.Pipeline, qty ...int64) *delivery_note.DeliveryNote {
	t.Helper()
	dn := p.Note(t, p.ApprovedRequest(t, qty...))
	dn, err := p.Notes.Confirm(context.Background(), p.Scope, dn.ID)
	require.NoError(t, err)
	return dn
}

func TestCreate_QueuesConfirmedNote(t *testing.T) {
	p := fixture.New(t)
	ctx := context.Background()
	dn := confirmedNote(t, p, 10, 20)

	pl, err := p.PickLists.Create(ctx, p.Scope, dn.ID, []string{"picker-1", "picker-1", " picker-2 "})
	require.NoError(t, err)
	assert.Equal(t, fulfillment.PickPending, pl.Status)
	assert.Equal(t, []string{"picker-1", "picker-2"}, pl.PickerUserIDs)
	require.Len(t, pl.Items, 2)
	assert.Equal(t, dn.Items[1].ID, pl.Items[1].DeliveryNoteItemID)
	assert.Equal(t, fixture.Units(20), pl.Items[1].AllocatedQty)

	got, err := p.Notes.Get(ctx, p.Scope, dn.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.NoteQueuedForPicking, got.Status)

	second, err := p.PickLists.Create(ctx, p.Scope, dn.ID, nil)
	require.NoError(t, err, "a queued note accepts further pick lists")
	assert.NotEqual(t, pl.Number, second.Number)
}

func TestCreate_RejectsNoteOutsidePickingWindow(t *testing.T) {
	p := fixture.New(t)
	dn := p.Note(t, p.ApprovedRequest(t, 10))

	_, err := p.PickLists.Create(context.Background(), p.Scope, dn.ID, nil)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)
	assert.Equal(t, "draft", appErr.Details["currentStatus"])
}

func TestUpdateStatus_DrivesNoteOnlyOnStart(t *testing.T) {
	p := fixture.New(t)
	ctx := context.Background()
	dn := confirmedNote(t, p, 10)
	pl, err := p.PickLists.Create(ctx, p.Scope, dn.ID, nil)
	require.NoError(t, err)

	steps := []struct {
		target     fulfillment.PickStatus
		wantNote   fulfillment.NoteStatus
		wantFailed bool
	}{
		{fulfillment.PickDone, fulfillment.NoteQueuedForPicking, true},
		{fulfillment.PickInProgress, fulfillment.NotePickingInProgress, false},
		{fulfillment.PickPaused, fulfillment.NotePickingInProgress, false},
		{fulfillment.PickInProgress, fulfillment.NotePickingInProgress, false},
		{fulfillment.PickDone, fulfillment.NotePickingInProgress, false},
		{fulfillment.PickCancelled, fulfillment.NotePickingInProgress, true},
		{fulfillment.PickPending, fulfillment.NotePickingInProgress, true},
	}

	for _, step := range steps {
		_, err := p.PickLists.UpdateStatus(ctx, p.Scope, pl.ID, step.target)
		if step.wantFailed {
			assert.Error(t, err, "-> %s", step.target)
		} else {
			require.NoError(t, err, "-> %s", step.target)
		}
		got, err := p.Notes.Get(ctx, p.Scope, dn.ID)
		require.NoError(t, err)
		assert.Equal(t, step.wantNote, got.Status, "after -> %s", step.target)
	}

	got, err := p.PickLists.Get(ctx, p.Scope, pl.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.PickDone, got.Status)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)

	note, err := p.Notes.Get(ctx, p.Scope, dn.ID)
	require.NoError(t, err)
	assert.NotNil(t, note.PickingStartedAt)
}

func TestUpdateStatus_VoidedNoteCannotStartPicking(t *testing.T) {
	p := fixture.New(t)
	ctx := context.Background()
	dn := confirmedNote(t, p, 10)
	pl, err := p.PickLists.Create(ctx, p.Scope, dn.ID, nil)
	require.NoError(t, err)
	_, err = p.Notes.Void(ctx, p.Scope, dn.ID, "cancelled order")
	require.NoError(t, err)

	_, err = p.PickLists.UpdateStatus(ctx, p.Scope, pl.ID, fulfillment.PickInProgress)
	assert.True(t, apperror.IsInvalidTransition(err))

	got, err := p.PickLists.Get(ctx, p.Scope, pl.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.PickPending, got.Status)
}

func TestUpdateItems(t *testing.T) {
	p := fixture.New(t)
	ctx := context.Background()
	dn := confirmedNote(t, p, 10)
	pl, err := p.PickLists.Create(ctx, p.Scope, dn.ID, nil)
	require.NoError(t, err)
	line := pl.Items[0].ID
	set := func(q int64) []pick_list.ItemProgress {
		return []pick_list.ItemProgress{{PickListItemID: line, PickedQty: fixture.Units(q)}}
	}

	_, err = p.PickLists.UpdateItems(ctx, p.Scope, pl.ID, set(3))
	assert.True(t, apperror.IsInvalidTransition(err), "pending pick list: %v", err)

	_, err = p.PickLists.UpdateStatus(ctx, p.Scope, pl.ID, fulfillment.PickInProgress)
	require.NoError(t, err)

	tests := []struct {
		name    string
		qty     int64
		wantErr bool
		want    int64
	}{
		{"first count", 4, false, 4},
		{"recount replaces", 7, false, 7},
		{"above allocation", 11, true, 7},
		{"negative", -1, true, 7},
		{"full", 10, false, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.PickLists.UpdateItems(ctx, p.Scope, pl.ID, set(tt.qty))
			if tt.wantErr {
				assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
			} else {
				require.NoError(t, err)
			}

			got, err := p.PickLists.Get(ctx, p.Scope, pl.ID)
			require.NoError(t, err)
			assert.Equal(t, fixture.Units(tt.want), got.Items[0].PickedQty)

			note, err := p.Notes.Get(ctx, p.Scope, dn.ID)
			require.NoError(t, err)
			assert.Equal(t, fixture.Units(tt.want), note.Items[0].Picked)
		})
	}
}

func TestDelete(t *testing.T) {
	p := fixture.New(t)
	ctx := context.Background()
	dn := confirmedNote(t, p, 10)

	active, err := p.PickLists.Create(ctx, p.Scope, dn.ID, nil)
	require.NoError(t, err)
	_, err = p.PickLists.UpdateStatus(ctx, p.Scope, active.ID, fulfillment.PickInProgress)
	require.NoError(t, err)
	err = p.PickLists.Delete(ctx, p.Scope, active.ID)
	assert.True(t, apperror.IsInvalidTransition(err))

	spare, err := p.PickLists.Create(ctx, p.Scope, confirmedNote(t, p, 5).ID, nil)
	require.NoError(t, err)
	require.NoError(t, p.PickLists.Delete(ctx, p.Scope, spare.ID))

	_, err = p.PickLists.Get(ctx, p.Scope, spare.ID)
	assert.True(t, apperror.IsNotFound(err))

	lists, err := p.PickLists.ListByNote(ctx, p.Scope, dn.ID)
	require.NoError(t, err)
	assert.Len(t, lists, 1)
	assert.Contains(t, p.Journal.Events(), "pick_list.deleted")
}

func TestExportSheet(t *testing.T) {
	p := fixture.New(t)
	ctx := context.Background()
	dn := confirmedNote(t, p, 10, 4)
	pl, err := p.PickLists.Create(ctx, p.Scope, dn.ID, []string{"picker-1"})
	require.NoError(t, err)

	f, name, err := p.PickLists.ExportSheet(ctx, p.Scope, pl.ID)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, pl.Number+".xlsx", name)
	v, err := f.GetCellValue("Pick list", "B1")
	require.NoError(t, err)
	assert.Equal(t, pl.Number, v)
	v, err = f.GetCellValue("Pick list", "B2")
	require.NoError(t, err)
	assert.Equal(t, dn.Number, v)

	rows, err := f.GetRows("Pick list")
	require.NoError(t, err)
	assert.Len(t, rows, 6+1+1+2)
	assert.Equal(t, "Allocated", rows[7][3])
	assert.Equal(t, "10", rows[8][3])
}
