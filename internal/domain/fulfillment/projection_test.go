package fulfillment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectNote_CoversEveryStatus(t *testing.T) {
	for _, s := range NoteStatuses {
		got := ProjectNote(NoteSnapshot{Status: s})
		assert.NotEmpty(t, got, "status %s", s)
		if s != NoteVoided {
			assert.Positive(t, rank[got], "status %s must have a rank", s)
		}
	}
}

func TestProjectNote_QueuedWithStartedPickList(t *testing.T) {
	n := NoteSnapshot{Status: NoteQueuedForPicking, PickLists: []PickStatus{PickCancelled, PickPending}}
	assert.Equal(t, DerivedQueuedForPicking, ProjectNote(n))

	n.PickLists = append(n.PickLists, PickPaused)
	assert.Equal(t, DerivedPickingInProgress, ProjectNote(n))
}

func TestComputeDerivedStatus(t *testing.T) {
	note := func(s NoteStatus) NoteSnapshot { return NoteSnapshot{Status: s} }

	tests := []struct {
		name  string
		notes []NoteSnapshot
		want  DerivedStatus
	}{
		{"no notes", nil, DerivedPendingDeliveryNote},
		{"draft", []NoteSnapshot{note(NoteDraft)}, DerivedAwaitingConfirmation},
		{"confirmed", []NoteSnapshot{note(NoteConfirmed)}, DerivedQueuedForPicking},
		{"one received one dispatched", []NoteSnapshot{note(NoteReceived), note(NoteDispatched)}, DerivedPartiallyReceived},
		{"all received", []NoteSnapshot{note(NoteReceived), note(NoteReceived)}, DerivedReceived},
		{"received plus voided", []NoteSnapshot{note(NoteReceived), note(NoteVoided)}, DerivedReceived},
		{"all voided", []NoteSnapshot{note(NoteVoided), note(NoteVoided)}, DerivedVoided},
		{"most advanced wins", []NoteSnapshot{note(NoteDraft), note(NoteDispatchReady), note(NotePickingInProgress)}, DerivedReadyToDispatch},
		{"in transit", []NoteSnapshot{note(NoteDispatched), note(NoteConfirmed)}, DerivedInTransit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeDerivedStatus(tt.notes))
		})
	}
}

func TestComputeDerivedStatus_DoesNotMutateInput(t *testing.T) {
	notes := []NoteSnapshot{{Status: NoteReceived}, {Status: NoteDispatched}}
	first := ComputeDerivedStatus(notes)
	second := ComputeDerivedStatus(notes)
	assert.Equal(t, first, second)
	assert.Equal(t, NoteReceived, notes[0].Status)
}
