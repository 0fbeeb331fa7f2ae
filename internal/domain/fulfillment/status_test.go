package fulfillment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
)

func TestParseStatuses(t *testing.T) {
	s, err := ParseNoteStatus("dispatch_ready")
	require.NoError(t, err)
	assert.Equal(t, NoteDispatchReady, s)

	_, err = ParseNoteStatus("shipped")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = ParseRequestStatus("rejected")
	assert.Error(t, err, "rejection is a cancellation, not a status")

	p, err := ParsePickStatus("paused")
	require.NoError(t, err)
	assert.Equal(t, PickPaused, p)
}

func TestTransition_Check(t *testing.T) {
	assert.NoError(t, NoteConfirm.Check("delivery note", NoteDraft))

	err := NoteConfirm.Check("delivery note", NoteConfirmed)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)
	assert.Equal(t, "confirmed", appErr.Details["currentStatus"])
}

func TestRequestTransitions(t *testing.T) {
	tests := []struct {
		name string
		tr   Transition[RequestStatus]
		ok   []RequestStatus
	}{
		{"submit", RequestSubmit, []RequestStatus{RequestDraft}},
		{"approve", RequestApprove, []RequestStatus{RequestSubmitted}},
		{"reject", RequestReject, []RequestStatus{RequestSubmitted}},
		{"cancel", RequestCancel, []RequestStatus{RequestDraft, RequestSubmitted, RequestApproved}},
		{"complete", RequestComplete, []RequestStatus{RequestApproved}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range RequestStatuses {
				assert.Equal(t, contains(tt.ok, s), tt.tr.Allows(s), "from %s", s)
			}
		})
	}
}

func TestNoteTransitions_FollowPipeline(t *testing.T) {
	assert.True(t, NoteQueuePicking.Allows(NoteConfirmed))
	assert.False(t, NoteQueuePicking.Allows(NoteDraft))
	assert.True(t, NoteMarkReady.Allows(NotePickingInProgress))
	assert.False(t, NoteMarkReady.Allows(NoteQueuedForPicking))
	assert.True(t, NoteDispatch.Allows(NoteDispatchReady))
	assert.True(t, NoteDispatch.Allows(NoteDispatched), "follow-up split shipment")
	assert.True(t, NoteDispatch.Allows(NoteReceived), "remainder after a received shipment")
	assert.False(t, NoteDispatch.Allows(NotePickingInProgress))
	assert.True(t, NoteReceive.Allows(NoteReceived), "second smaller receipt")
	assert.False(t, NoteReceive.Allows(NoteDispatchReady))
}

func TestPickTransitionTo(t *testing.T) {
	tests := []struct {
		from, to PickStatus
		ok       bool
	}{
		{PickPending, PickInProgress, true},
		{PickInProgress, PickDone, true},
		{PickInProgress, PickPaused, true},
		{PickPaused, PickInProgress, true},
		{PickPending, PickCancelled, true},
		{PickPaused, PickCancelled, true},
		{PickPending, PickDone, false},
		{PickDone, PickCancelled, false},
		{PickCancelled, PickInProgress, false},
		{PickPaused, PickDone, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			tr, err := PickTransitionTo(tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, tr.Allows(tt.from))
		})
	}

	_, err := PickTransitionTo(PickPending)
	assert.Error(t, err)
}

func contains[S comparable](list []S, v S) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
