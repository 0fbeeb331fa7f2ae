package fulfillment

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanVoid(t *testing.T) {
	want := map[NoteStatus]bool{
		NoteDraft:             true,
		NoteConfirmed:         true,
		NoteQueuedForPicking:  true,
		NotePickingInProgress: true,
		NoteDispatchReady:     true,
		NoteDispatched:        false,
		NoteReceived:          false,
		NoteVoided:            false,
	}
	for _, s := range NoteStatuses {
		assert.Equal(t, want[s], CanVoid(s), "status %s", s)
		assert.Equal(t, want[s], NoteVoid.Allows(s), "transition table agrees for %s", s)
	}
}

func TestDecideVoid_NeverReversesInventory(t *testing.T) {
	for _, s := range NoteStatuses {
		assert.False(t, DecideVoid(s).ReverseInventory)
	}
	assert.True(t, DecideVoid(NoteDispatchReady).Allowed)

	d := DecideVoid(NoteDispatched)
	assert.False(t, d.Allowed)
	assert.NotEmpty(t, d.Reason)
}

func TestCanCancelRequest(t *testing.T) {
	assert.True(t, CanCancelRequest(RequestApproved))
	assert.False(t, CanCancelRequest(RequestCompleted))
	assert.False(t, CanCancelRequest(RequestCancelled))
}

func TestAppendNote(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	notes := AppendNote("", at, "u-1", "  wrong warehouse ")
	assert.Equal(t, "[2026-05-01T12:00:00Z] u-1: wrong warehouse", notes)

	notes = AppendNote(notes, at.Add(time.Hour), "u-2", "duplicate")
	lines := strings.Split(notes, "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, "[2026-05-01T13:00:00Z] u-2: duplicate", lines[1])
}
