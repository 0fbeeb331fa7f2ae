package fulfillment

import "slices"

// VoidableNoteStatuses are the delivery note statuses before goods leave the
// source location.
var VoidableNoteStatuses = []NoteStatus{
	NoteDraft, NoteConfirmed, NoteQueuedForPicking, NotePickingInProgress, NoteDispatchReady,
}

// CanVoid reports whether a delivery note in status s may be voided.
func CanVoid(s NoteStatus) bool {
	return slices.Contains(VoidableNoteStatuses, s)
}

// CanCancelRequest reports whether a stock request in status s may be cancelled.
func CanCancelRequest(s RequestStatus) bool {
	return RequestCancel.Allows(s)
}

// VoidDecision is what voiding a delivery note entails.
type VoidDecision struct {
	Allowed bool
	// ReverseInventory is always false: stock moves only at dispatch and
	// receipt, both past the voidable window.
	ReverseInventory bool
	Reason           string
}

// DecideVoid evaluates the void policy for status s.
func DecideVoid(s NoteStatus) VoidDecision {
	if CanVoid(s) {
		return VoidDecision{Allowed: true}
	}
	switch s {
	case NoteVoided:
		return VoidDecision{Reason: "delivery note is already voided"}
	case NoteDispatched, NoteReceived:
		return VoidDecision{Reason: "goods have left the source warehouse"}
	}
	return VoidDecision{Reason: "status does not permit voiding"}
}
