// Package fulfillment holds the pure rules of the fulfillment pipeline:
// status enums and their transition tables, line quantity arithmetic, the
// void policy and the derived status projection. Nothing here touches storage.
package fulfillment

import (
	"fmt"
	"slices"

	"stockflow/internal/core/apperror"
)

// Status is implemented by the three closed status enums.
type Status interface {
	~string
}

// RequestStatus is the stored status of a stock request.
type RequestStatus string

const (
	RequestDraft     RequestStatus = "draft"
	RequestSubmitted RequestStatus = "submitted"
	RequestApproved  RequestStatus = "approved"
	RequestCancelled RequestStatus = "cancelled"
	RequestCompleted RequestStatus = "completed"
)

// RequestStatuses lists every stock request status.
var RequestStatuses = []RequestStatus{
	RequestDraft, RequestSubmitted, RequestApproved, RequestCancelled, RequestCompleted,
}

// NoteStatus is the stored status of a delivery note.
type NoteStatus string

const (
	NoteDraft             NoteStatus = "draft"
	NoteConfirmed         NoteStatus = "confirmed"
	NoteQueuedForPicking  NoteStatus = "queued_for_picking"
	NotePickingInProgress NoteStatus = "picking_in_progress"
	NoteDispatchReady     NoteStatus = "dispatch_ready"
	NoteDispatched        NoteStatus = "dispatched"
	NoteReceived          NoteStatus = "received"
	NoteVoided            NoteStatus = "voided"
)

// NoteStatuses lists every delivery note status in pipeline order.
var NoteStatuses = []NoteStatus{
	NoteDraft, NoteConfirmed, NoteQueuedForPicking, NotePickingInProgress,
	NoteDispatchReady, NoteDispatched, NoteReceived, NoteVoided,
}

// PickStatus is the stored status of a pick list.
type PickStatus string

const (
	PickPending    PickStatus = "pending"
	PickInProgress PickStatus = "in_progress"
	PickPaused     PickStatus = "paused"
	PickCancelled  PickStatus = "cancelled"
	PickDone       PickStatus = "done"
)

// PickStatuses lists every pick list status.
var PickStatuses = []PickStatus{PickPending, PickInProgress, PickPaused, PickCancelled, PickDone}

// ParseRequestStatus converts an untrusted string.
func ParseRequestStatus(s string) (RequestStatus, error) {
	return parse(s, RequestStatuses)
}

// ParseNoteStatus converts an untrusted string.
func ParseNoteStatus(s string) (NoteStatus, error) {
	return parse(s, NoteStatuses)
}

// ParsePickStatus converts an untrusted string.
func ParsePickStatus(s string) (PickStatus, error) {
	return parse(s, PickStatuses)
}

func parse[S Status](s string, all []S) (S, error) {
	if v := S(s); slices.Contains(all, v) {
		return v, nil
	}
	var zero S
	return zero, apperror.NewValidation(fmt.Sprintf("unknown status %q", s)).
		WithDetail("allowed", all)
}

// Transition is one row of a transition table: the action, the statuses it
// may start from and the status it leads to.
type Transition[S Status] struct {
	Action string
	From   []S
	To     S
}

// Allows reports whether the transition may start from current.
func (t Transition[S]) Allows(current S) bool {
	return slices.Contains(t.From, current)
}

// Check returns InvalidTransition naming the current status when the
// transition may not start from it.
func (t Transition[S]) Check(entity string, current S) error {
	if t.Allows(current) {
		return nil
	}
	return apperror.NewInvalidTransition(entity, string(current), t.Action).
		WithDetail("allowedFrom", t.From)
}

// Stock request transitions.
var (
	RequestSubmit   = Transition[RequestStatus]{"submit", []RequestStatus{RequestDraft}, RequestSubmitted}
	RequestApprove  = Transition[RequestStatus]{"approve", []RequestStatus{RequestSubmitted}, RequestApproved}
	RequestReject   = Transition[RequestStatus]{"reject", []RequestStatus{RequestSubmitted}, RequestCancelled}
	RequestCancel   = Transition[RequestStatus]{"cancel", []RequestStatus{RequestDraft, RequestSubmitted, RequestApproved}, RequestCancelled}
	RequestComplete = Transition[RequestStatus]{"complete", []RequestStatus{RequestApproved}, RequestCompleted}
)

// Delivery note transitions. NoteReceive leads to NoteReceived only once
// every line has received what was dispatched; otherwise the note stays
// dispatched. A received note may ship its undispatched remainder.
var (
	NoteConfirm      = Transition[NoteStatus]{"confirm", []NoteStatus{NoteDraft}, NoteConfirmed}
	NoteQueuePicking = Transition[NoteStatus]{"queue for picking", []NoteStatus{NoteConfirmed}, NoteQueuedForPicking}
	NoteStartPicking = Transition[NoteStatus]{"start picking", []NoteStatus{NoteQueuedForPicking}, NotePickingInProgress}
	NoteMarkReady    = Transition[NoteStatus]{"mark dispatch ready", []NoteStatus{NotePickingInProgress}, NoteDispatchReady}
	NoteDispatch     = Transition[NoteStatus]{"dispatch", []NoteStatus{NoteDispatchReady, NoteDispatched, NoteReceived}, NoteDispatched}
	NoteReceive      = Transition[NoteStatus]{"receive", []NoteStatus{NoteDispatched, NoteReceived}, NoteReceived}
	NoteVoid         = Transition[NoteStatus]{"void", VoidableNoteStatuses, NoteVoided}
)

// Pick list transitions.
var (
	PickStart    = Transition[PickStatus]{"start", []PickStatus{PickPending, PickPaused}, PickInProgress}
	PickPause    = Transition[PickStatus]{"pause", []PickStatus{PickInProgress}, PickPaused}
	PickComplete = Transition[PickStatus]{"complete", []PickStatus{PickInProgress}, PickDone}
	PickCancel   = Transition[PickStatus]{"cancel", []PickStatus{PickPending, PickInProgress, PickPaused}, PickCancelled}
)

// PickTransitionTo returns the transition that leads to target.
func PickTransitionTo(target PickStatus) (Transition[PickStatus], error) {
	switch target {
	case PickInProgress:
		return PickStart, nil
	case PickPaused:
		return PickPause, nil
	case PickDone:
		return PickComplete, nil
	case PickCancelled:
		return PickCancel, nil
	case PickPending:
		return Transition[PickStatus]{}, apperror.NewValidation("a pick list cannot be moved back to pending")
	}
	return Transition[PickStatus]{}, apperror.NewValidation(fmt.Sprintf("unknown pick list status %q", target))
}

// PickListBlocksQueue reports whether a pick list in this status owns the
// picking lifecycle of its delivery note.
func PickListBlocksQueue(s PickStatus) bool {
	return s != PickCancelled
}
