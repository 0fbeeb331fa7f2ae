package fulfillment

import (
	"stockflow/internal/core/id"
)

// DerivedStatus is the physical fulfillment state of a stock request,
// computed from its delivery notes and pick lists. It is never stored and
// is independent of the request's own approval status.
type DerivedStatus string

const (
	DerivedPendingDeliveryNote  DerivedStatus = "pending_delivery_note"
	DerivedAwaitingConfirmation DerivedStatus = "awaiting_confirmation"
	DerivedQueuedForPicking     DerivedStatus = "queued_for_picking"
	DerivedPickingInProgress    DerivedStatus = "picking_in_progress"
	DerivedReadyToDispatch      DerivedStatus = "ready_to_dispatch"
	DerivedInTransit            DerivedStatus = "in_transit"
	DerivedPartiallyReceived    DerivedStatus = "partially_received"
	DerivedReceived             DerivedStatus = "received"
	DerivedVoided               DerivedStatus = "voided"
)

// rank orders the per-note states; higher is further along.
var rank = map[DerivedStatus]int{
	DerivedAwaitingConfirmation: 1,
	DerivedQueuedForPicking:     2,
	DerivedPickingInProgress:    3,
	DerivedReadyToDispatch:      4,
	DerivedInTransit:            5,
	DerivedReceived:             6,
}

// NoteSnapshot is the slice of a delivery note the projection needs.
type NoteSnapshot struct {
	ID        id.ID
	Number    string
	Status    NoteStatus
	PickLists []PickStatus
}

// ProjectNote maps one delivery note to its fulfillment state. A queued note
// whose pick list has started counts as picking.
func ProjectNote(n NoteSnapshot) DerivedStatus {
	switch n.Status {
	case NoteDraft:
		return DerivedAwaitingConfirmation
	case NoteConfirmed:
		return DerivedQueuedForPicking
	case NoteQueuedForPicking:
		for _, p := range n.PickLists {
			if p == PickInProgress || p == PickPaused || p == PickDone {
				return DerivedPickingInProgress
			}
		}
		return DerivedQueuedForPicking
	case NotePickingInProgress:
		return DerivedPickingInProgress
	case NoteDispatchReady:
		return DerivedReadyToDispatch
	case NoteDispatched:
		return DerivedInTransit
	case NoteReceived:
		return DerivedReceived
	case NoteVoided:
		return DerivedVoided
	}
	return DerivedAwaitingConfirmation
}

// ComputeDerivedStatus projects a stock request from the delivery notes
// sourced from it. Voided notes are ignored unless every note is voided.
// When some but not all live notes are received the result is
// partially_received; otherwise the most advanced live note wins.
func ComputeDerivedStatus(notes []NoteSnapshot) DerivedStatus {
	if len(notes) == 0 {
		return DerivedPendingDeliveryNote
	}

	var (
		live     int
		received int
		best     DerivedStatus
	)
	for _, n := range notes {
		s := ProjectNote(n)
		if s == DerivedVoided {
			continue
		}
		live++
		if s == DerivedReceived {
			received++
		}
		if rank[s] > rank[best] {
			best = s
		}
	}

	switch {
	case live == 0:
		return DerivedVoided
	case received > 0 && received < live:
		return DerivedPartiallyReceived
	}
	return best
}
