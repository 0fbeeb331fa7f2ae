// Package audit records document changes into the audit journal and the
// change feed, inside the transaction that made the change.
package audit

import (
	"context"
	"fmt"

	"stockflow/internal/core/id"
	"stockflow/internal/domain"
)

// Entry describes one recorded change.
type Entry struct {
	EntityType string
	EntityID   id.ID
	CompanyID  id.ID
	Number     string
	// Action is "created" or the status the document moved to.
	Action   string
	UserID   string
	Snapshot any
}

// EventType is the change-feed event name, e.g. "delivery_note.dispatched".
func (e Entry) EventType() string {
	return e.EntityType + "." + e.Action
}

// Recorder persists entries. The PostgreSQL journal writes sys_audit and
// sys_outbox in the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Subject is implemented by documents that can describe themselves to the
// journal. Action is set to the current status.
type Subject interface {
	JournalEntry() Entry
}

// Hook adapts a Recorder to a lifecycle hook.
func Hook[T Subject](rec Recorder, event domain.HookEvent) domain.Hook[T] {
	return func(ctx context.Context, subject T) error {
		entry := subject.JournalEntry()
		if event == domain.AfterCreate {
			entry.Action = "created"
		}
		if err := rec.Record(ctx, entry); err != nil {
			return fmt.Errorf("record %s: %w", entry.EventType(), err)
		}
		return nil
	}
}

// Register wires the journal into a document's hook registry.
func Register[T Subject](hooks *domain.HookRegistry[T], rec Recorder) {
	hooks.On(domain.AfterCreate, Hook[T](rec, domain.AfterCreate))
	hooks.On(domain.AfterTransition, Hook[T](rec, domain.AfterTransition))
}
