package domain

import "context"

// HookEvent represents lifecycle event type.
type HookEvent string

const (
	// AfterCreate runs inside the creating transaction.
	AfterCreate HookEvent = "after_create"
	// AfterTransition runs inside the transaction that changed the status.
	AfterTransition HookEvent = "after_transition"
)

// Hook is a function that runs at specific lifecycle points. A hook error
// rolls back the surrounding transaction.
type Hook[T any] func(ctx context.Context, entity T) error

// HookRegistry stores lifecycle hooks for an entity type.
type HookRegistry[T any] struct {
	hooks map[HookEvent][]Hook[T]
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{
		hooks: make(map[HookEvent][]Hook[T]),
	}
}

// On registers a hook for the specified event.
func (r *HookRegistry[T]) On(event HookEvent, hook Hook[T]) {
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run executes all hooks for the specified event.
func (r *HookRegistry[T]) Run(ctx context.Context, event HookEvent, entity T) error {
	for _, hook := range r.hooks[event] {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

// RunAfterCreate executes all after-create hooks.
func (r *HookRegistry[T]) RunAfterCreate(ctx context.Context, entity T) error {
	return r.Run(ctx, AfterCreate, entity)
}

// RunAfterTransition executes all after-transition hooks.
func (r *HookRegistry[T]) RunAfterTransition(ctx context.Context, entity T) error {
	return r.Run(ctx, AfterTransition, entity)
}
