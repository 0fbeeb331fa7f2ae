package pick_list

import (
	"context"

	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/domain/fulfillment"
)

// Repository defines storage operations for pick lists. Soft-deleted rows
// are invisible to every read.
type Repository interface {
	Create(ctx context.Context, pl *PickList) error
	SaveItems(ctx context.Context, plID id.ID, items []Item) error

	Get(ctx context.Context, scope tenant.Scope, plID id.ID) (*PickList, error)
	GetForUpdate(ctx context.Context, scope tenant.Scope, plID id.ID) (*PickList, error)
	GetItems(ctx context.Context, plID id.ID) ([]Item, error)

	// Update persists status, timestamps and deleted_at if the stored row
	// still has status from; otherwise domain.ErrStale.
	Update(ctx context.Context, pl *PickList, from fulfillment.PickStatus) error
	UpdateItemQuantities(ctx context.Context, plID id.ID, items []Item) error

	ListByNote(ctx context.Context, scope tenant.Scope, dnID id.ID) ([]*PickList, error)
	// StatusesByNote implements delivery_note.PickListReader.
	StatusesByNote(ctx context.Context, scope tenant.Scope, dnID id.ID) ([]fulfillment.PickStatus, error)
}
