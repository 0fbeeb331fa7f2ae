package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/domain/documents/pick_list"
	"stockflow/internal/domain/fulfillment"
	"stockflow/internal/infrastructure/storage/postgres"
)

const (
	pickListsTable     = "doc_pick_lists"
	pickListItemsTable = "doc_pick_list_items"
)

var pickListItemColumns = postgres.ExtractDBColumns[pick_list.Item]()

// PickListRepo implements pick_list.Repository. Soft-deleted pick lists
// are filtered out of every read.
type PickListRepo struct {
	docs documentTable[pick_list.PickList]
}

var _ pick_list.Repository = (*PickListRepo)(nil)

// NewPickListRepo creates a pick list repository.
func NewPickListRepo(txManager *postgres.TxManager) *PickListRepo {
	docs := newDocumentTable[pick_list.PickList](txManager, pickListsTable, pick_list.EntityName)
	docs.softDelete = "deleted_at"
	return &PickListRepo{docs: docs}
}

func (r *PickListRepo) Create(ctx context.Context, pl *pick_list.PickList) error {
	return r.docs.insert(ctx, pl)
}

func (r *PickListRepo) SaveItems(ctx context.Context, plID id.ID, items []pick_list.Item) error {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, []any{
			it.ID, plID, it.LineNo, it.DeliveryNoteItemID, it.ItemID, it.UomID, it.AllocatedQty, it.PickedQty,
		})
	}
	return replaceLines(ctx, r.docs.querier(ctx), pickListItemsTable, "pick_list_id", plID,
		pickListItemColumns, rows)
}

func (r *PickListRepo) Get(ctx context.Context, scope tenant.Scope, plID id.ID) (*pick_list.PickList, error) {
	return r.docs.get(ctx, scope, plID, false)
}

func (r *PickListRepo) GetForUpdate(ctx context.Context, scope tenant.Scope, plID id.ID) (*pick_list.PickList, error) {
	return r.docs.get(ctx, scope, plID, true)
}

func (r *PickListRepo) GetItems(ctx context.Context, plID id.ID) ([]pick_list.Item, error) {
	return selectLines[pick_list.Item](ctx, r.docs.querier(ctx),
		pickListItemsTable, "pick_list_id", plID, pickListItemColumns)
}

func (r *PickListRepo) Update(ctx context.Context, pl *pick_list.PickList, from fulfillment.PickStatus) error {
	err := r.docs.conditionalUpdate(ctx, pl.CompanyID, pl.ID, string(from), pl.Version, map[string]any{
		"status":          pl.Status,
		"picker_user_ids": pl.PickerUserIDs,
		"started_at":      pl.StartedAt,
		"completed_at":    pl.CompletedAt,
		"deleted_at":      pl.DeletedAt,
		"updated_at":      pl.UpdatedAt,
		"updated_by":      pl.UpdatedBy,
	})
	if err != nil {
		return err
	}
	pl.Version++
	return nil
}

func (r *PickListRepo) UpdateItemQuantities(ctx context.Context, plID id.ID, items []pick_list.Item) error {
	stmts := make([]postgres.Statement, 0, len(items))
	for _, it := range items {
		sql, args, err := builder().
			Update(pickListItemsTable).
			Set("picked_qty", it.PickedQty).
			Where(squirrel.Eq{"id": it.ID, "pick_list_id": plID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build item update: %w", err)
		}
		stmts = append(stmts, postgres.Statement{SQL: sql, Args: args})
	}
	return r.docs.txManager.SendBatch(ctx, stmts)
}

func (r *PickListRepo) ListByNote(ctx context.Context, scope tenant.Scope, dnID id.ID) ([]*pick_list.PickList, error) {
	sql, args, err := r.docs.scoped(scope).
		Where(squirrel.Eq{"delivery_note_id": dnID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	lists := []*pick_list.PickList{}
	if err := pgxscan.Select(ctx, r.docs.querier(ctx), &lists, sql, args...); err != nil {
		return nil, fmt.Errorf("list pick lists of note: %w", err)
	}
	return lists, nil
}

func (r *PickListRepo) StatusesByNote(ctx context.Context, scope tenant.Scope, dnID id.ID) ([]fulfillment.PickStatus, error) {
	q := builder().
		Select("status").
		From(pickListsTable).
		Where(squirrel.Eq{
			"delivery_note_id": dnID,
			"company_id":       scope.CompanyID,
			"business_unit_id": scope.BusinessUnitID,
			"deleted_at":       nil,
		}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	statuses := []fulfillment.PickStatus{}
	if err := pgxscan.Select(ctx, r.docs.querier(ctx), &statuses, sql, args...); err != nil {
		return nil, fmt.Errorf("pick list statuses: %w", err)
	}
	return statuses, nil
}
