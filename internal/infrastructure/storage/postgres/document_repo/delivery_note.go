package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/core/types"
	"stockflow/internal/domain"
	"stockflow/internal/domain/documents/delivery_note"
	"stockflow/internal/domain/fulfillment"
	"stockflow/internal/infrastructure/storage/postgres"
)

const (
	deliveryNotesTable       = "doc_delivery_notes"
	deliveryNoteSourcesTable = "doc_delivery_note_sources"
	deliveryNoteItemsTable   = "doc_delivery_note_items"
)

var (
	deliveryNoteItemColumns   = postgres.ExtractDBColumns[delivery_note.Item]()
	deliveryNoteSourceColumns = postgres.ExtractDBColumns[delivery_note.Source]()
)

// DeliveryNoteRepo implements delivery_note.Repository.
type DeliveryNoteRepo struct {
	docs documentTable[delivery_note.DeliveryNote]
}

var _ delivery_note.Repository = (*DeliveryNoteRepo)(nil)

// NewDeliveryNoteRepo creates a delivery note repository.
func NewDeliveryNoteRepo(txManager *postgres.TxManager) *DeliveryNoteRepo {
	return &DeliveryNoteRepo{
		docs: newDocumentTable[delivery_note.DeliveryNote](txManager, deliveryNotesTable, delivery_note.EntityName),
	}
}

func (r *DeliveryNoteRepo) Create(ctx context.Context, dn *delivery_note.DeliveryNote) error {
	return r.docs.insert(ctx, dn)
}

func (r *DeliveryNoteRepo) SaveSources(ctx context.Context, dnID id.ID, sources []delivery_note.Source) error {
	rows := make([][]any, 0, len(sources))
	for _, s := range sources {
		rows = append(rows, []any{dnID, s.StockRequestID, s.CompanyID, s.CreatedAt})
	}
	return replaceLines(ctx, r.docs.querier(ctx), deliveryNoteSourcesTable, "delivery_note_id", dnID,
		deliveryNoteSourceColumns, rows)
}

func (r *DeliveryNoteRepo) SaveItems(ctx context.Context, dnID id.ID, items []delivery_note.Item) error {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, []any{
			it.ID, dnID, it.LineNo, it.StockRequestID, it.StockRequestItemID, it.ItemID, it.UomID,
			it.Allocated, it.Picked, it.Short, it.Dispatched, it.Received,
		})
	}
	return replaceLines(ctx, r.docs.querier(ctx), deliveryNoteItemsTable, "delivery_note_id", dnID,
		deliveryNoteItemColumns, rows)
}

func (r *DeliveryNoteRepo) Get(ctx context.Context, scope tenant.Scope, dnID id.ID) (*delivery_note.DeliveryNote, error) {
	return r.docs.get(ctx, scope, dnID, false)
}

func (r *DeliveryNoteRepo) GetForUpdate(ctx context.Context, scope tenant.Scope, dnID id.ID) (*delivery_note.DeliveryNote, error) {
	return r.docs.get(ctx, scope, dnID, true)
}

func (r *DeliveryNoteRepo) GetSources(ctx context.Context, dnID id.ID) ([]delivery_note.Source, error) {
	sql, args, err := builder().
		Select(deliveryNoteSourceColumns...).
		From(deliveryNoteSourcesTable).
		Where(squirrel.Eq{"delivery_note_id": dnID}).
		OrderBy("created_at", "stock_request_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	sources := []delivery_note.Source{}
	if err := pgxscan.Select(ctx, r.docs.querier(ctx), &sources, sql, args...); err != nil {
		return nil, fmt.Errorf("get sources: %w", err)
	}
	return sources, nil
}

func (r *DeliveryNoteRepo) GetItems(ctx context.Context, dnID id.ID) ([]delivery_note.Item, error) {
	return selectLines[delivery_note.Item](ctx, r.docs.querier(ctx),
		deliveryNoteItemsTable, "delivery_note_id", dnID, deliveryNoteItemColumns)
}

func (r *DeliveryNoteRepo) Update(ctx context.Context, dn *delivery_note.DeliveryNote, from fulfillment.NoteStatus) error {
	err := r.docs.conditionalUpdate(ctx, dn.CompanyID, dn.ID, string(from), dn.Version, map[string]any{
		"status":               dn.Status,
		"confirmed_at":         dn.ConfirmedAt,
		"confirmed_by":         dn.ConfirmedBy,
		"picking_started_at":   dn.PickingStartedAt,
		"picking_started_by":   dn.PickingStartedBy,
		"picking_completed_at": dn.PickingCompletedAt,
		"picking_completed_by": dn.PickingCompletedBy,
		"dispatched_at":        dn.DispatchedAt,
		"dispatched_by":        dn.DispatchedBy,
		"received_at":          dn.ReceivedAt,
		"received_by":          dn.ReceivedBy,
		"voided_at":            dn.VoidedAt,
		"voided_by":            dn.VoidedBy,
		"void_reason":          dn.VoidReason,
		"driver_name":          dn.DriverName,
		"driver_signature":     dn.DriverSignature,
		"notes":                dn.Notes,
		"updated_at":           dn.UpdatedAt,
		"updated_by":           dn.UpdatedBy,
	})
	if err != nil {
		return err
	}
	dn.Version++
	return nil
}

// UpdateItemQuantities writes the quantity columns of each line in one batch.
func (r *DeliveryNoteRepo) UpdateItemQuantities(ctx context.Context, dnID id.ID, items []delivery_note.Item) error {
	stmts := make([]postgres.Statement, 0, len(items))
	for _, it := range items {
		sql, args, err := builder().
			Update(deliveryNoteItemsTable).
			SetMap(map[string]any{
				"picked_qty":     it.Picked,
				"short_qty":      it.Short,
				"dispatched_qty": it.Dispatched,
				"received_qty":   it.Received,
			}).
			Where(squirrel.Eq{"id": it.ID, "delivery_note_id": dnID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build item update: %w", err)
		}
		stmts = append(stmts, postgres.Statement{SQL: sql, Args: args})
	}
	return r.docs.txManager.SendBatch(ctx, stmts)
}

func (r *DeliveryNoteRepo) List(ctx context.Context, scope tenant.Scope, filter domain.ListFilter) (domain.ListResult[*delivery_note.DeliveryNote], error) {
	return r.docs.list(ctx, scope, filter, func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		if filter.WarehouseID == nil {
			return q
		}
		return q.Where(squirrel.Or{
			squirrel.Eq{"requesting_warehouse_id": *filter.WarehouseID},
			squirrel.Eq{"fulfilling_warehouse_id": *filter.WarehouseID},
		})
	})
}

func (r *DeliveryNoteRepo) ListByRequest(ctx context.Context, scope tenant.Scope, srID id.ID) ([]*delivery_note.DeliveryNote, error) {
	// Built with ? placeholders; the outer builder renumbers them.
	sub := squirrel.
		Select("1").
		From(deliveryNoteSourcesTable + " s").
		Where("s.delivery_note_id = " + deliveryNotesTable + ".id").
		Where(squirrel.Eq{"s.stock_request_id": srID})
	exists, existsArgs, err := sub.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build subquery: %w", err)
	}

	sql, args, err := r.docs.scoped(scope).
		Where("EXISTS ("+exists+")", existsArgs...).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	notes := []*delivery_note.DeliveryNote{}
	if err := pgxscan.Select(ctx, r.docs.querier(ctx), &notes, sql, args...); err != nil {
		return nil, fmt.Errorf("list notes of request: %w", err)
	}
	for _, dn := range notes {
		if dn.Sources, err = r.GetSources(ctx, dn.ID); err != nil {
			return nil, err
		}
	}
	return notes, nil
}

// AllocatedQuantities sums allocated_qty of non-voided note lines per
// stock request item.
func (r *DeliveryNoteRepo) AllocatedQuantities(ctx context.Context, scope tenant.Scope, srItemIDs []id.ID) (map[id.ID]types.Quantity, error) {
	if len(srItemIDs) == 0 {
		return map[id.ID]types.Quantity{}, nil
	}

	sql, args, err := builder().
		Select("i.stock_request_item_id", "COALESCE(SUM(i.allocated_qty), 0)::bigint AS qty").
		From(deliveryNoteItemsTable + " i").
		Join(deliveryNotesTable + " n ON n.id = i.delivery_note_id").
		Where(squirrel.Eq{
			"i.stock_request_item_id": srItemIDs,
			"n.company_id":            scope.CompanyID,
		}).
		Where(squirrel.NotEq{"n.status": fulfillment.NoteVoided}).
		GroupBy("i.stock_request_item_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return scanQuantities(ctx, r.docs.querier(ctx), sql, args)
}
