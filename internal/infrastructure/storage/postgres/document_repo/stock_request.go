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
	"stockflow/internal/domain/documents/stock_request"
	"stockflow/internal/domain/fulfillment"
	"stockflow/internal/infrastructure/storage/postgres"
)

const (
	stockRequestsTable     = "doc_stock_requests"
	stockRequestItemsTable = "doc_stock_request_items"
)

var stockRequestItemColumns = postgres.ExtractDBColumns[stock_request.StockRequestItem]()

// StockRequestRepo implements stock_request.Repository.
type StockRequestRepo struct {
	docs documentTable[stock_request.StockRequest]
}

var _ stock_request.Repository = (*StockRequestRepo)(nil)

// NewStockRequestRepo creates a stock request repository.
func NewStockRequestRepo(txManager *postgres.TxManager) *StockRequestRepo {
	return &StockRequestRepo{
		docs: newDocumentTable[stock_request.StockRequest](txManager, stockRequestsTable, stock_request.EntityName),
	}
}

func (r *StockRequestRepo) Create(ctx context.Context, sr *stock_request.StockRequest) error {
	return r.docs.insert(ctx, sr)
}

func (r *StockRequestRepo) SaveItems(ctx context.Context, srID id.ID, items []stock_request.StockRequestItem) error {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, []any{
			it.ID, srID, it.LineNo, it.ItemID, it.UomID, it.RequestedQty, it.UnitPrice,
		})
	}
	return replaceLines(ctx, r.docs.querier(ctx), stockRequestItemsTable, "stock_request_id", srID,
		stockRequestItemColumns, rows)
}

func (r *StockRequestRepo) Get(ctx context.Context, scope tenant.Scope, srID id.ID) (*stock_request.StockRequest, error) {
	return r.docs.get(ctx, scope, srID, false)
}

func (r *StockRequestRepo) GetForUpdate(ctx context.Context, scope tenant.Scope, srID id.ID) (*stock_request.StockRequest, error) {
	return r.docs.get(ctx, scope, srID, true)
}

func (r *StockRequestRepo) GetItems(ctx context.Context, srID id.ID) ([]stock_request.StockRequestItem, error) {
	return selectLines[stock_request.StockRequestItem](ctx, r.docs.querier(ctx),
		stockRequestItemsTable, "stock_request_id", srID, stockRequestItemColumns)
}

func (r *StockRequestRepo) UpdateStatus(ctx context.Context, sr *stock_request.StockRequest, from fulfillment.RequestStatus) error {
	err := r.docs.conditionalUpdate(ctx, sr.CompanyID, sr.ID, string(from), sr.Version, map[string]any{
		"status":     sr.Status,
		"notes":      sr.Notes,
		"updated_at": sr.UpdatedAt,
		"updated_by": sr.UpdatedBy,
	})
	if err != nil {
		return err
	}
	sr.Version++
	return nil
}

func (r *StockRequestRepo) List(ctx context.Context, scope tenant.Scope, filter domain.ListFilter) (domain.ListResult[*stock_request.StockRequest], error) {
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

// FulfilledQuantities sums received_qty of the non-voided note lines that
// trace back to the request.
func (r *StockRequestRepo) FulfilledQuantities(ctx context.Context, scope tenant.Scope, srID id.ID) (map[id.ID]types.Quantity, error) {
	sql, args, err := builder().
		Select("i.stock_request_item_id", "COALESCE(SUM(i.received_qty), 0)::bigint AS qty").
		From(deliveryNoteItemsTable + " i").
		Join(deliveryNotesTable + " n ON n.id = i.delivery_note_id").
		Where(squirrel.Eq{
			"i.stock_request_id": srID,
			"n.company_id":       scope.CompanyID,
			"n.business_unit_id": scope.BusinessUnitID,
		}).
		Where(squirrel.NotEq{"n.status": fulfillment.NoteVoided}).
		GroupBy("i.stock_request_item_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return scanQuantities(ctx, r.docs.querier(ctx), sql, args)
}

type quantityRow struct {
	Key id.ID          `db:"stock_request_item_id"`
	Qty types.Quantity `db:"qty"`
}

func scanQuantities(ctx context.Context, q postgres.Querier, sql string, args []any) (map[id.ID]types.Quantity, error) {
	var rows []quantityRow
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("sum quantities: %w", err)
	}
	out := make(map[id.ID]types.Quantity, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Qty
	}
	return out, nil
}
