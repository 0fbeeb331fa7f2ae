// Package register_repo provides the PostgreSQL stock register.
package register_repo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/registers/stock"
	"stockflow/internal/infrastructure/storage/postgres"
)

const (
	stockMovementsTable = "reg_stock_movements"
	stockBalancesTable  = "reg_stock_balances"
)

var (
	movementColumns = postgres.ExtractDBColumns[entity.StockMovement]()
	balanceColumns  = postgres.ExtractDBColumns[entity.StockBalance]()
)

// StockRepo implements stock.Repository.
type StockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ stock.Repository = (*StockRepo)(nil)

// NewStockRepo creates the stock register repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// LockBalances locks the balance rows of the items ordered by item and
// location, so concurrent postings over overlapping items cannot deadlock.
func (r *StockRepo) LockBalances(ctx context.Context, companyID, warehouseID id.ID, itemIDs []id.ID) ([]entity.StockBalance, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	sql, args, err := r.builder.
		Select(balanceColumns...).
		From(stockBalancesTable).
		Where(squirrel.Eq{
			"company_id":   companyID,
			"warehouse_id": warehouseID,
			"item_id":      itemIDs,
		}).
		OrderBy("item_id", "location_id").
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []entity.StockBalance
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("lock balances: %w", err)
	}
	return balances, nil
}

// ApplyMovements copies the movements in and folds their net effect into
// the balances. The table's CHECK (quantity >= 0) is the last line of
// defence against overdrawing a location.
func (r *StockRepo) ApplyMovements(ctx context.Context, movements []entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(movements))
	for _, m := range movements {
		data := postgres.StructToMap(&m)
		row := make([]any, 0, len(movementColumns))
		for _, col := range movementColumns {
			row = append(row, data[col])
		}
		rows = append(rows, row)
	}
	if _, err := r.txManager.CopyRows(ctx, stockMovementsTable, movementColumns, rows); err != nil {
		return fmt.Errorf("copy movements: %w", err)
	}

	type delta struct {
		companyID id.ID
		key       entity.BalanceKey
		qty       types.Quantity
		at        time.Time
	}
	byKey := make(map[entity.BalanceKey]*delta)
	var order []entity.BalanceKey
	for i := range movements {
		m := &movements[i]
		d, ok := byKey[m.Key()]
		if !ok {
			d = &delta{companyID: m.CompanyID, key: m.Key()}
			byKey[m.Key()] = d
			order = append(order, m.Key())
		}
		d.qty += m.SignedQuantity()
		if m.Period.After(d.at) {
			d.at = m.Period
		}
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.ItemID != b.ItemID {
			return a.ItemID.String() < b.ItemID.String()
		}
		return a.LocationID.String() < b.LocationID.String()
	})

	now := time.Now().UTC()
	stmts := make([]postgres.Statement, 0, len(order))
	for _, k := range order {
		d := byKey[k]
		stmts = append(stmts, postgres.Statement{
			SQL: `
				INSERT INTO ` + stockBalancesTable + ` (
					company_id, warehouse_id, location_id, item_id, quantity, last_movement_at, updated_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (company_id, warehouse_id, location_id, item_id) DO UPDATE SET
					quantity = ` + stockBalancesTable + `.quantity + EXCLUDED.quantity,
					last_movement_at = GREATEST(` + stockBalancesTable + `.last_movement_at, EXCLUDED.last_movement_at),
					updated_at = EXCLUDED.updated_at`,
			Args: []any{d.companyID, k.WarehouseID, k.LocationID, k.ItemID, d.qty, d.at, now},
		})
	}
	if err := r.txManager.SendBatch(ctx, stmts); err != nil {
		return fmt.Errorf("apply balances: %w", err)
	}
	return nil
}

func (r *StockRepo) Balances(ctx context.Context, companyID id.ID, filter stock.BalanceFilter) ([]entity.StockBalance, error) {
	q := r.builder.
		Select(balanceColumns...).
		From(stockBalancesTable).
		Where(squirrel.Eq{"company_id": companyID, "warehouse_id": filter.WarehouseID}).
		OrderBy("item_id", "location_id")
	if filter.ItemID != nil {
		q = q.Where(squirrel.Eq{"item_id": *filter.ItemID})
	}
	if !filter.IncludeZero {
		q = q.Where(squirrel.NotEq{"quantity": 0})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	balances := []entity.StockBalance{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("get balances: %w", err)
	}
	return balances, nil
}

func (r *StockRepo) Movements(ctx context.Context, companyID, recorderID id.ID) ([]entity.StockMovement, error) {
	sql, args, err := r.builder.
		Select(movementColumns...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"company_id": companyID, "recorder_id": recorderID}).
		OrderBy("created_at", "line_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	movements := []entity.StockMovement{}
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("get movements: %w", err)
	}
	return movements, nil
}
