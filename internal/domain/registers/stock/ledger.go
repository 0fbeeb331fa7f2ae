package stock

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/core/tx"
	"stockflow/internal/core/types"
	"stockflow/internal/domain/documents/delivery_note"
	"stockflow/pkg/logger"
)

// RecorderDeliveryNote tags movements posted by delivery notes.
const RecorderDeliveryNote = "delivery_note"

// Ledger posts dispatches and receipts to the stock register. It joins
// the caller's transaction, so a failure anywhere in the document update
// rolls the movements back too.
type Ledger struct {
	repo      Repository
	txManager tx.Manager
	now       func() time.Time
}

// NewLedger creates a new stock ledger.
func NewLedger(repo Repository, txManager tx.Manager) *Ledger {
	return &Ledger{
		repo:      repo,
		txManager: txManager,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var _ delivery_note.Poster = (*Ledger)(nil)

// Shortage describes one item the fulfilling warehouse cannot cover.
type Shortage struct {
	ItemID    id.ID          `json:"itemId"`
	Requested types.Quantity `json:"requested"`
	Available types.Quantity `json:"available"`
}

// PostDispatch decrements the fulfilling warehouse. Availability is the
// item's total across locations; stock is drawn from the unassigned
// location first, then from bins in id order. Every item is checked before
// anything is written.
func (l *Ledger) PostDispatch(ctx context.Context, p delivery_note.DispatchPosting) error {
	if err := validateLines(p.Lines); err != nil {
		return err
	}

	requested, order := sumByItem(p.Lines)
	return l.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		rows, err := l.repo.LockBalances(ctx, p.CompanyID, p.WarehouseID, order)
		if err != nil {
			return fmt.Errorf("lock balances: %w", err)
		}
		byItem := make(map[id.ID][]entity.StockBalance, len(order))
		for _, b := range rows {
			if b.Quantity.IsPositive() {
				byItem[b.ItemID] = append(byItem[b.ItemID], b)
			}
		}

		var shortages []Shortage
		for _, itemID := range order {
			var available types.Quantity
			for _, b := range byItem[itemID] {
				available += b.Quantity
			}
			if available < requested[itemID] {
				shortages = append(shortages, Shortage{
					ItemID:    itemID,
					Requested: requested[itemID],
					Available: available,
				})
			}
		}
		if len(shortages) > 0 {
			logger.Warn(ctx, "dispatch rejected: insufficient stock",
				"delivery_note_id", p.DeliveryNoteID,
				"warehouse_id", p.WarehouseID,
				"short_items", len(shortages))
			return apperror.NewPostingFailure("insufficient stock in the fulfilling warehouse").
				WithDetail("deliveryNoteId", p.DeliveryNoteID).
				WithDetail("warehouseId", p.WarehouseID).
				WithDetail("lines", shortages)
		}

		now := l.now()
		var movements []entity.StockMovement
		for _, itemID := range order {
			sources := byItem[itemID]
			slices.SortFunc(sources, func(a, b entity.StockBalance) int {
				switch {
				case a.LocationID == b.LocationID:
					return 0
				case a.LocationID == entity.UnassignedLocation:
					return -1
				case b.LocationID == entity.UnassignedLocation:
					return 1
				}
				return strings.Compare(a.LocationID.String(), b.LocationID.String())
			})

			left := requested[itemID]
			for _, b := range sources {
				if left.IsZero() {
					break
				}
				take := min(left, b.Quantity)
				left -= take
				movements = append(movements, entity.StockMovement{
					LineID:       id.New(),
					RecorderID:   p.DeliveryNoteID,
					RecorderType: RecorderDeliveryNote,
					Period:       p.DispatchDate,
					RecordType:   entity.RecordTypeExpense,
					CompanyID:    p.CompanyID,
					WarehouseID:  p.WarehouseID,
					LocationID:   b.LocationID,
					ItemID:       itemID,
					Quantity:     take,
					CreatedBy:    p.UserID,
					CreatedAt:    now,
				})
			}
		}

		if err := l.repo.ApplyMovements(ctx, movements); err != nil {
			return fmt.Errorf("apply movements: %w", err)
		}

		logger.Info(ctx, "dispatch posted",
			"delivery_note_id", p.DeliveryNoteID,
			"warehouse_id", p.WarehouseID,
			"movements", len(movements))
		return nil
	})
}

// PostReceipt increments the requesting warehouse at each line's location.
func (l *Ledger) PostReceipt(ctx context.Context, p delivery_note.ReceiptPosting) error {
	if err := validateLines(p.Lines); err != nil {
		return err
	}

	now := l.now()
	movements := make([]entity.StockMovement, 0, len(p.Lines))
	for _, line := range p.Lines {
		movements = append(movements, entity.StockMovement{
			LineID:       id.New(),
			RecorderID:   p.DeliveryNoteID,
			RecorderType: RecorderDeliveryNote,
			Period:       p.ReceivedDate,
			RecordType:   entity.RecordTypeReceipt,
			CompanyID:    p.CompanyID,
			WarehouseID:  p.WarehouseID,
			LocationID:   line.LocationID,
			ItemID:       line.ItemID,
			Quantity:     line.Qty,
			CreatedBy:    p.UserID,
			CreatedAt:    now,
		})
	}

	return l.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := l.repo.ApplyMovements(ctx, movements); err != nil {
			return fmt.Errorf("apply movements: %w", err)
		}
		logger.Info(ctx, "receipt posted",
			"delivery_note_id", p.DeliveryNoteID,
			"warehouse_id", p.WarehouseID,
			"movements", len(movements))
		return nil
	})
}

// Balances returns on-hand stock of a warehouse.
func (l *Ledger) Balances(ctx context.Context, companyID id.ID, filter BalanceFilter) ([]entity.StockBalance, error) {
	if id.IsNil(filter.WarehouseID) {
		return nil, apperror.NewValidation("warehouse is required").WithDetail("field", "warehouseId")
	}
	return l.repo.Balances(ctx, companyID, filter)
}

// Movements returns what a delivery note posted.
func (l *Ledger) Movements(ctx context.Context, companyID, noteID id.ID) ([]entity.StockMovement, error) {
	return l.repo.Movements(ctx, companyID, noteID)
}

func validateLines(lines []delivery_note.PostingLine) error {
	if len(lines) == 0 {
		return apperror.NewValidation("posting has no lines")
	}
	for i, line := range lines {
		if !line.Qty.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("line %d: quantity must be positive", i))
		}
		if id.IsNil(line.ItemID) {
			return apperror.NewValidation(fmt.Sprintf("line %d: item is required", i))
		}
	}
	return nil
}

// sumByItem totals line quantities per item. order lists the items sorted
// by id, which is also the lock order.
func sumByItem(lines []delivery_note.PostingLine) (map[id.ID]types.Quantity, []id.ID) {
	totals := make(map[id.ID]types.Quantity, len(lines))
	var order []id.ID
	for _, line := range lines {
		if _, ok := totals[line.ItemID]; !ok {
			order = append(order, line.ItemID)
		}
		totals[line.ItemID] += line.Qty
	}
	slices.SortFunc(order, func(a, b id.ID) int { return strings.Compare(a.String(), b.String()) })
	return totals, order
}
