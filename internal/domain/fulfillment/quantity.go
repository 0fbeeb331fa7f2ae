package fulfillment

import (
	"stockflow/internal/core/apperror"
	"stockflow/internal/core/types"
)

// QtySpec is the caller's choice for one line of a dispatch or receipt:
// take whatever is outstanding, or an explicit quantity. Explicit(0) skips
// the line; it is never confused with an omitted line.
type QtySpec struct {
	explicit bool
	qty      types.Quantity
}

// Remaining takes the outstanding quantity of the line.
func Remaining() QtySpec { return QtySpec{} }

// Explicit takes exactly q.
func Explicit(q types.Quantity) QtySpec { return QtySpec{explicit: true, qty: q} }

// SpecFrom maps an optional payload value onto a QtySpec.
func SpecFrom(q *types.Quantity) QtySpec {
	if q == nil {
		return Remaining()
	}
	return Explicit(*q)
}

// IsExplicit reports whether the caller named a quantity.
func (s QtySpec) IsExplicit() bool { return s.explicit }

// Resolve returns the quantity to apply given what is outstanding.
// An explicit quantity must lie within [0, outstanding].
func (s QtySpec) Resolve(outstanding types.Quantity) (types.Quantity, error) {
	outstanding = outstanding.MaxZero()
	if !s.explicit {
		return outstanding, nil
	}
	if s.qty.IsNegative() {
		return 0, apperror.NewValidation("quantity must not be negative").
			WithDetail("requested", s.qty)
	}
	if s.qty > outstanding {
		return 0, apperror.NewValidation("quantity exceeds the outstanding quantity").
			WithDetail("requested", s.qty).
			WithDetail("outstanding", outstanding)
	}
	return s.qty, nil
}

// LineQty carries the five quantity stages of a delivery note line.
//
//	0 <= picked <= allocated
//	0 <= dispatched <= picked
//	0 <= received <= dispatched
//	short = allocated - picked once picking is finalized, 0 before
type LineQty struct {
	Allocated  types.Quantity `db:"allocated_qty" json:"allocatedQty"`
	Picked     types.Quantity `db:"picked_qty" json:"pickedQty"`
	Short      types.Quantity `db:"short_qty" json:"shortQty"`
	Dispatched types.Quantity `db:"dispatched_qty" json:"dispatchedQty"`
	Received   types.Quantity `db:"received_qty" json:"receivedQty"`
}

// Check verifies the quantity bounds of one line.
func (q LineQty) Check() error {
	switch {
	case !q.Allocated.IsPositive():
		return apperror.NewValidation("allocated quantity must be positive")
	case q.Picked < 0 || q.Picked > q.Allocated:
		return apperror.NewValidation("picked quantity must be between 0 and the allocated quantity")
	case q.Dispatched < 0 || q.Dispatched > q.Picked:
		return apperror.NewValidation("dispatched quantity must be between 0 and the picked quantity")
	case q.Received < 0 || q.Received > q.Dispatched:
		return apperror.NewValidation("received quantity must be between 0 and the dispatched quantity")
	case q.Short != 0 && q.Short != q.Allocated-q.Picked:
		return apperror.NewValidation("short quantity does not match allocated minus picked")
	}
	return nil
}

// RecordPicked stores a picker's running count while picking is open.
// Out of range values are rejected, not clamped.
func (q *LineQty) RecordPicked(v types.Quantity) error {
	if v.IsNegative() {
		return apperror.NewValidation("picked quantity must not be negative").
			WithDetail("pickedQty", v)
	}
	if v > q.Allocated {
		return apperror.NewValidation("picked quantity exceeds the allocated quantity").
			WithDetail("pickedQty", v).
			WithDetail("allocatedQty", q.Allocated)
	}
	q.Picked = v
	return nil
}

// FinalizePick fixes the picked quantity, clamped to [0, allocated], and
// computes the shortfall. It reports whether v had to be clamped.
func (q *LineQty) FinalizePick(v types.Quantity) (clamped bool) {
	picked := v.Clamp(0, q.Allocated)
	q.Picked = picked
	q.Short = q.Allocated - picked
	return picked != v
}

// Undispatched is the picked quantity not yet shipped.
func (q LineQty) Undispatched() types.Quantity { return (q.Picked - q.Dispatched).MaxZero() }

// Unreceived is the shipped quantity not yet received.
func (q LineQty) Unreceived() types.Quantity { return (q.Dispatched - q.Received).MaxZero() }

// AddDispatched accumulates a shipment.
func (q *LineQty) AddDispatched(v types.Quantity) error {
	if v.IsNegative() || v > q.Undispatched() {
		return apperror.NewValidation("dispatch quantity exceeds the undispatched quantity").
			WithDetail("dispatchQty", v).
			WithDetail("undispatchedQty", q.Undispatched())
	}
	q.Dispatched += v
	return nil
}

// AddReceived accumulates a receipt.
func (q *LineQty) AddReceived(v types.Quantity) error {
	if v.IsNegative() || v > q.Unreceived() {
		return apperror.NewValidation("received quantity exceeds the quantity in transit").
			WithDetail("receivedQty", v).
			WithDetail("inTransitQty", q.Unreceived())
	}
	q.Received += v
	return nil
}

// FullyReceived reports whether everything shipped so far has arrived.
func (q LineQty) FullyReceived() bool {
	return q.Received == q.Dispatched
}
