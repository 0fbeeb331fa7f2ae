// Package numerator defines the document numbering contract used by the
// fulfillment services. The implementation lives in pkg/numerator.
package numerator

import (
	"context"
	"time"

	"stockflow/internal/core/id"
)

// Document number prefixes.
const (
	PrefixStockRequest = "SR"
	PrefixDeliveryNote = "DN"
	PrefixPickList     = "PL"
)

// Generator issues sequential document numbers per company, prefix and year,
// e.g. DN-2026-00042. Called inside the creating transaction so a rolled
// back document does not consume a number.
type Generator interface {
	Next(ctx context.Context, companyID id.ID, prefix string, period time.Time) (string, error)
}
