// Package domain provides the contracts shared by the fulfillment documents.
package domain

import (
	"errors"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
)

// ListFilter contains common filtering options for document lists.
// Tenancy is not part of the filter: repositories take it from the scope.
type ListFilter struct {
	// Statuses filters by stored status (any of)
	Statuses []string

	// WarehouseID matches either the requesting or the fulfilling warehouse
	WarehouseID *id.ID

	// Search matches the document number prefix
	Search string

	Limit  int
	Offset int
}

// Normalize applies default and maximum page sizes.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// ErrStale is returned by conditional updates when the stored row no longer
// has the expected status or version.
var ErrStale = errors.New("stored row changed since it was read")

// StaleError converts a lost conditional update into the error the caller
// sees: InvalidTransition when the status moved under it, otherwise
// ConcurrentModification.
func StaleError(entity string, entityID id.ID, action, expected, current string) error {
	if current != expected {
		return apperror.NewInvalidTransition(entity, current, action)
	}
	return apperror.NewConcurrentModification(entity, entityID)
}
