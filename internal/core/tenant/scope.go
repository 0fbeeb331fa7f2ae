// Package tenant defines the row-level tenancy boundary threaded through
// every fulfillment operation.
package tenant

import (
	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
)

// Scope is the caller's tenancy context, resolved once per request from the
// authenticated identity and passed explicitly to services and repositories.
// Every query filters by CompanyID, and by BusinessUnitID where the entity
// carries one.
type Scope struct {
	CompanyID      id.ID
	BusinessUnitID id.ID
	UserID         string
}

// Validate rejects an unresolved scope before any storage is touched.
func (s Scope) Validate() error {
	if id.IsNil(s.CompanyID) {
		return apperror.NewUnauthorized("company context is missing")
	}
	if id.IsNil(s.BusinessUnitID) {
		return apperror.NewUnauthorized("business unit context is missing")
	}
	if s.UserID == "" {
		return apperror.NewUnauthorized("user context is missing")
	}
	return nil
}
