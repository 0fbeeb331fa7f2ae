// Package entity provides the base types shared by fulfillment documents
// and the stock register.
package entity

import (
	"time"

	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
)

// BaseEntity contains the fields every stored row carries.
type BaseEntity struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`
}

// NewBaseEntity creates a new BaseEntity with generated ID.
func NewBaseEntity() BaseEntity {
	return BaseEntity{
		ID:      id.New(),
		Version: 1,
	}
}

// BaseDocument extends BaseEntity with tenancy, numbering and audit fields.
type BaseDocument struct {
	BaseEntity

	CompanyID      id.ID `db:"company_id" json:"companyId"`
	BusinessUnitID id.ID `db:"business_unit_id" json:"businessUnitId"`

	// Number is assigned by the numerator on create (SR-2026-00001)
	Number string `db:"number" json:"number"`

	// Audit fields
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}

// NewBaseDocument creates a document owned by the scope's company and unit.
func NewBaseDocument(scope tenant.Scope) BaseDocument {
	now := time.Now().UTC()
	return BaseDocument{
		BaseEntity:     NewBaseEntity(),
		CompanyID:      scope.CompanyID,
		BusinessUnitID: scope.BusinessUnitID,
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      scope.UserID,
		UpdatedBy:      scope.UserID,
	}
}

// Touch records who changed the document and when. The version is bumped by
// the repository's conditional update, not here.
func (b *BaseDocument) Touch(userID string, at time.Time) {
	b.UpdatedAt = at
	b.UpdatedBy = userID
}

// VisibleTo reports whether the document belongs to the scope.
func (b *BaseDocument) VisibleTo(scope tenant.Scope) bool {
	return b.CompanyID == scope.CompanyID && b.BusinessUnitID == scope.BusinessUnitID
}
