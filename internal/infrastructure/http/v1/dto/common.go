// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"strings"
	"time"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/domain"
)

// --- List ---

// ListQuery is the query string of the document list endpoints.
type ListQuery struct {
	Status      string `form:"status"` // comma separated
	WarehouseID string `form:"warehouseId"`
	Search      string `form:"search"`
	Limit       int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset      int    `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query into a repository filter.
func (q ListQuery) ToFilter() (domain.ListFilter, error) {
	f := domain.ListFilter{
		Search: strings.TrimSpace(q.Search),
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	for _, s := range strings.Split(q.Status, ",") {
		if s = strings.TrimSpace(s); s != "" {
			f.Statuses = append(f.Statuses, s)
		}
	}
	if q.WarehouseID != "" {
		wh, err := ParseID("warehouseId", q.WarehouseID)
		if err != nil {
			return f, err
		}
		f.WarehouseID = &wh
	}
	return f.Normalize(), nil
}

// ListResponse wraps list results with paging.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResponse maps a repository page with conv.
func NewListResponse[M, T any](res domain.ListResult[M], conv func(M) T) ListResponse[T] {
	items := make([]T, 0, len(res.Items))
	for _, m := range res.Items {
		items = append(items, conv(m))
	}
	return ListResponse[T]{Items: items, TotalCount: res.TotalCount, Limit: res.Limit, Offset: res.Offset}
}

// --- Base DTOs ---

// DocumentResponse contains the fields every document carries.
type DocumentResponse struct {
	ID             string    `json:"id"`
	Version        int       `json:"version"`
	Number         string    `json:"number"`
	CompanyID      string    `json:"companyId"`
	BusinessUnitID string    `json:"businessUnitId"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	CreatedBy      string    `json:"createdBy,omitempty"`
	UpdatedBy      string    `json:"updatedBy,omitempty"`
}

// FromBaseDocument creates DocumentResponse from entity.BaseDocument.
func FromBaseDocument(b entity.BaseDocument) DocumentResponse {
	return DocumentResponse{
		ID:             b.ID.String(),
		Version:        b.Version,
		Number:         b.Number,
		CompanyID:      b.CompanyID.String(),
		BusinessUnitID: b.BusinessUnitID.String(),
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
		CreatedBy:      b.CreatedBy,
		UpdatedBy:      b.UpdatedBy,
	}
}

// ReasonRequest is the body of reject, cancel and void.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// --- Error Response ---

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ParseID parses an id field of a request, naming the field on failure.
func ParseID(field, value string) (id.ID, error) {
	v, err := id.Parse(strings.TrimSpace(value))
	if err != nil || id.IsNil(v) {
		return id.ID{}, apperror.NewValidation("invalid " + field).WithDetail("field", field)
	}
	return v, nil
}

func optionalID(field, value string) (id.ID, error) {
	if strings.TrimSpace(value) == "" {
		return id.ID{}, nil
	}
	return ParseID(field, value)
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
