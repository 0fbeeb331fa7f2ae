package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/domain"
	"stockflow/internal/infrastructure/http/v1/dto"
)

// runDocumentAction resolves scope and :id, runs action on the document and
// renders the result with 200.
func runDocumentAction[T, R any](
	h *BaseHandler,
	c *gin.Context,
	action func(ctx context.Context, scope tenant.Scope, docID id.ID) (T, error),
	render func(T) R,
) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	docID, ok := h.PathID(c)
	if !ok {
		return
	}

	doc, err := action(c.Request.Context(), scope, docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, render(doc))
}

// runReasonAction is runDocumentAction for reject, cancel and void.
func runReasonAction[T, R any](
	h *BaseHandler,
	c *gin.Context,
	action func(ctx context.Context, scope tenant.Scope, docID id.ID, reason string) (T, error),
	render func(T) R,
) {
	var req dto.ReasonRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	runDocumentAction(h, c, withInput(action, req.Reason), render)
}

// withInput fixes the payload argument of a document operation.
func withInput[T, I any](
	fn func(ctx context.Context, scope tenant.Scope, docID id.ID, in I) (T, error),
	in I,
) func(ctx context.Context, scope tenant.Scope, docID id.ID) (T, error) {
	return func(ctx context.Context, scope tenant.Scope, docID id.ID) (T, error) {
		return fn(ctx, scope, docID, in)
	}
}

// listDocuments binds the list query and renders one page.
func listDocuments[M, R any](
	h *BaseHandler,
	c *gin.Context,
	list func(ctx context.Context, scope tenant.Scope, filter domain.ListFilter) (domain.ListResult[M], error),
	render func(M) R,
) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	page, err := list(c.Request.Context(), scope, filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(page, render))
}
