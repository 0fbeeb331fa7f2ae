// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/infrastructure/http/v1/middleware"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// BindOptionalJSON is BindJSON for endpoints whose body may be empty.
func (h *BaseHandler) BindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return h.BindJSON(c, obj)
}

// BindQuery binds and validates query parameters.
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid query parameters").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers err on the gin context and aborts the request.
// Actual JSON response is produced by middleware.ErrorHandler.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// Scope returns the caller's tenant scope.
func (h *BaseHandler) Scope(c *gin.Context) (tenant.Scope, bool) {
	scope, ok := middleware.GetScope(c)
	if !ok {
		h.Error(c, apperror.NewUnauthorized("authentication required"))
		return tenant.Scope{}, false
	}
	return scope, true
}

// PathID parses the :id path parameter.
func (h *BaseHandler) PathID(c *gin.Context) (id.ID, bool) {
	v, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format").WithDetail("id", c.Param("id")))
		return id.ID{}, false
	}
	return v, true
}

// Created sends 201 with body.
func (h *BaseHandler) Created(c *gin.Context, body any) {
	middleware.CompleteIdempotency(c, http.StatusCreated, "application/json", body)
	c.JSON(http.StatusCreated, body)
}

// OK sends 200 response with data.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	middleware.CompleteIdempotency(c, http.StatusOK, "application/json", data)
	c.JSON(http.StatusOK, data)
}

// NoContent sends 204 response.
func (h *BaseHandler) NoContent(c *gin.Context) {
	// 204 must replay as 204 with empty body.
	middleware.CompleteIdempotency(c, http.StatusNoContent, "", nil)
	c.Status(http.StatusNoContent)
}
