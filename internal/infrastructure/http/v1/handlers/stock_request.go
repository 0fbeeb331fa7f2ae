package handlers

import (
	"github.com/gin-gonic/gin"

	"stockflow/internal/domain/documents/stock_request"
	"stockflow/internal/domain/tracking"
	"stockflow/internal/infrastructure/http/v1/dto"
	"stockflow/pkg/logger"
)

// StockRequestHandler handles HTTP requests for stock requests.
type StockRequestHandler struct {
	*BaseHandler
	service  *stock_request.Service
	tracking *tracking.Service
}

// NewStockRequestHandler creates a new stock request handler.
func NewStockRequestHandler(base *BaseHandler, service *stock_request.Service, tracking *tracking.Service) *StockRequestHandler {
	return &StockRequestHandler{BaseHandler: base, service: service, tracking: tracking}
}

// Create handles POST /stock-requests
func (h *StockRequestHandler) Create(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	var req dto.CreateStockRequestRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	sr, err := h.service.Create(c.Request.Context(), scope, in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromStockRequest(sr))
}

// List handles GET /stock-requests
func (h *StockRequestHandler) List(c *gin.Context) {
	listDocuments(h.BaseHandler, c, h.service.List, dto.FromStockRequest)
}

// Get handles GET /stock-requests/:id
func (h *StockRequestHandler) Get(c *gin.Context) {
	runDocumentAction(h.BaseHandler, c, h.service.Get, dto.FromStockRequest)
}

// Submit handles POST /stock-requests/:id/submit
func (h *StockRequestHandler) Submit(c *gin.Context) {
	runDocumentAction(h.BaseHandler, c, h.service.Submit, dto.FromStockRequest)
}

// Approve handles POST /stock-requests/:id/approve
func (h *StockRequestHandler) Approve(c *gin.Context) {
	runDocumentAction(h.BaseHandler, c, h.service.Approve, dto.FromStockRequest)
}

// Reject handles POST /stock-requests/:id/reject
func (h *StockRequestHandler) Reject(c *gin.Context) {
	runReasonAction(h.BaseHandler, c, h.service.Reject, dto.FromStockRequest)
}

// Cancel handles POST /stock-requests/:id/cancel. Linked delivery notes that
// could not be voided come back as warnings.
func (h *StockRequestHandler) Cancel(c *gin.Context) {
	runReasonAction(h.BaseHandler, c, h.service.Cancel, func(res *stock_request.CancelResult) dto.StockRequestResponse {
		if len(res.Warnings) > 0 {
			logger.Warn(c.Request.Context(), "stock request cancelled with warnings",
				"stock_request_id", res.Request.ID, "warnings", res.Warnings)
		}
		return dto.FromCancelResult(res)
	})
}

// Complete handles POST /stock-requests/:id/complete
func (h *StockRequestHandler) Complete(c *gin.Context) {
	runDocumentAction(h.BaseHandler, c, h.service.Complete, dto.FromStockRequest)
}

// Status handles GET /stock-requests/:id/status
func (h *StockRequestHandler) Status(c *gin.Context) {
	runDocumentAction(h.BaseHandler, c, h.tracking.StockRequestStatus, func(v *tracking.RequestView) *tracking.RequestView { return v })
}
