package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/apperror"
	"stockflow/internal/domain/documents/pick_list"
	"stockflow/internal/infrastructure/http/v1/dto"
	"stockflow/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PickListHandler handles HTTP requests for pick lists.
type PickListHandler struct {
	*BaseHandler
	service *pick_list.Service
}

// NewPickListHandler creates a new pick list handler.
func NewPickListHandler(base *BaseHandler, service *pick_list.Service) *PickListHandler {
	return &PickListHandler{BaseHandler: base, service: service}
}

// Create handles POST /pick-lists
func (h *PickListHandler) Create(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	var req dto.CreatePickListRequest
	if !h.BindJSON(c, &req) {
		return
	}
	dnID, err := dto.ParseID("deliveryNoteId", req.DeliveryNoteID)
	if err != nil {
		h.Error(c, err)
		return
	}

	pl, err := h.service.Create(c.Request.Context(), scope, dnID, req.PickerUserIDs)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromPickList(pl))
}

// Get handles GET /pick-lists/:id
func (h *PickListHandler) Get(c *gin.Context) {
	runDocumentAction(h.BaseHandler, c, h.service.Get, dto.FromPickList)
}

// Delete handles DELETE /pick-lists/:id
func (h *PickListHandler) Delete(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	plID, ok := h.PathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), scope, plID); err != nil {
		h.Error(c, err)
		return
	}
	h.NoContent(c)
}

// UpdateStatus handles PATCH /pick-lists/:id/status
func (h *PickListHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdatePickListStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}
	target, err := req.Target()
	if err != nil {
		h.Error(c, err)
		return
	}
	runDocumentAction(h.BaseHandler, c, withInput(h.service.UpdateStatus, target), dto.FromPickList)
}

// UpdateItems handles PATCH /pick-lists/:id/items
func (h *PickListHandler) UpdateItems(c *gin.Context) {
	var req dto.UpdatePickListItemsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	progress, err := req.ToProgress()
	if err != nil {
		h.Error(c, err)
		return
	}
	runDocumentAction(h.BaseHandler, c, withInput(h.service.UpdateItems, progress), dto.FromPickList)
}

// Sheet handles GET /pick-lists/:id/sheet and streams the XLSX pick sheet.
func (h *PickListHandler) Sheet(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	plID, ok := h.PathID(c)
	if !ok {
		return
	}

	f, filename, err := h.service.ExportSheet(c.Request.Context(), scope, plID)
	if err != nil {
		h.Error(c, err)
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn(c.Request.Context(), "close pick sheet", "error", err)
		}
	}()

	buf, err := f.WriteToBuffer()
	if err != nil {
		h.Error(c, apperror.NewInternal(fmt.Errorf("render pick sheet: %w", err)))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
