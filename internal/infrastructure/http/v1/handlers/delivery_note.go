package handlers

import (
	"github.com/gin-gonic/gin"

	"stockflow/internal/domain/documents/delivery_note"
	"stockflow/internal/domain/documents/pick_list"
	"stockflow/internal/domain/tracking"
	"stockflow/internal/infrastructure/http/v1/dto"
)

// DeliveryNoteHandler handles HTTP requests for delivery notes.
type DeliveryNoteHandler struct {
	*BaseHandler
	service   *delivery_note.Service
	pickLists *pick_list.Service
	tracking  *tracking.Service
}

// NewDeliveryNoteHandler creates a new delivery note handler.
func NewDeliveryNoteHandler(
	base *BaseHandler,
	service *delivery_note.Service,
	pickLists *pick_list.Service,
	tracking *tracking.Service,
) *DeliveryNoteHandler {
	return &DeliveryNoteHandler{BaseHandler: base, service: service, pickLists: pickLists, tracking: tracking}
}

// Create handles POST /delivery-notes
func (h *DeliveryNoteHandler) Create(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	var req dto.CreateDeliveryNoteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	dn, err := h.service.Create(c.Request.Context(), scope, in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromDeliveryNote(dn))
}

// List handles GET /delivery-notes
func (h *DeliveryNoteHandler) List(c *gin.Context) {
	listDocuments(h.BaseHandler, c, h.service.List, dto.FromDeliveryNote)
}

// Get handles GET /delivery-notes/:id
func (h *DeliveryNoteHandler) Get(c *gin.Context) {
	runDocumentAction(h.BaseHandler, c, h.service.Get, dto.FromDeliveryNote)
}

// Status handles GET /delivery-notes/:id/status
func (h *DeliveryNoteHandler) Status(c *gin.Context) {
	runDocumentAction(h.BaseHandler, c, h.tracking.DeliveryNoteStatus, func(v *tracking.NoteView) *tracking.NoteView { return v })
}

// Confirm handles POST /delivery-notes/:id/confirm
func (h *DeliveryNoteHandler) Confirm(c *gin.Context) {
	runDocumentAction(h.BaseHandler, c, h.service.Confirm, dto.FromDeliveryNote)
}

// QueuePicking handles POST /delivery-notes/:id/queue-picking
func (h *DeliveryNoteHandler) QueuePicking(c *gin.Context) {
	runDocumentAction(h.BaseHandler, c, h.service.QueuePicking, dto.FromDeliveryNote)
}

// MarkDispatchReady handles POST /delivery-notes/:id/dispatch-ready
func (h *DeliveryNoteHandler) MarkDispatchReady(c *gin.Context) {
	var req dto.MarkDispatchReadyRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	lines, err := req.ToLines()
	if err != nil {
		h.Error(c, err)
		return
	}
	runDocumentAction(h.BaseHandler, c, withInput(h.service.MarkDispatchReady, lines), dto.FromReadyResult)
}

// Dispatch handles POST /delivery-notes/:id/dispatch
func (h *DeliveryNoteHandler) Dispatch(c *gin.Context) {
	var req dto.DispatchRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}
	runDocumentAction(h.BaseHandler, c, withInput(h.service.Dispatch, in), dto.FromDeliveryNote)
}

// Receive handles POST /delivery-notes/:id/receive
func (h *DeliveryNoteHandler) Receive(c *gin.Context) {
	var req dto.ReceiveRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}
	runDocumentAction(h.BaseHandler, c, withInput(h.service.Receive, in), dto.FromDeliveryNote)
}

// Void handles POST /delivery-notes/:id/void
func (h *DeliveryNoteHandler) Void(c *gin.Context) {
	runReasonAction(h.BaseHandler, c, h.service.Void, dto.FromDeliveryNote)
}

// PickLists handles GET /delivery-notes/:id/pick-lists
func (h *DeliveryNoteHandler) PickLists(c *gin.Context) {
	runDocumentAction(h.BaseHandler, c, h.pickLists.ListByNote, func(lists []*pick_list.PickList) []dto.PickListResponse {
		out := make([]dto.PickListResponse, 0, len(lists))
		for _, pl := range lists {
			out = append(out, dto.FromPickList(pl))
		}
		return out
	})
}
