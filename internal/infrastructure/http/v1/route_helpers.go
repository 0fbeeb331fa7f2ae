package v1

import (
	"github.com/gin-gonic/gin"

	"stockflow/internal/core/security"
	"stockflow/internal/infrastructure/http/v1/handlers"
	"stockflow/internal/infrastructure/http/v1/middleware"
)

// permissionGate builds RequirePermission middleware over one checker.
type permissionGate struct {
	checker security.PermissionChecker
}

func (g permissionGate) require(p security.Permission) gin.HandlerFunc {
	return middleware.RequirePermission(g.checker, p)
}

// registerStockRequestRoutes registers /stock-requests.
//
//	GET  /                 list
//	POST /                 create
//	GET  /:id              get
//	GET  /:id/status       derived fulfillment status
//	POST /:id/{action}     submit, approve, reject, cancel, complete
func registerStockRequestRoutes(g *gin.RouterGroup, perm permissionGate, h *handlers.StockRequestHandler) {
	g.GET("", perm.require(security.PermStockRequestRead), h.List)
	g.POST("", perm.require(security.PermStockRequestCreate), h.Create)
	g.GET("/:id", perm.require(security.PermStockRequestRead), h.Get)
	g.GET("/:id/status", perm.require(security.PermStockRequestRead), h.Status)
	g.POST("/:id/submit", perm.require(security.PermStockRequestSubmit), h.Submit)
	g.POST("/:id/approve", perm.require(security.PermStockRequestApprove), h.Approve)
	g.POST("/:id/reject", perm.require(security.PermStockRequestApprove), h.Reject)
	g.POST("/:id/cancel", perm.require(security.PermStockRequestCancel), h.Cancel)
	g.POST("/:id/complete", perm.require(security.PermStockRequestApprove), h.Complete)
}

// registerDeliveryNoteRoutes registers /delivery-notes.
func registerDeliveryNoteRoutes(g *gin.RouterGroup, perm permissionGate, h *handlers.DeliveryNoteHandler) {
	g.GET("", perm.require(security.PermDeliveryNoteRead), h.List)
	g.POST("", perm.require(security.PermDeliveryNoteCreate), h.Create)
	g.GET("/:id", perm.require(security.PermDeliveryNoteRead), h.Get)
	g.GET("/:id/status", perm.require(security.PermDeliveryNoteRead), h.Status)
	g.GET("/:id/pick-lists", perm.require(security.PermPickListRead), h.PickLists)
	g.POST("/:id/confirm", perm.require(security.PermDeliveryNoteUpdate), h.Confirm)
	g.POST("/:id/queue-picking", perm.require(security.PermDeliveryNoteUpdate), h.QueuePicking)
	g.POST("/:id/dispatch-ready", perm.require(security.PermDeliveryNoteUpdate), h.MarkDispatchReady)
	g.POST("/:id/dispatch", perm.require(security.PermDeliveryNoteDispatch), h.Dispatch)
	g.POST("/:id/receive", perm.require(security.PermDeliveryNoteReceive), h.Receive)
	g.POST("/:id/void", perm.require(security.PermDeliveryNoteVoid), h.Void)
}

// registerPickListRoutes registers /pick-lists.
func registerPickListRoutes(g *gin.RouterGroup, perm permissionGate, h *handlers.PickListHandler) {
	g.POST("", perm.require(security.PermPickListManage), h.Create)
	g.GET("/:id", perm.require(security.PermPickListRead), h.Get)
	g.DELETE("/:id", perm.require(security.PermPickListManage), h.Delete)
	g.GET("/:id/sheet", perm.require(security.PermPickListRead), h.Sheet)
	g.PATCH("/:id/status", perm.require(security.PermPickListManage), h.UpdateStatus)
	g.PATCH("/:id/items", perm.require(security.PermPickListManage), h.UpdateItems)
}

func registerStockRoutes(g *gin.RouterGroup, perm permissionGate, h *handlers.StockHandler) {
	g.GET("/balances", perm.require(security.PermStockRead), h.GetBalances)
}
