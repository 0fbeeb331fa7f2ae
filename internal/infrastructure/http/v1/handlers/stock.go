package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/entity"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/registers/stock"
	"stockflow/internal/infrastructure/http/v1/dto"
)

// BalanceReader reads on-hand balances of one company.
type BalanceReader interface {
	Balances(ctx context.Context, companyID id.ID, filter stock.BalanceFilter) ([]entity.StockBalance, error)
}

// StockHandler handles HTTP requests for the stock register.
type StockHandler struct {
	*BaseHandler
	balances BalanceReader
}

// NewStockHandler creates a new stock register handler.
func NewStockHandler(base *BaseHandler, balances BalanceReader) *StockHandler {
	return &StockHandler{BaseHandler: base, balances: balances}
}

// GetBalances handles GET /stock/balances?warehouseId=
func (h *StockHandler) GetBalances(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	var q dto.BalanceQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	rows, err := h.balances.Balances(c.Request.Context(), scope.CompanyID, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	out := make([]dto.StockBalanceResponse, 0, len(rows))
	for _, b := range rows {
		out = append(out, dto.FromStockBalance(b))
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}
