package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
	"stockflow/internal/domain/documents/stock_request"
	"stockflow/internal/domain/fulfillment"
)

func TestExtractDBColumns_FlattensEmbeddedDocument(t *testing.T) {
	cols := ExtractDBColumns[stock_request.StockRequest]()

	for _, expected := range []string{
		"id", "version", "company_id", "business_unit_id", "number",
		"created_at", "updated_by", "requesting_warehouse_id", "status", "notes",
	} {
		assert.Contains(t, cols, expected)
	}
	assert.NotContains(t, cols, "-")
	assert.Equal(t, "id", cols[0])
}

func TestStructToMap(t *testing.T) {
	scope := tenant.Scope{CompanyID: id.New(), BusinessUnitID: id.New(), UserID: "u-1"}
	sr := stock_request.NewStockRequest(scope, id.New(), id.New(), nil)
	sr.Number = "SR-2026-00001"

	m := StructToMap(sr)

	assert.Equal(t, sr.ID, m["id"])
	assert.Equal(t, 1, m["version"])
	assert.Equal(t, scope.CompanyID, m["company_id"])
	assert.Equal(t, "SR-2026-00001", m["number"])
	assert.Equal(t, fulfillment.RequestDraft, m["status"])
	assert.NotContains(t, m, "items")
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
	assert.Nil(t, StructToMap((*stock_request.StockRequest)(nil)))
}
