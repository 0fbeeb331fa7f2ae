package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
	appctx "stockflow/internal/core/context"
	"stockflow/internal/domain/auth"
	"stockflow/internal/infrastructure/http/v1/dto"
	"stockflow/internal/infrastructure/http/v1/middleware"
	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/internal/testutil"
	"stockflow/internal/testutil/fixture"
	"stockflow/pkg/logger"
)

const testSecret = "router-test-secret-0123"

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

// memIdempotency is an in-memory middleware.IdempotencyStore.
type memIdempotency struct {
	mu   sync.Mutex
	rows map[string]*memIdemRow
}

type memIdemRow struct {
	fingerprint string
	operation   string
	done        bool
	status      int
	contentType string
	body        []byte
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{rows: map[string]*memIdemRow{}}
}

func (m *memIdempotency) Acquire(_ context.Context, claim postgres.IdempotencyClaim) (*postgres.IdempotencyReplay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := claim.CompanyID + "/" + claim.Key
	row, ok := m.rows[k]
	if !ok {
		m.rows[k] = &memIdemRow{fingerprint: claim.Fingerprint, operation: claim.Operation}
		return nil, nil
	}
	if row.fingerprint != claim.Fingerprint || row.operation != claim.Operation {
		return nil, apperror.NewIdempotencyMismatch(claim.Key)
	}
	if !row.done {
		return nil, apperror.NewIdempotencyConflict(claim.Key)
	}
	return &postgres.IdempotencyReplay{StatusCode: row.status, ContentType: row.contentType, Body: row.body}, nil
}

func (m *memIdempotency) finish(companyID, key string, status int, contentType string, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[companyID+"/"+key]
	if !ok {
		return errors.New("unknown key")
	}
	row.done, row.status, row.contentType, row.body = true, status, contentType, body
	return nil
}

func (m *memIdempotency) Complete(_ context.Context, companyID, key string, status int, contentType string, response any) error {
	return m.finish(companyID, key, status, contentType, response)
}

func (m *memIdempotency) Fail(_ context.Context, companyID, key string, status int, contentType string, response any) error {
	return m.finish(companyID, key, status, contentType, response)
}

type api struct {
	t        *testing.T
	pipeline *fixture.Pipeline
	router   http.Handler
	jwt      *auth.JWTService
	token    string
}

func newAPI(t *testing.T) *api {
	t.Helper()

	p := fixture.New(t)
	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig(testSecret))

	router := NewRouter(RouterConfig{
		Logger:        logger.NewNop(),
		JWTValidator:  jwtSvc,
		Idempotency:   newMemIdempotency(),
		DB:            pinger{},
		Version:       "test",
		StockRequests: p.Requests,
		DeliveryNotes: p.Notes,
		PickLists:     p.PickLists,
		Tracking:      p.Tracking,
		Balances:      p.Ledger,
	})

	a := &api{t: t, pipeline: p, router: router, jwt: jwtSvc}
	a.token = a.tokenFor(&appctx.UserContext{
		UserID:         testutil.UserID,
		CompanyID:      testutil.CompanyID.String(),
		BusinessUnitID: testutil.BusinessUnitID.String(),
		Permissions:    []string{"*"},
	})
	return a
}

func (a *api) tokenFor(user *appctx.UserContext) string {
	a.t.Helper()
	token, _, err := a.jwt.GenerateAccessToken(user)
	require.NoError(a.t, err)
	return token
}

func (a *api) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *api) createRequest(qty string) dto.StockRequestResponse {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/stock-requests", map[string]any{
		"requestingWarehouseId": fixture.RequestingWarehouse.String(),
		"fulfillingWarehouseId": fixture.FulfillingWarehouse.String(),
		"items": []map[string]any{
			{"itemId": fixture.ItemA.String(), "uomId": fixture.Each.String(), "requestedQty": qty, "unitPrice": "2.50"},
		},
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.StockRequestResponse](a.t, w)
}

func TestRouter_Health(t *testing.T) {
	a := newAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	down := NewRouter(RouterConfig{
		Logger:        logger.NewNop(),
		JWTValidator:  a.jwt,
		DB:            pinger{err: errors.New("connection refused")},
		StockRequests: a.pipeline.Requests,
		DeliveryNotes: a.pipeline.Notes,
		PickLists:     a.pipeline.PickLists,
		Tracking:      a.pipeline.Tracking,
		Balances:      a.pipeline.Ledger,
	})
	w = httptest.NewRecorder()
	down.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_AuthAndScope(t *testing.T) {
	a := newAPI(t)

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stock-requests", nil)
		w := httptest.NewRecorder()
		a.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, apperror.CodeUnauthorized, decode[dto.ErrorResponse](t, w).Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := a.do(http.MethodGet, "/api/v1/stock-requests", nil, "Authorization", "Bearer not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("foreign business unit", func(t *testing.T) {
		w := a.do(http.MethodGet, "/api/v1/stock-requests", nil,
			middleware.HeaderBusinessUnit, testutil.OtherUnitID.String())
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing permission", func(t *testing.T) {
		a.token = a.tokenFor(&appctx.UserContext{
			UserID:         "viewer",
			CompanyID:      testutil.CompanyID.String(),
			BusinessUnitID: testutil.BusinessUnitID.String(),
			Permissions:    []string{"stock_request:read"},
		})
		w := a.do(http.MethodGet, "/api/v1/stock-requests", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = a.do(http.MethodPost, "/api/v1/delivery-notes/"+fixture.ItemA.String()+"/void", map[string]string{"reason": "x"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		body := decode[dto.ErrorResponse](t, w)
		assert.Equal(t, "delivery_note:void", body.Details["required_permission"])
	})
}

func TestRouter_InvalidTransitionNamesCurrentStatus(t *testing.T) {
	a := newAPI(t)
	sr := a.createRequest("10")

	w := a.do(http.MethodPost, "/api/v1/stock-requests/"+sr.ID+"/approve", nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[dto.ErrorResponse](t, w)
	assert.Equal(t, apperror.CodeInvalidTransition, body.Code)
	assert.Equal(t, "draft", body.Details["currentStatus"])
	assert.Contains(t, body.Message, "draft")
}

func TestRouter_CrossTenantIsNotFound(t *testing.T) {
	a := newAPI(t)
	sr := a.createRequest("10")

	a.token = a.tokenFor(&appctx.UserContext{
		UserID:         "intruder",
		CompanyID:      testutil.OtherCompanyID.String(),
		BusinessUnitID: testutil.OtherUnitID.String(),
		IsAdmin:        true,
	})
	w := a.do(http.MethodGet, "/api/v1/stock-requests/"+sr.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_FulfillmentRoundTrip(t *testing.T) {
	a := newAPI(t)
	a.pipeline.Stock(fixture.ItemA, 100)

	sr := a.createRequest("100")
	assert.True(t, sr.TotalAmount.Equal(decimal.NewFromInt(250)), sr.TotalAmount.String())
	for _, action := range []string{"submit", "approve"} {
		w := a.do(http.MethodPost, "/api/v1/stock-requests/"+sr.ID+"/"+action, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := a.do(http.MethodPost, "/api/v1/delivery-notes", map[string]any{
		"stockRequestIds": []string{sr.ID},
		"items":           []map[string]any{{"srItemId": sr.Items[0].ID, "allocatedQty": 100}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	dn := decode[dto.DeliveryNoteResponse](t, w)
	notePath := "/api/v1/delivery-notes/" + dn.ID

	w = a.do(http.MethodPost, notePath+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/api/v1/pick-lists", map[string]any{"deliveryNoteId": dn.ID, "pickerUserIds": []string{"picker-1"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	pl := decode[dto.PickListResponse](t, w)

	w = a.do(http.MethodPatch, "/api/v1/pick-lists/"+pl.ID+"/status", map[string]string{"status": "in_progress"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodPatch, "/api/v1/pick-lists/"+pl.ID+"/items", map[string]any{
		"items": []map[string]any{{"pickListItemId": pl.Items[0].ID, "pickedQty": 90}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodPost, notePath+"/dispatch-ready", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ready := decode[dto.DeliveryNoteResponse](t, w)
	assert.Equal(t, "dispatch_ready", ready.Status)
	assert.Equal(t, "10.0000", ready.Items[0].ShortQty.String())

	w = a.do(http.MethodPost, notePath+"/dispatch", map[string]any{"driverName": "J. Doe"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dispatched := decode[dto.DeliveryNoteResponse](t, w)
	assert.Equal(t, "dispatched", dispatched.Status)
	assert.Equal(t, "90.0000", dispatched.Items[0].InTransitQty.String())

	w = a.do(http.MethodPost, notePath+"/dispatch", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperror.CodeNothingToDispatch, decode[dto.ErrorResponse](t, w).Code)

	w = a.do(http.MethodPost, notePath+"/receive", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "received", decode[dto.DeliveryNoteResponse](t, w).Status)

	w = a.do(http.MethodGet, "/api/v1/stock/balances?warehouseId="+fixture.RequestingWarehouse.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	balances := decode[struct {
		Items []dto.StockBalanceResponse `json:"items"`
	}](t, w)
	require.Len(t, balances.Items, 1)
	assert.Equal(t, "90.0000", balances.Items[0].Quantity.String())
	assert.Nil(t, balances.Items[0].LocationID)

	w = a.do(http.MethodGet, "/api/v1/stock-requests/"+sr.ID+"/status", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[map[string]any](t, w)
	assert.Equal(t, "approved", view["status"])
	assert.Equal(t, "received", view["derivedStatus"])

	w = a.do(http.MethodGet, "/api/v1/pick-lists/"+pl.ID+"/sheet", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentTypeForTest, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), pl.Number)
}

const xlsxContentTypeForTest = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func TestRouter_IdempotentReplay(t *testing.T) {
	a := newAPI(t)
	body := map[string]any{
		"requestingWarehouseId": fixture.RequestingWarehouse.String(),
		"fulfillingWarehouseId": fixture.FulfillingWarehouse.String(),
		"items": []map[string]any{
			{"itemId": fixture.ItemA.String(), "uomId": fixture.Each.String(), "requestedQty": 5},
		},
	}

	first := a.do(http.MethodPost, "/api/v1/stock-requests", body, middleware.HeaderIdempotencyKey, "key-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := a.do(http.MethodPost, "/api/v1/stock-requests", body, middleware.HeaderIdempotencyKey, "key-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	w := a.do(http.MethodGet, "/api/v1/stock-requests", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[dto.ListResponse[dto.StockRequestResponse]](t, w).TotalCount)

	body["notes"] = "changed"
	third := a.do(http.MethodPost, "/api/v1/stock-requests", body, middleware.HeaderIdempotencyKey, "key-1")
	assert.Equal(t, http.StatusConflict, third.Code)
}

func TestRouter_ListFilters(t *testing.T) {
	a := newAPI(t)
	sr := a.createRequest("1")
	a.createRequest("2")
	w := a.do(http.MethodPost, "/api/v1/stock-requests/"+sr.ID+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodGet, "/api/v1/stock-requests?status=submitted", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[dto.ListResponse[dto.StockRequestResponse]](t, w)
	require.Len(t, page.Items, 1)
	assert.Equal(t, sr.ID, page.Items[0].ID)

	w = a.do(http.MethodGet, "/api/v1/stock-requests?warehouseId=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_PartialDispatchHonoursLineQuantities(t *testing.T) {
	a := newAPI(t)
	a.pipeline.Stock(fixture.ItemA, 50)

	sr := a.createRequest("50")
	for _, action := range []string{"submit", "approve"} {
		w := a.do(http.MethodPost, "/api/v1/stock-requests/"+sr.ID+"/"+action, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := a.do(http.MethodPost, "/api/v1/delivery-notes", map[string]any{
		"stockRequestIds": []string{sr.ID},
		"items":           []map[string]any{{"srItemId": sr.Items[0].ID, "allocatedQty": 50}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	dn := decode[dto.DeliveryNoteResponse](t, w)
	require.Len(t, dn.Items, 1)
	line := dn.Items[0].ID
	notePath := "/api/v1/delivery-notes/" + dn.ID

	w = a.do(http.MethodPost, notePath+"/confirm", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = a.do(http.MethodPost, "/api/v1/pick-lists", map[string]any{"deliveryNoteId": dn.ID, "pickerUserIds": []string{"picker-1"}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	pl := decode[dto.PickListResponse](t, w)
	w = a.do(http.MethodPatch, "/api/v1/pick-lists/"+pl.ID+"/status", map[string]string{"status": "in_progress"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodPost, notePath+"/dispatch-ready", map[string]any{
		"items": []map[string]any{{"deliveryNoteItemId": line, "pickedQty": 50}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "50.0000", decode[dto.DeliveryNoteResponse](t, w).Items[0].PickedQty.String())

	w = a.do(http.MethodPost, notePath+"/dispatch", map[string]any{
		"driverName": "J. Doe",
		"items":      []map[string]any{{"deliveryNoteItemId": line, "dispatchQty": 20}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dispatched := decode[dto.DeliveryNoteResponse](t, w)
	assert.Equal(t, "dispatched", dispatched.Status)
	assert.Equal(t, "20.0000", dispatched.Items[0].DispatchedQty.String())

	w = a.do(http.MethodPost, notePath+"/receive", map[string]any{
		"items": []map[string]any{{"deliveryNoteItemId": line, "receivedQty": 5}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	partial := decode[dto.DeliveryNoteResponse](t, w)
	assert.Equal(t, "dispatched", partial.Status)
	assert.Equal(t, "5.0000", partial.Items[0].ReceivedQty.String())

	w = a.do(http.MethodPost, notePath+"/receive", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	received := decode[dto.DeliveryNoteResponse](t, w)
	assert.Equal(t, "received", received.Status)
	assert.Equal(t, "20.0000", received.Items[0].ReceivedQty.String())

	w = a.do(http.MethodPost, notePath+"/dispatch", map[string]any{
		"items": []map[string]any{{"deliveryNoteItemId": line, "dispatchQty": 30}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rest := decode[dto.DeliveryNoteResponse](t, w)
	assert.Equal(t, "dispatched", rest.Status)
	assert.Equal(t, "50.0000", rest.Items[0].DispatchedQty.String())
}
