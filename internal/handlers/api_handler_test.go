package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"order_ledger/internal/models"
	"order_ledger/internal/repository/memory"
	"order_ledger/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testVariant = "Netflix Premium --1m"

func setupRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	log := zap.NewNop()

	store := memory.New()
	supplier := &models.Supplier{Name: "Supplier A"}
	require.NoError(t, store.Suppliers().Create(ctx, supplier))
	variant := &models.Variant{Name: testVariant}
	require.NoError(t, store.Variants().Create(ctx, variant))
	require.NoError(t, store.Variants().AddSupplierCost(ctx, &models.SupplierCost{VariantID: variant.ID, SourceID: supplier.ID, Price: 120000}))
	require.NoError(t, store.Variants().UpsertPriceConfig(ctx, &models.PriceConfig{
		VariantID: variant.ID,
		PctCtv:    decimal.NewNullDecimal(decimal.RequireFromString("1.1")),
		PctKhach:  decimal.NewNullDecimal(decimal.RequireFromString("1.3")),
	}))

	pricing := services.NewPricingService(store, nil, services.PricingOptions{DefaultDays: 30}, log)
	ledger := services.NewLedgerService(store, log, nil)
	archive := services.NewArchiveService(store, ledger, log, nil)
	orders := services.NewOrderService(store, pricing, ledger, archive, nil, 30, log)

	h := NewAPIHandler(pricing, orders, archive, ledger, log)
	return NewRouter(h, log), store
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}

func TestQuotePrice(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/pricing/quote", map[string]any{
		"variantName": testVariant,
		"orderCode":   "MAVC001",
		"supplierId":  1,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(132000), body["price"])
	assert.Equal(t, float64(120000), body["cost"])
	assert.Equal(t, "ctv", body["tier"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestQuotePrice_ErrorStatuses(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/pricing/quote", map[string]any{"variantName": "Unknown --1m", "orderCode": "MAVC001"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/pricing/quote", map[string]any{"orderCode": "MAVC001"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/pricing/quote", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQuotePrice_NoSupplierPrice(t *testing.T) {
	r, store := setupRouter(t)
	require.NoError(t, store.Variants().Create(context.Background(), &models.Variant{Name: "Unquoted --1m"}))

	w := doJSON(t, r, http.MethodPost, "/api/pricing/quote", map[string]any{"variantName": "Unquoted --1m", "orderCode": "MAVL001"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestOrderLifecycle(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/orders", map[string]any{
		"id_order":   "MAVL100",
		"id_product": testVariant,
		"customer":   "Tran Thi B",
		"supply_id":  1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, float64(172000), created["price"])
	assert.Equal(t, "UNPAID", created["status_code"])
	id := int64(created["id"].(float64))
	require.Equal(t, int64(1), id)

	w = doJSON(t, r, http.MethodGet, "/api/orders/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPatch, "/api/orders/1", map[string]any{"check_flag": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, decode(t, w), "warning")

	w = doJSON(t, r, http.MethodGet, "/api/suppliers/1/cycles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cycles := decode(t, w)["data"].([]any)
	require.Len(t, cycles, 1)
	assert.Equal(t, float64(120000), cycles[0].(map[string]any)["import"])

	w = doJSON(t, r, http.MethodPatch, "/api/orders/1", map[string]any{"status": "PAID"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPatch, "/api/orders/1", map[string]any{"status": "UNPAID"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/orders?status=PAID", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = doJSON(t, r, http.MethodDelete, "/api/orders/1", map[string]any{"can_hoan": 50000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	deleted := decode(t, w)
	assert.Equal(t, true, deleted["success"])
	assert.Equal(t, "canceled", deleted["movedTo"])
	assert.Equal(t, float64(50000), deleted["deletedOrder"].(map[string]any)["refund"])

	w = doJSON(t, r, http.MethodGet, "/api/orders/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/archives/canceled/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MAVL100", decode(t, w)["id_order"])

	w = doJSON(t, r, http.MethodGet, "/api/archives/canceled", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])
}

func TestDeleteOrder_WithoutBody(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/orders", map[string]any{"id_order": "MAVL1", "id_product": testVariant})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	req := httptest.NewRequest(http.MethodDelete, "/api/orders/1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "deleted", decode(t, rec)["movedTo"])
}

func TestBadParams(t *testing.T) {
	r, _ := setupRouter(t)

	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodGet, "/api/orders/abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodGet, "/api/orders?supply_id=x", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodGet, "/api/archives/deleted", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, "/api/suppliers/9/cycles", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodPost, "/api/suppliers/1/payments", map[string]any{"amount": 0}).Code)
}

func TestSupplierCostAndPayment(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/variants/supplier-costs", map[string]any{"variant_name": "Canva Pro --12m", "supplier_id": 1, "price": 250000})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPut, "/api/variants/price-config", map[string]any{"variant_name": "Canva Pro --12m", "pct_ctv": "1.2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/pricing/quote", map[string]any{"variantName": "Canva Pro --12m", "orderCode": "MAVC1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(300000), decode(t, w)["price"])

	w = doJSON(t, r, http.MethodPost, "/api/suppliers/1/payments", map[string]any{"amount": 40000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(40000), decode(t, w)["paid"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(services.ErrOrderNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(services.ErrNoSupplierPrice))
	assert.Equal(t, http.StatusInternalServerError, statusFor(services.ErrTransactionFailed))
}
