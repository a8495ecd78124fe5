package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/stockbook/internal/events"
	stockbookHttp "github.com/MrJamesThe3rd/stockbook/internal/http"
	invoiceHandler "github.com/MrJamesThe3rd/stockbook/internal/http/invoice"
	productHandler "github.com/MrJamesThe3rd/stockbook/internal/http/product"
	purchaseHandler "github.com/MrJamesThe3rd/stockbook/internal/http/purchase"
	registryHandler "github.com/MrJamesThe3rd/stockbook/internal/http/registry"
	setupHandler "github.com/MrJamesThe3rd/stockbook/internal/http/setup"
	"github.com/MrJamesThe3rd/stockbook/internal/inventory"
	"github.com/MrJamesThe3rd/stockbook/internal/invoice"
	"github.com/MrJamesThe3rd/stockbook/internal/product"
	"github.com/MrJamesThe3rd/stockbook/internal/purchase"
	"github.com/MrJamesThe3rd/stockbook/internal/registry"
	"github.com/MrJamesThe3rd/stockbook/internal/setup"
	"github.com/MrJamesThe3rd/stockbook/internal/store/memory"
)

func newRouter(t *testing.T, repo inventory.Repository, opts stockbookHttp.Options) http.Handler {
	t.Helper()

	ledger := inventory.NewLedger(inventory.AttributeOnSellout)

	router, err := stockbookHttp.New(
		opts,
		productHandler.NewHandler(product.NewService(repo, ledger)),
		invoiceHandler.NewHandler(invoice.NewService(repo, ledger, events.Log{})),
		purchaseHandler.NewHandler(purchase.NewService(repo, ledger, events.Log{})),
		registryHandler.NewHandler(registry.NewService(repo)),
		setupHandler.NewHandler(setup.NewService(repo)),
	)
	require.NoError(t, err)

	return router
}

func do(t *testing.T, h http.Handler, method, path string, body any, header ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	if bytes.HasPrefix(bytes.TrimSpace(w.Body.Bytes()), []byte("{")) {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}

	return w, out
}

func doList(t *testing.T, h http.Handler, path string) []map[string]any {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))

	return out
}

func TestRouter_Healthz(t *testing.T) {
	router := newRouter(t, memory.New(), stockbookHttp.Options{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestRouter_RestockAndSell(t *testing.T) {
	router := newRouter(t, memory.New(), stockbookHttp.Options{})

	w, res := do(t, router, http.MethodPost, "/api/v1/setup", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 4, res["categories"])

	suppliers := doList(t, router, "/api/v1/suppliers")
	require.Len(t, suppliers, 1)

	customers := doList(t, router, "/api/v1/customers")
	require.Len(t, customers, 1)
	assert.Equal(t, "Walk-in Customer", customers[0]["name"])

	w, res = do(t, router, http.MethodPost, "/api/v1/purchase-orders", map[string]any{
		"supplierId": suppliers[0]["id"],
		"poNumber":   "PO-2025-001",
		"batches": []any{
			map[string]any{
				"productInfo": map[string]any{
					"productName": "Galaxy S24", "category": "Smartphones", "purchaseDate": "2025-03-14",
					"purchasePrice": 400, "sellingPrice": 650,
				},
				"details": map[string]any{"trackingType": "imei", "imeis": []string{"356938035643809", "356938035643810"}},
			},
			map[string]any{
				"productInfo": map[string]any{
					"productName": "USB Cable", "category": "Accessories", "purchaseDate": "2025-03-14",
					"purchasePrice": 2.5, "sellingPrice": 10,
				},
				"details": map[string]any{"trackingType": "quantity", "quantity": 10},
			},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	po := res["purchaseOrder"].(map[string]any)
	assert.Equal(t, "Draft", po["status"])
	assert.EqualValues(t, 825, po["totalCost"])
	assert.Len(t, po["productIds"], 3)

	products := res["products"].([]any)
	require.Len(t, products, 3)

	cable := products[2].(map[string]any)
	assert.Equal(t, "2025-03-14", cable["purchaseDate"])
	assert.EqualValues(t, 10, cable["quantity"])

	w, res = do(t, router, http.MethodPost, "/api/v1/invoices", map[string]any{
		"customerId": customers[0]["id"],
		"items": []any{
			map[string]any{"productId": cable["id"], "quantity": 4, "sellingPrice": 9.99},
			map[string]any{"productId": products[0].(map[string]any)["id"], "quantity": 1, "sellingPrice": 640},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Regexp(t, `^INV-\d{4}-0001$`, res["invoiceNumber"])
	assert.EqualValues(t, 679.96, res["totalAmount"])
	assert.Equal(t, "Walk-in Customer", res["customerName"])

	available := doList(t, router, "/api/v1/products?available=true&trackingType=quantity")
	require.Len(t, available, 1)
	assert.EqualValues(t, 6, available[0]["quantity"])

	sold := doList(t, router, "/api/v1/products?status=Sold")
	require.Len(t, sold, 1)
	assert.Equal(t, "356938035643809", sold[0]["imei"])

	w, res = do(t, router, http.MethodPost, "/api/v1/invoices", map[string]any{
		"customerId": customers[0]["id"],
		"items":      []any{map[string]any{"productId": cable["id"], "quantity": 7, "sellingPrice": 10}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "insufficient_stock", res["error"])
	assert.EqualValues(t, 1, res["details"].(map[string]any)["shortfall"])

	w, res = do(t, router, http.MethodPatch, "/api/v1/purchase-orders/"+po["id"].(string)+"/status", map[string]any{"status": "Completed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Completed", res["status"])

	w, _ = do(t, router, http.MethodPatch, "/api/v1/purchase-orders/"+po["id"].(string)+"/status", map[string]any{"status": "Ordered"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = do(t, router, http.MethodDelete, "/api/v1/products/"+cable["id"].(string), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	invoices := doList(t, router, "/api/v1/invoices")
	require.Len(t, invoices, 1)
	assert.Len(t, invoices[0]["items"], 2)
}

func TestRouter_Errors(t *testing.T) {
	router := newRouter(t, memory.New(), stockbookHttp.Options{})

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		kind   string
	}{
		{name: "BadID", method: http.MethodGet, path: "/api/v1/products/nope", status: http.StatusBadRequest, kind: "validation"},
		{name: "MissingProduct", method: http.MethodGet, path: "/api/v1/products/6f1c7d3e-0000-4000-8000-000000000001", status: http.StatusNotFound, kind: "not_found"},
		{name: "UnknownField", method: http.MethodPost, path: "/api/v1/categories", body: map[string]any{"title": "Drones"}, status: http.StatusBadRequest, kind: "validation"},
		{name: "EmptyInvoice", method: http.MethodPost, path: "/api/v1/invoices", body: map[string]any{"customerId": "6f1c7d3e-0000-4000-8000-000000000001", "items": []any{}}, status: http.StatusBadRequest, kind: "validation"},
		{name: "MissingCustomer", method: http.MethodPost, path: "/api/v1/invoices", body: map[string]any{
			"customerId": "6f1c7d3e-0000-4000-8000-000000000001",
			"items":      []any{map[string]any{"productId": "6f1c7d3e-0000-4000-8000-000000000002", "quantity": 1, "sellingPrice": 1}},
		}, status: http.StatusNotFound, kind: "not_found"},
		{name: "BadFilter", method: http.MethodGet, path: "/api/v1/products?available=maybe", status: http.StatusBadRequest, kind: "validation"},
		{name: "UnknownStatusFilter", method: http.MethodGet, path: "/api/v1/products?status=Bogus", status: http.StatusBadRequest, kind: "validation"},
		{name: "UnknownTrackingFilter", method: http.MethodGet, path: "/api/v1/products?trackingType=serial", status: http.StatusBadRequest, kind: "validation"},
		{name: "QuantityBeyondStorage", method: http.MethodPost, path: "/api/v1/invoices", body: map[string]any{
			"customerId": "6f1c7d3e-0000-4000-8000-000000000001",
			"items":      []any{map[string]any{"productId": "6f1c7d3e-0000-4000-8000-000000000002", "quantity": 3000000000, "sellingPrice": 1}},
		}, status: http.StatusBadRequest, kind: "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, res := do(t, router, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.kind, res["error"])
		})
	}
}

func TestRouter_RegistryCRUD(t *testing.T) {
	router := newRouter(t, memory.New(), stockbookHttp.Options{})

	w, category := do(t, router, http.MethodPost, "/api/v1/categories", map[string]any{"name": "Wearables"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, _ = do(t, router, http.MethodPost, "/api/v1/categories", map[string]any{"name": "Wearables"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, renamed := do(t, router, http.MethodPut, "/api/v1/categories/"+category["id"].(string), map[string]any{"name": "Watches"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Watches", renamed["name"])

	w, supplier := do(t, router, http.MethodPost, "/api/v1/suppliers", map[string]any{"name": "Acme", "email": "sales@acme.test"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, updated := do(t, router, http.MethodPut, "/api/v1/suppliers/"+supplier["id"].(string), map[string]any{"name": "Acme Ltd"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, supplier["id"], updated["id"])

	w, _ = do(t, router, http.MethodDelete, "/api/v1/categories/"+category["id"].(string), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.Empty(t, doList(t, router, "/api/v1/categories"))
}

func TestRouter_SchemaMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := inventory.NewMockRepository(ctrl)
	repo.EXPECT().ListProducts(gomock.Any(), gomock.Any()).Return(nil, &inventory.StoreUnavailableError{SchemaMissing: true})

	w, res := do(t, newRouter(t, repo, stockbookHttp.Options{}), http.MethodGet, "/api/v1/products", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "schema_missing", res["code"])
}

func token(t *testing.T, secret, subject string, expires time.Time) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expires),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	return signed
}

func TestRouter_OperatorGate(t *testing.T) {
	const secret = "test-secret"

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := inventory.NewMockRepository(ctrl)
	repo.EXPECT().ListCategories(gomock.Any()).DoAndReturn(func(ctx context.Context) ([]*inventory.Category, error) {
		assert.Equal(t, "clerk-7", inventory.OperatorFrom(ctx))
		return []*inventory.Category{}, nil
	})

	router := newRouter(t, repo, stockbookHttp.Options{JWTSecret: secret})

	tests := []struct {
		name   string
		header []string
		status int
	}{
		{name: "NoToken", status: http.StatusUnauthorized},
		{name: "WrongSecret", header: []string{"Authorization", "Bearer " + token(t, "other", "clerk-7", time.Now().Add(time.Hour))}, status: http.StatusUnauthorized},
		{name: "Expired", header: []string{"Authorization", "Bearer " + token(t, secret, "clerk-7", time.Now().Add(-time.Hour))}, status: http.StatusUnauthorized},
		{name: "NoSubject", header: []string{"Authorization", "Bearer " + token(t, secret, "", time.Now().Add(time.Hour))}, status: http.StatusUnauthorized},
		{name: "Valid", header: []string{"Authorization", "Bearer " + token(t, secret, "clerk-7", time.Now().Add(time.Hour))}, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
			for i := 0; i+1 < len(tt.header); i += 2 {
				req.Header.Set(tt.header[i], tt.header[i+1])
			}

			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	router := newRouter(t, memory.New(), stockbookHttp.Options{RateLimit: "2-M"})

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		codes[i] = w.Code
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestNew_InvalidRateLimit(t *testing.T) {
	_, err := stockbookHttp.New(stockbookHttp.Options{RateLimit: "lots"}, nil, nil, nil, nil, nil)
	assert.Error(t, err)
}
