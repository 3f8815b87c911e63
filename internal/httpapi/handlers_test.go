package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hncstore/backend/internal/cache"
	"hncstore/backend/internal/domain"
	"hncstore/backend/internal/service"
	"hncstore/backend/internal/store/memory"
)

// newTestAPI builds a full API over the seeded in-memory store with a real
// AuthManager and Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopReportCache{}, 5*time.Second)
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "*")
}

func loginToken(t *testing.T, api *API, username string, password string) string {
	t.Helper()

	payload, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s failed: %d (%s)", username, rec.Code, rec.Body.String())
	}

	var resp domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.AccessToken
}

func doJSON(t *testing.T, api *API, method string, path string, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/api/v1/products", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/products", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %d", rec.Code)
	}
}

func TestStaffCannotMutateCatalog(t *testing.T) {
	api := newTestAPI(t)
	token := loginToken(t, api, "staff", "staff123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/products", token, domain.ProductCreateRequest{
		Name: "Staff Product", Quantity: 1, CapitalCents: 100,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff create, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodDelete, "/api/v1/suppliers/sup-solid-cement", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff supplier delete, got %d", rec.Code)
	}
}

func TestStaffCanReadFinancials(t *testing.T) {
	api := newTestAPI(t)
	token := loginToken(t, api, "staff", "staff123")

	rec := doJSON(t, api, http.MethodGet, "/api/v1/financials", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for staff financials, got %d (%s)", rec.Code, rec.Body.String())
	}

	// A plain recompute only re-derives from order history, so staff can run it.
	rec = doJSON(t, api, http.MethodPost, "/api/v1/financials/recompute", token, domain.RecomputeRequest{})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for staff plain recompute, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestProductLifecycle(t *testing.T) {
	api := newTestAPI(t)
	token := loginToken(t, api, "admin", "admin123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/products", token, domain.ProductCreateRequest{
		Name:         "Steel Bar 10mm",
		Category:     "Construction",
		ProductType:  "Rebar",
		Quantity:     40,
		CapitalCents: 10000,
		SupplierID:   "sup-norte-builders",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	var created struct {
		Product domain.Product `json:"product"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Product.SRPCents != 13000 {
		t.Fatalf("expected derived srp 13000, got %d", created.Product.SRPCents)
	}

	capital := int64(20000)
	rec = doJSON(t, api, http.MethodPatch, "/api/v1/products/"+created.Product.ID, token, domain.ProductUpdate{CapitalCents: &capital})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var patched struct {
		Product domain.Product `json:"product"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&patched); err != nil {
		t.Fatalf("decode patch response: %v", err)
	}
	if patched.Product.SRPCents != 26000 {
		t.Fatalf("expected re-derived srp 26000, got %d", patched.Product.SRPCents)
	}

	rec = doJSON(t, api, http.MethodDelete, "/api/v1/products/"+created.Product.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/products/"+created.Product.ID, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestSaleFlowAndStockConflict(t *testing.T) {
	api := newTestAPI(t)
	token := loginToken(t, api, "staff", "staff123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", token, domain.SaleRequest{
		Customer: domain.CustomerInput{Name: "Walk-in Buyer", Contact: "09181234567"},
		Items:    []domain.CartLine{{ProductID: "prod-cement-40kg", Quantity: 4}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("sale expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp domain.SaleResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode sale response: %v", err)
	}
	if resp.Checkout.TotalItems != 4 {
		t.Fatalf("expected 4 items, got %d", resp.Checkout.TotalItems)
	}
	if len(resp.Checkout.Changes) != 1 || resp.Checkout.Changes[0].Remaining != 116 {
		t.Fatalf("unexpected stock changes: %+v", resp.Checkout.Changes)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/sales", token, domain.SaleRequest{
		Customer: domain.CustomerInput{Name: "Walk-in Buyer", Contact: "09181234567"},
		Items:    []domain.CartLine{{ProductID: "prod-cement-40kg", Quantity: 500}},
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on shortfall, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestOrderEndpoints(t *testing.T) {
	api := newTestAPI(t)
	token := loginToken(t, api, "staff", "staff123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/customers/resolve", token, domain.CustomerInput{Name: "Order Buyer"})
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var resolved struct {
		CustomerID string `json:"customer_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resolved); err != nil {
		t.Fatalf("decode resolve response: %v", err)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/orders", token, domain.OrderCreateRequest{CustomerID: resolved.CustomerID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("order expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var createdOrder struct {
		Order domain.Order `json:"order"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&createdOrder); err != nil {
		t.Fatalf("decode order response: %v", err)
	}
	orderID := createdOrder.Order.ID

	rec = doJSON(t, api, http.MethodPost, fmt.Sprintf("/api/v1/orders/%s/items", orderID), token, domain.OrderItemRequest{
		ProductID: "prod-nails-2in", Quantity: 3,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("add item expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodPost, fmt.Sprintf("/api/v1/orders/%s/checkout", orderID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("checkout expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var result domain.CheckoutResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode checkout response: %v", err)
	}
	if result.TotalItems != 3 || result.Summary == "" {
		t.Fatalf("unexpected checkout result: %+v", result)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/orders/"+orderID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("order detail expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodPost, fmt.Sprintf("/api/v1/orders/%s/checkout", orderID), token, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("repeat checkout expected 409, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodPost, fmt.Sprintf("/api/v1/orders/%s/items", orderID), token, domain.OrderItemRequest{
		ProductID: "prod-nails-2in", Quantity: 1,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("add item after checkout expected 409, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestDeliveryEndpoints(t *testing.T) {
	api := newTestAPI(t)
	staff := loginToken(t, api, "staff", "staff123")
	admin := loginToken(t, api, "admin", "admin123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/deliveries", staff, domain.DeliveryCreateRequest{
		Product:         "Portland Cement 40kg",
		CustomerName:    "Juan Dela Cruz",
		Contact:         "09171112222",
		DeliveryAddress: "Brgy. 12, Laoag City",
		DeliveryDate:    "2026-09-15",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create delivery expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var created struct {
		Delivery domain.Delivery `json:"delivery"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Delivery.Status != domain.DeliveryStatusPending {
		t.Fatalf("expected pending status, got %q", created.Delivery.Status)
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/deliveries", staff, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list deliveries expected 200, got %d", rec.Code)
	}
	var list struct {
		Deliveries []domain.Delivery `json:"deliveries"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(list.Deliveries) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(list.Deliveries))
	}

	status := "Delivered"
	rec = doJSON(t, api, http.MethodPatch, "/api/v1/deliveries/"+created.Delivery.ID, staff, domain.DeliveryUpdate{Status: &status})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch delivery expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var patched struct {
		Delivery domain.Delivery `json:"delivery"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&patched); err != nil {
		t.Fatalf("decode patch response: %v", err)
	}
	if patched.Delivery.Status != "Delivered" {
		t.Fatalf("expected status Delivered, got %q", patched.Delivery.Status)
	}

	rec = doJSON(t, api, http.MethodDelete, "/api/v1/deliveries/"+created.Delivery.ID, staff, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff delete expected 403, got %d (%s)", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, api, http.MethodDelete, "/api/v1/deliveries/"+created.Delivery.ID, admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin delete expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, api, http.MethodGet, "/api/v1/deliveries/"+created.Delivery.ID, admin, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestRecomputeEndpoint(t *testing.T) {
	api := newTestAPI(t)
	staff := loginToken(t, api, "staff", "staff123")
	admin := loginToken(t, api, "admin", "admin123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/sales", staff, domain.SaleRequest{
		Customer: domain.CustomerInput{Name: "Financial Buyer"},
		Items:    []domain.CartLine{{ProductID: "prod-paint-white", Quantity: 1}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("sale expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	month := time.Now().UTC().Format("2006-01")
	expenses := int64(10000)
	rec = doJSON(t, api, http.MethodPost, "/api/v1/financials/recompute", admin, domain.RecomputeRequest{
		Month:                  month,
		OperatingExpensesCents: &expenses,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("recompute expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Months []domain.MonthlyFinancial `json:"months"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode recompute response: %v", err)
	}
	var found bool
	for _, row := range resp.Months {
		if row.Month == month {
			found = true
			if row.OperatingExpensesCents != expenses {
				t.Fatalf("expected adjusted expenses, got %+v", row)
			}
		}
	}
	if !found {
		t.Fatalf("expected a rollup for %s in %+v", month, resp.Months)
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/financials/recompute", staff, domain.RecomputeRequest{Month: month})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff recompute, got %d", rec.Code)
	}
}

func TestUnknownJSONFieldRejected(t *testing.T) {
	api := newTestAPI(t)
	token := loginToken(t, api, "admin", "admin123")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewReader([]byte(`{"name":"X","bogus":1}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	api.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestStaffAccountManagement(t *testing.T) {
	api := newTestAPI(t)
	admin := loginToken(t, api, "admin", "admin123")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/users/staff", admin, domain.StaffCreateRequest{
		Username: "newstaff", Password: "secret123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create staff expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/users/staff", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list staff expected 200, got %d", rec.Code)
	}
	var list struct {
		Staff []domain.StaffUser `json:"staff"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode staff list: %v", err)
	}
	var found bool
	for _, u := range list.Staff {
		if u.Username == "newstaff" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected newstaff in %+v", list.Staff)
	}

	if token := loginToken(t, api, "newstaff", "secret123"); token == "" {
		t.Fatalf("expected new staff account to log in")
	}
}
