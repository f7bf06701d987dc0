package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"modelmetrics/internal/cache"
	"modelmetrics/internal/domain"
	"modelmetrics/internal/service"
	"modelmetrics/internal/store/memory"
)

func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopReportCache{}, time.Minute)
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "*")
}

func loginAs(t *testing.T, api *API, username string, password string) string {
	t.Helper()

	body, _ := json.Marshal(domain.LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("%s login failed, status %d", username, res.Code)
	}

	var payload domain.LoginResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode login response failed: %v", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		t.Fatalf("expected access token in login response")
	}
	return payload.AccessToken
}

func loginAsAdmin(t *testing.T, api *API) string {
	t.Helper()
	return loginAs(t, api, "admin", "admin123")
}

func authedGet(t *testing.T, api *API, token string, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	return res
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestReportsRequireAuth(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/census", nil)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", res.Code)
	}
}

func TestCensusEndpointListsAllTables(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "analyst", "analyst123")

	res := authedGet(t, api, token, "/api/v1/reports/census")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var payload struct {
		Census []domain.CensusRow `json:"census"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode census failed: %v", err)
	}
	if len(payload.Census) != 8 {
		t.Fatalf("expected 8 census rows, got %d", len(payload.Census))
	}
	for _, row := range payload.Census {
		if row.AttributeCount < 1 {
			t.Fatalf("table %s has no attribute count", row.Table)
		}
	}
}

func TestStockRatiosEndpointOrderedAscending(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	res := authedGet(t, api, token, "/api/v1/reports/stock-ratios")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var payload struct {
		LowStock []domain.StockRatioRow `json:"low_stock"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode stock ratios failed: %v", err)
	}
	if len(payload.LowStock) == 0 || len(payload.LowStock) > 10 {
		t.Fatalf("expected 1..10 rows, got %d", len(payload.LowStock))
	}
	for i := 1; i < len(payload.LowStock); i++ {
		if payload.LowStock[i].Ratio < payload.LowStock[i-1].Ratio {
			t.Fatalf("rows not sorted ascending at index %d", i)
		}
	}
}

func TestFullReportEndpoint(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	res := authedGet(t, api, token, "/api/v1/reports/full")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var bundle domain.ReportBundle
	if err := json.NewDecoder(res.Body).Decode(&bundle); err != nil {
		t.Fatalf("decode bundle failed: %v", err)
	}
	if bundle.SnapshotID == "" {
		t.Fatalf("expected snapshot id in bundle")
	}
	if len(bundle.Census) != 8 {
		t.Fatalf("expected census in bundle, got %d rows", len(bundle.Census))
	}
	if bundle.LTV == nil {
		t.Fatalf("expected ltv in bundle for seeded dataset")
	}
	if len(bundle.Errors) != 0 {
		t.Fatalf("expected no section errors for seeded dataset, got %v", bundle.Errors)
	}
}

func TestRefreshRequiresAdmin(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "analyst", "analyst123")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dataset/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for analyst refresh, got %d", res.Code)
	}
}

func TestRefreshAsAdminSwapsSnapshot(t *testing.T) {
	api := newTestAPI(t)
	token := loginAsAdmin(t, api)

	first := authedGet(t, api, token, "/api/v1/reports/full")
	var before domain.ReportBundle
	if err := json.NewDecoder(first.Body).Decode(&before); err != nil {
		t.Fatalf("decode bundle failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dataset/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var refreshed domain.RefreshResponse
	if err := json.NewDecoder(res.Body).Decode(&refreshed); err != nil {
		t.Fatalf("decode refresh response failed: %v", err)
	}
	if refreshed.SnapshotID == "" || refreshed.SnapshotID == before.SnapshotID {
		t.Fatalf("expected a new snapshot id, got %q (was %q)", refreshed.SnapshotID, before.SnapshotID)
	}
}

func TestAnalystProvisioningFlow(t *testing.T) {
	api := newTestAPI(t)
	adminToken := loginAsAdmin(t, api)

	body, _ := json.Marshal(domain.AnalystCreateRequest{Username: "newanalyst", Password: "secret99"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/analysts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.Code)
	}

	token := loginAs(t, api, "newanalyst", "secret99")
	reports := authedGet(t, api, token, "/api/v1/reports/vip-customers")
	if reports.Code != http.StatusOK {
		t.Fatalf("expected new analyst to read reports, got %d", reports.Code)
	}
}

func TestAnalystCannotProvisionUsers(t *testing.T) {
	api := newTestAPI(t)
	token := loginAs(t, api, "analyst", "analyst123")

	body, _ := json.Marshal(domain.AnalystCreateRequest{Username: "sneaky", Password: "secret99"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/analysts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
}
