package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"ledger/pkg/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string, contentType string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("APP_ENV", "development")
	t.Setenv("BITRIX_WEBHOOK_URL", "")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	log := zap.NewNop()
	db, err := initDB(cfg, log, true)
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	gin.SetMode(gin.TestMode)
	r := gin.New()
	setupRoutes(r, newServer(cfg, log, db, nil))
	return r
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)

	// 1. Login with the seeded administrator
	resp := performRequest(r, http.MethodPost, "/auth/login",
		strings.NewReader(`{"username":"admin","password":"`+adminPassword()+`"}`), "", "application/json")
	if resp.Code != 200 {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", loginResp)
	}

	// 2. Create a payment
	resp = performRequest(r, http.MethodPost, "/payments",
		strings.NewReader(`{"date":"2025-03-01","amount":"250.00","operation_type":"income","cashbox":"bank","comment":"integration"}`),
		token, "application/json")
	if resp.Code != http.StatusCreated {
		t.Fatalf("create payment failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var created map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &created)
	id := int(created["id"].(float64))
	path := "/payments/" + strconv.Itoa(id)

	// 3. Manual CRM link
	resp = performRequest(r, http.MethodPatch, path+"/link", strings.NewReader(`{"deal_id":42,"deal_name":"Supply"}`), token, "application/json")
	if resp.Code != 200 || !strings.Contains(resp.Body.String(), `"deal_name":"Supply"`) {
		t.Fatalf("link failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 4. Enrichment is unavailable without a webhook
	resp = performRequest(r, http.MethodPost, path+"/link/bitrix", strings.NewReader(`{"deal_id":42}`), token, "application/json")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without webhook got %d", resp.Code)
	}

	// 5. List and balance
	resp = performRequest(r, http.MethodGet, "/payments?cashbox=bank&dateFrom=2025-03-01&dateTo=2025-03-01", nil, token, "")
	if resp.Code != 200 || !strings.Contains(resp.Body.String(), `"comment":"integration"`) {
		t.Fatalf("list failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodGet, "/payments/balance", nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("balance failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 6. Delete
	resp = performRequest(r, http.MethodDelete, path, nil, token, "")
	if resp.Code != 200 {
		t.Fatalf("delete failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 7. Unauthorized access to protected endpoint should be 401
	unauth := performRequest(r, http.MethodGet, "/payments", nil, "", "")
	if unauth.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthorized list got %d", unauth.Code)
	}
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := initDB(cfg, zap.NewNop(), true); err != nil {
		t.Fatal(err)
	}
}

func adminPassword() string {
	if p := os.Getenv("ADMIN_PASSWORD"); p != "" {
		return p
	}
	return "admin123"
}
