package router

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"estate-backend/internal/config"
	"estate-backend/internal/interfaces/handlers/handlertest"
	"estate-backend/internal/platform"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouterTest(t *testing.T) (*App, *handlertest.Env) {
	env := handlertest.New(t)
	svc := env.Services(t)
	cfg := &config.Config{
		Port:                "8080",
		APIKey:              "web-key",
		FrontendURLEndsWith: ".estate.test",
		HealthAdminKey:      "health-key",
		FormRatePerMinute:   2,
	}
	app := CreateApp(cfg, &platform.Client{
		DB:      env.DB,
		Redis:   env.Redis,
		Auth:    env.Provider,
		Storage: svc.Objects,
		Feed:    svc.Feed,
	})
	t.Cleanup(app.Close)
	return app, env
}

func send(t *testing.T, app *App, method, path string, body interface{}, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	var out map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestHealthAndMetrics(t *testing.T) {
	app, _ := setupRouterTest(t)

	status, out := send(t, app, "GET", "/health/json", nil, nil)
	require.Equal(t, 200, status)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "estate-api", out["service"])

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "estate_http_requests_total")
}

func TestLoginThenConsole(t *testing.T) {
	app, _ := setupRouterTest(t)

	status, out := send(t, app, "GET", "/api/console/dashboard", nil, nil)
	assert.Equal(t, 401, status)
	assert.Equal(t, "UNAUTHENTICATED", out["code"])

	status, out = send(t, app, "POST", "/api/auth/login",
		fiber.Map{"email": handlertest.OwnerEmail, "password": handlertest.OwnerPassword},
		map[string]string{"X-Api-Key": "web-key"})
	require.Equal(t, 200, status, out)
	bearer := map[string]string{"Authorization": "Bearer " + out["idToken"].(string)}

	status, out = send(t, app, "GET", "/api/console/dashboard", nil, bearer)
	require.Equal(t, 200, status, out)

	status, out = send(t, app, "POST", "/api/admin/create", fiber.Map{
		"email": "mod@estate.test", "password": "secret1", "firstName": "Mo", "role": "moderator",
	}, bearer)
	require.Equal(t, 201, status, out)
	assert.NotEmpty(t, out["uid"])

	status, out = send(t, app, "POST", "/api/auth/decode", nil, bearer)
	require.Equal(t, 200, status)
	assert.Equal(t, "super-admin", out["role"])
}

func TestPublicForms_RateLimited(t *testing.T) {
	app, _ := setupRouterTest(t)
	body := fiber.Map{"firstName": "Eleni", "email": "eleni@example.com", "message": "Hello"}

	for i := 0; i < 2; i++ {
		status, out := send(t, app, "POST", "/api/contact", body, nil)
		require.Equal(t, 201, status, out)
	}
	status, out := send(t, app, "POST", "/api/contact", body, nil)
	assert.Equal(t, 429, status)
	assert.Equal(t, "RATE_LIMITED", out["code"])

	status, _ = send(t, app, "GET", "/api/listings", nil, nil)
	assert.Equal(t, 200, status, "reads are not limited")
}

func TestCORS(t *testing.T) {
	app, _ := setupRouterTest(t)

	req := httptest.NewRequest("OPTIONS", "/api/listings", nil)
	req.Header.Set("Origin", "https://www.estate.test")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)
	assert.Equal(t, "https://www.estate.test", resp.Header.Get("Access-Control-Allow-Origin"))

	status, out := send(t, app, "GET", "/api/listings", nil, map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, 403, status)
	assert.Equal(t, "CORS_REJECTED", out["code"])
}

func TestHealthMarkerCountsAPIRequests(t *testing.T) {
	app, env := setupRouterTest(t)
	send(t, app, "GET", "/api/listings", nil, nil)
	send(t, app, "GET", "/api/listings/99", nil, nil)

	assert.Eventually(t, func() bool {
		v, _ := env.Mini.Get("health:global:req_total")
		return v == "2"
	}, time.Second, 10*time.Millisecond)
}

func TestPanicRendersInternalError(t *testing.T) {
	app, _ := setupRouterTest(t)
	app.Get("/api/boom", func(c *fiber.Ctx) error { panic("boom") })

	status, out := send(t, app, "GET", "/api/boom", nil, nil)
	assert.Equal(t, 500, status)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "INTERNAL_ERROR", out["code"])

	status, _ = send(t, app, "GET", "/health/json", nil, nil)
	assert.Equal(t, 200, status)
}

func TestSearch_HugePageQuery(t *testing.T) {
	app, _ := setupRouterTest(t)

	status, out := send(t, app, "GET", "/api/listings?page=768614336404564652", nil, nil)
	require.Equal(t, 200, status)
	data, _ := out["data"].(map[string]interface{})
	require.NotNil(t, data)
	assert.Empty(t, data["listings"])
}
