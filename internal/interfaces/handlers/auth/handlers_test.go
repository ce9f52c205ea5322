package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"estate-backend/internal/infrastructure/identity"
	"estate-backend/internal/interfaces/handlers/handlertest"
	"estate-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthTest(t *testing.T) (*fiber.App, *handlertest.Env) {
	env := handlertest.New(t)
	h := &Handlers{Provider: env.Provider, Admins: env.Admins, APIKey: "web-key"}
	app := fiber.New()
	app.Post("/api/auth/login", h.Login)
	app.Post("/api/auth/refresh", h.Refresh)
	app.Post("/api/auth/decode", middleware.RequireAuth(env.Provider), h.Decode)
	return app, env
}

func post(t *testing.T, app *fiber.App, path string, body interface{}, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
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

func TestLogin_RequiresAPIKey(t *testing.T) {
	app, _ := setupAuthTest(t)
	status, out := post(t, app, "/api/auth/login", LoginRequest{Email: handlertest.OwnerEmail, Password: handlertest.OwnerPassword}, nil)
	assert.Equal(t, 401, status)
	assert.Equal(t, "INVALID_API_KEY", out["code"])
}

func TestLogin_AndRefresh(t *testing.T) {
	app, env := setupAuthTest(t)
	key := map[string]string{"X-Api-Key": "web-key"}

	status, out := post(t, app, "/api/auth/login", LoginRequest{Email: handlertest.OwnerEmail, Password: "wrong-pass"}, key)
	assert.Equal(t, 401, status)
	assert.Equal(t, "INVALID_CREDENTIALS", out["code"])

	status, out = post(t, app, "/api/auth/login", LoginRequest{Email: handlertest.OwnerEmail, Password: handlertest.OwnerPassword}, key)
	require.Equal(t, 200, status)
	assert.Equal(t, env.Owner.UID, out["uid"])
	assert.NotEmpty(t, out["idToken"])
	assert.Greater(t, out["expiresIn"].(float64), 0.0)

	refresh := out["refreshToken"].(string)
	status, out = post(t, app, "/api/auth/refresh", RefreshRequest{RefreshToken: refresh}, key)
	require.Equal(t, 200, status)
	assert.NotEqual(t, refresh, out["refreshToken"])

	status, _ = post(t, app, "/api/auth/refresh", RefreshRequest{RefreshToken: refresh}, key)
	assert.Equal(t, 401, status)
}

func TestDecode(t *testing.T) {
	app, env := setupAuthTest(t)

	status, _ := post(t, app, "/api/auth/decode", nil, nil)
	assert.Equal(t, 401, status)

	status, out := post(t, app, "/api/auth/decode", nil, map[string]string{"Authorization": "Bearer " + env.OwnerToken(t)})
	require.Equal(t, 200, status)
	assert.Equal(t, env.Owner.UID, out["uid"])
	assert.Equal(t, "super-admin", out["role"])

	_, err := env.Provider.CreateUser(context.Background(), identity.CreateUserParams{Email: "plain@estate.test", Password: "secret1"})
	require.NoError(t, err)
	status, out = post(t, app, "/api/auth/decode", nil, map[string]string{"Authorization": "Bearer " + env.Token(t, "plain@estate.test", "secret1")})
	require.Equal(t, 200, status)
	assert.Nil(t, out["role"])
}
