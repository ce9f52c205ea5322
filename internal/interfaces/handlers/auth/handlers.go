package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"estate-backend/internal/application/admins"
	"estate-backend/internal/infrastructure/identity"
	"estate-backend/internal/middleware"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Provider issues tokens.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*identity.Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*identity.Tokens, error)
}

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	Provider Provider
	Admins   middleware.AdminLoader
	APIKey   string
	Now      func() time.Time
}

// LoginRequest is the password sign-in body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest exchanges a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

var errorTable = map[error]response.Rule{
	identity.ErrInvalidCredentials: {Status: fiber.StatusUnauthorized, Code: "INVALID_CREDENTIALS"},
	identity.ErrUserDisabled:       {Status: fiber.StatusForbidden, Code: "USER_DISABLED"},
	identity.ErrInvalidToken:       {Status: fiber.StatusUnauthorized, Code: "INVALID_REFRESH_TOKEN"},
	identity.ErrTokenRevoked:       {Status: fiber.StatusUnauthorized, Code: "TOKEN_REVOKED"},
	identity.ErrUserNotFound:       {Status: fiber.StatusUnauthorized, Code: "INVALID_REFRESH_TOKEN"},
}

func (h *Handlers) apiKeyOK(c *fiber.Ctx) bool {
	got := c.Get("X-Api-Key")
	return h.APIKey != "" && subtle.ConstantTimeCompare([]byte(got), []byte(h.APIKey)) == 1
}

func (h *Handlers) tokens(c *fiber.Ctx, t *identity.Tokens) error {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	return response.Fields(c, fiber.StatusOK, fiber.Map{
		"idToken":      t.IDToken,
		"refreshToken": t.RefreshToken,
		"expiresIn":    int(t.ExpiresAt.Sub(now()).Seconds()),
		"uid":          t.User.UID,
	})
}

// Login POST /api/auth/login: password sign-in for clients holding the platform API key.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if !h.apiKeyOK(c) {
		return response.Error(c, fiber.StatusUnauthorized, "INVALID_API_KEY", "Invalid API key", nil)
	}
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return response.Error(c, fiber.StatusBadRequest, "MISSING_FIELDS", "Email and password are required", nil)
	}
	t, err := h.Provider.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return response.FromError(c, err, errorTable)
	}
	return h.tokens(c, t)
}

// Refresh POST /api/auth/refresh: rotates a refresh token.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	if !h.apiKeyOK(c) {
		return response.Error(c, fiber.StatusUnauthorized, "INVALID_API_KEY", "Invalid API key", nil)
	}
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return response.Error(c, fiber.StatusBadRequest, "MISSING_FIELDS", "refreshToken is required", nil)
	}
	t, err := h.Provider.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return response.FromError(c, err, errorTable)
	}
	return h.tokens(c, t)
}

// Decode POST /api/auth/decode: who is the bearer, and which admin role do they hold.
// role is null when the caller has no admin profile.
func (h *Handlers) Decode(c *fiber.Ctx) error {
	tok := middleware.GetToken(c)
	if tok == nil {
		return response.Unauthorized(c, "Unauthorized")
	}
	var role interface{}
	admin, err := h.Admins.LoadActor(c.UserContext(), tok.UID)
	switch {
	case err == nil:
		role = admin.Role
	case errors.Is(err, admins.ErrCallerNotAdmin):
	default:
		return err
	}
	return c.JSON(fiber.Map{"uid": tok.UID, "role": role})
}

