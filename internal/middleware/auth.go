package middleware

import (
	"context"
	"errors"
	"strings"

	"estate-backend/internal/application/admins"
	"estate-backend/internal/domain"
	"estate-backend/internal/infrastructure/identity"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const (
	tokenLocal = "auth"
	adminLocal = "admin"
)

// TokenVerifier checks id tokens.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, raw string) (*identity.Token, error)
}

// AdminLoader resolves the admin profile of a verified caller.
type AdminLoader interface {
	LoadActor(ctx context.Context, uid string) (*domain.Admin, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) string {
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// RequireAuth verifies the bearer id token and stores it for handlers. 401 when absent or invalid.
func RequireAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := BearerToken(c)
		if raw == "" {
			return response.Unauthorized(c, "Missing bearer token")
		}
		tok, err := verifier.VerifyIDToken(c.UserContext(), raw)
		if err != nil {
			if errors.Is(err, identity.ErrTokenRevoked) {
				return response.Error(c, fiber.StatusUnauthorized, "TOKEN_REVOKED", err.Error(), nil)
			}
			return response.Unauthorized(c, "Invalid or expired token")
		}
		c.Locals(tokenLocal, tok)
		return c.Next()
	}
}

// RequireAdmin loads the caller's admin profile. 403 when the caller has none.
func RequireAdmin(loader AdminLoader) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok := GetToken(c)
		if tok == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		admin, err := loader.LoadActor(c.UserContext(), tok.UID)
		if err != nil {
			if errors.Is(err, admins.ErrCallerNotAdmin) {
				return response.Forbidden(c, "NOT_AN_ADMIN", err.Error())
			}
			return err
		}
		c.Locals(adminLocal, admin)
		return c.Next()
	}
}

// GetToken returns the verified token (nil before RequireAuth).
func GetToken(c *fiber.Ctx) *identity.Token {
	t, _ := c.Locals(tokenLocal).(*identity.Token)
	return t
}

// GetAdmin returns the caller's admin profile (nil before RequireAdmin).
func GetAdmin(c *fiber.Ctx) *domain.Admin {
	a, _ := c.Locals(adminLocal).(*domain.Admin)
	return a
}
