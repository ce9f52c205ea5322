package middleware

import (
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// PermissionChecker answers role/permission lookups.
type PermissionChecker interface {
	Allowed(role, permission string) bool
}

// AuthorizePermission lets the request through only when the caller's admin role holds
// permission. Runs after RequireAdmin.
func AuthorizePermission(checker PermissionChecker, permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin := GetAdmin(c)
		if admin == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		if !checker.Allowed(admin.Role, permission) {
			return response.Forbidden(c, "PERMISSION_DENIED", "User is Forbidden from performing this action")
		}
		return c.Next()
	}
}
