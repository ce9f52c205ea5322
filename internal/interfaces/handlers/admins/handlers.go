package admins

import (
	"context"

	"estate-backend/internal/application/admins"
	"estate-backend/internal/domain"
	"estate-backend/internal/infrastructure/identity"
	"estate-backend/internal/middleware"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Service is the admin lifecycle the handlers drive.
type Service interface {
	Create(ctx context.Context, actor *domain.Admin, in admins.CreateInput) (*domain.Admin, error)
	Delete(ctx context.Context, actor *domain.Admin, targetUID string) (*domain.Admin, error)
	UpdateRole(ctx context.Context, actor *domain.Admin, targetUID, newRole string) (*domain.Admin, error)
}

type Handlers struct {
	Service Service
}

// RoleRequest is the body of update-role.
type RoleRequest struct {
	AdminID string `json:"adminId"`
	NewRole string `json:"newRole"`
}

// DeleteRequest is the body of delete.
type DeleteRequest struct {
	AdminID string `json:"adminId"`
}

var errorTable = map[error]response.Rule{
	admins.ErrCallerNotAdmin:       {Status: fiber.StatusForbidden, Code: "NOT_AN_ADMIN"},
	admins.ErrNotSuperAdmin:        {Status: fiber.StatusForbidden, Code: "NOT_SUPER_ADMIN"},
	admins.ErrMainAdminRequired:    {Status: fiber.StatusForbidden, Code: "MAIN_ADMIN_REQUIRED"},
	admins.ErrSelfDelete:           {Status: fiber.StatusForbidden, Code: "SELF_DELETE"},
	admins.ErrSelfDemotion:         {Status: fiber.StatusForbidden, Code: "SELF_DEMOTION"},
	admins.ErrMainAdminImmutable:   {Status: fiber.StatusForbidden, Code: "MAIN_ADMIN_IMMUTABLE"},
	admins.ErrMainAdminUndeletable: {Status: fiber.StatusForbidden, Code: "MAIN_ADMIN_UNDELETABLE"},
	admins.ErrAdminNotFound:        {Status: fiber.StatusNotFound, Code: "ADMIN_NOT_FOUND"},
	admins.ErrMissingAdminID:       {Status: fiber.StatusBadRequest, Code: "MISSING_FIELDS"},
	admins.ErrInvalidRole:          {Status: fiber.StatusBadRequest, Code: "INVALID_ROLE"},
	admins.ErrProfileWriteFailed:   {Status: fiber.StatusInternalServerError, Code: "PROFILE_WRITE_FAILED"},
	identity.ErrEmailExists:        {Status: fiber.StatusBadRequest, Code: "EMAIL_EXISTS"},
	identity.ErrInvalidEmail:       {Status: fiber.StatusBadRequest, Code: "INVALID_EMAIL"},
	identity.ErrWeakPassword:       {Status: fiber.StatusBadRequest, Code: "WEAK_PASSWORD"},
}

// Create POST /api/admin/create
func (h *Handlers) Create(c *fiber.Ctx) error {
	var in admins.CreateInput
	if err := c.BodyParser(&in); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.CodeBadRequest, "Invalid request body", nil)
	}
	created, err := h.Service.Create(c.UserContext(), middleware.GetAdmin(c), in)
	if err != nil {
		return response.FromError(c, err, errorTable)
	}
	return response.Fields(c, fiber.StatusCreated, fiber.Map{
		"uid":     created.UID,
		"message": "Admin created successfully",
	})
}

// Delete POST /api/admin/delete
func (h *Handlers) Delete(c *fiber.Ctx) error {
	var req DeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.CodeBadRequest, "Invalid request body", nil)
	}
	deleted, err := h.Service.Delete(c.UserContext(), middleware.GetAdmin(c), req.AdminID)
	if err != nil {
		return response.FromError(c, err, errorTable)
	}
	return response.Fields(c, fiber.StatusOK, fiber.Map{
		"message":      "Admin deleted successfully",
		"deletedAdmin": fiber.Map{"uid": deleted.UID, "email": deleted.Email, "role": deleted.Role},
	})
}

// UpdateRole POST /api/admin/update-role and /api/admin/role
func (h *Handlers) UpdateRole(c *fiber.Ctx) error {
	var req RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, fiber.StatusBadRequest, response.CodeBadRequest, "Invalid request body", nil)
	}
	if req.AdminID == "" || req.NewRole == "" {
		return response.Error(c, fiber.StatusBadRequest, "MISSING_FIELDS", "adminId and newRole are required", nil)
	}
	if _, err := h.Service.UpdateRole(c.UserContext(), middleware.GetAdmin(c), req.AdminID, req.NewRole); err != nil {
		return response.FromError(c, err, errorTable)
	}
	return response.Fields(c, fiber.StatusOK, nil)
}
