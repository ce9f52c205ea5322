package health

import (
	"crypto/subtle"

	healthsvc "estate-backend/internal/application/health"
	"estate-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers holds dependencies for health endpoints.
type Handlers struct {
	Service        *healthsvc.Service
	HealthAdminKey string
}

// Reset GET /health/reset?key=HEALTH_ADMIN_KEY clears the traffic counters.
func (h *Handlers) Reset(c *fiber.Ctx) error {
	key := c.Query("key")
	if h.HealthAdminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.HealthAdminKey)) != 1 {
		return response.Forbidden(c, response.CodeForbidden, "Unauthorized")
	}
	if err := h.Service.Reset(c.UserContext()); err != nil {
		log.Error().Err(err).Msg("health: reset failed")
		return response.Error(c, fiber.StatusInternalServerError, response.CodeInternal, err.Error(), nil)
	}
	return response.Success(c, "Stats reset successfully", nil)
}

// JSON GET /health/json
func (h *Handlers) JSON(c *fiber.Ctx) error {
	return c.JSON(h.Service.Collect(c.UserContext()))
}

// Errors GET /health/errors returns the last 50 server errors.
func (h *Handlers) Errors(c *fiber.Ctx) error {
	entries, err := h.Service.Errors(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON([]interface{}{})
	}
	return c.JSON(entries)
}

// Live GET /health liveness probe; 503 when the report is not ok.
func (h *Handlers) Live(c *fiber.Ctx) error {
	r := h.Service.Collect(c.UserContext())
	status := fiber.StatusOK
	if r.Status != healthsvc.StatusOK {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"status": r.Status})
}
