package response

import (
	"errors"

	"estate-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// SuccessBody is the standard success shape.
type SuccessBody struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

// ErrorBody is the standard error shape. Code is a stable machine-readable reason.
type ErrorBody struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// Reason codes shared across handlers.
const (
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeForbidden        = "FORBIDDEN"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeBadRequest       = "BAD_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeRateLimited      = "RATE_LIMITED"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

// Success sends 200 with the standard success shape.
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusOK).JSON(SuccessBody{Success: true, Message: message, Data: data})
}

// SuccessCreated sends 201 with the standard success shape.
func SuccessCreated(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(SuccessBody{Success: true, Message: message, Data: data})
}

// Fields sends status with fields merged next to "success": true.
func Fields(c *fiber.Ctx, status int, fields fiber.Map) error {
	out := fiber.Map{"success": true}
	for k, v := range fields {
		out[k] = v
	}
	return c.Status(status).JSON(out)
}

// Error sends the standard error shape.
func Error(c *fiber.Ctx, status int, code, message string, details interface{}) error {
	return c.Status(status).JSON(ErrorBody{Error: message, Code: code, Details: details})
}

// Unauthorized sends 401.
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, CodeUnauthenticated, message, nil)
}

// Forbidden sends 403 with code.
func Forbidden(c *fiber.Ctx, code, message string) error {
	return Error(c, fiber.StatusForbidden, code, message, nil)
}

// CodeForStatus is the default reason for an HTTP status.
func CodeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return CodeBadRequest
	case fiber.StatusUnauthorized:
		return CodeUnauthenticated
	case fiber.StatusForbidden:
		return CodeForbidden
	case fiber.StatusNotFound:
		return CodeNotFound
	case fiber.StatusTooManyRequests:
		return CodeRateLimited
	case fiber.StatusServiceUnavailable:
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// Rule maps a sentinel error to a status and reason code.
type Rule struct {
	Status int
	Code   string
}

// FromError renders validation errors and errors found in table. Anything else is returned
// unchanged for the global error handler.
func FromError(c *fiber.Ctx, err error, table map[error]Rule) error {
	var reqErr *validation.RequestError
	if errors.As(err, &reqErr) {
		return Error(c, fiber.StatusBadRequest, CodeValidationFailed, reqErr.Error(), reqErr.Fields)
	}
	for target, r := range table {
		if errors.Is(err, target) {
			return Error(c, r.Status, r.Code, target.Error(), nil)
		}
	}
	return err
}
