package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	traceIDHeader = "X-Trace-Id"
	traceIDLocal  = "trace_id"
)

// Tracing tags each request with a trace id, echoed in the response header. A well-formed
// incoming X-Trace-Id is kept so a console call and the admin route it triggers share one id.
// The user context carries a logger with the id attached; see RequestLogger.
func Tracing() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(traceIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Locals(traceIDLocal, id)
		c.Set(traceIDHeader, id)

		l := log.With().Str("trace_id", id).Logger()
		c.SetUserContext(l.WithContext(c.UserContext()))
		return c.Next()
	}
}

// GetTraceID returns the request's trace id, "" outside Tracing.
func GetTraceID(c *fiber.Ctx) string {
	id, _ := c.Locals(traceIDLocal).(string)
	return id
}

// RequestLogger returns the trace-scoped logger, or the global one outside Tracing.
func RequestLogger(c *fiber.Ctx) *zerolog.Logger {
	l := zerolog.Ctx(c.UserContext())
	if l.GetLevel() == zerolog.Disabled {
		return &log.Logger
	}
	return l
}
