package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// RouteLogger writes one completion line per request with status, duration
// and trace ID. Slow requests (over a second) are raised to warn so
// negotiation contention shows up without a metrics stack.
func RouteLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		ms := time.Since(start).Milliseconds()
		evt := log.Info()
		if ms > 1000 {
			evt = log.Warn()
		}
		evt.Str("trace_id", GetTraceID(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Int64("ms", ms).
			Msg("Request completed")
		return err
	}
}
