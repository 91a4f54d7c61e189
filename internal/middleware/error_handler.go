package middleware

import (
	"broker-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ErrorHandler is the app-level catch-all for errors that escape the
// handlers. Fiber errors keep their code; everything else is a logged 500
// with no internals leaked to the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	} else {
		log.Error().Err(err).
			Str("trace_id", GetTraceID(c)).
			Str("path", c.Path()).
			Msg("Unhandled error")
	}

	return response.Error(c, message, code, map[string]interface{}{})
}
