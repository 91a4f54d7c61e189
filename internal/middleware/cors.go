package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CORSConfig lists the storefront origins allowed to call the API with
// credentials. Localhost origins are always allowed for local development.
type CORSConfig struct {
	AllowedOrigins []string
}

// CORS allows credentialed requests from the configured storefront origins
// and answers preflights for them. Requests without an Origin header
// (server-to-server, curl) pass through untouched.
func CORS(cfg CORSConfig) fiber.Handler {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[strings.ToLower(o)] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		origin := c.Get("Origin")
		if origin == "" {
			return c.Next()
		}

		if !originAllowed(allowed, origin) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"status": "error",
				"error": fiber.Map{
					"message":    "Not allowed by CORS",
					"statusCode": fiber.StatusForbidden,
					"details":    fiber.Map{},
				},
			})
		}

		c.Set("Access-Control-Allow-Origin", origin)
		c.Set("Access-Control-Allow-Credentials", "true")
		c.Set("Access-Control-Allow-Headers", "Content-Type")
		c.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

func originAllowed(allowed map[string]struct{}, origin string) bool {
	if strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:") {
		return true
	}
	_, ok := allowed[strings.ToLower(strings.TrimRight(origin, "/"))]
	return ok
}
