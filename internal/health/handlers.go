package health

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Handlers holds dependencies for health endpoints.
type Handlers struct {
	Rdb *redis.Client
	DB  DBPinger
}

// JSON GET /health returns the service snapshot.
func (h *Handlers) JSON(c *fiber.Ctx) error {
	snap := Collect(c.Context(), h.Rdb, h.DB)
	return c.JSON(fiber.Map{
		"service":      "broker-api",
		"status":       snap.Status,
		"runtime":      snap.Runtime,
		"dependencies": snap.Dependencies,
	})
}
