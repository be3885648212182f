package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/homeservice-app/store"
)

// Health reports liveness and whether store calls are in flight.
func Health(loading *store.Loading) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"loading":  loading.Busy(),
			"inFlight": loading.InFlight(),
		})
	}
}
