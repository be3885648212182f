package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/homeservice-app/controllers"
)

// SetupMessageRoutes configures chat routes. Every route needs a signed-in user.
func SetupMessageRoutes(app *fiber.App, h *controllers.MessageController, protected fiber.Handler) {
	app.Get("/users/online", protected, h.GetOnlineUsers)

	messages := app.Group("/messages", protected)
	messages.Get("/", h.GetConversations)
	messages.Get("/:userId", h.GetTranscript)
	messages.Get("/:userId/stream", h.Stream)
	messages.Post("/:userId", h.SendMessage)
	messages.Post("/:userId/seen", h.MarkSeen)
}
