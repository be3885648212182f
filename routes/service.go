package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/homeservice-app/controllers"
	"github.com/meinhoongagan/homeservice-app/middleware"
	"github.com/meinhoongagan/homeservice-app/models"
)

func SetupServiceRoutes(app *fiber.App, h *controllers.CatalogController, protected fiber.Handler) {
	service := app.Group("/services")
	provider := middleware.RequireRole(models.RoleProvider)

	service.Get("/", h.SearchServices)
	service.Get("/mine", protected, provider, h.GetMyServices)
	service.Get("/:id", h.GetService)
	service.Post("/", protected, provider, h.CreateService)
	service.Put("/:id", protected, provider, h.UpdateService)
	service.Delete("/:id", protected, provider, h.DeleteService)
}
