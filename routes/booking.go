package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/homeservice-app/controllers"
	"github.com/meinhoongagan/homeservice-app/middleware"
	"github.com/meinhoongagan/homeservice-app/models"
)

// SetupBookingRoutes configures all booking related routes
func SetupBookingRoutes(app *fiber.App, h *controllers.BookingController, protected fiber.Handler) {
	bookings := app.Group("/bookings", protected)
	provider := middleware.RequireRole(models.RoleProvider)
	customer := middleware.RequireRole(models.RoleCustomer)

	bookings.Get("/", h.GetMyBookings)
	bookings.Get("/dashboard", provider, h.GetDashboard)
	bookings.Get("/:id", h.GetBooking)
	bookings.Post("/", customer, h.CreateBooking)

	// Customer side
	bookings.Post("/:id/cancel", customer, h.Cancel())

	// Provider side
	bookings.Post("/:id/accept", provider, h.Accept())
	bookings.Post("/:id/decline", provider, h.Decline())
	bookings.Post("/:id/start", provider, h.Start())
	bookings.Post("/:id/complete", provider, h.Complete())
	bookings.Post("/:id/advance", provider, h.Advance)
	bookings.Post("/:id/archive", provider, h.Archive())
}
