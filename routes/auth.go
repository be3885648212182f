package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/meinhoongagan/homeservice-app/controllers"
)

// loginAttempts is how many logins one client may try per window.
const loginAttempts = 5

// SetupAuthRoutes configures all authentication related routes
func SetupAuthRoutes(app *fiber.App, h *controllers.AuthController, protected fiber.Handler) {
	auth := app.Group("/auth")

	// Public routes
	auth.Post("/register", h.Register)
	auth.Post("/login", limiter.New(limiter.Config{
		Max:          loginAttempts,
		Expiration:   time.Minute,
		LimitReached: controllers.TooManyAttempts,
	}), h.Login)

	// Protected routes
	auth.Get("/me", protected, h.GetUserProfile)
	auth.Post("/logout", protected, h.Logout)
	auth.Post("/terms", protected, h.AcceptTerms)
	auth.Patch("/me", protected, h.Rename)
	auth.Post("/me/picture", protected, h.UpdateProfilePicture)
}
