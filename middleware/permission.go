package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/homeservice-app/models"
	"github.com/meinhoongagan/homeservice-app/utils"
)

// RequireRole lets the request through only for signed-in users of role.
func RequireRole(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := Session(c).Identity()
		if !ok {
			return unauthorized(c, "Please log in")
		}
		if id.Role != role {
			return c.Status(fiber.StatusForbidden).JSON(utils.ErrorResponse{
				Message: "You don't have permission to perform this action",
				Error:   "Forbidden",
			})
		}
		return c.Next()
	}
}
