package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"

	"github.com/meinhoongagan/homeservice-app/account"
	"github.com/meinhoongagan/homeservice-app/session"
	"github.com/meinhoongagan/homeservice-app/utils"
)

// SessionKey is the fiber local that holds the request's *session.Session.
const SessionKey = "session"

// Protected verifies the bearer token and resolves it to its stored session.
// Tokens whose session was ended by a logout are rejected.
func Protected(tokens *account.TokenIssuer, sessions session.Store) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   tokens.Secret(),
		Claims:       &account.Claims{},
		ErrorHandler: jwtError,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, ok := c.Locals("user").(*jwt.Token)
			if !ok {
				return unauthorized(c, "Invalid token")
			}
			claims, ok := token.Claims.(*account.Claims)
			if !ok || claims.ID == "" {
				return unauthorized(c, "Invalid token claims")
			}

			sess, err := sessions.Load(c.UserContext(), claims.ID)
			if err != nil {
				log.Printf("session lookup for token %s: %v", claims.ID, err)
				return unauthorized(c, "Session expired, please log in again")
			}

			c.Locals(SessionKey, sess)
			return c.Next()
		},
	})
}

// Session returns the request's session. Requests that did not pass through
// Protected get an empty, signed-out session.
func Session(c *fiber.Ctx) *session.Session {
	if sess, ok := c.Locals(SessionKey).(*session.Session); ok {
		return sess
	}
	return session.New()
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(utils.ErrorResponse{
		Message: message,
		Error:   "Unauthorized",
	})
}

// jwtError handles JWT errors
func jwtError(c *fiber.Ctx, err error) error {
	return unauthorized(c, "Invalid or expired token")
}
