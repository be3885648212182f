package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/homeservice-app/account"
	"github.com/meinhoongagan/homeservice-app/middleware"
	"github.com/meinhoongagan/homeservice-app/session"
	"github.com/meinhoongagan/homeservice-app/utils"
)

type AuthController struct {
	accounts *account.Service
}

func NewAuthController(accounts *account.Service) *AuthController {
	return &AuthController{accounts: accounts}
}

// Register handles user registration
func (h *AuthController) Register(c *fiber.Ctx) error {
	var input account.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return badBody(c)
	}
	user, err := h.accounts.Register(c.UserContext(), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login handles user authentication
func (h *AuthController) Login(c *fiber.Ctx) error {
	type LoginInput struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	input := new(LoginInput)
	if err := c.BodyParser(input); err != nil {
		return badBody(c)
	}
	res, err := h.accounts.Login(c.UserContext(), session.New(), input.Email, input.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// TooManyAttempts is the limiter's response on the login route.
func TooManyAttempts(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(utils.ErrorResponse{
		Message: account.ErrTooManyAttempts.Message,
		Error:   account.ErrTooManyAttempts.Code,
	})
}

func (h *AuthController) Logout(c *fiber.Ctx) error {
	if err := h.accounts.Logout(c.UserContext(), middleware.Session(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// GetUserProfile returns the current user's profile
func (h *AuthController) GetUserProfile(c *fiber.Ctx) error {
	user, err := h.accounts.Profile(c.UserContext(), middleware.Session(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

func (h *AuthController) AcceptTerms(c *fiber.Ctx) error {
	if err := h.accounts.AcceptTerms(c.UserContext(), middleware.Session(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Terms accepted"})
}

func (h *AuthController) Rename(c *fiber.Ctx) error {
	var input struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&input); err != nil {
		return badBody(c)
	}
	if err := h.accounts.Rename(c.UserContext(), middleware.Session(c), input.Name); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Profile updated successfully"})
}

// UpdateProfilePicture uploads the "image" form file and returns its URL.
func (h *AuthController) UpdateProfilePicture(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
			Message: "Image file is required",
			Error:   "BAD_REQUEST",
		})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return respondError(c, err)
	}
	defer file.Close()

	url, err := h.accounts.UpdateImage(c.UserContext(), middleware.Session(c), file)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"image": url})
}
