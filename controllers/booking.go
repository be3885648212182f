package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/homeservice-app/booking"
	"github.com/meinhoongagan/homeservice-app/middleware"
	"github.com/meinhoongagan/homeservice-app/models"
	"github.com/meinhoongagan/homeservice-app/session"
)

type BookingController struct {
	bookings *booking.Service
}

func NewBookingController(bookings *booking.Service) *BookingController {
	return &BookingController{bookings: bookings}
}

func (h *BookingController) CreateBooking(c *fiber.Ctx) error {
	var input booking.CreateInput
	if err := c.BodyParser(&input); err != nil {
		return badBody(c)
	}
	b, err := h.bookings.Create(c.UserContext(), middleware.Session(c), input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(b)
}

func (h *BookingController) GetBooking(c *fiber.Ctx) error {
	b, err := h.bookings.Get(c.UserContext(), middleware.Session(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(b)
}

// GetMyBookings lists the caller's bookings from their side of the market.
func (h *BookingController) GetMyBookings(c *fiber.Ctx) error {
	sess := middleware.Session(c)
	id, ok := sess.Identity()
	if !ok {
		return respondError(c, session.ErrNotSignedIn)
	}
	var (
		listing *booking.Listing
		err     error
	)
	if id.Role == models.RoleProvider {
		listing, err = h.bookings.ListForProvider(c.UserContext(), sess)
	} else {
		listing, err = h.bookings.ListForCustomer(c.UserContext(), sess)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(listing)
}

func (h *BookingController) GetDashboard(c *fiber.Ctx) error {
	d, err := h.bookings.Dashboard(c.UserContext(), middleware.Session(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(d)
}

// step adapts one of the service's fixed transitions to a handler.
func (h *BookingController) step(fn func(*fiber.Ctx, *session.Session, string) (*models.Booking, error)) fiber.Handler {
	return func(c *fiber.Ctx) error {
		b, err := fn(c, middleware.Session(c), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(b)
	}
}

func (h *BookingController) Accept() fiber.Handler {
	return h.step(func(c *fiber.Ctx, s *session.Session, id string) (*models.Booking, error) {
		return h.bookings.Accept(c.UserContext(), s, id)
	})
}

func (h *BookingController) Decline() fiber.Handler {
	return h.step(func(c *fiber.Ctx, s *session.Session, id string) (*models.Booking, error) {
		return h.bookings.Decline(c.UserContext(), s, id)
	})
}

func (h *BookingController) Cancel() fiber.Handler {
	return h.step(func(c *fiber.Ctx, s *session.Session, id string) (*models.Booking, error) {
		return h.bookings.Cancel(c.UserContext(), s, id)
	})
}

func (h *BookingController) Archive() fiber.Handler {
	return h.step(func(c *fiber.Ctx, s *session.Session, id string) (*models.Booking, error) {
		return h.bookings.Archive(c.UserContext(), s, id)
	})
}

// Advance moves a job one step on. The body names the status the caller
// last saw, so a stale screen cannot skip or repeat a step.
func (h *BookingController) Advance(c *fiber.Ctx) error {
	var input struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&input); err != nil {
		return badBody(c)
	}
	current, err := models.ParseBookingStatus(input.Status)
	if err != nil {
		return respondError(c, err)
	}
	b, err := h.bookings.Advance(c.UserContext(), middleware.Session(c), c.Params("id"), current)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(b)
}

func (h *BookingController) Start() fiber.Handler {
	return h.step(func(c *fiber.Ctx, s *session.Session, id string) (*models.Booking, error) {
		return h.bookings.Start(c.UserContext(), s, id)
	})
}

func (h *BookingController) Complete() fiber.Handler {
	return h.step(func(c *fiber.Ctx, s *session.Session, id string) (*models.Booking, error) {
		return h.bookings.Complete(c.UserContext(), s, id)
	})
}
