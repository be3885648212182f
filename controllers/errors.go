package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/meinhoongagan/homeservice-app/account"
	"github.com/meinhoongagan/homeservice-app/booking"
	"github.com/meinhoongagan/homeservice-app/catalog"
	"github.com/meinhoongagan/homeservice-app/messaging"
	"github.com/meinhoongagan/homeservice-app/models"
	"github.com/meinhoongagan/homeservice-app/session"
	"github.com/meinhoongagan/homeservice-app/store"
	"github.com/meinhoongagan/homeservice-app/utils"
)

type mapped struct {
	status int
	code   string
}

var errorStatus = []struct {
	err error
	mapped
}{
	{session.ErrNotSignedIn, mapped{fiber.StatusUnauthorized, "NOT_SIGNED_IN"}},
	{session.ErrForbidden, mapped{fiber.StatusForbidden, "FORBIDDEN"}},
	{models.ErrWrongActor, mapped{fiber.StatusForbidden, "WRONG_ACTOR"}},
	{booking.ErrNotYours, mapped{fiber.StatusForbidden, "NOT_YOURS"}},
	{catalog.ErrNotYours, mapped{fiber.StatusForbidden, "NOT_YOURS"}},

	{booking.ErrNotFound, mapped{fiber.StatusNotFound, "BOOKING_NOT_FOUND"}},
	{catalog.ErrNotFound, mapped{fiber.StatusNotFound, "SERVICE_NOT_FOUND"}},
	{store.ErrNotFound, mapped{fiber.StatusNotFound, "NOT_FOUND"}},

	{booking.ErrStaleStatus, mapped{fiber.StatusConflict, "STALE_STATUS"}},
	{models.ErrTerminalStatus, mapped{fiber.StatusConflict, "TERMINAL_STATUS"}},
	{models.ErrInvalidTransition, mapped{fiber.StatusConflict, "INVALID_TRANSITION"}},
	{models.ErrNotArchivable, mapped{fiber.StatusConflict, "NOT_ARCHIVABLE"}},
	{models.ErrAlreadyArchived, mapped{fiber.StatusConflict, "ALREADY_ARCHIVED"}},
	{store.ErrConflict, mapped{fiber.StatusConflict, "CONFLICT"}},

	{booking.ErrMissingFields, mapped{fiber.StatusBadRequest, "MISSING_FIELDS"}},
	{booking.ErrBadDate, mapped{fiber.StatusBadRequest, "BAD_DATE"}},
	{models.ErrUnknownStatus, mapped{fiber.StatusBadRequest, "UNKNOWN_STATUS"}},
	{models.ErrIncompleteService, mapped{fiber.StatusBadRequest, "MISSING_FIELDS"}},
	{models.ErrEmptyMessage, mapped{fiber.StatusBadRequest, "EMPTY_MESSAGE"}},
	{models.ErrBadParticipants, mapped{fiber.StatusBadRequest, "BAD_PARTICIPANTS"}},
	{messaging.ErrNoCounterpart, mapped{fiber.StatusBadRequest, "NO_COUNTERPART"}},
	{store.ErrInvalidField, mapped{fiber.StatusBadRequest, "INVALID_FIELD"}},
	{store.ErrInvalidFilter, mapped{fiber.StatusBadRequest, "INVALID_FILTER"}},

	{utils.ErrUploadDisabled, mapped{fiber.StatusServiceUnavailable, "UPLOAD_DISABLED"}},
}

var accountStatus = map[*account.Error]int{
	account.ErrMissingFields:      fiber.StatusBadRequest,
	account.ErrInvalidEmail:       fiber.StatusBadRequest,
	account.ErrWeakPassword:       fiber.StatusBadRequest,
	account.ErrInvalidRole:        fiber.StatusBadRequest,
	account.ErrEmptyName:          fiber.StatusBadRequest,
	account.ErrUserNotFound:       fiber.StatusUnauthorized,
	account.ErrWrongPassword:      fiber.StatusUnauthorized,
	account.ErrAccountNotFound:    fiber.StatusForbidden,
	account.ErrInvalidAccountType: fiber.StatusForbidden,
	account.ErrAccountInactive:    fiber.StatusForbidden,
	account.ErrEmailInUse:         fiber.StatusConflict,
	account.ErrTooManyAttempts:    fiber.StatusTooManyRequests,
}

// respondError writes err as a utils.ErrorResponse with the matching status.
// Unknown errors are logged and reported as 500 without their detail.
func respondError(c *fiber.Ctx, err error) error {
	var accErr *account.Error
	if errors.As(err, &accErr) {
		status, ok := accountStatus[accErr]
		if !ok {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(utils.ErrorResponse{Message: accErr.Message, Error: accErr.Code})
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return c.Status(e.status).JSON(utils.ErrorResponse{Message: err.Error(), Error: e.code})
		}
	}
	log.Printf("%s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
		Message: "Something went wrong, please try again",
		Error:   "INTERNAL_ERROR",
	})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
		Message: "Cannot parse JSON",
		Error:   "BAD_REQUEST",
	})
}
