// Package controllers holds the fiber handlers of the public API.
package controllers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/booking"
	"github.com/meinhoongagan/referencias-locales/payments"
	"github.com/meinhoongagan/referencias-locales/setuptoken"
	"github.com/meinhoongagan/referencias-locales/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, file interface{}, publicID, folder string) (string, error)
}

// Handler carries the dependencies shared by every endpoint.
type Handler struct {
	DB         *gorm.DB
	Log        *zap.Logger
	Tokens     setuptoken.Registry
	Bookings   *booking.Manager
	Payments   *payments.Service
	Uploader   Uploader // nil when object storage is not configured
	JWTSecret  string
	BcryptCost int
}

func New(db *gorm.DB, log *zap.Logger, tokens setuptoken.Registry, pay *payments.Service, uploader Uploader, jwtSecret string, bcryptCost int) *Handler {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Handler{
		DB:         db,
		Log:        log,
		Tokens:     tokens,
		Bookings:   booking.NewManager(db),
		Payments:   pay,
		Uploader:   uploader,
		JWTSecret:  jwtSecret,
		BcryptCost: bcryptCost,
	}
}

func (h *Handler) db(c *fiber.Ctx) *gorm.DB {
	return h.DB.WithContext(c.UserContext())
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid "+name)
	}
	return uint(id), nil
}

func forbidden() error {
	return fiber.NewError(fiber.StatusForbidden, "Forbidden")
}

// bookingError maps booking errors onto HTTP errors. Unknown errors pass
// through to the 500 handler.
func bookingError(err error) error {
	switch {
	case errors.Is(err, booking.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Service request not found")
	case errors.Is(err, booking.ErrAppointmentNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Appointment not found")
	case errors.Is(err, booking.ErrProviderNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Provider not found")
	case errors.Is(err, booking.ErrForbidden):
		return forbidden()
	case errors.Is(err, booking.ErrInvalidStatus):
		return utils.NewValidationError("status", "oneof")
	case errors.Is(err, booking.ErrInvalidSchedule):
		return utils.NewValidationError("startTime", "hhmm")
	case errors.Is(err, booking.ErrSelfBooking):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrConflict),
		errors.Is(err, booking.ErrAppointmentExists),
		errors.Is(err, booking.ErrNotSchedulable),
		errors.Is(err, booking.ErrOutsideAvailability),
		errors.Is(err, booking.ErrSlotTaken):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	return err
}

// tokenError maps setup-token failures. Callers pick the status code; the
// message never says whether the token existed.
func tokenError(err error, status int) error {
	if errors.Is(err, setuptoken.ErrInvalidToken) || errors.Is(err, setuptoken.ErrExpired) {
		return fiber.NewError(status, "Invalid or expired provider setup token")
	}
	return err
}
