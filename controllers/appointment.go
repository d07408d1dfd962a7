package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/booking"
	"github.com/meinhoongagan/referencias-locales/middleware"
	"github.com/meinhoongagan/referencias-locales/models"
	"github.com/meinhoongagan/referencias-locales/utils"
	"go.uber.org/zap"
)

type appointmentInput struct {
	ServiceRequestID uint   `json:"serviceRequestId" validate:"required"`
	Date             string `json:"date" validate:"omitempty,isodate"`
	StartTime        string `json:"startTime" validate:"omitempty,hhmm"`
	EndTime          string `json:"endTime" validate:"omitempty,hhmm"`
	Notes            string `json:"notes" validate:"max=2000"`
}

// CreateAppointment handles POST /api/appointments. Confirmation emails are
// queued with the appointment and delivered by the dispatcher.
func (h *Handler) CreateAppointment(c *fiber.Ctx) error {
	var in appointmentInput
	if err := utils.ParseBody(c, &in); err != nil {
		return err
	}
	appt, err := h.Bookings.ScheduleAppointment(c.UserContext(), middleware.UserID(c), booking.NewAppointment{
		ServiceRequestID: in.ServiceRequestID,
		Date:             in.Date,
		StartTime:        in.StartTime,
		EndTime:          in.EndTime,
		Notes:            in.Notes,
	})
	if err != nil {
		return bookingError(err)
	}
	h.Log.Info("appointment scheduled",
		zap.Uint("appointment_id", appt.ID),
		zap.Uint("service_request_id", appt.ServiceRequestID),
		zap.String("date", appt.Date),
		zap.String("start", appt.StartTime))
	return c.Status(fiber.StatusCreated).JSON(appt)
}

func (h *Handler) ListAppointments(c *fiber.Ctx) error {
	page, limit, offset := utils.Paginate(c)
	appts, total, err := h.Bookings.ListAppointments(c.UserContext(), middleware.UserID(c), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"appointments": appts,
		"total":        total,
		"page":         page,
		"limit":        limit,
		"pages":        utils.Pages(total, limit),
	})
}

// UpdateAppointment handles PATCH /api/appointments/:id.
func (h *Handler) UpdateAppointment(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in struct {
		Status models.AppointmentStatus `json:"status" validate:"required"`
	}
	if err := utils.ParseBody(c, &in); err != nil {
		return err
	}
	appt, err := h.Bookings.UpdateAppointmentStatus(c.UserContext(), id, middleware.UserID(c), in.Status)
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(appt)
}
