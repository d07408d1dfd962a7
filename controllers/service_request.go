package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/booking"
	"github.com/meinhoongagan/referencias-locales/middleware"
	"github.com/meinhoongagan/referencias-locales/models"
	"github.com/meinhoongagan/referencias-locales/utils"
	"go.uber.org/zap"
)

type serviceRequestInput struct {
	ProviderID    uint   `json:"providerId" validate:"required"`
	CategoryID    *uint  `json:"categoryId"`
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description" validate:"max=4000"`
	Location      string `json:"location" validate:"max=255"`
	Notes         string `json:"notes" validate:"max=2000"`
	ScheduledDate string `json:"scheduledDate" validate:"omitempty,isodate"`
	ScheduledTime string `json:"scheduledTime" validate:"omitempty,hhmm"`
	TotalCents    *int64 `json:"totalCents" validate:"omitempty,gte=0"`
}

// CreateServiceRequest handles POST /api/service-requests.
func (h *Handler) CreateServiceRequest(c *fiber.Ctx) error {
	var in serviceRequestInput
	if err := utils.ParseBody(c, &in); err != nil {
		return err
	}
	sr, err := h.Bookings.Create(c.UserContext(), middleware.UserID(c), booking.NewRequest{
		ProviderID:    in.ProviderID,
		CategoryID:    in.CategoryID,
		Title:         in.Title,
		Description:   in.Description,
		Location:      in.Location,
		Notes:         in.Notes,
		ScheduledDate: in.ScheduledDate,
		ScheduledTime: in.ScheduledTime,
		TotalCents:    in.TotalCents,
	})
	if err != nil {
		return bookingError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(sr)
}

// ListServiceRequests handles GET /api/service-requests?as=requester|provider.
func (h *Handler) ListServiceRequests(c *fiber.Ctx) error {
	page, limit, offset := utils.Paginate(c)
	role := booking.ListRole(c.Query("as", string(booking.AsRequester)))
	if role != booking.AsRequester && role != booking.AsProvider {
		return utils.NewValidationError("as", "oneof")
	}
	requests, total, err := h.Bookings.List(c.UserContext(), middleware.UserID(c), role,
		models.BookingStatus(c.Query("status")), limit, offset)
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(fiber.Map{
		"serviceRequests": requests,
		"total":           total,
		"page":            page,
		"limit":           limit,
		"pages":           utils.Pages(total, limit),
	})
}

// GetServiceRequest handles GET /api/service-requests/:id for its parties.
func (h *Handler) GetServiceRequest(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	sr, err := h.Bookings.Get(c.UserContext(), id, middleware.UserID(c))
	if err != nil {
		return bookingError(err)
	}
	return c.JSON(sr)
}

type statusUpdateInput struct {
	Status        *models.BookingStatus `json:"status"`
	ConfirmedDate *string               `json:"confirmedDate" validate:"omitempty,isodate"`
	ConfirmedTime *string               `json:"confirmedTime" validate:"omitempty,hhmm"`
	Notes         *string               `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateServiceRequest handles PATCH /api/service-requests/:id. Callers who
// are not a party get 403 before anything in the body is looked at.
func (h *Handler) UpdateServiceRequest(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	userID := middleware.UserID(c)
	if _, err := h.Bookings.Get(c.UserContext(), id, userID); err != nil {
		return bookingError(err)
	}

	var in statusUpdateInput
	if err := utils.ParseBody(c, &in); err != nil {
		return err
	}
	sr, err := h.Bookings.UpdateStatus(c.UserContext(), id, userID, booking.StatusUpdate{
		Status:        in.Status,
		ConfirmedDate: in.ConfirmedDate,
		ConfirmedTime: in.ConfirmedTime,
		Notes:         in.Notes,
	})
	if err != nil {
		return bookingError(err)
	}
	h.Log.Info("service request updated",
		zap.Uint("service_request_id", sr.ID),
		zap.Uint("user_id", userID),
		zap.String("status", string(sr.Status)))
	return c.JSON(sr)
}
