package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/middleware"
	"github.com/meinhoongagan/referencias-locales/payments"
	"github.com/meinhoongagan/referencias-locales/utils"
	"go.uber.org/zap"
)

type checkoutInput struct {
	ProviderID    uint   `json:"providerId" validate:"required"`
	CategoryID    *uint  `json:"categoryId"`
	AmountCents   int64  `json:"amountCents" validate:"required,gt=0"`
	Title         string `json:"title" validate:"required,max=200"`
	Description   string `json:"description" validate:"max=400"`
	Location      string `json:"location" validate:"max=255"`
	Notes         string `json:"notes" validate:"max=400"`
	ScheduledDate string `json:"scheduledDate" validate:"omitempty,isodate"`
	ScheduledTime string `json:"scheduledTime" validate:"omitempty,hhmm"`
}

// CreatePaymentIntent handles POST /api/checkout/payment-intents.
func (h *Handler) CreatePaymentIntent(c *fiber.Ctx) error {
	var in checkoutInput
	if err := utils.ParseBody(c, &in); err != nil {
		return err
	}
	intent, err := h.Payments.CreateCheckout(c.UserContext(), middleware.UserID(c), payments.Checkout{
		ProviderID:    in.ProviderID,
		CategoryID:    in.CategoryID,
		AmountCents:   in.AmountCents,
		Title:         in.Title,
		Description:   in.Description,
		Location:      in.Location,
		Notes:         in.Notes,
		ScheduledDate: in.ScheduledDate,
		ScheduledTime: in.ScheduledTime,
	})
	switch {
	case err == nil:
		return c.Status(fiber.StatusCreated).JSON(intent)
	case errors.Is(err, payments.ErrDisabled):
		return fiber.NewError(fiber.StatusServiceUnavailable, "Payments are not configured")
	case errors.Is(err, payments.ErrProviderNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Provider not found")
	case errors.Is(err, payments.ErrSelfPayment), errors.Is(err, payments.ErrInvalidAmount):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		h.Log.Error("create payment intent", zap.Uint("provider_id", in.ProviderID), zap.Error(err))
		return fiber.NewError(fiber.StatusBadGateway, "Payment processor unavailable")
	}
}

// StripeWebhook handles POST /api/webhook/stripe. It answers 200 whatever
// happens; failures are logged for manual follow-up.
func (h *Handler) StripeWebhook(c *fiber.Ctx) error {
	event, err := h.Payments.ParseEvent(c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		h.Log.Warn("stripe webhook rejected", zap.Error(err))
		return c.JSON(fiber.Map{"received": true})
	}
	if err := h.Payments.HandleEvent(c.UserContext(), event); err != nil {
		h.Log.Error("stripe webhook processing failed",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Error(err))
	}
	return c.JSON(fiber.Map{"received": true})
}
