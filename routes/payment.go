package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/controllers"
)

// SetupPaymentRoutes configures checkout and the Stripe webhook
func SetupPaymentRoutes(api fiber.Router, h *controllers.Handler, protected fiber.Handler) {
	api.Post("/checkout/payment-intents", protected, h.CreatePaymentIntent)
	api.Post("/webhook/stripe", h.StripeWebhook)
}
