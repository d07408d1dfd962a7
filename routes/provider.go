package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/controllers"
	"github.com/meinhoongagan/referencias-locales/middleware"
	"github.com/meinhoongagan/referencias-locales/models"
)

// SetupProviderRoutes configures the public directory and the routes a
// provider uses to manage their own profile
func SetupProviderRoutes(api fiber.Router, h *controllers.Handler, protected fiber.Handler) {
	providers := api.Group("/providers")

	// Setup-token authenticated.
	providers.Post("/", h.CreateProvider)

	// Handlers are attached per route: a "/me" group prefix would also
	// capture slugs starting with "me".
	// Switching isProvider off demotes the role and locks the profile.
	owner := []fiber.Handler{
		protected,
		middleware.RequireRole(h.DB, models.RoleProvider, models.RoleAdmin),
		middleware.RequireProvider(h.DB),
	}
	mine := func(handler fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, owner...), handler)
	}
	providers.Patch("/me", mine(h.UpdateMyProvider)...)
	providers.Post("/me/menu-items", mine(h.CreateMenuItem)...)
	providers.Patch("/me/menu-items/:id", mine(h.UpdateMenuItem)...)
	providers.Delete("/me/menu-items/:id", mine(h.DeleteMenuItem)...)
	providers.Post("/me/payment-methods", mine(h.CreatePaymentMethod)...)
	providers.Delete("/me/payment-methods/:id", mine(h.DeletePaymentMethod)...)
	providers.Put("/me/availability", mine(h.ReplaceAvailability)...)

	providers.Get("/", h.ListProviders)
	providers.Get("/:slug", h.GetProvider)
	providers.Get("/:slug/menu", h.ListMenu)
	providers.Get("/:slug/payment-methods", h.ListPaymentMethods)
	providers.Get("/:slug/availability", h.GetAvailability)
	providers.Get("/:slug/reviews", h.ListReviews)
	providers.Post("/:slug/reviews", protected, h.CreateReview)
}
