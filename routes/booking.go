package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/controllers"
)

// SetupBookingRoutes configures service request and appointment routes
func SetupBookingRoutes(api fiber.Router, h *controllers.Handler, protected fiber.Handler) {
	requests := api.Group("/service-requests", protected)
	requests.Post("/", h.CreateServiceRequest)
	requests.Get("/", h.ListServiceRequests)
	requests.Get("/:id", h.GetServiceRequest)
	requests.Patch("/:id", h.UpdateServiceRequest)

	appointments := api.Group("/appointments", protected)
	appointments.Post("/", h.CreateAppointment)
	appointments.Get("/", h.ListAppointments)
	appointments.Patch("/:id", h.UpdateAppointment)
}
