package rates

import (
	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermRatesView, shared.PermRatesEdit, shared.PermBookingsEdit))
		r.Get("/hotels/{id}/seasonal-rates", h.ListHotelRates)
		r.Get("/vehicle-rates", h.ListVehicleRates)
		r.Get("/tour-rates", h.ListTourRates)
		r.Get("/rates/quote", h.Quote)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(shared.PermRatesEdit))
		r.Post("/hotels/{id}/seasonal-rates", h.CreateHotelRate)
		r.Put("/hotels/{id}/seasonal-rates/{rateID}", h.UpdateHotelRate)
		r.Delete("/hotels/{id}/seasonal-rates/{rateID}", h.DeleteHotelRate)
		r.Post("/vehicle-rates", h.CreateVehicleRate)
		r.Put("/vehicle-rates/{id}", h.UpdateVehicleRate)
		r.Delete("/vehicle-rates/{id}", h.DeleteVehicleRate)
		r.Post("/tour-rates", h.CreateTourRate)
		r.Put("/tour-rates/{id}", h.UpdateTourRate)
		r.Delete("/tour-rates/{id}", h.DeleteTourRate)
	})
}
