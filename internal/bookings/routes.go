package bookings

import (
	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermBookingsView, shared.PermBookingsEdit))
		r.Get("/bookings", h.List)
		r.Get("/bookings/{id}", h.Get)
		r.Get("/passengers", h.ListPassengers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(shared.PermBookingsEdit))
		r.Post("/bookings", h.Create)
		r.Put("/bookings/{id}", h.Update)
		r.Patch("/bookings/{id}/status", h.UpdateStatus)
		r.Delete("/bookings/{id}", h.Delete)
		r.Post("/booking-drafts/preview", h.Preview)

		r.Post("/booking-hotels", createLine(h, h.service.SaveHotel))
		r.Put("/booking-hotels/{id}", updateLine(h, h.service.SaveHotel))
		r.Delete("/booking-hotels/{id}", h.deleteLine(KindHotel))
		r.Post("/booking-tours", createLine(h, h.service.SaveTour))
		r.Put("/booking-tours/{id}", updateLine(h, h.service.SaveTour))
		r.Delete("/booking-tours/{id}", h.deleteLine(KindTour))
		r.Post("/booking-transfers", createLine(h, h.service.SaveTransfer))
		r.Put("/booking-transfers/{id}", updateLine(h, h.service.SaveTransfer))
		r.Delete("/booking-transfers/{id}", h.deleteLine(KindTransfer))
		r.Post("/booking-flights", createLine(h, h.service.SaveFlight))
		r.Put("/booking-flights/{id}", updateLine(h, h.service.SaveFlight))
		r.Delete("/booking-flights/{id}", h.deleteLine(KindFlight))
		r.Post("/booking-entrance-fees", createLine(h, h.service.SaveEntranceFee))
		r.Put("/booking-entrance-fees/{id}", updateLine(h, h.service.SaveEntranceFee))
		r.Delete("/booking-entrance-fees/{id}", h.deleteLine(KindEntranceFee))

		r.Post("/passengers", h.CreatePassenger)
		r.Put("/passengers/{id}", h.UpdatePassenger)
		r.Delete("/passengers/{id}", h.DeletePassenger)
	})
}
