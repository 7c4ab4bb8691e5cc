package payments

import (
	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermPaymentsView, shared.PermPaymentsEdit))
		r.Get("/client-payments", h.list(KindClient))
		r.Get("/supplier-payments", h.list(KindSupplier))
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAll(shared.PermPaymentsEdit))
		r.Post("/client-payments", h.CreateClientPayment)
		r.Delete("/client-payments/{id}", h.delete(KindClient))
		r.Post("/supplier-payments", h.CreateSupplierPayment)
		r.Delete("/supplier-payments/{id}", h.delete(KindSupplier))
	})
}
