package payments

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-tours/internal/auth"
	"github.com/odyssey-erp/odyssey-tours/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   auth.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, guard auth.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard}
}

func (h *Handler) list(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var filter ListFilter
		var err error
		if filter.BookingID, err = httpx.QueryInt64(r, "booking_id"); err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		if filter.SupplierID, err = httpx.QueryInt64(r, "supplier_id"); err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		if filter.From, err = httpx.QueryDate(r, "from"); err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		if filter.To, err = httpx.QueryDate(r, "to"); err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		list, err := h.service.List(r.Context(), kind, filter)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"data": list})
	}
}

func (h *Handler) CreateClientPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.service.RecordClientPayment(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.logger.Info("client payment recorded",
		slog.Int64("booking_id", p.BookingID),
		slog.String("number", p.Number),
		slog.Float64("booking_amount", p.BookingAmount),
		slog.Int64("actor", shared.ActorID(r.Context())))
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) CreateSupplierPayment(w http.ResponseWriter, r *http.Request) {
	var req SupplierPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.service.RecordSupplierPayment(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.logger.Info("supplier payment recorded",
		slog.Int64("booking_id", p.BookingID),
		slog.String("number", p.Number),
		slog.Int64("actor", shared.ActorID(r.Context())))
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) delete(kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.URLParamInt64(r, "id")
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		if err := h.service.Delete(r.Context(), kind, id); err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, h.logger, err)
		return false
	}
	if err := httpx.ValidateStruct(target); err != nil {
		httpx.RespondError(w, h.logger, err)
		return false
	}
	return true
}
