package bookings

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-tours/internal/auth"
	"github.com/odyssey-erp/odyssey-tours/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

// IdempotencyHeader carries the client's key for booking creation.
const IdempotencyHeader = "Idempotency-Key"

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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	result, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func filterFromQuery(r *http.Request) (ListFilter, error) {
	var filter ListFilter
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status := Status(strings.ToLower(raw))
		filter.Status = &status
	}
	var err error
	if filter.ClientID, err = httpx.QueryInt64(r, "client_id"); err != nil {
		return filter, err
	}
	if filter.From, err = httpx.QueryDate(r, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = httpx.QueryDate(r, "to"); err != nil {
		return filter, err
	}
	filter.Search = q.Get("q")
	filter.Page, filter.PerPage = shared.PageParams(r)
	return filter, nil
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var d Draft
	if err := httpx.DecodeJSON(r, &d); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	b, err := h.service.Create(r.Context(), d, key)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.logger.Info("booking created",
		slog.Int64("booking_id", b.ID),
		slog.String("reference", b.Reference),
		slog.Float64("total_sell", b.TotalSellPrice),
		slog.Int64("actor", shared.ActorID(r.Context())))
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req UpdateBookingRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req StatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.logger.Info("booking status changed", slog.Int64("booking_id", id), slog.String("status", string(b.Status)))
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	resp, err := h.service.Preview(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// createLine and updateLine adapt a Save* service method to POST and PUT.
func createLine[R any, T any](h *Handler, save func(context.Context, int64, R) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req R
		if !h.decode(w, r, &req) {
			return
		}
		item, err := save(r.Context(), 0, req)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, item)
	}
}

func updateLine[R any, T any](h *Handler, save func(context.Context, int64, R) (*T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.URLParamInt64(r, "id")
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		var req R
		if !h.decode(w, r, &req) {
			return
		}
		item, err := save(r.Context(), id, req)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, item)
	}
}

func (h *Handler) deleteLine(kind LineKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.URLParamInt64(r, "id")
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		if err := h.service.DeleteLine(r.Context(), kind, id); err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) ListPassengers(w http.ResponseWriter, r *http.Request) {
	bookingID, err := httpx.QueryInt64(r, "booking_id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if bookingID == nil {
		httpx.RespondError(w, h.logger, httpx.NewValidationError(httpx.FieldErrors{"booking_id": "is required"}))
		return
	}
	list, err := h.service.ListPassengers(r.Context(), *bookingID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": list})
}

func (h *Handler) CreatePassenger(w http.ResponseWriter, r *http.Request) {
	var req PassengerRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.service.AddPassenger(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdatePassenger(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req PassengerRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.service.UpdatePassenger(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) DeletePassenger(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DeletePassenger(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
