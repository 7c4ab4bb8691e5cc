package rates

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

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

func (h *Handler) ListHotelRates(w http.ResponseWriter, r *http.Request) {
	hotelID, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	list, err := h.service.ListHotelRates(r.Context(), hotelID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": nonNil(list)})
}

func (h *Handler) CreateHotelRate(w http.ResponseWriter, r *http.Request) {
	hotelID, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req HotelRateRequest
	if !h.decode(w, r, &req) {
		return
	}
	rate, err := h.service.CreateHotelRate(r.Context(), hotelID, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.logger.Info("hotel rate created", slog.Int64("hotel_id", hotelID), slog.Int64("rate_id", rate.ID), slog.Int64("actor", shared.ActorID(r.Context())))
	httpx.JSON(w, http.StatusCreated, rate)
}

func (h *Handler) UpdateHotelRate(w http.ResponseWriter, r *http.Request) {
	hotelID, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	rateID, err := httpx.URLParamInt64(r, "rateID")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req HotelRateRequest
	if !h.decode(w, r, &req) {
		return
	}
	rate, err := h.service.UpdateHotelRate(r.Context(), hotelID, rateID, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rate)
}

func (h *Handler) DeleteHotelRate(w http.ResponseWriter, r *http.Request) {
	hotelID, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	rateID, err := httpx.URLParamInt64(r, "rateID")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DeleteHotelRate(r.Context(), hotelID, rateID); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListVehicleRates(w http.ResponseWriter, r *http.Request) {
	supplierID, err := httpx.QueryInt64(r, "supplier_id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	q := r.URL.Query()
	list, err := h.service.ListVehicleRates(r.Context(), VehicleRateFilter{
		City:        q.Get("city"),
		VehicleType: q.Get("vehicle_type"),
		SupplierID:  supplierID,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": nonNil(list)})
}

func (h *Handler) CreateVehicleRate(w http.ResponseWriter, r *http.Request) {
	var req VehicleRateRequest
	if !h.decode(w, r, &req) {
		return
	}
	rate, err := h.service.CreateVehicleRate(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rate)
}

func (h *Handler) UpdateVehicleRate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req VehicleRateRequest
	if !h.decode(w, r, &req) {
		return
	}
	rate, err := h.service.UpdateVehicleRate(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rate)
}

func (h *Handler) DeleteVehicleRate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DeleteVehicleRate(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListTourRates(w http.ResponseWriter, r *http.Request) {
	tourID, err := httpx.QueryInt64(r, "tour_id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	supplierID, err := httpx.QueryInt64(r, "supplier_id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	list, err := h.service.ListTourRates(r.Context(), TourRateFilter{TourID: tourID, SupplierID: supplierID})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": nonNil(list)})
}

func (h *Handler) CreateTourRate(w http.ResponseWriter, r *http.Request) {
	var req TourRateRequest
	if !h.decode(w, r, &req) {
		return
	}
	rate, err := h.service.CreateTourRate(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rate)
}

func (h *Handler) UpdateTourRate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req TourRateRequest
	if !h.decode(w, r, &req) {
		return
	}
	rate, err := h.service.UpdateTourRate(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rate)
}

func (h *Handler) DeleteTourRate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.DeleteTourRate(r.Context(), id); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Quote answers GET /rates/quote?kind=hotel&date=2025-07-01&hotel_id=1&room_type=DOUBLE.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	req, err := quoteRequestFromQuery(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	quote, err := h.service.Quote(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func quoteRequestFromQuery(r *http.Request) (QuoteRequest, error) {
	q := r.URL.Query()
	req := QuoteRequest{
		Kind:         QuoteKind(q.Get("kind")),
		RoomType:     RoomType(strings.ToUpper(q.Get("room_type"))),
		City:         q.Get("city"),
		VehicleType:  q.Get("vehicle_type"),
		TransferType: TransferType(strings.ToLower(q.Get("transfer_type"))),
	}
	fields := httpx.FieldErrors{}
	if raw := q.Get("date"); raw != "" {
		d, err := shared.ParseDate(raw)
		if err != nil {
			fields["date"] = "must be YYYY-MM-DD"
		}
		req.Date = d
	}
	parseInt := func(name string) int64 {
		raw := q.Get(name)
		if raw == "" {
			return 0
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fields[name] = "must be an integer"
		}
		return v
	}
	req.HotelID = parseInt("hotel_id")
	req.TourID = parseInt("tour_id")
	req.SupplierID = parseInt("supplier_id")
	req.Pax = int(parseInt("pax"))
	return req, httpx.NewValidationError(fields)
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

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
