package reports

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-tours/internal/auth"
	"github.com/odyssey-erp/odyssey-tours/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

const requestTimeout = 5 * time.Second

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

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(h.guard.RequireAny(shared.PermReportsView))
		r.Get("/monthly-pl", h.monthlyPL)
		r.Get("/cash-flow", h.cashFlow)
		r.Get("/sales-by-client", h.sales(ByClient))
		r.Get("/sales-by-service", h.sales(ByService))
		r.Get("/sales-by-status", h.sales(ByStatus))
		r.Get("/outstanding", h.outstanding)
		r.Get("/dashboard", h.dashboard)
	})
}

func (h *Handler) monthRange(w http.ResponseWriter, r *http.Request) (MonthRange, bool) {
	q := r.URL.Query()
	rng, err := ParseMonthRange(q.Get("from"), q.Get("to"), h.service.Today())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return MonthRange{}, false
	}
	return rng, true
}

func (h *Handler) monthlyPL(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.monthRange(w, r)
	if !ok {
		return
	}
	report, err := h.service.MonthlyPL(r.Context(), rng)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if wantsCSV(r) {
		h.csv(w, "monthly-pl-"+rng.From.Format("2006-01"), func(buf *bytes.Buffer) error { return WritePLCSV(buf, report) })
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) cashFlow(w http.ResponseWriter, r *http.Request) {
	rng, ok := h.monthRange(w, r)
	if !ok {
		return
	}
	report, err := h.service.CashFlow(r.Context(), rng)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if wantsCSV(r) {
		h.csv(w, "cash-flow-"+rng.From.Format("2006-01"), func(buf *bytes.Buffer) error { return WriteCashFlowCSV(buf, report) })
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) sales(dim Dimension) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rng, ok := h.monthRange(w, r)
		if !ok {
			return
		}
		report, err := h.service.Sales(r.Context(), dim, rng)
		if err != nil {
			httpx.RespondError(w, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, report)
	}
}

func (h *Handler) outstanding(w http.ResponseWriter, r *http.Request) {
	asOf, err := httpx.QueryDate(r, "as_of")
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	day := h.service.Today()
	if asOf != nil {
		day = *asOf
	}
	report, err := h.service.Outstanding(r.Context(), day)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := contextWithTimeout(r)
	defer cancel()
	d, err := h.service.Dashboard(ctx)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) csv(w http.ResponseWriter, name string, write func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func wantsCSV(r *http.Request) bool {
	return r.URL.Query().Get("format") == "csv"
}

func contextWithTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}
