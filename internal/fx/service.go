package fx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-tours/internal/platform/httpx"
)

// Service hands out converters built from the configured source.
type Service struct {
	source Source
}

func NewService(source Source) *Service {
	return &Service{source: source}
}

// Converter loads the current table.
func (s *Service) Converter(ctx context.Context) (*Converter, error) {
	table, err := s.source.Rates(ctx)
	if err != nil {
		return nil, err
	}
	return NewConverter(table), nil
}

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/fx/rates", h.rates)
}

func (h *Handler) rates(w http.ResponseWriter, r *http.Request) {
	conv, err := h.service.Converter(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, conv.Table())
}
