package expenses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/odyssey-tours/internal/bookings"
	"github.com/odyssey-erp/odyssey-tours/internal/fx"
	"github.com/odyssey-erp/odyssey-tours/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

type Service struct {
	repo   Repository
	fx     bookings.ConverterProvider
	cache  bookings.CacheInvalidator
	logger *slog.Logger
}

func NewService(repo Repository, converter bookings.ConverterProvider, cache bookings.CacheInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, fx: converter, cache: cache, logger: logger}
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Expense, error) {
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	if list == nil {
		list = []Expense{}
	}
	return list, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Expense, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req ExpenseRequest) (*Expense, error) {
	e, err := s.fromRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	e.CreatedBy = shared.ActorID(ctx)
	id, err := s.repo.Create(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("create expense: %w", err)
	}
	s.invalidate(ctx)
	return s.repo.Get(ctx, id)
}

// Update reconverts the amount with the current rate table.
func (s *Service) Update(ctx context.Context, id int64, req ExpenseRequest) (*Expense, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	e, err := s.fromRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	e.ID = id
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("update expense %d: %w", id, err)
	}
	s.invalidate(ctx)
	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) fromRequest(ctx context.Context, req ExpenseRequest) (Expense, error) {
	e := Expense{
		ExpenseDate: req.ExpenseDate,
		Category:    req.Category,
		Description: strings.TrimSpace(req.Description),
		Vendor:      strings.TrimSpace(req.Vendor),
		Amount:      fx.Round(req.Amount),
		Currency:    strings.ToUpper(req.Currency),
		Notes:       strings.TrimSpace(req.Notes),
	}
	conv, err := s.fx.Converter(ctx)
	if err != nil {
		return Expense{}, fmt.Errorf("load fx rates: %w", err)
	}
	e.BaseCurrency = conv.Table().Base
	if e.BaseAmount, err = conv.ToBase(e.Amount, e.Currency); err != nil {
		var missing *fx.MissingRateError
		if errors.As(err, &missing) {
			return Expense{}, httpx.NewValidationError(httpx.FieldErrors{"currency": err.Error()})
		}
		return Expense{}, err
	}
	return e, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump failed", slog.Any("error", err))
	}
}
