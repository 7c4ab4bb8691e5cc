package bookings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-tours/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-tours/internal/pricing"
	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

var (
	ErrNotFound          = fmt.Errorf("booking %w", httpx.ErrNotFound)
	ErrLineNotFound      = fmt.Errorf("booking line item %w", httpx.ErrNotFound)
	ErrPassengerNotFound = fmt.Errorf("passenger %w", httpx.ErrNotFound)
	ErrDuplicate         = fmt.Errorf("booking %w", httpx.ErrDuplicate)
	ErrAlreadyProcessed  = fmt.Errorf("booking request already processed: %w", httpx.ErrDuplicate)
	ErrInvalidStatus     = fmt.Errorf("invalid booking status: %w", httpx.ErrValidation)
	ErrUnknownReference  = fmt.Errorf("unknown client, hotel, tour or supplier: %w", httpx.ErrValidation)
)

const idempotencyModule = "bookings.create"

// CacheInvalidator drops cached report results after a write.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Recorder receives business counters.
type Recorder interface {
	BookingCreated(status, currency string, sell float64)
}

type Service struct {
	repo     Repository
	resolver RateResolver
	fx       ConverterProvider
	cache    CacheInvalidator
	metrics  Recorder
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithFX(p ConverterProvider) Option { return func(s *Service) { s.fx = p } }
func WithCache(c CacheInvalidator) Option { return func(s *Service) { s.cache = c } }
func WithMetrics(m Recorder) Option { return func(s *Service) { s.metrics = m } }
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(repo Repository, resolver RateResolver, opts ...Option) *Service {
	s := &Service{repo: repo, resolver: resolver, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewReference builds BK-YYMM-XXXXXXXX from the creation month and a random suffix.
func NewReference(at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("BK-%s-%s", at.Format("0601"), strings.ToUpper(suffix))
}

func (s *Service) Get(ctx context.Context, id int64) (*Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.LoadDetails(ctx, b); err != nil {
		return nil, fmt.Errorf("load booking %d: %w", id, err)
	}
	return b, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return ListResult{}, ErrInvalidStatus
	}
	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("list bookings: %w", err)
	}
	if list == nil {
		list = []Booking{}
	}
	return ListResult{Data: list, Pagination: shared.NewPagination(filter.Page, filter.PerPage, total)}, nil
}

// Create validates the draft, prices its lines and writes the booking, its
// lines and passengers in one transaction. A repeated idempotency key fails
// with ErrAlreadyProcessed and writes nothing.
func (s *Service) Create(ctx context.Context, d Draft, idempotencyKey string) (*Booking, error) {
	if err := ValidateDraft(d); err != nil {
		return nil, err
	}
	priced, err := s.pricerFor(d.Currency, d.PaxCount).lines(ctx, d.Lines)
	if err != nil {
		return nil, err
	}

	status := d.Status
	if status == "" {
		status = StatusInquiry
	}
	b := Booking{
		Reference: NewReference(s.now()),
		ClientID:  d.ClientID,
		PaxCount:  d.PaxCount,
		StartDate: d.StartDate,
		EndDate:   d.EndDate,
		Status:    status,
		Currency:  strings.ToUpper(d.Currency),
		Notes:     strings.TrimSpace(d.Notes),
		CreatedBy: shared.ActorID(ctx),
	}
	b.applyTotals(pricing.Aggregate(priced.items))

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if idempotencyKey != "" {
			if err := repo.Idempotency().CheckAndInsert(ctx, idempotencyKey, idempotencyModule); err != nil {
				if errors.Is(err, shared.ErrIdempotencyConflict) {
					return ErrAlreadyProcessed
				}
				return fmt.Errorf("idempotency: %w", err)
			}
		}
		id, err := repo.Create(ctx, b)
		if err != nil {
			return err
		}
		b.ID = id
		if err := insertLines(ctx, repo, b.ID, priced); err != nil {
			return err
		}
		for i, p := range d.Passengers {
			if _, err := repo.InsertPassenger(ctx, Passenger{BookingID: b.ID, PassengerInput: p}); err != nil {
				return fmt.Errorf("insert passengers[%d]: %w", i, err)
			}
		}
		return repo.Audit().Record(ctx, shared.AuditLog{
			ActorID:  b.CreatedBy,
			Action:   "booking.create",
			Entity:   "booking",
			EntityID: strconv.FormatInt(b.ID, 10),
			Meta: map[string]any{
				"reference":  b.Reference,
				"total_sell": b.TotalSellPrice,
				"total_cost": b.TotalCostPrice,
				"lines":      priced.items.Len(),
				"passengers": len(d.Passengers),
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	if s.metrics != nil {
		s.metrics.BookingCreated(string(b.Status), b.Currency, b.TotalSellPrice)
	}
	s.invalidate(ctx)
	return s.Get(ctx, b.ID)
}

func insertLines(ctx context.Context, repo Repository, bookingID int64, priced pricedLines) error {
	for i, l := range priced.items.Hotels {
		item := HotelItem{ItemMeta: metaFor(l.Compute()), HotelLine: l}
		item.BookingID, item.RateID = bookingID, priced.hotelRates[i]
		if _, err := repo.InsertHotel(ctx, item); err != nil {
			return fmt.Errorf("insert hotels[%d]: %w", i, err)
		}
	}
	for i, l := range priced.items.Tours {
		item := TourItem{ItemMeta: metaFor(l.Compute()), TourLine: l}
		item.BookingID, item.RateID = bookingID, priced.tourRates[i]
		if _, err := repo.InsertTour(ctx, item); err != nil {
			return fmt.Errorf("insert tours[%d]: %w", i, err)
		}
	}
	for i, l := range priced.items.Transfers {
		item := TransferItem{ItemMeta: metaFor(l.Compute()), TransferLine: l}
		item.BookingID, item.RateID = bookingID, priced.transferRates[i]
		if _, err := repo.InsertTransfer(ctx, item); err != nil {
			return fmt.Errorf("insert transfers[%d]: %w", i, err)
		}
	}
	for i, l := range priced.items.Flights {
		item := FlightItem{ItemMeta: metaFor(l.Compute()), FlightLine: l}
		item.BookingID = bookingID
		if _, err := repo.InsertFlight(ctx, item); err != nil {
			return fmt.Errorf("insert flights[%d]: %w", i, err)
		}
	}
	for i, l := range priced.items.EntranceFees {
		item := EntranceFeeItem{ItemMeta: metaFor(l.Compute()), EntranceFeeLine: l}
		item.BookingID = bookingID
		if _, err := repo.InsertEntranceFee(ctx, item); err != nil {
			return fmt.Errorf("insert entrance_fees[%d]: %w", i, err)
		}
	}
	return nil
}

// Update edits the header. Supplied lines replace the stored set; without
// them the stored totals are kept by the edit guard.
func (s *Service) Update(ctx context.Context, id int64, req UpdateBookingRequest) (*Booking, error) {
	if req.EndDate.Before(req.StartDate.Time) {
		return nil, httpx.NewValidationError(httpx.FieldErrors{"end_date": "must not be before start_date"})
	}
	replace := req.Lines != nil && req.Lines.Len() > 0
	var priced pricedLines
	if replace {
		d := Draft{PaxCount: req.PaxCount, Lines: *req.Lines}
		if err := httpx.NewValidationError(ValidateStep(d, StepServices)); err != nil {
			return nil, err
		}
		var err error
		if priced, err = s.pricerFor(req.Currency, req.PaxCount).lines(ctx, *req.Lines); err != nil {
			return nil, err
		}
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		b, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.LoadDetails(ctx, b); err != nil {
			return err
		}
		currency := strings.ToUpper(req.Currency)
		if currency != b.Currency {
			if err := checkCurrencyChange(ctx, repo, b, replace); err != nil {
				return err
			}
		}
		b.ClientID = req.ClientID
		b.PaxCount = req.PaxCount
		b.StartDate = req.StartDate
		b.EndDate = req.EndDate
		b.Currency = currency
		b.Notes = strings.TrimSpace(req.Notes)

		lines := b.LineItems()
		if replace {
			if err := repo.DeleteLines(ctx, b.ID); err != nil {
				return err
			}
			if err := insertLines(ctx, repo, b.ID, priced); err != nil {
				return err
			}
			lines = priced.items
		}
		b.applyTotals(pricing.AggregateEdit(lines, b.Totals()))
		if err := repo.UpdateHeader(ctx, *b); err != nil {
			return err
		}
		return repo.Audit().Record(ctx, shared.AuditLog{
			ActorID:  shared.ActorID(ctx),
			Action:   "booking.update",
			Entity:   "booking",
			EntityID: strconv.FormatInt(b.ID, 10),
			Meta:     map[string]any{"lines_replaced": replace, "total_sell": b.TotalSellPrice},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("update booking %d: %w", id, err)
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

// checkCurrencyChange refuses to relabel amounts stored in the old currency.
// Lines may switch currency only when the request resubmits all of them;
// payments pin the currency for good.
func checkCurrencyChange(ctx context.Context, repo Repository, b *Booking, replace bool) error {
	paid, err := repo.HasPayments(ctx, b.ID)
	if err != nil {
		return err
	}
	if paid || b.AmountReceived > 0 {
		return httpx.NewValidationError(httpx.FieldErrors{"currency": "cannot change once payments are recorded"})
	}
	if !replace && (b.LineItems().Len() > 0 || !b.Totals().IsZero()) {
		return httpx.NewValidationError(httpx.FieldErrors{"currency": "resubmit the lines priced in the new currency"})
	}
	return nil
}

// UpdateStatus moves the booking to any known status.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) (*Booking, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		current, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.UpdateStatus(ctx, id, status); err != nil {
			return err
		}
		return repo.Audit().Record(ctx, shared.AuditLog{
			ActorID:  shared.ActorID(ctx),
			Action:   "booking.status",
			Entity:   "booking",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"from": current.Status, "to": status},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("update booking %d status: %w", id, err)
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

// Delete removes the booking with its lines, passengers and payments.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		b, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return err
		}
		return repo.Audit().Record(ctx, shared.AuditLog{
			ActorID:  shared.ActorID(ctx),
			Action:   "booking.delete",
			Entity:   "booking",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"reference": b.Reference},
		})
	})
	if err != nil {
		return fmt.Errorf("delete booking %d: %w", id, err)
	}
	s.invalidate(ctx)
	return nil
}

// Preview applies the actions to the draft, prices it and reports every
// failing step. Nothing is persisted.
func (s *Service) Preview(ctx context.Context, req PreviewRequest) (*PreviewResponse, error) {
	d, err := ApplyActions(req.Draft, req.Actions)
	if err != nil {
		return nil, err
	}
	priced, err := s.pricerFor(d.Currency, d.PaxCount).lines(ctx, d.Lines)
	if err != nil {
		return nil, err
	}
	d.Lines = priced.items
	errs := Validate(d)
	return &PreviewResponse{
		Draft:   d,
		Lines:   d.Amounts(),
		Totals:  d.Totals(),
		Errors:  errs,
		IsValid: len(errs) == 0,
	}, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump failed", slog.Any("error", err))
	}
}
