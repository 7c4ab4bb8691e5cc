package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-tours/internal/bookings"
	"github.com/odyssey-erp/odyssey-tours/internal/fx"
	"github.com/odyssey-erp/odyssey-tours/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

// Recorder receives payment counters.
type Recorder interface {
	PaymentRecorded(kind string)
}

type Service struct {
	repo    Repository
	fx      bookings.ConverterProvider
	cache   bookings.CacheInvalidator
	metrics Recorder
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

func WithCache(c bookings.CacheInvalidator) Option { return func(s *Service) { s.cache = c } }
func WithMetrics(m Recorder) Option { return func(s *Service) { s.metrics = m } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(repo Repository, converter bookings.ConverterProvider, opts ...Option) *Service {
	s := &Service{repo: repo, fx: converter, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) number(kind Kind) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", kind.prefix(), s.now().Format("060102"), suffix)
}

// toBookingCurrency converts amount into the booking currency. An empty
// currency means the booking currency.
func (s *Service) toBookingCurrency(ctx context.Context, amount float64, currency, bookingCurrency string) (string, float64, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" || currency == strings.ToUpper(bookingCurrency) {
		return strings.ToUpper(bookingCurrency), fx.Round(amount), nil
	}
	if s.fx == nil {
		return "", 0, httpx.NewValidationError(httpx.FieldErrors{"currency": "must match the booking currency"})
	}
	conv, err := s.fx.Converter(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("load fx rates: %w", err)
	}
	converted, err := conv.Convert(amount, currency, bookingCurrency)
	if err != nil {
		var missing *fx.MissingRateError
		if errors.As(err, &missing) {
			return "", 0, httpx.NewValidationError(httpx.FieldErrors{"currency": err.Error()})
		}
		return "", 0, err
	}
	return currency, converted, nil
}

// RecordClientPayment stores the receipt and refreshes amount_received and
// payment_status on the booking in the same transaction.
func (s *Service) RecordClientPayment(ctx context.Context, req PaymentRequest) (*Payment, error) {
	p, err := s.record(ctx, KindClient, req, nil)
	if err != nil {
		return nil, fmt.Errorf("record client payment: %w", err)
	}
	return p, nil
}

func (s *Service) RecordSupplierPayment(ctx context.Context, req SupplierPaymentRequest) (*Payment, error) {
	supplierID := req.SupplierID
	p, err := s.record(ctx, KindSupplier, req.PaymentRequest, &supplierID)
	if err != nil {
		return nil, fmt.Errorf("record supplier payment: %w", err)
	}
	return p, nil
}

func (s *Service) record(ctx context.Context, kind Kind, req PaymentRequest, supplierID *int64) (*Payment, error) {
	p := Payment{
		Kind:       kind,
		Number:     s.number(kind),
		BookingID:  req.BookingID,
		SupplierID: supplierID,
		Amount:     fx.Round(req.Amount),
		Method:     req.Method,
		PaidAt:     req.PaidAt,
		Reference:  strings.TrimSpace(req.Reference),
		Notes:      strings.TrimSpace(req.Notes),
		CreatedBy:  shared.ActorID(ctx),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		booking, err := repo.BookingForUpdate(ctx, req.BookingID)
		if err != nil {
			return err
		}
		if p.Currency, p.BookingAmount, err = s.toBookingCurrency(ctx, req.Amount, req.Currency, booking.Currency); err != nil {
			return err
		}
		if p.ID, err = repo.Insert(ctx, p); err != nil {
			return err
		}
		if kind == KindClient {
			if err := refreshReceived(ctx, repo, booking); err != nil {
				return err
			}
		}
		return repo.Audit().Record(ctx, shared.AuditLog{
			ActorID:  p.CreatedBy,
			Action:   "payment." + string(kind) + ".create",
			Entity:   "booking",
			EntityID: strconv.FormatInt(booking.ID, 10),
			Meta:     map[string]any{"number": p.Number, "amount": p.Amount, "currency": p.Currency, "booking_amount": p.BookingAmount},
		})
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.PaymentRecorded(string(kind))
	}
	s.invalidate(ctx)
	return s.repo.Get(ctx, kind, p.ID)
}

func refreshReceived(ctx context.Context, repo Repository, booking BookingRef) error {
	received, err := repo.SumReceived(ctx, booking.ID)
	if err != nil {
		return fmt.Errorf("sum receipts: %w", err)
	}
	received = fx.Round(received)
	return repo.SetReceived(ctx, booking.ID, received, bookings.DerivePaymentStatus(received, booking.TotalSellPrice))
}

func (s *Service) List(ctx context.Context, kind Kind, filter ListFilter) ([]Payment, error) {
	list, err := s.repo.List(ctx, kind, filter)
	if err != nil {
		return nil, fmt.Errorf("list %s payments: %w", kind, err)
	}
	if list == nil {
		list = []Payment{}
	}
	return list, nil
}

// Delete removes a payment. Deleting a client payment recomputes the booking's
// received amount.
func (s *Service) Delete(ctx context.Context, kind Kind, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		p, err := repo.Get(ctx, kind, id)
		if err != nil {
			return err
		}
		booking, err := repo.BookingForUpdate(ctx, p.BookingID)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, kind, id); err != nil {
			return err
		}
		if kind == KindClient {
			if err := refreshReceived(ctx, repo, booking); err != nil {
				return err
			}
		}
		return repo.Audit().Record(ctx, shared.AuditLog{
			ActorID:  shared.ActorID(ctx),
			Action:   "payment." + string(kind) + ".delete",
			Entity:   "booking",
			EntityID: strconv.FormatInt(booking.ID, 10),
			Meta:     map[string]any{"number": p.Number},
		})
	})
	if err != nil {
		return fmt.Errorf("delete %s payment %d: %w", kind, id, err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump failed", slog.Any("error", err))
	}
}
