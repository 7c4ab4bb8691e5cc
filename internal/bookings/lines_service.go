package bookings

import (
	"context"
	"fmt"
	"strconv"

	"github.com/odyssey-erp/odyssey-tours/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-tours/internal/pricing"
	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

// lineWriter stores one line for b and returns its id.
type lineWriter func(ctx context.Context, repo Repository, p *pricer, b *Booking) (int64, error)

// saveLine runs write under a lock on the owning booking and persists the
// recomputed totals in the same transaction. id is zero for inserts.
func (s *Service) saveLine(ctx context.Context, kind LineKind, id, bookingID int64, write lineWriter) (int64, error) {
	if id != 0 {
		owner, err := s.repo.LineBooking(ctx, kind, id)
		if err != nil {
			return 0, err
		}
		if owner != bookingID {
			return 0, ErrLineNotFound
		}
	}
	var saved int64
	err := s.mutateLines(ctx, bookingID, func(ctx context.Context, repo Repository, b *Booking) error {
		var err error
		saved, err = write(ctx, repo, s.pricerFor(b.Currency, b.PaxCount), b)
		return err
	})
	return saved, err
}

func (s *Service) mutateLines(ctx context.Context, bookingID int64, fn func(context.Context, Repository, *Booking) error) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		b, err := repo.GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := fn(ctx, repo, b); err != nil {
			return err
		}
		if err := repo.LoadDetails(ctx, b); err != nil {
			return err
		}
		b.applyTotals(pricing.Aggregate(b.LineItems()))
		return repo.UpdateTotals(ctx, b.ID, b.Totals(), b.PaymentStatus)
	})
	if err != nil {
		return fmt.Errorf("write booking %d lines: %w", bookingID, err)
	}
	s.invalidate(ctx)
	return nil
}

// SaveHotel inserts the hotel line when id is zero and updates it otherwise.
func (s *Service) SaveHotel(ctx context.Context, id int64, req HotelItemRequest) (*HotelItem, error) {
	var item HotelItem
	newID, err := s.saveLine(ctx, KindHotel, id, req.BookingID, func(ctx context.Context, repo Repository, p *pricer, b *Booking) (int64, error) {
		line, rateID, err := p.hotel(ctx, "hotel", req.HotelLine)
		if err != nil {
			return 0, err
		}
		item = HotelItem{ItemMeta: metaFor(line.Compute()), HotelLine: line}
		item.ID, item.BookingID, item.RateID = id, b.ID, rateID
		if id == 0 {
			return repo.InsertHotel(ctx, item)
		}
		return id, repo.UpdateHotel(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	item.ID = newID
	return &item, nil
}

func (s *Service) SaveTour(ctx context.Context, id int64, req TourItemRequest) (*TourItem, error) {
	var item TourItem
	newID, err := s.saveLine(ctx, KindTour, id, req.BookingID, func(ctx context.Context, repo Repository, p *pricer, b *Booking) (int64, error) {
		line, rateID, err := p.tour(ctx, "tour", req.TourLine)
		if err != nil {
			return 0, err
		}
		if line.OperationType == pricing.OperationSupplier && line.SupplierID == nil {
			return 0, httpx.NewValidationError(httpx.FieldErrors{"supplier_id": "is required for supplier operated tours"})
		}
		item = TourItem{ItemMeta: metaFor(line.Compute()), TourLine: line}
		item.ID, item.BookingID, item.RateID = id, b.ID, rateID
		if id == 0 {
			return repo.InsertTour(ctx, item)
		}
		return id, repo.UpdateTour(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	item.ID = newID
	return &item, nil
}

func (s *Service) SaveTransfer(ctx context.Context, id int64, req TransferItemRequest) (*TransferItem, error) {
	var item TransferItem
	newID, err := s.saveLine(ctx, KindTransfer, id, req.BookingID, func(ctx context.Context, repo Repository, p *pricer, b *Booking) (int64, error) {
		line, rateID, err := p.transfer(ctx, "transfer", req.TransferLine)
		if err != nil {
			return 0, err
		}
		item = TransferItem{ItemMeta: metaFor(line.Compute()), TransferLine: line}
		item.ID, item.BookingID, item.RateID = id, b.ID, rateID
		if id == 0 {
			return repo.InsertTransfer(ctx, item)
		}
		return id, repo.UpdateTransfer(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	item.ID = newID
	return &item, nil
}

func (s *Service) SaveFlight(ctx context.Context, id int64, req FlightItemRequest) (*FlightItem, error) {
	item := FlightItem{ItemMeta: metaFor(req.FlightLine.Compute()), FlightLine: req.FlightLine}
	newID, err := s.saveLine(ctx, KindFlight, id, req.BookingID, func(ctx context.Context, repo Repository, _ *pricer, b *Booking) (int64, error) {
		item.ID, item.BookingID = id, b.ID
		if id == 0 {
			return repo.InsertFlight(ctx, item)
		}
		return id, repo.UpdateFlight(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	item.ID = newID
	return &item, nil
}

func (s *Service) SaveEntranceFee(ctx context.Context, id int64, req EntranceFeeItemRequest) (*EntranceFeeItem, error) {
	item := EntranceFeeItem{ItemMeta: metaFor(req.EntranceFeeLine.Compute()), EntranceFeeLine: req.EntranceFeeLine}
	newID, err := s.saveLine(ctx, KindEntranceFee, id, req.BookingID, func(ctx context.Context, repo Repository, _ *pricer, b *Booking) (int64, error) {
		item.ID, item.BookingID = id, b.ID
		if id == 0 {
			return repo.InsertEntranceFee(ctx, item)
		}
		return id, repo.UpdateEntranceFee(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	item.ID = newID
	return &item, nil
}

// DeleteLine removes a line item and recomputes its booking's totals.
func (s *Service) DeleteLine(ctx context.Context, kind LineKind, id int64) error {
	bookingID, err := s.repo.LineBooking(ctx, kind, id)
	if err != nil {
		return err
	}
	return s.mutateLines(ctx, bookingID, func(ctx context.Context, repo Repository, _ *Booking) error {
		return repo.DeleteLine(ctx, kind, id)
	})
}

func (s *Service) ListPassengers(ctx context.Context, bookingID int64) ([]Passenger, error) {
	if _, err := s.repo.Get(ctx, bookingID); err != nil {
		return nil, err
	}
	list, err := s.repo.ListPassengers(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list passengers: %w", err)
	}
	if list == nil {
		list = []Passenger{}
	}
	return list, nil
}

// AddPassenger refuses to grow the manifest beyond the booking's pax count.
func (s *Service) AddPassenger(ctx context.Context, req PassengerRequest) (*Passenger, error) {
	p := Passenger{BookingID: req.BookingID, PassengerInput: req.PassengerInput}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		b, err := repo.GetForUpdate(ctx, req.BookingID)
		if err != nil {
			return err
		}
		existing, err := repo.ListPassengers(ctx, b.ID)
		if err != nil {
			return err
		}
		if len(existing) >= b.PaxCount {
			return httpx.NewValidationError(httpx.FieldErrors{"passengers": "must not exceed pax_count"})
		}
		if p.ID, err = repo.InsertPassenger(ctx, p); err != nil {
			return err
		}
		return repo.Audit().Record(ctx, shared.AuditLog{
			ActorID:  shared.ActorID(ctx),
			Action:   "passenger.create",
			Entity:   "booking",
			EntityID: strconv.FormatInt(b.ID, 10),
			Meta:     map[string]any{"passenger_id": p.ID},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("add passenger: %w", err)
	}
	return s.repo.GetPassenger(ctx, p.ID)
}

func (s *Service) UpdatePassenger(ctx context.Context, id int64, req PassengerRequest) (*Passenger, error) {
	current, err := s.repo.GetPassenger(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.BookingID != req.BookingID {
		return nil, ErrPassengerNotFound
	}
	current.PassengerInput = req.PassengerInput
	if err := s.repo.UpdatePassenger(ctx, *current); err != nil {
		return nil, fmt.Errorf("update passenger %d: %w", id, err)
	}
	return s.repo.GetPassenger(ctx, id)
}

func (s *Service) DeletePassenger(ctx context.Context, id int64) error {
	if err := s.repo.DeletePassenger(ctx, id); err != nil {
		return fmt.Errorf("delete passenger %d: %w", id, err)
	}
	return nil
}
