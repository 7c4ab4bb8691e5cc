package bookings

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/odyssey-erp/odyssey-tours/internal/pricing"
	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

// memRepo is an in-memory Repository. WithTx snapshots every table and
// restores it when fn fails.
type memRepo struct {
	nextID       int64
	bookings     map[int64]Booking
	hotels       map[int64]HotelItem
	tours        map[int64]TourItem
	transfers    map[int64]TransferItem
	flights      map[int64]FlightItem
	entranceFees map[int64]EntranceFeeItem
	passengers   map[int64]Passenger
	keys         map[string]string
	audits       []shared.AuditLog

	failPassengerInsert bool
	paidBookings        map[int64]bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		bookings:     map[int64]Booking{},
		hotels:       map[int64]HotelItem{},
		tours:        map[int64]TourItem{},
		transfers:    map[int64]TransferItem{},
		flights:      map[int64]FlightItem{},
		entranceFees: map[int64]EntranceFeeItem{},
		passengers:   map[int64]Passenger{},
		keys:         map[string]string{},
	}
}

func (m *memRepo) HasPayments(_ context.Context, id int64) (bool, error) {
	return m.paidBookings[id], nil
}

func (m *memRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	snapshot := *m
	snapshot.bookings = maps.Clone(m.bookings)
	snapshot.hotels = maps.Clone(m.hotels)
	snapshot.tours = maps.Clone(m.tours)
	snapshot.transfers = maps.Clone(m.transfers)
	snapshot.flights = maps.Clone(m.flights)
	snapshot.entranceFees = maps.Clone(m.entranceFees)
	snapshot.passengers = maps.Clone(m.passengers)
	snapshot.keys = maps.Clone(m.keys)
	snapshot.audits = slices.Clone(m.audits)
	if err := fn(ctx, m); err != nil {
		*m = snapshot
		return err
	}
	return nil
}

type memAudit struct{ m *memRepo }

func (a memAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.m.audits = append(a.m.audits, log)
	return nil
}

type memKeys struct{ m *memRepo }

func (k memKeys) CheckAndInsert(_ context.Context, key, module string) error {
	if _, ok := k.m.keys[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	k.m.keys[key] = module
	return nil
}

func (k memKeys) Delete(_ context.Context, key string) error {
	delete(k.m.keys, key)
	return nil
}

func (m *memRepo) Audit() shared.AuditRecorder { return memAudit{m} }
func (m *memRepo) Idempotency() shared.IdempotencyGuard { return memKeys{m} }

func (m *memRepo) Create(_ context.Context, b Booking) (int64, error) {
	for _, existing := range m.bookings {
		if existing.Reference == b.Reference {
			return 0, ErrDuplicate
		}
	}
	b.ID = m.id()
	m.bookings[b.ID] = b
	return b.ID, nil
}

func (m *memRepo) Get(_ context.Context, id int64) (*Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m *memRepo) GetForUpdate(ctx context.Context, id int64) (*Booking, error) {
	return m.Get(ctx, id)
}

func sortedValues[T any](src map[int64]T, keep func(T) bool) []T {
	ids := slices.Sorted(maps.Keys(src))
	var out []T
	for _, id := range ids {
		if keep(src[id]) {
			out = append(out, src[id])
		}
	}
	return out
}

func (m *memRepo) LoadDetails(_ context.Context, b *Booking) error {
	b.Hotels = sortedValues(m.hotels, func(i HotelItem) bool { return i.BookingID == b.ID })
	b.Tours = sortedValues(m.tours, func(i TourItem) bool { return i.BookingID == b.ID })
	b.Transfers = sortedValues(m.transfers, func(i TransferItem) bool { return i.BookingID == b.ID })
	b.Flights = sortedValues(m.flights, func(i FlightItem) bool { return i.BookingID == b.ID })
	b.EntranceFees = sortedValues(m.entranceFees, func(i EntranceFeeItem) bool { return i.BookingID == b.ID })
	b.Passengers = sortedValues(m.passengers, func(p Passenger) bool { return p.BookingID == b.ID })
	return nil
}

func (m *memRepo) List(_ context.Context, filter ListFilter) ([]Booking, int, error) {
	all := sortedValues(m.bookings, func(b Booking) bool {
		if filter.Status != nil && b.Status != *filter.Status {
			return false
		}
		if filter.ClientID != nil && b.ClientID != *filter.ClientID {
			return false
		}
		return filter.Search == "" || strings.Contains(b.Reference, filter.Search)
	})
	page := shared.NewPagination(filter.Page, filter.PerPage, len(all))
	start := min(page.Offset(), len(all))
	end := min(start+page.PerPage, len(all))
	return all[start:end], len(all), nil
}

func (m *memRepo) UpdateHeader(_ context.Context, b Booking) error {
	current, ok := m.bookings[b.ID]
	if !ok {
		return ErrNotFound
	}
	b.Reference, b.Status, b.AmountReceived = current.Reference, current.Status, current.AmountReceived
	b.Hotels, b.Tours, b.Transfers, b.Flights, b.EntranceFees, b.Passengers = nil, nil, nil, nil, nil, nil
	m.bookings[b.ID] = b
	return nil
}

func (m *memRepo) UpdateTotals(_ context.Context, id int64, totals pricing.Totals, status PaymentStatus) error {
	b, ok := m.bookings[id]
	if !ok {
		return ErrNotFound
	}
	b.TotalSellPrice, b.TotalCostPrice, b.GrossProfit = totals.TotalSell, totals.TotalCost, totals.GrossProfit
	b.PaymentStatus = status
	m.bookings[id] = b
	return nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id int64, status Status) error {
	b, ok := m.bookings[id]
	if !ok {
		return ErrNotFound
	}
	b.Status = status
	m.bookings[id] = b
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.bookings[id]; !ok {
		return ErrNotFound
	}
	_ = m.DeleteLines(ctx, id)
	maps.DeleteFunc(m.passengers, func(_ int64, p Passenger) bool { return p.BookingID == id })
	delete(m.bookings, id)
	return nil
}

func insertItem[T any](m *memRepo, table map[int64]T, item T, setID func(*T, int64)) (int64, error) {
	id := m.id()
	setID(&item, id)
	table[id] = item
	return id, nil
}

func updateItem[T any](table map[int64]T, id int64, item T) error {
	if _, ok := table[id]; !ok {
		return ErrLineNotFound
	}
	table[id] = item
	return nil
}

func (m *memRepo) InsertHotel(_ context.Context, item HotelItem) (int64, error) {
	return insertItem(m, m.hotels, item, func(i *HotelItem, id int64) { i.ID = id })
}

func (m *memRepo) UpdateHotel(_ context.Context, item HotelItem) error {
	return updateItem(m.hotels, item.ID, item)
}

func (m *memRepo) InsertTour(_ context.Context, item TourItem) (int64, error) {
	return insertItem(m, m.tours, item, func(i *TourItem, id int64) { i.ID = id })
}

func (m *memRepo) UpdateTour(_ context.Context, item TourItem) error {
	return updateItem(m.tours, item.ID, item)
}

func (m *memRepo) InsertTransfer(_ context.Context, item TransferItem) (int64, error) {
	return insertItem(m, m.transfers, item, func(i *TransferItem, id int64) { i.ID = id })
}

func (m *memRepo) UpdateTransfer(_ context.Context, item TransferItem) error {
	return updateItem(m.transfers, item.ID, item)
}

func (m *memRepo) InsertFlight(_ context.Context, item FlightItem) (int64, error) {
	return insertItem(m, m.flights, item, func(i *FlightItem, id int64) { i.ID = id })
}

func (m *memRepo) UpdateFlight(_ context.Context, item FlightItem) error {
	return updateItem(m.flights, item.ID, item)
}

func (m *memRepo) InsertEntranceFee(_ context.Context, item EntranceFeeItem) (int64, error) {
	return insertItem(m, m.entranceFees, item, func(i *EntranceFeeItem, id int64) { i.ID = id })
}

func (m *memRepo) UpdateEntranceFee(_ context.Context, item EntranceFeeItem) error {
	return updateItem(m.entranceFees, item.ID, item)
}

func (m *memRepo) ownerOf(kind LineKind, id int64) (int64, bool) {
	switch kind {
	case KindHotel:
		i, ok := m.hotels[id]
		return i.BookingID, ok
	case KindTour:
		i, ok := m.tours[id]
		return i.BookingID, ok
	case KindTransfer:
		i, ok := m.transfers[id]
		return i.BookingID, ok
	case KindFlight:
		i, ok := m.flights[id]
		return i.BookingID, ok
	case KindEntranceFee:
		i, ok := m.entranceFees[id]
		return i.BookingID, ok
	}
	return 0, false
}

func (m *memRepo) LineBooking(_ context.Context, kind LineKind, id int64) (int64, error) {
	owner, ok := m.ownerOf(kind, id)
	if !ok {
		return 0, ErrLineNotFound
	}
	return owner, nil
}

func (m *memRepo) DeleteLine(_ context.Context, kind LineKind, id int64) error {
	if _, ok := m.ownerOf(kind, id); !ok {
		return ErrLineNotFound
	}
	delete(m.hotels, id)
	delete(m.tours, id)
	delete(m.transfers, id)
	delete(m.flights, id)
	delete(m.entranceFees, id)
	return nil
}

func (m *memRepo) DeleteLines(_ context.Context, bookingID int64) error {
	maps.DeleteFunc(m.hotels, func(_ int64, i HotelItem) bool { return i.BookingID == bookingID })
	maps.DeleteFunc(m.tours, func(_ int64, i TourItem) bool { return i.BookingID == bookingID })
	maps.DeleteFunc(m.transfers, func(_ int64, i TransferItem) bool { return i.BookingID == bookingID })
	maps.DeleteFunc(m.flights, func(_ int64, i FlightItem) bool { return i.BookingID == bookingID })
	maps.DeleteFunc(m.entranceFees, func(_ int64, i EntranceFeeItem) bool { return i.BookingID == bookingID })
	return nil
}

func (m *memRepo) ListPassengers(_ context.Context, bookingID int64) ([]Passenger, error) {
	return sortedValues(m.passengers, func(p Passenger) bool { return p.BookingID == bookingID }), nil
}

func (m *memRepo) GetPassenger(_ context.Context, id int64) (*Passenger, error) {
	p, ok := m.passengers[id]
	if !ok {
		return nil, ErrPassengerNotFound
	}
	return &p, nil
}

func (m *memRepo) InsertPassenger(_ context.Context, p Passenger) (int64, error) {
	if m.failPassengerInsert {
		return 0, errors.New("passengers table unavailable")
	}
	return insertItem(m, m.passengers, p, func(p *Passenger, id int64) { p.ID = id })
}

func (m *memRepo) UpdatePassenger(_ context.Context, p Passenger) error {
	if _, ok := m.passengers[p.ID]; !ok {
		return ErrPassengerNotFound
	}
	m.passengers[p.ID] = p
	return nil
}

func (m *memRepo) DeletePassenger(_ context.Context, id int64) error {
	if _, ok := m.passengers[id]; !ok {
		return ErrPassengerNotFound
	}
	delete(m.passengers, id)
	return nil
}
