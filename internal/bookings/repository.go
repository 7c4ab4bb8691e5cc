package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-tours/internal/platform/db"
	"github.com/odyssey-erp/odyssey-tours/internal/pricing"
	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

// LineKind names a line item table.
type LineKind string

const (
	KindHotel       LineKind = "booking_hotels"
	KindTour        LineKind = "booking_tours"
	KindTransfer    LineKind = "booking_transfers"
	KindFlight      LineKind = "booking_flights"
	KindEntranceFee LineKind = "booking_entrance_fees"
)

func lineKinds() []LineKind {
	return []LineKind{KindHotel, KindTour, KindTransfer, KindFlight, KindEntranceFee}
}

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Audit() shared.AuditRecorder
	Idempotency() shared.IdempotencyGuard

	Create(ctx context.Context, b Booking) (int64, error)
	Get(ctx context.Context, id int64) (*Booking, error)
	GetForUpdate(ctx context.Context, id int64) (*Booking, error)
	LoadDetails(ctx context.Context, b *Booking) error
	List(ctx context.Context, filter ListFilter) ([]Booking, int, error)
	UpdateHeader(ctx context.Context, b Booking) error
	UpdateTotals(ctx context.Context, id int64, totals pricing.Totals, status PaymentStatus) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	HasPayments(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error

	InsertHotel(ctx context.Context, item HotelItem) (int64, error)
	UpdateHotel(ctx context.Context, item HotelItem) error
	InsertTour(ctx context.Context, item TourItem) (int64, error)
	UpdateTour(ctx context.Context, item TourItem) error
	InsertTransfer(ctx context.Context, item TransferItem) (int64, error)
	UpdateTransfer(ctx context.Context, item TransferItem) error
	InsertFlight(ctx context.Context, item FlightItem) (int64, error)
	UpdateFlight(ctx context.Context, item FlightItem) error
	InsertEntranceFee(ctx context.Context, item EntranceFeeItem) (int64, error)
	UpdateEntranceFee(ctx context.Context, item EntranceFeeItem) error
	LineBooking(ctx context.Context, kind LineKind, id int64) (int64, error)
	DeleteLine(ctx context.Context, kind LineKind, id int64) error
	DeleteLines(ctx context.Context, bookingID int64) error

	ListPassengers(ctx context.Context, bookingID int64) ([]Passenger, error)
	GetPassenger(ctx context.Context, id int64) (*Passenger, error)
	InsertPassenger(ctx context.Context, p Passenger) (int64, error)
	UpdatePassenger(ctx context.Context, p Passenger) error
	DeletePassenger(ctx context.Context, id int64) error
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) Audit() shared.AuditRecorder {
	return shared.NewAuditLogger(r.db)
}

func (r *repository) Idempotency() shared.IdempotencyGuard {
	return shared.NewIdempotencyStore(r.db)
}

const bookingColumns = `b.id, b.reference, b.client_id, COALESCE(c.name, ''), b.pax_count, b.start_date, b.end_date,
	b.status, b.currency, b.total_sell_price, b.total_cost_price, b.gross_profit, b.amount_received,
	b.payment_status, COALESCE(b.notes, ''), COALESCE(b.created_by, 0), b.created_at, b.updated_at`

func scanBooking(row pgx.Row) (Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.Reference, &b.ClientID, &b.ClientName, &b.PaxCount, &b.StartDate, &b.EndDate,
		&b.Status, &b.Currency, &b.TotalSellPrice, &b.TotalCostPrice, &b.GrossProfit, &b.AmountReceived,
		&b.PaymentStatus, &b.Notes, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (r *repository) Create(ctx context.Context, b Booking) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO bookings
		(reference, client_id, pax_count, start_date, end_date, status, currency, total_sell_price,
		 total_cost_price, gross_profit, amount_received, payment_status, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, NULLIF($12, ''), NULLIF($13, 0), NOW(), NOW())
		RETURNING id`,
		b.Reference, b.ClientID, b.PaxCount, b.StartDate, b.EndDate, b.Status, b.Currency, b.TotalSellPrice,
		b.TotalCostPrice, b.GrossProfit, b.PaymentStatus, b.Notes, b.CreatedBy).Scan(&id)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return id, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Booking, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate locks the booking row until the surrounding transaction ends.
func (r *repository) GetForUpdate(ctx context.Context, id int64) (*Booking, error) {
	return r.get(ctx, id, " FOR UPDATE OF b")
}

func (r *repository) get(ctx context.Context, id int64, suffix string) (*Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+`
		FROM bookings b LEFT JOIN clients c ON c.id = b.client_id WHERE b.id = $1`+suffix, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) LoadDetails(ctx context.Context, b *Booking) error {
	var err error
	if b.Hotels, err = r.listHotels(ctx, b.ID); err != nil {
		return fmt.Errorf("load hotels: %w", err)
	}
	if b.Tours, err = r.listTours(ctx, b.ID); err != nil {
		return fmt.Errorf("load tours: %w", err)
	}
	if b.Transfers, err = r.listTransfers(ctx, b.ID); err != nil {
		return fmt.Errorf("load transfers: %w", err)
	}
	if b.Flights, err = r.listFlights(ctx, b.ID); err != nil {
		return fmt.Errorf("load flights: %w", err)
	}
	if b.EntranceFees, err = r.listEntranceFees(ctx, b.ID); err != nil {
		return fmt.Errorf("load entrance fees: %w", err)
	}
	if b.Passengers, err = r.ListPassengers(ctx, b.ID); err != nil {
		return fmt.Errorf("load passengers: %w", err)
	}
	return nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Booking, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("b.status = $%d", argPos))
		args = append(args, *filter.Status)
		argPos++
	}
	if filter.ClientID != nil {
		conditions = append(conditions, fmt.Sprintf("b.client_id = $%d", argPos))
		args = append(args, *filter.ClientID)
		argPos++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("b.start_date >= $%d", argPos))
		args = append(args, *filter.From)
		argPos++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("b.start_date <= $%d", argPos))
		args = append(args, *filter.To)
		argPos++
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		conditions = append(conditions, fmt.Sprintf("(b.reference ILIKE $%d OR c.name ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+s+"%")
		argPos++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM bookings b LEFT JOIN clients c ON c.id = b.client_id ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	query := fmt.Sprintf(`SELECT %s FROM bookings b LEFT JOIN clients c ON c.id = b.client_id %s
		ORDER BY b.start_date DESC, b.id DESC LIMIT $%d OFFSET $%d`, bookingColumns, where, argPos, argPos+1)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func (r *repository) UpdateHeader(ctx context.Context, b Booking) error {
	tag, err := r.db.Exec(ctx, `UPDATE bookings SET client_id = $2, pax_count = $3, start_date = $4, end_date = $5,
		currency = $6, notes = NULLIF($7, ''), total_sell_price = $8, total_cost_price = $9, gross_profit = $10,
		payment_status = $11, updated_at = NOW() WHERE id = $1`,
		b.ID, b.ClientID, b.PaxCount, b.StartDate, b.EndDate, b.Currency, b.Notes,
		b.TotalSellPrice, b.TotalCostPrice, b.GrossProfit, b.PaymentStatus)
	if err != nil {
		return mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateTotals(ctx context.Context, id int64, totals pricing.Totals, status PaymentStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE bookings SET total_sell_price = $2, total_cost_price = $3, gross_profit = $4,
		payment_status = $5, updated_at = NOW() WHERE id = $1`,
		id, totals.TotalSell, totals.TotalCost, totals.GrossProfit, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// HasPayments reports whether any client or supplier payment references the booking.
func (r *repository) HasPayments(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM client_payments WHERE booking_id = $1)
		OR EXISTS (SELECT 1 FROM supplier_payments WHERE booking_id = $1)`, id).Scan(&exists)
	return exists, err
}

// Delete removes the booking and everything it owns.
func (r *repository) Delete(ctx context.Context, id int64) error {
	if err := r.DeleteLines(ctx, id); err != nil {
		return err
	}
	for _, table := range []string{"passengers", "client_payments", "supplier_payments"} {
		if _, err := r.db.Exec(ctx, "DELETE FROM "+table+" WHERE booking_id = $1", id); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) LineBooking(ctx context.Context, kind LineKind, id int64) (int64, error) {
	var bookingID int64
	err := r.db.QueryRow(ctx, "SELECT booking_id FROM "+string(kind)+" WHERE id = $1", id).Scan(&bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrLineNotFound
		}
		return 0, err
	}
	return bookingID, nil
}

func (r *repository) DeleteLine(ctx context.Context, kind LineKind, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM "+string(kind)+" WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *repository) DeleteLines(ctx context.Context, bookingID int64) error {
	for _, kind := range lineKinds() {
		if _, err := r.db.Exec(ctx, "DELETE FROM "+string(kind)+" WHERE booking_id = $1", bookingID); err != nil {
			return fmt.Errorf("delete %s: %w", kind, err)
		}
	}
	return nil
}

func execUpdate(ctx context.Context, conn db.DBTX, query string, args ...any) error {
	tag, err := conn.Exec(ctx, query, args...)
	if err != nil {
		return mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func mapWriteErr(err error) error {
	switch {
	case db.IsUniqueViolation(err):
		return ErrDuplicate
	case db.IsForeignKeyViolation(err):
		return ErrUnknownReference
	}
	return err
}
