package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-tours/internal/bookings"
	"github.com/odyssey-erp/odyssey-tours/internal/platform/db"
	"github.com/odyssey-erp/odyssey-tours/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

var (
	ErrNotFound         = fmt.Errorf("payment %w", httpx.ErrNotFound)
	ErrBookingNotFound  = fmt.Errorf("booking %w", httpx.ErrNotFound)
	ErrUnknownReference = fmt.Errorf("unknown supplier: %w", httpx.ErrValidation)
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Audit() shared.AuditRecorder

	BookingForUpdate(ctx context.Context, id int64) (BookingRef, error)
	SetReceived(ctx context.Context, bookingID int64, amount float64, status bookings.PaymentStatus) error
	SumReceived(ctx context.Context, bookingID int64) (float64, error)

	Insert(ctx context.Context, p Payment) (int64, error)
	Get(ctx context.Context, kind Kind, id int64) (*Payment, error)
	List(ctx context.Context, kind Kind, filter ListFilter) ([]Payment, error)
	Delete(ctx context.Context, kind Kind, id int64) error
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

func (r *repository) BookingForUpdate(ctx context.Context, id int64) (BookingRef, error) {
	var b BookingRef
	err := r.db.QueryRow(ctx, `SELECT id, currency, total_sell_price, amount_received
		FROM bookings WHERE id = $1 FOR UPDATE`, id).Scan(&b.ID, &b.Currency, &b.TotalSellPrice, &b.AmountReceived)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BookingRef{}, ErrBookingNotFound
		}
		return BookingRef{}, err
	}
	return b, nil
}

func (r *repository) SetReceived(ctx context.Context, bookingID int64, amount float64, status bookings.PaymentStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE bookings SET amount_received = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $1`, bookingID, amount, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (r *repository) SumReceived(ctx context.Context, bookingID int64) (float64, error) {
	var sum pgtype.Numeric
	if err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(booking_amount), 0) FROM client_payments
		WHERE booking_id = $1`, bookingID).Scan(&sum); err != nil {
		return 0, err
	}
	return numericToFloat64(sum), nil
}

func (r *repository) Insert(ctx context.Context, p Payment) (int64, error) {
	var createdBy pgtype.Int8
	if p.CreatedBy > 0 {
		createdBy = pgtype.Int8{Int64: p.CreatedBy, Valid: true}
	}
	var (
		query string
		args  []any
	)
	switch p.Kind {
	case KindSupplier:
		query = `INSERT INTO supplier_payments
			(number, booking_id, supplier_id, amount, currency, booking_amount, method, paid_at, reference, notes, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), $11, NOW()) RETURNING id`
		args = []any{p.Number, p.BookingID, p.SupplierID, p.Amount, p.Currency, p.BookingAmount, p.Method,
			p.PaidAt, p.Reference, p.Notes, createdBy}
	default:
		query = `INSERT INTO client_payments
			(number, booking_id, amount, currency, booking_amount, method, paid_at, reference, notes, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10, NOW()) RETURNING id`
		args = []any{p.Number, p.BookingID, p.Amount, p.Currency, p.BookingAmount, p.Method,
			p.PaidAt, p.Reference, p.Notes, createdBy}
	}
	var id int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if db.IsForeignKeyViolation(err) {
			return 0, ErrUnknownReference
		}
		return 0, err
	}
	return id, nil
}

func selectColumns(kind Kind) string {
	supplier := "NULL::bigint"
	if kind == KindSupplier {
		supplier = "supplier_id"
	}
	return `id, number, booking_id, ` + supplier + `, amount, currency, booking_amount, method, paid_at,
		COALESCE(reference, ''), COALESCE(notes, ''), COALESCE(created_by, 0), created_at FROM ` + kind.table()
}

func scanPayment(kind Kind, row pgx.Row) (Payment, error) {
	p := Payment{Kind: kind}
	var amount, bookingAmount pgtype.Numeric
	err := row.Scan(&p.ID, &p.Number, &p.BookingID, &p.SupplierID, &amount, &p.Currency, &bookingAmount,
		&p.Method, &p.PaidAt, &p.Reference, &p.Notes, &p.CreatedBy, &p.CreatedAt)
	p.Amount = numericToFloat64(amount)
	p.BookingAmount = numericToFloat64(bookingAmount)
	return p, err
}

func (r *repository) Get(ctx context.Context, kind Kind, id int64) (*Payment, error) {
	p, err := scanPayment(kind, r.db.QueryRow(ctx, `SELECT `+selectColumns(kind)+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, kind Kind, filter ListFilter) ([]Payment, error) {
	var conditions []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if filter.BookingID != nil {
		add("booking_id = $%d", *filter.BookingID)
	}
	if filter.SupplierID != nil && kind == KindSupplier {
		add("supplier_id = $%d", *filter.SupplierID)
	}
	if filter.From != nil {
		add("paid_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("paid_at <= $%d", *filter.To)
	}
	query := `SELECT ` + selectColumns(kind)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY paid_at DESC, id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		p, err := scanPayment(kind, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) Delete(ctx context.Context, kind Kind, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM "+kind.table()+" WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func numericToFloat64(n pgtype.Numeric) float64 {
	if !n.Valid {
		return 0
	}
	f, _ := n.Float64Value()
	return f.Float64
}
