package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-tours/internal/platform/db"
)

// AmountRow is a grouped sum in a single currency.
type AmountRow struct {
	Period   string
	Key      string
	Label    string
	Currency string
	Count    int
	Sell     float64
	Cost     float64
}

// CashRow is money in and out in a single currency.
type CashRow struct {
	Period   string
	Currency string
	In       float64
	Out      float64
}

// BalanceRow carries what a booking was sold for and what has been settled
// on both sides, in the booking currency.
type BalanceRow struct {
	BookingID    int64
	Reference    string
	ClientName   string
	StartDate    time.Time
	Currency     string
	TotalSell    float64
	TotalCost    float64
	Received     float64
	SupplierPaid float64
}

// Repository runs the aggregate queries behind every report. Amounts are not
// converted; rows keep their own currency.
type Repository interface {
	Revenue(ctx context.Context, start, end time.Time) ([]AmountRow, error)
	Expenses(ctx context.Context, start, end time.Time) ([]AmountRow, error)
	CashMovements(ctx context.Context, start, end time.Time) ([]CashRow, error)
	CashBefore(ctx context.Context, start time.Time) ([]CashRow, error)
	Sales(ctx context.Context, dim Dimension, start, end time.Time) ([]AmountRow, error)
	Balances(ctx context.Context, asOf time.Time) ([]BalanceRow, error)
}

type repository struct {
	db db.DBTX
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) Revenue(ctx context.Context, start, end time.Time) ([]AmountRow, error) {
	return r.amounts(ctx, `SELECT to_char(start_date, 'YYYY-MM'), '', '', currency, COUNT(*),
		SUM(total_sell_price), SUM(total_cost_price)
		FROM bookings
		WHERE status <> 'cancelled' AND start_date BETWEEN $1 AND $2
		GROUP BY 1, 4 ORDER BY 1, 4`, start, end)
}

func (r *repository) Expenses(ctx context.Context, start, end time.Time) ([]AmountRow, error) {
	return r.amounts(ctx, `SELECT to_char(expense_date, 'YYYY-MM'), '', '', base_currency, COUNT(*),
		SUM(base_amount), 0::numeric
		FROM operational_expenses
		WHERE expense_date BETWEEN $1 AND $2
		GROUP BY 1, 4 ORDER BY 1, 4`, start, end)
}

// Cash out covers supplier payments and operating expenses.
const cashMovementsQuery = `SELECT %s, currency, SUM(cash_in), SUM(cash_out) FROM (
		SELECT paid_at AS on_date, currency, amount AS cash_in, 0::numeric AS cash_out FROM client_payments
		UNION ALL
		SELECT paid_at, currency, 0::numeric, amount FROM supplier_payments
		UNION ALL
		SELECT expense_date, base_currency, 0::numeric, base_amount FROM operational_expenses
	) m
	WHERE %s
	GROUP BY 1, 2 ORDER BY 1, 2`

func (r *repository) CashMovements(ctx context.Context, start, end time.Time) ([]CashRow, error) {
	query := fmt.Sprintf(cashMovementsQuery, "to_char(on_date, 'YYYY-MM')", "on_date BETWEEN $1 AND $2")
	return r.cash(ctx, query, start, end)
}

func (r *repository) CashBefore(ctx context.Context, start time.Time) ([]CashRow, error) {
	query := fmt.Sprintf(cashMovementsQuery, "''", "on_date < $1")
	return r.cash(ctx, query, start)
}

var serviceTables = []struct {
	key, table, cost string
}{
	{"hotel", "booking_hotels", "total_cost"},
	{"tour", "booking_tours", "total_cost"},
	{"transfer", "booking_transfers", "total_cost"},
	{"flight", "booking_flights", "cost_price"},
	{"entrance_fee", "booking_entrance_fees", "total_cost"},
}

func salesQuery(dim Dimension) (string, error) {
	switch dim {
	case ByClient:
		return `SELECT '', COALESCE(b.client_id::text, ''), COALESCE(c.name, ''), b.currency, COUNT(*),
			SUM(b.total_sell_price), SUM(b.total_cost_price)
			FROM bookings b LEFT JOIN clients c ON c.id = b.client_id
			WHERE b.status <> 'cancelled' AND b.start_date BETWEEN $1 AND $2
			GROUP BY 2, 3, 4 ORDER BY 2, 4`, nil
	case ByStatus:
		return `SELECT '', status, status, currency, COUNT(*), SUM(total_sell_price), SUM(total_cost_price)
			FROM bookings WHERE start_date BETWEEN $1 AND $2
			GROUP BY 2, 4 ORDER BY 2, 4`, nil
	case ByService:
		query := ""
		for i, t := range serviceTables {
			if i > 0 {
				query += "\nUNION ALL\n"
			}
			query += fmt.Sprintf(`SELECT '', '%s', '', b.currency, COUNT(*), SUM(l.sell_price), SUM(l.%s)
			FROM %s l JOIN bookings b ON b.id = l.booking_id
			WHERE b.status <> 'cancelled' AND b.start_date BETWEEN $1 AND $2
			GROUP BY b.currency`, t.key, t.cost, t.table)
		}
		return query, nil
	default:
		return "", fmt.Errorf("unknown sales dimension %q", dim)
	}
}

func (r *repository) Sales(ctx context.Context, dim Dimension, start, end time.Time) ([]AmountRow, error) {
	query, err := salesQuery(dim)
	if err != nil {
		return nil, err
	}
	return r.amounts(ctx, query, start, end)
}

func (r *repository) Balances(ctx context.Context, asOf time.Time) ([]BalanceRow, error) {
	rows, err := r.db.Query(ctx, `SELECT b.id, b.reference, COALESCE(c.name, ''), b.start_date, b.currency,
		b.total_sell_price, b.total_cost_price, COALESCE(cp.paid, 0), COALESCE(sp.paid, 0)
		FROM bookings b
		LEFT JOIN clients c ON c.id = b.client_id
		LEFT JOIN (
			SELECT booking_id, SUM(booking_amount) AS paid FROM client_payments
			WHERE paid_at <= $1 GROUP BY booking_id
		) cp ON cp.booking_id = b.id
		LEFT JOIN (
			SELECT booking_id, SUM(booking_amount) AS paid FROM supplier_payments
			WHERE paid_at <= $1 GROUP BY booking_id
		) sp ON sp.booking_id = b.id
		WHERE b.status <> 'cancelled' AND b.created_at::date <= $1
		ORDER BY b.start_date, b.id`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BalanceRow
	for rows.Next() {
		var row BalanceRow
		var sell, cost, received, paid pgtype.Numeric
		if err := rows.Scan(&row.BookingID, &row.Reference, &row.ClientName, &row.StartDate, &row.Currency,
			&sell, &cost, &received, &paid); err != nil {
			return nil, err
		}
		row.TotalSell = numericToFloat64(sell)
		row.TotalCost = numericToFloat64(cost)
		row.Received = numericToFloat64(received)
		row.SupplierPaid = numericToFloat64(paid)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repository) amounts(ctx context.Context, query string, args ...any) ([]AmountRow, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AmountRow, error) {
		var out AmountRow
		var sell, cost pgtype.Numeric
		if err := row.Scan(&out.Period, &out.Key, &out.Label, &out.Currency, &out.Count, &sell, &cost); err != nil {
			return AmountRow{}, err
		}
		out.Sell = numericToFloat64(sell)
		out.Cost = numericToFloat64(cost)
		return out, nil
	})
}

func (r *repository) cash(ctx context.Context, query string, args ...any) ([]CashRow, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (CashRow, error) {
		var out CashRow
		var in, outAmount pgtype.Numeric
		if err := row.Scan(&out.Period, &out.Currency, &in, &outAmount); err != nil {
			return CashRow{}, err
		}
		out.In = numericToFloat64(in)
		out.Out = numericToFloat64(outAmount)
		return out, nil
	})
}

func numericToFloat64(n pgtype.Numeric) float64 {
	if !n.Valid {
		return 0
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return 0
	}
	return f.Float64
}
