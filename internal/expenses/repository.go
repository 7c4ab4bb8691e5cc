package expenses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-tours/internal/platform/db"
	"github.com/odyssey-erp/odyssey-tours/internal/platform/httpx"
)

var ErrNotFound = fmt.Errorf("expense %w", httpx.ErrNotFound)

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]Expense, error)
	Get(ctx context.Context, id int64) (*Expense, error)
	Create(ctx context.Context, e Expense) (int64, error)
	Update(ctx context.Context, e Expense) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db db.DBTX
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const expenseColumns = `id, expense_date, category, description, COALESCE(vendor, ''), amount, currency,
	base_amount, base_currency, COALESCE(notes, ''), COALESCE(created_by, 0), created_at, updated_at`

func scanExpense(row pgx.Row) (Expense, error) {
	var e Expense
	err := row.Scan(&e.ID, &e.ExpenseDate, &e.Category, &e.Description, &e.Vendor, &e.Amount, &e.Currency,
		&e.BaseAmount, &e.BaseCurrency, &e.Notes, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Expense, error) {
	var conditions []string
	var args []any
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("expense_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("expense_date <= $%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	query := `SELECT ` + expenseColumns + ` FROM operational_expenses`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY expense_date DESC, id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Expense, error) {
	e, err := scanExpense(r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM operational_expenses WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *repository) Create(ctx context.Context, e Expense) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO operational_expenses
		(expense_date, category, description, vendor, amount, currency, base_amount, base_currency, notes,
		 created_by, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, 0), NOW(), NOW())
		RETURNING id`,
		e.ExpenseDate, e.Category, e.Description, e.Vendor, e.Amount, e.Currency, e.BaseAmount, e.BaseCurrency,
		e.Notes, e.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, e Expense) error {
	tag, err := r.db.Exec(ctx, `UPDATE operational_expenses SET expense_date = $2, category = $3,
		description = $4, vendor = NULLIF($5, ''), amount = $6, currency = $7, base_amount = $8,
		base_currency = $9, notes = NULLIF($10, ''), updated_at = NOW() WHERE id = $1`,
		e.ID, e.ExpenseDate, e.Category, e.Description, e.Vendor, e.Amount, e.Currency, e.BaseAmount,
		e.BaseCurrency, e.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM operational_expenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
