package rates

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

var (
	ErrNotFound  = fmt.Errorf("rate %w", httpx.ErrNotFound)
	ErrDuplicate = fmt.Errorf("rate %w", httpx.ErrDuplicate)
)

type Repository interface {
	ListHotelRates(ctx context.Context, hotelID int64) ([]HotelRate, error)
	GetHotelRate(ctx context.Context, id int64) (*HotelRate, error)
	CreateHotelRate(ctx context.Context, rate HotelRate) (int64, error)
	UpdateHotelRate(ctx context.Context, rate HotelRate) error
	DeleteHotelRate(ctx context.Context, id int64) error

	ListVehicleRates(ctx context.Context, filter VehicleRateFilter) ([]VehicleRate, error)
	GetVehicleRate(ctx context.Context, id int64) (*VehicleRate, error)
	CreateVehicleRate(ctx context.Context, rate VehicleRate) (int64, error)
	UpdateVehicleRate(ctx context.Context, rate VehicleRate) error
	DeleteVehicleRate(ctx context.Context, id int64) error

	ListTourRates(ctx context.Context, filter TourRateFilter) ([]TourRate, error)
	GetTourRate(ctx context.Context, id int64) (*TourRate, error)
	CreateTourRate(ctx context.Context, rate TourRate) (int64, error)
	UpdateTourRate(ctx context.Context, rate TourRate) error
	DeleteTourRate(ctx context.Context, id int64) error
}

type repository struct {
	db db.DBTX
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

// Rates are always returned ordered by valid_from then id; lookups rely on this
// order for their first-match rule.

const hotelRateColumns = `id, hotel_id, season_name, valid_from, valid_to,
	price_per_person_double, price_single_supplement, price_per_person_triple,
	currency, created_at, updated_at`

func scanHotelRate(row pgx.Row) (HotelRate, error) {
	var r HotelRate
	err := row.Scan(&r.ID, &r.HotelID, &r.SeasonName, &r.ValidFrom, &r.ValidTo,
		&r.PricePerPersonDouble, &r.PriceSingleSupplement, &r.PricePerPersonTriple,
		&r.Currency, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (r *repository) ListHotelRates(ctx context.Context, hotelID int64) ([]HotelRate, error) {
	rows, err := r.db.Query(ctx, `SELECT `+hotelRateColumns+` FROM hotel_seasonal_rates
		WHERE hotel_id = $1 ORDER BY valid_from, id`, hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HotelRate
	for rows.Next() {
		rate, err := scanHotelRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rate)
	}
	return out, rows.Err()
}

func (r *repository) GetHotelRate(ctx context.Context, id int64) (*HotelRate, error) {
	rate, err := scanHotelRate(r.db.QueryRow(ctx, `SELECT `+hotelRateColumns+` FROM hotel_seasonal_rates WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rate, nil
}

func (r *repository) CreateHotelRate(ctx context.Context, rate HotelRate) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO hotel_seasonal_rates
		(hotel_id, season_name, valid_from, valid_to, price_per_person_double,
		 price_single_supplement, price_per_person_triple, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING id`,
		rate.HotelID, rate.SeasonName, rate.ValidFrom, rate.ValidTo, rate.PricePerPersonDouble,
		rate.PriceSingleSupplement, rate.PricePerPersonTriple, rate.Currency).Scan(&id)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return id, nil
}

func (r *repository) UpdateHotelRate(ctx context.Context, rate HotelRate) error {
	tag, err := r.db.Exec(ctx, `UPDATE hotel_seasonal_rates SET season_name = $2, valid_from = $3,
		valid_to = $4, price_per_person_double = $5, price_single_supplement = $6,
		price_per_person_triple = $7, currency = $8, updated_at = NOW() WHERE id = $1`,
		rate.ID, rate.SeasonName, rate.ValidFrom, rate.ValidTo, rate.PricePerPersonDouble,
		rate.PriceSingleSupplement, rate.PricePerPersonTriple, rate.Currency)
	if err != nil {
		return mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteHotelRate(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "hotel_seasonal_rates", id)
}

const vehicleRateColumns = `id, supplier_id, city, vehicle_type, season_name, valid_from, valid_to,
	price_airport, price_intercity, price_hourly, currency, created_at, updated_at`

func scanVehicleRate(row pgx.Row) (VehicleRate, error) {
	var r VehicleRate
	err := row.Scan(&r.ID, &r.SupplierID, &r.City, &r.VehicleType, &r.SeasonName, &r.ValidFrom, &r.ValidTo,
		&r.AirportPrice, &r.IntercityPrice, &r.HourlyPrice, &r.Currency, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (r *repository) ListVehicleRates(ctx context.Context, filter VehicleRateFilter) ([]VehicleRate, error) {
	var conditions []string
	var args []any
	if filter.City != "" {
		args = append(args, filter.City)
		conditions = append(conditions, fmt.Sprintf("LOWER(city) = LOWER($%d)", len(args)))
	}
	if filter.VehicleType != "" {
		args = append(args, filter.VehicleType)
		conditions = append(conditions, fmt.Sprintf("LOWER(vehicle_type) = LOWER($%d)", len(args)))
	}
	if filter.SupplierID != nil {
		args = append(args, *filter.SupplierID)
		conditions = append(conditions, fmt.Sprintf("supplier_id = $%d", len(args)))
	}
	query := `SELECT ` + vehicleRateColumns + ` FROM vehicle_rates`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY valid_from, id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []VehicleRate
	for rows.Next() {
		rate, err := scanVehicleRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rate)
	}
	return out, rows.Err()
}

func (r *repository) GetVehicleRate(ctx context.Context, id int64) (*VehicleRate, error) {
	rate, err := scanVehicleRate(r.db.QueryRow(ctx, `SELECT `+vehicleRateColumns+` FROM vehicle_rates WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rate, nil
}

func (r *repository) CreateVehicleRate(ctx context.Context, rate VehicleRate) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO vehicle_rates
		(supplier_id, city, vehicle_type, season_name, valid_from, valid_to,
		 price_airport, price_intercity, price_hourly, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW()) RETURNING id`,
		rate.SupplierID, rate.City, rate.VehicleType, rate.SeasonName, rate.ValidFrom, rate.ValidTo,
		rate.AirportPrice, rate.IntercityPrice, rate.HourlyPrice, rate.Currency).Scan(&id)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return id, nil
}

func (r *repository) UpdateVehicleRate(ctx context.Context, rate VehicleRate) error {
	tag, err := r.db.Exec(ctx, `UPDATE vehicle_rates SET supplier_id = $2, city = $3, vehicle_type = $4,
		season_name = $5, valid_from = $6, valid_to = $7, price_airport = $8, price_intercity = $9,
		price_hourly = $10, currency = $11, updated_at = NOW() WHERE id = $1`,
		rate.ID, rate.SupplierID, rate.City, rate.VehicleType, rate.SeasonName, rate.ValidFrom, rate.ValidTo,
		rate.AirportPrice, rate.IntercityPrice, rate.HourlyPrice, rate.Currency)
	if err != nil {
		return mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteVehicleRate(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "vehicle_rates", id)
}

const tourRateColumns = `id, tour_id, supplier_id, season_name, valid_from, valid_to,
	min_pax, max_pax, price_per_person, currency, created_at, updated_at`

func scanTourRate(row pgx.Row) (TourRate, error) {
	var r TourRate
	err := row.Scan(&r.ID, &r.TourID, &r.SupplierID, &r.SeasonName, &r.ValidFrom, &r.ValidTo,
		&r.MinPax, &r.MaxPax, &r.PricePerPerson, &r.Currency, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (r *repository) ListTourRates(ctx context.Context, filter TourRateFilter) ([]TourRate, error) {
	var conditions []string
	var args []any
	if filter.TourID != nil {
		args = append(args, *filter.TourID)
		conditions = append(conditions, fmt.Sprintf("tour_id = $%d", len(args)))
	}
	if filter.SupplierID != nil {
		args = append(args, *filter.SupplierID)
		conditions = append(conditions, fmt.Sprintf("supplier_id = $%d", len(args)))
	}
	query := `SELECT ` + tourRateColumns + ` FROM tour_rates`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY valid_from, id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TourRate
	for rows.Next() {
		rate, err := scanTourRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rate)
	}
	return out, rows.Err()
}

func (r *repository) GetTourRate(ctx context.Context, id int64) (*TourRate, error) {
	rate, err := scanTourRate(r.db.QueryRow(ctx, `SELECT `+tourRateColumns+` FROM tour_rates WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rate, nil
}

func (r *repository) CreateTourRate(ctx context.Context, rate TourRate) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO tour_rates
		(tour_id, supplier_id, season_name, valid_from, valid_to, min_pax, max_pax,
		 price_per_person, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()) RETURNING id`,
		rate.TourID, rate.SupplierID, rate.SeasonName, rate.ValidFrom, rate.ValidTo, rate.MinPax, rate.MaxPax,
		rate.PricePerPerson, rate.Currency).Scan(&id)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return id, nil
}

func (r *repository) UpdateTourRate(ctx context.Context, rate TourRate) error {
	tag, err := r.db.Exec(ctx, `UPDATE tour_rates SET tour_id = $2, supplier_id = $3, season_name = $4,
		valid_from = $5, valid_to = $6, min_pax = $7, max_pax = $8, price_per_person = $9,
		currency = $10, updated_at = NOW() WHERE id = $1`,
		rate.ID, rate.TourID, rate.SupplierID, rate.SeasonName, rate.ValidFrom, rate.ValidTo,
		rate.MinPax, rate.MaxPax, rate.PricePerPerson, rate.Currency)
	if err != nil {
		return mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) DeleteTourRate(ctx context.Context, id int64) error {
	return r.deleteByID(ctx, "tour_rates", id)
}

// table is always one of the package constants above, never user input.
func (r *repository) deleteByID(ctx context.Context, table string, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func mapWriteErr(err error) error {
	if db.IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}
