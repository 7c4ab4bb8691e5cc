package bookings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

func (r *repository) listHotels(ctx context.Context, bookingID int64) ([]HotelItem, error) {
	rows, err := r.db.Query(ctx, `SELECT id, booking_id, hotel_id, COALESCE(room_type, ''), check_in, check_out,
		nights, number_of_rooms, cost_per_night, total_cost, sell_price, margin, rate_id
		FROM booking_hotels WHERE booking_id = $1 ORDER BY check_in, id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HotelItem
	for rows.Next() {
		var h HotelItem
		if err := rows.Scan(&h.ID, &h.BookingID, &h.HotelID, &h.RoomType, &h.CheckIn, &h.CheckOut,
			&h.Nights, &h.Rooms, &h.CostPerNight, &h.TotalCost, &h.SellPrice, &h.Margin, &h.RateID); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *repository) InsertHotel(ctx context.Context, h HotelItem) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO booking_hotels
		(booking_id, hotel_id, room_type, check_in, check_out, nights, number_of_rooms, cost_per_night,
		 total_cost, sell_price, margin, rate_id)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`,
		h.BookingID, h.HotelID, h.RoomType, h.CheckIn, h.CheckOut, h.StayNights(), h.Rooms, h.CostPerNight,
		h.TotalCost, h.SellPrice, h.Margin, h.RateID).Scan(&id)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return id, nil
}

func (r *repository) UpdateHotel(ctx context.Context, h HotelItem) error {
	return execUpdate(ctx, r.db, `UPDATE booking_hotels SET hotel_id = $2, room_type = NULLIF($3, ''),
		check_in = $4, check_out = $5, nights = $6, number_of_rooms = $7, cost_per_night = $8,
		total_cost = $9, sell_price = $10, margin = $11, rate_id = $12 WHERE id = $1`,
		h.ID, h.HotelID, h.RoomType, h.CheckIn, h.CheckOut, h.StayNights(), h.Rooms, h.CostPerNight,
		h.TotalCost, h.SellPrice, h.Margin, h.RateID)
}

func (r *repository) listTours(ctx context.Context, bookingID int64) ([]TourItem, error) {
	rows, err := r.db.Query(ctx, `SELECT id, booking_id, tour_id, tour_date, operation_type, pax_count,
		supplier_id, cost_per_person, guide_cost, vehicle_cost, entrance_fees, other_costs,
		total_cost, sell_price, margin, rate_id
		FROM booking_tours WHERE booking_id = $1 ORDER BY tour_date, id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TourItem
	for rows.Next() {
		var t TourItem
		if err := rows.Scan(&t.ID, &t.BookingID, &t.TourID, &t.TourDate, &t.OperationType, &t.Pax,
			&t.SupplierID, &t.CostPerPerson, &t.GuideCost, &t.VehicleCost, &t.EntranceFees, &t.OtherCosts,
			&t.TotalCost, &t.SellPrice, &t.Margin, &t.RateID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) InsertTour(ctx context.Context, t TourItem) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO booking_tours
		(booking_id, tour_id, tour_date, operation_type, pax_count, supplier_id, cost_per_person, guide_cost,
		 vehicle_cost, entrance_fees, other_costs, total_cost, sell_price, margin, rate_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id`,
		t.BookingID, t.TourID, t.TourDate, t.OperationType, t.Pax, t.SupplierID, t.CostPerPerson, t.GuideCost,
		t.VehicleCost, t.EntranceFees, t.OtherCosts, t.TotalCost, t.SellPrice, t.Margin, t.RateID).Scan(&id)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return id, nil
}

func (r *repository) UpdateTour(ctx context.Context, t TourItem) error {
	return execUpdate(ctx, r.db, `UPDATE booking_tours SET tour_id = $2, tour_date = $3, operation_type = $4,
		pax_count = $5, supplier_id = $6, cost_per_person = $7, guide_cost = $8, vehicle_cost = $9,
		entrance_fees = $10, other_costs = $11, total_cost = $12, sell_price = $13, margin = $14, rate_id = $15
		WHERE id = $1`,
		t.ID, t.TourID, t.TourDate, t.OperationType, t.Pax, t.SupplierID, t.CostPerPerson, t.GuideCost,
		t.VehicleCost, t.EntranceFees, t.OtherCosts, t.TotalCost, t.SellPrice, t.Margin, t.RateID)
}

func (r *repository) listTransfers(ctx context.Context, bookingID int64) ([]TransferItem, error) {
	rows, err := r.db.Query(ctx, `SELECT id, booking_id, transfer_date, transfer_type, city, vehicle_type,
		operation_type, COALESCE(pickup_from, ''), COALESCE(dropoff_to, ''), supplier_id, supplier_cost,
		self_operated_cost, total_cost, sell_price, margin, rate_id
		FROM booking_transfers WHERE booking_id = $1 ORDER BY transfer_date, id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TransferItem
	for rows.Next() {
		var t TransferItem
		if err := rows.Scan(&t.ID, &t.BookingID, &t.TransferDate, &t.TransferType, &t.City, &t.VehicleType,
			&t.OperationType, &t.PickupFrom, &t.DropoffTo, &t.SupplierID, &t.SupplierCost,
			&t.SelfOperatedCost, &t.TotalCost, &t.SellPrice, &t.Margin, &t.RateID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) InsertTransfer(ctx context.Context, t TransferItem) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO booking_transfers
		(booking_id, transfer_date, transfer_type, city, vehicle_type, operation_type, pickup_from, dropoff_to,
		 supplier_id, supplier_cost, self_operated_cost, total_cost, sell_price, margin, rate_id)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		t.BookingID, t.TransferDate, t.TransferType, t.City, t.VehicleType, t.OperationType, t.PickupFrom,
		t.DropoffTo, t.SupplierID, t.SupplierCost, t.SelfOperatedCost, t.TotalCost, t.SellPrice, t.Margin,
		t.RateID).Scan(&id)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return id, nil
}

func (r *repository) UpdateTransfer(ctx context.Context, t TransferItem) error {
	return execUpdate(ctx, r.db, `UPDATE booking_transfers SET transfer_date = $2, transfer_type = $3, city = $4,
		vehicle_type = $5, operation_type = $6, pickup_from = NULLIF($7, ''), dropoff_to = NULLIF($8, ''),
		supplier_id = $9, supplier_cost = $10, self_operated_cost = $11, total_cost = $12, sell_price = $13,
		margin = $14, rate_id = $15 WHERE id = $1`,
		t.ID, t.TransferDate, t.TransferType, t.City, t.VehicleType, t.OperationType, t.PickupFrom,
		t.DropoffTo, t.SupplierID, t.SupplierCost, t.SelfOperatedCost, t.TotalCost, t.SellPrice, t.Margin,
		t.RateID)
}

func (r *repository) listFlights(ctx context.Context, bookingID int64) ([]FlightItem, error) {
	rows, err := r.db.Query(ctx, `SELECT id, booking_id, airline, flight_number, from_airport, to_airport,
		departure_date, pax_count, cost_price, sell_price, margin
		FROM booking_flights WHERE booking_id = $1 ORDER BY departure_date, id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FlightItem
	for rows.Next() {
		var f FlightItem
		if err := rows.Scan(&f.ID, &f.BookingID, &f.Airline, &f.FlightNumber, &f.FromAirport, &f.ToAirport,
			&f.DepartureDate, &f.Pax, &f.CostPrice, &f.SellPrice, &f.Margin); err != nil {
			return nil, err
		}
		f.TotalCost = f.CostPrice
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *repository) InsertFlight(ctx context.Context, f FlightItem) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO booking_flights
		(booking_id, airline, flight_number, from_airport, to_airport, departure_date, pax_count, cost_price,
		 sell_price, margin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		f.BookingID, f.Airline, f.FlightNumber, f.FromAirport, f.ToAirport, f.DepartureDate, f.Pax, f.CostPrice,
		f.SellPrice, f.Margin).Scan(&id)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return id, nil
}

func (r *repository) UpdateFlight(ctx context.Context, f FlightItem) error {
	return execUpdate(ctx, r.db, `UPDATE booking_flights SET airline = $2, flight_number = $3, from_airport = $4,
		to_airport = $5, departure_date = $6, pax_count = $7, cost_price = $8, sell_price = $9, margin = $10
		WHERE id = $1`,
		f.ID, f.Airline, f.FlightNumber, f.FromAirport, f.ToAirport, f.DepartureDate, f.Pax, f.CostPrice,
		f.SellPrice, f.Margin)
}

func (r *repository) listEntranceFees(ctx context.Context, bookingID int64) ([]EntranceFeeItem, error) {
	rows, err := r.db.Query(ctx, `SELECT id, booking_id, site_name, visit_date, adults_count, children_count,
		adult_rate, child_rate, total_cost, sell_price, margin
		FROM booking_entrance_fees WHERE booking_id = $1 ORDER BY visit_date, id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EntranceFeeItem
	for rows.Next() {
		var e EntranceFeeItem
		if err := rows.Scan(&e.ID, &e.BookingID, &e.SiteName, &e.VisitDate, &e.Adults, &e.Children,
			&e.AdultRate, &e.ChildRate, &e.TotalCost, &e.SellPrice, &e.Margin); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) InsertEntranceFee(ctx context.Context, e EntranceFeeItem) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO booking_entrance_fees
		(booking_id, site_name, visit_date, adults_count, children_count, adult_rate, child_rate,
		 total_cost, sell_price, margin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		e.BookingID, e.SiteName, e.VisitDate, e.Adults, e.Children, e.AdultRate, e.ChildRate,
		e.TotalCost, e.SellPrice, e.Margin).Scan(&id)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return id, nil
}

func (r *repository) UpdateEntranceFee(ctx context.Context, e EntranceFeeItem) error {
	return execUpdate(ctx, r.db, `UPDATE booking_entrance_fees SET site_name = $2, visit_date = $3,
		adults_count = $4, children_count = $5, adult_rate = $6, child_rate = $7, total_cost = $8,
		sell_price = $9, margin = $10 WHERE id = $1`,
		e.ID, e.SiteName, e.VisitDate, e.Adults, e.Children, e.AdultRate, e.ChildRate,
		e.TotalCost, e.SellPrice, e.Margin)
}

const passengerColumns = `id, booking_id, full_name, COALESCE(passport_number, ''), COALESCE(nationality, ''),
	date_of_birth, is_lead, created_at`

func scanPassenger(row pgx.Row) (Passenger, error) {
	var p Passenger
	err := row.Scan(&p.ID, &p.BookingID, &p.FullName, &p.PassportNumber, &p.Nationality,
		&p.DateOfBirth, &p.IsLead, &p.CreatedAt)
	return p, err
}

func (r *repository) ListPassengers(ctx context.Context, bookingID int64) ([]Passenger, error) {
	rows, err := r.db.Query(ctx, `SELECT `+passengerColumns+` FROM passengers
		WHERE booking_id = $1 ORDER BY is_lead DESC, id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Passenger
	for rows.Next() {
		p, err := scanPassenger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) GetPassenger(ctx context.Context, id int64) (*Passenger, error) {
	p, err := scanPassenger(r.db.QueryRow(ctx, `SELECT `+passengerColumns+` FROM passengers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPassengerNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) InsertPassenger(ctx context.Context, p Passenger) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO passengers
		(booking_id, full_name, passport_number, nationality, date_of_birth, is_lead, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, NOW()) RETURNING id`,
		p.BookingID, p.FullName, p.PassportNumber, p.Nationality, p.DateOfBirth, p.IsLead).Scan(&id)
	if err != nil {
		return 0, mapWriteErr(err)
	}
	return id, nil
}

func (r *repository) UpdatePassenger(ctx context.Context, p Passenger) error {
	tag, err := r.db.Exec(ctx, `UPDATE passengers SET full_name = $2, passport_number = NULLIF($3, ''),
		nationality = NULLIF($4, ''), date_of_birth = $5, is_lead = $6 WHERE id = $1`,
		p.ID, p.FullName, p.PassportNumber, p.Nationality, p.DateOfBirth, p.IsLead)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPassengerNotFound
	}
	return nil
}

func (r *repository) DeletePassenger(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM passengers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPassengerNotFound
	}
	return nil
}
