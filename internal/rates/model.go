package rates

import (
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

// Period is an inclusive range of calendar dates.
type Period struct {
	ValidFrom shared.Date `json:"valid_from"`
	ValidTo   shared.Date `json:"valid_to"`
}

// Contains reports whether day falls inside the period, ignoring time of day.
func (p Period) Contains(day time.Time) bool {
	d := dayOf(day)
	return !d.Before(dayOf(p.ValidFrom.Time)) && !d.After(dayOf(p.ValidTo.Time))
}

// Overlaps reports whether two periods share at least one day.
func (p Period) Overlaps(o Period) bool {
	return !dayOf(p.ValidFrom.Time).After(dayOf(o.ValidTo.Time)) && !dayOf(o.ValidFrom.Time).After(dayOf(p.ValidTo.Time))
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ScopeKey identifies the entity a rate is priced for.
type ScopeKey string

// HotelScope scopes hotel rates to a hotel.
func HotelScope(hotelID int64) ScopeKey {
	return ScopeKey("hotel:" + strconv.FormatInt(hotelID, 10))
}

// VehicleScope scopes vehicle rates to a city and vehicle type.
func VehicleScope(city, vehicleType string) ScopeKey {
	return ScopeKey("vehicle:" + normalize(city) + ":" + normalize(vehicleType))
}

// TourScope scopes tour rates to a tour run by a supplier.
func TourScope(tourID, supplierID int64) ScopeKey {
	return ScopeKey("tour:" + strconv.FormatInt(tourID, 10) + ":" + strconv.FormatInt(supplierID, 10))
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Rate is implemented by every seasonal rate record.
type Rate interface {
	Scope() ScopeKey
	Validity() Period
}

// RoomType selects the hotel pricing formula.
type RoomType string

const (
	RoomSingle RoomType = "SINGLE"
	RoomDouble RoomType = "DOUBLE"
	RoomTriple RoomType = "TRIPLE"
)

// TransferType selects the vehicle rate price column.
type TransferType string

const (
	TransferAirport   TransferType = "airport"
	TransferIntercity TransferType = "intercity"
	TransferHourly    TransferType = "hourly"
)

// Valid reports whether t is a known transfer type.
func (t TransferType) Valid() bool {
	switch t {
	case TransferAirport, TransferIntercity, TransferHourly:
		return true
	}
	return false
}

// HotelRate is a per-person seasonal price for a hotel.
type HotelRate struct {
	ID                    int64     `json:"id"`
	HotelID               int64     `json:"hotel_id"`
	SeasonName            string    `json:"season_name"`
	Period
	PricePerPersonDouble  float64   `json:"price_per_person_double"`
	PriceSingleSupplement float64   `json:"price_single_supplement"`
	PricePerPersonTriple  float64   `json:"price_per_person_triple"`
	Currency              string    `json:"currency"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (r HotelRate) Scope() ScopeKey  { return HotelScope(r.HotelID) }
func (r HotelRate) Validity() Period { return r.Period }

// VehicleRate prices transfers for a vehicle type in a city.
type VehicleRate struct {
	ID             int64     `json:"id"`
	SupplierID     int64     `json:"supplier_id"`
	City           string    `json:"city"`
	VehicleType    string    `json:"vehicle_type"`
	SeasonName     string    `json:"season_name"`
	Period
	AirportPrice   float64   `json:"price_airport"`
	IntercityPrice float64   `json:"price_intercity"`
	HourlyPrice    float64   `json:"price_hourly"`
	Currency       string    `json:"currency"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (r VehicleRate) Scope() ScopeKey  { return VehicleScope(r.City, r.VehicleType) }
func (r VehicleRate) Validity() Period { return r.Period }

// TourRate prices a supplier-operated tour per person for a pax tier.
// MaxPax of zero means the tier has no upper bound.
type TourRate struct {
	ID             int64     `json:"id"`
	TourID         int64     `json:"tour_id"`
	SupplierID     int64     `json:"supplier_id"`
	SeasonName     string    `json:"season_name"`
	Period
	MinPax         int       `json:"min_pax"`
	MaxPax         int       `json:"max_pax"`
	PricePerPerson float64   `json:"price_per_person"`
	Currency       string    `json:"currency"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (r TourRate) Scope() ScopeKey  { return TourScope(r.TourID, r.SupplierID) }
func (r TourRate) Validity() Period { return r.Period }

// CoversPax reports whether the tier applies to a group of pax people.
func (r TourRate) CoversPax(pax int) bool {
	if pax < r.MinPax {
		return false
	}
	return r.MaxPax == 0 || pax <= r.MaxPax
}
