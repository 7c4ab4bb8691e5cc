package rates

import "github.com/odyssey-erp/odyssey-tours/internal/shared"

type HotelRateRequest struct {
	SeasonName            string      `json:"season_name" validate:"required,max=100"`
	ValidFrom             shared.Date `json:"valid_from" validate:"required"`
	ValidTo               shared.Date `json:"valid_to" validate:"required"`
	PricePerPersonDouble  float64     `json:"price_per_person_double" validate:"gte=0"`
	PriceSingleSupplement float64     `json:"price_single_supplement" validate:"gte=0"`
	PricePerPersonTriple  float64     `json:"price_per_person_triple" validate:"gte=0"`
	Currency              string      `json:"currency" validate:"required,len=3"`
}

type VehicleRateRequest struct {
	SupplierID     int64       `json:"supplier_id" validate:"required,gt=0"`
	City           string      `json:"city" validate:"required,max=100"`
	VehicleType    string      `json:"vehicle_type" validate:"required,max=50"`
	SeasonName     string      `json:"season_name" validate:"required,max=100"`
	ValidFrom      shared.Date `json:"valid_from" validate:"required"`
	ValidTo        shared.Date `json:"valid_to" validate:"required"`
	AirportPrice   float64     `json:"price_airport" validate:"gte=0"`
	IntercityPrice float64     `json:"price_intercity" validate:"gte=0"`
	HourlyPrice    float64     `json:"price_hourly" validate:"gte=0"`
	Currency       string      `json:"currency" validate:"required,len=3"`
}

type TourRateRequest struct {
	TourID         int64       `json:"tour_id" validate:"required,gt=0"`
	SupplierID     int64       `json:"supplier_id" validate:"required,gt=0"`
	SeasonName     string      `json:"season_name" validate:"required,max=100"`
	ValidFrom      shared.Date `json:"valid_from" validate:"required"`
	ValidTo        shared.Date `json:"valid_to" validate:"required"`
	MinPax         int         `json:"min_pax" validate:"gte=0"`
	MaxPax         int         `json:"max_pax" validate:"gte=0"`
	PricePerPerson float64     `json:"price_per_person" validate:"gte=0"`
	Currency       string      `json:"currency" validate:"required,len=3"`
}

type VehicleRateFilter struct {
	City        string
	VehicleType string
	SupplierID  *int64
}

type TourRateFilter struct {
	TourID     *int64
	SupplierID *int64
}

// QuoteKind selects which rate sheet a quote is priced from.
type QuoteKind string

const (
	QuoteHotel    QuoteKind = "hotel"
	QuoteTransfer QuoteKind = "transfer"
	QuoteTour     QuoteKind = "tour"
)

type QuoteRequest struct {
	Kind         QuoteKind    `json:"kind" validate:"required,oneof=hotel transfer tour"`
	Date         shared.Date  `json:"date" validate:"required"`
	HotelID      int64        `json:"hotel_id,omitempty"`
	RoomType     RoomType     `json:"room_type,omitempty"`
	City         string       `json:"city,omitempty"`
	VehicleType  string       `json:"vehicle_type,omitempty"`
	TransferType TransferType `json:"transfer_type,omitempty"`
	TourID       int64        `json:"tour_id,omitempty"`
	SupplierID   int64        `json:"supplier_id,omitempty"`
	Pax          int          `json:"pax,omitempty"`
}

// Quote is the outcome of a rate lookup. Found is false when the caller must
// fall back to a manually entered price.
type Quote struct {
	Kind       QuoteKind `json:"kind"`
	Found      bool      `json:"found"`
	UnitPrice  float64   `json:"unit_price"`
	RateID     int64     `json:"rate_id,omitempty"`
	SeasonName string    `json:"season_name,omitempty"`
	Currency   string    `json:"currency,omitempty"`
}
