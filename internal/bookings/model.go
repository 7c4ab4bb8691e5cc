package bookings

import (
	"time"

	"github.com/odyssey-erp/odyssey-tours/internal/pricing"
	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

// Status is the commercial state of a booking. Any status may follow any other.
type Status string

const (
	StatusInquiry   Status = "inquiry"
	StatusQuoted    Status = "quoted"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusInquiry, StatusQuoted, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// PaymentStatus summarises client payments received against the sell price.
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// DerivePaymentStatus compares the amount received with the total sell price.
func DerivePaymentStatus(received, totalSell float64) PaymentStatus {
	switch {
	case received <= 0:
		return PaymentUnpaid
	case received+0.005 >= totalSell:
		return PaymentPaid
	default:
		return PaymentPartial
	}
}

type Booking struct {
	ID             int64         `json:"id"`
	Reference      string        `json:"reference"`
	ClientID       int64         `json:"client_id"`
	ClientName     string        `json:"client_name,omitempty"`
	PaxCount       int           `json:"pax_count"`
	StartDate      shared.Date   `json:"start_date"`
	EndDate        shared.Date   `json:"end_date"`
	Status         Status        `json:"status"`
	Currency       string        `json:"currency"`
	TotalSellPrice float64       `json:"total_sell_price"`
	TotalCostPrice float64       `json:"total_cost_price"`
	GrossProfit    float64       `json:"gross_profit"`
	AmountReceived float64       `json:"amount_received"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
	Notes          string        `json:"notes,omitempty"`
	CreatedBy      int64         `json:"created_by,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	Hotels       []HotelItem       `json:"hotels,omitempty"`
	Tours        []TourItem        `json:"tours,omitempty"`
	Transfers    []TransferItem    `json:"transfers,omitempty"`
	Flights      []FlightItem      `json:"flights,omitempty"`
	EntranceFees []EntranceFeeItem `json:"entrance_fees,omitempty"`
	Passengers   []Passenger       `json:"passengers,omitempty"`
}

// Totals returns the persisted money fields.
func (b Booking) Totals() pricing.Totals {
	return pricing.Totals{TotalSell: b.TotalSellPrice, TotalCost: b.TotalCostPrice, GrossProfit: b.GrossProfit}
}

func (b *Booking) applyTotals(t pricing.Totals) {
	b.TotalSellPrice = t.TotalSell
	b.TotalCostPrice = t.TotalCost
	b.GrossProfit = t.GrossProfit
	b.PaymentStatus = DerivePaymentStatus(b.AmountReceived, b.TotalSellPrice)
}

// LineItems strips persistence fields from the loaded lines.
func (b Booking) LineItems() pricing.LineItems {
	var li pricing.LineItems
	for _, h := range b.Hotels {
		li.Hotels = append(li.Hotels, h.HotelLine)
	}
	for _, t := range b.Tours {
		li.Tours = append(li.Tours, t.TourLine)
	}
	for _, t := range b.Transfers {
		li.Transfers = append(li.Transfers, t.TransferLine)
	}
	for _, f := range b.Flights {
		li.Flights = append(li.Flights, f.FlightLine)
	}
	for _, e := range b.EntranceFees {
		li.EntranceFees = append(li.EntranceFees, e.EntranceFeeLine)
	}
	return li
}

// ItemMeta holds the fields every stored line carries besides its pricing inputs.
type ItemMeta struct {
	ID        int64   `json:"id"`
	BookingID int64   `json:"booking_id"`
	RateID    *int64  `json:"rate_id,omitempty"`
	TotalCost float64 `json:"total_cost"`
	Margin    float64 `json:"margin"`
}

func metaFor(a pricing.Amounts) ItemMeta {
	return ItemMeta{TotalCost: a.Cost, Margin: a.Margin}
}

type HotelItem struct {
	ItemMeta
	pricing.HotelLine
}

type TourItem struct {
	ItemMeta
	pricing.TourLine
}

type TransferItem struct {
	ItemMeta
	pricing.TransferLine
}

type FlightItem struct {
	ItemMeta
	pricing.FlightLine
}

type EntranceFeeItem struct {
	ItemMeta
	pricing.EntranceFeeLine
}

type Passenger struct {
	ID        int64 `json:"id"`
	BookingID int64 `json:"booking_id"`
	PassengerInput
	CreatedAt time.Time `json:"created_at"`
}

type PassengerInput struct {
	FullName       string      `json:"full_name" validate:"required,max=200"`
	PassportNumber string      `json:"passport_number,omitempty" validate:"max=50"`
	Nationality    string      `json:"nationality,omitempty" validate:"max=100"`
	DateOfBirth    shared.Date `json:"date_of_birth,omitempty"`
	IsLead         bool        `json:"is_lead,omitempty"`
}
