package bookings

import (
	"time"

	"github.com/odyssey-erp/odyssey-tours/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-tours/internal/pricing"
	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

// UpdateBookingRequest edits header fields. Lines replaces the stored line set
// when it carries at least one line; otherwise stored lines and totals stay.
type UpdateBookingRequest struct {
	ClientID  int64              `json:"client_id" validate:"required,gt=0"`
	PaxCount  int                `json:"pax_count" validate:"gte=1"`
	StartDate shared.Date        `json:"start_date" validate:"required"`
	EndDate   shared.Date        `json:"end_date" validate:"required"`
	Currency  string             `json:"currency" validate:"required,len=3"`
	Notes     string             `json:"notes" validate:"max=2000"`
	Lines     *pricing.LineItems `json:"lines,omitempty"`
}

type StatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=inquiry quoted confirmed cancelled completed"`
}

type ListFilter struct {
	Status   *Status
	ClientID *int64
	From     *time.Time
	To       *time.Time
	Search   string
	Page     int
	PerPage  int
}

type ListResult struct {
	Data       []Booking         `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

type HotelItemRequest struct {
	BookingID int64 `json:"booking_id" validate:"required,gt=0"`
	pricing.HotelLine
}

type TourItemRequest struct {
	BookingID int64 `json:"booking_id" validate:"required,gt=0"`
	pricing.TourLine
}

type TransferItemRequest struct {
	BookingID int64 `json:"booking_id" validate:"required,gt=0"`
	pricing.TransferLine
}

type FlightItemRequest struct {
	BookingID int64 `json:"booking_id" validate:"required,gt=0"`
	pricing.FlightLine
}

type EntranceFeeItemRequest struct {
	BookingID int64 `json:"booking_id" validate:"required,gt=0"`
	pricing.EntranceFeeLine
}

type PassengerRequest struct {
	BookingID int64 `json:"booking_id" validate:"required,gt=0"`
	PassengerInput
}

// PreviewRequest applies actions to a draft without persisting anything.
type PreviewRequest struct {
	Draft   Draft           `json:"draft"`
	Actions []ActionRequest `json:"actions"`
}

type LineAmounts struct {
	Hotels       []pricing.Amounts `json:"hotels"`
	Tours        []pricing.Amounts `json:"tours"`
	Transfers    []pricing.Amounts `json:"transfers"`
	Flights      []pricing.Amounts `json:"flights"`
	EntranceFees []pricing.Amounts `json:"entrance_fees"`
}

type PreviewResponse struct {
	Draft   Draft                      `json:"draft"`
	Lines   LineAmounts                `json:"line_amounts"`
	Totals  pricing.Totals             `json:"totals"`
	Errors  map[Step]httpx.FieldErrors `json:"errors"`
	IsValid bool                       `json:"is_valid"`
}
