// Package pricing computes line-item cost, sell and margin figures and rolls
// them up into booking totals.
package pricing

import (
	"github.com/odyssey-erp/odyssey-tours/internal/rates"
	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

// Amounts is the computed money triple of a line item. Margin is always
// Sell - Cost.
type Amounts struct {
	Cost   float64 `json:"total_cost"`
	Sell   float64 `json:"sell_price"`
	Margin float64 `json:"margin"`
}

func amounts(cost, sell float64) Amounts {
	return Amounts{Cost: cost, Sell: sell, Margin: sell - cost}
}

// OperationType tells whether a service is bought from a supplier or run in house.
type OperationType string

const (
	OperationSupplier OperationType = "supplier"
	OperationSelf     OperationType = "self"
)

// Valid reports whether o is a known operation type.
func (o OperationType) Valid() bool {
	return o == OperationSupplier || o == OperationSelf
}

// HotelLine is a hotel stay.
type HotelLine struct {
	HotelID      int64          `json:"hotel_id" validate:"required,gt=0"`
	RoomType     rates.RoomType `json:"room_type" validate:"omitempty,oneof=SINGLE DOUBLE TRIPLE"`
	CheckIn      shared.Date    `json:"check_in" validate:"required"`
	CheckOut     shared.Date    `json:"check_out" validate:"required"`
	Nights       int            `json:"nights" validate:"gte=0"`
	Rooms        int            `json:"number_of_rooms" validate:"gte=1"`
	CostPerNight float64        `json:"cost_per_night" validate:"gte=0"`
	SellPrice    float64        `json:"sell_price" validate:"gte=0"`
}

// StayNights returns Nights, or the check-in to check-out distance when Nights is unset.
func (l HotelLine) StayNights() int {
	if l.Nights > 0 {
		return l.Nights
	}
	if l.CheckIn.IsZero() || l.CheckOut.IsZero() {
		return 0
	}
	n := int(l.CheckOut.Sub(l.CheckIn.Time).Hours() / 24)
	if n < 0 {
		return 0
	}
	return n
}

// Compute returns cost_per_night * nights * rooms against the sell price.
func (l HotelLine) Compute() Amounts {
	return amounts(l.CostPerNight*float64(l.StayNights())*float64(l.Rooms), l.SellPrice)
}

// TourLine is a tour, either bought per person from a supplier or self operated.
type TourLine struct {
	TourID        int64         `json:"tour_id" validate:"required,gt=0"`
	TourDate      shared.Date   `json:"tour_date" validate:"required"`
	OperationType OperationType `json:"operation_type" validate:"required,oneof=supplier self"`
	Pax           int           `json:"pax_count" validate:"gte=0"`
	SellPrice     float64       `json:"sell_price" validate:"gte=0"`

	SupplierID    *int64  `json:"supplier_id,omitempty"`
	CostPerPerson float64 `json:"cost_per_person" validate:"gte=0"`

	GuideCost    float64 `json:"guide_cost" validate:"gte=0"`
	VehicleCost  float64 `json:"vehicle_cost" validate:"gte=0"`
	EntranceFees float64 `json:"entrance_fees" validate:"gte=0"`
	OtherCosts   float64 `json:"other_costs" validate:"gte=0"`
}

// SupplierCost is defined only for supplier-operated tours.
func (l TourLine) SupplierCost() (float64, bool) {
	if l.OperationType != OperationSupplier {
		return 0, false
	}
	return l.CostPerPerson * float64(l.Pax), true
}

// SelfOperatedCost is defined only for self-operated tours.
func (l TourLine) SelfOperatedCost() (float64, bool) {
	if l.OperationType != OperationSelf {
		return 0, false
	}
	return l.GuideCost + l.VehicleCost + l.EntranceFees + l.OtherCosts, true
}

// Compute uses the supplier cost, else the self-operated cost, else zero.
func (l TourLine) Compute() Amounts {
	return amounts(firstCost(l.SupplierCost, l.SelfOperatedCost), l.SellPrice)
}

// SwitchOperation changes the operation type and clears the fields of the
// mode being left.
func (l TourLine) SwitchOperation(op OperationType) TourLine {
	if op == l.OperationType {
		return l
	}
	l.OperationType = op
	return l.Normalize()
}

// Normalize clears the cost fields that do not belong to the line's
// operation type.
func (l TourLine) Normalize() TourLine {
	switch l.OperationType {
	case OperationSelf:
		l.SupplierID = nil
		l.CostPerPerson = 0
	case OperationSupplier:
		l.GuideCost = 0
		l.VehicleCost = 0
		l.EntranceFees = 0
		l.OtherCosts = 0
	}
	return l
}

// TransferLine is a vehicle transfer priced from a vehicle rate or run with own fleet.
type TransferLine struct {
	TransferDate  shared.Date        `json:"transfer_date" validate:"required"`
	TransferType  rates.TransferType `json:"transfer_type" validate:"required,oneof=airport intercity hourly"`
	City          string             `json:"city" validate:"required,max=100"`
	VehicleType   string             `json:"vehicle_type" validate:"required,max=50"`
	OperationType OperationType      `json:"operation_type" validate:"required,oneof=supplier self"`
	PickupFrom    string             `json:"pickup_from,omitempty" validate:"max=200"`
	DropoffTo     string             `json:"dropoff_to,omitempty" validate:"max=200"`
	SellPrice     float64            `json:"sell_price" validate:"gte=0"`

	SupplierID   *int64  `json:"supplier_id,omitempty"`
	SupplierCost float64 `json:"supplier_cost" validate:"gte=0"`

	SelfOperatedCost float64 `json:"self_operated_cost" validate:"gte=0"`
}

func (l TransferLine) supplierCost() (float64, bool) {
	return l.SupplierCost, l.OperationType == OperationSupplier
}

func (l TransferLine) selfOperatedCost() (float64, bool) {
	return l.SelfOperatedCost, l.OperationType == OperationSelf
}

// Compute uses the supplier cost, else the self-operated cost, else zero.
func (l TransferLine) Compute() Amounts {
	return amounts(firstCost(l.supplierCost, l.selfOperatedCost), l.SellPrice)
}

// FlightLine is a flight leg; cost and sell are entered by the operator.
type FlightLine struct {
	Airline       string      `json:"airline" validate:"required,max=100"`
	FlightNumber  string      `json:"flight_number" validate:"required,max=20"`
	FromAirport   string      `json:"from_airport" validate:"required,max=10"`
	ToAirport     string      `json:"to_airport" validate:"required,max=10"`
	DepartureDate shared.Date `json:"departure_date" validate:"required"`
	Pax           int         `json:"pax_count" validate:"gte=0"`
	CostPrice     float64     `json:"cost_price" validate:"gte=0"`
	SellPrice     float64     `json:"sell_price" validate:"gte=0"`
}

func (l FlightLine) Compute() Amounts {
	return amounts(l.CostPrice, l.SellPrice)
}

// EntranceFeeLine is a site admission for adults and children.
type EntranceFeeLine struct {
	SiteName  string      `json:"site_name" validate:"required,max=200"`
	VisitDate shared.Date `json:"visit_date" validate:"required"`
	Adults    int         `json:"adults_count" validate:"gte=0"`
	Children  int         `json:"children_count" validate:"gte=0"`
	AdultRate float64     `json:"adult_rate" validate:"gte=0"`
	ChildRate float64     `json:"child_rate" validate:"gte=0"`
	SellPrice float64     `json:"sell_price" validate:"gte=0"`
}

func (l EntranceFeeLine) Compute() Amounts {
	return amounts(float64(l.Adults)*l.AdultRate+float64(l.Children)*l.ChildRate, l.SellPrice)
}

func firstCost(sources ...func() (float64, bool)) float64 {
	for _, src := range sources {
		if cost, ok := src(); ok {
			return cost
		}
	}
	return 0
}
