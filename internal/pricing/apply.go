package pricing

import "github.com/odyssey-erp/odyssey-tours/internal/rates"

// ApplyHotelRate sets the nightly cost from a hotel quote. A quote that found
// no rate leaves the manually entered cost untouched.
func ApplyHotelRate(l HotelLine, q rates.Quote) HotelLine {
	if q.Found {
		l.CostPerNight = q.UnitPrice
	}
	return l
}

// ApplyTransferRate prices a supplier transfer from a vehicle rate quote.
// Self-operated transfers are never overwritten.
func ApplyTransferRate(l TransferLine, q rates.Quote) TransferLine {
	if q.Found && l.OperationType == OperationSupplier {
		l.SupplierCost = q.UnitPrice
	}
	return l
}

// ApplyTourRate sets the per person cost of a supplier-operated tour.
func ApplyTourRate(l TourLine, q rates.Quote) TourLine {
	if q.Found && l.OperationType == OperationSupplier {
		l.CostPerPerson = q.UnitPrice
	}
	return l
}
