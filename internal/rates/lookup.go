package rates

import "time"

// FindApplicable returns the first rate in input order whose scope matches and
// whose validity contains on. The boolean is false when nothing applies; callers
// then keep the manually entered price.
func FindApplicable[R Rate](list []R, scope ScopeKey, on time.Time) (R, bool) {
	for _, r := range list {
		if r.Scope() == scope && r.Validity().Contains(on) {
			return r, true
		}
	}
	var zero R
	return zero, false
}

// FindTourRate narrows tour rates to the pax tier before the date lookup.
func FindTourRate(list []TourRate, tourID, supplierID int64, on time.Time, pax int) (TourRate, bool) {
	tiered := make([]TourRate, 0, len(list))
	for _, r := range list {
		if r.CoversPax(pax) {
			tiered = append(tiered, r)
		}
	}
	return FindApplicable(tiered, TourScope(tourID, supplierID), on)
}

// PriceForRoomType returns the nightly room price for a room type.
// Unknown room types are priced as DOUBLE.
func PriceForRoomType(rate HotelRate, roomType RoomType) float64 {
	switch roomType {
	case RoomSingle:
		return rate.PricePerPersonDouble + rate.PriceSingleSupplement
	case RoomTriple:
		return rate.PricePerPersonTriple * 3
	default:
		return rate.PricePerPersonDouble * 2
	}
}

// VehiclePrice returns the price column selected by the transfer type, and
// false for an unknown type.
func VehiclePrice(rate VehicleRate, transferType TransferType) (float64, bool) {
	switch transferType {
	case TransferAirport:
		return rate.AirportPrice, true
	case TransferIntercity:
		return rate.IntercityPrice, true
	case TransferHourly:
		return rate.HourlyPrice, true
	}
	return 0, false
}

// Overlapping returns the first record sharing scope with candidate whose
// validity overlaps it. Records with candidate's id are ignored so updates do
// not collide with themselves. match can further restrict what counts as the
// same category; nil accepts every record in scope.
func Overlapping[R Rate](existing []R, candidate R, id func(R) int64, match func(a, b R) bool) (R, bool) {
	for _, r := range existing {
		if id != nil && id(r) != 0 && id(r) == id(candidate) {
			continue
		}
		if r.Scope() != candidate.Scope() {
			continue
		}
		if match != nil && !match(r, candidate) {
			continue
		}
		if r.Validity().Overlaps(candidate.Validity()) {
			return r, true
		}
	}
	var zero R
	return zero, false
}
