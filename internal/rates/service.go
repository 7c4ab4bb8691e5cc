package rates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-tours/internal/platform/httpx"
)

// ErrOverlap reports a rate whose validity collides with another record of the same scope.
var ErrOverlap = fmt.Errorf("rate period overlaps an existing season: %w", httpx.ErrDuplicate)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func validatePeriod(from, to time.Time) error {
	if to.Before(from) {
		return httpx.NewValidationError(httpx.FieldErrors{"valid_to": "must not be before valid_from"})
	}
	return nil
}

func (s *Service) ListHotelRates(ctx context.Context, hotelID int64) ([]HotelRate, error) {
	return s.repo.ListHotelRates(ctx, hotelID)
}

func (s *Service) CreateHotelRate(ctx context.Context, hotelID int64, req HotelRateRequest) (*HotelRate, error) {
	rate := hotelRateFromRequest(hotelID, req)
	if err := s.checkHotelRate(ctx, rate); err != nil {
		return nil, err
	}
	id, err := s.repo.CreateHotelRate(ctx, rate)
	if err != nil {
		return nil, fmt.Errorf("create hotel rate: %w", err)
	}
	return s.repo.GetHotelRate(ctx, id)
}

func (s *Service) UpdateHotelRate(ctx context.Context, hotelID, rateID int64, req HotelRateRequest) (*HotelRate, error) {
	current, err := s.repo.GetHotelRate(ctx, rateID)
	if err != nil {
		return nil, err
	}
	if current.HotelID != hotelID {
		return nil, ErrNotFound
	}
	rate := hotelRateFromRequest(hotelID, req)
	rate.ID = rateID
	if err := s.checkHotelRate(ctx, rate); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateHotelRate(ctx, rate); err != nil {
		return nil, fmt.Errorf("update hotel rate: %w", err)
	}
	return s.repo.GetHotelRate(ctx, rateID)
}

func (s *Service) DeleteHotelRate(ctx context.Context, hotelID, rateID int64) error {
	current, err := s.repo.GetHotelRate(ctx, rateID)
	if err != nil {
		return err
	}
	if current.HotelID != hotelID {
		return ErrNotFound
	}
	return s.repo.DeleteHotelRate(ctx, rateID)
}

func (s *Service) checkHotelRate(ctx context.Context, rate HotelRate) error {
	if err := validatePeriod(rate.ValidFrom.Time, rate.ValidTo.Time); err != nil {
		return err
	}
	existing, err := s.repo.ListHotelRates(ctx, rate.HotelID)
	if err != nil {
		return err
	}
	if clash, ok := Overlapping(existing, rate, func(r HotelRate) int64 { return r.ID }, nil); ok {
		return fmt.Errorf("season %q (%s..%s): %w", clash.SeasonName, clash.ValidFrom, clash.ValidTo, ErrOverlap)
	}
	return nil
}

func hotelRateFromRequest(hotelID int64, req HotelRateRequest) HotelRate {
	return HotelRate{
		HotelID:               hotelID,
		SeasonName:            strings.TrimSpace(req.SeasonName),
		Period:                Period{ValidFrom: req.ValidFrom, ValidTo: req.ValidTo},
		PricePerPersonDouble:  req.PricePerPersonDouble,
		PriceSingleSupplement: req.PriceSingleSupplement,
		PricePerPersonTriple:  req.PricePerPersonTriple,
		Currency:              strings.ToUpper(req.Currency),
	}
}

func (s *Service) ListVehicleRates(ctx context.Context, filter VehicleRateFilter) ([]VehicleRate, error) {
	return s.repo.ListVehicleRates(ctx, filter)
}

func (s *Service) CreateVehicleRate(ctx context.Context, req VehicleRateRequest) (*VehicleRate, error) {
	rate := vehicleRateFromRequest(req)
	if err := s.checkVehicleRate(ctx, rate); err != nil {
		return nil, err
	}
	id, err := s.repo.CreateVehicleRate(ctx, rate)
	if err != nil {
		return nil, fmt.Errorf("create vehicle rate: %w", err)
	}
	return s.repo.GetVehicleRate(ctx, id)
}

func (s *Service) UpdateVehicleRate(ctx context.Context, id int64, req VehicleRateRequest) (*VehicleRate, error) {
	if _, err := s.repo.GetVehicleRate(ctx, id); err != nil {
		return nil, err
	}
	rate := vehicleRateFromRequest(req)
	rate.ID = id
	if err := s.checkVehicleRate(ctx, rate); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateVehicleRate(ctx, rate); err != nil {
		return nil, fmt.Errorf("update vehicle rate: %w", err)
	}
	return s.repo.GetVehicleRate(ctx, id)
}

func (s *Service) DeleteVehicleRate(ctx context.Context, id int64) error {
	return s.repo.DeleteVehicleRate(ctx, id)
}

func (s *Service) checkVehicleRate(ctx context.Context, rate VehicleRate) error {
	if err := validatePeriod(rate.ValidFrom.Time, rate.ValidTo.Time); err != nil {
		return err
	}
	existing, err := s.repo.ListVehicleRates(ctx, VehicleRateFilter{City: rate.City, VehicleType: rate.VehicleType})
	if err != nil {
		return err
	}
	sameSupplier := func(a, b VehicleRate) bool { return a.SupplierID == b.SupplierID }
	if clash, ok := Overlapping(existing, rate, func(r VehicleRate) int64 { return r.ID }, sameSupplier); ok {
		return fmt.Errorf("season %q (%s..%s): %w", clash.SeasonName, clash.ValidFrom, clash.ValidTo, ErrOverlap)
	}
	return nil
}

func vehicleRateFromRequest(req VehicleRateRequest) VehicleRate {
	return VehicleRate{
		SupplierID:     req.SupplierID,
		City:           strings.TrimSpace(req.City),
		VehicleType:    strings.TrimSpace(req.VehicleType),
		SeasonName:     strings.TrimSpace(req.SeasonName),
		Period:         Period{ValidFrom: req.ValidFrom, ValidTo: req.ValidTo},
		AirportPrice:   req.AirportPrice,
		IntercityPrice: req.IntercityPrice,
		HourlyPrice:    req.HourlyPrice,
		Currency:       strings.ToUpper(req.Currency),
	}
}

func (s *Service) ListTourRates(ctx context.Context, filter TourRateFilter) ([]TourRate, error) {
	return s.repo.ListTourRates(ctx, filter)
}

func (s *Service) CreateTourRate(ctx context.Context, req TourRateRequest) (*TourRate, error) {
	rate := tourRateFromRequest(req)
	if err := s.checkTourRate(ctx, rate); err != nil {
		return nil, err
	}
	id, err := s.repo.CreateTourRate(ctx, rate)
	if err != nil {
		return nil, fmt.Errorf("create tour rate: %w", err)
	}
	return s.repo.GetTourRate(ctx, id)
}

func (s *Service) UpdateTourRate(ctx context.Context, id int64, req TourRateRequest) (*TourRate, error) {
	if _, err := s.repo.GetTourRate(ctx, id); err != nil {
		return nil, err
	}
	rate := tourRateFromRequest(req)
	rate.ID = id
	if err := s.checkTourRate(ctx, rate); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTourRate(ctx, rate); err != nil {
		return nil, fmt.Errorf("update tour rate: %w", err)
	}
	return s.repo.GetTourRate(ctx, id)
}

func (s *Service) DeleteTourRate(ctx context.Context, id int64) error {
	return s.repo.DeleteTourRate(ctx, id)
}

func (s *Service) checkTourRate(ctx context.Context, rate TourRate) error {
	if err := validatePeriod(rate.ValidFrom.Time, rate.ValidTo.Time); err != nil {
		return err
	}
	if rate.MaxPax != 0 && rate.MaxPax < rate.MinPax {
		return httpx.NewValidationError(httpx.FieldErrors{"max_pax": "must not be below min_pax"})
	}
	tourID, supplierID := rate.TourID, rate.SupplierID
	existing, err := s.repo.ListTourRates(ctx, TourRateFilter{TourID: &tourID, SupplierID: &supplierID})
	if err != nil {
		return err
	}
	if clash, ok := Overlapping(existing, rate, func(r TourRate) int64 { return r.ID }, paxTiersOverlap); ok {
		return fmt.Errorf("season %q (%s..%s): %w", clash.SeasonName, clash.ValidFrom, clash.ValidTo, ErrOverlap)
	}
	return nil
}

// paxTiersOverlap treats a zero MaxPax as unbounded.
func paxTiersOverlap(a, b TourRate) bool {
	aMax, bMax := a.MaxPax, b.MaxPax
	if aMax == 0 {
		aMax = int(^uint(0) >> 1)
	}
	if bMax == 0 {
		bMax = int(^uint(0) >> 1)
	}
	return a.MinPax <= bMax && b.MinPax <= aMax
}

func tourRateFromRequest(req TourRateRequest) TourRate {
	return TourRate{
		TourID:         req.TourID,
		SupplierID:     req.SupplierID,
		SeasonName:     strings.TrimSpace(req.SeasonName),
		Period:         Period{ValidFrom: req.ValidFrom, ValidTo: req.ValidTo},
		MinPax:         req.MinPax,
		MaxPax:         req.MaxPax,
		PricePerPerson: req.PricePerPerson,
		Currency:       strings.ToUpper(req.Currency),
	}
}

// HotelRoomPrice prices one room night for the given room type.
func (s *Service) HotelRoomPrice(ctx context.Context, hotelID int64, roomType RoomType, on time.Time) (Quote, error) {
	list, err := s.repo.ListHotelRates(ctx, hotelID)
	if err != nil {
		return Quote{}, fmt.Errorf("load hotel rates: %w", err)
	}
	q := Quote{Kind: QuoteHotel}
	rate, ok := FindApplicable(list, HotelScope(hotelID), on)
	if !ok {
		return q, nil
	}
	q.Found = true
	q.UnitPrice = PriceForRoomType(rate, roomType)
	q.RateID = rate.ID
	q.SeasonName = rate.SeasonName
	q.Currency = rate.Currency
	return q, nil
}

// TransferPrice prices a transfer from the vehicle rate of a city and vehicle
// type. A non-nil supplierID restricts the lookup to that supplier's rates.
func (s *Service) TransferPrice(ctx context.Context, city, vehicleType string, supplierID *int64, transferType TransferType, on time.Time) (Quote, error) {
	q := Quote{Kind: QuoteTransfer}
	if !transferType.Valid() {
		return q, httpx.NewValidationError(httpx.FieldErrors{"transfer_type": "must be one of airport intercity hourly"})
	}
	list, err := s.repo.ListVehicleRates(ctx, VehicleRateFilter{City: city, VehicleType: vehicleType, SupplierID: supplierID})
	if err != nil {
		return q, fmt.Errorf("load vehicle rates: %w", err)
	}
	rate, ok := FindApplicable(list, VehicleScope(city, vehicleType), on)
	if !ok {
		return q, nil
	}
	price, _ := VehiclePrice(rate, transferType)
	q.Found = true
	q.UnitPrice = price
	q.RateID = rate.ID
	q.SeasonName = rate.SeasonName
	q.Currency = rate.Currency
	return q, nil
}

// TourPrice prices one person on a supplier-operated tour.
func (s *Service) TourPrice(ctx context.Context, tourID, supplierID int64, on time.Time, pax int) (Quote, error) {
	list, err := s.repo.ListTourRates(ctx, TourRateFilter{TourID: &tourID, SupplierID: &supplierID})
	if err != nil {
		return Quote{}, fmt.Errorf("load tour rates: %w", err)
	}
	q := Quote{Kind: QuoteTour}
	rate, ok := FindTourRate(list, tourID, supplierID, on, pax)
	if !ok {
		return q, nil
	}
	q.Found = true
	q.UnitPrice = rate.PricePerPerson
	q.RateID = rate.ID
	q.SeasonName = rate.SeasonName
	q.Currency = rate.Currency
	return q, nil
}

// Quote dispatches a quote request to the matching rate sheet.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	if err := httpx.ValidateStruct(req); err != nil {
		return Quote{}, err
	}
	on := req.Date.Time
	switch req.Kind {
	case QuoteHotel:
		if req.HotelID <= 0 {
			return Quote{}, httpx.NewValidationError(httpx.FieldErrors{"hotel_id": "is required"})
		}
		return s.HotelRoomPrice(ctx, req.HotelID, req.RoomType, on)
	case QuoteTransfer:
		fields := httpx.FieldErrors{}
		if req.City == "" {
			fields["city"] = "is required"
		}
		if req.VehicleType == "" {
			fields["vehicle_type"] = "is required"
		}
		if err := httpx.NewValidationError(fields); err != nil {
			return Quote{}, err
		}
		var supplierID *int64
		if req.SupplierID > 0 {
			supplierID = &req.SupplierID
		}
		return s.TransferPrice(ctx, req.City, req.VehicleType, supplierID, req.TransferType, on)
	default:
		fields := httpx.FieldErrors{}
		if req.TourID <= 0 {
			fields["tour_id"] = "is required"
		}
		if req.SupplierID <= 0 {
			fields["supplier_id"] = "is required"
		}
		if err := httpx.NewValidationError(fields); err != nil {
			return Quote{}, err
		}
		return s.TourPrice(ctx, req.TourID, req.SupplierID, on, req.Pax)
	}
}
