package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-tours/internal/fx"
	"github.com/odyssey-erp/odyssey-tours/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-tours/internal/pricing"
	"github.com/odyssey-erp/odyssey-tours/internal/rates"
)

// RateResolver is satisfied by *rates.Service.
type RateResolver interface {
	HotelRoomPrice(ctx context.Context, hotelID int64, roomType rates.RoomType, on time.Time) (rates.Quote, error)
	TransferPrice(ctx context.Context, city, vehicleType string, supplierID *int64, transferType rates.TransferType, on time.Time) (rates.Quote, error)
	TourPrice(ctx context.Context, tourID, supplierID int64, on time.Time, pax int) (rates.Quote, error)
}

// ConverterProvider is satisfied by *fx.Service.
type ConverterProvider interface {
	Converter(ctx context.Context) (*fx.Converter, error)
}

// pricedLines carries the lines after rate lookup together with the rate that
// priced each one, index aligned with the line slices.
type pricedLines struct {
	items         pricing.LineItems
	hotelRates    []*int64
	tourRates     []*int64
	transferRates []*int64
}

// pricer looks rates up for one booking currency. The FX table is loaded at
// most once per pricer.
type pricer struct {
	resolver RateResolver
	fx       ConverterProvider
	currency string
	pax      int
	conv     *fx.Converter
}

func (s *Service) pricerFor(currency string, pax int) *pricer {
	return &pricer{resolver: s.resolver, fx: s.fx, currency: strings.ToUpper(currency), pax: pax}
}

func (p *pricer) lines(ctx context.Context, li pricing.LineItems) (pricedLines, error) {
	out := pricedLines{items: pricing.LineItems{
		Flights:      li.Flights,
		EntranceFees: li.EntranceFees,
	}}
	for i, l := range li.Hotels {
		priced, rateID, err := p.hotel(ctx, fmt.Sprintf("hotels[%d]", i), l)
		if err != nil {
			return pricedLines{}, err
		}
		out.items.Hotels = append(out.items.Hotels, priced)
		out.hotelRates = append(out.hotelRates, rateID)
	}
	for i, l := range li.Tours {
		priced, rateID, err := p.tour(ctx, fmt.Sprintf("tours[%d]", i), l)
		if err != nil {
			return pricedLines{}, err
		}
		out.items.Tours = append(out.items.Tours, priced)
		out.tourRates = append(out.tourRates, rateID)
	}
	for i, l := range li.Transfers {
		priced, rateID, err := p.transfer(ctx, fmt.Sprintf("transfers[%d]", i), l)
		if err != nil {
			return pricedLines{}, err
		}
		out.items.Transfers = append(out.items.Transfers, priced)
		out.transferRates = append(out.transferRates, rateID)
	}
	return out, nil
}

// hotel fills Nights from the stay dates when unset.
func (p *pricer) hotel(ctx context.Context, field string, l pricing.HotelLine) (pricing.HotelLine, *int64, error) {
	l.Nights = l.StayNights()
	if p.resolver == nil || l.HotelID <= 0 || l.CheckIn.IsZero() {
		return l, nil, nil
	}
	q, err := p.resolver.HotelRoomPrice(ctx, l.HotelID, l.RoomType, l.CheckIn.Time)
	if err != nil {
		return l, nil, fmt.Errorf("price %s: %w", field, err)
	}
	if q, err = p.inCurrency(ctx, field, q); err != nil {
		return l, nil, err
	}
	return pricing.ApplyHotelRate(l, q), rateRef(q), nil
}

// tour defaults the line's pax to the booking's pax count when unset and
// drops the cost fields of the inactive operation mode.
func (p *pricer) tour(ctx context.Context, field string, l pricing.TourLine) (pricing.TourLine, *int64, error) {
	l = l.Normalize()
	if l.Pax == 0 {
		l.Pax = p.pax
	}
	if p.resolver == nil || l.OperationType != pricing.OperationSupplier || l.SupplierID == nil || l.TourDate.IsZero() {
		return l, nil, nil
	}
	q, err := p.resolver.TourPrice(ctx, l.TourID, *l.SupplierID, l.TourDate.Time, l.Pax)
	if err != nil {
		return l, nil, fmt.Errorf("price %s: %w", field, err)
	}
	if q, err = p.inCurrency(ctx, field, q); err != nil {
		return l, nil, err
	}
	return pricing.ApplyTourRate(l, q), rateRef(q), nil
}

func (p *pricer) transfer(ctx context.Context, field string, l pricing.TransferLine) (pricing.TransferLine, *int64, error) {
	if p.resolver == nil || l.OperationType != pricing.OperationSupplier || !l.TransferType.Valid() || l.TransferDate.IsZero() {
		return l, nil, nil
	}
	q, err := p.resolver.TransferPrice(ctx, l.City, l.VehicleType, l.SupplierID, l.TransferType, l.TransferDate.Time)
	if err != nil {
		return l, nil, fmt.Errorf("price %s: %w", field, err)
	}
	if q, err = p.inCurrency(ctx, field, q); err != nil {
		return l, nil, err
	}
	return pricing.ApplyTransferRate(l, q), rateRef(q), nil
}

// inCurrency converts a found quote into the booking currency.
func (p *pricer) inCurrency(ctx context.Context, field string, q rates.Quote) (rates.Quote, error) {
	if !q.Found || q.Currency == "" || strings.EqualFold(q.Currency, p.currency) || p.fx == nil {
		return q, nil
	}
	if p.conv == nil {
		conv, err := p.fx.Converter(ctx)
		if err != nil {
			return q, fmt.Errorf("load fx rates: %w", err)
		}
		p.conv = conv
	}
	price, err := p.conv.Convert(q.UnitPrice, q.Currency, p.currency)
	if err != nil {
		var missing *fx.MissingRateError
		if errors.As(err, &missing) {
			return q, httpx.NewValidationError(httpx.FieldErrors{field: err.Error()})
		}
		return q, err
	}
	q.UnitPrice = price
	q.Currency = p.currency
	return q, nil
}

func rateRef(q rates.Quote) *int64 {
	if !q.Found || q.RateID == 0 {
		return nil
	}
	id := q.RateID
	return &id
}
