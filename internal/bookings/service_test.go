package bookings

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-tours/internal/auth"
	"github.com/odyssey-erp/odyssey-tours/internal/fx"
	"github.com/odyssey-erp/odyssey-tours/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-tours/internal/pricing"
	"github.com/odyssey-erp/odyssey-tours/internal/rates"
	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

type stubResolver struct {
	hotels    map[int64]rates.Quote
	tours     map[int64]rates.Quote
	transfers map[string]rates.Quote
	tourPax   []int

	transferSuppliers []*int64
}

func (s *stubResolver) HotelRoomPrice(_ context.Context, hotelID int64, _ rates.RoomType, _ time.Time) (rates.Quote, error) {
	return s.hotels[hotelID], nil
}

func (s *stubResolver) TransferPrice(_ context.Context, city, _ string, supplierID *int64, _ rates.TransferType, _ time.Time) (rates.Quote, error) {
	s.transferSuppliers = append(s.transferSuppliers, supplierID)
	return s.transfers[city], nil
}

func (s *stubResolver) TourPrice(_ context.Context, tourID, _ int64, _ time.Time, pax int) (rates.Quote, error) {
	s.tourPax = append(s.tourPax, pax)
	return s.tours[tourID], nil
}

type bumpCounter struct{ n int }

func (b *bumpCounter) Bump(context.Context) error {
	b.n++
	return nil
}

type createdCounter struct {
	statuses []string
	sell     float64
}

func (c *createdCounter) BookingCreated(status, _ string, sell float64) {
	c.statuses = append(c.statuses, status)
	c.sell += sell
}

var fixedNow = func() time.Time { return time.Date(2025, 10, 3, 9, 0, 0, 0, time.UTC) }

func newTestService(repo *memRepo, resolver RateResolver, opts ...Option) *Service {
	opts = append([]Option{WithClock(fixedNow)}, opts...)
	return NewService(repo, resolver, opts...)
}

func TestCreateWritesBookingLinesAndPassengers(t *testing.T) {
	repo := newMemRepo()
	cache := &bumpCounter{}
	metrics := &createdCounter{}
	svc := newTestService(repo, &stubResolver{}, WithCache(cache), WithMetrics(metrics))

	ctx := shared.ContextWithActor(context.Background(), shared.Actor{UserID: 42})
	b, err := svc.Create(ctx, validDraft(), "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(b.Reference, "BK-2510-"), b.Reference)
	assert.Len(t, b.Reference, len("BK-2510-")+8)
	assert.Equal(t, StatusInquiry, b.Status)
	assert.Equal(t, PaymentUnpaid, b.PaymentStatus)
	assert.Equal(t, pricing.Totals{TotalSell: 1100, TotalCost: 760, GrossProfit: 340}, b.Totals())
	assert.Equal(t, int64(42), b.CreatedBy)

	require.Len(t, b.Hotels, 1)
	assert.Equal(t, 600.0, b.Hotels[0].TotalCost)
	assert.Equal(t, 300.0, b.Hotels[0].Margin)
	assert.Equal(t, 3, b.Hotels[0].Nights)
	require.Len(t, b.Tours, 1)
	assert.Equal(t, 2, b.Tours[0].Pax)
	assert.Len(t, b.Passengers, 2)

	require.Len(t, repo.audits, 1)
	assert.Equal(t, "booking.create", repo.audits[0].Action)
	assert.Equal(t, 1, cache.n)
	assert.Equal(t, []string{"inquiry"}, metrics.statuses)
	assert.Equal(t, 1100.0, metrics.sell)
}

func TestCreatePricesLinesFromRates(t *testing.T) {
	repo := newMemRepo()
	resolver := &stubResolver{
		hotels: map[int64]rates.Quote{1: {Kind: rates.QuoteHotel, Found: true, UnitPrice: 80, RateID: 11, Currency: "EUR"}},
		tours:  map[int64]rates.Quote{3: {Kind: rates.QuoteTour, Found: true, UnitPrice: 45, RateID: 12, Currency: "EUR"}},
	}
	svc := newTestService(repo, resolver)

	d := validDraft()
	d.Lines.Tours[0] = d.Lines.Tours[0].SwitchOperation(pricing.OperationSupplier)
	d.Lines.Tours[0].SupplierID = ptr(int64(5))
	d.Lines.Tours[0].CostPerPerson = 10

	b, err := svc.Create(context.Background(), d, "")
	require.NoError(t, err)

	assert.Equal(t, 80.0, b.Hotels[0].CostPerNight)
	assert.Equal(t, 480.0, b.Hotels[0].TotalCost)
	assert.Equal(t, ptr(int64(11)), b.Hotels[0].RateID)
	assert.Equal(t, 45.0, b.Tours[0].CostPerPerson)
	assert.Equal(t, 90.0, b.Tours[0].TotalCost)
	assert.Equal(t, []int{2}, resolver.tourPax)
	assert.Equal(t, 570.0, b.TotalCostPrice)
}

func TestCreateKeepsManualCostWithoutRate(t *testing.T) {
	svc := newTestService(newMemRepo(), &stubResolver{})
	b, err := svc.Create(context.Background(), validDraft(), "")
	require.NoError(t, err)
	assert.Equal(t, 100.0, b.Hotels[0].CostPerNight)
	assert.Nil(t, b.Hotels[0].RateID)
}

func TestCreateConvertsRateCurrency(t *testing.T) {
	resolver := &stubResolver{
		hotels: map[int64]rates.Quote{1: {Found: true, UnitPrice: 100, RateID: 11, Currency: "USD"}},
	}
	conv := fx.NewService(fx.NewStaticSource("EUR", map[string]float64{"USD": 0.9}))
	svc := newTestService(newMemRepo(), resolver, WithFX(conv))

	b, err := svc.Create(context.Background(), validDraft(), "")
	require.NoError(t, err)
	assert.Equal(t, 90.0, b.Hotels[0].CostPerNight)
	assert.Equal(t, 540.0, b.Hotels[0].TotalCost)
}

func TestCreateMissingFXRateIsValidationError(t *testing.T) {
	resolver := &stubResolver{
		hotels: map[int64]rates.Quote{1: {Found: true, UnitPrice: 100, Currency: "GBP"}},
	}
	conv := fx.NewService(fx.NewStaticSource("EUR", nil))
	repo := newMemRepo()
	svc := newTestService(repo, resolver, WithFX(conv))

	_, err := svc.Create(context.Background(), validDraft(), "")
	var verr *httpx.ValidationError
	require.True(t, errors.As(err, &verr), err)
	assert.Contains(t, verr.Fields, "hotels[0]")
	assert.Empty(t, repo.bookings)
}

func TestCreateIdempotencyKey(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubResolver{})

	_, err := svc.Create(context.Background(), validDraft(), "key-1")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), validDraft(), "key-1")
	require.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
	assert.Len(t, repo.bookings, 1)
}

func TestCreateRollsBackOnFailure(t *testing.T) {
	repo := newMemRepo()
	repo.failPassengerInsert = true
	cache := &bumpCounter{}
	svc := newTestService(repo, &stubResolver{}, WithCache(cache))

	_, err := svc.Create(context.Background(), validDraft(), "key-2")
	require.Error(t, err)
	assert.Empty(t, repo.bookings)
	assert.Empty(t, repo.hotels)
	assert.Empty(t, repo.tours)
	assert.Empty(t, repo.keys)
	assert.Empty(t, repo.audits)
	assert.Zero(t, cache.n)
}

func TestCreateValidatesDraft(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubResolver{})
	_, err := svc.Create(context.Background(), Draft{Currency: "EUR"}, "")

	var verr *httpx.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "client_id")
	assert.Contains(t, verr.Fields, "lines")
	assert.Contains(t, verr.Fields, "passengers")
	assert.Empty(t, repo.bookings)
}

func seedBooking(repo *memRepo, totals pricing.Totals) int64 {
	id := repo.id()
	repo.bookings[id] = Booking{
		ID: id, Reference: "BK-2510-SEEDED01", ClientID: 7, PaxCount: 2, Status: StatusConfirmed,
		StartDate: shared.MustParseDate("2025-07-01"), EndDate: shared.MustParseDate("2025-07-05"),
		Currency: "EUR", TotalSellPrice: totals.TotalSell, TotalCostPrice: totals.TotalCost,
		GrossProfit: totals.GrossProfit, PaymentStatus: PaymentUnpaid,
	}
	return id
}

func updateRequest() UpdateBookingRequest {
	return UpdateBookingRequest{
		ClientID: 7, PaxCount: 2, Currency: "eur",
		StartDate: shared.MustParseDate("2025-07-01"), EndDate: shared.MustParseDate("2025-07-06"),
	}
}

func TestUpdateWithoutLinesKeepsPersistedTotals(t *testing.T) {
	repo := newMemRepo()
	id := seedBooking(repo, pricing.Totals{TotalSell: 5000, TotalCost: 3000, GrossProfit: 2000})
	svc := newTestService(repo, &stubResolver{})

	b, err := svc.Update(context.Background(), id, updateRequest())
	require.NoError(t, err)
	assert.Equal(t, 5000.0, b.TotalSellPrice)
	assert.Equal(t, 3000.0, b.TotalCostPrice)
	assert.Equal(t, 2000.0, b.GrossProfit)
	assert.Equal(t, "EUR", b.Currency)
	assert.Equal(t, shared.MustParseDate("2025-07-06"), b.EndDate)
	assert.Equal(t, StatusConfirmed, b.Status)
}

func TestUpdateReplacesLines(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubResolver{})
	created, err := svc.Create(context.Background(), validDraft(), "")
	require.NoError(t, err)

	req := updateRequest()
	req.Lines = &pricing.LineItems{Flights: []pricing.FlightLine{{
		Airline: "TP", FlightNumber: "TP1350", FromAirport: "LIS", ToAirport: "FAO",
		DepartureDate: shared.MustParseDate("2025-07-01"), CostPrice: 300, SellPrice: 420,
	}}}
	b, err := svc.Update(context.Background(), created.ID, req)
	require.NoError(t, err)

	assert.Empty(t, b.Hotels)
	assert.Empty(t, b.Tours)
	require.Len(t, b.Flights, 1)
	assert.Equal(t, pricing.Totals{TotalSell: 420, TotalCost: 300, GrossProfit: 120}, b.Totals())
}

func TestUpdateCurrencyNeedsRepricedLines(t *testing.T) {
	repo := newMemRepo()
	id := seedBooking(repo, pricing.Totals{TotalSell: 5000, TotalCost: 3000, GrossProfit: 2000})
	svc := newTestService(repo, &stubResolver{})

	req := updateRequest()
	req.Currency = "try"
	_, err := svc.Update(context.Background(), id, req)
	var verr *httpx.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "currency")
	assert.Equal(t, "EUR", repo.bookings[id].Currency)
	assert.Equal(t, 5000.0, repo.bookings[id].TotalSellPrice)

	req.Lines = &pricing.LineItems{Flights: []pricing.FlightLine{{
		Airline: "TK", FlightNumber: "TK1", FromAirport: "IST", ToAirport: "ADB",
		DepartureDate: shared.MustParseDate("2025-07-01"), CostPrice: 9000, SellPrice: 12000,
	}}}
	b, err := svc.Update(context.Background(), id, req)
	require.NoError(t, err)
	assert.Equal(t, "TRY", b.Currency)
	assert.Equal(t, 12000.0, b.TotalSellPrice)
}

func TestUpdateCurrencyLockedByPayments(t *testing.T) {
	repo := newMemRepo()
	id := seedBooking(repo, pricing.Totals{})
	repo.paidBookings = map[int64]bool{id: true}
	svc := newTestService(repo, &stubResolver{})

	req := updateRequest()
	req.Currency = "GBP"
	req.Lines = &pricing.LineItems{Flights: []pricing.FlightLine{{
		Airline: "BA", FlightNumber: "BA1", FromAirport: "LHR", ToAirport: "LIS",
		DepartureDate: shared.MustParseDate("2025-07-01"), CostPrice: 100, SellPrice: 150,
	}}}
	_, err := svc.Update(context.Background(), id, req)
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Equal(t, "EUR", repo.bookings[id].Currency)
	assert.Empty(t, repo.flights)
}

func TestUpdateRejectsInvertedDates(t *testing.T) {
	repo := newMemRepo()
	id := seedBooking(repo, pricing.Totals{})
	req := updateRequest()
	req.EndDate = shared.MustParseDate("2025-06-01")
	_, err := newTestService(repo, nil).Update(context.Background(), id, req)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateStatusAllowsAnyTransition(t *testing.T) {
	repo := newMemRepo()
	id := seedBooking(repo, pricing.Totals{})
	svc := newTestService(repo, nil)

	for _, status := range []Status{StatusCompleted, StatusInquiry, StatusCancelled, StatusQuoted} {
		b, err := svc.UpdateStatus(context.Background(), id, status)
		require.NoError(t, err)
		assert.Equal(t, status, b.Status)
	}
	_, err := svc.UpdateStatus(context.Background(), id, "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = svc.UpdateStatus(context.Background(), 999, StatusQuoted)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestLineWritesRecomputeTotals(t *testing.T) {
	repo := newMemRepo()
	id := seedBooking(repo, pricing.Totals{TotalSell: 5000, TotalCost: 3000, GrossProfit: 2000})
	svc := newTestService(repo, &stubResolver{})
	ctx := context.Background()

	flight, err := svc.SaveFlight(ctx, 0, FlightItemRequest{BookingID: id, FlightLine: pricing.FlightLine{
		Airline: "TP", FlightNumber: "TP1", FromAirport: "LIS", ToAirport: "OPO", CostPrice: 100, SellPrice: 150,
	}})
	require.NoError(t, err)
	assert.Equal(t, 50.0, flight.Margin)
	assert.Equal(t, pricing.Totals{TotalSell: 150, TotalCost: 100, GrossProfit: 50}, repo.bookings[id].Totals())

	fee, err := svc.SaveEntranceFee(ctx, 0, EntranceFeeItemRequest{BookingID: id, EntranceFeeLine: pricing.EntranceFeeLine{
		SiteName: "Pena Palace", Adults: 2, Children: 1, AdultRate: 20, ChildRate: 10, SellPrice: 70,
	}})
	require.NoError(t, err)
	assert.Equal(t, 50.0, fee.TotalCost)
	assert.Equal(t, pricing.Totals{TotalSell: 220, TotalCost: 150, GrossProfit: 70}, repo.bookings[id].Totals())

	_, err = svc.SaveFlight(ctx, flight.ID, FlightItemRequest{BookingID: id, FlightLine: pricing.FlightLine{
		Airline: "TP", FlightNumber: "TP1", FromAirport: "LIS", ToAirport: "OPO", CostPrice: 120, SellPrice: 150,
	}})
	require.NoError(t, err)
	assert.Equal(t, 170.0, repo.bookings[id].TotalCostPrice)

	require.NoError(t, svc.DeleteLine(ctx, KindFlight, flight.ID))
	require.NoError(t, svc.DeleteLine(ctx, KindEntranceFee, fee.ID))
	assert.True(t, repo.bookings[id].Totals().IsZero())
	assert.ErrorIs(t, svc.DeleteLine(ctx, KindFlight, flight.ID), httpx.ErrNotFound)
}

func TestSaveLineRejectsForeignBooking(t *testing.T) {
	repo := newMemRepo()
	a := seedBooking(repo, pricing.Totals{})
	b := seedBooking(repo, pricing.Totals{})
	svc := newTestService(repo, &stubResolver{})

	hotel, err := svc.SaveHotel(context.Background(), 0, HotelItemRequest{BookingID: a, HotelLine: hotelLine()})
	require.NoError(t, err)
	_, err = svc.SaveHotel(context.Background(), hotel.ID, HotelItemRequest{BookingID: b, HotelLine: hotelLine()})
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestSaveTransferUsesVehicleRate(t *testing.T) {
	repo := newMemRepo()
	id := seedBooking(repo, pricing.Totals{})
	resolver := &stubResolver{transfers: map[string]rates.Quote{"Lisbon": {Found: true, UnitPrice: 65, RateID: 3, Currency: "EUR"}}}
	svc := newTestService(repo, resolver)

	supplier := int64(7)
	item, err := svc.SaveTransfer(context.Background(), 0, TransferItemRequest{BookingID: id, TransferLine: pricing.TransferLine{
		TransferDate: shared.MustParseDate("2025-07-01"), TransferType: rates.TransferAirport, City: "Lisbon",
		VehicleType: "van", OperationType: pricing.OperationSupplier, SupplierID: &supplier, SupplierCost: 40, SellPrice: 90,
	}})
	require.NoError(t, err)
	require.Len(t, resolver.transferSuppliers, 1)
	require.NotNil(t, resolver.transferSuppliers[0])
	assert.Equal(t, int64(7), *resolver.transferSuppliers[0])
	assert.Equal(t, 65.0, item.SupplierCost)
	assert.Equal(t, 25.0, item.Margin)
	assert.Equal(t, 65.0, repo.bookings[id].TotalCostPrice)
}

func TestSaveTourRequiresSupplier(t *testing.T) {
	repo := newMemRepo()
	id := seedBooking(repo, pricing.Totals{})
	svc := newTestService(repo, &stubResolver{})
	line := selfTour().SwitchOperation(pricing.OperationSupplier)
	_, err := svc.SaveTour(context.Background(), 0, TourItemRequest{BookingID: id, TourLine: line})
	assert.ErrorIs(t, err, httpx.ErrValidation)
	assert.Empty(t, repo.tours)
}

func TestSaveTourUpdateClearsInactiveMode(t *testing.T) {
	repo := newMemRepo()
	id := seedBooking(repo, pricing.Totals{})
	resolver := &stubResolver{tours: map[int64]rates.Quote{3: {Found: true, UnitPrice: 45, RateID: 9, Currency: "EUR"}}}
	svc := newTestService(repo, resolver)
	ctx := context.Background()

	supplier := int64(4)
	line := selfTour().SwitchOperation(pricing.OperationSupplier)
	line.SupplierID = &supplier
	created, err := svc.SaveTour(ctx, 0, TourItemRequest{BookingID: id, TourLine: line})
	require.NoError(t, err)
	assert.Equal(t, 90.0, created.TotalCost)

	edited := created.TourLine
	edited.OperationType = pricing.OperationSelf
	edited.GuideCost, edited.VehicleCost = 50, 30
	updated, err := svc.SaveTour(ctx, created.ID, TourItemRequest{BookingID: id, TourLine: edited})
	require.NoError(t, err)

	stored := repo.tours[created.ID]
	assert.Nil(t, stored.SupplierID)
	assert.Zero(t, stored.CostPerPerson)
	assert.Nil(t, stored.RateID)
	assert.Equal(t, 80.0, updated.TotalCost)
	assert.Equal(t, 80.0, repo.bookings[id].TotalCostPrice)
}

func TestPassengersRespectPaxCount(t *testing.T) {
	repo := newMemRepo()
	id := seedBooking(repo, pricing.Totals{})
	svc := newTestService(repo, nil)
	ctx := context.Background()

	first, err := svc.AddPassenger(ctx, PassengerRequest{BookingID: id, PassengerInput: PassengerInput{FullName: "Ana", IsLead: true}})
	require.NoError(t, err)
	_, err = svc.AddPassenger(ctx, PassengerRequest{BookingID: id, PassengerInput: PassengerInput{FullName: "Rui"}})
	require.NoError(t, err)
	_, err = svc.AddPassenger(ctx, PassengerRequest{BookingID: id, PassengerInput: PassengerInput{FullName: "Eva"}})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	updated, err := svc.UpdatePassenger(ctx, first.ID, PassengerRequest{BookingID: id, PassengerInput: PassengerInput{FullName: "Ana Lima", Nationality: "PT"}})
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", updated.FullName)

	list, err := svc.ListPassengers(ctx, id)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, svc.DeletePassenger(ctx, first.ID))
	assert.ErrorIs(t, svc.DeletePassenger(ctx, first.ID), ErrPassengerNotFound)
}

func TestDeleteRemovesOwnedRecords(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubResolver{})
	b, err := svc.Create(context.Background(), validDraft(), "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), b.ID))
	assert.Empty(t, repo.bookings)
	assert.Empty(t, repo.hotels)
	assert.Empty(t, repo.passengers)
	assert.ErrorIs(t, svc.Delete(context.Background(), b.ID), ErrNotFound)
}

func TestPreviewReportsTotalsAndErrors(t *testing.T) {
	svc := newTestService(newMemRepo(), &stubResolver{})
	resp, err := svc.Preview(context.Background(), PreviewRequest{
		Draft:   validDraft(),
		Actions: []ActionRequest{{Type: "remove_passenger", Index: 0}, {Type: "remove_passenger", Index: 0}},
	})
	require.NoError(t, err)
	assert.False(t, resp.IsValid)
	assert.Contains(t, resp.Errors, StepPassengers)
	assert.Equal(t, 1100.0, resp.Totals.TotalSell)
	require.Len(t, resp.Lines.Hotels, 1)
	assert.Equal(t, 600.0, resp.Lines.Hotels[0].Cost)
}

func TestListFiltersByStatus(t *testing.T) {
	repo := newMemRepo()
	seedBooking(repo, pricing.Totals{})
	svc := newTestService(repo, nil)

	result, err := svc.List(context.Background(), ListFilter{Status: ptr(StatusConfirmed), Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Len(t, result.Data, 1)
	assert.Equal(t, 1, result.Pagination.Total)

	result, err = svc.List(context.Background(), ListFilter{Status: ptr(StatusQuoted)})
	require.NoError(t, err)
	assert.NotNil(t, result.Data)
	assert.Empty(t, result.Data)

	_, err = svc.List(context.Background(), ListFilter{Status: ptr(Status("archived"))})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func newTestRouter(t *testing.T, svc *Service, perms ...string) (http.Handler, string) {
	t.Helper()
	tokens := auth.NewTokenIssuer("secret", 0)
	guard := auth.Middleware{Tokens: tokens}
	token, _, err := tokens.Issue(auth.User{ID: 1, Permissions: perms})
	require.NoError(t, err)
	r := chi.NewRouter()
	r.Use(guard.Authenticate)
	NewHandler(nil, svc, guard).MountRoutes(r)
	return r, token
}

func do(t *testing.T, router http.Handler, token, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

const createBody = `{
	"client_id": 7, "pax_count": 2, "start_date": "2025-07-01", "end_date": "2025-07-05", "currency": "EUR",
	"lines": {
		"hotels": [{"hotel_id": 1, "room_type": "DOUBLE", "check_in": "2025-07-01", "check_out": "2025-07-04",
			"number_of_rooms": 2, "cost_per_night": 100, "sell_price": 900}],
		"tours": [{"tour_id": 3, "tour_date": "2025-07-02", "operation_type": "self",
			"guide_cost": 50, "vehicle_cost": 80, "entrance_fees": 20, "other_costs": 10, "sell_price": 200}]
	},
	"passengers": [{"full_name": "Ana Lima", "is_lead": true}]
}`

func TestHandlerCreateIsIdempotent(t *testing.T) {
	repo := newMemRepo()
	router, token := newTestRouter(t, newTestService(repo, &stubResolver{}), shared.PermBookingsEdit)

	res := do(t, router, token, http.MethodPost, "/bookings", createBody, IdempotencyHeader, "abc")
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), `"total_sell_price":1100`)
	assert.Contains(t, res.Body.String(), `"gross_profit":340`)

	res = do(t, router, token, http.MethodPost, "/bookings", createBody, IdempotencyHeader, "abc")
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Len(t, repo.bookings, 1)
}

func TestHandlerValidationAndNotFound(t *testing.T) {
	router, token := newTestRouter(t, newTestService(newMemRepo(), nil), shared.PermBookingsEdit)

	res := do(t, router, token, http.MethodPost, "/bookings", `{"currency":"EUR"}`)
	require.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), `"client_id"`)

	res = do(t, router, token, http.MethodGet, "/bookings/44", "")
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = do(t, router, token, http.MethodPatch, "/bookings/44/status", `{"status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestHandlerRequiresEditPermission(t *testing.T) {
	router, token := newTestRouter(t, newTestService(newMemRepo(), nil), shared.PermBookingsView)

	res := do(t, router, token, http.MethodGet, "/bookings", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"data":[]`)

	res = do(t, router, token, http.MethodPost, "/bookings", createBody)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestHandlerLineItemLifecycle(t *testing.T) {
	repo := newMemRepo()
	id := seedBooking(repo, pricing.Totals{})
	router, token := newTestRouter(t, newTestService(repo, &stubResolver{}), shared.PermBookingsEdit)

	body := `{"booking_id": 1, "airline": "TP", "flight_number": "TP1", "from_airport": "LIS", "to_airport": "OPO",
		"departure_date": "2025-07-01", "cost_price": 100, "sell_price": 160}`
	require.Equal(t, int64(1), id)
	res := do(t, router, token, http.MethodPost, "/booking-flights", body)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), `"margin":60`)
	assert.Equal(t, 160.0, repo.bookings[id].TotalSellPrice)

	res = do(t, router, token, http.MethodDelete, "/booking-flights/2", "")
	assert.Equal(t, http.StatusNoContent, res.Code)
	assert.Zero(t, repo.bookings[id].TotalSellPrice)
}

func TestHandlerPreview(t *testing.T) {
	router, token := newTestRouter(t, newTestService(newMemRepo(), &stubResolver{}), shared.PermBookingsEdit)
	body := `{"draft": ` + createBody + `, "actions": [{"type": "set_pax", "pax_count": 3}]}`
	res := do(t, router, token, http.MethodPost, "/booking-drafts/preview", body)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), `"is_valid":true`)
	assert.Contains(t, res.Body.String(), `"pax_count":3`)
}
