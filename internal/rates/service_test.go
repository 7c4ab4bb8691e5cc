package rates

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-tours/internal/auth"
	"github.com/odyssey-erp/odyssey-tours/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

type memRepo struct {
	nextID   int64
	hotels   map[int64]HotelRate
	vehicles map[int64]VehicleRate
	tours    map[int64]TourRate
}

func newMemRepo() *memRepo {
	return &memRepo{
		hotels:   map[int64]HotelRate{},
		vehicles: map[int64]VehicleRate{},
		tours:    map[int64]TourRate{},
	}
}

func sortByValidFrom[R Rate](list []R, id func(R) int64) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i].Validity().ValidFrom, list[j].Validity().ValidFrom
		if a.Equal(b.Time) {
			return id(list[i]) < id(list[j])
		}
		return a.Before(b.Time)
	})
}

func (m *memRepo) ListHotelRates(ctx context.Context, hotelID int64) ([]HotelRate, error) {
	var out []HotelRate
	for _, r := range m.hotels {
		if r.HotelID == hotelID {
			out = append(out, r)
		}
	}
	sortByValidFrom(out, func(r HotelRate) int64 { return r.ID })
	return out, nil
}

func (m *memRepo) GetHotelRate(ctx context.Context, id int64) (*HotelRate, error) {
	r, ok := m.hotels[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *memRepo) CreateHotelRate(ctx context.Context, rate HotelRate) (int64, error) {
	m.nextID++
	rate.ID = m.nextID
	m.hotels[rate.ID] = rate
	return rate.ID, nil
}

func (m *memRepo) UpdateHotelRate(ctx context.Context, rate HotelRate) error {
	if _, ok := m.hotels[rate.ID]; !ok {
		return ErrNotFound
	}
	m.hotels[rate.ID] = rate
	return nil
}

func (m *memRepo) DeleteHotelRate(ctx context.Context, id int64) error {
	if _, ok := m.hotels[id]; !ok {
		return ErrNotFound
	}
	delete(m.hotels, id)
	return nil
}

func (m *memRepo) ListVehicleRates(ctx context.Context, filter VehicleRateFilter) ([]VehicleRate, error) {
	var out []VehicleRate
	for _, r := range m.vehicles {
		if filter.City != "" && !strings.EqualFold(filter.City, r.City) {
			continue
		}
		if filter.VehicleType != "" && !strings.EqualFold(filter.VehicleType, r.VehicleType) {
			continue
		}
		if filter.SupplierID != nil && *filter.SupplierID != r.SupplierID {
			continue
		}
		out = append(out, r)
	}
	sortByValidFrom(out, func(r VehicleRate) int64 { return r.ID })
	return out, nil
}

func (m *memRepo) GetVehicleRate(ctx context.Context, id int64) (*VehicleRate, error) {
	r, ok := m.vehicles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *memRepo) CreateVehicleRate(ctx context.Context, rate VehicleRate) (int64, error) {
	m.nextID++
	rate.ID = m.nextID
	m.vehicles[rate.ID] = rate
	return rate.ID, nil
}

func (m *memRepo) UpdateVehicleRate(ctx context.Context, rate VehicleRate) error {
	m.vehicles[rate.ID] = rate
	return nil
}

func (m *memRepo) DeleteVehicleRate(ctx context.Context, id int64) error {
	delete(m.vehicles, id)
	return nil
}

func (m *memRepo) ListTourRates(ctx context.Context, filter TourRateFilter) ([]TourRate, error) {
	var out []TourRate
	for _, r := range m.tours {
		if filter.TourID != nil && *filter.TourID != r.TourID {
			continue
		}
		if filter.SupplierID != nil && *filter.SupplierID != r.SupplierID {
			continue
		}
		out = append(out, r)
	}
	sortByValidFrom(out, func(r TourRate) int64 { return r.ID })
	return out, nil
}

func (m *memRepo) GetTourRate(ctx context.Context, id int64) (*TourRate, error) {
	r, ok := m.tours[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *memRepo) CreateTourRate(ctx context.Context, rate TourRate) (int64, error) {
	m.nextID++
	rate.ID = m.nextID
	m.tours[rate.ID] = rate
	return rate.ID, nil
}

func (m *memRepo) UpdateTourRate(ctx context.Context, rate TourRate) error {
	m.tours[rate.ID] = rate
	return nil
}

func (m *memRepo) DeleteTourRate(ctx context.Context, id int64) error {
	delete(m.tours, id)
	return nil
}

func hotelReq(season, from, to string) HotelRateRequest {
	return HotelRateRequest{
		SeasonName:            season,
		ValidFrom:             shared.MustParseDate(from),
		ValidTo:               shared.MustParseDate(to),
		PricePerPersonDouble:  60,
		PriceSingleSupplement: 25,
		PricePerPersonTriple:  50,
		Currency:              "eur",
	}
}

func TestCreateHotelRateRejectsOverlap(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	created, err := svc.CreateHotelRate(ctx, 1, hotelReq("summer", "2025-06-01", "2025-08-31"))
	require.NoError(t, err)
	assert.Equal(t, "EUR", created.Currency)

	_, err = svc.CreateHotelRate(ctx, 1, hotelReq("peak", "2025-08-15", "2025-09-15"))
	require.ErrorIs(t, err, ErrOverlap)
	assert.ErrorIs(t, err, httpx.ErrDuplicate)

	_, err = svc.CreateHotelRate(ctx, 2, hotelReq("peak", "2025-08-15", "2025-09-15"))
	assert.NoError(t, err, "other hotels are a different scope")
}

func TestCreateHotelRateRejectsInvertedPeriod(t *testing.T) {
	svc := NewService(newMemRepo())

	_, err := svc.CreateHotelRate(context.Background(), 1, hotelReq("bad", "2025-05-01", "2025-04-01"))
	var verr *httpx.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "valid_to")
}

func TestUpdateHotelRateKeepsOwnPeriod(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()
	created, err := svc.CreateHotelRate(ctx, 1, hotelReq("summer", "2025-06-01", "2025-08-31"))
	require.NoError(t, err)

	req := hotelReq("summer", "2025-06-01", "2025-09-10")
	req.PricePerPersonDouble = 70
	updated, err := svc.UpdateHotelRate(ctx, 1, created.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 70.0, updated.PricePerPersonDouble)

	_, err = svc.UpdateHotelRate(ctx, 2, created.ID, req)
	assert.ErrorIs(t, err, ErrNotFound, "rate belongs to another hotel")
}

func TestVehicleOverlapIsPerSupplier(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()
	req := VehicleRateRequest{
		SupplierID: 1, City: "Izmir", VehicleType: "sedan", SeasonName: "2025",
		ValidFrom: shared.MustParseDate("2025-01-01"), ValidTo: shared.MustParseDate("2025-12-31"),
		AirportPrice: 40, Currency: "EUR",
	}
	_, err := svc.CreateVehicleRate(ctx, req)
	require.NoError(t, err)

	req.SupplierID = 2
	_, err = svc.CreateVehicleRate(ctx, req)
	require.NoError(t, err)

	_, err = svc.CreateVehicleRate(ctx, req)
	assert.ErrorIs(t, err, ErrOverlap)
}

func TestTransferPriceUsesLineSupplier(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()
	req := VehicleRateRequest{
		SupplierID: 1, City: "Izmir", VehicleType: "sedan", SeasonName: "2025",
		ValidFrom: shared.MustParseDate("2025-01-01"), ValidTo: shared.MustParseDate("2025-12-31"),
		AirportPrice: 40, Currency: "EUR",
	}
	first, err := svc.CreateVehicleRate(ctx, req)
	require.NoError(t, err)
	req.SupplierID = 2
	req.AirportPrice = 90
	second, err := svc.CreateVehicleRate(ctx, req)
	require.NoError(t, err)

	supplier := int64(2)
	q, err := svc.TransferPrice(ctx, "Izmir", "sedan", &supplier, TransferAirport, day("2025-06-01"))
	require.NoError(t, err)
	assert.True(t, q.Found)
	assert.Equal(t, 90.0, q.UnitPrice)
	assert.Equal(t, second.ID, q.RateID)

	q, err = svc.TransferPrice(ctx, "Izmir", "sedan", nil, TransferAirport, day("2025-06-01"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, q.RateID)

	supplier = 3
	q, err = svc.TransferPrice(ctx, "Izmir", "sedan", &supplier, TransferAirport, day("2025-06-01"))
	require.NoError(t, err)
	assert.False(t, q.Found)

	q, err = svc.Quote(ctx, QuoteRequest{Kind: QuoteTransfer, Date: shared.MustParseDate("2025-06-01"),
		City: "Izmir", VehicleType: "sedan", TransferType: TransferAirport, SupplierID: 2})
	require.NoError(t, err)
	assert.Equal(t, 90.0, q.UnitPrice)
}

func TestTourOverlapIsPerPaxTier(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()
	req := TourRateRequest{
		TourID: 1, SupplierID: 1, SeasonName: "2025", MinPax: 1, MaxPax: 4, PricePerPerson: 90,
		ValidFrom: shared.MustParseDate("2025-01-01"), ValidTo: shared.MustParseDate("2025-12-31"), Currency: "EUR",
	}
	_, err := svc.CreateTourRate(ctx, req)
	require.NoError(t, err)

	req.MinPax, req.MaxPax = 5, 0
	_, err = svc.CreateTourRate(ctx, req)
	require.NoError(t, err)

	req.MinPax, req.MaxPax = 3, 6
	_, err = svc.CreateTourRate(ctx, req)
	assert.ErrorIs(t, err, ErrOverlap)

	req.MinPax, req.MaxPax = 8, 2
	_, err = svc.CreateTourRate(ctx, req)
	var verr *httpx.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestQuoteFallsBackWhenNoRate(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()
	_, err := svc.CreateHotelRate(ctx, 1, hotelReq("summer", "2025-06-01", "2025-08-31"))
	require.NoError(t, err)

	q, err := svc.Quote(ctx, QuoteRequest{Kind: QuoteHotel, Date: shared.MustParseDate("2025-07-01"), HotelID: 1, RoomType: RoomSingle})
	require.NoError(t, err)
	assert.True(t, q.Found)
	assert.Equal(t, 85.0, q.UnitPrice)
	assert.Equal(t, "summer", q.SeasonName)

	q, err = svc.Quote(ctx, QuoteRequest{Kind: QuoteHotel, Date: shared.MustParseDate("2025-12-01"), HotelID: 1})
	require.NoError(t, err)
	assert.False(t, q.Found)
	assert.Zero(t, q.UnitPrice)
}

func TestTransferPriceRejectsUnknownType(t *testing.T) {
	svc := NewService(newMemRepo())

	_, err := svc.TransferPrice(context.Background(), "Izmir", "sedan", nil, TransferType("boat"), day("2025-01-01"))
	assert.ErrorIs(t, err, httpx.ErrValidation)
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

func TestHandlerCreateAndQuote(t *testing.T) {
	svc := NewService(newMemRepo())
	router, token := newTestRouter(t, svc, shared.PermRatesEdit)

	body := `{"season_name":"summer","valid_from":"2025-06-01","valid_to":"2025-08-31",
		"price_per_person_double":60,"price_single_supplement":25,"price_per_person_triple":50,"currency":"EUR"}`
	req := httptest.NewRequest(http.MethodPost, "/hotels/4/seasonal-rates", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/hotels/4/seasonal-rates", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusConflict, res.Code)

	req = httptest.NewRequest(http.MethodGet, "/rates/quote?kind=hotel&date=2025-07-04&hotel_id=4&room_type=triple", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)

	var quote Quote
	require.NoError(t, json.NewDecoder(res.Body).Decode(&quote))
	assert.True(t, quote.Found)
	assert.Equal(t, 150.0, quote.UnitPrice)
}

func TestHandlerRequiresEditPermission(t *testing.T) {
	router, token := newTestRouter(t, NewService(newMemRepo()), shared.PermRatesView)

	req := httptest.NewRequest(http.MethodDelete, "/vehicle-rates/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	assert.Equal(t, http.StatusForbidden, res.Code)

	req = httptest.NewRequest(http.MethodGet, "/vehicle-rates?city=Izmir", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"data":[]}`, res.Body.String())
}

func TestHandlerValidationErrorsMap(t *testing.T) {
	router, token := newTestRouter(t, NewService(newMemRepo()), shared.PermRatesEdit)

	req := httptest.NewRequest(http.MethodPost, "/tour-rates", strings.NewReader(`{"currency":"EURO"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusBadRequest, res.Code)

	var problem httpx.ProblemDetail
	require.NoError(t, json.NewDecoder(res.Body).Decode(&problem))
	assert.Contains(t, problem.Errors, "tour_id")
	assert.Contains(t, problem.Errors, "currency")
	assert.Contains(t, problem.Errors, "valid_from")
}
