package bookings

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-tours/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-tours/internal/pricing"
	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

func ptr[T any](v T) *T { return &v }

func hotelLine() pricing.HotelLine {
	return pricing.HotelLine{
		HotelID:      1,
		RoomType:     "DOUBLE",
		CheckIn:      shared.MustParseDate("2025-07-01"),
		CheckOut:     shared.MustParseDate("2025-07-04"),
		Rooms:        2,
		CostPerNight: 100,
		SellPrice:    900,
	}
}

func selfTour() pricing.TourLine {
	return pricing.TourLine{
		TourID:        3,
		TourDate:      shared.MustParseDate("2025-07-02"),
		OperationType: pricing.OperationSelf,
		GuideCost:     50,
		VehicleCost:   80,
		EntranceFees:  20,
		OtherCosts:    10,
		SellPrice:     200,
	}
}

func validDraft() Draft {
	return Draft{
		ClientID:  7,
		PaxCount:  2,
		StartDate: shared.MustParseDate("2025-07-01"),
		EndDate:   shared.MustParseDate("2025-07-05"),
		Currency:  "EUR",
		Lines: pricing.LineItems{
			Hotels: []pricing.HotelLine{hotelLine()},
			Tours:  []pricing.TourLine{selfTour()},
		},
		Passengers: []PassengerInput{{FullName: "Ana Lima", IsLead: true}, {FullName: "Rui Lima"}},
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	d := validDraft()
	next := Reduce(d, Add[pricing.FlightLine]{Item: pricing.FlightLine{Airline: "TP", CostPrice: 300, SellPrice: 350}})
	next = Reduce(next, Update[pricing.HotelLine]{Index: 0, Item: pricing.HotelLine{HotelID: 9}})

	assert.Empty(t, d.Lines.Flights)
	assert.Equal(t, int64(1), d.Lines.Hotels[0].HotelID)
	require.Len(t, next.Lines.Flights, 1)
	assert.Equal(t, int64(9), next.Lines.Hotels[0].HotelID)
}

func TestReduceRemoveAndOutOfRange(t *testing.T) {
	d := validDraft()
	same := Reduce(d, Remove[PassengerInput]{Index: 5})
	assert.Len(t, same.Passengers, 2)

	next := Reduce(d, Remove[PassengerInput]{Index: 0})
	require.Len(t, next.Passengers, 1)
	assert.Equal(t, "Rui Lima", next.Passengers[0].FullName)
	assert.Len(t, d.Passengers, 2)
}

func TestReduceScalarActions(t *testing.T) {
	d := Reduce(Draft{}, SetClient{ClientID: 4, ClientName: "  Atlas Travel "})
	d = Reduce(d, SetCurrency{Currency: " usd"})
	d = Reduce(d, SetPax{Count: 3})
	d = Reduce(d, SetStatus{Status: StatusQuoted})

	assert.Equal(t, int64(4), d.ClientID)
	assert.Equal(t, "Atlas Travel", d.ClientName)
	assert.Equal(t, "USD", d.Currency)
	assert.Equal(t, 3, d.PaxCount)
	assert.Equal(t, StatusQuoted, d.Status)
}

func TestSwitchTourOperationClearsSelfFields(t *testing.T) {
	d := validDraft()
	next := Reduce(d, SwitchTourOperation{Index: 0, Operation: pricing.OperationSupplier})

	tour := next.Lines.Tours[0]
	assert.Equal(t, pricing.OperationSupplier, tour.OperationType)
	assert.Zero(t, tour.GuideCost+tour.VehicleCost+tour.EntranceFees+tour.OtherCosts)
	assert.Equal(t, pricing.OperationSelf, d.Lines.Tours[0].OperationType)
}

func TestDraftTotals(t *testing.T) {
	totals := validDraft().Totals()
	assert.Equal(t, pricing.Totals{TotalSell: 1100, TotalCost: 760, GrossProfit: 340}, totals)

	amounts := validDraft().Amounts()
	require.Len(t, amounts.Hotels, 1)
	assert.Equal(t, pricing.Amounts{Cost: 600, Sell: 900, Margin: 300}, amounts.Hotels[0])
	assert.Equal(t, pricing.Amounts{Cost: 160, Sell: 200, Margin: 40}, amounts.Tours[0])
	assert.Empty(t, amounts.Flights)
}

func TestApplyActionsDecodesWireForm(t *testing.T) {
	line, err := json.Marshal(pricing.EntranceFeeLine{SiteName: "Jeronimos", Adults: 2, AdultRate: 10, SellPrice: 30})
	require.NoError(t, err)

	d, err := ApplyActions(validDraft(), []ActionRequest{
		{Type: "add_entrance_fee", Line: line},
		{Type: "remove_hotel", Index: 0},
		{Type: "switch_tour_operation", Index: 0, Operation: pricing.OperationSupplier},
		{Type: "set_pax", PaxCount: 4},
	})
	require.NoError(t, err)
	assert.Empty(t, d.Lines.Hotels)
	require.Len(t, d.Lines.EntranceFees, 1)
	assert.Equal(t, 20.0, d.Lines.EntranceFees[0].Compute().Cost)
	assert.Equal(t, pricing.OperationSupplier, d.Lines.Tours[0].OperationType)
	assert.Equal(t, 4, d.PaxCount)
}

func TestApplyActionsReportsBadActions(t *testing.T) {
	_, err := ApplyActions(Draft{}, []ActionRequest{
		{Type: "set_pax", PaxCount: 2},
		{Type: "launch_rocket"},
		{Type: "set_status", Status: "archived"},
		{Type: "add_hotel"},
	})
	var verr *httpx.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.NotContains(t, verr.Fields, "actions[0]")
	assert.Contains(t, verr.Fields, "actions[1]")
	assert.Contains(t, verr.Fields, "actions[2]")
	assert.Contains(t, verr.Fields, "actions[3]")
}

func TestValidateStepDetails(t *testing.T) {
	d := validDraft()
	assert.Empty(t, ValidateStep(d, StepDetails))

	d.ClientID = 0
	d.Currency = "EURO"
	d.EndDate = shared.MustParseDate("2025-06-01")
	fields := ValidateStep(d, StepDetails)
	assert.Contains(t, fields, "client_id")
	assert.Contains(t, fields, "currency")
	assert.Equal(t, "must not be before start_date", fields["end_date"])
}

func TestValidateStepServices(t *testing.T) {
	assert.Equal(t, "at least one service is required", ValidateStep(Draft{}, StepServices)["lines"])

	d := validDraft()
	d.Lines.Hotels[0].CheckOut = d.Lines.Hotels[0].CheckIn
	d.Lines.Tours = append(d.Lines.Tours, pricing.TourLine{
		TourID: 3, TourDate: shared.MustParseDate("2025-07-03"), OperationType: pricing.OperationSupplier,
	})
	fields := ValidateStep(d, StepServices)
	assert.Contains(t, fields, "hotels[0].check_out")
	assert.Contains(t, fields, "tours[1].supplier_id")

	d.Lines.Tours[1].SupplierID = ptr(int64(5))
	d.Lines.Hotels[0].CheckOut = shared.MustParseDate("2025-07-04")
	assert.Empty(t, ValidateStep(d, StepServices))
}

func TestValidateStepPassengers(t *testing.T) {
	d := validDraft()
	d.PaxCount = 1
	assert.Equal(t, "must not exceed pax_count", ValidateStep(d, StepPassengers)["passengers"])

	d.Passengers = nil
	assert.Contains(t, ValidateStep(d, StepPassengers), "passengers")

	d.PaxCount = 2
	d.Passengers = []PassengerInput{{FullName: ""}}
	assert.Contains(t, ValidateStep(d, StepPassengers), "passengers[0].full_name")
}

func TestValidateKeepsFailingStepsOnly(t *testing.T) {
	d := validDraft()
	assert.Empty(t, Validate(d))
	assert.NoError(t, ValidateDraft(d))

	d.Passengers = nil
	errs := Validate(d)
	require.Len(t, errs, 1)
	assert.Contains(t, errs, StepPassengers)
	assert.ErrorIs(t, ValidateDraft(d), httpx.ErrValidation)
}
