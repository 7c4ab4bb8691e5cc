package bookings

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/odyssey-erp/odyssey-tours/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-tours/internal/pricing"
	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

// Draft is the booking being assembled over the multi-step form. It is treated
// as a value: Reduce returns a new Draft and never mutates its input.
type Draft struct {
	ClientID   int64             `json:"client_id"`
	ClientName string            `json:"client_name,omitempty"`
	PaxCount   int               `json:"pax_count"`
	StartDate  shared.Date       `json:"start_date"`
	EndDate    shared.Date       `json:"end_date"`
	Currency   string            `json:"currency"`
	Status     Status            `json:"status,omitempty"`
	Notes      string            `json:"notes,omitempty"`
	Lines      pricing.LineItems `json:"lines"`
	Passengers []PassengerInput  `json:"passengers"`
}

// Totals aggregates the draft's lines.
func (d Draft) Totals() pricing.Totals {
	return pricing.Aggregate(d.Lines)
}

// Amounts computes every line in display order.
func (d Draft) Amounts() LineAmounts {
	return LineAmounts{
		Hotels:       computeAll(d.Lines.Hotels),
		Tours:        computeAll(d.Lines.Tours),
		Transfers:    computeAll(d.Lines.Transfers),
		Flights:      computeAll(d.Lines.Flights),
		EntranceFees: computeAll(d.Lines.EntranceFees),
	}
}

func computeAll[L interface{ Compute() pricing.Amounts }](lines []L) []pricing.Amounts {
	out := make([]pricing.Amounts, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Compute())
	}
	return out
}

func (d Draft) clone() Draft {
	d.Lines.Hotels = slices.Clone(d.Lines.Hotels)
	d.Lines.Tours = slices.Clone(d.Lines.Tours)
	d.Lines.Transfers = slices.Clone(d.Lines.Transfers)
	d.Lines.Flights = slices.Clone(d.Lines.Flights)
	d.Lines.EntranceFees = slices.Clone(d.Lines.EntranceFees)
	d.Passengers = slices.Clone(d.Passengers)
	return d
}

// DraftFromBooking loads a stored booking back into the form.
func DraftFromBooking(b Booking) Draft {
	d := Draft{
		ClientID:   b.ClientID,
		ClientName: b.ClientName,
		PaxCount:   b.PaxCount,
		StartDate:  b.StartDate,
		EndDate:    b.EndDate,
		Currency:   b.Currency,
		Status:     b.Status,
		Notes:      b.Notes,
		Lines:      b.LineItems(),
	}
	for _, p := range b.Passengers {
		d.Passengers = append(d.Passengers, p.PassengerInput)
	}
	return d
}

// Action is a state transition of the draft.
type Action interface {
	apply(Draft) Draft
}

// Reduce applies a to d and returns the resulting draft.
func Reduce(d Draft, a Action) Draft {
	if a == nil {
		return d
	}
	return a.apply(d.clone())
}

type SetClient struct {
	ClientID   int64
	ClientName string
}

func (a SetClient) apply(d Draft) Draft {
	d.ClientID = a.ClientID
	d.ClientName = strings.TrimSpace(a.ClientName)
	return d
}

type SetDates struct {
	Start shared.Date
	End   shared.Date
}

func (a SetDates) apply(d Draft) Draft {
	d.StartDate = a.Start
	d.EndDate = a.End
	return d
}

type SetPax struct {
	Count int
}

func (a SetPax) apply(d Draft) Draft {
	d.PaxCount = a.Count
	return d
}

type SetCurrency struct {
	Currency string
}

func (a SetCurrency) apply(d Draft) Draft {
	d.Currency = strings.ToUpper(strings.TrimSpace(a.Currency))
	return d
}

type SetNotes struct {
	Notes string
}

func (a SetNotes) apply(d Draft) Draft {
	d.Notes = a.Notes
	return d
}

type SetStatus struct {
	Status Status
}

func (a SetStatus) apply(d Draft) Draft {
	d.Status = a.Status
	return d
}

// SwitchTourOperation flips a tour between supplier and self operated,
// clearing the fields of the mode being left.
type SwitchTourOperation struct {
	Index     int
	Operation pricing.OperationType
}

func (a SwitchTourOperation) apply(d Draft) Draft {
	if a.Index < 0 || a.Index >= len(d.Lines.Tours) {
		return d
	}
	d.Lines.Tours[a.Index] = d.Lines.Tours[a.Index].SwitchOperation(a.Operation)
	return d
}

// Item is any list entry the draft holds.
type Item interface {
	pricing.HotelLine | pricing.TourLine | pricing.TransferLine | pricing.FlightLine | pricing.EntranceFeeLine | PassengerInput
}

func slot[T Item](d *Draft) *[]T {
	var zero T
	var p any
	switch any(zero).(type) {
	case pricing.HotelLine:
		p = &d.Lines.Hotels
	case pricing.TourLine:
		p = &d.Lines.Tours
	case pricing.TransferLine:
		p = &d.Lines.Transfers
	case pricing.FlightLine:
		p = &d.Lines.Flights
	case pricing.EntranceFeeLine:
		p = &d.Lines.EntranceFees
	case PassengerInput:
		p = &d.Passengers
	}
	return p.(*[]T)
}

// Add appends an item.
type Add[T Item] struct {
	Item T
}

func (a Add[T]) apply(d Draft) Draft {
	list := slot[T](&d)
	*list = append(*list, a.Item)
	return d
}

// Update replaces the item at Index. Out of range indexes are ignored.
type Update[T Item] struct {
	Index int
	Item  T
}

func (a Update[T]) apply(d Draft) Draft {
	list := slot[T](&d)
	if a.Index >= 0 && a.Index < len(*list) {
		(*list)[a.Index] = a.Item
	}
	return d
}

// Remove deletes the item at Index. Out of range indexes are ignored.
type Remove[T Item] struct {
	Index int
}

func (a Remove[T]) apply(d Draft) Draft {
	list := slot[T](&d)
	if a.Index >= 0 && a.Index < len(*list) {
		*list = slices.Delete(*list, a.Index, a.Index+1)
	}
	return d
}

// ActionRequest is the wire form of an Action, e.g.
// {"type":"add_hotel","line":{...}} or {"type":"remove_passenger","index":1}.
type ActionRequest struct {
	Type       string                `json:"type"`
	Index      int                   `json:"index,omitempty"`
	Line       json.RawMessage       `json:"line,omitempty"`
	ClientID   int64                 `json:"client_id,omitempty"`
	ClientName string                `json:"client_name,omitempty"`
	StartDate  shared.Date           `json:"start_date,omitempty"`
	EndDate    shared.Date           `json:"end_date,omitempty"`
	PaxCount   int                   `json:"pax_count,omitempty"`
	Currency   string                `json:"currency,omitempty"`
	Notes      string                `json:"notes,omitempty"`
	Status     Status                `json:"status,omitempty"`
	Operation  pricing.OperationType `json:"operation,omitempty"`
}

var errUnknownAction = errors.New("unknown action")

// DecodeAction turns a wire action into an Action.
func DecodeAction(req ActionRequest) (Action, error) {
	switch req.Type {
	case "set_client":
		return SetClient{ClientID: req.ClientID, ClientName: req.ClientName}, nil
	case "set_dates":
		return SetDates{Start: req.StartDate, End: req.EndDate}, nil
	case "set_pax":
		return SetPax{Count: req.PaxCount}, nil
	case "set_currency":
		return SetCurrency{Currency: req.Currency}, nil
	case "set_notes":
		return SetNotes{Notes: req.Notes}, nil
	case "set_status":
		if !req.Status.Valid() {
			return nil, fmt.Errorf("status %q: %w", req.Status, ErrInvalidStatus)
		}
		return SetStatus{Status: req.Status}, nil
	case "switch_tour_operation":
		if !req.Operation.Valid() {
			return nil, fmt.Errorf("operation %q: %w", req.Operation, errUnknownAction)
		}
		return SwitchTourOperation{Index: req.Index, Operation: req.Operation}, nil
	}

	verb, kind, ok := strings.Cut(req.Type, "_")
	if !ok {
		return nil, fmt.Errorf("%q: %w", req.Type, errUnknownAction)
	}
	switch kind {
	case "hotel":
		return decodeItem[pricing.HotelLine](verb, req)
	case "tour":
		return decodeItem[pricing.TourLine](verb, req)
	case "transfer":
		return decodeItem[pricing.TransferLine](verb, req)
	case "flight":
		return decodeItem[pricing.FlightLine](verb, req)
	case "entrance_fee":
		return decodeItem[pricing.EntranceFeeLine](verb, req)
	case "passenger":
		return decodeItem[PassengerInput](verb, req)
	}
	return nil, fmt.Errorf("%q: %w", req.Type, errUnknownAction)
}

func decodeItem[T Item](verb string, req ActionRequest) (Action, error) {
	if verb == "remove" {
		return Remove[T]{Index: req.Index}, nil
	}
	var item T
	if len(req.Line) == 0 {
		return nil, fmt.Errorf("%s: line is required: %w", req.Type, errUnknownAction)
	}
	if err := json.Unmarshal(req.Line, &item); err != nil {
		return nil, fmt.Errorf("%s: %w", req.Type, err)
	}
	switch verb {
	case "add":
		return Add[T]{Item: item}, nil
	case "update":
		return Update[T]{Index: req.Index, Item: item}, nil
	}
	return nil, fmt.Errorf("%q: %w", req.Type, errUnknownAction)
}

// ApplyActions decodes and reduces reqs in order. Decoding failures are
// reported per action index.
func ApplyActions(d Draft, reqs []ActionRequest) (Draft, error) {
	fields := httpx.FieldErrors{}
	for i, req := range reqs {
		action, err := DecodeAction(req)
		if err != nil {
			fields[fmt.Sprintf("actions[%d]", i)] = err.Error()
			continue
		}
		d = Reduce(d, action)
	}
	return d, httpx.NewValidationError(fields)
}

// Step names a page of the booking form.
type Step string

const (
	StepDetails    Step = "details"
	StepServices   Step = "services"
	StepPassengers Step = "passengers"
)

// Steps lists form steps in order.
func Steps() []Step {
	return []Step{StepDetails, StepServices, StepPassengers}
}

type detailsStep struct {
	ClientID  int64       `json:"client_id" validate:"required,gt=0"`
	PaxCount  int         `json:"pax_count" validate:"gte=1"`
	StartDate shared.Date `json:"start_date" validate:"required"`
	EndDate   shared.Date `json:"end_date" validate:"required"`
	Currency  string      `json:"currency" validate:"required,len=3"`
	Status    Status      `json:"status" validate:"omitempty,oneof=inquiry quoted confirmed cancelled completed"`
	Notes     string      `json:"notes" validate:"max=2000"`
}

type servicesStep struct {
	Hotels       []pricing.HotelLine       `json:"hotels" validate:"dive"`
	Tours        []pricing.TourLine        `json:"tours" validate:"dive"`
	Transfers    []pricing.TransferLine    `json:"transfers" validate:"dive"`
	Flights      []pricing.FlightLine      `json:"flights" validate:"dive"`
	EntranceFees []pricing.EntranceFeeLine `json:"entrance_fees" validate:"dive"`
}

type passengersStep struct {
	Passengers []PassengerInput `json:"passengers" validate:"dive"`
}

// ValidateStep validates one form step. The result is empty when the step is valid.
func ValidateStep(d Draft, step Step) httpx.FieldErrors {
	fields := httpx.FieldErrors{}
	switch step {
	case StepDetails:
		collect(fields, httpx.ValidateStruct(detailsStep{
			ClientID: d.ClientID, PaxCount: d.PaxCount, StartDate: d.StartDate, EndDate: d.EndDate,
			Currency: d.Currency, Status: d.Status, Notes: d.Notes,
		}))
		if !d.StartDate.IsZero() && !d.EndDate.IsZero() && d.EndDate.Before(d.StartDate.Time) {
			fields["end_date"] = "must not be before start_date"
		}
	case StepServices:
		if d.Lines.Len() == 0 {
			fields["lines"] = "at least one service is required"
			break
		}
		collect(fields, httpx.ValidateStruct(servicesStep{
			Hotels: d.Lines.Hotels, Tours: d.Lines.Tours, Transfers: d.Lines.Transfers,
			Flights: d.Lines.Flights, EntranceFees: d.Lines.EntranceFees,
		}))
		for i, h := range d.Lines.Hotels {
			if !h.CheckIn.IsZero() && !h.CheckOut.IsZero() && !h.CheckOut.After(h.CheckIn.Time) {
				fields[fmt.Sprintf("hotels[%d].check_out", i)] = "must be after check_in"
			}
		}
		for i, t := range d.Lines.Tours {
			if t.OperationType == pricing.OperationSupplier && t.SupplierID == nil {
				fields[fmt.Sprintf("tours[%d].supplier_id", i)] = "is required for supplier operated tours"
			}
		}
	case StepPassengers:
		switch {
		case len(d.Passengers) == 0:
			fields["passengers"] = "at least one passenger is required"
		case d.PaxCount > 0 && len(d.Passengers) > d.PaxCount:
			fields["passengers"] = "must not exceed pax_count"
		}
		collect(fields, httpx.ValidateStruct(passengersStep{Passengers: d.Passengers}))
	default:
		fields["step"] = "unknown step"
	}
	return fields
}

// Validate runs every step and keeps only the failing ones.
func Validate(d Draft) map[Step]httpx.FieldErrors {
	out := map[Step]httpx.FieldErrors{}
	for _, step := range Steps() {
		if fields := ValidateStep(d, step); len(fields) > 0 {
			out[step] = fields
		}
	}
	return out
}

// ValidateDraft flattens Validate into a single validation error.
func ValidateDraft(d Draft) error {
	merged := httpx.FieldErrors{}
	for _, fields := range Validate(d) {
		for k, v := range fields {
			merged[k] = v
		}
	}
	return httpx.NewValidationError(merged)
}

func collect(dst httpx.FieldErrors, err error) {
	if err == nil {
		return
	}
	var verr *httpx.ValidationError
	if errors.As(err, &verr) {
		for k, v := range verr.Fields {
			dst[k] = v
		}
		return
	}
	dst["_"] = err.Error()
}
