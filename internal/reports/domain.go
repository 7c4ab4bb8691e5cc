package reports

import (
	"fmt"
	"regexp"
	"time"

	"github.com/jinzhu/now"

	"github.com/odyssey-erp/odyssey-tours/internal/platform/httpx"
)

var periodRegex = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// maxRangeMonths caps monthly series requests.
const maxRangeMonths = 60

// MonthRange is an inclusive span of calendar months.
type MonthRange struct {
	From time.Time
	To   time.Time
}

// ParseMonthRange reads YYYY-MM bounds. Missing bounds default to January of
// the current year through the current month.
func ParseMonthRange(from, to string, clock time.Time) (MonthRange, error) {
	fields := httpx.FieldErrors{}
	rng := MonthRange{
		From: now.With(clock).BeginningOfYear(),
		To:   now.With(clock).BeginningOfMonth(),
	}
	if from != "" {
		if t, err := parsePeriod(from); err != nil {
			fields["from"] = err.Error()
		} else {
			rng.From = t
		}
	}
	if to != "" {
		if t, err := parsePeriod(to); err != nil {
			fields["to"] = err.Error()
		} else {
			rng.To = t
		}
	}
	if len(fields) == 0 {
		switch {
		case rng.To.Before(rng.From):
			fields["to"] = "must not be before from"
		case len(rng.Periods()) > maxRangeMonths:
			fields["to"] = fmt.Sprintf("range must not exceed %d months", maxRangeMonths)
		}
	}
	if err := httpx.NewValidationError(fields); err != nil {
		return MonthRange{}, err
	}
	return rng, nil
}

func parsePeriod(v string) (time.Time, error) {
	if !periodRegex.MatchString(v) {
		return time.Time{}, fmt.Errorf("must be YYYY-MM")
	}
	return time.ParseInLocation("2006-01", v, time.UTC)
}

// Start is the first day of the first month.
func (r MonthRange) Start() time.Time { return now.With(r.From).BeginningOfMonth() }

// End is the last day of the last month.
func (r MonthRange) End() time.Time {
	return now.With(r.To).EndOfMonth().Truncate(24 * time.Hour)
}

// Periods lists every YYYY-MM label in the range.
func (r MonthRange) Periods() []string {
	var out []string
	for m := r.Start(); !m.After(r.To); m = m.AddDate(0, 1, 0) {
		out = append(out, m.Format("2006-01"))
	}
	return out
}

func (r MonthRange) token() string {
	return r.From.Format("2006-01") + ":" + r.To.Format("2006-01")
}

// MonthlyPL is one month of profit and loss in the base currency.
type MonthlyPL struct {
	Period            string  `json:"period"`
	Bookings          int     `json:"bookings"`
	Revenue           float64 `json:"revenue"`
	CostOfSales       float64 `json:"cost_of_sales"`
	GrossProfit       float64 `json:"gross_profit"`
	OperatingExpenses float64 `json:"operating_expenses"`
	NetProfit         float64 `json:"net_profit"`
}

type PLReport struct {
	BaseCurrency string      `json:"base_currency"`
	Months       []MonthlyPL `json:"months"`
	Total        MonthlyPL   `json:"total"`
}

// CashFlowPoint is one month of cash movement. Balance runs from the opening
// balance carried into the range.
type CashFlowPoint struct {
	Period  string  `json:"period"`
	CashIn  float64 `json:"cash_in"`
	CashOut float64 `json:"cash_out"`
	Net     float64 `json:"net"`
	Balance float64 `json:"balance"`
}

type CashFlowReport struct {
	BaseCurrency   string          `json:"base_currency"`
	OpeningBalance float64         `json:"opening_balance"`
	Months         []CashFlowPoint `json:"months"`
	ClosingBalance float64         `json:"closing_balance"`
}

// Dimension selects how sales are grouped.
type Dimension string

const (
	ByClient  Dimension = "client"
	ByService Dimension = "service"
	ByStatus  Dimension = "status"
)

type SalesRow struct {
	Key       string  `json:"key"`
	Label     string  `json:"label"`
	Count     int     `json:"count"`
	Revenue   float64 `json:"revenue"`
	Cost      float64 `json:"cost"`
	Profit    float64 `json:"profit"`
	MarginPct float64 `json:"margin_pct"`
}

type SalesReport struct {
	Dimension    Dimension  `json:"dimension"`
	BaseCurrency string     `json:"base_currency"`
	Rows         []SalesRow `json:"rows"`
}

// Aging buckets by days past travel start.
const (
	Bucket0To30  = "0-30"
	Bucket31To60 = "31-60"
	Bucket61To90 = "61-90"
	BucketOver90 = "90+"
)

func agingBuckets() []string {
	return []string{Bucket0To30, Bucket31To60, Bucket61To90, BucketOver90}
}

// bucketFor places a day count in an aging bucket. Departures after the
// reference date count as zero days.
func bucketFor(days int) string {
	switch {
	case days <= 30:
		return Bucket0To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return BucketOver90
	}
}

// OutstandingItem is a booking with money still owed by the client or to suppliers.
// Amounts are in the booking currency.
type OutstandingItem struct {
	BookingID       int64     `json:"booking_id"`
	Reference       string    `json:"reference"`
	ClientName      string    `json:"client_name"`
	StartDate       time.Time `json:"start_date"`
	Currency        string    `json:"currency"`
	TotalSell       float64   `json:"total_sell"`
	AmountReceived  float64   `json:"amount_received"`
	ClientBalance   float64   `json:"client_balance"`
	SupplierPayable float64   `json:"supplier_payable"`
	DaysPast        int       `json:"days_past"`
	Bucket          string    `json:"bucket"`
}

// AgingBucket totals are in the base currency.
type AgingBucket struct {
	Bucket     string  `json:"bucket"`
	Receivable float64 `json:"receivable"`
	Payable    float64 `json:"payable"`
}

type OutstandingReport struct {
	AsOf            string            `json:"as_of"`
	BaseCurrency    string            `json:"base_currency"`
	Items           []OutstandingItem `json:"items"`
	Buckets         []AgingBucket     `json:"buckets"`
	TotalReceivable float64           `json:"total_receivable"`
	TotalPayable    float64           `json:"total_payable"`
}

// Dashboard is the landing page summary.
type Dashboard struct {
	AsOf            string        `json:"as_of"`
	BaseCurrency    string        `json:"base_currency"`
	CurrentMonth    MonthlyPL     `json:"current_month"`
	YearToDate      MonthlyPL     `json:"year_to_date"`
	CashBalance     float64       `json:"cash_balance"`
	TotalReceivable float64       `json:"total_receivable"`
	TotalPayable    float64       `json:"total_payable"`
	ByStatus        []SalesRow    `json:"by_status"`
	Aging           []AgingBucket `json:"aging"`
}
