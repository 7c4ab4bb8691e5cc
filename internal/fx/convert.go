// Package fx converts amounts between currencies using an injected rate table.
package fx

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Table holds how many units of Base one unit of each currency is worth.
type Table struct {
	Base   string             `json:"base"`
	Rates  map[string]float64 `json:"rates"`
	AsOf   time.Time          `json:"as_of"`
	Source string             `json:"source"`
}

// NewTable normalises currency codes to upper case and drops non-positive rates.
func NewTable(base string, rates map[string]float64, asOf time.Time, source string) Table {
	base = normalize(base)
	clean := make(map[string]float64, len(rates)+1)
	for code, rate := range rates {
		if rate > 0 {
			clean[normalize(code)] = rate
		}
	}
	clean[base] = 1
	return Table{Base: base, Rates: clean, AsOf: asOf.UTC(), Source: source}
}

// Rate returns the base-currency value of one unit of currency.
func (t Table) Rate(currency string) (float64, bool) {
	code := normalize(currency)
	if code == t.Base {
		return 1, true
	}
	rate, ok := t.Rates[code]
	return rate, ok
}

// MissingRateError signals that no rate is known for a currency.
type MissingRateError struct {
	Currency string
	Base     string
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("fx: missing rate for %s against %s", e.Currency, e.Base)
}

// Converter applies a rate table to monetary amounts.
type Converter struct {
	table Table
}

// NewConverter constructs a converter instance.
func NewConverter(table Table) *Converter {
	return &Converter{table: table}
}

// Table exposes the rates in use.
func (c *Converter) Table() Table {
	return c.table
}

// Convert moves amount from one currency into another, rounded to cents.
func (c *Converter) Convert(amount float64, from, to string) (float64, error) {
	if normalize(from) == normalize(to) {
		return amount, nil
	}
	fromRate, ok := c.table.Rate(from)
	if !ok {
		return 0, &MissingRateError{Currency: normalize(from), Base: c.table.Base}
	}
	toRate, ok := c.table.Rate(to)
	if !ok {
		return 0, &MissingRateError{Currency: normalize(to), Base: c.table.Base}
	}
	return Round(amount * fromRate / toRate), nil
}

// ToBase converts amount into the table's base currency.
func (c *Converter) ToBase(amount float64, from string) (float64, error) {
	return c.Convert(amount, from, c.table.Base)
}

// Round rounds to two decimals.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
