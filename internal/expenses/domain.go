package expenses

import (
	"time"

	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

// Category groups operating costs on the P&L.
type Category string

const (
	CategoryRent      Category = "rent"
	CategorySalaries  Category = "salaries"
	CategoryMarketing Category = "marketing"
	CategoryUtilities Category = "utilities"
	CategoryTransport Category = "transport"
	CategoryOffice    Category = "office"
	CategoryOther     Category = "other"
)

// Expense is an operating cost not tied to a booking line. BaseAmount is
// Amount converted into BaseCurrency when the expense was saved.
type Expense struct {
	ID           int64       `json:"id"`
	ExpenseDate  shared.Date `json:"expense_date"`
	Category     Category    `json:"category"`
	Description  string      `json:"description"`
	Vendor       string      `json:"vendor,omitempty"`
	Amount       float64     `json:"amount"`
	Currency     string      `json:"currency"`
	BaseAmount   float64     `json:"base_amount"`
	BaseCurrency string      `json:"base_currency"`
	Notes        string      `json:"notes,omitempty"`
	CreatedBy    int64       `json:"created_by,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type ExpenseRequest struct {
	ExpenseDate shared.Date `json:"expense_date" validate:"required"`
	Category    Category    `json:"category" validate:"required,oneof=rent salaries marketing utilities transport office other"`
	Description string      `json:"description" validate:"required,max=300"`
	Vendor      string      `json:"vendor" validate:"max=200"`
	Amount      float64     `json:"amount" validate:"gt=0"`
	Currency    string      `json:"currency" validate:"required,len=3"`
	Notes       string      `json:"notes" validate:"max=1000"`
}

type ListFilter struct {
	From     *time.Time
	To       *time.Time
	Category *Category
}
