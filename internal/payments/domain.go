package payments

import (
	"time"

	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

// Kind tells client receipts from supplier disbursements.
type Kind string

const (
	KindClient   Kind = "client"
	KindSupplier Kind = "supplier"
)

func (k Kind) table() string {
	if k == KindSupplier {
		return "supplier_payments"
	}
	return "client_payments"
}

func (k Kind) prefix() string {
	if k == KindSupplier {
		return "SP"
	}
	return "CP"
}

// Payment is money received from a client or paid to a supplier against a
// booking. BookingAmount is Amount expressed in the booking currency.
type Payment struct {
	ID            int64       `json:"id"`
	Kind          Kind        `json:"kind"`
	Number        string      `json:"number"`
	BookingID     int64       `json:"booking_id"`
	SupplierID    *int64      `json:"supplier_id,omitempty"`
	Amount        float64     `json:"amount"`
	Currency      string      `json:"currency"`
	BookingAmount float64     `json:"booking_amount"`
	Method        string      `json:"method"`
	PaidAt        shared.Date `json:"paid_at"`
	Reference     string      `json:"reference,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	CreatedBy     int64       `json:"created_by,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// BookingRef is the slice of a booking payments need.
type BookingRef struct {
	ID             int64
	Currency       string
	TotalSellPrice float64
	AmountReceived float64
}

type PaymentRequest struct {
	BookingID int64       `json:"booking_id" validate:"required,gt=0"`
	Amount    float64     `json:"amount" validate:"gt=0"`
	Currency  string      `json:"currency" validate:"omitempty,len=3"`
	Method    string      `json:"method" validate:"required,oneof=cash bank_transfer card cheque other"`
	PaidAt    shared.Date `json:"paid_at" validate:"required"`
	Reference string      `json:"reference" validate:"max=100"`
	Notes     string      `json:"notes" validate:"max=1000"`
}

type SupplierPaymentRequest struct {
	PaymentRequest
	SupplierID int64 `json:"supplier_id" validate:"required,gt=0"`
}

type ListFilter struct {
	BookingID  *int64
	SupplierID *int64
	From       *time.Time
	To         *time.Time
}
