package payments

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Direction says which way money moves.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// SourceType tags the document a payment settles.
type SourceType string

const (
	SourceSalesInvoice  SourceType = "SALES_INVOICE"
	SourcePurchaseOrder SourceType = "PURCHASE_ORDER"
)

// PaymentLine is one tender against the source document. AccountID is the
// cash or bank account the money lands on.
type PaymentLine struct {
	Method    string
	AccountID int64
	Amount    decimal.Decimal
}

// PaymentRecord is the persisted payment with its ledger entry id.
type PaymentRecord struct {
	ID             int64
	SourceID       string
	SourceType     SourceType
	Direction      Direction
	Total          decimal.Decimal
	JournalEntryID int64
	Notes          string
	PaidAt         time.Time
	CreatedAt      time.Time
	Lines          []PaymentLine
}

// RecordInput groups fields for recording a payment.
type RecordInput struct {
	SourceID   string
	SourceType SourceType
	Direction  Direction
	Lines      []PaymentLine
	Date       time.Time
	Notes      string
	// CounterAccountID is the settlement side of the posting, e.g. the
	// customer's receivable account for an inbound invoice payment.
	CounterAccountID int64
	EntityID         int64
	ActorID          int64
}

var (
	// ErrNoPaymentLines indicates an empty tender list.
	ErrNoPaymentLines = errors.New("payments: at least one payment line required")
	// ErrInvalidAmount indicates a non-positive tender amount.
	ErrInvalidAmount = errors.New("payments: amount must be positive")
	// ErrPaymentNotFound indicates a missing record.
	ErrPaymentNotFound = errors.New("payments: payment not found")
)

// Validate checks structural requirements.
func (in RecordInput) Validate() error {
	if in.SourceID == "" {
		return errors.New("payments: source id required")
	}
	if in.Direction != DirectionIn && in.Direction != DirectionOut {
		return errors.New("payments: direction must be IN or OUT")
	}
	if in.CounterAccountID == 0 {
		return errors.New("payments: counter account required")
	}
	if in.EntityID == 0 {
		return errors.New("payments: entity required")
	}
	if in.Date.IsZero() {
		return errors.New("payments: date required")
	}
	if len(in.Lines) == 0 {
		return ErrNoPaymentLines
	}
	for _, line := range in.Lines {
		if line.AccountID == 0 {
			return errors.New("payments: line missing account")
		}
		if !line.Amount.IsPositive() {
			return ErrInvalidAmount
		}
	}
	return nil
}

// Total sums the tender lines.
func (in RecordInput) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, line := range in.Lines {
		total = total.Add(line.Amount)
	}
	return total
}
