package invoicing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus enumerates invoice lifecycle values.
type InvoiceStatus string

const (
	InvoiceStatusIssued InvoiceStatus = "ISSUED"
	InvoiceStatusVoid   InvoiceStatus = "VOID"
)

// InvoiceLine is one sold item on an invoice.
type InvoiceLine struct {
	ID               int64
	InvoiceID        int64
	ProductVariantID int64
	Description      string
	Qty              int64
	UnitPrice        decimal.Decimal
	LineTotal        decimal.Decimal
	CostOfGoodsSold  decimal.Decimal
}

// Invoice is the persisted sales document. Number is server-assigned.
type Invoice struct {
	ID         int64
	Number     string
	CustomerID int64
	BranchID   int64
	Status     InvoiceStatus
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	IssuedBy   int64
	IssuedAt   time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Lines      []InvoiceLine
}

// CreateInput groups fields for invoice creation.
type CreateInput struct {
	CustomerID int64
	BranchID   int64
	IssuedBy   int64
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Lines      []InvoiceLine
}

var (
	// ErrInvoiceNotFound indicates a missing invoice.
	ErrInvoiceNotFound = errors.New("invoicing: invoice not found")
	// ErrNoLines indicates an invoice without lines.
	ErrNoLines = errors.New("invoicing: invoice requires at least one line")
	// ErrAlreadyVoid indicates a repeated void.
	ErrAlreadyVoid = errors.New("invoicing: invoice already void")
)

// Validate checks structural requirements of the creation input.
func (in CreateInput) Validate() error {
	if in.CustomerID == 0 || in.BranchID == 0 {
		return errors.New("invoicing: customer and branch required")
	}
	if len(in.Lines) == 0 {
		return ErrNoLines
	}
	for _, line := range in.Lines {
		if line.Qty <= 0 {
			return errors.New("invoicing: line quantity must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return errors.New("invoicing: line price must not be negative")
		}
	}
	return nil
}
