package sale

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/benchline-erp/benchline/internal/payments"
)

// SagaState tracks how far a finalization got. Each state has a defined
// compensating action so a failure can be unwound deterministically.
type SagaState string

const (
	SagaStarted        SagaState = "STARTED"
	SagaStockReserved  SagaState = "STOCK_RESERVED"
	SagaInvoiceCreated SagaState = "INVOICE_CREATED"
	SagaPosted         SagaState = "POSTED"
	SagaPaid           SagaState = "PAID"
	SagaCommitted      SagaState = "COMMITTED"
)

// CartLine is one item being sold.
type CartLine struct {
	ProductVariantID int64
	Description      string
	Qty              int64
	UnitPrice        decimal.Decimal
	// Serial is required for serialized items, empty otherwise.
	Serial string
}

// LineTotal returns qty times unit price.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Qty))
}

// CartData is the items and tax of the sale. Tax is an absolute amount in the
// sale currency, already computed by the caller.
type CartData struct {
	Lines []CartLine
	Tax   decimal.Decimal
}

// Subtotal sums the line totals before tax.
func (c CartData) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// PaymentData is how the customer settles the sale.
type PaymentData struct {
	Lines []payments.PaymentLine
	Notes string
}

// Total sums the tender lines.
func (p PaymentData) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range p.Lines {
		total = total.Add(line.Amount)
	}
	return total
}

// FinalizeSaleInput groups everything the orchestrator needs.
type FinalizeSaleInput struct {
	Cart       CartData
	Payment    PaymentData
	CustomerID int64
	BranchID   int64
	EntityID   int64
	UserID     int64
	Date       time.Time
	// IdempotencyKey guards against double-finalizing the same cart. When
	// empty a key is derived from the cart contents.
	IdempotencyKey string
}

var (
	// ErrEmptyCart indicates a finalization with no items.
	ErrEmptyCart = errors.New("sale: cart is empty")
	// ErrPaymentShort indicates tender that does not cover the sale total.
	ErrPaymentShort = errors.New("sale: payment does not cover invoice total")
	// ErrDuplicateSale indicates the cart was already finalized.
	ErrDuplicateSale = errors.New("sale: cart already finalized")
)

// Validate checks structural requirements.
func (in FinalizeSaleInput) Validate() error {
	if len(in.Cart.Lines) == 0 {
		return ErrEmptyCart
	}
	if in.CustomerID == 0 || in.BranchID == 0 || in.EntityID == 0 {
		return errors.New("sale: customer, branch and entity required")
	}
	if in.Date.IsZero() {
		return errors.New("sale: date required")
	}
	for idx, line := range in.Cart.Lines {
		if line.ProductVariantID == 0 {
			return fmt.Errorf("sale: cart line %d missing variant", idx)
		}
		if line.Qty <= 0 {
			return fmt.Errorf("sale: cart line %d quantity must be positive", idx)
		}
		if line.UnitPrice.IsNegative() {
			return fmt.Errorf("sale: cart line %d price must not be negative", idx)
		}
	}
	if in.Cart.Tax.IsNegative() {
		return errors.New("sale: tax must not be negative")
	}
	if len(in.Payment.Lines) == 0 {
		return errors.New("sale: at least one payment line required")
	}
	for idx, line := range in.Payment.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("sale: payment line %d missing account", idx)
		}
		if !line.Amount.IsPositive() {
			return fmt.Errorf("sale: payment line %d amount must be positive", idx)
		}
	}
	total := in.Cart.Subtotal().Add(in.Cart.Tax)
	if in.Payment.Total().Cmp(total) < 0 {
		return ErrPaymentShort
	}
	return nil
}

// Key returns the idempotency key for the finalization, deriving one from the
// cart contents when the caller did not supply it.
func (in FinalizeSaleInput) Key() string {
	if in.IdempotencyKey != "" {
		return in.IdempotencyKey
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%d|%d|%s", in.CustomerID, in.BranchID, in.EntityID, in.Date.UTC().Format(time.RFC3339))
	for _, line := range in.Cart.Lines {
		fmt.Fprintf(&b, "|%d:%d:%s:%s", line.ProductVariantID, line.Qty, line.UnitPrice.String(), line.Serial)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
