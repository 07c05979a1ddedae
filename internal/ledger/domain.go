package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RefKind tags a source-document reference on a journal entry.
type RefKind string

const (
	RefKindSalesInvoice  RefKind = "SALES_INVOICE"
	RefKindPurchaseOrder RefKind = "PURCHASE_ORDER"
	RefKindRMA           RefKind = "RMA"
	RefKindPayment       RefKind = "PAYMENT"
	RefKindReversal      RefKind = "REVERSAL"
)

// IsValid reports whether the kind is known.
func (k RefKind) IsValid() bool {
	switch k {
	case RefKindSalesInvoice, RefKindPurchaseOrder, RefKindRMA, RefKindPayment, RefKindReversal:
		return true
	}
	return false
}

// Ref links a journal entry to the source document that produced it.
type Ref struct {
	Kind RefKind
	ID   string
}

// JournalStatus enumerates entry lifecycle values. Entries are immutable once
// posted; corrections are reversing entries.
type JournalStatus string

const (
	JournalStatusPosted   JournalStatus = "POSTED"
	JournalStatusReversed JournalStatus = "REVERSED"
)

// JournalEntry captures one accounting event.
type JournalEntry struct {
	ID          int64
	Number      int64
	EntityID    int64
	Description string
	Currency    string
	Date        time.Time
	Refs        []Ref
	Status      JournalStatus
	PostedBy    int64
	PostedAt    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Lines       []JournalLine
}

// JournalLine stores a single debit or credit against one account. Exactly one
// of Debit/Credit is non-zero. BaseAmount is the converted magnitude in the
// tenant's base currency.
type JournalLine struct {
	ID         int64
	JournalID  int64
	AccountID  int64
	Debit      decimal.Decimal
	Credit     decimal.Decimal
	BaseAmount decimal.Decimal
	CreatedAt  time.Time
}

// SignedBase returns the base-currency amount, debit positive, credit negative.
func (l JournalLine) SignedBase() decimal.Decimal {
	if l.Debit.IsPositive() {
		return l.BaseAmount
	}
	return l.BaseAmount.Neg()
}

// PostingLineInput describes one line of a posting request.
type PostingLineInput struct {
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	EntityID    int64
	Description string
	Currency    string
	Date        time.Time
	Refs        []Ref
	PostedBy    int64
	Lines       []PostingLineInput
}

// Epsilon is the tolerated rounding remainder, in base-currency units, when
// checking that debits equal credits.
var Epsilon = decimal.New(1, -9)

var (
	// ErrNoLines indicates an empty posting.
	ErrNoLines = errors.New("ledger: entry requires at least one line")
	// ErrEntryNotFound indicates a missing entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrAlreadyReversed indicates the entry was reversed before.
	ErrAlreadyReversed = errors.New("ledger: entry already reversed")
)

// UnbalancedEntryError reports the core invariant violation: debits and
// credits differ by more than Epsilon in base currency.
type UnbalancedEntryError struct {
	Debits    decimal.Decimal
	Credits   decimal.Decimal
	Imbalance decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("ledger: entry does not balance: debits %s, credits %s, imbalance %s",
		e.Debits.String(), e.Credits.String(), e.Imbalance.String())
}

// Validate performs the structural checks on a posting request. Currency
// conversion and the balance invariant are checked by the service after
// conversion to base currency.
func (in PostingInput) Validate() error {
	if in.EntityID == 0 {
		return errors.New("ledger: entity required")
	}
	if in.Description == "" {
		return errors.New("ledger: description required")
	}
	if in.Date.IsZero() {
		return errors.New("ledger: date required")
	}
	if len(in.Lines) == 0 {
		return ErrNoLines
	}
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("ledger: line %d missing account", idx)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("ledger: line %d negative amount", idx)
		}
		debitSet := line.Debit.IsPositive()
		creditSet := line.Credit.IsPositive()
		if debitSet == creditSet {
			return fmt.Errorf("ledger: line %d must set exactly one of debit or credit", idx)
		}
	}
	for idx, ref := range in.Refs {
		if !ref.Kind.IsValid() {
			return fmt.Errorf("ledger: ref %d has unknown kind %q", idx, ref.Kind)
		}
		if ref.ID == "" {
			return fmt.Errorf("ledger: ref %d missing id", idx)
		}
	}
	return nil
}
