package consol

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/benchline-erp/benchline/internal/accounts"
)

// AccountBalance is one account's net signed movement for an entity over the
// report window, debit positive, credit negative, in base currency.
type AccountBalance struct {
	AccountID      int64
	AccountName    string
	AccountType    accounts.AccountType
	AccountSubType string
	IsInterCo      bool
	Amount         decimal.Decimal
}

// TrialBalanceLine is one external account in the consolidated trial balance.
// Derived, never persisted.
type TrialBalanceLine struct {
	AccountID      int64
	AccountName    string
	AccountType    accounts.AccountType
	AccountSubType string
	Balance        decimal.Decimal
}

// EliminationLine reports the residual balance of one intercompany account.
type EliminationLine struct {
	AccountID   int64
	AccountName string
	Balance     decimal.Decimal
}

// EliminationSummary nets the intercompany accounts removed from the external
// trial balance. A non-zero NetBalance means upstream postings were not
// created as matched pairs.
type EliminationSummary struct {
	NetBalance decimal.Decimal
	Accounts   []EliminationLine
}

// TrialBalanceResult is the output of a consolidation run.
type TrialBalanceResult struct {
	EntityIDs   []int64
	StartDate   time.Time
	EndDate     time.Time
	Lines       []TrialBalanceLine
	Elimination EliminationSummary
}

// Epsilon bounds the tolerated net drift of a consolidated trial balance, in
// base-currency units.
var Epsilon = decimal.New(1, -9)

var (
	// ErrNoEntities indicates an empty entity selection.
	ErrNoEntities = errors.New("consol: at least one entity required")
	// ErrInvalidRange indicates start after end.
	ErrInvalidRange = errors.New("consol: start date after end date")
)

// UnbalancedConsolidationError reports external trial balance drift: upstream
// entries were individually balanced yet the report does not net to zero, so a
// reporting bug has been introduced. Never emitted as a silent warning.
type UnbalancedConsolidationError struct {
	Net decimal.Decimal
}

func (e *UnbalancedConsolidationError) Error() string {
	return fmt.Sprintf("consol: external trial balance does not net to zero: %s", e.Net.String())
}

// InterCompanyImbalanceError reports an unmatched intercompany position. Only
// returned when the engine runs in strict mode; otherwise logged as a
// data-integrity warning.
type InterCompanyImbalanceError struct {
	Net decimal.Decimal
}

func (e *InterCompanyImbalanceError) Error() string {
	return fmt.Sprintf("consol: intercompany accounts do not net to zero: %s", e.Net.String())
}
