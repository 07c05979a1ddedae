package accounts

import (
	"errors"
	"time"
)

// AccountType enumerates chart of accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// IsValid reports whether the account type is a known category.
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// Account models a chart of accounts node. Accounts are created during tenant
// provisioning and never deleted while a journal line references them.
type Account struct {
	ID           int64
	Name         string
	Type         AccountType
	SubType      string
	IsInterCo    bool
	IsSystem     bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Well-known system account names resolved during provisioning.
const (
	SystemSalesRevenue   = "Sales Revenue"
	SystemCOGS           = "Cost of Goods Sold"
	SystemInventoryAsset = "Inventory Asset"
	SystemTaxPayable     = "Tax Payable"
	SystemCash           = "Cash"
	SystemAccountsRecv   = "Accounts Receivable"
)

var (
	// ErrAccountNotFound indicates a posting target does not exist. Fatal and
	// non-retryable: the tenant's chart of accounts is misconfigured.
	ErrAccountNotFound = errors.New("accounts: account not found")
	// ErrSystemAccountMissing indicates a well-known system account is absent.
	ErrSystemAccountMissing = errors.New("accounts: system account missing")
)

// SystemAccounts carries the tenant's well-known accounts, resolved once at
// startup and handed by reference to the ledger and sale orchestrator instead
// of being re-queried by name on every call.
type SystemAccounts struct {
	SalesRevenue   Account
	COGS           Account
	InventoryAsset Account
	TaxPayable     Account
	Cash           Account
	AccountsRecv   Account
}
