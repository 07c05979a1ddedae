package accounts

import (
	"context"
	"errors"
	"fmt"
)

// Store abstracts account lookups used by the directory.
type Store interface {
	GetAccount(ctx context.Context, id int64) (Account, error)
	GetSystemAccount(ctx context.Context, name string) (Account, error)
}

// Directory is the read-only lookup over the chart of accounts. It is the leaf
// dependency of the ledger, consolidation, and sale modules.
type Directory struct {
	store Store
}

// NewDirectory constructs the directory.
func NewDirectory(store Store) *Directory {
	return &Directory{store: store}
}

// Resolve fetches an account by id, failing fast when it does not exist.
func (d *Directory) Resolve(ctx context.Context, id int64) (Account, error) {
	if d == nil || d.store == nil {
		return Account{}, errors.New("accounts: directory not initialised")
	}
	if id == 0 {
		return Account{}, ErrAccountNotFound
	}
	account, err := d.store.GetAccount(ctx, id)
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// ResolveSystem fetches a well-known system account by name.
func (d *Directory) ResolveSystem(ctx context.Context, name string) (Account, error) {
	if d == nil || d.store == nil {
		return Account{}, errors.New("accounts: directory not initialised")
	}
	account, err := d.store.GetSystemAccount(ctx, name)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return Account{}, fmt.Errorf("%w: %s", ErrSystemAccountMissing, name)
		}
		return Account{}, err
	}
	return account, nil
}

// ResolveSystemAccounts resolves the full set of well-known accounts during
// tenant provisioning. Any missing account aborts startup.
func (d *Directory) ResolveSystemAccounts(ctx context.Context) (SystemAccounts, error) {
	var sys SystemAccounts
	lookups := []struct {
		name   string
		target *Account
	}{
		{SystemSalesRevenue, &sys.SalesRevenue},
		{SystemCOGS, &sys.COGS},
		{SystemInventoryAsset, &sys.InventoryAsset},
		{SystemTaxPayable, &sys.TaxPayable},
		{SystemCash, &sys.Cash},
		{SystemAccountsRecv, &sys.AccountsRecv},
	}
	for _, lookup := range lookups {
		account, err := d.ResolveSystem(ctx, lookup.name)
		if err != nil {
			return SystemAccounts{}, err
		}
		*lookup.target = account
	}
	return sys, nil
}
