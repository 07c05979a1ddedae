package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	byID   map[int64]Account
	byName map[string]Account
	err    error
}

func (s *stubStore) GetAccount(_ context.Context, id int64) (Account, error) {
	if s.err != nil {
		return Account{}, s.err
	}
	account, ok := s.byID[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (s *stubStore) GetSystemAccount(_ context.Context, name string) (Account, error) {
	if s.err != nil {
		return Account{}, s.err
	}
	account, ok := s.byName[name]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func systemChart() map[string]Account {
	chart := make(map[string]Account)
	names := []string{
		SystemSalesRevenue, SystemCOGS, SystemInventoryAsset,
		SystemTaxPayable, SystemCash, SystemAccountsRecv,
	}
	for i, name := range names {
		chart[name] = Account{ID: int64(i + 1), Name: name, IsSystem: true, IsActive: true}
	}
	return chart
}

func TestResolveAccount(t *testing.T) {
	dir := NewDirectory(&stubStore{byID: map[int64]Account{
		7: {ID: 7, Name: "Petty Cash", Type: AccountTypeAsset, IsActive: true},
	}})

	account, err := dir.Resolve(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Petty Cash", account.Name)

	_, err = dir.Resolve(context.Background(), 99)
	require.ErrorIs(t, err, ErrAccountNotFound)

	_, err = dir.Resolve(context.Background(), 0)
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestResolveSystemWrapsMissing(t *testing.T) {
	dir := NewDirectory(&stubStore{byName: systemChart()})

	account, err := dir.ResolveSystem(context.Background(), SystemCash)
	require.NoError(t, err)
	assert.True(t, account.IsSystem)

	_, err = dir.ResolveSystem(context.Background(), "Slush Fund")
	require.ErrorIs(t, err, ErrSystemAccountMissing)
	assert.Contains(t, err.Error(), "Slush Fund")
}

func TestResolveSystemAccounts(t *testing.T) {
	dir := NewDirectory(&stubStore{byName: systemChart()})

	sys, err := dir.ResolveSystemAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SystemSalesRevenue, sys.SalesRevenue.Name)
	assert.Equal(t, SystemCOGS, sys.COGS.Name)
	assert.Equal(t, SystemAccountsRecv, sys.AccountsRecv.Name)
	assert.NotZero(t, sys.InventoryAsset.ID)
}

func TestResolveSystemAccountsMissingAborts(t *testing.T) {
	chart := systemChart()
	delete(chart, SystemTaxPayable)
	dir := NewDirectory(&stubStore{byName: chart})

	_, err := dir.ResolveSystemAccounts(context.Background())
	require.ErrorIs(t, err, ErrSystemAccountMissing)
}

func TestResolvePropagatesStoreError(t *testing.T) {
	storeErr := errors.New("connection reset")
	dir := NewDirectory(&stubStore{err: storeErr})

	_, err := dir.Resolve(context.Background(), 7)
	require.ErrorIs(t, err, storeErr)

	_, err = dir.ResolveSystem(context.Background(), SystemCash)
	require.ErrorIs(t, err, storeErr)
}

func TestAccountTypeIsValid(t *testing.T) {
	assert.True(t, AccountTypeRevenue.IsValid())
	assert.True(t, AccountTypeExpense.IsValid())
	assert.False(t, AccountType("PROFIT").IsValid())
}
