package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchline-erp/benchline/internal/accounts"
	"github.com/benchline-erp/benchline/internal/consol"
)

type stubRepo struct {
	byEntity map[int64][]consol.AccountBalance
	err      error
}

func (s *stubRepo) AccountBalances(_ context.Context, entityID int64, _, _ time.Time) ([]consol.AccountBalance, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byEntity[entityID], nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestRouter(repo *stubRepo, strict bool) chi.Router {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	service := consol.NewService(repo, logger, consol.Config{StrictInterCompany: strict})
	r := chi.NewRouter()
	NewHandler(logger, service).Routes(r)
	return r
}

func postPL(t *testing.T, router chi.Router, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/accounting/reports/consolidated-pl", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestConsolidatedPLReport(t *testing.T) {
	repo := &stubRepo{byEntity: map[int64][]consol.AccountBalance{
		1: {
			{AccountID: 40, AccountName: "Sales Revenue", AccountType: accounts.AccountTypeRevenue, Amount: dec("-1000.00")},
			{AccountID: 50, AccountName: "Cost of Goods Sold", AccountType: accounts.AccountTypeExpense, AccountSubType: "COGS", Amount: dec("400.00")},
			{AccountID: 60, AccountName: "Rent", AccountType: accounts.AccountTypeExpense, Amount: dec("150.00")},
			{AccountID: 11, AccountName: "Accounts Receivable", AccountType: accounts.AccountTypeAsset, Amount: dec("450.00")},
		},
	}}
	router := newTestRouter(repo, false)

	rec := postPL(t, router, `{"entityIds":[1],"startDate":"2026-01-01","endDate":"2026-01-31"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var report consol.ProfitLossReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "2026-01-01", report.Period.StartDate)
	assert.True(t, report.Revenue.Total.Equal(dec("1000.00")), "revenue shown positive")
	assert.True(t, report.CostOfGoodsSold.Total.Equal(dec("400.00")))
	assert.True(t, report.GrossProfit.Equal(dec("600.00")))
	assert.True(t, report.OperatingExpenses.Total.Equal(dec("150.00")))
	assert.True(t, report.NetProfit.Equal(dec("450.00")))
}

func TestConsolidatedPLValidation(t *testing.T) {
	router := newTestRouter(&stubRepo{}, false)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"no entities", `{"entityIds":[],"startDate":"2026-01-01","endDate":"2026-01-31"}`},
		{"bad date", `{"entityIds":[1],"startDate":"January","endDate":"2026-01-31"}`},
		{"missing dates", `{"entityIds":[1]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postPL(t, router, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestConsolidatedPLInvalidRange(t *testing.T) {
	router := newTestRouter(&stubRepo{}, false)

	rec := postPL(t, router, `{"entityIds":[1],"startDate":"2026-02-01","endDate":"2026-01-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConsolidatedPLIntegrityFailure(t *testing.T) {
	repo := &stubRepo{byEntity: map[int64][]consol.AccountBalance{
		1: {{AccountID: 40, AccountName: "Sales Revenue", AccountType: accounts.AccountTypeRevenue, Amount: dec("-5.00")}},
	}}
	router := newTestRouter(repo, false)

	rec := postPL(t, router, `{"entityIds":[1],"startDate":"2026-01-01","endDate":"2026-01-31"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "Consolidation Integrity Failure", problem["title"])
}

func TestConsolidatedPLStrictInterCompanyConflict(t *testing.T) {
	repo := &stubRepo{byEntity: map[int64][]consol.AccountBalance{
		1: {
			{AccountID: 90, AccountName: "Intercompany Receivable", AccountType: accounts.AccountTypeAsset, IsInterCo: true, Amount: dec("75.00")},
			{AccountID: 10, AccountName: "Cash", AccountType: accounts.AccountTypeAsset, Amount: dec("-75.00")},
		},
	}}
	router := newTestRouter(repo, true)

	rec := postPL(t, router, `{"entityIds":[1],"startDate":"2026-01-01","endDate":"2026-01-31"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
