package consol

import (
	"github.com/shopspring/decimal"

	"github.com/benchline-erp/benchline/internal/accounts"
)

// COGS is the expense sub-type that separates cost of goods sold from
// operating expenses in the P&L.
const SubTypeCOGS = "COGS"

// ReportAccount is one account's contribution to a P&L section. Revenue and
// expense figures are reported positive.
type ReportAccount struct {
	AccountID   int64           `json:"accountId"`
	AccountName string          `json:"accountName"`
	Amount      decimal.Decimal `json:"amount"`
}

// ReportSection groups accounts under a total.
type ReportSection struct {
	Total    decimal.Decimal `json:"total"`
	Accounts []ReportAccount `json:"accounts"`
}

// ReportPeriod echoes the requested window.
type ReportPeriod struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// ProfitLossReport is the consolidated P&L built from a trial balance. All
// figures are base-currency decimals rounded to 2 places.
type ProfitLossReport struct {
	Period            ReportPeriod    `json:"period"`
	Revenue           ReportSection   `json:"revenue"`
	CostOfGoodsSold   ReportSection   `json:"costOfGoodsSold"`
	GrossProfit       decimal.Decimal `json:"grossProfit"`
	OperatingExpenses ReportSection   `json:"operatingExpenses"`
	NetProfit         decimal.Decimal `json:"netProfit"`
}

// BuildProfitLoss classifies trial balance lines into the P&L sections.
// Revenue accounts are credit-normal so their balances are negated for
// display; expense accounts are debit-normal and pass through.
func BuildProfitLoss(result TrialBalanceResult) ProfitLossReport {
	report := ProfitLossReport{
		Period: ReportPeriod{
			StartDate: result.StartDate.Format("2006-01-02"),
			EndDate:   result.EndDate.Format("2006-01-02"),
		},
		Revenue:           ReportSection{Total: decimal.Zero, Accounts: []ReportAccount{}},
		CostOfGoodsSold:   ReportSection{Total: decimal.Zero, Accounts: []ReportAccount{}},
		OperatingExpenses: ReportSection{Total: decimal.Zero, Accounts: []ReportAccount{}},
	}

	for _, line := range result.Lines {
		switch line.AccountType {
		case accounts.AccountTypeRevenue:
			amount := line.Balance.Neg().Round(2)
			report.Revenue.Accounts = append(report.Revenue.Accounts, ReportAccount{
				AccountID:   line.AccountID,
				AccountName: line.AccountName,
				Amount:      amount,
			})
			report.Revenue.Total = report.Revenue.Total.Add(amount)
		case accounts.AccountTypeExpense:
			amount := line.Balance.Round(2)
			entry := ReportAccount{AccountID: line.AccountID, AccountName: line.AccountName, Amount: amount}
			if line.AccountSubType == SubTypeCOGS {
				report.CostOfGoodsSold.Accounts = append(report.CostOfGoodsSold.Accounts, entry)
				report.CostOfGoodsSold.Total = report.CostOfGoodsSold.Total.Add(amount)
			} else {
				report.OperatingExpenses.Accounts = append(report.OperatingExpenses.Accounts, entry)
				report.OperatingExpenses.Total = report.OperatingExpenses.Total.Add(amount)
			}
		}
	}

	report.GrossProfit = report.Revenue.Total.Sub(report.CostOfGoodsSold.Total).Round(2)
	report.NetProfit = report.GrossProfit.Sub(report.OperatingExpenses.Total).Round(2)
	return report
}
