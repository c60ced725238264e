// Package reports aggregates posted journal lines into the trial balance,
// balance sheet, income statement and general ledger.
package reports

import (
	"time"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/types"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/ledger"
)

// Synthetic equity row of the balance sheet carrying all-time income minus
// expenses.
const (
	RetainedEarningsCode = "129"
	RetainedEarningsName = "Retained Earnings (Calculated)"
)

// Filter selects ledger lines. Nil bounds are open; From and To are
// inclusive, Before is exclusive.
type Filter struct {
	From         *time.Time
	To           *time.Time
	Before       *time.Time
	FiscalYearID *id.ID
}

// Period echoes the filter a report was built with.
type Period struct {
	From         *time.Time `json:"startDate"`
	To           *time.Time `json:"endDate"`
	FiscalYearID *id.ID     `json:"fiscalYearId,omitempty"`
}

// Row is one account line of a report.
type Row = ledger.Balance

// Section groups rows of one account type.
type Section struct {
	Rows  []Row       `json:"accounts"`
	Total types.Money `json:"total"`
}

func (s *Section) add(r Row) {
	s.Rows = append(s.Rows, r)
	s.Total = s.Total.Add(r.Balance)
}

// TrialBalance lists every active account with posted activity.
type TrialBalance struct {
	Rows        []Row       `json:"accounts"`
	TotalDebit  types.Money `json:"totalDebits"`
	TotalCredit types.Money `json:"totalCredits"`
	IsBalanced  bool        `json:"isBalanced"`
	Period      Period      `json:"period"`
	GeneratedAt time.Time   `json:"generatedAt"`
}

// BalanceSheet is the position of a company as of a date.
type BalanceSheet struct {
	AsOf                      time.Time   `json:"asOfDate"`
	Assets                    Section     `json:"assets"`
	Liabilities               Section     `json:"liabilities"`
	Equity                    Section     `json:"equity"`
	RetainedEarnings          types.Money `json:"retainedEarnings"`
	TotalLiabilitiesAndEquity types.Money `json:"totalLiabilitiesAndEquity"`
	IsBalanced                bool        `json:"isBalanced"`
	GeneratedAt               time.Time   `json:"generatedAt"`
}

// IncomeStatement is the result of a date range.
type IncomeStatement struct {
	Income      Section     `json:"income"`
	Expenses    Section     `json:"expenses"`
	NetIncome   types.Money `json:"netIncome"`
	Period      Period      `json:"period"`
	GeneratedAt time.Time   `json:"generatedAt"`
}

// PostedLine is one POSTED journal line with its entry header.
type PostedLine struct {
	EntryID     id.ID       `db:"entry_id" json:"entryId"`
	EntryNumber int64       `db:"entry_number" json:"entryNumber"`
	Date        time.Time   `db:"date" json:"date"`
	Description string      `db:"description" json:"description"`
	Reference   string      `db:"reference" json:"reference,omitempty"`
	Debit       types.Money `db:"debit" json:"debit"`
	Credit      types.Money `db:"credit" json:"credit"`
}

// Movement is a general ledger line with the balance after it.
type Movement struct {
	PostedLine
	RunningBalance types.Money `json:"runningBalance"`
}

// GeneralLedger lists the movements of one account.
type GeneralLedger struct {
	Account        ledger.Account `json:"account"`
	Movements      []Movement     `json:"entries"`
	OpeningBalance types.Money    `json:"openingBalance"`
	ClosingBalance types.Money    `json:"closingBalance"`
	TotalDebit     types.Money    `json:"totalDebits"`
	TotalCredit    types.Money    `json:"totalCredits"`
	Period         Period         `json:"period"`
	GeneratedAt    time.Time      `json:"generatedAt"`
}
