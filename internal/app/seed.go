package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/fiscal"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/ledger"
	"github.com/Federicojaviermartino/crypto-erp-sub003/pkg/logger"
)

// DefaultChart is a subset of the Spanish general chart of accounts that
// covers the disposal posting accounts. Parents precede their children.
var DefaultChart = []ledger.CreateInput{
	{Code: "10", Name: "Capital", Type: ledger.Equity},
	{Code: "100", Name: "Share capital", Type: ledger.Equity, ParentCode: "10"},
	{Code: "25", Name: "Other long-term financial investments", Type: ledger.Asset},
	{Code: "250", Name: "Long-term equity investments (crypto assets)", Type: ledger.Asset, ParentCode: "25"},
	{Code: "40", Name: "Suppliers", Type: ledger.Liability},
	{Code: "400", Name: "Suppliers", Type: ledger.Liability, ParentCode: "40"},
	{Code: "43", Name: "Customers", Type: ledger.Asset},
	{Code: "430", Name: "Customers", Type: ledger.Asset, ParentCode: "43"},
	{Code: "57", Name: "Cash", Type: ledger.Asset},
	{Code: "572", Name: "Banks, current accounts", Type: ledger.Asset, ParentCode: "57"},
	{Code: "62", Name: "External services", Type: ledger.Expense},
	{Code: "626", Name: "Bank fees", Type: ledger.Expense, ParentCode: "62"},
	{Code: "629", Name: "Other services", Type: ledger.Expense, ParentCode: "62"},
	{Code: "66", Name: "Financial expenses", Type: ledger.Expense},
	{Code: "666", Name: "Losses on financial investments", Type: ledger.Expense, ParentCode: "66"},
	{Code: "70", Name: "Sales", Type: ledger.Income},
	{Code: "705", Name: "Services rendered", Type: ledger.Income, ParentCode: "70"},
	{Code: "76", Name: "Financial income", Type: ledger.Income},
	{Code: "766", Name: "Gains on financial investments", Type: ledger.Income, ParentCode: "76"},
}

// AccountCreator is satisfied by ledger.Service.
type AccountCreator interface {
	Create(ctx context.Context, companyID id.ID, in ledger.CreateInput) (*ledger.Account, error)
}

// FiscalYearCreator is satisfied by fiscal.Service.
type FiscalYearCreator interface {
	Create(ctx context.Context, companyID id.ID, in fiscal.CreateInput) (*fiscal.FiscalYear, error)
}

// SeedResult counts what Seed created and skipped.
type SeedResult struct {
	AccountsCreated   int
	AccountsSkipped   int
	FiscalYearCreated bool
}

// Seed creates the chart and the calendar fiscal year of year for a company.
// Records that already exist are skipped, so it can be re-run.
func Seed(ctx context.Context, accounts AccountCreator, years FiscalYearCreator, companyID id.ID, chart []ledger.CreateInput, year int) (SeedResult, error) {
	var res SeedResult
	for _, in := range chart {
		_, err := accounts.Create(ctx, companyID, in)
		switch {
		case err == nil:
			res.AccountsCreated++
		case apperror.IsConflict(err):
			res.AccountsSkipped++
		default:
			return res, fmt.Errorf("seed account %s: %w", in.Code, err)
		}
	}

	_, err := years.Create(ctx, companyID, fiscal.CreateInput{
		Name:      strconv.Itoa(year),
		StartDate: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
	})
	switch {
	case err == nil:
		res.FiscalYearCreated = true
	case apperror.IsConflict(err):
	default:
		return res, fmt.Errorf("seed fiscal year %d: %w", year, err)
	}

	logger.Info(ctx, "company seeded",
		"company_id", companyID,
		"accounts_created", res.AccountsCreated,
		"accounts_skipped", res.AccountsSkipped,
		"fiscal_year", year,
		"fiscal_year_created", res.FiscalYearCreated)
	return res, nil
}
