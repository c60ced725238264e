package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/tx"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/types"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/ledger"
)

var tracer = otel.Tracer("crypto-erp/reports")

// Service provides report generation operations.
type Service struct {
	repo      Repository
	accounts  Accounts
	txManager tx.ReadOnlyManager
	now       func() time.Time
}

// NewService creates a new reports service.
func NewService(repo Repository, accounts Accounts) *Service {
	return &Service{repo: repo, accounts: accounts, txManager: tx.Nop{}, now: time.Now}
}

// WithTxManager makes every report read from a single read-only snapshot.
func (s *Service) WithTxManager(m tx.ReadOnlyManager) *Service {
	s.txManager = m
	return s
}

// TrialBalance lists active accounts with posted activity in the period.
func (s *Service) TrialBalance(ctx context.Context, companyID id.ID, filter Filter) (*TrialBalance, error) {
	ctx, span := s.start(ctx, "reports.TrialBalance", companyID)
	defer span.End()

	accounts, totals, err := s.load(ctx, companyID, filter, true)
	if err != nil {
		return nil, err
	}

	tb := &TrialBalance{
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
		Period:      Period{From: filter.From, To: filter.To, FiscalYearID: filter.FiscalYearID},
		GeneratedAt: s.now().UTC(),
	}
	for i := range accounts {
		t, ok := totals[accounts[i].ID]
		if !ok || t.IsZero() {
			continue
		}
		tb.Rows = append(tb.Rows, ledger.NewBalance(&accounts[i], t))
		tb.TotalDebit = tb.TotalDebit.Add(t.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(t.Credit)
	}
	tb.IsBalanced = balanced(tb.TotalDebit, tb.TotalCredit)
	return tb, nil
}

// BalanceSheet reports ASSET, LIABILITY and EQUITY balances as of asOf (now
// when zero). Net income of all time up to asOf is added to equity as a
// synthetic retained earnings row.
func (s *Service) BalanceSheet(ctx context.Context, companyID id.ID, asOf time.Time) (*BalanceSheet, error) {
	ctx, span := s.start(ctx, "reports.BalanceSheet", companyID)
	defer span.End()

	if asOf.IsZero() {
		asOf = s.now()
	}
	asOf = asOf.UTC()

	all, totals, err := s.load(ctx, companyID, Filter{To: &asOf}, false)
	if err != nil {
		return nil, err
	}

	bs := &BalanceSheet{
		AsOf:             asOf,
		Assets:           Section{Total: decimal.Zero},
		Liabilities:      Section{Total: decimal.Zero},
		Equity:           Section{Total: decimal.Zero},
		RetainedEarnings: decimal.Zero,
		GeneratedAt:      s.now().UTC(),
	}
	for i := range all {
		a := &all[i]
		t, ok := totals[a.ID]
		if !ok || t.IsZero() {
			continue
		}
		switch a.Type {
		case ledger.Income, ledger.Expense:
			// Inactive result accounts still count towards retained earnings.
			bs.RetainedEarnings = bs.RetainedEarnings.Add(ledger.SignedBalance(ledger.Income, t.Debit, t.Credit))
			continue
		}
		if !a.IsActive {
			continue
		}
		row := ledger.NewBalance(a, t)
		switch a.Type {
		case ledger.Asset:
			bs.Assets.add(row)
		case ledger.Liability:
			bs.Liabilities.add(row)
		case ledger.Equity:
			bs.Equity.add(row)
		}
	}

	if !bs.RetainedEarnings.IsZero() {
		re := Row{
			Code:    RetainedEarningsCode,
			Name:    RetainedEarningsName,
			Type:    ledger.Equity,
			Debit:   decimal.Zero,
			Credit:  decimal.Zero,
			Balance: bs.RetainedEarnings,
		}
		if bs.RetainedEarnings.IsNegative() {
			re.Debit = bs.RetainedEarnings.Abs()
		} else {
			re.Credit = bs.RetainedEarnings
		}
		bs.Equity.add(re)
	}

	bs.TotalLiabilitiesAndEquity = bs.Liabilities.Total.Add(bs.Equity.Total)
	bs.IsBalanced = balanced(bs.Assets.Total, bs.TotalLiabilitiesAndEquity)
	return bs, nil
}

// IncomeStatement reports INCOME and EXPENSE balances of [from, to].
func (s *Service) IncomeStatement(ctx context.Context, companyID id.ID, from, to time.Time) (*IncomeStatement, error) {
	if from.IsZero() || to.IsZero() {
		return nil, apperror.NewValidation("startDate and endDate are required")
	}
	if from.After(to) {
		return nil, apperror.NewValidation("startDate must not be after endDate")
	}

	ctx, span := s.start(ctx, "reports.IncomeStatement", companyID)
	defer span.End()

	accounts, totals, err := s.load(ctx, companyID, Filter{From: &from, To: &to}, true)
	if err != nil {
		return nil, err
	}

	is := &IncomeStatement{
		Income:      Section{Total: decimal.Zero},
		Expenses:    Section{Total: decimal.Zero},
		Period:      Period{From: &from, To: &to},
		GeneratedAt: s.now().UTC(),
	}
	for i := range accounts {
		a := &accounts[i]
		t, ok := totals[a.ID]
		if !ok || t.IsZero() {
			continue
		}
		switch a.Type {
		case ledger.Income:
			is.Income.add(ledger.NewBalance(a, t))
		case ledger.Expense:
			is.Expenses.add(ledger.NewBalance(a, t))
		}
	}
	is.NetIncome = is.Income.Total.Sub(is.Expenses.Total)
	return is, nil
}

// GeneralLedger lists the posted movements of one account with a running
// balance. The opening balance covers posted activity before filter.From.
func (s *Service) GeneralLedger(ctx context.Context, companyID, accountID id.ID, filter Filter) (*GeneralLedger, error) {
	ctx, span := s.start(ctx, "reports.GeneralLedger", companyID)
	defer span.End()

	var (
		acc     *ledger.Account
		lines   []PostedLine
		opening = decimal.Zero
	)
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		if acc, err = s.accounts.GetByID(ctx, companyID, accountID); err != nil {
			return err
		}
		if filter.From != nil {
			before, err := s.repo.SumByAccount(ctx, companyID, Filter{Before: filter.From})
			if err != nil {
				return fmt.Errorf("opening balance: %w", err)
			}
			opening = before[accountID].Balance(acc.Type)
		}
		if lines, err = s.repo.Lines(ctx, companyID, accountID, Filter{From: filter.From, To: filter.To}); err != nil {
			return fmt.Errorf("ledger lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	gl := &GeneralLedger{
		Account:        *acc,
		Movements:      make([]Movement, 0, len(lines)),
		OpeningBalance: opening,
		TotalDebit:     decimal.Zero,
		TotalCredit:    decimal.Zero,
		Period:         Period{From: filter.From, To: filter.To},
		GeneratedAt:    s.now().UTC(),
	}
	running := opening
	for _, l := range lines {
		running = running.Add(ledger.SignedBalance(acc.Type, l.Debit, l.Credit))
		gl.Movements = append(gl.Movements, Movement{PostedLine: l, RunningBalance: running})
		gl.TotalDebit = gl.TotalDebit.Add(l.Debit)
		gl.TotalCredit = gl.TotalCredit.Add(l.Credit)
	}
	gl.ClosingBalance = running
	return gl, nil
}

// load returns accounts ordered by code with their posted totals.
func (s *Service) load(ctx context.Context, companyID id.ID, filter Filter, activeOnly bool) ([]ledger.Account, map[id.ID]ledger.Totals, error) {
	var (
		accounts []ledger.Account
		totals   map[id.ID]ledger.Totals
	)
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		if accounts, err = s.accounts.List(ctx, companyID, ledger.ListFilter{ActiveOnly: activeOnly}); err != nil {
			return fmt.Errorf("list accounts: %w", err)
		}
		if totals, err = s.repo.SumByAccount(ctx, companyID, filter); err != nil {
			return fmt.Errorf("sum posted lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	return accounts, totals, nil
}

func (s *Service) start(ctx context.Context, name string, companyID id.ID) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("company.id", companyID.String())))
}

// balanced reports |a − b| < 0.01.
func balanced(a, b types.Money) bool {
	return a.Sub(b).Abs().LessThan(types.ReportTolerance)
}
