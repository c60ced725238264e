package accounting_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/ledger"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/reports"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txm *postgres.TxManager
}

// NewReportRepo creates a report repository.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{txm: txm}
}

var _ reports.Repository = (*ReportRepo)(nil)

func applyFilter(b squirrel.SelectBuilder, f reports.Filter) squirrel.SelectBuilder {
	if f.From != nil {
		b = b.Where(squirrel.GtOrEq{"e.date": *f.From})
	}
	if f.To != nil {
		b = b.Where(squirrel.LtOrEq{"e.date": *f.To})
	}
	if f.Before != nil {
		b = b.Where(squirrel.Lt{"e.date": *f.Before})
	}
	if f.FiscalYearID != nil {
		b = b.Where(squirrel.Eq{"e.fiscal_year_id": *f.FiscalYearID})
	}
	return b
}

// SumByAccount totals POSTED lines per account.
func (r *ReportRepo) SumByAccount(ctx context.Context, companyID id.ID, filter reports.Filter) (map[id.ID]ledger.Totals, error) {
	return sumByAccount(ctx, r.txm.GetQuerier(ctx), applyFilter(postedLines(companyID), filter))
}

// Lines returns POSTED lines of one account in ledger order.
func (r *ReportRepo) Lines(ctx context.Context, companyID, accountID id.ID, filter reports.Filter) ([]reports.PostedLine, error) {
	sql, args, err := applyFilter(postedLines(companyID), filter).
		Columns(
			"e.id AS entry_id",
			"e.number AS entry_number",
			"e.date",
			"e.description",
			"e.reference",
			"l.debit",
			"l.credit",
		).
		Where(squirrel.Eq{"l.account_id": accountID}).
		OrderBy("e.date", "e.number", "l.line_number").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []reports.PostedLine
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select ledger lines: %w", err)
	}
	return lines, nil
}
