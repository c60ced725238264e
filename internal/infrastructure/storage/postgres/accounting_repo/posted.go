package accounting_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/journal"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/ledger"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/infrastructure/storage/postgres"
)

// inLedger is the SQL form of journal.InLedger.
var inLedger = squirrel.Or{
	squirrel.Eq{"e.status": journal.StatusPosted},
	squirrel.And{
		squirrel.Eq{"e.status": journal.StatusReversed},
		squirrel.NotEq{"e.reversed_by": nil},
	},
}

// postedLines selects from journal lines joined to entries that count towards
// balances. Callers add columns, filters and grouping.
func postedLines(companyID id.ID) squirrel.SelectBuilder {
	return postgres.Builder().
		Select().
		From(linesTable + " l").
		Join(entriesTable + " e ON e.id = l.entry_id").
		Where(squirrel.Eq{"e.company_id": companyID}).
		Where(inLedger)
}

type accountSum struct {
	AccountID id.ID           `db:"account_id"`
	Debit     decimal.Decimal `db:"debit"`
	Credit    decimal.Decimal `db:"credit"`
}

func sumByAccount(ctx context.Context, q postgres.Querier, b squirrel.SelectBuilder) (map[id.ID]ledger.Totals, error) {
	sql, args, err := b.
		Columns("l.account_id", "COALESCE(SUM(l.debit), 0) AS debit", "COALESCE(SUM(l.credit), 0) AS credit").
		GroupBy("l.account_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []accountSum
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("sum posted lines: %w", err)
	}

	out := make(map[id.ID]ledger.Totals, len(rows))
	for _, row := range rows {
		out[row.AccountID] = ledger.Totals{Debit: row.Debit, Credit: row.Credit}
	}
	return out, nil
}
