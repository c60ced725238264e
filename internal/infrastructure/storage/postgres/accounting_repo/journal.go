package accounting_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/fiscal"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/journal"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/infrastructure/storage/postgres"
)

const (
	entriesTable = "journal_entries"
	linesTable   = "journal_lines"
)

var (
	entryColumns = postgres.Columns[journal.Entry]()
	lineColumns  = postgres.Columns[journal.Line]()
)

// JournalRepo implements journal.Repository and fiscal.EntryCounter.
type JournalRepo struct {
	txm *postgres.TxManager
}

// NewJournalRepo creates a journal repository.
func NewJournalRepo(txm *postgres.TxManager) *JournalRepo {
	return &JournalRepo{txm: txm}
}

var (
	_ journal.Repository  = (*JournalRepo)(nil)
	_ fiscal.EntryCounter = (*JournalRepo)(nil)
)

// Create inserts the header, then copies the lines.
func (r *JournalRepo) Create(ctx context.Context, e *journal.Entry) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := postgres.Builder().Insert(entriesTable).SetMap(postgres.Values(e)).ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			if postgres.IsUniqueViolation(err) {
				return apperror.NewDuplicate("Journal entry", "number", fmt.Sprint(e.Number))
			}
			return fmt.Errorf("insert journal entry: %w", err)
		}
		return r.copyLines(ctx, e.Lines)
	})
}

func (r *JournalRepo) copyLines(ctx context.Context, lines []journal.Line) error {
	rows := make([][]any, len(lines))
	for i := range lines {
		v := postgres.Values(&lines[i])
		row := make([]any, len(lineColumns))
		for j, c := range lineColumns {
			row[j] = v[c]
		}
		rows[i] = row
	}
	if _, err := r.txm.CopyRows(ctx, linesTable, lineColumns, rows); err != nil {
		return fmt.Errorf("copy journal lines: %w", err)
	}
	return nil
}

// Update writes the header with optimistic locking.
func (r *JournalRepo) Update(ctx context.Context, e *journal.Entry) error {
	return postgres.UpdateVersioned(ctx, r.txm.GetQuerier(ctx), entriesTable, "Journal entry", e.ID, e.Version, e)
}

// ReplaceLines swaps all lines of an entry.
func (r *JournalRepo) ReplaceLines(ctx context.Context, entryID id.ID, lines []journal.Line) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := r.DeleteLines(ctx, entryID); err != nil {
			return err
		}
		return r.copyLines(ctx, lines)
	})
}

// DeleteLines removes every line of an entry.
func (r *JournalRepo) DeleteLines(ctx context.Context, entryID id.ID) error {
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, "DELETE FROM "+linesTable+" WHERE entry_id = $1", entryID); err != nil {
		return fmt.Errorf("delete journal lines: %w", err)
	}
	return nil
}

// Delete removes an entry header.
func (r *JournalRepo) Delete(ctx context.Context, companyID, entryID id.ID) error {
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx,
		"DELETE FROM "+entriesTable+" WHERE company_id = $1 AND id = $2", companyID, entryID)
	if err != nil {
		return fmt.Errorf("delete journal entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("Journal entry", entryID)
	}
	return nil
}

// GetByID returns an entry with its lines.
func (r *JournalRepo) GetByID(ctx context.Context, companyID, entryID id.ID) (*journal.Entry, error) {
	sql, args, err := postgres.Builder().
		Select(entryColumns...).
		From(entriesTable).
		Where(squirrel.Eq{"company_id": companyID, "id": entryID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var e journal.Entry
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &e, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("Journal entry", entryID)
		}
		return nil, fmt.Errorf("get journal entry: %w", err)
	}

	lines, err := r.loadLines(ctx, []id.ID{e.ID})
	if err != nil {
		return nil, err
	}
	e.Lines = lines[e.ID]
	return &e, nil
}

func (r *JournalRepo) loadLines(ctx context.Context, entryIDs []id.ID) (map[id.ID][]journal.Line, error) {
	out := make(map[id.ID][]journal.Line, len(entryIDs))
	if len(entryIDs) == 0 {
		return out, nil
	}
	sql, args, err := postgres.Builder().
		Select(lineColumns...).
		From(linesTable).
		Where(squirrel.Eq{"entry_id": entryIDs}).
		OrderBy("entry_id", "line_number").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []journal.Line
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("load journal lines: %w", err)
	}
	for _, l := range lines {
		out[l.EntryID] = append(out[l.EntryID], l)
	}
	return out, nil
}

// List returns a page of entries, newest first, with their lines.
func (r *JournalRepo) List(ctx context.Context, companyID id.ID, filter journal.ListFilter) (domain.ListResult[*journal.Entry], error) {
	result := domain.ListResult[*journal.Entry]{Limit: filter.Limit, Offset: filter.Offset}

	q := postgres.Builder().
		Select(entryColumns...).
		From(entriesTable).
		Where(squirrel.Eq{"company_id": companyID})
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.FiscalYearID != nil {
		q = q.Where(squirrel.Eq{"fiscal_year_id": *filter.FiscalYearID})
	}
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.To})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"description": pattern},
			squirrel.ILike{"reference": pattern},
		})
	}

	querier := r.txm.GetQuerier(ctx)
	countSQL, countArgs, err := postgres.Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count journal entries: %w", err)
	}

	sql, args, err := q.
		OrderBy("date DESC", "number DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("list journal entries: %w", err)
	}

	ids := make([]id.ID, len(result.Items))
	for i, e := range result.Items {
		ids[i] = e.ID
	}
	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return result, err
	}
	for _, e := range result.Items {
		e.Lines = lines[e.ID]
	}
	return result, nil
}

// EntryStats counts entries by status and totals POSTED lines of a fiscal year.
func (r *JournalRepo) EntryStats(ctx context.Context, companyID, fiscalYearID id.ID) (fiscal.EntryStats, error) {
	st := fiscal.EntryStats{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	querier := r.txm.GetQuerier(ctx)

	err := querier.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'DRAFT'),
		       COUNT(*) FILTER (WHERE status = 'POSTED'),
		       COUNT(*) FILTER (WHERE status = 'REVERSED'),
		       MIN(date), MAX(date)
		FROM `+entriesTable+`
		WHERE company_id = $1 AND fiscal_year_id = $2
	`, companyID, fiscalYearID).Scan(&st.Total, &st.Draft, &st.Posted, &st.Reversed, &st.FirstDate, &st.LastDate)
	if err != nil {
		return st, fmt.Errorf("count journal entries: %w", err)
	}

	sql, args, err := postedLines(companyID).
		Columns("COALESCE(SUM(l.debit), 0)", "COALESCE(SUM(l.credit), 0)").
		Where(squirrel.Eq{"e.fiscal_year_id": fiscalYearID}).
		ToSql()
	if err != nil {
		return st, fmt.Errorf("build query: %w", err)
	}
	if err := querier.QueryRow(ctx, sql, args...).Scan(&st.TotalDebit, &st.TotalCredit); err != nil {
		return st, fmt.Errorf("sum posted lines: %w", err)
	}
	return st, nil
}
