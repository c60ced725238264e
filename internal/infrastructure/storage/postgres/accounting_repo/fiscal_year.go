package accounting_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/fiscal"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/infrastructure/storage/postgres"
)

const fiscalYearsTable = "fiscal_years"

var fiscalYearColumns = postgres.Columns[fiscal.FiscalYear]()

// FiscalYearRepo implements fiscal.Repository.
type FiscalYearRepo struct {
	txm *postgres.TxManager
}

// NewFiscalYearRepo creates a fiscal year repository.
func NewFiscalYearRepo(txm *postgres.TxManager) *FiscalYearRepo {
	return &FiscalYearRepo{txm: txm}
}

var _ fiscal.Repository = (*FiscalYearRepo)(nil)

func (r *FiscalYearRepo) selectYears(companyID id.ID) squirrel.SelectBuilder {
	return postgres.Builder().
		Select(fiscalYearColumns...).
		From(fiscalYearsTable).
		Where(squirrel.Eq{"company_id": companyID})
}

// Create inserts a fiscal year. The overlap EXCLUDE constraint and the name
// UNIQUE constraint back the service checks under concurrency.
func (r *FiscalYearRepo) Create(ctx context.Context, fy *fiscal.FiscalYear) error {
	sql, args, err := postgres.Builder().Insert(fiscalYearsTable).SetMap(postgres.Values(fy)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	_, err = r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	switch {
	case err == nil:
		return nil
	case postgres.IsUniqueViolation(err):
		return apperror.NewDuplicate("Fiscal year", "name", fy.Name)
	case postgres.IsExclusionViolation(err):
		return apperror.NewConflict("Fiscal year overlaps with existing fiscal year")
	default:
		return fmt.Errorf("insert fiscal year: %w", err)
	}
}

// Update writes a fiscal year with optimistic locking.
func (r *FiscalYearRepo) Update(ctx context.Context, fy *fiscal.FiscalYear) error {
	err := postgres.UpdateVersioned(ctx, r.txm.GetQuerier(ctx), fiscalYearsTable, "Fiscal year", fy.ID, fy.Version, fy)
	if postgres.IsExclusionViolation(err) {
		return apperror.NewConflict("Fiscal year overlaps with existing fiscal year")
	}
	return err
}

// Delete removes a fiscal year.
func (r *FiscalYearRepo) Delete(ctx context.Context, companyID, fiscalYearID id.ID) error {
	sql, args, err := postgres.Builder().
		Delete(fiscalYearsTable).
		Where(squirrel.Eq{"company_id": companyID, "id": fiscalYearID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return apperror.NewConflict("Cannot delete fiscal year with journal entries")
		}
		return fmt.Errorf("delete fiscal year: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("Fiscal year", fiscalYearID)
	}
	return nil
}

func (r *FiscalYearRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key any) (*fiscal.FiscalYear, error) {
	sql, args, err := q.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var fy fiscal.FiscalYear
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &fy, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("Fiscal year", key)
		}
		return nil, fmt.Errorf("get fiscal year: %w", err)
	}
	return &fy, nil
}

// GetByID returns one fiscal year.
func (r *FiscalYearRepo) GetByID(ctx context.Context, companyID, fiscalYearID id.ID) (*fiscal.FiscalYear, error) {
	return r.getOne(ctx, r.selectYears(companyID).Where(squirrel.Eq{"id": fiscalYearID}), fiscalYearID)
}

// GetForShare reads a year with FOR SHARE.
func (r *FiscalYearRepo) GetForShare(ctx context.Context, companyID, fiscalYearID id.ID) (*fiscal.FiscalYear, error) {
	return r.getLocked(ctx, companyID, fiscalYearID, "FOR SHARE")
}

// GetForUpdate reads a year with FOR UPDATE.
func (r *FiscalYearRepo) GetForUpdate(ctx context.Context, companyID, fiscalYearID id.ID) (*fiscal.FiscalYear, error) {
	return r.getLocked(ctx, companyID, fiscalYearID, "FOR UPDATE")
}

func (r *FiscalYearRepo) getLocked(ctx context.Context, companyID, fiscalYearID id.ID, lock string) (*fiscal.FiscalYear, error) {
	if r.txm.GetTx(ctx) == nil {
		return nil, fmt.Errorf("lock fiscal year: %w", postgres.ErrNoTransaction)
	}
	q := r.selectYears(companyID).Where(squirrel.Eq{"id": fiscalYearID}).Suffix(lock)
	return r.getOne(ctx, q, fiscalYearID)
}

// FindByDate returns the year whose range contains date.
func (r *FiscalYearRepo) FindByDate(ctx context.Context, companyID id.ID, date time.Time) (*fiscal.FiscalYear, error) {
	d := fiscal.DateOf(date)
	q := r.selectYears(companyID).
		Where(squirrel.LtOrEq{"start_date": d}).
		Where(squirrel.GtOrEq{"end_date": d})
	return r.getOne(ctx, q, d.Format(time.DateOnly))
}

// List returns all years, newest first.
func (r *FiscalYearRepo) List(ctx context.Context, companyID id.ID) ([]fiscal.FiscalYear, error) {
	return r.selectMany(ctx, r.selectYears(companyID))
}

// FindOverlapping returns years intersecting [start, end].
func (r *FiscalYearRepo) FindOverlapping(ctx context.Context, companyID id.ID, start, end time.Time, exclude *id.ID) ([]fiscal.FiscalYear, error) {
	q := r.selectYears(companyID).
		Where(squirrel.LtOrEq{"start_date": fiscal.DateOf(end)}).
		Where(squirrel.GtOrEq{"end_date": fiscal.DateOf(start)})
	if exclude != nil {
		q = q.Where(squirrel.NotEq{"id": *exclude})
	}
	return r.selectMany(ctx, q)
}

// ExistsByName reports whether another year already uses name.
func (r *FiscalYearRepo) ExistsByName(ctx context.Context, companyID id.ID, name string, exclude *id.ID) (bool, error) {
	q := postgres.Builder().
		Select("1").
		From(fiscalYearsTable).
		Where(squirrel.Eq{"company_id": companyID, "name": name})
	if exclude != nil {
		q = q.Where(squirrel.NotEq{"id": *exclude})
	}
	sql, args, err := q.Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}
	var exists bool
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check fiscal year name: %w", err)
	}
	return exists, nil
}

func (r *FiscalYearRepo) selectMany(ctx context.Context, q squirrel.SelectBuilder) ([]fiscal.FiscalYear, error) {
	sql, args, err := q.OrderBy("start_date DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []fiscal.FiscalYear
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list fiscal years: %w", err)
	}
	return out, nil
}
