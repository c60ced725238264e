// Package accounting_repo provides PostgreSQL implementations of the chart of
// accounts, fiscal year, journal and report repositories.
package accounting_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/ledger"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/infrastructure/storage/postgres"
)

const accountsTable = "accounts"

var accountColumns = postgres.Columns[ledger.Account]()

// AccountRepo implements ledger.Repository.
type AccountRepo struct {
	txm *postgres.TxManager
}

// NewAccountRepo creates an account repository.
func NewAccountRepo(txm *postgres.TxManager) *AccountRepo {
	return &AccountRepo{txm: txm}
}

var _ ledger.Repository = (*AccountRepo)(nil)

func (r *AccountRepo) selectAccounts(companyID id.ID) squirrel.SelectBuilder {
	return postgres.Builder().
		Select(accountColumns...).
		From(accountsTable).
		Where(squirrel.Eq{"company_id": companyID})
}

// Create inserts an account. A taken code is a DUPLICATE.
func (r *AccountRepo) Create(ctx context.Context, a *ledger.Account) error {
	sql, args, err := postgres.Builder().Insert(accountsTable).SetMap(postgres.Values(a)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("Account", "code", a.Code)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// Update writes an account with optimistic locking.
func (r *AccountRepo) Update(ctx context.Context, a *ledger.Account) error {
	return postgres.UpdateVersioned(ctx, r.txm.GetQuerier(ctx), accountsTable, "Account", a.ID, a.Version, a)
}

func (r *AccountRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key any) (*ledger.Account, error) {
	sql, args, err := q.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var a ledger.Account
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &a, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("Account", key)
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

// GetByID returns one account.
func (r *AccountRepo) GetByID(ctx context.Context, companyID, accountID id.ID) (*ledger.Account, error) {
	return r.getOne(ctx, r.selectAccounts(companyID).Where(squirrel.Eq{"id": accountID}), accountID)
}

// GetByCode returns one account by code.
func (r *AccountRepo) GetByCode(ctx context.Context, companyID id.ID, code string) (*ledger.Account, error) {
	return r.getOne(ctx, r.selectAccounts(companyID).Where(squirrel.Eq{"code": code}), code)
}

// ExistsByCode reports whether code is taken.
func (r *AccountRepo) ExistsByCode(ctx context.Context, companyID id.ID, code string) (bool, error) {
	sql, args, err := postgres.Builder().
		Select("1").
		From(accountsTable).
		Where(squirrel.Eq{"company_id": companyID, "code": code}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}
	var exists bool
	if err := r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check account code: %w", err)
	}
	return exists, nil
}

// ListByCodes returns the accounts matching codes; unknown codes are absent.
func (r *AccountRepo) ListByCodes(ctx context.Context, companyID id.ID, codes []string) ([]ledger.Account, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	return r.selectMany(ctx, r.selectAccounts(companyID).Where(squirrel.Eq{"code": codes}))
}

// List returns accounts ordered by code.
func (r *AccountRepo) List(ctx context.Context, companyID id.ID, filter ledger.ListFilter) ([]ledger.Account, error) {
	q := r.selectAccounts(companyID)
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"type": *filter.Type})
	}
	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"code": pattern},
		})
	}
	return r.selectMany(ctx, q)
}

func (r *AccountRepo) selectMany(ctx context.Context, q squirrel.SelectBuilder) ([]ledger.Account, error) {
	sql, args, err := q.OrderBy("code").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var out []ledger.Account
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out, nil
}

// SumPosted totals POSTED lines per account within period.
func (r *AccountRepo) SumPosted(ctx context.Context, companyID id.ID, accountIDs []id.ID, period ledger.Period) (map[id.ID]ledger.Totals, error) {
	if len(accountIDs) == 0 {
		return map[id.ID]ledger.Totals{}, nil
	}
	q := postedLines(companyID).Where(squirrel.Eq{"l.account_id": accountIDs})
	if period.From != nil {
		q = q.Where(squirrel.GtOrEq{"e.date": *period.From})
	}
	if period.To != nil {
		q = q.Where(squirrel.LtOrEq{"e.date": *period.To})
	}
	return sumByAccount(ctx, r.txm.GetQuerier(ctx), q)
}
