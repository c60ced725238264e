package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
)

// immutableColumns are never written by UpdateVersioned.
var immutableColumns = []string{"id", "company_id", "created_at"}

// UpdateVersioned writes the db columns of v, which already carries its
// bumped version, to the row whose stored version is one lower. A missed
// row is reported as CONCURRENT_MODIFICATION.
func UpdateVersioned(ctx context.Context, q Querier, table, entity string, entityID id.ID, version int, v any) error {
	values := Values(v, immutableColumns...)

	sql, args, err := Builder().
		Update(table).
		SetMap(values).
		Where(squirrel.Eq{"id": entityID, "version": version - 1}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update %s: %w", table, err)
	}

	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(entity, entityID)
	}
	return nil
}
