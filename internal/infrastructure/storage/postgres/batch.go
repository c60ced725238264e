package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrNoTransaction is returned by helpers that only work inside RunInTransaction.
var ErrNoTransaction = errors.New("operation requires a transaction in context")

// CopyRows bulk-inserts rows with the COPY protocol. Journal lines go through
// here so an entry and its lines land in the same transaction.
func (m *TxManager) CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	t := m.GetTx(ctx)
	if t == nil {
		return 0, fmt.Errorf("copy into %s: %w", table, ErrNoTransaction)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return t.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
}
