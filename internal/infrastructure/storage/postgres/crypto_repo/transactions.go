// Package crypto_repo provides PostgreSQL access to imported crypto
// transactions and stored tax report snapshots.
package crypto_repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/tax"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/infrastructure/storage/postgres"
)

const (
	transactionsTable = "crypto_transactions"
	assetsTable       = "crypto_assets"
)

type txRow struct {
	ID          string          `db:"id"`
	Type        string          `db:"type"`
	AssetIn     *string         `db:"asset_in"`
	AmountIn    decimal.Decimal `db:"amount_in"`
	PriceInEUR  decimal.Decimal `db:"price_in_eur"`
	AssetOut    *string         `db:"asset_out"`
	AmountOut   decimal.Decimal `db:"amount_out"`
	PriceOutEUR decimal.Decimal `db:"price_out_eur"`
	Timestamp   time.Time       `db:"timestamp"`
}

func (r txRow) toDomain() tax.Transaction {
	t := tax.Transaction{
		ID:          r.ID,
		Type:        tax.TxType(r.Type),
		AmountIn:    r.AmountIn,
		PriceInEUR:  r.PriceInEUR,
		AmountOut:   r.AmountOut,
		PriceOutEUR: r.PriceOutEUR,
		Timestamp:   r.Timestamp.UTC(),
	}
	if r.AssetIn != nil {
		t.AssetIn = *r.AssetIn
	}
	if r.AssetOut != nil {
		t.AssetOut = *r.AssetOut
	}
	return t
}

// TransactionSource implements tax.TransactionSource.
type TransactionSource struct {
	txm *postgres.TxManager
}

// NewTransactionSource creates a transaction source.
func NewTransactionSource(txm *postgres.TxManager) *TransactionSource {
	return &TransactionSource{txm: txm}
}

var _ tax.TransactionSource = (*TransactionSource)(nil)

// ListTransactions returns transactions up to until in import order.
func (s *TransactionSource) ListTransactions(ctx context.Context, companyID id.ID, until time.Time) ([]tax.Transaction, error) {
	sql, args, err := postgres.Builder().
		Select("id", "type", "asset_in", "amount_in", "price_in_eur", "asset_out", "amount_out", "price_out_eur", "timestamp").
		From(transactionsTable).
		Where(squirrel.Eq{"company_id": companyID}).
		Where(squirrel.LtOrEq{"timestamp": until}).
		OrderBy("timestamp", "seq").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []txRow
	if err := pgxscan.Select(ctx, s.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list crypto transactions: %w", err)
	}
	out := make([]tax.Transaction, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// GetAsset returns a registered asset by symbol, case-insensitively.
func (s *TransactionSource) GetAsset(ctx context.Context, companyID id.ID, symbol string) (*tax.Asset, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	sql, args, err := postgres.Builder().
		Select("symbol", "name", "decimals").
		From(assetsTable).
		Where(squirrel.Eq{"company_id": companyID, "symbol": symbol}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var a tax.Asset
	if err := pgxscan.Get(ctx, s.txm.GetQuerier(ctx), &a, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("Crypto asset", symbol)
		}
		return nil, fmt.Errorf("get crypto asset: %w", err)
	}
	return &a, nil
}
