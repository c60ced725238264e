package tax

import (
	"context"
	"strings"
	"time"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/types"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/costbasis"
)

// TxType is the kind of an imported crypto transaction.
type TxType string

const (
	TxTransferIn  TxType = "TRANSFER_IN"
	TxTransferOut TxType = "TRANSFER_OUT"
	TxSwap        TxType = "SWAP"
	TxClaimReward TxType = "CLAIM_REWARD"
	TxAirdrop     TxType = "AIRDROP"
	TxBuy         TxType = "BUY"
	TxSell        TxType = "SELL"
	TxStake       TxType = "STAKE"
	TxUnstake     TxType = "UNSTAKE"
)

// IsAcquisition reports whether the in-leg of t creates a lot.
func (t TxType) IsAcquisition() bool {
	switch t {
	case TxTransferIn, TxClaimReward, TxAirdrop:
		return true
	}
	return false
}

// IsDisposal reports whether the out-leg of t consumes lots.
func (t TxType) IsDisposal() bool {
	switch t {
	case TxTransferOut, TxSwap:
		return true
	}
	return false
}

// Transaction is an imported crypto movement with EUR prices already attached.
type Transaction struct {
	ID          string         `json:"id"`
	Type        TxType         `json:"type"`
	AssetIn     string         `json:"assetIn,omitempty"`
	AmountIn    types.Quantity `json:"amountIn"`
	PriceInEUR  types.Money    `json:"priceInEur"`
	AssetOut    string         `json:"assetOut,omitempty"`
	AmountOut   types.Quantity `json:"amountOut"`
	PriceOutEUR types.Money    `json:"priceOutEur"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Asset is a crypto asset registered for a company.
type Asset struct {
	Symbol   string `db:"symbol" json:"symbol"`
	Name     string `db:"name" json:"name"`
	Decimals int    `db:"decimals" json:"decimals"`
}

// TransactionSource supplies ordered transactions from the ingestion side.
type TransactionSource interface {
	// ListTransactions returns every transaction with Timestamp ≤ until,
	// ordered by timestamp then import order.
	ListTransactions(ctx context.Context, companyID id.ID, until time.Time) ([]Transaction, error)

	// GetAsset returns apperror NotFound for unknown symbols.
	GetAsset(ctx context.Context, companyID id.ID, symbol string) (*Asset, error)
}

// Histories splits transactions into per-asset acquisition/disposal histories.
// Only the in-leg of acquisitions and the out-leg of disposals count; other
// transaction types are ignored.
func Histories(txs []Transaction) []costbasis.History {
	acqs := make(map[string][]costbasis.Acquisition)
	var disposals []costbasis.Disposal

	for _, tx := range txs {
		if tx.Type.IsAcquisition() && tx.AssetIn != "" {
			symbol := normalizeSymbol(tx.AssetIn)
			acqs[symbol] = append(acqs[symbol], costbasis.Acquisition{
				TxID:             tx.ID,
				Quantity:         tx.AmountIn,
				CostBasisPerUnit: tx.PriceInEUR,
				Date:             tx.Timestamp,
				Source:           string(tx.Type),
			})
		}
		if tx.Type.IsDisposal() && tx.AssetOut != "" {
			disposals = append(disposals, costbasis.Disposal{
				ID:              tx.ID,
				AssetSymbol:     normalizeSymbol(tx.AssetOut),
				Quantity:        tx.AmountOut,
				ProceedsPerUnit: tx.PriceOutEUR,
				Date:            tx.Timestamp,
			})
		}
	}
	return costbasis.GroupByAsset(acqs, disposals)
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
