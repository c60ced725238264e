package tax

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/types"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/costbasis"
	"github.com/Federicojaviermartino/crypto-erp-sub003/pkg/logger"
)

// Operation is the side of a simulated trade.
type Operation string

const (
	OperationBuy  Operation = "BUY"
	OperationSell Operation = "SELL"
)

// highGainThreshold triggers the "split across tax years" advice.
var highGainThreshold = decimal.NewFromInt(50000)

// PredictionInput describes a prospective trade.
type PredictionInput struct {
	CompanyID   id.ID
	AssetSymbol string
	Amount      types.Quantity
	PriceEUR    types.Money
	Operation   Operation
	// Date of the sale. Zero means now.
	Date time.Time
}

// Validate checks the input.
func (in PredictionInput) Validate() error {
	if strings.TrimSpace(in.AssetSymbol) == "" {
		return apperror.NewValidation("asset is required")
	}
	if !in.Amount.IsPositive() {
		return apperror.NewValidation("amount must be positive").WithDetail("amount", in.Amount.String())
	}
	if in.PriceEUR.IsNegative() {
		return apperror.NewValidation("price must not be negative").WithDetail("priceEur", in.PriceEUR.String())
	}
	switch in.Operation {
	case OperationBuy, OperationSell:
	default:
		return apperror.NewValidation("operation must be BUY or SELL").WithDetail("operation", string(in.Operation))
	}
	return nil
}

// LotPreview is one lot the simulated sale would consume.
type LotPreview struct {
	LotID            string         `json:"lotId"`
	AcquisitionDate  time.Time      `json:"acquisitionDate"`
	Quantity         types.Quantity `json:"quantity"`
	CostBasisPerUnit types.Money    `json:"costBasisPerUnit"`
	TotalCostBasis   types.Money    `json:"totalCostBasis"`
	Gain             types.Money    `json:"gainLoss"`
	HoldingDays      int            `json:"holdingPeriodDays"`
}

// Prediction is the estimated tax impact of a trade.
type Prediction struct {
	CapitalGain          types.Money     `json:"capitalGain"`
	TaxOwed              types.Money     `json:"taxOwed"`
	EffectiveTaxRate     decimal.Decimal `json:"effectiveTaxRate"`
	LotsConsumed         []LotPreview    `json:"lotsConsumed"`
	Recommendation       string          `json:"recommendation"`
	TotalProceeds        types.Money     `json:"totalProceeds"`
	TotalAcquisitionCost types.Money     `json:"totalAcquisitionCost"`
	UnmatchedQuantity    types.Quantity  `json:"unmatchedQuantity"`
}

// Predictor simulates trades against the current lot state without
// persisting anything.
type Predictor struct {
	source TransactionSource
	calc   *Calculator
	now    func() time.Time
}

// NewPredictor creates a predictor.
func NewPredictor(source TransactionSource, calc *Calculator) *Predictor {
	if calc == nil {
		calc = NewCalculator(nil)
	}
	return &Predictor{source: source, calc: calc, now: time.Now}
}

// Predict estimates the tax impact of in. Buys only add cost basis; sells
// consume the lots open at the sale date oldest-first.
func (p *Predictor) Predict(ctx context.Context, in PredictionInput) (*Prediction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Operation == OperationBuy {
		return buyPrediction(in), nil
	}

	symbol := normalizeSymbol(in.AssetSymbol)
	if _, err := p.source.GetAsset(ctx, in.CompanyID, symbol); err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("Crypto asset "+in.AssetSymbol, in.AssetSymbol).WithCause(err)
		}
		return nil, fmt.Errorf("get asset: %w", err)
	}

	at := in.Date
	if at.IsZero() {
		at = p.now()
	}

	txs, err := p.source.ListTransactions(ctx, in.CompanyID, at)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	book := costbasis.NewBook(symbol, nil)
	for _, h := range Histories(txs) {
		if h.AssetSymbol == symbol {
			book = costbasis.BuildLots(symbol, h.Acquisitions, h.Disposals)
			break
		}
	}

	pred := p.simulate(book.OpenLotsAt(at), in.Amount, in.PriceEUR, at)
	if pred.UnmatchedQuantity.IsPositive() {
		logger.Warn(ctx, "insufficient cost basis for prediction",
			"company_id", in.CompanyID, "asset", symbol, "missing", pred.UnmatchedQuantity.String())
	}
	logger.Info(ctx, "tax prediction",
		"company_id", in.CompanyID,
		"asset", symbol,
		"amount", in.Amount.String(),
		"capital_gain", pred.CapitalGain.StringFixed(2),
		"tax_owed", pred.TaxOwed.StringFixed(2))
	return pred, nil
}

func (p *Predictor) simulate(lots []costbasis.Lot, amount types.Quantity, price types.Money, at time.Time) *Prediction {
	used, shortfall := costbasis.Allocate(lots, amount)

	previews := make([]LotPreview, 0, len(used))
	for _, c := range used {
		cost := c.CostBasis()
		previews = append(previews, LotPreview{
			LotID:            c.LotID,
			AcquisitionDate:  c.AcquisitionDate,
			Quantity:         c.QuantityUsed,
			CostBasisPerUnit: c.CostBasisPerUnit,
			TotalCostBasis:   cost,
			Gain:             c.QuantityUsed.Mul(price).Sub(cost),
			HoldingDays:      HoldingDays(c.AcquisitionDate, at),
		})
	}

	proceeds := amount.Mul(price)
	cost := costbasis.TotalCostBasis(used)
	gain := proceeds.Sub(cost)

	schedule := p.calc.Schedule()
	pred := &Prediction{
		CapitalGain:          gain,
		TaxOwed:              schedule.Tax(gain),
		EffectiveTaxRate:     types.Percent(schedule.MarginalRate(gain)),
		LotsConsumed:         previews,
		TotalProceeds:        proceeds,
		TotalAcquisitionCost: cost,
		UnmatchedQuantity:    shortfall,
	}
	pred.Recommendation = p.recommend(previews, gain)
	return pred
}

func (p *Predictor) recommend(lots []LotPreview, gain types.Money) string {
	if len(lots) == 0 {
		return "No cost basis available. Consider adding purchase records for accurate tax calculation."
	}
	if !gain.IsPositive() {
		return fmt.Sprintf("This sale will result in a capital loss of %s EUR, which can offset other gains.",
			gain.Abs().StringFixed(2))
	}

	threshold := p.calc.LongTermDays()
	allShort, maxDays := true, 0
	for _, l := range lots {
		if l.HoldingDays >= threshold {
			allShort = false
		}
		if l.HoldingDays > maxDays {
			maxDays = l.HoldingDays
		}
	}
	if allShort {
		return fmt.Sprintf("All consumed lots are short-term (< 1 year). Consider waiting %d days for potential future tax benefits.",
			threshold-maxDays)
	}
	if gain.GreaterThan(highGainThreshold) {
		return fmt.Sprintf("High capital gain (%s EUR) will be taxed at higher brackets. Consider splitting the sale across multiple tax years.",
			gain.StringFixed(2))
	}
	return fmt.Sprintf("Capital gain of %s EUR will be taxed at %s%% marginal rate.",
		gain.StringFixed(2), types.Percent(p.calc.Schedule().MarginalRate(gain)).String())
}

func buyPrediction(in PredictionInput) *Prediction {
	rec := fmt.Sprintf("Buying %s %s at %s EUR will add to your cost basis. No immediate tax impact.",
		in.Amount.String(), in.AssetSymbol, in.PriceEUR.String())
	return &Prediction{
		CapitalGain:          decimal.Zero,
		TaxOwed:              decimal.Zero,
		EffectiveTaxRate:     decimal.Zero,
		LotsConsumed:         []LotPreview{},
		Recommendation:       rec,
		TotalProceeds:        decimal.Zero,
		TotalAcquisitionCost: in.Amount.Mul(in.PriceEUR),
		UnmatchedQuantity:    decimal.Zero,
	}
}
