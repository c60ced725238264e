package tax

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/types"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/costbasis"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func m(s string) decimal.Decimal { return types.MustMoney(s) }

// fakeSource is an in-memory TransactionSource.
type fakeSource struct {
	assets map[string]Asset
	txs    []Transaction
	err    error
}

func (f *fakeSource) ListTransactions(_ context.Context, _ id.ID, until time.Time) ([]Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []Transaction
	for _, tx := range f.txs {
		if !tx.Timestamp.After(until) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (f *fakeSource) GetAsset(_ context.Context, _ id.ID, symbol string) (*Asset, error) {
	a, ok := f.assets[symbol]
	if !ok {
		return nil, apperror.NewNotFound("Asset", symbol)
	}
	return &a, nil
}

func btcSource() *fakeSource {
	return &fakeSource{
		assets: map[string]Asset{
			"BTC": {Symbol: "BTC", Name: "Bitcoin", Decimals: 8},
			"ETH": {Symbol: "ETH", Name: "Ether", Decimals: 18},
		},
		txs: []Transaction{
			{ID: "b1", Type: TxTransferIn, AssetIn: "btc", AmountIn: m("1"), PriceInEUR: m("20000"), Timestamp: day("2023-01-01")},
			{ID: "b2", Type: TxTransferIn, AssetIn: "BTC", AmountIn: m("1"), PriceInEUR: m("30000"), Timestamp: day("2023-06-01")},
			{ID: "e1", Type: TxAirdrop, AssetIn: "ETH", AmountIn: m("10"), PriceInEUR: m("1000"), Timestamp: day("2023-02-01")},
			{ID: "e2", Type: TxTransferOut, AssetOut: "ETH", AmountOut: m("4"), PriceOutEUR: m("800"), Timestamp: day("2023-11-01")},
			{ID: "s1", Type: TxTransferOut, AssetOut: "BTC", AmountOut: m("1.5"), PriceOutEUR: m("40000"), Timestamp: day("2024-02-01")},
			{ID: "x1", Type: TxStake, AssetOut: "ETH", AmountOut: m("1"), Timestamp: day("2024-03-01")},
		},
	}
}

func TestSchedule_Tax(t *testing.T) {
	s := DefaultSchedule()

	tests := []struct {
		gain string
		want string
	}{
		{"0", "0"},
		{"-100", "0"},
		{"5000", "950"},
		{"6000", "1140"},
		{"60000", "12680"},
		{"250000", "58380"},
		{"400000", "99880"},
	}
	for _, tt := range tests {
		t.Run(tt.gain, func(t *testing.T) {
			got := s.Tax(m(tt.gain))
			assert.True(t, got.Equal(m(tt.want)), "tax(%s) = %s, want %s", tt.gain, got, tt.want)
		})
	}
}

func TestSchedule_MarginalRate(t *testing.T) {
	s := DefaultSchedule()

	assert.True(t, s.MarginalRate(m("0")).IsZero())
	assert.True(t, s.MarginalRate(m("-1")).IsZero())
	assert.True(t, s.MarginalRate(m("6000")).Equal(m("0.19")))
	assert.True(t, s.MarginalRate(m("6000.01")).Equal(m("0.21")))
	assert.True(t, s.MarginalRate(m("200000")).Equal(m("0.23")))
	assert.True(t, s.MarginalRate(m("1000000")).Equal(m("0.28")))
}

func TestNewSchedule_Validation(t *testing.T) {
	_, err := NewSchedule(nil)
	assert.True(t, apperror.IsValidation(err))

	_, err = NewSchedule([]Bracket{
		{UpperLimit: m("100"), Rate: m("0.1")},
		{UpperLimit: m("50"), Rate: m("0.2")},
		{Rate: m("0.3"), Unbounded: true},
	})
	assert.True(t, apperror.IsValidation(err), "descending limits")

	_, err = NewSchedule([]Bracket{{UpperLimit: m("100"), Rate: m("0.1")}})
	assert.True(t, apperror.IsValidation(err), "last bracket bounded")

	_, err = NewSchedule([]Bracket{{Rate: m("1.5"), Unbounded: true}})
	assert.True(t, apperror.IsValidation(err), "rate above 1")

	flat, err := NewSchedule([]Bracket{{Rate: m("0.2"), Unbounded: true}})
	require.NoError(t, err)
	assert.True(t, flat.Tax(m("1000")).Equal(m("200")))
}

func TestComputeGain_Scenario(t *testing.T) {
	calc := NewCalculator(nil)
	lots := []costbasis.Lot{
		{ID: "l1", Quantity: m("1"), Remaining: m("1"), CostBasisPerUnit: m("20000"), AcquisitionDate: day("2023-01-01")},
		{ID: "l2", Quantity: m("1"), Remaining: m("1"), CostBasisPerUnit: m("30000"), AcquisitionDate: day("2023-06-01")},
	}

	r := calc.ComputeGain(costbasis.Disposal{
		ID: "d1", AssetSymbol: "BTC", Quantity: m("1.5"), ProceedsPerUnit: m("40000"), Date: day("2024-02-01"),
	}, lots)

	require.NotNil(t, r)
	assert.True(t, r.TotalProceeds.Equal(m("60000")))
	assert.True(t, r.TotalCostBasis.Equal(m("35000")))
	assert.True(t, r.Gain.Equal(m("25000")))
	assert.Equal(t, 396, r.HoldingPeriodDays)
	assert.False(t, r.IsShortTerm)
	assert.True(t, r.TaxBracketRate.Equal(m("0.21")))
	assert.True(t, r.EstimatedTax.Equal(m("5250")))
	assert.Len(t, r.LotsUsed, 2)
	assert.Equal(t, "d1", r.LotsUsed[0].DisposalID)
	assert.True(t, lots[0].Remaining.Equal(m("1")), "input lots untouched")
}

func TestComputeGain_ZeroProceedsIsNil(t *testing.T) {
	calc := NewCalculator(nil)
	lots := []costbasis.Lot{{ID: "l1", Quantity: m("1"), Remaining: m("1"), CostBasisPerUnit: m("10")}}

	assert.Nil(t, calc.ComputeGain(costbasis.Disposal{Quantity: m("1"), ProceedsPerUnit: m("0")}, lots))
}

func TestComputeGain_LossAndShortfall(t *testing.T) {
	calc := NewCalculator(nil)
	lots := []costbasis.Lot{
		{ID: "l1", Quantity: m("1"), Remaining: m("1"), CostBasisPerUnit: m("500"), AcquisitionDate: day("2024-01-01")},
	}

	r := calc.ComputeGain(costbasis.Disposal{
		ID: "d1", Quantity: m("1"), ProceedsPerUnit: m("300"), Date: day("2024-01-11"),
	}, lots)
	require.NotNil(t, r)
	assert.True(t, r.Gain.Equal(m("-200")))
	assert.True(t, r.IsShortTerm)
	assert.True(t, r.TaxBracketRate.IsZero())
	assert.True(t, r.EstimatedTax.IsZero())

	r = calc.ComputeGain(costbasis.Disposal{
		ID: "d2", Quantity: m("3"), ProceedsPerUnit: m("300"), Date: day("2024-01-11"),
	}, lots)
	require.NotNil(t, r)
	assert.True(t, r.UnmatchedQuantity.Equal(m("2")))
	assert.True(t, r.Gain.Equal(m("400")), "unmatched quantity carries zero cost")
}

func TestHoldingDays_RoundsDown(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, HoldingDays(start, start.Add(23*time.Hour)))
	assert.Equal(t, 1, HoldingDays(start, start.Add(47*time.Hour)))
	assert.Equal(t, 365, HoldingDays(day("2023-01-01"), day("2024-01-01")))
}

func TestHoldingDays_SameDayLaterAcquisition(t *testing.T) {
	sold := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, HoldingDays(sold.Add(5*time.Hour), sold))
}

func TestSummarize(t *testing.T) {
	results := []CapitalGainResult{
		{AssetSymbol: "BTC", Gain: m("10000"), IsShortTerm: false},
		{AssetSymbol: "BTC", Gain: m("-2000"), IsShortTerm: true},
		{AssetSymbol: "ETH", Gain: m("3000"), IsShortTerm: true},
		{AssetSymbol: "ETH", Gain: m("-500"), IsShortTerm: false},
	}

	s := Summarize(2024, results, nil)

	assert.Equal(t, 2024, s.Year)
	assert.Equal(t, 4, s.TransactionCount)
	assert.True(t, s.ShortTermGains.Equal(m("3000")))
	assert.True(t, s.ShortTermLosses.Equal(m("2000")))
	assert.True(t, s.LongTermGains.Equal(m("10000")))
	assert.True(t, s.LongTermLosses.Equal(m("500")))
	assert.True(t, s.TotalGains.Equal(m("13000")))
	assert.True(t, s.TotalLosses.Equal(m("2500")))
	assert.True(t, s.NetGain.Equal(m("10500")))
	// 6000 × 0.19 + 4500 × 0.21
	assert.True(t, s.EstimatedTax.Equal(m("2085")))

	btc := s.ByAsset["BTC"]
	assert.True(t, btc.NetGain.Equal(m("8000")))
	assert.Equal(t, 2, btc.TransactionCount)
	eth := s.ByAsset["ETH"]
	assert.True(t, eth.TotalLoss.Equal(m("500")))
}

func TestSummarize_NetLossOwesNothing(t *testing.T) {
	s := Summarize(2024, []CapitalGainResult{
		{AssetSymbol: "BTC", Gain: m("100")},
		{AssetSymbol: "BTC", Gain: m("-400")},
	}, nil)

	assert.True(t, s.NetGain.Equal(m("-300")))
	assert.True(t, s.EstimatedTax.IsZero())
}

func TestHistories_SplitsLegs(t *testing.T) {
	hs := Histories(btcSource().txs)

	require.Len(t, hs, 2)
	assert.Equal(t, "BTC", hs[0].AssetSymbol)
	assert.Len(t, hs[0].Acquisitions, 2)
	assert.Len(t, hs[0].Disposals, 1)
	assert.Equal(t, "ETH", hs[1].AssetSymbol)
	assert.Len(t, hs[1].Disposals, 1, "stake is not a disposal")
}

func TestGenerateReport(t *testing.T) {
	svc := NewReportService(btcSource(), nil).WithConcurrency(2)

	r, err := svc.GenerateReport(context.Background(), id.New(), 2024)
	require.NoError(t, err)

	require.Len(t, r.Results, 1)
	res := r.Results[0]
	assert.Equal(t, "s1", res.DisposalID)
	assert.True(t, res.Gain.Equal(m("25000")))
	assert.False(t, res.IsShortTerm)
	assert.True(t, r.Summary.NetGain.Equal(m("25000")))
	// 6000 × 0.19 + 19000 × 0.21
	assert.True(t, r.Summary.EstimatedTax.Equal(m("5130")))
	assert.Empty(t, r.Diagnostics)
}

func TestGenerateReport_PriorYearDisposalsOnly(t *testing.T) {
	svc := NewReportService(btcSource(), nil)

	r, err := svc.GenerateReport(context.Background(), id.New(), 2023)
	require.NoError(t, err)

	require.Len(t, r.Results, 1)
	assert.Equal(t, "ETH", r.Results[0].AssetSymbol)
	assert.True(t, r.Results[0].Gain.Equal(m("-800")))
	assert.True(t, r.Summary.EstimatedTax.IsZero())
}

func TestGenerateReport_Idempotent(t *testing.T) {
	svc := NewReportService(btcSource(), nil)
	company := id.New()

	a, err := svc.GenerateReport(context.Background(), company, 2024)
	require.NoError(t, err)
	b, err := svc.GenerateReport(context.Background(), company, 2024)
	require.NoError(t, err)

	assert.Equal(t, a.Results, b.Results)
	assert.Equal(t, a.Summary, b.Summary)
}

func TestGenerateReport_ShortfallDiagnostic(t *testing.T) {
	src := btcSource()
	src.txs = append(src.txs, Transaction{
		ID: "s2", Type: TxSwap, AssetOut: "BTC", AmountOut: m("2"), PriceOutEUR: m("50000"),
		AssetIn: "ETH", AmountIn: m("30"), Timestamp: day("2024-05-01"),
	})

	r, err := NewReportService(src, nil).GenerateReport(context.Background(), id.New(), 2024)
	require.NoError(t, err)

	require.Len(t, r.Results, 2)
	assert.True(t, r.Results[1].UnmatchedQuantity.Equal(m("1.5")))
	assert.True(t, r.Diagnostics.HasWarnings())
	assert.Len(t, r.Diagnostics.ByCode(costbasis.CodeInsufficientLots), 1)
}

func TestGenerateReport_Errors(t *testing.T) {
	_, err := NewReportService(btcSource(), nil).GenerateReport(context.Background(), id.New(), 0)
	assert.True(t, apperror.IsValidation(err))

	boom := errors.New("boom")
	_, err = NewReportService(&fakeSource{err: boom}, nil).GenerateReport(context.Background(), id.New(), 2024)
	assert.ErrorIs(t, err, boom)
}

func TestOpenLots(t *testing.T) {
	svc := NewReportService(btcSource(), nil)

	lots, err := svc.OpenLots(context.Background(), id.New(), "btc", day("2024-12-31"))
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, "b2", lots[0].ID)
	assert.True(t, lots[0].Remaining.Equal(m("0.5")))

	_, err = svc.OpenLots(context.Background(), id.New(), "DOGE", day("2024-12-31"))
	assert.True(t, apperror.IsNotFound(err))
}

func sell(asset, amount, price, date string) PredictionInput {
	return PredictionInput{
		CompanyID:   id.New(),
		AssetSymbol: asset,
		Amount:      m(amount),
		PriceEUR:    m(price),
		Operation:   OperationSell,
		Date:        day(date),
	}
}

func TestPredict_Buy(t *testing.T) {
	p := NewPredictor(btcSource(), nil)

	pred, err := p.Predict(context.Background(), PredictionInput{
		AssetSymbol: "BTC", Amount: m("2"), PriceEUR: m("100"), Operation: OperationBuy,
	})
	require.NoError(t, err)

	assert.True(t, pred.TotalAcquisitionCost.Equal(m("200")))
	assert.True(t, pred.CapitalGain.IsZero())
	assert.Empty(t, pred.LotsConsumed)
	assert.Equal(t, "Buying 2 BTC at 100 EUR will add to your cost basis. No immediate tax impact.", pred.Recommendation)
}

func TestPredict_UnknownAsset(t *testing.T) {
	p := NewPredictor(btcSource(), nil)

	_, err := p.Predict(context.Background(), sell("XRP", "1", "1", "2024-01-01"))
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	assert.Contains(t, err.Error(), "Crypto asset XRP not found")
}

func TestPredict_MixedHoldingPeriods(t *testing.T) {
	src := btcSource()
	src.txs = src.txs[:4]
	p := NewPredictor(src, nil)

	pred, err := p.Predict(context.Background(), sell("BTC", "1.5", "40000", "2024-02-01"))
	require.NoError(t, err)

	assert.True(t, pred.CapitalGain.Equal(m("25000")))
	assert.True(t, pred.TaxOwed.Equal(m("5130")))
	assert.True(t, pred.EffectiveTaxRate.Equal(m("21")))
	require.Len(t, pred.LotsConsumed, 2)
	assert.Equal(t, 396, pred.LotsConsumed[0].HoldingDays)
	assert.Equal(t, "Capital gain of 25000.00 EUR will be taxed at 21% marginal rate.", pred.Recommendation)
}

func TestPredict_DoesNotChangeState(t *testing.T) {
	src := btcSource()
	src.txs = src.txs[:4]
	p := NewPredictor(src, nil)

	first, err := p.Predict(context.Background(), sell("BTC", "1", "40000", "2024-02-01"))
	require.NoError(t, err)
	second, err := p.Predict(context.Background(), sell("BTC", "1", "40000", "2024-02-01"))
	require.NoError(t, err)

	assert.Equal(t, first.LotsConsumed, second.LotsConsumed)
	assert.Equal(t, "b1", second.LotsConsumed[0].LotID)
}

func TestPredict_AllShortTerm(t *testing.T) {
	src := &fakeSource{
		assets: map[string]Asset{"ETH": {Symbol: "ETH"}},
		txs: []Transaction{
			{ID: "e1", Type: TxTransferIn, AssetIn: "ETH", AmountIn: m("2"), PriceInEUR: m("1000"), Timestamp: day("2024-01-01")},
		},
	}
	p := NewPredictor(src, nil)

	pred, err := p.Predict(context.Background(), sell("ETH", "1", "1500", "2024-03-01"))
	require.NoError(t, err)

	assert.True(t, pred.CapitalGain.Equal(m("500")))
	assert.Equal(t, "All consumed lots are short-term (< 1 year). Consider waiting 305 days for potential future tax benefits.", pred.Recommendation)
}

func TestPredict_HighGain(t *testing.T) {
	src := btcSource()
	src.txs = src.txs[:4]
	p := NewPredictor(src, nil)

	pred, err := p.Predict(context.Background(), sell("BTC", "2", "60000", "2024-02-01"))
	require.NoError(t, err)

	assert.True(t, pred.CapitalGain.Equal(m("70000")))
	assert.Equal(t, "High capital gain (70000.00 EUR) will be taxed at higher brackets. Consider splitting the sale across multiple tax years.", pred.Recommendation)
}

func TestPredict_Loss(t *testing.T) {
	src := btcSource()
	src.txs = src.txs[:4]
	p := NewPredictor(src, nil)

	pred, err := p.Predict(context.Background(), sell("BTC", "1", "10000", "2024-02-01"))
	require.NoError(t, err)

	assert.True(t, pred.CapitalGain.Equal(m("-10000")))
	assert.True(t, pred.TaxOwed.IsZero())
	assert.True(t, pred.EffectiveTaxRate.IsZero())
	assert.Equal(t, "This sale will result in a capital loss of 10000.00 EUR, which can offset other gains.", pred.Recommendation)
}

func TestPredict_NoLots(t *testing.T) {
	src := &fakeSource{assets: map[string]Asset{"SOL": {Symbol: "SOL"}}}
	p := NewPredictor(src, nil)

	pred, err := p.Predict(context.Background(), sell("SOL", "3", "100", "2024-02-01"))
	require.NoError(t, err)

	assert.True(t, pred.UnmatchedQuantity.Equal(m("3")))
	assert.True(t, pred.CapitalGain.Equal(m("300")))
	assert.Equal(t, "No cost basis available. Consider adding purchase records for accurate tax calculation.", pred.Recommendation)
}

func TestPredict_Validation(t *testing.T) {
	p := NewPredictor(btcSource(), nil)

	_, err := p.Predict(context.Background(), sell("BTC", "0", "1", "2024-01-01"))
	assert.True(t, apperror.IsValidation(err))

	in := sell("BTC", "1", "1", "2024-01-01")
	in.Operation = "HODL"
	_, err = p.Predict(context.Background(), in)
	assert.True(t, apperror.IsValidation(err))
}

type memSnapshots struct {
	saved map[int]*Report
	err   error
}

func (s *memSnapshots) Save(_ context.Context, r *Report) error {
	if s.err != nil {
		return s.err
	}
	s.saved[r.Year] = r
	return nil
}

func (s *memSnapshots) Load(_ context.Context, _ id.ID, year int) (*Report, error) {
	if r, ok := s.saved[year]; ok {
		return r, nil
	}
	return nil, apperror.NewNotFound("Tax report snapshot", year)
}

func TestRecompute_ReplacesSnapshot(t *testing.T) {
	store := &memSnapshots{saved: map[int]*Report{}}
	svc := NewReportService(btcSource(), nil)
	company := id.New()

	first, err := svc.Recompute(context.Background(), store, company, 2024)
	require.NoError(t, err)
	second, err := svc.Recompute(context.Background(), store, company, 2024)
	require.NoError(t, err)

	loaded, err := store.Load(context.Background(), company, 2024)
	require.NoError(t, err)
	assert.Same(t, second, loaded)
	assert.Equal(t, first.Summary, loaded.Summary)

	store.err = errors.New("disk full")
	_, err = svc.Recompute(context.Background(), store, company, 2024)
	assert.ErrorIs(t, err, store.err)
}
