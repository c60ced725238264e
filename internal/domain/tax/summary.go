package tax

import (
	"github.com/shopspring/decimal"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/types"
)

// AssetSummary aggregates results for one asset.
type AssetSummary struct {
	TotalGain        types.Money `json:"totalGain"`
	TotalLoss        types.Money `json:"totalLoss"`
	NetGain          types.Money `json:"netGain"`
	TransactionCount int         `json:"transactionCount"`
}

// Summary is the annual aggregation of capital gains. Losses are stored as
// absolute values. EstimatedTax applies the schedule once to max(0, NetGain).
type Summary struct {
	Year             int                     `json:"year"`
	ShortTermGains   types.Money             `json:"shortTermGains"`
	ShortTermLosses  types.Money             `json:"shortTermLosses"`
	LongTermGains    types.Money             `json:"longTermGains"`
	LongTermLosses   types.Money             `json:"longTermLosses"`
	TotalGains       types.Money             `json:"totalGains"`
	TotalLosses      types.Money             `json:"totalLosses"`
	NetGain          types.Money             `json:"netGain"`
	EstimatedTax     types.Money             `json:"estimatedTax"`
	TransactionCount int                     `json:"transactionCount"`
	ByAsset          map[string]AssetSummary `json:"byAsset"`
}

// Summarize folds results into a Summary.
func Summarize(year int, results []CapitalGainResult, schedule *Schedule) Summary {
	if schedule == nil {
		schedule = DefaultSchedule()
	}

	s := Summary{
		Year:            year,
		ShortTermGains:  decimal.Zero,
		ShortTermLosses: decimal.Zero,
		LongTermGains:   decimal.Zero,
		LongTermLosses:  decimal.Zero,
		ByAsset:         make(map[string]AssetSummary),
	}

	for _, r := range results {
		loss := r.Gain.Neg()
		switch {
		case r.Gain.IsPositive() && r.IsShortTerm:
			s.ShortTermGains = s.ShortTermGains.Add(r.Gain)
		case r.Gain.IsPositive():
			s.LongTermGains = s.LongTermGains.Add(r.Gain)
		case r.Gain.IsNegative() && r.IsShortTerm:
			s.ShortTermLosses = s.ShortTermLosses.Add(loss)
		case r.Gain.IsNegative():
			s.LongTermLosses = s.LongTermLosses.Add(loss)
		}

		a, ok := s.ByAsset[r.AssetSymbol]
		if !ok {
			a = AssetSummary{TotalGain: decimal.Zero, TotalLoss: decimal.Zero}
		}
		if r.Gain.IsPositive() {
			a.TotalGain = a.TotalGain.Add(r.Gain)
		} else if r.Gain.IsNegative() {
			a.TotalLoss = a.TotalLoss.Add(loss)
		}
		a.NetGain = a.TotalGain.Sub(a.TotalLoss)
		a.TransactionCount++
		s.ByAsset[r.AssetSymbol] = a
	}

	s.TransactionCount = len(results)
	s.TotalGains = s.ShortTermGains.Add(s.LongTermGains)
	s.TotalLosses = s.ShortTermLosses.Add(s.LongTermLosses)
	s.NetGain = s.TotalGains.Sub(s.TotalLosses)
	s.EstimatedTax = schedule.Tax(types.Max(decimal.Zero, s.NetGain))
	return s
}

// Rounded returns a copy with every amount rounded to cents, for export.
func (s Summary) Rounded() Summary {
	r := s
	r.ShortTermGains = types.RoundMoney(s.ShortTermGains)
	r.ShortTermLosses = types.RoundMoney(s.ShortTermLosses)
	r.LongTermGains = types.RoundMoney(s.LongTermGains)
	r.LongTermLosses = types.RoundMoney(s.LongTermLosses)
	r.TotalGains = types.RoundMoney(s.TotalGains)
	r.TotalLosses = types.RoundMoney(s.TotalLosses)
	r.NetGain = types.RoundMoney(s.NetGain)
	r.EstimatedTax = types.RoundMoney(s.EstimatedTax)
	r.ByAsset = make(map[string]AssetSummary, len(s.ByAsset))
	for k, a := range s.ByAsset {
		r.ByAsset[k] = AssetSummary{
			TotalGain:        types.RoundMoney(a.TotalGain),
			TotalLoss:        types.RoundMoney(a.TotalLoss),
			NetGain:          types.RoundMoney(a.NetGain),
			TransactionCount: a.TransactionCount,
		}
	}
	return r
}
