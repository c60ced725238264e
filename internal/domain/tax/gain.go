package tax

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/types"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/costbasis"
)

// DefaultLongTermDays is the holding period from which a gain is long term.
const DefaultLongTermDays = 365

// CapitalGainResult is a realized gain or loss on one disposal. It is derived
// from the lot history and never modified after construction.
type CapitalGainResult struct {
	DisposalID        string                  `json:"disposalId"`
	AssetSymbol       string                  `json:"assetSymbol"`
	DisposalDate      time.Time               `json:"disposalDate"`
	Quantity          types.Quantity          `json:"quantity"`
	TotalProceeds     types.Money             `json:"totalProceeds"`
	TotalCostBasis    types.Money             `json:"totalCostBasis"`
	Gain              types.Money             `json:"gain"`
	HoldingPeriodDays int                     `json:"holdingPeriodDays"`
	IsShortTerm       bool                    `json:"isShortTerm"`
	TaxBracketRate    types.Rate              `json:"taxBracketRate"`
	EstimatedTax      types.Money             `json:"estimatedTax"`
	LotsUsed          []costbasis.Consumption `json:"lotsUsed"`
	UnmatchedQuantity types.Quantity          `json:"unmatchedQuantity"`
}

// IsGain reports a strictly positive result.
func (r *CapitalGainResult) IsGain() bool {
	return r.Gain.IsPositive()
}

// Calculator turns disposals into CapitalGainResults.
type Calculator struct {
	schedule     *Schedule
	longTermDays int
}

// NewCalculator creates a calculator over schedule (DefaultSchedule when nil).
func NewCalculator(schedule *Schedule) *Calculator {
	if schedule == nil {
		schedule = DefaultSchedule()
	}
	return &Calculator{schedule: schedule, longTermDays: DefaultLongTermDays}
}

// WithLongTermDays overrides the long-term threshold.
func (c *Calculator) WithLongTermDays(days int) *Calculator {
	if days > 0 {
		c.longTermDays = days
	}
	return c
}

// Schedule returns the bracket schedule in use.
func (c *Calculator) Schedule() *Schedule {
	return c.schedule
}

// LongTermDays returns the long-term threshold.
func (c *Calculator) LongTermDays() int {
	return c.longTermDays
}

// ComputeGain consumes availableLots oldest-first (in slice order) for the
// disposal. The lots are not modified. It returns nil when the disposal has
// no positive proceeds.
func (c *Calculator) ComputeGain(d costbasis.Disposal, availableLots []costbasis.Lot) *CapitalGainResult {
	if !d.Proceeds().IsPositive() {
		return nil
	}
	used, shortfall := costbasis.Allocate(availableLots, d.Quantity)
	for i := range used {
		used[i].DisposalID = d.ID
	}
	return c.build(d, used, shortfall)
}

// FromRecord builds the result for a disposal already replayed on a Book.
func (c *Calculator) FromRecord(rec costbasis.DisposalRecord) *CapitalGainResult {
	if !rec.Disposal.Proceeds().IsPositive() {
		return nil
	}
	return c.build(rec.Disposal, rec.Consumptions, rec.Shortfall)
}

func (c *Calculator) build(d costbasis.Disposal, used []costbasis.Consumption, shortfall types.Quantity) *CapitalGainResult {
	proceeds := d.Proceeds()
	cost := costbasis.TotalCostBasis(used)
	gain := proceeds.Sub(cost)

	days := 0
	if earliest, ok := costbasis.EarliestAcquisition(used); ok {
		days = HoldingDays(earliest, d.Date)
	}

	rate := c.schedule.MarginalRate(gain)
	estimated := decimal.Zero
	if gain.IsPositive() {
		estimated = gain.Mul(rate)
	}

	lots := make([]costbasis.Consumption, len(used))
	copy(lots, used)

	return &CapitalGainResult{
		DisposalID:        d.ID,
		AssetSymbol:       d.AssetSymbol,
		DisposalDate:      d.Date,
		Quantity:          d.Quantity,
		TotalProceeds:     proceeds,
		TotalCostBasis:    cost,
		Gain:              gain,
		HoldingPeriodDays: days,
		IsShortTerm:       days < c.longTermDays,
		TaxBracketRate:    rate,
		EstimatedTax:      estimated,
		LotsUsed:          lots,
		UnmatchedQuantity: shortfall,
	}
}

// HoldingDays is the whole number of days from acquired to disposed, rounded
// down. A lot acquired later on the disposal day holds for zero days.
func HoldingDays(acquired, disposed time.Time) int {
	days := int(math.Floor(disposed.Sub(acquired).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}
