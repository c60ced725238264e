// Package costbasis tracks crypto acquisition lots per asset and consumes them
// first-in-first-out when the asset is disposed of.
//
// Lots are immutable once materialized. Every disposal appends Consumption
// records to a ledger and a lot's remaining quantity is derived from that
// ledger, so rebuilding a book from the same history always yields the same
// lots.
package costbasis

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/types"
)

// Acquisition is an incoming transaction that creates one lot.
type Acquisition struct {
	TxID             string
	Quantity         types.Quantity
	CostBasisPerUnit types.Money
	Date             time.Time
	Source           string
}

// Disposal is an outgoing transaction that consumes lots.
type Disposal struct {
	ID              string
	AssetSymbol     string
	Quantity        types.Quantity
	ProceedsPerUnit types.Money
	Date            time.Time
}

// Proceeds is quantity × proceeds per unit.
func (d Disposal) Proceeds() types.Money {
	return d.Quantity.Mul(d.ProceedsPerUnit)
}

// Lot is one acquisition's inventory. Remaining is filled in by the Book
// that owns the lot and never exceeds Quantity.
type Lot struct {
	ID               string         `json:"id"`
	AssetSymbol      string         `json:"assetSymbol"`
	Quantity         types.Quantity `json:"quantity"`
	CostBasisPerUnit types.Money    `json:"costBasisPerUnit"`
	AcquisitionDate  time.Time      `json:"acquisitionDate"`
	Source           string         `json:"source,omitempty"`
	SourceTxID       string         `json:"sourceTxId,omitempty"`
	Remaining        types.Quantity `json:"remaining"`
}

// IsOpen reports whether the lot still has quantity to consume.
func (l Lot) IsOpen() bool {
	return l.Remaining.IsPositive()
}

// Consumption records quantity taken from one lot by one disposal.
type Consumption struct {
	DisposalID       string         `json:"disposalId"`
	LotID            string         `json:"lotId"`
	QuantityUsed     types.Quantity `json:"quantityUsed"`
	CostBasisPerUnit types.Money    `json:"costBasisPerUnit"`
	AcquisitionDate  time.Time      `json:"acquisitionDate"`
}

// CostBasis is quantity used × unit cost.
func (c Consumption) CostBasis() types.Money {
	return c.QuantityUsed.Mul(c.CostBasisPerUnit)
}

// Allocate walks lots in the given order and takes min(lot.Remaining, left)
// from each until quantity is covered or lots run out. It does not modify
// lots. The uncovered remainder is returned as shortfall.
func Allocate(lots []Lot, quantity types.Quantity) (used []Consumption, shortfall types.Quantity) {
	left := quantity
	for _, lot := range lots {
		if !left.IsPositive() {
			break
		}
		if !lot.Remaining.IsPositive() {
			continue
		}
		take := types.Min(lot.Remaining, left)
		used = append(used, Consumption{
			LotID:            lot.ID,
			QuantityUsed:     take,
			CostBasisPerUnit: lot.CostBasisPerUnit,
			AcquisitionDate:  lot.AcquisitionDate,
		})
		left = left.Sub(take)
	}
	if left.IsNegative() {
		left = decimal.Zero
	}
	return used, left
}

// TotalCostBasis sums the cost basis of consumptions.
func TotalCostBasis(cs []Consumption) types.Money {
	total := decimal.Zero
	for _, c := range cs {
		total = total.Add(c.CostBasis())
	}
	return total
}

// TotalQuantity sums the quantity of consumptions.
func TotalQuantity(cs []Consumption) types.Quantity {
	total := decimal.Zero
	for _, c := range cs {
		total = total.Add(c.QuantityUsed)
	}
	return total
}

// EarliestAcquisition returns the oldest acquisition date among cs.
func EarliestAcquisition(cs []Consumption) (time.Time, bool) {
	if len(cs) == 0 {
		return time.Time{}, false
	}
	earliest := cs[0].AcquisitionDate
	for _, c := range cs[1:] {
		if c.AcquisitionDate.Before(earliest) {
			earliest = c.AcquisitionDate
		}
	}
	return earliest, true
}
