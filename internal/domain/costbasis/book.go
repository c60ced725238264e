package costbasis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/types"
)

// DisposalRecord is the outcome of one disposal replayed against a book.
type DisposalRecord struct {
	Disposal     Disposal       `json:"disposal"`
	Consumptions []Consumption  `json:"consumptions"`
	Shortfall    types.Quantity `json:"shortfall"`
}

// Book is the FIFO inventory of one asset: an arena of immutable lots plus an
// append-only consumption ledger. A Book is not safe for concurrent use; each
// replay owns its own Book.
type Book struct {
	asset    string
	lots     []Lot
	consumed []types.Quantity
	index    map[string]int

	ledger    []Consumption
	disposals []DisposalRecord
	diags     Diagnostics
	lastDate  time.Time
}

// NewBook materializes one lot per acquisition, sorted by date ascending.
// Equal dates keep input order. Acquisitions with non-positive quantity are
// skipped with a diagnostic.
func NewBook(asset string, acquisitions []Acquisition) *Book {
	asset = strings.ToUpper(strings.TrimSpace(asset))
	sorted := make([]Acquisition, len(acquisitions))
	copy(sorted, acquisitions)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	b := &Book{asset: asset, index: make(map[string]int, len(sorted))}
	for _, a := range sorted {
		if !a.Quantity.IsPositive() {
			b.diags = append(b.diags, invalidAcquisition(asset, a))
			continue
		}
		lot := Lot{
			ID:               b.lotID(a),
			AssetSymbol:      asset,
			Quantity:         a.Quantity,
			CostBasisPerUnit: a.CostBasisPerUnit,
			AcquisitionDate:  a.Date,
			Source:           a.Source,
			SourceTxID:       a.TxID,
		}
		b.index[lot.ID] = len(b.lots)
		b.lots = append(b.lots, lot)
		b.consumed = append(b.consumed, decimal.Zero)
	}
	return b
}

// lotID is deterministic so two rebuilds of the same history produce equal lots.
func (b *Book) lotID(a Acquisition) string {
	if a.TxID != "" {
		if _, dup := b.index[a.TxID]; !dup {
			return a.TxID
		}
	}
	return fmt.Sprintf("%s#%d", b.asset, len(b.lots)+1)
}

// BuildLots rebuilds an asset's lots from scratch: acquisitions become lots,
// then disposals are replayed in date order (stable on input order).
func BuildLots(asset string, acquisitions []Acquisition, disposals []Disposal) *Book {
	b := NewBook(asset, acquisitions)
	for _, d := range SortDisposals(disposals) {
		b.Dispose(d)
	}
	return b
}

// SortDisposals returns a copy ordered by date, stable on input order.
func SortDisposals(disposals []Disposal) []Disposal {
	sorted := make([]Disposal, len(disposals))
	copy(sorted, disposals)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	return sorted
}

// Asset returns the asset symbol.
func (b *Book) Asset() string {
	return b.asset
}

// Dispose consumes lots acquired on or before d.Date, oldest first. A
// shortfall is not an error: the unmatched quantity carries zero cost basis
// and a diagnostic is recorded. Disposals must arrive in date order; one
// dated before the previous disposal is still applied, against the current
// state, and flagged.
func (b *Book) Dispose(d Disposal) DisposalRecord {
	if d.ID == "" {
		d.ID = fmt.Sprintf("%s-disposal-%d", b.asset, len(b.disposals)+1)
	}
	if d.AssetSymbol == "" {
		d.AssetSymbol = b.asset
	}
	if !d.Quantity.IsPositive() {
		b.diags = append(b.diags, invalidDisposal(b.asset, d))
		rec := DisposalRecord{Disposal: d, Shortfall: decimal.Zero}
		b.disposals = append(b.disposals, rec)
		return rec
	}
	if d.Date.Before(b.lastDate) {
		b.diags = append(b.diags, Diagnostic{
			Severity:    SeverityInfo,
			Code:        CodeInvalidDisposal,
			AssetSymbol: b.asset,
			Reference:   d.ID,
			Date:        d.Date,
			Requested:   d.Quantity,
			Message:     "disposal replayed out of date order",
		})
	} else {
		b.lastDate = d.Date
	}

	used, shortfall := Allocate(b.OpenLotsAt(d.Date), d.Quantity)
	for i := range used {
		used[i].DisposalID = d.ID
		idx := b.index[used[i].LotID]
		b.consumed[idx] = b.consumed[idx].Add(used[i].QuantityUsed)
	}
	b.ledger = append(b.ledger, used...)

	if shortfall.IsPositive() {
		b.diags = append(b.diags, insufficientLots(b.asset, d, shortfall))
	}

	rec := DisposalRecord{Disposal: d, Consumptions: used, Shortfall: shortfall}
	b.disposals = append(b.disposals, rec)
	return rec
}

func (b *Book) view(i int) Lot {
	l := b.lots[i]
	l.Remaining = l.Quantity.Sub(b.consumed[i])
	return l
}

// Lots returns every lot, including fully consumed ones, for history queries.
func (b *Book) Lots() []Lot {
	out := make([]Lot, len(b.lots))
	for i := range b.lots {
		out[i] = b.view(i)
	}
	return out
}

// OpenLots returns lots with remaining quantity, oldest first.
func (b *Book) OpenLots() []Lot {
	var out []Lot
	for i := range b.lots {
		if l := b.view(i); l.IsOpen() {
			out = append(out, l)
		}
	}
	return out
}

// OpenLotsAt returns open lots acquired on or before the UTC day of at,
// oldest first.
func (b *Book) OpenLotsAt(at time.Time) []Lot {
	last := dayOf(at)
	var out []Lot
	for i := range b.lots {
		if dayOf(b.lots[i].AcquisitionDate).After(last) {
			break
		}
		if l := b.view(i); l.IsOpen() {
			out = append(out, l)
		}
	}
	return out
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Holdings is the total remaining quantity.
func (b *Book) Holdings() types.Quantity {
	total := decimal.Zero
	for i := range b.lots {
		total = total.Add(b.lots[i].Quantity.Sub(b.consumed[i]))
	}
	return total
}

// Consumptions returns the consumption ledger in append order.
func (b *Book) Consumptions() []Consumption {
	out := make([]Consumption, len(b.ledger))
	copy(out, b.ledger)
	return out
}

// Disposals returns every replayed disposal in replay order.
func (b *Book) Disposals() []DisposalRecord {
	out := make([]DisposalRecord, len(b.disposals))
	copy(out, b.disposals)
	return out
}

// Diagnostics returns everything flagged while building and replaying.
func (b *Book) Diagnostics() Diagnostics {
	out := make(Diagnostics, len(b.diags))
	copy(out, b.diags)
	return out
}

// Clone returns an independent copy, used for what-if simulations.
func (b *Book) Clone() *Book {
	c := &Book{
		asset:     b.asset,
		lots:      make([]Lot, len(b.lots)),
		consumed:  make([]types.Quantity, len(b.consumed)),
		index:     make(map[string]int, len(b.index)),
		ledger:    make([]Consumption, len(b.ledger)),
		disposals: make([]DisposalRecord, len(b.disposals)),
		diags:     make(Diagnostics, len(b.diags)),
		lastDate:  b.lastDate,
	}
	copy(c.lots, b.lots)
	copy(c.consumed, b.consumed)
	copy(c.ledger, b.ledger)
	copy(c.disposals, b.disposals)
	copy(c.diags, b.diags)
	for k, v := range b.index {
		c.index[k] = v
	}
	return c
}
