// Package tax computes realized capital gains from cost-basis lots and applies
// a progressive bracket schedule to them.
package tax

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/types"
)

// Bracket taxes the slice of gain between the previous bracket's limit and
// UpperLimit at Rate. The last bracket of a schedule is Unbounded.
type Bracket struct {
	UpperLimit types.Money `json:"upperLimit"`
	Rate       types.Rate  `json:"rate"`
	Unbounded  bool        `json:"unbounded"`
}

// Schedule is an ascending list of brackets. It is immutable and safe for
// concurrent use.
type Schedule struct {
	brackets []Bracket
}

// NewSchedule validates brackets: at least one, strictly ascending limits,
// rates within [0, 1], only the last one unbounded.
func NewSchedule(brackets []Bracket) (*Schedule, error) {
	if len(brackets) == 0 {
		return nil, apperror.NewValidation("tax schedule needs at least one bracket")
	}

	prev := decimal.Zero
	for i, b := range brackets {
		last := i == len(brackets)-1
		if b.Rate.IsNegative() || b.Rate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, apperror.NewValidation(fmt.Sprintf("bracket %d: rate must be between 0 and 1", i+1)).
				WithDetail("rate", b.Rate.String())
		}
		if b.Unbounded {
			if !last {
				return nil, apperror.NewValidation(fmt.Sprintf("bracket %d: only the last bracket may be unbounded", i+1))
			}
			continue
		}
		if last {
			return nil, apperror.NewValidation("the last bracket must be unbounded")
		}
		if !b.UpperLimit.GreaterThan(prev) {
			return nil, apperror.NewValidation(fmt.Sprintf("bracket %d: limits must be strictly ascending", i+1)).
				WithDetail("upperLimit", b.UpperLimit.String())
		}
		prev = b.UpperLimit
	}

	cp := make([]Bracket, len(brackets))
	copy(cp, brackets)
	return &Schedule{brackets: cp}, nil
}

// DefaultSchedule is the Spanish savings-income scale (base del ahorro).
func DefaultSchedule() *Schedule {
	s, err := NewSchedule([]Bracket{
		{UpperLimit: types.MustMoney("6000"), Rate: types.MustMoney("0.19")},
		{UpperLimit: types.MustMoney("50000"), Rate: types.MustMoney("0.21")},
		{UpperLimit: types.MustMoney("200000"), Rate: types.MustMoney("0.23")},
		{UpperLimit: types.MustMoney("300000"), Rate: types.MustMoney("0.27")},
		{Rate: types.MustMoney("0.28"), Unbounded: true},
	})
	if err != nil {
		panic(err)
	}
	return s
}

// Brackets returns a copy of the schedule's brackets.
func (s *Schedule) Brackets() []Bracket {
	out := make([]Bracket, len(s.brackets))
	copy(out, s.brackets)
	return out
}

// Tax applies the brackets progressively. Non-positive gains owe nothing.
func (s *Schedule) Tax(gain types.Money) types.Money {
	total := decimal.Zero
	if !gain.IsPositive() {
		return total
	}

	remaining := gain
	prev := decimal.Zero
	for _, b := range s.brackets {
		slice := remaining
		if !b.Unbounded {
			slice = types.Min(remaining, b.UpperLimit.Sub(prev))
		}
		if !slice.IsPositive() {
			break
		}
		total = total.Add(slice.Mul(b.Rate))
		remaining = remaining.Sub(slice)
		prev = b.UpperLimit
	}
	return total
}

// MarginalRate returns the rate of the first bracket whose limit covers gain,
// or the last bracket's rate. Non-positive gains have a zero rate.
func (s *Schedule) MarginalRate(gain types.Money) types.Rate {
	if !gain.IsPositive() {
		return decimal.Zero
	}
	for _, b := range s.brackets {
		if b.Unbounded || gain.LessThanOrEqual(b.UpperLimit) {
			return b.Rate
		}
	}
	return s.brackets[len(s.brackets)-1].Rate
}
