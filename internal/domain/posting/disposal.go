// Package posting turns realized crypto gains into journal entries.
package posting

import (
	"context"
	"fmt"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/journal"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/tax"
	"github.com/Federicojaviermartino/crypto-erp-sub003/pkg/logger"
)

// Accounts are the chart codes a disposal is posted to.
type Accounts struct {
	Proceeds string `yaml:"proceeds"`
	Asset    string `yaml:"asset"`
	Gain     string `yaml:"gain"`
	Loss     string `yaml:"loss"`
}

// DefaultAccounts returns the Spanish chart codes: 572 bank, 250 long-term
// investments, 766 gains and 666 losses on financial assets.
func DefaultAccounts() Accounts {
	return Accounts{Proceeds: "572", Asset: "250", Gain: "766", Loss: "666"}
}

// WithDefaults fills empty codes from DefaultAccounts.
func (a Accounts) WithDefaults() Accounts {
	d := DefaultAccounts()
	if a.Proceeds == "" {
		a.Proceeds = d.Proceeds
	}
	if a.Asset == "" {
		a.Asset = d.Asset
	}
	if a.Gain == "" {
		a.Gain = d.Gain
	}
	if a.Loss == "" {
		a.Loss = d.Loss
	}
	return a
}

// Journal is the part of journal.Service the poster needs.
type Journal interface {
	Create(ctx context.Context, companyID id.ID, in journal.CreateInput) (*journal.Entry, error)
	Post(ctx context.Context, companyID, entryID id.ID) (*journal.Entry, error)
}

// DisposalPoster records CapitalGainResults as journal entries.
type DisposalPoster struct {
	journal  Journal
	accounts Accounts
	autoPost bool
}

// NewDisposalPoster creates a poster. Entries stay DRAFT unless WithAutoPost.
func NewDisposalPoster(j Journal, accounts Accounts) *DisposalPoster {
	return &DisposalPoster{journal: j, accounts: accounts.WithDefaults()}
}

// WithAutoPost posts every entry right after creating it.
func (p *DisposalPoster) WithAutoPost(on bool) *DisposalPoster {
	p.autoPost = on
	return p
}

// Lines builds the balanced lines of a disposal:
//
//	Dr proceeds   totalProceeds
//	Cr asset      totalCostBasis
//	Cr gain       gain        (gain > 0)
//	Dr loss       -gain       (gain < 0)
//
// Zero-amount lines are left out.
func Lines(r *tax.CapitalGainResult, a Accounts) []journal.LineInput {
	label := fmt.Sprintf("%s %s", r.Quantity.String(), r.AssetSymbol)
	var lines []journal.LineInput
	if r.TotalProceeds.IsPositive() {
		lines = append(lines, journal.LineInput{
			AccountCode: a.Proceeds,
			Debit:       r.TotalProceeds,
			Description: "Proceeds from sale of " + label,
		})
	}
	if r.TotalCostBasis.IsPositive() {
		lines = append(lines, journal.LineInput{
			AccountCode: a.Asset,
			Credit:      r.TotalCostBasis,
			Description: "Cost basis of " + label,
		})
	}
	switch {
	case r.Gain.IsPositive():
		lines = append(lines, journal.LineInput{
			AccountCode: a.Gain,
			Credit:      r.Gain,
			Description: "Capital gain on " + label,
		})
	case r.Gain.IsNegative():
		lines = append(lines, journal.LineInput{
			AccountCode: a.Loss,
			Debit:       r.Gain.Neg(),
			Description: "Capital loss on " + label,
		})
	}
	return lines
}

// Post creates the entry for one result, dated on the disposal date and
// referencing the disposal id.
func (p *DisposalPoster) Post(ctx context.Context, companyID id.ID, r *tax.CapitalGainResult) (*journal.Entry, error) {
	if r == nil {
		return nil, apperror.NewValidation("capital gain result is required")
	}

	e, err := p.journal.Create(ctx, companyID, journal.CreateInput{
		Date:        r.DisposalDate,
		Description: fmt.Sprintf("Disposal of %s %s", r.Quantity.String(), r.AssetSymbol),
		Reference:   r.DisposalID,
		Lines:       Lines(r, p.accounts),
	})
	if err != nil {
		return nil, fmt.Errorf("create disposal entry %s: %w", r.DisposalID, err)
	}

	if p.autoPost {
		if e, err = p.journal.Post(ctx, companyID, e.ID); err != nil {
			return nil, fmt.Errorf("post disposal entry %s: %w", r.DisposalID, err)
		}
	}

	logger.Info(ctx, "disposal posted to journal",
		"company_id", companyID,
		"disposal_id", r.DisposalID,
		"entry_number", e.Number,
		"gain", r.Gain.String())
	return e, nil
}

// PostAll posts results in order and stops at the first failure, returning
// the entries created so far.
func (p *DisposalPoster) PostAll(ctx context.Context, companyID id.ID, results []*tax.CapitalGainResult) ([]*journal.Entry, error) {
	entries := make([]*journal.Entry, 0, len(results))
	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return entries, err
		}
		e, err := p.Post(ctx, companyID, r)
		if err != nil {
			return entries, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
