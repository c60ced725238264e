// Package journal implements double-entry journal entries: balance
// validation, the DRAFT → POSTED → REVERSED lifecycle, reversal entries and
// sequential numbering per company and fiscal year.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/entity"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/types"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/ledger"
)

// Status is the lifecycle state of an entry.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusPosted   Status = "POSTED"
	StatusReversed Status = "REVERSED"
)

// MinLines is the minimum number of lines of an entry.
const MinLines = 2

// Line is one debit/credit movement of an entry. A line may carry both a
// debit and a credit.
type Line struct {
	EntryID     id.ID       `db:"entry_id" json:"-"`
	LineNumber  int         `db:"line_number" json:"lineNumber"`
	AccountID   id.ID       `db:"account_id" json:"accountId"`
	AccountCode string      `db:"account_code" json:"accountCode"`
	Debit       types.Money `db:"debit" json:"debit"`
	Credit      types.Money `db:"credit" json:"credit"`
	Description string      `db:"description" json:"description,omitempty"`
}

// Entry is a journal entry with its ordered lines.
type Entry struct {
	entity.BaseEntity
	CompanyID    id.ID      `db:"company_id" json:"companyId"`
	FiscalYearID id.ID      `db:"fiscal_year_id" json:"fiscalYearId"`
	Number       int64      `db:"number" json:"number"`
	Date         time.Time  `db:"date" json:"date"`
	Description  string     `db:"description" json:"description"`
	Reference    string     `db:"reference" json:"reference,omitempty"`
	Status       Status     `db:"status" json:"status"`
	IsReversal   bool       `db:"is_reversal" json:"isReversal"`
	ReversalOf   *id.ID     `db:"reversal_of" json:"reversalOf,omitempty"`
	ReversedBy   *id.ID     `db:"reversed_by" json:"reversedBy,omitempty"`
	PostedAt     *time.Time `db:"posted_at" json:"postedAt,omitempty"`
	PostedBy     *string    `db:"posted_by" json:"postedBy,omitempty"`
	entity.Timestamps

	Lines []Line `db:"-" json:"lines"`
}

// NewEntry creates a DRAFT entry. Line numbers are assigned from 1.
func NewEntry(companyID, fiscalYearID id.ID, date time.Time, description string, lines []Line) *Entry {
	e := &Entry{
		BaseEntity:   entity.NewBaseEntity(),
		CompanyID:    companyID,
		FiscalYearID: fiscalYearID,
		Date:         date.UTC(),
		Description:  description,
		Status:       StatusDraft,
		Timestamps:   entity.NewTimestamps(),
	}
	e.SetLines(lines)
	return e
}

// SetLines replaces the lines, renumbering them and linking them to e.
func (e *Entry) SetLines(lines []Line) {
	e.Lines = make([]Line, len(lines))
	for i, l := range lines {
		l.EntryID = e.ID
		l.LineNumber = i + 1
		e.Lines[i] = l
	}
}

// Totals sums debits and credits of the lines.
func (e *Entry) Totals() ledger.Totals {
	return SumLines(e.Lines)
}

// SumLines sums debits and credits.
func SumLines(lines []Line) ledger.Totals {
	t := ledger.Totals{Debit: decimal.Zero, Credit: decimal.Zero}
	for _, l := range lines {
		t = t.Add(l.Debit, l.Credit)
	}
	return t
}

// ValidateLines checks the structural rules of entry lines: at least two
// lines, no negative amounts and Σdebit == Σcredit within BalanceTolerance.
func ValidateLines(lines []Line) error {
	if len(lines) < MinLines {
		return apperror.NewValidation(fmt.Sprintf("a journal entry needs at least %d lines", MinLines)).
			WithDetail("field", "lines").
			WithDetail("count", len(lines))
	}
	for i, l := range lines {
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return apperror.NewValidation("debit and credit must not be negative").
				WithDetail("field", "lines").
				WithDetail("lineNumber", i+1)
		}
	}
	return ValidateBalance(lines)
}

// ValidateBalance fails with UNBALANCED_ENTRY when debits and credits differ
// by more than BalanceTolerance.
func ValidateBalance(lines []Line) error {
	t := SumLines(lines)
	if !types.WithinTolerance(t.Debit, t.Credit, types.BalanceTolerance) {
		return apperror.NewUnbalancedEntry(t.Debit.String(), t.Credit.String())
	}
	return nil
}

// Validate implements entity.Validatable.
func (e *Entry) Validate(_ context.Context) error {
	if id.IsNil(e.CompanyID) {
		return apperror.NewValidation("company is required").WithDetail("field", "companyId")
	}
	if id.IsNil(e.FiscalYearID) {
		return apperror.NewValidation("fiscal year is required").WithDetail("field", "fiscalYearId")
	}
	if e.Date.IsZero() {
		return apperror.NewValidation("date is required").WithDetail("field", "date")
	}
	for _, l := range e.Lines {
		if id.IsNil(l.AccountID) {
			return apperror.NewValidation("account is required").
				WithDetail("field", "lines").
				WithDetail("lineNumber", l.LineNumber)
		}
	}
	return ValidateLines(e.Lines)
}

// CanModify reports whether the entry may still be edited.
func (e *Entry) CanModify() error {
	switch e.Status {
	case StatusDraft:
		return nil
	case StatusPosted:
		return apperror.NewConflict("Cannot modify a posted journal entry").WithDetail("status", string(e.Status))
	default:
		return apperror.NewConflict("Cannot modify a reversed journal entry").WithDetail("status", string(e.Status))
	}
}

// MarkPosted moves a DRAFT entry to POSTED.
func (e *Entry) MarkPosted(at time.Time, by string) error {
	switch e.Status {
	case StatusPosted:
		return apperror.NewConflict("Journal entry is already posted")
	case StatusReversed:
		return apperror.NewInvalidTransition("journal entry", "reversed", "post")
	}
	at = at.UTC()
	e.Status = StatusPosted
	e.PostedAt = &at
	e.PostedBy = &by
	return nil
}

// MarkReversed moves an entry to the terminal REVERSED state. reversal is the
// counter-entry id, nil for drafts voided without one.
func (e *Entry) MarkReversed(reversal *id.ID) error {
	if e.Status == StatusReversed {
		return apperror.NewConflict("Journal entry is already reversed")
	}
	e.Status = StatusReversed
	e.ReversedBy = reversal
	return nil
}

// InLedger reports whether lines of an entry in this state count towards
// balances: POSTED entries, and REVERSED entries that were posted and carry a
// counter-entry, so the pair nets to zero. Drafts and voided drafts never do.
func InLedger(status Status, reversedBy *id.ID) bool {
	return status == StatusPosted || (status == StatusReversed && reversedBy != nil)
}

// InLedger reports whether e contributes to balances.
func (e *Entry) InLedger() bool {
	return InLedger(e.Status, e.ReversedBy)
}

// NewReversal builds the POSTED counter-entry of e dated at date: every line
// with debit and credit swapped.
func (e *Entry) NewReversal(date, postedAt time.Time, by string) *Entry {
	lines := make([]Line, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = Line{
			AccountID:   l.AccountID,
			AccountCode: l.AccountCode,
			Debit:       l.Credit,
			Credit:      l.Debit,
			Description: "Reversal: " + l.Description,
		}
	}

	r := NewEntry(e.CompanyID, e.FiscalYearID, date, fmt.Sprintf("Reversal of #%d: %s", e.Number, e.Description), lines)
	r.Reference = e.Reference
	r.IsReversal = true
	origin := e.ID
	r.ReversalOf = &origin
	postedAt = postedAt.UTC()
	r.Status = StatusPosted
	r.PostedAt = &postedAt
	r.PostedBy = &by
	return r
}
