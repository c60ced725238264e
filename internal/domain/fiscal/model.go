// Package fiscal manages fiscal years and guards journal writes against
// closed periods.
package fiscal

import (
	"context"
	"strings"
	"time"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/entity"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/types"
)

// FiscalYear is an accounting period of one company. Fiscal years of a
// company never overlap.
type FiscalYear struct {
	entity.BaseEntity
	CompanyID id.ID      `db:"company_id" json:"companyId"`
	Name      string     `db:"name" json:"name"`
	StartDate time.Time  `db:"start_date" json:"startDate"`
	EndDate   time.Time  `db:"end_date" json:"endDate"`
	IsClosed  bool       `db:"is_closed" json:"isClosed"`
	ClosedAt  *time.Time `db:"closed_at" json:"closedAt,omitempty"`
	Notes     string     `db:"notes" json:"notes,omitempty"`
	entity.Timestamps
}

// NewFiscalYear creates an open fiscal year.
func NewFiscalYear(companyID id.ID, name string, start, end time.Time) *FiscalYear {
	return &FiscalYear{
		BaseEntity: entity.NewBaseEntity(),
		CompanyID:  companyID,
		Name:       strings.TrimSpace(name),
		StartDate:  DateOf(start),
		EndDate:    DateOf(end),
		Timestamps: entity.NewTimestamps(),
	}
}

// Validate implements entity.Validatable.
func (fy *FiscalYear) Validate(_ context.Context) error {
	if id.IsNil(fy.CompanyID) {
		return apperror.NewValidation("company is required").WithDetail("field", "companyId")
	}
	if fy.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if !fy.EndDate.After(fy.StartDate) {
		return apperror.NewValidation("End date must be after start date").
			WithDetail("startDate", fy.StartDate.Format(time.DateOnly)).
			WithDetail("endDate", fy.EndDate.Format(time.DateOnly))
	}
	return nil
}

// Contains reports whether d falls on a calendar day inside the year,
// both bounds inclusive.
func (fy *FiscalYear) Contains(d time.Time) bool {
	day := DateOf(d)
	return !day.Before(DateOf(fy.StartDate)) && !day.After(DateOf(fy.EndDate))
}

// Overlaps reports whether [start, end] intersects the year.
func (fy *FiscalYear) Overlaps(start, end time.Time) bool {
	return !DateOf(start).After(DateOf(fy.EndDate)) && !DateOf(fy.StartDate).After(DateOf(end))
}

// Clamp moves d inside the year.
func (fy *FiscalYear) Clamp(d time.Time) time.Time {
	if d.Before(fy.StartDate) {
		return fy.StartDate
	}
	if DateOf(d).After(DateOf(fy.EndDate)) {
		return fy.EndDate
	}
	return d
}

// Close marks the year closed.
func (fy *FiscalYear) Close(at time.Time) error {
	if fy.IsClosed {
		return apperror.NewConflict("Fiscal year is already closed")
	}
	at = at.UTC()
	fy.IsClosed = true
	fy.ClosedAt = &at
	return nil
}

// Reopen clears the closed flag.
func (fy *FiscalYear) Reopen() error {
	if !fy.IsClosed {
		return apperror.NewConflict("Fiscal year is not closed")
	}
	fy.IsClosed = false
	fy.ClosedAt = nil
	return nil
}

// AssertOpen fails with PERIOD_CLOSED when the year is closed.
func AssertOpen(fy *FiscalYear) error {
	if fy.IsClosed {
		return apperror.NewPeriodClosed(fy.Name).WithDetail("fiscalYearId", fy.ID.String())
	}
	return nil
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EntryStats summarizes the journal entries of a fiscal year.
type EntryStats struct {
	Total       int64       `json:"totalEntries"`
	Draft       int64       `json:"draftEntries"`
	Posted      int64       `json:"postedEntries"`
	Reversed    int64       `json:"reversedEntries"`
	TotalDebit  types.Money `json:"totalDebit"`
	TotalCredit types.Money `json:"totalCredit"`

	// Earliest and latest entry dates in any status; nil without entries.
	FirstDate *time.Time `json:"firstEntryDate,omitempty"`
	LastDate  *time.Time `json:"lastEntryDate,omitempty"`
}

// Stats is the fiscal year plus its entry statistics.
type Stats struct {
	FiscalYear *FiscalYear `json:"fiscalYear"`
	EntryStats
	IsBalanced bool `json:"isBalanced"`
}
