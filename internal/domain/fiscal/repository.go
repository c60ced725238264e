package fiscal

import (
	"context"
	"time"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
)

// Repository persists fiscal years.
type Repository interface {
	Create(ctx context.Context, fy *FiscalYear) error

	// Update fails with CONCURRENT_MODIFICATION when the stored version
	// differs from fy.Version-1.
	Update(ctx context.Context, fy *FiscalYear) error

	Delete(ctx context.Context, companyID, fiscalYearID id.ID) error

	// GetByID and FindByDate return apperror NotFound when missing.
	GetByID(ctx context.Context, companyID, fiscalYearID id.ID) (*FiscalYear, error)
	FindByDate(ctx context.Context, companyID id.ID, date time.Time) (*FiscalYear, error)

	// GetForShare reads a year under a share row lock held until the
	// transaction ends. Journal writers take it so a concurrent close waits
	// for them. GetForUpdate takes the exclusive lock used by lifecycle
	// changes of the year itself. Both must run inside a transaction.
	GetForShare(ctx context.Context, companyID, fiscalYearID id.ID) (*FiscalYear, error)
	GetForUpdate(ctx context.Context, companyID, fiscalYearID id.ID) (*FiscalYear, error)

	// List orders by start date, newest first.
	List(ctx context.Context, companyID id.ID) ([]FiscalYear, error)

	// FindOverlapping returns years intersecting [start, end], skipping exclude.
	FindOverlapping(ctx context.Context, companyID id.ID, start, end time.Time, exclude *id.ID) ([]FiscalYear, error)
	ExistsByName(ctx context.Context, companyID id.ID, name string, exclude *id.ID) (bool, error)
}

// EntryCounter reports journal activity of a fiscal year. It is implemented
// by the journal store so this package does not depend on journal.
type EntryCounter interface {
	EntryStats(ctx context.Context, companyID, fiscalYearID id.ID) (EntryStats, error)
}
