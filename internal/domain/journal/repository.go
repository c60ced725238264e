package journal

import (
	"context"
	"time"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain"
)

// ListFilter narrows entry listings.
type ListFilter struct {
	Status       *Status
	FiscalYearID *id.ID
	From         *time.Time
	To           *time.Time
	Search       string
	domain.Page
}

// Repository persists journal entries.
type Repository interface {
	// Create inserts the entry and its lines.
	Create(ctx context.Context, e *Entry) error

	// Update writes the header. It fails with CONCURRENT_MODIFICATION when
	// the stored version differs from e.Version-1.
	Update(ctx context.Context, e *Entry) error

	ReplaceLines(ctx context.Context, entryID id.ID, lines []Line) error
	DeleteLines(ctx context.Context, entryID id.ID) error
	Delete(ctx context.Context, companyID, entryID id.ID) error

	// GetByID returns the entry with lines ordered by line number, or
	// apperror NotFound.
	GetByID(ctx context.Context, companyID, entryID id.ID) (*Entry, error)

	// List orders by date then number, newest first.
	List(ctx context.Context, companyID id.ID, filter ListFilter) (domain.ListResult[*Entry], error)
}
