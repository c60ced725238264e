package tax

import (
	"context"
	"fmt"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
)

// SnapshotStore keeps the last generated report per (company, year).
type SnapshotStore interface {
	// Save replaces any earlier snapshot of the same company and year.
	Save(ctx context.Context, r *Report) error

	// Load returns apperror NotFound when no snapshot exists.
	Load(ctx context.Context, companyID id.ID, year int) (*Report, error)
}

// Recompute regenerates the report from scratch and replaces the stored
// snapshot. Running it twice stores the same figures.
func (s *ReportService) Recompute(ctx context.Context, store SnapshotStore, companyID id.ID, year int) (*Report, error) {
	r, err := s.GenerateReport(ctx, companyID, year)
	if err != nil {
		return nil, err
	}
	if err := store.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("save tax snapshot %d: %w", year, err)
	}
	return r, nil
}
