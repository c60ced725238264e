package fiscal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/tx"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/types"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain"
	"github.com/Federicojaviermartino/crypto-erp-sub003/pkg/logger"
)

// CreateInput describes a new fiscal year.
type CreateInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Notes     string
}

// UpdateInput carries optional changes.
type UpdateInput struct {
	Name      *string
	StartDate *time.Time
	EndDate   *time.Time
	Notes     *string
}

// Service manages fiscal year lifecycle.
type Service struct {
	repo      Repository
	entries   EntryCounter
	txManager tx.Manager
	hooks     *domain.HookRegistry[*FiscalYear]
	now       func() time.Time
}

// NewService creates a fiscal year service.
func NewService(repo Repository, entries EntryCounter, txManager tx.Manager) *Service {
	if txManager == nil {
		txManager = tx.Nop{}
	}
	return &Service{
		repo:      repo,
		entries:   entries,
		txManager: txManager,
		hooks:     domain.NewHookRegistry[*FiscalYear](),
		now:       time.Now,
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*FiscalYear] {
	return s.hooks
}

// Create adds a fiscal year. Overlapping ranges and duplicate names conflict.
func (s *Service) Create(ctx context.Context, companyID id.ID, in CreateInput) (*FiscalYear, error) {
	fy := NewFiscalYear(companyID, in.Name, in.StartDate, in.EndDate)
	fy.Notes = strings.TrimSpace(in.Notes)
	if err := fy.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkUnique(ctx, fy, nil); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, fy); err != nil {
			return fmt.Errorf("create fiscal year: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterCreate, fy); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}
	logger.Info(ctx, "fiscal year created",
		"company_id", companyID,
		"fiscal_year_id", fy.ID,
		"name", fy.Name)
	return fy, nil
}

// Update changes an open fiscal year.
func (s *Service) Update(ctx context.Context, companyID, fiscalYearID id.ID, in UpdateInput) (*FiscalYear, error) {
	var fy *FiscalYear
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		fy, err = s.repo.GetForUpdate(ctx, companyID, fiscalYearID)
		if err != nil {
			return err
		}
		if fy.IsClosed {
			return apperror.NewConflict("Cannot modify a closed fiscal year")
		}

		if in.Name != nil {
			fy.Name = strings.TrimSpace(*in.Name)
		}
		if in.StartDate != nil {
			fy.StartDate = DateOf(*in.StartDate)
		}
		if in.EndDate != nil {
			fy.EndDate = DateOf(*in.EndDate)
		}
		if in.Notes != nil {
			fy.Notes = strings.TrimSpace(*in.Notes)
		}
		if err := fy.Validate(ctx); err != nil {
			return err
		}
		if in.StartDate != nil || in.EndDate != nil {
			if err := s.checkCoversEntries(ctx, fy); err != nil {
				return err
			}
		}
		if err := s.checkUnique(ctx, fy, &fy.ID); err != nil {
			return err
		}

		fy.Touch()
		fy.MarkUpdated(s.now())
		return s.repo.Update(ctx, fy)
	})
	if err != nil {
		return nil, err
	}
	return fy, nil
}

// checkCoversEntries rejects a date range that would leave existing journal
// entries outside their fiscal year.
func (s *Service) checkCoversEntries(ctx context.Context, fy *FiscalYear) error {
	stats, err := s.entries.EntryStats(ctx, fy.CompanyID, fy.ID)
	if err != nil {
		return fmt.Errorf("count entries: %w", err)
	}
	if stats.FirstDate == nil || stats.LastDate == nil {
		return nil
	}
	if !fy.Contains(*stats.FirstDate) || !fy.Contains(*stats.LastDate) {
		return apperror.NewValidation("Fiscal year dates must cover its existing journal entries").
			WithDetail("firstEntryDate", stats.FirstDate.Format(time.DateOnly)).
			WithDetail("lastEntryDate", stats.LastDate.Format(time.DateOnly))
	}
	return nil
}

func (s *Service) checkUnique(ctx context.Context, fy *FiscalYear, exclude *id.ID) error {
	overlapping, err := s.repo.FindOverlapping(ctx, fy.CompanyID, fy.StartDate, fy.EndDate, exclude)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if len(overlapping) > 0 {
		return apperror.NewConflict("Fiscal year overlaps with existing fiscal year: "+overlapping[0].Name).
			WithDetail("fiscalYearId", overlapping[0].ID.String())
	}

	dup, err := s.repo.ExistsByName(ctx, fy.CompanyID, fy.Name, exclude)
	if err != nil {
		return fmt.Errorf("check name: %w", err)
	}
	if dup {
		return apperror.NewDuplicate("Fiscal year", "name", fy.Name)
	}
	return nil
}

// Close closes a fiscal year. Years with draft entries cannot be closed.
func (s *Service) Close(ctx context.Context, companyID, fiscalYearID id.ID) (*FiscalYear, error) {
	var fy *FiscalYear
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		fy, err = s.repo.GetForUpdate(ctx, companyID, fiscalYearID)
		if err != nil {
			return err
		}
		if fy.IsClosed {
			return apperror.NewConflict("Fiscal year is already closed")
		}

		stats, err := s.entries.EntryStats(ctx, companyID, fiscalYearID)
		if err != nil {
			return fmt.Errorf("count entries: %w", err)
		}
		if stats.Draft > 0 {
			return apperror.NewValidation(fmt.Sprintf(
				"Cannot close fiscal year with %d draft journal entries. Post or void them first.", stats.Draft)).
				WithDetail("draftEntries", stats.Draft)
		}

		if err := fy.Close(s.now()); err != nil {
			return err
		}
		fy.Touch()
		fy.MarkUpdated(s.now())
		return s.repo.Update(ctx, fy)
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterClose, fy); err != nil {
		logger.Warn(ctx, "after-close hook failed", "error", err)
	}
	logger.Info(ctx, "fiscal year closed",
		"company_id", companyID,
		"fiscal_year_id", fy.ID,
		"name", fy.Name)
	return fy, nil
}

// Reopen reopens a closed fiscal year.
func (s *Service) Reopen(ctx context.Context, companyID, fiscalYearID id.ID) (*FiscalYear, error) {
	var fy *FiscalYear
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		fy, err = s.repo.GetForUpdate(ctx, companyID, fiscalYearID)
		if err != nil {
			return err
		}
		if err := fy.Reopen(); err != nil {
			return err
		}
		fy.Touch()
		fy.MarkUpdated(s.now())
		return s.repo.Update(ctx, fy)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "fiscal year reopened",
		"company_id", companyID,
		"fiscal_year_id", fy.ID)
	return fy, nil
}

// Delete removes a fiscal year without journal entries.
func (s *Service) Delete(ctx context.Context, companyID, fiscalYearID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetForUpdate(ctx, companyID, fiscalYearID); err != nil {
			return err
		}
		stats, err := s.entries.EntryStats(ctx, companyID, fiscalYearID)
		if err != nil {
			return fmt.Errorf("count entries: %w", err)
		}
		if stats.Total > 0 {
			return apperror.NewConflict(fmt.Sprintf("Cannot delete fiscal year with %d journal entries", stats.Total)).
				WithDetail("entries", stats.Total)
		}
		return s.repo.Delete(ctx, companyID, fiscalYearID)
	})
}

// GetByID returns one fiscal year.
func (s *Service) GetByID(ctx context.Context, companyID, fiscalYearID id.ID) (*FiscalYear, error) {
	return s.repo.GetByID(ctx, companyID, fiscalYearID)
}

// GetForShare returns one fiscal year and keeps it share-locked until the
// caller's transaction ends.
func (s *Service) GetForShare(ctx context.Context, companyID, fiscalYearID id.ID) (*FiscalYear, error) {
	return s.repo.GetForShare(ctx, companyID, fiscalYearID)
}

// FindByDate returns the fiscal year containing date, open or closed.
func (s *Service) FindByDate(ctx context.Context, companyID id.ID, date time.Time) (*FiscalYear, error) {
	return s.repo.FindByDate(ctx, companyID, DateOf(date))
}

// FindCurrent returns the open fiscal year containing today.
func (s *Service) FindCurrent(ctx context.Context, companyID id.ID) (*FiscalYear, error) {
	today := s.now()
	fy, err := s.repo.FindByDate(ctx, companyID, DateOf(today))
	if err != nil {
		return nil, err
	}
	if fy.IsClosed {
		return nil, apperror.NewNotFound("Open fiscal year", today.Format(time.DateOnly))
	}
	return fy, nil
}

// List returns all fiscal years of a company, newest first.
func (s *Service) List(ctx context.Context, companyID id.ID) ([]FiscalYear, error) {
	return s.repo.List(ctx, companyID)
}

// Stats returns entry counts and posted totals of a fiscal year.
func (s *Service) Stats(ctx context.Context, companyID, fiscalYearID id.ID) (*Stats, error) {
	fy, err := s.repo.GetByID(ctx, companyID, fiscalYearID)
	if err != nil {
		return nil, err
	}
	es, err := s.entries.EntryStats(ctx, companyID, fiscalYearID)
	if err != nil {
		return nil, fmt.Errorf("entry stats: %w", err)
	}
	return &Stats{
		FiscalYear: fy,
		EntryStats: es,
		IsBalanced: types.WithinTolerance(es.TotalDebit, es.TotalCredit, types.ReportTolerance),
	}, nil
}
