package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	appctx "github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/context"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/numerator"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/tx"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/types"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/fiscal"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/ledger"
	"github.com/Federicojaviermartino/crypto-erp-sub003/pkg/logger"
)

// FiscalYears looks up the fiscal year of an entry. GetForShare holds the
// year's row until the transaction ends so it cannot be closed under a writer.
type FiscalYears interface {
	GetByID(ctx context.Context, companyID, fiscalYearID id.ID) (*fiscal.FiscalYear, error)
	GetForShare(ctx context.Context, companyID, fiscalYearID id.ID) (*fiscal.FiscalYear, error)
	FindByDate(ctx context.Context, companyID id.ID, date time.Time) (*fiscal.FiscalYear, error)
}

// AccountResolver maps account codes to accounts. Unknown codes are NotFound.
type AccountResolver interface {
	ResolveCodes(ctx context.Context, companyID id.ID, codes []string) (map[string]ledger.Account, error)
}

// LineInput is a line referencing its account by code.
type LineInput struct {
	AccountCode string
	Debit       types.Money
	Credit      types.Money
	Description string
}

// CreateInput describes a new entry. When FiscalYearID is nil the fiscal year
// containing Date is used.
type CreateInput struct {
	FiscalYearID *id.ID
	Date         time.Time
	Description  string
	Reference    string
	Lines        []LineInput
}

// UpdateInput carries optional changes of a DRAFT entry. Nil Lines keeps the
// current lines.
type UpdateInput struct {
	Date        *time.Time
	Description *string
	Reference   *string
	Lines       []LineInput
}

// VoidResult is the outcome of Void. Reversal is nil for voided drafts.
type VoidResult struct {
	Entry    *Entry `json:"entry"`
	Reversal *Entry `json:"reversal,omitempty"`
}

// Service implements the journal entry lifecycle.
type Service struct {
	repo      Repository
	years     FiscalYears
	accounts  AccountResolver
	sequence  numerator.Sequence
	txManager tx.Manager
	hooks     *domain.HookRegistry[*Entry]
	now       func() time.Time
}

// NewService creates a journal service.
func NewService(
	repo Repository,
	years FiscalYears,
	accounts AccountResolver,
	sequence numerator.Sequence,
	txManager tx.Manager,
) *Service {
	if txManager == nil {
		txManager = tx.Nop{}
	}
	return &Service{
		repo:      repo,
		years:     years,
		accounts:  accounts,
		sequence:  sequence,
		txManager: txManager,
		hooks:     domain.NewHookRegistry[*Entry](),
		now:       time.Now,
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*Entry] {
	return s.hooks
}

// Create validates and stores a DRAFT entry. The entry number is taken from
// the per-(company, fiscal year) sequence inside the creating transaction.
func (s *Service) Create(ctx context.Context, companyID id.ID, in CreateInput) (*Entry, error) {
	if in.Date.IsZero() {
		return nil, apperror.NewValidation("date is required").WithDetail("field", "date")
	}
	lines, err := s.buildLines(ctx, companyID, in.Lines)
	if err != nil {
		return nil, err
	}

	fy, err := s.fiscalYearFor(ctx, companyID, in.FiscalYearID, in.Date)
	if err != nil {
		return nil, err
	}
	if err := assertWritable(fy, "create"); err != nil {
		return nil, err
	}

	e := NewEntry(companyID, fy.ID, in.Date, strings.TrimSpace(in.Description), lines)
	e.Reference = strings.TrimSpace(in.Reference)
	if err := s.hooks.Run(ctx, domain.BeforeCreate, e); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.years.GetForShare(ctx, companyID, fy.ID)
		if err != nil {
			return err
		}
		if err := assertWritable(locked, "create"); err != nil {
			return err
		}

		n, err := s.sequence.Next(ctx, numerator.Key{CompanyID: companyID, FiscalYearID: fy.ID})
		if err != nil {
			return fmt.Errorf("next entry number: %w", err)
		}
		e.Number = n
		if err := s.repo.Create(ctx, e); err != nil {
			return fmt.Errorf("create journal entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterCreate, e); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}
	logger.Info(ctx, "journal entry created",
		"company_id", companyID,
		"entry_id", e.ID,
		"number", e.Number,
		"fiscal_year_id", fy.ID)
	return e, nil
}

// Update changes a DRAFT entry. A new date must stay inside the entry's
// fiscal year; new lines are re-validated.
func (s *Service) Update(ctx context.Context, companyID, entryID id.ID, in UpdateInput) (*Entry, error) {
	var lines []Line
	if in.Lines != nil {
		var err error
		if lines, err = s.buildLines(ctx, companyID, in.Lines); err != nil {
			return nil, err
		}
	}

	var e *Entry
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		e, err = s.repo.GetByID(ctx, companyID, entryID)
		if err != nil {
			return err
		}
		if err := e.CanModify(); err != nil {
			return err
		}

		if in.Date != nil {
			fy, err := s.years.GetForShare(ctx, companyID, e.FiscalYearID)
			if err != nil {
				return err
			}
			if !fy.Contains(*in.Date) {
				return apperror.NewValidation("entry date must stay inside its fiscal year").
					WithDetail("fiscalYearId", fy.ID.String()).
					WithDetail("date", in.Date.Format(time.DateOnly))
			}
			if err := fiscal.AssertOpen(fy); err != nil {
				return err
			}
			e.Date = in.Date.UTC()
		}
		if in.Description != nil {
			e.Description = strings.TrimSpace(*in.Description)
		}
		if in.Reference != nil {
			e.Reference = strings.TrimSpace(*in.Reference)
		}
		if lines != nil {
			e.SetLines(lines)
		}
		if err := s.hooks.Run(ctx, domain.BeforeUpdate, e); err != nil {
			return err
		}

		e.Touch()
		e.MarkUpdated(s.now())
		if err := s.repo.Update(ctx, e); err != nil {
			return fmt.Errorf("update journal entry: %w", err)
		}
		if lines != nil {
			if err := s.repo.ReplaceLines(ctx, e.ID, e.Lines); err != nil {
				return fmt.Errorf("replace lines: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterUpdate, e); err != nil {
		logger.Warn(ctx, "after-update hook failed", "error", err)
	}
	return e, nil
}

// Post moves a DRAFT entry to POSTED and stamps postedAt/postedBy.
func (s *Service) Post(ctx context.Context, companyID, entryID id.ID) (*Entry, error) {
	var e *Entry
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		e, err = s.repo.GetByID(ctx, companyID, entryID)
		if err != nil {
			return err
		}
		if err := e.MarkPosted(s.now(), appctx.ActorOrSystem(ctx)); err != nil {
			return err
		}

		fy, err := s.years.GetForShare(ctx, companyID, e.FiscalYearID)
		if err != nil {
			return err
		}
		if err := assertWritable(fy, "post"); err != nil {
			return err
		}

		e.Touch()
		e.MarkUpdated(s.now())
		return s.repo.Update(ctx, e)
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterPost, e); err != nil {
		logger.Warn(ctx, "after-post hook failed", "error", err)
	}
	logger.Info(ctx, "journal entry posted",
		"company_id", companyID,
		"entry_id", e.ID,
		"number", e.Number)
	return e, nil
}

// Void reverses an entry. A DRAFT goes straight to REVERSED. A POSTED entry
// gets a POSTED counter-entry with swapped lines, numbered from the same
// sequence, and is marked REVERSED, all in one transaction. Entries of a
// closed fiscal year cannot be voided.
func (s *Service) Void(ctx context.Context, companyID, entryID id.ID) (*VoidResult, error) {
	res := &VoidResult{}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		e, err := s.repo.GetByID(ctx, companyID, entryID)
		if err != nil {
			return err
		}
		res.Entry = e

		switch e.Status {
		case StatusReversed:
			return apperror.NewConflict("Journal entry is already reversed")
		case StatusDraft:
			if err := e.MarkReversed(nil); err != nil {
				return err
			}
			e.Touch()
			e.MarkUpdated(s.now())
			return s.repo.Update(ctx, e)
		}

		fy, err := s.years.GetForShare(ctx, companyID, e.FiscalYearID)
		if err != nil {
			return err
		}
		if err := assertWritable(fy, "void"); err != nil {
			return err
		}

		now := s.now()
		rev := e.NewReversal(fy.Clamp(now), now, appctx.ActorOrSystem(ctx))
		n, err := s.sequence.Next(ctx, numerator.Key{CompanyID: companyID, FiscalYearID: fy.ID})
		if err != nil {
			return fmt.Errorf("next entry number: %w", err)
		}
		rev.Number = n
		if err := s.repo.Create(ctx, rev); err != nil {
			return fmt.Errorf("create reversal: %w", err)
		}

		if err := e.MarkReversed(&rev.ID); err != nil {
			return err
		}
		e.Touch()
		e.MarkUpdated(now)
		if err := s.repo.Update(ctx, e); err != nil {
			return fmt.Errorf("mark reversed: %w", err)
		}
		res.Reversal = rev
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterVoid, res.Entry); err != nil {
		logger.Warn(ctx, "after-void hook failed", "error", err)
	}
	kv := []any{"company_id", companyID, "entry_id", res.Entry.ID, "number", res.Entry.Number}
	if res.Reversal != nil {
		kv = append(kv, "reversal_id", res.Reversal.ID, "reversal_number", res.Reversal.Number)
	}
	logger.Info(ctx, "journal entry voided", kv...)
	return res, nil
}

// Delete removes a DRAFT entry with its lines.
func (s *Service) Delete(ctx context.Context, companyID, entryID id.ID) error {
	var e *Entry
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		e, err = s.repo.GetByID(ctx, companyID, entryID)
		if err != nil {
			return err
		}
		if e.Status != StatusDraft {
			return apperror.NewConflict("Only draft entries can be deleted").WithDetail("status", string(e.Status))
		}
		if err := s.repo.DeleteLines(ctx, entryID); err != nil {
			return fmt.Errorf("delete lines: %w", err)
		}
		return s.repo.Delete(ctx, companyID, entryID)
	})
	if err != nil {
		return err
	}

	if err := s.hooks.Run(ctx, domain.AfterDelete, e); err != nil {
		logger.Warn(ctx, "after-delete hook failed", "error", err)
	}
	return nil
}

// GetByID returns an entry with lines.
func (s *Service) GetByID(ctx context.Context, companyID, entryID id.ID) (*Entry, error) {
	return s.repo.GetByID(ctx, companyID, entryID)
}

// List returns entries matching filter.
func (s *Service) List(ctx context.Context, companyID id.ID, filter ListFilter) (domain.ListResult[*Entry], error) {
	filter.Page = filter.Page.Normalize()
	return s.repo.List(ctx, companyID, filter)
}

// assertWritable rejects journal writes into a closed fiscal year.
func assertWritable(fy *fiscal.FiscalYear, action string) error {
	if err := fiscal.AssertOpen(fy); err != nil {
		return apperror.NewValidation("Cannot "+action+" entries in a closed fiscal year").
			WithDetail("fiscalYearId", fy.ID.String()).
			WithCause(err)
	}
	return nil
}

func (s *Service) fiscalYearFor(ctx context.Context, companyID id.ID, fiscalYearID *id.ID, date time.Time) (*fiscal.FiscalYear, error) {
	if fiscalYearID == nil {
		fy, err := s.years.FindByDate(ctx, companyID, date)
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNoFiscalYear(date.Format(time.DateOnly))
		}
		return fy, err
	}

	fy, err := s.years.GetByID(ctx, companyID, *fiscalYearID)
	if err != nil {
		return nil, err
	}
	if !fy.Contains(date) {
		return nil, apperror.NewValidation("entry date is outside the fiscal year").
			WithDetail("fiscalYearId", fy.ID.String()).
			WithDetail("date", date.Format(time.DateOnly))
	}
	return fy, nil
}

// buildLines validates amounts and balance, then resolves account codes.
func (s *Service) buildLines(ctx context.Context, companyID id.ID, in []LineInput) ([]Line, error) {
	lines := make([]Line, len(in))
	codes := make([]string, len(in))
	for i, l := range in {
		code := strings.TrimSpace(l.AccountCode)
		if code == "" {
			return nil, apperror.NewValidation("account code is required").
				WithDetail("field", "lines").
				WithDetail("lineNumber", i+1)
		}
		codes[i] = code
		lines[i] = Line{
			AccountCode: code,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: strings.TrimSpace(l.Description),
		}
	}
	if err := ValidateLines(lines); err != nil {
		return nil, err
	}

	accounts, err := s.accounts.ResolveCodes(ctx, companyID, codes)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		lines[i].AccountID = accounts[lines[i].AccountCode].ID
	}
	return lines, nil
}
