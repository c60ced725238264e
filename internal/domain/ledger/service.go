package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/pkg/logger"
)

// CreateInput describes a new account.
type CreateInput struct {
	Code        string
	Name        string
	Description string
	Type        AccountType
	ParentCode  string
}

// UpdateInput carries optional changes. A non-nil empty ParentCode detaches
// the account to the root level.
type UpdateInput struct {
	Name        *string
	Description *string
	ParentCode  *string
}

// Invalidator is notified when a company's chart changes.
type Invalidator interface {
	InvalidateCompany(companyID id.ID)
}

// Service manages the chart of accounts and account balances.
type Service struct {
	repo        Repository
	invalidator Invalidator
}

// NewService creates a new account service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// WithInvalidator registers a cache to flush on chart changes.
func (s *Service) WithInvalidator(inv Invalidator) *Service {
	s.invalidator = inv
	return s
}

// Create adds an account. Duplicate codes are a conflict; a parent code must
// exist in the same company.
func (s *Service) Create(ctx context.Context, companyID id.ID, in CreateInput) (*Account, error) {
	acc := NewAccount(companyID, in.Code, in.Name, in.Type)
	acc.Description = strings.TrimSpace(in.Description)
	if p := strings.TrimSpace(in.ParentCode); p != "" {
		acc.ParentCode = &p
	}

	if err := acc.Validate(ctx); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByCode(ctx, companyID, acc.Code)
	if err != nil {
		return nil, fmt.Errorf("check account code: %w", err)
	}
	if exists {
		return nil, apperror.NewDuplicate("Account", "code", acc.Code)
	}

	if acc.ParentCode != nil {
		if _, err := s.repo.GetByCode(ctx, companyID, *acc.ParentCode); err != nil {
			if apperror.IsNotFound(err) {
				return nil, apperror.NewNotFound("Parent account", *acc.ParentCode)
			}
			return nil, err
		}
	}

	if err := s.repo.Create(ctx, acc); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	s.invalidate(companyID)

	logger.Info(ctx, "account created", "company_id", companyID, "code", acc.Code, "type", acc.Type)
	return acc, nil
}

// Update changes name, description or parent.
func (s *Service) Update(ctx context.Context, companyID, accountID id.ID, in UpdateInput) (*Account, error) {
	acc, err := s.repo.GetByID(ctx, companyID, accountID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		acc.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		acc.Description = strings.TrimSpace(*in.Description)
	}
	if in.ParentCode != nil {
		p := strings.TrimSpace(*in.ParentCode)
		if p == "" {
			acc.ParentCode = nil
		} else {
			if err := s.checkParent(ctx, companyID, acc.Code, p); err != nil {
				return nil, err
			}
			acc.ParentCode = &p
		}
	}

	if err := acc.Validate(ctx); err != nil {
		return nil, err
	}

	acc.Touch()
	acc.MarkUpdated(time.Now())
	if err := s.repo.Update(ctx, acc); err != nil {
		return nil, err
	}
	s.invalidate(companyID)
	return acc, nil
}

// checkParent rejects unknown parents and parent chains that lead back to code.
func (s *Service) checkParent(ctx context.Context, companyID id.ID, code, parentCode string) error {
	seen := map[string]bool{code: true}
	next := parentCode
	for next != "" {
		if seen[next] {
			return apperror.NewValidation("account hierarchy cannot contain cycles").
				WithDetail("code", code).WithDetail("parentCode", parentCode)
		}
		seen[next] = true
		p, err := s.repo.GetByCode(ctx, companyID, next)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("Parent account", next)
			}
			return err
		}
		next = p.ParentCodeValue()
	}
	return nil
}

// SetActive activates or deactivates an account.
func (s *Service) SetActive(ctx context.Context, companyID, accountID id.ID, active bool) (*Account, error) {
	acc, err := s.repo.GetByID(ctx, companyID, accountID)
	if err != nil {
		return nil, err
	}
	if acc.IsActive == active {
		return acc, nil
	}
	acc.IsActive = active
	acc.Touch()
	acc.MarkUpdated(time.Now())
	if err := s.repo.Update(ctx, acc); err != nil {
		return nil, err
	}
	s.invalidate(companyID)

	logger.Info(ctx, "account activation changed", "code", acc.Code, "active", active)
	return acc, nil
}

// GetByID returns one account.
func (s *Service) GetByID(ctx context.Context, companyID, accountID id.ID) (*Account, error) {
	return s.repo.GetByID(ctx, companyID, accountID)
}

// GetByCode returns one account by code.
func (s *Service) GetByCode(ctx context.Context, companyID id.ID, code string) (*Account, error) {
	return s.repo.GetByCode(ctx, companyID, code)
}

// List returns accounts ordered by code.
func (s *Service) List(ctx context.Context, companyID id.ID, filter ListFilter) ([]Account, error) {
	return s.repo.List(ctx, companyID, filter)
}

// Tree returns the chart of accounts as a forest.
func (s *Service) Tree(ctx context.Context, companyID id.ID) ([]*Node, error) {
	accounts, err := s.repo.List(ctx, companyID, ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return BuildTree(accounts), nil
}

// ResolveCodes maps codes to accounts. The first unknown code (in sorted
// order) is reported as NotFound.
func (s *Service) ResolveCodes(ctx context.Context, companyID id.ID, codes []string) (map[string]Account, error) {
	uniq := uniqueSorted(codes)
	found, err := s.repo.ListByCodes(ctx, companyID, uniq)
	if err != nil {
		return nil, fmt.Errorf("resolve account codes: %w", err)
	}

	byCode := make(map[string]Account, len(found))
	for _, a := range found {
		byCode[a.Code] = a
	}
	for _, c := range uniq {
		if _, ok := byCode[c]; !ok {
			return nil, apperror.NewNotFound("Account", c)
		}
	}
	return byCode, nil
}

// GetBalance returns the signed balance of one account from POSTED lines.
func (s *Service) GetBalance(ctx context.Context, companyID, accountID id.ID, period Period) (*Balance, error) {
	acc, err := s.repo.GetByID(ctx, companyID, accountID)
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.SumPosted(ctx, companyID, []id.ID{accountID}, period)
	if err != nil {
		return nil, fmt.Errorf("sum posted lines: %w", err)
	}
	b := NewBalance(acc, totals[accountID])
	return &b, nil
}

// GetBalances returns balances for several accounts in one query. Unknown
// ids are reported as NotFound.
func (s *Service) GetBalances(ctx context.Context, companyID id.ID, accountIDs []id.ID, period Period) ([]Balance, error) {
	all, err := s.repo.List(ctx, companyID, ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	byID := make(map[id.ID]*Account, len(all))
	for i := range all {
		byID[all[i].ID] = &all[i]
	}
	for _, aid := range accountIDs {
		if _, ok := byID[aid]; !ok {
			return nil, apperror.NewNotFound("Account", aid)
		}
	}

	totals, err := s.repo.SumPosted(ctx, companyID, accountIDs, period)
	if err != nil {
		return nil, fmt.Errorf("sum posted lines: %w", err)
	}

	out := make([]Balance, 0, len(accountIDs))
	for _, aid := range accountIDs {
		out = append(out, NewBalance(byID[aid], totals[aid]))
	}
	return out, nil
}

func (s *Service) invalidate(companyID id.ID) {
	if s.invalidator != nil {
		s.invalidator.InvalidateCompany(companyID)
	}
}

func uniqueSorted(codes []string) []string {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[strings.TrimSpace(c)] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
