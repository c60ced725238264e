// Package numerator implements journal entry numbering on top of a PostgreSQL
// counter table. Every call is a single UPSERT ... RETURNING, so the counter row
// lock serializes concurrent creators and numbers never repeat or skip.
package numerator

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	corenum "github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/numerator"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierFunc returns the querier bound to ctx (the active transaction, if any).
type QuerierFunc func(ctx context.Context) Querier

// Service provides strict per-(company, fiscal year) numbering.
type Service struct {
	querier QuerierFunc
}

// New creates a numerator bound to a fixed querier.
// Use for tests or single-connection tools.
func New(q Querier) *Service {
	return &Service{querier: func(context.Context) Querier { return q }}
}

// NewFromProvider creates a numerator that resolves its querier per call,
// typically postgres.TxManager.GetQuerier, so numbers are taken inside the
// caller's transaction.
func NewFromProvider(fn QuerierFunc) *Service {
	return &Service{querier: fn}
}

// Next returns the next number for key.
func (s *Service) Next(ctx context.Context, key corenum.Key) (int64, error) {
	if s == nil || s.querier == nil {
		return 0, fmt.Errorf("numerator service is not initialized")
	}
	if id.IsNil(key.CompanyID) || id.IsNil(key.FiscalYearID) {
		return 0, fmt.Errorf("numerator key requires company and fiscal year: %s", key)
	}

	var num int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (company_id, fiscal_year_id, current_val)
		VALUES ($1, $2, 1)
		ON CONFLICT (company_id, fiscal_year_id) DO UPDATE SET current_val = sys_sequences.current_val + 1
		RETURNING current_val
	`, key.CompanyID, key.FiscalYearID).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("next number for %s: %w", key, err)
	}
	return num, nil
}

// Reset sets the last issued number (for imports of historical journals).
func (s *Service) Reset(ctx context.Context, key corenum.Key, last int64) error {
	if last < 0 {
		return fmt.Errorf("reset %s: negative value %d", key, last)
	}

	var result int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_sequences (company_id, fiscal_year_id, current_val)
		VALUES ($1, $2, $3)
		ON CONFLICT (company_id, fiscal_year_id) DO UPDATE SET current_val = $3
		RETURNING current_val
	`, key.CompanyID, key.FiscalYearID, last).Scan(&result)
	if err != nil {
		return fmt.Errorf("reset %s: %w", key, err)
	}
	return nil
}

var _ corenum.Sequence = (*Service)(nil)
