package tax

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/apperror"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/costbasis"
	"github.com/Federicojaviermartino/crypto-erp-sub003/pkg/logger"
)

var tracer = otel.Tracer("crypto-erp/tax")

// Report is the annual capital gains report of one company.
type Report struct {
	CompanyID   id.ID                 `json:"companyId"`
	Year        int                   `json:"year"`
	GeneratedAt time.Time             `json:"generatedAt"`
	Summary     Summary               `json:"summary"`
	Results     []CapitalGainResult   `json:"results"`
	Diagnostics costbasis.Diagnostics `json:"diagnostics,omitempty"`
}

// ReportService rebuilds annual reports from the full transaction history.
// Every call recomputes from scratch, so it is safe to re-run.
type ReportService struct {
	source      TransactionSource
	calc        *Calculator
	concurrency int
	now         func() time.Time
}

// NewReportService creates a report service.
func NewReportService(source TransactionSource, calc *Calculator) *ReportService {
	if calc == nil {
		calc = NewCalculator(nil)
	}
	return &ReportService{
		source:      source,
		calc:        calc,
		concurrency: costbasis.DefaultReplayConcurrency,
		now:         time.Now,
	}
}

// WithConcurrency bounds parallel per-asset replays.
func (s *ReportService) WithConcurrency(n int) *ReportService {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// YearBounds returns the first and last instant of a calendar year in UTC.
func YearBounds(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0).Add(-time.Nanosecond)
}

// GenerateReport replays every asset up to Dec 31 of year and reports the
// disposals dated inside the year.
func (s *ReportService) GenerateReport(ctx context.Context, companyID id.ID, year int) (*Report, error) {
	if year < 1970 || year > 9999 {
		return nil, apperror.NewValidation("year out of range").WithDetail("year", year)
	}

	ctx, span := tracer.Start(ctx, "tax.GenerateReport", trace.WithAttributes(
		attribute.String("company.id", companyID.String()),
		attribute.Int("tax.year", year),
	))
	defer span.End()

	start, end := YearBounds(year)
	txs, err := s.source.ListTransactions(ctx, companyID, end)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	books, err := costbasis.ReplayAll(ctx, Histories(txs), s.concurrency)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("replay lots: %w", err)
	}

	results := make([]CapitalGainResult, 0)
	var diags costbasis.Diagnostics
	for _, b := range books {
		for _, rec := range b.Disposals() {
			if rec.Disposal.Date.Before(start) {
				continue
			}
			if r := s.calc.FromRecord(rec); r != nil {
				results = append(results, *r)
			}
		}
		for _, d := range b.Diagnostics() {
			if !d.Date.Before(start) {
				diags = append(diags, d)
			}
		}
	}
	sortResults(results)

	report := &Report{
		CompanyID:   companyID,
		Year:        year,
		GeneratedAt: s.now().UTC(),
		Summary:     Summarize(year, results, s.calc.Schedule()),
		Results:     results,
		Diagnostics: diags,
	}

	for _, d := range diags {
		if d.Severity == costbasis.SeverityWarning {
			logger.Warn(ctx, "cost basis degraded",
				"company_id", companyID, "asset", d.AssetSymbol, "reference", d.Reference,
				"shortfall", d.Shortfall.String(), "code", d.Code)
		}
	}
	logger.Info(ctx, "tax report generated",
		"company_id", companyID,
		"year", year,
		"disposals", len(results),
		"net_gain", report.Summary.NetGain.StringFixed(2),
		"estimated_tax", report.Summary.EstimatedTax.StringFixed(2))

	span.SetAttributes(attribute.Int("tax.disposals", len(results)))
	return report, nil
}

// CapitalGains returns only the per-disposal results of a year.
func (s *ReportService) CapitalGains(ctx context.Context, companyID id.ID, year int) ([]CapitalGainResult, error) {
	r, err := s.GenerateReport(ctx, companyID, year)
	if err != nil {
		return nil, err
	}
	return r.Results, nil
}

// OpenLots returns the lots of one asset still held at a date.
func (s *ReportService) OpenLots(ctx context.Context, companyID id.ID, symbol string, at time.Time) ([]costbasis.Lot, error) {
	book, err := s.bookFor(ctx, companyID, symbol, at)
	if err != nil {
		return nil, err
	}
	return book.OpenLotsAt(at), nil
}

func (s *ReportService) bookFor(ctx context.Context, companyID id.ID, symbol string, at time.Time) (*costbasis.Book, error) {
	symbol = normalizeSymbol(symbol)
	if _, err := s.source.GetAsset(ctx, companyID, symbol); err != nil {
		return nil, err
	}
	txs, err := s.source.ListTransactions(ctx, companyID, at)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	for _, h := range Histories(txs) {
		if h.AssetSymbol == symbol {
			return costbasis.BuildLots(symbol, h.Acquisitions, h.Disposals), nil
		}
	}
	return costbasis.NewBook(symbol, nil), nil
}

func sortResults(rs []CapitalGainResult) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].DisposalDate.Equal(rs[j].DisposalDate) {
			return rs[i].DisposalDate.Before(rs[j].DisposalDate)
		}
		return rs[i].AssetSymbol < rs[j].AssetSymbol
	})
}
