// Package worker runs periodic tax report recomputation for a set of
// companies and optionally books the year's disposals into the journal.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	appctx "github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/context"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/journal"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/posting"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/tax"
	"github.com/Federicojaviermartino/crypto-erp-sub003/pkg/logger"
)

// Reports is the part of tax.ReportService the worker needs.
type Reports interface {
	Recompute(ctx context.Context, store tax.SnapshotStore, companyID id.ID, year int) (*tax.Report, error)
}

// Entries lists journal entries to find disposals already booked.
type Entries interface {
	List(ctx context.Context, companyID id.ID, filter journal.ListFilter) (domain.ListResult[*journal.Entry], error)
}

// Config controls a Recomputer.
type Config struct {
	Companies   []id.ID
	Year        func(now time.Time) int
	Concurrency int
	Interval    time.Duration
}

// Recomputer regenerates tax snapshots per company.
type Recomputer struct {
	reports Reports
	store   tax.SnapshotStore
	cfg     Config

	poster  *posting.DisposalPoster
	entries Entries

	now func() time.Time
	log *logger.Logger
}

// NewRecomputer creates a worker. Disposal booking is off until WithPosting.
func NewRecomputer(reports Reports, store tax.SnapshotStore, cfg Config, log *logger.Logger) *Recomputer {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Year == nil {
		cfg.Year = func(now time.Time) int { return now.UTC().Year() }
	}
	return &Recomputer{
		reports: reports,
		store:   store,
		cfg:     cfg,
		now:     time.Now,
		log:     log.WithComponent("tax-worker"),
	}
}

// WithPosting books every disposal of the recomputed year that has no
// journal entry yet, matched by reference.
func (w *Recomputer) WithPosting(poster *posting.DisposalPoster, entries Entries) *Recomputer {
	w.poster = poster
	w.entries = entries
	return w
}

// Run recomputes once, then on every interval tick until ctx is done. A zero
// interval runs once.
func (w *Recomputer) Run(ctx context.Context) error {
	err := w.RunOnce(ctx)
	if w.cfg.Interval <= 0 {
		return err
	}
	if err != nil {
		w.log.Errorw("recompute failed", "error", err)
	}

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.log.Errorw("recompute failed", "error", err)
			}
		}
	}
}

// RunOnce recomputes every company, at most Concurrency at a time. A failing
// company does not stop the others. Each company run gets its own trace.
func (w *Recomputer) RunOnce(ctx context.Context) error {
	year := w.cfg.Year(w.now())
	started := time.Now()

	var failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for _, companyID := range w.cfg.Companies {
		companyID := companyID
		g.Go(func() error {
			cctx := appctx.WithTrace(gctx, appctx.NewTraceContext())
			if err := w.company(cctx, companyID, year); err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				failed.Add(1)
				w.log.WithContext(cctx).Errorw("company recompute failed", "company_id", companyID, "year", year, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w.log.Infow("tax recompute finished",
		"year", year,
		"companies", len(w.cfg.Companies),
		"failed", failed.Load(),
		"duration", time.Since(started))
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d companies failed", n, len(w.cfg.Companies))
	}
	return nil
}

func (w *Recomputer) company(ctx context.Context, companyID id.ID, year int) error {
	report, err := w.reports.Recompute(ctx, w.store, companyID, year)
	if err != nil {
		return err
	}
	if w.poster == nil {
		return nil
	}
	return w.book(ctx, companyID, year, report.Results)
}

// book posts the results whose disposal id is not yet referenced by an entry
// dated in the year.
func (w *Recomputer) book(ctx context.Context, companyID id.ID, year int, results []tax.CapitalGainResult) error {
	booked, err := w.bookedReferences(ctx, companyID, year)
	if err != nil {
		return fmt.Errorf("list booked disposals: %w", err)
	}

	var pending []*tax.CapitalGainResult
	for i := range results {
		if !booked[results[i].DisposalID] {
			pending = append(pending, &results[i])
		}
	}
	if len(pending) == 0 {
		return nil
	}

	entries, err := w.poster.PostAll(ctx, companyID, pending)
	w.log.WithContext(ctx).Infow("disposals booked", "company_id", companyID, "year", year, "entries", len(entries), "pending", len(pending))
	return err
}

func (w *Recomputer) bookedReferences(ctx context.Context, companyID id.ID, year int) (map[string]bool, error) {
	start, end := tax.YearBounds(year)
	out := make(map[string]bool)
	page := domain.Page{Limit: domain.MaxLimit}
	for {
		res, err := w.entries.List(ctx, companyID, journal.ListFilter{From: &start, To: &end, Page: page})
		if err != nil {
			return nil, err
		}
		for _, e := range res.Items {
			if e.Reference != "" {
				out[e.Reference] = true
			}
		}
		page.Offset += len(res.Items)
		if len(res.Items) < page.Limit || int64(page.Offset) >= res.TotalCount {
			return out, nil
		}
	}
}
