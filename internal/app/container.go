// Package app wires configuration, storage and domain services together for
// the command-line entry points.
package app

import (
	"context"
	"fmt"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/config"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/fiscal"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/journal"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/ledger"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/posting"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/reports"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/tax"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/infrastructure/cache"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/infrastructure/storage/postgres"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/infrastructure/storage/postgres/accounting_repo"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/infrastructure/storage/postgres/crypto_repo"
	"github.com/Federicojaviermartino/crypto-erp-sub003/pkg/numerator"
)

// Container holds the services of one database.
type Container struct {
	Pool      *postgres.Pool
	TxManager *postgres.TxManager

	Accounts     *ledger.Service
	AccountCodes *cache.AccountCodes
	FiscalYears  *fiscal.Service
	Journal      *journal.Service
	Reports      *reports.Service
	Tax          *tax.ReportService
	Predictor    *tax.Predictor
	Snapshots    *crypto_repo.SnapshotStore
	Disposals    *posting.DisposalPoster
}

// New connects to the database and builds every service.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	schedule, err := cfg.Schedule()
	if err != nil {
		return nil, err
	}
	codec, err := postgres.NewSnapshotCodec(cfg.Tax.CompressThreshold)
	if err != nil {
		return nil, err
	}

	pool, err := postgres.NewPool(ctx, cfg.PoolConfig())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	txm := postgres.NewTxManager(pool).WithStatementTimeout(cfg.Database.StatementTimeout)

	journalRepo := accounting_repo.NewJournalRepo(txm)
	sequence := numerator.NewFromProvider(func(ctx context.Context) numerator.Querier {
		return txm.GetQuerier(ctx)
	})

	accounts := ledger.NewService(accounting_repo.NewAccountRepo(txm))
	codes := cache.NewAccountCodes(accounts, cfg.Cache.AccountTTL)
	accounts.WithInvalidator(codes)

	years := fiscal.NewService(accounting_repo.NewFiscalYearRepo(txm), journalRepo, txm)
	entries := journal.NewService(journalRepo, years, codes, sequence, txm)

	calc := tax.NewCalculator(schedule).WithLongTermDays(cfg.Tax.LongTermDays)
	source := crypto_repo.NewTransactionSource(txm)
	taxReports := tax.NewReportService(source, calc).WithConcurrency(cfg.Tax.ReplayConcurrency)
	disposals := posting.NewDisposalPoster(entries, cfg.Posting.Accounts).WithAutoPost(cfg.Posting.AutoPost)

	return &Container{
		Pool:         pool,
		TxManager:    txm,
		Accounts:     accounts,
		AccountCodes: codes,
		FiscalYears:  years,
		Journal:      entries,
		Reports:      reports.NewService(accounting_repo.NewReportRepo(txm), accounts).WithTxManager(txm),
		Tax:          taxReports,
		Predictor:    tax.NewPredictor(source, calc),
		Snapshots:    crypto_repo.NewSnapshotStore(txm, codec),
		Disposals:    disposals,
	}, nil
}

// Close releases the connection pool.
func (c *Container) Close() {
	c.Pool.Close()
}
