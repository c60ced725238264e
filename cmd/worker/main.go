// Package main is the entry point of the tax recomputation worker. It
// regenerates the annual tax report of every configured company, stores the
// snapshot and optionally books the year's disposals into the journal.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/app"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/config"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/infrastructure/storage/postgres"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/worker"
	"github.com/Federicojaviermartino/crypto-erp-sub003/pkg/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	companies, err := cfg.CompanyIDs()
	if err != nil {
		log.Fatalw("invalid companies", "error", err)
	}
	if len(companies) == 0 {
		log.Warn("no companies configured, nothing to do")
		return
	}

	c, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}
	defer c.Close()

	w := worker.NewRecomputer(c.Tax, c.Snapshots, worker.Config{
		Companies:   companies,
		Year:        cfg.TaxYear,
		Concurrency: cfg.Worker.Concurrency,
		Interval:    cfg.Worker.Interval,
	}, log)
	if cfg.Posting.Enabled {
		w.WithPosting(c.Disposals, c.Journal)
	}

	log.Infow("starting tax worker",
		"companies", len(companies),
		"concurrency", cfg.Worker.Concurrency,
		"interval", cfg.Worker.Interval,
		"posting", cfg.Posting.Enabled)

	err = w.Run(ctx)
	postgres.LogPoolStats(ctx, c.Pool)
	if err != nil {
		log.Errorw("tax worker finished with errors", "error", err)
		c.Close()
		os.Exit(1)
	}
	log.Info("tax worker stopped")
}
