// Package main seeds companies with the default chart of accounts and a
// calendar fiscal year.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/app"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/config"
	appctx "github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/context"
	"github.com/Federicojaviermartino/crypto-erp-sub003/pkg/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to the YAML config file")
	year := flag.Int("year", time.Now().UTC().Year(), "calendar year of the fiscal year to create")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	companies, err := cfg.CompanyIDs()
	if err != nil {
		log.Fatalw("invalid companies", "error", err)
	}
	if len(companies) == 0 {
		log.Fatal("no companies configured (worker.companies or WORKER_COMPANIES)")
	}

	ctx := logger.WithLogger(context.Background(), log)
	c, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}
	defer c.Close()

	for _, companyID := range companies {
		ctx := appctx.WithUser(ctx, &appctx.UserContext{UserID: "seed", CompanyID: companyID.String()})
		res, err := app.Seed(ctx, c.Accounts, c.FiscalYears, companyID, app.DefaultChart, *year)
		if err != nil {
			log.Errorw("failed to seed company", "company_id", companyID, "error", err)
			c.Close()
			os.Exit(1)
		}
		log.Infow("company ready", "company_id", companyID, "accounts_created", res.AccountsCreated)
	}
	log.Info("seeding completed successfully")
}
