// Package config loads application configuration from a YAML file, an
// optional .env file and environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/posting"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/tax"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/infrastructure/storage/postgres"
	"github.com/Federicojaviermartino/crypto-erp-sub003/pkg/logger"
)

// Config is the application configuration.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Tax      TaxConfig      `yaml:"tax"`
	Posting  PostingConfig  `yaml:"posting"`
	Worker   WorkerConfig   `yaml:"worker"`
	Cache    CacheConfig    `yaml:"cache"`
}

type AppConfig struct {
	Name string `yaml:"name"`
	Env  string `yaml:"env"` // development, production
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type DatabaseConfig struct {
	URL              string        `yaml:"url"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// BracketConfig is one tax bracket. An empty UpTo marks the unbounded last
// bracket.
type BracketConfig struct {
	UpTo string `yaml:"up_to"`
	Rate string `yaml:"rate"`
}

type TaxConfig struct {
	LongTermDays      int             `yaml:"long_term_days"`
	Brackets          []BracketConfig `yaml:"brackets"`
	ReplayConcurrency int             `yaml:"replay_concurrency"`
	CompressThreshold int             `yaml:"snapshot_compress_threshold"`
}

// PostingConfig controls booking of disposals into the journal by the worker.
type PostingConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Accounts posting.Accounts `yaml:"accounts"`
	AutoPost bool             `yaml:"auto_post"`
}

type WorkerConfig struct {
	Companies   []string      `yaml:"companies"`
	Year        int           `yaml:"year"` // 0 = current calendar year
	Concurrency int           `yaml:"concurrency"`
	Interval    time.Duration `yaml:"interval"` // 0 = run once
}

type CacheConfig struct {
	AccountTTL time.Duration `yaml:"account_ttl"`
}

// Default returns a configuration that only lacks a database URL.
func Default() *Config {
	pool := postgres.DefaultPoolConfig("")
	return &Config{
		App: AppConfig{Name: pool.ApplicationName, Env: "development"},
		Log: LogConfig{Level: "info"},
		Database: DatabaseConfig{
			MaxConns:         pool.MaxConns,
			MinConns:         pool.MinConns,
			MaxConnLifetime:  pool.MaxConnLifetime,
			StatementTimeout: postgres.DefaultTxOptions().StatementTimeout,
		},
		Tax: TaxConfig{
			LongTermDays:      tax.DefaultLongTermDays,
			Brackets:          bracketsOf(tax.DefaultSchedule()),
			ReplayConcurrency: 4,
			CompressThreshold: postgres.DefaultCompressThreshold,
		},
		Posting: PostingConfig{Accounts: posting.DefaultAccounts()},
		Worker:  WorkerConfig{Concurrency: 4},
		Cache:   CacheConfig{AccountTTL: 10 * time.Minute},
	}
}

func bracketsOf(s *tax.Schedule) []BracketConfig {
	var out []BracketConfig
	for _, b := range s.Brackets() {
		bc := BracketConfig{Rate: b.Rate.String()}
		if !b.Unbounded {
			bc.UpTo = b.UpperLimit.String()
		}
		out = append(out, bc)
	}
	return out
}

// Load reads .env (if present), then path (if not empty) over the defaults,
// then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.overrideWithEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) overrideWithEnv() error {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.App.Env = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("WORKER_COMPANIES"); v != "" {
		c.Worker.Companies = splitList(v)
	}
	if err := envInt("WORKER_YEAR", &c.Worker.Year); err != nil {
		return err
	}
	if err := envInt("WORKER_CONCURRENCY", &c.Worker.Concurrency); err != nil {
		return err
	}
	if err := envDuration("WORKER_INTERVAL", &c.Worker.Interval); err != nil {
		return err
	}
	if err := envDuration("ACCOUNT_CACHE_TTL", &c.Cache.AccountTTL); err != nil {
		return err
	}
	if err := envBool("POSTING_ENABLED", &c.Posting.Enabled); err != nil {
		return err
	}
	return envBool("POSTING_AUTO_POST", &c.Posting.AutoPost)
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Database.MaxConns < 1 || c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database pool bounds invalid: min %d, max %d", c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Tax.LongTermDays < 1 {
		return errors.New("tax.long_term_days must be positive")
	}
	if _, err := c.Schedule(); err != nil {
		return err
	}
	if c.Worker.Concurrency < 1 {
		return errors.New("worker.concurrency must be at least 1")
	}
	if c.Worker.Year != 0 && (c.Worker.Year < 1970 || c.Worker.Year > 9999) {
		return fmt.Errorf("worker.year %d out of range", c.Worker.Year)
	}
	if c.Worker.Interval < 0 {
		return errors.New("worker.interval must not be negative")
	}
	if _, err := c.CompanyIDs(); err != nil {
		return err
	}
	return nil
}

// Schedule builds the tax schedule from the configured brackets.
func (c *Config) Schedule() (*tax.Schedule, error) {
	brackets := make([]tax.Bracket, len(c.Tax.Brackets))
	for i, bc := range c.Tax.Brackets {
		rate, err := decimal.NewFromString(bc.Rate)
		if err != nil {
			return nil, fmt.Errorf("tax.brackets[%d].rate: %w", i, err)
		}
		b := tax.Bracket{Rate: rate, Unbounded: bc.UpTo == ""}
		if !b.Unbounded {
			if b.UpperLimit, err = decimal.NewFromString(bc.UpTo); err != nil {
				return nil, fmt.Errorf("tax.brackets[%d].up_to: %w", i, err)
			}
		}
		brackets[i] = b
	}
	s, err := tax.NewSchedule(brackets)
	if err != nil {
		return nil, fmt.Errorf("tax.brackets: %w", err)
	}
	return s, nil
}

// CompanyIDs parses worker.companies.
func (c *Config) CompanyIDs() ([]id.ID, error) {
	out := make([]id.ID, 0, len(c.Worker.Companies))
	for _, s := range c.Worker.Companies {
		v, err := id.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("worker.companies: %q: %w", s, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// TaxYear is worker.year, or the calendar year of now when unset.
func (c *Config) TaxYear(now time.Time) int {
	if c.Worker.Year != 0 {
		return c.Worker.Year
	}
	return now.UTC().Year()
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// PoolConfig maps the database section onto the pool settings.
func (c *Config) PoolConfig() postgres.PoolConfig {
	p := postgres.DefaultPoolConfig(c.Database.URL)
	p.ApplicationName = c.App.Name
	p.MaxConns = c.Database.MaxConns
	p.MinConns = c.Database.MinConns
	if c.Database.MaxConnLifetime > 0 {
		p.MaxConnLifetime = c.Database.MaxConnLifetime
	}
	return p
}

// LoggerConfig maps the log section onto the logger settings.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.Log.Level, Development: c.IsDevelopment()}
}
