// Package cache keeps per-company lookups of the chart of accounts in memory.
package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/core/id"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/journal"
	"github.com/Federicojaviermartino/crypto-erp-sub003/internal/domain/ledger"
	"github.com/Federicojaviermartino/crypto-erp-sub003/pkg/logger"
)

// Default lifetimes of cached charts.
const (
	DefaultTTL             = 10 * time.Minute
	DefaultCleanupInterval = 20 * time.Minute
)

// CodeResolver is the uncached lookup, normally ledger.Service.
type CodeResolver interface {
	ResolveCodes(ctx context.Context, companyID id.ID, codes []string) (map[string]ledger.Account, error)
}

// AccountCodes caches code → account per company in front of a CodeResolver.
// Entries of a company are dropped together when its chart changes.
type AccountCodes struct {
	next  CodeResolver
	items *gocache.Cache

	// mu serializes read-merge-write of a company's map and guards the
	// generations below.
	mu      sync.Mutex
	gens    map[string]uint64
	flushes uint64
}

// generation changes whenever key is invalidated, including by Flush.
type generation struct {
	company uint64
	flushes uint64
}

var (
	_ journal.AccountResolver = (*AccountCodes)(nil)
	_ ledger.Invalidator      = (*AccountCodes)(nil)
)

// NewAccountCodes creates the cache. ttl <= 0 means DefaultTTL.
func NewAccountCodes(next CodeResolver, ttl time.Duration) *AccountCodes {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cleanup := DefaultCleanupInterval
	if ttl > cleanup {
		cleanup = ttl
	}
	return &AccountCodes{next: next, items: gocache.New(ttl, cleanup), gens: make(map[string]uint64)}
}

// ResolveCodes serves known codes from memory and asks next for the rest.
// Unknown codes are never cached.
func (c *AccountCodes) ResolveCodes(ctx context.Context, companyID id.ID, codes []string) (map[string]ledger.Account, error) {
	key := companyID.String()
	gen := c.generation(key)
	cached := c.get(key)

	out := make(map[string]ledger.Account, len(codes))
	var missing []string
	for _, code := range codes {
		if a, ok := cached[code]; ok {
			out[code] = a
			continue
		}
		missing = append(missing, code)
	}
	if len(missing) == 0 {
		return out, nil
	}

	found, err := c.next.ResolveCodes(ctx, companyID, missing)
	if err != nil {
		return nil, err
	}
	for code, a := range found {
		out[code] = a
	}
	c.merge(key, gen, found)

	logger.Debug(ctx, "account codes resolved", "company_id", companyID, "hits", len(codes)-len(missing), "misses", len(missing))
	return out, nil
}

// InvalidateCompany drops everything cached for companyID.
func (c *AccountCodes) InvalidateCompany(companyID id.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := companyID.String()
	c.gens[key]++
	c.items.Delete(key)
}

// Flush drops every company.
func (c *AccountCodes) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushes++
	c.items.Flush()
}

func (c *AccountCodes) generation(key string) generation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return generation{company: c.gens[key], flushes: c.flushes}
}

func (c *AccountCodes) get(key string) map[string]ledger.Account {
	if v, ok := c.items.Get(key); ok {
		return v.(map[string]ledger.Account)
	}
	return nil
}

// merge stores a copy so readers never see a map being written. Results
// looked up before an invalidation of key are dropped.
func (c *AccountCodes) merge(key string, gen generation, found map[string]ledger.Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen.company || c.flushes != gen.flushes {
		return
	}

	prev := c.get(key)
	next := make(map[string]ledger.Account, len(prev)+len(found))
	for code, a := range prev {
		next[code] = a
	}
	for code, a := range found {
		next[code] = a
	}
	c.items.SetDefault(key, next)
}
