package costbasis

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// History is the full transaction history of one asset up to a cutoff.
type History struct {
	AssetSymbol  string
	Acquisitions []Acquisition
	Disposals    []Disposal
}

// DefaultReplayConcurrency bounds parallel asset replays.
const DefaultReplayConcurrency = 8

// ReplayAll rebuilds one Book per asset. Assets are replayed in parallel
// (at most limit at a time, DefaultReplayConcurrency when limit ≤ 0); each
// asset's disposals are applied sequentially in date order. Books are
// returned sorted by asset symbol.
func ReplayAll(ctx context.Context, histories []History, limit int) ([]*Book, error) {
	if limit <= 0 {
		limit = DefaultReplayConcurrency
	}

	books := make([]*Book, len(histories))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range histories {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h := histories[i]
			books[i] = BuildLots(h.AssetSymbol, h.Acquisitions, h.Disposals)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(books, func(i, j int) bool { return books[i].Asset() < books[j].Asset() })
	return books, nil
}

// GroupByAsset merges acquisitions and disposals into per-asset histories,
// preserving input order within each asset.
func GroupByAsset(acquisitions map[string][]Acquisition, disposals []Disposal) []History {
	byAsset := make(map[string]*History)
	get := func(symbol string) *History {
		key := strings.ToUpper(strings.TrimSpace(symbol))
		h, ok := byAsset[key]
		if !ok {
			h = &History{AssetSymbol: key}
			byAsset[key] = h
		}
		return h
	}

	for symbol, acqs := range acquisitions {
		h := get(symbol)
		h.Acquisitions = append(h.Acquisitions, acqs...)
	}
	for _, d := range disposals {
		h := get(d.AssetSymbol)
		h.Disposals = append(h.Disposals, d)
	}

	out := make([]History, 0, len(byAsset))
	for _, h := range byAsset {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssetSymbol < out[j].AssetSymbol })
	return out
}
