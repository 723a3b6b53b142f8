// Package filestore serves historical bars from JSON files laid out as
// <dir>/<market>/<frequency>/<code>.json, each holding an array of quotes.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/efreitasn/replaybroker/internal/domain"
	"github.com/efreitasn/replaybroker/internal/engine"
)

// Fetcher reads bars of one market from disk.
type Fetcher struct {
	dir    string
	market domain.MarketKind
}

var _ engine.Fetcher = (*Fetcher)(nil)

// NewFetcher returns a Fetcher rooted at dir for market.
func NewFetcher(dir string, market domain.MarketKind) *Fetcher {
	return &Fetcher{dir: dir, market: market}
}

// Register binds a Fetcher for every market whose directory exists under
// dir. It returns the markets it registered.
func Register(reg *engine.FetcherRegistry, dir string) []domain.MarketKind {
	var registered []domain.MarketKind
	for _, market := range domain.AllMarkets {
		info, err := os.Stat(filepath.Join(dir, string(market)))
		if err != nil || !info.IsDir() {
			continue
		}
		reg.RegisterMarket(market, NewFetcher(dir, market))
		registered = append(registered, market)
	}
	return registered
}

func (f *Fetcher) path(code string, freq domain.Frequency) string {
	return filepath.Join(f.dir, string(f.market), string(freq), code+".json")
}

// Fetch implements engine.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, code string, start, end time.Time, freq domain.Frequency) ([]domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !freq.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFrequency, freq)
	}
	// Codes come from callers; keep them inside the data directory.
	if code == "" || filepath.Base(code) != code {
		return nil, fmt.Errorf("invalid code %q", code)
	}

	data, err := os.ReadFile(f.path(code, freq))
	if err != nil {
		return nil, fmt.Errorf("reading %s %s bars for %s: %w", f.market, freq, code, err)
	}

	var all []domain.Quote
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("decoding %s %s bars for %s: %w", f.market, freq, code, err)
	}

	quotes := make([]domain.Quote, 0, len(all))
	for _, q := range all {
		ts := freq.BarTime(q.Timestamp)
		if ts.Before(start) || ts.After(end) {
			continue
		}
		if q.Code == "" {
			q.Code = code
		}
		quotes = append(quotes, q)
	}
	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].Timestamp.Before(quotes[j].Timestamp)
	})
	return quotes, nil
}
