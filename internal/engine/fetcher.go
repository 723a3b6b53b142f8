package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/efreitasn/replaybroker/internal/domain"
)

// Fetcher loads historical quotes for one instrument over [start, end],
// ordered by time. Implementations either return data or an error; the
// engine treats every failure the same way.
type Fetcher interface {
	Fetch(ctx context.Context, code string, start, end time.Time, freq domain.Frequency) ([]domain.Quote, error)
}

// FetchFunc adapts an ordinary function to the Fetcher interface.
type FetchFunc func(ctx context.Context, code string, start, end time.Time, freq domain.Frequency) ([]domain.Quote, error)

// Fetch calls f.
func (f FetchFunc) Fetch(ctx context.Context, code string, start, end time.Time, freq domain.Frequency) ([]domain.Quote, error) {
	return f(ctx, code, start, end, freq)
}

type fetcherKey struct {
	market domain.MarketKind
	freq   domain.Frequency
}

// FetcherRegistry maps (market, frequency) to the Fetcher that serves it.
type FetcherRegistry struct {
	mu       sync.RWMutex
	fetchers map[fetcherKey]Fetcher
}

// NewFetcherRegistry creates an empty registry.
func NewFetcherRegistry() *FetcherRegistry {
	return &FetcherRegistry{
		fetchers: make(map[fetcherKey]Fetcher),
	}
}

// Register binds f to (market, freq), replacing any previous binding.
func (r *FetcherRegistry) Register(market domain.MarketKind, freq domain.Frequency, f Fetcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers[fetcherKey{market: market, freq: freq}] = f
}

// RegisterMarket binds f to every frequency of market.
func (r *FetcherRegistry) RegisterMarket(market domain.MarketKind, f Fetcher) {
	for _, freq := range domain.AllFrequencies {
		r.Register(market, freq, f)
	}
}

// Lookup returns the Fetcher bound to (market, freq), or an error
// wrapping domain.ErrNoFetcher.
func (r *FetcherRegistry) Lookup(market domain.MarketKind, freq domain.Frequency) (Fetcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.fetchers[fetcherKey{market: market, freq: freq}]
	if !ok {
		return nil, fmt.Errorf("%w: market=%s frequency=%s", domain.ErrNoFetcher, market, freq)
	}
	return f, nil
}
