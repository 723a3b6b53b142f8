package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/efreitasn/replaybroker/internal/domain"
)

// QuoteRequest identifies the bar an order executes against.
type QuoteRequest struct {
	Code      string
	Datetime  time.Time
	Market    domain.MarketKind
	Frequency domain.Frequency
}

// QuoteResolver looks up quotes in the broker's cache and falls back to
// the fetcher registered for the request's (market, frequency). Every
// failure is reported as domain.ErrQuoteNotFound.
type QuoteResolver struct {
	cache    *QuoteCache
	fetchers *FetcherRegistry
	logger   *slog.Logger
}

// NewQuoteResolver creates a resolver over cache and fetchers.
func NewQuoteResolver(cache *QuoteCache, fetchers *FetcherRegistry, logger *slog.Logger) *QuoteResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuoteResolver{
		cache:    cache,
		fetchers: fetchers,
		logger:   logger,
	}
}

// Resolve returns the quote for req. The returned quote is always
// normalized, whichever path served it.
func (r *QuoteResolver) Resolve(ctx context.Context, req QuoteRequest) (domain.Quote, error) {
	bar := req.Frequency.BarTime(req.Datetime)

	if q, ok := r.cache.Get(bar, req.Code); ok {
		return q, nil
	}

	quotes, err := r.fetch(ctx, req.Code, bar, bar, req.Market, req.Frequency)
	if err != nil {
		return domain.Quote{}, err
	}
	return quotes[0], nil
}

// Range returns quotes for code over [start, end]. Cached quotes are
// used when the cache holds any bar in the range; otherwise the range is
// fetched.
func (r *QuoteResolver) Range(ctx context.Context, code string, start, end time.Time, market domain.MarketKind, freq domain.Frequency) ([]domain.Quote, error) {
	start, end = freq.BarTime(start), freq.BarTime(end)

	if cached := r.cache.Range(code, start, end); len(cached) > 0 {
		return cached, nil
	}
	return r.fetch(ctx, code, start, end, market, freq)
}

// fetch calls the registered fetcher and normalizes its rows. Any failure,
// including an empty result, is logged and becomes ErrQuoteNotFound.
func (r *QuoteResolver) fetch(ctx context.Context, code string, start, end time.Time, market domain.MarketKind, freq domain.Frequency) ([]domain.Quote, error) {
	attrs := []any{
		"code", code,
		"datetime", domain.FormatTimestamp(start),
		"market", string(market),
		"frequency", string(freq),
	}

	f, err := r.fetchers.Lookup(market, freq)
	if err != nil {
		r.logger.Warn("quote not resolvable", append(attrs, "error", err)...)
		return nil, fmt.Errorf("%w: %s at %s", domain.ErrQuoteNotFound, code, domain.FormatTimestamp(start))
	}

	rows, err := safeFetch(ctx, f, code, start, end, freq)
	if err != nil {
		if !errors.Is(err, domain.ErrFetchFailure) {
			err = fmt.Errorf("%w: %v", domain.ErrFetchFailure, err)
		}
		r.logger.Warn("quote fetch failed", append(attrs, "error", err)...)
		return nil, fmt.Errorf("%w: %s at %s", domain.ErrQuoteNotFound, code, domain.FormatTimestamp(start))
	}
	if len(rows) == 0 {
		r.logger.Warn("quote fetch returned no rows", attrs...)
		return nil, fmt.Errorf("%w: %s at %s", domain.ErrQuoteNotFound, code, domain.FormatTimestamp(start))
	}

	out := make([]domain.Quote, 0, len(rows))
	for _, q := range rows {
		q = q.Normalized()
		q.Timestamp = freq.BarTime(q.Timestamp)
		if q.Code == "" {
			q.Code = code
		}
		out = append(out, q)
	}
	return out, nil
}

// safeFetch calls f and turns a panic into an error wrapping
// domain.ErrFetchFailure.
func safeFetch(ctx context.Context, f Fetcher, code string, start, end time.Time, freq domain.Frequency) (rows []domain.Quote, err error) {
	defer func() {
		if p := recover(); p != nil {
			rows, err = nil, fmt.Errorf("%w: fetcher panicked: %v", domain.ErrFetchFailure, p)
		}
	}()
	return f.Fetch(ctx, code, start, end, freq)
}
