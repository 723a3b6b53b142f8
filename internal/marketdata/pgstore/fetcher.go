package pgstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/replaybroker/internal/domain"
	"github.com/efreitasn/replaybroker/internal/engine"
)

type tableSet struct {
	day          string
	intraday     string
	openInterest bool
}

// Intraday tables hold every minute granularity and tell them apart with
// the "type" column.
var tables = map[domain.MarketKind]tableSet{
	domain.MarketStock:  {day: "stock_day", intraday: "stock_min"},
	domain.MarketIndex:  {day: "index_day", intraday: "index_min"},
	domain.MarketFund:   {day: "fund_day", intraday: "fund_min"},
	domain.MarketFuture: {day: "future_day", intraday: "future_min", openInterest: true},
}

// Fetcher loads bars of one market from PostgreSQL.
type Fetcher struct {
	db     Querier
	market domain.MarketKind
	tables tableSet
}

var _ engine.Fetcher = (*Fetcher)(nil)

// NewFetcher returns a Fetcher for market, or an error wrapping
// domain.ErrNoFetcher when no table layout exists for it.
func NewFetcher(db Querier, market domain.MarketKind) (*Fetcher, error) {
	ts, ok := tables[market]
	if !ok {
		return nil, fmt.Errorf("%w: no postgres tables for market %s", domain.ErrNoFetcher, market)
	}
	return &Fetcher{db: db, market: market, tables: ts}, nil
}

// Register binds a Fetcher for every market with a table layout.
func Register(reg *engine.FetcherRegistry, db Querier) {
	for market := range tables {
		f, _ := NewFetcher(db, market)
		reg.RegisterMarket(market, f)
	}
}

func (f *Fetcher) columns(timeCol string) string {
	cols := []string{
		"code", timeCol,
		"open::text", "high::text", "low::text", "close::text",
		"volume", "amount",
	}
	if f.tables.openInterest {
		cols = append(cols, "position")
	}
	return strings.Join(cols, ", ")
}

func (f *Fetcher) query(freq domain.Frequency) string {
	if freq.IsDaily() {
		return fmt.Sprintf(
			"SELECT %s FROM %s WHERE code = $1 AND date >= $2 AND date <= $3 ORDER BY date",
			f.columns("date"), f.tables.day,
		)
	}
	return fmt.Sprintf(
		"SELECT %s FROM %s WHERE code = $1 AND datetime >= $2 AND datetime <= $3 AND type = $4 ORDER BY datetime",
		f.columns("datetime"), f.tables.intraday,
	)
}

// Fetch implements engine.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, code string, start, end time.Time, freq domain.Frequency) ([]domain.Quote, error) {
	if !freq.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFrequency, freq)
	}

	args := []any{code, start.UTC(), end.UTC()}
	if !freq.IsDaily() {
		args = append(args, string(freq))
	}

	rows, err := f.db.Query(ctx, f.query(freq), args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s bars for %s: %w", f.market, code, err)
	}
	defer rows.Close()

	quotes := make([]domain.Quote, 0)
	for rows.Next() {
		q, err := f.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning %s bar for %s: %w", f.market, code, err)
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s bars for %s: %w", f.market, code, err)
	}
	return quotes, nil
}

func (f *Fetcher) scan(rows Rows) (domain.Quote, error) {
	var (
		q          domain.Quote
		o, h, l, c string
		position   *float64
	)
	dest := []any{&q.Code, &q.Timestamp, &o, &h, &l, &c, &q.Volume, &q.Amount}
	if f.tables.openInterest {
		dest = append(dest, &position)
	}
	if err := rows.Scan(dest...); err != nil {
		return domain.Quote{}, err
	}

	prices := []struct {
		raw string
		dst *decimal.Decimal
	}{
		{o, &q.Open}, {h, &q.High}, {l, &q.Low}, {c, &q.Close},
	}
	for _, p := range prices {
		d, err := decimal.NewFromString(p.raw)
		if err != nil {
			return domain.Quote{}, err
		}
		*p.dst = d
	}

	q.Timestamp = q.Timestamp.UTC()
	q.OpenInterest = position
	return q.Normalized(), nil
}
