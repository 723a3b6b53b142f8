package pgstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efreitasn/replaybroker/internal/domain"
	"github.com/efreitasn/replaybroker/internal/engine"
)

type fakeRows struct {
	data   [][]any
	idx    int
	err    error
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	if len(row) != len(dest) {
		return fmt.Errorf("got %d destinations for %d columns", len(dest), len(row))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *time.Time:
			*d = v.(time.Time)
		case *float64:
			*d = v.(float64)
		case **float64:
			if v == nil {
				*d = nil
			} else {
				f := v.(float64)
				*d = &f
			}
		default:
			return fmt.Errorf("unsupported destination %T", dest[i])
		}
	}
	return nil
}

func (r *fakeRows) Close()     { r.closed = true }
func (r *fakeRows) Err() error { return r.err }

type fakeQuerier struct {
	sql  string
	args []any
	rows *fakeRows
	err  error
}

func (q *fakeQuerier) Query(_ context.Context, sql string, args ...any) (Rows, error) {
	q.sql = sql
	q.args = args
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFetcher_Daily(t *testing.T) {
	db := &fakeQuerier{rows: &fakeRows{data: [][]any{
		{"000001", day(2023, 1, 3), "10.00", "11.00", "9.00", "10.50", 1200.0, 12600.0},
		{"000001", day(2023, 1, 4), "10.50", "10.80", "10.10", "10.20", 800.0, 8200.0},
	}}}

	f, err := NewFetcher(db, domain.MarketStock)
	require.NoError(t, err)

	quotes, err := f.Fetch(context.Background(), "000001", day(2023, 1, 3), day(2023, 1, 4), domain.FrequencyDay)
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	assert.Contains(t, db.sql, "FROM stock_day")
	assert.Contains(t, db.sql, "ORDER BY date")
	assert.Equal(t, []any{"000001", day(2023, 1, 3), day(2023, 1, 4)}, db.args)
	assert.True(t, db.rows.closed)

	assert.True(t, quotes[0].Open.Equal(decimal.RequireFromString("10")))
	assert.True(t, quotes[0].Close.Equal(decimal.RequireFromString("10.5")))
	assert.Equal(t, 1200.0, quotes[0].Vol)
	assert.Equal(t, 1200.0, quotes[0].Volume)
	assert.Nil(t, quotes[0].OpenInterest)
}

func TestFetcher_IntradayFiltersByType(t *testing.T) {
	at := time.Date(2023, 1, 3, 9, 31, 0, 0, time.UTC)
	db := &fakeQuerier{rows: &fakeRows{data: [][]any{
		{"000001", at, "10.00", "10.10", "9.90", "10.05", 100.0, 1005.0},
	}}}

	f, err := NewFetcher(db, domain.MarketFund)
	require.NoError(t, err)

	quotes, err := f.Fetch(context.Background(), "000001", at, at, domain.FrequencyOneMin)
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	assert.Contains(t, db.sql, "FROM fund_min")
	assert.Contains(t, db.sql, "type = $4")
	assert.Equal(t, "1min", db.args[3])
	assert.Equal(t, at, quotes[0].Timestamp)
}

func TestFetcher_FutureReadsOpenInterest(t *testing.T) {
	db := &fakeQuerier{rows: &fakeRows{data: [][]any{
		{"RB2305", day(2023, 1, 3), "4000", "4100", "3950", "4050", 50.0, 2000000.0, 1234.0},
	}}}

	f, err := NewFetcher(db, domain.MarketFuture)
	require.NoError(t, err)

	quotes, err := f.Fetch(context.Background(), "RB2305", day(2023, 1, 3), day(2023, 1, 3), domain.FrequencyDay)
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	assert.Contains(t, db.sql, "position")
	require.NotNil(t, quotes[0].OpenInterest)
	assert.Equal(t, 1234.0, *quotes[0].OpenInterest)
}

func TestFetcher_EmptyResultIsNonNil(t *testing.T) {
	db := &fakeQuerier{rows: &fakeRows{}}
	f, err := NewFetcher(db, domain.MarketIndex)
	require.NoError(t, err)

	quotes, err := f.Fetch(context.Background(), "000300", day(2023, 1, 3), day(2023, 1, 3), domain.FrequencyDay)
	require.NoError(t, err)
	assert.NotNil(t, quotes)
	assert.Empty(t, quotes)
}

func TestFetcher_Errors(t *testing.T) {
	boom := errors.New("connection reset")

	t.Run("query", func(t *testing.T) {
		f, _ := NewFetcher(&fakeQuerier{err: boom}, domain.MarketStock)
		_, err := f.Fetch(context.Background(), "000001", day(2023, 1, 3), day(2023, 1, 3), domain.FrequencyDay)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("rows", func(t *testing.T) {
		f, _ := NewFetcher(&fakeQuerier{rows: &fakeRows{err: boom}}, domain.MarketStock)
		_, err := f.Fetch(context.Background(), "000001", day(2023, 1, 3), day(2023, 1, 3), domain.FrequencyDay)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("bad price", func(t *testing.T) {
		rows := &fakeRows{data: [][]any{
			{"000001", day(2023, 1, 3), "n/a", "11", "9", "10", 1.0, 1.0},
		}}
		f, _ := NewFetcher(&fakeQuerier{rows: rows}, domain.MarketStock)
		_, err := f.Fetch(context.Background(), "000001", day(2023, 1, 3), day(2023, 1, 3), domain.FrequencyDay)
		assert.Error(t, err)
		assert.True(t, rows.closed)
	})

	t.Run("unknown frequency", func(t *testing.T) {
		f, _ := NewFetcher(&fakeQuerier{rows: &fakeRows{}}, domain.MarketStock)
		_, err := f.Fetch(context.Background(), "000001", day(2023, 1, 3), day(2023, 1, 3), domain.Frequency("2min"))
		assert.ErrorIs(t, err, domain.ErrUnknownFrequency)
	})
}

func TestNewFetcher_UnsupportedMarket(t *testing.T) {
	_, err := NewFetcher(&fakeQuerier{}, domain.MarketCrypto)
	assert.ErrorIs(t, err, domain.ErrNoFetcher)
}

func TestRegister(t *testing.T) {
	reg := engine.NewFetcherRegistry()
	Register(reg, &fakeQuerier{})

	for _, m := range []domain.MarketKind{domain.MarketStock, domain.MarketIndex, domain.MarketFund, domain.MarketFuture} {
		for _, freq := range domain.AllFrequencies {
			_, err := reg.Lookup(m, freq)
			assert.NoError(t, err, "market=%s freq=%s", m, freq)
		}
	}
	_, err := reg.Lookup(domain.MarketOption, domain.FrequencyDay)
	assert.ErrorIs(t, err, domain.ErrNoFetcher)
}
