package engine

import (
	"sync"
	"time"

	"github.com/google/btree"

	"github.com/efreitasn/replaybroker/internal/domain"
)

// cacheKey is the map key for a cached quote. The timestamp is stored as
// UnixNano so that equal instants with different monotonic readings or
// locations collapse to one key.
type cacheKey struct {
	code string
	at   int64
}

func keyOf(code string, t time.Time) cacheKey {
	return cacheKey{code: code, at: t.UnixNano()}
}

func timeLess(a, b time.Time) bool {
	return a.Before(b)
}

// QuoteCache holds every quote seen during a replay, keyed by
// (timestamp, code). It grows monotonically and never evicts. Each code
// also keeps a B-tree timeline of its bar times so range queries come
// back in time order without sorting.
//
// The first quote stored under a key wins; later inserts for the same
// key are ignored.
type QuoteCache struct {
	mu        sync.RWMutex
	quotes    map[cacheKey]domain.Quote
	timelines map[string]*btree.BTreeG[time.Time]
}

// NewQuoteCache creates an empty cache.
func NewQuoteCache() *QuoteCache {
	return &QuoteCache{
		quotes:    make(map[cacheKey]domain.Quote),
		timelines: make(map[string]*btree.BTreeG[time.Time]),
	}
}

// Merge inserts quotes that are not yet present and returns how many were
// inserted. When freq is set, each timestamp is first normalized to the
// bar time for that frequency. Stored quotes are normalized so vol and
// volume are both populated.
func (c *QuoteCache) Merge(freq domain.Frequency, quotes []domain.Quote) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	const degree = 32
	inserted := 0
	for _, q := range quotes {
		q = q.Normalized()
		if freq != "" {
			q.Timestamp = freq.BarTime(q.Timestamp)
		}
		k := keyOf(q.Code, q.Timestamp)
		if _, exists := c.quotes[k]; exists {
			continue
		}
		c.quotes[k] = q

		tl, ok := c.timelines[q.Code]
		if !ok {
			tl = btree.NewG[time.Time](degree, timeLess)
			c.timelines[q.Code] = tl
		}
		tl.ReplaceOrInsert(q.Timestamp)
		inserted++
	}
	return inserted
}

// Get returns the quote stored for (t, code).
func (c *QuoteCache) Get(t time.Time, code string) (domain.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q, ok := c.quotes[keyOf(code, t)]
	return q, ok
}

// Range returns the cached quotes for code with start <= timestamp <= end,
// oldest first. Returns an empty slice if there are none.
func (c *QuoteCache) Range(code string, start, end time.Time) []domain.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Quote, 0)
	tl, ok := c.timelines[code]
	if !ok || end.Before(start) {
		return out
	}
	tl.AscendGreaterOrEqual(start, func(t time.Time) bool {
		if t.After(end) {
			return false
		}
		out = append(out, c.quotes[keyOf(code, t)])
		return true
	})
	return out
}

// Len returns the number of cached quotes.
func (c *QuoteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.quotes)
}
