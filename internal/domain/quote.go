package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// QuoteKey identifies a single bar. At most one quote exists per key.
type QuoteKey struct {
	Timestamp time.Time
	Code      string
}

// Quote is one OHLCV bar for a fixed time bucket. Vol and Volume always
// carry the same value once normalized; upstream sources use either name.
type Quote struct {
	Code         string
	Timestamp    time.Time
	Open         decimal.Decimal
	High         decimal.Decimal
	Low          decimal.Decimal
	Close        decimal.Decimal
	Vol          float64
	Volume       float64
	Amount       float64
	TradeCount   *int64   // nil when the source does not report it
	OpenInterest *float64 // futures only
}

// Key returns the cache key of the quote.
func (q Quote) Key() QuoteKey {
	return QuoteKey{Timestamp: q.Timestamp, Code: q.Code}
}

// Normalized returns a copy of q with both volume fields populated from
// whichever one the source filled in.
func (q Quote) Normalized() Quote {
	switch {
	case q.Volume == 0 && q.Vol != 0:
		q.Volume = q.Vol
	case q.Vol == 0 && q.Volume != 0:
		q.Vol = q.Volume
	}
	return q
}

// quoteJSON is the wire shape of a quote record. Either "vol" or "volume"
// may be present; "datetime" wins over "date" when both are set.
type quoteJSON struct {
	Code         string          `json:"code"`
	Date         string          `json:"date,omitempty"`
	Datetime     string          `json:"datetime,omitempty"`
	Open         decimal.Decimal `json:"open"`
	High         decimal.Decimal `json:"high"`
	Low          decimal.Decimal `json:"low"`
	Close        decimal.Decimal `json:"close"`
	Vol          *float64        `json:"vol,omitempty"`
	Volume       *float64        `json:"volume,omitempty"`
	Amount       float64         `json:"amount,omitempty"`
	TradeCount   *int64          `json:"trade,omitempty"`
	OpenInterest *float64        `json:"position,omitempty"`
}

// UnmarshalJSON decodes a quote record and normalizes its volume fields.
func (q *Quote) UnmarshalJSON(data []byte) error {
	var raw quoteJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	stamp := raw.Datetime
	if stamp == "" {
		stamp = raw.Date
	}
	ts, _, err := ParseTimestamp(stamp)
	if err != nil {
		return err
	}

	out := Quote{
		Code:         raw.Code,
		Timestamp:    ts,
		Open:         raw.Open,
		High:         raw.High,
		Low:          raw.Low,
		Close:        raw.Close,
		Amount:       raw.Amount,
		TradeCount:   raw.TradeCount,
		OpenInterest: raw.OpenInterest,
	}
	if raw.Vol != nil {
		out.Vol = *raw.Vol
	}
	if raw.Volume != nil {
		out.Volume = *raw.Volume
	}
	*q = out.Normalized()
	return nil
}

// MarshalJSON encodes the quote with both "vol" and "volume" set.
func (q Quote) MarshalJSON() ([]byte, error) {
	n := q.Normalized()
	return json.Marshal(quoteJSON{
		Code:         n.Code,
		Date:         n.Timestamp.Format(DateLayout),
		Datetime:     FormatTimestamp(n.Timestamp),
		Open:         n.Open,
		High:         n.High,
		Low:          n.Low,
		Close:        n.Close,
		Vol:          &n.Vol,
		Volume:       &n.Volume,
		Amount:       n.Amount,
		TradeCount:   n.TradeCount,
		OpenInterest: n.OpenInterest,
	})
}
