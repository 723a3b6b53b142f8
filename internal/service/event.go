package service

import (
	"time"

	"github.com/efreitasn/replaybroker/internal/domain"
)

// Event is one inbound request to the Broker. The set of variants is
// closed; Broker.Handle dispatches on the concrete type.
type Event interface {
	isEvent()
	callback() Callback
}

// Callback is invoked with the event's result once it has been handled.
type Callback func(*Result)

// QueryData asks for the quotes of one instrument over [Start, End]. A
// zero End means the single bar at Start.
type QueryData struct {
	Code      string
	Start     time.Time
	End       time.Time
	Market    domain.MarketKind
	Frequency domain.Frequency
	Callback  Callback
}

// QueryOrder looks up a single order by OrderID, or lists an account's
// orders when OrderID is empty.
type QueryOrder struct {
	OrderID   string
	AccountID string
	Status    *domain.OrderStatus
	Page      int
	Limit     int
	Callback  Callback
}

// IncomingQuotes merges a batch of streamed quotes into the cache. When
// Frequency is set, quote timestamps are normalized to its bar time.
type IncomingQuotes struct {
	Quotes    []domain.Quote
	Frequency domain.Frequency
	Callback  Callback
}

// OrderReceived submits an order. The broker matches it immediately,
// against Quote when one is supplied and against the resolved bar
// otherwise.
type OrderReceived struct {
	Order    *domain.Order
	Quote    *domain.Quote
	Callback Callback
}

// Traded matches a previously received order. Quote, when set, replaces
// the resolved bar.
type Traded struct {
	OrderID  string
	Quote    *domain.Quote
	Callback Callback
}

// Settled closes the trading session.
type Settled struct {
	Callback Callback
}

func (QueryData) isEvent()      {}
func (QueryOrder) isEvent()     {}
func (IncomingQuotes) isEvent() {}
func (OrderReceived) isEvent()  {}
func (Traded) isEvent()         {}
func (Settled) isEvent()        {}

func (e QueryData) callback() Callback      { return e.Callback }
func (e QueryOrder) callback() Callback     { return e.Callback }
func (e IncomingQuotes) callback() Callback { return e.Callback }
func (e OrderReceived) callback() Callback  { return e.Callback }
func (e Traded) callback() Callback         { return e.Callback }
func (e Settled) callback() Callback        { return e.Callback }

// ResultKind tags what a Result carries.
type ResultKind string

const (
	KindQueryData      ResultKind = "query_data"
	KindQueryOrder     ResultKind = "query_order"
	KindIncomingQuotes ResultKind = "incoming_quotes"
	KindTrade          ResultKind = "trade"
	KindSettle         ResultKind = "settle"
)

// Result is what the broker reports for a handled event. Only the fields
// relevant to Kind are set.
type Result struct {
	Kind     ResultKind
	Quotes   []domain.Quote
	Order    *domain.Order
	Orders   []*domain.Order
	Total    int
	Trade    *domain.Trade
	Inserted int

	// Err carries an absorbed data-resolution failure, such as a query
	// for bars that no source holds. It is informational; the event
	// itself succeeded.
	Err error
}
