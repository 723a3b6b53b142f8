package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/replaybroker/internal/domain"
	"github.com/efreitasn/replaybroker/internal/engine"
	"github.com/efreitasn/replaybroker/internal/store"
)

// Default pagination for order listings.
const (
	DefaultPage  = 1
	DefaultLimit = 20
)

// Broker is the single entry point of a replay. It owns the quote cache
// and dispatches events to the resolver and the order handler, one
// event at a time.
type Broker struct {
	mu sync.Mutex

	cache    *engine.QuoteCache
	resolver *engine.QuoteResolver
	orders   *engine.OrderHandler
	accounts *store.AccountStore
	trades   *store.TradeStore
	logger   *slog.Logger
}

// NewBroker wires a broker over fetchers. commission is charged as is on
// every trade.
func NewBroker(fetchers *engine.FetcherRegistry, commission decimal.Decimal, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	if fetchers == nil {
		fetchers = engine.NewFetcherRegistry()
	}

	cache := engine.NewQuoteCache()
	resolver := engine.NewQuoteResolver(cache, fetchers, logger)
	accounts := store.NewAccountStore()
	trades := store.NewTradeStore()
	dealer := engine.NewDealer(commission, accounts, trades, logger)
	orders := engine.NewOrderHandler(
		engine.NewPricer(resolver, logger),
		dealer,
		store.NewOrderStore(),
		logger,
	)

	return &Broker{
		cache:    cache,
		resolver: resolver,
		orders:   orders,
		accounts: accounts,
		trades:   trades,
		logger:   logger,
	}
}

// Handle dispatches ev and returns its result. When the event carries a
// callback, the callback is invoked with the same result before Handle
// returns. Structural failures (unknown event, invalid pricing model,
// unknown order) abort the event and are returned as errors; the callback
// is not invoked for them.
//
// The callback runs after the broker is released, so it may submit
// follow-up events through Handle.
func (b *Broker) Handle(ctx context.Context, ev Event) (*Result, error) {
	res, err := b.handleLocked(ctx, ev)
	if err != nil {
		return nil, err
	}
	if cb := ev.callback(); cb != nil {
		cb(res)
	}
	return res, nil
}

func (b *Broker) handleLocked(ctx context.Context, ev Event) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dispatch(ctx, ev)
}

// dispatch must be called with b.mu held.
func (b *Broker) dispatch(ctx context.Context, ev Event) (*Result, error) {
	switch e := ev.(type) {
	case QueryData:
		return b.queryData(ctx, e), nil
	case QueryOrder:
		return b.queryOrder(e)
	case IncomingQuotes:
		return b.incomingQuotes(e), nil
	case OrderReceived:
		return b.orderReceived(ctx, e)
	case Traded:
		return b.traded(ctx, e)
	case Settled:
		return b.settled()
	default:
		return nil, fmt.Errorf("%w: %T", domain.ErrUnknownEvent, ev)
	}
}

func (b *Broker) queryData(ctx context.Context, e QueryData) *Result {
	end := e.End
	if end.IsZero() {
		end = e.Start
	}

	res := &Result{Kind: KindQueryData, Quotes: []domain.Quote{}}
	quotes, err := b.resolver.Range(ctx, e.Code, e.Start, end, e.Market, e.Frequency)
	if err != nil {
		res.Err = domain.ErrQuoteNotFound
		return res
	}
	res.Quotes = quotes
	return res
}

func (b *Broker) queryOrder(e QueryOrder) (*Result, error) {
	if e.OrderID != "" {
		o, err := b.orders.Get(e.OrderID)
		if err != nil {
			return nil, fmt.Errorf("query order: %w", err)
		}
		return &Result{Kind: KindQueryOrder, Order: o, Trade: o.Trade}, nil
	}

	page, limit := e.Page, e.Limit
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	orders, total := b.orders.List(e.AccountID, e.Status, page, limit)
	return &Result{Kind: KindQueryOrder, Orders: orders, Total: total}, nil
}

func (b *Broker) incomingQuotes(e IncomingQuotes) *Result {
	inserted := b.cache.Merge(e.Frequency, e.Quotes)
	b.logger.Debug("quotes merged",
		"received", len(e.Quotes),
		"inserted", inserted,
		"cached", b.cache.Len(),
	)
	return &Result{Kind: KindIncomingQuotes, Inserted: inserted}
}

// orderReceived registers a copy of the order and matches it right away;
// in a replay, receipt and matching are not separated in time.
func (b *Broker) orderReceived(ctx context.Context, e OrderReceived) (*Result, error) {
	if e.Order == nil {
		return nil, &domain.ValidationError{Message: "order is required"}
	}
	if e.Quote != nil && e.Quote.Code != "" && e.Quote.Code != e.Order.Code {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("quote code %s does not match order code %s", e.Quote.Code, e.Order.Code),
		}
	}
	o, err := b.orders.Receive(e.Order.Clone())
	if err != nil {
		return nil, fmt.Errorf("receive order: %w", err)
	}
	return b.dispatch(ctx, Traded{OrderID: o.OrderID, Quote: e.Quote})
}

func (b *Broker) traded(ctx context.Context, e Traded) (*Result, error) {
	o, err := b.orders.MatchWith(ctx, e.OrderID, e.Quote)
	if err != nil {
		return nil, fmt.Errorf("match order: %w", err)
	}
	if o.Status == domain.OrderStatusRejected {
		b.logger.Info("order rejected",
			"order_id", o.OrderID,
			"code", o.Code,
			"reason", o.Reason,
		)
	}
	return &Result{Kind: KindTrade, Order: o, Trade: o.Trade}, nil
}

func (b *Broker) settled() (*Result, error) {
	orders, err := b.orders.Settle()
	if err != nil {
		return nil, fmt.Errorf("settle: %w", err)
	}
	b.logger.Info("session settled", "orders", len(orders))
	return &Result{Kind: KindSettle, Orders: orders, Total: len(orders)}, nil
}
