package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/replaybroker/internal/domain"
)

// PricingPolicy decides when an order executes and at which price within
// the resolved bar. Policies are pure.
type PricingPolicy interface {
	EffectiveTime(o *domain.Order) time.Time
	FillPrice(o *domain.Order, q domain.Quote) decimal.Decimal
}

var two = decimal.NewFromInt(2)

// sessionAdvance is shared by MARKET and STRICT: daily orders execute at
// the open of the submitted session, intraday orders one bar after
// submission.
func sessionAdvance(o *domain.Order) time.Time {
	if o.Frequency.IsDaily() {
		return domain.SessionOpen(o.Datetime)
	}
	return o.Datetime.Add(o.Frequency.Interval())
}

type marketPolicy struct{}

func (marketPolicy) EffectiveTime(o *domain.Order) time.Time {
	return sessionAdvance(o)
}

func (marketPolicy) FillPrice(_ *domain.Order, q domain.Quote) decimal.Decimal {
	return q.High.Add(q.Low).Div(two)
}

type nextOpenPolicy struct{}

func (nextOpenPolicy) EffectiveTime(o *domain.Order) time.Time {
	switch {
	case o.Frequency.IsDaily():
		return domain.SessionOpen(domain.NextSession(o.Datetime))
	case o.HasTime:
		return o.Datetime.Add(o.Frequency.Interval())
	default:
		return domain.SessionClose(o.Datetime)
	}
}

func (nextOpenPolicy) FillPrice(_ *domain.Order, q domain.Quote) decimal.Decimal {
	return q.Close
}

type closePolicy struct{}

func (closePolicy) EffectiveTime(o *domain.Order) time.Time {
	if o.HasTime {
		return o.Datetime
	}
	return domain.SessionClose(o.Datetime)
}

func (closePolicy) FillPrice(_ *domain.Order, q domain.Quote) decimal.Decimal {
	return q.Close
}

type strictPolicy struct{}

func (strictPolicy) EffectiveTime(o *domain.Order) time.Time {
	return sessionAdvance(o)
}

// FillPrice takes the worst price of the bar for the order's side.
func (strictPolicy) FillPrice(o *domain.Order, q domain.Quote) decimal.Decimal {
	if o.Towards.IsBuy() {
		return q.High
	}
	return q.Low
}

var policies = map[domain.OrderModel]PricingPolicy{
	domain.OrderModelMarket:   marketPolicy{},
	domain.OrderModelNextOpen: nextOpenPolicy{},
	domain.OrderModelClose:    closePolicy{},
	domain.OrderModelStrict:   strictPolicy{},
}

// PolicyFor returns the policy registered for model, or an error wrapping
// domain.ErrInvalidOrderModel.
func PolicyFor(model domain.OrderModel) (PricingPolicy, error) {
	p, ok := policies[model]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidOrderModel, model)
	}
	return p, nil
}

// Pricer moves orders to their effective timestamp and prices them
// against the resolved quote.
type Pricer struct {
	resolver *QuoteResolver
	logger   *slog.Logger
}

// NewPricer creates a Pricer over resolver.
func NewPricer(resolver *QuoteResolver, logger *slog.Logger) *Pricer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pricer{resolver: resolver, logger: logger}
}

// Warp applies the order's pricing model in place and returns the quote
// the order was priced against. An unknown model fails fast. A quote that
// cannot be resolved leaves the order unpriced and is not an error; the
// returned bool reports whether a quote was found.
func (p *Pricer) Warp(ctx context.Context, o *domain.Order) (domain.Quote, bool, error) {
	return p.WarpWith(ctx, o, nil)
}

// WarpWith is Warp with a caller-supplied bar. A non-nil supplied quote is
// priced against directly and the resolver is not consulted; a CLOSE
// order then executes at that bar's timestamp.
func (p *Pricer) WarpWith(ctx context.Context, o *domain.Order, supplied *domain.Quote) (domain.Quote, bool, error) {
	policy, err := PolicyFor(o.Model)
	if err != nil {
		return domain.Quote{}, false, err
	}

	if supplied != nil {
		q := supplied.Normalized()
		if q.Code == "" {
			q.Code = o.Code
		}
		q.Timestamp = q.Timestamp.UTC()
		if o.Model == domain.OrderModelClose {
			o.Datetime = q.Timestamp
		} else {
			o.Datetime = policy.EffectiveTime(o)
		}
		o.HasTime = true
		price := policy.FillPrice(o, q)
		o.Price = &price
		return q, true, nil
	}

	effective := policy.EffectiveTime(o)
	o.Datetime = effective
	o.HasTime = true

	q, err := p.resolver.Resolve(ctx, QuoteRequest{
		Code:      o.Code,
		Datetime:  effective,
		Market:    o.Market,
		Frequency: o.Frequency,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrQuoteNotFound) {
			return domain.Quote{}, false, err
		}
		p.logger.Info("order left unpriced",
			"order_id", o.OrderID,
			"code", o.Code,
			"model", string(o.Model),
			"datetime", domain.FormatTimestamp(effective),
		)
		return domain.Quote{}, false, nil
	}

	price := policy.FillPrice(o, q)
	o.Price = &price
	return q, true, nil
}
