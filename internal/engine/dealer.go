package engine

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/replaybroker/internal/domain"
	"github.com/efreitasn/replaybroker/internal/store"
)

// DefaultCommissionCoeff is the commission charged per unit of notional.
var DefaultCommissionCoeff = decimal.RequireFromString("0.0015")

// Dealer turns priced orders into trades. It charges commission, applies
// the settlement regime of the order's market and keeps account holdings
// in step with the trades it produces.
type Dealer struct {
	coeff        decimal.Decimal
	accountStore *store.AccountStore
	tradeStore   *store.TradeStore
	logger       *slog.Logger
}

// NewDealer creates a Dealer charging coeff on every trade. A zero coeff
// makes trading free.
func NewDealer(coeff decimal.Decimal, accountStore *store.AccountStore, tradeStore *store.TradeStore, logger *slog.Logger) *Dealer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dealer{
		coeff:        coeff,
		accountStore: accountStore,
		tradeStore:   tradeStore,
		logger:       logger,
	}
}

// CommissionCoeff returns the coefficient applied to every trade.
func (d *Dealer) CommissionCoeff() decimal.Decimal {
	return d.coeff
}

// Deal executes a priced order. A sell that the market's regime does not
// admit returns an error wrapping domain.ErrSettlementViolation and leaves
// holdings untouched.
func (d *Dealer) Deal(o *domain.Order) (*domain.Trade, error) {
	if o.Price == nil {
		return nil, fmt.Errorf("%w: order %s is not priced", domain.ErrInvalidTransition, o.OrderID)
	}

	regime := o.Market.Regime()
	buy := o.Towards.IsBuy()

	account := d.accountStore.GetOrCreate(o.AccountID)
	account.Mu.Lock()
	defer account.Mu.Unlock()

	if !buy && !o.Market.AllowsShortSell() {
		var sellable int64
		if regime == domain.SettlementT1 {
			sellable = account.AvailableQuantity(o.Code)
		} else if h, ok := account.Holdings[o.Code]; ok {
			sellable = h.Quantity
		}
		if o.Amount > sellable {
			return nil, fmt.Errorf("%w: sell %d %s exceeds sellable %d",
				domain.ErrSettlementViolation, o.Amount, o.Code, sellable)
		}
	}

	h := account.Holding(o.Code)
	if buy {
		h.Quantity += o.Amount
		if regime == domain.SettlementT1 {
			h.FrozenQuantity += o.Amount
		}
	} else {
		h.Quantity -= o.Amount
	}

	price := *o.Price
	trade := &domain.Trade{
		TradeID:         uuid.New().String(),
		OrderID:         o.OrderID,
		AccountID:       o.AccountID,
		Code:            o.Code,
		Market:          o.Market,
		Towards:         o.Towards,
		Amount:          o.Amount,
		Price:           price,
		Commission:      price.Mul(decimal.NewFromInt(o.Amount)).Mul(d.coeff),
		Regime:          regime,
		SameDayTradable: regime == domain.SettlementT0 || !buy,
		ExecutedAt:      o.Datetime,
	}
	d.tradeStore.Append(trade)

	d.logger.Debug("trade dealt",
		"trade_id", trade.TradeID,
		"order_id", o.OrderID,
		"code", o.Code,
		"price", price.String(),
		"amount", o.Amount,
		"regime", string(regime),
	)
	return trade, nil
}

// Settle ends the session: every frozen T+1 quantity becomes available.
func (d *Dealer) Settle() {
	for _, a := range d.accountStore.All() {
		a.Mu.Lock()
		for _, h := range a.Holdings {
			h.FrozenQuantity = 0
		}
		a.Mu.Unlock()
	}
}
