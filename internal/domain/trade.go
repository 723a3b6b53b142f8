package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is the dealer's record of an executed order.
type Trade struct {
	TradeID         string
	OrderID         string
	AccountID       string
	Code            string
	Market          MarketKind
	Towards         Direction
	Amount          int64
	Price           decimal.Decimal
	Commission      decimal.Decimal
	Regime          SettlementRegime
	SameDayTradable bool // false for T+1 purchases, frozen until settlement
	ExecutedAt      time.Time
}

// Notional returns price × amount.
func (t *Trade) Notional() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Amount))
}
