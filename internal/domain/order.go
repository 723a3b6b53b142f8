package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderModel selects the pricing policy applied to an order. The set is
// closed: adding a model means adding a policy in the engine.
type OrderModel string

const (
	OrderModelMarket   OrderModel = "MARKET"
	OrderModelNextOpen OrderModel = "NEXT_OPEN"
	OrderModelClose    OrderModel = "CLOSE"
	OrderModelStrict   OrderModel = "STRICT"
)

// AllOrderModels enumerates the registered pricing models.
var AllOrderModels = []OrderModel{
	OrderModelMarket, OrderModelNextOpen, OrderModelClose, OrderModelStrict,
}

// ParseOrderModel validates s against the registered models.
func ParseOrderModel(s string) (OrderModel, error) {
	for _, m := range AllOrderModels {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOrderModel, s)
}

// Direction is the trading direction of an order. Positive values are on
// the buy side, negative values on the sell side.
type Direction int

const (
	DirectionBuy       Direction = 1
	DirectionSell      Direction = -1
	DirectionBuyOpen   Direction = 2
	DirectionBuyClose  Direction = 3
	DirectionSellOpen  Direction = -2
	DirectionSellClose Direction = -3
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case DirectionBuy, DirectionSell, DirectionBuyOpen, DirectionBuyClose,
		DirectionSellOpen, DirectionSellClose:
		return true
	}
	return false
}

// IsBuy reports whether d acquires the instrument.
func (d Direction) IsBuy() bool {
	return d > 0
}

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusReceived OrderStatus = "received"
	OrderStatusPriced   OrderStatus = "priced"
	OrderStatusTraded   OrderStatus = "traded"
	OrderStatusSettled  OrderStatus = "settled"
	OrderStatusRejected OrderStatus = "rejected"
)

// Order is a single execution attempt against the historical tape. It is
// mutated in place while it is priced and dealt; the broker clones orders
// on receipt so no two resolutions share an instance.
type Order struct {
	OrderID   string
	AccountID string
	Code      string
	Market    MarketKind
	Frequency Frequency
	Datetime  time.Time
	HasTime   bool // false when the order was submitted with a date only
	Towards   Direction
	Model     OrderModel
	Amount    int64
	Price     *decimal.Decimal // nil until priced
	Status    OrderStatus
	Reason    string // rejection cause, empty otherwise
	CreatedAt time.Time
	Trade     *Trade
}

// IsPriced reports whether a fill price has been assigned.
func (o *Order) IsPriced() bool {
	return o.Price != nil
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	c := *o
	if o.Price != nil {
		p := *o.Price
		c.Price = &p
	}
	if o.Trade != nil {
		t := *o.Trade
		c.Trade = &t
	}
	return &c
}
