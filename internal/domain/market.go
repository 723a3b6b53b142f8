package domain

import "fmt"

// MarketKind identifies the market an instrument trades on. Each market
// carries its own settlement regime.
type MarketKind string

const (
	MarketStock  MarketKind = "stock_cn"
	MarketIndex  MarketKind = "index_cn"
	MarketFund   MarketKind = "fund_cn"
	MarketFuture MarketKind = "future_cn"
	MarketOption MarketKind = "option_cn"
	MarketCrypto MarketKind = "crypto"
)

// SettlementRegime says whether same-day acquired positions can be resold
// within the session.
type SettlementRegime string

const (
	// SettlementT1: bought shares are held but frozen until the next
	// session; proceeds from a sale are usable immediately.
	SettlementT1 SettlementRegime = "T+1"
	// SettlementT0: both legs are usable immediately.
	SettlementT0 SettlementRegime = "T+0"
)

type marketRules struct {
	regime    SettlementRegime
	shortSell bool
}

var marketTable = map[MarketKind]marketRules{
	MarketStock:  {regime: SettlementT1, shortSell: false},
	MarketIndex:  {regime: SettlementT1, shortSell: false},
	MarketFund:   {regime: SettlementT1, shortSell: false},
	MarketFuture: {regime: SettlementT0, shortSell: true},
	MarketOption: {regime: SettlementT0, shortSell: true},
	MarketCrypto: {regime: SettlementT0, shortSell: false},
}

// AllMarkets lists every supported market kind.
var AllMarkets = []MarketKind{
	MarketStock, MarketIndex, MarketFund, MarketFuture, MarketOption, MarketCrypto,
}

// ParseMarketKind validates s against the known market kinds.
func ParseMarketKind(s string) (MarketKind, error) {
	m := MarketKind(s)
	if _, ok := marketTable[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMarket, s)
	}
	return m, nil
}

// Valid reports whether m is a known market kind.
func (m MarketKind) Valid() bool {
	_, ok := marketTable[m]
	return ok
}

// Regime returns the settlement regime of the market. Unknown markets are
// treated as T+1, the more restrictive regime.
func (m MarketKind) Regime() SettlementRegime {
	r, ok := marketTable[m]
	if !ok {
		return SettlementT1
	}
	return r.regime
}

// AllowsShortSell reports whether selling beyond the held quantity is
// admissible on this market.
func (m MarketKind) AllowsShortSell() bool {
	return marketTable[m].shortSell
}
