package domain

import (
	"sync"
	"time"
)

// Holding is an account's position in a single instrument. FrozenQuantity
// counts T+1 purchases that cannot be resold before the next settlement.
// Quantity goes negative for a short position.
type Holding struct {
	Quantity       int64
	FrozenQuantity int64
}

// Account is a backtest participant whose holdings gate sell admissibility.
type Account struct {
	AccountID string
	Holdings  map[string]*Holding // code → holding
	CreatedAt time.Time
	Mu        sync.Mutex // per-account lock for holding mutations
}

// NewAccount creates an account with no holdings.
func NewAccount(id string) *Account {
	return &Account{
		AccountID: id,
		Holdings:  make(map[string]*Holding),
		CreatedAt: time.Now(),
	}
}

// AvailableQuantity returns the quantity that can be sold right now for
// the given code, or 0 if the account holds none.
func (a *Account) AvailableQuantity(code string) int64 {
	h, ok := a.Holdings[code]
	if !ok {
		return 0
	}
	return h.Quantity - h.FrozenQuantity
}

// Holding returns the holding for code, creating an empty one if needed.
func (a *Account) Holding(code string) *Holding {
	h, ok := a.Holdings[code]
	if !ok {
		h = &Holding{}
		a.Holdings[code] = h
	}
	return h
}
