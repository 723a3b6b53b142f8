package store

import (
	"sync"

	"github.com/efreitasn/replaybroker/internal/domain"
)

// TradeStore is a thread-safe in-memory ledger of dealt trades, indexed
// by instrument code and by order ID. Trades are append-only.
type TradeStore struct {
	mu      sync.RWMutex
	byCode  map[string][]*domain.Trade // code → trades (dealing order)
	byOrder map[string]*domain.Trade
}

// NewTradeStore creates an empty TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		byCode:  make(map[string][]*domain.Trade),
		byOrder: make(map[string]*domain.Trade),
	}
}

// Append records a trade.
func (s *TradeStore) Append(t *domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byCode[t.Code] = append(s.byCode[t.Code], t)
	s.byOrder[t.OrderID] = t
}

// GetByCode returns all trades for an instrument in dealing order.
// Returns an empty slice if there are none.
func (s *TradeStore) GetByCode(code string) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := s.byCode[code]
	result := make([]*domain.Trade, len(trades))
	copy(result, trades)
	return result
}

// GetByOrder returns the trade produced for an order, if any.
func (s *TradeStore) GetByOrder(orderID string) (*domain.Trade, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byOrder[orderID]
	return t, ok
}
