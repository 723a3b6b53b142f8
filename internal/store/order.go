package store

import (
	"sync"

	"github.com/efreitasn/replaybroker/internal/domain"
)

// OrderStore is a thread-safe in-memory store for orders, with a primary
// index by order_id, a secondary index by account_id, and the global
// arrival sequence.
type OrderStore struct {
	mu            sync.RWMutex
	orders        map[string]*domain.Order
	accountOrders map[string][]*domain.Order // account_id → orders (append-only)
	sequence      []*domain.Order            // arrival order
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:        make(map[string]*domain.Order),
		accountOrders: make(map[string][]*domain.Order),
	}
}

// Create adds an order to the store. It returns
// domain.ErrOrderAlreadyExists if the order ID is taken.
func (s *OrderStore) Create(o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.OrderID]; exists {
		return domain.ErrOrderAlreadyExists
	}
	s.orders[o.OrderID] = o
	s.accountOrders[o.AccountID] = append(s.accountOrders[o.AccountID], o)
	s.sequence = append(s.sequence, o)
	return nil
}

// Get retrieves an order by ID. It returns
// domain.ErrOrderNotFound if the order does not exist.
func (s *OrderStore) Get(id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// ListByStatus returns every order currently in the given status, in
// arrival order.
func (s *OrderStore) ListByStatus(status domain.OrderStatus) []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Order, 0)
	for _, o := range s.sequence {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}

// ListByAccount returns orders for an account, newest first. If status
// is non-nil, only orders matching that status are included. Pagination
// is 1-based. Returns the requested page and the total count of matching
// orders before pagination.
func (s *OrderStore) ListByAccount(accountID string, status *domain.OrderStatus, page, limit int) ([]*domain.Order, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.accountOrders[accountID]

	filtered := make([]*domain.Order, 0)
	for i := len(all) - 1; i >= 0; i-- {
		if status != nil && all[i].Status != *status {
			continue
		}
		filtered = append(filtered, all[i])
	}

	total := len(filtered)

	start := (page - 1) * limit
	if start >= total || start < 0 {
		return []*domain.Order{}, total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return filtered[start:end], total
}

// Len returns the number of stored orders.
func (s *OrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
