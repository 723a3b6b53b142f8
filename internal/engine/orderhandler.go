package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/replaybroker/internal/domain"
	"github.com/efreitasn/replaybroker/internal/store"
)

// Rejection reasons recorded on orders.
const (
	ReasonQuoteNotFound       = "quote_not_found"
	ReasonSettlementViolation = "settlement_violation"
)

var transitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusReceived: {domain.OrderStatusPriced, domain.OrderStatusRejected},
	domain.OrderStatusPriced:   {domain.OrderStatusTraded, domain.OrderStatusRejected},
	domain.OrderStatusTraded:   {domain.OrderStatusSettled},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to domain.OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func transition(o *domain.Order, to domain.OrderStatus) error {
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("%w: %s -> %s for order %s", domain.ErrInvalidTransition, o.Status, to, o.OrderID)
	}
	o.Status = to
	return nil
}

// OrderHandler owns the lifecycle of orders:
// received → priced → traded → settled, with rejected reachable from
// received (no quote) and from priced (settlement violation).
//
// It is not safe for concurrent mutation; the broker serializes calls.
type OrderHandler struct {
	pricer     *Pricer
	dealer     *Dealer
	orderStore *store.OrderStore
	logger     *slog.Logger
}

// NewOrderHandler creates an OrderHandler with the given dependencies.
func NewOrderHandler(pricer *Pricer, dealer *Dealer, orderStore *store.OrderStore, logger *slog.Logger) *OrderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderHandler{
		pricer:     pricer,
		dealer:     dealer,
		orderStore: orderStore,
		logger:     logger,
	}
}

// Receive registers an order in the received state. It assigns an ID and
// creation time when missing and rejects unknown pricing models up front.
func (h *OrderHandler) Receive(o *domain.Order) (*domain.Order, error) {
	if _, err := PolicyFor(o.Model); err != nil {
		return nil, err
	}
	if o.OrderID == "" {
		o.OrderID = uuid.New().String()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	o.Status = domain.OrderStatusReceived
	o.Price = nil
	o.Trade = nil
	o.Reason = ""

	if err := h.orderStore.Create(o); err != nil {
		return nil, err
	}
	return o.Clone(), nil
}

// Match prices a received order and deals it. Orders without a
// resolvable quote or whose sell the market does not admit end up
// rejected; neither case is an error.
func (h *OrderHandler) Match(ctx context.Context, orderID string) (*domain.Order, error) {
	return h.MatchWith(ctx, orderID, nil)
}

// MatchWith is Match against a caller-supplied bar when quote is non-nil.
func (h *OrderHandler) MatchWith(ctx context.Context, orderID string, quote *domain.Quote) (*domain.Order, error) {
	o, err := h.orderStore.Get(orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != domain.OrderStatusReceived {
		return nil, fmt.Errorf("%w: order %s is %s", domain.ErrInvalidTransition, orderID, o.Status)
	}

	_, found, err := h.pricer.WarpWith(ctx, o, quote)
	if err != nil {
		return nil, err
	}
	if !found {
		o.Reason = ReasonQuoteNotFound
		if err := transition(o, domain.OrderStatusRejected); err != nil {
			return nil, err
		}
		return o.Clone(), nil
	}
	if err := transition(o, domain.OrderStatusPriced); err != nil {
		return nil, err
	}

	trade, err := h.dealer.Deal(o)
	if err != nil {
		if !errors.Is(err, domain.ErrSettlementViolation) {
			return nil, err
		}
		h.logger.Warn("order rejected", "order_id", o.OrderID, "error", err)
		o.Reason = ReasonSettlementViolation
		if err := transition(o, domain.OrderStatusRejected); err != nil {
			return nil, err
		}
		return o.Clone(), nil
	}

	o.Trade = trade
	if err := transition(o, domain.OrderStatusTraded); err != nil {
		return nil, err
	}
	return o.Clone(), nil
}

// Settle closes the session: frozen holdings are released and every
// traded order becomes settled. It returns the orders it settled.
func (h *OrderHandler) Settle() ([]*domain.Order, error) {
	h.dealer.Settle()

	traded := h.orderStore.ListByStatus(domain.OrderStatusTraded)
	out := make([]*domain.Order, 0, len(traded))
	for _, o := range traded {
		if err := transition(o, domain.OrderStatusSettled); err != nil {
			return nil, err
		}
		out = append(out, o.Clone())
	}
	return out, nil
}

// Get returns a copy of an order.
func (h *OrderHandler) Get(orderID string) (*domain.Order, error) {
	o, err := h.orderStore.Get(orderID)
	if err != nil {
		return nil, err
	}
	return o.Clone(), nil
}

// List returns copies of an account's orders, newest first, with the
// total count before pagination.
func (h *OrderHandler) List(accountID string, status *domain.OrderStatus, page, limit int) ([]*domain.Order, int) {
	orders, total := h.orderStore.ListByAccount(accountID, status, page, limit)
	out := make([]*domain.Order, len(orders))
	for i, o := range orders {
		out[i] = o.Clone()
	}
	return out, total
}
