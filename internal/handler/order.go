package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/replaybroker/internal/domain"
	"github.com/efreitasn/replaybroker/internal/service"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	broker   *service.Broker
	webhooks *service.WebhookService
}

// NewOrderHandler creates a new OrderHandler. Trade and settlement
// results are passed to webhooks.
func NewOrderHandler(broker *service.Broker, webhooks *service.WebhookService) *OrderHandler {
	return &OrderHandler{broker: broker, webhooks: webhooks}
}

// submitOrderRequest is the JSON request body for POST /orders.
type submitOrderRequest struct {
	AccountID string `json:"account_id"`
	Code      string `json:"code"`
	Market    string `json:"market"`
	Frequency string `json:"frequency"`
	Datetime  string `json:"datetime"`
	Towards   int    `json:"towards"`
	Model     string `json:"model"`
	Amount    int64  `json:"amount"`

	// Quote, when present, is the bar the order executes against.
	Quote *domain.Quote `json:"quote"`
}

// orderResponse is the JSON view of an order. Price and trade are null
// until the order is priced and dealt.
type orderResponse struct {
	OrderID   string         `json:"order_id"`
	AccountID string         `json:"account_id"`
	Code      string         `json:"code"`
	Market    string         `json:"market"`
	Frequency string         `json:"frequency"`
	Datetime  string         `json:"datetime"`
	Towards   int            `json:"towards"`
	Model     string         `json:"model"`
	Amount    int64          `json:"amount"`
	Price     *string        `json:"price"`
	Status    string         `json:"status"`
	Reason    string         `json:"reason,omitempty"`
	CreatedAt string         `json:"created_at"`
	Trade     *tradeResponse `json:"trade"`
}

// tradeResponse is a dealt trade.
type tradeResponse struct {
	TradeID         string `json:"trade_id"`
	OrderID         string `json:"order_id"`
	AccountID       string `json:"account_id"`
	Code            string `json:"code"`
	Towards         int    `json:"towards"`
	Amount          int64  `json:"amount"`
	Price           string `json:"price"`
	Commission      string `json:"commission"`
	Regime          string `json:"regime"`
	SameDayTradable bool   `json:"same_day_tradable"`
	ExecutedAt      string `json:"executed_at"`
}

// settleResponse is the JSON response for POST /settle.
type settleResponse struct {
	Settled int             `json:"settled"`
	Orders  []orderResponse `json:"orders"`
}

// SubmitOrder handles POST /orders. The order is received and matched in
// one step, so the response already carries its outcome.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	order, err := service.BuildOrder(service.SubmitOrderRequest{
		AccountID: req.AccountID,
		Code:      req.Code,
		Market:    req.Market,
		Frequency: req.Frequency,
		Datetime:  req.Datetime,
		Towards:   req.Towards,
		Model:     req.Model,
		Amount:    req.Amount,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	res, err := h.broker.Handle(r.Context(), service.OrderReceived{
		Order:    order,
		Quote:    req.Quote,
		Callback: h.webhooks.Notify,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildOrderResponse(res.Order))
}

// GetOrder handles GET /orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	res, err := h.broker.Handle(r.Context(), service.QueryOrder{
		OrderID: chi.URLParam(r, "order_id"),
	})
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(res.Order))
}

// Settle handles POST /settle. It closes the session: T+1 holdings are
// released and every traded order is settled.
func (h *OrderHandler) Settle(w http.ResponseWriter, r *http.Request) {
	res, err := h.broker.Handle(r.Context(), service.Settled{
		Callback: h.webhooks.Notify,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, settleResponse{
		Settled: res.Total,
		Orders:  buildOrderResponses(res.Orders),
	})
}

func buildOrderResponse(o *domain.Order) orderResponse {
	resp := orderResponse{
		OrderID:   o.OrderID,
		AccountID: o.AccountID,
		Code:      o.Code,
		Market:    string(o.Market),
		Frequency: string(o.Frequency),
		Datetime:  domain.FormatTimestamp(o.Datetime),
		Towards:   int(o.Towards),
		Model:     string(o.Model),
		Amount:    o.Amount,
		Status:    string(o.Status),
		Reason:    o.Reason,
		CreatedAt: formatCreated(o.CreatedAt),
	}
	if o.Price != nil {
		p := o.Price.String()
		resp.Price = &p
	}
	if o.Trade != nil {
		t := buildTradeResponse(o.Trade)
		resp.Trade = &t
	}
	return resp
}

func buildOrderResponses(orders []*domain.Order) []orderResponse {
	result := make([]orderResponse, len(orders))
	for i, o := range orders {
		result[i] = buildOrderResponse(o)
	}
	return result
}

func buildTradeResponse(t *domain.Trade) tradeResponse {
	return tradeResponse{
		TradeID:         t.TradeID,
		OrderID:         t.OrderID,
		AccountID:       t.AccountID,
		Code:            t.Code,
		Towards:         int(t.Towards),
		Amount:          t.Amount,
		Price:           t.Price.String(),
		Commission:      t.Commission.String(),
		Regime:          string(t.Regime),
		SameDayTradable: t.SameDayTradable,
		ExecutedAt:      domain.FormatTimestamp(t.ExecutedAt),
	}
}
