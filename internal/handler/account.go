package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/replaybroker/internal/domain"
	"github.com/efreitasn/replaybroker/internal/service"
)

// AccountHandler handles HTTP requests for account endpoints.
type AccountHandler struct {
	broker *service.Broker
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(broker *service.Broker) *AccountHandler {
	return &AccountHandler{broker: broker}
}

// setHoldingsRequest is the JSON request body for
// PUT /accounts/{account_id}/holdings.
type setHoldingsRequest struct {
	Holdings []holdingInput `json:"holdings"`
}

// holdingInput is a single holding in the seeding request.
type holdingInput struct {
	Code     string `json:"code"`
	Quantity int64  `json:"quantity"`
}

// balanceResponse is the JSON view of an account's holdings.
type balanceResponse struct {
	AccountID string                   `json:"account_id"`
	Holdings  []holdingBalanceResponse `json:"holdings"`
	CreatedAt string                   `json:"created_at"`
}

// holdingBalanceResponse is a single holding in the balance response.
type holdingBalanceResponse struct {
	Code              string `json:"code"`
	Quantity          int64  `json:"quantity"`
	FrozenQuantity    int64  `json:"frozen_quantity"`
	AvailableQuantity int64  `json:"available_quantity"`
}

// orderListResponse is the JSON response for GET /accounts/{account_id}/orders.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Total  int             `json:"total"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}

// SetHoldings handles PUT /accounts/{account_id}/holdings.
func (h *AccountHandler) SetHoldings(w http.ResponseWriter, r *http.Request) {
	var req setHoldingsRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	holdings := make([]service.HoldingInput, len(req.Holdings))
	for i, hi := range req.Holdings {
		holdings[i] = service.HoldingInput{Code: hi.Code, Quantity: hi.Quantity}
	}

	balance, err := h.broker.SetHoldings(service.SetHoldingsRequest{
		AccountID: chi.URLParam(r, "account_id"),
		Holdings:  holdings,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildBalanceResponse(balance))
}

// GetBalance handles GET /accounts/{account_id}/holdings.
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.broker.GetBalance(chi.URLParam(r, "account_id"))
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildBalanceResponse(balance))
}

// ListOrders handles GET /accounts/{account_id}/orders.
func (h *AccountHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")

	// Parse query params.
	var statusFilter *domain.OrderStatus
	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.OrderStatus(s)
		statusFilter = &status
	}

	page := service.DefaultPage
	if p := r.URL.Query().Get("page"); p != "" {
		var err error
		page, err = strconv.Atoi(p)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "page must be a valid integer")
			return
		}
	}

	limit := service.DefaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		var err error
		limit, err = strconv.Atoi(l)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a valid integer")
			return
		}
	}

	if err := service.ValidateListParams(statusFilter, page, limit); err != nil {
		mapError(w, err)
		return
	}

	res, err := h.broker.Handle(r.Context(), service.QueryOrder{
		AccountID: accountID,
		Status:    statusFilter,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		mapError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, orderListResponse{
		Orders: buildOrderResponses(res.Orders),
		Total:  res.Total,
		Page:   page,
		Limit:  limit,
	})
}

func buildBalanceResponse(b *service.AccountBalance) balanceResponse {
	holdings := make([]holdingBalanceResponse, len(b.Holdings))
	for i, h := range b.Holdings {
		holdings[i] = holdingBalanceResponse{
			Code:              h.Code,
			Quantity:          h.Quantity,
			FrozenQuantity:    h.FrozenQuantity,
			AvailableQuantity: h.AvailableQuantity,
		}
	}
	return balanceResponse{
		AccountID: b.AccountID,
		Holdings:  holdings,
		CreatedAt: formatCreated(b.CreatedAt),
	}
}
