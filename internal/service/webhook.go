package service

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/replaybroker/internal/domain"
	"github.com/efreitasn/replaybroker/internal/store"
)

// Valid webhook event types.
var validWebhookEvents = map[string]bool{
	domain.WebhookTradeExecuted: true,
	domain.WebhookOrderRejected: true,
	domain.WebhookOrderSettled:  true,
}

// UpsertWebhookRequest represents the input for webhook registration.
type UpsertWebhookRequest struct {
	AccountID string
	URL       string
	Events    []string
}

// WebhookService manages subscriptions and delivers broker results to
// them. Notify is meant to be passed as an event Callback.
type WebhookService struct {
	store  *store.WebhookStore
	client *http.Client
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewWebhookService creates a new WebhookService with the given dependencies.
func NewWebhookService(webhookStore *store.WebhookStore, webhookTimeout time.Duration, logger *slog.Logger) *WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookService{
		store: webhookStore,
		client: &http.Client{
			Timeout: webhookTimeout,
		},
		logger: logger,
	}
}

// Upsert validates the request and creates or updates webhook subscriptions.
// Returns the resulting webhooks, whether any new subscriptions were created, and any error.
func (s *WebhookService) Upsert(req UpsertWebhookRequest) ([]*domain.Webhook, bool, error) {
	if !accountIDRegex.MatchString(req.AccountID) {
		return nil, false, &domain.ValidationError{
			Message: "account_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}

	if req.URL == "" {
		return nil, false, &domain.ValidationError{Message: "url is required"}
	}
	if len(req.URL) > 2048 {
		return nil, false, &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || !parsed.IsAbs() {
		return nil, false, &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" {
		return nil, false, &domain.ValidationError{Message: "url must use https scheme"}
	}

	if len(req.Events) == 0 {
		return nil, false, &domain.ValidationError{Message: "events must be a non-empty array"}
	}

	seen := make(map[string]bool, len(req.Events))
	deduped := make([]string, 0, len(req.Events))
	for _, event := range req.Events {
		if !validWebhookEvents[event] {
			return nil, false, &domain.ValidationError{
				Message: "Unknown event type: " + event + ". Must be one of: trade.executed, order.rejected, order.settled",
			}
		}
		if !seen[event] {
			seen[event] = true
			deduped = append(deduped, event)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	anyCreated := false
	webhooks := make([]*domain.Webhook, 0, len(deduped))

	for _, event := range deduped {
		w := &domain.Webhook{
			WebhookID: uuid.New().String(),
			AccountID: req.AccountID,
			Event:     event,
			URL:       req.URL,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if s.store.Upsert(w) {
			anyCreated = true
			webhooks = append(webhooks, w)
		} else if existing := s.store.GetByAccountEvent(req.AccountID, event); existing != nil {
			webhooks = append(webhooks, existing)
		}
	}

	return webhooks, anyCreated, nil
}

// List returns all webhook subscriptions of an account.
func (s *WebhookService) List(accountID string) []*domain.Webhook {
	return s.store.ListByAccount(accountID)
}

// Delete removes a webhook subscription by ID.
func (s *WebhookService) Delete(webhookID string) error {
	return s.store.Delete(webhookID)
}

type webhookPayload struct {
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

type tradeExecutedData struct {
	TradeID         string `json:"trade_id"`
	AccountID       string `json:"account_id"`
	OrderID         string `json:"order_id"`
	Code            string `json:"code"`
	Market          string `json:"market"`
	Towards         int    `json:"towards"`
	Amount          int64  `json:"amount"`
	Price           string `json:"price"`
	Commission      string `json:"commission"`
	Regime          string `json:"regime"`
	SameDayTradable bool   `json:"same_day_tradable"`
	ExecutedAt      string `json:"executed_at"`
}

type orderEventData struct {
	AccountID string  `json:"account_id"`
	OrderID   string  `json:"order_id"`
	Code      string  `json:"code"`
	Model     string  `json:"model"`
	Towards   int     `json:"towards"`
	Amount    int64   `json:"amount"`
	Datetime  string  `json:"datetime"`
	Price     *string `json:"price"`
	Status    string  `json:"status"`
	Reason    string  `json:"reason,omitempty"`
}

// Notify delivers the notifications a broker result implies: a trade or a
// rejection for matched orders, a settlement for each settled order.
// Deliveries are fire-and-forget.
func (s *WebhookService) Notify(res *Result) {
	if res == nil {
		return
	}
	switch res.Kind {
	case KindTrade:
		if res.Order == nil {
			return
		}
		if res.Trade != nil {
			s.dispatch(res.Order.AccountID, domain.WebhookTradeExecuted, buildTradeData(res.Trade))
			return
		}
		if res.Order.Status == domain.OrderStatusRejected {
			s.dispatch(res.Order.AccountID, domain.WebhookOrderRejected, buildOrderData(res.Order))
		}
	case KindSettle:
		for _, o := range res.Orders {
			s.dispatch(o.AccountID, domain.WebhookOrderSettled, buildOrderData(o))
		}
	}
}

// Wait blocks until in-flight deliveries have finished.
func (s *WebhookService) Wait() {
	s.wg.Wait()
}

func buildTradeData(t *domain.Trade) tradeExecutedData {
	return tradeExecutedData{
		TradeID:         t.TradeID,
		AccountID:       t.AccountID,
		OrderID:         t.OrderID,
		Code:            t.Code,
		Market:          string(t.Market),
		Towards:         int(t.Towards),
		Amount:          t.Amount,
		Price:           t.Price.String(),
		Commission:      t.Commission.String(),
		Regime:          string(t.Regime),
		SameDayTradable: t.SameDayTradable,
		ExecutedAt:      domain.FormatTimestamp(t.ExecutedAt),
	}
}

func buildOrderData(o *domain.Order) orderEventData {
	var price *string
	if o.Price != nil {
		p := o.Price.String()
		price = &p
	}
	return orderEventData{
		AccountID: o.AccountID,
		OrderID:   o.OrderID,
		Code:      o.Code,
		Model:     string(o.Model),
		Towards:   int(o.Towards),
		Amount:    o.Amount,
		Datetime:  domain.FormatTimestamp(o.Datetime),
		Price:     price,
		Status:    string(o.Status),
		Reason:    o.Reason,
	}
}

func (s *WebhookService) dispatch(accountID, event string, data any) {
	wh := s.store.GetByAccountEvent(accountID, event)
	if wh == nil {
		return
	}

	payload := webhookPayload{
		Event:     event,
		Timestamp: time.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
		Data:      data,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deliver(wh, event, payload)
	}()
}

// deliver sends the payload via HTTP POST. Failures are logged and
// otherwise ignored.
func (s *WebhookService) deliver(wh *domain.Webhook, eventType string, payload webhookPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("webhook payload encoding failed", "webhook_id", wh.WebhookID, "error", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("webhook request build failed", "webhook_id", wh.WebhookID, "error", err)
		return
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())
	req.Header.Set("X-Webhook-Id", wh.WebhookID)
	req.Header.Set("X-Event-Type", eventType)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("webhook delivery failed", "webhook_id", wh.WebhookID, "event", eventType, "error", err)
		return
	}
	resp.Body.Close()
}
