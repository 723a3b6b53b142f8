package domain

import "time"

// Webhook event types an account can subscribe to.
const (
	WebhookTradeExecuted = "trade.executed"
	WebhookOrderRejected = "order.rejected"
	WebhookOrderSettled  = "order.settled"
)

// Webhook represents an account's subscription to an event notification.
type Webhook struct {
	WebhookID string
	AccountID string
	Event     string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
