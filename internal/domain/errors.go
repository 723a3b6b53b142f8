package domain

import "errors"

// Sentinel errors for domain-level error handling.
// Data-resolution errors (quote not found, fetch failure) are absorbed by
// the engine; structural errors abort the event being handled.
var (
	ErrQuoteNotFound       = errors.New("quote_not_found")
	ErrFetchFailure        = errors.New("fetch_failure")
	ErrNoFetcher           = errors.New("no_fetcher_registered")
	ErrInvalidOrderModel   = errors.New("invalid_order_model")
	ErrSettlementViolation = errors.New("settlement_violation")
	ErrUnknownEvent        = errors.New("unknown_event")
	ErrOrderNotFound       = errors.New("order_not_found")
	ErrOrderAlreadyExists  = errors.New("order_already_exists")
	ErrInvalidTransition   = errors.New("invalid_order_transition")
	ErrUnknownMarket       = errors.New("unknown_market")
	ErrUnknownFrequency    = errors.New("unknown_frequency")
	ErrAccountNotFound     = errors.New("account_not_found")
	ErrWebhookNotFound     = errors.New("webhook_not_found")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
