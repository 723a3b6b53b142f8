package service

import (
	"fmt"
	"regexp"

	"github.com/efreitasn/replaybroker/internal/domain"
)

var (
	accountIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	codeRegex      = regexp.MustCompile(`^[A-Za-z0-9._-]{1,32}$`)
)

// ValidOrderStatuses lists all valid order status values for validation.
var ValidOrderStatuses = map[domain.OrderStatus]bool{
	domain.OrderStatusReceived: true,
	domain.OrderStatusPriced:   true,
	domain.OrderStatusTraded:   true,
	domain.OrderStatusSettled:  true,
	domain.OrderStatusRejected: true,
}

// SubmitOrderRequest is an order as submitted by an external caller, with
// every enumerated field still in its wire form.
type SubmitOrderRequest struct {
	AccountID string
	Code      string
	Market    string
	Frequency string
	Datetime  string
	Towards   int
	Model     string
	Amount    int64
}

// BuildOrder validates req and converts it into an order ready to be
// handed to the broker in an OrderReceived event.
func BuildOrder(req SubmitOrderRequest) (*domain.Order, error) {
	if !accountIDRegex.MatchString(req.AccountID) {
		return nil, &domain.ValidationError{
			Message: "account_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}
	if !codeRegex.MatchString(req.Code) {
		return nil, &domain.ValidationError{
			Message: "code must match ^[A-Za-z0-9._-]{1,32}$",
		}
	}

	market, err := domain.ParseMarketKind(req.Market)
	if err != nil {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("Unknown market: %s", req.Market),
		}
	}
	freq, err := domain.ParseFrequency(req.Frequency)
	if err != nil {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("Unknown frequency: %s", req.Frequency),
		}
	}

	// The model is checked by the broker so that an unknown model fails
	// the event rather than the request.
	model := domain.OrderModel(req.Model)
	if model == "" {
		return nil, &domain.ValidationError{Message: "model is required"}
	}

	towards := domain.Direction(req.Towards)
	if !towards.Valid() {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("towards must be one of 1, -1, 2, 3, -2, -3, got %d", req.Towards),
		}
	}
	if req.Amount <= 0 {
		return nil, &domain.ValidationError{
			Message: "amount must be a positive integer",
		}
	}

	ts, hasTime, err := domain.ParseTimestamp(req.Datetime)
	if err != nil {
		return nil, err
	}

	return &domain.Order{
		AccountID: req.AccountID,
		Code:      req.Code,
		Market:    market,
		Frequency: freq,
		Datetime:  ts,
		HasTime:   hasTime,
		Towards:   towards,
		Model:     model,
		Amount:    req.Amount,
	}, nil
}

// ValidateListParams checks the filters of an order listing.
func ValidateListParams(status *domain.OrderStatus, page, limit int) error {
	if status != nil && !ValidOrderStatuses[*status] {
		return &domain.ValidationError{
			Message: fmt.Sprintf("Invalid status filter: '%s'. Must be one of: received, priced, traded, settled, rejected", *status),
		}
	}
	if page < 1 {
		return &domain.ValidationError{
			Message: "page must be >= 1",
		}
	}
	if limit < 1 || limit > 100 {
		return &domain.ValidationError{
			Message: "limit must be between 1 and 100",
		}
	}
	return nil
}
