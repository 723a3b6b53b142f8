package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/efreitasn/replaybroker/internal/domain"
)

// SetHoldingsRequest seeds an account's positions before a replay.
type SetHoldingsRequest struct {
	AccountID string
	Holdings  []HoldingInput
}

// HoldingInput represents a single holding in a SetHoldings request.
type HoldingInput struct {
	Code     string
	Quantity int64
}

// AccountBalance is a point-in-time view of an account's holdings.
type AccountBalance struct {
	AccountID string
	Holdings  []HoldingBalance
	CreatedAt time.Time
}

// HoldingBalance represents a single holding in the balance view.
type HoldingBalance struct {
	Code              string
	Quantity          int64
	FrozenQuantity    int64
	AvailableQuantity int64
}

// SetHoldings validates req and replaces the listed holdings of the
// account, creating the account if needed. Seeded holdings are available
// immediately. Holdings not listed are left as they are.
func (b *Broker) SetHoldings(req SetHoldingsRequest) (*AccountBalance, error) {
	if !accountIDRegex.MatchString(req.AccountID) {
		return nil, &domain.ValidationError{
			Message: "account_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}

	seen := make(map[string]bool)
	for _, h := range req.Holdings {
		if !codeRegex.MatchString(h.Code) {
			return nil, &domain.ValidationError{
				Message: fmt.Sprintf("holding code must match ^[A-Za-z0-9._-]{1,32}$, got %q", h.Code),
			}
		}
		if h.Quantity < 0 {
			return nil, &domain.ValidationError{
				Message: fmt.Sprintf("holding quantity must be >= 0 for code %s", h.Code),
			}
		}
		if seen[h.Code] {
			return nil, &domain.ValidationError{
				Message: fmt.Sprintf("duplicate code in holdings: %s", h.Code),
			}
		}
		seen[h.Code] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	account := b.accounts.GetOrCreate(req.AccountID)
	account.Mu.Lock()
	for _, h := range req.Holdings {
		account.Holdings[h.Code] = &domain.Holding{Quantity: h.Quantity}
	}
	account.Mu.Unlock()

	return balanceOf(account), nil
}

// GetBalance returns the current holdings of an account.
func (b *Broker) GetBalance(accountID string) (*AccountBalance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	account, err := b.accounts.Get(accountID)
	if err != nil {
		return nil, err
	}
	return balanceOf(account), nil
}

func balanceOf(account *domain.Account) *AccountBalance {
	account.Mu.Lock()
	defer account.Mu.Unlock()

	holdings := make([]HoldingBalance, 0, len(account.Holdings))
	for code, h := range account.Holdings {
		holdings = append(holdings, HoldingBalance{
			Code:              code,
			Quantity:          h.Quantity,
			FrozenQuantity:    h.FrozenQuantity,
			AvailableQuantity: h.Quantity - h.FrozenQuantity,
		})
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Code < holdings[j].Code })

	return &AccountBalance{
		AccountID: account.AccountID,
		Holdings:  holdings,
		CreatedAt: account.CreatedAt,
	}
}

// Trades returns the ledger of trades dealt for code.
func (b *Broker) Trades(code string) []*domain.Trade {
	return b.trades.GetByCode(code)
}
