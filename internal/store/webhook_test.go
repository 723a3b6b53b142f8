package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/replaybroker/internal/domain"
)

func newTestWebhook(id, accountID, event, url string) *domain.Webhook {
	now := time.Now()
	return &domain.Webhook{
		WebhookID: id,
		AccountID: accountID,
		Event:     event,
		URL:       url,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestWebhookStore_Upsert_NewSubscription(t *testing.T) {
	s := NewWebhookStore()
	w := newTestWebhook("wh-1", "acc-1", domain.WebhookTradeExecuted, "https://example.com/hook")

	if !s.Upsert(w) {
		t.Fatal("expected Upsert to return true for new subscription")
	}

	got, err := s.Get("wh-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.WebhookID != "wh-1" {
		t.Fatalf("expected webhook ID wh-1, got %s", got.WebhookID)
	}
}

func TestWebhookStore_Upsert_UpdateURLKeepsID(t *testing.T) {
	s := NewWebhookStore()
	s.Upsert(newTestWebhook("wh-1", "acc-1", domain.WebhookTradeExecuted, "https://example.com/old"))

	w2 := newTestWebhook("wh-2", "acc-1", domain.WebhookTradeExecuted, "https://example.com/new")
	if s.Upsert(w2) {
		t.Fatal("expected Upsert to return false when updating existing subscription")
	}

	got, err := s.Get("wh-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.URL != "https://example.com/new" {
		t.Fatalf("expected URL to be updated, got %s", got.URL)
	}
	if _, err := s.Get("wh-2"); err != domain.ErrWebhookNotFound {
		t.Fatalf("expected ErrWebhookNotFound for wh-2, got %v", err)
	}
}

func TestWebhookStore_ListByAccount(t *testing.T) {
	s := NewWebhookStore()
	if got := s.ListByAccount("acc-1"); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}

	s.Upsert(newTestWebhook("wh-1", "acc-1", domain.WebhookTradeExecuted, "https://example.com/a"))
	s.Upsert(newTestWebhook("wh-2", "acc-1", domain.WebhookOrderRejected, "https://example.com/a"))
	s.Upsert(newTestWebhook("wh-3", "acc-2", domain.WebhookOrderSettled, "https://example.com/b"))

	got := s.ListByAccount("acc-1")
	if len(got) != 2 {
		t.Fatalf("expected 2 webhooks, got %d", len(got))
	}
	if got[0].Event != domain.WebhookOrderRejected || got[1].Event != domain.WebhookTradeExecuted {
		t.Fatalf("expected webhooks ordered by event, got %s, %s", got[0].Event, got[1].Event)
	}
}

func TestWebhookStore_Delete(t *testing.T) {
	s := NewWebhookStore()
	s.Upsert(newTestWebhook("wh-1", "acc-1", domain.WebhookTradeExecuted, "https://example.com/a"))
	s.Upsert(newTestWebhook("wh-2", "acc-1", domain.WebhookOrderSettled, "https://example.com/a"))

	if err := s.Delete("wh-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.GetByAccountEvent("acc-1", domain.WebhookTradeExecuted) != nil {
		t.Fatal("expected secondary index entry to be removed")
	}
	if s.GetByAccountEvent("acc-1", domain.WebhookOrderSettled) == nil {
		t.Fatal("other subscriptions of the account must survive")
	}
	if err := s.Delete("wh-1"); err != domain.ErrWebhookNotFound {
		t.Fatalf("expected ErrWebhookNotFound, got %v", err)
	}
}

func TestWebhookStore_GetByAccountEvent(t *testing.T) {
	s := NewWebhookStore()
	s.Upsert(newTestWebhook("wh-1", "acc-1", domain.WebhookTradeExecuted, "https://example.com/a"))

	if w := s.GetByAccountEvent("acc-1", domain.WebhookTradeExecuted); w == nil || w.WebhookID != "wh-1" {
		t.Fatalf("expected wh-1, got %v", w)
	}
	if w := s.GetByAccountEvent("acc-1", domain.WebhookOrderSettled); w != nil {
		t.Fatalf("expected nil for unsubscribed event, got %v", w)
	}
	if w := s.GetByAccountEvent("nobody", domain.WebhookTradeExecuted); w != nil {
		t.Fatalf("expected nil for unknown account, got %v", w)
	}
}

func TestWebhookStore_ConcurrentAccess(t *testing.T) {
	s := NewWebhookStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			accountID := fmt.Sprintf("acc-%d", i%5)
			s.Upsert(newTestWebhook(fmt.Sprintf("wh-%d", i), accountID, domain.WebhookTradeExecuted, "https://example.com"))
			_ = s.ListByAccount(accountID)
			_ = s.GetByAccountEvent(accountID, domain.WebhookTradeExecuted)
		}(i)
	}
	wg.Wait()

	total := 0
	for i := 0; i < 5; i++ {
		total += len(s.ListByAccount(fmt.Sprintf("acc-%d", i)))
	}
	if total != 5 {
		t.Fatalf("expected one subscription per account, got %d", total)
	}
}
