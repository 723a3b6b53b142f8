package store

import (
	"fmt"
	"sync"
	"testing"

	"github.com/efreitasn/replaybroker/internal/domain"
)

func TestAccountStore_GetOrCreate(t *testing.T) {
	s := NewAccountStore()

	if _, err := s.Get("acc-1"); err != domain.ErrAccountNotFound {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	a := s.GetOrCreate("acc-1")
	if a.AccountID != "acc-1" {
		t.Fatalf("expected acc-1, got %s", a.AccountID)
	}
	if s.GetOrCreate("acc-1") != a {
		t.Fatal("GetOrCreate should return the existing account")
	}

	got, err := s.Get("acc-1")
	if err != nil || got != a {
		t.Fatalf("Get(acc-1) = %v, %v", got, err)
	}
}

func TestAccountStore_All_SortedByID(t *testing.T) {
	s := NewAccountStore()
	for _, id := range []string{"c", "a", "b"} {
		s.GetOrCreate(id)
	}
	all := s.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 accounts, got %d", len(all))
	}
	for i, want := range []string{"a", "b", "c"} {
		if all[i].AccountID != want {
			t.Errorf("All()[%d] = %s, want %s", i, all[i].AccountID, want)
		}
	}
}

func TestAccountStore_ConcurrentGetOrCreate(t *testing.T) {
	s := NewAccountStore()
	var wg sync.WaitGroup
	seen := make([]*domain.Account, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seen[i] = s.GetOrCreate(fmt.Sprintf("acc-%d", i%10))
		}(i)
	}
	wg.Wait()

	if len(s.All()) != 10 {
		t.Fatalf("expected 10 accounts, got %d", len(s.All()))
	}
	for i := 0; i < 100; i++ {
		if seen[i] != seen[i%10] {
			t.Fatalf("GetOrCreate returned distinct accounts for acc-%d", i%10)
		}
	}
}
