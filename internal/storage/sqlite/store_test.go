package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "fintrack.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), "nobody@x.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateDefaultAndSave(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	p, err := s.CreateDefault(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Income != 5000 || p.Expenses["rent"] != 1500 || len(p.Transactions) != 0 {
		t.Fatalf("unexpected default profile %+v", p)
	}

	cat := "groceries"
	p.Expenses["groceries"] = 440
	p.Transactions = append(p.Transactions, core.LedgerEntry{
		ID:       "e1",
		Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Category: &cat,
		Amount:   40,
		Type:     core.Expense,
	})
	saved, err := s.Save(ctx, p)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Expenses["groceries"] != 440 || len(saved.Transactions) != 1 {
		t.Fatalf("save did not persist: %+v", saved)
	}

	again, err := s.CreateDefault(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if again.Expenses["groceries"] != 440 {
		t.Fatalf("CreateDefault overwrote stored profile")
	}
	tx := again.Transactions[0]
	if tx.CategoryName() != "groceries" || !tx.Date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("entry did not round-trip: %+v", tx)
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fintrack.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateDefault(ctx, "a@x.com"); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.Get(ctx, "a@x.com"); err != nil {
		t.Fatalf("profile lost after reopen: %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
