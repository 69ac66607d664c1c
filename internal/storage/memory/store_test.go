package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"fintrack/internal/storage"
)

func TestGetMissing(t *testing.T) {
	s := NewStore()
	if _, err := s.Get(context.Background(), "nobody@x.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateDefaultIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p, err := s.CreateDefault(ctx, "a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	p.Income = 1
	if _, err := s.Save(ctx, p); err != nil {
		t.Fatal(err)
	}
	again, err := s.CreateDefault(ctx, "a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if again.Income != 1 {
		t.Fatalf("CreateDefault overwrote existing profile: income=%v", again.Income)
	}
	if s.Len() != 1 {
		t.Fatalf("expected one profile, got %d", s.Len())
	}
}

func TestReturnedProfilesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p, _ := s.CreateDefault(ctx, "a@x.com")
	p.Expenses["rent"] = 0

	got, _ := s.Get(ctx, "a@x.com")
	if got.Expenses["rent"] != 1500 {
		t.Fatalf("store shares memory with callers")
	}
}

func TestConcurrentCreateDefault(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.CreateDefault(ctx, "a@x.com"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if s.Len() != 1 {
		t.Fatalf("expected one profile, got %d", s.Len())
	}
}
