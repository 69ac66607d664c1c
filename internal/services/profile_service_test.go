package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

// countingStore wraps the memory store to count calls and inject failures.
type countingStore struct {
	*memory.Store
	gets    atomic.Int64
	creates atomic.Int64
	saveErr error
	getErr  error
	gate    chan struct{}
}

func (c *countingStore) Get(ctx context.Context, email string) (*core.Profile, error) {
	c.gets.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.Store.Get(ctx, email)
}

func (c *countingStore) CreateDefault(ctx context.Context, email string) (*core.Profile, error) {
	c.creates.Add(1)
	return c.Store.CreateDefault(ctx, email)
}

func (c *countingStore) Save(ctx context.Context, p *core.Profile) (*core.Profile, error) {
	if c.saveErr != nil {
		return nil, c.saveErr
	}
	return c.Store.Save(ctx, p)
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Output: &bytes.Buffer{}})
}

func newService(store storage.Store, pub EventPublisher) *ProfileService {
	return NewProfileService(store, ledger.NewEngine(ledger.OpenCategories), pub, quietLogger())
}

func TestFetchOrCreate(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: memory.NewStore()}
	svc := newService(store, nil)

	p, err := svc.FetchOrCreate(ctx, "a@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if p.Income != 5000 || p.Expenses["rent"] != 1500 || len(p.Transactions) != 0 {
		t.Fatalf("unexpected default %+v", p)
	}
	if _, err := svc.FetchOrCreate(ctx, "a@x.com"); err != nil {
		t.Fatal(err)
	}
	if store.creates.Load() != 1 {
		t.Fatalf("expected one create, got %d", store.creates.Load())
	}
}

func TestFetchOrCreateRequiresEmail(t *testing.T) {
	svc := newService(memory.NewStore(), nil)
	_, err := svc.FetchOrCreate(context.Background(), "  ")
	if !errors.Is(err, core.ErrMissingEmail) || !core.IsValidation(err) {
		t.Fatalf("expected missing email validation error, got %v", err)
	}
}

func TestFetchOrCreateCoalescesConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: memory.NewStore(), gate: make(chan struct{})}
	svc := newService(store, nil)

	const callers = 16
	var wg sync.WaitGroup
	results := make([]*core.Profile, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := svc.FetchOrCreate(ctx, "a@x.com")
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = p
		}(i)
	}
	// Let every caller reach singleflight before the first Get returns.
	for store.gets.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	close(store.gate)
	wg.Wait()

	if store.creates.Load() != 1 {
		t.Fatalf("expected one create, got %d", store.creates.Load())
	}
	results[0].Expenses["rent"] = 0
	for i := 1; i < callers; i++ {
		if results[i] != nil && results[i].Expenses["rent"] != 1500 {
			t.Fatalf("callers share the same profile value")
		}
	}
}

func TestFetchOrCreateSurvivesLeaderCancellation(t *testing.T) {
	store := &countingStore{Store: memory.NewStore(), gate: make(chan struct{})}
	svc := newService(store, nil)

	leaderCtx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 2)
	go func() {
		_, err := svc.FetchOrCreate(leaderCtx, "a@x.com")
		errs <- err
	}()
	for store.gets.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	go func() {
		_, err := svc.FetchOrCreate(context.Background(), "a@x.com")
		errs <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	close(store.gate)

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("caller %d failed after leader cancellation: %v", i, err)
		}
	}
	if store.creates.Load() != 1 {
		t.Fatalf("expected one create, got %d", store.creates.Load())
	}
}

func TestFetchOrCreateStoreFailure(t *testing.T) {
	cause := storage.Unavailable("get", errors.New("down"))
	store := &countingStore{Store: memory.NewStore(), getErr: cause}
	svc := newService(store, nil)
	_, err := svc.FetchOrCreate(context.Background(), "a@x.com")
	if !errors.Is(err, storage.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if store.creates.Load() != 0 {
		t.Fatalf("should not create on store failure")
	}
}

func TestAddAndRemoveTransaction(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newService(memory.NewStore(), pub)

	if _, err := svc.FetchOrCreate(ctx, "a@x.com"); err != nil {
		t.Fatal(err)
	}
	p, err := svc.AddTransaction(ctx, "a@x.com", core.EntryInput{Date: "2024-03-01", Category: "groceries", Amount: -40.0, Type: "expense"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Expenses["groceries"] != 440 || len(p.Transactions) != 1 || p.Transactions[0].Amount != 40 {
		t.Fatalf("unexpected profile after add %+v", p)
	}

	p, err = svc.RemoveTransaction(ctx, "a@x.com", 0)
	if err != nil {
		t.Fatal(err)
	}
	if p.Expenses["groceries"] != 400 || len(p.Transactions) != 0 {
		t.Fatalf("unexpected profile after remove %+v", p)
	}

	if len(pub.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(pub.events))
	}
	if pub.events[0].Event != amqp.EventTransactionAdded || pub.events[0].Index != 0 || pub.events[0].Entry == nil {
		t.Fatalf("unexpected add event %+v", pub.events[0])
	}
	if pub.events[1].Event != amqp.EventTransactionRemoved || pub.events[1].Entry.Amount != 40 {
		t.Fatalf("unexpected remove event %+v", pub.events[1])
	}
}

func TestAddTransactionUnknownUser(t *testing.T) {
	svc := newService(memory.NewStore(), nil)
	_, err := svc.AddTransaction(context.Background(), "ghost@x.com", core.EntryInput{Date: "2024-03-01", Category: "rent", Amount: 1.0})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddTransactionValidationDoesNotPersist(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	pub := &recordingPublisher{}
	svc := newService(store, pub)
	_, _ = svc.FetchOrCreate(ctx, "a@x.com")

	_, err := svc.AddTransaction(ctx, "a@x.com", core.EntryInput{Date: "2024-03-01", Amount: "abc", Category: "rent"})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	p, _ := store.Get(ctx, "a@x.com")
	if len(p.Transactions) != 0 || p.Expenses["rent"] != 1500 {
		t.Fatalf("failed add was persisted: %+v", p)
	}
	if len(pub.events) != 0 {
		t.Fatalf("failed add published an event")
	}
}

func TestRemoveTransactionChecksUserBeforeIndex(t *testing.T) {
	ctx := context.Background()
	svc := newService(memory.NewStore(), nil)

	if _, err := svc.RemoveTransaction(ctx, "ghost@x.com", -1); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound first, got %v", err)
	}
	_, _ = svc.FetchOrCreate(ctx, "a@x.com")
	if _, err := svc.RemoveTransaction(ctx, "a@x.com", 0); !errors.Is(err, core.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newService(memory.NewStore(), pub)
	_, _ = svc.FetchOrCreate(ctx, "a@x.com")

	if _, err := svc.AddTransaction(ctx, "a@x.com", core.EntryInput{Date: "2024-03-01", Amount: 10.0, Type: "income"}); err != nil {
		t.Fatalf("publish failure leaked to caller: %v", err)
	}
}

func TestSaveFailureIsReported(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: memory.NewStore()}
	svc := newService(store, nil)
	_, _ = svc.FetchOrCreate(ctx, "a@x.com")

	store.saveErr = storage.Unavailable("save", errors.New("disk full"))
	_, err := svc.AddTransaction(ctx, "a@x.com", core.EntryInput{Date: "2024-03-01", Amount: 10.0, Category: "rent"})
	if !errors.Is(err, storage.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestBulkUpdate(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := newService(memory.NewStore(), pub)
	_, _ = svc.FetchOrCreate(ctx, "a@x.com")

	t.Run("savings only leaves the rest", func(t *testing.T) {
		sv := core.Savings{CurrentAmount: 1, TargetAmount: 2, MonthlyGoal: 3}
		p, err := svc.BulkUpdate(ctx, "a@x.com", core.ProfileUpdate{Savings: &sv})
		if err != nil {
			t.Fatal(err)
		}
		if p.Savings != sv || p.Income != 5000 || p.Expenses["rent"] != 1500 || len(p.Expenses) != len(core.Categories) {
			t.Fatalf("unexpected profile %+v", p)
		}
	})

	t.Run("expenses replaced wholesale", func(t *testing.T) {
		income := 4200.0
		p, err := svc.BulkUpdate(ctx, "a@x.com", core.ProfileUpdate{Income: &income, Expenses: map[string]float64{" rent ": 900}})
		if err != nil {
			t.Fatal(err)
		}
		if p.Income != 4200 || len(p.Expenses) != 1 || p.Expenses["rent"] != 900 {
			t.Fatalf("unexpected profile %+v", p)
		}
	})

	t.Run("negative values rejected", func(t *testing.T) {
		neg := -1.0
		_, err := svc.BulkUpdate(ctx, "a@x.com", core.ProfileUpdate{Income: &neg})
		if !errors.Is(err, core.ErrNegativeValue) {
			t.Fatalf("expected ErrNegativeValue, got %v", err)
		}
		_, err = svc.BulkUpdate(ctx, "a@x.com", core.ProfileUpdate{Savings: &core.Savings{MonthlyGoal: -5}})
		if !errors.Is(err, core.ErrNegativeValue) {
			t.Fatalf("expected ErrNegativeValue for savings, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		income := 1.0
		_, err := svc.BulkUpdate(ctx, "ghost@x.com", core.ProfileUpdate{Income: &income})
		if !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	if len(pub.events) != 2 || pub.events[0].Event != amqp.EventProfileUpdated {
		t.Fatalf("expected 2 profile.updated events, got %+v", pub.events)
	}
}

func TestBulkUpdateClosedPolicy(t *testing.T) {
	ctx := context.Background()
	svc := NewProfileService(memory.NewStore(), ledger.NewEngine(ledger.ClosedCategories), nil, quietLogger())
	_, _ = svc.FetchOrCreate(ctx, "a@x.com")
	_, err := svc.BulkUpdate(ctx, "a@x.com", core.ProfileUpdate{Expenses: map[string]float64{"books": 1}})
	if !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestReady(t *testing.T) {
	svc := newService(memory.NewStore(), nil)
	if err := svc.Ready(context.Background()); err != nil {
		t.Fatalf("memory store should be ready: %v", err)
	}
}
