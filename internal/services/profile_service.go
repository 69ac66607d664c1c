package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/storage"

	"golang.org/x/sync/singleflight"
)

// EventPublisher receives ledger events after a change is persisted.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// ProfileService orchestrates profile reads and ledger mutations across the
// store and the event bus.
type ProfileService struct {
	store     storage.Store
	engine    *ledger.Engine
	publisher EventPublisher
	logger    *log.Logger
	changes   *log.StructuredLogger
	group     singleflight.Group
	now       func() time.Time
}

// NewProfileService wires a service. publisher and logger may be nil.
func NewProfileService(store storage.Store, engine *ledger.Engine, publisher EventPublisher, logger *log.Logger) *ProfileService {
	if engine == nil {
		engine = ledger.NewEngine(ledger.OpenCategories)
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentProfile)
	return &ProfileService{
		store:     store,
		engine:    engine,
		publisher: publisher,
		logger:    logger,
		changes:   log.NewStructuredLogger(logger),
		now:       time.Now,
	}
}

func requireEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return &core.ValidationError{Field: "email", Err: core.ErrMissingEmail}
	}
	return nil
}

// FetchOrCreate returns the stored profile, creating the default snapshot the
// first time an email is seen. Concurrent calls for one email share a single
// store round trip.
func (s *ProfileService) FetchOrCreate(ctx context.Context, email string) (*core.Profile, error) {
	if err := requireEmail(email); err != nil {
		return nil, err
	}

	v, err, shared := s.group.Do(email, func() (any, error) {
		// Shared by every coalesced caller, so one caller's cancellation
		// must not fail the rest.
		ctx := context.WithoutCancel(ctx)
		p, err := s.store.Get(ctx, email)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("fetch profile: %w", err)
		}

		p, err = s.store.CreateDefault(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("create default profile: %w", err)
		}
		s.logger.InfoContext(ctx, "Created default profile", log.FieldEmail, email)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.DebugContext(ctx, "Coalesced profile fetch", log.FieldEmail, email)
	}
	return v.(*core.Profile).Clone(), nil
}

// BulkUpdate replaces the provided sections of an existing profile.
func (s *ProfileService) BulkUpdate(ctx context.Context, email string, update core.ProfileUpdate) (*core.Profile, error) {
	if err := requireEmail(email); err != nil {
		return nil, err
	}
	expenses, err := s.validateUpdate(update)
	if err != nil {
		return nil, err
	}

	p, err := s.store.Get(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	if update.Income != nil {
		p.Income = *update.Income
	}
	if update.Expenses != nil {
		p.Expenses = expenses
	}
	if update.Savings != nil {
		p.Savings = *update.Savings
	}
	p.UpdatedAt = s.now().UTC()

	saved, err := s.store.Save(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	s.logger.InfoContext(ctx, "Profile updated",
		log.FieldEmail, email,
		log.FieldOperation, log.OpUpdate,
		"income", update.Income != nil,
		"expenses", update.Expenses != nil,
		"savings", update.Savings != nil)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventProfileUpdated, email, -1, nil, saved.Income))
	return saved, nil
}

// validateUpdate range-checks every provided value and returns the expense
// map with normalized keys.
func (s *ProfileService) validateUpdate(update core.ProfileUpdate) (map[string]float64, error) {
	if update.Income != nil {
		if err := core.CheckNonNegative("income", *update.Income); err != nil {
			return nil, err
		}
	}
	if update.Savings != nil {
		sv := update.Savings
		for field, v := range map[string]float64{
			"savings.currentAmount": sv.CurrentAmount,
			"savings.targetAmount":  sv.TargetAmount,
			"savings.monthlyGoal":   sv.MonthlyGoal,
		} {
			if err := core.CheckNonNegative(field, v); err != nil {
				return nil, err
			}
		}
	}
	if update.Expenses == nil {
		return nil, nil
	}
	expenses := make(map[string]float64, len(update.Expenses))
	for k, v := range update.Expenses {
		name, err := s.engine.CheckCategory(k)
		if err != nil {
			return nil, err
		}
		if err := core.CheckNonNegative("expenses."+name, v); err != nil {
			return nil, err
		}
		expenses[name] = v
	}
	return expenses, nil
}

// AddTransaction applies in to an existing profile and persists it.
func (s *ProfileService) AddTransaction(ctx context.Context, email string, in core.EntryInput) (*core.Profile, error) {
	if err := requireEmail(email); err != nil {
		return nil, err
	}
	p, err := s.store.Get(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	entry, err := s.engine.Apply(p, in)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now().UTC()

	saved, err := s.store.Save(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	index := len(saved.Transactions) - 1
	s.changes.LogLedgerChange(ctx, log.OpApply, email, index, string(entry.Type), entry.CategoryName(), entry.Amount)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventTransactionAdded, email, index, &entry, saved.Income))
	return saved, nil
}

// RemoveTransaction retracts the entry at index from an existing profile.
// A missing profile is reported before a bad index.
func (s *ProfileService) RemoveTransaction(ctx context.Context, email string, index int) (*core.Profile, error) {
	if err := requireEmail(email); err != nil {
		return nil, err
	}
	p, err := s.store.Get(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	entry, err := s.engine.Retract(p, index)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now().UTC()

	saved, err := s.store.Save(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	s.changes.LogLedgerChange(ctx, log.OpRetract, email, index, string(entry.Type), entry.CategoryName(), entry.Amount)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventTransactionRemoved, email, index, &entry, saved.Income))
	return saved, nil
}

// Ready reports whether the store answers.
func (s *ProfileService) Ready(ctx context.Context) error {
	if p, ok := s.store.(storage.Pinger); ok {
		return p.Ping(ctx)
	}
	_, err := s.store.Get(ctx, "readiness@probe")
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

// publish never fails the caller; the change is already persisted.
func (s *ProfileService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping ledger event", log.FieldEvent, ev.Event)
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEvent, ev.Event,
			log.FieldEmail, ev.Email,
			log.FieldError, err)
	}
}
