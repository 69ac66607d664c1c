// Package memory is an in-process profile store used by default and by tests.
package memory

import (
	"context"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Store keeps deep copies of profiles so callers never share state with it.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]*core.Profile
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		profiles: make(map[string]*core.Profile),
		now:      time.Now,
	}
}

func (s *Store) Get(_ context.Context, email string) (*core.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *Store) CreateDefault(_ context.Context, email string) (*core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[email]; ok {
		return p.Clone(), nil
	}
	p := core.DefaultProfile(email, s.now())
	s.profiles[email] = p
	return p.Clone(), nil
}

func (s *Store) Save(_ context.Context, p *core.Profile) (*core.Profile, error) {
	c := p.Clone()
	c.Normalize()
	s.mu.Lock()
	s.profiles[c.Email] = c
	s.mu.Unlock()
	return c.Clone(), nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Len reports how many profiles are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}
