// Package storage defines the financial profile store port shared by every
// persistence backend.
package storage

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/core"
)

var (
	// ErrNotFound is returned by Get when no profile exists for the email.
	ErrNotFound = core.ErrNotFound
	// ErrUnavailable wraps every backend failure other than not-found.
	ErrUnavailable = errors.New("profile store unavailable")
)

// Store holds one profile document per email.
type Store interface {
	// Get returns the stored profile or ErrNotFound.
	Get(ctx context.Context, email string) (*core.Profile, error)
	// CreateDefault inserts the default snapshot when no profile exists and
	// returns whatever profile is stored afterwards.
	CreateDefault(ctx context.Context, email string) (*core.Profile, error)
	// Save replaces the whole document for p.Email.
	Save(ctx context.Context, p *core.Profile) (*core.Profile, error)
	Close() error
}

// Pinger is implemented by stores that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Unavailable wraps err as a backend failure of op.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
