package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	ports "fintrack/internal/sheets"
)

// Store keeps mirrored ledger rows in process. Used in development and tests
// when no spreadsheet is configured.
type Store struct {
	mu   sync.Mutex
	rows []ports.LedgerRow
}

var (
	_ ports.LedgerWriter = (*Store)(nil)
	_ ports.LedgerReader = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// AppendLedgerRow stores the row and returns a synthetic row reference.
func (s *Store) AppendLedgerRow(_ context.Context, row ports.LedgerRow) (string, error) {
	if row.Email == "" || row.Event == "" {
		return "", errors.New("ledger row requires email and event")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// ListLedgerRows returns the rows recorded for email.
func (s *Store) ListLedgerRows(_ context.Context, email string) ([]ports.LedgerRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ports.LedgerRow
	for _, r := range s.rows {
		if strings.EqualFold(r.Email, email) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Len returns the number of recorded rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
