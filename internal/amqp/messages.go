package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// Ledger event names.
const (
	EventTransactionAdded   = "transaction.added"
	EventTransactionRemoved = "transaction.removed"
	EventProfileUpdated     = "profile.updated"
)

// LedgerEvent describes one persisted change to a profile. Entry is nil for
// profile.updated. Index is the position the entry occupied (added: the new
// last position; removed: the position it was removed from) and -1 otherwise.
type LedgerEvent struct {
	Event      string            `json:"event"`
	Email      string            `json:"email"`
	Index      int               `json:"index"`
	Entry      *core.LedgerEntry `json:"entry,omitempty"`
	Income     float64           `json:"income"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// NewLedgerEvent builds an event stamped with the current time.
func NewLedgerEvent(event, email string, index int, entry *core.LedgerEntry, income float64) *LedgerEvent {
	return &LedgerEvent{
		Event:      event,
		Email:      email,
		Index:      index,
		Entry:      entry,
		Income:     income,
		OccurredAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and checks a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Event {
	case EventTransactionAdded, EventTransactionRemoved, EventProfileUpdated:
	default:
		return nil, fmt.Errorf("unknown ledger event %q", msg.Event)
	}
	if msg.Email == "" {
		return nil, fmt.Errorf("ledger event %s without email", msg.Event)
	}
	return &msg, nil
}
