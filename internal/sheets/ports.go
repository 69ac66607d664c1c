package sheets

import (
	"context"
	"strconv"
	"time"

	"fintrack/internal/amqp"
)

// Ports for outbound adapters.
type (
	// LedgerWriter appends one mirrored ledger event.
	LedgerWriter interface {
		AppendLedgerRow(ctx context.Context, row LedgerRow) (rowRef string, err error)
	}

	// LedgerReader returns mirrored rows for one email, oldest first.
	LedgerReader interface {
		ListLedgerRows(ctx context.Context, email string) ([]LedgerRow, error)
	}
)

// Header is the first row of a ledger sheet.
var Header = []any{"occurredAt", "email", "event", "index", "date", "type", "category", "amount"}

// LedgerRow is the flattened form of a ledger event. Entry columns are blank
// for events without an entry.
type LedgerRow struct {
	OccurredAt time.Time
	Email      string
	Event      string
	Index      int
	Date       string
	Type       string
	Category   string
	Amount     *float64
}

// RowFromEvent flattens ev.
func RowFromEvent(ev *amqp.LedgerEvent) LedgerRow {
	row := LedgerRow{
		OccurredAt: ev.OccurredAt.UTC(),
		Email:      ev.Email,
		Event:      ev.Event,
		Index:      ev.Index,
	}
	if e := ev.Entry; e != nil {
		row.Date = e.Date.UTC().Format("2006-01-02")
		row.Type = string(e.Type)
		row.Category = e.CategoryName()
		amt := e.Amount
		row.Amount = &amt
	}
	return row
}

// Values renders the row in Header order.
func (r LedgerRow) Values() []any {
	index := ""
	if r.Index >= 0 {
		index = strconv.Itoa(r.Index)
	}
	var amount any = ""
	if r.Amount != nil {
		amount = *r.Amount
	}
	return []any{
		r.OccurredAt.Format(time.RFC3339),
		r.Email,
		r.Event,
		index,
		r.Date,
		r.Type,
		r.Category,
		amount,
	}
}
