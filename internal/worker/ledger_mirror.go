package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

const (
	recentCapacity = 4096
	recentTTL      = 24 * time.Hour
)

// LedgerMirror appends every consumed ledger event to a spreadsheet.
type LedgerMirror struct {
	writer sheets.LedgerWriter
	logger *log.Logger

	recent *cache.LRUCache[struct{}]

	mu     sync.Mutex
	synced int64
	skips  int64
}

func NewLedgerMirror(writer sheets.LedgerWriter, logger *log.Logger) *LedgerMirror {
	if logger == nil {
		logger = log.Wrap(slog.Default(), log.ComponentWorker)
	} else {
		logger = logger.WithComponent(log.ComponentWorker)
	}
	return &LedgerMirror{
		writer: writer,
		logger: logger,
		recent: cache.NewLRUCache[struct{}](recentCapacity, recentTTL),
	}
}

// Recent exposes the redelivery cache so its expiry can be scheduled.
func (w *LedgerMirror) Recent() cache.Cleaner {
	return w.recent
}

// HandleLedgerEvent writes one row for ev. A redelivered event that was
// already written by this process is skipped.
func (w *LedgerMirror) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	key := eventKey(ev)
	if w.recent.Contains(key) {
		w.mu.Lock()
		w.skips++
		w.mu.Unlock()
		w.logger.InfoContext(ctx, "Skipping already mirrored event",
			log.FieldEvent, ev.Event,
			log.FieldEmail, ev.Email,
			log.FieldIndex, ev.Index)
		return nil
	}

	start := time.Now()
	ref, err := w.writer.AppendLedgerRow(ctx, sheets.RowFromEvent(ev))
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}
	w.recent.Set(key, struct{}{})
	w.mu.Lock()
	w.synced++
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "Mirrored ledger event",
		log.FieldEvent, ev.Event,
		log.FieldEmail, ev.Email,
		log.FieldIndex, ev.Index,
		"sheets_ref", ref,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// Stats returns the number of rows written and redeliveries skipped.
func (w *LedgerMirror) Stats() (synced, skipped int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.synced, w.skips
}

func eventKey(ev *amqp.LedgerEvent) string {
	id := ""
	if ev.Entry != nil {
		id = ev.Entry.ID
	}
	return fmt.Sprintf("%s|%s|%d|%s|%d", ev.Event, ev.Email, ev.Index, id, ev.OccurredAt.UnixNano())
}
