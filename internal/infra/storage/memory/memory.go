package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Aurracloud/agentic-x402/internal/core/domain"
)

// DefaultCapacity is the journal size used when none is configured.
const DefaultCapacity = 256

// Journal is a fixed-capacity in-memory payment journal. Once full, the
// oldest entries are dropped to make room.
type Journal struct {
	mu       sync.RWMutex
	capacity int
	events   []*domain.PaymentEvent
}

// NewJournal creates an in-memory journal. A capacity <= 0 falls back to
// DefaultCapacity.
func NewJournal(capacity int) *Journal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Journal{capacity: capacity}
}

// Record appends a payment, evicting the oldest entry when full.
func (j *Journal) Record(ctx context.Context, event *domain.PaymentEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event)
	if len(j.events) > j.capacity {
		j.events = append(j.events[:0], j.events[len(j.events)-j.capacity:]...)
	}
	return nil
}

// Recent returns up to limit payments, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]*domain.PaymentEvent, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if limit <= 0 || limit > len(j.events) {
		limit = len(j.events)
	}
	out := make([]*domain.PaymentEvent, 0, limit)
	for i := len(j.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, j.events[i])
	}
	return out, nil
}

// Prune drops payments detected before the cutoff.
func (j *Journal) Prune(ctx context.Context, before time.Time) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	kept := j.events[:0]
	for _, ev := range j.events {
		if !ev.DetectedAt.Before(before) {
			kept = append(kept, ev)
		}
	}
	removed := int64(len(j.events) - len(kept))
	j.events = kept
	return removed, nil
}

// Close is a no-op for the in-memory journal.
func (j *Journal) Close() error { return nil }
