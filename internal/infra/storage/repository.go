package storage

import (
	"context"
	"time"

	"github.com/Aurracloud/agentic-x402/internal/core/domain"
)

// PaymentJournal is an append-only audit log of detected payments. The
// watcher only ever writes to it; registry state is rebuilt from discovery
// on every start, never from the journal.
type PaymentJournal interface {
	// Record appends a detected payment
	Record(ctx context.Context, event *domain.PaymentEvent) error

	// Recent returns up to limit payments, newest first
	Recent(ctx context.Context, limit int) ([]*domain.PaymentEvent, error)

	// Prune deletes payments detected before the cutoff and returns how
	// many were removed
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Close releases the backing store
	Close() error
}
