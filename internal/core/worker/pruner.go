package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/Aurracloud/agentic-x402/internal/infra/storage"
)

// Pruner deletes old payment journal entries based on retention policy.
type Pruner struct {
	journal   storage.PaymentJournal
	retention time.Duration
	log       *slog.Logger
}

// NewPruner creates a new Pruner worker.
func NewPruner(journal storage.PaymentJournal, retention time.Duration) *Pruner {
	return &Pruner{
		journal:   journal,
		retention: retention,
		log:       slog.Default().With("component", "pruner"),
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Check interval: 10% of the retention period, clamped to [1m, 1h]
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().Add(-p.retention)

	removed, err := p.journal.Prune(ctx, cutoff)
	if err != nil {
		p.log.Warn("failed to prune payment journal", "error", err)
		return
	}
	if removed > 0 {
		p.log.Info("pruned payment journal", "removed", removed, "cutoff", cutoff)
	}
}
