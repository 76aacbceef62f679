package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aurracloud/agentic-x402/internal/core/domain"
	"github.com/Aurracloud/agentic-x402/internal/core/registry"
	"github.com/Aurracloud/agentic-x402/internal/core/token"
	"github.com/Aurracloud/agentic-x402/internal/infra/storage"
	"github.com/Aurracloud/agentic-x402/internal/metrics"
	"github.com/Aurracloud/agentic-x402/internal/notify"
)

// Discoverer lists the routers currently linked to the watched wallet.
type Discoverer interface {
	Discover(ctx context.Context) ([]domain.RouterLink, error)
}

// Config holds watcher behaviour settings.
type Config struct {
	PollInterval time.Duration
	Decimals     int
}

// Watcher drives the recurring discover-then-sample cycle. The first cycle
// after Start only seeds baseline balances; its detections are suppressed.
// At most one cycle is in flight at a time: a timer fire that lands while a
// cycle is still running is dropped, not queued.
type Watcher struct {
	cfg        Config
	registry   *registry.Registry
	sampler    *Sampler
	discoverer Discoverer // nil = discovery disabled
	notifier   notify.Notifier
	journal    storage.PaymentJournal
	log        *slog.Logger

	running          atomic.Bool
	sampling         atomic.Bool
	seeded           atomic.Bool
	paymentsDetected atomic.Int64

	mu         sync.Mutex
	lastPollAt time.Time
	stop       chan struct{}
	done       chan struct{}
}

// New creates a watcher. The discoverer may be nil, in which case the
// registry only grows through Track.
func New(
	cfg Config,
	reg *registry.Registry,
	sampler *Sampler,
	discoverer Discoverer,
	notifier notify.Notifier,
	journal storage.PaymentJournal,
) *Watcher {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &Watcher{
		cfg:        cfg,
		registry:   reg,
		sampler:    sampler,
		discoverer: discoverer,
		notifier:   notifier,
		journal:    journal,
		log:        slog.Default().With("component", "watch"),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Track adds a router to the registry outside of discovery.
func (w *Watcher) Track(address, label string) {
	if w.registry.Upsert(address, label) {
		w.log.Info("tracking new router", "router", label, "address", address)
	}
}

// Start arms the poll timer and runs the seeding cycle synchronously. The
// timer is armed first so that running status reflects liveness even if the
// seeding cycle fails entirely. A stopped watcher may be started again; each
// start gets fresh stop/done channels so the previous run's loop cannot
// interfere with the new one.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if !w.running.CompareAndSwap(false, true) {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	w.stop = stop
	w.done = done
	w.mu.Unlock()

	go w.loop(ctx, stop, done)

	w.log.Info("watcher starting",
		"pollInterval", w.cfg.PollInterval,
		"discovery", w.discoverer != nil,
	)
	w.runCycle(ctx)
	return nil
}

// Stop disarms the timer. Idempotent; a cycle already in flight is allowed
// to finish.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.running.CompareAndSwap(true, false) {
		close(w.stop)
	}
	w.mu.Unlock()
	return nil
}

// Done is closed once the current run's poll loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done
}

func (w *Watcher) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.running.Store(false)
			return
		case <-stop:
			return
		case <-ticker.C:
			w.runCycle(ctx)
		}
	}
}

// runCycle executes one discovery + sampling pass. The re-entrancy gate is
// released on every exit path, including a panic, which is caught here and
// never allowed to kill the process.
func (w *Watcher) runCycle(ctx context.Context) {
	if !w.sampling.CompareAndSwap(false, true) {
		w.log.Debug("poll tick dropped, cycle still in flight")
		metrics.CyclesSkipped.Inc()
		return
	}
	defer w.sampling.Store(false)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("watch cycle failed", "panic", r)
		}
		w.seeded.Store(true)

		w.mu.Lock()
		w.lastPollAt = time.Now()
		w.mu.Unlock()

		metrics.CyclesTotal.Inc()
		metrics.CycleDuration.Observe(time.Since(start).Seconds())
		metrics.TrackedRouters.Set(float64(w.registry.Len()))
	}()

	w.discover(ctx)

	events := w.sampler.SampleAll(ctx, w.registry)
	if !w.seeded.Load() {
		if len(events) > 0 {
			w.log.Debug("baseline cycle, suppressing detections", "count", len(events))
		}
		return
	}

	for _, event := range events {
		w.handlePayment(ctx, event)
	}
}

func (w *Watcher) discover(ctx context.Context) {
	if w.discoverer == nil {
		return
	}

	links, err := w.discoverer.Discover(ctx)
	if err != nil {
		w.log.Warn("router discovery failed", "error", err)
		metrics.DiscoveryFailures.Inc()
		return
	}

	for _, link := range links {
		w.Track(link.Address, link.Name)
	}
}

// handlePayment counts, journals and delivers one detected increase.
// Detection and delivery are independent: a failed journal write or hook
// POST never undoes the detection.
func (w *Watcher) handlePayment(ctx context.Context, event *domain.PaymentEvent) {
	w.paymentsDetected.Add(1)
	metrics.PaymentsDetected.Inc()

	w.log.Info("payment detected",
		"router", event.Label,
		"increase", token.FormatUnits(event.Increase, w.cfg.Decimals),
		"balance", token.FormatUnits(event.Current, w.cfg.Decimals),
	)

	if w.journal != nil {
		if err := w.journal.Record(ctx, event); err != nil {
			w.log.Warn("failed to journal payment", "router", event.Label, "error", err)
			metrics.JournalFailures.Inc()
		}
	}

	if err := w.notifier.Notify(ctx, event); err != nil {
		metrics.NotifyFailures.Inc()
	}
}

// RouterStatus is one registry entry in the status snapshot.
type RouterStatus struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Balance     string `json:"balance"`
	LastChecked string `json:"lastChecked"`
}

// Status is the watcher's public status snapshot.
type Status struct {
	Running          bool           `json:"running"`
	PollIntervalMs   int64          `json:"pollIntervalMs"`
	TrackedRouters   []RouterStatus `json:"trackedRouters"`
	PaymentsDetected int64          `json:"paymentsDetected"`
	LastPollAt       *string        `json:"lastPollAt"`
}

// Status returns a point-in-time snapshot of the watcher. It has no side
// effects and is callable in any state.
func (w *Watcher) Status() Status {
	routers := w.registry.All()
	tracked := make([]RouterStatus, 0, len(routers))
	for _, r := range routers {
		balance, checkedAt := r.Snapshot()
		lastChecked := "never"
		if !checkedAt.IsZero() {
			lastChecked = domain.Timestamp(checkedAt)
		}
		tracked = append(tracked, RouterStatus{
			Address:     r.Address,
			Name:        r.Label,
			Balance:     token.FormatUnits(balance, w.cfg.Decimals),
			LastChecked: lastChecked,
		})
	}

	status := Status{
		Running:          w.running.Load(),
		PollIntervalMs:   w.cfg.PollInterval.Milliseconds(),
		TrackedRouters:   tracked,
		PaymentsDetected: w.paymentsDetected.Load(),
	}

	w.mu.Lock()
	if !w.lastPollAt.IsZero() {
		ts := domain.Timestamp(w.lastPollAt)
		status.LastPollAt = &ts
	}
	w.mu.Unlock()

	return status
}
