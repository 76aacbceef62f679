package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/Aurracloud/agentic-x402/internal/core/config"
	"github.com/Aurracloud/agentic-x402/internal/core/registry"
	"github.com/Aurracloud/agentic-x402/internal/core/token"
	"github.com/Aurracloud/agentic-x402/internal/core/worker"
	"github.com/Aurracloud/agentic-x402/internal/discovery"
	"github.com/Aurracloud/agentic-x402/internal/infra/chain/evm"
	redisclient "github.com/Aurracloud/agentic-x402/internal/infra/redis"
	"github.com/Aurracloud/agentic-x402/internal/infra/storage"
	"github.com/Aurracloud/agentic-x402/internal/infra/storage/memory"
	"github.com/Aurracloud/agentic-x402/internal/infra/storage/postgres"
	"github.com/Aurracloud/agentic-x402/internal/notify"
	"github.com/Aurracloud/agentic-x402/internal/server"
	"github.com/Aurracloud/agentic-x402/internal/watch"
)

// App is the composition root: it wires the chain reader, journal,
// discovery, notifier, watcher and ops server, and manages their lifecycle.
type App struct {
	cfg     *config.AppConfig
	watcher *watch.Watcher
	server  *server.Server
	pruner  *worker.Pruner
	reader  *evm.Reader
	journal storage.PaymentJournal
	db      *postgres.DB
	log     *slog.Logger
}

// New creates an App with all dependencies initialized.
func New(cfg *config.AppConfig) (*App, error) {
	reader, err := evm.NewReader(evm.Config{
		RPCURLs: cfg.Chain.RPCURLs,
		Timeout: cfg.Chain.Timeout,
	}, cfg.Token.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to init chain reader: %w", err)
	}

	decimals := cfg.Token.Decimals
	if decimals <= 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		decimals, err = reader.Decimals(ctx)
		cancel()
		if err != nil {
			slog.Warn("Failed to read token decimals, using default",
				"error", err, "default", token.DefaultDecimals)
			decimals = token.DefaultDecimals
		} else {
			slog.Info("Token decimals read from contract", "decimals", decimals)
		}
	}

	journal, db, err := newJournal(cfg)
	if err != nil {
		reader.Close()
		return nil, err
	}

	var discoverer watch.Discoverer
	if cfg.Directory.BaseURL != "" && cfg.Wallet.Address != "" {
		discoverer = discovery.NewClient(cfg.Directory.BaseURL, cfg.Wallet.Address)
	} else {
		slog.Warn("Discovery disabled: directory base URL or wallet address not configured")
	}

	var notifier notify.Notifier = notify.NoopNotifier{}
	if cfg.Gateway.Port > 0 && cfg.Watcher.NotifyEnabled() {
		notifier = notify.NewGatewayNotifier(notify.HookURL(cfg.Gateway.Port), decimals)
	} else {
		slog.Info("Payment notifications disabled",
			"gatewayPort", cfg.Gateway.Port,
			"notifyOnPayment", cfg.Watcher.NotifyEnabled(),
		)
	}

	reg := registry.New()
	sampler := watch.NewSampler(reader, decimals, cfg.Watcher.SampleConcurrency)
	watcher := watch.New(
		watch.Config{PollInterval: cfg.Watcher.PollInterval(), Decimals: decimals},
		reg, sampler, discoverer, notifier, journal,
	)

	var pruner *worker.Pruner
	if cfg.Journal.Retention > 0 {
		pruner = worker.NewPruner(journal, cfg.Journal.Retention)
	}

	return &App{
		cfg:     cfg,
		watcher: watcher,
		server:  server.NewServer(watcher, journal, cfg.Server.Port, decimals),
		pruner:  pruner,
		reader:  reader,
		journal: journal,
		db:      db,
		log:     slog.Default(),
	}, nil
}

// newJournal selects the journal backend: postgres when a database URL is
// configured, redis when a redis URL is, otherwise an in-memory ring.
func newJournal(cfg *config.AppConfig) (storage.PaymentJournal, *postgres.DB, error) {
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init db: %w", err)
		}

		// Run migrations; goose needs the bare *sql.DB that sqlx wraps
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		slog.Info("Using PostgreSQL payment journal")
		return postgres.NewPaymentRepo(db), db, nil
	}

	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init redis: %w", err)
		}
		slog.Info("Using Redis payment journal")
		return redisclient.NewJournal(client), nil, nil
	}

	slog.Info("Using in-memory payment journal")
	return memory.NewJournal(0), nil, nil
}

// Start starts the ops server, background workers and the watcher. The
// watcher's seeding cycle runs synchronously before Start returns.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Ops server failed", "error", err)
		}
	}()

	if a.pruner != nil {
		go a.pruner.Start(ctx)
	}

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	return a.watcher.Start(ctx)
}

// Stop stops the watcher, waits for an in-flight cycle to drain within the
// context deadline, then shuts down the server and closes the backends.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping watcher...")

	_ = a.watcher.Stop()
	select {
	case <-a.watcher.Done():
	case <-ctx.Done():
		a.log.Warn("Timed out waiting for the poll loop to drain")
	}

	if err := a.server.Stop(ctx); err != nil {
		a.log.Warn("Failed to stop ops server", "error", err)
	}

	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Warn("Failed to close payment journal", "error", err)
		}
	}

	a.reader.Close()
	return nil
}

// Status returns the watcher's status snapshot.
func (a *App) Status() watch.Status {
	return a.watcher.Status()
}
