package config

import (
	"time"

	"github.com/Aurracloud/agentic-x402/internal/core/token"
	redisclient "github.com/Aurracloud/agentic-x402/internal/infra/redis"
	"github.com/Aurracloud/agentic-x402/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Watcher   WatcherConfig      `yaml:"watcher"`
	Server    ServerConfig       `yaml:"server"`
	Gateway   GatewayConfig      `yaml:"gateway"`
	Directory DirectoryConfig    `yaml:"directory"`
	Wallet    WalletConfig       `yaml:"wallet"`
	Chain     ChainConfig        `yaml:"chain"`
	Token     token.Config       `yaml:"token"`
	Journal   JournalConfig      `yaml:"journal"`
	Database  postgres.Config    `yaml:"database"`
	Redis     redisclient.Config `yaml:"redis"`
	Logging   LoggingConfig      `yaml:"logging"`
}

// WatcherConfig holds polling behaviour settings.
type WatcherConfig struct {
	PollIntervalMs    int   `yaml:"poll_interval_ms"`
	NotifyOnPayment   *bool `yaml:"notify_on_payment"` // nil = enabled
	SampleConcurrency int   `yaml:"sample_concurrency"`
}

// PollInterval returns the poll interval as a duration.
func (w WatcherConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalMs) * time.Millisecond
}

// NotifyEnabled reports whether payment notifications are enabled. An
// explicit `notify_on_payment: false` survives defaulting.
func (w WatcherConfig) NotifyEnabled() bool {
	return w.NotifyOnPayment == nil || *w.NotifyOnPayment
}

// ServerConfig holds the status/metrics HTTP listener settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// GatewayConfig holds the agent gateway hook settings. Port 0 disables
// payment delivery.
type GatewayConfig struct {
	Port int `yaml:"port"`
}

// DirectoryConfig holds the x402 directory API used for router discovery.
type DirectoryConfig struct {
	BaseURL string `yaml:"base_url"`
}

// WalletConfig identifies the beneficiary wallet whose routers are watched.
type WalletConfig struct {
	Address string `yaml:"address"`
}

// ChainConfig holds EVM RPC settings. Endpoints are tried in order, rotating
// past transport failures.
type ChainConfig struct {
	RPCURLs []string      `yaml:"rpc_urls"`
	Timeout time.Duration `yaml:"timeout"`
}

// JournalConfig holds payment journal retention settings.
type JournalConfig struct {
	Retention time.Duration `yaml:"retention"` // 0 = keep forever
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
