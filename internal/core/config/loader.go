package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/Aurracloud/agentic-x402/internal/core/token"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills unset fields with their defaults.
func (c *AppConfig) ApplyDefaults() {
	if c.Watcher.PollIntervalMs <= 0 {
		c.Watcher.PollIntervalMs = 30000
	}
	if c.Watcher.SampleConcurrency <= 0 {
		c.Watcher.SampleConcurrency = 4
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8402
	}
	if c.Chain.Timeout <= 0 {
		c.Chain.Timeout = 30 * time.Second
	}
	if c.Token.Address == "" {
		c.Token.Address = token.DefaultAddress
		c.Token.Symbol = token.DefaultSymbol
		if c.Token.Decimals == 0 {
			c.Token.Decimals = token.DefaultDecimals
		}
	}
}
