package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/sqllogs/internal/core/cursor"
	"github.com/vietddude/sqllogs/internal/infra/tableland"
	"github.com/vietddude/sqllogs/internal/infra/vault"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, expanding environment variables first.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.State.Path == "" {
		cfg.State.Path = "data/state.db"
	}
	if cfg.Vault.BaseURL == "" {
		cfg.Vault.BaseURL = vault.BaseURLFor(cfg.Vault.Env)
	}
	if cfg.Vault.CacheTTLMinutes == 0 {
		cfg.Vault.CacheTTLMinutes = 30
	}
	if cfg.Vault.Timeout == 0 {
		cfg.Vault.Timeout = 60 * time.Second
	}
	if len(cfg.Tableland.Networks) == 0 {
		cfg.Tableland.Networks = tableland.DefaultNetworks()
	}
	if cfg.Tableland.Timeout == 0 {
		cfg.Tableland.Timeout = 30 * time.Second
	}
	if cfg.Classification.HealthbotPattern == "" {
		cfg.Classification.HealthbotPattern = cursor.DefaultHealthbotPattern
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "sqllogs"
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 15 * time.Minute
	}
}

// Validate checks required settings. A vault cache shorter than two poll
// intervals is allowed but logged, since the next run may find it expired.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Signer.PrivateKey == "" {
		errs = append(errs, errors.New("signer.private_key is required"))
	}
	if c.Vault.Name == "" {
		errs = append(errs, errors.New("vault.name is required"))
	}
	for i, n := range c.Tableland.Networks {
		if n.BaseURL == "" {
			errs = append(errs, fmt.Errorf("tableland.networks[%d].base_url is required", i))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	cache := time.Duration(c.Vault.CacheTTLMinutes) * time.Minute
	if cache < 2*c.PollInterval {
		slog.Warn("Vault cache shorter than two poll intervals",
			"cache", cache, "poll_interval", c.PollInterval)
	}
	return nil
}
