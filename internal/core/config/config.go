package config

import (
	"time"

	"github.com/vietddude/sqllogs/internal/core/domain"
	"github.com/vietddude/sqllogs/internal/indexing/emitter"
	redisclient "github.com/vietddude/sqllogs/internal/infra/redis"
	"github.com/vietddude/sqllogs/internal/infra/tableland"
	"github.com/vietddude/sqllogs/internal/infra/vault"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Logging        LoggingConfig             `yaml:"logging"`
	State          StateConfig               `yaml:"state"`
	Signer         SignerConfig              `yaml:"signer"`
	Vault          vault.Config              `yaml:"vault"`
	Tableland      tableland.Config          `yaml:"tableland"`
	Chains         map[domain.ChainID]string `yaml:"chains"` // display name overrides
	Classification ClassificationConfig      `yaml:"classification"`
	Discord        DiscordConfig             `yaml:"discord"`
	Redis          redisclient.Config        `yaml:"redis"`
	Metrics        MetricsConfig             `yaml:"metrics"`
	// PollInterval is how often the external scheduler runs the bot.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// StateConfig locates the local cursor file.
type StateConfig struct {
	Path string `yaml:"path"`
	// Migrate starts from an empty cursor table instead of the vault snapshot.
	Migrate bool `yaml:"migrate"`
}

// SignerConfig holds the wallet key that signs snapshots.
type SignerConfig struct {
	PrivateKey string `yaml:"private_key"`
}

// ClassificationConfig controls event routing.
type ClassificationConfig struct {
	InternalTables   []string `yaml:"internal_tables"`
	HealthbotPattern string   `yaml:"healthbot_pattern"`
}

// DiscordConfig holds the two webhook destinations.
type DiscordConfig struct {
	Internal      emitter.Webhook `yaml:"internal"`
	External      emitter.Webhook `yaml:"external"`
	Username      string          `yaml:"username"`
	AvatarURL     string          `yaml:"avatar_url"`
	FooterIconURL string          `yaml:"footer_icon_url"`
}

// MetricsConfig holds Pushgateway settings. Empty URL disables pushing.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}
