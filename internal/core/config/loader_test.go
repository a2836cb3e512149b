package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/sqllogs/internal/infra/tableland"
	"github.com/vietddude/sqllogs/internal/infra/vault"
)

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("TEST_PRIVATE_KEY", "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")
	t.Setenv("TEST_INTERNAL_TOKEN", "secret")

	configContent := `
signer:
  private_key: ${TEST_PRIVATE_KEY}
vault:
  name: bot.state
discord:
  internal:
    id: "123"
    token: ${TEST_INTERNAL_TOKEN}
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Signer.PrivateKey != "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d" {
		t.Errorf("Expected private key from env, got %s", cfg.Signer.PrivateKey)
	}
	if cfg.Discord.Internal.Token != "secret" {
		t.Errorf("Expected token secret, got %s", cfg.Discord.Internal.Token)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`
signer:
  private_key: abc
vault:
  name: bot.state
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.State.Path != "data/state.db" {
		t.Errorf("Expected default state path, got %s", cfg.State.Path)
	}
	if cfg.Vault.BaseURL != vault.DefaultBaseURL {
		t.Errorf("Expected default vault url, got %s", cfg.Vault.BaseURL)
	}
	if cfg.Vault.CacheTTLMinutes != 30 {
		t.Errorf("Expected 30 minute cache, got %d", cfg.Vault.CacheTTLMinutes)
	}
	if cfg.PollInterval != 15*time.Minute {
		t.Errorf("Expected 15m poll interval, got %s", cfg.PollInterval)
	}
	if len(cfg.Tableland.Networks) != 2 || cfg.Tableland.Networks[1].BaseURL != tableland.MainnetsURL {
		t.Errorf("Expected default networks, got %+v", cfg.Tableland.Networks)
	}
	if cfg.Classification.HealthbotPattern == "" {
		t.Error("Expected default healthbot pattern")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected info level, got %s", cfg.Logging.Level)
	}
}

func TestParse_DevVault(t *testing.T) {
	cfg, err := Parse([]byte(`
signer:
  private_key: abc
vault:
  name: bot.state
  env: dev
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Vault.BaseURL != vault.DevBaseURL {
		t.Errorf("Expected dev vault URL, got %s", cfg.Vault.BaseURL)
	}
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse([]byte(`
signer:
  private_key: abc
vault:
  name: bot.state
  cache_ttl_minutes: 60
state:
  path: /tmp/x/state.db
  migrate: true
chains:
  31337: local
poll_interval: 5m
tableland:
  timeout: 10s
  networks:
    - name: local
      base_url: http://localhost:8080/api/v1
      exclude_chain_ids: [5]
classification:
  internal_tables: [healthbot_31337_1, pilot_sessions]
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if !cfg.State.Migrate || cfg.State.Path != "/tmp/x/state.db" {
		t.Errorf("Unexpected state config %+v", cfg.State)
	}
	if cfg.Chains[31337] != "local" {
		t.Errorf("Expected chain override, got %v", cfg.Chains)
	}
	if cfg.PollInterval != 5*time.Minute || cfg.Tableland.Timeout != 10*time.Second {
		t.Errorf("Unexpected durations %s %s", cfg.PollInterval, cfg.Tableland.Timeout)
	}
	if len(cfg.Tableland.Networks) != 1 || cfg.Tableland.Networks[0].ExcludeChainIDs[0] != 5 {
		t.Errorf("Unexpected networks %+v", cfg.Tableland.Networks)
	}
	if len(cfg.Classification.InternalTables) != 2 {
		t.Errorf("Unexpected internal tables %v", cfg.Classification.InternalTables)
	}
}

func TestParse_Validation(t *testing.T) {
	_, err := Parse([]byte(`logging: {level: debug}`))
	if err == nil {
		t.Fatal("Expected validation error")
	}
	for _, want := range []string{"signer.private_key", "vault.name"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in error, got %v", want, err)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Expected error for missing file")
	}
}
