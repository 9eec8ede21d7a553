package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
backend:
  base_url: "${RENTDAPP_TEST_BACKEND}/"
database:
  path: "test.db"
payment:
  poll_interval: 500ms
api:
  auth:
    api_keys:
      - key: "k1"
        name: "ui"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	t.Setenv("RENTDAPP_TEST_BACKEND", "http://backend:8080/api")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Backend.BaseURL != "http://backend:8080/api" {
		t.Errorf("expected expanded base url without trailing slash, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Payment.PollInterval != 500*time.Millisecond {
		t.Errorf("expected poll interval 500ms, got %s", cfg.Payment.PollInterval)
	}
	if len(cfg.API.Auth.APIKeys) != 1 || cfg.API.Auth.APIKeys[0].Name != "ui" {
		t.Errorf("expected 1 api key named ui")
	}
	if cfg.Database.Backup.Interval != 24*time.Hour || cfg.Database.Backup.StoragePath != "data/backups" {
		t.Errorf("unexpected backup defaults: %+v", cfg.Database.Backup)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		c := Config{}
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "relative backend url", mutate: func(c *Config) { c.Backend.BaseURL = "/api" }, wantErr: true},
		{name: "decimal chain id", mutate: func(c *Config) { c.Blockchain.ChainID = "1337" }, wantErr: true},
		{name: "bad escrow address", mutate: func(c *Config) { c.Blockchain.EscrowAddress = "0x123" }, wantErr: true},
		{
			name:   "good escrow address",
			mutate: func(c *Config) { c.Blockchain.EscrowAddress = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed" },
		},
		{name: "telegram without token", mutate: func(c *Config) { c.Telegram.Enabled = true }, wantErr: true},
		{name: "amqp without url", mutate: func(c *Config) { c.AMQP.Enabled = true }, wantErr: true},
		{name: "negative eth price", mutate: func(c *Config) { c.Payment.EthPriceEUR = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.Backend.BaseURL != "http://localhost:8080/api" {
		t.Errorf("expected default backend url, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Blockchain.ChainID != "0x539" {
		t.Errorf("expected default chain id 0x539, got %s", cfg.Blockchain.ChainID)
	}
	if cfg.Payment.CloseDelay != 2*time.Second {
		t.Errorf("expected default close delay 2s, got %s", cfg.Payment.CloseDelay)
	}
	if cfg.Payment.EthPriceEUR != 2000 {
		t.Errorf("expected default eth price 2000, got %v", cfg.Payment.EthPriceEUR)
	}
	if cfg.API.GRPC.Port != 8091 {
		t.Errorf("expected default gRPC port 8091, got %d", cfg.API.GRPC.Port)
	}
}

func TestValidateAPIKeys(t *testing.T) {
	tests := []struct {
		name    string
		keys    []APIClientKey
		wantErr bool
	}{
		{name: "Valid keys", keys: []APIClientKey{{Key: "a", Name: "one"}, {Key: "b", Name: "two"}}},
		{name: "Duplicate key", keys: []APIClientKey{{Key: "a", Name: "one"}, {Key: "a", Name: "two"}}, wantErr: true},
		{name: "Empty key", keys: []APIClientKey{{Name: "one"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKeys(tt.keys)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPIKeys() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
