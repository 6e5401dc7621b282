package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
feed:
  url: wss://feed.example.com/smart-stream
  mode: 2
credentials:
  auth_file: /etc/feed/AuthTokens.ini
  env_file: /etc/feed/Credentials.env
tokens:
  groups:
    - path: a.csv
      exchange_type: 3
    - path: b.csv
      exchange_type: 4
reconnect:
  base_delay: 5s
  multiplier: 3
  max_attempts: 7
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Feed.URL != "wss://feed.example.com/smart-stream" {
		t.Errorf("Feed.URL = %q, want %q", cfg.Feed.URL, "wss://feed.example.com/smart-stream")
	}
	if cfg.Feed.Mode != 2 {
		t.Errorf("Feed.Mode = %d, want 2", cfg.Feed.Mode)
	}
	if len(cfg.Tokens.Groups) != 2 || cfg.Tokens.Groups[1].ExchangeType != 4 {
		t.Errorf("Tokens.Groups = %+v, want two groups ending with exchange type 4", cfg.Tokens.Groups)
	}
	if cfg.Reconnect.BaseDelay != 5*time.Second {
		t.Errorf("Reconnect.BaseDelay = %v, want 5s", cfg.Reconnect.BaseDelay)
	}
	if cfg.Reconnect.MaxAttempts != 7 {
		t.Errorf("Reconnect.MaxAttempts = %d, want 7", cfg.Reconnect.MaxAttempts)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_EVENTS_PASSWORD", "secret123")

	yaml := `
log:
  postgres:
    host: localhost
    name: events
    user: feed
    password: ${TEST_EVENTS_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Postgres.Password != "secret123" {
		t.Errorf("Log.Postgres.Password = %q, want %q", cfg.Log.Postgres.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "feed:\n  mode: 3\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Feed.URL != DefaultFeedURL {
		t.Errorf("Feed.URL = %q, want default %q", cfg.Feed.URL, DefaultFeedURL)
	}
	if cfg.Reconnect.BaseDelay != DefaultBaseDelay {
		t.Errorf("Reconnect.BaseDelay = %v, want default %v", cfg.Reconnect.BaseDelay, DefaultBaseDelay)
	}
	if cfg.Reconnect.Multiplier != DefaultMultiplier {
		t.Errorf("Reconnect.Multiplier = %v, want default %v", cfg.Reconnect.Multiplier, DefaultMultiplier)
	}
	if cfg.Reconnect.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("Reconnect.MaxAttempts = %d, want default %d", cfg.Reconnect.MaxAttempts, DefaultMaxAttempts)
	}
	if cfg.Heartbeat.PingInterval != DefaultPingInterval {
		t.Errorf("Heartbeat.PingInterval = %v, want default %v", cfg.Heartbeat.PingInterval, DefaultPingInterval)
	}
	if cfg.Tokens.ChunkSize != DefaultChunkSize {
		t.Errorf("Tokens.ChunkSize = %d, want default %d", cfg.Tokens.ChunkSize, DefaultChunkSize)
	}
	if len(cfg.Tokens.Groups) != 2 || cfg.Tokens.Groups[0].ExchangeType != 3 {
		t.Errorf("Tokens.Groups = %+v, want default index group first", cfg.Tokens.Groups)
	}
	if cfg.Log.File != DefaultLogFile {
		t.Errorf("Log.File = %q, want default %q", cfg.Log.File, DefaultLogFile)
	}
	if cfg.Log.Postgres.Port != 0 {
		t.Errorf("Log.Postgres.Port = %d, want 0 when postgres is disabled", cfg.Log.Postgres.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadWithDefaults_StaleTimeoutDisabled(t *testing.T) {
	path := writeTempFile(t, "heartbeat:\n  stale_timeout: -1s\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}
	if cfg.Heartbeat.StaleTimeout != -time.Second {
		t.Errorf("Heartbeat.StaleTimeout = %v, want -1s to survive defaults", cfg.Heartbeat.StaleTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("negative stale_timeout should validate: %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeTempFile(t, "reconect:\n  max_attempts: 9\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load accepted a misspelt section")
	}
	if !strings.Contains(err.Error(), "reconect") {
		t.Errorf("error %q does not name the unknown key", err)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := LoadAndValidate(writeTempFile(t, ""))
	if err != nil {
		t.Fatalf("LoadAndValidate on empty file: %v", err)
	}
	if cfg.Feed.URL != DefaultFeedURL {
		t.Errorf("Feed.URL = %q, want default", cfg.Feed.URL)
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, found, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault on missing file: %v", err)
	}
	if found {
		t.Error("found = true for a missing file")
	}
	if cfg.Reconnect.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("Reconnect.MaxAttempts = %d, want default %d", cfg.Reconnect.MaxAttempts, DefaultMaxAttempts)
	}

	cfg, found, err = LoadOrDefault(writeTempFile(t, "reconnect:\n  max_attempts: 2\n"))
	if err != nil || !found {
		t.Fatalf("LoadOrDefault = (found %v, err %v), want found", found, err)
	}
	if cfg.Reconnect.MaxAttempts != 2 {
		t.Errorf("Reconnect.MaxAttempts = %d, want 2", cfg.Reconnect.MaxAttempts)
	}

	_, _, err = LoadOrDefault(writeTempFile(t, "reconnect:\n  multiplier: 0.5\n"))
	if err == nil {
		t.Error("LoadOrDefault ignored an invalid existing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *StreamerConfig)
		wantErr string
	}{
		{
			name:    "bad url scheme",
			mutate:  func(c *StreamerConfig) { c.Feed.URL = "https://example.com" },
			wantErr: `feed.url must be a ws:// or wss:// URL, got "https://example.com"`,
		},
		{
			name:    "missing token path",
			mutate:  func(c *StreamerConfig) { c.Tokens.Groups = []TokenGroupConfig{{ExchangeType: 1}} },
			wantErr: "tokens.groups[0].path is required",
		},
		{
			name:    "chunk size above protocol limit",
			mutate:  func(c *StreamerConfig) { c.Tokens.ChunkSize = 250 },
			wantErr: "tokens.chunk_size must be between 1 and 100, got 250",
		},
		{
			name:    "multiplier below one",
			mutate:  func(c *StreamerConfig) { c.Reconnect.Multiplier = 0.5 },
			wantErr: "reconnect.multiplier must be >= 1, got 0.5",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *StreamerConfig) { c.Log.Level = "trace" },
			wantErr: `log.level "trace" is not one of debug, info, warn, error`,
		},
		{
			name: "postgres min_conns exceeds max_conns",
			mutate: func(c *StreamerConfig) {
				c.Log.Postgres = PostgresConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 2, MinConns: 5}
			},
			wantErr: "log.postgres.min_conns (5) cannot exceed max_conns (2)",
		},
		{
			name: "metrics port out of range",
			mutate: func(c *StreamerConfig) {
				c.Metrics.Enabled = true
				c.Metrics.Port = 70000
			},
			wantErr: "metrics.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "valid config",
			mutate:  func(c *StreamerConfig) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("DEBUG")
	if err != nil {
		t.Fatalf("ParseLevel failed: %v", err)
	}
	if level != slog.LevelDebug {
		t.Errorf("ParseLevel(DEBUG) = %v, want %v", level, slog.LevelDebug)
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
