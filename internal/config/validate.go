package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *StreamerConfig) Validate() error {
	if !strings.HasPrefix(c.Feed.URL, "ws://") && !strings.HasPrefix(c.Feed.URL, "wss://") {
		return fmt.Errorf("feed.url must be a ws:// or wss:// URL, got %q", c.Feed.URL)
	}
	if c.Feed.Mode < 1 {
		return errors.New("feed.mode must be >= 1")
	}

	if c.Credentials.AuthFile == "" {
		return errors.New("credentials.auth_file is required")
	}
	if c.Credentials.EnvFile == "" {
		return errors.New("credentials.env_file is required")
	}

	if len(c.Tokens.Groups) == 0 {
		return errors.New("tokens.groups must not be empty")
	}
	for i, g := range c.Tokens.Groups {
		if g.Path == "" {
			return fmt.Errorf("tokens.groups[%d].path is required", i)
		}
		if g.ExchangeType < 1 {
			return fmt.Errorf("tokens.groups[%d].exchange_type must be >= 1", i)
		}
	}
	if c.Tokens.ChunkSize < 1 || c.Tokens.ChunkSize > DefaultChunkSize {
		return fmt.Errorf("tokens.chunk_size must be between 1 and %d, got %d", DefaultChunkSize, c.Tokens.ChunkSize)
	}

	if c.Reconnect.BaseDelay <= 0 {
		return errors.New("reconnect.base_delay must be > 0")
	}
	if c.Reconnect.Multiplier < 1 {
		return fmt.Errorf("reconnect.multiplier must be >= 1, got %g", c.Reconnect.Multiplier)
	}
	if c.Reconnect.MaxAttempts < 1 {
		return errors.New("reconnect.max_attempts must be >= 1")
	}

	if c.Heartbeat.PingInterval <= 0 {
		return errors.New("heartbeat.ping_interval must be > 0")
	}
	if c.Heartbeat.KeepaliveInterval <= 0 {
		return errors.New("heartbeat.keepalive_interval must be > 0")
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.File == "" {
		return errors.New("log.file is required")
	}
	if c.Log.QueueCapacity < 1 {
		return errors.New("log.queue_capacity must be >= 1")
	}
	if c.Log.Postgres.Enabled() {
		if err := c.Log.Postgres.validate("log.postgres"); err != nil {
			return err
		}
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *PostgresConfig) validate(prefix string) error {
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

// ParseLevel maps a log.level string to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level %q is not one of debug, info, warn, error", level)
}
