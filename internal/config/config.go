package config

import "time"

// StreamerConfig is the root configuration for a feed streamer instance.
type StreamerConfig struct {
	Feed        FeedConfig        `yaml:"feed"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Tokens      TokensConfig      `yaml:"tokens"`
	Reconnect   ReconnectConfig   `yaml:"reconnect"`
	Heartbeat   HeartbeatConfig   `yaml:"heartbeat"`
	Log         LogConfig         `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// FeedConfig holds the streaming endpoint settings.
type FeedConfig struct {
	URL              string        `yaml:"url"`
	Mode             int           `yaml:"mode"` // Subscription mode for every chunk (3 = snap quote)
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
}

// CredentialsConfig points at the key=value files produced by the login job.
type CredentialsConfig struct {
	AuthFile string `yaml:"auth_file"` // AuthToken, feedToken
	EnvFile  string `yaml:"env_file"`  // clientcode, API_KEY
}

// TokensConfig lists the token groups in subscription order.
type TokensConfig struct {
	Groups    []TokenGroupConfig `yaml:"groups"`
	ChunkSize int                `yaml:"chunk_size"`
}

// TokenGroupConfig binds a token CSV file to an exchange type.
type TokenGroupConfig struct {
	Path         string `yaml:"path"`
	ExchangeType int    `yaml:"exchange_type"`
}

// ReconnectConfig holds the reconnection backoff policy.
type ReconnectConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay"`
	Multiplier  float64       `yaml:"multiplier"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// HeartbeatConfig holds liveness probe settings.
type HeartbeatConfig struct {
	PingInterval      time.Duration `yaml:"ping_interval"`      // websocket ping control frame
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"` // text "ping" keep-alive
	StaleTimeout      time.Duration `yaml:"stale_timeout"`      // unset means 90s, negative disables
}

// LogConfig holds diagnostic and event log settings.
type LogConfig struct {
	Level         string         `yaml:"level"`
	File          string         `yaml:"file"`
	Source        string         `yaml:"source"`
	QueueCapacity int            `yaml:"queue_capacity"`
	Postgres      PostgresConfig `yaml:"postgres"`
}

// PostgresConfig configures the optional event table destination.
// An empty Host disables it.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
	Table    string `yaml:"table"`
}

// Enabled reports whether the Postgres destination is configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// MetricsConfig holds the status server settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}
