package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultFeedURL           = "wss://smartapisocket.angelone.in/smart-stream"
	DefaultMode              = 3
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultWriteTimeout      = 5 * time.Second
	DefaultAuthFile          = "config/AuthTokens.ini"
	DefaultEnvFile           = "config/Credentials.env"
	DefaultChunkSize         = 100
	DefaultBaseDelay         = 10 * time.Second
	DefaultMultiplier        = 2.0
	DefaultMaxAttempts       = 5
	DefaultPingInterval      = 10 * time.Second
	DefaultKeepaliveInterval = 30 * time.Second
	DefaultStaleTimeout      = 90 * time.Second
	DefaultLogLevel          = "info"
	DefaultLogFile           = "logs/controller.json"
	DefaultLogSource         = "AO"
	DefaultQueueCapacity     = 1024
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 1
	DefaultEventTable        = "feed_events"
	DefaultMetricsPort       = 9090
	DefaultMetricsPath       = "/metrics"
)

// DefaultTokenGroups mirrors the batch job output: index tokens first, then options.
func DefaultTokenGroups() []TokenGroupConfig {
	return []TokenGroupConfig{
		{Path: "SocketTokens/AMXIDX_Tokens.csv", ExchangeType: 3},
		{Path: "SocketTokens/Tokens.csv", ExchangeType: 4},
	}
}

func (c *StreamerConfig) applyDefaults() {
	// Feed defaults
	if c.Feed.URL == "" {
		c.Feed.URL = DefaultFeedURL
	}
	if c.Feed.Mode == 0 {
		c.Feed.Mode = DefaultMode
	}
	if c.Feed.HandshakeTimeout == 0 {
		c.Feed.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}

	// Credentials defaults
	if c.Credentials.AuthFile == "" {
		c.Credentials.AuthFile = DefaultAuthFile
	}
	if c.Credentials.EnvFile == "" {
		c.Credentials.EnvFile = DefaultEnvFile
	}

	// Tokens defaults
	if len(c.Tokens.Groups) == 0 {
		c.Tokens.Groups = DefaultTokenGroups()
	}
	if c.Tokens.ChunkSize == 0 {
		c.Tokens.ChunkSize = DefaultChunkSize
	}

	// Reconnect defaults
	if c.Reconnect.BaseDelay == 0 {
		c.Reconnect.BaseDelay = DefaultBaseDelay
	}
	if c.Reconnect.Multiplier == 0 {
		c.Reconnect.Multiplier = DefaultMultiplier
	}
	if c.Reconnect.MaxAttempts == 0 {
		c.Reconnect.MaxAttempts = DefaultMaxAttempts
	}

	// Heartbeat defaults
	if c.Heartbeat.PingInterval == 0 {
		c.Heartbeat.PingInterval = DefaultPingInterval
	}
	if c.Heartbeat.KeepaliveInterval == 0 {
		c.Heartbeat.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if c.Heartbeat.StaleTimeout == 0 {
		c.Heartbeat.StaleTimeout = DefaultStaleTimeout
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.File == "" {
		c.Log.File = DefaultLogFile
	}
	if c.Log.Source == "" {
		c.Log.Source = DefaultLogSource
	}
	if c.Log.QueueCapacity == 0 {
		c.Log.QueueCapacity = DefaultQueueCapacity
	}
	if c.Log.Postgres.Enabled() {
		applyDBDefaults(&c.Log.Postgres)
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *PostgresConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
	if db.Table == "" {
		db.Table = DefaultEventTable
	}
}
