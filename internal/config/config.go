package config

import "time"

// AgentConfig is the root configuration for a kitchen-ops agent.
type AgentConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	API      APIConfig      `yaml:"api"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Database DatabaseConfig `yaml:"database"`
	History  HistoryConfig  `yaml:"history"`
	Health   HealthConfig   `yaml:"health"`
	Log      LogConfig      `yaml:"log"`
}

// InstanceConfig identifies this agent.
type InstanceConfig struct {
	ID         string `yaml:"id"`
	Restaurant string `yaml:"restaurant"`
}

// APIConfig holds backend REST settings.
type APIConfig struct {
	RestURL      string        `yaml:"rest_url"`
	APIKey       string        `yaml:"api_key"` // Optional, sent as X-API-Key
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// RealtimeConfig holds realtime client settings shared by both channels.
type RealtimeConfig struct {
	URL                  string        `yaml:"url"`      // Default endpoint
	BaseURL              string        `yaml:"base_url"` // Prefix for channel paths
	InventoryPath        string        `yaml:"inventory_path"`
	WastePath            string        `yaml:"waste_path"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	ReconnectDelay       time.Duration `yaml:"reconnect_delay"`
	HandshakeTimeout     time.Duration `yaml:"handshake_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	PingInterval         time.Duration `yaml:"ping_interval"` // Negative disables keepalive
	PongTimeout          time.Duration `yaml:"pong_timeout"`
}

// KeepaliveInterval returns the ping interval for the realtime client, 0 when keepalive is off.
func (r RealtimeConfig) KeepaliveInterval() time.Duration {
	if r.PingInterval < 0 {
		return 0
	}
	return r.PingInterval
}

// MonitorConfig holds backend health-check settings.
type MonitorConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DatabaseConfig holds the optional history database.
type DatabaseConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// HistoryConfig holds batch writer settings.
type HistoryConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
