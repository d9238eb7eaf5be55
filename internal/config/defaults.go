package config

import (
	"net/url"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultInstanceID           = "kitchend"
	DefaultRestURL              = "http://localhost:5000/api"
	DefaultWSURL                = "ws://localhost:5000/ws/inventory"
	DefaultInventoryPath        = "/ws/inventory"
	DefaultWastePath            = "/ws/waste-tracking"
	DefaultAPITimeout           = 30 * time.Second
	DefaultMaxRetries           = 3
	DefaultRetryBackoff         = 1 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 3 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultPingInterval         = 30 * time.Second
	DefaultPongTimeout          = 60 * time.Second
	DefaultMonitorInterval      = 60 * time.Second
	DefaultMonitorTimeout       = 5 * time.Second
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 4
	DefaultMinConns             = 1
	DefaultBatchSize            = 100
	DefaultFlushInterval        = 5 * time.Second
	DefaultBufferSize           = 1000
	DefaultHealthPort           = 8080
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "text"
)

func (c *AgentConfig) applyDefaults() {
	if c.Instance.ID == "" {
		c.Instance.ID = DefaultInstanceID
	}

	// API defaults
	if c.API.RestURL == "" {
		c.API.RestURL = DefaultRestURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RetryBackoff == 0 {
		c.API.RetryBackoff = DefaultRetryBackoff
	}

	// Realtime defaults
	if c.Realtime.URL == "" {
		c.Realtime.URL = DefaultWSURL
	}
	if c.Realtime.BaseURL == "" {
		c.Realtime.BaseURL = originOf(c.Realtime.URL)
	}
	if c.Realtime.InventoryPath == "" {
		c.Realtime.InventoryPath = DefaultInventoryPath
	}
	if c.Realtime.WastePath == "" {
		c.Realtime.WastePath = DefaultWastePath
	}
	if c.Realtime.MaxReconnectAttempts == 0 {
		c.Realtime.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Realtime.ReconnectDelay == 0 {
		c.Realtime.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Realtime.WriteTimeout == 0 {
		c.Realtime.WriteTimeout = DefaultWriteTimeout
	}
	if c.Realtime.PingInterval == 0 {
		c.Realtime.PingInterval = DefaultPingInterval
	}
	if c.Realtime.PongTimeout == 0 {
		c.Realtime.PongTimeout = DefaultPongTimeout
	}

	// Monitor defaults
	if c.Monitor.Interval == 0 {
		c.Monitor.Interval = DefaultMonitorInterval
	}
	if c.Monitor.Timeout == 0 {
		c.Monitor.Timeout = DefaultMonitorTimeout
	}

	// Database defaults
	applyDBDefaults(&c.Database.Postgres)

	// History defaults
	if c.History.BatchSize == 0 {
		c.History.BatchSize = DefaultBatchSize
	}
	if c.History.FlushInterval == 0 {
		c.History.FlushInterval = DefaultFlushInterval
	}
	if c.History.BufferSize == 0 {
		c.History.BufferSize = DefaultBufferSize
	}

	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
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
}

// originOf returns scheme://host of a URL, or the input unchanged if it does not parse.
func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}
