package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultBatchSize          = 100
	DefaultBatchInterval      = 1 * time.Second
	DefaultMaxDrainAttempts   = 5
	DefaultWriteTimeout       = 10 * time.Second
	DefaultFanoutBufferSize   = 64
	DefaultFeedMode           = "sim"
	DefaultTickInterval       = 250 * time.Millisecond
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 60 * time.Second
	DefaultReadTimeout        = 30 * time.Second
	DefaultServerPort         = 8080
	DefaultMetricsPath        = "/metrics"
)

func (c *IngestorConfig) applyDefaults() {
	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Pipeline defaults
	if c.Pipeline.BatchSize == 0 {
		c.Pipeline.BatchSize = DefaultBatchSize
	}
	if c.Pipeline.BatchInterval == 0 {
		c.Pipeline.BatchInterval = DefaultBatchInterval
	}
	if c.Pipeline.MaxDrainAttempts == 0 {
		c.Pipeline.MaxDrainAttempts = DefaultMaxDrainAttempts
	}
	if c.Pipeline.WriteTimeout == 0 {
		c.Pipeline.WriteTimeout = DefaultWriteTimeout
	}

	// Fanout defaults
	if c.Fanout.BufferSize == 0 {
		c.Fanout.BufferSize = DefaultFanoutBufferSize
	}

	// Feed defaults
	if c.Feed.Mode == "" {
		c.Feed.Mode = DefaultFeedMode
	}
	if c.Feed.TickInterval == 0 {
		c.Feed.TickInterval = DefaultTickInterval
	}
	if c.Feed.ReconnectBaseDelay == 0 {
		c.Feed.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if c.Feed.ReconnectMaxDelay == 0 {
		c.Feed.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if c.Feed.ReadTimeout == 0 {
		c.Feed.ReadTimeout = DefaultReadTimeout
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.MetricsPath == "" {
		c.Server.MetricsPath = DefaultMetricsPath
	}
}
