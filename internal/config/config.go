// Package config loads and validates ingestor configuration from YAML.
package config

import "time"

// IngestorConfig is the root configuration for an ingestor instance.
type IngestorConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Database DBConfig       `yaml:"database"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Fanout   FanoutConfig   `yaml:"fanout"`
	Feed     FeedConfig     `yaml:"feed"`
	Server   ServerConfig   `yaml:"server"`
}

// InstanceConfig identifies this ingestor.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// DBConfig holds the TimescaleDB connection for tick storage.
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

// PipelineConfig holds ingestion coordinator settings.
type PipelineConfig struct {
	BatchSize        int           `yaml:"batch_size"`
	BatchInterval    time.Duration `yaml:"batch_interval"`
	MaxDrainAttempts int           `yaml:"max_drain_attempts"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
}

// FanoutConfig holds subscriber fan-out settings.
type FanoutConfig struct {
	// BufferSize is the per-subscriber channel capacity. A subscriber
	// that falls this far behind is dropped.
	BufferSize int `yaml:"buffer_size"`
}

// FeedConfig holds tick source settings.
type FeedConfig struct {
	// Mode selects the source: "ws" for a live WebSocket feed,
	// "sim" for the built-in random-walk simulator.
	Mode string `yaml:"mode"`

	// URL of the upstream feed (ws mode).
	URL string `yaml:"url"`

	// Instruments to simulate (sim mode).
	Instruments []string `yaml:"instruments"`

	// TickInterval between simulated ticks per instrument (sim mode).
	TickInterval time.Duration `yaml:"tick_interval"`

	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
}

// ServerConfig holds the HTTP server exposing lookup, streaming,
// health and metrics endpoints.
type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPath string `yaml:"metrics_path"`
}
