package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *IngestorConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if c.Pipeline.BatchSize < 1 {
		return errors.New("pipeline.batch_size must be >= 1")
	}
	if c.Pipeline.BatchInterval <= 0 {
		return errors.New("pipeline.batch_interval must be positive")
	}
	if c.Pipeline.MaxDrainAttempts < 1 {
		return errors.New("pipeline.max_drain_attempts must be >= 1")
	}

	if c.Fanout.BufferSize < 1 {
		return errors.New("fanout.buffer_size must be >= 1")
	}

	switch c.Feed.Mode {
	case "sim":
		if len(c.Feed.Instruments) == 0 {
			return errors.New("feed.instruments is required in sim mode")
		}
	case "ws":
		if c.Feed.URL == "" {
			return errors.New("feed.url is required in ws mode")
		}
	default:
		return fmt.Errorf("feed.mode must be \"sim\" or \"ws\", got %q", c.Feed.Mode)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
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
