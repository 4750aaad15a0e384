package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfolio/market-data/internal/model"
)

// ErrEmptyBatch is returned when Write is called with no ticks.
// The coordinator never hands the writer an empty batch; seeing this
// error means a bug upstream.
var ErrEmptyBatch = errors.New("store: empty batch")

const insertTickSQL = `
	INSERT INTO ticks (instrument, price, volume, observed_at, source, received_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (instrument, observed_at) DO UPDATE
	SET price = EXCLUDED.price,
	    volume = EXCLUDED.volume,
	    source = EXCLUDED.source,
	    received_at = EXCLUDED.received_at
`

// TimescaleStore writes tick batches to a TimescaleDB hypertable.
type TimescaleStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewTimescaleStore creates a store backed by the given pool.
func NewTimescaleStore(db *pgxpool.Pool, logger *slog.Logger) *TimescaleStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TimescaleStore{db: db, logger: logger}
}

// Write persists one batch in a single round trip via pgx.Batch.
// Safe to call again with the same batch after an ambiguous failure.
func (s *TimescaleStore) Write(ctx context.Context, ticks []model.Tick) error {
	if len(ticks) == 0 {
		return ErrEmptyBatch
	}

	receivedAt := time.Now().UTC()

	b := &pgx.Batch{}
	for _, t := range ticks {
		b.Queue(insertTickSQL,
			t.Instrument,
			t.Price.String(),
			t.Volume,
			t.ObservedAt.UTC(),
			t.Source,
			receivedAt,
		)
	}

	start := time.Now()

	results := s.db.SendBatch(ctx, b)
	defer results.Close()

	for range ticks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert ticks: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	s.logger.Debug("batch written",
		"count", len(ticks),
		"duration", time.Since(start),
	)
	return nil
}

// Ping verifies the store connection is healthy.
func (s *TimescaleStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
