package feed

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfolio/market-data/internal/model"
)

// Simulator emits random-walk ticks for a fixed set of instruments.
type Simulator struct {
	instruments []string
	interval    time.Duration
	logger      *slog.Logger
	rng         *rand.Rand

	prices map[string]decimal.Decimal
}

// NewSimulator creates a simulator that emits one tick per instrument
// every interval.
func NewSimulator(instruments []string, interval time.Duration, seed int64, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}

	rng := rand.New(rand.NewSource(seed))
	prices := make(map[string]decimal.Decimal, len(instruments))
	for _, inst := range instruments {
		// Start each instrument somewhere in [20, 520).
		prices[inst] = decimal.NewFromFloat(20 + rng.Float64()*500).Round(2)
	}

	return &Simulator{
		instruments: instruments,
		interval:    interval,
		logger:      logger,
		rng:         rng,
		prices:      prices,
	}
}

// Run emits ticks until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context, sink Sink) error {
	s.logger.Info("simulator feed started",
		"instruments", len(s.instruments),
		"interval", s.interval,
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("simulator feed stopped")
			return ctx.Err()
		case now := <-ticker.C:
			for _, inst := range s.instruments {
				tick := s.next(inst, now.UTC())
				if err := sink.Ingest(tick); err != nil {
					if errors.Is(err, context.Canceled) {
						return err
					}
					s.logger.Warn("tick not admitted", "instrument", inst, "error", err)
				}
			}
		}
	}
}

// next advances the random walk for one instrument.
func (s *Simulator) next(instrument string, at time.Time) model.Tick {
	prev := s.prices[instrument]

	// Drift up to ±0.5% per tick, floor at 0.01.
	driftPct := (s.rng.Float64() - 0.5) / 100
	price := prev.Mul(decimal.NewFromFloat(1 + driftPct)).Round(2)
	if !price.IsPositive() {
		price = decimal.NewFromFloat(0.01)
	}
	s.prices[instrument] = price

	return model.Tick{
		Instrument: instrument,
		Price:      price,
		Volume:     int64(s.rng.Intn(1000) + 1),
		ObservedAt: at,
		Source:     "sim",
	}
}
