package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/quantfolio/market-data/internal/batch"
	"github.com/quantfolio/market-data/internal/cache"
	"github.com/quantfolio/market-data/internal/fanout"
	"github.com/quantfolio/market-data/internal/metrics"
	"github.com/quantfolio/market-data/internal/model"
)

// Store is the durable sink for tick batches. Write must be idempotent
// for re-delivered batches (keyed by instrument, observed_at).
type Store interface {
	Write(ctx context.Context, ticks []model.Tick) error
}

// Coordinator states.
const (
	stateIdle int32 = iota
	stateRunning
	stateDraining
	stateStopped
)

// Errors returned by the coordinator.
var (
	ErrNotRunning      = errors.New("pipeline: not running")
	ErrInvalidTick     = errors.New("pipeline: invalid tick")
	ErrDrainIncomplete = errors.New("pipeline: drain incomplete")
)

// Config holds coordinator settings.
type Config struct {
	// BatchSize triggers a flush once this many ticks are buffered.
	BatchSize int

	// BatchInterval triggers a flush on a timer regardless of batch
	// size, bounding how long a tick waits for a durability attempt.
	BatchInterval time.Duration

	// MaxDrainAttempts bounds the final flush loop during shutdown.
	MaxDrainAttempts int

	// WriteTimeout bounds a single durable-write attempt.
	WriteTimeout time.Duration
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:        100,
		BatchInterval:    time.Second,
		MaxDrainAttempts: 5,
		WriteTimeout:     10 * time.Second,
	}
}

// Coordinator is the single ingestion path of the pipeline.
type Coordinator struct {
	cfg    Config
	logger *slog.Logger

	cache   *cache.PriceCache
	pub     *fanout.Publisher
	acc     *batch.Accumulator
	store   Store
	metrics *metrics.Pipeline

	state atomic.Int32

	// writing is the single-writer gate: a flush that finds it set is
	// suppressed and the buffer waits for the next trigger.
	writing atomic.Bool

	// lastDropped is the publisher drop count already folded into the
	// drops counter. Touched only on the single ingestion path.
	lastDropped int64

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup // timer loop
	writeWG sync.WaitGroup // in-flight durable write
}

// NewCoordinator wires the pipeline components together.
func NewCoordinator(cfg Config, store Store, pub *fanout.Publisher, m *metrics.Pipeline, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.BatchSize < 1 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.BatchInterval <= 0 {
		cfg.BatchInterval = def.BatchInterval
	}
	if cfg.MaxDrainAttempts < 1 {
		cfg.MaxDrainAttempts = def.MaxDrainAttempts
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}

	return &Coordinator{
		cfg:     cfg,
		logger:  logger,
		cache:   cache.New(),
		pub:     pub,
		acc:     batch.NewAccumulator(cfg.BatchSize),
		store:   store,
		metrics: m,
	}
}

// Start begins accepting ticks and arms the periodic flush timer.
func (c *Coordinator) Start(ctx context.Context) error {
	if !c.state.CompareAndSwap(stateIdle, stateRunning) {
		return ErrNotRunning
	}

	c.ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go c.flushLoop()

	c.logger.Info("pipeline started",
		"batch_size", c.cfg.BatchSize,
		"batch_interval", c.cfg.BatchInterval,
	)
	return nil
}

// Ingest admits one tick: cache, publish, append, and flush if the
// batch threshold was crossed. A tick is reflected in the point cache
// before it counts as accepted, whatever later happens to its batch.
func (c *Coordinator) Ingest(tick model.Tick) error {
	if c.state.Load() != stateRunning {
		return ErrNotRunning
	}

	if err := tick.Validate(); err != nil {
		c.metrics.TicksRejected.Inc()
		return fmt.Errorf("%w: %w", ErrInvalidTick, err)
	}

	if err := c.cache.Set(tick); err != nil {
		// Best effort: a cache fault never blocks the durability path.
		c.logger.Warn("cache update failed", "instrument", tick.Instrument, "error", err)
	}

	c.pub.Publish(tick)

	stats := c.pub.Stats()
	if d := stats.Dropped - c.lastDropped; d > 0 {
		c.metrics.PublishDrops.Add(float64(d))
		c.lastDropped = stats.Dropped
	}
	c.metrics.Subscribers.Set(float64(stats.Subscribers))

	full := c.acc.Append(tick)
	c.metrics.TicksIngested.Inc()
	c.metrics.BufferDepth.Set(float64(c.acc.Len()))

	if full {
		c.flush()
	}
	return nil
}

// Lookup returns the latest cached price for an instrument.
func (c *Coordinator) Lookup(instrument string) (model.CachedPrice, bool) {
	return c.cache.Get(instrument)
}

// Instruments lists instruments with a cached price.
func (c *Coordinator) Instruments() []string {
	return c.cache.Instruments()
}

// Subscribe registers a live tick stream.
func (c *Coordinator) Subscribe() *fanout.Subscription {
	sub := c.pub.Subscribe()
	c.metrics.Subscribers.Set(float64(c.pub.SubscriberCount()))
	return sub
}

// Unsubscribe releases a subscription.
func (c *Coordinator) Unsubscribe(id uuid.UUID) {
	c.pub.Unsubscribe(id)
	c.metrics.Subscribers.Set(float64(c.pub.SubscriberCount()))
}

// BufferDepth returns the number of ticks awaiting a durable write.
func (c *Coordinator) BufferDepth() int {
	return c.acc.Len()
}

// flushLoop fires a flush every BatchInterval.
func (c *Coordinator) flushLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.BatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.flush()
		}
	}
}

// flush takes the current buffer and hands it to the store in the
// background. A flush already in progress suppresses this one; the
// buffer is picked up again on the next trigger.
func (c *Coordinator) flush() {
	if !c.writing.CompareAndSwap(false, true) {
		return
	}

	ticks := c.acc.TakeBatch()
	if len(ticks) == 0 {
		c.writing.Store(false)
		return
	}

	c.metrics.Flushes.Inc()
	c.metrics.BatchSizes.Observe(float64(len(ticks)))

	c.writeWG.Add(1)
	go func() {
		defer c.writeWG.Done()
		defer c.writing.Store(false)
		c.writeBatch(ticks)
	}()
}

// writeBatch performs one durable-write attempt. On failure the batch
// goes back to the front of the buffer; the next flush retries it
// before any newer ticks.
func (c *Coordinator) writeBatch(ticks []model.Tick) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.WriteTimeout)
	defer cancel()

	start := time.Now()
	err := c.store.Write(ctx, ticks)
	c.metrics.WriteDurations.Observe(time.Since(start).Seconds())

	if err != nil {
		c.acc.RequeueFront(ticks)
		c.metrics.WriteFailures.Inc()
		c.metrics.TicksRequeued.Add(float64(len(ticks)))
		c.logger.Error("durable write failed, batch requeued",
			"count", len(ticks),
			"buffered", c.acc.Len(),
			"error", err,
		)
	}
	c.metrics.BufferDepth.Set(float64(c.acc.Len()))
}

// Stop drains the pipeline and releases resources. New ticks are
// refused as soon as draining begins. An in-flight write is allowed to
// settle before the final drain loop runs.
func (c *Coordinator) Stop(ctx context.Context) error {
	if !c.state.CompareAndSwap(stateRunning, stateDraining) {
		return ErrNotRunning
	}

	c.logger.Info("pipeline draining", "buffered", c.acc.Len())

	// Cancel the periodic timer.
	c.cancel()
	c.wg.Wait()

	// Wait for an in-flight write to settle.
	settled := make(chan struct{})
	go func() {
		c.writeWG.Wait()
		close(settled)
	}()
	select {
	case <-settled:
	case <-ctx.Done():
		c.logger.Warn("gave up waiting for in-flight write", "error", ctx.Err())
	}

	err := c.drain(ctx)

	c.pub.Close()
	c.state.Store(stateStopped)
	c.logger.Info("pipeline stopped")
	return err
}

// drain flushes the remaining buffer with a bounded number of attempts.
func (c *Coordinator) drain(ctx context.Context) error {
	for attempt := 1; attempt <= c.cfg.MaxDrainAttempts; attempt++ {
		ticks := c.acc.TakeBatch()
		if len(ticks) == 0 {
			return nil
		}

		if err := c.store.Write(ctx, ticks); err != nil {
			c.acc.RequeueFront(ticks)
			c.logger.Error("drain flush failed",
				"attempt", attempt,
				"max_attempts", c.cfg.MaxDrainAttempts,
				"buffered", c.acc.Len(),
				"error", err,
			)
			continue
		}
		c.metrics.Flushes.Inc()
	}

	if n := c.acc.Len(); n > 0 {
		// Data stays in memory, not deleted; the operator decides on
		// manual recovery.
		c.logger.Error("drain exhausted with ticks unflushed", "undrained", n)
		return fmt.Errorf("%w: %d ticks unflushed", ErrDrainIncomplete, n)
	}
	return nil
}
