// Package batch accumulates ticks into size/time-bounded batches for the
// durable writer.
package batch

import (
	"sync"

	"github.com/quantfolio/market-data/internal/model"
)

// Accumulator collects ticks into the current batch buffer. Append,
// TakeBatch and RequeueFront are mutually exclusive so a take always
// observes a complete buffer and no tick is lost or duplicated between
// a threshold flush and a timer flush.
type Accumulator struct {
	mu        sync.Mutex
	buf       []model.Tick
	batchSize int

	// Stats
	appended int64
	taken    int64
	requeued int64
}

// NewAccumulator creates an Accumulator that reports the size threshold
// once batchSize ticks are buffered.
func NewAccumulator(batchSize int) *Accumulator {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Accumulator{
		buf:       make([]model.Tick, 0, batchSize),
		batchSize: batchSize,
	}
}

// Append adds a tick to the tail of the current buffer and reports
// whether the size threshold has been reached.
func (a *Accumulator) Append(tick model.Tick) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.buf = append(a.buf, tick)
	a.appended++
	return len(a.buf) >= a.batchSize
}

// TakeBatch removes and returns the entire current buffer, replacing it
// with an empty one. Ownership of the returned slice transfers to the
// caller; the accumulator retains no reference to it. Returns nil when
// the buffer is empty.
func (a *Accumulator) TakeBatch() []model.Tick {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.buf) == 0 {
		return nil
	}

	out := a.buf
	a.buf = make([]model.Tick, 0, a.batchSize)
	a.taken += int64(len(out))
	return out
}

// RequeueFront prepends a previously taken batch ahead of newer ticks,
// preserving its original order. Used only when a durable write fails,
// so stale data is retried before fresher data.
func (a *Accumulator) RequeueFront(batch []model.Tick) {
	if len(batch) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	merged := make([]model.Tick, 0, len(batch)+len(a.buf))
	merged = append(merged, batch...)
	merged = append(merged, a.buf...)
	a.buf = merged
	a.requeued += int64(len(batch))
}

// Len returns the number of buffered ticks. Exposed as the backlog
// gauge operators alarm on when the store is down.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buf)
}

// Stats returns accumulator counters.
func (a *Accumulator) Stats() AccumulatorStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AccumulatorStats{
		Buffered: len(a.buf),
		Appended: a.appended,
		Taken:    a.taken,
		Requeued: a.requeued,
	}
}

// AccumulatorStats contains buffer counters.
type AccumulatorStats struct {
	Buffered int
	Appended int64
	Taken    int64
	Requeued int64
}
