package batch

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfolio/market-data/internal/model"
)

func tickN(i int) model.Tick {
	return model.Tick{
		Instrument: "AAPL",
		Price:      decimal.NewFromInt(int64(i)),
		Volume:     1,
		ObservedAt: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Millisecond),
		Source:     "test",
	}
}

func TestAccumulator_AppendThreshold(t *testing.T) {
	a := NewAccumulator(3)

	if a.Append(tickN(0)) {
		t.Error("Append(1st) = true, want false")
	}
	if a.Append(tickN(1)) {
		t.Error("Append(2nd) = true, want false")
	}
	if !a.Append(tickN(2)) {
		t.Error("Append(3rd) = false, want true at threshold")
	}
	if a.Len() != 3 {
		t.Errorf("Len() = %d, want 3", a.Len())
	}
}

func TestAccumulator_TakeBatchOrderAndOwnership(t *testing.T) {
	a := NewAccumulator(10)
	for i := 0; i < 5; i++ {
		a.Append(tickN(i))
	}

	batch := a.TakeBatch()
	if len(batch) != 5 {
		t.Fatalf("len(batch) = %d, want 5", len(batch))
	}
	for i, tk := range batch {
		if !tk.Price.Equal(decimal.NewFromInt(int64(i))) {
			t.Errorf("batch[%d].Price = %s, want %d", i, tk.Price, i)
		}
	}
	if a.Len() != 0 {
		t.Errorf("Len() = %d after take, want 0", a.Len())
	}

	// Appends after take must not show up in the taken slice.
	a.Append(tickN(99))
	if len(batch) != 5 {
		t.Errorf("taken batch grew to %d, accumulator retained a reference", len(batch))
	}
}

func TestAccumulator_TakeBatchEmpty(t *testing.T) {
	a := NewAccumulator(10)
	if got := a.TakeBatch(); got != nil {
		t.Errorf("TakeBatch() = %v on empty buffer, want nil", got)
	}
}

func TestAccumulator_RequeueFront(t *testing.T) {
	a := NewAccumulator(10)
	for i := 0; i < 3; i++ {
		a.Append(tickN(i))
	}
	failed := a.TakeBatch()

	// Newer ticks arrive while the failed batch is out.
	a.Append(tickN(3))
	a.Append(tickN(4))

	a.RequeueFront(failed)

	merged := a.TakeBatch()
	if len(merged) != 5 {
		t.Fatalf("len(merged) = %d, want 5", len(merged))
	}
	for i, tk := range merged {
		if !tk.Price.Equal(decimal.NewFromInt(int64(i))) {
			t.Errorf("merged[%d].Price = %s, want %d (failed batch must precede newer ticks)", i, tk.Price, i)
		}
	}
}

func TestAccumulator_RequeueFrontEmpty(t *testing.T) {
	a := NewAccumulator(10)
	a.Append(tickN(0))
	a.RequeueFront(nil)
	if a.Len() != 1 {
		t.Errorf("Len() = %d, want 1", a.Len())
	}
}

func TestAccumulator_Stats(t *testing.T) {
	a := NewAccumulator(10)
	for i := 0; i < 4; i++ {
		a.Append(tickN(i))
	}
	b := a.TakeBatch()
	a.RequeueFront(b)

	stats := a.Stats()
	if stats.Appended != 4 {
		t.Errorf("Appended = %d, want 4", stats.Appended)
	}
	if stats.Taken != 4 {
		t.Errorf("Taken = %d, want 4", stats.Taken)
	}
	if stats.Requeued != 4 {
		t.Errorf("Requeued = %d, want 4", stats.Requeued)
	}
	if stats.Buffered != 4 {
		t.Errorf("Buffered = %d, want 4", stats.Buffered)
	}
}

func TestAccumulator_ConcurrentAppendTake(t *testing.T) {
	a := NewAccumulator(50)

	const total = 2000
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			a.Append(tickN(i))
		}
	}()

	var taken int
	var mu sync.Mutex
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			b := a.TakeBatch()
			mu.Lock()
			taken += len(b)
			done := taken >= total
			mu.Unlock()
			if done {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	wg.Wait()
	if taken != total {
		t.Errorf("taken = %d, want %d (ticks lost or duplicated)", taken, total)
	}
}
