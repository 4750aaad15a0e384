package fanout

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfolio/market-data/internal/model"
)

func testTick(i int) model.Tick {
	return model.Tick{
		Instrument: "AAPL",
		Price:      decimal.NewFromInt(int64(100 + i)),
		Volume:     1,
		ObservedAt: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Millisecond),
		Source:     "test",
	}
}

func TestPublisher_DeliversInOrder(t *testing.T) {
	p := NewPublisher(10, nil)
	defer p.Close()

	sub := p.Subscribe()
	if sub == nil {
		t.Fatal("Subscribe() = nil")
	}

	for i := 0; i < 5; i++ {
		p.Publish(testTick(i))
	}

	for i := 0; i < 5; i++ {
		select {
		case got := <-sub.C:
			if !got.Price.Equal(decimal.NewFromInt(int64(100 + i))) {
				t.Errorf("tick %d price = %s, want %d", i, got.Price, 100+i)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for tick %d", i)
		}
	}
}

func TestPublisher_SlowSubscriberDropped(t *testing.T) {
	p := NewPublisher(2, nil)
	defer p.Close()

	slow := p.Subscribe()
	fast := p.Subscribe()

	// Fill the slow subscriber's buffer, then one more to overflow it.
	for i := 0; i < 3; i++ {
		p.Publish(testTick(i))
		// Keep the fast subscriber drained.
		select {
		case <-fast.C:
		case <-time.After(time.Second):
			t.Fatal("fast subscriber starved")
		}
	}

	if p.SubscriberCount() != 1 {
		t.Errorf("SubscriberCount() = %d, want 1 after drop", p.SubscriberCount())
	}

	// Dropped subscriber sees buffered ticks then a closed channel.
	<-slow.C
	<-slow.C
	if _, ok := <-slow.C; ok {
		t.Error("slow subscriber channel not closed after drop")
	}

	stats := p.Stats()
	if stats.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", stats.Dropped)
	}
}

func TestPublisher_Unsubscribe(t *testing.T) {
	p := NewPublisher(4, nil)
	defer p.Close()

	sub := p.Subscribe()
	p.Publish(testTick(0))
	<-sub.C

	p.Unsubscribe(sub.ID)
	if p.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d, want 0", p.SubscriberCount())
	}

	// Channel closed; publishes after unsubscribe are not delivered.
	p.Publish(testTick(1))
	if _, ok := <-sub.C; ok {
		t.Error("received tick after unsubscribe")
	}

	// Double unsubscribe is a no-op.
	p.Unsubscribe(sub.ID)
}

func TestPublisher_PublishWithNoSubscribers(t *testing.T) {
	p := NewPublisher(4, nil)
	defer p.Close()

	// Must not panic or block.
	p.Publish(testTick(0))

	if got := p.Stats().Published; got != 1 {
		t.Errorf("Published = %d, want 1", got)
	}
}

func TestPublisher_Close(t *testing.T) {
	p := NewPublisher(4, nil)
	sub := p.Subscribe()

	p.Close()

	if _, ok := <-sub.C; ok {
		t.Error("subscription channel open after Close")
	}
	if got := p.Subscribe(); got != nil {
		t.Error("Subscribe() after Close returned a subscription")
	}

	// Idempotent.
	p.Close()
}
