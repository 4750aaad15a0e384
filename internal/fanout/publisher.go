// Package fanout broadcasts accepted ticks to live subscribers.
//
// Delivery is best effort: each subscriber owns a bounded channel, and a
// subscriber whose channel is full or closed is dropped from the registry
// so it can never stall ingestion or its peers.
package fanout

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/quantfolio/market-data/internal/model"
)

// Subscription is a live tick stream handed to one subscriber.
// The subscriber reads from C until it is closed (unsubscribe, delivery
// failure, or publisher shutdown).
type Subscription struct {
	ID uuid.UUID
	C  <-chan model.Tick

	ch chan model.Tick
}

// Publisher fans ticks out to registered subscriptions.
type Publisher struct {
	logger *slog.Logger

	bufferSize int

	mu     sync.Mutex
	subs   map[uuid.UUID]*Subscription
	closed bool

	// Stats
	published int64
	dropped   int64
}

// NewPublisher creates a Publisher whose subscriptions buffer up to
// bufferSize undelivered ticks each.
func NewPublisher(bufferSize int, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Publisher{
		logger:     logger,
		bufferSize: bufferSize,
		subs:       make(map[uuid.UUID]*Subscription),
	}
}

// Subscribe registers a new subscription. Returns nil after Close.
func (p *Publisher) Subscribe() *Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	ch := make(chan model.Tick, p.bufferSize)
	sub := &Subscription{
		ID: uuid.New(),
		C:  ch,
		ch: ch,
	}
	p.subs[sub.ID] = sub

	p.logger.Debug("subscriber registered", "id", sub.ID, "buffer", p.bufferSize)
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
// Unknown handles are ignored.
func (p *Publisher) Unsubscribe(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub, ok := p.subs[id]
	if !ok {
		return
	}
	delete(p.subs, id)
	close(sub.ch)

	p.logger.Debug("subscriber removed", "id", id)
}

// Publish delivers a tick to every registered subscription without
// blocking. A subscription that cannot accept the tick is dropped.
func (p *Publisher) Publish(tick model.Tick) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.published++

	for id, sub := range p.subs {
		select {
		case sub.ch <- tick:
		default:
			// Slow consumer: unregister so it cannot back up ingestion.
			delete(p.subs, id)
			close(sub.ch)
			p.dropped++
			p.logger.Warn("dropping slow subscriber", "id", id)
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (p *Publisher) SubscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Stats reports publish/drop counters.
func (p *Publisher) Stats() PublisherStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PublisherStats{
		Subscribers: len(p.subs),
		Published:   p.published,
		Dropped:     p.dropped,
	}
}

// PublisherStats contains fan-out counters.
type PublisherStats struct {
	Subscribers int
	Published   int64
	Dropped     int64
}

// Close removes all subscriptions and closes their channels.
// Further Publish and Subscribe calls are no-ops.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	for id, sub := range p.subs {
		delete(p.subs, id)
		close(sub.ch)
	}
}
