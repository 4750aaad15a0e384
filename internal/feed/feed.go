// Package feed provides tick sources that drive the ingestion pipeline.
//
// A source hands the pipeline one validated tick at a time from a single
// goroutine. Two sources exist: a WebSocket client for a live upstream
// feed, and a random-walk simulator for local runs and load tests.
package feed

import (
	"context"

	"github.com/quantfolio/market-data/internal/model"
)

// Sink accepts ticks one at a time. The pipeline coordinator is the
// production sink.
type Sink interface {
	Ingest(tick model.Tick) error
}

// Source produces ticks into a Sink until its context is cancelled.
type Source interface {
	// Run blocks, feeding the sink, until ctx is done. It returns
	// ctx.Err() on cancellation.
	Run(ctx context.Context, sink Sink) error
}
