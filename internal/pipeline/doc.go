// Package pipeline orchestrates tick ingestion.
//
// The Coordinator receives ticks one at a time from a single source
// adapter, updates the point cache, fans the tick out to subscribers,
// and accumulates it for a batched durable write. Flushes trigger on
// batch size or on a periodic timer, whichever comes first, and are
// serialized so at most one durable write is in flight. A failed batch
// is requeued ahead of newer ticks and retried until it lands; nothing
// is dropped.
package pipeline
