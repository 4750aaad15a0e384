// Package store persists tick batches to TimescaleDB.
//
// Writes are idempotent: the ticks hypertable is keyed by
// (instrument, observed_at) and re-applying a batch upserts the same
// rows, last write wins. Retry policy lives in the pipeline coordinator,
// not here.
package store
