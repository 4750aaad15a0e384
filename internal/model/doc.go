// Package model defines shared data types for the market-data pipeline.
//
// Conventions:
//   - Prices: decimal.Decimal (exact, no float drift)
//   - Timestamps: time.Time, stored as timestamptz in UTC
//   - Tick identity: (instrument, observed_at); last write wins on re-delivery
package model
