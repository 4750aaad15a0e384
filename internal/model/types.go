package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Validation errors returned by Tick.Validate.
var (
	ErrEmptyInstrument = errors.New("tick has empty instrument")
	ErrInvalidPrice    = errors.New("tick price must be positive")
	ErrNegativeVolume  = errors.New("tick volume must be >= 0")
	ErrZeroTimestamp   = errors.New("tick has zero timestamp")
)

// Tick is one observed price/volume event for an instrument.
// Immutable once created; identity for deduplication is (Instrument, ObservedAt).
type Tick struct {
	Instrument string          // e.g. "AAPL"
	Price      decimal.Decimal // last traded price
	Volume     int64           // contracts/shares traded, >= 0
	ObservedAt time.Time       // exchange observation time
	Source     string          // feed identifier, e.g. "sim", "nasdaq-ws"
}

// Validate checks that a tick is well formed before it enters the pipeline.
func (t Tick) Validate() error {
	if t.Instrument == "" {
		return ErrEmptyInstrument
	}
	if !t.Price.IsPositive() {
		return ErrInvalidPrice
	}
	if t.Volume < 0 {
		return ErrNegativeVolume
	}
	if t.ObservedAt.IsZero() {
		return ErrZeroTimestamp
	}
	return nil
}

// CachedPrice is the latest known price for one instrument.
// Price and ObservedAt always update together.
type CachedPrice struct {
	Instrument string
	Price      decimal.Decimal
	ObservedAt time.Time
}
