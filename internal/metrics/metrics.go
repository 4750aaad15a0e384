// Package metrics provides Prometheus metrics for the ingestion pipeline.
//
// Key metrics:
//   - tick admission and rejection rates
//   - flush counts, batch sizes and write latency
//   - durable-write failures and requeued ticks
//   - buffer depth (the backlog alarm when the store is unreachable)
//   - live subscriber count and fan-out drops
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline holds all pipeline collectors, registered on one registry.
type Pipeline struct {
	TicksIngested  prometheus.Counter
	TicksRejected  prometheus.Counter
	Flushes        prometheus.Counter
	WriteFailures  prometheus.Counter
	TicksRequeued  prometheus.Counter
	PublishDrops   prometheus.Counter
	BufferDepth    prometheus.Gauge
	Subscribers    prometheus.Gauge
	BatchSizes     prometheus.Histogram
	WriteDurations prometheus.Histogram
}

// NewPipeline creates and registers pipeline collectors on reg.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	factory := promauto.With(reg)

	return &Pipeline{
		TicksIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_ticks_ingested_total",
			Help: "Ticks accepted by the coordinator.",
		}),
		TicksRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_ticks_rejected_total",
			Help: "Malformed ticks rejected at the ingest boundary.",
		}),
		Flushes: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_flushes_total",
			Help: "Batches handed to the durable writer.",
		}),
		WriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_write_failures_total",
			Help: "Durable-write attempts that failed and were requeued.",
		}),
		TicksRequeued: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_ticks_requeued_total",
			Help: "Ticks re-inserted at the buffer front after a failed write.",
		}),
		PublishDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_publish_drops_total",
			Help: "Subscribers dropped for not keeping up with fan-out.",
		}),
		BufferDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_buffer_depth",
			Help: "Ticks awaiting a durable write. Alarm on sustained growth.",
		}),
		Subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pipeline_subscribers",
			Help: "Currently registered fan-out subscribers.",
		}),
		BatchSizes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_batch_size",
			Help:    "Distribution of flushed batch sizes.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		WriteDurations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pipeline_write_duration_seconds",
			Help:    "Durable write latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
