// Package metrics accumulates per-run benchmark measurements and derives the
// guarded aggregates shown in reports.
//
// # Collector
//
// One [Collector] owns the [RunMetrics] of a single benchmark run:
//
//	collector := metrics.NewCollector()
//
//	// Around every encode
//	collector.RecordSerialization(time.Since(start))
//	collector.RecordEncodedBytes(len(encoded))
//	collector.IncSent()
//
//	// Around every decode
//	collector.RecordDeserialization(time.Since(start))
//	received := collector.IncReceived()
//
//	summary := collector.Summary(elapsed)
//
// # No-data sentinel
//
// [Average], [Throughput] and [AverageMessageSize] return ok=false instead of
// dividing by zero. Callers render that as "no data"; NaN and Inf never leave
// this package.
//
// # Thread Safety
//
// The burst sender and the receive loop record from different goroutines, so
// the Collector serializes all access with a mutex.
package metrics
