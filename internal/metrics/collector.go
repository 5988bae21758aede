package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// RunMetrics is the raw state accumulated during one benchmark run.
type RunMetrics struct {
	Sent                   int64
	Received               int64
	SerializationSamples   []time.Duration
	DeserializationSamples []time.Duration
	TotalEncodedBytes      int64
}

// Collector records serialization timings, byte counts and message counters
// in a thread-safe manner.
type Collector struct {
	mu        sync.Mutex
	run       RunMetrics
	serHist   *hdrhistogram.Histogram
	deserHist *hdrhistogram.Histogram
}

func NewCollector() *Collector {
	return &Collector{
		serHist:   newLatencyHistogram(),
		deserHist: newLatencyHistogram(),
	}
}

// Codec calls often finish in under a microsecond, so latencies are tracked
// in nanoseconds, from 1ns up to 60s with 3 significant figures.
func newLatencyHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(1, int64(60*time.Second), 3)
}

// RecordSerialization appends one encode duration.
func (c *Collector) RecordSerialization(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run.SerializationSamples = append(c.run.SerializationSamples, d)
	recordClamped(c.serHist, d)
}

// RecordDeserialization appends one decode duration.
func (c *Collector) RecordDeserialization(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run.DeserializationSamples = append(c.run.DeserializationSamples, d)
	recordClamped(c.deserHist, d)
}

// RecordEncodedBytes adds n to the running encoded byte total.
func (c *Collector) RecordEncodedBytes(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run.TotalEncodedBytes += int64(n)
}

// IncSent counts one transmitted message and returns the new total.
func (c *Collector) IncSent() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run.Sent++
	return c.run.Sent
}

// IncReceived counts one decoded message and returns the new total.
func (c *Collector) IncReceived() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run.Received++
	return c.run.Received
}

// Counts returns the sent and received counters.
func (c *Collector) Counts() (sent, received int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run.Sent, c.run.Received
}

// Snapshot returns a copy of the accumulated run state.
func (c *Collector) Snapshot() RunMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.run
	snap.SerializationSamples = append([]time.Duration(nil), c.run.SerializationSamples...)
	snap.DeserializationSamples = append([]time.Duration(nil), c.run.DeserializationSamples...)
	return snap
}

// Percentiles returns P50 and P99 for serialization and deserialization.
// Zero values mean no samples were recorded.
func (c *Collector) Percentiles() (ser, deser Quantiles) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return quantilesOf(c.serHist), quantilesOf(c.deserHist)
}

// Quantiles holds selected latency percentiles.
type Quantiles struct {
	P50 time.Duration
	P99 time.Duration
}

func quantilesOf(h *hdrhistogram.Histogram) Quantiles {
	if h.TotalCount() == 0 {
		return Quantiles{}
	}
	return Quantiles{
		P50: time.Duration(h.ValueAtQuantile(50)),
		P99: time.Duration(h.ValueAtQuantile(99)),
	}
}

func recordClamped(h *hdrhistogram.Histogram, d time.Duration) {
	ns := d.Nanoseconds()
	if ns < h.LowestTrackableValue() {
		ns = h.LowestTrackableValue()
	}
	if ns > h.HighestTrackableValue() {
		ns = h.HighestTrackableValue()
	}
	_ = h.RecordValue(ns)
}
