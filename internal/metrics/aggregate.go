package metrics

import (
	"encoding/json"
	"strconv"
	"time"
)

// NoData is how an undefined figure is rendered.
const NoData = "no data"

// Average returns the arithmetic mean of samples in milliseconds. ok is false
// when samples is empty.
func Average(samples []time.Duration) (ms float64, ok bool) {
	if len(samples) == 0 {
		return 0, false
	}
	var sum time.Duration
	for _, s := range samples {
		sum += s
	}
	return durationMs(sum) / float64(len(samples)), true
}

// Throughput returns received messages per second. ok is false when nothing
// was received or no time elapsed.
func Throughput(received int64, elapsed time.Duration) (perSec float64, ok bool) {
	if received <= 0 || elapsed <= 0 {
		return 0, false
	}
	return float64(received) / elapsed.Seconds(), true
}

// AverageMessageSize returns the mean encoded size in bytes. ok is false when
// nothing was sent.
func AverageMessageSize(totalBytes, sent int64) (bytes float64, ok bool) {
	if sent <= 0 {
		return 0, false
	}
	return float64(totalBytes) / float64(sent), true
}

// Figure is a derived value that may be undefined.
type Figure struct {
	Value float64
	OK    bool
}

func figure(v float64, ok bool) Figure { return Figure{Value: v, OK: ok} }

// Format renders the value with prec decimals, or NoData.
func (f Figure) Format(prec int) string {
	if !f.OK {
		return NoData
	}
	return strconv.FormatFloat(f.Value, 'f', prec, 64)
}

// MarshalJSON encodes an undefined figure as null.
func (f Figure) MarshalJSON() ([]byte, error) {
	if !f.OK {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// MarshalYAML encodes an undefined figure as null.
func (f Figure) MarshalYAML() (interface{}, error) {
	if !f.OK {
		return nil, nil
	}
	return f.Value, nil
}

// Summary holds every aggregate a report needs.
type Summary struct {
	Sent                 int64   `json:"sent" yaml:"sent"`
	Received             int64   `json:"received" yaml:"received"`
	TotalEncodedBytes    int64   `json:"total_encoded_bytes" yaml:"total_encoded_bytes"`
	ElapsedMs            float64 `json:"elapsed_ms" yaml:"elapsed_ms"`
	ThroughputPerSec     Figure  `json:"throughput_msg_per_sec" yaml:"throughput_msg_per_sec"`
	AvgSerializationMs   Figure  `json:"avg_serialization_ms" yaml:"avg_serialization_ms"`
	AvgDeserializationMs Figure  `json:"avg_deserialization_ms" yaml:"avg_deserialization_ms"`
	AvgMessageSizeBytes  Figure  `json:"avg_message_size_bytes" yaml:"avg_message_size_bytes"`
	SerializationP50Ms   Figure  `json:"serialization_p50_ms" yaml:"serialization_p50_ms"`
	SerializationP99Ms   Figure  `json:"serialization_p99_ms" yaml:"serialization_p99_ms"`
	DeserializationP50Ms Figure  `json:"deserialization_p50_ms" yaml:"deserialization_p50_ms"`
	DeserializationP99Ms Figure  `json:"deserialization_p99_ms" yaml:"deserialization_p99_ms"`

	Elapsed time.Duration `json:"-" yaml:"-"`
}

// Summarize derives the guarded aggregates from a snapshot. ser and deser are
// optional percentile estimates, typically from [Collector.Percentiles].
func Summarize(run RunMetrics, elapsed time.Duration, ser, deser Quantiles) Summary {
	s := Summary{
		Sent:              run.Sent,
		Received:          run.Received,
		TotalEncodedBytes: run.TotalEncodedBytes,
		ElapsedMs:         durationMs(elapsed),
		Elapsed:           elapsed,
	}
	s.ThroughputPerSec = figure(Throughput(run.Received, elapsed))
	s.AvgSerializationMs = figure(Average(run.SerializationSamples))
	s.AvgDeserializationMs = figure(Average(run.DeserializationSamples))
	s.AvgMessageSizeBytes = figure(AverageMessageSize(run.TotalEncodedBytes, run.Sent))

	hasSer := len(run.SerializationSamples) > 0
	hasDeser := len(run.DeserializationSamples) > 0
	s.SerializationP50Ms = figure(durationMs(ser.P50), hasSer)
	s.SerializationP99Ms = figure(durationMs(ser.P99), hasSer)
	s.DeserializationP50Ms = figure(durationMs(deser.P50), hasDeser)
	s.DeserializationP99Ms = figure(durationMs(deser.P99), hasDeser)
	return s
}

// Summary snapshots the collector and summarizes it for elapsed.
func (c *Collector) Summary(elapsed time.Duration) Summary {
	ser, deser := c.Percentiles()
	return Summarize(c.Snapshot(), elapsed, ser, deser)
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
