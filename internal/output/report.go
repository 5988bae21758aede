package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/torosent/wsbench/internal/codec"
	"github.com/torosent/wsbench/internal/metrics"
	"github.com/torosent/wsbench/internal/runner"
	"github.com/torosent/wsbench/internal/threshold"
	"github.com/torosent/wsbench/internal/websocket"
)

// Report is everything printed for one run.
type Report struct {
	RunID     string          `json:"run_id" yaml:"run_id"`
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
	Format    codec.Format    `json:"format" yaml:"format"`
	URL       string          `json:"url,omitempty" yaml:"url,omitempty"`
	Target    int             `json:"total_messages" yaml:"total_messages"`
	Partial   bool            `json:"partial" yaml:"partial"`
	Summary   metrics.Summary `json:"metrics" yaml:"metrics"`
	Error     string          `json:"error,omitempty" yaml:"error,omitempty"`

	Transport  websocket.Metrics  `json:"transport" yaml:"transport"`
	Thresholds []threshold.Result `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
}

// NewReport builds the printable report for a finished run.
func NewReport(res runner.Result, url string) Report {
	r := Report{
		RunID:     res.RunID,
		Timestamp: time.Now().UTC(),
		Format:    res.Format,
		URL:       url,
		Target:    res.Target,
		Partial:   res.Partial,
		Summary:   res.Summary,
		Transport: res.Transport,
	}
	if res.Err != nil {
		r.Error = res.Err.Error()
	}
	return r
}

// PrintReport outputs the human-readable summary. The first block keeps a
// fixed order: format, partial warning, counts, elapsed, throughput and the
// three averages.
func PrintReport(w io.Writer, r Report) {
	s := r.Summary
	fmt.Fprintln(w, "\n--- Benchmark Results ---")
	fmt.Fprintf(w, "Format:                  %s\n", r.Format)
	if r.Partial {
		fmt.Fprintln(w, "WARNING: the run did not complete; partial results below.")
	}
	fmt.Fprintf(w, "Total Messages:          %d (sent: %d, received: %d)\n", r.Target, s.Sent, s.Received)
	fmt.Fprintf(w, "Elapsed:                 %.2f ms\n", s.ElapsedMs)
	fmt.Fprintf(w, "Throughput:              %s\n", withUnit(s.ThroughputPerSec, 2, "msg/sec"))
	fmt.Fprintf(w, "Avg Serialization:       %s\n", withUnit(s.AvgSerializationMs, 4, "ms"))
	fmt.Fprintf(w, "Avg Deserialization:     %s\n", withUnit(s.AvgDeserializationMs, 4, "ms"))
	fmt.Fprintf(w, "Avg Message Size:        %s\n", withUnit(s.AvgMessageSizeBytes, 2, "bytes"))

	fmt.Fprintln(w, "\nLatency Percentiles:")
	fmt.Fprintf(w, "  Serialization P50:     %s\n", withUnit(s.SerializationP50Ms, 4, "ms"))
	fmt.Fprintf(w, "  Serialization P99:     %s\n", withUnit(s.SerializationP99Ms, 4, "ms"))
	fmt.Fprintf(w, "  Deserialization P50:   %s\n", withUnit(s.DeserializationP50Ms, 4, "ms"))
	fmt.Fprintf(w, "  Deserialization P99:   %s\n", withUnit(s.DeserializationP99Ms, 4, "ms"))

	if len(r.Thresholds) > 0 {
		passed := 0
		for _, res := range r.Thresholds {
			if res.Pass {
				passed++
			}
		}
		fmt.Fprintf(w, "\nThresholds (%d/%d passed):\n", passed, len(r.Thresholds))
		for _, res := range r.Thresholds {
			fmt.Fprintf(w, "  %s\n", res.Message)
		}
	}

	if r.RunID != "" {
		fmt.Fprintf(w, "\nRun ID:                  %s\n", r.RunID)
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Error:                   %s\n", r.Error)
	}
	fmt.Fprintln(w, "--- End of Results ---")
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, r Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}
	return enc.Close()
}

func withUnit(f metrics.Figure, prec int, unit string) string {
	if !f.OK {
		return metrics.NoData
	}
	return f.Format(prec) + " " + unit
}
