package threshold

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/torosent/wsbench/internal/metrics"
)

// Threshold represents a benchmark assertion that can pass or fail.
type Threshold struct {
	Metric    string  `json:"metric" yaml:"metric"`       // e.g., "serialization", "throughput"
	Aggregate string  `json:"aggregate" yaml:"aggregate"` // e.g., "avg", "p99", "rate"
	Operator  string  `json:"operator" yaml:"operator"`   // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 `json:"value" yaml:"value"`         // The threshold value to compare against
	Raw       string  `json:"raw" yaml:"raw"`             // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold `json:"threshold" yaml:"threshold"`
	Actual    float64   `json:"actual" yaml:"actual"`
	Pass      bool      `json:"pass" yaml:"pass"`
	Message   string    `json:"message" yaml:"message"`
}

// Evaluator evaluates thresholds against a run summary.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Evaluate checks all thresholds against the provided summary.
func (e *Evaluator) Evaluate(summary metrics.Summary) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, summary))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func evaluateOne(t Threshold, summary metrics.Summary) Result {
	actual, err := extractMetricValue(t, summary)
	if err != nil {
		return Result{
			Threshold: t,
			Pass:      false,
			Message:   fmt.Sprintf("✗ %s: %v", t.Raw, err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.4f %s %.4f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

var errNoData = errors.New(metrics.NoData)

var thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
// - "serialization:p99 < 0.05"     (encode time in ms)
// - "deserialization:avg < 0.02"   (decode time in ms)
// - "throughput:rate > 10000"      (received messages per second)
// - "message_size:avg <= 200"      (encoded bytes)
// - "messages:count >= 100000"     (received messages)
// - "messages:loss == 0"           (fraction of sent messages never echoed)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'serialization:p99 < 0.05')", s)
	}

	metric := matches[1]
	aggregate := matches[2]
	operator := matches[3]
	valueStr := matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	aggregates, ok := supported[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: serialization, deserialization, throughput, message_size, messages)", metric)
	}
	if !contains(aggregates, aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (use %s)", aggregate, metric, strings.Join(aggregates, ", "))
	}
	if !contains(operators, operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var problems []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			problems = append(problems, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(problems, "; "))
	}

	return result, nil
}

var supported = map[string][]string{
	"serialization":   {"avg", "p50", "p99"},
	"deserialization": {"avg", "p50", "p99"},
	"throughput":      {"rate"},
	"message_size":    {"avg"},
	"messages":        {"count", "loss"},
}

var operators = []string{"<", "<=", ">", ">=", "=="}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func extractMetricValue(t Threshold, s metrics.Summary) (float64, error) {
	var f metrics.Figure
	switch t.Metric + ":" + t.Aggregate {
	case "serialization:avg":
		f = s.AvgSerializationMs
	case "serialization:p50":
		f = s.SerializationP50Ms
	case "serialization:p99":
		f = s.SerializationP99Ms
	case "deserialization:avg":
		f = s.AvgDeserializationMs
	case "deserialization:p50":
		f = s.DeserializationP50Ms
	case "deserialization:p99":
		f = s.DeserializationP99Ms
	case "throughput:rate":
		f = s.ThroughputPerSec
	case "message_size:avg":
		f = s.AvgMessageSizeBytes
	case "messages:count":
		return float64(s.Received), nil
	case "messages:loss":
		if s.Sent == 0 {
			return 0, errNoData
		}
		return float64(s.Sent-s.Received) / float64(s.Sent), nil
	default:
		return 0, fmt.Errorf("unknown metric: %s:%s", t.Metric, t.Aggregate)
	}
	if !f.OK {
		return 0, errNoData
	}
	return f.Value, nil
}

func compareValues(actual float64, operator string, expected float64) bool {
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
