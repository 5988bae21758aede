package config

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestAsString(t *testing.T) {
	tests := []struct {
		input interface{}
		want  string
	}{
		{"hello", "hello"},
		{123, "123"},
		{true, "true"},
		{nil, ""},
		{[]byte("bytes"), "bytes"},
	}

	for _, tt := range tests {
		got, err := asString(tt.input)
		if err != nil {
			t.Errorf("asString(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asString(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		input interface{}
		want  int
	}{
		{123, 123},
		{"456", 456},
		{" 7 ", 7},
		{int64(789), 789},
		{float64(10.0), 10},
		{json.Number("12"), 12},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asInt(tt.input)
		if err != nil {
			t.Errorf("asInt(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asInt(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}

	for _, bad := range []interface{}{[]int{1}, 1.5, "2.5", "many", float64(1 << 40)} {
		if _, err := asInt(bad); err == nil {
			t.Errorf("asInt(%v) expected error", bad)
		}
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		input interface{}
		want  bool
	}{
		{true, true},
		{"true", true},
		{"1", true},
		{false, false},
		{"0", false},
		{nil, false},
	}

	for _, tt := range tests {
		got, err := asBool(tt.input)
		if err != nil {
			t.Errorf("asBool(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asBool(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAsDuration(t *testing.T) {
	tests := []struct {
		input interface{}
		want  time.Duration
	}{
		{time.Second, time.Second},
		{"1m", time.Minute},
		{10, 10 * time.Second}, // int treated as seconds
		{0.5, 500 * time.Millisecond},
		{"2", 2 * time.Second},
		{" 250ms ", 250 * time.Millisecond},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asDuration(tt.input)
		if err != nil {
			t.Errorf("asDuration(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asDuration(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAsDurationInvalid(t *testing.T) {
	for _, bad := range []interface{}{"soon", true} {
		if _, err := asDuration(bad); err == nil {
			t.Errorf("asDuration(%v) expected error", bad)
		}
	}
}

func TestAsStringMap(t *testing.T) {
	got, err := asStringMap(map[interface{}]interface{}{"X-Room": 7, "x-trace": "on"})
	if err != nil {
		t.Fatalf("asStringMap() error = %v", err)
	}
	if got["X-Room"] != "7" || got["x-trace"] != "on" {
		t.Errorf("asStringMap() = %v", got)
	}

	if _, err := asStringMap(map[string]interface{}{" ": "v"}); err == nil {
		t.Error("asStringMap() with blank key expected error")
	}
	if _, err := asStringMap([]string{"a"}); err == nil {
		t.Error("asStringMap(slice) expected error")
	}
}

func TestToStringKeyMap(t *testing.T) {
	got, err := toStringKeyMap(map[string]string{" Token_URL ": "https://idp"})
	if err != nil {
		t.Fatalf("toStringKeyMap() error = %v", err)
	}
	if got["token_url"] != "https://idp" {
		t.Errorf("toStringKeyMap() = %v", got)
	}
	if _, err := toStringKeyMap("flat"); err == nil {
		t.Error("toStringKeyMap(string) expected error")
	}
}

func TestAsStringSlice(t *testing.T) {
	tests := []struct {
		input interface{}
		want  []string
	}{
		{[]string{"a", "b"}, []string{"a", "b"}},
		{[]interface{}{"a", 1}, []string{"a", "1"}},
		{"single", []string{"single"}},
		{nil, nil},
	}

	for _, tt := range tests {
		got, err := asStringSlice(tt.input)
		if err != nil {
			t.Errorf("asStringSlice(%v) error = %v", tt.input, err)
		}
		if strings.Join(got, ",") != strings.Join(tt.want, ",") || len(got) != len(tt.want) {
			t.Errorf("asStringSlice(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}

	if _, err := asStringSlice(42); err == nil {
		t.Error("asStringSlice(int) expected error")
	}
}

func TestApplyConfigSettingsAliases(t *testing.T) {
	cfg := Defaults()
	settings := map[string]interface{}{
		"target":           "ws://alias.example/ws",
		"total_messages":   42,
		"report-interval":  "7",
		"handshaketimeout": "3s",
		"tracing": map[interface{}]interface{}{
			"Service_Name": "bench",
			"sample-rate":  "0.25",
		},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		t.Fatalf("applyConfigSettings() error = %v", err)
	}
	if cfg.URL != "ws://alias.example/ws" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if cfg.TotalMessages != 42 || cfg.ReportInterval != 7 {
		t.Errorf("Total/Interval = %d/%d", cfg.TotalMessages, cfg.ReportInterval)
	}
	if cfg.HandshakeTimeout != 3*time.Second {
		t.Errorf("HandshakeTimeout = %s", cfg.HandshakeTimeout)
	}
	if cfg.Tracing.ServiceName != "bench" || cfg.Tracing.SampleRate != 0.25 {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if !cfg.Tracing.Enabled() {
		t.Error("service name alone should enable tracing")
	}
}

func TestApplyConfigSettingsBadValue(t *testing.T) {
	cfg := Defaults()
	err := applyConfigSettings(cfg, map[string]interface{}{"total": "many"})
	if err == nil {
		t.Fatal("expected error for non-numeric total")
	}
}
