// Package config provides configuration loading and validation for wsbench.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/torosent/wsbench/internal/codec"
	"github.com/torosent/wsbench/internal/threshold"
)

// Defaults mirror the chat benchmark's fixed settings.
const (
	DefaultURL              = "ws://localhost:8080/ws/chat"
	DefaultTotalMessages    = 100000
	DefaultReportInterval   = 1000
	DefaultHandshakeTimeout = 30 * time.Second
	DefaultFormat           = codec.FormatMessagePack
)

type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

type Config struct {
	Format           codec.Format      `mapstructure:"format"`
	URL              string            `mapstructure:"url"`
	TotalMessages    int               `mapstructure:"total"`
	ReportInterval   int               `mapstructure:"report_interval"`
	Rate             int               `mapstructure:"rate"`
	Timeout          time.Duration     `mapstructure:"timeout"`
	HandshakeTimeout time.Duration     `mapstructure:"handshake_timeout"`
	WriteTimeout     time.Duration     `mapstructure:"write_timeout"`
	Headers          map[string]string `mapstructure:"headers"`
	Output           OutputFormat      `mapstructure:"output"`
	ResultsFile      string            `mapstructure:"results_file"`
	PayloadFile      string            `mapstructure:"payload_file"`
	Thresholds       []string          `mapstructure:"thresholds"`
	Auth             AuthConfig        `mapstructure:"auth"`
	Log              LogConfig         `mapstructure:"log"`
	Tracing          TracingConfig     `mapstructure:"tracing"`
	ConfigFile       string            `mapstructure:"-"`
}

// AuthConfig supplies handshake credentials. Secrets may come from
// WSBENCH_AUTH_STATIC_TOKEN and WSBENCH_AUTH_CLIENT_SECRET instead of the
// config file.
type AuthConfig struct {
	StaticToken  string   `mapstructure:"static_token"`
	TokenURL     string   `mapstructure:"token_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TracingConfig configures OpenTelemetry export. Tracing stays disabled
// unless an endpoint is set here or via OTEL_EXPORTER_OTLP_ENDPOINT.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" (default) or "http"
	Insecure    bool    `mapstructure:"insecure"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Propagate   *bool   `mapstructure:"propagate"`
}

// Enabled reports whether any tracing option was configured.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != "" || strings.TrimSpace(t.ServiceName) != ""
}

// ShouldPropagate reports whether trace context is injected into the
// WebSocket handshake. Defaults to true when tracing is enabled.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

// ConfigError reports invalid or missing configuration. It is fatal and
// raised before any connection attempt.
type ConfigError struct {
	issues []string
}

func newConfigError(issues ...string) *ConfigError {
	return &ConfigError{issues: issues}
}

func (e *ConfigError) Error() string {
	if len(e.issues) == 0 {
		return "invalid configuration"
	}
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.issues, "; "))
}

func (e *ConfigError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks the configuration and returns a *ConfigError listing every
// problem found.
func (c Config) Validate() error {
	var issues []string

	if _, err := codec.ParseFormat(string(c.Format)); err != nil {
		issues = append(issues, fmt.Sprintf("format must be %s or %s, got %q", codec.FormatMessagePack, codec.FormatProtobuf, string(c.Format)))
	}

	if strings.TrimSpace(c.URL) == "" {
		issues = append(issues, "url is required")
	} else if u, err := url.Parse(c.URL); err != nil {
		issues = append(issues, fmt.Sprintf("url is invalid: %v", err))
	} else if u.Scheme != "ws" && u.Scheme != "wss" {
		issues = append(issues, fmt.Sprintf("url scheme must be ws or wss, got %q", u.Scheme))
	}

	if c.TotalMessages < 1 {
		issues = append(issues, "total must be at least 1")
	}
	if c.ReportInterval < 1 {
		issues = append(issues, "report-interval must be at least 1")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be non-negative")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be non-negative")
	}
	if c.HandshakeTimeout < 0 {
		issues = append(issues, "handshake-timeout must be non-negative")
	}
	if c.WriteTimeout < 0 {
		issues = append(issues, "write-timeout must be non-negative")
	}

	switch c.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		issues = append(issues, fmt.Sprintf("output must be text, json or yaml, got %q", string(c.Output)))
	}

	issues = append(issues, validateAuthConfig(c.Auth)...)

	if _, err := threshold.ParseMultiple(c.Thresholds); err != nil {
		issues = append(issues, err.Error())
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, "tracing sample rate must be between 0 and 1")
	}
	switch strings.ToLower(c.Tracing.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing protocol must be grpc or http, got %q", c.Tracing.Protocol))
	}

	if len(issues) > 0 {
		return newConfigError(issues...)
	}
	return nil
}

func validateAuthConfig(auth AuthConfig) []string {
	if auth.StaticToken != "" || auth.TokenURL == "" {
		return nil
	}
	var issues []string
	if u, err := url.Parse(auth.TokenURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		issues = append(issues, fmt.Sprintf("auth: token_url must be an http or https URL, got %q", auth.TokenURL))
	}
	if strings.TrimSpace(auth.ClientID) == "" {
		issues = append(issues, "auth: client_id is required with token_url")
	}
	return issues
}
