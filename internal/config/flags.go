package config

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/torosent/wsbench/internal/codec"
)

// UsageLine is the one-line invocation summary.
var UsageLine = fmt.Sprintf("wsbench [flags] [%s | %s]", codec.FormatMessagePack, codec.FormatProtobuf)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           UsageLine,
		Short:         "Benchmark MessagePack vs Protobuf chat payloads over a WebSocket echo",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

func configureFlags(flags *pflag.FlagSet) {
	// Target
	flags.String("url", DefaultURL, "WebSocket chat endpoint")
	flags.StringSlice("header", nil, "Additional handshake header in key=value form")
	flags.Duration("handshake-timeout", DefaultHandshakeTimeout, "WebSocket handshake timeout")
	flags.Duration("write-timeout", 0, "Per-frame write timeout (0 disables)")

	// Run shape
	flags.IntP("total", "t", DefaultTotalMessages, "Number of messages to send and expect back")
	flags.Int("report-interval", DefaultReportInterval, "Print a progress line every N received messages")
	flags.IntP("rate", "r", 0, "Pace the send burst to N messages per second (0 means unpaced)")
	flags.Duration("timeout", 0, "Abort the run after this wall-clock duration (0 disables)")
	flags.String("payload-file", "", "Send chat messages from a CSV or JSON file, round-robin")
	flags.StringSlice("threshold", nil, "Benchmark thresholds (repeatable, e.g., 'serialization:p99 < 0.05')")

	// Output
	flags.StringP("output", "o", string(OutputText), "Report format: text, json or yaml")
	flags.String("results-file", "", "Append a JSON line per run to this file")
	flags.String("log-level", "info", "Log level: debug, info, warn, error or off")
	flags.Bool("log-json", false, "Emit logs as JSON")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: grpc or http")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("tracing-sample-rate", 1.0, "Trace sampling ratio between 0 and 1")
}

// PrintUsage writes the usage line and flag defaults to w.
func PrintUsage(w io.Writer) {
	cmd := newFlagCommand()
	displayHelp(cmd, w)
}

func displayHelp(cmd *cobra.Command, out io.Writer) {
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.Use)
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("url") {
		val, err := fs.GetString("url")
		if err != nil {
			return err
		}
		cfg.URL = strings.TrimSpace(val)
	}
	if fs.Changed("header") {
		vals, err := fs.GetStringSlice("header")
		if err != nil {
			return err
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for _, raw := range vals {
			key, value, ok := strings.Cut(raw, "=")
			key = strings.TrimSpace(key)
			if !ok || key == "" {
				return newConfigError(fmt.Sprintf("header %q must be key=value", raw))
			}
			cfg.Headers[http.CanonicalHeaderKey(key)] = strings.TrimSpace(value)
		}
	}
	if fs.Changed("handshake-timeout") {
		val, err := fs.GetDuration("handshake-timeout")
		if err != nil {
			return err
		}
		cfg.HandshakeTimeout = val
	}
	if fs.Changed("write-timeout") {
		val, err := fs.GetDuration("write-timeout")
		if err != nil {
			return err
		}
		cfg.WriteTimeout = val
	}
	if fs.Changed("total") {
		val, err := fs.GetInt("total")
		if err != nil {
			return err
		}
		cfg.TotalMessages = val
	}
	if fs.Changed("report-interval") {
		val, err := fs.GetInt("report-interval")
		if err != nil {
			return err
		}
		cfg.ReportInterval = val
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("payload-file") {
		val, err := fs.GetString("payload-file")
		if err != nil {
			return err
		}
		cfg.PayloadFile = strings.TrimSpace(val)
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}
	if fs.Changed("output") {
		val, err := fs.GetString("output")
		if err != nil {
			return err
		}
		cfg.Output = OutputFormat(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("results-file") {
		val, err := fs.GetString("results-file")
		if err != nil {
			return err
		}
		cfg.ResultsFile = strings.TrimSpace(val)
	}
	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.Log.Level = val
	}
	if fs.Changed("log-json") {
		val, err := fs.GetBool("log-json")
		if err != nil {
			return err
		}
		cfg.Log.JSON = val
	}
	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	return nil
}
