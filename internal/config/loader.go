package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/torosent/wsbench/internal/codec"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and an optional configuration file.
// Flags override file settings; the positional format token overrides the
// file's format. The result is not validated; call Config.Validate.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd, cmd.OutOrStdout())
			return nil, ErrHelpRequested
		}
		return nil, newConfigError(err.Error())
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd, cmd.OutOrStdout())
			return nil, ErrHelpRequested
		}
	}

	positional := flagSet.Args()
	if len(positional) > 1 {
		return nil, newConfigError(fmt.Sprintf("expected at most one format argument, got %d", len(positional)))
	}

	configPath := flagSet.Lookup("config").Value.String()
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, newConfigError(fmt.Sprintf("read config %s: %v", configPath, err))
		}
	}

	cfg := Defaults()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, newConfigError(err.Error())
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, newConfigError(err.Error())
	}

	if len(positional) == 1 {
		cfg.Format = codec.Format(positional[0])
	}

	applyAuthEnv(&cfg.Auth)

	cfg.URL = strings.TrimSpace(cfg.URL)
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}

	return cfg, nil
}

// Defaults returns a Config populated with built-in defaults.
func Defaults() *Config {
	return &Config{
		Format:           DefaultFormat,
		URL:              DefaultURL,
		TotalMessages:    DefaultTotalMessages,
		ReportInterval:   DefaultReportInterval,
		HandshakeTimeout: DefaultHandshakeTimeout,
		Headers:          map[string]string{},
		Output:           OutputText,
		Log:              LogConfig{Level: "info"},
		Tracing:          TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "format"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("format: %w", err)
		}
		cfg.Format = codec.Format(strings.TrimSpace(val))
	}

	if raw, ok := lookupSetting(settings, "url", "target"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("url: %w", err)
		}
		cfg.URL = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		for k, v := range hdrs {
			cfg.Headers[http.CanonicalHeaderKey(k)] = v
		}
	}

	if raw, ok := lookupSetting(settings, "total", "total_messages"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("total: %w", err)
		}
		cfg.TotalMessages = val
	}

	if raw, ok := lookupSetting(settings, "reportinterval", "report_interval", "report-interval"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("reportInterval: %w", err)
		}
		cfg.ReportInterval = val
	}

	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = val
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "handshaketimeout", "handshake_timeout", "handshake-timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("handshakeTimeout: %w", err)
		}
		cfg.HandshakeTimeout = dur
	}

	if raw, ok := lookupSetting(settings, "writetimeout", "write_timeout", "write-timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("writeTimeout: %w", err)
		}
		cfg.WriteTimeout = dur
	}

	if raw, ok := lookupSetting(settings, "output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		cfg.Output = OutputFormat(strings.ToLower(strings.TrimSpace(val)))
	}

	if raw, ok := lookupSetting(settings, "resultsfile", "results_file", "results-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("resultsFile: %w", err)
		}
		cfg.ResultsFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "payloadfile", "payload_file", "payload-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("payloadFile: %w", err)
		}
		cfg.PayloadFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		thresholds, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = thresholds
	}

	if raw, ok := lookupSetting(settings, "auth"); ok {
		auth, err := parseAuthConfig(raw)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		cfg.Auth = auth
	}

	if raw, ok := lookupSetting(settings, "log"); ok {
		logCfg, err := parseLogConfig(raw, cfg.Log)
		if err != nil {
			return fmt.Errorf("log: %w", err)
		}
		cfg.Log = logCfg
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracingConfig(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}

	return nil
}

func parseAuthConfig(value interface{}) (AuthConfig, error) {
	var auth AuthConfig
	if value == nil {
		return auth, nil
	}
	settings, err := toStringKeyMap(value)
	if err != nil {
		return auth, err
	}
	if raw, ok := lookupSetting(settings, "statictoken", "static_token", "static-token", "token"); ok {
		val, err := asString(raw)
		if err != nil {
			return auth, fmt.Errorf("static_token: %w", err)
		}
		auth.StaticToken = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "tokenurl", "token_url", "token-url"); ok {
		val, err := asString(raw)
		if err != nil {
			return auth, fmt.Errorf("token_url: %w", err)
		}
		auth.TokenURL = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "clientid", "client_id", "client-id"); ok {
		val, err := asString(raw)
		if err != nil {
			return auth, fmt.Errorf("client_id: %w", err)
		}
		auth.ClientID = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "clientsecret", "client_secret", "client-secret"); ok {
		val, err := asString(raw)
		if err != nil {
			return auth, fmt.Errorf("client_secret: %w", err)
		}
		auth.ClientSecret = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "scopes"); ok {
		scopes, err := asStringSlice(raw)
		if err != nil {
			return auth, fmt.Errorf("scopes: %w", err)
		}
		auth.Scopes = scopes
	}
	return auth, nil
}

// applyAuthEnv fills secrets left empty by the config file.
func applyAuthEnv(auth *AuthConfig) {
	if auth.StaticToken == "" {
		auth.StaticToken = strings.TrimSpace(os.Getenv("WSBENCH_AUTH_STATIC_TOKEN"))
	}
	if auth.ClientSecret == "" {
		auth.ClientSecret = strings.TrimSpace(os.Getenv("WSBENCH_AUTH_CLIENT_SECRET"))
	}
}

func parseLogConfig(value interface{}, base LogConfig) (LogConfig, error) {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return base, err
	}
	if raw, ok := lookupSetting(settings, "level"); ok {
		val, err := asString(raw)
		if err != nil {
			return base, fmt.Errorf("level: %w", err)
		}
		base.Level = val
	}
	if raw, ok := lookupSetting(settings, "json"); ok {
		val, err := asBool(raw)
		if err != nil {
			return base, fmt.Errorf("json: %w", err)
		}
		base.JSON = val
	}
	return base, nil
}

func parseTracingConfig(value interface{}, base TracingConfig) (TracingConfig, error) {
	settings, err := toStringKeyMap(value)
	if err != nil {
		return base, err
	}
	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return base, fmt.Errorf("endpoint: %w", err)
		}
		base.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return base, fmt.Errorf("protocol: %w", err)
		}
		base.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return base, fmt.Errorf("insecure: %w", err)
		}
		base.Insecure = val
	}
	if raw, ok := lookupSetting(settings, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return base, fmt.Errorf("serviceName: %w", err)
		}
		base.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(settings, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return base, fmt.Errorf("sampleRate: %w", err)
		}
		base.SampleRate = val
	}
	if raw, ok := lookupSetting(settings, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return base, fmt.Errorf("propagate: %w", err)
		}
		base.Propagate = &val
	}
	return base, nil
}
