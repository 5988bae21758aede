package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/torosent/wsbench/internal/auth"
	"github.com/torosent/wsbench/internal/codec"
	"github.com/torosent/wsbench/internal/config"
	"github.com/torosent/wsbench/internal/feeder"
	"github.com/torosent/wsbench/internal/logging"
	"github.com/torosent/wsbench/internal/output"
	"github.com/torosent/wsbench/internal/runner"
	"github.com/torosent/wsbench/internal/threshold"
	"github.com/torosent/wsbench/internal/tracing"
)

const (
	exitIncomplete  = 1
	exitConfigError = 2

	tracingShutdownTimeout = 5 * time.Second
)

var (
	// errIncomplete wraps the cause of a run that printed a partial report.
	errIncomplete = errors.New("run did not complete")

	errThresholdsFailed = errors.New("one or more thresholds failed")
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		config.PrintUsage(stderr)
		return err
	}
	if err := cfg.Validate(); err != nil {
		config.PrintUsage(stderr)
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	logger := logging.NewWithWriter(logging.Config{Level: cfg.Log.Level, JSON: cfg.Log.JSON}, stderr)

	c, err := codec.New(cfg.Format)
	if err != nil {
		return err
	}

	var payload func(int) codec.ChatMessage
	if cfg.PayloadFile != "" {
		ds, err := feeder.Load(cfg.PayloadFile)
		if err != nil {
			return err
		}
		payload = ds.Payload
		logger.Info().Str("path", cfg.PayloadFile).Int("records", ds.Len()).Msg("loaded payload file")
	}

	headers := toHTTPHeader(cfg.Headers)
	provider, err := auth.New(auth.Config{
		Token:        cfg.Auth.StaticToken,
		TokenURL:     cfg.Auth.TokenURL,
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		Scopes:       cfg.Auth.Scopes,
	})
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}
	if provider != nil {
		defer provider.Close()
		if err := provider.InjectHeader(ctx, headers); err != nil {
			return fmt.Errorf("authenticate: %w", err)
		}
	}

	tp, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	// Structured reports own stdout, so progress moves to stderr.
	progressOut := stdout
	if cfg.Output != config.OutputText {
		progressOut = stderr
	}

	r := runner.New(runner.Options{
		URL:              cfg.URL,
		Codec:            c,
		TotalMessages:    cfg.TotalMessages,
		ReportInterval:   cfg.ReportInterval,
		Rate:             cfg.Rate,
		Timeout:          cfg.Timeout,
		HandshakeTimeout: cfg.HandshakeTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		Headers:          headers,
		Payload:          payload,
		Progress:         output.NewProgressReporter(progressOut, cfg.Format, cfg.TotalMessages),
		Logger:           &logger,
		Tracer:           tp.Tracer(),
		Propagate:        tp.ShouldPropagate(),
	})

	res := r.Run(ctx)
	if !res.Started {
		// Nothing was measured, so there is no report to print.
		return res.Err
	}

	report := output.NewReport(res, cfg.URL)
	report.Thresholds = threshold.NewEvaluator(thresholds).Evaluate(res.Summary)
	if err := printReport(stdout, cfg.Output, report); err != nil {
		return err
	}

	if cfg.ResultsFile != "" {
		if err := output.AppendResultsFile(cfg.ResultsFile, report); err != nil {
			return err
		}
		logger.Debug().Str("path", cfg.ResultsFile).Msg("appended results")
	}

	if res.Partial {
		return fmt.Errorf("%w: %w", errIncomplete, res.Err)
	}
	if !threshold.AllPassed(report.Thresholds) {
		return errThresholdsFailed
	}
	return nil
}

func printReport(w io.Writer, format config.OutputFormat, report output.Report) error {
	switch format {
	case config.OutputJSON:
		return output.PrintJSONReport(w, report)
	case config.OutputYAML:
		return output.PrintYAMLReport(w, report)
	default:
		output.PrintReport(w, report)
		return nil
	}
}

func toHTTPHeader(headers map[string]string) http.Header {
	h := make(http.Header, len(headers))
	for k, v := range headers {
		h.Set(k, v)
	}
	return h
}

func exitCode(err error) int {
	var cfgErr *config.ConfigError
	var fmtErr *codec.FormatError
	var dsErr *feeder.DatasetError
	if errors.As(err, &cfgErr) || errors.As(err, &fmtErr) || errors.As(err, &dsErr) {
		return exitConfigError
	}
	return exitIncomplete
}
