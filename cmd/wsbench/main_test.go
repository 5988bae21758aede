package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/torosent/wsbench/internal/config"
	"github.com/torosent/wsbench/internal/echoserver"
	"github.com/torosent/wsbench/internal/runner"
)

func startEcho(t *testing.T, opt echoserver.Options) (*echoserver.Handler, string) {
	t.Helper()
	h := echoserver.New(opt)
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return h, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/chat"
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = run(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), err
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	h, url := startEcho(t, echoserver.Options{})

	stdout, stderr, err := runCLI(t, "--url", url, "Avro")

	var cfgErr *config.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("run() error = %v, want *ConfigError", err)
	}
	if code := exitCode(err); code != exitConfigError {
		t.Errorf("exitCode() = %d, want %d", code, exitConfigError)
	}
	if !strings.Contains(stderr, "Usage: wsbench") {
		t.Errorf("stderr missing usage:\n%s", stderr)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want empty", stdout)
	}
	if h.Connections() != 0 {
		t.Errorf("Connections() = %d, want no dial before validation", h.Connections())
	}
}

func TestRunRejectsExtraArguments(t *testing.T) {
	_, stderr, err := runCLI(t, "MessagePack", "Protobuf")
	if exitCode(err) != exitConfigError {
		t.Fatalf("run() error = %v, want config error", err)
	}
	if !strings.Contains(stderr, "Usage:") {
		t.Errorf("stderr missing usage:\n%s", stderr)
	}
}

func TestRunCompletes(t *testing.T) {
	for _, format := range []string{"MessagePack", "Protobuf"} {
		t.Run(format, func(t *testing.T) {
			_, url := startEcho(t, echoserver.Options{})

			stdout, _, err := runCLI(t, "--url", url, "--total", "5", "--log-level", "off", format)
			if err != nil {
				t.Fatalf("run() error = %v", err)
			}
			for _, want := range []string{
				"--- Benchmark Results ---",
				"Format:                  " + format,
				"Total Messages:          5 (sent: 5, received: 5)",
				" msg/sec",
			} {
				if !strings.Contains(stdout, want) {
					t.Errorf("stdout missing %q:\n%s", want, stdout)
				}
			}
			if strings.Contains(stdout, "WARNING") {
				t.Errorf("complete run printed partial warning:\n%s", stdout)
			}
		})
	}
}

func TestRunDefaultsToMessagePack(t *testing.T) {
	_, url := startEcho(t, echoserver.Options{})

	stdout, _, err := runCLI(t, "--url", url, "--total", "3", "--log-level", "off")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(stdout, "Format:                  MessagePack") {
		t.Errorf("default format not MessagePack:\n%s", stdout)
	}
}

func TestRunPartial(t *testing.T) {
	_, url := startEcho(t, echoserver.Options{CloseAfter: 10})

	stdout, stderr, err := runCLI(t, "--url", url, "--total", "100", "--report-interval", "5", "MessagePack")
	if err == nil {
		t.Fatal("run() error = nil, want partial run error")
	}
	if !errors.Is(err, errIncomplete) {
		t.Errorf("run() error = %v, want errIncomplete", err)
	}
	var closeErr *runner.PrematureCloseError
	if !errors.As(err, &closeErr) {
		t.Errorf("run() error = %v, want PrematureCloseError cause", err)
	}
	if code := exitCode(err); code != exitIncomplete {
		t.Errorf("exitCode() = %d, want %d", code, exitIncomplete)
	}

	if !strings.Contains(stdout, "WARNING") {
		t.Errorf("stdout missing partial warning:\n%s", stdout)
	}
	if !strings.Contains(stdout, "Total Messages:          100 (sent: ") || !strings.Contains(stdout, "received: 10)") {
		t.Errorf("stdout missing 100 vs 10 discrepancy:\n%s", stdout)
	}
	if got := strings.Count(stdout, "[MessagePack] received "); got != 2 {
		t.Errorf("progress lines = %d, want 2", got)
	}
	if !strings.Contains(stderr, "received 10 of 100") {
		t.Errorf("stderr missing logged discrepancy:\n%s", stderr)
	}
}

func TestRunProgressLines(t *testing.T) {
	_, url := startEcho(t, echoserver.Options{})

	stdout, _, err := runCLI(t, "--url", url, "--total", "200", "--report-interval", "20", "--log-level", "off", "Protobuf")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := strings.Count(stdout, "[Protobuf] received "); got != 10 {
		t.Errorf("progress lines = %d, want 10", got)
	}
	if last := strings.LastIndex(stdout, "[Protobuf] received 200 / 200"); last < 0 || last > strings.Index(stdout, "--- Benchmark Results ---") {
		t.Errorf("final progress line should precede the report:\n%s", stdout)
	}
}

func TestRunJSONOutput(t *testing.T) {
	_, url := startEcho(t, echoserver.Options{})

	stdout, stderr, err := runCLI(t, "--url", url, "--total", "10", "--report-interval", "5", "--output", "json", "--log-level", "off")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !gjson.Valid(stdout) {
		t.Fatalf("stdout is not JSON:\n%s", stdout)
	}
	if got := gjson.Get(stdout, "metrics.received").Int(); got != 10 {
		t.Errorf("metrics.received = %d, want 10", got)
	}
	if gjson.Get(stdout, "partial").Bool() {
		t.Error("partial = true, want false")
	}
	if gjson.Get(stdout, "run_id").String() == "" {
		t.Error("run_id missing")
	}
	if got := strings.Count(stderr, "[MessagePack] received "); got != 2 {
		t.Errorf("progress lines on stderr = %d, want 2", got)
	}
}

func TestRunResultsFile(t *testing.T) {
	_, url := startEcho(t, echoserver.Options{})
	path := filepath.Join(t.TempDir(), "results.jsonl")

	for _, format := range []string{"MessagePack", "Protobuf"} {
		if _, _, err := runCLI(t, "--url", url, "--total", "4", "--log-level", "off", "--results-file", path, format); err != nil {
			t.Fatalf("run(%s) error = %v", format, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("results lines = %d, want 2", len(lines))
	}
	if gjson.Get(lines[0], "format").String() != "MessagePack" || gjson.Get(lines[1], "format").String() != "Protobuf" {
		t.Errorf("results = %v", lines)
	}
}

func TestRunDialFailure(t *testing.T) {
	server := httptest.NewServer(nil)
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	server.Close()

	stdout, _, err := runCLI(t, "--url", url, "--total", "5", "--log-level", "off")

	var transportErr *runner.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("run() error = %v, want *TransportError", err)
	}
	if exitCode(err) != exitIncomplete {
		t.Errorf("exitCode() = %d, want %d", exitCode(err), exitIncomplete)
	}
	if strings.Contains(stdout, "Benchmark Results") {
		t.Errorf("report printed for a run that never started:\n%s", stdout)
	}
}

func TestRunThresholds(t *testing.T) {
	_, url := startEcho(t, echoserver.Options{})

	stdout, _, err := runCLI(t, "--url", url, "--total", "20", "--log-level", "off",
		"--threshold", "messages:loss == 0",
		"--threshold", "messages:count >= 20")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(stdout, "Thresholds (2/2 passed):") {
		t.Errorf("stdout missing threshold summary:\n%s", stdout)
	}

	stdout, _, err = runCLI(t, "--url", url, "--total", "20", "--log-level", "off",
		"--threshold", "messages:count > 20")
	if !errors.Is(err, errThresholdsFailed) {
		t.Fatalf("run() error = %v, want errThresholdsFailed", err)
	}
	if exitCode(err) != exitIncomplete {
		t.Errorf("exitCode() = %d, want %d", exitCode(err), exitIncomplete)
	}
	if !strings.Contains(stdout, "✗ messages:count > 20") {
		t.Errorf("stdout missing failed threshold:\n%s", stdout)
	}
}

func TestRunInvalidThreshold(t *testing.T) {
	h, url := startEcho(t, echoserver.Options{})

	_, _, err := runCLI(t, "--url", url, "--threshold", "latency:p95 < 10")
	if exitCode(err) != exitConfigError {
		t.Fatalf("run() error = %v, want config error", err)
	}
	if h.Connections() != 0 {
		t.Errorf("Connections() = %d, want 0", h.Connections())
	}
}

func TestRunPayloadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.csv")
	if err := os.WriteFile(path, []byte("chatRoomId,senderId,message\n1,1,a\n2,2,bbbbbbbbbb\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	_, url := startEcho(t, echoserver.Options{})

	stdout, _, err := runCLI(t, "--url", url, "--total", "4", "--log-level", "off",
		"--payload-file", path, "--output", "json", "Protobuf")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	// Protobuf: 2+2+3 bytes for "a", 2+2+12 bytes for the long message.
	if got := gjson.Get(stdout, "metrics.total_encoded_bytes").Int(); got != 2*(7+16) {
		t.Errorf("total_encoded_bytes = %d, want %d", got, 2*(7+16))
	}
	if got := gjson.Get(stdout, "metrics.received").Int(); got != 4 {
		t.Errorf("received = %d, want 4", got)
	}
}

func TestRunPayloadFileMissing(t *testing.T) {
	h, url := startEcho(t, echoserver.Options{})

	_, _, err := runCLI(t, "--url", url, "--payload-file", filepath.Join(t.TempDir(), "none.csv"))
	if exitCode(err) != exitConfigError {
		t.Fatalf("run() error = %v, want config error", err)
	}
	if h.Connections() != 0 {
		t.Errorf("Connections() = %d, want 0", h.Connections())
	}
}

// startAuthEcho records the handshake Authorization header before echoing.
func startAuthEcho(t *testing.T) (url string, authHeader func() string) {
	t.Helper()
	h := echoserver.New(echoserver.Options{})
	headers := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case headers <- r.Header.Get("Authorization"):
		default:
		}
		h.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/chat", func() string {
		select {
		case v := <-headers:
			return v
		default:
			return ""
		}
	}
}

func TestRunStaticTokenFromEnv(t *testing.T) {
	t.Setenv("WSBENCH_AUTH_STATIC_TOKEN", "jwt-123")
	url, authHeader := startAuthEcho(t)

	if _, _, err := runCLI(t, "--url", url, "--total", "3", "--log-level", "off"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := authHeader(); got != "Bearer jwt-123" {
		t.Errorf("handshake Authorization = %q, want %q", got, "Bearer jwt-123")
	}
}

func TestRunOAuth2ClientCredentials(t *testing.T) {
	t.Setenv("WSBENCH_AUTH_STATIC_TOKEN", "")
	t.Setenv("WSBENCH_AUTH_CLIENT_SECRET", "")
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, secret, ok := r.BasicAuth(); !ok || id != "bench" || secret != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"issued","expires_in":3600}`))
	}))
	t.Cleanup(idp.Close)
	url, authHeader := startAuthEcho(t)

	path := filepath.Join(t.TempDir(), "wsbench.yaml")
	content := "auth:\n  token_url: " + idp.URL + "\n  client_id: bench\n  client_secret: s3cret\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, _, err := runCLI(t, "--config", path, "--url", url, "--total", "3", "--log-level", "off"); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if got := authHeader(); got != "Bearer issued" {
		t.Errorf("handshake Authorization = %q, want %q", got, "Bearer issued")
	}
}
