// Command echo_server serves a local WebSocket echo endpoint for manual
// wsbench runs.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/torosent/wsbench/internal/codec"
	"github.com/torosent/wsbench/internal/echoserver"
	"github.com/torosent/wsbench/internal/logging"
)

func main() {
	port := pflag.Int("port", 8080, "Listening port")
	path := pflag.String("path", "/ws/chat", "WebSocket endpoint path")
	closeAfter := pflag.Int("close-after", 0, "Close each connection after N echoes (0 never closes)")
	greeting := pflag.String("greeting", "", "Text frame sent after each upgrade")
	validate := pflag.String("validate", "", "Reject frames that do not decode as MessagePack or Protobuf")
	logLevel := pflag.String("log-level", "info", "Log level")
	pflag.Parse()

	log := logging.New(logging.Config{Level: *logLevel})

	opts := echoserver.Options{
		CloseAfter: *closeAfter,
		Greeting:   *greeting,
		Logger:     &log,
	}
	if *validate != "" {
		c, err := codec.New(codec.Format(*validate))
		if err != nil {
			log.Fatal().Err(err).Msg("invalid --validate format")
		}
		opts.Codec = c
	}

	mux := http.NewServeMux()
	mux.Handle(*path, echoserver.New(opts))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Str("addr", srv.Addr).Str("path", *path).Msg("echo server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("echo server stopped")
		os.Exit(1)
	}
}
