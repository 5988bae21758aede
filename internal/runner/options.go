package runner

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"github.com/torosent/wsbench/internal/codec"
)

// Defaults applied by New when the corresponding option is unset.
const (
	DefaultTotalMessages  = 100000
	DefaultReportInterval = 1000
)

// ProgressObserver is told the received count once per report interval.
type ProgressObserver interface {
	Observe(received int64)
}

// Options configure the Runner.
type Options struct {
	URL              string
	Codec            codec.Codec                   // payload codec (required)
	TotalMessages    int                           // messages to send and expect back
	ReportInterval   int                           // progress every N received
	Rate             int                           // sends per second (0 means unpaced burst)
	Timeout          time.Duration                 // wall-clock cap for the run (0 means none)
	HandshakeTimeout time.Duration                 // websocket dial timeout
	WriteTimeout     time.Duration                 // per-frame write deadline (0 disables)
	Headers          http.Header                   // extra handshake headers
	RunID            string                        // generated when empty
	Payload          func(i int) codec.ChatMessage // message generator; i is 1-based
	Progress         ProgressObserver              // optional
	Logger           *zerolog.Logger               // lifecycle events and warnings
	Tracer           trace.Tracer                  // optional run span
	Propagate        bool                          // inject traceparent into the handshake
	LimiterFactory   func(rps int) *rate.Limiter   // optional injection for tests
}

func (o *Options) normalize() {
	if o.TotalMessages <= 0 {
		o.TotalMessages = DefaultTotalMessages
	}
	if o.ReportInterval <= 0 {
		o.ReportInterval = DefaultReportInterval
	}
	if o.Rate < 0 {
		o.Rate = 0
	}
	if o.Timeout < 0 {
		o.Timeout = 0
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	if o.Payload == nil {
		o.Payload = codec.DefaultPayload
	}
	if o.Tracer == nil {
		o.Tracer = noop.NewTracerProvider().Tracer("wsbench")
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst of one keeps sends evenly spaced.
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}
