package runner

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/torosent/wsbench/internal/codec"
	"github.com/torosent/wsbench/internal/logging"
	"github.com/torosent/wsbench/internal/metrics"
	"github.com/torosent/wsbench/internal/tracing"
	"github.com/torosent/wsbench/internal/websocket"
)

// Result is the outcome of one run.
type Result struct {
	RunID   string
	Format  codec.Format
	Target  int
	Metrics metrics.RunMetrics
	Summary metrics.Summary
	Elapsed time.Duration
	Started bool // false when the connection never opened
	Partial bool
	State   State
	Err     error // why the run ended early; nil when complete
	SendErr error // non-nil when the burst was cut short

	Transport websocket.Metrics // frame and byte counters seen by the client
}

// Complete reports whether every expected echo arrived.
func (r Result) Complete() bool {
	return r.Started && !r.Partial
}

// Runner executes benchmark runs over one WebSocket connection each.
type Runner struct {
	opt   Options
	state atomic.Int32
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// State returns the current lifecycle phase.
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Run connects, sends the burst, drains the echoes and closes. It blocks
// until the run completes, fails or ctx is done.
func (r *Runner) Run(ctx context.Context) Result {
	if r.opt.Codec == nil {
		return Result{State: StateClosed, Err: errors.New("runner: codec is required")}
	}

	runID := r.opt.RunID
	if runID == "" {
		runID = newRunID()
	}
	format := r.opt.Codec.Format()
	total := r.opt.TotalMessages
	log := r.opt.Logger.With().
		Str(logging.FieldRunID, runID).
		Str(logging.FieldFormat, string(format)).
		Logger()

	res := Result{RunID: runID, Format: format, Target: total}

	if r.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, r.opt.Timeout, ErrTimeout)
		defer cancel()
	}

	ctx, span := tracing.StartRunSpan(ctx, r.opt.Tracer, runID, string(format), r.opt.URL, total)

	r.setState(StateConnecting, log, span)
	log.Info().Str(logging.FieldURL, r.opt.URL).Msg("connecting")

	client := websocket.NewClient(websocket.Config{
		URL:              r.opt.URL,
		Headers:          r.handshakeHeaders(ctx),
		HandshakeTimeout: r.opt.HandshakeTimeout,
		WriteTimeout:     r.opt.WriteTimeout,
	})
	if err := client.Connect(ctx); err != nil {
		res.Err = &TransportError{Op: "dial", Err: err}
		res.State = StateClosed
		res.Transport = client.Metrics()
		r.setState(StateClosed, log, span)
		log.Error().Err(res.Err).Msg("connection failed")
		tracing.EndSpan(span, res.Err)
		return res
	}

	collector := metrics.NewCollector()
	r.setState(StateOpen, log, span)
	log.Info().Int(logging.FieldTarget, total).Msg("connected, sending messages")
	start := time.Now()
	res.Started = true

	recvCtx, stopRecv := context.WithCancelCause(ctx)
	defer stopRecv(nil)
	stopWatch := context.AfterFunc(recvCtx, func() { _ = client.Close() })
	defer stopWatch()

	var limit atomic.Int64
	limit.Store(-1)
	received := make(chan receiveOutcome, 1)
	go func() {
		received <- r.receive(recvCtx, client, collector, &limit, log)
	}()

	res.SendErr = r.sendBurst(ctx, client, collector, log)
	if res.SendErr != nil {
		// Drain what was already sent, then stop.
		sent, _ := collector.Counts()
		limit.Store(sent)
		if _, got := collector.Counts(); got >= sent {
			stopRecv(ErrSendAborted)
		}
	}

	outcome := <-received
	res.Elapsed = outcome.end.Sub(start)
	_ = client.Close()
	r.setState(StateClosed, log, span)
	res.State = StateClosed
	res.Transport = client.Metrics()
	log.Debug().
		Int64("frames_sent", res.Transport.MessagesSent).
		Int64("frames_received", res.Transport.MessagesReceived).
		Int64("bytes_sent", res.Transport.BytesSent).
		Int64("bytes_received", res.Transport.BytesReceived).
		Int64("transport_errors", res.Transport.Errors).
		Msg("connection closed")

	sent, got := collector.Counts()
	res.Err = outcome.err
	if errors.Is(res.Err, ErrSendAborted) && res.SendErr != nil {
		res.Err = res.SendErr
	}
	var closeErr *PrematureCloseError
	if errors.As(res.Err, &closeErr) {
		closeErr.Sent = sent
	}
	res.Partial = res.Err != nil
	res.Metrics = collector.Snapshot()
	res.Summary = collector.Summary(res.Elapsed)

	if res.Partial {
		log.Error().Err(res.Err).
			Int(logging.FieldTarget, total).
			Int64(logging.FieldSent, sent).
			Int64(logging.FieldReceived, got).
			Msgf("run ended early: sent %d, received %d of %d", sent, got, total)
	} else {
		log.Info().Int64(logging.FieldReceived, got).Dur("elapsed", res.Elapsed).Msg("run complete")
	}

	tracing.EndSpan(span, res.Err,
		tracing.AttrSent.Int64(sent),
		tracing.AttrReceived.Int64(got),
		tracing.AttrPartial.Bool(res.Partial),
	)
	return res
}

func (r *Runner) sendBurst(ctx context.Context, client *websocket.Client, collector *metrics.Collector, log zerolog.Logger) error {
	var limiter *rate.Limiter
	if r.opt.Rate > 0 {
		limiter = r.opt.LimiterFactory(r.opt.Rate)
	}

	for i := 1; i <= r.opt.TotalMessages; i++ {
		if state := r.State(); state != StateOpen || !client.IsOpen() {
			return r.abortSend(log, collector, i, fmt.Errorf("connection is %s", state))
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return r.abortSend(log, collector, i, err)
			}
		}

		payload := r.opt.Payload(i)
		begin := time.Now()
		data, err := r.opt.Codec.Encode(payload)
		collector.RecordSerialization(time.Since(begin))
		if err != nil {
			return r.abortSend(log, collector, i, err)
		}
		collector.RecordEncodedBytes(len(data))

		if err := client.SendBinary(ctx, data); err != nil {
			return r.abortSend(log, collector, i, &TransportError{Op: "write", Err: err})
		}
		collector.IncSent()
	}

	sent, _ := collector.Counts()
	log.Info().Int64(logging.FieldSent, sent).Msg("all messages sent")
	return nil
}

func (r *Runner) abortSend(log zerolog.Logger, collector *metrics.Collector, index int, cause error) error {
	sent, _ := collector.Counts()
	log.Warn().Err(cause).
		Int("message", index).
		Int64(logging.FieldSent, sent).
		Msgf("could not send message %d, aborting remaining sends", index)
	return fmt.Errorf("%w at message %d: %w", ErrSendAborted, index, cause)
}

type receiveOutcome struct {
	end time.Time
	err error
}

// receive decodes echoes until the target is reached, the send limit is
// drained or the connection fails.
func (r *Runner) receive(ctx context.Context, client *websocket.Client, collector *metrics.Collector, limit *atomic.Int64, log zerolog.Logger) receiveOutcome {
	target := int64(r.opt.TotalMessages)
	interval := int64(r.opt.ReportInterval)

	for {
		msg, err := client.ReceiveMessage(ctx)
		if err != nil {
			end := time.Now()
			r.state.CompareAndSwap(int32(StateOpen), int32(StateDraining))
			return receiveOutcome{end: end, err: r.readFailure(ctx, err, collector)}
		}

		if msg.Type != websocket.BinaryMessage {
			log.Warn().Int("bytes", len(msg.Data)).Msg("ignoring unexpected non-binary frame")
			continue
		}

		begin := time.Now()
		_, err = r.opt.Codec.Decode(msg.Data)
		took := time.Since(begin)
		if err != nil {
			log.Warn().Err(err).Msg("discarding frame that failed to decode")
			continue
		}
		collector.RecordDeserialization(took)
		n := collector.IncReceived()

		if n%interval == 0 && r.opt.Progress != nil {
			r.opt.Progress.Observe(n)
		}
		if n >= target {
			end := time.Now()
			r.state.CompareAndSwap(int32(StateOpen), int32(StateDraining))
			return receiveOutcome{end: end}
		}
		if lim := limit.Load(); lim >= 0 && n >= lim {
			end := time.Now()
			r.state.CompareAndSwap(int32(StateOpen), int32(StateDraining))
			return receiveOutcome{end: end, err: ErrSendAborted}
		}
	}
}

func (r *Runner) readFailure(ctx context.Context, err error, collector *metrics.Collector) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	if code, reason, ok := websocket.CloseStatus(err); ok {
		sent, received := collector.Counts()
		return &PrematureCloseError{
			Sent:     sent,
			Received: received,
			Target:   r.opt.TotalMessages,
			Code:     code,
			Reason:   reason,
			Err:      err,
		}
	}
	return &TransportError{Op: "read", Err: err}
}

func (r *Runner) setState(s State, log zerolog.Logger, span trace.Span) {
	r.state.Store(int32(s))
	log.Debug().Str(logging.FieldState, s.String()).Msg("state change")
	tracing.MarkPhase(span, s.String())
}

func (r *Runner) handshakeHeaders(ctx context.Context) http.Header {
	headers := r.opt.Headers.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	if r.opt.Propagate {
		tracing.InjectHTTPHeaders(ctx, headers)
	}
	return headers
}

func newRunID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
