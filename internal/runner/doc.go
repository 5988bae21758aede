// Package runner drives one benchmark run over a single WebSocket connection.
//
// A run moves through [StateIdle], [StateConnecting], [StateOpen],
// [StateDraining] and finally [StateClosed]. Once the connection opens the
// runner burst-sends the configured number of encoded chat messages from the
// calling goroutine while a background goroutine decodes and counts the
// echoes:
//
//	r := runner.New(runner.Options{
//		URL:           "ws://localhost:8080/ws/chat",
//		Codec:         codec.NewMessagePack(),
//		TotalMessages: 1000,
//	})
//	res := r.Run(ctx)
//	if res.Partial {
//		// res.Err explains why the run stopped early
//	}
//
// # Pacing
//
// Sends are unpaced by default. [Options.Rate] spaces them with a
// golang.org/x/time/rate limiter.
//
// # Errors
//
// A failed dial yields a [*TransportError] and a result that never started.
// A read failure before the target count yields a [*PrematureCloseError]
// when the peer closed the socket, otherwise a [*TransportError]. A burst
// cut short is reported separately as [ErrSendAborted] because the receive
// loop keeps draining whatever was already sent. Nothing is retried.
package runner
