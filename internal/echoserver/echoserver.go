// Package echoserver serves a WebSocket endpoint that echoes every frame back
// unchanged. It stands in for the chat server during tests and local runs.
package echoserver

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/torosent/wsbench/internal/codec"
)

// CloseReason is sent with the close frame once CloseAfter echoes were served.
const CloseReason = "echo limit reached"

// Options shape the echo behaviour.
type Options struct {
	// CloseAfter closes each connection after that many echoes. Zero never
	// closes from the server side.
	CloseAfter int
	// Greeting, when set, is sent as a text frame right after the upgrade.
	Greeting string
	// Codec, when set, rejects binary frames it cannot decode by closing with
	// CloseUnsupportedData.
	Codec  codec.Codec
	Logger *zerolog.Logger
}

// Handler is an http.Handler that upgrades to WebSocket and echoes.
type Handler struct {
	opt      Options
	log      zerolog.Logger
	upgrader websocket.Upgrader

	connections atomic.Int64
	echoed      atomic.Int64
}

func New(opt Options) *Handler {
	log := zerolog.Nop()
	if opt.Logger != nil {
		log = *opt.Logger
	}
	return &Handler{
		opt: opt,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Connections returns how many connections were upgraded.
func (h *Handler) Connections() int64 { return h.connections.Load() }

// Echoed returns how many frames were echoed across all connections.
func (h *Handler) Echoed() int64 { return h.echoed.Load() }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	h.connections.Add(1)

	if h.opt.Greeting != "" {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(h.opt.Greeting)); err != nil {
			return
		}
	}

	served := 0
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug().Err(err).Int("echoed", served).Msg("connection ended")
			}
			return
		}

		if msgType == websocket.BinaryMessage && h.opt.Codec != nil {
			if _, err := h.opt.Codec.Decode(data); err != nil {
				h.log.Warn().Err(err).Msg("rejecting undecodable frame")
				h.closeGracefully(conn, websocket.CloseUnsupportedData, "undecodable payload")
				return
			}
		}

		if err := conn.WriteMessage(msgType, data); err != nil {
			return
		}
		served++
		h.echoed.Add(1)

		if h.opt.CloseAfter > 0 && served >= h.opt.CloseAfter {
			h.log.Debug().Int("echoed", served).Msg("closing after echo limit")
			h.closeGracefully(conn, websocket.CloseGoingAway, CloseReason)
			return
		}
	}
}

// closeGracefully sends a close frame and discards inbound frames until the
// peer answers, so unread client data does not turn the close into a reset.
func (h *Handler) closeGracefully(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(5 * time.Second)
	msg := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	_ = conn.SetReadDeadline(deadline)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
