// Package websocket wraps a single gorilla/websocket client connection with
// binary-frame helpers and transport counters.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/torosent/wsbench/internal/clientmetrics"
)

// Frame types re-exported so callers need not import gorilla directly.
const (
	TextMessage   = websocket.TextMessage
	BinaryMessage = websocket.BinaryMessage
)

// ErrNotConnected is returned when the client has no open connection.
var ErrNotConnected = errors.New("websocket not connected")

// Message represents a WebSocket message to send or receive.
type Message struct {
	Type int // TextMessage or BinaryMessage
	Data []byte
}

// Metrics captures transport-level counters for the connection.
type Metrics = clientmetrics.Snapshot

// Client represents a WebSocket client connection.
type Client struct {
	url          string
	headers      http.Header
	dialer       *websocket.Dialer
	readTimeout  time.Duration
	writeTimeout time.Duration
	readLimit    int64

	writeMu sync.Mutex // serializes data frames; gorilla allows one writer

	mu      sync.Mutex
	conn    *websocket.Conn
	metrics *clientmetrics.ClientMetrics
}

// Config configures the WebSocket client behavior.
type Config struct {
	URL              string
	Headers          http.Header
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration // 0 disables the per-read deadline
	WriteTimeout     time.Duration // 0 disables the per-write deadline
	MaxMessageSize   int64
}

// NewClient creates a new WebSocket client with the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 30 * time.Second
	}

	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = 1024 * 1024 // 1MB default
	}

	dialer := &websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}

	return &Client{
		url:          cfg.URL,
		headers:      cfg.Headers,
		dialer:       dialer,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		readLimit:    cfg.MaxMessageSize,
		metrics:      clientmetrics.New(),
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return fmt.Errorf("already connected")
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.headers)
	if err != nil {
		c.metrics.IncrementErrors()
		if resp != nil {
			return fmt.Errorf("websocket dial failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("websocket dial failed: %w", err)
	}
	conn.SetReadLimit(c.readLimit)

	c.conn = conn
	c.metrics.MarkConnected()

	return nil
}

// IsOpen reports whether the connection can currently send.
func (c *Client) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// SendBinary writes data as a single binary frame.
func (c *Client) SendBinary(ctx context.Context, data []byte) error {
	return c.SendMessage(ctx, Message{Type: BinaryMessage, Data: data})
}

// SendMessage sends a message over the WebSocket connection.
func (c *Client) SendMessage(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	if c.writeTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	err := conn.WriteMessage(msg.Type, msg.Data)
	c.writeMu.Unlock()

	if err != nil {
		c.metrics.IncrementErrors()
		return fmt.Errorf("write message: %w", err)
	}
	c.metrics.IncrementSent(len(msg.Data))

	return nil
}

// ReceiveMessage reads the next message from the connection. It blocks until
// a frame arrives, the read deadline passes or the connection closes.
func (c *Client) ReceiveMessage(ctx context.Context) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return Message{}, ErrNotConnected
	}

	if c.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	}
	msgType, data, err := conn.ReadMessage()
	if err != nil {
		c.metrics.IncrementErrors()
		return Message{}, fmt.Errorf("read message: %w", err)
	}
	c.metrics.IncrementReceived(len(data))

	return Message{Type: msgType, Data: data}, nil
}

// Close closes the WebSocket connection gracefully. It is safe to call more
// than once and from a goroutine other than the reader or writer; a blocked
// read or write returns with an error.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	// Send close frame
	err := conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(5*time.Second),
	)

	closeErr := conn.Close()
	c.metrics.MarkDisconnected()

	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return err
	}

	return closeErr
}

// Metrics returns the current metrics snapshot.
func (c *Client) Metrics() Metrics {
	return c.metrics.Snapshot()
}

// CloseStatus extracts the close code and reason when err came from the peer
// closing the connection (including an abrupt TCP close).
func CloseStatus(err error) (code int, reason string, ok bool) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code, closeErr.Text, true
	}
	return 0, "", false
}
