// Package clientmetrics keeps transport counters for a protocol client.
// Counters are atomic so the send and receive paths never contend.
package clientmetrics

import (
	"sync/atomic"
	"time"
)

// ClientMetrics tracks connection and frame statistics.
type ClientMetrics struct {
	connectedAt    atomic.Int64 // unix nanos; 0 when not connected
	disconnectedAt atomic.Int64 // unix nanos; 0 while connected
	messagesSent   atomic.Int64
	messagesRecv   atomic.Int64
	bytesSent      atomic.Int64
	bytesRecv      atomic.Int64
	errors         atomic.Int64
}

// New creates a new ClientMetrics instance.
func New() *ClientMetrics {
	return &ClientMetrics{}
}

// MarkConnected records the connection time.
func (m *ClientMetrics) MarkConnected() {
	m.disconnectedAt.Store(0)
	m.connectedAt.Store(time.Now().UnixNano())
}

// MarkDisconnected freezes the connection duration. Only the first call
// after MarkConnected counts.
func (m *ClientMetrics) MarkDisconnected() {
	if m.connectedAt.Load() == 0 {
		return
	}
	m.disconnectedAt.CompareAndSwap(0, time.Now().UnixNano())
}

// IncrementSent counts one sent frame of the given size.
func (m *ClientMetrics) IncrementSent(bytes int) {
	m.messagesSent.Add(1)
	m.bytesSent.Add(int64(bytes))
}

// IncrementReceived counts one received frame of the given size.
func (m *ClientMetrics) IncrementReceived(bytes int) {
	m.messagesRecv.Add(1)
	m.bytesRecv.Add(int64(bytes))
}

// IncrementErrors increments the error counter.
func (m *ClientMetrics) IncrementErrors() {
	m.errors.Add(1)
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	ConnectionDuration time.Duration `json:"connection_duration" yaml:"connection_duration"`
	MessagesSent       int64         `json:"frames_sent" yaml:"frames_sent"`
	MessagesReceived   int64         `json:"frames_received" yaml:"frames_received"`
	BytesSent          int64         `json:"bytes_sent" yaml:"bytes_sent"`
	BytesReceived      int64         `json:"bytes_received" yaml:"bytes_received"`
	Errors             int64         `json:"errors" yaml:"errors"`
}

// Snapshot returns the current counters. Individual fields are read
// atomically; the set is not a single consistent cut while traffic flows.
func (m *ClientMetrics) Snapshot() Snapshot {
	var duration time.Duration
	if at := m.connectedAt.Load(); at != 0 {
		if end := m.disconnectedAt.Load(); end != 0 {
			duration = time.Duration(end - at)
		} else {
			duration = time.Since(time.Unix(0, at))
		}
	}
	return Snapshot{
		ConnectionDuration: duration,
		MessagesSent:       m.messagesSent.Load(),
		MessagesReceived:   m.messagesRecv.Load(),
		BytesSent:          m.bytesSent.Load(),
		BytesReceived:      m.bytesRecv.Load(),
		Errors:             m.errors.Load(),
	}
}
