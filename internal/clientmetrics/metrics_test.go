package clientmetrics

import (
	"sync"
	"testing"
	"time"
)

func TestSnapshotCounts(t *testing.T) {
	m := New()
	if got := m.Snapshot(); got != (Snapshot{}) {
		t.Fatalf("initial Snapshot() = %+v, want zero", got)
	}

	m.MarkConnected()
	m.IncrementSent(10)
	m.IncrementSent(5)
	m.IncrementReceived(7)
	m.IncrementErrors()
	time.Sleep(2 * time.Millisecond)

	got := m.Snapshot()
	if got.MessagesSent != 2 || got.BytesSent != 15 {
		t.Errorf("sent = %d/%d, want 2/15", got.MessagesSent, got.BytesSent)
	}
	if got.MessagesReceived != 1 || got.BytesReceived != 7 {
		t.Errorf("received = %d/%d, want 1/7", got.MessagesReceived, got.BytesReceived)
	}
	if got.Errors != 1 {
		t.Errorf("Errors = %d, want 1", got.Errors)
	}
	if got.ConnectionDuration < 2*time.Millisecond {
		t.Errorf("ConnectionDuration = %s, want >= 2ms", got.ConnectionDuration)
	}
}

func TestConnectionDurationFrozenOnDisconnect(t *testing.T) {
	m := New()
	m.MarkDisconnected()
	if got := m.Snapshot().ConnectionDuration; got != 0 {
		t.Fatalf("ConnectionDuration before connect = %s, want 0", got)
	}

	m.MarkConnected()
	time.Sleep(2 * time.Millisecond)
	m.MarkDisconnected()

	first := m.Snapshot().ConnectionDuration
	if first < 2*time.Millisecond {
		t.Fatalf("ConnectionDuration = %s, want >= 2ms", first)
	}

	time.Sleep(5 * time.Millisecond)
	m.MarkDisconnected()
	if got := m.Snapshot().ConnectionDuration; got != first {
		t.Errorf("ConnectionDuration after close = %s, want frozen at %s", got, first)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.IncrementSent(1)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.IncrementReceived(2)
			}
		}()
	}
	wg.Wait()

	got := m.Snapshot()
	if got.MessagesSent != 8000 || got.BytesReceived != 16000 {
		t.Errorf("Snapshot() = %+v", got)
	}
}
