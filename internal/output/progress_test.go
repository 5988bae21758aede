package output

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/torosent/wsbench/internal/codec"
)

func TestProgressReporterLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf, codec.FormatProtobuf, 100000)

	p.Observe(1000)
	p.Observe(2000)

	want := "[Protobuf] received 1000 / 100000\n[Protobuf] received 2000 / 100000\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
	if p.Lines() != 2 {
		t.Errorf("Lines() = %d, want 2", p.Lines())
	}
}

func TestProgressReporterConcurrent(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressReporter(&buf, codec.FormatMessagePack, 100)

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			p.Observe(n * 10)
		}(int64(i))
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 10 {
		t.Errorf("lines = %d, want 10", len(lines))
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "[MessagePack] received ") {
			t.Errorf("malformed line %q", line)
		}
	}
}

func TestProgressReporterNilWriter(t *testing.T) {
	p := NewProgressReporter(nil, codec.FormatMessagePack, 1)
	p.Observe(1)
	if p.Lines() != 1 {
		t.Errorf("Lines() = %d, want 1", p.Lines())
	}
}
