package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/torosent/wsbench/internal/codec"
)

// ProgressReporter prints one progress line per observation. The runner
// observes once per report interval.
type ProgressReporter struct {
	mu     sync.Mutex
	writer io.Writer
	format codec.Format
	total  int
	lines  int
}

// NewProgressReporter creates a reporter for a run of total messages.
func NewProgressReporter(writer io.Writer, format codec.Format, total int) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{writer: writer, format: format, total: total}
}

// Observe prints the received count against the target.
func (p *ProgressReporter) Observe(received int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.writer, "[%s] received %d / %d\n", p.format, received, p.total)
	p.lines++
}

// Lines returns how many progress lines were printed.
func (p *ProgressReporter) Lines() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lines
}
