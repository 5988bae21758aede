package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"
)

// AppendResultsFile appends r as one JSON line to path. A sibling ".lock"
// file serializes writers so concurrent runs can share one results file.
func AppendResultsFile(path string, r Report) (err error) {
	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	line = append(line, '\n')

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock results file: %w", err)
	}
	defer func() {
		err = errors.Join(err, lock.Unlock())
	}()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open results file: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("write results file: %w", err)
	}
	return f.Close()
}
