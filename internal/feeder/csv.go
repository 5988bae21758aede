package feeder

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/torosent/wsbench/internal/codec"
)

// NewCSVFeeder creates a dataset from the given CSV file path.
// The first row is treated as the header containing field names.
func NewCSVFeeder(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV file must have at least one header row and one data row")
	}

	header := rows[0]
	dataRows := rows[1:]

	messages := make([]codec.ChatMessage, 0, len(dataRows))
	for i, row := range dataRows {
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d has %d fields, expected %d", i+2, len(row), len(header))
		}

		record := make(Record, len(header))
		for j, field := range header {
			record[field] = row[j]
		}
		msg, err := toMessage(record)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		messages = append(messages, msg)
	}

	return &Dataset{messages: messages}, nil
}
