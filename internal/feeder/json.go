package feeder

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/torosent/wsbench/internal/codec"
)

// NewJSONFeeder creates a dataset from a JSON file containing an array of
// objects.
func NewJSONFeeder(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open JSON file: %w", err)
	}
	defer file.Close()

	var rawRecords []map[string]interface{}
	decoder := json.NewDecoder(file)
	// Keep ids exact; float64 would print large ones in exponent form.
	decoder.UseNumber()
	if err := decoder.Decode(&rawRecords); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}

	if len(rawRecords) == 0 {
		return nil, fmt.Errorf("JSON file contains empty array")
	}

	messages := make([]codec.ChatMessage, 0, len(rawRecords))
	for i, rawRecord := range rawRecords {
		record := make(Record, len(rawRecord))
		for key, value := range rawRecord {
			if value == nil {
				continue
			}
			record[key] = fmt.Sprintf("%v", value)
		}
		msg, err := toMessage(record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		messages = append(messages, msg)
	}

	return &Dataset{messages: messages}, nil
}
