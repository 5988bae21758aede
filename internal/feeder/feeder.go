// Package feeder loads chat payloads from CSV or JSON files so a benchmark
// can send real message content instead of the built-in sample.
package feeder

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/torosent/wsbench/internal/codec"
)

// Record represents a single row of data with named fields.
type Record map[string]string

// Feeder supplies the chat message for each send. Implementations must be
// safe for concurrent use.
type Feeder interface {
	// Payload returns the message for the i-th send (1-based). Records are
	// returned in deterministic round-robin order.
	Payload(i int) codec.ChatMessage

	// Len returns the total number of records in the dataset.
	Len() int
}

// Field names accepted in a payload file.
const (
	FieldChatRoomID = "chatRoomId"
	FieldSenderID   = "senderId"
	FieldMessage    = "message"
)

// DatasetError reports a payload file that cannot be used.
type DatasetError struct {
	Path string
	Err  error
}

func (e *DatasetError) Error() string {
	return fmt.Sprintf("payload file %s: %v", e.Path, e.Err)
}

func (e *DatasetError) Unwrap() error { return e.Err }

// Dataset is an in-memory Feeder. Message text may contain {{index}}, which
// is replaced with the send index.
type Dataset struct {
	messages []codec.ChatMessage
}

var _ Feeder = (*Dataset)(nil)

// Load reads a payload file, choosing the parser by extension.
func Load(path string) (*Dataset, error) {
	var (
		ds  *Dataset
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		ds, err = NewCSVFeeder(path)
	case ".json":
		ds, err = NewJSONFeeder(path)
	default:
		err = fmt.Errorf("unsupported extension %q (use .csv or .json)", filepath.Ext(path))
	}
	if err != nil {
		return nil, &DatasetError{Path: path, Err: err}
	}
	return ds, nil
}

// Payload implements Feeder.
func (d *Dataset) Payload(i int) codec.ChatMessage {
	idx := i - 1
	if idx < 0 {
		idx = 0
	}
	msg := d.messages[idx%len(d.messages)]
	msg.Message = SubstitutePlaceholders(msg.Message, Record{"index": strconv.Itoa(i)})
	return msg
}

// Len implements Feeder.
func (d *Dataset) Len() int {
	return len(d.messages)
}

// SubstitutePlaceholders replaces all occurrences of {{field_name}} in the template
// with the corresponding value from the record.
// If a placeholder's field is not found in the record, it is left unchanged.
func SubstitutePlaceholders(template string, record Record) string {
	if !strings.Contains(template, "{{") {
		return template
	}
	result := template
	for key, value := range record {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}

func toMessage(record Record) (codec.ChatMessage, error) {
	var msg codec.ChatMessage
	room, ok := lookupField(record, FieldChatRoomID)
	if !ok {
		return msg, fmt.Errorf("missing field %s", FieldChatRoomID)
	}
	sender, ok := lookupField(record, FieldSenderID)
	if !ok {
		return msg, fmt.Errorf("missing field %s", FieldSenderID)
	}
	text, ok := lookupField(record, FieldMessage)
	if !ok {
		return msg, fmt.Errorf("missing field %s", FieldMessage)
	}

	var err error
	if msg.ChatRoomID, err = strconv.ParseInt(strings.TrimSpace(room), 10, 64); err != nil {
		return msg, fmt.Errorf("%s: %w", FieldChatRoomID, err)
	}
	if msg.SenderID, err = strconv.ParseInt(strings.TrimSpace(sender), 10, 64); err != nil {
		return msg, fmt.Errorf("%s: %w", FieldSenderID, err)
	}
	msg.Message = text
	return msg, nil
}

// lookupField matches keys case-insensitively and ignores underscores, so
// chat_room_id and ChatRoomID both name chatRoomId.
func lookupField(record Record, name string) (string, bool) {
	if v, ok := record[name]; ok {
		return v, true
	}
	want := normalizeKey(name)
	for k, v := range record {
		if normalizeKey(k) == want {
			return v, true
		}
	}
	return "", false
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "_", ""))
}
