// Package codec converts chat messages to and from their binary wire forms.
//
// Two interchangeable formats are supported:
//
//   - [FormatMessagePack]: a schema-less binary map keyed by field name.
//   - [FormatProtobuf]: the runinto.chat.ChatMessage protobuf schema.
//
// A [Codec] is selected once per run with [New] and must not be mixed
// within a single connection.
package codec

import "fmt"

// Format identifies a payload wire format.
type Format string

const (
	// FormatMessagePack is the compact binary map encoding.
	FormatMessagePack Format = "MessagePack"
	// FormatProtobuf is the schema-based binary encoding.
	FormatProtobuf Format = "Protobuf"
)

// Formats lists the recognized formats in CLI order.
var Formats = []Format{FormatMessagePack, FormatProtobuf}

// ParseFormat maps a case-sensitive CLI token to a Format.
func ParseFormat(token string) (Format, error) {
	for _, f := range Formats {
		if string(f) == token {
			return f, nil
		}
	}
	return "", &FormatError{Format: Format(token)}
}

// ChatMessage is the logical unit sent over the wire.
type ChatMessage struct {
	ChatRoomID int64  `msgpack:"chatRoomId" json:"chatRoomId"`
	SenderID   int64  `msgpack:"senderId" json:"senderId"`
	Message    string `msgpack:"message" json:"message"`
}

// Codec encodes and decodes chat messages in a single format.
type Codec interface {
	Format() Format
	Encode(msg ChatMessage) ([]byte, error)
	Decode(data []byte) (ChatMessage, error)
}

// FormatError reports an unrecognized payload format.
type FormatError struct {
	Format Format
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unsupported payload format %q (want %s or %s)", string(e.Format), FormatMessagePack, FormatProtobuf)
}

// New returns the codec for the given format.
func New(format Format) (Codec, error) {
	switch format {
	case FormatMessagePack:
		return NewMessagePack(), nil
	case FormatProtobuf:
		return NewProtobuf()
	default:
		return nil, &FormatError{Format: format}
	}
}

const samplePayloadText = "안녕 반가워 나는 동협이라고해 이건 테스트용 메시지고 난 지금 무슨 형식의 메시지 프로토콜을 사용해서 메시지를 보낼지 고민 중 이야!!"

// DefaultPayload returns the benchmark payload for the i-th message. Every
// message carries the same content so encoded sizes are comparable across
// formats.
func DefaultPayload(_ int) ChatMessage {
	return ChatMessage{
		ChatRoomID: 1,
		SenderID:   100,
		Message:    samplePayloadText,
	}
}
