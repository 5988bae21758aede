package codec

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MessagePack encodes messages as a three-entry MessagePack map keyed by
// chatRoomId, senderId and message.
type MessagePack struct{}

// NewMessagePack returns the MessagePack codec.
func NewMessagePack() *MessagePack {
	return &MessagePack{}
}

func (*MessagePack) Format() Format { return FormatMessagePack }

// Encode serializes msg into a MessagePack map.
func (*MessagePack) Encode(msg ChatMessage) ([]byte, error) {
	data, err := msgpack.Marshal(&msg)
	if err != nil {
		return nil, fmt.Errorf("msgpack encode: %w", err)
	}
	return data, nil
}

// Decode parses a MessagePack map produced by Encode. Missing keys decode as
// zero values.
func (*MessagePack) Decode(data []byte) (ChatMessage, error) {
	var msg ChatMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return ChatMessage{}, fmt.Errorf("msgpack decode: %w", err)
	}
	return msg, nil
}
