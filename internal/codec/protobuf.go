package codec

import (
	_ "embed"
	"fmt"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
)

const (
	protoFileName      = "chat_message.proto"
	chatMessageFQN     = "runinto.chat.ChatMessage"
	fieldChatRoomID    = "chat_room_id"
	fieldSenderID      = "sender_id"
	fieldMessageString = "message"
)

//go:embed chat_message.proto
var chatMessageProto string

// Protobuf encodes messages with the runinto.chat.ChatMessage schema. The
// schema is compiled once from the embedded .proto file; each message is
// built and read field by field through a dynamic message.
type Protobuf struct {
	md *desc.MessageDescriptor
}

// NewProtobuf compiles the embedded chat message schema.
func NewProtobuf() (*Protobuf, error) {
	md, err := loadChatMessageDescriptor()
	if err != nil {
		return nil, err
	}
	return &Protobuf{md: md}, nil
}

func loadChatMessageDescriptor() (*desc.MessageDescriptor, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{
			protoFileName: chatMessageProto,
		}),
	}
	files, err := parser.ParseFiles(protoFileName)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", protoFileName, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no descriptors parsed from %s", protoFileName)
	}
	md := files[0].FindMessage(chatMessageFQN)
	if md == nil {
		return nil, fmt.Errorf("message %s not found in %s", chatMessageFQN, protoFileName)
	}
	return md, nil
}

func (*Protobuf) Format() Format { return FormatProtobuf }

// Descriptor exposes the compiled message schema.
func (p *Protobuf) Descriptor() *desc.MessageDescriptor {
	return p.md
}

// Encode sets each schema field on a fresh message and serializes it.
func (p *Protobuf) Encode(msg ChatMessage) ([]byte, error) {
	m := dynamic.NewMessage(p.md)
	if err := m.TrySetFieldByName(fieldChatRoomID, msg.ChatRoomID); err != nil {
		return nil, fmt.Errorf("protobuf set %s: %w", fieldChatRoomID, err)
	}
	if err := m.TrySetFieldByName(fieldSenderID, msg.SenderID); err != nil {
		return nil, fmt.Errorf("protobuf set %s: %w", fieldSenderID, err)
	}
	if err := m.TrySetFieldByName(fieldMessageString, msg.Message); err != nil {
		return nil, fmt.Errorf("protobuf set %s: %w", fieldMessageString, err)
	}
	data, err := m.Marshal()
	if err != nil {
		return nil, fmt.Errorf("protobuf encode: %w", err)
	}
	return data, nil
}

// Decode parses data and reads back each schema field. Fields outside the
// schema are dropped.
func (p *Protobuf) Decode(data []byte) (ChatMessage, error) {
	m := dynamic.NewMessage(p.md)
	if err := m.Unmarshal(data); err != nil {
		return ChatMessage{}, fmt.Errorf("protobuf decode: %w", err)
	}

	roomID, err := int64Field(m, fieldChatRoomID)
	if err != nil {
		return ChatMessage{}, err
	}
	senderID, err := int64Field(m, fieldSenderID)
	if err != nil {
		return ChatMessage{}, err
	}
	raw, err := m.TryGetFieldByName(fieldMessageString)
	if err != nil {
		return ChatMessage{}, fmt.Errorf("protobuf get %s: %w", fieldMessageString, err)
	}
	text, ok := raw.(string)
	if !ok {
		return ChatMessage{}, fmt.Errorf("protobuf field %s: unexpected type %T", fieldMessageString, raw)
	}

	return ChatMessage{ChatRoomID: roomID, SenderID: senderID, Message: text}, nil
}

func int64Field(m *dynamic.Message, name string) (int64, error) {
	raw, err := m.TryGetFieldByName(name)
	if err != nil {
		return 0, fmt.Errorf("protobuf get %s: %w", name, err)
	}
	v, ok := raw.(int64)
	if !ok {
		return 0, fmt.Errorf("protobuf field %s: unexpected type %T", name, raw)
	}
	return v, nil
}
