package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/arhamfareed106/Social-Network-Platform/internal/proto"
)

// DecodeRequest parses one inbound text frame. A frame without a type is a message.
func DecodeRequest(data []byte) (Request, error) {
	var in proto.Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, coreError(KindDecode, "unmarshal frame", err)
	}

	switch in.Type {
	case "", proto.InboundTypeMessage:
		if in.Message == nil && in.File == nil {
			return nil, coreError(KindDecode, in.Type, fmt.Errorf("%w: message or file", ErrMissingField))
		}
		req := SendMessage{}
		if in.Message != nil {
			req.Text = *in.Message
		}
		if in.File != nil {
			if in.File.Name == "" {
				return nil, coreError(KindDecode, in.Type, fmt.Errorf("%w: file.name", ErrMissingField))
			}
			req.File = &FileData{Name: in.File.Name, Content: in.File.Content}
		}
		return req, nil
	case proto.InboundTypeTyping:
		if in.IsTyping == nil {
			return nil, coreError(KindDecode, in.Type, fmt.Errorf("%w: is_typing", ErrMissingField))
		}
		return SetTyping{IsTyping: *in.IsTyping}, nil
	case proto.InboundTypeReadReceipt:
		if in.MessageID == nil {
			return nil, coreError(KindDecode, in.Type, fmt.Errorf("%w: message_id", ErrMissingField))
		}
		return MarkRead{MessageID: *in.MessageID}, nil
	default:
		return nil, coreError(KindDecode, "dispatch", fmt.Errorf("%w: %q", ErrUnknownType, in.Type))
	}
}

// EncodeEvent renders an outbound event as a text frame.
func EncodeEvent(ev Event) ([]byte, error) {
	var out any
	switch e := ev.(type) {
	case MessageEvent:
		out = proto.MessageEvent{
			Type:      proto.OutboundTypeMessage,
			Username:  e.Username,
			Message:   e.Text,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
			MessageID: e.MessageID,
			FileURL:   e.FileURL,
		}
	case TypingEvent:
		out = proto.TypingEvent{
			Type:     proto.OutboundTypeTyping,
			Username: e.Username,
			IsTyping: e.IsTyping,
		}
	case StatusEvent:
		out = proto.StatusEvent{
			Type:     proto.OutboundTypeStatus,
			Username: e.Username,
			Status:   string(e.Status),
		}
	case ReadReceiptEvent:
		out = proto.ReadReceiptEvent{
			Type:      proto.OutboundTypeReadReceipt,
			Username:  e.Username,
			MessageID: e.MessageID,
		}
	default:
		return nil, fmt.Errorf("encode event: unsupported %T", ev)
	}
	return json.Marshal(out)
}
