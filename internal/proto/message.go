package proto

const (
	InboundTypeMessage     = "message"
	InboundTypeTyping      = "typing"
	InboundTypeReadReceipt = "read_receipt"

	OutboundTypeMessage     = "message"
	OutboundTypeTyping      = "typing"
	OutboundTypeStatus      = "status"
	OutboundTypeReadReceipt = "read_receipt"

	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Inbound is the envelope for frames coming from the client.
// Pointer fields distinguish "absent" from zero values.
type Inbound struct {
	Type      string  `json:"type"`
	Message   *string `json:"message,omitempty"`
	File      *File   `json:"file,omitempty"`
	IsTyping  *bool   `json:"is_typing,omitempty"`
	MessageID *int64  `json:"message_id,omitempty"`
}

// File is an attachment sent inline; Content is base64.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// MessageEvent announces a persisted chat message.
type MessageEvent struct {
	Type      string  `json:"type"`
	Username  string  `json:"username"`
	Message   string  `json:"message"`
	Timestamp string  `json:"timestamp"`
	MessageID int64   `json:"message_id"`
	FileURL   *string `json:"file_url"`
}

// TypingEvent announces that a user started or stopped typing.
type TypingEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

// StatusEvent announces that a user came online or went offline.
type StatusEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

// ReadReceiptEvent announces that a user read a message.
type ReadReceiptEvent struct {
	Type      string `json:"type"`
	Username  string `json:"username"`
	MessageID int64  `json:"message_id"`
}

// Outbound is the union of all outbound fields, convenient for clients
// that decode every frame into one struct.
type Outbound struct {
	Type      string  `json:"type"`
	Username  string  `json:"username"`
	Message   string  `json:"message,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
	MessageID int64   `json:"message_id,omitempty"`
	FileURL   *string `json:"file_url,omitempty"`
	IsTyping  bool    `json:"is_typing,omitempty"`
	Status    string  `json:"status,omitempty"`
}
