package core

import "time"

// EventKind is a notification the core emits to sessions.
type EventKind int

const (
	// EventMessage announces a persisted chat message.
	EventMessage EventKind = iota
	// EventTyping announces a typing indicator change.
	EventTyping
	// EventStatus announces a user going online or offline.
	EventStatus
	// EventReadReceipt announces that a user read a message.
	EventReadReceipt
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventTyping:
		return "typing"
	case EventStatus:
		return "status"
	case EventReadReceipt:
		return "read_receipt"
	default:
		return "unknown"
	}
}

// Event is the closed set of outbound events. Only types in this package implement it.
type Event interface {
	Kind() EventKind
	event()
}

// PresenceStatus is the value carried by a status event.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// MessageEvent is published after a message has been persisted.
type MessageEvent struct {
	MessageID int64
	Username  string
	Text      string
	Timestamp time.Time
	FileURL   *string
}

// TypingEvent is published when a user starts or stops typing.
type TypingEvent struct {
	Username string
	IsTyping bool
}

// StatusEvent is published on connect and disconnect.
type StatusEvent struct {
	Username string
	Status   PresenceStatus
}

// ReadReceiptEvent is published after a reader was recorded.
type ReadReceiptEvent struct {
	Username  string
	MessageID int64
}

func (MessageEvent) Kind() EventKind     { return EventMessage }
func (TypingEvent) Kind() EventKind      { return EventTyping }
func (StatusEvent) Kind() EventKind      { return EventStatus }
func (ReadReceiptEvent) Kind() EventKind { return EventReadReceipt }

func (MessageEvent) event()     {}
func (TypingEvent) event()      {}
func (StatusEvent) event()      {}
func (ReadReceiptEvent) event() {}
