package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a room, message or presence record does not exist.
var ErrNotFound = errors.New("not found")

// Room represents a chat room.
type Room struct {
	ID             int64
	Name           string // optional display name
	Participants   []string
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// HasParticipant reports whether userID is in the room's participant set.
func (r *Room) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// FileAttachment describes bytes stored for a message.
type FileAttachment struct {
	Path        string // logical path, e.g. chat_files/42/report.pdf
	Size        int64
	ContentType string
}

// FileUpload is an attachment that has not been written yet.
type FileUpload struct {
	Name    string
	Content []byte
}

// Message represents a persisted chat message.
type Message struct {
	ID         int64
	RoomID     int64
	SenderID   string
	SenderName string
	Content    string
	File       *FileAttachment
	Readers    []string
	CreatedAt  time.Time
}

// NewMessage carries the fields needed to create a message.
type NewMessage struct {
	RoomID     int64
	SenderID   string
	SenderName string
	Content    string
	File       *FileUpload
	CreatedAt  time.Time
}

// PresenceRecord is the online/offline/typing state of one user.
// TypingIn is a plain room id; it never owns or pins the room.
type PresenceRecord struct {
	UserID   string
	Online   bool
	LastSeen time.Time
	TypingIn *int64
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom creates a room with the given participants (deduplicated, at least one).
	CreateRoom(ctx context.Context, name string, participants []string) (*Room, error)

	// GetRoom retrieves a room and its participants. Returns ErrNotFound if absent.
	GetRoom(ctx context.Context, id int64) (*Room, error)

	// IsParticipant checks if user is a participant of the room.
	IsParticipant(ctx context.Context, roomID int64, userID string) (bool, error)

	// ListRoomsForUser lists the rooms a user participates in, most recently active first.
	ListRoomsForUser(ctx context.Context, userID string) ([]*Room, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// CreateMessage persists a message, writing its attachment first when present.
	CreateMessage(ctx context.Context, msg NewMessage) (*Message, error)

	// GetMessage retrieves a message with its reader set. Returns ErrNotFound if absent.
	GetMessage(ctx context.Context, id int64) (*Message, error)

	// AddReader adds userID to the message's reader set. Adding an existing reader is a no-op.
	// Returns ErrNotFound if the message does not exist.
	AddReader(ctx context.Context, messageID int64, userID string) error

	// ListMessages retrieves messages from a room ordered by timestamp then id.
	// If beforeID is provided, returns messages older than that ID.
	ListMessages(ctx context.Context, roomID int64, limit int, beforeID *int64) ([]*Message, error)
}

// PresenceStore persists presence records.
type PresenceStore interface {
	// SavePresence upserts a presence record.
	SavePresence(ctx context.Context, rec PresenceRecord) error

	// GetPresence retrieves a presence record. Returns ErrNotFound if absent.
	GetPresence(ctx context.Context, userID string) (*PresenceRecord, error)

	// ResetPresence marks every record offline and clears typing state.
	ResetPresence(ctx context.Context, at time.Time) error
}

// BlobStore writes attachment bytes under a logical path.
type BlobStore interface {
	// Put stores content for a room. created is false when identical content already
	// existed at the resolved path and was reused.
	Put(ctx context.Context, roomID int64, name string, content []byte) (att FileAttachment, created bool, err error)

	// Remove deletes a file previously returned by Put.
	Remove(path string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	RoomStore
	MessageStore
	PresenceStore

	// Close closes the underlying database connection.
	Close() error
}
