package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/samber/lo"

	"github.com/arhamfareed106/Social-Network-Platform/internal/store"
)

//go:embed schema.sql
var schema string

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db    *sql.DB
	blobs store.BlobStore
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file; blobs receives message attachments.
func New(dbPath string, blobs store.BlobStore) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, blobs, nil)
}

// NewWithSetup creates a new SQLite store, applies the schema and then runs a setup
// function. Useful for tests to seed data.
func NewWithSetup(dbPath string, blobs store.BlobStore, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db, blobs: blobs}, nil
}

// Migrate applies the embedded schema. It is idempotent.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== RoomStore implementation ====

// CreateRoom creates a new room with its participant set.
func (s *SQLiteStore) CreateRoom(ctx context.Context, name string, participants []string) (*store.Room, error) {
	participants = normalizeParticipants(participants)
	if len(participants) == 0 {
		return nil, errors.New("room needs at least one participant")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO rooms (name, created_at, last_activity_at)
		VALUES (?, ?, ?)
	`, strings.TrimSpace(name), now, now)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}

	roomID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	for _, userID := range participants {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO room_participants (room_id, user_id)
			VALUES (?, ?)
		`, roomID, userID); err != nil {
			return nil, fmt.Errorf("add participant %s: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.GetRoom(ctx, roomID)
}

// GetRoom retrieves a room by ID.
func (s *SQLiteStore) GetRoom(ctx context.Context, id int64) (*store.Room, error) {
	var room store.Room
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, last_activity_at
		FROM rooms
		WHERE id = ?
	`, id).Scan(&room.ID, &room.Name, &room.CreatedAt, &room.LastActivityAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}

	participants, err := s.listParticipants(ctx, id)
	if err != nil {
		return nil, err
	}
	room.Participants = participants

	return &room, nil
}

// IsParticipant checks if user is a participant of the room.
func (s *SQLiteStore) IsParticipant(ctx context.Context, roomID int64, userID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM room_participants
		WHERE room_id = ? AND user_id = ?
	`, roomID, userID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query participant: %w", err)
	}

	return true, nil
}

// ListRoomsForUser lists the rooms a user participates in.
func (s *SQLiteStore) ListRoomsForUser(ctx context.Context, userID string) ([]*store.Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.created_at, r.last_activity_at
		FROM rooms r
		JOIN room_participants rp ON r.id = rp.room_id
		WHERE rp.user_id = ?
		ORDER BY r.last_activity_at DESC, r.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}

	var rooms []*store.Room
	for rows.Next() {
		var room store.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.CreatedAt, &room.LastActivityAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, &room)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	// Release the single connection before loading participants.
	rows.Close()

	for _, room := range rooms {
		participants, err := s.listParticipants(ctx, room.ID)
		if err != nil {
			return nil, err
		}
		room.Participants = participants
	}

	return rooms, nil
}

func (s *SQLiteStore) listParticipants(ctx context.Context, roomID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM room_participants
		WHERE room_id = ?
		ORDER BY user_id ASC
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var participants []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, userID)
	}

	return participants, rows.Err()
}

// ==== MessageStore implementation ====

// CreateMessage persists a message. The attachment, if any, is written before the row
// and removed again if the row cannot be committed.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg store.NewMessage) (*store.Message, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM rooms WHERE id = ?`, msg.RoomID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room %d: %w", msg.RoomID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	createdAt = createdAt.UTC()

	var att *store.FileAttachment
	var fresh bool
	if msg.File != nil {
		if s.blobs == nil {
			return nil, errors.New("attachments are not configured")
		}
		stored, created, err := s.blobs.Put(ctx, msg.RoomID, msg.File.Name, msg.File.Content)
		if err != nil {
			return nil, fmt.Errorf("store attachment: %w", err)
		}
		att, fresh = &stored, created
	}

	id, err := s.insertMessage(ctx, msg, att, createdAt)
	if err != nil {
		if fresh {
			_ = s.blobs.Remove(att.Path)
		}
		return nil, err
	}

	return &store.Message{
		ID:         id,
		RoomID:     msg.RoomID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Content:    msg.Content,
		File:       att,
		CreatedAt:  createdAt,
	}, nil
}

func (s *SQLiteStore) insertMessage(ctx context.Context, msg store.NewMessage, att *store.FileAttachment, createdAt time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	var filePath, fileType sql.NullString
	var fileSize sql.NullInt64
	if att != nil {
		filePath = sql.NullString{String: att.Path, Valid: true}
		fileType = sql.NullString{String: att.ContentType, Valid: true}
		fileSize = sql.NullInt64{Int64: att.Size, Valid: true}
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO messages (room_id, sender_id, sender_name, content, file_path, file_size, file_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.RoomID, msg.SenderID, msg.SenderName, msg.Content, filePath, fileSize, fileType, createdAt)
	if err != nil {
		return 0, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE rooms SET last_activity_at = ? WHERE id = ?
	`, createdAt, msg.RoomID); err != nil {
		return 0, fmt.Errorf("touch room: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return id, nil
}

const messageColumns = `id, room_id, sender_id, sender_name, content, file_path, file_size, file_type, created_at`

// GetMessage retrieves a message and its readers.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*store.Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}

	if err := s.attachReaders(ctx, []*store.Message{msg}); err != nil {
		return nil, err
	}
	return msg, nil
}

// AddReader records that userID has read the message.
func (s *SQLiteStore) AddReader(ctx context.Context, messageID int64, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO message_readers (message_id, user_id, read_at)
		SELECT id, ?, ? FROM messages WHERE id = ?
	`, userID, time.Now().UTC(), messageID)
	if err != nil {
		return fmt.Errorf("insert reader: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Nothing inserted: either already a reader or the message is missing.
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM messages WHERE id = ?`, messageID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("message %d: %w", messageID, store.ErrNotFound)
		}
		return fmt.Errorf("query message: %w", err)
	}
	return nil
}

// ListMessages retrieves messages from a room with pagination. The before
// cursor is keyed on (created_at, id) so pages follow display order; an
// unknown cursor yields no messages.
func (s *SQLiteStore) ListMessages(ctx context.Context, roomID int64, limit int, beforeID *int64) ([]*store.Message, error) {
	var query string
	var args []interface{}

	if beforeID != nil {
		query = `SELECT ` + messageColumns + `
			FROM messages
			WHERE room_id = ?
				AND (created_at, id) < (SELECT created_at, id FROM messages WHERE id = ? AND room_id = ?)
			ORDER BY created_at DESC, id DESC
			LIMIT ?`
		args = []interface{}{roomID, *beforeID, roomID, limit}
	} else {
		query = `SELECT ` + messageColumns + `
			FROM messages
			WHERE room_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?`
		args = []interface{}{roomID, limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}

	var messages []*store.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	rows.Close()

	// Reverse to get chronological order
	for i := 0; i < len(messages)/2; i++ {
		messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
	}

	if err := s.attachReaders(ctx, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *SQLiteStore) attachReaders(ctx context.Context, messages []*store.Message) error {
	if len(messages) == 0 {
		return nil
	}

	byID := lo.KeyBy(messages, func(m *store.Message) int64 { return m.ID })
	args := lo.Map(messages, func(m *store.Message, _ int) interface{} { return m.ID })
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(messages)), ",")

	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, user_id FROM message_readers
		WHERE message_id IN (`+placeholders+`)
		ORDER BY message_id, user_id
	`, args...)
	if err != nil {
		return fmt.Errorf("query readers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var messageID int64
		var userID string
		if err := rows.Scan(&messageID, &userID); err != nil {
			return fmt.Errorf("scan reader: %w", err)
		}
		if msg, ok := byID[messageID]; ok {
			msg.Readers = append(msg.Readers, userID)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*store.Message, error) {
	var msg store.Message
	var filePath, fileType sql.NullString
	var fileSize sql.NullInt64
	if err := row.Scan(
		&msg.ID,
		&msg.RoomID,
		&msg.SenderID,
		&msg.SenderName,
		&msg.Content,
		&filePath,
		&fileSize,
		&fileType,
		&msg.CreatedAt,
	); err != nil {
		return nil, err
	}

	if filePath.Valid {
		msg.File = &store.FileAttachment{
			Path:        filePath.String,
			Size:        fileSize.Int64,
			ContentType: fileType.String,
		}
	}
	return &msg, nil
}

// ==== PresenceStore implementation ====

// SavePresence upserts a presence record.
func (s *SQLiteStore) SavePresence(ctx context.Context, rec store.PresenceRecord) error {
	var typingIn sql.NullInt64
	if rec.TypingIn != nil {
		typingIn = sql.NullInt64{Int64: *rec.TypingIn, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_presence (user_id, online, last_seen, typing_in)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			online = excluded.online,
			last_seen = excluded.last_seen,
			typing_in = excluded.typing_in
	`, rec.UserID, rec.Online, rec.LastSeen.UTC(), typingIn)
	if err != nil {
		return fmt.Errorf("upsert presence: %w", err)
	}
	return nil
}

// GetPresence retrieves a presence record.
func (s *SQLiteStore) GetPresence(ctx context.Context, userID string) (*store.PresenceRecord, error) {
	var rec store.PresenceRecord
	var typingIn sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, online, last_seen, typing_in
		FROM user_presence
		WHERE user_id = ?
	`, userID).Scan(&rec.UserID, &rec.Online, &rec.LastSeen, &typingIn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("presence %s: %w", userID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query presence: %w", err)
	}

	if typingIn.Valid {
		rec.TypingIn = &typingIn.Int64
	}
	return &rec, nil
}

// ResetPresence marks everyone offline. Used at startup, when no connection can be live.
func (s *SQLiteStore) ResetPresence(ctx context.Context, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE user_presence
		SET last_seen = CASE WHEN online = 1 THEN ? ELSE last_seen END,
			online = 0,
			typing_in = NULL
	`, at.UTC())
	if err != nil {
		return fmt.Errorf("reset presence: %w", err)
	}
	return nil
}

func normalizeParticipants(participants []string) []string {
	trimmed := lo.Map(participants, func(p string, _ int) string { return strings.TrimSpace(p) })
	return lo.Uniq(lo.Compact(trimmed))
}
