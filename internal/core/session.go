package core

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arhamfareed106/Social-Network-Platform/internal/store"
)

const (
	defaultSendBuffer     = 32
	defaultCleanupTimeout = 5 * time.Second
)

// State is a step in the session lifecycle.
type State int32

const (
	StateConnecting State = iota
	StateAuthorized
	StateSubscribed
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthorized:
		return "authorized"
	case StateSubscribed:
		return "subscribed"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Principal is the identity supplied by the auth layer for one connection attempt.
type Principal struct {
	UserID        string
	Username      string
	Authenticated bool
}

// DisplayName is the name shown to other participants.
func (p Principal) DisplayName() string {
	if p.Username != "" {
		return p.Username
	}
	return p.UserID
}

// Membership is the slice of the durable store a session needs.
type Membership interface {
	IsParticipant(ctx context.Context, roomID int64, userID string) (bool, error)
	CreateMessage(ctx context.Context, msg store.NewMessage) (*store.Message, error)
	GetMessage(ctx context.Context, id int64) (*store.Message, error)
	AddReader(ctx context.Context, messageID int64, userID string) error
}

// Presence receives lifecycle transitions. Errors are reported after the
// in-memory state has already been updated.
type Presence interface {
	Connected(ctx context.Context, userID string) error
	Disconnected(ctx context.Context, userID string) error
	Typing(ctx context.Context, userID string, roomID int64, isTyping bool) error
}

// FrameWriter writes one encoded frame to the session's own connection.
type FrameWriter interface {
	WriteFrame(ctx context.Context, data []byte) error
}

// SessionDeps are the collaborators shared by every session.
type SessionDeps struct {
	Hub            *Hub
	Store          Membership
	Presence       Presence
	Logger         *zerolog.Logger
	SendBuffer     int
	MediaURL       string
	CleanupTimeout time.Duration
	Now            func() time.Time
}

// Session is the live state of one user's subscription to one room.
type Session struct {
	id        string
	principal Principal
	roomID    int64
	deps      SessionDeps
	log       zerolog.Logger

	state atomic.Int32
	send  chan Event
	done  chan struct{}
	once  sync.Once
}

// NewSession creates a session in the connecting state.
func NewSession(deps SessionDeps, principal Principal, roomID int64) *Session {
	if deps.SendBuffer <= 0 {
		deps.SendBuffer = defaultSendBuffer
	}
	if deps.CleanupTimeout <= 0 {
		deps.CleanupTimeout = defaultCleanupTimeout
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	logger := zerolog.Nop()
	if deps.Logger != nil {
		logger = *deps.Logger
	}

	id := uuid.NewString()
	return &Session{
		id:        id,
		principal: principal,
		roomID:    roomID,
		deps:      deps,
		log: logger.With().
			Str("session_id", id).
			Str("user_id", principal.UserID).
			Int64("room_id", roomID).
			Logger(),
		send: make(chan Event, deps.SendBuffer),
		done: make(chan struct{}),
	}
}

func (s *Session) ID() string            { return s.id }
func (s *Session) RoomID() int64         { return s.roomID }
func (s *Session) Principal() Principal  { return s.principal }
func (s *Session) State() State          { return State(s.state.Load()) }
func (s *Session) Events() <-chan Event  { return s.send }
func (s *Session) Done() <-chan struct{} { return s.done }

// Connect runs Subscribe and then Announce. Transports that acknowledge the
// connection in between call the two steps themselves.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.Subscribe(ctx); err != nil {
		return err
	}
	return s.Announce(ctx)
}

// Subscribe authorizes the principal and registers the session with the
// room's group. It must complete before the transport acknowledges the
// connection so no broadcast is missed. Nothing is published yet; events
// delivered from here on are queued. On failure the session is closed.
func (s *Session) Subscribe(ctx context.Context) error {
	if !s.principal.Authenticated || s.principal.UserID == "" {
		s.close()
		return coreError(KindUnauthorized, "subscribe", ErrUnauthorized)
	}
	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateAuthorized)) {
		return coreError(KindDelivery, "subscribe", ErrSessionClosed)
	}

	ok, err := s.deps.Store.IsParticipant(ctx, s.roomID, s.principal.UserID)
	if err != nil {
		s.close()
		return coreError(KindPersistence, "check participant", err)
	}
	if !ok {
		s.close()
		return coreError(KindForbidden, "subscribe", ErrForbidden)
	}

	if err := s.deps.Hub.Register(s.roomID, s); err != nil {
		s.close()
		return coreError(KindDelivery, "register", err)
	}
	if s.State() != StateAuthorized {
		s.deps.Hub.Unregister(s.roomID, s)
		return coreError(KindDelivery, "subscribe", ErrSessionClosed)
	}
	return nil
}

// Announce marks the user online and broadcasts the online status once the
// transport has accepted the connection.
func (s *Session) Announce(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateAuthorized), int32(StateSubscribed)) {
		return coreError(KindDelivery, "announce", ErrSessionClosed)
	}

	if err := s.deps.Presence.Connected(ctx, s.principal.UserID); err != nil {
		s.log.Warn().Err(err).Msg("persist presence online")
	}
	s.deps.Hub.Publish(s.roomID, StatusEvent{Username: s.principal.DisplayName(), Status: StatusOnline})

	s.log.Info().Msg("session subscribed")
	return nil
}

// HandleFrame decodes one inbound frame and dispatches it. Failures are logged
// and returned; the caller keeps the connection open unless the session closed.
func (s *Session) HandleFrame(ctx context.Context, data []byte) error {
	req, err := DecodeRequest(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("drop malformed frame")
		return err
	}
	if err := s.Receive(ctx, req); err != nil {
		if !errors.Is(err, ErrNotSubscribed) {
			s.log.Warn().Err(err).Str("kind", string(KindOf(err))).Msg("drop frame")
		}
		return err
	}
	return nil
}

// Receive dispatches one decoded request. Only valid while subscribed.
func (s *Session) Receive(ctx context.Context, req Request) error {
	if s.State() != StateSubscribed {
		return ErrNotSubscribed
	}

	switch r := req.(type) {
	case SendMessage:
		return s.sendMessage(ctx, r)
	case SetTyping:
		if err := s.deps.Presence.Typing(ctx, s.principal.UserID, s.roomID, r.IsTyping); err != nil {
			s.log.Warn().Err(err).Msg("persist typing state")
		}
		s.deps.Hub.Publish(s.roomID, TypingEvent{Username: s.principal.DisplayName(), IsTyping: r.IsTyping})
		return nil
	case MarkRead:
		return s.markRead(ctx, r)
	default:
		return coreError(KindDecode, "dispatch", fmt.Errorf("%w: %T", ErrUnknownType, req))
	}
}

func (s *Session) sendMessage(ctx context.Context, r SendMessage) error {
	msg := store.NewMessage{
		RoomID:     s.roomID,
		SenderID:   s.principal.UserID,
		SenderName: s.principal.DisplayName(),
		Content:    r.Text,
		CreatedAt:  s.deps.Now().UTC(),
	}
	if r.File != nil {
		content, err := DecodeFileContent(r.File.Content)
		if err != nil {
			return coreError(KindDecode, "decode file", err)
		}
		msg.File = &store.FileUpload{Name: r.File.Name, Content: content}
	}

	created, err := s.deps.Store.CreateMessage(ctx, msg)
	if err != nil {
		return coreError(KindPersistence, "create message", err)
	}

	s.deps.Hub.Publish(s.roomID, MessageEvent{
		MessageID: created.ID,
		Username:  created.SenderName,
		Text:      created.Content,
		Timestamp: created.CreatedAt,
		FileURL:   FileURL(s.deps.MediaURL, created.File),
	})
	return nil
}

func (s *Session) markRead(ctx context.Context, r MarkRead) error {
	msg, err := s.deps.Store.GetMessage(ctx, r.MessageID)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Debug().Int64("message_id", r.MessageID).Msg("read receipt for unknown message")
		return nil
	}
	if err != nil {
		return coreError(KindPersistence, "get message", err)
	}
	if msg.RoomID != s.roomID {
		s.log.Debug().Int64("message_id", r.MessageID).Msg("read receipt for message in another room")
		return nil
	}

	if err := s.deps.Store.AddReader(ctx, r.MessageID, s.principal.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return coreError(KindPersistence, "add reader", err)
	}

	s.deps.Hub.Publish(s.roomID, ReadReceiptEvent{Username: s.principal.DisplayName(), MessageID: r.MessageID})
	return nil
}

// Deliver queues ev for this session's connection without blocking.
func (s *Session) Deliver(ev Event) error {
	switch s.State() {
	case StateAuthorized, StateSubscribed:
	default:
		return ErrSessionClosed
	}
	select {
	case <-s.done:
		return ErrSessionClosed
	case s.send <- ev:
		return nil
	default:
		return coreError(KindDelivery, "deliver", ErrSendQueueFull)
	}
}

// WritePump encodes queued events and writes them until the session closes,
// ctx is done or a write fails.
func (s *Session) WritePump(ctx context.Context, w FrameWriter) error {
	for {
		select {
		case ev := <-s.send:
			data, err := EncodeEvent(ev)
			if err != nil {
				s.log.Error().Err(err).Msg("encode event")
				continue
			}
			if err := w.WriteFrame(ctx, data); err != nil {
				return coreError(KindDelivery, "write frame", err)
			}
		case <-s.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Disconnect runs cleanup exactly once and reports whether this call did it.
// Every step is attempted even if an earlier one fails.
func (s *Session) Disconnect(ctx context.Context) bool {
	var prev State
	for {
		prev = s.State()
		if prev == StateClosing || prev == StateClosed {
			return false
		}
		if prev == StateConnecting {
			if s.state.CompareAndSwap(int32(StateConnecting), int32(StateClosed)) {
				s.once.Do(func() { close(s.done) })
				return false
			}
			continue
		}
		if s.state.CompareAndSwap(int32(prev), int32(StateClosing)) {
			break
		}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.deps.CleanupTimeout)
	defer cancel()

	if prev == StateSubscribed {
		s.step("mark offline", func() error {
			return s.deps.Presence.Disconnected(ctx, s.principal.UserID)
		})
		s.step("publish offline", func() error {
			s.deps.Hub.Publish(s.roomID, StatusEvent{Username: s.principal.DisplayName(), Status: StatusOffline})
			return nil
		})
	}
	s.step("unregister", func() error {
		s.deps.Hub.Unregister(s.roomID, s)
		return nil
	})

	s.close()
	s.log.Info().Str("from", prev.String()).Msg("session closed")
	return true
}

func (s *Session) close() {
	s.state.Store(int32(StateClosed))
	s.once.Do(func() { close(s.done) })
}

func (s *Session) step(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("step", name).Msg("cleanup step panicked")
		}
	}()
	if err := fn(); err != nil {
		s.log.Warn().Err(err).Str("step", name).Msg("cleanup step failed")
	}
}

// FileURL joins the public media prefix with an attachment path.
func FileURL(base string, att *store.FileAttachment) *string {
	if att == nil || att.Path == "" {
		return nil
	}
	url := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(att.Path, "/")
	return &url
}

// DecodeFileContent decodes base64 attachment content, accepting an optional
// data URL prefix and unpadded input.
func DecodeFileContent(content string) ([]byte, error) {
	if strings.HasPrefix(content, "data:") {
		if i := strings.Index(content, ","); i >= 0 {
			content = content[i+1:]
		}
	}
	content = strings.TrimSpace(content)
	data, err := base64.StdEncoding.DecodeString(content)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(content); rawErr == nil {
		return raw, nil
	}
	return nil, err
}
