package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/arhamfareed106/Social-Network-Platform/internal/store"
)

func mustEvent(t *testing.T, ch <-chan Event, kind EventKind) Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind() == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// drain empties ch and returns what was queued.
func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

type memStore struct {
	mu           sync.Mutex
	participants map[int64]map[string]bool
	messages     map[int64]*store.Message
	nextID       int64
	createErr    error
}

func newMemStore() *memStore {
	return &memStore{
		participants: make(map[int64]map[string]bool),
		messages:     make(map[int64]*store.Message),
	}
}

func (m *memStore) addRoom(roomID int64, users ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set := make(map[string]bool, len(users))
	for _, u := range users {
		set[u] = true
	}
	m.participants[roomID] = set
}

func (m *memStore) IsParticipant(_ context.Context, roomID int64, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.participants[roomID][userID], nil
}

func (m *memStore) CreateMessage(_ context.Context, msg store.NewMessage) (*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	if _, ok := m.participants[msg.RoomID]; !ok {
		return nil, store.ErrNotFound
	}
	m.nextID++
	out := &store.Message{
		ID:         m.nextID,
		RoomID:     msg.RoomID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Content:    msg.Content,
		CreatedAt:  msg.CreatedAt,
	}
	if msg.File != nil {
		out.File = &store.FileAttachment{
			Path: fmt.Sprintf("chat_files/%d/%s", msg.RoomID, msg.File.Name),
			Size: int64(len(msg.File.Content)),
		}
	}
	m.messages[out.ID] = out
	return out, nil
}

func (m *memStore) GetMessage(_ context.Context, id int64) (*store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *msg
	cp.Readers = append([]string(nil), msg.Readers...)
	return &cp, nil
}

func (m *memStore) AddReader(_ context.Context, messageID int64, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[messageID]
	if !ok {
		return store.ErrNotFound
	}
	for _, r := range msg.Readers {
		if r == userID {
			return nil
		}
	}
	msg.Readers = append(msg.Readers, userID)
	return nil
}

type presenceCall struct {
	op       string
	userID   string
	roomID   int64
	isTyping bool
}

type fakePresence struct {
	mu    sync.Mutex
	calls []presenceCall
	err   error
}

func (p *fakePresence) record(c presenceCall) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, c)
	return p.err
}

func (p *fakePresence) Connected(_ context.Context, userID string) error {
	return p.record(presenceCall{op: "connected", userID: userID})
}

func (p *fakePresence) Disconnected(_ context.Context, userID string) error {
	return p.record(presenceCall{op: "disconnected", userID: userID})
}

func (p *fakePresence) Typing(_ context.Context, userID string, roomID int64, isTyping bool) error {
	return p.record(presenceCall{op: "typing", userID: userID, roomID: roomID, isTyping: isTyping})
}

func (p *fakePresence) count(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

type testEnv struct {
	hub      *Hub
	store    *memStore
	presence *fakePresence
	deps     SessionDeps
}

func newTestEnv() *testEnv {
	hub := NewHub(nil)
	ms := newMemStore()
	fp := &fakePresence{}
	return &testEnv{
		hub:      hub,
		store:    ms,
		presence: fp,
		deps: SessionDeps{
			Hub:      hub,
			Store:    ms,
			Presence: fp,
			MediaURL: "/media",
		},
	}
}

func (e *testEnv) connect(t *testing.T, user string, roomID int64) *Session {
	t.Helper()
	s := NewSession(e.deps, Principal{UserID: user, Username: user, Authenticated: true}, roomID)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect %s: %v", user, err)
	}
	return s
}

type recordingWriter struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (w *recordingWriter) WriteFrame(_ context.Context, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.frames = append(w.frames, append([]byte(nil), data...))
	return nil
}

func (w *recordingWriter) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.frames)
}

var errBrokenPipe = errors.New("broken pipe")
