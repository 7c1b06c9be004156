package core

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Subscriber is a handle the hub delivers events to. Removing it from the hub
// never closes the underlying connection.
type Subscriber interface {
	ID() string
	// Deliver queues ev without blocking. An error means the event was dropped.
	Deliver(ev Event) error
}

// Hub is the process-wide registry of per-room broadcast groups.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[int64]*Room
	closed bool
	log    *zerolog.Logger
}

// NewHub creates a new chat hub instance.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		rooms: make(map[int64]*Room),
		log:   logger,
	}
}

// Register adds s to the room's group, creating the group on first use.
// Registering the same subscriber twice is a no-op.
func (h *Hub) Register(roomID int64, s Subscriber) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	room, ok := h.rooms[roomID]
	if !ok {
		room = NewRoom(roomID)
		h.rooms[roomID] = room
	}
	if room.AddSubscriber(s) {
		h.log.Debug().Int64("room_id", roomID).Str("subscriber", s.ID()).Msg("subscriber registered")
	}
	return nil
}

// Unregister removes s from the room's group and evicts the group once empty.
func (h *Hub) Unregister(roomID int64, s Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[roomID]
	if !ok {
		return
	}
	if room.RemoveSubscriber(s) {
		h.log.Debug().Int64("room_id", roomID).Str("subscriber", s.ID()).Msg("subscriber unregistered")
	}
	if room.Empty() {
		delete(h.rooms, roomID)
	}
}

// Publish delivers ev to every subscriber registered under roomID at the time
// of the call and returns how many accepted it. Failed deliveries are logged
// and skipped; the subscriber stays registered.
func (h *Hub) Publish(roomID int64, ev Event) int {
	h.mu.RLock()
	room, ok := h.rooms[roomID]
	var targets []Subscriber
	if ok && !h.closed {
		targets = room.Snapshot()
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if err := s.Deliver(ev); err != nil {
			h.log.Warn().
				Err(err).
				Int64("room_id", roomID).
				Str("subscriber", s.ID()).
				Str("event", ev.Kind().String()).
				Msg("drop event for subscriber")
			continue
		}
		delivered++
	}
	return delivered
}

// Subscribers returns the number of subscribers currently in the room.
func (h *Hub) Subscribers(roomID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, ok := h.rooms[roomID]; ok {
		return room.Len()
	}
	return 0
}

// Rooms returns the number of rooms with at least one subscriber.
func (h *Hub) Rooms() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Run blocks until ctx is done and then closes the hub.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.Close()
}

// Close drops every group and rejects further registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	h.rooms = make(map[int64]*Room)
	h.log.Info().Msg("hub closed")
}
