package core

// Room is the subscriber set of one chat room. It is not safe for concurrent
// use on its own; Hub guards every access.
type Room struct {
	ID          int64
	subscribers map[string]Subscriber
}

// NewRoom constructs a room with no subscribers.
func NewRoom(id int64) *Room {
	return &Room{
		ID:          id,
		subscribers: make(map[string]Subscriber),
	}
}

// AddSubscriber inserts a subscriber into the room. Returns true if newly added.
func (r *Room) AddSubscriber(s Subscriber) bool {
	if _, exists := r.subscribers[s.ID()]; exists {
		return false
	}
	r.subscribers[s.ID()] = s
	return true
}

// RemoveSubscriber deletes a subscriber from the room. Returns true if removed.
func (r *Room) RemoveSubscriber(s Subscriber) bool {
	if _, exists := r.subscribers[s.ID()]; !exists {
		return false
	}
	delete(r.subscribers, s.ID())
	return true
}

// Snapshot copies the current subscriber set.
func (r *Room) Snapshot() []Subscriber {
	out := make([]Subscriber, 0, len(r.subscribers))
	for _, s := range r.subscribers {
		out = append(out, s)
	}
	return out
}

// Len returns the number of subscribers.
func (r *Room) Len() int {
	return len(r.subscribers)
}

// Empty returns true if no subscribers are in the room.
func (r *Room) Empty() bool {
	return len(r.subscribers) == 0
}
