package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubSubscriber struct {
	id     string
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *stubSubscriber) ID() string { return s.id }

func (s *stubSubscriber) Deliver(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *stubSubscriber) received() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestHubRegisterIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	alice := &stubSubscriber{id: "a"}

	if err := hub.Register(42, alice); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := hub.Register(42, alice); err != nil {
		t.Fatalf("register again: %v", err)
	}
	if got := hub.Subscribers(42); got != 1 {
		t.Fatalf("expected 1 subscriber, got %d", got)
	}

	if n := hub.Publish(42, TypingEvent{Username: "bob", IsTyping: true}); n != 1 {
		t.Fatalf("expected single delivery, got %d", n)
	}
	if alice.received() != 1 {
		t.Fatalf("expected alice to receive once, got %d", alice.received())
	}
}

func TestHubUnregisterEvictsEmptyRoom(t *testing.T) {
	hub := NewHub(nil)
	alice := &stubSubscriber{id: "a"}
	bob := &stubSubscriber{id: "b"}

	_ = hub.Register(1, alice)
	_ = hub.Register(1, bob)
	_ = hub.Register(2, bob)

	hub.Unregister(1, alice)
	if hub.Subscribers(1) != 1 || hub.Rooms() != 2 {
		t.Fatalf("unexpected state: room1=%d rooms=%d", hub.Subscribers(1), hub.Rooms())
	}

	hub.Unregister(1, bob)
	if hub.Rooms() != 1 {
		t.Fatalf("expected empty room to be evicted, rooms=%d", hub.Rooms())
	}

	// Unknown room and unknown subscriber are no-ops.
	hub.Unregister(99, alice)
	hub.Unregister(2, alice)
	if hub.Subscribers(2) != 1 {
		t.Fatalf("expected bob to stay in room 2")
	}
}

func TestHubPublishIsRoomScoped(t *testing.T) {
	hub := NewHub(nil)
	alice := &stubSubscriber{id: "a"}
	bob := &stubSubscriber{id: "b"}
	_ = hub.Register(1, alice)
	_ = hub.Register(2, bob)

	if n := hub.Publish(1, StatusEvent{Username: "x", Status: StatusOnline}); n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
	if bob.received() != 0 {
		t.Fatalf("bob must not see room 1 events")
	}
	if n := hub.Publish(3, StatusEvent{Username: "x", Status: StatusOnline}); n != 0 {
		t.Fatalf("expected no delivery to unknown room, got %d", n)
	}
}

func TestHubPublishSkipsFailingSubscriber(t *testing.T) {
	hub := NewHub(nil)
	broken := &stubSubscriber{id: "broken", err: errors.New("gone")}
	ok := &stubSubscriber{id: "ok"}
	_ = hub.Register(7, broken)
	_ = hub.Register(7, ok)

	if n := hub.Publish(7, ReadReceiptEvent{Username: "bob", MessageID: 1}); n != 1 {
		t.Fatalf("expected 1 successful delivery, got %d", n)
	}
	if ok.received() != 1 {
		t.Fatalf("healthy subscriber missed the event")
	}
	if hub.Subscribers(7) != 2 {
		t.Fatalf("failing subscriber must stay registered")
	}
}

func TestHubConcurrentRegisterPublish(t *testing.T) {
	hub := NewHub(nil)
	subs := make([]*stubSubscriber, 50)
	for i := range subs {
		subs[i] = &stubSubscriber{id: string(rune('A' + i))}
	}

	var wg sync.WaitGroup
	for _, s := range subs {
		wg.Add(2)
		go func(s *stubSubscriber) {
			defer wg.Done()
			_ = hub.Register(5, s)
		}(s)
		go func() {
			defer wg.Done()
			hub.Publish(5, TypingEvent{Username: "t", IsTyping: true})
		}()
	}
	wg.Wait()

	if got := hub.Subscribers(5); got != len(subs) {
		t.Fatalf("expected %d subscribers, got %d", len(subs), got)
	}
	for _, s := range subs {
		if s.received() > len(subs) {
			t.Fatalf("subscriber %s saw duplicated deliveries", s.id)
		}
	}
}

func TestHubRunClosesOnCancel(t *testing.T) {
	hub := NewHub(nil)
	_ = hub.Register(1, &stubSubscriber{id: "a"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("hub did not stop")
	}
	if hub.Rooms() != 0 {
		t.Fatalf("expected rooms to be dropped")
	}
	if err := hub.Register(1, &stubSubscriber{id: "b"}); !errors.Is(err, ErrHubClosed) {
		t.Fatalf("expected ErrHubClosed, got %v", err)
	}
}
