package events

import (
	"fmt"
	"testing"
	"time"
)

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case e, ok := <-sub.C():
		if !ok {
			t.Fatal("subscription channel closed")
		}
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestPublishPreservesOrder(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	sub := bus.Subscribe()

	for i := 0; i < 500; i++ {
		bus.Publish(Event{Type: SessionData, SessionID: "s1", Data: fmt.Sprint(i)})
	}
	for i := 0; i < 500; i++ {
		e := receive(t, sub)
		if e.Data != fmt.Sprint(i) {
			t.Fatalf("Expected event %d, got %s", i, e.Data)
		}
		if e.Time.IsZero() {
			t.Fatal("Expected publish time to be set")
		}
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	slow := bus.Subscribe()
	fast := bus.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.Publish(Event{Type: LogsUpdated})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on an idle subscriber")
	}

	receive(t, fast)
	receive(t, slow)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	if bus.Len() != 1 {
		t.Fatalf("Expected 1 subscriber, got %d", bus.Len())
	}
	sub.Unsubscribe()
	sub.Unsubscribe()
	if bus.Len() != 0 {
		t.Errorf("Expected 0 subscribers, got %d", bus.Len())
	}

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Error("Expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after Unsubscribe")
	}

	bus.Publish(Event{Type: SessionsChanged})
}

func TestCloseStopsLaterSubscribers(t *testing.T) {
	bus := NewBus()
	bus.Close()
	sub := bus.Subscribe()
	select {
	case _, ok := <-sub.C():
		if ok {
			t.Error("Expected closed channel after bus Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}
