// Package events fans session and log notifications out to subscribers.
package events

import (
	"sync"
	"time"
)

// Type identifies what happened.
type Type string

const (
	SessionData     Type = "sessionData"
	SessionExit     Type = "sessionExit"
	SessionClosed   Type = "sessionClosed"
	SessionsChanged Type = "sessionsChanged"
	LogsUpdated     Type = "logsUpdated"
)

// Event is a single notification. Data carries PTY output for SessionData;
// ExitCode is set for SessionExit.
type Event struct {
	Type      Type      `json:"type"`
	SessionID string    `json:"sessionId,omitempty"`
	Data      string    `json:"data,omitempty"`
	ExitCode  *int      `json:"exitCode,omitempty"`
	Time      time.Time `json:"time"`
}

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(Event)
}

// Bus delivers every published event to every subscriber in publish order.
// Publish never blocks on a slow subscriber; each subscriber has its own
// unbounded queue drained by a goroutine.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64]*subscription)}
}

type subscription struct {
	mu     sync.Mutex
	queue  []Event
	wake   chan struct{}
	done   chan struct{}
	out    chan Event
	closed bool
}

// Subscription is a live registration returned by Subscribe.
type Subscription struct {
	id  uint64
	bus *Bus
	sub *subscription
}

// C returns the channel events are delivered on. It is closed after
// Unsubscribe or Close.
func (s *Subscription) C() <-chan Event {
	return s.sub.out
}

// Unsubscribe stops delivery. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.bus.remove(s.id)
}

// Subscribe registers a new subscriber.
func (b *Bus) Subscribe() *Subscription {
	sub := &subscription{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		out:  make(chan Event),
	}
	go sub.pump()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.stop()
		return &Subscription{bus: b, sub: sub}
	}
	b.nextID++
	b.subs[b.nextID] = sub
	return &Subscription{id: b.nextID, bus: b, sub: sub}
}

// Publish enqueues e for every current subscriber.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		sub.push(e)
	}
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close unsubscribes everyone. Later subscriptions are closed immediately.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[uint64]*subscription)
	b.closed = true
	b.mu.Unlock()
	for _, sub := range subs {
		sub.stop()
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	delete(b.subs, id)
	b.mu.Unlock()
	if ok {
		sub.stop()
	}
}

func (s *subscription) push(e Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscription) stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.queue = nil
	s.mu.Unlock()
	close(s.done)
}

// pump moves queued events to out one at a time.
func (s *subscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		var next Event
		have := len(s.queue) > 0
		if have {
			next = s.queue[0]
			s.queue[0] = Event{}
			s.queue = s.queue[1:]
		}
		s.mu.Unlock()

		if !have {
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}

		select {
		case s.out <- next:
		case <-s.done:
			return
		}
	}
}
