// Package activity keeps the user-visible history of connection activity.
package activity

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/events"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/logutil"
)

// Level is the severity shown next to an entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// MaxEntries is how many entries the log keeps.
const MaxEntries = 100

// Entry is one line of activity.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
}

// Log is a bounded, newest-first activity history. Every change is mirrored
// to the standard logger and announced on the event bus.
type Log struct {
	mu      sync.RWMutex
	entries []Entry // oldest first
	max     int
	pub     events.Publisher
	nowFn   func() time.Time
}

// New creates a log that announces changes on pub (may be nil).
func New(pub events.Publisher) *Log {
	return &Log{max: MaxEntries, pub: pub, nowFn: time.Now}
}

// Add records an entry and returns it.
func (l *Log) Add(level Level, message, details string) Entry {
	e := Entry{
		ID:      uuid.NewString(),
		Level:   level,
		Message: logutil.SanitizeForLog(message),
		Details: logutil.SanitizeForLog(details),
	}

	l.mu.Lock()
	e.Timestamp = l.nowFn()
	l.entries = append(l.entries, e)
	if len(l.entries) > l.max {
		l.entries = l.entries[len(l.entries)-l.max:]
	}
	l.mu.Unlock()

	if e.Details != "" {
		log.Printf("[Activity] %s: %s (%s)", level, e.Message, e.Details)
	} else {
		log.Printf("[Activity] %s: %s", level, e.Message)
	}
	l.announce()
	return e
}

func (l *Log) Info(message, details string)    { l.Add(LevelInfo, message, details) }
func (l *Log) Success(message, details string) { l.Add(LevelSuccess, message, details) }
func (l *Log) Warning(message, details string) { l.Add(LevelWarning, message, details) }
func (l *Log) Error(message, details string)   { l.Add(LevelError, message, details) }

// Entries returns a copy of the log, newest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}

// Clear drops every entry.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
	l.announce()
}

func (l *Log) announce() {
	if l.pub != nil {
		l.pub.Publish(events.Event{Type: events.LogsUpdated})
	}
}
