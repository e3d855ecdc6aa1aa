package launcher

import "sync"

// DefaultScrollbackBytes bounds the output kept per embedded session.
const DefaultScrollbackBytes = 256 * 1024

// Scrollback keeps the most recent output of a session so late subscribers
// can replay it.
type Scrollback struct {
	mu     sync.Mutex
	data   []byte
	maxLen int
}

// NewScrollback creates a buffer holding at most maxLen bytes.
func NewScrollback(maxLen int) *Scrollback {
	if maxLen <= 0 {
		maxLen = DefaultScrollbackBytes
	}
	return &Scrollback{maxLen: maxLen}
}

// Write appends p, dropping the oldest bytes beyond the limit.
func (s *Scrollback) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data, p...)
	if over := len(s.data) - s.maxLen; over > 0 {
		s.data = append(s.data[:0], s.data[over:]...)
	}
	return len(p), nil
}

// Snapshot returns a copy of the buffered output.
func (s *Scrollback) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}
