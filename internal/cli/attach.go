package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/events"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/manager"
	"golang.org/x/term"
)

// DetachKey (Ctrl+]) ends an attached session from the local side.
const DetachKey = 0x1d

const defaultSizePoll = 250 * time.Millisecond

// EmbeddedSessions is the part of the manager an attached terminal needs.
type EmbeddedSessions interface {
	CreateEmbeddedSession(terminalID, profileID string) manager.Result
	SendInput(terminalID string, data []byte) manager.Result
	Resize(terminalID string, cols, rows int) manager.Result
	CloseEmbeddedSession(terminalID string) manager.Result
	Subscribe() *events.Subscription
}

// Attacher relays a local terminal to an embedded session.
type Attacher struct {
	In  io.Reader
	Out io.Writer
	// Fd is the controlling terminal used for raw mode and window size.
	// A negative value disables both.
	Fd       int
	SizePoll time.Duration
}

// Attach starts an embedded session for profileID and relays input and
// output until the shell exits, the user presses DetachKey or ctx ends. It
// returns the shell's exit code when known.
func (a *Attacher) Attach(ctx context.Context, s EmbeddedSessions, profileID string) (int, error) {
	sub := s.Subscribe()
	defer sub.Unsubscribe()

	id := "cli_" + uuid.NewString()[:8]
	res := s.CreateEmbeddedSession(id, profileID)
	if !res.Success {
		if err := res.Err(); err != nil {
			return -1, err
		}
		return -1, errors.New(res.Error)
	}
	defer s.CloseEmbeddedSession(id)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.Fd >= 0 && term.IsTerminal(a.Fd) {
		state, err := term.MakeRaw(a.Fd)
		if err != nil {
			return -1, fmt.Errorf("failed to enter raw mode: %w", err)
		}
		defer term.Restore(a.Fd, state)
		go a.watchSize(ctx, s, id)
	}

	detached := make(chan struct{})
	go a.pumpInput(ctx, s, id, detached)

	code := -1
	for {
		select {
		case <-ctx.Done():
			return code, nil
		case <-detached:
			log.Printf("[Attach] Detached from %s", id)
			return code, nil
		case ev, ok := <-sub.C():
			if !ok {
				return code, nil
			}
			if ev.SessionID != id {
				continue
			}
			switch ev.Type {
			case events.SessionData:
				if _, err := io.WriteString(a.Out, ev.Data); err != nil {
					return code, err
				}
			case events.SessionExit:
				if ev.ExitCode != nil {
					code = *ev.ExitCode
				}
			case events.SessionClosed:
				return code, nil
			}
		}
	}
}

func (a *Attacher) pumpInput(ctx context.Context, s EmbeddedSessions, id string, detached chan<- struct{}) {
	buf := make([]byte, 1024)
	for {
		n, err := a.In.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			i := bytes.IndexByte(chunk, DetachKey)
			if i >= 0 {
				chunk = chunk[:i]
			}
			if len(chunk) > 0 {
				if res := s.SendInput(id, append([]byte(nil), chunk...)); !res.Success {
					log.Printf("[Attach] Failed to send input: %s", res.Error)
				}
			}
			if i >= 0 {
				close(detached)
				return
			}
		}
		if err != nil || ctx.Err() != nil {
			return
		}
	}
}

func (a *Attacher) watchSize(ctx context.Context, s EmbeddedSessions, id string) {
	interval := a.SizePoll
	if interval <= 0 {
		interval = defaultSizePoll
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastCols, lastRows := 0, 0
	for {
		if cols, rows, err := term.GetSize(a.Fd); err == nil && (cols != lastCols || rows != lastRows) {
			s.Resize(id, cols, rows)
			lastCols, lastRows = cols, rows
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
