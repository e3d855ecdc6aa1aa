package launcher

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/config"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/events"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/logutil"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/sshcmd"
)

const (
	DefaultCols         = 80
	DefaultRows         = 24
	DefaultCommandDelay = 500 * time.Millisecond
)

// TerminalInfo describes an embedded session.
type TerminalInfo struct {
	ID          string    `json:"id"`
	ProfileID   string    `json:"profileId"`
	ProfileName string    `json:"profileName"`
	Cols        int       `json:"cols"`
	Rows        int       `json:"rows"`
	Shell       string    `json:"shell"`
	Cwd         string    `json:"cwd"`
	PID         int       `json:"pid"`
	StartedAt   time.Time `json:"startedAt"`
}

type terminal struct {
	mu         sync.Mutex
	info       TerminalInfo
	proc       Process
	scrollback *Scrollback
	typeTimer  *time.Timer
	closed     bool
}

// EmbeddedOptions configures an Embedded launcher.
type EmbeddedOptions struct {
	SSHBinary       string
	CommandDelay    time.Duration
	ScrollbackBytes int
	Spawn           Spawner
	// OnExit is called once after a session's shell has exited.
	OnExit func(id string, exitCode int)
}

// Embedded runs ssh inside shells attached to pseudo-terminals owned by this
// process. Output is published on the event bus as it arrives.
type Embedded struct {
	builder *sshcmd.Builder
	pub     events.Publisher
	opts    EmbeddedOptions

	mu        sync.RWMutex
	terminals map[string]*terminal
	wg        sync.WaitGroup
}

// NewEmbedded creates an embedded launcher publishing to pub.
func NewEmbedded(builder *sshcmd.Builder, pub events.Publisher, opts EmbeddedOptions) *Embedded {
	if opts.SSHBinary == "" {
		opts.SSHBinary = "ssh"
	}
	if opts.CommandDelay <= 0 {
		opts.CommandDelay = DefaultCommandDelay
	}
	if opts.Spawn == nil {
		opts.Spawn = SpawnPTY
	}
	return &Embedded{
		builder:   builder,
		pub:       pub,
		opts:      opts,
		terminals: make(map[string]*terminal),
	}
}

// Create starts a shell for id and types the ssh command for p into it after
// the configured delay.
func (e *Embedded) Create(id string, p config.ConnectionProfile) (TerminalInfo, error) {
	e.mu.RLock()
	_, exists := e.terminals[id]
	e.mu.RUnlock()
	if exists {
		return TerminalInfo{}, fmt.Errorf("%s: %w", id, ErrTerminalExists)
	}

	args, err := e.builder.Build(p, sshcmd.ModeEmbedded)
	if err != nil {
		return TerminalInfo{}, err
	}
	command := sshcmd.CommandLine(e.opts.SSHBinary, args)

	shell := defaultShell()
	cwd, _ := os.UserHomeDir()
	proc, err := e.opts.Spawn(SpawnOptions{
		Shell: shell,
		Dir:   cwd,
		Env:   append(os.Environ(), "TERM=xterm-256color", "COLORTERM=truecolor"),
		Cols:  DefaultCols,
		Rows:  DefaultRows,
	})
	if err != nil {
		return TerminalInfo{}, &LaunchError{ProfileID: p.ID, Via: "pty", Err: err}
	}

	t := &terminal{
		info: TerminalInfo{
			ID:          id,
			ProfileID:   p.ID,
			ProfileName: p.Name,
			Cols:        DefaultCols,
			Rows:        DefaultRows,
			Shell:       shell,
			Cwd:         cwd,
			PID:         proc.Pid(),
			StartedAt:   time.Now(),
		},
		proc:       proc,
		scrollback: NewScrollback(e.opts.ScrollbackBytes),
	}

	t.typeTimer = time.AfterFunc(e.opts.CommandDelay, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.closed {
			return
		}
		if _, err := t.proc.Write([]byte(command + "\r")); err != nil {
			log.Printf("[Embedded] Failed to type ssh command into %s: %v", id, err)
		}
	})

	e.mu.Lock()
	if _, exists := e.terminals[id]; exists {
		e.mu.Unlock()
		t.typeTimer.Stop()
		proc.Kill()
		proc.Close()
		return TerminalInfo{}, fmt.Errorf("%s: %w", id, ErrTerminalExists)
	}
	e.terminals[id] = t
	e.mu.Unlock()

	e.wg.Add(1)
	go e.relay(t)

	log.Printf("[Embedded] Terminal %s created for %s (shell %s, pid %d)", id, logutil.SanitizeForLog(p.Name), shell, t.info.PID)
	return t.info, nil
}

// relay publishes output until the shell exits, then announces the exit.
func (e *Embedded) relay(t *terminal) {
	defer e.wg.Done()
	id := t.info.ID
	buf := make([]byte, 32*1024)
	for {
		n, err := t.proc.Read(buf)
		if n > 0 {
			t.scrollback.Write(buf[:n])
			e.publish(events.Event{Type: events.SessionData, SessionID: id, Data: string(buf[:n])})
		}
		if err != nil {
			break
		}
	}

	code, err := t.proc.Wait()
	if err != nil {
		log.Printf("[Embedded] Wait for terminal %s failed: %v", id, err)
	}
	t.mu.Lock()
	t.closed = true
	t.typeTimer.Stop()
	t.mu.Unlock()
	t.proc.Close()

	e.mu.Lock()
	if cur, ok := e.terminals[id]; ok && cur == t {
		delete(e.terminals, id)
	}
	e.mu.Unlock()

	log.Printf("[Embedded] Terminal %s exited with code %d", id, code)
	// OnExit completes before sessionClosed is published.
	if e.opts.OnExit != nil {
		e.opts.OnExit(id, code)
	}
	e.publish(events.Event{Type: events.SessionExit, SessionID: id, ExitCode: &code})
	e.publish(events.Event{Type: events.SessionClosed, SessionID: id})
}

func (e *Embedded) publish(ev events.Event) {
	if e.pub != nil {
		e.pub.Publish(ev)
	}
}

func (e *Embedded) get(id string) (*terminal, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.terminals[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrTerminalNotFound)
	}
	return t, nil
}

// Write sends input bytes to the session.
func (e *Embedded) Write(id string, data []byte) error {
	t, err := e.get(id)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("%s: %w", id, ErrTerminalNotFound)
	}
	_, err = t.proc.Write(data)
	return err
}

// Resize changes the PTY window size.
func (e *Embedded) Resize(id string, cols, rows int) error {
	if cols <= 0 || rows <= 0 || cols > 0xffff || rows > 0xffff {
		return fmt.Errorf("invalid terminal size %dx%d", cols, rows)
	}
	t, err := e.get(id)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.proc.Resize(uint16(cols), uint16(rows)); err != nil {
		return fmt.Errorf("failed to resize %s: %w", id, err)
	}
	t.info.Cols = cols
	t.info.Rows = rows
	return nil
}

// Close kills the shell of a session. Exit events follow from the relay.
func (e *Embedded) Close(id string) error {
	e.mu.Lock()
	t, ok := e.terminals[id]
	delete(e.terminals, id)
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrTerminalNotFound)
	}

	t.mu.Lock()
	t.closed = true
	t.typeTimer.Stop()
	t.mu.Unlock()

	err := t.proc.Kill()
	t.proc.Close()
	log.Printf("[Embedded] Terminal %s closed", id)
	return err
}

// CloseAll closes every session and waits for their relays to finish.
func (e *Embedded) CloseAll() {
	for _, info := range e.List() {
		if err := e.Close(info.ID); err != nil {
			log.Printf("[Embedded] Failed to close %s: %v", info.ID, err)
		}
	}
	e.wg.Wait()
}

// List returns the open sessions ordered by start time.
func (e *Embedded) List() []TerminalInfo {
	e.mu.RLock()
	out := make([]TerminalInfo, 0, len(e.terminals))
	for _, t := range e.terminals {
		t.mu.Lock()
		out = append(out, t.info)
		t.mu.Unlock()
	}
	e.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Scrollback returns the buffered output of a session.
func (e *Embedded) Scrollback(id string) ([]byte, error) {
	t, err := e.get(id)
	if err != nil {
		return nil, err
	}
	return t.scrollback.Snapshot(), nil
}

func defaultShell() string {
	if runtime.GOOS == "windows" {
		return "cmd.exe"
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	return "/bin/bash"
}
