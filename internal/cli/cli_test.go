package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/config"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/events"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/manager"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/session"
)

func sampleProfiles() []config.ConnectionProfile {
	return []config.ConnectionProfile{
		{ID: "1", Name: "web", Hostname: "web.example.com", Port: 22, Username: "deploy", AuthType: config.AuthPrivateKey, Tags: []string{"prod"}},
		{ID: "2", Name: "db", Hostname: "db.internal", Port: 2222, Username: "admin", AuthType: config.AuthPassword},
		{ID: "3", Name: "bastion", Hostname: "jump.example.com", Port: 22, Username: "ops", AuthType: config.AuthPrivateKey, Tags: []string{"edge"}},
	}
}

func typeRunes(m *SelectorModel, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestSelectorFilter(t *testing.T) {
	m := NewSelector(sampleProfiles())
	if len(m.filteredIndices) != 3 {
		t.Fatalf("Expected all profiles visible, got %d", len(m.filteredIndices))
	}

	typeRunes(m, "example")
	if len(m.filteredIndices) != 2 {
		t.Errorf("Expected 2 hostname matches, got %d", len(m.filteredIndices))
	}

	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	if m.filter != "exampl" {
		t.Errorf("Unexpected filter after backspace %q", m.filter)
	}

	m = NewSelector(sampleProfiles())
	typeRunes(m, "EDGE")
	if len(m.filteredIndices) != 1 || m.profiles[m.filteredIndices[0]].ID != "3" {
		t.Errorf("Expected tag match on bastion, got %v", m.filteredIndices)
	}

	m = NewSelector(sampleProfiles())
	typeRunes(m, "nothing")
	if !strings.Contains(m.View(), "No matches found") {
		t.Errorf("Expected empty-state message")
	}
}

func TestSelectorChoose(t *testing.T) {
	m := NewSelector(sampleProfiles())
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 2 {
		t.Errorf("Expected cursor clamped at 2, got %d", m.cursor)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyUp})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Errorf("Expected quit command on select")
	}
	if c := m.Choice(); c == nil || c.ID != "2" {
		t.Errorf("Expected db to be chosen, got %+v", c)
	}
}

func TestSelectorCancel(t *testing.T) {
	m := NewSelector(sampleProfiles())
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.Choice() != nil || !m.quitting {
		t.Errorf("Expected cancellation without a choice")
	}
	if m.View() != "" {
		t.Errorf("Expected empty view after quitting")
	}
}

func TestRenderProfiles(t *testing.T) {
	var buf bytes.Buffer
	profiles := sampleProfiles()
	profiles[1].Password = "hunter2"
	if err := RenderProfiles(&buf, profiles); err != nil {
		t.Fatalf("RenderProfiles failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"web", "admin@db.internal", "2222", "prod"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in table:\n%s", want, out)
		}
	}
	if strings.Contains(out, "hunter2") {
		t.Errorf("Table leaked a secret")
	}

	buf.Reset()
	RenderProfiles(&buf, nil)
	if !strings.Contains(buf.String(), "No connections saved") {
		t.Errorf("Unexpected empty output %q", buf.String())
	}
}

func TestRenderSessions(t *testing.T) {
	var buf bytes.Buffer
	err := RenderSessions(&buf, []session.ActiveSession{{
		ID: "conn_1", ProfileName: "web", Hostname: "h", Username: "u",
		Kind: session.KindExternal, Status: session.StatusConnected, TerminalPID: 42,
		StartTime: time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC),
	}})
	if err != nil {
		t.Fatalf("RenderSessions failed: %v", err)
	}
	for _, want := range []string{"conn_1", "u@h", "42", "09:30:00"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Expected %q in table:\n%s", want, buf.String())
		}
	}
}

type fakeSessions struct {
	bus      *events.Bus
	mu       sync.Mutex
	id       string
	input    []byte
	closed   []string
	failWith error
	onCreate func(id string)
}

func (f *fakeSessions) CreateEmbeddedSession(terminalID, profileID string) manager.Result {
	if f.failWith != nil {
		return manager.Result{Error: f.failWith.Error()}
	}
	f.mu.Lock()
	f.id = terminalID
	f.mu.Unlock()
	if f.onCreate != nil {
		f.onCreate(terminalID)
	}
	return manager.Result{Success: true, SessionID: terminalID}
}

func (f *fakeSessions) SendInput(_ string, data []byte) manager.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = append(f.input, data...)
	return manager.Result{Success: true}
}

func (f *fakeSessions) Resize(string, int, int) manager.Result { return manager.Result{Success: true} }

func (f *fakeSessions) CloseEmbeddedSession(id string) manager.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, id)
	return manager.Result{Success: true}
}

func (f *fakeSessions) Subscribe() *events.Subscription { return f.bus.Subscribe() }

func TestAttachRelaysOutputUntilClosed(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	code := 3
	f := &fakeSessions{bus: bus}
	f.onCreate = func(id string) {
		go func() {
			bus.Publish(events.Event{Type: events.SessionData, SessionID: "other", Data: "noise"})
			bus.Publish(events.Event{Type: events.SessionData, SessionID: id, Data: "hello "})
			bus.Publish(events.Event{Type: events.SessionData, SessionID: id, Data: "world"})
			bus.Publish(events.Event{Type: events.SessionExit, SessionID: id, ExitCode: &code})
			bus.Publish(events.Event{Type: events.SessionClosed, SessionID: id})
		}()
	}

	var out bytes.Buffer
	pr, pw := io.Pipe()
	defer pw.Close()
	a := &Attacher{In: pr, Out: &out, Fd: -1}

	got, err := a.Attach(context.Background(), f, "p1")
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if got != 3 {
		t.Errorf("Expected exit code 3, got %d", got)
	}
	if out.String() != "hello world" {
		t.Errorf("Unexpected output %q", out.String())
	}
	if len(f.closed) != 1 || f.closed[0] != f.id {
		t.Errorf("Expected the session to be closed once, got %v", f.closed)
	}
}

func TestAttachDetachKey(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	f := &fakeSessions{bus: bus}
	a := &Attacher{In: strings.NewReader("ls\r\x1dignored"), Out: io.Discard, Fd: -1}

	if _, err := a.Attach(context.Background(), f, "p1"); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if string(f.input) != "ls\r" {
		t.Errorf("Expected input before the detach key only, got %q", f.input)
	}
	if len(f.closed) != 1 {
		t.Errorf("Expected the session to be closed on detach")
	}
}

func TestAttachCreateFailure(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	f := &fakeSessions{bus: bus, failWith: errors.New("Connection not found")}
	a := &Attacher{In: strings.NewReader(""), Out: io.Discard, Fd: -1}

	if _, err := a.Attach(context.Background(), f, "missing"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected creation error, got %v", err)
	}
	if len(f.closed) != 0 {
		t.Errorf("Nothing should be closed when creation fails")
	}
}
