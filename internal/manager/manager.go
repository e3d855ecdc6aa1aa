// Package manager implements the connection lifecycle: profiles, launching
// ssh, tracking active sessions and tearing them down.
package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/atotto/clipboard"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/activity"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/config"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/credentials"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/events"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/launcher"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/logutil"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/session"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/sshcmd"
)

// testGrace is added to the ssh ConnectTimeout for the test deadline.
const testGrace = 5 * time.Second

// Options wires a Manager. Zero values select the production defaults; a
// negative Cooldown disables the debounce guard.
type Options struct {
	Profiles *config.ProfileStore
	Secrets  credentials.Store
	Bus      *events.Bus

	Runner   launcher.Runner
	Terminal launcher.Terminal
	Spawn    launcher.Spawner
	// Steps overrides the teardown chain.
	Steps []session.Step

	SSHBinary            string
	Cooldown             time.Duration
	TestTimeout          time.Duration
	EmbeddedCommandDelay time.Duration
	ScrollbackBytes      int
	KeyDir               string

	Clipboard func(string) error
	Now       func() time.Time
}

// Manager owns every piece of lifecycle state. All methods are safe for
// concurrent use.
type Manager struct {
	profiles   *config.ProfileStore
	builder    *sshcmd.Builder
	external   *launcher.External
	embedded   *launcher.Embedded
	registry   *session.Registry
	terminator *session.Terminator
	debouncer  *session.Debouncer
	bus        *events.Bus
	activity   *activity.Log
	runner     launcher.Runner

	sshBinary   string
	testTimeout time.Duration
	keyDir      string
	clipboard   func(string) error
	nowFn       func() time.Time
}

// New creates a manager from opts. opts.Profiles must already be loaded.
func New(opts Options) *Manager {
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	if opts.Runner == nil {
		opts.Runner = launcher.ExecRunner{}
	}
	if opts.Terminal == nil {
		opts.Terminal = launcher.DefaultTerminal(opts.Runner, "")
	}
	if opts.SSHBinary == "" {
		opts.SSHBinary = "ssh"
	}
	if opts.Cooldown == 0 {
		opts.Cooldown = session.DefaultCooldown
	}
	if opts.TestTimeout <= 0 {
		opts.TestTimeout = sshcmd.TestConnectTimeout * time.Second
	}
	if opts.KeyDir == "" {
		opts.KeyDir = "~/.ssh"
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Manager{
		profiles:    opts.Profiles,
		builder:     sshcmd.NewBuilder(opts.Secrets),
		registry:    session.NewRegistry(),
		debouncer:   session.NewDebouncer(opts.Cooldown),
		bus:         opts.Bus,
		activity:    activity.New(opts.Bus),
		runner:      opts.Runner,
		sshBinary:   opts.SSHBinary,
		testTimeout: opts.TestTimeout,
		keyDir:      opts.KeyDir,
		clipboard:   opts.Clipboard,
		nowFn:       opts.Now,
	}
	m.external = launcher.NewExternal(m.builder, opts.Terminal, opts.SSHBinary)
	m.embedded = launcher.NewEmbedded(m.builder, opts.Bus, launcher.EmbeddedOptions{
		SSHBinary:       opts.SSHBinary,
		CommandDelay:    opts.EmbeddedCommandDelay,
		ScrollbackBytes: opts.ScrollbackBytes,
		Spawn:           opts.Spawn,
		OnExit:          m.embeddedExited,
	})

	steps := opts.Steps
	if steps == nil {
		var tabs session.BusyTabCloser
		if closer, ok := opts.Terminal.(session.BusyTabCloser); ok {
			tabs = closer
		}
		steps = session.DefaultSteps(opts.Runner, tabs, m.embedded)
	}
	m.terminator = session.NewTerminator(m.registry, steps...)
	return m
}

// Open builds a manager from settings: it opens the credential backend and
// loads the profile document.
func Open(s *config.Settings) (*Manager, error) {
	secrets, err := credentials.Open(credentials.Options{
		Backend:  s.SecretBackend,
		Service:  s.KeyringService,
		FilePath: s.SecretFilePath(),
		FileKey:  s.SecretFileKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	profiles := config.NewProfileStore(s.ProfilesPath(), secrets)
	if err := profiles.Load(); err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	cooldown := s.Cooldown
	if cooldown == 0 {
		cooldown = -1
	}
	runner := launcher.ExecRunner{}
	return New(Options{
		Profiles:             profiles,
		Secrets:              secrets,
		Runner:               runner,
		Terminal:             launcher.DefaultTerminal(runner, s.Terminal),
		SSHBinary:            s.SSHBinary,
		Cooldown:             cooldown,
		TestTimeout:          s.TestTimeout,
		EmbeddedCommandDelay: s.EmbeddedCommandDelay,
		ScrollbackBytes:      s.ScrollbackBytes,
	}), nil
}

func (m *Manager) sessionsChanged() {
	m.bus.Publish(events.Event{Type: events.SessionsChanged})
}

// ListProfiles returns every profile without secrets.
func (m *Manager) ListProfiles() []config.ConnectionProfile {
	return m.profiles.List()
}

// GetProfile returns one profile without secrets.
func (m *Manager) GetProfile(id string) (config.ConnectionProfile, bool) {
	return m.profiles.Get(id)
}

// SaveProfile upserts a profile and stores any supplied credentials.
func (m *Manager) SaveProfile(p config.ConnectionProfile, creds *config.Credentials) Result {
	name := logutil.SanitizeForLog(p.Name)
	m.activity.Info(fmt.Sprintf("Saving connection: %s (%s:%d)", name, logutil.SanitizeForLog(p.Target()), p.Port), "")

	saved, err := m.profiles.Save(p, creds)
	if err != nil {
		m.activity.Error(fmt.Sprintf("Failed to save connection '%s'", name), err.Error())
		return fail("Failed to save connection", err)
	}

	if saved.AuthType.RequiresKey() {
		if key, err := sshcmd.InspectKey(saved.PrivateKeyPath); err != nil {
			m.activity.Warning(fmt.Sprintf("Private key for '%s' is not readable", saved.Name), err.Error())
		} else if warning := sshcmd.AuthMismatch(saved, key); warning != "" {
			m.activity.Warning(fmt.Sprintf("Private key for '%s' may not match its auth type", saved.Name), warning)
		}
	}

	m.activity.Success(fmt.Sprintf("Connection '%s' saved successfully", saved.Name), "")
	res := ok("Connection saved")
	res.Profile = &saved
	return res
}

// DeleteProfile removes a profile and its secrets. Active sessions of the
// profile are left running.
func (m *Manager) DeleteProfile(id string) Result {
	p, found := m.profiles.Get(id)
	if err := m.profiles.Delete(id); err != nil {
		if errors.Is(err, config.ErrProfileNotFound) {
			return fail("Connection not found", err)
		}
		m.activity.Error(fmt.Sprintf("Failed to delete connection '%s'", p.Name), err.Error())
		return fail("Failed to delete connection", err)
	}
	m.debouncer.Forget(id)
	if found {
		m.activity.Success(fmt.Sprintf("Connection '%s' deleted", p.Name), "")
	}
	return ok("Connection deleted")
}

// Connect launches an external terminal running ssh for the profile and
// records the new session.
func (m *Manager) Connect(ctx context.Context, profileID string) Result {
	now := m.nowFn()
	if !m.debouncer.Attempt(profileID, now) {
		m.activity.Warning(fmt.Sprintf("Connection to '%s' ignored - too soon after previous attempt", m.displayName(profileID)), "")
		res := fail("Please wait before trying to connect again", ErrCooldown)
		res.RetryAfterMs = m.debouncer.Remaining(profileID, now).Milliseconds()
		return res
	}

	p, found := m.profiles.Get(profileID)
	if !found {
		return fail("Connection not found", fmt.Errorf("connection with ID %s: %w", profileID, config.ErrProfileNotFound))
	}
	m.activity.Info(fmt.Sprintf("Initiating external terminal SSH connection to: %s", p.Name), "")

	pid, err := m.external.Launch(ctx, p)
	if err != nil {
		m.activity.Error(fmt.Sprintf("Failed to launch external terminal for '%s'", p.Name), err.Error())
		return fail(err.Error(), err)
	}

	s := session.ActiveSession{
		ID:          session.NewID(p.ID, now),
		ProfileID:   p.ID,
		ProfileName: p.Name,
		Hostname:    p.Hostname,
		Username:    p.Username,
		Port:        p.Port,
		StartTime:   now,
		TerminalPID: pid,
		Status:      session.StatusConnected,
		Kind:        session.KindExternal,
	}
	if err := m.registry.Record(s); err != nil {
		return fail("Failed to record active connection", err)
	}
	m.sessionsChanged()
	m.activity.Success(fmt.Sprintf("External SSH connection to '%s' launched successfully", p.Name), "")

	res := ok("SSH connection launched in external terminal")
	res.SessionID = s.ID
	return res
}

func (m *Manager) displayName(profileID string) string {
	if p, found := m.profiles.Get(profileID); found {
		return p.Name
	}
	return profileID
}

// TestConnection runs a non-interactive ssh that exits immediately. Exit
// code zero is success.
func (m *Manager) TestConnection(ctx context.Context, p config.ConnectionProfile) Result {
	p, err := config.Normalize(p)
	if err != nil {
		return fail(err.Error(), err)
	}
	m.activity.Info(fmt.Sprintf("Testing connection to: %s (%s)", p.Name, p.Hostname), "")

	args, err := m.builder.Build(p, sshcmd.ModeTest)
	if err != nil {
		m.activity.Error(fmt.Sprintf("Failed to test connection to '%s'", p.Name), err.Error())
		return fail(err.Error(), err)
	}
	args = append(args, "exit")

	ctx, cancel := context.WithTimeout(ctx, m.testTimeout+testGrace)
	defer cancel()

	out, err := m.runner.Run(ctx, m.sshBinary, args...)
	if err == nil {
		m.activity.Success(fmt.Sprintf("Connection test to '%s' successful", p.Name), "")
		return ok("Connection test successful")
	}

	var exitErr interface{ ExitCode() int }
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		m.activity.Warning(fmt.Sprintf("Connection test to '%s' timed out", p.Name), "")
		return fail("Connection test timed out", fmt.Errorf("%w: %w", ErrTestFailed, ctx.Err()))
	case errors.As(err, &exitErr):
		code := exitErr.ExitCode()
		m.activity.Warning(fmt.Sprintf("Connection test to '%s' failed with exit code %d", p.Name, code), lastLine(out))
		return fail("Connection test failed", fmt.Errorf("%w: exit code %d", ErrTestFailed, code))
	}
	m.activity.Error(fmt.Sprintf("Connection test to '%s' failed", p.Name), err.Error())
	return fail(fmt.Sprintf("Connection test failed: %v", err), fmt.Errorf("%w: %w", ErrTestFailed, err))
}

// ListActiveSessions returns the tracked sessions ordered by start time.
func (m *Manager) ListActiveSessions() []session.ActiveSession {
	return m.registry.List()
}

// Disconnect tears down one session.
func (m *Manager) Disconnect(ctx context.Context, sessionID string) Result {
	report, err := m.terminator.Terminate(ctx, sessionID)
	switch {
	case errors.Is(err, session.ErrAlreadyDisconnecting):
		return ok("Disconnect already in progress")
	case errors.Is(err, session.ErrSessionNotFound):
		return fail("Active connection not found", err)
	case err != nil:
		return fail("Failed to disconnect SSH connection", err)
	}

	m.sessionsChanged()
	if report.TornDown() {
		m.activity.Success(fmt.Sprintf("Disconnected from '%s'", report.Session.ProfileName), "")
	} else {
		m.activity.Warning(fmt.Sprintf("Stopped tracking '%s'; its terminal may still be open", report.Session.ProfileName), "")
	}
	return ok("SSH connection terminated")
}

// DisconnectAll tears down every tracked session.
func (m *Manager) DisconnectAll(ctx context.Context) Result {
	bulk := m.terminator.TerminateAll(ctx)
	m.sessionsChanged()

	succeeded, failed := len(bulk.Succeeded), len(bulk.Failed)
	var res Result
	switch bulk.Outcome() {
	case session.OutcomeAll:
		m.activity.Success(fmt.Sprintf("Successfully disconnected all %d connections", succeeded), "")
		res = ok(fmt.Sprintf("Disconnected %d connections", succeeded))
	case session.OutcomePartial:
		m.activity.Warning(fmt.Sprintf("Disconnected %d connections, %d failed", succeeded, failed), "")
		res = ok(fmt.Sprintf("Disconnected %d connections, %d failed", succeeded, failed))
	default:
		m.activity.Error("Failed to disconnect any connections", "")
		res = fail("Failed to disconnect connections", errors.New("no session could be torn down"))
	}
	res.Bulk = &bulk
	return res
}

// CreateEmbeddedSession starts ssh for a profile inside a PTY owned by this
// process and tracks it under terminalID.
func (m *Manager) CreateEmbeddedSession(terminalID, profileID string) Result {
	p, found := m.profiles.Get(profileID)
	if !found {
		m.activity.Error(fmt.Sprintf("Connection profile not found for ID: %s", logutil.SanitizeForLog(profileID)), "")
		return fail("Connection profile not found", fmt.Errorf("connection with ID %s: %w", profileID, config.ErrProfileNotFound))
	}
	m.activity.Info(fmt.Sprintf("Creating embedded terminal for: %s", p.Name), "")

	// The entry exists before the shell starts so an early exit always finds it.
	err := m.registry.Record(session.ActiveSession{
		ID:          terminalID,
		ProfileID:   p.ID,
		ProfileName: p.Name,
		Hostname:    p.Hostname,
		Username:    p.Username,
		Port:        p.Port,
		StartTime:   m.nowFn(),
		Status:      session.StatusConnecting,
		Kind:        session.KindEmbedded,
	})
	if err != nil {
		return fail("Failed to record embedded session", err)
	}

	info, err := m.embedded.Create(terminalID, p)
	if err != nil {
		m.registry.Remove(terminalID)
		m.activity.Error(fmt.Sprintf("Failed to create terminal %s", logutil.SanitizeForLog(terminalID)), err.Error())
		return fail(err.Error(), err)
	}

	if err := m.registry.MarkConnected(terminalID, info.PID, info.StartedAt); err != nil {
		// The shell exited or a disconnect started while it was spawning.
		m.embedded.Close(terminalID)
		m.sessionsChanged()
		m.activity.Warning(fmt.Sprintf("Terminal %s ended during startup", logutil.SanitizeForLog(terminalID)), "")
		return fail("Terminal ended during startup", err)
	}
	m.sessionsChanged()
	m.activity.Success(fmt.Sprintf("Terminal %s created for %s", terminalID, p.Name), "")

	res := ok("Embedded terminal created")
	res.SessionID = terminalID
	return res
}

// SendInput writes raw keystrokes to an embedded session.
func (m *Manager) SendInput(terminalID string, data []byte) Result {
	if err := m.embedded.Write(terminalID, data); err != nil {
		return fail("Terminal not found", err)
	}
	return ok("")
}

// Resize changes the window size of an embedded session.
func (m *Manager) Resize(terminalID string, cols, rows int) Result {
	if err := m.embedded.Resize(terminalID, cols, rows); err != nil {
		return fail(err.Error(), err)
	}
	return ok("")
}

// CloseEmbeddedSession kills the shell of an embedded session and drops its
// registry entry.
func (m *Manager) CloseEmbeddedSession(terminalID string) Result {
	err := m.embedded.Close(terminalID)
	removed := m.registry.Remove(terminalID)
	if removed {
		m.sessionsChanged()
	}
	if err != nil && !removed {
		return fail("Terminal not found", err)
	}
	m.activity.Info(fmt.Sprintf("Terminal %s closed", logutil.SanitizeForLog(terminalID)), "")
	return ok("Terminal closed")
}

// embeddedExited drops the registry entry of a shell that exited on its own.
// Sessions being torn down by the terminator are left to it.
func (m *Manager) embeddedExited(id string, code int) {
	s, found := m.registry.Get(id)
	if !found || s.Status == session.StatusDisconnecting {
		return
	}
	if m.registry.Remove(id) {
		m.activity.Info(fmt.Sprintf("Terminal %s exited with code %d", id, code), "")
		m.sessionsChanged()
	}
}

// ListTerminals returns the open embedded sessions.
func (m *Manager) ListTerminals() []launcher.TerminalInfo {
	return m.embedded.List()
}

// Scrollback returns the buffered output of an embedded session.
func (m *Manager) Scrollback(terminalID string) ([]byte, error) {
	return m.embedded.Scrollback(terminalID)
}

// Subscribe registers for session and log events.
func (m *Manager) Subscribe() *events.Subscription {
	return m.bus.Subscribe()
}

// Logs returns the activity log, newest first.
func (m *Manager) Logs() []activity.Entry {
	return m.activity.Entries()
}

// ClearLogs empties the activity log.
func (m *Manager) ClearLogs() {
	m.activity.Clear()
}

// ExportProfiles writes every profile as YAML. Secrets are not exported.
func (m *Manager) ExportProfiles(w io.Writer) error {
	return m.profiles.ExportYAML(w)
}

// ImportProfiles upserts profiles from an exported YAML document.
func (m *Manager) ImportProfiles(r io.Reader) Result {
	n, err := m.profiles.ImportYAML(r)
	return m.importResult("profile document", n, err)
}

// ImportSSHConfig upserts the concrete hosts of an OpenSSH client config.
func (m *Manager) ImportSSHConfig(path string) Result {
	if path == "" {
		path = "~/.ssh/config"
	}
	n, err := m.profiles.ImportSSHConfig(path)
	return m.importResult(path, n, err)
}

func (m *Manager) importResult(source string, n int, err error) Result {
	if err != nil && n == 0 {
		m.activity.Error(fmt.Sprintf("Failed to import %s", source), err.Error())
		res := fail("Import failed", err)
		return res
	}
	res := ok(fmt.Sprintf("Imported %d connections", n))
	res.Count = n
	if err != nil {
		m.activity.Warning(fmt.Sprintf("Imported %d connections from %s with errors", n, source), err.Error())
		res.Message = fmt.Sprintf("Imported %d connections; some were skipped", n)
		return res
	}
	m.activity.Success(fmt.Sprintf("Imported %d connections from %s", n, source), "")
	return res
}

// ListKeyFiles returns candidate private keys in the user's ssh directory.
func (m *Manager) ListKeyFiles() []string {
	return sshcmd.ScanKeyFiles(m.keyDir)
}

// CopyCommand puts the ssh command of a profile on the clipboard.
func (m *Manager) CopyCommand(profileID string) Result {
	p, found := m.profiles.Get(profileID)
	if !found {
		return fail("Connection not found", fmt.Errorf("connection with ID %s: %w", profileID, config.ErrProfileNotFound))
	}
	args, err := m.builder.Build(p, sshcmd.ModeExternal)
	if err != nil {
		return fail(err.Error(), err)
	}
	command := sshcmd.CommandLine(m.sshBinary, args)
	if err := m.clipboard(command); err != nil {
		log.Printf("[Manager] Clipboard write failed: %v", err)
		return fail("Failed to copy command to clipboard", err)
	}
	m.activity.Info(fmt.Sprintf("Copied ssh command for '%s'", p.Name), "")
	return ok(command)
}

// Shutdown closes every embedded terminal. External windows are left open.
func (m *Manager) Shutdown() {
	for _, t := range m.embedded.List() {
		m.registry.Remove(t.ID)
	}
	m.embedded.CloseAll()
	log.Printf("[Manager] Shut down")
}

// Close shuts down and releases subscribers.
func (m *Manager) Close() {
	m.Shutdown()
	m.bus.Close()
}

func lastLine(out []byte) string {
	s := string(out)
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '\n' {
			return logutil.SanitizeForLog(s[i+1:])
		}
	}
	return logutil.SanitizeForLog(s)
}
