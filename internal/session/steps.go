package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime"
)

// CommandRunner runs a short-lived command to completion.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// BusyTabCloser closes terminal tabs that are running a process.
type BusyTabCloser interface {
	CloseBusyTabs(ctx context.Context) error
}

// PTYCloser closes an embedded session by id.
type PTYCloser interface {
	Close(id string) error
}

// BusyTabStep closes every busy tab of the host terminal application. It
// cannot tell sessions apart, so unrelated busy tabs are closed too.
type BusyTabStep struct {
	Closer BusyTabCloser
}

func (BusyTabStep) Name() string { return "close-busy-tabs" }

func (b BusyTabStep) Applies(s ActiveSession) bool {
	return b.Closer != nil && s.Kind == KindExternal
}

func (b BusyTabStep) Run(ctx context.Context, _ ActiveSession) error {
	return b.Closer.CloseBusyTabs(ctx)
}

// SignalStep sends a termination signal to the recorded terminal pid.
type SignalStep struct {
	Send func(pid int) error
}

func (SignalStep) Name() string { return "signal-pid" }

func (SignalStep) Applies(s ActiveSession) bool {
	return s.Kind == KindExternal && s.TerminalPID > 0
}

func (st SignalStep) Run(_ context.Context, s ActiveSession) error {
	send := st.Send
	if send == nil {
		send = terminateProcess
	}
	if err := send(s.TerminalPID); err != nil {
		return fmt.Errorf("failed to signal pid %d: %w", s.TerminalPID, err)
	}
	return nil
}

// pkillNoMatch is the pkill exit status when no process matched.
const pkillNoMatch = 1

// PatternKillStep runs pkill against "ssh.*<hostname>". Any other ssh
// process to the same host is killed as well.
type PatternKillStep struct {
	Runner CommandRunner
}

func (PatternKillStep) Name() string { return "pkill-pattern" }

func (p PatternKillStep) Applies(s ActiveSession) bool {
	return p.Runner != nil && s.Kind == KindExternal && s.Hostname != ""
}

func (p PatternKillStep) Run(ctx context.Context, s ActiveSession) error {
	pattern := KillPattern(s.Hostname)
	if _, err := p.Runner.Run(ctx, "pkill", "-f", pattern); err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) && exitErr.ExitCode() == pkillNoMatch {
			return fmt.Errorf("pkill -f %q matched nothing: %w", pattern, ErrProcessGone)
		}
		return fmt.Errorf("pkill -f %q: %w", pattern, err)
	}
	return nil
}

// KillPattern is the process pattern used for a host.
func KillPattern(hostname string) string {
	return "ssh.*" + regexp.QuoteMeta(hostname)
}

// EmbeddedCloseStep closes the PTY of an embedded session.
type EmbeddedCloseStep struct {
	Closer PTYCloser
}

func (EmbeddedCloseStep) Name() string { return "close-pty" }

func (e EmbeddedCloseStep) Applies(s ActiveSession) bool {
	return e.Closer != nil && s.Kind == KindEmbedded
}

func (e EmbeddedCloseStep) Run(_ context.Context, s ActiveSession) error {
	return e.Closer.Close(s.ID)
}

// DefaultSteps returns the teardown chain for the running platform. tabs is
// only used on darwin; runner drives pkill everywhere except windows.
func DefaultSteps(runner CommandRunner, tabs BusyTabCloser, ptys PTYCloser) []Step {
	return stepsFor(runtime.GOOS, runner, tabs, ptys)
}

func stepsFor(goos string, runner CommandRunner, tabs BusyTabCloser, ptys PTYCloser) []Step {
	var steps []Step
	if goos == "darwin" && tabs != nil {
		steps = append(steps, BusyTabStep{Closer: tabs})
	}
	steps = append(steps, SignalStep{})
	if goos != "windows" && runner != nil {
		steps = append(steps, PatternKillStep{Runner: runner})
	}
	if ptys != nil {
		steps = append(steps, EmbeddedCloseStep{Closer: ptys})
	}
	return steps
}

// ErrProcessGone marks a step that found nothing left to stop. The session
// counts as torn down.
var ErrProcessGone = errors.New("process already gone")
