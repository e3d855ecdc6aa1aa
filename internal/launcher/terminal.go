package launcher

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Terminal opens a command in a new terminal window.
type Terminal interface {
	Name() string
	// Open runs command (a shell command line) in a new window titled title
	// and returns the pid of the launching process.
	Open(ctx context.Context, title, command string) (int, error)
}

// SelectTerminal returns the Terminal for goos. program overrides the
// emulator used on Linux and other Unix systems.
func SelectTerminal(goos string, runner Runner, program string) Terminal {
	switch goos {
	case "darwin":
		return &AppleScriptTerminal{Runner: runner}
	case "windows":
		return &ConsoleHost{Runner: runner}
	}
	return &Emulator{Runner: runner, Program: program, Getenv: os.Getenv}
}

// DefaultTerminal is SelectTerminal for the running OS.
func DefaultTerminal(runner Runner, program string) Terminal {
	return SelectTerminal(runtime.GOOS, runner, program)
}

// AppleScriptTerminal drives Terminal.app through osascript.
type AppleScriptTerminal struct {
	Runner Runner
}

func (*AppleScriptTerminal) Name() string { return "Terminal.app" }

func (t *AppleScriptTerminal) Open(_ context.Context, _ string, command string) (int, error) {
	return t.Runner.Start("osascript",
		"-e", `tell application "Terminal" to activate`,
		"-e", fmt.Sprintf(`tell application "Terminal" to do script "%s"`, appleScriptString(command)),
	)
}

const closeBusyTabsScript = `tell application "Terminal"
	repeat with aWindow in every window
		repeat with aTab in every tab of aWindow
			if busy of aTab is true then
				close aTab
			end if
		end repeat
	end repeat
end tell`

// CloseBusyTabs closes every Terminal.app tab that is running a process.
func (t *AppleScriptTerminal) CloseBusyTabs(ctx context.Context) error {
	if out, err := t.Runner.Run(ctx, "osascript", "-e", closeBusyTabsScript); err != nil {
		return fmt.Errorf("osascript: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func appleScriptString(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// ConsoleHost opens a new cmd.exe console window.
type ConsoleHost struct {
	Runner Runner
}

func (*ConsoleHost) Name() string { return "cmd.exe" }

func (t *ConsoleHost) Open(_ context.Context, _ string, command string) (int, error) {
	return t.Runner.Start("cmd", "/c", "start", "cmd", "/k", command)
}

// Emulator opens an X11/Wayland terminal emulator, or a tmux window when
// running inside tmux.
type Emulator struct {
	Runner  Runner
	Program string
	Getenv  func(string) string
}

var fallbackEmulators = []string{"gnome-terminal", "x-terminal-emulator", "xterm"}

func (t *Emulator) Name() string {
	if t.inTmux() {
		return "tmux"
	}
	if t.Program != "" {
		return t.Program
	}
	return "terminal emulator"
}

func (t *Emulator) inTmux() bool {
	return t.Getenv != nil && t.Getenv("TMUX") != ""
}

func (t *Emulator) Open(_ context.Context, title, command string) (int, error) {
	if t.inTmux() {
		return t.Runner.Start("tmux", "new-window", "-n", title, command)
	}

	// Keep the window open after ssh exits so errors stay readable.
	script := command + "; exec bash"
	candidates := fallbackEmulators
	if t.Program != "" {
		candidates = append([]string{t.Program}, fallbackEmulators...)
	}
	for _, program := range candidates {
		if _, err := t.Runner.LookPath(program); err != nil {
			continue
		}
		return t.Runner.Start(program, emulatorArgs(program, title, script)...)
	}
	return 0, ErrNoTerminal
}

func emulatorArgs(program, title, script string) []string {
	switch program {
	case "gnome-terminal":
		return []string{"--title", title, "--", "bash", "-c", script}
	case "xterm":
		return []string{"-T", title, "-e", "bash", "-c", script}
	}
	return []string{"-e", "bash", "-c", script}
}
